package policy

import (
	"github.com/qrestaurant/backoffice/apperrors"
	"github.com/qrestaurant/backoffice/models"
)

type Operation string

const (
	OpRead       Operation = "read"
	OpCreate     Operation = "create"
	OpUpdate     Operation = "update"
	OpDelete     Operation = "delete"
	OpTransition Operation = "transition"
)

type Resource string

const (
	ResCategory      Resource = "category"
	ResMenu          Resource = "menu"
	ResDesk          Resource = "desk"
	ResCustomer      Resource = "customer"
	ResOrder         Resource = "order"
	ResPlaceOrder    Resource = "place_order"
	ResDeliveryOrder Resource = "delivery_order"
	ResPromotion     Resource = "promotion"
	ResUser          Resource = "user"
	ResRole          Resource = "role"
)

// Actor is the authenticated identity of a request, resolved once by the
// auth middlewares and passed explicitly. Roles are a flat name set; there
// is no object graph behind it.
type Actor struct {
	ID            uint
	Name          string
	Roles         map[string]bool
	Active        bool
	Authenticated bool
	// CustomerID is set for API-key actors so the facade can scope order
	// access to the owner.
	CustomerID uint
}

func (a Actor) HasRole(name string) bool {
	return a.Roles[name]
}

// Anonymous is the actor attached to unauthenticated requests.
func Anonymous() Actor {
	return Actor{Roles: map[string]bool{}}
}

// catalog resources are world-readable on the public surface.
var endUserReadable = map[Resource]bool{
	ResCategory:      true,
	ResMenu:          true,
	ResDesk:          true,
	ResPromotion:     true,
	ResOrder:         true,
	ResPlaceOrder:    true,
	ResDeliveryOrder: true,
}

var endUserWritable = map[Resource]bool{
	ResOrder:         true,
	ResPlaceOrder:    true,
	ResDeliveryOrder: true,
}

// Authorize gates an operation on a resource class. It is a pure function:
// ownership of individual records is checked by the facade, not here.
func Authorize(actor Actor, op Operation, res Resource) error {
	if !actor.Authenticated {
		return apperrors.New(apperrors.Authorization, "authentication required")
	}
	if !actor.Active {
		return apperrors.New(apperrors.Authorization, "account is inactive")
	}

	if actor.HasRole(models.RoleAdmin) {
		return nil
	}

	if actor.HasRole(models.RoleEndUser) {
		switch op {
		case OpRead:
			if endUserReadable[res] {
				return nil
			}
		case OpCreate, OpUpdate, OpDelete, OpTransition:
			if endUserWritable[res] {
				return nil
			}
		}
	}

	return apperrors.Newf(apperrors.Authorization, "role not permitted to %s %s", op, res)
}
