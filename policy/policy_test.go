package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qrestaurant/backoffice/apperrors"
	"github.com/qrestaurant/backoffice/models"
)

func admin() Actor {
	return Actor{ID: 1, Roles: map[string]bool{models.RoleAdmin: true}, Active: true, Authenticated: true}
}

func endUser() Actor {
	return Actor{ID: 2, Roles: map[string]bool{models.RoleEndUser: true}, Active: true, Authenticated: true, CustomerID: 7}
}

func TestUnauthenticatedAlwaysDenied(t *testing.T) {
	err := Authorize(Anonymous(), OpRead, ResOrder)
	assert.True(t, apperrors.Is(err, apperrors.Authorization))
}

func TestInactiveAlwaysDenied(t *testing.T) {
	actor := admin()
	actor.Active = false
	for _, op := range []Operation{OpRead, OpCreate, OpUpdate, OpDelete, OpTransition} {
		err := Authorize(actor, op, ResMenu)
		assert.True(t, apperrors.Is(err, apperrors.Authorization), "op %s", op)
	}
}

func TestAdminAllowedEverything(t *testing.T) {
	resources := []Resource{
		ResCategory, ResMenu, ResDesk, ResCustomer, ResOrder,
		ResPlaceOrder, ResDeliveryOrder, ResPromotion, ResUser, ResRole,
	}
	for _, res := range resources {
		for _, op := range []Operation{OpRead, OpCreate, OpUpdate, OpDelete, OpTransition} {
			assert.NoError(t, Authorize(admin(), op, res), "%s %s", op, res)
		}
	}
}

func TestEndUserReadsCatalogAndOrders(t *testing.T) {
	readable := []Resource{ResCategory, ResMenu, ResDesk, ResPromotion, ResOrder, ResPlaceOrder, ResDeliveryOrder}
	for _, res := range readable {
		assert.NoError(t, Authorize(endUser(), OpRead, res), "%s", res)
	}
}

func TestEndUserCannotReadAccounts(t *testing.T) {
	for _, res := range []Resource{ResUser, ResRole, ResCustomer} {
		err := Authorize(endUser(), OpRead, res)
		assert.True(t, apperrors.Is(err, apperrors.Authorization), "%s", res)
	}
}

func TestEndUserWritesOrdersOnly(t *testing.T) {
	writable := []Resource{ResOrder, ResPlaceOrder, ResDeliveryOrder}
	for _, res := range writable {
		for _, op := range []Operation{OpCreate, OpUpdate, OpDelete, OpTransition} {
			assert.NoError(t, Authorize(endUser(), op, res), "%s %s", op, res)
		}
	}

	denied := []Resource{ResCategory, ResMenu, ResDesk, ResCustomer, ResPromotion, ResUser, ResRole}
	for _, res := range denied {
		for _, op := range []Operation{OpCreate, OpUpdate, OpDelete, OpTransition} {
			err := Authorize(endUser(), op, res)
			assert.True(t, apperrors.Is(err, apperrors.Authorization), "%s %s", op, res)
		}
	}
}

func TestUnknownRoleDenied(t *testing.T) {
	actor := Actor{ID: 3, Roles: map[string]bool{"auditor": true}, Active: true, Authenticated: true}
	err := Authorize(actor, OpRead, ResMenu)
	assert.True(t, apperrors.Is(err, apperrors.Authorization))
}
