package models

import "time"

// Order and line statuses. Lines mirror the parent order but may diverge
// during partial fulfillment.
const (
	StatusPlaced     = "placed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// IsTerminalStatus reports whether no further transitions are allowed.
func IsTerminalStatus(s string) bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Order struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	CustomerID     uint            `gorm:"not null;index" json:"customer_id"`
	Customer       Customer        `gorm:"foreignKey:CustomerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Status         string          `gorm:"type:varchar(20);not null;default:'placed'" json:"status"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
	PlaceOrders    []PlaceOrder    `gorm:"foreignKey:OrderID" json:"place_orders"`
	DeliveryOrders []DeliveryOrder `gorm:"foreignKey:OrderID" json:"delivery_orders"`
}
