package models

import "time"

// PlaceOrder is a dine-in line item. Creating one claims the target desk;
// the claim is released when the parent order reaches a terminal state.
type PlaceOrder struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    uint      `gorm:"not null;index" json:"order_id"`
	Order      Order     `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	DeskID     uint      `gorm:"not null;index" json:"desk_id"`
	Desk       Desk      `gorm:"foreignKey:DeskID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	MenuID     uint      `gorm:"not null" json:"menu_id"`
	Menu       Menu      `gorm:"foreignKey:MenuID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Qty        int       `gorm:"not null" json:"qty"`
	PriceTotal float64   `gorm:"type:decimal(10,2);not null" json:"price_total"`
	Status     string    `gorm:"type:varchar(20);not null;default:'placed'" json:"status"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}
