package models

import "time"

// DeliveryOrder is a delivery line item.
type DeliveryOrder struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    uint      `gorm:"not null;index" json:"order_id"`
	Order      Order     `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	MenuID     uint      `gorm:"not null" json:"menu_id"`
	Menu       Menu      `gorm:"foreignKey:MenuID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Qty        int       `gorm:"not null" json:"qty"`
	Address    string    `gorm:"type:varchar(255);not null" json:"address"`
	Phone      string    `gorm:"type:varchar(255)" json:"phone"`
	Notes      string    `gorm:"type:varchar(255)" json:"notes"`
	PriceTotal float64   `gorm:"type:decimal(10,2);not null" json:"price_total"`
	Status     string    `gorm:"type:varchar(20);not null;default:'placed'" json:"status"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}
