package models

import "time"

// Desk availability is owned by the order state machine; the CRUD surface
// never writes the Available column directly.
type Desk struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Capacity  int       `gorm:"not null" json:"capacity"`
	Available bool      `gorm:"not null;default:true" json:"available"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
