package models

// Well-known role names, seeded at startup.
const (
	RoleAdmin   = "admin"
	RoleEndUser = "end-user"
)

type Role struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"type:varchar(80);unique;not null" json:"name"`
	Description string `gorm:"type:varchar(255)" json:"description"`
}

// RolesUsers is the explicit user/role association row. Role membership is
// always resolved through the store by id, never via a preloaded object graph.
type RolesUsers struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index:idx_user_role" json:"user_id"`
	RoleID uint `gorm:"not null;index:idx_user_role" json:"role_id"`
}
