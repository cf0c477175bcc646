package database

import (
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qrestaurant/backoffice/models"
	"github.com/qrestaurant/backoffice/utils"
)

// Seed guarantees the two built-in roles exist and bootstraps the first
// admin account from ADMIN_EMAIL / ADMIN_PASSWORD when the users table is
// empty. Safe to run on every startup.
func Seed(db *gorm.DB) error {
	roles := []models.Role{
		{Name: models.RoleAdmin, Description: "Full access to the backoffice"},
		{Name: models.RoleEndUser, Description: "Customer-facing ordering access"},
	}
	for i := range roles {
		err := db.Where(models.Role{Name: roles[i].Name}).
			FirstOrCreate(&roles[i]).Error
		if err != nil {
			return err
		}
	}

	var userCount int64
	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		return err
	}
	if userCount > 0 {
		return nil
	}

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		utils.InfoLogger.Println("No users yet and ADMIN_EMAIL/ADMIN_PASSWORD unset; skipping admin bootstrap")
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Name:     "Administrator",
		Email:    email,
		Password: string(hashed),
		Active:   true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	var adminRole models.Role
	if err := db.Where("name = ?", models.RoleAdmin).First(&adminRole).Error; err != nil {
		return err
	}
	if err := db.Create(&models.RolesUsers{UserID: admin.ID, RoleID: adminRole.ID}).Error; err != nil {
		return err
	}

	utils.InfoLogger.Printf("Bootstrapped admin account %s", email)
	return nil
}
