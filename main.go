package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/qrestaurant/backoffice/config"
	"github.com/qrestaurant/backoffice/database"
	"github.com/qrestaurant/backoffice/models"
	"github.com/qrestaurant/backoffice/router"
	"github.com/qrestaurant/backoffice/utils"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}
	utils.InitLogger()
}

func main() {
	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	utils.InitDB(db)

	err = db.AutoMigrate(
		&models.Category{},
		&models.Menu{},
		&models.Desk{},
		&models.Customer{},
		&models.Order{},
		&models.PlaceOrder{},
		&models.DeliveryOrder{},
		&models.Promotion{},
		&models.User{},
		&models.Role{},
		&models.RolesUsers{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Migration failed: %v", err)
	}

	if err := database.Seed(db); err != nil {
		utils.ErrorLogger.Fatalf("Seeding failed: %v", err)
	}

	r := router.SetupRouter(db)
	if err := r.SetTrustedProxies(nil); err != nil {
		utils.ErrorLogger.Fatalf("Failed to set trusted proxies: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	utils.InfoLogger.Printf("Listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatalf("Server stopped: %v", err)
	}
}
