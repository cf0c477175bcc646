package config

import (
	"fmt"
	"os"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// InitDB opens the database configured through the environment. MySQL is the
// production driver; anything else falls back to a local SQLite file so the
// app can run without a server.
func InitDB() (*gorm.DB, error) {
	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = "mysql"
	}

	switch driver {
	case "mysql":
		dsn := os.Getenv("DB_DSN")
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
				envOr("DB_USER", "root"),
				os.Getenv("DB_PASS"),
				envOr("DB_HOST", "127.0.0.1"),
				envOr("DB_PORT", "3306"),
				envOr("DB_NAME", "qrestaurant"),
			)
		}
		return gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	default:
		path := envOr("DB_PATH", "qrestaurant.db")
		return gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
