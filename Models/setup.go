package Models

import (
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Connect opens the database and migrates the schema. SQLite is the
// default so a checkout runs with zero setup; set MYSQL_DSN to run
// against MySQL in production.
func Connect() {
	var err error
	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	} else {
		path := os.Getenv("DB_PATH")
		if path == "" {
			path = "database.db"
		}
		DB, err = gorm.Open(sqlite.Open(path), &gorm.Config{})
	}
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	// 1. Tables with no dependencies
	DB.AutoMigrate(
		&User{},
		&ShopSettings{},
		&FilmMaterial{},
		&PatternEntry{},
		&ShopChecklistItem{},
	)

	// 2. Tables referencing users
	DB.AutoMigrate(
		&DeviceToken{},
		&AppNotification{},
		&Task{},
	)

	// 3. The intervention tree hangs off tasks
	DB.AutoMigrate(
		&Intervention{},
		&InterventionStep{},
		&InstallationZone{},
	)

	SeedAdmin()
	if _, err := GetShopSettings(DB); err != nil {
		log.Printf("settings seed failed: %v", err)
	}
	SetupFilmCatalog()
}

// SeedAdmin creates the bootstrap admin account when the user table is
// empty. The password comes from ADMIN_PASSWORD so fresh installs don't
// all share a default.
func SeedAdmin() {
	var userCount int64
	DB.Model(&User{}).Count(&userCount)
	if userCount != 0 {
		return
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "ChangeMe123"
		log.Println("ADMIN_PASSWORD not set, seeding admin with default password")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("admin seed failed: %v", err)
		return
	}
	admin := User{
		Name:       "Administrator",
		Username:   "admin",
		Password:   hashed,
		Permission: PermissionAdmin,
		IsApproved: 1,
	}
	if err := DB.Create(&admin).Error; err != nil {
		log.Printf("admin seed failed: %v", err)
	}
}
