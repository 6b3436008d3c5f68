package database

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeremiapane/pos-terminal/config"
	"github.com/yeremiapane/pos-terminal/models"
)

// Open membuka store lokal terminal. Default sqlite (file lokal, tahan
// restart); DB_DRIVER=mysql dipakai rig integrasi yang menunjuk langsung ke
// database back office.
func Open(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case "sqlite":
		return gorm.Open(sqlite.Open(cfg.DBDSN), &gorm.Config{})
	case "mysql":
		return gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// AutoMigrate menyiapkan skema store lokal: snapshot katalog, order aktif +
// history, antrian mutation, dan tabel remap id.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.MenuCategory{},
		&models.Menu{},
		&models.Table{},
		&models.Order{},
		&models.OrderLine{},
		&models.Mutation{},
		&models.OrderIDMap{},
	)
}
