package services

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/utils"
)

// CatalogService mengelola snapshot menu read-only dari back office.
// Engine tidak pernah memutasi data katalog, hanya me-refresh salinan lokal
// supaya terminal tetap bisa mengambil harga saat offline.
type CatalogService struct {
	db     *gorm.DB
	remote *RemoteClient
}

func NewCatalogService(db *gorm.DB, remote *RemoteClient) *CatalogService {
	return &CatalogService{db: db, remote: remote}
}

// ListMenus membaca snapshot lokal.
func (cs *CatalogService) ListMenus() ([]models.Menu, error) {
	var menus []models.Menu
	err := cs.db.Order("id asc").Find(&menus).Error
	return menus, err
}

// Refresh menarik katalog dari back office dan meng-upsert ke snapshot
// lokal. Menu yang hilang dari katalog tidak dihapus: order lama masih
// mereferensikannya, dan SetLine menolak item unavailable.
func (cs *CatalogService) Refresh(ctx context.Context) (int, error) {
	menus, err := cs.remote.FetchMenus(ctx)
	if err != nil {
		return 0, err
	}
	if len(menus) == 0 {
		return 0, nil
	}

	err = cs.db.Transaction(func(tx *gorm.DB) error {
		for i := range menus {
			if err := tx.Omit(clause.Associations).
				Clauses(clause.OnConflict{UpdateAll: true}).
				Create(&menus[i]).Error; err != nil {
				return err
			}
		}
		// Menu yang tidak ikut di snapshot baru ditandai unavailable.
		ids := make([]uint, 0, len(menus))
		for _, m := range menus {
			ids = append(ids, m.ID)
		}
		return tx.Model(&models.Menu{}).
			Where("id NOT IN ?", ids).
			Update("is_available", false).Error
	})
	if err != nil {
		return 0, err
	}
	utils.InfoLogger.Printf("Catalog refreshed: %d menus", len(menus))
	return len(menus), nil
}
