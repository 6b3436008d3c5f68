package models

import "time"

// Menu adalah snapshot read-only dari katalog back office. Rate disimpan
// dalam minor unit; AcRate/ParcelRate boleh 0 yang berarti tier tersebut
// belum diisi dan resolusi harga jatuh ke Rate dasar.
type Menu struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	CategoryID  uint         `json:"category_id"`
	Category    MenuCategory `gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Name        string       `gorm:"type:varchar(255);not null" json:"name"`
	Rate        Money        `gorm:"not null" json:"rate"`
	AcRate      Money        `json:"ac_rate"`
	ParcelRate  Money        `json:"parcel_rate"`
	IsAvailable bool         `gorm:"not null;default:true" json:"is_available"`
	Description string       `gorm:"type:text" json:"description"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}
