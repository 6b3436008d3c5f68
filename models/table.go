package models

import "time"

// Table adalah meja dine-in. IsAc ikut menentukan tier tarif untuk order
// dine-in di meja tersebut.
type Table struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TableNumber string    `gorm:"type:varchar(50);not null" json:"table_number"`
	IsAc        bool      `gorm:"not null;default:false" json:"is_ac"`
	Status      string    `gorm:"type:varchar(50);not null;default:'available'" json:"status"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}
