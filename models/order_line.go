package models

import (
	"time"
)

// LineBatch membedakan line yang sudah ada di order sebelum sesi edit
// berjalan ("existing") dari line yang baru ditambahkan ("new"). Pembedaan
// ini yang menentukan delta mana yang dikirim ke dapur saat update: dapur
// hanya boleh menerima bucket "new", bukan seluruh order, supaya tidak ada
// item yang dimasak dua kali.
type LineBatch string

const (
	BatchExisting LineBatch = "existing"
	BatchNew      LineBatch = "new"
)

type OrderLine struct {
	ID      uint  `gorm:"primaryKey" json:"id"`
	OrderID int64 `gorm:"index;not null" json:"order_id"`
	MenuID  uint  `gorm:"not null" json:"menu_id"`
	Menu    Menu  `gorm:"foreignKey:MenuID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"menu"`
	// Quantity 0 tidak pernah disimpan: menyetel quantity ke 0 menghapus line.
	Quantity int `gorm:"not null" json:"quantity"`
	// UnitPrice adalah tarif hasil resolusi tier saat line ditambahkan.
	// Kalkulasi bill me-resolve ulang tarif dari katalog selama menunya masih
	// ada; harga beku ini dipakai sebagai fallback untuk menu yang sudah
	// hilang dari katalog.
	UnitPrice Money     `gorm:"not null" json:"unit_price"`
	Notes     string    `gorm:"type:text" json:"notes"`
	Batch     LineBatch `gorm:"type:varchar(10);not null;default:'new'" json:"batch"`
	// KotRevision adalah revisi batch KOT line ini, distempel saat batch-nya
	// di-enqueue ke dapur (0 = masih editable di sesi berjalan). Di bucket
	// "new", stempel > 0 berarti batch sudah dijanjikan dan menunggu ack.
	KotRevision int       `gorm:"not null;default:0" json:"kot_revision"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

// LineTotal -> UnitPrice x Quantity dalam minor unit.
func (l OrderLine) LineTotal() Money {
	return l.UnitPrice * Money(l.Quantity)
}
