package models

import "time"

// OrderIDMap mencatat pemetaan id order lokal (negatif) ke id yang diberikan
// backend. Dipakai sebagai tabel indireksi saat drain antrian dan untuk
// mendeteksi konflik remap (backend mengembalikan id yang sudah terpakai).
type OrderIDMap struct {
	LocalID   int64     `gorm:"primaryKey" json:"local_id"`
	RemoteID  int64     `gorm:"uniqueIndex;not null" json:"remote_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}
