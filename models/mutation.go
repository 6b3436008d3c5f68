package models

import (
	"fmt"
	"time"
)

type MutationKind string

const (
	MutationCreateOrder   MutationKind = "create_order"
	MutationUpdateOrder   MutationKind = "update_order"
	MutationSendKot       MutationKind = "send_kot"
	MutationRecordPayment MutationKind = "record_payment"
	MutationCancelOrder   MutationKind = "cancel_order"
)

// SyncState adalah lifecycle satu mutation di antrian.
type SyncState string

const (
	SyncPending SyncState = "pending"
	// SyncInFlight: sedang disubmit ke backend oleh sync worker.
	SyncInFlight SyncState = "in_flight"
	SyncAcked    SyncState = "acked"
	// SyncRejected: ditolak fatal oleh backend, menunggu aksi operator.
	SyncRejectedState SyncState = "rejected"
	SyncDiscarded     SyncState = "discarded"
)

// Terminal -> state yang tidak akan dikirim lagi.
func (s SyncState) Terminal() bool {
	return s == SyncAcked || s == SyncDiscarded
}

// Mutation adalah satu perintah durable yang harus sampai ke backend
// maksimal satu kali. SequenceNo monoton naik per device (autoincrement
// sqlite) dan menjadi idempotency key ke backend. OrderRef menunjuk id order
// lokal; saat id sementara di-remap ke id backend, kolom ini ikut di-remap
// untuk semua mutation yang belum terminal (payload tidak pernah menyimpan
// salinan id, hanya referensi lewat kolom ini).
type Mutation struct {
	SequenceNo    int64        `gorm:"primaryKey;autoIncrement" json:"sequence_no"`
	DeviceID      string       `gorm:"type:varchar(64);not null" json:"device_id"`
	OrderRef      int64        `gorm:"index;not null" json:"order_ref"`
	Kind          MutationKind `gorm:"type:varchar(20);not null" json:"kind"`
	Payload       string       `gorm:"type:text" json:"payload"`
	State         SyncState    `gorm:"type:varchar(12);not null;default:'pending';index" json:"state"`
	Attempts      int          `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt *time.Time   `json:"next_attempt_at,omitempty"`
	LastError     string       `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null" json:"updated_at"`
}

// IdempotencyKey yang dikirim ke backend. Retransmisi dengan key yang sama
// adalah no-op di server, bukan order/payment kedua.
func (m *Mutation) IdempotencyKey() string {
	return fmt.Sprintf("%s-%d", m.DeviceID, m.SequenceNo)
}

// Payload per kind. Line dikirim dengan harga beku hasil resolusi tier.
type MutationLine struct {
	MenuID    uint   `json:"menu_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice Money  `json:"unit_price"`
	Notes     string `json:"notes,omitempty"`
}

type CreateOrderPayload struct {
	Channel   OrderChannel   `json:"channel"`
	TableID   *uint          `json:"table_id,omitempty"`
	IsAc      bool           `json:"is_ac"`
	Lines     []MutationLine `json:"lines"`
	OrderedAt time.Time      `json:"ordered_at"`
}

// UpdateOrderPayload hanya membawa bucket "new" (delta), bukan seluruh
// order.
type UpdateOrderPayload struct {
	Lines []MutationLine `json:"lines"`
}

type SendKotPayload struct {
	Revision int            `json:"revision"`
	Lines    []MutationLine `json:"lines"`
}

type RecordPaymentPayload struct {
	Method       string `json:"method"`
	Amount       Money  `json:"amount"`
	CashReceived Money  `json:"cash_received,omitempty"`
	Change       Money  `json:"change,omitempty"`
}

type CancelOrderPayload struct {
	Reason string `json:"reason,omitempty"`
}
