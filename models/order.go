package models

import (
	"time"
)

type OrderStatus string

const (
	StatusDraft     OrderStatus = "draft"
	StatusPlaced    OrderStatus = "placed"
	StatusKotSent   OrderStatus = "kot_sent"
	StatusEditing   OrderStatus = "editing_existing"
	StatusBilled    OrderStatus = "billed"
	StatusPaid      OrderStatus = "paid"
	StatusCancelled OrderStatus = "cancelled"
)

// Order adalah aggregate satu order dari draft sampai paid. ID negatif
// berarti id lokal sementara (order dibuat di terminal dan belum di-ack oleh
// backend); setelah CreateOrder di-ack, id lokal di-remap ke id backend.
type Order struct {
	ID      int64        `gorm:"primaryKey" json:"id"`
	Channel OrderChannel `gorm:"type:varchar(10);not null" json:"channel"`
	TableID *uint        `json:"table_id,omitempty"`
	Table   *Table       `gorm:"foreignKey:TableID" json:"table,omitempty"`
	// IsAc hanya bermakna untuk channel dine_in: meja ber-AC memakai tier AC.
	IsAc   bool        `gorm:"not null;default:false" json:"is_ac"`
	Status OrderStatus `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	// SyncRejected ditandai ketika backend menolak mutation order ini secara
	// fatal; butuh aksi operator (retry-with-correction atau discard).
	SyncRejected bool   `gorm:"not null;default:false" json:"sync_rejected"`
	RejectReason string `gorm:"type:text" json:"reject_reason,omitempty"`
	// KotRevision adalah revisi batch KOT tertinggi yang sudah di-ack backend.
	// Batch yang sudah di-enqueue tapi belum di-ack hidup sebagai stempel
	// revisi di line-nya (lihat OrderLine.KotRevision).
	KotRevision int `gorm:"not null;default:0" json:"kot_revision"`

	// Bill snapshot, terisi saat transisi ke billed.
	Subtotal       Money `gorm:"not null;default:0" json:"subtotal"`
	TaxBps         int64 `gorm:"not null;default:0" json:"tax_bps"`
	TaxAmount      Money `gorm:"not null;default:0" json:"tax_amount"`
	DiscountAmount Money `gorm:"not null;default:0" json:"discount_amount"`
	Total          Money `gorm:"not null;default:0" json:"total"`

	PaymentMethod string `gorm:"type:varchar(20)" json:"payment_method,omitempty"`
	PaidAmount    Money  `gorm:"not null;default:0" json:"paid_amount"`

	OrderedAt time.Time   `gorm:"not null" json:"ordered_at"`
	BilledAt  *time.Time  `json:"billed_at,omitempty"`
	PaidAt    *time.Time  `json:"paid_at,omitempty"`
	CreatedAt time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time   `gorm:"not null" json:"updated_at"`
	Lines     []OrderLine `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"lines"`
}

// IsLocalID -> true selama order masih memakai id sementara terminal.
func (o *Order) IsLocalID() bool { return o.ID < 0 }

// Locked -> order tidak boleh dimutasi lagi.
func (o *Order) Locked() bool {
	return o.Status == StatusBilled || o.Status == StatusPaid || o.Status == StatusCancelled
}

// ExistingLines mengembalikan bucket "existing" dalam urutan penambahan.
func (o *Order) ExistingLines() []OrderLine {
	var out []OrderLine
	for _, l := range o.Lines {
		if l.Batch == BatchExisting {
			out = append(out, l)
		}
	}
	return out
}

// NewLines mengembalikan line sesi edit berjalan: bucket "new" yang belum
// distempel revisi KOT. Line bucket "new" yang sudah distempel adalah batch
// yang menunggu ack dan tidak bisa diedit lagi.
func (o *Order) NewLines() []OrderLine {
	var out []OrderLine
	for _, l := range o.Lines {
		if l.Batch == BatchNew && l.KotRevision == 0 {
			out = append(out, l)
		}
	}
	return out
}

// BatchLines mengembalikan line batch KOT dengan revisi tertentu yang masih
// menunggu ack.
func (o *Order) BatchLines(revision int) []OrderLine {
	var out []OrderLine
	for _, l := range o.Lines {
		if l.Batch == BatchNew && l.KotRevision == revision {
			out = append(out, l)
		}
	}
	return out
}

func (o *Order) findExisting(menuID uint) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].MenuID == menuID && o.Lines[i].Batch == BatchExisting {
			return &o.Lines[i]
		}
	}
	return nil
}

// findEditable mencari line menu di sesi edit berjalan (bucket "new" tanpa
// stempel revisi). Batch yang sudah distempel tidak pernah ketemu di sini.
func (o *Order) findEditable(menuID uint) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].MenuID == menuID && o.Lines[i].Batch == BatchNew && o.Lines[i].KotRevision == 0 {
			return &o.Lines[i]
		}
	}
	return nil
}

func (o *Order) removeEditable(menuID uint) {
	for i := range o.Lines {
		if o.Lines[i].MenuID == menuID && o.Lines[i].Batch == BatchNew && o.Lines[i].KotRevision == 0 {
			o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
			return
		}
	}
}

// SetLine menyetel quantity sebuah menu di bucket "new". Quantity 0 menghapus
// line. Bucket "existing" read-only setelah order placed; edit tambahan
// selalu lewat bucket "new".
func (o *Order) SetLine(menu Menu, quantity int, unitPrice Money, notes string) error {
	if o.Locked() {
		return ErrOrderLocked
	}
	if o.Status != StatusDraft && o.Status != StatusEditing {
		return ErrInvalidTransition
	}
	if quantity < 0 {
		return ErrNegativeQuantity
	}

	line := o.findEditable(menu.ID)
	if quantity == 0 {
		o.removeEditable(menu.ID)
		return nil
	}
	// Menambah item unavailable dari 0 ditolak; menurunkan quantity line yang
	// sudah ada tetap boleh walau item keburu unavailable.
	if line == nil && !menu.IsAvailable {
		return ErrItemUnavailable
	}
	if line != nil && !menu.IsAvailable && quantity > line.Quantity {
		return ErrItemUnavailable
	}

	if line != nil {
		line.Quantity = quantity
		line.Notes = notes
		line.UpdatedAt = time.Now()
		return nil
	}
	o.Lines = append(o.Lines, OrderLine{
		OrderID:   o.ID,
		MenuID:    menu.ID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Notes:     notes,
		Batch:     BatchNew,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
	return nil
}

// RemoveLine menghapus line menu dari sesi edit berjalan.
func (o *Order) RemoveLine(menuID uint) error {
	if o.Locked() {
		return ErrOrderLocked
	}
	if o.Status != StatusDraft && o.Status != StatusEditing {
		return ErrInvalidTransition
	}
	o.removeEditable(menuID)
	return nil
}

// Place: draft -> placed. Minimal satu line dengan quantity > 0.
func (o *Order) Place() error {
	if o.Status != StatusDraft {
		return ErrInvalidTransition
	}
	if !o.hasQuantity() {
		return ErrEmptyOrder
	}
	o.Status = StatusPlaced
	o.OrderedAt = time.Now()
	return nil
}

func (o *Order) hasQuantity() bool {
	for _, l := range o.Lines {
		if l.Quantity > 0 {
			return true
		}
	}
	return false
}

// RevertPlace mengembalikan placed -> draft ketika CreateOrder ditolak fatal
// oleh backend; order tetap bisa dipakai setelah dikoreksi operator.
func (o *Order) RevertPlace() {
	if o.Status == StatusPlaced {
		o.Status = StatusDraft
	}
}

// Reopen: placed/kot_sent -> editing_existing. Line lama menjadi read-only;
// penambahan berikutnya masuk bucket "new".
func (o *Order) Reopen() error {
	if o.Status != StatusPlaced && o.Status != StatusKotSent {
		return ErrInvalidTransition
	}
	o.Status = StatusEditing
	return nil
}

// MarkKotPending menstempel sesi edit berjalan sebagai satu batch KOT dan
// mengembalikan nomor revisinya (placed -> kot_sent untuk KOT pertama,
// editing -> kot_sent untuk update). Setelah distempel, batch itu terkunci:
// sesi edit berikutnya mulai kosong walau batch ini belum di-ack — delta
// yang sudah dijanjikan ke dapur tidak boleh terkirim dua kali. Merge ke
// bucket "existing" terjadi saat ack, bukan di sini.
func (o *Order) MarkKotPending() (int, error) {
	switch o.Status {
	case StatusPlaced, StatusEditing:
	default:
		return 0, ErrInvalidTransition
	}
	if len(o.NewLines()) == 0 {
		return 0, ErrEmptyOrder
	}
	revision := o.nextKotRevision()
	for i := range o.Lines {
		if o.Lines[i].Batch == BatchNew && o.Lines[i].KotRevision == 0 {
			o.Lines[i].KotRevision = revision
		}
	}
	o.Status = StatusKotSent
	return revision, nil
}

// nextKotRevision -> satu di atas revisi ter-ack dan semua batch yang masih
// menunggu ack.
func (o *Order) nextKotRevision() int {
	rev := o.KotRevision
	for _, l := range o.Lines {
		if l.Batch == BatchNew && l.KotRevision > rev {
			rev = l.KotRevision
		}
	}
	return rev + 1
}

// RevertKotPending melepas stempel satu batch (enqueue gagal): line-nya
// kembali editable di sesi berjalan.
func (o *Order) RevertKotPending(revision int) {
	for i := range o.Lines {
		if o.Lines[i].Batch == BatchNew && o.Lines[i].KotRevision == revision {
			o.Lines[i].KotRevision = 0
		}
	}
}

// MergeKotBatch menggabungkan satu batch KOT yang di-ack backend ke bucket
// "existing". Hanya line dengan stempel revisi itu yang pindah; sesi edit
// berjalan dan batch lain yang belum di-ack tidak tersentuh, jadi ack yang
// datang di tengah sesi edit tidak menelan line yang belum pernah dikirim.
// Idempotent: ack ganda dari retransmisi menemukan batch kosong dan menjadi
// no-op.
func (o *Order) MergeKotBatch(revision int) bool {
	merged := false
	for i := 0; i < len(o.Lines); i++ {
		if o.Lines[i].Batch != BatchNew || o.Lines[i].KotRevision != revision {
			continue
		}
		nl := o.Lines[i]
		if ex := o.findExisting(nl.MenuID); ex != nil {
			ex.Quantity += nl.Quantity
			ex.UpdatedAt = time.Now()
			o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
			i--
		} else {
			o.Lines[i].Batch = BatchExisting
		}
		merged = true
	}
	if merged && revision > o.KotRevision {
		o.KotRevision = revision
	}
	return merged
}

// ApplyBill membekukan line dan menyimpan snapshot tagihan: kot_sent/placed
// -> billed.
func (o *Order) ApplyBill(b Bill) error {
	if o.Status != StatusPlaced && o.Status != StatusKotSent {
		return ErrInvalidTransition
	}
	o.Subtotal = b.Subtotal
	o.TaxBps = b.TaxBps
	o.TaxAmount = b.TaxAmount
	o.DiscountAmount = b.DiscountAmount
	o.Total = b.Total
	now := time.Now()
	o.BilledAt = &now
	o.Status = StatusBilled
	return nil
}

// Pay: billed -> paid. Terminal untuk lifecycle in-memory aggregate ini.
func (o *Order) Pay(method string, amount Money) error {
	if o.Status != StatusBilled {
		return ErrInvalidTransition
	}
	o.PaymentMethod = method
	o.PaidAmount = amount
	now := time.Now()
	o.PaidAt = &now
	o.Status = StatusPaid
	return nil
}

// Cancel diperbolehkan dari state apa pun sebelum paid.
func (o *Order) Cancel() error {
	if o.Status == StatusPaid || o.Status == StatusCancelled {
		return ErrInvalidTransition
	}
	o.Status = StatusCancelled
	return nil
}
