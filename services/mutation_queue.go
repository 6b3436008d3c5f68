package services

import (
	"encoding/json"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/utils"
)

// MutationQueue adalah antrian durable perintah yang harus sampai ke backend.
// Enqueue menulis ke store lokal sebelum return — mutation tidak pernah
// hilang walau proses mati di tengah edit. Antrian ini satu-satunya resource
// shared-mutable antara jalur UI (producer) dan sync worker (consumer), jadi
// semua akses diserialisasi lewat satu mutex.
//
// Ordering: FIFO ketat hanya per order. Mutation milik order berbeda boleh
// jalan paralel; mutation order yang sama tidak akan dikirim sebelum semua
// mutation lebih awal untuk order itu selesai (acked/discarded).
type MutationQueue struct {
	db       *gorm.DB
	deviceID string
	mu       sync.Mutex
}

func NewMutationQueue(db *gorm.DB, deviceID string) *MutationQueue {
	q := &MutationQueue{db: db, deviceID: deviceID}
	q.recover()
	return q
}

// recover mengembalikan mutation yang tertinggal in_flight dari proses
// sebelumnya (crash di tengah submit) ke pending. Idempotency key menjamin
// resubmit aman.
func (q *MutationQueue) recover() {
	res := q.db.Model(&models.Mutation{}).
		Where("state = ?", models.SyncInFlight).
		Update("state", models.SyncPending)
	if res.Error != nil {
		utils.ErrorLogger.Printf("Error recovering in-flight mutations: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		utils.InfoLogger.Printf("Recovered %d in-flight mutations to pending", res.RowsAffected)
	}
}

// Enqueue menulis satu mutation secara durable dan mengembalikan record
// dengan sequence number final.
func (q *MutationQueue) Enqueue(orderRef int64, kind models.MutationKind, payload interface{}) (*models.Mutation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	m := &models.Mutation{
		DeviceID: q.deviceID,
		OrderRef: orderRef,
		Kind:     kind,
		Payload:  string(data),
		State:    models.SyncPending,
	}
	if err := q.db.Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// QueuedMutation adalah satu item untuk EnqueueAll.
type QueuedMutation struct {
	Kind    models.MutationKind
	Payload interface{}
}

// EnqueueAll menulis beberapa mutation untuk satu order dalam satu transaksi:
// semua tertulis atau tidak sama sekali. Dipakai operasi yang menghasilkan
// lebih dari satu perintah (update order lalu KOT delta) — enqueue parsial
// yang di-retry akan menduplikasi perintah pertama dengan idempotency key
// baru, dan backend menerapkannya dua kali.
func (q *MutationQueue) EnqueueAll(orderRef int64, items ...QueuedMutation) ([]models.Mutation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.Mutation, 0, len(items))
	err := q.db.Transaction(func(tx *gorm.DB) error {
		for _, it := range items {
			data, err := json.Marshal(it.Payload)
			if err != nil {
				return err
			}
			m := models.Mutation{
				DeviceID: q.deviceID,
				OrderRef: orderRef,
				Kind:     it.Kind,
				Payload:  string(data),
				State:    models.SyncPending,
			}
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PeekBatch memilih mutation yang eligible untuk dikirim, maksimal maxN.
// Hanya mutation paling awal per order yang dipertimbangkan; head yang masih
// in_flight, rejected (menunggu operator), atau dalam masa backoff memblokir
// seluruh order itu tanpa menghalangi order lain.
func (q *MutationQueue) PeekBatch(maxN int) ([]models.Mutation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var all []models.Mutation
	err := q.db.
		Where("state IN ?", []models.SyncState{models.SyncPending, models.SyncInFlight, models.SyncRejectedState}).
		Order("sequence_no asc").
		Find(&all).Error
	if err != nil {
		return nil, err
	}

	now := time.Now()
	seen := make(map[int64]bool)
	var batch []models.Mutation
	for _, m := range all {
		if seen[m.OrderRef] {
			continue
		}
		seen[m.OrderRef] = true
		if m.State != models.SyncPending {
			continue
		}
		if m.NextAttemptAt != nil && m.NextAttemptAt.After(now) {
			continue
		}
		batch = append(batch, m)
		if len(batch) >= maxN {
			break
		}
	}
	return batch, nil
}

// MarkInFlight menandai mutation sedang disubmit. Gagal kalau state sudah
// berubah (hanya pending yang boleh terbang).
func (q *MutationQueue) MarkInFlight(sequenceNo int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	res := q.db.Model(&models.Mutation{}).
		Where("sequence_no = ? AND state = ?", sequenceNo, models.SyncPending).
		Update("state", models.SyncInFlight)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkAcknowledged menandai mutation selesai. Acknowledgment mutation N untuk
// satu order berarti semua mutation < N order itu sudah ack duluan (dijamin
// PeekBatch).
func (q *MutationQueue) MarkAcknowledged(sequenceNo int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.db.Model(&models.Mutation{}).
		Where("sequence_no = ?", sequenceNo).
		Updates(map[string]interface{}{
			"state":           models.SyncAcked,
			"next_attempt_at": nil,
			"last_error":      "",
		}).Error
}

// MarkFailed mencatat kegagalan submit. Retryable kembali ke pending dengan
// jadwal backoff; fatal masuk rejected dan menunggu aksi operator.
func (q *MutationQueue) MarkFailed(sequenceNo int64, retryable bool, reason string, nextAttempt *time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	updates := map[string]interface{}{
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": reason,
	}
	if retryable {
		updates["state"] = models.SyncPending
		updates["next_attempt_at"] = nextAttempt
	} else {
		updates["state"] = models.SyncRejectedState
		updates["next_attempt_at"] = nil
	}
	return q.db.Model(&models.Mutation{}).
		Where("sequence_no = ?", sequenceNo).
		Updates(updates).Error
}

// RetryRejected mengembalikan mutation rejected ke pending (aksi operator
// "retry-with-correction").
func (q *MutationQueue) RetryRejected(sequenceNo int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	res := q.db.Model(&models.Mutation{}).
		Where("sequence_no = ? AND state = ?", sequenceNo, models.SyncRejectedState).
		Updates(map[string]interface{}{
			"state":           models.SyncPending,
			"next_attempt_at": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Discard membuang mutation rejected (aksi operator "discard"). Mutation
// berikutnya untuk order yang sama jadi eligible lagi.
func (q *MutationQueue) Discard(sequenceNo int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	res := q.db.Model(&models.Mutation{}).
		Where("sequence_no = ? AND state = ?", sequenceNo, models.SyncRejectedState).
		Update("state", models.SyncDiscarded)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RemapOrder mengganti referensi order lokal ke id backend untuk semua
// mutation yang belum terminal. Payload tidak menyimpan id (hanya kolom
// order_ref), jadi remap cukup satu UPDATE.
func (q *MutationQueue) RemapOrder(localID, remoteID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.db.Model(&models.Mutation{}).
		Where("order_ref = ? AND state NOT IN ?", localID,
			[]models.SyncState{models.SyncAcked, models.SyncDiscarded}).
		Update("order_ref", remoteID).Error
}

// HasMutations -> true kalau order ini pernah enqueue mutation apa pun
// (berarti backend mungkin sudah tahu order tersebut).
func (q *MutationQueue) HasMutations(orderRef int64) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var count int64
	err := q.db.Model(&models.Mutation{}).
		Where("order_ref = ?", orderRef).
		Count(&count).Error
	return count > 0, err
}

// Get mengambil satu mutation berdasarkan sequence number.
func (q *MutationQueue) Get(sequenceNo int64) (*models.Mutation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var m models.Mutation
	if err := q.db.First(&m, "sequence_no = ?", sequenceNo).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// List mengembalikan mutation dalam state tertentu (semua kalau kosong),
// urut sequence number.
func (q *MutationQueue) List(states ...models.SyncState) ([]models.Mutation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	tx := q.db.Order("sequence_no asc")
	if len(states) > 0 {
		tx = tx.Where("state IN ?", states)
	}
	var out []models.Mutation
	err := tx.Find(&out).Error
	return out, err
}

// QueueCounts untuk status bar terminal.
type QueueCounts struct {
	Pending  int64 `json:"pending"`
	InFlight int64 `json:"in_flight"`
	Rejected int64 `json:"rejected"`
}

func (q *MutationQueue) Counts() (QueueCounts, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var c QueueCounts
	type row struct {
		State models.SyncState
		N     int64
	}
	var rows []row
	err := q.db.Model(&models.Mutation{}).
		Select("state, count(*) as n").
		Where("state IN ?", []models.SyncState{models.SyncPending, models.SyncInFlight, models.SyncRejectedState}).
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return c, err
	}
	for _, r := range rows {
		switch r.State {
		case models.SyncPending:
			c.Pending = r.N
		case models.SyncInFlight:
			c.InFlight = r.N
		case models.SyncRejectedState:
			c.Rejected = r.N
		}
	}
	return c, nil
}
