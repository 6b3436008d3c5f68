package services

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/yeremiapane/pos-terminal/config"
	"github.com/yeremiapane/pos-terminal/events"
	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/utils"
)

// SyncEngine adalah worker background tunggal yang menguras MutationQueue ke
// backend selama konektivitas tersedia. Transisi offline->online langsung
// membangunkan worker; selain itu ada tick poll untuk jadwal backoff.
type SyncEngine struct {
	queue  *MutationQueue
	orders *OrderService
	remote *RemoteClient
	gate   ConnectivityGate
	hub    *events.Hub
	cfg    *config.Config

	stopCh chan struct{}
	doneCh chan struct{}

	mu          sync.Mutex
	lastDrainAt time.Time
}

func NewSyncEngine(queue *MutationQueue, orders *OrderService, remote *RemoteClient,
	gate ConnectivityGate, hub *events.Hub, cfg *config.Config) *SyncEngine {
	return &SyncEngine{
		queue:  queue,
		orders: orders,
		remote: remote,
		gate:   gate,
		hub:    hub,
		cfg:    cfg,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start menjalankan worker goroutine.
func (se *SyncEngine) Start() {
	go se.run()
	utils.InfoLogger.Println("Sync engine started")
}

// Stop menghentikan worker. Submission yang sedang terbang dibiarkan selesai
// dan hasilnya tetap diproses; hanya pengambilan batch berikutnya yang
// dihentikan — stop tidak pernah menghilangkan atau menduplikasi mutation.
func (se *SyncEngine) Stop() {
	close(se.stopCh)
	<-se.doneCh
	utils.InfoLogger.Println("Sync engine stopped")
}

func (se *SyncEngine) run() {
	defer close(se.doneCh)

	transitions := se.gate.Subscribe()
	ticker := time.NewTicker(se.cfg.SyncPollInterval)
	defer ticker.Stop()

	if se.gate.Online() {
		se.drain()
	}
	for {
		select {
		case <-se.stopCh:
			return
		case online := <-transitions:
			se.hub.BroadcastConnectivity(online)
			if online {
				se.drain()
			}
		case <-ticker.C:
			if se.gate.Online() {
				se.drain()
			}
		}
	}
}

// LastDrainAt -> kapan terakhir kali worker menyelesaikan satu putaran drain
// (nol kalau belum pernah). Dipakai status bar terminal.
func (se *SyncEngine) LastDrainAt() time.Time {
	se.mu.Lock()
	defer se.mu.Unlock()
	return se.lastDrainAt
}

// drain mengirim batch demi batch sampai antrian tidak punya mutation
// eligible lagi, atau stop diminta, atau koneksi hilang.
func (se *SyncEngine) drain() {
	defer func() {
		se.mu.Lock()
		se.lastDrainAt = time.Now()
		se.mu.Unlock()
	}()
	for {
		select {
		case <-se.stopCh:
			return
		default:
		}
		if !se.gate.Online() {
			return
		}

		batch, err := se.queue.PeekBatch(se.cfg.SyncBatchSize)
		if err != nil {
			utils.ErrorLogger.Printf("Error peeking mutation batch: %v", err)
			return
		}
		if len(batch) == 0 {
			return
		}

		progressed := false
		for i := range batch {
			if se.deliver(&batch[i]) {
				progressed = true
			}
		}
		// Tidak ada yang maju (semua gagal retryable) -> berhenti, tunggu
		// jadwal backoff lewat tick berikutnya.
		if !progressed {
			return
		}
	}
}

// deliver mengirim satu mutation. Return true kalau mutation mencapai state
// terminal-progress (acked atau rejected) — kegagalan retryable return false.
func (se *SyncEngine) deliver(m *models.Mutation) bool {
	if err := se.queue.MarkInFlight(m.SequenceNo); err != nil {
		// State keburu berubah (mis. operator discard); lewati.
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), se.cfg.SyncSubmitTimeout)
	defer cancel()

	ack, err := se.submit(ctx, m)
	if err == nil {
		if applyErr := se.orders.ApplyAck(m, ack); applyErr != nil {
			// Ack berhasil tapi penerapannya konflik (mis. id remap bentrok):
			// perlakukan sebagai fatal.
			err = applyErr
		}
	}

	if err == nil {
		if qErr := se.queue.MarkAcknowledged(m.SequenceNo); qErr != nil {
			utils.ErrorLogger.Printf("Error acknowledging mutation %d: %v", m.SequenceNo, qErr)
		}
		m.State = models.SyncAcked
		se.hub.BroadcastSyncUpdate(m)
		utils.InfoLogger.Printf("Mutation %d (%s, order %d) acknowledged", m.SequenceNo, m.Kind, m.OrderRef)
		return true
	}

	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		syncErr = &SyncError{Retryable: false, Message: err.Error()}
	}

	if syncErr.Retryable {
		attempts := m.Attempts + 1
		next := time.Now().Add(se.backoff(attempts))
		if qErr := se.queue.MarkFailed(m.SequenceNo, true, syncErr.Message, &next); qErr != nil {
			utils.ErrorLogger.Printf("Error marking mutation %d failed: %v", m.SequenceNo, qErr)
		}
		m.State = models.SyncPending
		m.Attempts = attempts
		if attempts == se.cfg.SyncWarnAttempts {
			// Retry melewati ambang: order tetap usable, UI menampilkan
			// warning "pending sync".
			se.hub.BroadcastSyncWarning(m)
		}
		utils.InfoLogger.Printf("Mutation %d retry %d scheduled: %s", m.SequenceNo, attempts, syncErr.Message)
		return false
	}

	if qErr := se.queue.MarkFailed(m.SequenceNo, false, syncErr.Message, nil); qErr != nil {
		utils.ErrorLogger.Printf("Error rejecting mutation %d: %v", m.SequenceNo, qErr)
	}
	m.State = models.SyncRejectedState
	se.orders.ApplyRejection(m, syncErr.Message)
	se.hub.BroadcastSyncRejected(m, syncErr.Message)
	utils.ErrorLogger.Printf("Mutation %d (%s, order %d) rejected: %s", m.SequenceNo, m.Kind, m.OrderRef, syncErr.Message)
	// Rejected adalah progress: order ini berhenti menunggu aksi operator,
	// order lain tetap jalan.
	return true
}

func (se *SyncEngine) submit(ctx context.Context, m *models.Mutation) (*OrderAck, error) {
	key := m.IdempotencyKey()
	switch m.Kind {
	case models.MutationCreateOrder:
		var payload models.CreateOrderPayload
		if err := json.Unmarshal([]byte(m.Payload), &payload); err != nil {
			return nil, &SyncError{Retryable: false, Message: "corrupt payload: " + err.Error()}
		}
		return se.remote.SubmitOrder(ctx, payload, key)
	case models.MutationUpdateOrder:
		var payload models.UpdateOrderPayload
		if err := json.Unmarshal([]byte(m.Payload), &payload); err != nil {
			return nil, &SyncError{Retryable: false, Message: "corrupt payload: " + err.Error()}
		}
		return nil, se.remote.SubmitOrderUpdate(ctx, m.OrderRef, payload, key)
	case models.MutationSendKot:
		var payload models.SendKotPayload
		if err := json.Unmarshal([]byte(m.Payload), &payload); err != nil {
			return nil, &SyncError{Retryable: false, Message: "corrupt payload: " + err.Error()}
		}
		return nil, se.remote.SubmitKot(ctx, m.OrderRef, payload, key)
	case models.MutationRecordPayment:
		var payload models.RecordPaymentPayload
		if err := json.Unmarshal([]byte(m.Payload), &payload); err != nil {
			return nil, &SyncError{Retryable: false, Message: "corrupt payload: " + err.Error()}
		}
		return nil, se.remote.SubmitPayment(ctx, m.OrderRef, payload, key)
	case models.MutationCancelOrder:
		var payload models.CancelOrderPayload
		if err := json.Unmarshal([]byte(m.Payload), &payload); err != nil {
			return nil, &SyncError{Retryable: false, Message: "corrupt payload: " + err.Error()}
		}
		return nil, se.remote.SubmitCancel(ctx, m.OrderRef, payload, key)
	}
	return nil, &SyncError{Retryable: false, Message: "unknown mutation kind " + string(m.Kind)}
}

// backoff eksponensial dengan full jitter: base * 2^(attempts-1), dibatasi
// cap, lalu diundi uniform [0, d].
func (se *SyncEngine) backoff(attempts int) time.Duration {
	d := se.cfg.SyncBackoffBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= se.cfg.SyncBackoffCap {
			d = se.cfg.SyncBackoffCap
			break
		}
	}
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}
