package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeremiapane/pos-terminal/config"
	"github.com/yeremiapane/pos-terminal/events"
	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/pricing"
	"github.com/yeremiapane/pos-terminal/utils"
)

// OrderService memegang semua aggregate order aktif di memori, mem-persist
// snapshot-nya ke store lokal, dan menerjemahkan aksi user menjadi mutation
// di antrian sync. Satu terminal = satu writer per order; akses aggregate
// diserialisasi lewat mutex service.
type OrderService struct {
	db    *gorm.DB
	queue *MutationQueue
	hub   *events.Hub
	cfg   *config.Config

	mu          sync.Mutex
	active      map[int64]*models.Order
	nextLocalID int64
}

func NewOrderService(db *gorm.DB, queue *MutationQueue, hub *events.Hub, cfg *config.Config) (*OrderService, error) {
	s := &OrderService{
		db:          db,
		queue:       queue,
		hub:         hub,
		cfg:         cfg,
		active:      make(map[int64]*models.Order),
		nextLocalID: -1,
	}

	// Muat kembali order aktif dari store (tahan restart).
	var orders []models.Order
	err := db.Preload("Lines").
		Where("status NOT IN ?", []models.OrderStatus{models.StatusPaid, models.StatusCancelled}).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	for i := range orders {
		o := orders[i]
		s.active[o.ID] = &o
	}

	// Id lokal berikutnya: lanjutkan dari id negatif terkecil yang pernah
	// dipakai supaya tidak tabrakan dengan mutation lama.
	var minID *int64
	if err := db.Model(&models.Order{}).Select("MIN(id)").Scan(&minID).Error; err == nil && minID != nil && *minID < 0 {
		s.nextLocalID = *minID - 1
	}
	return s, nil
}

// CreateOrder membuat order draft baru dengan id lokal negatif. Channel dan
// (untuk dine-in) meja melekat pada order seumur hidupnya.
func (s *OrderService) CreateOrder(channel models.OrderChannel, tableID *uint, isAc bool) (*models.Order, error) {
	if !channel.Valid() {
		return nil, models.ErrChannelMismatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if channel == models.ChannelDineIn && tableID != nil {
		var table models.Table
		if err := s.db.First(&table, *tableID).Error; err == nil {
			isAc = table.IsAc
		}
	}
	if channel != models.ChannelDineIn {
		tableID = nil
		isAc = false
	}

	o := &models.Order{
		ID:        s.nextLocalID,
		Channel:   channel,
		TableID:   tableID,
		IsAc:      isAc,
		Status:    models.StatusDraft,
		OrderedAt: time.Now(),
	}
	s.nextLocalID--

	if err := s.persist(o); err != nil {
		return nil, err
	}
	s.active[o.ID] = o
	s.hub.BroadcastOrderUpdate(o)
	return s.snapshot(o), nil
}

// SetLine menyetel quantity satu menu di order (0 menghapus line).
func (s *OrderService) SetLine(orderID int64, menuID uint, quantity int, notes string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.get(orderID)
	if err != nil {
		return nil, err
	}
	var menu models.Menu
	if err := s.db.First(&menu, menuID).Error; err != nil {
		return nil, models.ErrMenuNotFound
	}

	rate := pricing.ResolveRate(menu, o.Channel, o.IsAc)
	if err := o.SetLine(menu, quantity, rate, notes); err != nil {
		return nil, err
	}
	if err := s.persist(o); err != nil {
		return nil, err
	}
	s.hub.BroadcastOrderUpdate(o)
	return s.snapshot(o), nil
}

// RemoveLine menghapus line menu dari bucket "new".
func (s *OrderService) RemoveLine(orderID int64, menuID uint) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.get(orderID)
	if err != nil {
		return nil, err
	}
	if err := o.RemoveLine(menuID); err != nil {
		return nil, err
	}
	if err := s.persist(o); err != nil {
		return nil, err
	}
	s.hub.BroadcastOrderUpdate(o)
	return s.snapshot(o), nil
}

// Place: draft -> placed, enqueue CreateOrder. Validasi lokal (order kosong
// dsb.) sinkron; kegagalan remote datang belakangan lewat sync engine.
func (s *OrderService) Place(orderID int64) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.get(orderID)
	if err != nil {
		return nil, err
	}
	if err := o.Place(); err != nil {
		return nil, err
	}

	payload := models.CreateOrderPayload{
		Channel:   o.Channel,
		TableID:   o.TableID,
		IsAc:      o.IsAc,
		Lines:     mutationLines(o.NewLines()),
		OrderedAt: o.OrderedAt,
	}
	if _, err := s.queue.Enqueue(o.ID, models.MutationCreateOrder, payload); err != nil {
		o.RevertPlace()
		return nil, err
	}
	if err := s.persist(o); err != nil {
		return nil, err
	}
	s.hub.BroadcastOrderUpdate(o)
	return s.snapshot(o), nil
}

// SendKot mengirim batch pertama ke dapur: placed -> kot_sent. Merge bucket
// terjadi nanti saat ack.
func (s *OrderService) SendKot(orderID int64) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.get(orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != models.StatusPlaced {
		return nil, models.ErrInvalidTransition
	}
	revision, err := o.MarkKotPending()
	if err != nil {
		return nil, err
	}

	payload := models.SendKotPayload{Revision: revision, Lines: mutationLines(o.BatchLines(revision))}
	if _, err := s.queue.Enqueue(o.ID, models.MutationSendKot, payload); err != nil {
		o.RevertKotPending(revision)
		o.Status = models.StatusPlaced
		return nil, err
	}
	if err := s.persist(o); err != nil {
		return nil, err
	}
	s.hub.BroadcastOrderUpdate(o)
	return s.snapshot(o), nil
}

// Reopen membuka order placed/kot_sent untuk item tambahan. Line lama jadi
// read-only; dapur nanti hanya menerima delta.
func (s *OrderService) Reopen(orderID int64) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.get(orderID)
	if err != nil {
		return nil, err
	}
	if err := o.Reopen(); err != nil {
		return nil, err
	}
	if err := s.persist(o); err != nil {
		return nil, err
	}
	s.hub.BroadcastOrderUpdate(o)
	return s.snapshot(o), nil
}

// ConfirmUpdate menutup sesi edit: enqueue UpdateOrder (delta line) lalu
// SendKOT, editing -> kot_sent. Per-order ordering menjamin backend menerima
// update sebelum KOT.
func (s *OrderService) ConfirmUpdate(orderID int64) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.get(orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != models.StatusEditing {
		return nil, models.ErrInvalidTransition
	}
	revision, err := o.MarkKotPending()
	if err != nil {
		return nil, err
	}

	// Delta sesi ini saja: batch yang distempel barusan. Batch sebelumnya
	// yang belum di-ack sudah terkunci dan tidak ikut terkirim ulang.
	delta := mutationLines(o.BatchLines(revision))
	_, err = s.queue.EnqueueAll(o.ID,
		QueuedMutation{Kind: models.MutationUpdateOrder, Payload: models.UpdateOrderPayload{Lines: delta}},
		QueuedMutation{Kind: models.MutationSendKot, Payload: models.SendKotPayload{Revision: revision, Lines: delta}},
	)
	if err != nil {
		o.RevertKotPending(revision)
		o.Status = models.StatusEditing
		return nil, err
	}
	if err := s.persist(o); err != nil {
		return nil, err
	}
	s.hub.BroadcastOrderUpdate(o)
	return s.snapshot(o), nil
}

// BillOrder membekukan order dan menghitung tagihan final. Diskon di atas
// ambang konfigurasi butuh PIN manajer.
func (s *OrderService) BillOrder(orderID int64, discount models.Discount, managerPIN string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.get(orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != models.StatusPlaced && o.Status != models.StatusKotSent {
		return nil, models.ErrInvalidTransition
	}

	bill := pricing.Compute(o.Lines, o.Channel, o.IsAc, s.menuLookup(), s.cfg.TaxBps, discount, s.cfg.RoundingMode)

	if s.discountNeedsApproval(bill.Subtotal, discount) {
		if managerPIN == "" {
			return nil, models.ErrPinRequired
		}
		if !utils.CheckManagerPIN(managerPIN, s.cfg.ManagerPINHash) {
			return nil, models.ErrPinInvalid
		}
	}

	if err := o.ApplyBill(bill); err != nil {
		return nil, err
	}
	if err := s.persist(o); err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("Order %d billed: subtotal %s, total %s", o.ID,
		utils.FormatCurrencyIDR(o.Subtotal), utils.FormatCurrencyIDR(o.Total))
	s.hub.BroadcastBillGenerated(o, bill)
	return s.snapshot(o), nil
}

func (s *OrderService) discountNeedsApproval(subtotal models.Money, d models.Discount) bool {
	if d.Value <= 0 || s.cfg.DiscountApprovalBps <= 0 {
		return false
	}
	if d.Percentage {
		return d.Value >= s.cfg.DiscountApprovalBps
	}
	if subtotal <= 0 {
		return true
	}
	// Diskon flat dibandingkan terhadap persentase subtotal yang sama.
	threshold := int64(subtotal) * s.cfg.DiscountApprovalBps / 10000
	return d.Value >= threshold
}

// Pay: billed -> paid, enqueue RecordPayment. Order keluar dari set aktif
// saat payment di-ack backend.
func (s *OrderService) Pay(orderID int64, method string, cashReceived models.Money) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.get(orderID)
	if err != nil {
		return nil, err
	}

	amount := o.Total
	var change models.Money
	if method == "cash" && cashReceived > amount {
		change = cashReceived - amount
	}
	if err := o.Pay(method, amount); err != nil {
		return nil, err
	}

	payload := models.RecordPaymentPayload{
		Method:       method,
		Amount:       amount,
		CashReceived: cashReceived,
		Change:       change,
	}
	if _, err := s.queue.Enqueue(o.ID, models.MutationRecordPayment, payload); err != nil {
		o.Status = models.StatusBilled
		o.PaymentMethod = ""
		o.PaidAmount = 0
		o.PaidAt = nil
		return nil, err
	}
	if err := s.persist(o); err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("Order %d paid %s via %s (change %s)", o.ID,
		utils.FormatCurrencyIDR(amount), method, utils.FormatCurrencyIDR(change))
	s.hub.BroadcastOrderUpdate(o)
	return s.snapshot(o), nil
}

// Cancel membatalkan order (diizinkan sebelum paid). Kalau backend mungkin
// sudah tahu order ini (pernah ada mutation), CancelOrder ikut di-enqueue —
// per-order ordering menjamin backend melihat create-lalu-cancel, tidak
// pernah kebalikannya.
func (s *OrderService) Cancel(orderID int64, reason string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.get(orderID)
	if err != nil {
		return nil, err
	}
	if err := o.Cancel(); err != nil {
		return nil, err
	}

	known, err := s.queue.HasMutations(o.ID)
	if err != nil {
		return nil, err
	}
	if known {
		if _, err := s.queue.Enqueue(o.ID, models.MutationCancelOrder, models.CancelOrderPayload{Reason: reason}); err != nil {
			return nil, err
		}
	}
	if err := s.persist(o); err != nil {
		return nil, err
	}
	if !known {
		// Order draft murni lokal: tidak ada yang perlu disinkronkan lagi.
		delete(s.active, o.ID)
	}
	s.hub.BroadcastOrderUpdate(o)
	return s.snapshot(o), nil
}

// RetryRejected mengembalikan mutation rejected ke antrian dan membersihkan
// flag sync_rejected pada order-nya.
func (s *OrderService) RetryRejected(sequenceNo int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.queue.Get(sequenceNo)
	if err != nil {
		return err
	}
	if err := s.queue.RetryRejected(sequenceNo); err != nil {
		return err
	}
	if o, ok := s.active[m.OrderRef]; ok {
		o.SyncRejected = false
		o.RejectReason = ""
		if m.Kind == models.MutationCreateOrder && o.Status == models.StatusDraft {
			// Create sebelumnya ditolak dan di-revert; place ulang.
			if err := o.Place(); err == nil {
				_ = s.persist(o)
			}
		} else {
			_ = s.persist(o)
		}
		s.hub.BroadcastOrderUpdate(o)
	}
	return nil
}

// DiscardRejected membuang mutation rejected; mutation berikutnya order itu
// eligible lagi.
func (s *OrderService) DiscardRejected(sequenceNo int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.queue.Get(sequenceNo)
	if err != nil {
		return err
	}
	if err := s.queue.Discard(sequenceNo); err != nil {
		return err
	}
	if o, ok := s.active[m.OrderRef]; ok {
		o.SyncRejected = false
		o.RejectReason = ""
		_ = s.persist(o)
		s.hub.BroadcastOrderUpdate(o)
	}
	return nil
}

// GetOrder mengembalikan snapshot satu order (aktif atau history).
func (s *OrderService) GetOrder(orderID int64) (*models.Order, error) {
	s.mu.Lock()
	if o, ok := s.active[orderID]; ok {
		snap := s.snapshot(o)
		s.mu.Unlock()
		return snap, nil
	}
	s.mu.Unlock()

	var o models.Order
	if err := s.db.Preload("Lines").First(&o, "id = ?", orderID).Error; err != nil {
		return nil, models.ErrOrderNotFound
	}
	return &o, nil
}

// ListActive mengembalikan snapshot semua order aktif.
func (s *OrderService) ListActive() []*models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Order, 0, len(s.active))
	for _, o := range s.active {
		out = append(out, s.snapshot(o))
	}
	return out
}

// ListHistory mengembalikan order paid/cancelled dari store.
func (s *OrderService) ListHistory() ([]models.Order, error) {
	var orders []models.Order
	err := s.db.Preload("Lines").
		Where("status IN ?", []models.OrderStatus{models.StatusPaid, models.StatusCancelled}).
		Order("updated_at desc").
		Find(&orders).Error
	return orders, err
}

// ApplyAck dipanggil sync engine setelah backend meng-ack satu mutation.
func (s *OrderService) ApplyAck(m *models.Mutation, ack *OrderAck) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch m.Kind {
	case models.MutationCreateOrder:
		if ack == nil || ack.OrderID <= 0 {
			return fmt.Errorf("create_order ack tanpa order id")
		}
		if err := s.remapOrderID(m.OrderRef, ack.OrderID); err != nil {
			return err
		}
	case models.MutationSendKot:
		o, ok := s.active[m.OrderRef]
		if !ok {
			return nil
		}
		// Merge hanya batch yang di-ack ini; batch lain (termasuk sesi edit
		// yang sedang berjalan) tidak boleh tersentuh.
		var payload models.SendKotPayload
		if err := json.Unmarshal([]byte(m.Payload), &payload); err != nil {
			return err
		}
		if o.MergeKotBatch(payload.Revision) {
			if err := s.persist(o); err != nil {
				return err
			}
			s.hub.BroadcastKotSent(o.ID, payload.Revision)
		}
	case models.MutationRecordPayment, models.MutationCancelOrder:
		// Lifecycle in-memory selesai: order pindah ke history.
		if o, ok := s.active[m.OrderRef]; ok {
			delete(s.active, o.ID)
			s.hub.BroadcastOrderUpdate(o)
		}
	}
	return nil
}

// ApplyRejection dipanggil sync engine untuk penolakan fatal. Order ditandai
// sync_rejected; CreateOrder yang ditolak mengembalikan order ke draft.
func (s *OrderService) ApplyRejection(m *models.Mutation, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.active[m.OrderRef]
	if !ok {
		return
	}
	o.SyncRejected = true
	o.RejectReason = reason
	if m.Kind == models.MutationCreateOrder {
		o.RevertPlace()
	}
	if err := s.persist(o); err != nil {
		utils.ErrorLogger.Printf("Error persisting rejected order %d: %v", o.ID, err)
	}
	s.hub.BroadcastOrderUpdate(o)
}

// remapOrderID mengganti id lokal dengan id backend di store, id map,
// aggregate aktif, dan semua mutation yang belum terminal. Remap ulang dengan
// id sama (ack ganda dari retransmisi) adalah no-op — satu order lokal tidak
// pernah terikat ke dua id backend.
func (s *OrderService) remapOrderID(localID, remoteID int64) error {
	var existing models.OrderIDMap
	err := s.db.First(&existing, "local_id = ?", localID).Error
	if err == nil {
		if existing.RemoteID == remoteID {
			return nil
		}
		return &SyncError{Retryable: false,
			Message: fmt.Sprintf("id remap conflict: local %d already bound to %d, backend returned %d", localID, existing.RemoteID, remoteID)}
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	// Id backend yang sudah dipakai order lokal lain -> fatal, rekonsiliasi
	// manual.
	var clash int64
	s.db.Model(&models.Order{}).Where("id = ?", remoteID).Count(&clash)
	if clash > 0 {
		return &SyncError{Retryable: false,
			Message: fmt.Sprintf("id remap conflict: backend id %d already in use locally", remoteID)}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.OrderIDMap{LocalID: localID, RemoteID: remoteID}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", localID).Update("id", remoteID).Error; err != nil {
			return err
		}
		return tx.Model(&models.OrderLine{}).Where("order_id = ?", localID).Update("order_id", remoteID).Error
	})
	if err != nil {
		return err
	}
	if err := s.queue.RemapOrder(localID, remoteID); err != nil {
		return err
	}
	if o, ok := s.active[localID]; ok {
		delete(s.active, localID)
		o.ID = remoteID
		for i := range o.Lines {
			o.Lines[i].OrderID = remoteID
		}
		o.SyncRejected = false
		o.RejectReason = ""
		s.active[remoteID] = o
		s.hub.BroadcastOrderUpdate(o)
	}
	utils.InfoLogger.Printf("Order %d remapped to backend id %d", localID, remoteID)
	return nil
}

// RemoteID mengembalikan id backend untuk sebuah referensi order. Setelah
// remap, order_ref mutation sudah berupa id backend (positif).
func (s *OrderService) RemoteID(orderRef int64) (int64, bool) {
	if orderRef > 0 {
		return orderRef, true
	}
	var m models.OrderIDMap
	if err := s.db.First(&m, "local_id = ?", orderRef).Error; err != nil {
		return 0, false
	}
	return m.RemoteID, true
}

func (s *OrderService) get(orderID int64) (*models.Order, error) {
	o, ok := s.active[orderID]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	return o, nil
}

func (s *OrderService) menuLookup() pricing.MenuLookup {
	return func(id uint) (models.Menu, bool) {
		var m models.Menu
		if err := s.db.First(&m, id).Error; err != nil {
			return models.Menu{}, false
		}
		return m, true
	}
}

// persist menulis snapshot order + line ke store lokal. Line ditulis ulang
// utuh; identitas line adalah (order, menu, batch, revisi KOT), bukan id
// baris.
func (s *OrderService) persist(o *models.Order) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", o.ID).Delete(&models.OrderLine{}).Error; err != nil {
			return err
		}
		for i := range o.Lines {
			o.Lines[i].ID = 0
			o.Lines[i].OrderID = o.ID
		}
		if len(o.Lines) > 0 {
			if err := tx.Omit(clause.Associations).Create(&o.Lines).Error; err != nil {
				return err
			}
		}
		// Upsert: id lokal negatif sudah terisi sejak awal, jadi Save biasa
		// tidak pernah menjadi INSERT.
		return tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(o).Error
	})
}

// snapshot mengembalikan salinan order untuk dibaca di luar lock.
func (s *OrderService) snapshot(o *models.Order) *models.Order {
	cp := *o
	cp.Lines = append([]models.OrderLine(nil), o.Lines...)
	return &cp
}

func mutationLines(lines []models.OrderLine) []models.MutationLine {
	out := make([]models.MutationLine, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		out = append(out, models.MutationLine{
			MenuID:    l.MenuID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Notes:     l.Notes,
		})
	}
	return out
}
