package events

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/utils"
)

// Event types yang disiarkan ke presentation layer
const (
	EventOrderUpdate        = "order_update"
	EventBillGenerated      = "bill_generated"
	EventKotSent            = "kot_sent"
	EventSyncUpdate         = "sync_update"
	EventSyncRejected       = "sync_rejected"
	EventSyncWarning        = "sync_warning"
	EventConnectivityUpdate = "connectivity_update"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub menampung client websocket UI terminal plus subscriber in-process.
// Kontraknya "read current state + subscribe to transitions": state dibaca
// lewat API, transisi didorong lewat sini.
type Hub struct {
	mutex   sync.Mutex
	clients map[*websocket.Conn]struct{}
	subs    []chan Message
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

// RegisterClient -> menambahkan connection websocket ke set
func (h *Hub) RegisterClient(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = struct{}{}
}

// UnregisterClient -> melepaskan connection
func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.clients, conn)
	conn.Close()
}

// Subscribe mengembalikan channel in-process untuk observer lokal (dipakai
// juga oleh test). Channel buffered; subscriber lambat kehilangan event, dia
// bisa membaca ulang state lewat API.
func (h *Hub) Subscribe() <-chan Message {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	ch := make(chan Message, 64)
	h.subs = append(h.subs, ch)
	return ch
}

// BroadcastOrderUpdate -> transisi status / line order
func (h *Hub) BroadcastOrderUpdate(order *models.Order) {
	h.broadcast(Message{Event: EventOrderUpdate, Data: order})
}

// BroadcastBillGenerated -> bill final dihitung
func (h *Hub) BroadcastBillGenerated(order *models.Order, bill models.Bill) {
	h.broadcast(Message{
		Event: EventBillGenerated,
		Data: map[string]interface{}{
			"order": order,
			"bill":  bill,
		},
	})
}

// BroadcastKotSent -> batch line terkirim ke dapur (sudah di-ack)
func (h *Hub) BroadcastKotSent(orderID int64, revision int) {
	h.broadcast(Message{
		Event: EventKotSent,
		Data: map[string]interface{}{
			"order_id": orderID,
			"revision": revision,
		},
	})
}

// BroadcastSyncUpdate -> lifecycle satu mutation berubah
func (h *Hub) BroadcastSyncUpdate(m *models.Mutation) {
	h.broadcast(Message{Event: EventSyncUpdate, Data: m})
}

// BroadcastSyncRejected -> mutation ditolak fatal, butuh aksi operator
func (h *Hub) BroadcastSyncRejected(m *models.Mutation, reason string) {
	h.broadcast(Message{
		Event: EventSyncRejected,
		Data: map[string]interface{}{
			"mutation": m,
			"reason":   reason,
		},
	})
}

// BroadcastSyncWarning -> retry sudah melewati ambang, order tetap usable
func (h *Hub) BroadcastSyncWarning(m *models.Mutation) {
	h.broadcast(Message{Event: EventSyncWarning, Data: m})
}

// BroadcastConnectivity -> transisi online/offline
func (h *Hub) BroadcastConnectivity(online bool) {
	h.broadcast(Message{
		Event: EventConnectivityUpdate,
		Data:  map[string]bool{"online": online},
	})
}

func (h *Hub) broadcast(msg Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, sub := range h.subs {
		select {
		case sub <- msg:
		default:
		}
	}

	if len(h.clients) == 0 {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling event %s: %v", msg.Event, err)
		return
	}
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.Printf("Error sending event to client: %v", err)
		}
	}
}
