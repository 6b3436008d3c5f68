package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yeremiapane/pos-terminal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// API lokal terminal; origin dibatasi di CORS middleware
		return true
	},
}

type EventsController struct {
	Hub *events.Hub
}

func NewEventsController(hub *events.Hub) *EventsController {
	return &EventsController{Hub: hub}
}

// Stream -> endpoint WebSocket untuk UI terminal: transisi order/sync/bill
// didorong lewat sini, state lengkap dibaca lewat REST.
func (ec *EventsController) Stream(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	ec.Hub.RegisterClient(ws)

	// Baca pesan sampai client putus
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	ec.Hub.UnregisterClient(ws)
}
