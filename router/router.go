package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/pos-terminal/controllers"
	"github.com/yeremiapane/pos-terminal/events"
	"github.com/yeremiapane/pos-terminal/middlewares"
	"github.com/yeremiapane/pos-terminal/services"
)

// Deps adalah semua collaborator yang dibutuhkan API lokal terminal.
type Deps struct {
	Orders   *services.OrderService
	Queue    *services.MutationQueue
	Catalog  *services.CatalogService
	Gate     *services.ManualGate
	Engine   *services.SyncEngine
	Hub      *events.Hub
	DeviceID string
}

// SetupRouter merakit seluruh surface HTTP yang dikonsumsi presentation
// layer. Tidak ada konsep UI di sini: hanya operasi aggregate, antrian sync,
// katalog, dan stream event.
func SetupRouter(d Deps) *gin.Engine {
	r := gin.Default()
	r.Use(middlewares.CORSMiddlewares())

	orderCtrl := controllers.NewOrderController(d.Orders)
	syncCtrl := controllers.NewSyncController(d.Queue, d.Orders, d.Gate, d.Engine)
	catalogCtrl := controllers.NewCatalogController(d.Catalog)
	eventsCtrl := controllers.NewEventsController(d.Hub)
	deviceCtrl := controllers.NewDeviceController(d.DeviceID)

	r.GET("/health", controllers.HealthCheck)
	r.POST("/api/auth/pair", deviceCtrl.Pair)

	api := r.Group("/api")
	api.Use(middlewares.DeviceAuthMiddleware())
	{
		api.GET("/orders", orderCtrl.ListOrders)
		api.POST("/orders", orderCtrl.CreateOrder)
		api.GET("/orders/:order_id", orderCtrl.GetOrderByID)
		api.PUT("/orders/:order_id/lines", orderCtrl.SetLine)
		api.DELETE("/orders/:order_id/lines/:menu_id", orderCtrl.RemoveLine)
		api.POST("/orders/:order_id/place", orderCtrl.PlaceOrder)
		api.POST("/orders/:order_id/kot", orderCtrl.SendKot)
		api.POST("/orders/:order_id/reopen", orderCtrl.ReopenOrder)
		api.POST("/orders/:order_id/confirm-update", orderCtrl.ConfirmUpdate)
		api.POST("/orders/:order_id/bill", orderCtrl.BillOrder)
		api.POST("/orders/:order_id/pay", orderCtrl.PayOrder)
		api.POST("/orders/:order_id/cancel", orderCtrl.CancelOrder)

		api.GET("/menus", catalogCtrl.ListMenus)
		api.POST("/menus/refresh", catalogCtrl.RefreshMenus)

		api.GET("/sync/status", syncCtrl.GetStatus)
		api.GET("/sync/mutations", syncCtrl.ListMutations)
		api.POST("/sync/mutations/:sequence_no/retry", syncCtrl.RetryMutation)
		api.POST("/sync/mutations/:sequence_no/discard", syncCtrl.DiscardMutation)
		api.PUT("/sync/connectivity", syncCtrl.SetConnectivity)

		api.GET("/events", eventsCtrl.Stream)
	}

	return r
}
