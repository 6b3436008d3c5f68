package Controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeremiapane/pos-terminal/config"
	"github.com/yeremiapane/pos-terminal/controllers"
	"github.com/yeremiapane/pos-terminal/events"
	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/pricing"
	"github.com/yeremiapane/pos-terminal/services"
	"github.com/yeremiapane/pos-terminal/utils"
)

func setupTestDBForOrders(name string) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}
	// Migrasi model yang dibutuhkan
	err = db.AutoMigrate(
		&models.MenuCategory{},
		&models.Menu{},
		&models.Table{},
		&models.Order{},
		&models.OrderLine{},
		&models.Mutation{},
		&models.OrderIDMap{},
	)
	if err != nil {
		panic(err)
	}
	// Seed data: kategori, dua menu (satu unavailable), satu meja.
	db.Create(&models.MenuCategory{Name: "Makanan"})
	db.Create(&models.Menu{CategoryID: 1, Name: "Nasi Goreng", Rate: 12000, IsAvailable: true})
	db.Create(&models.Menu{CategoryID: 1, Name: "Es Teh", Rate: 3000, IsAvailable: false})
	db.Create(&models.Table{TableNumber: "A1", Status: "available"})
	return db
}

func setupOrderRouter(db *gorm.DB) (*gin.Engine, *services.MutationQueue) {
	gin.SetMode(gin.TestMode)

	pinHash, err := utils.HashManagerPIN("1234")
	if err != nil {
		panic(err)
	}
	cfg := &config.Config{
		DeviceID:            "device-test",
		TaxBps:              500,
		RoundingMode:        pricing.RoundHalfUp,
		DiscountApprovalBps: 2000,
		ManagerPINHash:      pinHash,
		SyncPollInterval:    time.Second,
		SyncSubmitTimeout:   time.Second,
		SyncBackoffBase:     time.Second,
		SyncBackoffCap:      time.Second,
		SyncBatchSize:       16,
		SyncWarnAttempts:    5,
	}

	hub := events.NewHub()
	gate := services.NewManualGate(false)
	queue := services.NewMutationQueue(db, cfg.DeviceID)
	orders, err := services.NewOrderService(db, queue, hub, cfg)
	if err != nil {
		panic(err)
	}

	router := gin.Default()
	orderCtrl := controllers.NewOrderController(orders)
	syncCtrl := controllers.NewSyncController(queue, orders, gate, nil)
	router.POST("/orders", orderCtrl.CreateOrder)
	router.GET("/orders", orderCtrl.ListOrders)
	router.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	router.PUT("/orders/:order_id/lines", orderCtrl.SetLine)
	router.POST("/orders/:order_id/place", orderCtrl.PlaceOrder)
	router.POST("/orders/:order_id/kot", orderCtrl.SendKot)
	router.POST("/orders/:order_id/bill", orderCtrl.BillOrder)
	router.POST("/orders/:order_id/pay", orderCtrl.PayOrder)
	router.POST("/orders/:order_id/cancel", orderCtrl.CancelOrder)
	router.GET("/sync/status", syncCtrl.GetStatus)
	return router, queue
}

func doJSON(t *testing.T, router *gin.Engine, method, url string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		assert.NoError(t, err)
		body = bytes.NewBuffer(payloadBytes)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, url, body)
	assert.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func parseData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err)
	data, ok := resp["data"].(map[string]interface{})
	assert.True(t, ok, "response data: %s", w.Body.String())
	return data
}

// Flow kasir lengkap lewat HTTP: create draft -> tambah line -> place ->
// KOT -> bill -> pay. Sepanjang flow terminal offline; semua operasi tetap
// sinkron karena hanya menulis lokal.
func TestOrderLifecycleOverHTTP(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForOrders("ctrl_lifecycle")
	router, _ := setupOrderRouter(db)

	w := doJSON(t, router, "POST", "/orders", map[string]interface{}{
		"channel":  "dine_in",
		"table_id": 1,
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	data := parseData(t, w)
	orderID := int64(data["id"].(float64))
	assert.Equal(t, int64(-1), orderID)
	assert.Equal(t, "draft", data["status"])

	base := fmt.Sprintf("/orders/%d", orderID)

	w = doJSON(t, router, "PUT", base+"/lines", map[string]interface{}{
		"menu_id":  1,
		"quantity": 2,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "POST", base+"/place", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "placed", parseData(t, w)["status"])

	w = doJSON(t, router, "POST", base+"/kot", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "kot_sent", parseData(t, w)["status"])

	// Bill tanpa diskon: 2 x 120.00 + PPN 5% = 252.00
	w = doJSON(t, router, "POST", base+"/bill", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data = parseData(t, w)
	assert.Equal(t, "billed", data["status"])
	assert.Equal(t, 240.0, data["subtotal"])
	assert.Equal(t, 12.0, data["tax_amount"])
	assert.Equal(t, 252.0, data["total"])

	// Setelah billed, order terkunci untuk edit line.
	w = doJSON(t, router, "PUT", base+"/lines", map[string]interface{}{
		"menu_id":  1,
		"quantity": 3,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, router, "POST", base+"/pay", map[string]interface{}{
		"method":        "cash",
		"cash_received": 300,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	data = parseData(t, w)
	assert.Equal(t, "paid", data["status"])
	assert.Equal(t, 252.0, data["paid_amount"])
}

func TestSetLineUnavailableMenu(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForOrders("ctrl_unavailable")
	router, _ := setupOrderRouter(db)

	w := doJSON(t, router, "POST", "/orders", map[string]interface{}{"channel": "takeaway"})
	assert.Equal(t, http.StatusCreated, w.Code)
	orderID := int64(parseData(t, w)["id"].(float64))

	w = doJSON(t, router, "PUT", fmt.Sprintf("/orders/%d/lines", orderID), map[string]interface{}{
		"menu_id":  2,
		"quantity": 1,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPlaceEmptyOrderRejected(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForOrders("ctrl_empty")
	router, _ := setupOrderRouter(db)

	w := doJSON(t, router, "POST", "/orders", map[string]interface{}{"channel": "takeaway"})
	orderID := int64(parseData(t, w)["id"].(float64))

	w = doJSON(t, router, "POST", fmt.Sprintf("/orders/%d/place", orderID), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

// Diskon di atas ambang (20%) wajib PIN manajer yang benar.
func TestBillDiscountRequiresManagerPin(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForOrders("ctrl_discount")
	router, _ := setupOrderRouter(db)

	w := doJSON(t, router, "POST", "/orders", map[string]interface{}{"channel": "takeaway"})
	orderID := int64(parseData(t, w)["id"].(float64))
	base := fmt.Sprintf("/orders/%d", orderID)

	doJSON(t, router, "PUT", base+"/lines", map[string]interface{}{"menu_id": 1, "quantity": 2})
	doJSON(t, router, "POST", base+"/place", nil)

	discount := map[string]interface{}{"percentage": true, "value": 2500}

	w = doJSON(t, router, "POST", base+"/bill", map[string]interface{}{"discount": discount})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, "POST", base+"/bill", map[string]interface{}{
		"discount":    discount,
		"manager_pin": "9999",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// PIN benar: 240.00 - 25% = 180.00, PPN 5% dari subtotal = 12.00
	w = doJSON(t, router, "POST", base+"/bill", map[string]interface{}{
		"discount":    discount,
		"manager_pin": "1234",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	data := parseData(t, w)
	assert.Equal(t, 60.0, data["discount_amount"])
	assert.Equal(t, 192.0, data["total"])
}

func TestCancelDraftOrder(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForOrders("ctrl_cancel")
	router, queue := setupOrderRouter(db)

	w := doJSON(t, router, "POST", "/orders", map[string]interface{}{"channel": "dine_in", "table_id": 1})
	orderID := int64(parseData(t, w)["id"].(float64))

	w = doJSON(t, router, "POST", fmt.Sprintf("/orders/%d/cancel", orderID), map[string]interface{}{
		"reason": "customer walked out",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", parseData(t, w)["status"])

	// Draft murni lokal: backend tidak pernah tahu, tidak ada mutation cancel.
	has, err := queue.HasMutations(orderID)
	assert.NoError(t, err)
	assert.False(t, has)
}

func TestSyncStatusWhileOffline(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForOrders("ctrl_status")
	router, _ := setupOrderRouter(db)

	w := doJSON(t, router, "POST", "/orders", map[string]interface{}{"channel": "takeaway"})
	orderID := int64(parseData(t, w)["id"].(float64))
	base := fmt.Sprintf("/orders/%d", orderID)
	doJSON(t, router, "PUT", base+"/lines", map[string]interface{}{"menu_id": 1, "quantity": 1})
	doJSON(t, router, "POST", base+"/place", nil)

	w = doJSON(t, router, "GET", "/sync/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := parseData(t, w)
	assert.Equal(t, false, data["online"])
	queueData := data["queue"].(map[string]interface{})
	assert.Equal(t, 1.0, queueData["pending"])
}
