package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeremiapane/pos-terminal/config"
	"github.com/yeremiapane/pos-terminal/database"
	"github.com/yeremiapane/pos-terminal/events"
	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/pricing"
	"github.com/yeremiapane/pos-terminal/router"
	"github.com/yeremiapane/pos-terminal/services"
	"github.com/yeremiapane/pos-terminal/utils"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	os.Exit(m.Run())
}

// TestEndToEndIntegration menguji flow utama terminal:
// 0. Pair device -> token untuk API lokal
// 1. Create order draft saat offline, tambah line, place, KOT
// 2. Konektivitas pulih -> antrian terkuras, id lokal di-remap ke id backend
// 3. Bill + pay di id backend
// 4. Payment di-ack -> order pindah ke history
func TestEndToEndIntegration(t *testing.T) {
	backend := startFakeBackend()
	defer backend.Close()

	db := setupTestDB()
	cfg := testConfig(backend.URL)

	hub := events.NewHub()
	gate := services.NewManualGate(false)
	queue := services.NewMutationQueue(db, cfg.DeviceID)
	orders, err := services.NewOrderService(db, queue, hub, cfg)
	if err != nil {
		t.Fatalf("failed to build order service: %v", err)
	}
	remote := services.NewRemoteClient(cfg.RemoteBaseURL, cfg.DeviceID, cfg.SyncSubmitTimeout)
	engine := services.NewSyncEngine(queue, orders, remote, gate, hub, cfg)
	engine.Start()
	defer engine.Stop()

	catalog := services.NewCatalogService(db, remote)

	gin.SetMode(gin.TestMode)
	r := router.SetupRouter(router.Deps{
		Orders:   orders,
		Queue:    queue,
		Catalog:  catalog,
		Gate:     gate,
		Engine:   engine,
		Hub:      hub,
		DeviceID: cfg.DeviceID,
	})

	token := pairDeviceTest(t, r)

	// 1. Lifecycle offline
	orderID := createOrderTest(t, r, token)
	setLineTest(t, r, token, orderID, 1, 2)
	postOrderOp(t, r, token, orderID, "place", nil, http.StatusOK)
	postOrderOp(t, r, token, orderID, "kot", nil, http.StatusOK)

	// 2. Konektivitas pulih lewat API lokal (probe platform memakai endpoint
	// yang sama)
	setConnectivityTest(t, r, token, true)
	remoteID := waitForRemoteID(t, r, token)

	// 3. Bill + pay memakai id backend
	billResp := postOrderOp(t, r, token, remoteID, "bill", nil, http.StatusOK)
	if billResp["total"].(float64) != 252.0 {
		t.Fatalf("unexpected total: %v", billResp["total"])
	}
	postOrderOp(t, r, token, remoteID, "pay", map[string]interface{}{
		"method":        "cash",
		"cash_received": 300,
	}, http.StatusOK)

	// 4. Payment ack -> history
	waitForHistory(t, r, token, remoteID)
}

// setupTestDB -> migrasi skema terminal di SQLite in-memory + seed katalog
func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file:integration?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open in-memory sqlite: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	db.Create(&models.MenuCategory{Name: "Makanan"})
	db.Create(&models.Menu{CategoryID: 1, Name: "Nasi Goreng", Rate: 12000, IsAvailable: true})
	db.Create(&models.Table{TableNumber: "A1", Status: "available"})
	return db
}

func testConfig(backendURL string) *config.Config {
	return &config.Config{
		DeviceID:            "device-integration",
		RemoteBaseURL:       backendURL,
		TaxBps:              500,
		RoundingMode:        pricing.RoundHalfUp,
		DiscountApprovalBps: 2000,
		SyncPollInterval:    20 * time.Millisecond,
		SyncSubmitTimeout:   2 * time.Second,
		SyncBackoffBase:     time.Millisecond,
		SyncBackoffCap:      10 * time.Millisecond,
		SyncBatchSize:       16,
		SyncWarnAttempts:    5,
	}
}

// startFakeBackend -> remote order service palsu yang meng-ack semua mutation
// dan membagikan id order mulai dari 500.
func startFakeBackend() *httptest.Server {
	var mu sync.Mutex
	nextID := int64(500)
	assigned := make(map[string]int64)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/orders", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		key := r.Header.Get("Idempotency-Key")
		id, ok := assigned[key]
		if !ok {
			nextID++
			id = nextID
			assigned[key] = id
		}
		json.NewEncoder(w).Encode(map[string]int64{"order_id": id})
	})
	mux.HandleFunc("POST /api/orders/{id}/kot", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /api/orders/{id}/update", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /api/orders/{id}/payment", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /api/orders/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return httptest.NewServer(mux)
}

func pairDeviceTest(t *testing.T, r *gin.Engine) string {
	os.Setenv("PAIRING_KEY", "integration-pairing-key")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/pair", nil)
	req.Header.Set("X-Pairing-Key", "integration-pairing-key")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("pairDeviceTest fail: code=%d, body=%s", w.Code, w.Body.String())
	}
	data := parseData(t, w.Body.Bytes())
	token, ok := data["token"].(string)
	if !ok || token == "" {
		t.Fatalf("pairDeviceTest: no token in response: %s", w.Body.String())
	}
	return token
}

func createOrderTest(t *testing.T, r *gin.Engine, token string) int64 {
	body := map[string]interface{}{
		"channel":  "dine_in",
		"table_id": 1,
	}
	w := doRequest(r, token, http.MethodPost, "/api/orders", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("createOrderTest fail: code=%d, body=%s", w.Code, w.Body.String())
	}
	data := parseData(t, w.Body.Bytes())
	id := int64(data["id"].(float64))
	if id >= 0 {
		t.Fatalf("expected temporary local id (negative), got %d", id)
	}
	return id
}

func setLineTest(t *testing.T, r *gin.Engine, token string, orderID int64, menuID uint, qty int) {
	body := map[string]interface{}{
		"menu_id":  menuID,
		"quantity": qty,
	}
	url := fmt.Sprintf("/api/orders/%d/lines", orderID)
	w := doRequest(r, token, http.MethodPut, url, body)
	if w.Code != http.StatusOK {
		t.Fatalf("setLineTest fail: code=%d, body=%s", w.Code, w.Body.String())
	}
}

func postOrderOp(t *testing.T, r *gin.Engine, token string, orderID int64, op string, body map[string]interface{}, wantCode int) map[string]interface{} {
	url := fmt.Sprintf("/api/orders/%d/%s", orderID, op)
	w := doRequest(r, token, http.MethodPost, url, body)
	if w.Code != wantCode {
		t.Fatalf("postOrderOp %s fail: code=%d, body=%s", op, w.Code, w.Body.String())
	}
	return parseData(t, w.Body.Bytes())
}

func setConnectivityTest(t *testing.T, r *gin.Engine, token string, online bool) {
	w := doRequest(r, token, http.MethodPut, "/api/sync/connectivity", map[string]interface{}{"online": online})
	if w.Code != http.StatusOK {
		t.Fatalf("setConnectivityTest fail: code=%d, body=%s", w.Code, w.Body.String())
	}
}

// waitForRemoteID mem-poll daftar order aktif sampai id order berubah menjadi
// id backend (positif).
func waitForRemoteID(t *testing.T, r *gin.Engine, token string) int64 {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		w := doRequest(r, token, http.MethodGet, "/api/orders", nil)
		if w.Code == http.StatusOK {
			var resp struct {
				Data []map[string]interface{} `json:"data"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err == nil && len(resp.Data) == 1 {
				id := int64(resp.Data[0]["id"].(float64))
				if id > 0 {
					return id
				}
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("order was never remapped to a backend id")
	return 0
}

func waitForHistory(t *testing.T, r *gin.Engine, token string, orderID int64) {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		w := doRequest(r, token, http.MethodGet, "/api/orders?history=1", nil)
		if w.Code == http.StatusOK {
			var resp struct {
				Data []map[string]interface{} `json:"data"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err == nil {
				for _, o := range resp.Data {
					if int64(o["id"].(float64)) == orderID && o["status"] == "paid" {
						return
					}
				}
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("order %d never reached paid history", orderID)
}

func doRequest(r *gin.Engine, token, method, url string, body map[string]interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseData(t *testing.T, body []byte) map[string]interface{} {
	var resp map[string]interface{}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("malformed response: %s", string(body))
	}
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("response without data object: %s", string(body))
	}
	return data
}
