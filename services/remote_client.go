package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yeremiapane/pos-terminal/models"
)

// SyncError adalah error submit yang sudah diklasifikasi. Retryable (network,
// timeout, 429, 5xx) di-retry diam-diam dengan backoff; fatal (4xx lain)
// berhenti dan butuh aksi operator.
type SyncError struct {
	StatusCode int
	Retryable  bool
	Message    string
}

func (e *SyncError) Error() string {
	kind := "fatal"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("sync error (%s, status %d): %s", kind, e.StatusCode, e.Message)
}

// OrderAck adalah acknowledgment backend; OrderID terisi untuk CreateOrder.
type OrderAck struct {
	OrderID int64 `json:"order_id"`
}

// RemoteClient berbicara dengan remote order service. Setiap submit membawa
// idempotency key: retransmisi setelah ack yang hilang adalah no-op di
// server, bukan order/payment kedua.
type RemoteClient struct {
	baseURL    string
	deviceID   string
	httpClient *http.Client
}

func NewRemoteClient(baseURL, deviceID string, timeout time.Duration) *RemoteClient {
	return &RemoteClient{
		baseURL:    baseURL,
		deviceID:   deviceID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (rc *RemoteClient) SubmitOrder(ctx context.Context, payload models.CreateOrderPayload, idempotencyKey string) (*OrderAck, error) {
	var ack OrderAck
	if err := rc.post(ctx, "/api/orders", payload, idempotencyKey, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

func (rc *RemoteClient) SubmitOrderUpdate(ctx context.Context, orderID int64, payload models.UpdateOrderPayload, idempotencyKey string) error {
	return rc.post(ctx, fmt.Sprintf("/api/orders/%d/update", orderID), payload, idempotencyKey, nil)
}

func (rc *RemoteClient) SubmitKot(ctx context.Context, orderID int64, payload models.SendKotPayload, idempotencyKey string) error {
	return rc.post(ctx, fmt.Sprintf("/api/orders/%d/kot", orderID), payload, idempotencyKey, nil)
}

func (rc *RemoteClient) SubmitPayment(ctx context.Context, orderID int64, payload models.RecordPaymentPayload, idempotencyKey string) error {
	return rc.post(ctx, fmt.Sprintf("/api/orders/%d/payment", orderID), payload, idempotencyKey, nil)
}

func (rc *RemoteClient) SubmitCancel(ctx context.Context, orderID int64, payload models.CancelOrderPayload, idempotencyKey string) error {
	return rc.post(ctx, fmt.Sprintf("/api/orders/%d/cancel", orderID), payload, idempotencyKey, nil)
}

// FetchMenus menarik snapshot katalog dari back office.
func (rc *RemoteClient) FetchMenus(ctx context.Context) ([]models.Menu, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rc.baseURL+"/api/catalog/menus", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Device-ID", rc.deviceID)

	resp, err := rc.httpClient.Do(req)
	if err != nil {
		return nil, &SyncError{Retryable: true, Message: err.Error()}
	}
	defer resp.Body.Close()

	if err := classify(resp); err != nil {
		return nil, err
	}
	var menus []models.Menu
	if err := json.NewDecoder(resp.Body).Decode(&menus); err != nil {
		return nil, &SyncError{StatusCode: resp.StatusCode, Retryable: false, Message: "malformed catalog response: " + err.Error()}
	}
	return menus, nil
}

func (rc *RemoteClient) post(ctx context.Context, path string, payload interface{}, idempotencyKey string, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &SyncError{Retryable: false, Message: "marshal payload: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rc.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &SyncError{Retryable: false, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	req.Header.Set("X-Device-ID", rc.deviceID)

	resp, err := rc.httpClient.Do(req)
	if err != nil {
		// Network error / timeout: tidak tahu apakah server sempat memproses;
		// idempotency key membuat resubmit aman.
		return &SyncError{Retryable: true, Message: err.Error()}
	}
	defer resp.Body.Close()

	if err := classify(resp); err != nil {
		return err
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &SyncError{StatusCode: resp.StatusCode, Retryable: false, Message: "malformed ack: " + err.Error()}
		}
	}
	return nil
}

func classify(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	return &SyncError{
		StatusCode: resp.StatusCode,
		Retryable:  retryable,
		Message:    string(msg),
	}
}
