package config

import (
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/yeremiapane/pos-terminal/pricing"
)

// Config adalah seluruh konfigurasi runtime terminal, dibaca dari env
// (godotenv dimuat di main sebelum Load dipanggil).
type Config struct {
	Port     string
	DBDriver string // sqlite | mysql
	DBDSN    string

	RemoteBaseURL string
	DeviceID      string

	TaxBps       int64
	RoundingMode pricing.RoundingMode

	// Diskon di atas ambang ini (basis point dari subtotal, atau nilai flat
	// setara) butuh persetujuan PIN manajer.
	DiscountApprovalBps int64
	ManagerPINHash      string

	SyncPollInterval  time.Duration
	SyncSubmitTimeout time.Duration
	SyncBackoffBase   time.Duration
	SyncBackoffCap    time.Duration
	SyncBatchSize     int
	// Setelah sekian attempt gagal retryable, emit warning "pending sync" ke
	// UI; order tetap bisa dipakai.
	SyncWarnAttempts int
}

func Load() *Config {
	cfg := &Config{
		Port:                envOr("PORT", "8080"),
		DBDriver:            envOr("DB_DRIVER", "sqlite"),
		DBDSN:               envOr("DB_DSN", "pos-terminal.db"),
		RemoteBaseURL:       envOr("REMOTE_BASE_URL", "http://localhost:9090"),
		DeviceID:            envOr("DEVICE_ID", ""),
		TaxBps:              envInt64("TAX_BPS", 500),
		RoundingMode:        pricing.RoundHalfUp,
		DiscountApprovalBps: envInt64("DISCOUNT_APPROVAL_BPS", 2000),
		ManagerPINHash:      os.Getenv("MANAGER_PIN_HASH"),
		SyncPollInterval:    envDuration("SYNC_POLL_INTERVAL", 2*time.Second),
		SyncSubmitTimeout:   envDuration("SYNC_SUBMIT_TIMEOUT", 10*time.Second),
		SyncBackoffBase:     envDuration("SYNC_BACKOFF_BASE", 1*time.Second),
		SyncBackoffCap:      envDuration("SYNC_BACKOFF_CAP", 60*time.Second),
		SyncBatchSize:       int(envInt64("SYNC_BATCH_SIZE", 16)),
		SyncWarnAttempts:    int(envInt64("SYNC_WARN_ATTEMPTS", 5)),
	}

	if os.Getenv("ROUNDING_MODE") == string(pricing.RoundHalfEven) {
		cfg.RoundingMode = pricing.RoundHalfEven
	}
	// Device id dibuat sekali kalau tidak dikonfigurasi; di production nilai
	// ini harus stabil lewat env supaya idempotency key konsisten antar boot.
	if cfg.DeviceID == "" {
		cfg.DeviceID = uuid.NewString()
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
