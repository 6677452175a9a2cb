package config

import (
	"bytes"
	"encoding/json"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 10, cfg.MaxRetries)
	assert.Equal(t, 2*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, 5*time.Second, cfg.LockTTL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "inventory.events", cfg.KafkaTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, uint32(5), cfg.BreakerFailures)
	assert.Equal(t, runtime.NumCPU(), cfg.WorkerCount())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("INVENTORY_STORE_BACKEND", "mysql")
	t.Setenv("INVENTORY_MYSQL_DSN", "root:root@tcp(db:3306)/inventory")
	t.Setenv("INVENTORY_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("INVENTORY_REQUEST_TIMEOUT", "750ms")
	t.Setenv("INVENTORY_WORKERS", "3")
	t.Setenv("INVENTORY_MAX_RETRIES", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMySQL, cfg.StoreBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 750*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.WorkerCount())
	assert.Equal(t, 4, cfg.MaxRetries)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"INVENTORY_STORE_BACKEND": "postgres"}},
		{"mysql without dsn", map[string]string{"INVENTORY_STORE_BACKEND": "mysql"}},
		{"mongo without database", map[string]string{"INVENTORY_STORE_BACKEND": "mongo", "INVENTORY_MONGO_DATABASE": ""}},
		{"zero retries", map[string]string{"INVENTORY_MAX_RETRIES": "0"}},
		{"negative workers", map[string]string{"INVENTORY_WORKERS": "-1"}},
		{"negative retry backoff", map[string]string{"INVENTORY_RETRY_BACKOFF": "-1ms"}},
		{"bad duration", map[string]string{"INVENTORY_LOCK_TTL": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidateSupervised(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		workers int
		wantErr bool
	}{
		{"memory with many workers", BackendMemory, 4, true},
		{"memory with one worker", BackendMemory, 1, false},
		{"mysql with many workers", BackendMySQL, 4, false},
		{"mongo with many workers", BackendMongo, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{StoreBackend: tt.backend, Workers: tt.workers}
			err := cfg.ValidateSupervised()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "shared store backend")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSetupLoggerTo_JSON(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	var buf bytes.Buffer

	SetupLoggerTo(&buf, "warn", "json")
	log.Info().Msg("hidden")
	log.Warn().Str("sku", "abc").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "abc", entry["sku"])
	assert.Contains(t, entry, "pid")
	assert.Contains(t, entry, "time")
}

func TestSetupLoggerTo_UnknownLevelFallsBackToInfo(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	var buf bytes.Buffer

	SetupLoggerTo(&buf, "chatty", "console")
	log.Debug().Msg("hidden")
	log.Info().Msg("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}
