package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NetShop/internal/kvstore"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("NETSHOP_JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, kvstore.DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 5*1024*1024, cfg.Store.QuotaBytes)
	assert.Equal(t, 720*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 1200.0, cfg.Checkout.DeliveryFee)
	assert.Equal(t, 3*time.Second, cfg.Notify.ToastTTL)
	assert.Empty(t, cfg.Backend.URL)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("NETSHOP_JWT_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "JWT_SECRET"))
}

func TestValidate_StoreDrivers(t *testing.T) {
	tests := []struct {
		name    string
		store   StoreConfig
		wantErr bool
	}{
		{name: "memory", store: StoreConfig{Driver: "memory"}},
		{name: "case insensitive", store: StoreConfig{Driver: " Redis ", RedisURL: "redis://localhost:6379/0"}},
		{name: "redis without url", store: StoreConfig{Driver: "redis"}, wantErr: true},
		{name: "postgres without dsn", store: StoreConfig{Driver: "postgres"}, wantErr: true},
		{name: "sqlite", store: StoreConfig{Driver: "sqlite", SQLitePath: "x.db"}},
		{name: "unknown", store: StoreConfig{Driver: "indexeddb"}, wantErr: true},
		{name: "negative quota", store: StoreConfig{Driver: "memory", QuotaBytes: -1}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{Store: tc.store, Session: SessionConfig{JWTSecret: testSecret}}
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
