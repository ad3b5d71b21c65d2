package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, int32(10), cfg.DB.MaxConns)
	assert.Equal(t, int32(1), cfg.DB.MinConns)
	assert.Equal(t, time.Hour, cfg.DB.MaxConnLifetime)
	assert.False(t, cfg.DB.ForceIPv4)
	assert.Empty(t, cfg.DB.FallbackDNS)
	assert.Equal(t, 5000, cfg.Ledger.ReportScanLimit)
	assert.Equal(t, "sucursal-principal", cfg.Ledger.Locations[config.RoleBranch].Code)
}

func TestLoad_PoolDesdeEntorno(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "32")
	t.Setenv("DB_MIN_CONNS", "4")
	t.Setenv("DB_MAX_CONN_LIFETIME", "2h")
	t.Setenv("DB_CONNECT_TIMEOUT", "750ms")
	t.Setenv("DB_FORCE_IPV4", "true")
	t.Setenv("DB_FALLBACK_DNS", "1.1.1.1:53")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, int32(32), cfg.DB.MaxConns)
	assert.Equal(t, int32(4), cfg.DB.MinConns)
	assert.Equal(t, 2*time.Hour, cfg.DB.MaxConnLifetime)
	assert.Equal(t, 750*time.Millisecond, cfg.DB.ConnectTimeout)
	assert.True(t, cfg.DB.ForceIPv4)
	assert.Equal(t, "1.1.1.1:53", cfg.DB.FallbackDNS)
}

func TestLoad_PoolInvalido(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "2")
	t.Setenv("DB_MIN_CONNS", "5")
	_, err := config.Load()
	assert.Error(t, err)
}
