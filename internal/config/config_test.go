package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "file", cfg.Backend)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERAAJ_ADDR", ":9090")
	t.Setenv("SERAAJ_DATABASE_URL", "postgres://localhost:5432/seraaj?sslmode=disable")
	t.Setenv("SERAAJ_EVENT_BUS_URL", "http://bus:8088/events")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "http://bus:8088/events", cfg.EventBusURL)
	// A database URL implies the postgres backend unless overridden.
	assert.Equal(t, "postgres", cfg.Backend)
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":7000\"\ndata_dir: /var/lib/seraaj\n"), 0o644))

	t.Setenv("SERAAJ_CONFIG", path)
	t.Setenv("SERAAJ_ADDR", ":7001")

	cfg, err := Load()
	require.NoError(t, err)

	// Environment wins over file, file wins over defaults.
	assert.Equal(t, ":7001", cfg.Addr)
	assert.Equal(t, "/var/lib/seraaj", cfg.DataDir)
}

func TestLoadRejectsPostgresWithoutURL(t *testing.T) {
	t.Setenv("SERAAJ_BACKEND", "postgres")

	_, err := Load()
	assert.Error(t, err)
}
