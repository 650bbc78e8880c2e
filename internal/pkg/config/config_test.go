package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopgrid/internal/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 8081
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "static", cfg.Registry.Backend)
	assert.Equal(t, 3*time.Second, cfg.Order.InventoryTimeout)
	assert.Equal(t, "inventory-service", cfg.Order.InventoryService)
	assert.Equal(t, "open", cfg.Order.StatusUpdatePolicy)
	assert.Equal(t, "redis", cfg.Inventory.StockBackend)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ParsesFullTree(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 9000
registry:
  backend: etcd
  etcd:
    endpoints: ["etcd-1:2379"]
    lease_ttl: 60
mysql:
  host: db
  port: 3306
  username: app
  password: secret
  database: shopgrid
order:
  inventory_timeout: 5s
  status_update_policy: owner
  admission_policy: "total_amount < 1000.0"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "etcd", cfg.Registry.Backend)
	assert.Equal(t, int64(60), cfg.Registry.Etcd.LeaseTTL)
	assert.Equal(t, 5*time.Second, cfg.Order.InventoryTimeout)
	assert.Equal(t, "owner", cfg.Order.StatusUpdatePolicy)
	assert.Contains(t, cfg.MySQL.DSN(), "app:secret@tcp(db:3306)/shopgrid")
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
mysql:
  host: db
registry:
  backend: static
`)
	t.Setenv("SHOPGRID_MYSQL_HOST", "db-override")
	t.Setenv("SHOPGRID_REGISTRY_BACKEND", "zookeeper")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db-override", cfg.MySQL.Host)
	assert.Equal(t, "zookeeper", cfg.Registry.Backend)
}

// One shared file, three binaries: the listen address must be settable per
// process without editing the file.
func TestLoad_ServerEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 8080
`)
	t.Setenv("SHOPGRID_SERVER_HOST", "10.0.0.9")
	t.Setenv("SHOPGRID_SERVER_PORT", "8082")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.9", cfg.Server.Host)
	assert.Equal(t, 8082, cfg.Server.Port)
}

func TestLoad_ServerPortOverrideIgnoresGarbage(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
`)
	t.Setenv("SHOPGRID_SERVER_PORT", "not-a-port")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
