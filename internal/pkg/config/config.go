package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration tree shared by all services. Each binary
// reads the same file and picks the sections it needs.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Registry  RegistryConfig  `yaml:"registry"`
	MySQL     MySQLConfig     `yaml:"mysql"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Jaeger    JaegerConfig    `yaml:"jaeger"`
	Order     OrderConfig     `yaml:"order"`
	Inventory InventoryConfig `yaml:"inventory"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Name string `yaml:"name"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type RegistryConfig struct {
	// Backend selects the locator implementation: static, nacos, etcd or
	// zookeeper.
	Backend string            `yaml:"backend"`
	Static  map[string]string `yaml:"static"`

	Nacos struct {
		ServerAddrs string `yaml:"server_addrs"`
		Namespace   string `yaml:"namespace"`
		Group       string `yaml:"group"`
	} `yaml:"nacos"`

	Etcd struct {
		Endpoints   []string      `yaml:"endpoints"`
		Prefix      string        `yaml:"prefix"`
		DialTimeout time.Duration `yaml:"dial_timeout"`
		LeaseTTL    int64         `yaml:"lease_ttl"`
	} `yaml:"etcd"`

	Zookeeper struct {
		Servers        []string      `yaml:"servers"`
		Root           string        `yaml:"root"`
		SessionTimeout time.Duration `yaml:"session_timeout"`
	} `yaml:"zookeeper"`
}

type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type OrderConfig struct {
	// InventoryTimeout bounds every outbound call to the inventory service.
	InventoryTimeout time.Duration `yaml:"inventory_timeout"`
	// InventoryService is the logical name resolved through the registry.
	InventoryService string `yaml:"inventory_service"`
	// StatusUpdatePolicy is either "open" (any authenticated caller may change
	// an order's status) or "owner". The original surface leaves status
	// updates unrestricted, so "open" is the default.
	StatusUpdatePolicy string `yaml:"status_update_policy"`
	// AdmissionPolicy is an optional CEL expression evaluated against every
	// submission before the order is persisted.
	AdmissionPolicy string `yaml:"admission_policy"`
}

type InventoryConfig struct {
	// StockBackend selects the stock store: redis or memory.
	StockBackend string `yaml:"stock_backend"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads the YAML file at path and applies defaults. Host/port style
// settings can be overridden through the environment so the same file works
// inside and outside containers.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// All binaries share one file; the listen address is the one setting
	// that must differ per process.
	if v := os.Getenv("SHOPGRID_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SHOPGRID_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SHOPGRID_MYSQL_HOST"); v != "" {
		cfg.MySQL.Host = v
	}
	if v := os.Getenv("SHOPGRID_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SHOPGRID_REGISTRY_BACKEND"); v != "" {
		cfg.Registry.Backend = v
	}
	if v := os.Getenv("SHOPGRID_JAEGER_ENDPOINT"); v != "" {
		cfg.Jaeger.Endpoint = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Registry.Backend == "" {
		cfg.Registry.Backend = "static"
	}
	if cfg.Registry.Etcd.Prefix == "" {
		cfg.Registry.Etcd.Prefix = "/shopgrid/services/"
	}
	if cfg.Registry.Etcd.DialTimeout == 0 {
		cfg.Registry.Etcd.DialTimeout = 5 * time.Second
	}
	if cfg.Registry.Etcd.LeaseTTL == 0 {
		cfg.Registry.Etcd.LeaseTTL = 30
	}
	if cfg.Registry.Zookeeper.Root == "" {
		cfg.Registry.Zookeeper.Root = "/shopgrid/services"
	}
	if cfg.Registry.Zookeeper.SessionTimeout == 0 {
		cfg.Registry.Zookeeper.SessionTimeout = 10 * time.Second
	}
	if cfg.Order.InventoryTimeout == 0 {
		cfg.Order.InventoryTimeout = 3 * time.Second
	}
	if cfg.Order.InventoryService == "" {
		cfg.Order.InventoryService = "inventory-service"
	}
	if cfg.Order.StatusUpdatePolicy == "" {
		cfg.Order.StatusUpdatePolicy = "open"
	}
	if cfg.Inventory.StockBackend == "" {
		cfg.Inventory.StockBackend = "redis"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
