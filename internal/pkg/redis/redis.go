package redis

import (
	"context"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"shopgrid/internal/pkg/config"
)

// Client wraps go-redis with a named Lua script registry. Scripts are loaded
// once at startup and executed by name, with EVALSHA falling back to EVAL
// when the server has not cached the script.
type Client struct {
	rdb *goredis.Client

	mu      sync.RWMutex
	scripts map[string]*goredis.Script
}

func NewClient(cfg *config.RedisConfig) *Client {
	return &Client{
		rdb: goredis.NewClient(&goredis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		scripts: make(map[string]*goredis.Script),
	}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// LoadScript registers a Lua script under name for later RunScript calls.
func (c *Client) LoadScript(name, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts[name] = goredis.NewScript(content)
}

// RunScript executes a previously registered script.
func (c *Client) RunScript(ctx context.Context, name string, keys []string, args ...any) (any, error) {
	c.mu.RLock()
	script, ok := c.scripts[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("redis: script %q not loaded", name)
	}
	return script.Run(ctx, c.rdb, keys, args...).Result()
}

// Raw exposes the underlying client for plain commands and pipelines.
func (c *Client) Raw() *goredis.Client {
	return c.rdb
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
