package registry

import (
	"context"
	"errors"
	"fmt"

	"shopgrid/internal/pkg/config"
)

// ErrNoInstance is returned by Resolve when no healthy instance of the
// requested service is known.
var ErrNoInstance = errors.New("registry: no healthy instance")

// Instance identifies one registered service process.
type Instance struct {
	Name string
	Host string
	Port int
}

func (i Instance) Addr() string {
	return fmt.Sprintf("%s:%d", i.Host, i.Port)
}

// Registry maps logical service names to live network addresses. The
// orchestrator never hard-codes addresses: it goes through Resolve for every
// downstream call, so backends can be swapped between static configuration
// and a live discovery directory.
type Registry interface {
	Register(ctx context.Context, inst Instance) error
	Deregister(ctx context.Context, inst Instance) error
	// Resolve returns a "host:port" address for one healthy instance.
	Resolve(ctx context.Context, serviceName string) (string, error)
	Close() error
}

// New builds the registry backend selected by configuration.
func New(cfg *config.RegistryConfig) (Registry, error) {
	switch cfg.Backend {
	case "static":
		return NewStatic(cfg.Static), nil
	case "nacos":
		return NewNacos(cfg.Nacos.ServerAddrs, cfg.Nacos.Namespace, cfg.Nacos.Group)
	case "etcd":
		return NewEtcd(cfg.Etcd.Endpoints, cfg.Etcd.Prefix, cfg.Etcd.DialTimeout, cfg.Etcd.LeaseTTL)
	case "zookeeper":
		return NewZookeeper(cfg.Zookeeper.Servers, cfg.Zookeeper.Root, cfg.Zookeeper.SessionTimeout)
	default:
		return nil, fmt.Errorf("registry: unknown backend %q", cfg.Backend)
	}
}
