package registry

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/naming_client"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"github.com/pkg/errors"
)

// Nacos backs the registry with a Nacos naming service. Instances are
// ephemeral, so a process that stops heartbeating is dropped from resolution
// automatically.
type Nacos struct {
	naming naming_client.INamingClient
	group  string
}

// NewNacos connects to the Nacos servers given as "ip1:port1,ip2:port2".
func NewNacos(serverAddrs, namespace, group string) (*Nacos, error) {
	if group == "" {
		group = "DEFAULT_GROUP"
	}

	var servers []constant.ServerConfig
	for _, addr := range strings.Split(serverAddrs, ",") {
		host, portStr, ok := strings.Cut(addr, ":")
		if !ok {
			return nil, fmt.Errorf("invalid nacos address %q", addr)
		}
		port, err := strconv.ParseUint(portStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid port in nacos address %q", addr)
		}
		servers = append(servers, *constant.NewServerConfig(host, port))
	}

	clientCfg := *constant.NewClientConfig(
		constant.WithNotLoadCacheAtStart(true),
		constant.WithLogDir("/tmp/shopgrid/nacos/log"),
		constant.WithCacheDir("/tmp/shopgrid/nacos/cache"),
		constant.WithLogLevel("warn"),
		constant.WithNamespaceId(namespace),
	)

	naming, err := clients.NewNamingClient(vo.NacosClientParam{
		ClientConfig:  &clientCfg,
		ServerConfigs: servers,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create nacos naming client")
	}

	return &Nacos{naming: naming, group: group}, nil
}

func (n *Nacos) Register(_ context.Context, inst Instance) error {
	ok, err := n.naming.RegisterInstance(vo.RegisterInstanceParam{
		Ip:          inst.Host,
		Port:        uint64(inst.Port),
		ServiceName: inst.Name,
		Weight:      10,
		Enable:      true,
		Healthy:     true,
		Ephemeral:   true,
		GroupName:   n.group,
	})
	if err != nil {
		return errors.Wrapf(err, "register %s with nacos", inst.Name)
	}
	if !ok {
		return fmt.Errorf("nacos rejected registration of %s", inst.Name)
	}
	return nil
}

func (n *Nacos) Deregister(_ context.Context, inst Instance) error {
	_, err := n.naming.DeregisterInstance(vo.DeregisterInstanceParam{
		Ip:          inst.Host,
		Port:        uint64(inst.Port),
		ServiceName: inst.Name,
		Ephemeral:   true,
		GroupName:   n.group,
	})
	return errors.Wrapf(err, "deregister %s from nacos", inst.Name)
}

func (n *Nacos) Resolve(_ context.Context, serviceName string) (string, error) {
	inst, err := n.naming.SelectOneHealthyInstance(vo.SelectOneHealthInstanceParam{
		ServiceName: serviceName,
		GroupName:   n.group,
	})
	if err != nil || inst == nil {
		return "", fmt.Errorf("%w: %s", ErrNoInstance, serviceName)
	}
	return fmt.Sprintf("%s:%d", inst.Ip, inst.Port), nil
}

func (n *Nacos) Close() error {
	// The v2 SDK has no explicit close; ephemeral instances lapse with the
	// heartbeat.
	return nil
}
