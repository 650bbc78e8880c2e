package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Etcd backs the registry with an etcd cluster. Registration writes a leased
// key under prefix/<service>/<host:port> and keeps the lease alive; when the
// process dies the lease expires and the instance disappears.
type Etcd struct {
	client   *clientv3.Client
	prefix   string
	leaseTTL int64

	// keepCtx outlives any registration call's context, which callers cancel
	// as soon as Register returns; cancelling it would halt the keepalive
	// stream and let the lease lapse while the service is still running.
	keepCtx    context.Context
	keepCancel context.CancelFunc
}

func NewEtcd(endpoints []string, prefix string, dialTimeout time.Duration, leaseTTL int64) (*Etcd, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect to etcd")
	}
	keepCtx, keepCancel := context.WithCancel(context.Background())
	return &Etcd{
		client:     cli,
		prefix:     prefix,
		leaseTTL:   leaseTTL,
		keepCtx:    keepCtx,
		keepCancel: keepCancel,
	}, nil
}

func (e *Etcd) key(inst Instance) string {
	return fmt.Sprintf("%s%s/%s", e.prefix, inst.Name, inst.Addr())
}

func (e *Etcd) Register(ctx context.Context, inst Instance) error {
	lease, err := e.client.Grant(ctx, e.leaseTTL)
	if err != nil {
		return errors.Wrap(err, "grant etcd lease")
	}

	if _, err := e.client.Put(ctx, e.key(inst), inst.Addr(), clientv3.WithLease(lease.ID)); err != nil {
		return errors.Wrapf(err, "register %s in etcd", inst.Name)
	}

	ch, err := e.client.KeepAlive(e.keepCtx, lease.ID)
	if err != nil {
		return errors.Wrap(err, "keep etcd lease alive")
	}
	go func() {
		for range ch {
		}
	}()
	return nil
}

func (e *Etcd) Deregister(ctx context.Context, inst Instance) error {
	e.keepCancel()
	_, err := e.client.Delete(ctx, e.key(inst))
	return errors.Wrapf(err, "deregister %s from etcd", inst.Name)
}

func (e *Etcd) Resolve(ctx context.Context, serviceName string) (string, error) {
	resp, err := e.client.Get(ctx, fmt.Sprintf("%s%s/", e.prefix, serviceName), clientv3.WithPrefix())
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s via etcd", serviceName)
	}
	if len(resp.Kvs) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoInstance, serviceName)
	}
	return string(resp.Kvs[0].Value), nil
}

func (e *Etcd) Close() error {
	e.keepCancel()
	return e.client.Close()
}
