package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/pkg/errors"
)

// Zookeeper backs the registry with ephemeral znodes under
// <root>/<service>/<host:port>. The znode vanishes with the session, which
// gives the same liveness semantics as the leased etcd keys.
type Zookeeper struct {
	conn *zk.Conn
	root string
}

func NewZookeeper(servers []string, root string, sessionTimeout time.Duration) (*Zookeeper, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout, zk.WithLogInfo(false))
	if err != nil {
		return nil, errors.Wrap(err, "connect to zookeeper")
	}
	z := &Zookeeper{conn: conn, root: root}
	if err := z.ensurePath(root); err != nil {
		conn.Close()
		return nil, err
	}
	return z, nil
}

// ensurePath creates every level of path. Znodes have no implicit parents:
// creating /a/b/c on a fresh ensemble fails with ErrNoNode unless /a and
// /a/b are created first.
func (z *Zookeeper) ensurePath(path string) error {
	for _, level := range pathLevels(path) {
		_, err := z.conn.Create(level, nil, 0, zk.WorldACL(zk.PermAll))
		if err != nil && err != zk.ErrNodeExists {
			return errors.Wrapf(err, "create znode %s", level)
		}
	}
	return nil
}

// pathLevels expands "/a/b/c" into ["/a", "/a/b", "/a/b/c"].
func pathLevels(path string) []string {
	var levels []string
	prefix := ""
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" {
			continue
		}
		prefix += "/" + seg
		levels = append(levels, prefix)
	}
	return levels
}

func (z *Zookeeper) servicePath(name string) string {
	return z.root + "/" + name
}

func (z *Zookeeper) Register(_ context.Context, inst Instance) error {
	if err := z.ensurePath(z.servicePath(inst.Name)); err != nil {
		return err
	}
	node := z.servicePath(inst.Name) + "/" + inst.Addr()
	_, err := z.conn.Create(node, []byte(inst.Addr()), zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	if err != nil && err != zk.ErrNodeExists {
		return errors.Wrapf(err, "register %s in zookeeper", inst.Name)
	}
	return nil
}

func (z *Zookeeper) Deregister(_ context.Context, inst Instance) error {
	node := z.servicePath(inst.Name) + "/" + inst.Addr()
	if err := z.conn.Delete(node, -1); err != nil && err != zk.ErrNoNode {
		return errors.Wrapf(err, "deregister %s from zookeeper", inst.Name)
	}
	return nil
}

func (z *Zookeeper) Resolve(_ context.Context, serviceName string) (string, error) {
	children, _, err := z.conn.Children(z.servicePath(serviceName))
	if err != nil {
		if err == zk.ErrNoNode {
			return "", fmt.Errorf("%w: %s", ErrNoInstance, serviceName)
		}
		return "", errors.Wrapf(err, "resolve %s via zookeeper", serviceName)
	}
	if len(children) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoInstance, serviceName)
	}
	return children[0], nil
}

func (z *Zookeeper) Close() error {
	z.conn.Close()
	return nil
}
