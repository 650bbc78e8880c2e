package registry

import (
	"context"
	"fmt"
	"sync"
)

// Static resolves services from a fixed name→address table. It is the
// development and single-host fallback; Register only mutates the local
// table so services can still self-announce in tests.
type Static struct {
	mu    sync.RWMutex
	addrs map[string]string
}

func NewStatic(addrs map[string]string) *Static {
	table := make(map[string]string, len(addrs))
	for name, addr := range addrs {
		table[name] = addr
	}
	return &Static{addrs: table}
}

func (s *Static) Register(_ context.Context, inst Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addrs[inst.Name] = inst.Addr()
	return nil
}

func (s *Static) Deregister(_ context.Context, inst Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.addrs, inst.Name)
	return nil
}

func (s *Static) Resolve(_ context.Context, serviceName string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addr, ok := s.addrs[serviceName]
	if !ok || addr == "" {
		return "", fmt.Errorf("%w: %s", ErrNoInstance, serviceName)
	}
	return addr, nil
}

func (s *Static) Close() error { return nil }
