package saga

import (
	"context"
	"sync"

	"shopgrid/internal/pkg/logger"
)

// Saga collects compensating actions for the steps of a cross-service
// operation that has no shared transaction. Compensations run in reverse
// registration order. Adding is safe from concurrent steps.
type Saga struct {
	mu            sync.Mutex
	compensations []func(ctx context.Context)
}

// Add registers a compensating action for a step that just succeeded.
func (s *Saga) Add(comp func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compensations = append(s.compensations, comp)
}

// Compensate runs all registered actions, last first. Each action is expected
// to be idempotent so a retried compensation cannot double-apply.
func (s *Saga) Compensate(ctx context.Context) {
	s.mu.Lock()
	comps := s.compensations
	s.compensations = nil
	s.mu.Unlock()

	if len(comps) == 0 {
		return
	}
	logger.Ctx(ctx).Info().Int("steps", len(comps)).Msg("running saga compensation")
	for i := len(comps) - 1; i >= 0; i-- {
		comps[i](ctx)
	}
}
