package infrastructure

import (
	"context"
	"fmt"
	"sync"

	"shopgrid/internal/service/inventory/domain"
)

// MemoryStockStore keeps stock counters in process memory under a single
// mutex. It mirrors the Redis store's contract, including idempotent
// reservations, and backs local development and tests.
type MemoryStockStore struct {
	mu           sync.Mutex
	stock        map[string]int
	reservations map[string]map[string]int // productID -> orderID -> qty
}

func NewMemoryStockStore() *MemoryStockStore {
	return &MemoryStockStore{
		stock:        make(map[string]int),
		reservations: make(map[string]map[string]int),
	}
}

func (s *MemoryStockStore) Set(_ context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[productID] = quantity
	return nil
}

func (s *MemoryStockStore) Get(_ context.Context, productID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	qty, ok := s.stock[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	return qty, nil
}

func (s *MemoryStockStore) Reserve(_ context.Context, productID string, quantity int, orderID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stock, ok := s.stock[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	if held, ok := s.reservations[productID][orderID]; ok {
		// A retry of the same reservation is answered as success; a distinct
		// quantity for the same order means the caller's accounting is wrong.
		if held == quantity {
			return stock, nil
		}
		return 0, fmt.Errorf("%w: order %s already holds %d units of product %s",
			domain.ErrValidation, orderID, held, productID)
	}
	if stock < quantity {
		return 0, &domain.InsufficientStock{ProductID: productID, Requested: quantity, Available: stock}
	}

	s.stock[productID] = stock - quantity
	if s.reservations[productID] == nil {
		s.reservations[productID] = make(map[string]int)
	}
	s.reservations[productID][orderID] = quantity
	return stock - quantity, nil
}

func (s *MemoryStockStore) Release(_ context.Context, productID string, orderID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stock, ok := s.stock[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	qty, held := s.reservations[productID][orderID]
	if !held {
		return stock, nil
	}
	delete(s.reservations[productID], orderID)
	s.stock[productID] = stock + qty
	return stock + qty, nil
}

func (s *MemoryStockStore) Remove(_ context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stock, productID)
	delete(s.reservations, productID)
	return nil
}
