package service_test

import (
	"context"
	"sync"
	"time"

	"checkout-service/internal/service"
)

// MockEventBus
type MockEventBus struct {
	mu        sync.Mutex
	Created   []service.OrderCreatedEvent
	Cancelled []service.OrderCancelledEvent

	PublishOrderCreatedFunc   func(ctx context.Context, e service.OrderCreatedEvent) error
	PublishOrderCancelledFunc func(ctx context.Context, e service.OrderCancelledEvent) error
}

func (m *MockEventBus) PublishOrderCreated(ctx context.Context, e service.OrderCreatedEvent) error {
	m.mu.Lock()
	m.Created = append(m.Created, e)
	m.mu.Unlock()
	if m.PublishOrderCreatedFunc != nil {
		return m.PublishOrderCreatedFunc(ctx, e)
	}
	return nil
}

func (m *MockEventBus) PublishOrderCancelled(ctx context.Context, e service.OrderCancelledEvent) error {
	m.mu.Lock()
	m.Cancelled = append(m.Cancelled, e)
	m.mu.Unlock()
	if m.PublishOrderCancelledFunc != nil {
		return m.PublishOrderCancelledFunc(ctx, e)
	}
	return nil
}

func (m *MockEventBus) CreatedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Created)
}

// MockResultCache: in-memory кэш результатов
type MockResultCache struct {
	mu   sync.Mutex
	data map[string][]byte

	GetResultFunc func(ctx context.Context, key string) ([]byte, error)
}

func NewMockResultCache() *MockResultCache {
	return &MockResultCache{data: make(map[string][]byte)}
}

func (m *MockResultCache) GetResult(ctx context.Context, key string) ([]byte, error) {
	if m.GetResultFunc != nil {
		return m.GetResultFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *MockResultCache) SetResult(_ context.Context, key string, result []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), result...)
	return nil
}

func (m *MockResultCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// MockObserver
type MockObserver struct {
	mu       sync.Mutex
	Outcomes map[string]int
}

func (m *MockObserver) ObserveCommit(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Outcomes == nil {
		m.Outcomes = make(map[string]int)
	}
	m.Outcomes[outcome]++
}

func (m *MockObserver) Count(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Outcomes[outcome]
}
