package memory

import (
	"context"
	"sync"

	"github.com/sweetshop/inventory-service/internal/core/domain"
)

// StockEventRepository appends stock events to an in-process slice.
type StockEventRepository struct {
	mu     sync.Mutex
	events []domain.StockEvent
}

func NewStockEventRepository() *StockEventRepository {
	return &StockEventRepository{}
}

func (r *StockEventRepository) InsertEvent(_ context.Context, event *domain.StockEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, *event)
	return nil
}

// Events returns a copy of the recorded events in insertion order.
func (r *StockEventRepository) Events() []domain.StockEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.StockEvent, len(r.events))
	copy(out, r.events)
	return out
}
