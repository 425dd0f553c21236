package ports

import (
	"context"
	"time"

	"github.com/sweetshop/inventory-service/internal/core/domain"
)

// StockEventInput is the DTO handed from the inventory service to the audit pipeline.
type StockEventInput struct {
	ItemID     string
	Kind       string
	Delta      int
	Quantity   int
	Actor      string
	OccurredAt time.Time
}

// StockEventPublisher accepts stock events for asynchronous recording.
type StockEventPublisher interface {
	Publish(event StockEventInput)
}

// StockEventService records a single stock event.
type StockEventService interface {
	Record(ctx context.Context, event StockEventInput) error
}

// StockEventRepository persists stock events to the audit log.
type StockEventRepository interface {
	InsertEvent(ctx context.Context, event *domain.StockEvent) error
}
