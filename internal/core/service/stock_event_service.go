package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweetshop/inventory-service/internal/api/metrics"
	"github.com/sweetshop/inventory-service/internal/core/domain"
	"github.com/sweetshop/inventory-service/internal/core/ports"
)

type stockEventService struct {
	repo ports.StockEventRepository
	log  zerolog.Logger
}

// NewStockEventService returns a StockEventService that appends to repo.
func NewStockEventService(repo ports.StockEventRepository, log zerolog.Logger) ports.StockEventService {
	return &stockEventService{repo: repo, log: log}
}

// Record validates and persists a single stock event.
func (s *stockEventService) Record(ctx context.Context, in ports.StockEventInput) error {
	start := time.Now()

	kind := domain.StockEventKind(in.Kind)
	if kind != domain.StockEventPurchase && kind != domain.StockEventRestock {
		metrics.StockEventErrorsTotal.WithLabelValues("invalid_kind").Inc()
		return fmt.Errorf("record stock event: %w: unknown kind %q", domain.ErrInvalidInput, in.Kind)
	}
	if in.ItemID == "" {
		metrics.StockEventErrorsTotal.WithLabelValues("missing_item").Inc()
		return fmt.Errorf("record stock event: %w: missing item id", domain.ErrInvalidInput)
	}

	occurred := in.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}

	event := &domain.StockEvent{
		ItemID:     in.ItemID,
		Kind:       kind,
		Delta:      in.Delta,
		Quantity:   in.Quantity,
		Actor:      in.Actor,
		OccurredAt: occurred,
	}
	if err := s.repo.InsertEvent(ctx, event); err != nil {
		metrics.StockEventErrorsTotal.WithLabelValues("insert_failed").Inc()
		return fmt.Errorf("record stock event: %w", err)
	}

	metrics.StockEventsRecordedTotal.WithLabelValues(in.Kind).Inc()
	metrics.StockEventDuration.WithLabelValues(in.Kind).Observe(time.Since(start).Seconds())

	s.log.Debug().
		Str("item_id", in.ItemID).
		Str("kind", in.Kind).
		Int("delta", in.Delta).
		Int("quantity", in.Quantity).
		Msg("stock event recorded")
	return nil
}
