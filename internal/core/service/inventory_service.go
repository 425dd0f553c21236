package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweetshop/inventory-service/internal/api/metrics"
	"github.com/sweetshop/inventory-service/internal/core/domain"
	"github.com/sweetshop/inventory-service/internal/core/ports"
)

// InventoryService implements catalog management and stock mutation.
// Role checks happen before these methods are reached.
type InventoryService struct {
	repo      ports.ItemRepository
	cache     ports.CatalogCache
	publisher ports.StockEventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

// InventoryOption customises an InventoryService.
type InventoryOption func(*InventoryService)

// WithCatalogCache enables caching of list and search results.
func WithCatalogCache(cache ports.CatalogCache) InventoryOption {
	return func(s *InventoryService) { s.cache = cache }
}

// WithStockEvents publishes an audit event for every purchase and restock.
func WithStockEvents(publisher ports.StockEventPublisher) InventoryOption {
	return func(s *InventoryService) { s.publisher = publisher }
}

// NewInventoryService returns an InventoryService over repo.
func NewInventoryService(repo ports.ItemRepository, logger zerolog.Logger, opts ...InventoryOption) *InventoryService {
	s := &InventoryService{repo: repo, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every catalog item.
func (s *InventoryService) List(ctx context.Context) ([]domain.Item, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetList(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("catalog cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	gen, fill := s.cacheGeneration(ctx)
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	if items == nil {
		items = []domain.Item{}
	}

	if fill {
		if err := s.cache.SetList(ctx, gen, items); err != nil {
			s.logger.Warn().Err(err).Msg("catalog cache write failed")
		}
	}
	return items, nil
}

// Search filters the catalog. Nothing matching is not an error.
func (s *InventoryService) Search(ctx context.Context, in ports.SearchItemsInput) ([]domain.Item, error) {
	filter := ports.ItemFilter{
		Name:     strings.TrimSpace(in.Name),
		Category: strings.TrimSpace(in.Category),
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
	}
	key := searchKey(filter)

	if s.cache != nil {
		if cached, err := s.cache.GetSearch(ctx, key); err != nil {
			s.logger.Warn().Err(err).Msg("catalog cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	gen, fill := s.cacheGeneration(ctx)
	items, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	if items == nil {
		items = []domain.Item{}
	}

	if fill {
		if err := s.cache.SetSearch(ctx, gen, key, items); err != nil {
			s.logger.Warn().Err(err).Msg("catalog cache write failed")
		}
	}
	return items, nil
}

// Create adds a new item to the catalog.
func (s *InventoryService) Create(ctx context.Context, in ports.CreateItemInput) (*domain.Item, error) {
	if err := checkPrice(in.Price); err != nil {
		return nil, err
	}
	if err := checkQuantity(in.Quantity); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &domain.Item{
		Name:        in.Name,
		Category:    in.Category,
		Price:       in.Price,
		Quantity:    in.Quantity,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	s.invalidate(ctx)
	metrics.ItemsCreatedTotal.Inc()
	s.logger.Info().Str("item_id", created.ID).Str("name", created.Name).Msg("item created")
	return created, nil
}

// Update applies only the supplied fields to the item.
func (s *InventoryService) Update(ctx context.Context, id string, in ports.UpdateItemInput) (*domain.Item, error) {
	patch := domain.ItemPatch{
		Name:        in.Name,
		Category:    in.Category,
		Price:       in.Price,
		Quantity:    in.Quantity,
		Description: in.Description,
		ImageURL:    in.ImageURL,
	}
	if patch.Price != nil {
		if err := checkPrice(*patch.Price); err != nil {
			return nil, err
		}
	}
	if patch.Quantity != nil {
		if err := checkQuantity(*patch.Quantity); err != nil {
			return nil, err
		}
	}

	if patch.Empty() {
		item, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, wrapItemErr("update item", err)
		}
		return item, nil
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, wrapItemErr("update item", err)
	}

	s.invalidate(ctx)
	s.logger.Info().Str("item_id", id).Msg("item updated")
	return updated, nil
}

// Delete removes the item from the catalog.
func (s *InventoryService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return wrapItemErr("delete item", err)
	}

	s.invalidate(ctx)
	s.logger.Info().Str("item_id", id).Msg("item deleted")
	return nil
}

// Purchase takes one unit out of stock. The check and the decrement happen
// in a single conditional write, so concurrent buyers can never oversell.
func (s *InventoryService) Purchase(ctx context.Context, id, actor string) (int, error) {
	qty, err := s.repo.DecrementStock(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOutOfStock):
			metrics.PurchasesTotal.WithLabelValues("out_of_stock").Inc()
			s.logger.Info().Str("item_id", id).Str("actor", actor).Msg("purchase rejected: out of stock")
		case errors.Is(err, domain.ErrItemNotFound):
			metrics.PurchasesTotal.WithLabelValues("not_found").Inc()
		default:
			metrics.PurchasesTotal.WithLabelValues("error").Inc()
		}
		return 0, wrapItemErr("purchase", err)
	}

	metrics.PurchasesTotal.WithLabelValues("success").Inc()
	s.invalidate(ctx)
	s.publish(domain.StockEventPurchase, id, -1, qty, actor)
	s.logger.Info().Str("item_id", id).Str("actor", actor).Int("quantity", qty).Msg("purchase completed")
	return qty, nil
}

// Restock adds amount units to the item's stock.
func (s *InventoryService) Restock(ctx context.Context, id string, amount int, actor string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: restock amount must be a positive integer", domain.ErrInvalidInput)
	}

	qty, err := s.repo.IncrementStock(ctx, id, amount)
	if err != nil {
		return 0, wrapItemErr("restock", err)
	}

	metrics.RestocksTotal.Inc()
	s.invalidate(ctx)
	s.publish(domain.StockEventRestock, id, amount, qty, actor)
	s.logger.Info().Str("item_id", id).Str("actor", actor).Int("amount", amount).Int("quantity", qty).Msg("item restocked")
	return qty, nil
}

// cacheGeneration reads the generation a fill will be checked against. It
// must run before the store is read; false means skip the fill.
func (s *InventoryService) cacheGeneration(ctx context.Context) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache generation read failed")
		return 0, false
	}
	return gen, true
}

func (s *InventoryService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
}

func (s *InventoryService) publish(kind domain.StockEventKind, id string, delta, qty int, actor string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ports.StockEventInput{
		ItemID:     id,
		Kind:       string(kind),
		Delta:      delta,
		Quantity:   qty,
		Actor:      actor,
		OccurredAt: s.now().UTC(),
	})
}

func checkPrice(price float64) error {
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Errorf("%w: price must be a non-negative number", domain.ErrInvalidInput)
	}
	return nil
}

func checkQuantity(qty int) error {
	if qty < 0 {
		return fmt.Errorf("%w: quantity must not be negative", domain.ErrInvalidInput)
	}
	return nil
}

// wrapItemErr keeps domain errors comparable while adding context to
// infrastructure failures.
func wrapItemErr(op string, err error) error {
	if errors.Is(err, domain.ErrItemNotFound) || errors.Is(err, domain.ErrOutOfStock) || errors.Is(err, domain.ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

// searchKey renders a filter into a stable cache key.
func searchKey(f ports.ItemFilter) string {
	bound := func(p *float64) string {
		if p == nil {
			return "*"
		}
		return strconv.FormatFloat(*p, 'f', -1, 64)
	}
	return strings.ToLower(f.Name) + "|" + strings.ToLower(f.Category) + "|" + bound(f.MinPrice) + "|" + bound(f.MaxPrice)
}
