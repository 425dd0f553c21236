package ports

import (
	"context"

	"github.com/sweetshop/inventory-service/internal/core/domain"
)

// ItemFilter carries the search criteria for catalog items.
// Empty strings and nil bounds impose no constraint.
type ItemFilter struct {
	Name     string   // case-insensitive substring of the item name
	Category string   // case-insensitive substring of the category
	MinPrice *float64 // inclusive
	MaxPrice *float64 // inclusive
}

// ItemRepository defines persistence operations for catalog items.
type ItemRepository interface {
	List(ctx context.Context) ([]domain.Item, error)
	Search(ctx context.Context, filter ItemFilter) ([]domain.Item, error)
	FindByID(ctx context.Context, id string) (*domain.Item, error)
	Create(ctx context.Context, item *domain.Item) (*domain.Item, error)
	// Update applies patch to the stored item and returns the result.
	Update(ctx context.Context, id string, patch domain.ItemPatch) (*domain.Item, error)
	Delete(ctx context.Context, id string) error

	// DecrementStock atomically lowers the quantity by one, but only while it
	// is positive. It returns the new quantity, domain.ErrOutOfStock when the
	// guard fails, or domain.ErrItemNotFound.
	DecrementStock(ctx context.Context, id string) (int, error)
	// IncrementStock atomically adds amount to the quantity.
	IncrementStock(ctx context.Context, id string, amount int) (int, error)
}

// CatalogCache stores list and search results between mutations.
// A miss is reported as (nil, nil).
//
// Fills are tied to a generation: a caller reads Generation before loading
// from the store and passes it to SetList or SetSearch, which store nothing
// once InvalidateAll has moved the generation on.
type CatalogCache interface {
	Generation(ctx context.Context) (int64, error)
	GetList(ctx context.Context) ([]domain.Item, error)
	SetList(ctx context.Context, generation int64, items []domain.Item) error
	GetSearch(ctx context.Context, key string) ([]domain.Item, error)
	SetSearch(ctx context.Context, generation int64, key string, items []domain.Item) error
	InvalidateAll(ctx context.Context) error
}
