package ports

import (
	"context"

	"github.com/sweetshop/inventory-service/internal/core/domain"
)

// SearchItemsInput carries the optional search parameters.
type SearchItemsInput struct {
	Name     string
	Category string
	MinPrice *float64
	MaxPrice *float64
}

// CreateItemInput carries the fields of a new catalog item.
type CreateItemInput struct {
	Name        string
	Category    string
	Price       float64
	Quantity    int
	Description string
	ImageURL    string
}

// UpdateItemInput carries a partial update; nil fields are left unchanged.
type UpdateItemInput struct {
	Name        *string
	Category    *string
	Price       *float64
	Quantity    *int
	Description *string
	ImageURL    *string
}

// InventoryService defines the catalog and stock use cases.
type InventoryService interface {
	List(ctx context.Context) ([]domain.Item, error)
	Search(ctx context.Context, input SearchItemsInput) ([]domain.Item, error)
	Create(ctx context.Context, input CreateItemInput) (*domain.Item, error)
	Update(ctx context.Context, id string, input UpdateItemInput) (*domain.Item, error)
	Delete(ctx context.Context, id string) error
	Purchase(ctx context.Context, id, actor string) (int, error)
	Restock(ctx context.Context, id string, amount int, actor string) (int, error)
}
