// Package memory provides process-local implementations of the repository
// ports. All state is guarded by a mutex, which makes every method a single
// atomic step against the store.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sweetshop/inventory-service/internal/core/domain"
	"github.com/sweetshop/inventory-service/internal/core/ports"
)

// ItemRepository keeps catalog items in a map keyed by ID.
type ItemRepository struct {
	mu     sync.Mutex
	items  map[string]domain.Item
	nextID int64
}

func NewItemRepository() *ItemRepository {
	return &ItemRepository{items: make(map[string]domain.Item)}
}

func (r *ItemRepository) List(_ context.Context) ([]domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.sorted(func(domain.Item) bool { return true }), nil
}

func (r *ItemRepository) Search(_ context.Context, f ports.ItemFilter) ([]domain.Item, error) {
	name := strings.ToLower(f.Name)
	category := strings.ToLower(f.Category)

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.sorted(func(it domain.Item) bool {
		if name != "" && !strings.Contains(strings.ToLower(it.Name), name) {
			return false
		}
		if category != "" && !strings.Contains(strings.ToLower(it.Category), category) {
			return false
		}
		if f.MinPrice != nil && it.Price < *f.MinPrice {
			return false
		}
		if f.MaxPrice != nil && it.Price > *f.MaxPrice {
			return false
		}
		return true
	}), nil
}

func (r *ItemRepository) FindByID(_ context.Context, id string) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return &it, nil
}

func (r *ItemRepository) Create(_ context.Context, item *domain.Item) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	clone := *item
	clone.ID = strconv.FormatInt(r.nextID, 10)
	r.items[clone.ID] = clone
	return &clone, nil
}

func (r *ItemRepository) Update(_ context.Context, id string, patch domain.ItemPatch) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	patch.Apply(&it)
	it.UpdatedAt = time.Now().UTC()
	r.items[id] = it
	return &it, nil
}

func (r *ItemRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrItemNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *ItemRepository) DecrementStock(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[id]
	if !ok {
		return 0, domain.ErrItemNotFound
	}
	if it.Quantity <= 0 {
		return 0, domain.ErrOutOfStock
	}
	it.Quantity--
	it.UpdatedAt = time.Now().UTC()
	r.items[id] = it
	return it.Quantity, nil
}

func (r *ItemRepository) IncrementStock(_ context.Context, id string, amount int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[id]
	if !ok {
		return 0, domain.ErrItemNotFound
	}
	if amount > math.MaxInt-it.Quantity {
		return 0, fmt.Errorf("%w: restock would overflow quantity", domain.ErrInvalidInput)
	}
	it.Quantity += amount
	it.UpdatedAt = time.Now().UTC()
	r.items[id] = it
	return it.Quantity, nil
}

// sorted returns matching items ordered by ID. Callers hold r.mu.
func (r *ItemRepository) sorted(match func(domain.Item) bool) []domain.Item {
	out := make([]domain.Item, 0, len(r.items))
	for _, it := range r.items {
		if match(it) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.ParseInt(out[i].ID, 10, 64)
		b, _ := strconv.ParseInt(out[j].ID, 10, 64)
		return a < b
	})
	return out
}
