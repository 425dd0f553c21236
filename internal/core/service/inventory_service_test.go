package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sweetshop/inventory-service/internal/core/domain"
	"github.com/sweetshop/inventory-service/internal/core/ports"
	"github.com/sweetshop/inventory-service/internal/infrastructure/db/memory"
)

type stubCache struct {
	mu          sync.Mutex
	generation  int64
	list        []domain.Item
	search      map[string][]domain.Item
	invalidated int
}

func newStubCache() *stubCache { return &stubCache{search: map[string][]domain.Item{}} }

func (c *stubCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation, nil
}

func (c *stubCache) GetList(context.Context) ([]domain.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list, nil
}

func (c *stubCache) SetList(_ context.Context, gen int64, items []domain.Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.generation {
		c.list = items
	}
	return nil
}

func (c *stubCache) GetSearch(_ context.Context, key string) ([]domain.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.search[key], nil
}

func (c *stubCache) SetSearch(_ context.Context, gen int64, key string, items []domain.Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.generation {
		c.search[key] = items
	}
	return nil
}

func (c *stubCache) InvalidateAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.list = nil
	c.search = map[string][]domain.Item{}
	c.invalidated++
	return nil
}

// racingRepo runs onRead after each List or Search, between the store read
// and the cache fill.
type racingRepo struct {
	*memory.ItemRepository
	onRead func()
}

func (r *racingRepo) List(ctx context.Context) ([]domain.Item, error) {
	items, err := r.ItemRepository.List(ctx)
	if r.onRead != nil {
		r.onRead()
	}
	return items, err
}

func (r *racingRepo) Search(ctx context.Context, f ports.ItemFilter) ([]domain.Item, error) {
	items, err := r.ItemRepository.Search(ctx, f)
	if r.onRead != nil {
		r.onRead()
	}
	return items, err
}

type stubPublisher struct {
	mu     sync.Mutex
	events []ports.StockEventInput
}

func (p *stubPublisher) Publish(e ports.StockEventInput) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func ptr[T any](v T) *T { return &v }

func newInventory(t *testing.T, opts ...InventoryOption) (*InventoryService, *memory.ItemRepository) {
	t.Helper()
	repo := memory.NewItemRepository()
	return NewInventoryService(repo, zerolog.Nop(), opts...), repo
}

func mustCreate(t *testing.T, svc *InventoryService, in ports.CreateItemInput) *domain.Item {
	t.Helper()
	item, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return item
}

func TestInventoryService_Create(t *testing.T) {
	svc, _ := newInventory(t)

	item := mustCreate(t, svc, ports.CreateItemInput{Name: "Ladoo", Category: "Indian", Price: 5, Quantity: 10})
	if item.ID == "" {
		t.Fatalf("expected id to be assigned")
	}
	if item.CreatedAt.IsZero() || !item.CreatedAt.Equal(item.UpdatedAt) {
		t.Fatalf("expected timestamps to be set: %+v", item)
	}
}

func TestInventoryService_Create_InvalidInput(t *testing.T) {
	svc, _ := newInventory(t)

	cases := map[string]ports.CreateItemInput{
		"negative price":    {Name: "x", Category: "y", Price: -1},
		"nan price":         {Name: "x", Category: "y", Price: math.NaN()},
		"negative quantity": {Name: "x", Category: "y", Quantity: -3},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), in); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestInventoryService_List_EmptyIsNotNil(t *testing.T) {
	svc, _ := newInventory(t)

	items, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", items)
	}
}

func TestInventoryService_Search(t *testing.T) {
	svc, _ := newInventory(t)
	mustCreate(t, svc, ports.CreateItemInput{Name: "Ladoo", Category: "Indian", Price: 5.0, Quantity: 1})
	mustCreate(t, svc, ports.CreateItemInput{Name: "Toffee", Category: "British", Price: 2.0, Quantity: 1})
	ctx := context.Background()

	tests := []struct {
		name string
		in   ports.SearchItemsInput
		want int
	}{
		{"name fragment", ports.SearchItemsInput{Name: "lad"}, 1},
		{"category any case", ports.SearchItemsInput{Category: "IND"}, 1},
		{"min price excludes", ports.SearchItemsInput{Name: "lad", MinPrice: ptr(6.0)}, 0},
		{"max price only", ports.SearchItemsInput{MaxPrice: ptr(2.0)}, 1},
		{"nothing matches", ports.SearchItemsInput{Name: "zzz"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := svc.Search(ctx, tt.in)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if items == nil || len(items) != tt.want {
				t.Fatalf("expected %d items, got %#v", tt.want, items)
			}
		})
	}
}

func TestInventoryService_Update(t *testing.T) {
	svc, _ := newInventory(t)
	item := mustCreate(t, svc, ports.CreateItemInput{Name: "Ladoo", Category: "Indian", Price: 5, Quantity: 10})
	ctx := context.Background()

	updated, err := svc.Update(ctx, item.ID, ports.UpdateItemInput{Price: ptr(7.5)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Price != 7.5 || updated.Name != "Ladoo" || updated.Quantity != 10 {
		t.Fatalf("only price should change: %+v", updated)
	}

	same, err := svc.Update(ctx, item.ID, ports.UpdateItemInput{})
	if err != nil {
		t.Fatalf("empty Update: %v", err)
	}
	if same.Price != 7.5 {
		t.Fatalf("empty update should return current item, got %+v", same)
	}

	if _, err := svc.Update(ctx, "missing", ports.UpdateItemInput{Name: ptr("x")}); !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if _, err := svc.Update(ctx, item.ID, ports.UpdateItemInput{Quantity: ptr(-1)}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestInventoryService_Delete(t *testing.T) {
	svc, _ := newInventory(t)
	item := mustCreate(t, svc, ports.CreateItemInput{Name: "Ladoo", Category: "Indian", Price: 5})
	ctx := context.Background()

	if err := svc.Delete(ctx, item.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, item.ID); !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestInventoryService_Purchase_ConcurrentNeverOversells(t *testing.T) {
	svc, repo := newInventory(t)
	item := mustCreate(t, svc, ports.CreateItemInput{Name: "Ladoo", Category: "Indian", Price: 5, Quantity: 3})

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		remaining  []int
		outOfStock int
	)
	start := make(chan struct{})
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			qty, err := svc.Purchase(context.Background(), item.ID, "buyer@example.com")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				remaining = append(remaining, qty)
			case errors.Is(err, domain.ErrOutOfStock):
				outOfStock++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	sort.Ints(remaining)
	if len(remaining) != 3 || remaining[0] != 0 || remaining[1] != 1 || remaining[2] != 2 {
		t.Fatalf("expected remaining quantities {0,1,2}, got %v", remaining)
	}
	if outOfStock != 2 {
		t.Fatalf("expected 2 out-of-stock failures, got %d", outOfStock)
	}

	final, err := repo.FindByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if final.Quantity != 0 {
		t.Fatalf("expected final quantity 0, got %d", final.Quantity)
	}
}

func TestInventoryService_Purchase_NotFound(t *testing.T) {
	svc, _ := newInventory(t)
	if _, err := svc.Purchase(context.Background(), "missing", "buyer"); !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestInventoryService_RestockThenPurchase(t *testing.T) {
	svc, _ := newInventory(t)
	item := mustCreate(t, svc, ports.CreateItemInput{Name: "Ladoo", Category: "Indian", Price: 5, Quantity: 0})
	ctx := context.Background()

	if _, err := svc.Purchase(ctx, item.ID, "buyer"); !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock on empty stock, got %v", err)
	}

	qty, err := svc.Restock(ctx, item.ID, 5, "admin")
	if err != nil || qty != 5 {
		t.Fatalf("expected 5 after restock, got %d (%v)", qty, err)
	}
	qty, err = svc.Purchase(ctx, item.ID, "buyer")
	if err != nil || qty != 4 {
		t.Fatalf("expected 4 after purchase, got %d (%v)", qty, err)
	}
}

func TestInventoryService_Restock_InvalidAmount(t *testing.T) {
	svc, _ := newInventory(t)
	item := mustCreate(t, svc, ports.CreateItemInput{Name: "Ladoo", Category: "Indian", Price: 5})

	for _, amount := range []int{0, -2} {
		if _, err := svc.Restock(context.Background(), item.ID, amount, "admin"); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("amount %d: expected ErrInvalidInput, got %v", amount, err)
		}
	}
	if _, err := svc.Restock(context.Background(), "missing", 1, "admin"); !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestInventoryService_Restock_RejectsOverflow(t *testing.T) {
	pub := &stubPublisher{}
	svc, repo := newInventory(t, WithStockEvents(pub))
	item := mustCreate(t, svc, ports.CreateItemInput{Name: "Ladoo", Category: "Indian", Price: 5, Quantity: 1})
	ctx := context.Background()

	if _, err := svc.Restock(ctx, item.ID, math.MaxInt, "admin"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	stored, err := repo.FindByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if stored.Quantity != 1 {
		t.Fatalf("quantity must stay 1, got %d", stored.Quantity)
	}
	if len(pub.events) != 0 {
		t.Fatalf("rejected restock must not publish, got %+v", pub.events)
	}
}

func TestInventoryService_CacheIsInvalidatedOnWrites(t *testing.T) {
	cache := newStubCache()
	svc, _ := newInventory(t, WithCatalogCache(cache))
	ctx := context.Background()

	item := mustCreate(t, svc, ports.CreateItemInput{Name: "Ladoo", Category: "Indian", Price: 5, Quantity: 2})
	if _, err := svc.List(ctx); err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(cache.list) != 1 {
		t.Fatalf("expected list to be cached, got %v", cache.list)
	}

	before := cache.invalidated
	if _, err := svc.Purchase(ctx, item.ID, "buyer"); err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if cache.invalidated != before+1 || cache.list != nil {
		t.Fatalf("expected purchase to invalidate the cache")
	}

	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if items[0].Quantity != 1 {
		t.Fatalf("expected fresh quantity 1, got %d", items[0].Quantity)
	}
}

func TestInventoryService_StaleReadDoesNotRefillCache(t *testing.T) {
	cache := newStubCache()
	repo := &racingRepo{ItemRepository: memory.NewItemRepository()}
	svc := NewInventoryService(repo, zerolog.Nop(), WithCatalogCache(cache))
	ctx := context.Background()

	item := mustCreate(t, svc, ports.CreateItemInput{Name: "Ladoo", Category: "Indian", Price: 5, Quantity: 2})

	// A purchase lands after the read has seen quantity 2.
	repo.onRead = func() {
		repo.onRead = nil
		if _, err := svc.Purchase(ctx, item.ID, "buyer"); err != nil {
			t.Errorf("Purchase: %v", err)
		}
	}
	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if items[0].Quantity != 2 {
		t.Fatalf("expected the in-flight read to see 2, got %d", items[0].Quantity)
	}
	if cache.list != nil {
		t.Fatalf("stale list must not be cached, got %+v", cache.list)
	}

	repo.onRead = func() {
		repo.onRead = nil
		if _, err := svc.Restock(ctx, item.ID, 4, "admin"); err != nil {
			t.Errorf("Restock: %v", err)
		}
	}
	if _, err := svc.Search(ctx, ports.SearchItemsInput{Name: "lad"}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(cache.search) != 0 {
		t.Fatalf("stale search must not be cached, got %+v", cache.search)
	}

	fresh, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if fresh[0].Quantity != 5 || len(cache.list) != 1 {
		t.Fatalf("expected fresh quantity 5 to be cached, got %+v / %+v", fresh, cache.list)
	}
}

func TestInventoryService_ServesFromCache(t *testing.T) {
	cache := newStubCache()
	cache.search[searchKey(ports.ItemFilter{Name: "lad"})] = []domain.Item{{ID: "cached", Name: "Ladoo"}}
	svc, _ := newInventory(t, WithCatalogCache(cache))

	items, err := svc.Search(context.Background(), ports.SearchItemsInput{Name: "LAD"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(items) != 1 || items[0].ID != "cached" {
		t.Fatalf("expected cached result, got %+v", items)
	}
}

func TestInventoryService_PublishesStockEvents(t *testing.T) {
	pub := &stubPublisher{}
	svc, _ := newInventory(t, WithStockEvents(pub))
	item := mustCreate(t, svc, ports.CreateItemInput{Name: "Ladoo", Category: "Indian", Price: 5, Quantity: 1})
	ctx := context.Background()

	if _, err := svc.Purchase(ctx, item.ID, "buyer"); err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if _, err := svc.Purchase(ctx, item.ID, "buyer"); !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	if _, err := svc.Restock(ctx, item.ID, 3, "admin"); err != nil {
		t.Fatalf("Restock: %v", err)
	}

	if len(pub.events) != 2 {
		t.Fatalf("expected 2 events (failed purchase excluded), got %+v", pub.events)
	}
	purchase, restock := pub.events[0], pub.events[1]
	if purchase.Kind != "purchase" || purchase.Delta != -1 || purchase.Quantity != 0 || purchase.Actor != "buyer" {
		t.Fatalf("unexpected purchase event: %+v", purchase)
	}
	if restock.Kind != "restock" || restock.Delta != 3 || restock.Quantity != 3 || restock.Actor != "admin" {
		t.Fatalf("unexpected restock event: %+v", restock)
	}
}

func TestSearchKey(t *testing.T) {
	a := searchKey(ports.ItemFilter{Name: "Lad", Category: "IND", MinPrice: ptr(1.5)})
	b := searchKey(ports.ItemFilter{Name: "lad", Category: "ind", MinPrice: ptr(1.5)})
	if a != b {
		t.Fatalf("expected case-insensitive key, got %q vs %q", a, b)
	}
	if a != "lad|ind|1.5|*" {
		t.Fatalf("unexpected key %q", a)
	}
}
