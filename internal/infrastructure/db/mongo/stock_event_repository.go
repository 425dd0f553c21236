package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sweetshop/inventory-service/internal/core/domain"
	"github.com/sweetshop/inventory-service/internal/core/ports"
)

const collectionStockEvents = "stock_events"

// StockEventRepository implements ports.StockEventRepository using MongoDB.
type StockEventRepository struct {
	col *mongo.Collection
}

// NewStockEventRepository creates a new StockEventRepository.
func NewStockEventRepository(db *mongo.Database) *StockEventRepository {
	return &StockEventRepository{col: db.Collection(collectionStockEvents)}
}

var _ ports.StockEventRepository = (*StockEventRepository)(nil)

// InsertEvent appends a stock event to the stock_events audit collection.
func (r *StockEventRepository) InsertEvent(ctx context.Context, event *domain.StockEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"item_id":      event.ItemID,
		"kind":         string(event.Kind),
		"delta":        event.Delta,
		"quantity":     event.Quantity,
		"actor":        event.Actor,
		"occurred_at":  event.OccurredAt.UTC(),
		"processed_at": time.Now().UTC(),
	}

	_, err := r.col.InsertOne(ctx, doc)
	return err
}

// EnsureIndexes creates the per-item history index.
func (r *StockEventRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "item_id", Value: 1}, {Key: "occurred_at", Value: 1}},
	})
	return err
}
