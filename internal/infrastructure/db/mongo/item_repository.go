package mongo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sweetshop/inventory-service/internal/core/domain"
	"github.com/sweetshop/inventory-service/internal/core/ports"
)

const collectionSweets = "sweets"

type ItemRepository struct {
	col *mongo.Collection
}

func NewItemRepository(db *mongo.Database) *ItemRepository {
	return &ItemRepository{col: db.Collection(collectionSweets)}
}

type mongoItem struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Category    string             `bson:"category"`
	Price       float64            `bson:"price"`
	Quantity    int                `bson:"quantity"`
	Description string             `bson:"description"`
	ImageURL    string             `bson:"image_url,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (m mongoItem) toDomain() domain.Item {
	return domain.Item{
		ID:          m.ID.Hex(),
		Name:        m.Name,
		Category:    m.Category,
		Price:       m.Price,
		Quantity:    m.Quantity,
		Description: m.Description,
		ImageURL:    m.ImageURL,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

// List returns every item in the collection.
func (r *ItemRepository) List(ctx context.Context) ([]domain.Item, error) {
	return r.find(ctx, bson.M{})
}

// Search applies the filter as case-insensitive regex matches and an
// inclusive price range.
func (r *ItemRepository) Search(ctx context.Context, f ports.ItemFilter) ([]domain.Item, error) {
	return r.find(ctx, searchFilter(f))
}

func searchFilter(f ports.ItemFilter) bson.M {
	filter := bson.M{}
	if f.Name != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(f.Name), "$options": "i"}
	}
	if f.Category != "" {
		filter["category"] = bson.M{"$regex": regexp.QuoteMeta(f.Category), "$options": "i"}
	}
	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	return filter
}

func (r *ItemRepository) find(ctx context.Context, filter bson.M) ([]domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoItem
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}

	items := make([]domain.Item, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.toDomain())
	}
	return items, nil
}

func (r *ItemRepository) FindByID(ctx context.Context, id string) (*domain.Item, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, domain.ErrItemNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoItem
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("find item: %w", err)
	}
	item := doc.toDomain()
	return &item, nil
}

func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoItem{
		ID:          primitive.NewObjectID(),
		Name:        item.Name,
		Category:    item.Category,
		Price:       item.Price,
		Quantity:    item.Quantity,
		Description: item.Description,
		ImageURL:    item.ImageURL,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	created := doc.toDomain()
	return &created, nil
}

// Update sets only the fields present in patch.
func (r *ItemRepository) Update(ctx context.Context, id string, patch domain.ItemPatch) (*domain.Item, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, domain.ErrItemNotFound
	}

	set := patchDocument(patch)
	set["updated_at"] = time.Now().UTC()

	return r.findOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
}

func patchDocument(p domain.ItemPatch) bson.M {
	set := bson.M{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	if p.Price != nil {
		set["price"] = *p.Price
	}
	if p.Quantity != nil {
		set["quantity"] = *p.Quantity
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.ImageURL != nil {
		set["image_url"] = *p.ImageURL
	}
	return set
}

func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return domain.ErrItemNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// DecrementStock is a single conditional write guarded by quantity > 0.
// When nothing matches, a follow-up lookup tells a missing item apart from
// an empty one.
func (r *ItemRepository) DecrementStock(ctx context.Context, id string) (int, error) {
	oid, err := parseID(id)
	if err != nil {
		return 0, domain.ErrItemNotFound
	}

	filter := bson.M{"_id": oid, "quantity": bson.M{"$gt": 0}}
	update := bson.M{
		"$inc": bson.M{"quantity": -1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	item, err := r.findOneAndUpdate(ctx, filter, update)
	if err == nil {
		return item.Quantity, nil
	}
	if !errors.Is(err, domain.ErrItemNotFound) {
		return 0, err
	}

	if _, err := r.FindByID(ctx, id); err != nil {
		return 0, err
	}
	return 0, domain.ErrOutOfStock
}

// IncrementStock atomically adds amount to the stored quantity. The write is
// guarded so the sum cannot leave the int64 range; an item that exists but
// fails the guard yields domain.ErrInvalidInput.
func (r *ItemRepository) IncrementStock(ctx context.Context, id string, amount int) (int, error) {
	oid, err := parseID(id)
	if err != nil {
		return 0, domain.ErrItemNotFound
	}

	update := bson.M{
		"$inc": bson.M{"quantity": amount},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	item, err := r.findOneAndUpdate(ctx, incrementFilter(oid, amount), update)
	if err == nil {
		return item.Quantity, nil
	}
	if !errors.Is(err, domain.ErrItemNotFound) {
		return 0, err
	}

	if _, err := r.FindByID(ctx, id); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("%w: restock would overflow quantity", domain.ErrInvalidInput)
}

func incrementFilter(oid primitive.ObjectID, amount int) bson.M {
	return bson.M{"_id": oid, "quantity": bson.M{"$lte": math.MaxInt64 - int64(amount)}}
}

func (r *ItemRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc mongoItem
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("update item: %w", err)
	}
	item := doc.toDomain()
	return &item, nil
}

// EnsureIndexes creates the indexes used by catalog queries.
func (r *ItemRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
