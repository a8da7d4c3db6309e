package shop

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProductRepository defines persistence operations for the catalog
type ProductRepository interface {
	Upsert(ctx context.Context, p *Product) (*Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	ListActive(ctx context.Context) ([]*Product, error)
}

// MongoProductRepository implements ProductRepository using MongoDB
type MongoProductRepository struct {
	col *mongo.Collection
}

func NewMongoProductRepository(col *mongo.Collection) *MongoProductRepository {
	return &MongoProductRepository{col: col}
}

func (r *MongoProductRepository) Upsert(ctx context.Context, p *Product) (*Product, error) {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	filter := bson.M{"_id": p.ID}
	update := bson.M{
		"$set": bson.M{
			"name":        p.Name,
			"description": p.Description,
			"pricePetals": p.PricePetals,
			"imageKey":    p.ImageKey,
			"active":      p.Active,
			"updatedAt":   p.UpdatedAt,
		},
		"$setOnInsert": bson.M{"createdAt": p.CreatedAt},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var updated Product
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return p, nil
		}
		return nil, err
	}
	return &updated, nil
}

func (r *MongoProductRepository) GetByID(ctx context.Context, id string) (*Product, error) {
	var p Product
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *MongoProductRepository) ListActive(ctx context.Context) ([]*Product, error) {
	cur, err := r.col.Find(ctx, bson.M{"active": true}, options.Find().SetSort(bson.M{"name": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*Product
	for cur.Next(ctx) {
		var p Product
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, cur.Err()
}

// MemoryProductRepository is the in-memory catalog used by unit tests and by
// local development without Mongo.
type MemoryProductRepository struct {
	mu    sync.RWMutex
	items map[string]*Product
}

func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{items: make(map[string]*Product)}
}

func (r *MemoryProductRepository) Upsert(ctx context.Context, p *Product) (*Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.items[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	cp := *p
	r.items[p.ID] = &cp
	return &cp, nil
}

func (r *MemoryProductRepository) GetByID(ctx context.Context, id string) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryProductRepository) ListActive(ctx context.Context) ([]*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Product
	for _, p := range r.items {
		if p.Active {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}
