package soapstone

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository provides message persistence operations
type Repository interface {
	Insert(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	ListByZone(ctx context.Context, zone string, limit int) ([]*Message, error)
	// Appraise atomically increments the appraisal counter and returns the
	// updated message, or nil when the id is unknown.
	Appraise(ctx context.Context, id string) (*Message, error)
}

// MongoRepository implements Repository using a Mongo collection
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Insert(ctx context.Context, m *Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, m)
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*Message, error) {
	var m Message
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *MongoRepository) ListByZone(ctx context.Context, zone string, limit int) ([]*Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{"zone": zone}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*Message
	for cur.Next(ctx) {
		var m Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, cur.Err()
}

func (r *MongoRepository) Appraise(ctx context.Context, id string) (*Message, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var m Message
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"appraisals": 1}}, opts).Decode(&m)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// MemoryRepository is the in-memory message store used by unit tests and by
// local development without Mongo.
type MemoryRepository struct {
	mu    sync.Mutex
	items map[string]*Message
	order []string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]*Message)}
}

func (r *MemoryRepository) Insert(ctx context.Context, m *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	cp := *m
	r.items[m.ID] = &cp
	r.order = append(r.order, m.ID)
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *MemoryRepository) ListByZone(ctx context.Context, zone string, limit int) ([]*Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Message
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		m := r.items[r.order[i]]
		if m.Zone == zone {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Appraise(ctx context.Context, id string) (*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	m.Appraisals++
	cp := *m
	return &cp, nil
}
