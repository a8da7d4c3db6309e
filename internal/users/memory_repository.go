package users

import (
	"context"
	"sync"
	"time"

	"github.com/hanabira/hanabira/backend/go-services/internal/models"
)

// MemoryUserRepository keeps users in process. It backs local development when
// Postgres is unavailable; OnCreate lets the caller register new ids with the
// in-memory ledger store.
type MemoryUserRepository struct {
	mu       sync.Mutex
	bySub    map[string]*models.User
	nextID   int64
	OnCreate func(id int64)
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{bySub: make(map[string]*models.User), nextID: 1}
}

func (r *MemoryUserRepository) UpsertBySub(ctx context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.bySub[u.Sub]; ok {
		existing.Email = u.Email
		existing.Name = u.Name
		existing.UpdatedAt = now
		cp := *existing
		return &cp, nil
	}
	created := &models.User{
		ID:        r.nextID,
		Sub:       u.Sub,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.nextID++
	r.bySub[u.Sub] = created
	if r.OnCreate != nil {
		r.OnCreate(created.ID)
	}
	cp := *created
	return &cp, nil
}

func (r *MemoryUserRepository) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.bySub[sub]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}
