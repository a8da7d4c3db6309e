package users

import (
	"context"
	"testing"
	"time"

	"github.com/hanabira/hanabira/backend/go-services/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	lastUpsert *models.User
	upsertErr  error
	stored     map[string]*models.User
}

func (f *fakeRepo) UpsertBySub(ctx context.Context, u *models.User) (*models.User, error) {
	f.lastUpsert = u
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	now := time.Now().UTC()
	ret := *u
	ret.ID = 42
	ret.CreatedAt = now
	ret.UpdatedAt = now
	return &ret, nil
}

func (f *fakeRepo) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	if f.stored == nil {
		return nil, nil
	}
	return f.stored[sub], nil
}

func TestUpsertFromClaims(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	u, err := svc.UpsertFromClaims(ctx, map[string]interface{}{
		"sub":   "sub-123",
		"email": "x@example.com",
		"name":  "X User",
	})
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Equal(t, "sub-123", u.Sub)
	require.Equal(t, "x@example.com", u.Email)
	require.Equal(t, int64(42), u.ID)
	require.NotNil(t, repo.lastUpsert)

	// new users start with empty balances
	require.Zero(t, u.Petals)
	require.Zero(t, u.Runes)
}

func TestUpsertFromClaims_MissingSub(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	u, err := svc.UpsertFromClaims(context.Background(), map[string]interface{}{"email": "y@e.com"})
	require.NoError(t, err)
	require.Nil(t, u)
	require.Nil(t, repo.lastUpsert)
}

func TestGetBySub(t *testing.T) {
	repo := &fakeRepo{stored: map[string]*models.User{
		"s1": {ID: 7, Sub: "s1", Petals: 120},
	}}
	svc := NewService(repo)

	u, err := svc.GetBySub(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Equal(t, int64(120), u.Petals)

	u, err = svc.GetBySub(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, u)
}
