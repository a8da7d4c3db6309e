package sessions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRepository_CreateGetDelete(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "test:session:")

	ctx := context.Background()
	s := &Session{
		RefreshToken: "r1",
		Sub:          "sub-1",
		CreatedAt:    time.Now().UTC(),
		ExpiresAt:    time.Now().UTC().Add(5 * time.Second),
	}

	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.GetByRefresh(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, s.Sub, got.Sub)

	require.NoError(t, repo.DeleteByRefresh(ctx, "r1"))
	got2, err := repo.GetByRefresh(ctx, "r1")
	require.NoError(t, err)
	require.Nil(t, got2)
}

func TestRedisRepository_TTLExpiry(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "test:session:")

	ctx := context.Background()
	s := &Session{
		RefreshToken: "r2",
		Sub:          "sub-2",
		CreatedAt:    time.Now().UTC(),
		ExpiresAt:    time.Now().UTC().Add(1 * time.Second),
	}

	require.NoError(t, repo.Create(ctx, s))

	// miniredis requires explicit clock advancement for TTLs
	m.FastForward(2 * time.Second)

	got, err := repo.GetByRefresh(ctx, "r2")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestServiceCreateValidate(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	svc := NewService(NewRedisRepository(client, "test:session:"))
	ctx := context.Background()

	token, err := svc.CreateSession(ctx, "sub-3", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	sess, err := svc.ValidateRefresh(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Equal(t, "sub-3", sess.Sub)

	require.NoError(t, svc.DeleteRefresh(ctx, token))
	sess, err = svc.ValidateRefresh(ctx, token)
	require.NoError(t, err)
	require.Nil(t, sess)
}
