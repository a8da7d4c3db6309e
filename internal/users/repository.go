package users

import (
	"context"
	"errors"

	"github.com/hanabira/hanabira/backend/go-services/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository defines persistence operations for users
type UserRepository interface {
	UpsertBySub(ctx context.Context, u *models.User) (*models.User, error)
	GetBySub(ctx context.Context, sub string) (*models.User, error)
}

// PostgresUserRepository implements UserRepository on the same database that
// holds the balances, so the economy core can reference users.id directly.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

func (r *PostgresUserRepository) UpsertBySub(ctx context.Context, u *models.User) (*models.User, error) {
	var out models.User
	err := r.pool.QueryRow(ctx, `
        INSERT INTO users (sub, email, name)
        VALUES ($1, $2, $3)
        ON CONFLICT (sub) DO UPDATE
        SET email = EXCLUDED.email, name = EXCLUDED.name, updated_at = now()
        RETURNING id, sub, email, name, petals, runes, created_at, updated_at
    `, u.Sub, u.Email, u.Name).Scan(
		&out.ID,
		&out.Sub,
		&out.Email,
		&out.Name,
		&out.Petals,
		&out.Runes,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PostgresUserRepository) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
        SELECT id, sub, email, name, petals, runes, created_at, updated_at
        FROM users
        WHERE sub = $1
    `, sub).Scan(
		&u.ID,
		&u.Sub,
		&u.Email,
		&u.Name,
		&u.Petals,
		&u.Runes,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
