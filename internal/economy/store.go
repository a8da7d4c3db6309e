package economy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the persistence boundary of the economy core. The balance and its
// ledger entry must change together or not at all, so both mutations live in a
// single store call rather than separate balance/ledger operations.
type Store interface {
	// Balance returns the current balance, 0 for users without a row yet.
	Balance(ctx context.Context, userID int64, cur Currency) (int64, error)
	// Earn credits amount and appends an earn entry. When dailyCap > 0 the
	// cumulative earn for (user, currency, reason) since UTC midnight is
	// checked inside the same transaction; exceeding it fails with
	// ErrDailyCapExceeded and leaves no trace.
	Earn(ctx context.Context, userID int64, cur Currency, amount int64, reason string, metadata map[string]any, dailyCap int64) (int64, error)
	// Spend debits amount with a single conditional update and appends a spend
	// entry. Fails with ErrInsufficientFunds when the balance would go
	// negative; never applies a partial write.
	Spend(ctx context.Context, userID int64, cur Currency, amount int64, reason string, metadata map[string]any) (int64, error)
	// EarnedToday sums today's (UTC) earn entries for the user and reason.
	EarnedToday(ctx context.Context, userID int64, cur Currency, reason string) (int64, error)
	// Entries lists a user's ledger entries, newest first.
	Entries(ctx context.Context, userID int64, limit, offset int) ([]LedgerEntry, error)
}

// PostgresStore implements Store on a pgx pool. The overdraft guard is the
// conditional UPDATE itself: concurrent spends serialize on the user row and
// the losing one sees zero affected rows.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// column maps a currency to its balance column. Currencies are a closed set;
// anything else is a programming error surfaced before SQL is built.
func column(cur Currency) (string, error) {
	switch cur {
	case CurrencyPetals:
		return "petals", nil
	case CurrencyRunes:
		return "runes", nil
	}
	return "", fmt.Errorf("unknown currency %q", cur)
}

func (s *PostgresStore) Balance(ctx context.Context, userID int64, cur Currency) (int64, error) {
	col, err := column(cur)
	if err != nil {
		return 0, err
	}
	var balance int64
	err = s.pool.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM users WHERE id = $1", col), userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}

func (s *PostgresStore) Earn(ctx context.Context, userID int64, cur Currency, amount int64, reason string, metadata map[string]any, dailyCap int64) (int64, error) {
	col, err := column(cur)
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if dailyCap > 0 {
		earned, err := sumEarnedSince(ctx, tx, userID, cur, reason, utcMidnight())
		if err != nil {
			return 0, err
		}
		if earned+amount > dailyCap {
			return 0, ErrDailyCapExceeded
		}
	}

	var balance int64
	err = tx.QueryRow(ctx, fmt.Sprintf(
		"UPDATE users SET %s = %s + $1, updated_at = now() WHERE id = $2 RETURNING %s", col, col, col,
	), amount, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}

	if err := insertEntry(ctx, tx, userID, cur, EntryEarn, amount, reason, metadata); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *PostgresStore) Spend(ctx context.Context, userID int64, cur Currency, amount int64, reason string, metadata map[string]any) (int64, error) {
	col, err := column(cur)
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Single conditional update: the balance check and the debit are one
	// statement, so two racing spends can never both pass the check.
	var balance int64
	err = tx.QueryRow(ctx, fmt.Sprintf(
		"UPDATE users SET %s = %s - $1, updated_at = now() WHERE id = $2 AND %s >= $1 RETURNING %s", col, col, col, col,
	), amount, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// no row matched: either the user is missing or the funds are
			var exists bool
			if perr := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", userID).Scan(&exists); perr != nil {
				return 0, perr
			}
			if !exists {
				return 0, ErrUserNotFound
			}
			return 0, ErrInsufficientFunds
		}
		return 0, err
	}

	if err := insertEntry(ctx, tx, userID, cur, EntrySpend, amount, reason, metadata); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *PostgresStore) EarnedToday(ctx context.Context, userID int64, cur Currency, reason string) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx, `
        SELECT COALESCE(SUM(amount), 0)
        FROM ledger_entries
        WHERE user_id = $1 AND currency = $2 AND reason = $3 AND entry_type = 'earn' AND created_at >= $4
    `, userID, string(cur), reason, utcMidnight()).Scan(&total)
	return total, err
}

func (s *PostgresStore) Entries(ctx context.Context, userID int64, limit, offset int) ([]LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
        SELECT id, user_id, currency, entry_type, amount, reason, metadata, created_at
        FROM ledger_entries
        WHERE user_id = $1
        ORDER BY id DESC
        LIMIT $2 OFFSET $3
    `, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var (
			e    LedgerEntry
			meta []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Currency, &e.Type, &e.Amount, &e.Reason, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode entry %d metadata: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func sumEarnedSince(ctx context.Context, tx pgx.Tx, userID int64, cur Currency, reason string, since time.Time) (int64, error) {
	var total int64
	err := tx.QueryRow(ctx, `
        SELECT COALESCE(SUM(amount), 0)
        FROM ledger_entries
        WHERE user_id = $1 AND currency = $2 AND reason = $3 AND entry_type = 'earn' AND created_at >= $4
    `, userID, string(cur), reason, since).Scan(&total)
	return total, err
}

func insertEntry(ctx context.Context, tx pgx.Tx, userID int64, cur Currency, typ EntryType, amount int64, reason string, metadata map[string]any) error {
	meta := metadata
	if meta == nil {
		meta = map[string]any{}
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = tx.Exec(ctx, `
        INSERT INTO ledger_entries (user_id, currency, entry_type, amount, reason, metadata)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, userID, string(cur), string(typ), amount, reason, b)
	return err
}

func utcMidnight() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
