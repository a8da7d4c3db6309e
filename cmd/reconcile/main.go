package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hanabira/hanabira/backend/go-services/internal/config"
	"github.com/hanabira/hanabira/backend/go-services/internal/database"
	"github.com/hanabira/hanabira/backend/go-services/pkg/logger"
)

// reconcile walks every user and checks that the stored balances equal the
// signed sum of their ledger entries. Non-zero exit on any drift, which makes
// it usable as a cron'd invariant check.
func main() {
	verbose := flag.Bool("v", false, "log every user, not only drifted ones")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.Postgres.URL == "" {
		logger.Fatalf("POSTGRES_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.ConnectPostgres(ctx, cfg.Postgres.URL, cfg.Postgres.Timeout)
	if err != nil {
		logger.Fatalf("cannot connect to Postgres: %v", err)
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, `
        SELECT u.id,
               u.petals,
               u.runes,
               COALESCE(SUM(CASE WHEN l.currency = 'petals' AND l.entry_type = 'earn'  THEN l.amount
                                 WHEN l.currency = 'petals' AND l.entry_type = 'spend' THEN -l.amount
                                 ELSE 0 END), 0) AS petal_sum,
               COALESCE(SUM(CASE WHEN l.currency = 'runes' AND l.entry_type = 'earn'  THEN l.amount
                                 WHEN l.currency = 'runes' AND l.entry_type = 'spend' THEN -l.amount
                                 ELSE 0 END), 0) AS rune_sum
        FROM users u
        LEFT JOIN ledger_entries l ON l.user_id = u.id
        GROUP BY u.id, u.petals, u.runes
        ORDER BY u.id
    `)
	if err != nil {
		logger.Fatalf("query failed: %v", err)
	}
	defer rows.Close()

	var checked, drifted int
	for rows.Next() {
		var id, petals, runes, petalSum, runeSum int64
		if err := rows.Scan(&id, &petals, &runes, &petalSum, &runeSum); err != nil {
			logger.Fatalf("scan failed: %v", err)
		}
		checked++
		if petals != petalSum || runes != runeSum {
			drifted++
			fmt.Printf("DRIFT user=%d petals=%d ledger_petals=%d runes=%d ledger_runes=%d\n",
				id, petals, petalSum, runes, runeSum)
			continue
		}
		if *verbose {
			fmt.Printf("ok user=%d petals=%d runes=%d\n", id, petals, runes)
		}
	}
	if err := rows.Err(); err != nil {
		logger.Fatalf("row iteration failed: %v", err)
	}

	fmt.Printf("reconcile: %d users checked, %d drifted\n", checked, drifted)
	if drifted > 0 {
		os.Exit(1)
	}
}
