package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Repository mirrors finished-game summaries into Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	r := &Repository{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS game_results (
		code        TEXT        NOT NULL,
		winner_seat INTEGER,
		winner_name TEXT        NOT NULL DEFAULT '',
		players     JSONB       NOT NULL,
		balances    JSONB       NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL,
		ended_at    TIMESTAMPTZ NOT NULL,
		duration_ms BIGINT      NOT NULL DEFAULT 0,
		PRIMARY KEY (code, ended_at)
	)`)
	return err
}

// Upsert writes one summary, replacing an earlier write for the same
// room and end time.
func (r *Repository) Upsert(ctx context.Context, sum Summary) error {
	if r == nil || r.db == nil {
		return nil
	}
	playersRaw, _ := json.Marshal(sum.Players)
	balancesRaw, _ := json.Marshal(sum.Balances)
	duration := sum.EndedAt.Sub(sum.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}
	var winner sql.NullInt64
	if sum.WinnerSeat != nil {
		winner = sql.NullInt64{Int64: int64(*sum.WinnerSeat), Valid: true}
	}
	q := `INSERT INTO game_results (
		code, winner_seat, winner_name, players, balances,
		started_at, ended_at, duration_ms
	  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	  ON CONFLICT (code, ended_at) DO UPDATE SET
		winner_seat=EXCLUDED.winner_seat,
		winner_name=EXCLUDED.winner_name,
		players=EXCLUDED.players,
		balances=EXCLUDED.balances,
		started_at=EXCLUDED.started_at,
		duration_ms=EXCLUDED.duration_ms`
	_, err := r.db.ExecContext(ctx, q,
		sum.Code, winner, sum.WinnerName, playersRaw, balancesRaw,
		sum.StartedAt, sum.EndedAt, duration)
	return err
}
