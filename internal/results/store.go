// Package results persists summaries of finished games: a Redis record
// with a bounded recent list, plus an optional Postgres upsert. Live
// room state is never read back from either store.
package results

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/tycoon-rooms/internal/obslog"
)

const (
	ttlResult  = 24 * time.Hour
	recentKeep = 50
)

// Summary is one finished game.
type Summary struct {
	Code       string    `json:"code"`
	WinnerSeat *int      `json:"winnerSeat,omitempty"`
	WinnerName string    `json:"winnerName,omitempty"`
	Players    []string  `json:"players"`
	Balances   []int     `json:"balances"`
	StartedAt  time.Time `json:"startedAt"`
	EndedAt    time.Time `json:"endedAt"`
}

// Store writes summaries to Redis and, when configured, mirrors them
// into Postgres. Either backend may be absent.
type Store struct {
	rdb  *redis.Client
	repo *Repository
}

func NewStore(rdb *redis.Client, repo *Repository) *Store {
	return &Store{rdb: rdb, repo: repo}
}

func (s *Store) keyResult(code string, endedAt time.Time) string {
	return "game:result:" + strings.TrimSpace(code) + ":" + endedAt.UTC().Format(time.RFC3339)
}

func (s *Store) keyRecent() string { return "game:recent" }

// Save records the summary in every configured backend. Backend
// failures are logged, not propagated: losing a result must never take
// a room down with it.
func (s *Store) Save(ctx context.Context, sum Summary) {
	if s == nil {
		return
	}
	if s.rdb != nil {
		if err := s.saveRedis(ctx, sum); err != nil {
			obslog.L().Warn("result_redis_save_failed", zap.String("code", sum.Code), zap.Error(err))
		}
	}
	if s.repo != nil {
		if err := s.repo.Upsert(ctx, sum); err != nil {
			obslog.L().Warn("result_db_save_failed", zap.String("code", sum.Code), zap.Error(err))
		}
	}
}

func (s *Store) saveRedis(ctx context.Context, sum Summary) error {
	raw, err := json.Marshal(sum)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.keyResult(sum.Code, sum.EndedAt), raw, ttlResult).Err(); err != nil {
		return err
	}
	if err := s.rdb.LPush(ctx, s.keyRecent(), raw).Err(); err != nil {
		return err
	}
	if err := s.rdb.LTrim(ctx, s.keyRecent(), 0, recentKeep-1).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, s.keyRecent(), ttlResult).Err()
}

// Recent returns up to n of the most recently finished games, newest
// first.
func (s *Store) Recent(ctx context.Context, n int) ([]Summary, error) {
	if s == nil || s.rdb == nil {
		return nil, nil
	}
	if n <= 0 || n > recentKeep {
		n = recentKeep
	}
	raws, err := s.rdb.LRange(ctx, s.keyRecent(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(raws))
	for _, raw := range raws {
		var sum Summary
		if err := json.Unmarshal([]byte(raw), &sum); err != nil {
			continue
		}
		out = append(out, sum)
	}
	return out, nil
}
