package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr     string
	PublicBaseURL  string
	AllowedOrigins []string

	RedisURL    string
	DatabaseURL string

	TrackLength     int
	MaxSeats        int
	StartingBalance int
	PassStartBonus  int
	HistoryLimit    int

	HostGracePeriod time.Duration
	AuctionStart    time.Duration
	AuctionSettle   time.Duration
	ContestProgress time.Duration
	ContestReveal   time.Duration
	ContestTieDelay time.Duration

	MessageDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:      ":3001",
		TrackLength:     36,
		MaxSeats:        4,
		StartingBalance: 12500,
		PassStartBonus:  1000,
		HistoryLimit:    10,
		HostGracePeriod: 60 * time.Second,
		AuctionStart:    3 * time.Second,
		AuctionSettle:   5 * time.Second,
		ContestProgress: 8 * time.Second,
		ContestReveal:   4 * time.Second,
		ContestTieDelay: 3 * time.Second,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")), "/")
	for _, o := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MessageDir = strings.TrimSpace(os.Getenv("MESSAGE_DIR"))

	if v := strings.TrimSpace(os.Getenv("TRACK_LENGTH")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 8 {
			cfg.TrackLength = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("STARTING_BALANCE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.StartingBalance = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("PASS_START_BONUS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.PassStartBonus = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("HISTORY_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("HOST_GRACE_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HostGracePeriod = time.Duration(n) * time.Second
		}
	}

	if cfg.ListenAddr == "" {
		return nil, errors.New("LISTEN_ADDR is required")
	}
	if cfg.MaxSeats < 2 || cfg.MaxSeats > 4 {
		return nil, errors.New("max seats must be between 2 and 4")
	}
	return cfg, nil
}
