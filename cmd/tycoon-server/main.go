package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appcfg "github.com/park285/tycoon-rooms/internal/config"
	"github.com/park285/tycoon-rooms/internal/joinqr"
	"github.com/park285/tycoon-rooms/internal/msgcat"
	"github.com/park285/tycoon-rooms/internal/obslog"
	"github.com/park285/tycoon-rooms/internal/results"
	"github.com/park285/tycoon-rooms/internal/room"
	"github.com/park285/tycoon-rooms/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()

	cat, err := msgcat.New(cfg.MessageDir)
	if err != nil {
		logger.Fatal("message catalog init failed", zap.Error(err))
	}

	// Both result backends are optional; without them finished games
	// are simply not recorded.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis url invalid", zap.Error(err))
		}
		rdb = redis.NewClient(opt)
		pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pctx).Err(); err != nil {
			logger.Warn("redis unreachable, results disabled", zap.Error(err))
			rdb = nil
		}
		cancel()
	}
	var repo *results.Repository
	if cfg.DatabaseURL != "" {
		repo, err = results.NewRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Warn("postgres unreachable, archive disabled", zap.Error(err))
			repo = nil
		}
	}
	sink := results.NewStore(rdb, repo)

	reg := room.NewRegistry(cfg, cat, sink)

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(reg, cfg.AllowedOrigins))
	mux.Handle("/join/", joinqr.NewHandler(reg, cfg.PublicBaseURL))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server_listen", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("server_shutdown")

	reg.CloseAll("Server shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(sctx)

	if rdb != nil {
		_ = rdb.Close()
	}
	if repo != nil {
		_ = repo.Close()
	}
	_ = logger.Sync()
}
