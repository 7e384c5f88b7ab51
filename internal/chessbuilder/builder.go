package chessbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaitAPI/ChessDestroyer/internal/archive"
	"github.com/BaitAPI/ChessDestroyer/internal/assist"
	"github.com/BaitAPI/ChessDestroyer/internal/config"
	"github.com/BaitAPI/ChessDestroyer/internal/gameapi"
	"github.com/BaitAPI/ChessDestroyer/internal/msgcat"
	"github.com/BaitAPI/ChessDestroyer/internal/scoreboard"
)

// Deps are the long-lived collaborators of a client run.
type Deps struct {
	Client  *gameapi.Client
	Advisor *assist.Client
	Scores  *scoreboard.Service
	Archive archive.Repository
	Catalog *msgcat.Catalog

	redis *redis.Client
}

// New wires the game server client and the optional services. Redis and
// Postgres are used only when their URLs are set; the archive falls back to
// memory.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	client := gameapi.NewClient(cfg.ServerURL,
		gameapi.WithTimeout(cfg.RequestTimeout),
		gameapi.WithRetry(cfg.HTTPRetry))

	d := &Deps{Client: client, Catalog: catalog}

	if cfg.AssistEnabled {
		d.Advisor = assist.NewClient(cfg.AssistURL, assist.WithTimeout(cfg.RequestTimeout))
	}

	var opts []scoreboard.Option
	opts = append(opts, scoreboard.WithTimeout(cfg.RequestTimeout))
	if strings.TrimSpace(cfg.RedisURL) != "" {
		rdb, err := scoreboard.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			// The scoreboard works without a cache.
			logger.Warn("scoreboard_cache_unavailable", zap.Error(err))
		} else {
			d.redis = rdb
			opts = append(opts, scoreboard.WithCache(scoreboard.NewRedisCache(rdb, cfg.ScoreboardCacheTTL)))
		}
	}
	d.Scores = scoreboard.NewService(client, logger, opts...)

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, err := archive.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("init archive: %w", err)
		}
		d.Archive = repo
	} else {
		d.Archive = archive.NewMemoryRepository()
	}
	return d, nil
}

func (d *Deps) Close() error {
	var errs []error
	if d.Archive != nil {
		errs = append(errs, d.Archive.Close())
	}
	if d.redis != nil {
		errs = append(errs, d.redis.Close())
	}
	return errors.Join(errs...)
}
