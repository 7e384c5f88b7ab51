package scoreboard

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaitAPI/ChessDestroyer/pkg/chessdto"
)

// Source is the server endpoint behind the scoreboard.
type Source interface {
	Scoreboard(ctx context.Context, count int) ([]chessdto.ScoreEntry, error)
}

// Cache keeps the last good result per count.
type Cache interface {
	Load(ctx context.Context, count int) ([]chessdto.ScoreEntry, bool, error)
	Store(ctx context.Context, count int, rows []chessdto.ScoreEntry) error
}

type Service struct {
	src     Source
	cache   Cache
	logger  *zap.Logger
	timeout time.Duration
}

type Option func(*Service)

func WithCache(c Cache) Option { return func(s *Service) { s.cache = c } }

func WithTimeout(d time.Duration) Option { return func(s *Service) { s.timeout = d } }

func NewService(src Source, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{src: src, logger: logger, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchTop never fails: a server error falls back to the cache, then to an empty slice.
func (s *Service) FetchTop(ctx context.Context, n int) []chessdto.ScoreEntry {
	if n <= 0 {
		n = 1
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	rows, err := s.src.Scoreboard(cctx, n)
	cancel()
	if err == nil {
		if len(rows) > n {
			rows = rows[:n]
		}
		if s.cache != nil {
			if cerr := s.cache.Store(ctx, n, rows); cerr != nil {
				s.logger.Warn("scoreboard_cache_store_failed", zap.Error(cerr))
			}
		}
		return rows
	}

	s.logger.Warn("scoreboard_fetch_failed", zap.Int("count", n), zap.Error(err))
	if s.cache != nil {
		cached, ok, cerr := s.cache.Load(ctx, n)
		if cerr != nil {
			s.logger.Warn("scoreboard_cache_load_failed", zap.Error(cerr))
		}
		if ok {
			s.logger.Info("scoreboard_served_from_cache", zap.Int("rows", len(cached)))
			return cached
		}
	}
	return []chessdto.ScoreEntry{}
}
