package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/BaitAPI/ChessDestroyer/pkg/chessdto"
)

var (
	ErrDuplicateMatch = errors.New("match already archived")
	ErrNotFound       = errors.New("match not found")
)

// Repository stores finished, server-confirmed matches.
type Repository interface {
	Save(ctx context.Context, rec *chessdto.MatchRecord) (int64, error)
	Get(ctx context.Context, sessionUUID string) (*chessdto.MatchRecord, error)
	Recent(ctx context.Context, username string, limit int) ([]*chessdto.MatchRecord, error)
	Close() error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	r := &PostgresRepository{db: db}
	if err := r.ensureSchema(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS match_archive (
	id           BIGSERIAL PRIMARY KEY,
	session_uuid TEXT NOT NULL UNIQUE,
	username     TEXT NOT NULL,
	local_side   TEXT NOT NULL,
	opponent     TEXT NOT NULL,
	result       TEXT NOT NULL,
	reason       TEXT NOT NULL,
	final_fen    TEXT NOT NULL,
	moves_san    JSONB NOT NULL,
	pgn          TEXT NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	ended_at     TIMESTAMPTZ NOT NULL,
	duration_ms  BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS match_archive_username_idx ON match_archive (username, ended_at DESC);`

func (r *PostgresRepository) ensureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create match_archive: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *PostgresRepository) Save(ctx context.Context, rec *chessdto.MatchRecord) (int64, error) {
	if rec == nil {
		return 0, fmt.Errorf("nil match record")
	}
	movesSAN, err := json.Marshal(nonNil(rec.MovesSAN))
	if err != nil {
		return 0, fmt.Errorf("marshal moves_san: %w", err)
	}
	duration := rec.EndedAt.Sub(rec.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	const query = `
		INSERT INTO match_archive (
			session_uuid, username, local_side, opponent,
			result, reason, final_fen, moves_san, pgn,
			started_at, ended_at, duration_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11, $12)
		ON CONFLICT (session_uuid) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(ctx, query,
		rec.SessionUUID, rec.Username, rec.LocalSide, rec.Opponent,
		rec.Result, rec.Reason, rec.FinalFEN, movesSAN, BuildPGN(rec),
		rec.StartedAt, rec.EndedAt, duration,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrDuplicateMatch
	}
	if err != nil {
		return 0, fmt.Errorf("insert match: %w", err)
	}
	return id.Int64, nil
}

const selectColumns = `id, session_uuid, username, local_side, opponent, result, reason, final_fen, moves_san, started_at, ended_at`

func (r *PostgresRepository) Get(ctx context.Context, sessionUUID string) (*chessdto.MatchRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM match_archive WHERE session_uuid = $1`, sessionUUID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func (r *PostgresRepository) Recent(ctx context.Context, username string, limit int) ([]*chessdto.MatchRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM match_archive WHERE username = $1 ORDER BY ended_at DESC LIMIT $2`,
		username, limit)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var out []*chessdto.MatchRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*chessdto.MatchRecord, error) {
	var (
		rec      chessdto.MatchRecord
		movesRaw []byte
	)
	if err := s.Scan(&rec.ID, &rec.SessionUUID, &rec.Username, &rec.LocalSide, &rec.Opponent,
		&rec.Result, &rec.Reason, &rec.FinalFEN, &movesRaw, &rec.StartedAt, &rec.EndedAt); err != nil {
		return nil, err
	}
	if len(movesRaw) > 0 {
		if err := json.Unmarshal(movesRaw, &rec.MovesSAN); err != nil {
			return nil, fmt.Errorf("decode moves_san: %w", err)
		}
	}
	rec.Duration = rec.EndedAt.Sub(rec.StartedAt)
	return &rec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
