package archive

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BaitAPI/ChessDestroyer/pkg/chessdto"
)

func record(session, user string, ended time.Time) *chessdto.MatchRecord {
	return &chessdto.MatchRecord{
		SessionUUID: session,
		Username:    user,
		LocalSide:   "white",
		Opponent:    "Martin",
		Result:      "win",
		Reason:      "checkmate",
		MovesSAN:    []string{"e4", "e5", "Qh5", "Nc6", "Bc4", "Nf6", "Qxf7#"},
		StartedAt:   ended.Add(-5 * time.Minute),
		EndedAt:     ended,
	}
}

func TestMemoryRepositorySaveAndGet(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now()

	id, err := repo.Save(ctx, record("s1", "alice", now))
	if err != nil || id != 1 {
		t.Fatalf("Save: id=%d err=%v", id, err)
	}
	if _, err := repo.Save(ctx, record("s1", "alice", now)); !errors.Is(err, ErrDuplicateMatch) {
		t.Fatalf("expected ErrDuplicateMatch, got %v", err)
	}
	got, err := repo.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Duration != 5*time.Minute || len(got.MovesSAN) != 7 {
		t.Fatalf("record = %+v", got)
	}
	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepositoryRecentOrder(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, s := range []string{"a", "b", "c"} {
		if _, err := repo.Save(ctx, record(s, "alice", base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if _, err := repo.Save(ctx, record("z", "bob", base)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	recent, err := repo.Recent(ctx, "alice", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].SessionUUID != "c" || recent[1].SessionUUID != "b" {
		t.Fatalf("recent = %v, %v", recent[0].SessionUUID, recent[1].SessionUUID)
	}
}

func TestBuildPGN(t *testing.T) {
	rec := record("s1", "alice", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	pgn := BuildPGN(rec)

	for _, want := range []string{
		`[Date "2024.05.01"]`,
		`[White "alice"]`,
		`[Black "Martin"]`,
		`[Result "1-0"]`,
		"1. e4 e5 2. Qh5 Nc6 3. Bc4 Nf6 4. Qxf7# 1-0",
	} {
		if !strings.Contains(pgn, want) {
			t.Fatalf("pgn missing %q:\n%s", want, pgn)
		}
	}

	rec.LocalSide = "black"
	rec.Result = "loss"
	if got := PGNResult(rec); got != "1-0" {
		t.Fatalf("black loss = %q", got)
	}
	if !strings.Contains(BuildPGN(rec), `[White "Martin"]`) {
		t.Fatalf("opponent should be white when the local side is black")
	}
}
