package archive

import (
	"context"
	"sort"
	"sync"

	"github.com/BaitAPI/ChessDestroyer/pkg/chessdto"
)

// MemoryRepository is used when no database is configured.
type MemoryRepository struct {
	mu        sync.RWMutex
	nextID    int64
	bySession map[string]*chessdto.MatchRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{bySession: make(map[string]*chessdto.MatchRecord)}
}

func (m *MemoryRepository) Save(_ context.Context, rec *chessdto.MatchRecord) (int64, error) {
	if rec == nil {
		return 0, ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.bySession[rec.SessionUUID]; exists {
		return 0, ErrDuplicateMatch
	}
	m.nextID++
	cp := *rec
	cp.ID = m.nextID
	cp.MovesSAN = append([]string(nil), rec.MovesSAN...)
	cp.Duration = cp.EndedAt.Sub(cp.StartedAt)
	m.bySession[rec.SessionUUID] = &cp
	return cp.ID, nil
}

func (m *MemoryRepository) Get(_ context.Context, sessionUUID string) (*chessdto.MatchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.bySession[sessionUUID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryRepository) Recent(_ context.Context, username string, limit int) ([]*chessdto.MatchRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	m.mu.RLock()
	var out []*chessdto.MatchRecord
	for _, rec := range m.bySession {
		if rec.Username == username {
			cp := *rec
			out = append(out, &cp)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].EndedAt.Equal(out[j].EndedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].EndedAt.After(out[j].EndedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) Close() error { return nil }
