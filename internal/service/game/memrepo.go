package game

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/park285/riddlechess/internal/domain"
)

// memrepo keeps games in process memory when no database is configured.
type memrepo struct {
	mu sync.RWMutex

	nextID int64
	byID   map[int64]*domain.GameRecord
	byUUID map[string]*domain.GameRecord
}

func NewMemoryRepository() Repository {
	return &memrepo{
		byID:   make(map[int64]*domain.GameRecord),
		byUUID: make(map[string]*domain.GameRecord),
	}
}

func (m *memrepo) InsertGame(ctx context.Context, game *domain.GameRecord) (int64, error) {
	if game == nil {
		return 0, ErrDuplicateGame
	}
	key := strings.TrimSpace(game.GameID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byUUID[key]; exists {
		return 0, ErrDuplicateGame
	}
	m.nextID++
	stored := cloneRecord(game)
	stored.ID = m.nextID
	m.byID[stored.ID] = stored
	m.byUUID[key] = stored
	return stored.ID, nil
}

func (m *memrepo) GetRecentGames(ctx context.Context, limit int) ([]*domain.GameRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	m.mu.RLock()
	games := make([]*domain.GameRecord, 0, len(m.byID))
	for _, g := range m.byID {
		games = append(games, cloneRecord(g))
	}
	m.mu.RUnlock()

	sort.Slice(games, func(i, j int) bool {
		if games[i].EndedAt.Equal(games[j].EndedAt) {
			return games[i].ID > games[j].ID
		}
		return games[i].EndedAt.After(games[j].EndedAt)
	})
	if len(games) > limit {
		games = games[:limit]
	}
	return games, nil
}

func (m *memrepo) GetGame(ctx context.Context, gameID string) (*domain.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.byUUID[strings.TrimSpace(gameID)]
	if !ok {
		return nil, nil
	}
	return cloneRecord(g), nil
}

func cloneRecord(g *domain.GameRecord) *domain.GameRecord {
	c := *g
	c.MovesUCI = append([]string(nil), g.MovesUCI...)
	c.MovesSAN = append([]string(nil), g.MovesSAN...)
	return &c
}

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
