package room

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/playmatatu/pooltable/internal/cannon"
	"github.com/playmatatu/pooltable/internal/config"
	"github.com/playmatatu/pooltable/internal/game"
	"github.com/playmatatu/pooltable/internal/physics"
)

// Manager owns every live room on this instance.
type Manager struct {
	rooms     map[string]*Room
	listeners []Listener
	config    *config.Config
	ctx       context.Context
	mu        sync.RWMutex
}

// NewManager creates a manager whose rooms stop when ctx is cancelled.
func NewManager(ctx context.Context, cfg *config.Config, listeners ...Listener) *Manager {
	return &Manager{
		rooms:     make(map[string]*Room),
		listeners: listeners,
		config:    cfg,
		ctx:       ctx,
	}
}

// AddListener registers a listener for rooms created from now on.
func (m *Manager) AddListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// generateToken generates a secure random token
func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// Create sets up a scene of the given kind and starts its loop. Zero
// dimensions fall back to the configured table size; the cannon range
// always uses its fixed field.
func (m *Manager) Create(kind string, width, height float64) (*Room, error) {
	r, err := m.build(kind, width, height)
	if err != nil {
		return nil, err
	}
	go r.Run(m.ctx)
	return r, nil
}

func (m *Manager) build(kind string, width, height float64) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config.MaxTables > 0 && len(m.rooms) >= m.config.MaxTables {
		return nil, ErrTooManyTables
	}

	if width <= 0 {
		width = m.config.TableWidth
	}
	if height <= 0 {
		height = m.config.TableHeight
	}
	if kind == cannon.KindCannon {
		width, height = cannon.FieldWidth, cannon.FieldHeight
	}

	now := time.Now()
	info := Info{
		Token:        generateToken(16),
		Kind:         kind,
		Width:        width,
		Height:       height,
		Status:       StatusRunning,
		CreatedAt:    now,
		LastActivity: now,
	}
	world := physics.NewWorld(width, height)
	r := newRoom(info, world, nil, m.config.TickHz, m.config.BroadcastHz, append([]Listener(nil), m.listeners...))

	switch kind {
	case game.KindPool:
		opts := game.DefaultOptions(width, height)
		opts.BallRadius = m.config.BallRadius
		r.scene = game.NewSimulation(world, game.ClockFunc(r.Now), nil, opts)
	case cannon.KindCannon:
		r.scene = cannon.NewRange(world)
	default:
		return nil, ErrUnknownKind
	}

	r.setup()
	m.rooms[info.Token] = r
	log.Printf("[ROOM] created %s table %s (%.0fx%.0f)", kind, info.Token, width, height)
	return r, nil
}

// Get returns the live room for token.
func (m *Manager) Get(token string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[token]
	if !ok {
		return nil, ErrTableNotFound
	}
	return r, nil
}

// List returns every live room ordered by creation time.
func (m *Manager) List() []Info {
	m.mu.RLock()
	out := make([]Info, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r.Info())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Close stops the room and forgets it.
func (m *Manager) Close(token string) error {
	m.mu.Lock()
	r, ok := m.rooms[token]
	if ok {
		delete(m.rooms, token)
	}
	m.mu.Unlock()
	if !ok {
		return ErrTableNotFound
	}
	r.Stop()
	return nil
}

// Shutdown closes every room.
func (m *Manager) Shutdown() {
	for _, info := range m.List() {
		m.Close(info.Token)
	}
}
