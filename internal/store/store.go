// Package store persists table history to Postgres and mirrors live
// snapshots and events to Redis.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/redis/go-redis/v9"

	"github.com/playmatatu/pooltable/internal/game"
	"github.com/playmatatu/pooltable/internal/models"
	"github.com/playmatatu/pooltable/internal/room"
)

const (
	// EventsChannel carries every table event as JSON.
	EventsChannel = "table_events"
	// SnapshotTTL bounds how long a table's last snapshot stays readable.
	SnapshotTTL = time.Hour
	// snapshotEvery throttles Redis snapshot writes per table.
	snapshotEvery = time.Second
)

// SnapshotKey is the Redis key holding a table's latest snapshot.
func SnapshotKey(token string) string {
	return fmt.Sprintf("table:%s:state", token)
}

// EventMessage is what gets published on EventsChannel.
type EventMessage struct {
	Token string     `json:"token"`
	Event game.Event `json:"event"`
}

// Store implements room.Listener. Writes run on a single background worker
// so the room loops never wait on the network. Either backend may be nil.
type Store struct {
	db  *sqlx.DB
	rdb *redis.Client

	jobs chan func(context.Context)
	done chan struct{}

	mu        sync.Mutex
	sessions  map[string]int       // token -> table_sessions.id
	racks     map[string]int       // rack events seen per token
	lastSaved map[string]time.Time // last snapshot write per token
}

// New creates a store; call Start to begin processing writes.
func New(db *sqlx.DB, rdb *redis.Client) *Store {
	return &Store{
		db:        db,
		rdb:       rdb,
		jobs:      make(chan func(context.Context), 1024),
		done:      make(chan struct{}),
		sessions:  make(map[string]int),
		racks:     make(map[string]int),
		lastSaved: make(map[string]time.Time),
	}
}

// Start runs the write worker until ctx is cancelled, draining what is
// already queued before returning.
func (s *Store) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		log.Println("[STORE] write worker started")
		for {
			select {
			case job := <-s.jobs:
				s.run(ctx, job)
			case <-ctx.Done():
				for {
					select {
					case job := <-s.jobs:
						s.run(context.Background(), job)
					default:
						log.Println("[STORE] write worker stopped")
						return
					}
				}
			}
		}
	}()
}

// Wait blocks until the worker has drained after its context ended.
func (s *Store) Wait() { <-s.done }

func (s *Store) run(ctx context.Context, job func(context.Context)) {
	jctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	job(jctx)
}

func (s *Store) enqueue(job func(context.Context)) {
	select {
	case s.jobs <- job:
	default:
		log.Println("[STORE] write queue full; dropping job")
	}
}

// TableOpened inserts the session row.
func (s *Store) TableOpened(info room.Info) {
	s.mu.Lock()
	s.racks[info.Token] = 0
	s.mu.Unlock()

	s.enqueue(func(ctx context.Context) {
		if s.db == nil {
			return
		}
		var id int
		err := s.db.QueryRowxContext(ctx,
			`INSERT INTO table_sessions (token, kind, width, height, created_at)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			info.Token, info.Kind, info.Width, info.Height, info.CreatedAt).Scan(&id)
		if err != nil {
			log.Printf("[STORE] failed to insert session for %s: %v", info.Token, err)
			return
		}
		s.mu.Lock()
		s.sessions[info.Token] = id
		s.mu.Unlock()
		log.Printf("[STORE] session %d opened for table %s", id, info.Token)
	})
}

// TableSnapshot mirrors the snapshot to Redis, at most once a second.
func (s *Store) TableSnapshot(token string, snapshot any) {
	if s.rdb == nil {
		return
	}
	now := time.Now()
	s.mu.Lock()
	if now.Sub(s.lastSaved[token]) < snapshotEvery {
		s.mu.Unlock()
		return
	}
	s.lastSaved[token] = now
	s.mu.Unlock()

	s.enqueue(func(ctx context.Context) { s.saveSnapshot(ctx, token, snapshot) })
}

// TableEvents records events, publishes them and saves the snapshot that
// produced them.
func (s *Store) TableEvents(token string, events []game.Event, snapshot any) {
	cleared := 0
	s.mu.Lock()
	for _, e := range events {
		if e.Type != game.EventRack {
			continue
		}
		// The first rack is the initial setup, not a cleared table.
		if s.racks[token] > 0 {
			cleared++
		}
		s.racks[token]++
	}
	s.lastSaved[token] = time.Now()
	s.mu.Unlock()

	s.enqueue(func(ctx context.Context) {
		s.saveSnapshot(ctx, token, snapshot)
		s.publish(ctx, token, events)
		s.insertEvents(ctx, token, events, cleared)
	})
}

// TableClosed stamps the session row and drops the idle index entry. The
// snapshot is left to expire so the table stays readable for a while.
func (s *Store) TableClosed(token string) {
	s.mu.Lock()
	delete(s.racks, token)
	delete(s.lastSaved, token)
	s.mu.Unlock()

	s.enqueue(func(ctx context.Context) {
		if s.rdb != nil {
			s.rdb.ZRem(ctx, room.IdleSetKey, token)
		}
		id, ok := s.sessionID(token)
		if !ok || s.db == nil {
			return
		}
		if _, err := s.db.ExecContext(ctx, `UPDATE table_sessions SET closed_at = NOW() WHERE id = $1`, id); err != nil {
			log.Printf("[STORE] failed to close session %d: %v", id, err)
		}
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
	})
}

func (s *Store) sessionID(token string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sessions[token]
	return id, ok
}

func (s *Store) saveSnapshot(ctx context.Context, token string, snapshot any) {
	if s.rdb == nil || snapshot == nil {
		return
	}
	b, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("[STORE] failed to marshal snapshot for %s: %v", token, err)
		return
	}
	if err := s.rdb.SetEx(ctx, SnapshotKey(token), b, SnapshotTTL).Err(); err != nil {
		log.Printf("[STORE] failed to save snapshot for %s: %v", token, err)
	}
}

func (s *Store) publish(ctx context.Context, token string, events []game.Event) {
	if s.rdb == nil {
		return
	}
	for _, e := range events {
		b, _ := json.Marshal(EventMessage{Token: token, Event: e})
		if err := s.rdb.Publish(ctx, EventsChannel, b).Err(); err != nil {
			log.Printf("[STORE] publish %s failed for %s: %v", e.Type, token, err)
			return
		}
	}
}

func (s *Store) insertEvents(ctx context.Context, token string, events []game.Event, cleared int) {
	if s.db == nil {
		return
	}
	id, ok := s.sessionID(token)
	if !ok {
		log.Printf("[STORE] no session for table %s; %d events not recorded", token, len(events))
		return
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		log.Printf("[STORE] failed to begin tx for %s: %v", token, err)
		return
	}
	defer tx.Rollback()

	for _, e := range events {
		row := EventRow(id, e)
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO table_events (session_id, event_type, ball_id, data)
			 VALUES (:session_id, :event_type, :ball_id, :data)`, row); err != nil {
			log.Printf("[STORE] failed to insert %s event for %s: %v", e.Type, token, err)
			return
		}
	}
	if cleared > 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE table_sessions SET racks_cleared = racks_cleared + $1 WHERE id = $2`, cleared, id); err != nil {
			log.Printf("[STORE] failed to bump racks_cleared for %s: %v", token, err)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("[STORE] failed to commit events for %s: %v", token, err)
	}
}

// EventRow converts a scene event into its table_events row.
func EventRow(sessionID int, e game.Event) models.TableEvent {
	data, _ := json.Marshal(e)
	row := models.TableEvent{
		SessionID: sessionID,
		EventType: string(e.Type),
		Data:      types.JSONText(data),
	}
	switch e.Type {
	case game.EventStrike, game.EventPocket:
		row.BallID = sql.NullInt64{Int64: int64(e.BallID), Valid: true}
	}
	return row
}
