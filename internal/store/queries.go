package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/playmatatu/pooltable/internal/models"
	"github.com/playmatatu/pooltable/internal/room"
)

// ErrNoHistory is returned when the history database is not configured.
var ErrNoHistory = errors.New("table history unavailable")

// LoadSnapshot returns the last mirrored snapshot for token.
func (s *Store) LoadSnapshot(ctx context.Context, token string) (json.RawMessage, error) {
	if s.rdb == nil {
		return nil, room.ErrTableNotFound
	}
	b, err := s.rdb.Get(ctx, SnapshotKey(token)).Bytes()
	if err == redis.Nil {
		return nil, room.ErrTableNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return json.RawMessage(b), nil
}

// Session returns the session row for token.
func (s *Store) Session(ctx context.Context, token string) (*models.TableSession, error) {
	if s.db == nil {
		return nil, ErrNoHistory
	}
	var sess models.TableSession
	err := s.db.GetContext(ctx, &sess, `SELECT * FROM table_sessions WHERE token = $1`, token)
	if err == sql.ErrNoRows {
		return nil, room.ErrTableNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &sess, nil
}

// ListEvents returns up to limit events for token, newest first.
func (s *Store) ListEvents(ctx context.Context, token string, limit int) ([]models.TableEvent, error) {
	if s.db == nil {
		return nil, ErrNoHistory
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	events := []models.TableEvent{}
	err := s.db.SelectContext(ctx, &events,
		`SELECT e.id, e.session_id, e.event_type, e.ball_id, e.data, e.created_at
		 FROM table_events e
		 JOIN table_sessions s ON s.id = e.session_id
		 WHERE s.token = $1
		 ORDER BY e.id DESC
		 LIMIT $2`, token, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}
