package models

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TableSession is one table's lifetime, from creation to close.
type TableSession struct {
	ID           int          `db:"id" json:"id"`
	Token        string       `db:"token" json:"token"`
	Kind         string       `db:"kind" json:"kind"`
	Width        float64      `db:"width" json:"width"`
	Height       float64      `db:"height" json:"height"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	ClosedAt     sql.NullTime `db:"closed_at" json:"closed_at,omitempty"`
	RacksCleared int          `db:"racks_cleared" json:"racks_cleared"`
}

// TableEvent is a persisted lifecycle event (rack, strike, pocket...).
type TableEvent struct {
	ID        int            `db:"id" json:"id"`
	SessionID int            `db:"session_id" json:"session_id"`
	EventType string         `db:"event_type" json:"event_type"`
	BallID    sql.NullInt64  `db:"ball_id" json:"ball_id,omitempty"`
	Data      types.JSONText `db:"data" json:"data"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
