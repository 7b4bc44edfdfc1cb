package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/playmatatu/pooltable/internal/game"
	"github.com/playmatatu/pooltable/internal/physics"
	"github.com/playmatatu/pooltable/internal/room"
)

func TestSnapshotKey(t *testing.T) {
	if got := SnapshotKey("abc"); got != "table:abc:state" {
		t.Errorf("SnapshotKey = %q", got)
	}
}

func TestEventRow(t *testing.T) {
	e := game.Event{Type: game.EventPocket, BallID: 4, TargetID: 2, Position: physics.NewVec2(10, 20)}
	row := EventRow(7, e)

	if row.SessionID != 7 || row.EventType != "pocket" {
		t.Errorf("row = %+v", row)
	}
	if !row.BallID.Valid || row.BallID.Int64 != 4 {
		t.Errorf("ball id = %+v", row.BallID)
	}

	var decoded game.Event
	if err := json.Unmarshal(row.Data, &decoded); err != nil {
		t.Fatalf("data is not JSON: %v", err)
	}
	if decoded.TargetID != 2 || decoded.Position.X != 10 {
		t.Errorf("decoded = %+v", decoded)
	}

	if rack := EventRow(7, game.Event{Type: game.EventRack}); rack.BallID.Valid {
		t.Error("rack events carry no ball")
	}
}

func TestRackCounting(t *testing.T) {
	s := New(nil, nil)
	s.TableOpened(room.Info{Token: "t"})
	s.TableEvents("t", []game.Event{{Type: game.EventRack}}, nil)
	s.TableEvents("t", []game.Event{{Type: game.EventPocket}, {Type: game.EventRack}}, nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.racks["t"] != 2 {
		t.Errorf("racks = %d, want 2", s.racks["t"])
	}
}

func TestWorkerDrainsWithoutBackends(t *testing.T) {
	s := New(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	s.TableOpened(room.Info{Token: "t", CreatedAt: time.Now()})
	s.TableEvents("t", []game.Event{{Type: game.EventRack}}, map[string]int{"rack": 1})
	s.TableSnapshot("t", map[string]int{"rack": 1})
	s.TableClosed("t")

	cancel()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	if len(s.jobs) != 0 {
		t.Errorf("%d jobs left in queue", len(s.jobs))
	}
}

func TestReadsWithoutBackends(t *testing.T) {
	s := New(nil, nil)
	ctx := context.Background()

	if _, err := s.LoadSnapshot(ctx, "t"); err != room.ErrTableNotFound {
		t.Errorf("LoadSnapshot err = %v", err)
	}
	if _, err := s.ListEvents(ctx, "t", 10); err != ErrNoHistory {
		t.Errorf("ListEvents err = %v", err)
	}
	if _, err := s.Session(ctx, "t"); err != ErrNoHistory {
		t.Errorf("Session err = %v", err)
	}
}
