package room

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/playmatatu/pooltable/internal/game"
	"github.com/playmatatu/pooltable/internal/physics"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrTableClosed   = errors.New("table is closed")
	ErrInboxFull     = errors.New("table inbox full")
	ErrTooManyTables = errors.New("too many tables")
	ErrUnknownKind   = errors.New("unknown table kind")
)

// Status represents the lifecycle of a table room.
type Status string

const (
	StatusRunning Status = "RUNNING"
	StatusClosed  Status = "CLOSED"
)

// Info describes a room for listings and listeners.
type Info struct {
	Token        string    `json:"token"`
	Kind         string    `json:"kind"`
	Width        float64   `json:"width"`
	Height       float64   `json:"height"`
	Status       Status    `json:"status"`
	Tick         int64     `json:"tick"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Listener observes room output. Calls are made from the room goroutine and
// must not block.
type Listener interface {
	TableOpened(info Info)
	TableSnapshot(token string, snapshot any)
	TableEvents(token string, events []game.Event, snapshot any)
	TableClosed(token string)
}

// Room drives one scene: commands are applied between ticks, never during.
type Room struct {
	info      Info
	scene     game.Scene
	world     *physics.World
	listeners []Listener

	inbox          chan game.Command
	dt             time.Duration
	broadcastEvery int64
	now            time.Duration

	mu       sync.RWMutex
	snapshot any
	closed   bool
	quit     chan struct{}
	done     chan struct{}
}

func newRoom(info Info, world *physics.World, scene game.Scene, tickHz, broadcastHz int, listeners []Listener) *Room {
	if tickHz <= 0 {
		tickHz = 60
	}
	broadcastEvery := int64(1)
	if broadcastHz > 0 && tickHz/broadcastHz > 0 {
		broadcastEvery = int64(tickHz / broadcastHz)
	}
	return &Room{
		info:           info,
		scene:          scene,
		world:          world,
		listeners:      listeners,
		inbox:          make(chan game.Command, 256),
		dt:             time.Second / time.Duration(tickHz),
		broadcastEvery: broadcastEvery,
		quit:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// Token returns the room's public token.
func (r *Room) Token() string { return r.info.Token }

// Now is the room's simulated monotonic clock.
func (r *Room) Now() time.Duration { return r.now }

// Info returns a copy of the room description.
func (r *Room) Info() Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.info
}

// Snapshot returns the latest published scene snapshot.
func (r *Room) Snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// Enqueue hands a command to the room loop.
func (r *Room) Enqueue(cmd game.Command) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrTableClosed
	}
	r.info.LastActivity = time.Now()
	r.mu.Unlock()

	select {
	case r.inbox <- cmd:
		return nil
	default:
		return ErrInboxFull
	}
}

func (r *Room) setup() {
	r.scene.OnSetup()
	r.publish(true)
	for _, l := range r.listeners {
		l.TableOpened(r.Info())
	}
	r.flushEvents()
}

// Run loops until ctx is cancelled or the room is stopped.
func (r *Room) Run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.dt)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return
		case <-r.quit:
			r.shutdown()
			return
		case cmd := <-r.inbox:
			r.apply(cmd)
		case <-ticker.C:
			r.step()
		}
	}
}

func (r *Room) apply(cmd game.Command) {
	if err := r.scene.Apply(cmd); err != nil {
		log.Printf("[ROOM] table %s rejected command %q: %v", r.info.Token, cmd.Type, err)
		return
	}
	r.publish(false)
	r.flushEvents()
}

// step advances physics and the scene by one fixed tick.
func (r *Room) step() {
	r.now += r.dt
	r.world.Step(r.dt)
	r.scene.OnTick(r.now)

	r.mu.Lock()
	r.info.Tick++
	tick := r.info.Tick
	r.mu.Unlock()

	r.publish(tick%r.broadcastEvery == 0)
	r.flushEvents()
}

func (r *Room) publish(broadcast bool) {
	snap := r.scene.Snapshot()
	r.mu.Lock()
	r.snapshot = snap
	r.mu.Unlock()
	if !broadcast {
		return
	}
	for _, l := range r.listeners {
		l.TableSnapshot(r.info.Token, snap)
	}
}

func (r *Room) flushEvents() {
	events := r.scene.DrainEvents()
	if len(events) == 0 {
		return
	}
	snap := r.Snapshot()
	for _, l := range r.listeners {
		l.TableEvents(r.info.Token, events, snap)
	}
}

// Stop asks the loop to exit and waits for it.
func (r *Room) Stop() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	r.mu.Unlock()
	close(r.quit)
	<-r.done
}

func (r *Room) shutdown() {
	r.mu.Lock()
	r.closed = true
	r.info.Status = StatusClosed
	r.mu.Unlock()
	for _, l := range r.listeners {
		l.TableClosed(r.info.Token)
	}
	log.Printf("[ROOM] table %s closed after %d ticks", r.info.Token, r.info.Tick)
}
