package room

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// IdleSetKey scores table tokens by last activity (unix seconds).
	IdleSetKey = "table_idle"
	// CommandChannel carries cross-instance table commands.
	CommandChannel = "table_commands"
)

// ControlMessage is published on CommandChannel.
type ControlMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// StartReaper closes tables nobody has touched for TableIdleSeconds. With
// Redis the idle index is shared across instances; without it the rooms'
// own activity stamps are used.
func StartReaper(ctx context.Context, m *Manager, rdb *redis.Client) {
	idleFor := time.Duration(m.config.TableIdleSeconds) * time.Second
	if idleFor <= 0 {
		log.Println("[REAPER] idle timeout disabled; reaper not started")
		return
	}
	poll := time.Duration(m.config.ReaperPollSeconds) * time.Second
	if poll <= 0 {
		poll = 30 * time.Second
	}

	log.Println("[REAPER] Idle table reaper started")
	go func() {
		ticker := time.NewTicker(poll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[REAPER] Idle table reaper stopping")
				return
			case <-ticker.C:
				m.reap(ctx, rdb, time.Now(), idleFor)
			}
		}
	}()
}

func (m *Manager) reap(ctx context.Context, rdb *redis.Client, now time.Time, idleFor time.Duration) int {
	closed := 0
	cutoff := now.Add(-idleFor)

	if rdb != nil {
		members, err := rdb.ZRangeByScore(ctx, IdleSetKey, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%d", cutoff.Unix())}).Result()
		if err != nil {
			log.Printf("[REAPER] Failed to fetch idle tables: %v", err)
		}
		for _, token := range members {
			// Only the instance that wins the ZRem closes the table.
			if removed, _ := rdb.ZRem(ctx, IdleSetKey, token).Result(); removed == 0 {
				continue
			}
			forward := func(token string) error { return PublishClose(ctx, rdb, token) }
			if m.closeOrForward(token, forward) {
				closed++
			}
		}
	}

	for _, info := range m.List() {
		if info.LastActivity.After(cutoff) {
			continue
		}
		if err := m.Close(info.Token); err == nil {
			log.Printf("[REAPER] closed idle table %s (last activity %s)", info.Token, info.LastActivity.Format(time.RFC3339))
			closed++
		}
	}
	return closed
}

// closeOrForward closes token when this instance owns it and otherwise
// hands it to forward so the owning instance closes it. It reports whether
// the table was closed locally.
func (m *Manager) closeOrForward(token string, forward func(token string) error) bool {
	err := m.Close(token)
	if err == nil {
		log.Printf("[REAPER] closed idle table %s", token)
		return true
	}
	if err := forward(token); err != nil {
		log.Printf("[REAPER] failed to forward close of %s: %v", token, err)
	}
	return false
}

// Touch records activity on token in the shared idle index.
func Touch(ctx context.Context, rdb *redis.Client, token string) {
	if rdb == nil {
		return
	}
	if err := rdb.ZAdd(ctx, IdleSetKey, redis.Z{Score: float64(time.Now().Unix()), Member: token}).Err(); err != nil {
		log.Printf("[REAPER] failed to touch table %s: %v", token, err)
	}
}

// PublishClose asks every instance to close token.
func PublishClose(ctx context.Context, rdb *redis.Client, token string) error {
	if rdb == nil {
		return nil
	}
	b, _ := json.Marshal(ControlMessage{Type: "close", Token: token})
	return rdb.Publish(ctx, CommandChannel, b).Err()
}

// StartCommandSubscriber applies control messages published by other
// instances to the local rooms.
func StartCommandSubscriber(ctx context.Context, m *Manager, rdb *redis.Client) {
	if rdb == nil {
		log.Println("[ROOM] Redis missing; command subscriber not started")
		return
	}

	go func() {
		sub := rdb.Subscribe(ctx, CommandChannel)
		defer sub.Close()
		ch := sub.Channel()
		log.Printf("[ROOM] subscribed to %s", CommandChannel)

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var cm ControlMessage
				if err := json.Unmarshal([]byte(msg.Payload), &cm); err != nil {
					log.Printf("[ROOM] invalid control message: %v", err)
					continue
				}
				switch cm.Type {
				case "close":
					if err := m.Close(cm.Token); err == nil {
						log.Printf("[ROOM] closed table %s on remote request", cm.Token)
					}
				default:
					log.Printf("[ROOM] unknown control message type %q", cm.Type)
				}
			}
		}
	}()
}
