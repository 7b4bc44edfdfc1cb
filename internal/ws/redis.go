package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/playmatatu/pooltable/internal/store"
)

// StartEventRelay subscribes to the table_events channel and broadcasts
// each event to the connections this instance holds for that table. Once
// it is running the hub stops broadcasting events directly.
func (h *Hub) StartEventRelay(ctx context.Context, rdb *redis.Client) {
	if rdb == nil {
		log.Println("[WS] Redis client not set; event relay not started")
		return
	}

	pubsub := rdb.Subscribe(ctx, store.EventsChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("[WS] subscribe to %s failed, broadcasting events directly: %v", store.EventsChannel, err)
		pubsub.Close()
		return
	}

	h.mu.Lock()
	h.relayed = true
	h.mu.Unlock()

	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Printf("[WS] %s subscriber started", store.EventsChannel)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					h.mu.Lock()
					h.relayed = false
					h.mu.Unlock()
					return
				}
				h.relay(msg.Payload)
			}
		}
	}()
}

func (h *Hub) relay(payload string) {
	var em store.EventMessage
	if err := json.Unmarshal([]byte(payload), &em); err != nil {
		log.Printf("[WS] invalid event payload: %v", err)
		return
	}
	if em.Token == "" {
		return
	}
	h.BroadcastToTable(em.Token, envelope{Type: MsgTableEvent, Token: em.Token, Data: em.Event})
}
