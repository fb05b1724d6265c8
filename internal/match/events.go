package match

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventChannel is the pub/sub channel match lifecycle events go out on.
// Lobby and presence services subscribe to it; the game loop never
// reads it back.
const EventChannel = "match_events"

// presenceTTL bounds how stale a presence key may get before the match
// is considered gone to outside observers.
const presenceTTL = 60 * time.Second

// publishTimeout bounds each Redis call. Publishing happens off the
// match goroutine, so this only limits how long a stuck command holds
// its goroutine, not the tick loop.
const publishTimeout = 2 * time.Second

// Events publishes match lifecycle events to Redis. A nil client turns
// every method into a no-op so a match can run without Redis at all.
type Events struct {
	rdb *redis.Client
}

func NewEvents(rdb *redis.Client) *Events {
	return &Events{rdb: rdb}
}

// publish hands the Redis call to its own goroutine. The caller is the
// match tick loop; a slow or dead Redis must cost it nothing.
func (e *Events) publish(payload map[string]interface{}) {
	if e == nil || e.rdb == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[MATCH] event marshal failed: %v", err)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := e.rdb.Publish(ctx, EventChannel, data).Err(); err != nil {
			log.Printf("[MATCH] event publish failed: %v", err)
		}
	}()
}

// TouchPresence refreshes the match's presence key. Called on joins and
// score events, so an abandoned match's key expires on its own.
func (e *Events) TouchPresence(code string) {
	if e == nil || e.rdb == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := e.rdb.Set(ctx, "match_presence:"+code, time.Now().Unix(), presenceTTL).Err(); err != nil {
			log.Printf("[MATCH] presence touch failed for %s: %v", code, err)
		}
	}()
}

func (e *Events) MatchStarted(code string) {
	e.publish(map[string]interface{}{
		"type": "match_started",
		"code": code,
	})
}

func (e *Events) PointScored(code string, scorer uint8, score [2]uint8) {
	e.publish(map[string]interface{}{
		"type":   "point_scored",
		"code":   code,
		"scorer": scorer,
		"score":  []uint8{score[0], score[1]},
	})
}

func (e *Events) GameOver(code string, winner uint8) {
	e.publish(map[string]interface{}{
		"type":   "game_over",
		"code":   code,
		"winner": winner,
	})
}

func (e *Events) MatchClosed(code string) {
	e.publish(map[string]interface{}{
		"type": "match_closed",
		"code": code,
	})
}
