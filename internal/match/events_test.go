package match

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNilEventsAreNoOps(t *testing.T) {
	var e *Events
	e.MatchStarted("ABCDE")
	e.TouchPresence("ABCDE")

	e = NewEvents(nil)
	e.PointScored("ABCDE", 0, [2]uint8{1, 0})
	e.GameOver("ABCDE", 1)
	e.MatchClosed("ABCDE")
}

func TestPublishDoesNotBlockCaller(t *testing.T) {
	// Nothing listens on port 1; every command against this client
	// hangs until its context expires. The match loop calls these on
	// its tick path, so they must hand the wait to another goroutine.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer rdb.Close()
	e := NewEvents(rdb)

	start := time.Now()
	e.MatchStarted("ABCDE")
	e.PointScored("ABCDE", 0, [2]uint8{1, 0})
	e.TouchPresence("ABCDE")
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Publishing against a dead Redis took %v on the calling goroutine", elapsed)
	}
}
