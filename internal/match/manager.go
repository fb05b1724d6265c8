package match

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"
)

// codeAlphabet avoids lookalike characters so codes survive being read
// over voice chat.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// Manager indexes live matches by code and reaps the ones nobody ever
// joined.
type Manager struct {
	mu      sync.Mutex
	matches map[string]*entry

	settings Settings
	events   *Events
	rng      *rand.Rand
}

type entry struct {
	match   *Match
	created time.Time
}

func NewManager(settings Settings, events *Events) *Manager {
	return &Manager{
		matches:  make(map[string]*entry),
		settings: settings,
		events:   events,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Create spins up a fresh match under a new code and returns it.
func (mgr *Manager) Create() *Match {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	code := mgr.newCode()
	m := mgr.startLocked(code)
	log.Printf("[MATCH] created %s (%d live)", code, len(mgr.matches))
	return m
}

// GetOrCreate returns the match for a code, starting one if the code is
// unknown. Joining a code a friend shared lands both players in the
// same actor regardless of who connects first.
func (mgr *Manager) GetOrCreate(code string) *Match {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if e, ok := mgr.matches[code]; ok {
		return e.match
	}
	return mgr.startLocked(code)
}

// Get returns the live match for a code, if any.
func (mgr *Manager) Get(code string) (*Match, bool) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	e, ok := mgr.matches[code]
	if !ok {
		return nil, false
	}
	return e.match, true
}

// Count reports how many matches are live.
func (mgr *Manager) Count() int {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return len(mgr.matches)
}

func (mgr *Manager) startLocked(code string) *Match {
	m := New(code, mgr.settings, mgr.events)
	m.onEmpty = mgr.remove
	mgr.matches[code] = &entry{match: m, created: time.Now()}
	go m.Run()
	return m
}

// remove is the match's onEmpty callback; it runs on the actor
// goroutine, never under the manager lock.
func (mgr *Manager) remove(code string) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	delete(mgr.matches, code)
	log.Printf("[MATCH] removed %s (%d live)", code, len(mgr.matches))
}

func (mgr *Manager) newCode() string {
	for {
		b := make([]byte, 5)
		for i := range b {
			b[i] = codeAlphabet[mgr.rng.Intn(len(codeAlphabet))]
		}
		code := string(b)
		if _, taken := mgr.matches[code]; !taken {
			return code
		}
	}
}

// StartReaper sweeps matches that were created but never filled. A
// match with players shuts itself down when they leave; one nobody
// joined has no actor event to trigger that, so the reaper handles it.
func (mgr *Manager) StartReaper(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		log.Printf("[MATCH] reaper started (interval=%s max_idle=%s)", interval, maxIdle)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mgr.reap(maxIdle)
			}
		}
	}()
}

func (mgr *Manager) reap(maxIdle time.Duration) {
	mgr.mu.Lock()
	var stale []*Match
	for code, e := range mgr.matches {
		if e.match.NumPlayers() == 0 && time.Since(e.created) > maxIdle {
			stale = append(stale, e.match)
			delete(mgr.matches, code)
		}
	}
	mgr.mu.Unlock()

	for _, m := range stale {
		log.Printf("[MATCH] reaped idle %s", m.Code())
		m.Stop()
	}
}
