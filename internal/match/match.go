package match

import (
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/netpong/backend/internal/protocol"
	"github.com/netpong/backend/internal/sim"
)

// Phase is the match lifecycle state.
type Phase uint8

const (
	PhaseWaiting Phase = iota
	PhaseCountdown
	PhasePlaying
	PhaseGameOver
)

// Settings carries the per-match loop parameters.
type Settings struct {
	TickInterval     time.Duration
	BroadcastEvery   int // snapshots go out every Nth tick
	CountdownSeconds int
	RestartTimeout   time.Duration // game-over lingering allowance; 0 means forever
	Seed             int64         // 0 seeds from the clock
}

func DefaultSettings() Settings {
	return Settings{
		TickInterval:     16 * time.Millisecond,
		BroadcastEvery:   3,
		CountdownSeconds: 3,
		RestartTimeout:   60 * time.Second,
	}
}

// sanitize clamps loop parameters that would stall or panic the ticker
// arithmetic. Config values come straight from the environment, so a
// zero here must degrade to a sane default, not take the process down.
func (s Settings) sanitize() Settings {
	if s.TickInterval <= 0 {
		s.TickInterval = 16 * time.Millisecond
	}
	if s.BroadcastEvery < 1 {
		s.BroadcastEvery = 1
	}
	if s.CountdownSeconds < 1 {
		s.CountdownSeconds = 1
	}
	if s.RestartTimeout < 0 {
		s.RestartTimeout = 0
	}
	return s
}

// Match is the authoritative actor for one game. A single goroutine
// (Run) owns every field below; sockets and the manager talk to it only
// through Inbox. That goroutine is also the only writer to the seats,
// so no lock guards the world.
type Match struct {
	Inbox chan interface{}

	code     string
	settings Settings
	world    *sim.World
	events   *Events

	seats    [2]Conn
	occupied [2]bool
	phase    Phase

	countdown  float64
	pending    []sim.Input
	frames     int
	epoch      time.Time
	gameOverAt time.Time

	occupants atomic.Int32
	quit      chan struct{}
	stop      sync.Once
	onEmpty   func(code string)
}

func New(code string, settings Settings, events *Events) *Match {
	settings = settings.sanitize()
	seed := settings.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Match{
		Inbox:    make(chan interface{}, 64),
		code:     code,
		settings: settings,
		world:    sim.NewWorld(sim.DefaultTuning(), seed),
		events:   events,
		epoch:    time.Now(),
		quit:     make(chan struct{}),
	}
}

func (m *Match) Code() string { return m.code }

// Done is closed when the actor shuts down. Transports select on it so
// a post to a dead match cannot block forever.
func (m *Match) Done() <-chan struct{} { return m.quit }

// NumPlayers is safe to call from outside the actor goroutine.
func (m *Match) NumPlayers() int {
	return int(m.occupants.Load())
}

// Stop shuts the actor down. Safe to call more than once and from any
// goroutine.
func (m *Match) Stop() {
	m.stop.Do(func() { close(m.quit) })
}

// Run is the actor loop. The ticker dies with the loop, so an empty
// match costs nothing once the last socket leaves.
func (m *Match) Run() {
	ticker := time.NewTicker(m.settings.TickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-m.quit:
			m.closeSeats()
			return
		case cmd := <-m.Inbox:
			m.handle(cmd)
		case now := <-ticker.C:
			m.tick(now.Sub(last).Seconds())
			last = now
		}
	}
}

func (m *Match) handle(cmd interface{}) {
	switch c := cmd.(type) {
	case Join:
		m.handleJoin(c)
	case Frame:
		m.handleFrame(c)
	case Leave:
		m.handleLeave(c.Slot)
	}
}

func (m *Match) handleJoin(j Join) {
	slot, ok := m.freeSeat()
	if !ok {
		j.Reply <- JoinResult{Err: ErrMatchFull}
		_ = j.Conn.Close()
		return
	}

	m.seats[slot] = j.Conn
	m.occupied[slot] = true
	m.occupants.Store(int32(m.seatCount()))
	m.events.TouchPresence(m.code)

	j.Reply <- JoinResult{Slot: slot}
	m.sendTo(slot, protocol.Welcome{Slot: slot})
	m.sendTo(slot, m.snapshot())

	if m.seatCount() == 2 {
		log.Printf("[MATCH] %s: both seats taken, starting countdown", m.code)
		m.broadcast(protocol.MatchFound{})
		m.events.MatchStarted(m.code)
		// The second seat may be filling a forfeited game's empty
		// chair; any leftover score must not carry over.
		m.world.Reset()
		m.enterCountdown()
	}
}

func (m *Match) freeSeat() (uint8, bool) {
	for slot := uint8(0); slot < 2; slot++ {
		if !m.occupied[slot] {
			return slot, true
		}
	}
	return 0, false
}

func (m *Match) seatCount() int {
	n := 0
	for _, occ := range m.occupied {
		if occ {
			n++
		}
	}
	return n
}

func (m *Match) handleFrame(f Frame) {
	switch msg := f.Msg.(type) {
	case protocol.Input:
		if m.phase != PhasePlaying {
			return
		}
		// The seat, not the frame, decides whose paddle moves.
		if len(m.pending) >= 256 {
			return
		}
		m.pending = append(m.pending, sim.Input{Slot: f.Slot, Dir: msg.Dir, Seq: msg.Seq})
	case protocol.Restart:
		if m.phase != PhaseGameOver || m.seatCount() != 2 {
			return
		}
		log.Printf("[MATCH] %s: rematch requested by slot %d", m.code, f.Slot)
		m.world.Reset()
		m.enterCountdown()
	}
}

func (m *Match) handleLeave(slot uint8) {
	if !m.occupied[slot] {
		return
	}
	if m.seats[slot] != nil {
		_ = m.seats[slot].Close()
	}
	m.seats[slot] = nil
	m.occupied[slot] = false
	m.occupants.Store(int32(m.seatCount()))

	if m.seatCount() == 0 {
		log.Printf("[MATCH] %s: last player left, closing", m.code)
		m.events.MatchClosed(m.code)
		if m.onEmpty != nil {
			m.onEmpty(m.code)
		}
		m.Stop()
		return
	}

	switch m.phase {
	case PhasePlaying:
		// A live game ends in the survivor's favor; simulating a
		// phantom opponent is never an option.
		survivor := uint8(0)
		if m.occupied[1] {
			survivor = 1
		}
		log.Printf("[MATCH] %s: slot %d disconnected mid-game, slot %d wins by forfeit",
			m.code, slot, survivor)
		m.phase = PhaseGameOver
		m.gameOverAt = time.Now()
		m.pending = m.pending[:0]
		m.broadcast(protocol.OpponentLeft{})
		m.broadcast(protocol.GameOver{Winner: survivor})
		m.events.GameOver(m.code, survivor)
	case PhaseCountdown:
		// Not yet playing: cancel back to waiting with a fresh world.
		m.broadcast(protocol.OpponentLeft{})
		m.world.Reset()
		m.pending = m.pending[:0]
		m.phase = PhaseWaiting
	}
}

func (m *Match) enterCountdown() {
	m.phase = PhaseCountdown
	m.countdown = float64(m.settings.CountdownSeconds)
	m.pending = m.pending[:0]
	m.broadcast(protocol.Countdown{Seconds: uint8(m.settings.CountdownSeconds)})
	// Clients draw the reset positions behind the countdown overlay.
	m.broadcast(m.snapshot())
}

func (m *Match) tick(elapsed float64) {
	switch m.phase {
	case PhaseCountdown:
		m.tickCountdown(elapsed)
	case PhasePlaying:
		m.tickPlaying(elapsed)
	case PhaseGameOver:
		m.tickGameOver()
	}
}

// tickGameOver closes a finished match that nobody restarted. Without
// this, two idle sockets could pin a dead match's actor forever.
func (m *Match) tickGameOver() {
	if m.settings.RestartTimeout <= 0 {
		return
	}
	if time.Since(m.gameOverAt) <= m.settings.RestartTimeout {
		return
	}
	log.Printf("[MATCH] %s: no rematch within %s, closing", m.code, m.settings.RestartTimeout)
	m.events.MatchClosed(m.code)
	if m.onEmpty != nil {
		m.onEmpty(m.code)
	}
	m.Stop()
}

func (m *Match) tickCountdown(elapsed float64) {
	before := int(math.Ceil(m.countdown))
	m.countdown -= elapsed
	after := int(math.Ceil(m.countdown))

	if m.countdown <= 0 {
		m.phase = PhasePlaying
		m.broadcast(protocol.GameStart{})
		return
	}
	if after < before {
		m.broadcast(protocol.Countdown{Seconds: uint8(after)})
	}
}

func (m *Match) tickPlaying(elapsed float64) {
	m.world.Step(elapsed, m.pending)
	m.pending = m.pending[:0]

	ev := m.world.Events
	if ev.LeftScored {
		m.events.PointScored(m.code, 0, m.world.Score)
		m.events.TouchPresence(m.code)
	}
	if ev.RightScored {
		m.events.PointScored(m.code, 1, m.world.Score)
		m.events.TouchPresence(m.code)
	}

	if winner, over := m.world.Winner(); over {
		log.Printf("[MATCH] %s: game over, slot %d wins %d-%d",
			m.code, winner, m.world.Score[0], m.world.Score[1])
		m.phase = PhaseGameOver
		m.gameOverAt = time.Now()
		m.broadcast(m.snapshot())
		m.broadcast(protocol.GameOver{Winner: winner})
		m.events.GameOver(m.code, winner)
		return
	}

	m.frames++
	if m.frames%m.settings.BroadcastEvery == 0 {
		m.broadcast(m.snapshot())
	}
}

func (m *Match) snapshot() protocol.State {
	return protocol.State{
		Tick:       m.world.Tick,
		ServerTime: uint32(time.Since(m.epoch) / time.Millisecond),
		BallPos:    m.world.Ball.Pos,
		BallVel:    m.world.Ball.Vel,
		PaddleY:    [2]float64{m.world.Paddles[0].Y, m.world.Paddles[1].Y},
		Score:      m.world.Score,
	}
}

func (m *Match) broadcast(msg protocol.Message) {
	frame := protocol.Encode(msg)
	var failed []uint8
	for slot := uint8(0); slot < 2; slot++ {
		if !m.occupied[slot] {
			continue
		}
		if err := m.seats[slot].Send(frame); err != nil {
			failed = append(failed, slot)
		}
	}
	for _, slot := range failed {
		m.handleLeave(slot)
	}
}

func (m *Match) sendTo(slot uint8, msg protocol.Message) {
	if !m.occupied[slot] {
		return
	}
	if err := m.seats[slot].Send(protocol.Encode(msg)); err != nil {
		m.handleLeave(slot)
	}
}

func (m *Match) closeSeats() {
	for slot := uint8(0); slot < 2; slot++ {
		if m.seats[slot] != nil {
			_ = m.seats[slot].Close()
			m.seats[slot] = nil
			m.occupied[slot] = false
		}
	}
	m.occupants.Store(0)
}
