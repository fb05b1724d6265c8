package client

import (
	"fmt"
	"sync"

	"github.com/netpong/backend/internal/protocol"
	"github.com/netpong/backend/internal/sim"
)

// Sender is the outbound half of the connection. The websocket (or
// wasm bridge) implements it; the predictor never dials anything
// itself.
type Sender interface {
	Send([]byte) error
}

// DivergenceTolerance is how far the predicted local paddle may drift
// from the authoritative position before the speculative state is
// thrown away and the snapshot adopted wholesale.
const DivergenceTolerance = 0.25

// maxQueuedEvents bounds the match event queue; a UI that stops
// draining loses the oldest events, not the newest.
const maxQueuedEvents = 32

// RenderSnapshot is what the renderer reads once per animation frame.
// The local paddle is the predicted one; everything else is
// interpolated server state.
type RenderSnapshot struct {
	BallPos sim.Vec2
	PaddleY [2]float64
	Score   [2]uint8
}

type snapshot struct {
	state     protocol.State
	arrivalMs float64
}

// Predictor owns the speculative kernel on the client side. Local
// input is applied immediately and mailed to the server; authoritative
// snapshots flow back in through HandleMessage and either confirm the
// prediction or replace it.
type Predictor struct {
	mu     sync.Mutex
	sender Sender

	world    *sim.World
	slot     uint8
	seated   bool
	playing  bool
	heldDir  int8
	seq      uint32
	lastSent int8

	nowMs       float64
	clockSet    bool
	accumulator float64

	prev, cur *snapshot

	score    [2]uint8
	winner   uint8
	gameOver bool

	rttMs  float64
	events []string
	closed bool
}

func New(sender Sender) *Predictor {
	return &Predictor{
		sender:   sender,
		world:    sim.NewWorld(sim.DefaultTuning(), 1),
		lastSent: -2, // outside {-1,0,1} so the first submit always sends
	}
}

// SubmitLocalInput registers a held movement intent. The paddle starts
// moving this frame; the server hears about it one round trip later.
// Repeats of the already-held direction are not re-sent.
func (p *Predictor) SubmitLocalInput(dir int8) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || !p.seated || dir < -1 || dir > 1 {
		return
	}
	p.heldDir = dir
	if dir == p.lastSent {
		return
	}
	p.lastSent = dir
	p.seq++
	_ = p.sender.Send(protocol.Encode(protocol.Input{Slot: p.slot, Dir: dir, Seq: p.seq}))
}

// Advance steps the local prediction up to nowMs (the caller's
// animation clock, milliseconds). Only the local paddle is predicted;
// the ball and the opponent belong to the server.
func (p *Predictor) Advance(nowMs float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	if !p.clockSet {
		p.nowMs = nowMs
		p.clockSet = true
		return
	}

	elapsed := (nowMs - p.nowMs) / 1000.0
	p.nowMs = nowMs
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > sim.MaxStepDT {
		elapsed = sim.MaxStepDT
	}
	if !p.playing {
		return
	}

	p.accumulator += elapsed
	t := p.world.Tuning
	paddle := &p.world.Paddles[p.slot]
	for p.accumulator >= sim.FixedDT {
		p.accumulator -= sim.FixedDT
		if p.heldDir != 0 {
			paddle.Y = t.ClampPaddleY(paddle.Y + float64(p.heldDir)*t.PaddleSpeed*sim.FixedDT)
		}
	}
}

// HandleMessage is the socket's frame callback.
func (p *Predictor) HandleMessage(data []byte) error {
	msg, err := protocol.Decode(data)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}

	switch m := msg.(type) {
	case protocol.Welcome:
		p.slot = m.Slot
		p.seated = true
	case protocol.State:
		p.adoptState(m)
	case protocol.MatchFound:
		p.pushEvent("match_found")
	case protocol.Countdown:
		p.pushEvent(fmt.Sprintf("countdown:%d", m.Seconds))
	case protocol.GameStart:
		p.playing = true
		p.gameOver = false
		p.accumulator = 0
		p.score = [2]uint8{}
		p.prev, p.cur = nil, nil
		p.world.Reset()
		p.pushEvent("game_start")
	case protocol.GameOver:
		p.playing = false
		p.gameOver = true
		p.winner = m.Winner
		p.pushEvent(fmt.Sprintf("game_over:%d", m.Winner))
	case protocol.OpponentLeft:
		p.playing = false
		p.pushEvent("opponent_left")
	case protocol.Pong:
		p.rttMs = p.nowMs - float64(m.ClientTime)
	}
	return nil
}

func (p *Predictor) adoptState(s protocol.State) {
	if s.Score != p.score {
		p.pushEvent(fmt.Sprintf("score:%d:%d", s.Score[0], s.Score[1]))
		p.score = s.Score
	}

	// Reconcile the predicted paddle. Inside the tolerance the
	// prediction stands; outside it the speculative state loses
	// wholesale — no rewind, the next frames re-predict from here.
	serverY := s.PaddleY[p.slot]
	predicted := p.world.Paddles[p.slot].Y
	if diff := predicted - serverY; diff > DivergenceTolerance || diff < -DivergenceTolerance {
		p.world.Paddles[p.slot].Y = serverY
		p.accumulator = 0
	}

	p.prev = p.cur
	p.cur = &snapshot{state: s, arrivalMs: p.nowMs}
}

// SnapshotForRender assembles the frame the renderer draws: predicted
// local paddle, interpolated opponent and ball.
func (p *Predictor) SnapshotForRender() RenderSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := RenderSnapshot{
		BallPos: p.world.Ball.Pos,
		PaddleY: [2]float64{p.world.Paddles[0].Y, p.world.Paddles[1].Y},
		Score:   p.score,
	}
	if p.cur == nil {
		return out
	}

	remote := 1 - p.slot
	if p.prev == nil {
		out.BallPos = p.cur.state.BallPos
		out.PaddleY[remote] = p.cur.state.PaddleY[remote]
		return out
	}

	// Render the remote entities a little in the past, blending from
	// the older snapshot toward the newer one as wall time passes.
	span := float64(p.cur.state.ServerTime) - float64(p.prev.state.ServerTime)
	if span <= 0 {
		span = 1
	}
	t := (p.nowMs - p.cur.arrivalMs) / span
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}

	out.BallPos = lerpVec(p.prev.state.BallPos, p.cur.state.BallPos, t)
	out.PaddleY[remote] = lerp(p.prev.state.PaddleY[remote], p.cur.state.PaddleY[remote], t)
	return out
}

// Ping mails a latency probe stamped with the caller's clock.
func (p *Predictor) Ping(nowMs float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	_ = p.sender.Send(protocol.Encode(protocol.Ping{ClientTime: uint32(nowMs)}))
}

// RequestRestart asks the server for a rematch after game over.
func (p *Predictor) RequestRestart() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || !p.gameOver {
		return
	}
	_ = p.sender.Send(protocol.Encode(protocol.Restart{}))
}

// RTT is the most recent round-trip estimate in milliseconds.
func (p *Predictor) RTT() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rttMs
}

// Slot reports the seat the server assigned, once Welcome arrived.
func (p *Predictor) Slot() (uint8, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slot, p.seated
}

// Score is the authoritative score as of the latest snapshot.
func (p *Predictor) Score() [2]uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.score
}

// Winner reports the winning slot once the match ended.
func (p *Predictor) Winner() (uint8, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.winner, p.gameOver
}

// NextMatchEvent pops the oldest queued match event string, if any.
func (p *Predictor) NextMatchEvent() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return "", false
	}
	ev := p.events[0]
	p.events = p.events[1:]
	return ev, true
}

// Close stops the predictor; later messages and inputs are ignored.
func (p *Predictor) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.events = nil
}

func (p *Predictor) pushEvent(ev string) {
	if len(p.events) >= maxQueuedEvents {
		p.events = p.events[1:]
	}
	p.events = append(p.events, ev)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func lerpVec(a, b sim.Vec2, t float64) sim.Vec2 {
	return sim.Vec2{X: lerp(a.X, b.X, t), Y: lerp(a.Y, b.Y, t)}
}
