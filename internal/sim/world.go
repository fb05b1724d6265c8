package sim

import (
	"math"
	"math/rand"
)

// Paddle is one player slot's actor. X is fixed per slot; the paddle is
// free on Y only.
type Paddle struct {
	Slot uint8   `json:"slot"`
	Y    float64 `json:"y"`
	Dir  int8    `json:"dir"` // held movement intent: -1 up, 0 hold, +1 down
}

// Ball is the contested object.
type Ball struct {
	Pos Vec2 `json:"pos"`
	Vel Vec2 `json:"vel"`
}

// Input is one movement intent from a player, ordered by Seq per slot.
type Input struct {
	Slot uint8
	Dir  int8
	Seq  uint32
}

// Events reports what happened during the most recent Step call.
type Events struct {
	LeftScored  bool
	RightScored bool
	BallHitWall bool
	BallHitSlot [2]bool
}

func (e *Events) clear() {
	*e = Events{}
}

// World is the complete simulation state for one match. It is a pure
// value-state machine: Step never reads the clock or the environment,
// so two worlds fed identical inputs and elapsed times stay
// bit-identical. One instance is owned by the server match actor, a
// second speculative instance by the client predictor.
type World struct {
	Tuning  Tuning     `json:"tuning"`
	Tick    uint32     `json:"tick"`
	Ball    Ball       `json:"ball"`
	Paddles [2]Paddle  `json:"paddles"`
	Score   [2]uint8   `json:"score"`
	Events  Events     `json:"-"`

	respawn     float64
	accumulator float64
	lastSeq     [2]uint32
	seqSeen     [2]bool
	rng         *rand.Rand
}

// NewWorld builds a world at the initial configured state. The seed
// drives only ball relaunch directions; a fixed seed reproduces them.
func NewWorld(t Tuning, seed int64) *World {
	w := &World{
		Tuning: t,
		rng:    rand.New(rand.NewSource(seed)),
	}
	w.Paddles[0] = Paddle{Slot: 0, Y: t.PaddleSpawn(0).Y}
	w.Paddles[1] = Paddle{Slot: 1, Y: t.PaddleSpawn(1).Y}
	w.Ball = Ball{Pos: t.BallSpawn()}
	return w
}

// Reset returns the world to its initial state for a rematch. The RNG
// stream continues; paddles and ball respawn, score and tick clear.
func (w *World) Reset() {
	t := w.Tuning
	w.Tick = 0
	w.Score = [2]uint8{}
	w.Events.clear()
	w.respawn = 0
	w.accumulator = 0
	w.lastSeq = [2]uint32{}
	w.seqSeen = [2]bool{}
	w.Paddles[0] = Paddle{Slot: 0, Y: t.PaddleSpawn(0).Y}
	w.Paddles[1] = Paddle{Slot: 1, Y: t.PaddleSpawn(1).Y}
	w.Ball = Ball{Pos: t.BallSpawn()}
}

// Winner returns the winning slot once a score reaches the threshold.
func (w *World) Winner() (uint8, bool) {
	if w.Score[0] >= w.Tuning.WinScore {
		return 0, true
	}
	if w.Score[1] >= w.Tuning.WinScore {
		return 1, true
	}
	return 0, false
}

// BallSpeed is the ball's current scalar speed.
func (w *World) BallSpeed() float64 {
	return w.Ball.Vel.Magnitude()
}

// relaunchBall gives the held ball a fresh serve: initial speed, random
// side, exit angle within the deflection cone.
func (w *World) relaunchBall() {
	angle := fix((w.rng.Float64()*2 - 1) * w.Tuning.MaxDeflect)
	dir := 1.0
	if w.rng.Intn(2) == 0 {
		dir = -1.0
	}
	speed := w.Tuning.BallSpeedInitial
	w.Ball.Vel = NewVec2(dir*math.Cos(angle)*speed, math.Sin(angle)*speed)
}

// holdBall pins the ball at center with no velocity during the respawn
// delay after a score.
func (w *World) holdBall() {
	w.Ball.Pos = w.Tuning.BallSpawn()
	w.Ball.Vel = Vec2{}
}
