package sim

// Default tuning values. These match the browser build exactly; changing
// one side without the other breaks prediction.
const (
	ArenaWidth  = 32.0
	ArenaHeight = 24.0

	PaddleWidth  = 0.8
	PaddleHeight = 4.0
	PaddleSpeed  = 18.0 // units/second
	PaddleInset  = 1.5  // paddle center distance from its end wall

	BallRadius       = 0.5
	BallSpeedInitial = 12.0
	BallSpeedMax     = 24.0
	BallSpeedGrowth  = 1.05 // multiplier per paddle contact
	BallOverlap      = 0.4  // how far the ball may sink into a paddle

	// MaxDeflect is the steepest exit angle off a paddle edge, in
	// radians (~45 degrees). PaddleInfluence is how much of the
	// paddle's own velocity is imparted to the ball on contact.
	MaxDeflect      = 0.785
	PaddleInfluence = 0.3

	WinScore = 5

	// FixedDT is the micro-step size. Elapsed time handed to Step is
	// clamped to MaxStepDT before being consumed, so a stalled host
	// can never force a runaway catch-up burst.
	FixedDT   = 1.0 / 60.0
	MaxStepDT = 0.1

	// RespawnDelay holds the ball at center with zero velocity after a
	// score before it is relaunched.
	RespawnDelay = 1.5
)

// Tuning carries the per-match physics parameters. Zero value is not
// usable; call DefaultTuning.
type Tuning struct {
	ArenaWidth  float64 `json:"arena_width"`
	ArenaHeight float64 `json:"arena_height"`

	PaddleWidth  float64 `json:"paddle_width"`
	PaddleHeight float64 `json:"paddle_height"`
	PaddleSpeed  float64 `json:"paddle_speed"`
	PaddleInset  float64 `json:"paddle_inset"`

	BallRadius       float64 `json:"ball_radius"`
	BallSpeedInitial float64 `json:"ball_speed_initial"`
	BallSpeedMax     float64 `json:"ball_speed_max"`
	BallSpeedGrowth  float64 `json:"ball_speed_growth"`
	BallOverlap      float64 `json:"ball_overlap"`

	MaxDeflect      float64 `json:"max_deflect"`
	PaddleInfluence float64 `json:"paddle_influence"`

	WinScore     uint8   `json:"win_score"`
	RespawnDelay float64 `json:"respawn_delay"`
}

// DefaultTuning returns the standard arena parameters.
func DefaultTuning() Tuning {
	return Tuning{
		ArenaWidth:       ArenaWidth,
		ArenaHeight:      ArenaHeight,
		PaddleWidth:      PaddleWidth,
		PaddleHeight:     PaddleHeight,
		PaddleSpeed:      PaddleSpeed,
		PaddleInset:      PaddleInset,
		BallRadius:       BallRadius,
		BallSpeedInitial: BallSpeedInitial,
		BallSpeedMax:     BallSpeedMax,
		BallSpeedGrowth:  BallSpeedGrowth,
		BallOverlap:      BallOverlap,
		MaxDeflect:       MaxDeflect,
		PaddleInfluence:  PaddleInfluence,
		WinScore:         WinScore,
		RespawnDelay:     RespawnDelay,
	}
}

// PaddleX returns the fixed X coordinate for a slot's paddle.
func (t Tuning) PaddleX(slot uint8) float64 {
	if slot == 0 {
		return t.PaddleInset
	}
	return t.ArenaWidth - t.PaddleInset
}

// ClampPaddleY keeps a paddle center inside the arena.
func (t Tuning) ClampPaddleY(y float64) float64 {
	half := t.PaddleHeight / 2.0
	return clampf(y, half, t.ArenaHeight-half)
}

// BallSpawn is the ball's reset position.
func (t Tuning) BallSpawn() Vec2 {
	return NewVec2(t.ArenaWidth/2.0, t.ArenaHeight/2.0)
}

// PaddleSpawn is a slot's initial paddle center.
func (t Tuning) PaddleSpawn(slot uint8) Vec2 {
	return NewVec2(t.PaddleX(slot), t.ArenaHeight/2.0)
}
