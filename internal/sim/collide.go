package sim

import "math"

// collideWalls reflects the ball off the top and bottom walls. Only the
// perpendicular velocity component flips; the ball is pushed back
// inside so it cannot tunnel out over consecutive steps.
func (w *World) collideWalls() {
	r := w.Tuning.BallRadius
	pos := w.Ball.Pos
	vel := w.Ball.Vel

	if pos.Y-r <= 0 || pos.Y+r >= w.Tuning.ArenaHeight {
		vel.Y = -vel.Y
		if pos.Y-r <= 0 {
			pos.Y = fix(r)
		}
		if pos.Y+r >= w.Tuning.ArenaHeight {
			pos.Y = fix(w.Tuning.ArenaHeight - r)
		}
		w.Ball.Pos = pos
		w.Ball.Vel = vel
		w.Events.BallHitWall = true
	}
}

func (w *World) collidePaddles() {
	for i := range w.Paddles {
		w.collidePaddle(&w.Paddles[i])
	}
}

func (w *World) collidePaddle(p *Paddle) {
	t := w.Tuning
	paddleX := t.PaddleX(p.Slot)
	halfW := t.PaddleWidth / 2.0
	halfH := t.PaddleHeight / 2.0

	dx := math.Abs(w.Ball.Pos.X - paddleX)
	dy := math.Abs(w.Ball.Pos.Y - p.Y)

	if dx >= halfW+t.BallRadius-t.BallOverlap || dy >= halfH+t.BallRadius {
		return
	}

	// Only deflect a ball moving into the paddle; one that already
	// bounced and is still overlapping must be left alone.
	approaching := (p.Slot == 0 && w.Ball.Vel.X < 0) || (p.Slot == 1 && w.Ball.Vel.X > 0)
	if !approaching {
		return
	}

	w.resolvePaddleContact(p, paddleX, halfW, halfH)
	w.Events.BallHitSlot[p.Slot] = true
}

// resolvePaddleContact computes the deflected velocity. The exit angle
// scales with the contact offset from the paddle center, clamped to
// MaxDeflect at the edges; the paddle's own velocity bleeds in so a
// moving paddle can slice the ball. Speed grows by the configured
// multiplier, capped at the maximum, and never decreases.
func (w *World) resolvePaddleContact(p *Paddle, paddleX, halfW, halfH float64) {
	t := w.Tuning

	hitOffset := clampf((w.Ball.Pos.Y-p.Y)/halfH, -1, 1)
	paddleVel := float64(p.Dir) * t.PaddleSpeed

	speed := w.Ball.Vel.Magnitude()
	newSpeed := fix(math.Min(speed*t.BallSpeedGrowth, t.BallSpeedMax))

	yDeflect := hitOffset * t.MaxDeflect * newSpeed
	influence := paddleVel * t.PaddleInfluence

	newVX := newSpeed
	if p.Slot == 1 {
		newVX = -newSpeed
	}
	w.Ball.Vel = NewVec2(newVX, yDeflect+influence).Normalize().Times(newSpeed)

	// Force the ball clear of the paddle so it cannot re-trigger the
	// contact on the next micro-step.
	if p.Slot == 0 {
		w.Ball.Pos.X = fix(paddleX + halfW + t.BallRadius - t.BallOverlap)
	} else {
		w.Ball.Pos.X = fix(paddleX - halfW - t.BallRadius + t.BallOverlap)
	}
}
