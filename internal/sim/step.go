package sim

// Step advances the world by elapsed seconds, consuming the queued
// inputs first. Elapsed time is clamped, accumulated, and spent in
// fixed micro-steps so collision timing does not depend on the caller's
// frame cadence; any remainder carries over to the next call.
//
// Step never panics and never blocks: malformed inputs are dropped and
// out-of-range numerics are clamped, so the kernel stays callable for
// the life of a match no matter what arrives off the wire.
func (w *World) Step(elapsed float64, inputs []Input) {
	w.Events.clear()
	w.ingestInputs(inputs)

	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > MaxStepDT {
		elapsed = MaxStepDT
	}
	w.accumulator = fix(w.accumulator + elapsed)

	for w.accumulator >= FixedDT {
		w.accumulator = fix(w.accumulator - FixedDT)
		w.microStep(FixedDT)
	}
}

// ingestInputs applies movement intents in non-decreasing sequence
// order per slot. A stale sequence number means the intent already
// arrived (or was superseded) and is dropped; so is anything with an
// unknown slot or a direction outside {-1, 0, +1}.
func (w *World) ingestInputs(inputs []Input) {
	for _, in := range inputs {
		if in.Slot > 1 {
			continue
		}
		if in.Dir < -1 || in.Dir > 1 {
			continue
		}
		if w.seqSeen[in.Slot] && in.Seq < w.lastSeq[in.Slot] {
			continue
		}
		w.lastSeq[in.Slot] = in.Seq
		w.seqSeen[in.Slot] = true
		w.Paddles[in.Slot].Dir = in.Dir
	}
}

func (w *World) microStep(dt float64) {
	w.Tick++

	if w.respawn > 0 {
		w.respawn = fix(w.respawn - dt)
		w.holdBall()
		w.movePaddles(dt)
		if w.respawn <= 0 {
			w.respawn = 0
			w.relaunchBall()
		}
		return
	}

	// A motionless ball outside the respawn window is a fresh world (or
	// a rematch after Reset) waiting for its first serve.
	if w.Ball.Vel.IsZero() {
		w.relaunchBall()
	}

	w.moveBall(dt)
	w.movePaddles(dt)
	w.collideWalls()
	w.collidePaddles()
	w.checkScoring()
}

func (w *World) moveBall(dt float64) {
	w.Ball.Pos = w.Ball.Pos.Plus(w.Ball.Vel.Times(dt))
}

func (w *World) movePaddles(dt float64) {
	for i := range w.Paddles {
		p := &w.Paddles[i]
		if p.Dir == 0 {
			continue
		}
		p.Y = fix(p.Y + float64(p.Dir)*w.Tuning.PaddleSpeed*dt)
		p.Y = w.Tuning.ClampPaddleY(p.Y)
	}
}

// checkScoring awards a point when the ball crosses an end wall, then
// holds the ball at center for the respawn delay. The increment and the
// reset happen in the same micro-step; no observer can see one without
// the other.
func (w *World) checkScoring() {
	if w.Ball.Pos.X < 0 {
		w.Score[1]++
		w.Events.RightScored = true
	} else if w.Ball.Pos.X > w.Tuning.ArenaWidth {
		w.Score[0]++
		w.Events.LeftScored = true
	} else {
		return
	}
	w.holdBall()
	w.respawn = w.Tuning.RespawnDelay
}
