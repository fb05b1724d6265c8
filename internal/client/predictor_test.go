package client

import (
	"math"
	"testing"

	"github.com/netpong/backend/internal/protocol"
	"github.com/netpong/backend/internal/sim"
)

type fakeSender struct {
	frames [][]byte
}

func (f *fakeSender) Send(b []byte) error {
	cp := make([]byte, len(b))
	copy(cp, b)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeSender) sent(t *testing.T) []protocol.Message {
	t.Helper()
	out := make([]protocol.Message, 0, len(f.frames))
	for _, b := range f.frames {
		msg, err := protocol.Decode(b)
		if err != nil {
			t.Fatalf("sent frame does not decode: %v", err)
		}
		out = append(out, msg)
	}
	return out
}

func handle(t *testing.T, p *Predictor, msg protocol.Message) {
	t.Helper()
	if err := p.HandleMessage(protocol.Encode(msg)); err != nil {
		t.Fatalf("HandleMessage(%T): %v", msg, err)
	}
}

func startPlaying(t *testing.T, p *Predictor, slot uint8) {
	t.Helper()
	handle(t, p, protocol.Welcome{Slot: slot})
	handle(t, p, protocol.GameStart{})
}

func TestInputsTaggedWithIncreasingSequence(t *testing.T) {
	fs := &fakeSender{}
	p := New(fs)
	startPlaying(t, p, 1)

	p.SubmitLocalInput(-1)
	p.SubmitLocalInput(-1) // held, not a change; must not re-send
	p.SubmitLocalInput(0)
	p.SubmitLocalInput(1)

	var inputs []protocol.Input
	for _, msg := range fs.sent(t) {
		if in, ok := msg.(protocol.Input); ok {
			inputs = append(inputs, in)
		}
	}
	if len(inputs) != 3 {
		t.Fatalf("Sent %d input frames, want 3 (held repeat suppressed)", len(inputs))
	}
	for i, in := range inputs {
		if in.Slot != 1 {
			t.Errorf("Input %d carries slot %d, want 1", i, in.Slot)
		}
		if i > 0 && in.Seq <= inputs[i-1].Seq {
			t.Errorf("Sequence not increasing: %d then %d", inputs[i-1].Seq, in.Seq)
		}
	}
}

func TestInputBeforeWelcomeIgnored(t *testing.T) {
	fs := &fakeSender{}
	p := New(fs)

	p.SubmitLocalInput(-1)

	if len(fs.frames) != 0 {
		t.Errorf("Unseated predictor sent %d frames", len(fs.frames))
	}
}

func TestLocalPaddleMovesWithoutWaitingForServer(t *testing.T) {
	p := New(&fakeSender{})
	startPlaying(t, p, 0)

	p.Advance(0)
	p.SubmitLocalInput(-1)
	p.Advance(100)

	got := p.SnapshotForRender().PaddleY[0]
	want := 12.0 - sim.PaddleSpeed*0.1
	if math.Abs(got-want) > 0.1 {
		t.Errorf("Local paddle y = %.4f after 100ms up, want ~%.4f", got, want)
	}
}

func TestSmallDivergenceKeepsPrediction(t *testing.T) {
	p := New(&fakeSender{})
	startPlaying(t, p, 0)
	p.Advance(0)

	handle(t, p, protocol.State{PaddleY: [2]float64{12.1, 12}})

	if got := p.SnapshotForRender().PaddleY[0]; got != 12.0 {
		t.Errorf("Prediction discarded inside tolerance: y = %.4f", got)
	}
}

func TestLargeDivergenceSnapsToServer(t *testing.T) {
	p := New(&fakeSender{})
	startPlaying(t, p, 0)
	p.Advance(0)

	handle(t, p, protocol.State{PaddleY: [2]float64{5, 12}})

	if got := p.SnapshotForRender().PaddleY[0]; got != 5.0 {
		t.Errorf("Prediction survived past tolerance: y = %.4f, want 5", got)
	}
}

func TestRemoteEntitiesInterpolateBetweenSnapshots(t *testing.T) {
	p := New(&fakeSender{})
	startPlaying(t, p, 0)

	p.Advance(0)
	p.Advance(10)
	handle(t, p, protocol.State{
		ServerTime: 1000,
		BallPos:    sim.Vec2{X: 10, Y: 12},
		PaddleY:    [2]float64{12, 8},
	})
	p.Advance(60)
	handle(t, p, protocol.State{
		ServerTime: 1100,
		BallPos:    sim.Vec2{X: 12, Y: 12},
		PaddleY:    [2]float64{12, 10},
	})
	p.Advance(110) // halfway through the 100ms snapshot span

	snap := p.SnapshotForRender()
	if snap.BallPos.X <= 10 || snap.BallPos.X >= 12 {
		t.Errorf("Ball x = %.4f, want strictly between snapshots 10 and 12", snap.BallPos.X)
	}
	if snap.PaddleY[1] <= 8 || snap.PaddleY[1] >= 10 {
		t.Errorf("Remote paddle y = %.4f, want strictly between 8 and 10", snap.PaddleY[1])
	}
}

func TestMatchEventsArriveInOrder(t *testing.T) {
	p := New(&fakeSender{})
	handle(t, p, protocol.Welcome{Slot: 0})
	handle(t, p, protocol.MatchFound{})
	handle(t, p, protocol.Countdown{Seconds: 3})
	handle(t, p, protocol.GameStart{})
	handle(t, p, protocol.State{Score: [2]uint8{1, 0}, PaddleY: [2]float64{12, 12}})
	handle(t, p, protocol.GameOver{Winner: 1})

	want := []string{"match_found", "countdown:3", "game_start", "score:1:0", "game_over:1"}
	for _, w := range want {
		ev, ok := p.NextMatchEvent()
		if !ok {
			t.Fatalf("Event queue empty, want %q", w)
		}
		if ev != w {
			t.Errorf("Event = %q, want %q", ev, w)
		}
	}
	if _, ok := p.NextMatchEvent(); ok {
		t.Error("Event queue not drained")
	}

	winner, over := p.Winner()
	if !over || winner != 1 {
		t.Errorf("Winner() = %d,%v want 1,true", winner, over)
	}
	if got := p.Score(); got != [2]uint8{1, 0} {
		t.Errorf("Score() = %v, want [1 0]", got)
	}
}

func TestPongYieldsRTT(t *testing.T) {
	fs := &fakeSender{}
	p := New(fs)
	handle(t, p, protocol.Welcome{Slot: 0})

	p.Advance(0)
	p.Ping(0)
	p.Advance(40)
	p.Advance(80)
	handle(t, p, protocol.Pong{ClientTime: 0})

	if got := p.RTT(); got != 80 {
		t.Errorf("RTT = %.1f, want 80", got)
	}

	msgs := fs.sent(t)
	if len(msgs) != 1 {
		t.Fatalf("Sent %d frames, want 1 ping", len(msgs))
	}
	if _, ok := msgs[0].(protocol.Ping); !ok {
		t.Errorf("Sent %T, want Ping", msgs[0])
	}
}

func TestClosedPredictorGoesQuiet(t *testing.T) {
	fs := &fakeSender{}
	p := New(fs)
	startPlaying(t, p, 0)
	p.Close()

	p.SubmitLocalInput(-1)
	p.Ping(0)
	handle(t, p, protocol.Countdown{Seconds: 2})

	if len(fs.frames) != 0 {
		t.Errorf("Closed predictor sent %d frames", len(fs.frames))
	}
	if _, ok := p.NextMatchEvent(); ok {
		t.Error("Closed predictor queued an event")
	}
}
