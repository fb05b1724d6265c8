package match

import (
	"testing"
	"time"

	"github.com/netpong/backend/internal/protocol"
)

type fakeConn struct {
	sendCh chan []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{sendCh: make(chan []byte, 256)}
}

func (f *fakeConn) Send(b []byte) error {
	cp := make([]byte, len(b))
	copy(cp, b)
	select {
	case f.sendCh <- cp:
	default:
	}
	return nil
}

func (f *fakeConn) Close() error { return nil }

func testSettings() Settings {
	return Settings{
		TickInterval:     2 * time.Millisecond,
		BroadcastEvery:   3,
		CountdownSeconds: 1,
		RestartTimeout:   time.Second,
		Seed:             7,
	}
}

func startMatch(t *testing.T) *Match {
	t.Helper()
	m := New("TESTC", testSettings(), NewEvents(nil))
	go m.Run()
	t.Cleanup(m.Stop)
	return m
}

func join(t *testing.T, m *Match, fc *fakeConn) uint8 {
	t.Helper()
	reply := make(chan JoinResult, 1)
	m.Inbox <- Join{Conn: fc, Reply: reply}
	res := <-reply
	if res.Err != nil {
		t.Fatalf("join failed: %v", res.Err)
	}
	return res.Slot
}

// waitFor reads frames off a fake connection until one decodes to the
// wanted kind.
func waitFor(t *testing.T, fc *fakeConn, kind protocol.Kind) protocol.Message {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case b := <-fc.sendCh:
			msg, err := protocol.Decode(b)
			if err != nil {
				t.Fatalf("decode broadcast frame: %v", err)
			}
			if msg.Kind() == kind {
				return msg
			}
		case <-timeout:
			t.Fatalf("timed out waiting for frame kind 0x%02x", byte(kind))
		}
	}
}

func TestJoinAssignsSlotsInOrder(t *testing.T) {
	m := startMatch(t)
	fc1, fc2 := newFakeConn(), newFakeConn()

	if slot := join(t, m, fc1); slot != 0 {
		t.Errorf("First join got slot %d, want 0", slot)
	}
	if slot := join(t, m, fc2); slot != 1 {
		t.Errorf("Second join got slot %d, want 1", slot)
	}

	w1 := waitFor(t, fc1, protocol.KindWelcome).(protocol.Welcome)
	w2 := waitFor(t, fc2, protocol.KindWelcome).(protocol.Welcome)
	if w1.Slot != 0 || w2.Slot != 1 {
		t.Errorf("Welcome slots = %d,%d want 0,1", w1.Slot, w2.Slot)
	}
}

func TestThirdJoinRejected(t *testing.T) {
	m := startMatch(t)
	join(t, m, newFakeConn())
	join(t, m, newFakeConn())

	reply := make(chan JoinResult, 1)
	m.Inbox <- Join{Conn: newFakeConn(), Reply: reply}
	res := <-reply
	if res.Err != ErrMatchFull {
		t.Errorf("Third join err = %v, want ErrMatchFull", res.Err)
	}
}

func TestSecondJoinRunsCountdownIntoPlay(t *testing.T) {
	m := startMatch(t)
	fc1, fc2 := newFakeConn(), newFakeConn()
	join(t, m, fc1)
	join(t, m, fc2)

	// Both seats hear the pairing, the countdown, and the start.
	waitFor(t, fc1, protocol.KindMatchFound)
	waitFor(t, fc2, protocol.KindMatchFound)

	cd := waitFor(t, fc1, protocol.KindCountdown).(protocol.Countdown)
	if cd.Seconds == 0 {
		t.Error("Countdown announced zero seconds")
	}
	waitFor(t, fc1, protocol.KindGameStart)
	waitFor(t, fc2, protocol.KindGameStart)
}

func TestStateBroadcastAdvancesTicks(t *testing.T) {
	m := startMatch(t)
	fc1, fc2 := newFakeConn(), newFakeConn()
	join(t, m, fc1)
	join(t, m, fc2)
	waitFor(t, fc1, protocol.KindGameStart)

	first := waitFor(t, fc1, protocol.KindState).(protocol.State)
	second := waitFor(t, fc1, protocol.KindState).(protocol.State)
	if second.Tick <= first.Tick {
		t.Errorf("Broadcast ticks not advancing: %d then %d", first.Tick, second.Tick)
	}
}

func TestInputMovesOnlyOwnPaddle(t *testing.T) {
	m := startMatch(t)
	fc1, fc2 := newFakeConn(), newFakeConn()
	slot := join(t, m, fc1)
	join(t, m, fc2)
	waitFor(t, fc1, protocol.KindGameStart)

	start := waitFor(t, fc1, protocol.KindState).(protocol.State)

	// Slot 0 holds "up"; the frame claims slot 1 but the seat decides.
	m.Inbox <- Frame{Slot: slot, Msg: protocol.Input{Slot: 1, Dir: -1, Seq: 1}}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case b := <-fc1.sendCh:
			msg, err := protocol.Decode(b)
			if err != nil || msg.Kind() != protocol.KindState {
				continue
			}
			st := msg.(protocol.State)
			if st.PaddleY[0] < start.PaddleY[0]-0.5 {
				if st.PaddleY[1] != start.PaddleY[1] {
					t.Errorf("Opponent paddle moved from spoofed slot: %.4f -> %.4f",
						start.PaddleY[1], st.PaddleY[1])
				}
				return
			}
		case <-timeout:
			t.Fatal("Paddle never moved after input")
		}
	}
}

func TestFirstJoinReceivesWelcomeThenSnapshot(t *testing.T) {
	m := startMatch(t)
	fc := newFakeConn()
	join(t, m, fc)

	// The seat learns its slot and the current world in one breath, so
	// a reconnecting client can draw before the next broadcast.
	for i, want := range []protocol.Kind{protocol.KindWelcome, protocol.KindState} {
		select {
		case b := <-fc.sendCh:
			msg, err := protocol.Decode(b)
			if err != nil {
				t.Fatalf("decode frame %d: %v", i, err)
			}
			if msg.Kind() != want {
				t.Fatalf("Frame %d kind = 0x%02x, want 0x%02x", i, byte(msg.Kind()), byte(want))
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("Timed out waiting for frame %d", i)
		}
	}
}

func TestPlayingDisconnectAwardsWinToSurvivor(t *testing.T) {
	m := startMatch(t)
	fc1, fc2 := newFakeConn(), newFakeConn()
	slot1 := join(t, m, fc1)
	slot2 := join(t, m, fc2)
	waitFor(t, fc2, protocol.KindGameStart)

	m.Inbox <- Leave{Slot: slot1}

	waitFor(t, fc2, protocol.KindOpponentLeft)
	over := waitFor(t, fc2, protocol.KindGameOver).(protocol.GameOver)
	if over.Winner != slot2 {
		t.Errorf("Forfeit winner = %d, want surviving slot %d", over.Winner, slot2)
	}
	if got := m.NumPlayers(); got != 1 {
		t.Errorf("NumPlayers = %d after one leave, want 1", got)
	}
}

func TestCountdownDisconnectCancelsToWaiting(t *testing.T) {
	m := startMatch(t)
	fc1, fc2 := newFakeConn(), newFakeConn()
	slot1 := join(t, m, fc1)
	join(t, m, fc2)
	waitFor(t, fc2, protocol.KindCountdown)

	m.Inbox <- Leave{Slot: slot1}
	waitFor(t, fc2, protocol.KindOpponentLeft)

	// No forfeit before play started: the next seat to fill simply
	// restarts the pairing from the top.
	fc3 := newFakeConn()
	join(t, m, fc3)
	waitFor(t, fc2, protocol.KindMatchFound)
	waitFor(t, fc3, protocol.KindGameStart)
}

func TestUnrestartedGameOverClosesMatch(t *testing.T) {
	settings := testSettings()
	settings.RestartTimeout = 20 * time.Millisecond
	m := New("TESTC", settings, NewEvents(nil))
	go m.Run()
	t.Cleanup(m.Stop)

	fc1, fc2 := newFakeConn(), newFakeConn()
	slot1 := join(t, m, fc1)
	join(t, m, fc2)
	waitFor(t, fc2, protocol.KindGameStart)

	// Forfeit ends the game; with nobody asking for a rematch the
	// actor (and its ticker) must wind down on its own.
	m.Inbox <- Leave{Slot: slot1}
	waitFor(t, fc2, protocol.KindGameOver)

	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Match still running long after an unrestarted game over")
	}
}

func TestZeroSettingsClampedToSafeMinimums(t *testing.T) {
	m := New("TESTC", Settings{}, NewEvents(nil))
	if m.settings.TickInterval <= 0 {
		t.Errorf("TickInterval = %v, want positive", m.settings.TickInterval)
	}
	if m.settings.BroadcastEvery < 1 {
		t.Errorf("BroadcastEvery = %d, want >= 1", m.settings.BroadcastEvery)
	}
	if m.settings.CountdownSeconds < 1 {
		t.Errorf("CountdownSeconds = %d, want >= 1", m.settings.CountdownSeconds)
	}

	// The clamped loop must actually run: zero-valued env input used to
	// mean a ticker panic or a modulo-by-zero on the first broadcast.
	go m.Run()
	t.Cleanup(m.Stop)
	fc1, fc2 := newFakeConn(), newFakeConn()
	join(t, m, fc1)
	join(t, m, fc2)
	waitFor(t, fc1, protocol.KindGameStart)
	waitFor(t, fc1, protocol.KindState)
}

func TestLastLeaveStopsActor(t *testing.T) {
	emptied := make(chan string, 1)
	m := New("TESTC", testSettings(), NewEvents(nil))
	m.onEmpty = func(code string) { emptied <- code }
	go m.Run()

	fc := newFakeConn()
	slot := join(t, m, fc)
	m.Inbox <- Leave{Slot: slot}

	select {
	case code := <-emptied:
		if code != "TESTC" {
			t.Errorf("onEmpty code = %q, want TESTC", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onEmpty never fired after last leave")
	}
	if got := m.NumPlayers(); got != 0 {
		t.Errorf("NumPlayers = %d after last leave, want 0", got)
	}

	// The actor (and with it the tick timer) must die promptly, not
	// linger simulating an empty match.
	select {
	case <-m.Done():
	case <-time.After(2 * testSettings().TickInterval):
		t.Error("Actor still running after last socket left")
	}
}

func TestManagerCreateAndLookup(t *testing.T) {
	mgr := NewManager(testSettings(), NewEvents(nil))
	m := mgr.Create()
	t.Cleanup(m.Stop)

	if len(m.Code()) != protocol.CodeLength {
		t.Errorf("Code %q has wrong length", m.Code())
	}
	got, ok := mgr.Get(m.Code())
	if !ok || got != m {
		t.Error("Get did not return the created match")
	}
	if mgr.GetOrCreate(m.Code()) != m {
		t.Error("GetOrCreate replaced a live match")
	}
}

func TestManagerRemovesEmptyMatch(t *testing.T) {
	mgr := NewManager(testSettings(), NewEvents(nil))
	m := mgr.GetOrCreate("ABCDE")

	fc := newFakeConn()
	slot := join(t, m, fc)
	m.Inbox <- Leave{Slot: slot}

	deadline := time.Now().Add(2 * time.Second)
	for mgr.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Empty match never removed from manager")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestReaperRemovesUnjoinedMatch(t *testing.T) {
	mgr := NewManager(testSettings(), NewEvents(nil))
	mgr.Create()
	mgr.Create()

	mgr.reap(0)

	if got := mgr.Count(); got != 0 {
		t.Errorf("Count = %d after reap, want 0", got)
	}
}
