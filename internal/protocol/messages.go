package protocol

import "github.com/netpong/backend/internal/sim"

// Kind is the leading byte of every frame. Client-to-server kinds live
// in 0x01-0x0f, server-to-client kinds in 0x10-0x1f.
type Kind uint8

const (
	KindJoin    Kind = 0x01
	KindInput   Kind = 0x02
	KindPing    Kind = 0x03
	KindRestart Kind = 0x04

	KindWelcome      Kind = 0x10
	KindState        Kind = 0x11
	KindCountdown    Kind = 0x12
	KindGameStart    Kind = 0x13
	KindGameOver     Kind = 0x14
	KindPong         Kind = 0x15
	KindMatchFound   Kind = 0x16
	KindOpponentLeft Kind = 0x17
)

// CodeLength is the fixed length of a match code on the wire.
const CodeLength = 5

// Message is any frame that can cross the socket.
type Message interface {
	Kind() Kind
}

// Join asks to take a seat in the match identified by Code.
type Join struct {
	Code string
}

// Input carries one movement intent. Seq increases per client so the
// kernel can drop frames the network delivered out of order.
type Input struct {
	Slot uint8
	Dir  int8
	Seq  uint32
}

// Ping carries the client's millisecond clock; the server echoes it
// back unchanged in Pong so the client can measure round-trip time.
type Ping struct {
	ClientTime uint32
}

// Restart asks for a rematch after game over.
type Restart struct{}

// Welcome confirms a seat. Slot 0 defends the left wall, slot 1 the
// right.
type Welcome struct {
	Slot uint8
}

// State is the authoritative snapshot broadcast while playing.
// ServerTime is the server's millisecond clock at capture, used by the
// client to place snapshots on its interpolation timeline.
type State struct {
	Tick       uint32
	ServerTime uint32
	BallPos    sim.Vec2
	BallVel    sim.Vec2
	PaddleY    [2]float64
	Score      [2]uint8
}

// Countdown announces seconds remaining before play begins.
type Countdown struct {
	Seconds uint8
}

// GameStart marks the transition into live play.
type GameStart struct{}

// GameOver announces the winning slot.
type GameOver struct {
	Winner uint8
}

// Pong echoes a Ping's clock value.
type Pong struct {
	ClientTime uint32
}

// MatchFound tells the first player their opponent has arrived.
type MatchFound struct{}

// OpponentLeft tells the remaining player their opponent's socket
// dropped.
type OpponentLeft struct{}

func (Join) Kind() Kind         { return KindJoin }
func (Input) Kind() Kind        { return KindInput }
func (Ping) Kind() Kind         { return KindPing }
func (Restart) Kind() Kind      { return KindRestart }
func (Welcome) Kind() Kind      { return KindWelcome }
func (State) Kind() Kind        { return KindState }
func (Countdown) Kind() Kind    { return KindCountdown }
func (GameStart) Kind() Kind    { return KindGameStart }
func (GameOver) Kind() Kind     { return KindGameOver }
func (Pong) Kind() Kind         { return KindPong }
func (MatchFound) Kind() Kind   { return KindMatchFound }
func (OpponentLeft) Kind() Kind { return KindOpponentLeft }
