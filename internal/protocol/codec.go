package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/netpong/backend/internal/sim"
)

// Every frame is binary little-endian: one kind byte followed by the
// fixed-size payload for that kind. Coordinates and velocities travel
// as int16 fixed-point with 1/1024 unit resolution, which keeps the
// State frame at 23 bytes and the quantization error an order of
// magnitude below the reconciliation tolerance.

const coordScale = 1024.0

const (
	joinFrameLen      = 1 + CodeLength
	inputFrameLen     = 7
	pingFrameLen      = 5
	welcomeFrameLen   = 2
	stateFrameLen     = 23
	countdownFrameLen = 2
	gameOverFrameLen  = 2
	pongFrameLen      = 5
)

// DecodeError reports a frame the decoder rejected. The kind is zero
// when the frame was too short to carry one.
type DecodeError struct {
	Kind   Kind
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("protocol: kind=0x%02x: %s", byte(e.Kind), e.Reason)
}

func badFrame(k Kind, reason string) error {
	return &DecodeError{Kind: k, Reason: reason}
}

func quantize(v float64) int16 {
	q := math.Round(v * coordScale)
	if q > math.MaxInt16 {
		q = math.MaxInt16
	}
	if q < math.MinInt16 {
		q = math.MinInt16
	}
	return int16(q)
}

func dequantize(q int16) float64 {
	return float64(q) / coordScale
}

func putCoord(b []byte, v float64) {
	binary.LittleEndian.PutUint16(b, uint16(quantize(v)))
}

func coord(b []byte) float64 {
	return dequantize(int16(binary.LittleEndian.Uint16(b)))
}

// Encode serializes a message into a fresh frame.
func Encode(m Message) []byte {
	switch msg := m.(type) {
	case Join:
		b := make([]byte, joinFrameLen)
		b[0] = byte(KindJoin)
		copy(b[1:], msg.Code)
		return b
	case Input:
		b := make([]byte, inputFrameLen)
		b[0] = byte(KindInput)
		b[1] = msg.Slot
		b[2] = byte(msg.Dir)
		binary.LittleEndian.PutUint32(b[3:], msg.Seq)
		return b
	case Ping:
		b := make([]byte, pingFrameLen)
		b[0] = byte(KindPing)
		binary.LittleEndian.PutUint32(b[1:], msg.ClientTime)
		return b
	case Restart:
		return []byte{byte(KindRestart)}
	case Welcome:
		return []byte{byte(KindWelcome), msg.Slot}
	case State:
		b := make([]byte, stateFrameLen)
		b[0] = byte(KindState)
		binary.LittleEndian.PutUint32(b[1:], msg.Tick)
		binary.LittleEndian.PutUint32(b[5:], msg.ServerTime)
		putCoord(b[9:], msg.BallPos.X)
		putCoord(b[11:], msg.BallPos.Y)
		putCoord(b[13:], msg.BallVel.X)
		putCoord(b[15:], msg.BallVel.Y)
		putCoord(b[17:], msg.PaddleY[0])
		putCoord(b[19:], msg.PaddleY[1])
		b[21] = msg.Score[0]
		b[22] = msg.Score[1]
		return b
	case Countdown:
		return []byte{byte(KindCountdown), msg.Seconds}
	case GameStart:
		return []byte{byte(KindGameStart)}
	case GameOver:
		return []byte{byte(KindGameOver), msg.Winner}
	case Pong:
		b := make([]byte, pongFrameLen)
		b[0] = byte(KindPong)
		binary.LittleEndian.PutUint32(b[1:], msg.ClientTime)
		return b
	case MatchFound:
		return []byte{byte(KindMatchFound)}
	case OpponentLeft:
		return []byte{byte(KindOpponentLeft)}
	default:
		// Unreachable for messages defined in this package.
		panic(fmt.Sprintf("protocol: encode of unknown message %T", m))
	}
}

// Decode parses one frame. Truncated, oversized, and unknown frames
// come back as a *DecodeError so transports can drop them and keep the
// connection alive.
func Decode(b []byte) (Message, error) {
	if len(b) == 0 {
		return nil, badFrame(0, "empty frame")
	}
	k := Kind(b[0])
	switch k {
	case KindJoin:
		if len(b) != joinFrameLen {
			return nil, badFrame(k, fmt.Sprintf("join frame is %d bytes, want %d", len(b), joinFrameLen))
		}
		return Join{Code: string(b[1:])}, nil
	case KindInput:
		if len(b) != inputFrameLen {
			return nil, badFrame(k, fmt.Sprintf("input frame is %d bytes, want %d", len(b), inputFrameLen))
		}
		return Input{
			Slot: b[1],
			Dir:  int8(b[2]),
			Seq:  binary.LittleEndian.Uint32(b[3:]),
		}, nil
	case KindPing:
		if len(b) != pingFrameLen {
			return nil, badFrame(k, fmt.Sprintf("ping frame is %d bytes, want %d", len(b), pingFrameLen))
		}
		return Ping{ClientTime: binary.LittleEndian.Uint32(b[1:])}, nil
	case KindRestart:
		if len(b) != 1 {
			return nil, badFrame(k, "restart frame carries no payload")
		}
		return Restart{}, nil
	case KindWelcome:
		if len(b) != welcomeFrameLen {
			return nil, badFrame(k, fmt.Sprintf("welcome frame is %d bytes, want %d", len(b), welcomeFrameLen))
		}
		return Welcome{Slot: b[1]}, nil
	case KindState:
		if len(b) != stateFrameLen {
			return nil, badFrame(k, fmt.Sprintf("state frame is %d bytes, want %d", len(b), stateFrameLen))
		}
		return State{
			Tick:       binary.LittleEndian.Uint32(b[1:]),
			ServerTime: binary.LittleEndian.Uint32(b[5:]),
			BallPos:    sim.Vec2{X: coord(b[9:]), Y: coord(b[11:])},
			BallVel:    sim.Vec2{X: coord(b[13:]), Y: coord(b[15:])},
			PaddleY:    [2]float64{coord(b[17:]), coord(b[19:])},
			Score:      [2]uint8{b[21], b[22]},
		}, nil
	case KindCountdown:
		if len(b) != countdownFrameLen {
			return nil, badFrame(k, fmt.Sprintf("countdown frame is %d bytes, want %d", len(b), countdownFrameLen))
		}
		return Countdown{Seconds: b[1]}, nil
	case KindGameStart:
		if len(b) != 1 {
			return nil, badFrame(k, "game start frame carries no payload")
		}
		return GameStart{}, nil
	case KindGameOver:
		if len(b) != gameOverFrameLen {
			return nil, badFrame(k, fmt.Sprintf("game over frame is %d bytes, want %d", len(b), gameOverFrameLen))
		}
		return GameOver{Winner: b[1]}, nil
	case KindPong:
		if len(b) != pongFrameLen {
			return nil, badFrame(k, fmt.Sprintf("pong frame is %d bytes, want %d", len(b), pongFrameLen))
		}
		return Pong{ClientTime: binary.LittleEndian.Uint32(b[1:])}, nil
	case KindMatchFound:
		if len(b) != 1 {
			return nil, badFrame(k, "match found frame carries no payload")
		}
		return MatchFound{}, nil
	case KindOpponentLeft:
		if len(b) != 1 {
			return nil, badFrame(k, "opponent left frame carries no payload")
		}
		return OpponentLeft{}, nil
	default:
		return nil, badFrame(k, "unknown frame kind")
	}
}
