package match

import (
	"errors"

	"github.com/netpong/backend/internal/protocol"
)

// Conn is the transport a seated player writes through. The websocket
// layer implements it with a buffered send channel; tests use fakes.
type Conn interface {
	Send([]byte) error
	Close() error
}

// ErrMatchFull rejects a third join.
var ErrMatchFull = errors.New("match is full")

// Join seats a connection. Reply receives the assigned slot (or the
// rejection) before any other frame is written to the connection.
type Join struct {
	Conn  Conn
	Reply chan<- JoinResult
}

type JoinResult struct {
	Slot uint8
	Err  error
}

// Frame is a decoded client message attributed to a seat.
type Frame struct {
	Slot uint8
	Msg  protocol.Message
}

// Leave is issued when a seat's socket drops.
type Leave struct {
	Slot uint8
}
