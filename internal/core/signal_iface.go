package core

import "errors"

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

// Frame is a raw text payload as read from or written to the wire.
type Frame []byte

// ConnID tags a transport connection in logs; it carries no protocol meaning.
type ConnID string

// SendCallback reports the outcome of a single Send: nil once the frame has
// been written, or the reason it was dropped.
type SendCallback func(err error)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	ID() ConnID
	RemoteAddr() string
	// Send queues f without blocking. done may be nil and is called exactly once.
	Send(f Frame, done SendCallback)
	// Close is idempotent; the adapter reports the close to the orchestrator.
	Close()
}
