package core

import "errors"

// Frame is one encoded outbound message.
type Frame []byte

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// CloseReason travels to the client in the close frame.
type CloseReason struct {
	Code int
	Text string
}

var (
	CloseNormal         = CloseReason{Code: 1000, Text: "normal"}
	CloseReplaced       = CloseReason{Code: 4000, Text: "replaced"}
	CloseSessionEnded   = CloseReason{Code: 4001, Text: "session_ended"}
	CloseIdle           = CloseReason{Code: 4002, Text: "idle"}
	CloseSlowConsumer   = CloseReason{Code: 4003, Text: "slow_consumer"}
	CloseNotParticipant = CloseReason{Code: 4004, Text: "not_participant"}
	CloseSessionDeleted = CloseReason{Code: 4005, Text: "session_deleted"}
	CloseInvalidState   = CloseReason{Code: 4006, Text: "invalid_state"}
)

// SignalConnection abstracts the client messaging transport.
// Owned by the adapter. TrySend and Close never block on the network:
// the adapter drains queued frames, writes the close frame and then
// closes Done.
type SignalConnection interface {
	TrySend(Frame) error
	Close(reason CloseReason)
	Done() <-chan struct{}
}
