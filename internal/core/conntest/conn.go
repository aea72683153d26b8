// Package conntest provides an in-memory core.SignalConnection for tests.
package conntest

import (
	"encoding/json"
	"sync"

	"github.com/dkeye/VoiceClub/internal/core"
)

// Conn records every frame it accepts. A positive capacity makes TrySend
// report backpressure once that many frames are held.
type Conn struct {
	mu       sync.Mutex
	frames   []core.Frame
	capacity int
	closed   bool
	reason   core.CloseReason
	done     chan struct{}
}

var _ core.SignalConnection = (*Conn)(nil)

func New(capacity int) *Conn {
	return &Conn{capacity: capacity, done: make(chan struct{})}
}

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	if c.capacity > 0 && len(c.frames) >= c.capacity {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *Conn) Close(reason core.CloseReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.reason = reason
	close(c.done)
}

func (c *Conn) Done() <-chan struct{} { return c.done }

// Reason returns the close reason and whether the connection was closed.
func (c *Conn) Reason() (core.CloseReason, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason, c.closed
}

// Events decodes every received frame.
func (c *Conn) Events() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// Types lists the "type" of every received frame in order.
func (c *Conn) Types() []string {
	evts := c.Events()
	out := make([]string, 0, len(evts))
	for _, e := range evts {
		t, _ := e["type"].(string)
		out = append(out, t)
	}
	return out
}

// Last returns the most recent event of the given type.
func (c *Conn) Last(typ string) (map[string]any, bool) {
	evts := c.Events()
	for i := len(evts) - 1; i >= 0; i-- {
		if evts[i]["type"] == typ {
			return evts[i], true
		}
	}
	return nil, false
}

// Reset drops recorded frames.
func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}
