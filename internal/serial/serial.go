// Package serial issues and compares the correlation tokens the compositor
// attaches to input events and configure requests.
package serial

import (
	"go.uber.org/atomic"
)

// Serial is a server-issued correlation token.
//
// Serials wrap around after 2^32 issuances, so they must be compared with
// IsNoOlderThan rather than with the integer operators.
type Serial uint32

// IsNoOlderThan reports whether s was issued at the same time or after other,
// taking wrap-around into account.
func (s Serial) IsNoOlderThan(other Serial) bool {
	if s == other {
		return true
	}
	return uint32(s)-uint32(other) < 1<<31
}

// Counter hands out monotonically increasing serials. It is safe for
// concurrent use.
type Counter struct {
	last atomic.Uint32
}

// NewCounter creates a counter whose first serial is 1.
func NewCounter() *Counter {
	return &Counter{}
}

// Next returns a fresh serial.
func (c *Counter) Next() Serial {
	return Serial(c.last.Inc())
}

// Last returns the most recently issued serial, or 0 if none was issued.
func (c *Counter) Last() Serial {
	return Serial(c.last.Load())
}

// DefaultCounter is shared by components that were not given their own counter.
var DefaultCounter = NewCounter()
