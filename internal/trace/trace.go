// Package trace provides the allocator's debug-build diagnostic hook. It
// mirrors the source platform shim's PRINTF: a no-op unless a caller opts in,
// kept out of the allocation fast path.
package trace

import "fmt"

// Sink receives formatted diagnostic lines. It is deliberately narrower than
// an io.Writer so callers can plug in a logger, a ring buffer, or testing.T.
type Sink interface {
	Tracef(format string, args ...any)
}

// Func adapts a plain function to a Sink.
type Func func(format string, args ...any)

func (f Func) Tracef(format string, args ...any) { f(format, args...) }

// Discard is the default Sink: it drops everything.
var Discard Sink = Func(func(string, ...any) {})

// Printf returns a Sink that writes to standard output via fmt.Printf,
// prefixed for readability when debugging interactively.
func Printf() Sink {
	return Func(func(format string, args ...any) {
		fmt.Printf("regionheap: "+format+"\n", args...)
	})
}
