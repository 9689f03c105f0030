package platform

import (
	"bytes"
	"runtime"
	"strconv"
)

// TaskID is the opaque owner token recorded in an active node. Its only
// consumer is diagnostics (Walk); the allocator itself never branches on it.
type TaskID uint64

// CurrentTask returns an identifier for the calling goroutine. Go exposes no
// public goroutine-id API, so this scrapes it from the runtime's own stack
// dump the way the standard library's race detector and pprof tooling do
// internally; it is deliberately off the allocation fast path (only called
// once per successful calloc, not per retry).
func CurrentTask() TaskID {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	data := buf[:n]

	const prefix = "goroutine "
	if !bytes.HasPrefix(data, []byte(prefix)) {
		return 0
	}
	data = data[len(prefix):]
	end := bytes.IndexByte(data, ' ')
	if end < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(data[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return TaskID(id)
}

// Yield hints the scheduler to run other goroutines before a spin-retry of a
// contended trylock. The source platform shim's spin-on-trylock is a quirk
// of its cooperative scheduler; here it maps to runtime.Gosched.
func Yield() {
	runtime.Gosched()
}
