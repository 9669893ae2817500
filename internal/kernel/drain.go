package kernel

import "sync/atomic"

// Drain runs one logical worker of a dispatch: it claims queue positions by
// atomically incrementing cursor and calls fn with the pixel stored at each
// claimed position, until a claim lands at or beyond len(queue).
//
// Any number of goroutines may drain the same queue concurrently; each
// position is handed out exactly once. Drain returns how many pixels this
// worker processed, which may be zero if the queue was already drained.
func Drain(cursor *atomic.Uint32, queue []uint32, fn func(pixel uint32)) int {
	n := uint32(len(queue)) //nolint:gosec // queues are bounded by uint32 indices
	done := 0
	for {
		idx := cursor.Add(1) - 1
		if idx >= n {
			return done
		}
		fn(queue[idx])
		done++
	}
}
