// Package workqueue builds the pixel index permutations that feed the compute
// dispatch. Every queue holds each flat pixel index of a width x height image
// exactly once; the order only affects cache locality and how expensive
// pixels spread across workers.
package workqueue

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// Order selects how indices are arranged in a generated queue.
type Order uint8

const (
	// Ascending lists pixels in row-major order.
	Ascending Order = iota

	// Shuffled lists pixels in a seeded pseudo-random order.
	Shuffled
)

// String returns the order name.
func (o Order) String() string {
	switch o {
	case Ascending:
		return "ascending"
	case Shuffled:
		return "shuffled"
	default:
		return fmt.Sprintf("Order(%d)", o)
	}
}

// ParseOrder parses an order name as accepted on the command line.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "ascending":
		return Ascending, nil
	case "shuffled":
		return Shuffled, nil
	}
	return Ascending, fmt.Errorf("workqueue: unknown order %q", s)
}

// DefaultSeed seeds Shuffled queues so that repeated runs dispatch pixels in
// the same order.
const DefaultSeed uint64 = 0x6d616e64656c

// ErrNotPermutation is returned by Validate for a malformed queue.
var ErrNotPermutation = errors.New("workqueue: not a permutation of the pixel range")

// Generate returns the ascending queue [0, width*height).
// It returns nil for non-positive sizes.
func Generate(width, height int) []uint32 {
	n := count(width, height)
	if n == 0 {
		return nil
	}
	q := make([]uint32, n)
	for i := range q {
		q[i] = uint32(i) //nolint:gosec // n fits in uint32, checked by count
	}
	return q
}

// Shuffle returns a Fisher-Yates permutation of [0, width*height) driven by a
// PCG source seeded with seed.
func Shuffle(width, height int, seed uint64) []uint32 {
	q := Generate(width, height)
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	r.Shuffle(len(q), func(i, j int) { q[i], q[j] = q[j], q[i] })
	return q
}

// New builds a queue in the requested order.
func New(width, height int, order Order) []uint32 {
	if order == Shuffled {
		return Shuffle(width, height, DefaultSeed)
	}
	return Generate(width, height)
}

// Validate checks that q holds every index in [0, n) exactly once.
func Validate(q []uint32, n int) error {
	if len(q) != n {
		return fmt.Errorf("%w: length %d, want %d", ErrNotPermutation, len(q), n)
	}
	seen := make([]bool, n)
	for i, v := range q {
		if int(v) >= n {
			return fmt.Errorf("%w: index %d at position %d out of range", ErrNotPermutation, v, i)
		}
		if seen[v] {
			return fmt.Errorf("%w: index %d repeated at position %d", ErrNotPermutation, v, i)
		}
		seen[v] = true
	}
	return nil
}

// count returns width*height, or 0 if the image is empty or the pixel count
// does not fit in a 32-bit index.
func count(width, height int) int {
	if width <= 0 || height <= 0 {
		return 0
	}
	n := width * height
	if n/width != height || uint64(n) > math.MaxUint32 {
		return 0
	}
	return n
}
