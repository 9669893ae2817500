package device

import (
	"fmt"
	"sync"
)

// Default budget limits.
const (
	// DefaultBudgetMB is the default device allocation budget (512 MB).
	DefaultBudgetMB = 512

	// MinBudgetMB is the smallest accepted budget (1 MB).
	MinBudgetMB = 1
)

// BudgetStats contains allocation statistics.
type BudgetStats struct {
	// TotalBytes is the budget in bytes.
	TotalBytes uint64

	// UsedBytes is the currently reserved memory in bytes.
	UsedBytes uint64

	// AvailableBytes is the remaining budget.
	AvailableBytes uint64

	// Buffers is the number of live allocations.
	Buffers int

	// Rejected counts allocations refused for lack of budget.
	Rejected uint64

	// Utilization is the fraction of the budget in use (0.0 to 1.0).
	Utilization float64
}

// String returns a human-readable summary.
func (s BudgetStats) String() string {
	return fmt.Sprintf("Budget[%.1f%% used, %d/%d KB, %d buffers, %d rejected]",
		s.Utilization*100,
		s.UsedBytes/1024,
		s.TotalBytes/1024,
		s.Buffers,
		s.Rejected)
}

// Budget tracks device allocations against a fixed limit. Unlike a cache it
// never evicts: an allocation that does not fit is refused with
// ErrResourceExhausted.
//
// Budget is safe for concurrent use.
type Budget struct {
	mu       sync.Mutex
	total    uint64
	used     uint64
	buffers  int
	rejected uint64
}

// NewBudget creates a budget of the given size in megabytes.
// Values below MinBudgetMB select DefaultBudgetMB.
func NewBudget(megabytes int) *Budget {
	if megabytes < MinBudgetMB {
		megabytes = DefaultBudgetMB
	}
	//nolint:gosec // megabytes is positive
	return &Budget{total: uint64(megabytes) * 1024 * 1024}
}

// NewBudgetBytes creates a budget of exactly n bytes.
func NewBudgetBytes(n uint64) *Budget {
	return &Budget{total: n}
}

// Reserve accounts for an allocation of size bytes.
func (b *Budget) Reserve(label string, size uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if size > b.total-b.used {
		b.rejected++
		return fmt.Errorf("%w: %s needs %d bytes, %d of %d available",
			ErrResourceExhausted, label, size, b.total-b.used, b.total)
	}
	b.used += size
	b.buffers++
	return nil
}

// Free returns size bytes reserved earlier.
func (b *Budget) Free(size uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if size > b.used {
		size = b.used
	}
	b.used -= size
	if b.buffers > 0 {
		b.buffers--
	}
}

// Stats returns current usage.
func (b *Budget) Stats() BudgetStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	var utilization float64
	if b.total > 0 {
		utilization = float64(b.used) / float64(b.total)
	}
	return BudgetStats{
		TotalBytes:     b.total,
		UsedBytes:      b.used,
		AvailableBytes: b.total - b.used,
		Buffers:        b.buffers,
		Rejected:       b.rejected,
		Utilization:    utilization,
	}
}
