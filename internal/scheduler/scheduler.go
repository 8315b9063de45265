// Package scheduler hands the chain state to the next hop.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/mumzworld-tech/logexport/internal/chain"
)

// Scheduler runs the next hop of the chain with st after at least delay.
// It returns once the hop is accepted, not when it completes.
type Scheduler interface {
	ScheduleNext(ctx context.Context, st chain.State, delay time.Duration) error
}

// RescheduleError means the next hop was not accepted, so the chain stops here
type RescheduleError struct {
	Target string
	err    error
}

func (e *RescheduleError) Error() string {
	return fmt.Sprintf("schedule next hop on %s: %v", e.Target, e.err)
}

func (e *RescheduleError) Unwrap() error {
	return e.err
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
