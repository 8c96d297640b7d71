package rig

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// Run calls Step once per tick of clk until ctx is done, frames steps have run or onResult returns
// false. frames <= 0 means no bound. It returns the number of steps taken.
func (r *Rig) Run(
	ctx context.Context,
	clk clock.Clock,
	interval time.Duration,
	frames int,
	onResult func(Result) bool,
) (int, error) {
	if interval <= 0 {
		return 0, errors.Errorf("frame interval must be positive, got %s", interval)
	}
	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	stepped := 0
	for frames <= 0 || stepped < frames {
		select {
		case <-ctx.Done():
			return stepped, ctx.Err()
		case <-ticker.C:
		}
		res, err := r.Step()
		if err != nil {
			return stepped, err
		}
		stepped++
		if onResult != nil && !onResult(res) {
			break
		}
	}
	return stepped, nil
}
