package mirror

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"smedge-submit/internal/logx"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseSchedule validates a cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse mirror schedule %q: %w", expr, err)
	}
	return sched, nil
}

// Schedule runs the mirror at every fire time of expr until ctx is done.
// A failed run is reported through onResult and does not stop the loop.
func Schedule(ctx context.Context, expr string, opts Options, onResult func(Result, error)) error {
	sched, err := ParseSchedule(expr)
	if err != nil {
		return err
	}
	logger := logx.FromContext(ctx)
	for {
		next := sched.Next(time.Now())
		logger.Info("next mirror run", "at", next.Format(time.RFC3339))
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		res, err := Run(ctx, opts)
		if err != nil {
			logger.Error("scheduled mirror failed", "err", err)
		}
		if onResult != nil {
			onResult(res, err)
		}
	}
}
