package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/luca-patrignani/tec/message"
)

// DefaultInterval is the housekeeping rate.
const DefaultInterval = time.Second

// Deliverer queues a message on the local pipe.
type Deliverer interface {
	Deliver(ctx context.Context, env message.Envelope) error
}

// Scheduler periodically requests a status report from the local node.
type Scheduler struct {
	Bus      Deliverer
	Interval time.Duration
	Logger   *slog.Logger
}

// Run injects a status request every Interval until ctx is done or the
// bus refuses a request.
func (s Scheduler) Run(ctx context.Context) error {
	if s.Interval <= 0 {
		s.Interval = DefaultInterval
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Bus.Deliver(ctx, message.NewStatusRequest()); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.Logger.Error("failed to schedule status request", "error", err)
				return err
			}
		}
	}
}
