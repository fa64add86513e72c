package network

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// backoff retries an operation with a random exponential delay.
// report is called with every failure; returning a non nil error aborts
// the loop with that error.
type backoff struct {
	report  func(error) error
	maxWait time.Duration
}

func (c backoff) retry(ctx context.Context, try func() error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	wait := time.Millisecond
	for {
		before := time.Now()
		err := try()
		if err == nil {
			return nil
		}
		elapsed := time.Since(before)
		if c.report != nil {
			if err := c.report(err); err != nil {
				return err
			}
		}

		// the duration of an attempt is the minimum wait
		if wait <= elapsed {
			wait = elapsed
		}
		wait += rand.N(wait)
		if c.maxWait > 0 && wait > c.maxWait {
			wait = c.maxWait
		}

		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return errors.Join(ctx.Err(), err)
		}
	}
}
