package services

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

// retry runs fn until it succeeds or maxRetries further attempts have failed.
// The wait doubles after every failure. Cancellation of ctx stops the loop at
// once and is returned as is.
func retry(ctx context.Context, op string, maxRetries int, backoff time.Duration, fn func(context.Context) error) error {
	var err error
	wait := backoff
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.Canceled) || attempt >= maxRetries {
			return err
		}

		log.WithFields(log.Fields{
			"op":      op,
			"attempt": attempt + 1,
			"wait":    wait,
		}).Warnf("RETRY: %v", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait *= 2
	}
}
