package spin

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/giantswarm/microerror"
	"github.com/giantswarm/micrologger"
	"k8s.io/apimachinery/pkg/util/clock"
)

type Config struct {
	Logger micrologger.Logger

	// Clock is used to measure the timeout budget and to wait between
	// ticks. It defaults to the real clock.
	Clock clock.Clock
}

// Spinner drives a Probe and a Predicate to a verdict. A Spinner holds no
// per-call state, so one instance can serve any number of sequential or
// concurrent Spin calls.
type Spinner struct {
	clock  clock.Clock
	logger micrologger.Logger
}

func New(config Config) (*Spinner, error) {
	if config.Logger == nil {
		return nil, microerror.Maskf(invalidConfigError, "%T.Logger must not be empty", config)
	}
	if config.Clock == nil {
		config.Clock = clock.RealClock{}
	}

	s := &Spinner{
		clock:  config.Clock,
		logger: config.Logger,
	}

	return s, nil
}

// Spin polls with a constant interval. See Interface for the semantics.
func (s *Spinner) Spin(ctx context.Context, probe Probe, predicate Predicate, timeout, interval time.Duration) (Result, error) {
	if interval < 0 {
		return Result{}, microerror.Maskf(invalidConfigError, "interval must not be negative, got %s", interval)
	}

	return s.SpinBackOff(ctx, probe, predicate, timeout, backoff.NewConstantBackOff(interval))
}

// SpinBackOff polls like Spin but takes the delay between ticks from b.
// backoff.Stop returned by b ends polling with a *TimeoutError as if the
// budget was exhausted.
func (s *Spinner) SpinBackOff(ctx context.Context, probe Probe, predicate Predicate, timeout time.Duration, b backoff.BackOff) (Result, error) {
	if probe == nil {
		return Result{}, microerror.Maskf(invalidConfigError, "probe must not be empty")
	}
	if predicate == nil {
		return Result{}, microerror.Maskf(invalidConfigError, "predicate must not be empty")
	}
	if b == nil {
		return Result{}, microerror.Maskf(invalidConfigError, "backoff must not be empty")
	}
	if timeout < 0 {
		return Result{}, microerror.Maskf(invalidConfigError, "timeout must not be negative, got %s", timeout)
	}

	// session is the mutable state of this single call. It never escapes
	// except as copy in the returned Result or TimeoutError.
	var session struct {
		attempts  int
		lastState interface{}
		lastErr   error
		message   string
	}

	start := s.clock.Now()
	deadline := start.Add(timeout)
	b.Reset()

	for {
		session.attempts++

		state, err := probe(ctx)
		if err != nil {
			session.lastErr = err
			session.message = fmt.Sprintf("probe failed: %s", err.Error())

			s.logger.LogCtx(ctx, "level", "debug", "message", session.message, "attempt", session.attempts)
		} else {
			ok, message := predicate(state)

			session.lastErr = nil
			session.lastState = state
			session.message = message

			s.logger.LogCtx(ctx, "level", "debug", "message", message, "attempt", session.attempts, "success", ok)

			if ok {
				r := Result{
					State:    state,
					Message:  message,
					Attempts: session.attempts,
					Elapsed:  s.clock.Since(start),
				}

				return r, nil
			}
		}

		remaining := deadline.Sub(s.clock.Now())
		delay := b.NextBackOff()

		if remaining <= 0 || delay == backoff.Stop {
			e := &TimeoutError{
				LastState:      session.lastState,
				Message:        session.message,
				LastProbeError: session.lastErr,
				Attempts:       session.attempts,
				Elapsed:        s.clock.Since(start),
			}

			return Result{}, microerror.Mask(e)
		}

		if delay > remaining {
			delay = remaining
		}

		select {
		case <-ctx.Done():
			return Result{}, microerror.Mask(ctx.Err())
		case <-s.clock.After(delay):
		}
	}
}
