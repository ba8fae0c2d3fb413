package spin

import (
	"fmt"
	"time"

	"github.com/giantswarm/microerror"
)

var invalidConfigError = &microerror.Error{
	Kind: "invalidConfigError",
}

// IsInvalidConfig asserts invalidConfigError.
func IsInvalidConfig(err error) bool {
	return microerror.Cause(err) == invalidConfigError
}

// TimeoutError is returned by Spin when the predicate did not hold within
// the given budget. It carries the last observation for post-mortem
// assertions.
type TimeoutError struct {
	// LastState is the state returned by the last successful probe call. It
	// is nil when no probe call ever succeeded.
	LastState interface{}
	// Message is the last diagnostic message, either from the predicate or
	// describing the last probe failure.
	Message string
	// LastProbeError is the error of the last tick if the probe failed on
	// it, nil otherwise.
	LastProbeError error

	Attempts int
	Elapsed  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s and %d attempts: %s", e.Elapsed, e.Attempts, e.Message)
}

// IsTimeout asserts *TimeoutError.
func IsTimeout(err error) bool {
	_, ok := AsTimeout(err)
	return ok
}

// AsTimeout returns the *TimeoutError underlying err, if any.
func AsTimeout(err error) (*TimeoutError, bool) {
	if err == nil {
		return nil, false
	}

	t, ok := microerror.Cause(err).(*TimeoutError)
	return t, ok
}
