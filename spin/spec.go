package spin

import (
	"context"
	"time"
)

// Probe fetches the currently observable state from the cluster, e.g. a set
// of task ids or the bytes of a persisted configuration. A Probe may fail
// transiently. Spinner treats such failures as "not yet satisfied".
type Probe func(ctx context.Context) (interface{}, error)

// Predicate decides whether the observed state satisfies the condition being
// waited for. Any baseline the decision depends on is bound when the
// Predicate is constructed. The returned message describes the current
// state and is used as diagnostic for the failure case. Predicates must be
// pure so they can be evaluated on every tick.
type Predicate func(state interface{}) (bool, string)

// Result is the outcome of a successful Spin call.
type Result struct {
	// State is the state on which the Predicate succeeded.
	State interface{}
	// Message is the last diagnostic message returned by the Predicate.
	Message string

	Attempts int
	Elapsed  time.Duration
}

type Interface interface {
	// Spin invokes probe and evaluates predicate on its result until the
	// predicate holds or timeout elapsed.
	//
	//     - Probe errors are logged and retried on the next tick.
	//     - The first tick on which predicate holds ends polling.
	//     - A timeout of 0 means exactly one attempt.
	//     - The wait between ticks never overshoots the deadline.
	//
	// On timeout the returned error is a *TimeoutError carrying the last
	// observed state and diagnostic message.
	Spin(ctx context.Context, probe Probe, predicate Predicate, timeout, interval time.Duration) (Result, error)
}
