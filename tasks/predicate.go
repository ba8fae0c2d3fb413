package tasks

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mesosphere/sdk-e2etests/spin"
)

// UpdatedPredicate returns a predicate that holds when every task in old has
// been replaced by a fresh one. An id of old that is still observed means
// the task was not restarted, which is never treated as success. The number
// of observed tasks must not drop below len(old).
func UpdatedPredicate(prefix string, old IDs) spin.Predicate {
	old = sets.NewString(old.List()...)

	return func(state interface{}) (bool, string) {
		ids, ok := state.(IDs)
		if !ok {
			return false, fmt.Sprintf("task type %#q: unexpected state %T", prefix, state)
		}

		reused := ids.Intersection(old)
		if reused.Len() != 0 {
			return false, fmt.Sprintf("task type %#q not updated: old ids %v still present in %v", prefix, reused.List(), ids.List())
		}
		if ids.Len() < old.Len() {
			return false, fmt.Sprintf("task type %#q not updated: found %d new tasks %v, want at least %d", prefix, ids.Len(), ids.List(), old.Len())
		}

		return true, fmt.Sprintf("task type %#q updated: old ids %v replaced by %v", prefix, old.List(), ids.List())
	}
}

// UnchangedPredicate returns a predicate that holds when every task in old
// is still observed. Additional tasks are tolerated, a missing one is not.
func UnchangedPredicate(prefix string, old IDs) spin.Predicate {
	old = sets.NewString(old.List()...)

	return func(state interface{}) (bool, string) {
		ids, ok := state.(IDs)
		if !ok {
			return false, fmt.Sprintf("task type %#q: unexpected state %T", prefix, state)
		}

		missing := old.Difference(ids)
		if missing.Len() != 0 {
			return false, fmt.Sprintf("task type %#q updated: old ids %v missing from %v", prefix, missing.List(), ids.List())
		}
		if ids.Len() < old.Len() {
			return false, fmt.Sprintf("task type %#q shrunk: found %d tasks %v, want at least %d", prefix, ids.Len(), ids.List(), old.Len())
		}

		return true, fmt.Sprintf("task type %#q not updated: old ids %v present in %v", prefix, old.List(), ids.List())
	}
}

// RunningPredicate returns a predicate that holds when at least count tasks
// are observed. It is meant to be used with RunningProbe.
func RunningPredicate(prefix string, count int) spin.Predicate {
	return func(state interface{}) (bool, string) {
		ids, ok := state.(IDs)
		if !ok {
			return false, fmt.Sprintf("task type %#q: unexpected state %T", prefix, state)
		}

		if ids.Len() < count {
			return false, fmt.Sprintf("task type %#q: found %d running tasks, want %d", prefix, ids.Len(), count)
		}

		return true, fmt.Sprintf("task type %#q: found %d running tasks", prefix, ids.Len())
	}
}
