package tasks

import (
	"context"
	"strings"

	"github.com/giantswarm/microerror"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mesosphere/sdk-e2etests/spin"
)

// Filter returns the tasks whose name starts with prefix.
func Filter(tasks []Task, prefix string) []Task {
	var filtered []Task
	for _, t := range tasks {
		if strings.HasPrefix(t.Name, prefix) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// IDsOf returns the set of ids of the given tasks.
func IDsOf(tasks []Task) IDs {
	ids := sets.NewString()
	for _, t := range tasks {
		ids.Insert(t.ID)
	}
	return ids
}

// List returns the ids of the tasks of service whose name starts with
// prefix.
func List(ctx context.Context, lister Lister, service, prefix string) (IDs, error) {
	if lister == nil {
		return nil, microerror.Maskf(invalidConfigError, "lister must not be empty")
	}

	l, err := lister.Tasks(ctx, service)
	if err != nil {
		return nil, microerror.Mask(err)
	}

	return IDsOf(Filter(l, prefix)), nil
}

// IDsProbe returns a probe observing the ids of the tasks of service whose
// name starts with prefix. The observed state is of type IDs.
func IDsProbe(lister Lister, service, prefix string) spin.Probe {
	return func(ctx context.Context) (interface{}, error) {
		ids, err := List(ctx, lister, service, prefix)
		if err != nil {
			return nil, microerror.Mask(err)
		}

		return ids, nil
	}
}

// RunningProbe returns a probe observing the ids of the running tasks of
// service whose name starts with prefix. The observed state is of type IDs.
func RunningProbe(lister Lister, service, prefix string) spin.Probe {
	return func(ctx context.Context) (interface{}, error) {
		if lister == nil {
			return nil, microerror.Maskf(invalidConfigError, "lister must not be empty")
		}

		l, err := lister.Tasks(ctx, service)
		if err != nil {
			return nil, microerror.Mask(err)
		}

		var running []Task
		for _, t := range Filter(l, prefix) {
			if t.State == StateRunning {
				running = append(running, t)
			}
		}

		return IDsOf(running), nil
	}
}
