package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeLister struct {
	tasks []Task
	err   error
}

func (f *fakeLister) Tasks(ctx context.Context, service string) ([]Task, error) {
	return f.tasks, f.err
}

func Test_IDsProbe(t *testing.T) {
	lister := &fakeLister{
		tasks: []Task{
			{ID: "hello-0__a", Name: "hello-0-server", State: StateRunning},
			{ID: "hello-1__b", Name: "hello-1-server", State: "TASK_STAGING"},
			{ID: "world-0__c", Name: "world-0-server", State: StateRunning},
		},
	}

	testCases := []struct {
		name     string
		probe    func() (interface{}, error)
		expected []string
	}{
		{
			name: "case 0: all tasks with prefix",
			probe: func() (interface{}, error) {
				return IDsProbe(lister, "hello-world", "hello")(context.Background())
			},
			expected: []string{"hello-0__a", "hello-1__b"},
		},
		{
			name: "case 1: running tasks with prefix",
			probe: func() (interface{}, error) {
				return RunningProbe(lister, "hello-world", "hello")(context.Background())
			},
			expected: []string{"hello-0__a"},
		},
		{
			name: "case 2: no match",
			probe: func() (interface{}, error) {
				return IDsProbe(lister, "hello-world", "data")(context.Background())
			},
			expected: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			state, err := tc.probe()
			if err != nil {
				t.Fatalf("error == %#v, want nil", err)
			}

			ids, ok := state.(IDs)
			if !ok {
				t.Fatalf("state == %T, want IDs", state)
			}
			if !cmp.Equal(ids.List(), tc.expected) {
				t.Fatalf("\n\n%s\n", cmp.Diff(tc.expected, ids.List()))
			}
		})
	}
}

func Test_IDsProbe_Error(t *testing.T) {
	lister := &fakeLister{err: errors.New("unreachable")}

	_, err := IDsProbe(lister, "hello-world", "hello")(context.Background())
	if err == nil {
		t.Fatalf("error == nil, want non-nil")
	}
}

func Test_List_NilLister(t *testing.T) {
	_, err := List(context.Background(), nil, "hello-world", "hello")
	if !IsInvalidConfig(err) {
		t.Fatalf("error == %#v, want invalid config", err)
	}
}
