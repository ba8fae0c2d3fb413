package tasks

import (
	"context"

	"k8s.io/apimachinery/pkg/util/sets"
)

const (
	StateRunning = "TASK_RUNNING"
)

// IDs is a set of task identities. Sets are compared by membership only.
type IDs = sets.String

// Task is a single entry of the raw task listing of a service.
type Task struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// Lister lists the tasks currently known for the named service.
type Lister interface {
	Tasks(ctx context.Context, service string) ([]Task, error)
}
