package lock

import (
	"context"
	"time"

	"github.com/mesosphere/sdk-e2etests/tasks"
)

// Verdict is the outcome of a mutual exclusion verification.
type Verdict int

const (
	// Unknown is returned together with an error whenever no verdict could be
	// reached.
	Unknown Verdict = iota
	// Verified means the contender terminated without touching the state at
	// the coordination path.
	Verified
	// Violated means the state at the coordination path changed while the
	// contender was running.
	Violated
)

func (v Verdict) String() string {
	switch v {
	case Verified:
		return "verified"
	case Violated:
		return "violated"
	default:
		return "unknown"
	}
}

type Installer interface {
	Install(ctx context.Context, name string, options map[string]interface{}) error
	Uninstall(ctx context.Context, name string) error
}

// AppLister lists the tasks of the scheduler app with the given id.
type AppLister interface {
	AppTasks(ctx context.Context, appID string) ([]tasks.Task, error)
}

// StateReader reads the persisted state stored at a coordination path.
type StateReader interface {
	ReadNode(ctx context.Context, path string) ([]byte, error)
}

// Waiter waits for a task to reach a terminal state. A wait that does not
// finish within timeout must return an error matched by spin.IsTimeout.
type Waiter interface {
	WaitForTerminal(ctx context.Context, taskID string, timeout time.Duration) error
}

type Interface interface {
	// Verify checks that a second scheduler fails to start while another
	// one holds the lock at the coordination path, and that it fails before
	// mutating any persisted state.
	//
	//     - Read the state at the coordination path as baseline.
	//     - Install the contender under its own name.
	//     - Wait for the contender scheduler task to terminate.
	//     - Read the state again and compare it to the baseline.
	//     - Uninstall the contender, whatever happened before.
	//
	Verify(ctx context.Context, coordinationPath, contenderName string, options map[string]interface{}, timeout time.Duration) (Verdict, error)
}
