package sanity

import (
	"context"
	"time"

	"github.com/mesosphere/sdk-e2etests/tasks"
)

const (
	// DefaultTaskCount is the number of hello tasks of a fresh install.
	DefaultTaskCount = 1
	// TaskPrefix selects the hello tasks among the tasks of the service.
	TaskPrefix = "hello"

	EnvHelloCPUs  = "HELLO_CPUS"
	EnvHelloCount = "HELLO_COUNT"

	// ContenderSuffix is appended to the package name to name the second
	// scheduler installed by the lock scenario.
	ContenderSuffix = "-lock"
	// ContenderCount is the hello count the contender is installed with.
	ContenderCount = 2

	// CleanupTimeout bounds the final uninstall of the package.
	CleanupTimeout = 2 * time.Minute
)

// CoordinationPath returns the znode at which the scheduler of the given
// service persists its target configuration.
func CoordinationPath(service string) string {
	return "dcos-service-" + service + "/ConfigTarget"
}

// Cluster bundles the cluster operations the scenarios need.
type Cluster interface {
	tasks.Lister

	AppEnv(ctx context.Context, appID string) (map[string]string, error)
	Install(ctx context.Context, name string, options map[string]interface{}) error
	Uninstall(ctx context.Context, name string) error
	UpdateEnv(ctx context.Context, appID string, changes map[string]string) error
}

type Interface interface {
	// Test executes the sanity scenarios of the hello-world framework
	// against a live cluster.
	//
	//     - Reinstall the package and wait for it to be healthy.
	//     - Bump HELLO_CPUS and wait for all hello tasks to be replaced.
	//     - Bump HELLO_COUNT and wait for a new hello task while the
	//       existing ones keep running.
	//     - Install a second scheduler and verify it fails without
	//       touching the persisted configuration of the first one.
	//     - Uninstall the package.
	//
	Test(ctx context.Context) error
}
