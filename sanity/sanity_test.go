package sanity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/giantswarm/microerror"
	"github.com/giantswarm/micrologger/microloggertest"
	"github.com/google/go-cmp/cmp"
	"k8s.io/apimachinery/pkg/util/clock"

	"github.com/mesosphere/sdk-e2etests/lock"
	"github.com/mesosphere/sdk-e2etests/spin"
	"github.com/mesosphere/sdk-e2etests/tasks"
)

type steppingClock struct {
	*clock.FakeClock
}

func (c steppingClock) After(d time.Duration) <-chan time.Time {
	c.Step(d)

	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

// fakeCluster simulates a hello-world scheduler. Env changes are applied to
// the task listing after a few listings, like a rolling deployment.
type fakeCluster struct {
	// restartOnScale makes the scheduler replace existing tasks when the
	// count is bumped.
	restartOnScale bool
	// skipRestart makes the scheduler keep one old task when cpus are
	// bumped.
	skipRestart bool
	// immediate makes env changes visible on the very next listing.
	immediate  bool
	installErr error
	// uninstallErr is returned when uninstalling an installed package.
	uninstallErr error

	calls []string
	// events records task listings and env updates in order.
	events            []string
	env               map[string]string
	lag               int
	nextID            int
	pending           func()
	tasks             []tasks.Task
	uninstallDeadline bool
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{
		env: map[string]string{EnvHelloCPUs: "0.1", EnvHelloCount: "1"},
	}
}

func (f *fakeCluster) newTask(index int) tasks.Task {
	f.nextID++
	return tasks.Task{
		ID:    fmt.Sprintf("hello-%d-server__%d", index, f.nextID),
		Name:  fmt.Sprintf("hello-%d-server", index),
		State: tasks.StateRunning,
	}
}

func (f *fakeCluster) Tasks(ctx context.Context, service string) ([]tasks.Task, error) {
	f.events = append(f.events, "list")

	if f.pending != nil {
		if f.lag == 0 {
			f.pending()
			f.pending = nil
		} else {
			f.lag--
		}
	}

	return append([]tasks.Task(nil), f.tasks...), nil
}

func (f *fakeCluster) AppEnv(ctx context.Context, appID string) (map[string]string, error) {
	env := map[string]string{}
	for k, v := range f.env {
		env[k] = v
	}
	return env, nil
}

func (f *fakeCluster) Install(ctx context.Context, name string, options map[string]interface{}) error {
	f.calls = append(f.calls, "install "+name)
	if f.installErr != nil {
		return f.installErr
	}

	count, _ := strconv.Atoi(f.env[EnvHelloCount])
	for i := 0; i < count; i++ {
		f.tasks = append(f.tasks, f.newTask(i))
	}
	return nil
}

func (f *fakeCluster) Uninstall(ctx context.Context, name string) error {
	f.calls = append(f.calls, "uninstall "+name)
	_, f.uninstallDeadline = ctx.Deadline()

	installed := f.tasks != nil
	f.tasks = nil
	if installed {
		return f.uninstallErr
	}
	return nil
}

func (f *fakeCluster) UpdateEnv(ctx context.Context, appID string, changes map[string]string) error {
	f.calls = append(f.calls, fmt.Sprintf("update %v", changes))
	f.events = append(f.events, fmt.Sprintf("update %v", changes))

	for k, v := range changes {
		f.env[k] = v
	}

	f.lag = 2
	if f.immediate {
		f.lag = 0
	}
	f.pending = func() {
		count, _ := strconv.Atoi(f.env[EnvHelloCount])

		var l []tasks.Task
		for i := 0; i < count; i++ {
			switch {
			case i < len(f.tasks) && changes[EnvHelloCPUs] == "":
				if f.restartOnScale {
					l = append(l, f.newTask(i))
				} else {
					l = append(l, f.tasks[i])
				}
			case i == 0 && f.skipRestart:
				l = append(l, f.tasks[i])
			default:
				l = append(l, f.newTask(i))
			}
		}
		f.tasks = l
	}

	return nil
}

type fakeLock struct {
	verdict lock.Verdict
	err     error

	calls []string
}

func (f *fakeLock) Verify(ctx context.Context, coordinationPath, contenderName string, options map[string]interface{}, timeout time.Duration) (lock.Verdict, error) {
	f.calls = append(f.calls, fmt.Sprintf("%s %s %v", coordinationPath, contenderName, options))
	return f.verdict, f.err
}

func newTestSanity(t *testing.T, cluster *fakeCluster, l *fakeLock) *Sanity {
	logger := microloggertest.New()

	spinner, err := spin.New(spin.Config{
		Clock:  steppingClock{clock.NewFakeClock(time.Unix(0, 0))},
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("error == %#v, want nil", err)
	}

	s, err := New(Config{
		Cluster: cluster,
		Lock:    l,
		Logger:  logger,
		Spinner: spinner,

		Interval:    time.Second,
		PackageName: "hello-world",
		Timeout:     time.Minute,
	})
	if err != nil {
		t.Fatalf("error == %#v, want nil", err)
	}

	return s
}

func Test_Sanity_Test(t *testing.T) {
	cluster := newFakeCluster()
	l := &fakeLock{verdict: lock.Verified}

	err := newTestSanity(t, cluster, l).Test(context.Background())
	if err != nil {
		t.Fatalf("error == %#v, want nil", err)
	}

	expectedCalls := []string{
		"uninstall hello-world",
		"install hello-world",
		"update map[HELLO_CPUS:0.2]",
		"update map[HELLO_COUNT:2]",
		"uninstall hello-world",
	}
	if !cmp.Equal(cluster.calls, expectedCalls) {
		t.Fatalf("\n\n%s\n", cmp.Diff(expectedCalls, cluster.calls))
	}

	expectedLock := []string{"dcos-service-hello-world/ConfigTarget hello-world-lock map[hello:map[count:2]]"}
	if !cmp.Equal(l.calls, expectedLock) {
		t.Fatalf("\n\n%s\n", cmp.Diff(expectedLock, l.calls))
	}
}

func Test_Sanity_Scenarios(t *testing.T) {
	testCases := []struct {
		name         string
		cluster      func() *fakeCluster
		lock         *fakeLock
		run          func(s *Sanity, ctx context.Context) error
		errorMatcher func(error) bool
		// expectedEvents is the expected start of the cluster events. The
		// task ids must be captured before the env is updated.
		expectedEvents []string
	}{
		{
			name:           "case 0: cpus bump replaces tasks",
			cluster:        newFakeCluster,
			run:            (*Sanity).BumpHelloCPUs,
			expectedEvents: []string{"list", "list", "update map[HELLO_CPUS:0.2]"},
		},
		{
			name: "case 1: cpus bump leaves a task behind",
			cluster: func() *fakeCluster {
				f := newFakeCluster()
				f.env[EnvHelloCount] = "2"
				f.skipRestart = true
				return f
			},
			run:          (*Sanity).BumpHelloCPUs,
			errorMatcher: spin.IsTimeout,
		},
		{
			name:           "case 2: nodes bump keeps tasks",
			cluster:        newFakeCluster,
			run:            (*Sanity).BumpHelloNodes,
			expectedEvents: []string{"list", "list", "update map[HELLO_COUNT:2]"},
		},
		{
			name: "case 3: nodes bump restarts tasks",
			cluster: func() *fakeCluster {
				f := newFakeCluster()
				f.restartOnScale = true
				return f
			},
			run:          (*Sanity).BumpHelloNodes,
			errorMatcher: spin.IsTimeout,
		},
		{
			name: "case 4: invalid cpus",
			cluster: func() *fakeCluster {
				f := newFakeCluster()
				f.env[EnvHelloCPUs] = "lots"
				return f
			},
			run:          (*Sanity).BumpHelloCPUs,
			errorMatcher: IsInvalidEnv,
		},
		{
			name:         "case 5: lock violated",
			cluster:      newFakeCluster,
			lock:         &fakeLock{verdict: lock.Violated, err: microerror.Mask(errors.New("state changed"))},
			run:          (*Sanity).Lock,
			errorMatcher: func(err error) bool { return err != nil },
		},
		{
			name: "case 6: cpus bump rolled out immediately",
			cluster: func() *fakeCluster {
				f := newFakeCluster()
				f.immediate = true
				return f
			},
			run:            (*Sanity).BumpHelloCPUs,
			expectedEvents: []string{"list", "list", "update map[HELLO_CPUS:0.2]"},
		},
		{
			name: "case 7: nodes bump restarts tasks immediately",
			cluster: func() *fakeCluster {
				f := newFakeCluster()
				f.immediate = true
				f.restartOnScale = true
				return f
			},
			run:            (*Sanity).BumpHelloNodes,
			errorMatcher:   spin.IsTimeout,
			expectedEvents: []string{"list", "list", "update map[HELLO_COUNT:2]"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()

			l := tc.lock
			if l == nil {
				l = &fakeLock{verdict: lock.Verified}
			}

			cluster := tc.cluster()
			s := newTestSanity(t, cluster, l)

			err := cluster.Install(ctx, "hello-world", nil)
			if err != nil {
				t.Fatalf("error == %#v, want nil", err)
			}

			err = tc.run(s, ctx)

			switch {
			case err != nil && tc.errorMatcher == nil:
				t.Fatalf("error == %#v, want nil", err)
			case err == nil && tc.errorMatcher != nil:
				t.Fatalf("error == nil, want non-nil")
			case err != nil && !tc.errorMatcher(err):
				t.Fatalf("error == %#v, want matching", err)
			}

			if tc.expectedEvents != nil {
				events := cluster.events
				if len(events) > len(tc.expectedEvents) {
					events = events[:len(tc.expectedEvents)]
				}
				if !cmp.Equal(events, tc.expectedEvents) {
					t.Fatalf("\n\n%s\n", cmp.Diff(tc.expectedEvents, events))
				}
			}
		})
	}
}

func Test_Sanity_Run_TeardownFailureIsLogged(t *testing.T) {
	cluster := newFakeCluster()
	cluster.uninstallErr = errors.New("cosmos down")

	err := newTestSanity(t, cluster, &fakeLock{verdict: lock.Verified}).Run(context.Background(), "lock")
	if err != nil {
		t.Fatalf("error == %#v, want nil", err)
	}

	expectedCalls := []string{"uninstall hello-world", "install hello-world", "uninstall hello-world"}
	if !cmp.Equal(cluster.calls, expectedCalls) {
		t.Fatalf("\n\n%s\n", cmp.Diff(expectedCalls, cluster.calls))
	}
	if !cluster.uninstallDeadline {
		t.Fatalf("teardown context has no deadline")
	}
}

func Test_Sanity_Setup_CleansUpOnFailure(t *testing.T) {
	cluster := newFakeCluster()
	cluster.installErr = errors.New("package not found")

	_, err := newTestSanity(t, cluster, &fakeLock{}).Setup(context.Background())
	if err == nil {
		t.Fatalf("error == nil, want non-nil")
	}

	expectedCalls := []string{
		"uninstall hello-world",
		"install hello-world",
		"uninstall hello-world",
	}
	if !cmp.Equal(cluster.calls, expectedCalls) {
		t.Fatalf("\n\n%s\n", cmp.Diff(expectedCalls, cluster.calls))
	}
}

func Test_Sanity_Run(t *testing.T) {
	testCases := []struct {
		name          string
		names         []string
		expectedCalls []string
		expectedLock  int
		errorMatcher  func(error) bool
	}{
		{
			name:  "case 0: single scenario",
			names: []string{"bump-hello-nodes"},
			expectedCalls: []string{
				"uninstall hello-world",
				"install hello-world",
				"update map[HELLO_COUNT:2]",
				"uninstall hello-world",
			},
		},
		{
			name:          "case 1: lock only",
			names:         []string{"lock"},
			expectedCalls: []string{"uninstall hello-world", "install hello-world", "uninstall hello-world"},
			expectedLock:  1,
		},
		{
			name:         "case 2: unknown scenario",
			names:        []string{"bump-data-nodes"},
			errorMatcher: IsInvalidConfig,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cluster := newFakeCluster()
			l := &fakeLock{verdict: lock.Verified}

			err := newTestSanity(t, cluster, l).Run(context.Background(), tc.names...)

			switch {
			case err != nil && tc.errorMatcher == nil:
				t.Fatalf("error == %#v, want nil", err)
			case err == nil && tc.errorMatcher != nil:
				t.Fatalf("error == nil, want non-nil")
			case err != nil && !tc.errorMatcher(err):
				t.Fatalf("error == %#v, want matching", err)
			}

			if !cmp.Equal(cluster.calls, tc.expectedCalls) {
				t.Fatalf("\n\n%s\n", cmp.Diff(tc.expectedCalls, cluster.calls))
			}
			if len(l.calls) != tc.expectedLock {
				t.Fatalf("lock calls == %d, want %d", len(l.calls), tc.expectedLock)
			}
		})
	}
}
