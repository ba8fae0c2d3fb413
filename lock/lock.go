package lock

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/giantswarm/microerror"
	"github.com/giantswarm/micrologger"
	"github.com/spf13/afero"

	"github.com/mesosphere/sdk-e2etests/spin"
	"github.com/mesosphere/sdk-e2etests/tasks"
)

const (
	// CleanupTimeout bounds the uninstall of the contender, which runs
	// detached from the caller's context.
	CleanupTimeout  = 2 * time.Minute
	DefaultInterval = 5 * time.Second
)

type Config struct {
	AppLister   AppLister
	Installer   Installer
	Logger      micrologger.Logger
	Spinner     spin.Interface
	StateReader StateReader
	Waiter      Waiter

	// Fs and ArtifactDir are optional. When both are set the baseline and
	// the observed state are written to ArtifactDir on a violation.
	Fs          afero.Fs
	ArtifactDir string
	// Interval is the delay between lookups of the contender scheduler
	// task. It defaults to DefaultInterval.
	Interval time.Duration
}

type Verifier struct {
	appLister   AppLister
	installer   Installer
	logger      micrologger.Logger
	spinner     spin.Interface
	stateReader StateReader
	waiter      Waiter

	fs          afero.Fs
	artifactDir string
	interval    time.Duration
}

func New(config Config) (*Verifier, error) {
	if config.AppLister == nil {
		return nil, microerror.Maskf(invalidConfigError, "%T.AppLister must not be empty", config)
	}
	if config.Installer == nil {
		return nil, microerror.Maskf(invalidConfigError, "%T.Installer must not be empty", config)
	}
	if config.Logger == nil {
		return nil, microerror.Maskf(invalidConfigError, "%T.Logger must not be empty", config)
	}
	if config.Spinner == nil {
		return nil, microerror.Maskf(invalidConfigError, "%T.Spinner must not be empty", config)
	}
	if config.StateReader == nil {
		return nil, microerror.Maskf(invalidConfigError, "%T.StateReader must not be empty", config)
	}
	if config.Waiter == nil {
		return nil, microerror.Maskf(invalidConfigError, "%T.Waiter must not be empty", config)
	}

	if config.Interval < 0 {
		return nil, microerror.Maskf(invalidConfigError, "%T.Interval must not be negative", config)
	}
	if config.Interval == 0 {
		config.Interval = DefaultInterval
	}

	v := &Verifier{
		appLister:   config.AppLister,
		installer:   config.Installer,
		logger:      config.Logger,
		spinner:     config.Spinner,
		stateReader: config.StateReader,
		waiter:      config.Waiter,

		fs:          config.Fs,
		artifactDir: config.ArtifactDir,
		interval:    config.Interval,
	}

	return v, nil
}

func (v *Verifier) Verify(ctx context.Context, coordinationPath, contenderName string, options map[string]interface{}, timeout time.Duration) (Verdict, error) {
	if coordinationPath == "" {
		return Unknown, microerror.Maskf(invalidConfigError, "coordination path must not be empty")
	}
	if contenderName == "" {
		return Unknown, microerror.Maskf(invalidConfigError, "contender name must not be empty")
	}
	if timeout <= 0 {
		return Unknown, microerror.Maskf(invalidConfigError, "timeout must be positive, got %s", timeout)
	}

	var err error

	var baseline []byte
	{
		v.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("reading baseline at %#q", coordinationPath))

		baseline, err = v.stateReader.ReadNode(ctx, coordinationPath)
		if err != nil {
			return Unknown, microerror.Mask(err)
		}

		v.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("read baseline at %#q", coordinationPath), "state", "BaselineCaptured", "bytes", len(baseline))
	}

	defer func() {
		// Cleanup runs even when ctx is already cancelled.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), CleanupTimeout)
		defer cancel()

		err := v.installer.Uninstall(cleanupCtx, contenderName)
		if err != nil {
			v.logger.LogCtx(ctx, "level", "error", "message", fmt.Sprintf("uninstalling contender %#q failed", contenderName), "stack", fmt.Sprintf("%#v", err))
		} else {
			v.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("uninstalled contender %#q", contenderName))
		}
	}()

	{
		v.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("installing contender %#q", contenderName))

		err = v.installer.Install(ctx, contenderName, options)
		if err != nil {
			return Unknown, microerror.Mask(err)
		}

		v.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("installed contender %#q", contenderName), "state", "ContenderLaunched")
	}

	{
		v.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("waiting for contender %#q to terminate", contenderName))

		err = v.waitForContender(ctx, contenderName, timeout)
		if err != nil {
			return Unknown, microerror.Mask(err)
		}

		v.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("contender %#q terminated", contenderName), "state", "ContenderTerminated")
	}

	{
		v.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("comparing state at %#q with baseline", coordinationPath))

		current, err := v.stateReader.ReadNode(ctx, coordinationPath)
		if err != nil {
			return Unknown, microerror.Mask(err)
		}

		if !bytes.Equal(baseline, current) {
			v.writeArtifacts(ctx, coordinationPath, baseline, current)
			v.logger.LogCtx(ctx, "level", "error", "message", fmt.Sprintf("state at %#q changed", coordinationPath), "state", "Violated")

			return Violated, microerror.Maskf(violationError, "state at %#q changed while contender %#q was running: %d bytes before, %d bytes after", coordinationPath, contenderName, len(baseline), len(current))
		}

		v.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("state at %#q is unchanged", coordinationPath), "state", "Verified")
	}

	return Verified, nil
}

// waitForContender finds the scheduler task of the contender and waits for
// it to reach a terminal state. Both steps share the timeout budget.
func (v *Verifier) waitForContender(ctx context.Context, contenderName string, timeout time.Duration) error {
	probe := func(ctx context.Context) (interface{}, error) {
		l, err := v.appLister.AppTasks(ctx, contenderName)
		if err != nil {
			return nil, microerror.Mask(err)
		}

		return l, nil
	}

	predicate := func(state interface{}) (bool, string) {
		l := state.([]tasks.Task)
		if len(l) == 0 {
			return false, fmt.Sprintf("no scheduler task found for contender %#q", contenderName)
		}

		return true, fmt.Sprintf("found scheduler task %#q for contender %#q", l[0].ID, contenderName)
	}

	r, err := v.spinner.Spin(ctx, probe, predicate, timeout, v.interval)
	if e, ok := spin.AsTimeout(err); ok {
		return microerror.Maskf(ambiguousOutcomeError, "scheduler task of contender %#q not found within %s: %s", contenderName, timeout, e)
	} else if err != nil {
		return microerror.Mask(err)
	}

	taskID := r.State.([]tasks.Task)[0].ID

	remaining := timeout - r.Elapsed
	if remaining < 0 {
		remaining = 0
	}

	err = v.waiter.WaitForTerminal(ctx, taskID, remaining)
	if e, ok := spin.AsTimeout(err); ok {
		return microerror.Maskf(ambiguousOutcomeError, "scheduler task %#q of contender %#q did not terminate within %s: %s", taskID, contenderName, timeout, e)
	} else if err != nil {
		return microerror.Mask(err)
	}

	return nil
}

func (v *Verifier) writeArtifacts(ctx context.Context, coordinationPath string, baseline, current []byte) {
	if v.fs == nil || v.artifactDir == "" {
		return
	}

	name := strings.Replace(strings.Trim(coordinationPath, "/"), "/", "_", -1)

	err := v.fs.MkdirAll(v.artifactDir, 0755)
	if err != nil {
		v.logger.LogCtx(ctx, "level", "error", "message", fmt.Sprintf("creating artifact dir %#q failed", v.artifactDir), "stack", fmt.Sprintf("%#v", err))
		return
	}

	files := map[string][]byte{
		filepath.Join(v.artifactDir, name+".baseline"): baseline,
		filepath.Join(v.artifactDir, name+".observed"): current,
	}
	for p, b := range files {
		err := afero.WriteFile(v.fs, p, b, 0644)
		if err != nil {
			v.logger.LogCtx(ctx, "level", "error", "message", fmt.Sprintf("writing artifact %#q failed", p), "stack", fmt.Sprintf("%#v", err))
			continue
		}

		v.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("wrote artifact %#q", p))
	}
}
