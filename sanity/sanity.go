package sanity

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/giantswarm/microerror"
	"github.com/giantswarm/micrologger"

	"github.com/mesosphere/sdk-e2etests/lock"
	"github.com/mesosphere/sdk-e2etests/spin"
	"github.com/mesosphere/sdk-e2etests/tasks"
)

type Config struct {
	Cluster Cluster
	Lock    lock.Interface
	Logger  micrologger.Logger
	Spinner spin.Interface

	Interval    time.Duration
	PackageName string
	Timeout     time.Duration
}

type Sanity struct {
	cluster Cluster
	lock    lock.Interface
	logger  micrologger.Logger
	spinner spin.Interface

	interval    time.Duration
	packageName string
	timeout     time.Duration
}

func New(config Config) (*Sanity, error) {
	if config.Cluster == nil {
		return nil, microerror.Maskf(invalidConfigError, "%T.Cluster must not be empty", config)
	}
	if config.Lock == nil {
		return nil, microerror.Maskf(invalidConfigError, "%T.Lock must not be empty", config)
	}
	if config.Logger == nil {
		return nil, microerror.Maskf(invalidConfigError, "%T.Logger must not be empty", config)
	}
	if config.Spinner == nil {
		return nil, microerror.Maskf(invalidConfigError, "%T.Spinner must not be empty", config)
	}

	if config.Interval < 0 {
		return nil, microerror.Maskf(invalidConfigError, "%T.Interval must not be negative", config)
	}
	if config.PackageName == "" {
		return nil, microerror.Maskf(invalidConfigError, "%T.PackageName must not be empty", config)
	}
	if config.Timeout <= 0 {
		return nil, microerror.Maskf(invalidConfigError, "%T.Timeout must be positive", config)
	}

	s := &Sanity{
		cluster: config.Cluster,
		lock:    config.Lock,
		logger:  config.Logger,
		spinner: config.Spinner,

		interval:    config.Interval,
		packageName: config.PackageName,
		timeout:     config.Timeout,
	}

	return s, nil
}

func (s *Sanity) Test(ctx context.Context) error {
	err := s.Run(ctx)
	if err != nil {
		return microerror.Mask(err)
	}

	return nil
}

// Names returns the names of all scenarios in execution order.
func (s *Sanity) Names() []string {
	var names []string
	for _, sc := range s.scenarios() {
		names = append(names, sc.name)
	}
	return names
}

// Run sets up the package, executes the named scenarios in their fixed
// order and tears the package down again. No names means all scenarios.
func (s *Sanity) Run(ctx context.Context, names ...string) error {
	known := map[string]bool{}
	for _, n := range s.Names() {
		known[n] = true
	}

	selected := map[string]bool{}
	for _, n := range names {
		if !known[n] {
			return microerror.Maskf(invalidConfigError, "unknown scenario %#q", n)
		}
		selected[n] = true
	}

	teardown, err := s.Setup(ctx)
	if err != nil {
		return microerror.Mask(err)
	}
	defer teardown()

	for _, sc := range s.scenarios() {
		if len(selected) != 0 && !selected[sc.name] {
			continue
		}

		s.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("running scenario %#q", sc.name))

		err = sc.run(ctx)
		if err != nil {
			return microerror.Mask(err)
		}

		s.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("scenario %#q passed", sc.name))
	}

	return nil
}

type scenario struct {
	name string
	run  func(ctx context.Context) error
}

func (s *Sanity) scenarios() []scenario {
	return []scenario{
		{name: "bump-hello-cpus", run: s.BumpHelloCPUs},
		{name: "bump-hello-nodes", run: s.BumpHelloNodes},
		{name: "lock", run: s.Lock},
	}
}

// Setup reinstalls the package and waits for it to be healthy. The returned
// teardown uninstalls it again and must be called once the scenarios are
// done. On error Setup has already cleaned up.
func (s *Sanity) Setup(ctx context.Context) (func(), error) {
	teardown := func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), CleanupTimeout)
		defer cancel()

		err := s.cluster.Uninstall(cleanupCtx, s.packageName)
		if err != nil {
			s.logger.LogCtx(ctx, "level", "error", "message", fmt.Sprintf("uninstalling %#q failed", s.packageName), "stack", fmt.Sprintf("%#v", err))
		}
	}

	{
		s.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("removing leftovers of %#q", s.packageName))

		err := s.cluster.Uninstall(ctx, s.packageName)
		if err != nil {
			return nil, microerror.Mask(err)
		}

		s.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("removed leftovers of %#q", s.packageName))
	}

	{
		s.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("installing %#q", s.packageName))

		err := s.cluster.Install(ctx, s.packageName, nil)
		if err != nil {
			teardown()
			return nil, microerror.Mask(err)
		}

		s.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("installed %#q", s.packageName))
	}

	{
		err := s.checkHealth(ctx, DefaultTaskCount)
		if err != nil {
			teardown()
			return nil, microerror.Mask(err)
		}
	}

	return teardown, nil
}

// BumpHelloCPUs raises the cpus of the hello tasks and waits for every hello
// task to be replaced.
func (s *Sanity) BumpHelloCPUs(ctx context.Context) error {
	env, err := s.cluster.AppEnv(ctx, s.packageName)
	if err != nil {
		return microerror.Mask(err)
	}
	count, err := intEnv(env, EnvHelloCount)
	if err != nil {
		return microerror.Mask(err)
	}
	cpus, err := floatEnv(env, EnvHelloCPUs)
	if err != nil {
		return microerror.Mask(err)
	}

	err = s.checkHealth(ctx, count)
	if err != nil {
		return microerror.Mask(err)
	}

	ids, err := tasks.List(ctx, s.cluster, s.packageName, TaskPrefix)
	if err != nil {
		return microerror.Mask(err)
	}
	s.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("hello ids: %v", ids.List()))

	{
		next := strconv.FormatFloat(math.Round((cpus+0.1)*1000)/1000, 'f', -1, 64)

		s.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("bumping %s from %s to %s", EnvHelloCPUs, env[EnvHelloCPUs], next))

		err = s.cluster.UpdateEnv(ctx, s.packageName, map[string]string{EnvHelloCPUs: next})
		if err != nil {
			return microerror.Mask(err)
		}

		s.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("bumped %s to %s", EnvHelloCPUs, next))
	}

	{
		s.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("waiting for update of %#q tasks", TaskPrefix))

		_, err = s.spinner.Spin(ctx, tasks.IDsProbe(s.cluster, s.packageName, TaskPrefix), tasks.UpdatedPredicate(TaskPrefix, ids), s.timeout, s.interval)
		if err != nil {
			return microerror.Mask(err)
		}

		s.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("%#q tasks updated", TaskPrefix))
	}

	err = s.checkHealth(ctx, count)
	if err != nil {
		return microerror.Mask(err)
	}

	return nil
}

// BumpHelloNodes raises the number of hello tasks and waits for the new one
// while the existing hello tasks must keep running.
func (s *Sanity) BumpHelloNodes(ctx context.Context) error {
	env, err := s.cluster.AppEnv(ctx, s.packageName)
	if err != nil {
		return microerror.Mask(err)
	}
	count, err := intEnv(env, EnvHelloCount)
	if err != nil {
		return microerror.Mask(err)
	}

	err = s.checkHealth(ctx, count)
	if err != nil {
		return microerror.Mask(err)
	}

	ids, err := tasks.List(ctx, s.cluster, s.packageName, TaskPrefix)
	if err != nil {
		return microerror.Mask(err)
	}
	s.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("hello ids: %v", ids.List()))

	{
		next := strconv.Itoa(count + 1)

		s.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("bumping %s from %d to %s", EnvHelloCount, count, next))

		err = s.cluster.UpdateEnv(ctx, s.packageName, map[string]string{EnvHelloCount: next})
		if err != nil {
			return microerror.Mask(err)
		}

		s.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("bumped %s to %s", EnvHelloCount, next))
	}

	err = s.checkHealth(ctx, count+1)
	if err != nil {
		return microerror.Mask(err)
	}

	{
		s.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("verifying %#q tasks were not updated", TaskPrefix))

		_, err = s.spinner.Spin(ctx, tasks.IDsProbe(s.cluster, s.packageName, TaskPrefix), tasks.UnchangedPredicate(TaskPrefix, ids), s.timeout, s.interval)
		if err != nil {
			return microerror.Mask(err)
		}

		s.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("%#q tasks were not updated", TaskPrefix))
	}

	return nil
}

// Lock verifies that a second scheduler of the same package fails to start
// without touching the persisted configuration of the running one.
func (s *Sanity) Lock(ctx context.Context) error {
	options := map[string]interface{}{
		"hello": map[string]interface{}{
			"count": ContenderCount,
		},
	}

	verdict, err := s.lock.Verify(ctx, CoordinationPath(s.packageName), s.packageName+ContenderSuffix, options, s.timeout)
	if err != nil {
		return microerror.Mask(err)
	}

	s.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("lock %s", verdict))

	return nil
}

func (s *Sanity) checkHealth(ctx context.Context, count int) error {
	s.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("waiting for %d running tasks of %#q", count, s.packageName))

	_, err := s.spinner.Spin(ctx, tasks.RunningProbe(s.cluster, s.packageName, ""), tasks.RunningPredicate("", count), s.timeout, s.interval)
	if err != nil {
		return microerror.Mask(err)
	}

	s.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("found %d running tasks of %#q", count, s.packageName))

	return nil
}

func intEnv(env map[string]string, key string) (int, error) {
	n, err := strconv.Atoi(env[key])
	if err != nil {
		return 0, microerror.Maskf(invalidEnvError, "%s=%#q is not an integer", key, env[key])
	}

	return n, nil
}

func floatEnv(env map[string]string, key string) (float64, error) {
	f, err := strconv.ParseFloat(env[key], 64)
	if err != nil {
		return 0, microerror.Maskf(invalidEnvError, "%s=%#q is not a number", key, env[key])
	}

	return f, nil
}
