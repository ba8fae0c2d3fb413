package main

import (
	"context"
	"fmt"
	"time"

	"github.com/giantswarm/microerror"
	"github.com/giantswarm/micrologger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesosphere/sdk-e2etests/env"
	"github.com/mesosphere/sdk-e2etests/integration/setup"
)

const (
	flagArtifactDir = "artifact-dir"
	flagDCOSURL     = "dcos-url"
	flagInterval    = "interval"
	flagPackageName = "package-name"
	flagScenario    = "scenario"
	flagTimeout     = "timeout"
	flagZKServers   = "zk-servers"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "sdke2e",
		Short:         "Integration tests for SDK frameworks running on DC/OS.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newSanityCommand(env.New()))

	return root
}

func newSanityCommand(v *viper.Viper) *cobra.Command {
	var scenarios []string

	cmd := &cobra.Command{
		Use:           "sanity",
		Short:         "Run the sanity scenarios against a live cluster.",
		SilenceErrors: true,
		SilenceUsage:  true,
		Long: `Run the sanity scenarios against a live cluster.

Settings are read from flags and fall back to the environment variables
DCOS_URL, DCOS_ACS_TOKEN, PACKAGE_NAME, ZK_SERVERS, ARTIFACT_DIR, TIMEOUT
and INTERVAL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSanity(cmd.Context(), v, scenarios)
		},
	}

	f := cmd.Flags()
	f.String(flagArtifactDir, "", "Directory receiving the coordination state on a lock violation.")
	f.String(flagDCOSURL, "", "DC/OS cluster URL.")
	f.Duration(flagInterval, env.DefaultInterval, "Delay between two observations of the cluster.")
	f.String(flagPackageName, env.DefaultPackageName, "Package under test.")
	f.StringSliceVar(&scenarios, flagScenario, nil, "Scenario to run, may be repeated. All scenarios run by default.")
	f.Duration(flagTimeout, env.DefaultTimeout, "Budget of every single wait.")
	f.String(flagZKServers, "", "Comma separated ZooKeeper servers to read state from instead of Exhibitor.")

	for key, flag := range map[string]string{
		env.KeyArtifactDir: flagArtifactDir,
		env.KeyDCOSURL:     flagDCOSURL,
		env.KeyInterval:    flagInterval,
		env.KeyPackageName: flagPackageName,
		env.KeyTimeout:     flagTimeout,
		env.KeyZKServers:   flagZKServers,
	} {
		_ = v.BindPFlag(key, f.Lookup(flag))
	}

	return cmd
}

func runSanity(ctx context.Context, v *viper.Viper, scenarios []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := env.Load(v)
	if err != nil {
		return microerror.Mask(err)
	}

	logger, err := micrologger.New(micrologger.Config{})
	if err != nil {
		return microerror.Mask(err)
	}

	suite, release, err := setup.Sanity(setup.Config{Env: c, Logger: logger})
	if err != nil {
		return microerror.Mask(err)
	}
	defer release()

	start := time.Now()

	err = suite.Run(ctx, scenarios...)
	if err != nil {
		logger.LogCtx(ctx, "level", "error", "message", "sanity failed", "elapsed", time.Since(start).String(), "stack", fmt.Sprintf("%#v", err))
		return microerror.Mask(err)
	}

	logger.LogCtx(ctx, "level", "info", "message", "sanity passed", "elapsed", time.Since(start).String())

	return nil
}
