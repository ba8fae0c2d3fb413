// Package setup wires the clients and verifiers used by the integration
// tests from the settings of a test run.
package setup

import (
	"github.com/giantswarm/microerror"
	"github.com/giantswarm/micrologger"
	"github.com/spf13/afero"

	"github.com/mesosphere/sdk-e2etests/dcos"
	"github.com/mesosphere/sdk-e2etests/env"
	"github.com/mesosphere/sdk-e2etests/lock"
	"github.com/mesosphere/sdk-e2etests/sanity"
	"github.com/mesosphere/sdk-e2etests/spin"
	"github.com/mesosphere/sdk-e2etests/zkstate"
)

type Config struct {
	Env    env.Config
	Logger micrologger.Logger
}

// Sanity returns the sanity suite for the configured cluster and a function
// releasing the connections it holds.
func Sanity(config Config) (*sanity.Sanity, func(), error) {
	var err error

	if config.Logger == nil {
		return nil, nil, microerror.Maskf(invalidConfigError, "%T.Logger must not be empty", config)
	}

	closers := []func(){}
	release := func() {
		for _, c := range closers {
			c()
		}
	}

	var spinner *spin.Spinner
	{
		c := spin.Config{
			Logger: config.Logger,
		}

		spinner, err = spin.New(c)
		if err != nil {
			return nil, nil, microerror.Mask(err)
		}
	}

	var dcosClient *dcos.Client
	{
		c := dcos.Config{
			Logger:  config.Logger,
			Spinner: spinner,

			Interval:    config.Env.Interval,
			PackageName: config.Env.PackageName,
			Token:       config.Env.Token,
			URL:         config.Env.DCOSURL,
		}

		dcosClient, err = dcos.New(c)
		if err != nil {
			return nil, nil, microerror.Mask(err)
		}
	}

	var stateReader lock.StateReader = dcosClient
	if len(config.Env.ZKServers) != 0 {
		c := zkstate.Config{
			Logger:  config.Logger,
			Servers: config.Env.ZKServers,
		}

		zkReader, err := zkstate.New(c)
		if err != nil {
			return nil, nil, microerror.Mask(err)
		}
		closers = append(closers, zkReader.Close)

		stateReader = zkReader
	}

	var verifier *lock.Verifier
	{
		c := lock.Config{
			AppLister:   dcosClient,
			Installer:   dcosClient,
			Logger:      config.Logger,
			Spinner:     spinner,
			StateReader: stateReader,
			Waiter:      dcosClient,

			Fs:          afero.NewOsFs(),
			ArtifactDir: config.Env.ArtifactDir,
			Interval:    config.Env.Interval,
		}

		verifier, err = lock.New(c)
		if err != nil {
			release()
			return nil, nil, microerror.Mask(err)
		}
	}

	var suite *sanity.Sanity
	{
		c := sanity.Config{
			Cluster: dcosClient,
			Lock:    verifier,
			Logger:  config.Logger,
			Spinner: spinner,

			Interval:    config.Env.Interval,
			PackageName: config.Env.PackageName,
			Timeout:     config.Env.Timeout,
		}

		suite, err = sanity.New(c)
		if err != nil {
			release()
			return nil, nil, microerror.Mask(err)
		}
	}

	return suite, release, nil
}
