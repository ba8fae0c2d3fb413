// +build dcosrequired

package sanity

import (
	"context"
	"testing"

	"github.com/giantswarm/micrologger"

	"github.com/mesosphere/sdk-e2etests/env"
	"github.com/mesosphere/sdk-e2etests/integration/setup"
)

// TestSanity runs the hello-world sanity scenarios against the cluster at
// DCOS_URL. The package is installed before the first scenario and
// uninstalled after the last one, also when a scenario fails.
func TestSanity(t *testing.T) {
	ctx := context.Background()

	logger, err := micrologger.New(micrologger.Config{})
	if err != nil {
		t.Fatalf("error == %#v, want nil", err)
	}

	c, err := env.Load(env.New())
	if err != nil {
		t.Fatalf("error == %#v, want nil", err)
	}

	suite, release, err := setup.Sanity(setup.Config{Env: c, Logger: logger})
	if err != nil {
		t.Fatalf("error == %#v, want nil", err)
	}
	defer release()

	teardown, err := suite.Setup(ctx)
	if err != nil {
		t.Fatalf("error == %#v, want nil", err)
	}
	defer teardown()

	t.Run("install worked", func(t *testing.T) {})

	t.Run("bump hello cpus", func(t *testing.T) {
		err := suite.BumpHelloCPUs(ctx)
		if err != nil {
			t.Fatalf("error == %#v, want nil", err)
		}
	})

	t.Run("bump hello nodes", func(t *testing.T) {
		err := suite.BumpHelloNodes(ctx)
		if err != nil {
			t.Fatalf("error == %#v, want nil", err)
		}
	})

	t.Run("lock", func(t *testing.T) {
		err := suite.Lock(ctx)
		if err != nil {
			t.Fatalf("error == %#v, want nil", err)
		}
	})
}
