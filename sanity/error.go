package sanity

import "github.com/giantswarm/microerror"

var invalidConfigError = &microerror.Error{
	Kind: "invalidConfigError",
}

// IsInvalidConfig asserts invalidConfigError.
func IsInvalidConfig(err error) bool {
	return microerror.Cause(err) == invalidConfigError
}

var invalidEnvError = &microerror.Error{
	Kind: "invalidEnvError",
}

// IsInvalidEnv asserts invalidEnvError.
func IsInvalidEnv(err error) bool {
	return microerror.Cause(err) == invalidEnvError
}
