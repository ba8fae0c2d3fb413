package lock

import "github.com/giantswarm/microerror"

var ambiguousOutcomeError = &microerror.Error{
	Kind: "ambiguousOutcomeError",
}

// IsAmbiguousOutcome asserts ambiguousOutcomeError. It means a bounded wait
// expired and the verification could not decide either way.
func IsAmbiguousOutcome(err error) bool {
	return microerror.Cause(err) == ambiguousOutcomeError
}

var invalidConfigError = &microerror.Error{
	Kind: "invalidConfigError",
}

// IsInvalidConfig asserts invalidConfigError.
func IsInvalidConfig(err error) bool {
	return microerror.Cause(err) == invalidConfigError
}

var violationError = &microerror.Error{
	Kind: "violationError",
}

// IsViolation asserts violationError.
func IsViolation(err error) bool {
	return microerror.Cause(err) == violationError
}
