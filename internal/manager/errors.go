package manager

import (
	"strings"

	"modelcore/internal/status"
	"modelcore/pkg/modelconfig"
)

func errNameRequired() error {
	return status.New(status.InvalidArgument, "model name is required")
}

func errNotInRepository(name, repo string) error {
	return status.Newf(status.NotFound, "model '%s' not found in repository '%s'", name, repo)
}

func errNoConfigFile(name string) error {
	return status.Newf(status.NotFound, "model '%s' has no configuration file, expected one of: %s",
		name, strings.Join(modelconfig.ConfigFileNames, ", "))
}

func errNotLoaded(name string) error {
	return status.Newf(status.NotFound, "model '%s' is not loaded", name)
}

func errUnloading(name string) error {
	return status.Newf(status.Unavailable, "model '%s' is unloading", name)
}

func errClosed() error {
	return status.New(status.Unavailable, "model manager is shut down")
}

// IsModelNotFound reports whether err names a model that is not loaded or
// not in the repository.
func IsModelNotFound(err error) bool { return status.IsNotFound(err) }
