package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is read when present; a missing one is not an error.
const DefaultEnvFile = ".env"

// LoadEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set are left untouched. When path is empty the default
// .env file is tried and silently skipped if absent; an explicit path must exist.
func LoadEnv(path string) (string, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load env file '%s': %w", path, err)
	}
	return path, nil
}
