package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".peppercloud"

// Paths holds resolved filesystem paths for peppercloud data.
type Paths struct {
	Base   string // ~/.peppercloud
	Config string // ~/.peppercloud/config.yaml
	Env    string // ~/.peppercloud/.env
	Logs   string // ~/.peppercloud/logs
}

// ResolvePaths computes all standard paths from the home directory.
// If PEPPER_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("PEPPER_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:   base,
		Config: filepath.Join(base, "config.yaml"),
		Env:    filepath.Join(base, ".env"),
		Logs:   filepath.Join(base, "logs"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Logs} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}
