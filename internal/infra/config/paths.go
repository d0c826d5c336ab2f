package config

import (
	"os"
	"path/filepath"
)

// ConfigDir is $XDG_CONFIG_HOME/uad, defaulting to ~/.config/uad.
func ConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// CacheDir is $XDG_CACHE_HOME/uad, defaulting to ~/.cache/uad. Logs and
// backups live here.
func CacheDir() (string, error) {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

func BackupDir() (string, error) {
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "backups"), nil
}

func xdgDir(env, fallback string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	return filepath.Join(base, AppDir), nil
}
