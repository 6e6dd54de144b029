package main

import (
	"os"
	"path/filepath"
)

// configPath returns --config when set, otherwise the first default
// location that exists.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return findConfigInWithHome(wd, home)
}

// findConfigInWithHome looks in workDir, then home/.config/authgate. When
// neither has a config file it returns the bare default name so the load
// error names the file the user is expected to create.
func findConfigInWithHome(workDir, home string) string {
	local := filepath.Join(workDir, defaultConfigFile)
	if _, err := os.Stat(local); err == nil {
		return local
	}
	if home != "" {
		p := filepath.Join(home, ".config", appName, defaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return defaultConfigFile
}
