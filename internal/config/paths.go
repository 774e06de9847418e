package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "ZWAVENET_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "zwavenet.yaml"
	// ConfigDirName is the directory under XDG, ~/.config and /etc
	ConfigDirName = "zwavenet"
)

// SearchPaths lists config file candidates, highest priority first:
// $ZWAVENET_CONFIG, ./zwavenet.yaml, $XDG_CONFIG_HOME/zwavenet/config.yaml,
// ~/.config/zwavenet/config.yaml, /etc/zwavenet/config.yaml.
func SearchPaths(getenv func(string) string) []string {
	var paths []string
	if p := getenv(EnvConfigPath); p != "" {
		paths = append(paths, p)
	}
	paths = append(paths, ConfigFileName)
	if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, ConfigDirName, "config.yaml"))
	}
	if home := getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, "config.yaml"))
	}
	return append(paths, filepath.Join("/etc", ConfigDirName, "config.yaml"))
}

// FindConfigPath returns the first existing candidate of SearchPaths,
// or "" when there is none
func FindConfigPath() string {
	for _, p := range SearchPaths(os.Getenv) {
		if !isFile(p) {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return ""
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
