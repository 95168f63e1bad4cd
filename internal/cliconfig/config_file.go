package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Path         string `toml:"path"`
	Capacity     int64  `toml:"capacity"`
	Messages     int    `toml:"messages"`
	MessageSize  int    `toml:"message_size"`
	Checksum     string `toml:"checksum"`
	PollInterval string `toml:"poll_interval"`
	StateDir     string `toml:"state_dir"`
	Follow       *bool  `toml:"follow"`
	Once         *bool  `toml:"once"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.framelog/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".framelog", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("path", fc.Path, &cfg.Path)
	s.setString("checksum", fc.Checksum, &cfg.Checksum)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)

	s.setInt64("capacity", fc.Capacity, &cfg.Capacity)
	s.setInt("messages", fc.Messages, &cfg.Messages)
	s.setInt("message-size", fc.MessageSize, &cfg.MessageSize)

	if err := s.setDuration("poll", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}

	s.setBool("follow", fc.Follow, &cfg.Follow)
	s.setBool("once", fc.Once, &cfg.Once)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
