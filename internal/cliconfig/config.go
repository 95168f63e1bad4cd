// Package cliconfig holds the CLI configuration for the framelog tool,
// merged from defaults, a TOML config file, FRAMELOG_* environment
// variables and command-line flags, in increasing order of precedence.
package cliconfig

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bft-labs/framelog/internal/channel"
	"github.com/bft-labs/framelog/pkg/checksum"
)

// Config holds CLI configuration for framelog.
type Config struct {
	// Path is the region file backing the channel.
	Path string

	// Capacity is the region size in bytes. Zero means derive it from
	// Messages and MessageSize via the capacity estimate.
	Capacity int64

	Messages    int
	MessageSize int

	// Checksum names the integrity capability: crc32, crc32c, xxhash
	// or none.
	Checksum string

	// PollInterval is the sleep ceiling between read attempts in tail.
	PollInterval time.Duration

	// Follow keeps tail running past the end-of-stream marker.
	Follow bool

	// Once makes tail drain what is available and exit.
	Once bool

	// StateDir is where tail persists its resume state. Defaults to
	// the region file's directory.
	StateDir string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Checksum:     "crc32",
		PollInterval: 200 * time.Millisecond,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}

	if c.Capacity <= 0 {
		if c.Messages <= 0 || c.MessageSize <= 0 {
			return fmt.Errorf("capacity is required (or messages and message-size)")
		}
		c.Capacity = channel.EstimateFileSize(c.Messages, c.MessageSize)
	}

	if c.Capacity < channel.MinCapacity {
		return fmt.Errorf("capacity %d too small, need at least %d", c.Capacity, channel.MinCapacity)
	}

	if _, err := checksum.ForName(c.Checksum); err != nil {
		return err
	}

	if c.StateDir == "" {
		c.StateDir = filepath.Dir(c.Path)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}

	return nil
}

// Summer resolves the configured checksum capability.
func (c *Config) Summer() (checksum.Summer, error) {
	return checksum.ForName(c.Checksum)
}

// configSetter helps apply configuration values while respecting flag
// precedence. It only applies values if the corresponding flag hasn't
// been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt64 sets an int64 value if positive and flag not changed.
func (s *configSetter) setInt64(flag string, value int64, dst *int64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setInt64FromString parses a string to int64 and sets the destination if valid.
func (s *configSetter) setInt64FromString(flag, value string, dst *int64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
