package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (FRAMELOG_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("path", os.Getenv("FRAMELOG_PATH"), &cfg.Path)
	s.setString("checksum", os.Getenv("FRAMELOG_CHECKSUM"), &cfg.Checksum)
	s.setString("state-dir", os.Getenv("FRAMELOG_STATE_DIR"), &cfg.StateDir)

	if err := s.setInt64FromString("capacity", os.Getenv("FRAMELOG_CAPACITY"), &cfg.Capacity); err != nil {
		return err
	}
	if err := s.setIntFromString("messages", os.Getenv("FRAMELOG_MESSAGES"), &cfg.Messages); err != nil {
		return err
	}
	if err := s.setIntFromString("message-size", os.Getenv("FRAMELOG_MESSAGE_SIZE"), &cfg.MessageSize); err != nil {
		return err
	}

	if err := s.setDuration("poll", os.Getenv("FRAMELOG_POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}

	s.setBoolFromString("follow", os.Getenv("FRAMELOG_FOLLOW"), &cfg.Follow)
	s.setBoolFromString("once", os.Getenv("FRAMELOG_ONCE"), &cfg.Once)

	return nil
}
