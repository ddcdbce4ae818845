package config

import (
	"time"
)

type DispatchConfig struct {
	TokenTTL           time.Duration `yaml:"token_ttl"`
	TokenSweepInterval time.Duration `yaml:"token_sweep_interval"`
	AssignDelay        time.Duration `yaml:"assign_delay"`
	AutoAcceptEnabled  bool          `yaml:"auto_accept_enabled"`
}

func loadDispatchConfig() *DispatchConfig {
	return &DispatchConfig{
		TokenTTL:           getEnvAsDuration("TOKEN_TTL", time.Hour),
		TokenSweepInterval: getEnvAsDuration("TOKEN_SWEEP_INTERVAL", 15*time.Minute),
		AssignDelay:        getEnvAsDuration("DISPATCH_ASSIGN_DELAY", 2*time.Second),
		AutoAcceptEnabled:  getEnvAsBool("DISPATCH_AUTO_ACCEPT", true),
	}
}
