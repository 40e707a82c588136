package pagerdutyaction

import (
	"fmt"
	"time"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`

	APIToken       string        `mapstructure:"api_token"`
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PageSize       int           `mapstructure:"page_size"`

	IdempotencyEnabled bool          `mapstructure:"idempotency_enabled"`
	IdempotencyTTL     time.Duration `mapstructure:"idempotency_ttl"`

	AuditEnabled bool   `mapstructure:"audit_enabled"`
	AuditTable   string `mapstructure:"audit_table"`

	StrictRegistry bool `mapstructure:"strict_registry"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		MaxJobsActive:  5,
		Timeout:        30 * time.Second,
		BaseURL:        "https://api.pagerduty.com",
		RequestTimeout: 30 * time.Second,
		PageSize:       100,
		IdempotencyTTL: 24 * time.Hour,
		AuditTable:     "pagerduty_action_audit",
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.APIToken == "" {
		return fmt.Errorf("api_token is required")
	}
	if c.IdempotencyEnabled && c.IdempotencyTTL <= 0 {
		return fmt.Errorf("idempotency_ttl must be positive when idempotency is enabled")
	}
	if c.AuditEnabled && c.AuditTable == "" {
		return fmt.Errorf("audit_table is required when audit is enabled")
	}
	return nil
}
