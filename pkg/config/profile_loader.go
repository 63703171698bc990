package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DecisionProfile is a named bundle of gate and orchestration tuning,
// loaded from YAML. Deployments ship one profile per risk posture and
// select it with DECISION_PROFILE.
type DecisionProfile struct {
	Name            string          `yaml:"name" json:"name"`
	Code            string          `yaml:"code" json:"code"`
	DefaultStrategy string          `yaml:"default_strategy" json:"default_strategy"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Retry           RetryConfig     `yaml:"retry" json:"retry"`
	SeedBalances    []SeedBalance   `yaml:"seed_balances,omitempty" json:"seed_balances,omitempty"`
}

// RateLimitConfig overrides the admission bucket per profile.
type RateLimitConfig struct {
	Capacity     int     `yaml:"capacity" json:"capacity"`
	RefillPerSec float64 `yaml:"refill_per_sec" json:"refill_per_sec"`
}

// RetryConfig overrides the tool retry policy per profile.
type RetryConfig struct {
	MaxRetries    int `yaml:"max_retries" json:"max_retries"`
	BackoffStepMs int `yaml:"backoff_step_ms" json:"backoff_step_ms"`
}

// SeedBalance pre-funds a customer account at startup. Demo and test
// profiles use this; production profiles leave it empty.
type SeedBalance struct {
	CustomerID string `yaml:"customer_id" json:"customer_id"`
	Balance    string `yaml:"balance" json:"balance"`
}

// LoadProfile loads a decision profile YAML by code. It searches the
// profiles directory for profile_<code>.yaml.
func LoadProfile(profilesDir, code string) (*DecisionProfile, error) {
	code = strings.ToLower(code)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", code))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", code, err)
	}

	var profile DecisionProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", code, err)
	}

	if profile.Code == "" {
		profile.Code = code
	}

	return &profile, nil
}

// LoadAllProfiles loads all profile_*.yaml files from the profiles directory.
func LoadAllProfiles(profilesDir string) (map[string]*DecisionProfile, error) {
	matches, err := filepath.Glob(filepath.Join(profilesDir, "profile_*.yaml"))
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*DecisionProfile, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var profile DecisionProfile
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		if profile.Code == "" {
			// Extract code from filename: profile_strict.yaml -> strict
			base := filepath.Base(path)
			profile.Code = strings.TrimSuffix(strings.TrimPrefix(base, "profile_"), ".yaml")
		}

		profiles[profile.Code] = &profile
	}

	return profiles, nil
}

// Apply overlays the profile's non-zero tuning onto the config.
func (p *DecisionProfile) Apply(cfg *Config) {
	if p.RateLimit.Capacity > 0 {
		cfg.RateLimitCapacity = p.RateLimit.Capacity
	}
	if p.RateLimit.RefillPerSec > 0 {
		cfg.RateLimitRefill = p.RateLimit.RefillPerSec
	}
	if p.Retry.MaxRetries > 0 {
		cfg.MaxRetries = p.Retry.MaxRetries
	}
	if p.Retry.BackoffStepMs > 0 {
		cfg.BackoffStep = time.Duration(p.Retry.BackoffStepMs) * time.Millisecond
	}
}
