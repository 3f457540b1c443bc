package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	FailPolicyDegrade = "degrade"
	FailPolicyDrop    = "drop"
)

type Config struct {
	Fetch      FetchConfig      `json:"fetch" yaml:"fetch"`
	Batch      BatchConfig      `json:"batch" yaml:"batch"`
	Storage    StorageConfig    `json:"storage" yaml:"storage"`
	Signatures SignaturesConfig `json:"signatures" yaml:"signatures"`
}

type FetchConfig struct {
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`
	UserAgent    string        `json:"user_agent" yaml:"user_agent"`
	MaxRedirects int           `json:"max_redirects" yaml:"max_redirects"`
	MaxBodySize  int64         `json:"max_body_size" yaml:"max_body_size"`
	RatePerSec   float64       `json:"rate_per_sec" yaml:"rate_per_sec"`
	DNSPrecheck  bool          `json:"dns_precheck" yaml:"dns_precheck"`
	DNSServer    string        `json:"dns_server" yaml:"dns_server"`
}

type BatchConfig struct {
	Concurrency int    `json:"concurrency" yaml:"concurrency"`
	FailPolicy  string `json:"fail_policy" yaml:"fail_policy"`
}

type StorageConfig struct {
	BaseDir     string        `json:"base_dir" yaml:"base_dir"`
	Compression bool          `json:"compression" yaml:"compression"`
	Retention   time.Duration `json:"retention" yaml:"retention"`
}

type SignaturesConfig struct {
	ExtraFiles []string `json:"extra_files" yaml:"extra_files"`
}

func DefaultConfig() Config {
	return Config{
		Fetch: FetchConfig{
			Timeout:      15 * time.Second,
			UserAgent:    "Mozilla/5.0 (compatible; StackLynx/1.0; +https://github.com/bl4ck0w1/stacklynx)",
			MaxRedirects: 5,
			MaxBodySize:  2 << 20,
			RatePerSec:   5,
			DNSPrecheck:  false,
			DNSServer:    "8.8.8.8:53",
		},
		Batch: BatchConfig{
			Concurrency: 8,
			FailPolicy:  FailPolicyDegrade,
		},
		Storage: StorageConfig{
			BaseDir:     "./data",
			Compression: false,
			Retention:   0,
		},
	}
}

func (c *Config) Validate() error {
	var problems []string

	if c.Fetch.Timeout <= 0 {
		problems = append(problems, "fetch.timeout must be positive")
	}
	if c.Fetch.MaxRedirects < 0 {
		problems = append(problems, "fetch.max_redirects cannot be negative")
	}
	if c.Fetch.MaxBodySize <= 0 {
		problems = append(problems, "fetch.max_body_size must be positive")
	}
	if c.Fetch.RatePerSec <= 0 {
		problems = append(problems, "fetch.rate_per_sec must be positive")
	}
	if c.Batch.Concurrency <= 0 {
		problems = append(problems, "batch.concurrency must be positive")
	}
	switch c.Batch.FailPolicy {
	case FailPolicyDegrade, FailPolicyDrop:
	default:
		problems = append(problems, fmt.Sprintf("invalid batch.fail_policy: %s", c.Batch.FailPolicy))
	}
	if c.Storage.BaseDir == "" {
		problems = append(problems, "storage.base_dir is required")
	}
	if c.Storage.Retention < 0 {
		problems = append(problems, "storage.retention cannot be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
