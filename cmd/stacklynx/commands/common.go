package commands

import (
	"github.com/spf13/viper"

	"github.com/bl4ck0w1/stacklynx/pkg/models"
)

// configFromViper assembles the typed config the components consume from
// whatever viper resolved out of defaults, file, env, and flags.
func configFromViper() models.Config {
	cfg := models.DefaultConfig()

	if d := viper.GetDuration("fetch.timeout"); d > 0 {
		cfg.Fetch.Timeout = d
	}
	if ua := viper.GetString("fetch.user_agent"); ua != "" {
		cfg.Fetch.UserAgent = ua
	}
	cfg.Fetch.MaxRedirects = viper.GetInt("fetch.max_redirects")
	if n := viper.GetInt64("fetch.max_body_size"); n > 0 {
		cfg.Fetch.MaxBodySize = n
	}
	if r := viper.GetFloat64("fetch.rate_per_sec"); r > 0 {
		cfg.Fetch.RatePerSec = r
	}
	cfg.Fetch.DNSPrecheck = viper.GetBool("fetch.dns_precheck")
	if s := viper.GetString("fetch.dns_server"); s != "" {
		cfg.Fetch.DNSServer = s
	}

	if n := viper.GetInt("batch.concurrency"); n > 0 {
		cfg.Batch.Concurrency = n
	}
	if p := viper.GetString("batch.fail_policy"); p != "" {
		cfg.Batch.FailPolicy = p
	}

	if dir := viper.GetString("data_directory"); dir != "" {
		cfg.Storage.BaseDir = dir
	}
	cfg.Storage.Compression = viper.GetBool("storage.compression")
	cfg.Storage.Retention = viper.GetDuration("storage.retention")

	cfg.Signatures.ExtraFiles = viper.GetStringSlice("signatures.extra_files")

	return cfg
}
