// Package config resolves the client configuration from the TOML config
// file, BRAIN_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
)

const (
	configName = "config"
	configType = "toml"
	envPrefix  = "BRAIN"

	// DirName is the per-user directory holding config, credentials and data.
	DirName = ".brain"
)

// Configuration keys.
const (
	KeyBaseURL           = "api.base_url"
	KeyTimeout           = "api.timeout"
	KeyRequestsPerSecond = "api.requests_per_second"
	KeyBurst             = "api.burst"
	KeyPollFloor         = "poll.floor"
	KeyPollCeiling       = "poll.ceiling"
	KeyPollGrowth        = "poll.growth"
	KeyDataDir           = "data_dir"
)

// Keys lists every supported configuration key.
var Keys = []string{
	KeyBaseURL,
	KeyTimeout,
	KeyRequestsPerSecond,
	KeyBurst,
	KeyPollFloor,
	KeyPollCeiling,
	KeyPollGrowth,
	KeyDataDir,
}

// DefaultDir returns ~/.brain.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// IsKnownKey reports whether key is a supported configuration key.
func IsKnownKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Load reads config.toml from dir (defaults to ~/.brain) and applies
// environment overrides such as BRAIN_API_BASE_URL. A missing file is not
// an error.
func Load(dir string) (domain.ClientConfig, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return domain.ClientConfig{}, err
		}
		dir = d
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(dir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return domain.ClientConfig{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := domain.ClientConfig{
		APIBaseURL:        strings.TrimRight(v.GetString(KeyBaseURL), "/"),
		RequestTimeout:    v.GetDuration(KeyTimeout),
		RequestsPerSecond: v.GetFloat64(KeyRequestsPerSecond),
		Burst:             v.GetInt(KeyBurst),
		Poll: domain.PollConfig{
			Floor:   v.GetDuration(KeyPollFloor),
			Ceiling: v.GetDuration(KeyPollCeiling),
			Growth:  v.GetFloat64(KeyPollGrowth),
		},
		DataDir: expandHome(v.GetString(KeyDataDir)),
	}

	if err := validate(cfg); err != nil {
		return domain.ClientConfig{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, dir string) {
	d := domain.DefaultClientConfig()
	v.SetDefault(KeyBaseURL, d.APIBaseURL)
	v.SetDefault(KeyTimeout, d.RequestTimeout.String())
	v.SetDefault(KeyRequestsPerSecond, d.RequestsPerSecond)
	v.SetDefault(KeyBurst, d.Burst)
	v.SetDefault(KeyPollFloor, d.Poll.Floor.String())
	v.SetDefault(KeyPollCeiling, d.Poll.Ceiling.String())
	v.SetDefault(KeyPollGrowth, d.Poll.Growth)
	v.SetDefault(KeyDataDir, dir)
}

func validate(cfg domain.ClientConfig) error {
	if cfg.APIBaseURL == "" {
		return fmt.Errorf("%w: %s is empty", domain.ErrInvalidInput, KeyBaseURL)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, KeyTimeout)
	}
	if cfg.RequestsPerSecond < 0 || cfg.Burst < 0 {
		return fmt.Errorf("%w: rate limits must not be negative", domain.ErrInvalidInput)
	}
	if err := cfg.Poll.Validate(); err != nil {
		return fmt.Errorf("%w: poll.floor, poll.ceiling and poll.growth are inconsistent", err)
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
