package cli

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/secondbrain-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change the settings stored in ~/.brain/config.toml.

Environment variables override the file: api.base_url is read from
BRAIN_API_BASE_URL, poll.floor from BRAIN_POLL_FLOOR, and so on.

Keys:
  api.base_url             service root including /api/v1
  api.timeout              request timeout (e.g. 30s)
  api.requests_per_second  client-side throttle, 0 disables it
  api.burst                throttle burst size
  poll.floor               first progress check interval (e.g. 2s)
  poll.ceiling             longest progress check interval (e.g. 10s)
  poll.growth              interval growth factor (e.g. 1.2)
  data_dir                 credentials and chat transcripts`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show one or all stored settings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a stored setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return fmt.Errorf("config store %w", errNotConfigured)
	}

	if len(args) == 1 {
		val, ok := configStore.Get(args[0])
		if !ok {
			cmd.Printf("%s is not set\n", args[0])
			return nil
		}
		cmd.Println(val)
		return nil
	}

	all := configStore.All()
	if len(all) == 0 {
		cmd.Println("No settings stored; defaults apply.")
		return nil
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cmd.Printf("%s = %v\n", k, all[k])
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return fmt.Errorf("config store %w", errNotConfigured)
	}

	key, raw := args[0], args[1]
	value, err := parseConfigValue(key, raw)
	if err != nil {
		return err
	}
	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("save setting: %w", err)
	}

	cmd.Printf("%s = %v\n", key, value)
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return fmt.Errorf("config store %w", errNotConfigured)
	}
	if err := configStore.Unset(args[0]); err != nil {
		return fmt.Errorf("save setting: %w", err)
	}
	cmd.Printf("%s unset\n", args[0])
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return fmt.Errorf("config store %w", errNotConfigured)
	}
	cmd.Println(configStore.Path())
	return nil
}

// parseConfigValue validates raw for key and converts it to the stored type.
func parseConfigValue(key, raw string) (any, error) {
	if !config.IsKnownKey(key) {
		return nil, fmt.Errorf("unknown key %q, see 'brain config --help'", key)
	}

	switch key {
	case config.KeyBaseURL:
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%s must be an absolute URL", key)
		}
		return raw, nil

	case config.KeyTimeout, config.KeyPollFloor, config.KeyPollCeiling:
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration such as 2s", key)
		}
		return d.String(), nil

	case config.KeyRequestsPerSecond:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("%s must be a number >= 0", key)
		}
		return f, nil

	case config.KeyPollGrowth:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f < 1 {
			return nil, fmt.Errorf("%s must be a number >= 1", key)
		}
		return f, nil

	case config.KeyBurst:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%s must be a whole number >= 0", key)
		}
		return n, nil

	case config.KeyDataDir:
		if raw == "" {
			return nil, errors.New("data_dir must not be empty")
		}
		return raw, nil
	}

	return raw, nil
}
