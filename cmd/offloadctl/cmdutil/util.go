// Package cmdutil provides helpers shared by offloadctl commands.
package cmdutil

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/smboffload/internal/cli/output"
	"github.com/marmos91/smboffload/pkg/config"
)

// Persistent flag names registered on the root command.
const (
	FlagConfig   = "config"
	FlagOutput   = "output"
	FlagNoColor  = "no-color"
	FlagLogLevel = "log-level"
)

// ConfigFile returns the --config value, or "" for the default location.
func ConfigFile(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString(FlagConfig)
	return path
}

// ConfigSource describes where configuration was loaded from.
func ConfigSource(cmd *cobra.Command) string {
	if path := ConfigFile(cmd); path != "" {
		return path
	}
	return config.GetDefaultConfigPath()
}

// LoadConfig loads configuration for cmd and applies the --log-level
// override.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(ConfigFile(cmd))
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString(FlagLogLevel); level != "" {
		cfg.Logging.Level = level
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Printer returns an output printer honoring --output and --no-color.
func Printer(cmd *cobra.Command) (*output.Printer, error) {
	name, _ := cmd.Flags().GetString(FlagOutput)
	format, err := output.ParseFormat(name)
	if err != nil {
		return nil, err
	}
	noColor, _ := cmd.Flags().GetBool(FlagNoColor)
	return output.NewPrinter(cmd.OutOrStdout(), format, !noColor), nil
}
