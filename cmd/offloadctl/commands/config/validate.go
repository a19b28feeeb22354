package config

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/smboffload/cmd/offloadctl/cmdutil"
	"github.com/marmos91/smboffload/internal/cli/output"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Long: `Validate the configuration file after applying defaults and
SMBOFFLOAD_* environment overrides.

Examples:
  offloadctl config validate
  offloadctl config validate --config /etc/smboffload/config.yaml -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdutil.LoadConfig(cmd)
			if err != nil {
				return err
			}

			printer, err := cmdutil.Printer(cmd)
			if err != nil {
				return err
			}

			summary := output.NewKeyValues().
				Set("source", cmdutil.ConfigSource(cmd)).
				Set("log_level", cfg.Logging.Level).
				Set("log_format", cfg.Logging.Format).
				Set("backend", cfg.Offload.Backend).
				Set("max_entries", strconv.Itoa(cfg.Offload.MaxEntries)).
				Set("telemetry", strconv.FormatBool(cfg.Telemetry.Enabled)).
				Set("profiling", strconv.FormatBool(cfg.Telemetry.Profiling.Enabled)).
				Set("metrics", strconv.FormatBool(cfg.Metrics.Enabled))

			if printer.Format() == output.FormatTable {
				printer.Success("Validation: OK")
			}
			if err := printer.Print(summary); err != nil {
				return err
			}

			if cfg.Offload.Backend == "badger" && cfg.Offload.Badger.InMemory && cfg.Offload.Badger.Dir != "" {
				printer.Warning(fmt.Sprintf("badger.dir %q is ignored while badger.in_memory is set", cfg.Offload.Badger.Dir))
			}
			return nil
		},
	}
}
