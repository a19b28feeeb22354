package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/smboffload/cmd/offloadctl/cmdutil"
	"github.com/marmos91/smboffload/internal/cli/prompt"
	"github.com/marmos91/smboffload/pkg/config"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write a configuration file populated with defaults.

Examples:
  # Write to the default location
  offloadctl config init

  # Write to a specific path, replacing an existing file without asking
  offloadctl config init --config ./smboffload.yaml --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cmdutil.ConfigSource(cmd)

			if _, err := os.Stat(path); err == nil {
				ok, err := prompt.ConfirmOverwrite(path, force)
				if errors.Is(err, prompt.ErrNotInteractive) {
					return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
				}
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("configuration file left unchanged: %s", path)
				}
			}

			if err := config.SaveConfig(config.GetDefaultConfig(), path); err != nil {
				return err
			}

			printer, err := cmdutil.Printer(cmd)
			if err != nil {
				return err
			}
			printer.Success(fmt.Sprintf("Configuration written to %s", path))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}
