// Package config implements the offloadctl config subcommands.
package config

import "github.com/spf13/cobra"

// NewCommand builds the config command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the smboffload configuration",
	}
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newSchemaCmd())
	return cmd
}
