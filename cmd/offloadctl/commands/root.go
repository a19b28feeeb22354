// Package commands implements the offloadctl CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/smboffload/cmd/offloadctl/cmdutil"
	configcmd "github.com/marmos91/smboffload/cmd/offloadctl/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCmd builds the offloadctl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "offloadctl",
		Short: "SMB copy-offload token tooling",
		Long: `offloadctl inspects and exercises the SMB2 copy-offload token registry.

Use it to encode and decode offload tokens, validate configuration, and run
an end-to-end probe of the resume-key, copychunk and duplicate-extents paths
against the configured token store.

Use "offloadctl [command] --help" for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP(cmdutil.FlagConfig, "c", "", "Path to config file (default: $XDG_CONFIG_HOME/smboffload/config.yaml)")
	root.PersistentFlags().StringP(cmdutil.FlagOutput, "o", "table", "Output format (table|json|yaml)")
	root.PersistentFlags().Bool(cmdutil.FlagNoColor, false, "Disable colored output")
	root.PersistentFlags().String(cmdutil.FlagLogLevel, "", "Override the configured log level")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newProbeCmd())
	root.AddCommand(configcmd.NewCommand())

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
