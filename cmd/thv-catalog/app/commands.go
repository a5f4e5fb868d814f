// Package app provides the commands of the thv-catalog binary.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/toolhive-catalog/internal/versions"
)

// LogLevel is the level of the process logger. --verbose lowers it to debug.
var LogLevel = new(slog.LevelVar)

// NewRootCmd creates the root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "thv-catalog",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Discover, validate and publish plugin marketplaces and skills",
		Long: `thv-catalog searches public source code for plugin marketplace manifests and
SKILL.md files, keeps those from sufficiently popular repositories, validates them
and reconciles the result into the published catalog.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if viper.GetBool("verbose") {
				LogLevel.Set(slog.LevelDebug)
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		slog.Error("Error binding config flag", "error", err)
	}
	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		slog.Error("Error binding verbose flag", "error", err)
	}

	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}

			if format == "json" {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format version info as JSON: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return err
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}
