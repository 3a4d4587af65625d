package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var settingsFlag string
	var orgFlag string

	ctx := newCommandContext(&settingsFlag, &orgFlag)

	rootCmd := &cobra.Command{
		Use:           "pcc",
		Short:         "Deploy and manage Pipecat Cloud agents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&settingsFlag, "settings", "", "User settings file path (default ~/.config/pipecatcloud/pipecatcloud.toml)")
	rootCmd.PersistentFlags().StringVarP(&orgFlag, "organization", "o", "", "Organization to act on (defaults to the org setting)")

	rootCmd.AddCommand(newDeployCommand(ctx))
	rootCmd.AddCommand(newAgentCommand(ctx))
	rootCmd.AddCommand(newSecretsCommand(ctx))
	rootCmd.AddCommand(newOrganizationsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
