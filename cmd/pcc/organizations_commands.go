package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pcc/internal/config"
)

func newOrganizationsCommand(ctx *commandContext) *cobra.Command {
	orgCmd := &cobra.Command{
		Use:     "organizations",
		Aliases: []string{"orgs"},
		Short:   "List and select organizations",
	}
	orgCmd.AddCommand(newOrganizationsListCommand(ctx))
	orgCmd.AddCommand(newOrganizationsUseCommand(ctx))
	orgCmd.AddCommand(newKeysCommand(ctx))
	return orgCmd
}

func newOrganizationsListCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List organizations available to the current token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output, outputText, outputJSON)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.apiClient(cmd)
			if err != nil {
				return err
			}
			orgs, err := client.Organizations(cmd.Context())
			if err != nil {
				return presented(err)
			}
			if format == outputJSON {
				return writeJSON(cmd, orgs)
			}
			if len(orgs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No organizations found")
				return nil
			}
			rows := make([][]string, 0, len(orgs))
			for _, org := range orgs {
				active := ""
				if org.Name == cfg.Org {
					active = "*"
				}
				rows = append(rows, []string{active, org.Name, org.VerboseName})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"", "Name", "Display Name"}, rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", outputText, "Output format (text, json)")
	return cmd
}

func newOrganizationsUseCommand(ctx *commandContext) *cobra.Command {
	var skipCheck bool
	cmd := &cobra.Command{
		Use:   "use NAME",
		Short: "Make an organization the default for later commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return errors.New("organization name is required")
			}
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			if !skipCheck {
				client, err := ctx.apiClient(cmd)
				if err != nil {
					return err
				}
				orgs, err := client.Organizations(cmd.Context())
				if err != nil {
					return presented(err)
				}
				found := false
				for _, org := range orgs {
					if org.Name == name {
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("organization %q is not available to this token", name)
				}
			}
			if err := config.SetValues(ctx.configPath, map[string]any{"org": name}); err != nil {
				return fmt.Errorf("save settings: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default organization set to %s\n", name)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipCheck, "no-verify", false, "Save the name without checking it against the API")
	return cmd
}
