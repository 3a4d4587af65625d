package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pcc/internal/api"
	"pcc/internal/config"
)

const createKeyHint = "create one with `pcc organizations keys create NAME`"

func newKeysCommand(ctx *commandContext) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the public API keys used to start sessions",
	}
	keysCmd.AddCommand(newKeysListCommand(ctx))
	keysCmd.AddCommand(newKeysCreateCommand(ctx))
	keysCmd.AddCommand(newKeysDeleteCommand(ctx))
	keysCmd.AddCommand(newKeysUseCommand(ctx))
	return keysCmd
}

func newKeysListCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List public API keys of the organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output, outputText, outputJSON)
			if err != nil {
				return err
			}
			runCtx, org, client, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}
			keys, err := client.APIKeys(runCtx, org)
			if err != nil {
				return presented(err)
			}
			if format == outputJSON {
				return writeJSON(cmd, keys)
			}
			if len(keys) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No API keys found in %s; %s\n", org, createKeyHint)
				return nil
			}
			current, _ := ctx.config.PublicKeyFor(org)
			rows := make([][]string, 0, len(keys))
			for _, key := range keys {
				marker := ""
				if key.Key != "" && key.Key == current {
					marker = "*"
				}
				status := "Active"
				if key.Revoked {
					status = "Revoked"
				}
				rows = append(rows, []string{marker, key.Name, key.Key, key.CreatedAt, status})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"", "Name", "Key", "Created", "Status"}, rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", outputText, "Output format (text, json)")
	return cmd
}

func newKeysCreateCommand(ctx *commandContext) *cobra.Command {
	var makeDefault bool
	cmd := &cobra.Command{
		Use:   "create [NAME]",
		Short: "Create a public API key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, org, client, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 1 {
				name = strings.TrimSpace(args[0])
			} else {
				fmt.Fprint(cmd.ErrOrStderr(), "Name for the new API key: ")
				if name, err = readLine(runCtx, cmd.InOrStdin()); err != nil {
					return err
				}
			}
			if name == "" {
				return errors.New("an API key name is required")
			}

			key, err := client.CreateAPIKey(runCtx, org, name)
			if err != nil {
				return presented(err)
			}
			if key.Key == "" {
				return errors.New("the server did not return the new key")
			}

			if !makeDefault && cmd.Flags().Changed("default") {
				fmt.Fprintln(cmd.ErrOrStderr(), "Keeping the current default key")
			} else if !makeDefault {
				fmt.Fprint(cmd.ErrOrStderr(), "Make this key the default for starting sessions? [y/N]: ")
				if makeDefault, err = readYesNo(runCtx, cmd.InOrStdin(), false); err != nil {
					return err
				}
			}
			if makeDefault {
				if err := ctx.setDefaultKey(org, *key); err != nil {
					return err
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Name", "Key", "Organization", "Default"},
				[][]string{{key.Name, key.Key, org, yesNo(makeDefault)}},
			))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&makeDefault, "default", "d", false, "Use the new key as the default for this organization")
	return cmd
}

func newKeysDeleteCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete KEY",
		Short: "Delete a public API key by name or ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, org, client, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}
			key, err := findAPIKey(runCtx, client, org, args[0])
			if err != nil {
				return err
			}
			if !force {
				fmt.Fprintf(cmd.ErrOrStderr(), "Delete API key %q (%s) from %s? [y/N]: ", key.Name, key.ID, org)
				ok, err := readYesNo(runCtx, cmd.InOrStdin(), false)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Delete cancelled")
					return nil
				}
			}
			if err := client.DeleteAPIKey(runCtx, org, key.ID); err != nil {
				return presented(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted API key %s\n", key.Name)

			if current, _ := ctx.config.PublicKeyFor(org); current != "" && current == key.Key {
				keyField, nameField := ctx.config.PublicKeySettings(org)
				if err := config.SetValues(ctx.configPath, map[string]any{keyField: nil, nameField: nil}); err != nil {
					return fmt.Errorf("save settings: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cleared the default public key; "+createKeyHint)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete without asking")
	return cmd
}

func newKeysUseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "use KEY",
		Short: "Make a public API key the default for starting sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, org, client, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}
			key, err := findAPIKey(runCtx, client, org, args[0])
			if err != nil {
				return err
			}
			if key.Revoked {
				return fmt.Errorf("API key %q is revoked", key.Name)
			}
			if err := ctx.setDefaultKey(org, key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default public key for %s set to %s\n", org, key.Name)
			return nil
		},
	}
}

// findAPIKey matches ref against key IDs first, then names.
func findAPIKey(ctx context.Context, client *api.Client, org, ref string) (api.APIKey, error) {
	ref = strings.TrimSpace(ref)
	keys, err := client.APIKeys(ctx, org)
	if err != nil {
		return api.APIKey{}, presented(err)
	}
	for _, key := range keys {
		if key.ID == ref {
			return key, nil
		}
	}
	var matches []api.APIKey
	for _, key := range keys {
		if key.Name == ref {
			matches = append(matches, key)
		}
	}
	switch len(matches) {
	case 0:
		if len(keys) == 0 {
			return api.APIKey{}, fmt.Errorf("no API keys in %s; %s: %w", org, createKeyHint, api.ErrNotFound)
		}
		return api.APIKey{}, fmt.Errorf("API key %q not found in %s: %w", ref, org, api.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return api.APIKey{}, fmt.Errorf("%d API keys are named %q; pass the key ID instead", len(matches), ref)
	}
}

func (c *commandContext) setDefaultKey(org string, key api.APIKey) error {
	keyField, nameField := c.config.PublicKeySettings(org)
	if err := config.SetValues(c.configPath, map[string]any{keyField: key.Key, nameField: key.Name}); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
