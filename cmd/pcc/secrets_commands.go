package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pcc/internal/api"
	"pcc/internal/config"
)

func newSecretsCommand(ctx *commandContext) *cobra.Command {
	secretsCmd := &cobra.Command{
		Use:     "secrets",
		Aliases: []string{"secret"},
		Short:   "Manage secret sets and image pull secrets",
	}
	secretsCmd.AddCommand(newSecretsListCommand(ctx))
	secretsCmd.AddCommand(newSecretsSetCommand(ctx))
	secretsCmd.AddCommand(newSecretsUnsetCommand(ctx))
	secretsCmd.AddCommand(newSecretsDeleteCommand(ctx))
	secretsCmd.AddCommand(newImagePullSecretCommand(ctx))
	return secretsCmd
}

func newSecretsListCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list [SET]",
		Short: "List secret sets, or the keys of one set",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output, outputText, outputJSON)
			if err != nil {
				return err
			}
			runCtx, org, client, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				set := strings.TrimSpace(args[0])
				secrets, err := client.Secrets(runCtx, org, set)
				if err != nil {
					return presented(err)
				}
				if format == outputJSON {
					return writeJSON(cmd, secrets)
				}
				if len(secrets) == 0 {
					return fmt.Errorf("secret set %q not found in %s: %w", set, org, api.ErrNotFound)
				}
				rows := make([][]string, 0, len(secrets))
				for _, secret := range secrets {
					rows = append(rows, []string{secret.FieldName})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key"}, rows))
				return nil
			}

			sets, err := client.SecretSets(runCtx, org)
			if err != nil {
				return presented(err)
			}
			if format == outputJSON {
				return writeJSON(cmd, sets)
			}
			if len(sets) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No secret sets found in %s\n", org)
				return nil
			}
			rows := make([][]string, 0, len(sets))
			for _, set := range sets {
				kind := "Secrets"
				if set.Type == api.SecretSetTypeImagePull {
					kind = "Image pull secret"
				}
				rows = append(rows, []string{set.Name, kind})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Name", "Type"}, rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", outputText, "Output format (text, json)")
	return cmd
}

func newSecretsSetCommand(ctx *commandContext) *cobra.Command {
	var envFile string
	var region string
	cmd := &cobra.Command{
		Use:   "set SET [KEY=VALUE...]",
		Short: "Create or update keys in a secret set",
		Long: `Create or update keys in a secret set.

Pairs come from the arguments, from a dotenv file passed with --file, or
both. Arguments win over file entries with the same key.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set := strings.TrimSpace(args[0])
			if err := api.ValidateSecretSetName(set); err != nil {
				return err
			}
			values, err := collectSecretPairs(envFile, args[1:])
			if err != nil {
				return err
			}
			runCtx, org, client, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(values))
			for key := range values {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				if err := client.UpsertSecret(runCtx, org, set, key, values[key], strings.TrimSpace(region)); err != nil {
					return presented(err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d secret(s) to %s\n", len(keys), set)
			return nil
		},
	}
	cmd.Flags().StringVarP(&envFile, "file", "f", "", "Read KEY=VALUE pairs from a dotenv file")
	cmd.Flags().StringVar(&region, "region", "", "Region to store the secret set in")
	return cmd
}

// collectSecretPairs merges dotenv file entries with KEY=VALUE arguments and
// validates every key.
func collectSecretPairs(envFile string, pairs []string) (map[string]string, error) {
	values := make(map[string]string)
	if path := strings.TrimSpace(envFile); path != "" {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return nil, err
		}
		fromFile, err := godotenv.Read(expanded)
		if err != nil {
			return nil, fmt.Errorf("read secrets file %q: %w", expanded, err)
		}
		for key, value := range fromFile {
			values[key] = value
		}
	}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid secret %q: expected KEY=VALUE", pair)
		}
		values[strings.TrimSpace(key)] = value
	}
	if len(values) == 0 {
		return nil, errors.New("no secrets given; pass KEY=VALUE pairs or --file")
	}
	for key, value := range values {
		if err := api.ValidateSecretKey(key); err != nil {
			return nil, err
		}
		if value == "" {
			return nil, fmt.Errorf("secret %q has an empty value", key)
		}
	}
	return values, nil
}

func newSecretsUnsetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unset SET KEY",
		Short: "Remove a key from a secret set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, org, client, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}
			set, key := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
			if err := client.DeleteSecret(runCtx, org, set, key); err != nil {
				return presented(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from %s\n", key, set)
			return nil
		},
	}
}

func newSecretsDeleteCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete SET",
		Short: "Delete a secret set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, org, client, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}
			set := strings.TrimSpace(args[0])
			if !force {
				fmt.Fprintf(cmd.ErrOrStderr(), "Delete secret set %q from %s? [y/N]: ", set, org)
				ok, err := readYesNo(runCtx, cmd.InOrStdin(), false)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Delete cancelled")
					return nil
				}
			}
			if err := client.DeleteSecretSet(runCtx, org, set); err != nil {
				return presented(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted secret set %s\n", set)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete without asking")
	return cmd
}

func newImagePullSecretCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "image-pull-secret SET HOST USERNAME:PASSWORD",
		Short: "Store registry credentials for private images",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			set := strings.TrimSpace(args[0])
			if err := api.ValidateSecretSetName(set); err != nil {
				return err
			}
			host := strings.TrimSpace(args[1])
			if host == "" {
				return errors.New("registry host is required")
			}
			user, password, ok := strings.Cut(args[2], ":")
			if !ok || user == "" || password == "" {
				return errors.New("credentials must be USERNAME:PASSWORD")
			}
			runCtx, org, client, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}
			if err := client.UpsertImagePullSecret(runCtx, org, set, host, args[2]); err != nil {
				return presented(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved image pull secret %s for %s\n", set, host)
			return nil
		},
	}
}
