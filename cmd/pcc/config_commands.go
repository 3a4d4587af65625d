package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"pcc/internal/config"
	"pcc/internal/deployconfig"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Settings utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample settings file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default settings path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve settings path: %w", err)
				}
				target = expanded
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("settings file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check settings path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample settings: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample settings to %s\n", target)
			fmt.Fprintln(out, "Set token (or export PIPECAT_TOKEN) and org before deploying.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the settings file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing settings if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	var deployFile string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the settings file and the deploy config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Settings path: %s\n", ctx.configPath)
			if _, err := os.Stat(ctx.configPath); os.IsNotExist(err) {
				fmt.Fprintln(out, "Settings file did not exist; defaults were used")
			}

			path := cfg.DeployConfigPath
			if trimmed := strings.TrimSpace(deployFile); trimmed != "" {
				path = trimmed
			}
			raw, err := deployconfig.LoadFile(path)
			if err != nil {
				return err
			}
			if raw == nil {
				fmt.Fprintf(out, "Deploy config %s not found; skipped\n", path)
			} else {
				if _, err := deployconfig.FromMap(raw); err != nil {
					return err
				}
				fmt.Fprintf(out, "Deploy config: %s\n", path)
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
	cmd.Flags().StringVar(&deployFile, "config-file", "", "Deploy config file to check (default from settings)")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			encoded, err := toml.Marshal(redacted(*cfg))
			if err != nil {
				return fmt.Errorf("encode settings: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(encoded)
			return err
		},
	}
}

func redacted(cfg config.Config) config.Config {
	cfg.Token = redactSecret(cfg.Token)
	if len(cfg.Orgs) > 0 {
		orgs := make(map[string]config.OrgProfile, len(cfg.Orgs))
		for name, profile := range cfg.Orgs {
			profile.Token = redactSecret(profile.Token)
			orgs[name] = profile
		}
		cfg.Orgs = orgs
	}
	return cfg
}

func redactSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "****"
}
