package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pcc/internal/api"
)

func newAgentCommand(ctx *commandContext) *cobra.Command {
	agentCmd := &cobra.Command{
		Use:   "agent",
		Short: "Inspect and manage deployed agents",
	}
	agentCmd.AddCommand(newAgentListCommand(ctx))
	agentCmd.AddCommand(newAgentStatusCommand(ctx))
	agentCmd.AddCommand(newAgentDeleteCommand(ctx))
	agentCmd.AddCommand(newAgentLogsCommand(ctx))
	agentCmd.AddCommand(newAgentDeploymentsCommand(ctx))
	agentCmd.AddCommand(newAgentSessionsCommand(ctx))
	agentCmd.AddCommand(newAgentStartCommand(ctx))
	return agentCmd
}

func newAgentListCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agents in the organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output, outputText, outputJSON, outputYAML)
			if err != nil {
				return err
			}
			runCtx, org, client, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}
			agents, err := client.Agents(runCtx, org)
			if err != nil {
				return presented(err)
			}
			switch format {
			case outputJSON:
				return writeJSON(cmd, agents)
			case outputYAML:
				return writeYAML(cmd, agents)
			}
			if len(agents) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No agents found in %s\n", org)
				return nil
			}
			rows := make([][]string, 0, len(agents))
			for _, agent := range agents {
				rows = append(rows, []string{agent.Name, agent.ID, agent.ActiveDeploymentID, agent.CreatedAt, agent.UpdatedAt})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Name", "Agent ID", "Active Deployment", "Created", "Updated"},
				rows,
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", outputText, "Output format (text, json, yaml)")
	return cmd
}

func newAgentStatusCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status AGENT",
		Short: "Show the deployment status of an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output, outputText, outputJSON, outputYAML)
			if err != nil {
				return err
			}
			runCtx, org, client, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])
			status, err := client.Agent(runCtx, org, name)
			if err != nil {
				return presented(err)
			}
			if status == nil {
				return fmt.Errorf("agent %q not found in %s: %w", name, org, api.ErrNotFound)
			}
			switch format {
			case outputJSON:
				return writeJSON(cmd, status)
			case outputYAML:
				return writeYAML(cmd, status)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues("Agent "+name, statusRows(status)))
			colorize := shouldColorize(cmd.OutOrStdout())
			for _, problem := range status.Errors {
				fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine("Error", statusError, problem.Error(), colorize))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", outputText, "Output format (text, json, yaml)")
	return cmd
}

func statusRows(status *api.DeploymentStatus) []keyValue {
	rows := []keyValue{
		{key: "Active deployment", value: valueOrNone(status.ActiveDeploymentID)},
		{key: "Deployment ready", value: yesNo(status.ActiveDeploymentReady)},
		{key: "Accepting sessions", value: yesNo(status.Ready)},
		{key: "Image", value: valueOrNone(status.Image)},
		{key: "Region", value: valueOrNone(status.Region)},
		{key: "Active sessions", value: strconv.Itoa(status.ActiveSessionCount)},
	}
	if scaling := status.AutoScaling; scaling != nil {
		rows = append(rows,
			keyValue{key: "Min instances", value: intOrNone(scaling.MinReplicas)},
			keyValue{key: "Max instances", value: intOrNone(scaling.MaxReplicas)},
		)
	}
	rows = append(rows,
		keyValue{key: "Created", value: valueOrNone(status.CreatedAt)},
		keyValue{key: "Updated", value: valueOrNone(status.UpdatedAt)},
	)
	return rows
}

func newAgentDeleteCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete AGENT",
		Short: "Delete an agent and its deployments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, org, client, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])
			if !force {
				fmt.Fprintf(cmd.ErrOrStderr(), "Delete agent %q from %s? [y/N]: ", name, org)
				ok, err := readYesNo(runCtx, cmd.InOrStdin(), false)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Delete cancelled")
					return nil
				}
			}
			if err := client.DeleteService(runCtx, org, name); err != nil {
				return presented(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted agent %s\n", name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete without asking")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}

func valueOrNone(value string) string {
	if value == "" {
		return "None"
	}
	return value
}

func intOrNone(value *int) string {
	if value == nil {
		return "None"
	}
	return strconv.Itoa(*value)
}
