package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pcc/internal/api"
)

const defaultLogLimit = 100

// logSeverities is ordered; the first one found in a line names its severity.
var logSeverities = []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

func logSeverity(line string) string {
	upper := strings.ToUpper(line)
	for _, severity := range logSeverities {
		if strings.Contains(upper, severity) {
			return severity
		}
	}
	return "INFO"
}

func severityColor(severity string) string {
	switch severity {
	case "DEBUG":
		return ansiBlue
	case "WARNING":
		return ansiYellow
	case "ERROR", "CRITICAL":
		return ansiRed
	default:
		return ansiGreen
	}
}

func formatLogTimestamp(value string) string {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return value
	}
	return ts.Local().Format(time.DateTime)
}

func newAgentLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		output string
		level  string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "logs AGENT",
		Short: "Show recent log lines of an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output, outputText, outputJSON)
			if err != nil {
				return err
			}
			level = strings.ToUpper(strings.TrimSpace(level))
			if level != "" && !slices.Contains(logSeverities, level) {
				return fmt.Errorf("unsupported log level %q (use %s)", level, strings.Join(logSeverities, ", "))
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			runCtx, org, client, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])
			entries, err := client.AgentLogs(runCtx, org, name, limit)
			if err != nil {
				return presented(err)
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No logs found for agent %s\n", name)
				return nil
			}

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			colorize := shouldColorize(out)
			for _, entry := range entries {
				if entry.Log == "" {
					continue
				}
				severity := logSeverity(entry.Log)
				if level != "" && severity != level {
					continue
				}
				if format == outputJSON {
					if err := enc.Encode(entry); err != nil {
						return err
					}
					continue
				}
				stamp := formatLogTimestamp(entry.Timestamp)
				if colorize {
					fmt.Fprintf(out, "%s%s%s %s%s%s\n", ansiDim, stamp, ansiReset, severityColor(severity), entry.Log, ansiReset)
				} else {
					fmt.Fprintf(out, "%s %s\n", stamp, entry.Log)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", outputText, "Output format (text, json)")
	cmd.Flags().StringVarP(&level, "level", "l", "", "Only show lines of this severity (DEBUG, INFO, WARNING, ERROR, CRITICAL)")
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultLogLimit, "Number of log lines to fetch")
	return cmd
}

func newAgentDeploymentsCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "deployments AGENT",
		Short: "List the deployments of an agent",
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
			deployments, err := client.AgentDeployments(runCtx, org, name)
			if err != nil {
				return presented(err)
			}
			switch format {
			case outputJSON:
				return writeJSON(cmd, deployments)
			case outputYAML:
				return writeYAML(cmd, deployments)
			}
			if len(deployments) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No deployments found for agent %s\n", name)
				return nil
			}
			rows := make([][]string, 0, len(deployments))
			for _, d := range deployments {
				rows = append(rows, []string{d.ID, valueOrNone(d.NodeType), valueOrNone(d.Image), d.CreatedAt, d.UpdatedAt})
			}
			view := newTableView("ID", "Node Type", "Image", "Created", "Updated").withWidth("Image", 48)
			view.title = "Deployments of " + name
			fmt.Fprintln(cmd.OutOrStdout(), view.render(rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", outputText, "Output format (text, json, yaml)")
	return cmd
}

type sessionSummary struct {
	Agent              string `json:"agent"`
	Org                string `json:"org"`
	ActiveSessionCount int    `json:"activeSessionCount"`
}

func newAgentSessionsCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "sessions AGENT",
		Short: "Show how many sessions of an agent are running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output, outputText, outputJSON)
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
			summary := sessionSummary{Agent: name, Org: org, ActiveSessionCount: status.ActiveSessionCount}
			if format == outputJSON {
				return writeJSON(cmd, summary)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active sessions for %s (%s): %d\n", name, org, summary.ActiveSessionCount)
			if summary.ActiveSessionCount == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Start one with `pcc agent start %s`\n", name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", outputText, "Output format (text, json)")
	return cmd
}

type startFlags struct {
	apiKey   string
	data     string
	useDaily bool
	force    bool
}

func newAgentStartCommand(ctx *commandContext) *cobra.Command {
	var flags startFlags
	cmd := &cobra.Command{
		Use:   "start AGENT",
		Short: "Start a session of a deployed agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, org, client, err := ctx.commandScope(cmd)
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])

			key, keyName := strings.TrimSpace(flags.apiKey), "from --api-key"
			if key == "" {
				key, keyName = ctx.config.PublicKeyFor(org)
			}
			if key == "" {
				return fmt.Errorf("%w for %s; pass --api-key or run `pcc organizations keys use KEY` (%s)", api.ErrNoPublicKey, org, createKeyHint)
			}

			var body json.RawMessage
			if data := strings.TrimSpace(flags.data); data != "" {
				if !json.Valid([]byte(data)) {
					return errors.New("--data must be valid JSON")
				}
				body = json.RawMessage(data)
			}

			if !flags.force {
				fmt.Fprintln(cmd.ErrOrStderr(), renderKeyValues("Start agent "+name, []keyValue{
					{key: "Organization", value: org},
					{key: "Public key", value: strings.TrimSpace(keyName + " " + key)},
					{key: "Daily room", value: strconv.FormatBool(flags.useDaily)},
					{key: "Data", value: valueOrNone(string(body))},
				}))
				fmt.Fprint(cmd.ErrOrStderr(), "Start a session of this agent? [y/N]: ")
				ok, err := readYesNo(runCtx, cmd.InOrStdin(), false)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Start cancelled")
					return nil
				}
			}

			status, err := client.Agent(runCtx, org, name)
			if err != nil {
				return presented(err)
			}
			if status == nil {
				return fmt.Errorf("agent %q not found in %s: %w", name, org, api.ErrNotFound)
			}
			if !status.Ready {
				return fmt.Errorf("agent %q is not ready to accept sessions; check `pcc agent status %s`", name, name)
			}

			result, err := client.StartAgent(runCtx, name, key, api.StartRequest{
				CreateDailyRoom: flags.useDaily,
				Body:            body,
			})
			if err != nil {
				return presented(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started a session of agent %s\n", name)
			if link := result.JoinURL(); flags.useDaily && link != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Join the session at %s\n", link)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&flags.apiKey, "api-key", "k", "", "Public API key to start the session with")
	cmd.Flags().StringVarP(&flags.data, "data", "d", "", "JSON passed to the agent")
	cmd.Flags().BoolVarP(&flags.useDaily, "use-daily", "D", false, "Create a Daily WebRTC room for the session")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Start without asking")
	return cmd
}
