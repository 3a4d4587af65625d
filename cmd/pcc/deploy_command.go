package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pcc/internal/api"
	"pcc/internal/config"
	"pcc/internal/deploy"
	"pcc/internal/deployconfig"
)

// deploySleeper waits between readiness checks.
var deploySleeper deploy.Sleeper = deploy.ContextSleeper

type deployFlags struct {
	minInstances      int
	maxInstances      int
	secretSet         string
	credentials       string
	region            string
	enableManagedKeys bool
	enableKrisp       bool
	audioFilter       string
	profile           string
	configFile        string
	force             bool
	output            string
}

func newDeployCommand(ctx *commandContext) *cobra.Command {
	var flags deployFlags

	cmd := &cobra.Command{
		Use:   "deploy [AGENT] [IMAGE]",
		Short: "Create or update an agent and wait until it is ready",
		Long: `Create or update an agent deployment.

Values are resolved from command-line flags first, then the deploy config
file (pcc-deploy.toml by default), then built-in defaults.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd, ctx, &flags, args)
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&flags.minInstances, "min-instances", 0, "Minimum number of warm instances")
	fs.IntVar(&flags.maxInstances, "max-instances", 0, "Maximum number of instances (1-50)")
	fs.StringVarP(&flags.secretSet, "secrets", "s", "", "Secret set to expose to the agent")
	fs.StringVarP(&flags.credentials, "credentials", "c", "", "Image pull secret set for private registries")
	fs.StringVar(&flags.region, "region", "", "Deployment region (us, eu, ap)")
	fs.BoolVar(&flags.enableManagedKeys, "enable-managed-keys", false, "Use Pipecat managed provider keys")
	fs.BoolVar(&flags.enableKrisp, "enable-krisp", false, "Enable Krisp noise cancellation")
	fs.StringVar(&flags.audioFilter, "krisp-viva-audio-filter", "", "Krisp VIVA audio filter (tel, pro)")
	fs.StringVar(&flags.profile, "profile", "", "Agent profile")
	fs.StringVar(&flags.configFile, "config-file", "", "Deploy config file (default pcc-deploy.toml)")
	fs.BoolVarP(&flags.force, "force", "f", false, "Update an existing agent without asking")
	fs.StringVar(&flags.output, "output", outputText, "Output format (text, json)")

	return cmd
}

func runDeploy(cmd *cobra.Command, ctx *commandContext, flags *deployFlags, args []string) error {
	format, err := parseOutputFormat(flags.output, outputText, outputJSON)
	if err != nil {
		return err
	}
	settings, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	cli := cliLayer(cmd, flags, args)
	fileLayer, err := loadDeployFile(cmd, flags, settings)
	if err != nil {
		return err
	}
	cfg, err := deployconfig.Resolve(cli, fileLayer, deployconfig.Defaults())
	if err != nil {
		return err
	}

	runCtx, org, client, err := ctx.commandScope(cmd)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	colorize := shouldColorize(stderr)
	if format == outputText {
		fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues("Review deployment", reviewRows(org, cfg)))
		if cfg.MinInstances() == 0 {
			fmt.Fprintln(stderr, renderStatusLine("Scaling", statusWarn, "min instances is 0; the first session may see a cold start", colorize))
		}
	}

	presenter := newConsolePresenter(stderr)
	opts := []deploy.Option{
		deploy.WithMaxChecks(settings.Deploy.MaxAliveChecks),
		deploy.WithInterval(settings.AliveCheckInterval()),
		deploy.WithSleeper(deploySleeper),
		deploy.WithPresenter(presenter),
		deploy.WithLogger(ctx.logger(cmd)),
	}
	if format == outputText {
		opts = append(opts, deploy.WithObserver(progressObserver(stderr, colorize, settings.Deploy.MaxAliveChecks)))
	}
	if !flags.force && format == outputText {
		opts = append(opts, deploy.WithConfirmer(promptConfirmer(cmd)))
	}

	deployer := deploy.New(client, opts...)
	result, deployErr := deployer.Deploy(runCtx, org, cfg)

	if format == outputJSON {
		if err := writeJSON(cmd, newDeploySummary(org, cfg, result)); err != nil {
			return err
		}
	} else {
		printDeployOutcome(cmd, settings, org, cfg, result)
	}
	return deployExit(result, deployErr)
}

// cliLayer collects only the flags the operator actually set.
func cliLayer(cmd *cobra.Command, flags *deployFlags, args []string) *deployconfig.Partial {
	layer := &deployconfig.Partial{}
	if len(args) > 0 {
		layer.AgentName = deployconfig.String(args[0])
	}
	if len(args) > 1 {
		layer.Image = deployconfig.String(args[1])
	}
	fs := cmd.Flags()
	if fs.Changed("min-instances") {
		layer.Scaling.MinInstances = deployconfig.Int(flags.minInstances)
	}
	if fs.Changed("max-instances") {
		layer.Scaling.MaxInstances = deployconfig.Int(flags.maxInstances)
	}
	if fs.Changed("secrets") {
		layer.SecretSet = deployconfig.String(flags.secretSet)
	}
	if fs.Changed("credentials") {
		layer.ImageCredentials = deployconfig.String(flags.credentials)
	}
	if fs.Changed("region") {
		region := deployconfig.Region(flags.region)
		layer.Region = &region
	}
	if fs.Changed("enable-managed-keys") {
		layer.EnableManagedKeys = deployconfig.Bool(flags.enableManagedKeys)
	}
	if fs.Changed("enable-krisp") {
		layer.EnableKrisp = deployconfig.Bool(flags.enableKrisp)
	}
	if fs.Changed("krisp-viva-audio-filter") {
		layer.KrispViva = &deployconfig.KrispViva{
			AudioFilter: deployconfig.AudioFilter(flags.audioFilter),
		}
	}
	if fs.Changed("profile") {
		layer.AgentProfile = deployconfig.String(flags.profile)
	}
	return layer
}

// loadDeployFile reads the deploy config layer. An explicit --config-file
// must exist; the default location may be absent.
func loadDeployFile(cmd *cobra.Command, flags *deployFlags, settings *config.Config) (*deployconfig.Partial, error) {
	path := settings.DeployConfigPath
	if cmd.Flags().Changed("config-file") {
		explicit, err := config.ExpandPath(strings.TrimSpace(flags.configFile))
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(explicit); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, &deployconfig.ConfigError{Reason: "deploy config file " + explicit + " does not exist", Err: err}
			}
			return nil, fmt.Errorf("stat deploy config %q: %w", explicit, err)
		}
		path = explicit
	}
	return deployconfig.Load(path)
}

func reviewRows(org string, cfg deployconfig.DeployConfig) []keyValue {
	maxInstances := "None"
	if value, ok := cfg.MaxInstances(); ok {
		maxInstances = strconv.Itoa(value)
	}
	region := "None"
	if cfg.Region != nil {
		region = string(*cfg.Region)
	}
	audioFilter := "None"
	if cfg.KrispViva != nil {
		audioFilter = string(cfg.KrispViva.AudioFilter)
	}
	return []keyValue{
		{key: "Organization", value: org},
		{key: "Agent name", value: cfg.AgentName},
		{key: "Image", value: cfg.Image},
		{key: "Image pull secret", value: orNone(cfg.ImageCredentials)},
		{key: "Secret set", value: orNone(cfg.SecretSet)},
		{key: "Region", value: region},
		{key: "Min instances", value: strconv.Itoa(cfg.MinInstances())},
		{key: "Max instances", value: maxInstances},
		{key: "Managed keys", value: boolLabel(cfg.EnableManagedKeys)},
		{key: "Krisp", value: boolLabel(cfg.EnableKrisp)},
		{key: "Krisp VIVA filter", value: audioFilter},
		{key: "Agent profile", value: orNone(cfg.AgentProfile)},
	}
}

func boolLabel(value *bool) string {
	switch {
	case value == nil:
		return "None"
	case *value:
		return "Enabled"
	default:
		return "Disabled"
	}
}

func progressObserver(out io.Writer, colorize bool, maxChecks int) deploy.Observer {
	return func(event deploy.Event) {
		var line string
		switch event.State {
		case deploy.StateChecking:
			line = renderStatusLine("Agent", statusInfo, "checking for an existing deployment", colorize)
		case deploy.StatePreflight:
			line = renderStatusLine("Preflight", statusInfo, "verifying secrets and credentials", colorize)
		case deploy.StateSubmitting:
			action := "creating agent"
			if event.Existing {
				action = "updating existing agent"
			}
			line = renderStatusLine("Submit", statusInfo, action, colorize)
		case deploy.StatePolling:
			if event.Attempt == 0 {
				line = renderStatusLine("Deployment", statusInfo, "waiting for the deployment to become ready", colorize)
				break
			}
			if event.Status != nil && event.Status.ActiveDeploymentReady {
				return
			}
			line = renderStatusLine("Deployment", statusInfo, fmt.Sprintf("not ready yet (check %d/%d)", event.Attempt, maxChecks), colorize)
		default:
			if !event.State.Terminal() {
				return
			}
			line = renderStatusLine("Deployment", stateKind(event.State), stateLabel(event.State), colorize)
		}
		fmt.Fprintln(out, line)
	}
}

// promptConfirmer asks before updating an existing agent. The default answer
// is yes, which is also used when stdin is not a terminal.
func promptConfirmer(cmd *cobra.Command) deploy.Confirmer {
	return func(ctx context.Context, existing *api.DeploymentStatus) (bool, error) {
		in := cmd.InOrStdin()
		if file, ok := in.(*os.File); ok && !isInteractive(file) {
			return true, nil
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Agent %q already exists. Update it? [Y/n]: ", existing.Name)
		return readYesNo(ctx, in, true)
	}
}

type deploySummary struct {
	Org          string       `json:"org"`
	Agent        string       `json:"agent"`
	Image        string       `json:"image"`
	State        deploy.State `json:"state"`
	Existing     bool         `json:"existing"`
	DeploymentID string       `json:"deployment_id,omitempty"`
	Attempts     int          `json:"attempts"`
	Error        string       `json:"error,omitempty"`
}

func newDeploySummary(org string, cfg deployconfig.DeployConfig, result deploy.Result) deploySummary {
	summary := deploySummary{
		Org:          org,
		Agent:        cfg.AgentName,
		Image:        cfg.Image,
		State:        result.State,
		Existing:     result.Existing,
		DeploymentID: result.DeploymentID,
		Attempts:     result.Attempts,
	}
	if result.Err != nil {
		summary.Error = result.Err.Error()
	}
	return summary
}

func printDeployOutcome(cmd *cobra.Command, settings *config.Config, org string, cfg deployconfig.DeployConfig, result deploy.Result) {
	out := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()
	colorize := shouldColorize(stderr)

	switch result.State {
	case deploy.StateReady:
		fmt.Fprintf(out, "Agent %q is ready", cfg.AgentName)
		if result.DeploymentID != "" {
			fmt.Fprintf(out, " (deployment %s)", result.DeploymentID)
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Dashboard: %s/%s/agents/%s\n", settings.DashboardHost, org, cfg.AgentName)
		if key, _ := settings.PublicKeyFor(org); key == "" {
			fmt.Fprintln(stderr, renderStatusLine("Public key", statusWarn, "no default public key set; run `pcc organizations keys create NAME --default` before starting sessions", colorize))
		} else {
			fmt.Fprintf(out, "Start a session with `pcc agent start %s`\n", cfg.AgentName)
		}
	case deploy.StateCancelled:
		fmt.Fprintf(out, "Update of %q cancelled\n", cfg.AgentName)
	case deploy.StateTimedOut:
		fmt.Fprintf(stderr, "Agent %q did not become ready after %d checks. The deployment may still finish; check `pcc agent status %s`.\n", cfg.AgentName, result.Attempts, cfg.AgentName)
	case deploy.StateInterrupted:
		fmt.Fprintf(stderr, "Stopped monitoring %q. The deployment may still be in progress.\n", cfg.AgentName)
	}
}

func deployExit(result deploy.Result, err error) error {
	switch result.State {
	case deploy.StateReady, deploy.StateCancelled:
		return nil
	case deploy.StateTimedOut:
		return &exitError{code: exitTimedOut, silent: true}
	case deploy.StateInterrupted:
		return &exitError{code: exitInterrupted, silent: true, err: result.Err}
	}
	if err == nil {
		err = result.Err
	}
	return presented(err)
}
