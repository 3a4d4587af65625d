package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pcc/internal/api"
	"pcc/internal/deployconfig"
	"pcc/internal/logging"
)

const (
	// DefaultMaxChecks is how many readiness lookups a deploy makes before
	// it gives up as timed out.
	DefaultMaxChecks = 18
	// DefaultInterval is the pause between readiness lookups. Together with
	// DefaultMaxChecks it bounds the wait at about 90 seconds.
	DefaultInterval = 5 * time.Second

	// toleratedCredentialCode is returned by the secrets endpoint for image
	// pull secret sets, whose contents cannot be listed. The set exists.
	toleratedCredentialCode = "400"
)

var (
	ErrSecretSetNotFound        = errors.New("secret set not found")
	ErrImageCredentialsNotFound = errors.New("image pull secret not found")
	ErrEmptyCreateResponse      = errors.New("create returned no result")
	ErrDeploymentFailed         = errors.New("deployment reported an error")
)

// API is the subset of the control plane a deployment needs.
type API interface {
	Agent(ctx context.Context, org, name string, opts ...api.CallOption) (*api.DeploymentStatus, error)
	SecretSetExists(ctx context.Context, org, set string, opts ...api.CallOption) (bool, error)
	CreateService(ctx context.Context, org string, payload api.ServicePayload, opts ...api.CallOption) (api.Submission, error)
	UpdateService(ctx context.Context, org string, payload api.ServicePayload, opts ...api.CallOption) (api.Submission, error)
}

// Sleeper waits for d or until ctx is done, returning ctx.Err() in the
// latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

// Confirmer decides whether an existing agent may be updated.
type Confirmer func(ctx context.Context, existing *api.DeploymentStatus) (bool, error)

// Event reports progress to an Observer.
type Event struct {
	State        State
	Existing     bool
	Attempt      int
	DeploymentID string
	Status       *api.DeploymentStatus
}

// Observer receives progress events. It is called synchronously.
type Observer func(Event)

// Result is the outcome of a run.
type Result struct {
	State        State  `json:"state"`
	Existing     bool   `json:"existing"`
	DeploymentID string `json:"deployment_id,omitempty"`
	Attempts     int    `json:"attempts"`
	Err          error  `json:"-"`
}

// Deployer runs deployments against an API.
type Deployer struct {
	api       API
	maxChecks int
	interval  time.Duration
	sleep     Sleeper
	logger    *slog.Logger
	observer  Observer
	presenter api.Presenter
	confirm   Confirmer
}

// Option customizes a Deployer.
type Option func(*Deployer)

// WithMaxChecks bounds the number of readiness lookups.
func WithMaxChecks(n int) Option {
	return func(d *Deployer) {
		if n > 0 {
			d.maxChecks = n
		}
	}
}

// WithInterval sets the delay between readiness lookups.
func WithInterval(interval time.Duration) Option {
	return func(d *Deployer) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

// WithSleeper overrides how the delay between lookups is spent (useful for tests).
func WithSleeper(sleep Sleeper) Option {
	return func(d *Deployer) {
		if sleep != nil {
			d.sleep = sleep
		}
	}
}

// WithLogger sets the logger for submission and polling progress. A nil
// logger keeps the default, which discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Deployer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithObserver receives every state transition and readiness lookup, in
// order, on the deploying goroutine.
func WithObserver(observer Observer) Option {
	return func(d *Deployer) { d.observer = observer }
}

// WithPresenter sets where image credential lookup failures are shown.
func WithPresenter(p api.Presenter) Option {
	return func(d *Deployer) { d.presenter = p }
}

// WithConfirmer asks before updating an existing agent. Without one,
// existing agents are updated unconditionally.
func WithConfirmer(confirm Confirmer) Option {
	return func(d *Deployer) { d.confirm = confirm }
}

// New constructs a Deployer.
func New(client API, opts ...Option) *Deployer {
	d := &Deployer{
		api:       client,
		maxChecks: DefaultMaxChecks,
		interval:  DefaultInterval,
		sleep:     ContextSleeper,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.NewComponentLogger(d.logger, "deploy")
	return d
}

// ContextSleeper waits on a timer unless ctx finishes first.
func ContextSleeper(ctx context.Context, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// run carries the mutable state of one Deploy call.
type run struct {
	d      *Deployer
	org    string
	cfg    deployconfig.DeployConfig
	logger *slog.Logger
	res    Result
}

// Deploy creates or updates cfg.AgentName in org and waits for it to become
// ready. The returned error is non-nil exactly when the result state is
// StateFailed.
func (d *Deployer) Deploy(ctx context.Context, org string, cfg deployconfig.DeployConfig) (Result, error) {
	r := &run{
		d:   d,
		org: org,
		cfg: cfg,
		logger: logging.WithContext(ctx, d.logger).With(
			slog.String(logging.FieldAgent, cfg.AgentName),
			slog.String(logging.FieldOrg, org),
		),
	}
	return r.execute(ctx)
}

func (r *run) execute(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return r.interrupted(err)
	}

	r.transition(StateChecking)
	existing, err := r.d.api.Agent(ctx, r.org, r.cfg.AgentName)
	if err != nil {
		return r.failOrInterrupt(ctx, fmt.Errorf("look up agent %q: %w", r.cfg.AgentName, err))
	}
	r.res.Existing = existing != nil
	if existing != nil && r.d.confirm != nil {
		ok, err := r.d.confirm(ctx, existing)
		if err != nil {
			return r.failOrInterrupt(ctx, fmt.Errorf("confirm update: %w", err))
		}
		if !ok {
			r.transition(StateCancelled)
			return r.res, nil
		}
	}

	r.transition(StatePreflight)
	if err := r.preflight(ctx); err != nil {
		return r.failOrInterrupt(ctx, err)
	}

	if err := ctx.Err(); err != nil {
		return r.interrupted(err)
	}
	r.transition(StateSubmitting)
	if err := r.submit(ctx); err != nil {
		return r.failOrInterrupt(ctx, err)
	}

	r.transition(StatePolling)
	return r.poll(ctx)
}

func (r *run) preflight(ctx context.Context) error {
	if set := r.cfg.SecretSet; set != nil {
		exists, err := r.d.api.SecretSetExists(ctx, r.org, *set)
		if err != nil {
			return fmt.Errorf("verify secret set %q: %w", *set, err)
		}
		if !exists {
			return fmt.Errorf("%w: %q in organization %q", ErrSecretSetNotFound, *set, r.org)
		}
	}

	if creds := r.cfg.ImageCredentials; creds != nil {
		exists, err := r.d.api.SecretSetExists(ctx, r.org, *creds, api.Bubble())
		if err != nil {
			if !api.HasCode(err, toleratedCredentialCode) {
				var apiErr *api.Error
				if errors.As(err, &apiErr) && r.d.presenter != nil {
					r.d.presenter.PresentError(apiErr)
				}
				return fmt.Errorf("verify image pull secret %q: %w", *creds, err)
			}
			exists = true
		}
		if !exists {
			return fmt.Errorf("%w: %q in organization %q", ErrImageCredentialsNotFound, *creds, r.org)
		}
	}
	return nil
}

func (r *run) submit(ctx context.Context) error {
	payload := api.NewServicePayload(r.cfg)
	if r.res.Existing {
		if _, err := r.d.api.UpdateService(ctx, r.org, payload); err != nil {
			return fmt.Errorf("update agent %q: %w", r.cfg.AgentName, err)
		}
		return nil
	}
	submission, err := r.d.api.CreateService(ctx, r.org, payload)
	if err != nil {
		return fmt.Errorf("create agent %q: %w", r.cfg.AgentName, err)
	}
	if len(submission) == 0 {
		return ErrEmptyCreateResponse
	}
	return nil
}

func (r *run) poll(ctx context.Context) (Result, error) {
	for attempt := 1; attempt <= r.d.maxChecks; attempt++ {
		if err := ctx.Err(); err != nil {
			return r.interrupted(err)
		}
		r.res.Attempts = attempt

		status, err := r.d.api.Agent(ctx, r.org, r.cfg.AgentName)
		if err != nil {
			return r.failOrInterrupt(ctx, fmt.Errorf("check deployment status: %w", err))
		}
		if status != nil {
			if len(status.Errors) > 0 {
				return r.fail(fmt.Errorf("%w: %w", ErrDeploymentFailed, status.Errors[0]))
			}
			if id := status.ActiveDeploymentID; id != "" && id != r.res.DeploymentID {
				r.res.DeploymentID = id
				r.logger.Info("deployment started", slog.String("deployment_id", id))
			}
			if status.ActiveDeploymentReady {
				r.emit(Event{State: StatePolling, Attempt: attempt, Status: status})
				r.transition(StateReady)
				return r.res, nil
			}
		}
		r.emit(Event{State: StatePolling, Attempt: attempt, Status: status})

		if attempt == r.d.maxChecks {
			break
		}
		if err := ctx.Err(); err != nil {
			return r.interrupted(err)
		}
		if err := r.d.sleep(ctx, r.d.interval); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			return r.interrupted(err)
		}
	}

	r.transition(StateTimedOut)
	return r.res, nil
}

func (r *run) transition(state State) {
	r.res.State = state
	attrs := []slog.Attr{slog.String(logging.FieldState, state.String())}
	if state == StateTimedOut {
		attrs = append(attrs, slog.Int("attempts", r.res.Attempts))
	}
	r.logger.Debug("deploy state", logging.Args(attrs...)...)
	r.emit(Event{State: state})
}

func (r *run) emit(event Event) {
	if r.d.observer == nil {
		return
	}
	event.Existing = r.res.Existing
	event.DeploymentID = r.res.DeploymentID
	if event.Attempt == 0 {
		event.Attempt = r.res.Attempts
	}
	r.d.observer(event)
}

func (r *run) fail(err error) (Result, error) {
	r.res.Err = err
	r.logger.Warn("deployment failed", logging.Error(err))
	r.transition(StateFailed)
	return r.res, err
}

func (r *run) interrupted(cause error) (Result, error) {
	r.res.Err = cause
	r.logger.Info("deployment monitoring interrupted; the deployment may still be in progress")
	r.transition(StateInterrupted)
	return r.res, nil
}

// failOrInterrupt attributes err to the interrupt when ctx is already done.
func (r *run) failOrInterrupt(ctx context.Context, err error) (Result, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return r.interrupted(ctxErr)
	}
	return r.fail(err)
}
