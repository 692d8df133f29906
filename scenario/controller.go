// Package scenario sequences one acceptance scenario through provisioning,
// step execution and finalization, and records its outcome.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	uuid "github.com/nu7hatch/gouuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/liuxd6825/webaccept/browser"
	"github.com/liuxd6825/webaccept/log"
	"github.com/liuxd6825/webaccept/page"
)

const (
	tracerName = "github.com/liuxd6825/webaccept/scenario"
	// finalizeTimeout bounds failure capture and session release.
	finalizeTimeout = 30 * time.Second
)

var errNotProvisioned = errors.New("scenario was never provisioned")

// Step is a named unit of scenario behavior.
type Step struct {
	Name string
	Run  func(ctx context.Context, c *Controller) error
}

// Script describes one scenario: its identity and its ordered steps.
type Script struct {
	Name    string
	Feature string
	URI     string
	Tags    []string
	Steps   []Step
}

// Config holds everything a Controller needs to provision and run.
type Config struct {
	Launcher browser.Launcher
	Options  browser.Options
	Waiter   *page.Waiter
	// ObservationDelay is slept after every step while a session is open.
	ObservationDelay time.Duration
	Logger           *log.Logger
	Tracer           trace.Tracer
}

// Controller drives a single scenario. It owns at most one browser session
// and can't be reused once closed.
type Controller struct {
	cfg    Config
	script Script
	logger *log.Logger
	tracer trace.Tracer

	mu      sync.Mutex
	state   State
	session browser.Session
	page    *page.LoginPage
	result  *Result
}

// NewController returns an Idle controller for script.
func NewController(script Script, cfg Config) *Controller {
	id := ""
	if u, err := uuid.NewV4(); err == nil {
		id = u.String()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Controller{
		cfg:    cfg,
		script: script,
		logger: cfg.Logger.With(logrus.Fields{"scenario": script.Name}),
		tracer: tracer,
		state:  Idle,
		result: &Result{
			ID:        id,
			Name:      script.Name,
			Feature:   script.Feature,
			URI:       script.URI,
			Tags:      append([]string(nil), script.Tags...),
			Status:    StatusPending,
			StartedAt: time.Now(),
		},
	}
}

// ID returns the unique id of the scenario run.
func (c *Controller) ID() string {
	return c.result.ID
}

// Name returns the scenario name.
func (c *Controller) Name() string {
	return c.script.Name
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the acquired browser session, or nil.
func (c *Controller) Session() browser.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Page returns the login page bound to the session, or nil before the
// controller is Ready.
func (c *Controller) Page() *page.LoginPage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Result returns a snapshot of the scenario record.
func (c *Controller) Result() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result.clone()
}

// moveTo must be called with c.mu held.
func (c *Controller) moveTo(next State) error {
	if c.state == Closed || c.state == Finalizing {
		return ErrControllerClosed
	}
	if !c.state.canMoveTo(next) {
		return fmt.Errorf("invalid scenario transition %s -> %s", c.state, next)
	}
	c.state = next
	return nil
}

// fail must be called with c.mu held.
func (c *Controller) fail(err error) {
	c.state = Failed
	c.result.Status = StatusFailed
	if c.result.Err == nil {
		c.result.Err = err
	}
}

// Provision opens the browser session and binds the login page. On failure
// the scenario moves straight to Failed.
func (c *Controller) Provision(ctx context.Context) error {
	c.mu.Lock()
	if err := c.moveTo(Provisioning); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "scenario.provision")
	defer span.End()

	s, err := c.open(ctx)
	if err != nil {
		perr := &ProvisioningError{Err: err}
		span.RecordError(perr)
		span.SetStatus(codes.Error, perr.Error())
		c.logger.Errorf("Controller:provision", "%v", perr)

		c.mu.Lock()
		c.fail(perr)
		c.mu.Unlock()
		return perr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
	c.page = page.NewLoginPage(s, c.cfg.Waiter, c.logger)
	c.logger.Debugf("Controller:provision", "session %s ready", s.ID())
	span.SetAttributes(attribute.String("session.id", s.ID()))
	return c.moveTo(Ready)
}

func (c *Controller) open(ctx context.Context) (browser.Session, error) {
	if c.cfg.Launcher == nil {
		return nil, errors.New("no browser launcher configured")
	}
	s, err := c.cfg.Launcher.Open(ctx, c.cfg.Options)
	if err == nil && s == nil {
		err = errors.New("launcher returned no session")
	}
	return s, err
}

// RunStep executes one step. The controller must be Ready or Executing. A
// failing step moves the scenario to Failed and its error is returned.
func (c *Controller) RunStep(ctx context.Context, step Step) error {
	c.mu.Lock()
	switch c.state {
	case Ready:
		c.state = Executing
	case Executing:
	case Closed, Finalizing:
		c.mu.Unlock()
		return ErrControllerClosed
	default:
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("cannot run step %q while scenario is %s", step.Name, state)
	}
	c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "scenario.step", trace.WithAttributes(
		attribute.String("step.name", step.Name),
	))
	defer span.End()

	start := time.Now()
	err := c.call(ctx, step)
	sr := StepResult{Name: step.Name, Status: StepPassed, Duration: time.Since(start)}

	c.mu.Lock()
	if err != nil {
		sr.Status, sr.Err = StepFailed, err
		c.fail(err)
	}
	c.result.Steps = append(c.result.Steps, sr)
	hasSession := c.session != nil
	c.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Errorf("Controller:step", "%q failed: %v", step.Name, err)
	} else {
		c.logger.Debugf("Controller:step", "%q passed in %s", step.Name, sr.Duration)
	}

	if hasSession {
		c.observe(ctx)
	}
	return err
}

func (c *Controller) call(ctx context.Context, step Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StepPanicError{Step: step.Name, Value: r}
		}
	}()
	if step.Run == nil {
		return nil
	}
	return step.Run(ctx, c)
}

func (c *Controller) observe(ctx context.Context) {
	if c.cfg.ObservationDelay <= 0 {
		return
	}
	t := time.NewTimer(c.cfg.ObservationDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// Execute runs steps in order. The first failing step ends the scenario and
// the remaining ones are recorded as skipped. A scenario that failed before
// execution skips every step.
func (c *Controller) Execute(ctx context.Context, steps []Step) error {
	for i, step := range steps {
		if c.State() == Failed {
			c.skip(steps[i:])
			return c.Result().Err
		}
		if err := c.RunStep(ctx, step); err != nil {
			if c.State() == Failed {
				c.skip(steps[i+1:])
			}
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Ready || c.state == Executing {
		c.state = Passed
		c.result.Status = StatusPassed
	}
	return nil
}

func (c *Controller) skip(steps []Step) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, step := range steps {
		c.result.Steps = append(c.result.Steps, StepResult{Name: step.Name, Status: StepSkipped})
	}
}

// Run provisions the controller, executes the script and finalizes. It
// always returns the final record.
func (c *Controller) Run(ctx context.Context) (res *Result) {
	ctx, span := c.tracer.Start(ctx, "scenario.run", trace.WithAttributes(
		attribute.String("scenario.id", c.ID()),
		attribute.String("scenario.name", c.script.Name),
	))
	defer span.End()
	defer func() {
		res = c.Finalize(ctx, nil)
		span.SetAttributes(attribute.String("scenario.status", res.Status.String()))
		if res.Err != nil {
			span.SetStatus(codes.Error, res.Err.Error())
		}
	}()

	_ = c.Provision(ctx)
	_ = c.Execute(ctx, c.script.Steps)
	return nil
}

// Finalize captures a failure screenshot when the scenario failed with a
// session open, then releases the session. It runs once; later calls return
// the same record. A non-nil cause marks the scenario as failed. Capture and
// release faults are logged and never returned.
func (c *Controller) Finalize(ctx context.Context, cause error) *Result {
	c.mu.Lock()
	if c.state == Finalizing || c.state == Closed {
		res := c.result.clone()
		c.mu.Unlock()
		return res
	}
	switch {
	case cause != nil:
		c.fail(cause)
	case c.state == Idle:
		c.fail(errNotProvisioned)
	case c.state == Ready || c.state == Executing:
		c.state = Passed
		c.result.Status = StatusPassed
	}
	failed := c.state == Failed
	session := c.session
	c.state = Finalizing
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	ctx, span := c.tracer.Start(ctx, "scenario.finalize")
	defer span.End()

	if failed && session != nil {
		if art, err := CaptureArtifact(ctx, session, FailureScreenshot); err != nil {
			c.logger.Errorf("Controller:finalize", "%v", err)
		} else {
			c.attach(art)
		}
	}
	if session != nil {
		if err := session.Close(); err != nil {
			c.logger.Errorf("Controller:finalize", "%v", &ArtifactError{Op: "close session", Err: err})
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Closed
	c.result.Duration = time.Since(c.result.StartedAt)
	c.logger.Infof("Controller:finalize", "scenario %s in %s", c.result.Status, c.result.Duration)
	return c.result.clone()
}

func (c *Controller) attach(a *Artifact) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result.Attachments = append(c.result.Attachments, a)
}

// Screenshot captures the current page and attaches it to the record. A
// failed capture is logged and doesn't affect the scenario outcome.
func (c *Controller) Screenshot(ctx context.Context, label string) *Artifact {
	c.mu.Lock()
	session, state := c.session, c.state
	c.mu.Unlock()
	if session == nil || state == Finalizing || state == Closed {
		c.logger.Warnf("Controller:screenshot", "skipping %q: no open session", label)
		return nil
	}

	art, err := CaptureArtifact(ctx, session, label)
	if err != nil {
		c.logger.Warnf("Controller:screenshot", "Failed to take screenshot: %v", err)
		return nil
	}
	c.attach(art)
	return art
}

// Navigate loads url in the scenario's session.
func (c *Controller) Navigate(ctx context.Context, url string) error {
	s := c.Session()
	if s == nil {
		return fmt.Errorf("navigation failed: %w", ErrNoSession)
	}
	if err := s.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}
