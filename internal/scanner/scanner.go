// Package scanner implements the scan-session controller: it turns the stream of
// decoded-code events coming from a frame analyzer into results filtered by the
// configured scan mode.
package scanner

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"codescanner/internal/model"
)

// DefaultInterval is the minimum time between deliveries in continuous mode.
const DefaultInterval = 2 * time.Second

// Suppression reasons reported to the Recorder.
const (
	ReasonEmpty     = "empty"
	ReasonLatched   = "latched"
	ReasonFailed    = "failed"
	ReasonDuplicate = "duplicate"
	ReasonThrottled = "throttled"
)

// epoch is the lastDelivery value of a fresh session.
var epoch = time.Unix(0, 0).UTC()

// ResultFunc receives every delivered result.
type ResultFunc func(model.ScanResult)

// Feedback is notified after each successful delivery (a vibration, a torch flash).
// It runs on its own goroutine and never blocks the controller.
type Feedback interface {
	Pulse(result model.ScanResult)
}

// FeedbackFunc adapts a function to the Feedback interface.
type FeedbackFunc func(model.ScanResult)

// Pulse calls f(result).
func (f FeedbackFunc) Pulse(result model.ScanResult) { f(result) }

// Recorder observes controller decisions.
type Recorder interface {
	Delivered(kind model.CodeKind)
	Suppressed(reason string)
	SetupFailed(kind model.ErrorKind)
}

type nopRecorder struct{}

func (nopRecorder) Delivered(model.CodeKind)    {}
func (nopRecorder) Suppressed(string)           {}
func (nopRecorder) SetupFailed(model.ErrorKind) {}

// Options is the per-session configuration. It does not change for the life of a Controller.
type Options struct {
	Mode              model.ScanMode
	Interval          time.Duration
	FeedbackOnSuccess bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Mode:              model.ModeOnce,
		Interval:          DefaultInterval,
		FeedbackOnSuccess: true,
	}
}

// Option customizes a Controller.
type Option func(*Controller)

// WithFeedback sets the success feedback hook.
func WithFeedback(f Feedback) Option {
	return func(c *Controller) { c.feedback = f }
}

// WithRecorder sets the decision recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.rec = r }
}

// WithClock overrides time.Now (useful for testing).
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// session is the mutable per-run state.
type session struct {
	seen         map[string]struct{}
	finished     bool
	lastDelivery time.Time
}

func newSession() session {
	return session{seen: make(map[string]struct{}), lastDelivery: epoch}
}

// Controller applies the scan mode policy to decoded events.
// It is safe for concurrent use.
type Controller struct {
	opts     Options
	onResult ResultFunc
	feedback Feedback
	rec      Recorder
	now      func() time.Time
	log      *slog.Logger

	mu     sync.Mutex
	state  session
	failed bool
}

// New creates a Controller delivering results to onResult.
// Mode spellings accepted by model.ParseScanMode are normalized; a zero or
// unknown Mode falls back to once and a non-positive Interval to DefaultInterval.
func New(opts Options, onResult ResultFunc, options ...Option) *Controller {
	requested := opts.Mode
	mode, err := model.ParseScanMode(string(opts.Mode))
	if err != nil {
		mode = model.ModeOnce
	}
	opts.Mode = mode
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	c := &Controller{
		opts:     opts,
		onResult: onResult,
		rec:      nopRecorder{},
		now:      time.Now,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:    newSession(),
	}
	for _, o := range options {
		o(c)
	}
	if err != nil && requested != "" {
		c.log.Warn("unknown scan mode, using once", "mode", requested)
	}
	return c
}

// Options returns the session configuration.
func (c *Controller) Options() Options {
	return c.opts
}

// Reset returns the controller to its initial state. The lifecycle owner calls it
// every time capture (re)starts, before the first frame of the run.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.state = newSession()
	c.failed = false
	c.mu.Unlock()

	c.log.Debug("scan session reset", "mode", c.opts.Mode)
}

// OnFrameEvents evaluates the analyzer output for one frame. Only the first event
// is considered, so at most one result is delivered per call. It reports whether
// a result was delivered.
func (c *Controller) OnFrameEvents(events []model.ScanEvent) bool {
	if len(events) == 0 {
		return false
	}
	ev := events[0]
	if ev.Payload == "" {
		c.rec.Suppressed(ReasonEmpty)
		return false
	}

	result, reason, ok := c.decide(ev)
	if !ok {
		c.rec.Suppressed(reason)
		return false
	}

	c.log.Debug("code delivered", "mode", c.opts.Mode, "kind", ev.Kind, "payload", ev.Payload)
	c.rec.Delivered(ev.Kind)
	if c.opts.FeedbackOnSuccess && c.feedback != nil {
		go c.feedback.Pulse(result)
	}
	c.deliver(result)
	return true
}

// decide runs the policy check and the matching state update as one step.
func (c *Controller) decide(ev model.ScanEvent) (model.ScanResult, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failed {
		return model.ScanResult{}, ReasonFailed, false
	}
	if c.state.finished {
		return model.ScanResult{}, ReasonLatched, false
	}

	now := c.now()
	switch c.opts.Mode {
	case model.ModeOncePerCode:
		if _, ok := c.state.seen[ev.Payload]; ok {
			return model.ScanResult{}, ReasonDuplicate, false
		}
		c.state.seen[ev.Payload] = struct{}{}
	case model.ModeContinuous:
		if now.Sub(c.state.lastDelivery) < c.opts.Interval {
			return model.ScanResult{}, ReasonThrottled, false
		}
	default:
		c.state.finished = true
	}

	if now.After(c.state.lastDelivery) {
		c.state.lastDelivery = now
	}
	return model.Succeeded(ev, now), "", true
}

// OnSetupFailure delivers a setup failure to the caller. Frames are ignored
// afterwards until Reset; further failures in the same run are dropped.
func (c *Controller) OnSetupFailure(err *model.ScanError) {
	if err == nil {
		return
	}

	c.mu.Lock()
	if c.failed {
		c.mu.Unlock()
		c.log.Debug("setup failure already reported", "kind", err.Kind)
		return
	}
	c.failed = true
	now := c.now()
	c.mu.Unlock()

	c.log.Warn("capture setup failed", "kind", err.Kind, "error", err)
	c.rec.SetupFailed(err.Kind)
	c.deliver(model.Failed(err, now))
}

func (c *Controller) deliver(result model.ScanResult) {
	if c.onResult != nil {
		c.onResult(result)
	}
}

// Snapshot is a read-only view of the controller state.
type Snapshot struct {
	Mode         model.ScanMode
	Finished     bool
	Failed       bool
	Seen         int
	LastDelivery time.Time
}

// State returns a snapshot of the current session.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Mode:         c.opts.Mode,
		Finished:     c.state.finished,
		Failed:       c.failed,
		Seen:         len(c.state.seen),
		LastDelivery: c.state.lastDelivery,
	}
}
