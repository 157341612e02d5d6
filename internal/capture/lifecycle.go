package capture

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"codescanner/internal/model"
	"codescanner/internal/scanner"
)

// Controller is the scan controller driven by the lifecycle.
type Controller interface {
	Reset()
	OnFrameEvents(events []model.ScanEvent) bool
	OnSetupFailure(err *model.ScanError)
}

// Options configures a Lifecycle.
type Options struct {
	// Device overrides the session default device.
	Device      *Device
	Kinds       []model.CodeKind
	PreferSpeed bool
	TorchOn     bool
	// OnRunStart is called with the new run ID each time capture (re)starts,
	// before any frame of that run reaches the controller.
	OnRunStart func(runID string)
}

// Status describes the lifecycle for display.
type Status struct {
	RunID      string
	Active     bool
	Running    bool
	TorchOn    bool
	Device     string
	SetupError *model.ScanError
}

// Lifecycle owns one capture session for a scanner view.
type Lifecycle struct {
	session  Session
	analyzer Analyzer
	ctrl     Controller
	opts     Options
	kinds    map[model.CodeKind]bool
	log      *slog.Logger

	setupOnce sync.Once

	// mu is held for reading while a frame is evaluated, so Disappear returns
	// only after the in-flight frame is done.
	mu       sync.RWMutex
	active   bool
	runID    string
	device   Device
	setupErr *model.ScanError
	torch    bool

	wmu    sync.Mutex
	closed bool
	ops    chan func()
	done   chan struct{}
}

// NewLifecycle creates a Lifecycle and starts its capture worker.
func NewLifecycle(session Session, analyzer Analyzer, ctrl Controller, opts Options, log *slog.Logger) *Lifecycle {
	l := &Lifecycle{
		session:  session,
		analyzer: analyzer,
		ctrl:     ctrl,
		opts:     opts,
		log:      log,
		torch:    opts.TorchOn,
		ops:      make(chan func(), 16),
		done:     make(chan struct{}),
	}
	if len(opts.Kinds) > 0 {
		l.kinds = make(map[model.CodeKind]bool, len(opts.Kinds))
		for _, k := range opts.Kinds {
			l.kinds[k] = true
		}
	}
	go l.work()
	return l
}

func (l *Lifecycle) work() {
	defer close(l.done)
	for op := range l.ops {
		op()
	}
}

// dispatch queues op on the capture worker without waiting for it.
func (l *Lifecycle) dispatch(name string, op func()) {
	l.wmu.Lock()
	defer l.wmu.Unlock()
	if l.closed {
		l.log.Debug("capture worker closed, dropping request", "op", name)
		return
	}
	l.ops <- op
}

// Setup attaches the device input and the frame output. A failure is reported
// to the controller once; setup is never retried for this Lifecycle.
func (l *Lifecycle) Setup() {
	l.setupOnce.Do(l.setup)
}

func (l *Lifecycle) setup() {
	dev, err := l.attach()

	l.mu.Lock()
	l.device = dev
	l.setupErr = err
	l.mu.Unlock()

	if err != nil {
		l.ctrl.OnSetupFailure(err)
		return
	}
	l.log.Info("capture session ready", "device", dev.Name)
}

func (l *Lifecycle) attach() (Device, *model.ScanError) {
	dev, ok := l.resolveDevice()
	if !ok {
		l.log.Error("no capture device available")
		return Device{}, model.ErrBadInput()
	}

	in, err := l.session.NewInput(dev)
	if err != nil {
		l.log.Error("create device input", "device", dev.ID, "error", err)
		return dev, model.InitError(err)
	}
	if !l.session.AddInput(in) {
		l.log.Error("add device input", "device", dev.ID)
		return dev, model.ErrBadInput()
	}
	if !l.session.AddOutput(l, OutputOptions{Kinds: l.opts.Kinds, PreferSpeed: l.opts.PreferSpeed}) {
		l.log.Error("add frame output", "device", dev.ID)
		return dev, model.ErrBadOutput()
	}
	return dev, nil
}

func (l *Lifecycle) resolveDevice() (Device, bool) {
	if l.opts.Device != nil {
		return *l.opts.Device, true
	}
	return l.session.DefaultDevice()
}

// Appear starts a new capture run: the controller is reset before the run
// accepts frames and capture start is requested asynchronously.
// OnRunStart is invoked with the lifecycle lock held and must not call back
// into the Lifecycle.
func (l *Lifecycle) Appear() {
	l.Setup()

	l.mu.Lock()
	if l.active {
		l.mu.Unlock()
		return
	}
	if l.setupErr != nil {
		l.mu.Unlock()
		l.log.Warn("capture not started, setup failed", "error", l.setupErr)
		return
	}
	runID := uuid.NewString()
	if l.opts.OnRunStart != nil {
		l.opts.OnRunStart(runID)
	}
	l.ctrl.Reset()
	l.runID = runID
	l.active = true
	l.mu.Unlock()

	l.log.Info("capture run started", "run_id", runID)
	l.dispatch("start", func() {
		if !l.session.Running() {
			l.session.Start()
		}
	})
	l.applyTorch()
}

// Disappear ends the current run. Frames are no longer delivered once it
// returns; the capture stop itself completes asynchronously.
func (l *Lifecycle) Disappear() {
	l.mu.Lock()
	wasActive := l.active
	l.active = false
	runID := l.runID
	l.mu.Unlock()

	if !wasActive {
		return
	}
	l.log.Info("capture run stopped", "run_id", runID)
	l.dispatch("stop", func() {
		if l.session.Running() {
			l.session.Stop()
		}
	})
}

// Rescan restarts capture, clearing the controller state.
func (l *Lifecycle) Rescan() {
	l.Disappear()
	l.Appear()
}

// Update applies the mutable view configuration.
func (l *Lifecycle) Update(torchOn bool) {
	l.mu.Lock()
	l.torch = torchOn
	l.mu.Unlock()
	l.applyTorch()
}

// applyTorch queues the current torch setting on the capture worker.
func (l *Lifecycle) applyTorch() {
	l.mu.RLock()
	on := l.torch
	hasTorch := l.device.HasTorch
	l.mu.RUnlock()

	if !hasTorch {
		return
	}
	l.dispatch("torch", func() {
		if err := l.session.SetTorch(on); err != nil {
			l.log.Warn("set torch", "on", on, "error", err)
		}
	})
}

// Flash returns feedback that briefly toggles the torch, then restores the
// configured setting. Both steps run as one op on the capture worker; a flash
// requested after Close is dropped.
func (l *Lifecycle) Flash(d time.Duration) scanner.Feedback {
	return scanner.FeedbackFunc(func(model.ScanResult) {
		l.mu.RLock()
		on := l.torch
		hasTorch := l.device.HasTorch
		l.mu.RUnlock()

		if !hasTorch {
			return
		}
		l.dispatch("flash", func() {
			if err := l.session.SetTorch(!on); err != nil {
				l.log.Debug("flash torch", "error", err)
				return
			}
			time.Sleep(d)
			if err := l.session.SetTorch(on); err != nil {
				l.log.Warn("restore torch", "on", on, "error", err)
			}
		})
	})
}

// OnFrame analyzes a frame and hands the events to the controller.
// Frames outside an active run are dropped.
func (l *Lifecycle) OnFrame(f Frame) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.active {
		l.log.Debug("frame dropped, no active run", "seq", f.Seq)
		return
	}

	events := l.analyzer.Analyze(f)
	if l.kinds != nil {
		events = l.filterKinds(events)
	}
	l.ctrl.OnFrameEvents(events)
}

func (l *Lifecycle) filterKinds(events []model.ScanEvent) []model.ScanEvent {
	var out []model.ScanEvent
	for _, ev := range events {
		if l.kinds[ev.Kind] {
			out = append(out, ev)
		}
	}
	return out
}

// Status reports the current run.
func (l *Lifecycle) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Status{
		RunID:      l.runID,
		Active:     l.active,
		Running:    l.session.Running(),
		TorchOn:    l.torch,
		Device:     l.device.Name,
		SetupError: l.setupErr,
	}
}

// Close ends the run and waits for queued start/stop requests to finish.
func (l *Lifecycle) Close() {
	l.Disappear()

	l.wmu.Lock()
	if !l.closed {
		l.closed = true
		close(l.ops)
	}
	l.wmu.Unlock()

	<-l.done
}
