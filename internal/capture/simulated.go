package capture

import (
	"errors"
	"sync"
	"time"
)

// ErrDeviceBusy is returned by Simulated.NewInput when configured to fail.
var ErrDeviceBusy = errors.New("capture device is in use by another application")

// SimulatedConfig configures a Simulated session.
type SimulatedConfig struct {
	// Payloads are emitted in turn, one per frame. An empty payload yields a
	// frame in which nothing is recognized.
	Payloads      []string
	FrameInterval time.Duration
	Device        Device
	// NoDevice makes DefaultDevice report no camera.
	NoDevice     bool
	InputErr     error
	RejectInput  bool
	RejectOutput bool
}

// Simulated is a Session without a camera: it delivers frames carrying the
// configured payloads from a single background goroutine.
type Simulated struct {
	cfg SimulatedConfig

	mu      sync.Mutex
	sink    FrameSink
	running bool
	torch   bool
	seq     uint64
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewSimulated creates a simulated session.
func NewSimulated(cfg SimulatedConfig) *Simulated {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = 200 * time.Millisecond
	}
	if cfg.Device.ID == "" {
		cfg.Device = Device{ID: "simulated-0", Name: "Simulated Camera", HasTorch: true}
	}
	return &Simulated{cfg: cfg}
}

// DefaultDevice returns the simulated camera.
func (s *Simulated) DefaultDevice() (Device, bool) {
	if s.cfg.NoDevice {
		return Device{}, false
	}
	return s.cfg.Device, true
}

// NewInput returns the device itself as input, or the configured error.
func (s *Simulated) NewInput(dev Device) (Input, error) {
	if s.cfg.InputErr != nil {
		return nil, s.cfg.InputErr
	}
	return dev, nil
}

// AddInput accepts the input unless configured to reject it.
func (s *Simulated) AddInput(Input) bool {
	return !s.cfg.RejectInput
}

// AddOutput registers the frame sink unless configured to reject it.
func (s *Simulated) AddOutput(sink FrameSink, _ OutputOptions) bool {
	if s.cfg.RejectOutput {
		return false
	}
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
	return true
}

// Start begins frame delivery.
func (s *Simulated) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.sink == nil {
		return
	}
	s.running = true
	s.stop = make(chan struct{})

	s.wg.Add(1)
	go s.emit(s.sink, s.stop)
}

func (s *Simulated) emit(sink FrameSink, stop <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			sink.OnFrame(s.nextFrame(now))
		}
	}
}

func (s *Simulated) nextFrame(now time.Time) Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := Frame{Seq: s.seq, Captured: now}
	if n := len(s.cfg.Payloads); n > 0 {
		f.Data = []byte(s.cfg.Payloads[s.seq%uint64(n)])
	}
	s.seq++
	return f
}

// Stop ends frame delivery and waits for the delivery goroutine to exit.
func (s *Simulated) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
}

// Running reports whether frames are being delivered.
func (s *Simulated) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetTorch records the torch state.
func (s *Simulated) SetTorch(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.torch = on
	return nil
}

// TorchOn reports the last torch state set.
func (s *Simulated) TorchOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.torch
}
