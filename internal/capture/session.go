// Package capture binds a camera capture session and a frame analyzer to the
// scan controller and translates view lifecycle signals into controller resets
// and capture start/stop requests.
package capture

import (
	"time"

	"codescanner/internal/model"
)

// Device is a camera handle.
type Device struct {
	ID       string
	Name     string
	HasTorch bool
}

// Input is an opaque device input produced by a Session.
type Input interface{}

// Frame is one raw video frame.
type Frame struct {
	Seq      uint64
	Data     []byte
	Captured time.Time
}

// FrameSink receives frames from a running Session.
type FrameSink interface {
	OnFrame(f Frame)
}

// OutputOptions configures the frame output attached to a Session.
type OutputOptions struct {
	Kinds       []model.CodeKind
	PreferSpeed bool
}

// Session is the platform capture session. Start and Stop may block until the
// device changes state.
type Session interface {
	DefaultDevice() (Device, bool)
	NewInput(dev Device) (Input, error)
	AddInput(in Input) bool
	AddOutput(sink FrameSink, opts OutputOptions) bool
	Start()
	Stop()
	Running() bool
	SetTorch(on bool) error
}

// Analyzer recognizes codes in a raw frame.
type Analyzer interface {
	Analyze(f Frame) []model.ScanEvent
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(Frame) []model.ScanEvent

// Analyze calls fn(f).
func (fn AnalyzerFunc) Analyze(f Frame) []model.ScanEvent { return fn(f) }

// TextAnalyzer treats the frame bytes as an already decoded payload of a single kind.
// It backs simulated sessions where no real image is captured.
type TextAnalyzer struct {
	Kind model.CodeKind
}

// Analyze returns one event for a non-empty frame.
func (a TextAnalyzer) Analyze(f Frame) []model.ScanEvent {
	if len(f.Data) == 0 {
		return nil
	}
	kind := a.Kind
	if kind == "" {
		kind = model.KindQR
	}
	return []model.ScanEvent{{Payload: string(f.Data), Kind: kind}}
}
