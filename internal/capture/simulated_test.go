package capture

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"codescanner/internal/model"
)

type recordingSink struct {
	mu     sync.Mutex
	frames []Frame
}

func (r *recordingSink) OnFrame(f Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

func (r *recordingSink) payloads() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.frames))
	for i, f := range r.frames {
		out[i] = string(f.Data)
	}
	return out
}

func TestSimulatedCyclesPayloads(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	sink := &recordingSink{}
	s := NewSimulated(SimulatedConfig{Payloads: []string{"a", "b"}, FrameInterval: time.Millisecond})
	if !s.AddOutput(sink, OutputOptions{}) {
		t.Fatal("output rejected")
	}

	s.Start()
	s.Start()
	waitFor(t, func() bool { return len(sink.payloads()) >= 4 })
	s.Stop()
	s.Stop()

	if s.Running() {
		t.Error("expected session stopped")
	}
	got := sink.payloads()[:4]
	if diff := cmp.Diff([]string{"a", "b", "a", "b"}, got); diff != "" {
		t.Errorf("payloads mismatch (-want +got):\n%s", diff)
	}
	for i, f := range sink.frames[:4] {
		if f.Seq != uint64(i) {
			t.Errorf("frame %d seq = %d", i, f.Seq)
		}
	}
}

func TestSimulatedStartWithoutOutput(t *testing.T) {
	s := NewSimulated(SimulatedConfig{})
	s.Start()
	if s.Running() {
		t.Error("session without output must not run")
	}
}

func TestSimulatedDefaults(t *testing.T) {
	s := NewSimulated(SimulatedConfig{})
	dev, ok := s.DefaultDevice()
	if !ok {
		t.Fatal("expected default device")
	}
	want := Device{ID: "simulated-0", Name: "Simulated Camera", HasTorch: true}
	if diff := cmp.Diff(want, dev); diff != "" {
		t.Errorf("device mismatch (-want +got):\n%s", diff)
	}

	if err := s.SetTorch(true); err != nil {
		t.Fatalf("set torch: %v", err)
	}
	if !s.TorchOn() {
		t.Error("expected torch on")
	}
}

func TestBell(t *testing.T) {
	var buf bytes.Buffer
	b := NewBell(&buf)
	b.Pulse(model.ScanResult{})
	b.Pulse(model.ScanResult{})

	if diff := cmp.Diff("\a\a", buf.String()); diff != "" {
		t.Errorf("bell output mismatch (-want +got):\n%s", diff)
	}
}
