package capture

import (
	"io"
	"sync"

	"codescanner/internal/model"
)

// Bell is feedback that rings the terminal bell on success.
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBell creates a Bell writing to w.
func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

// Pulse writes a BEL character.
func (b *Bell) Pulse(model.ScanResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = b.w.Write([]byte{'\a'})
}
