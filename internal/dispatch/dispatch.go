// Package dispatch is the caller side of the scan result channel: it stores
// every delivered result and forwards it to a chat.
package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"codescanner/internal/bot"
	"codescanner/internal/filter"
	"codescanner/internal/model"
	"codescanner/internal/preview"
	"codescanner/internal/storage"
)

// Dispatcher outcomes reported to the Counter.
const (
	OutcomeSent     = "sent"
	OutcomeFiltered = "filtered"
	OutcomeStored   = "stored"
	OutcomeDropped  = "dropped"
)

// Sender is the interface for sending chat messages.
type Sender interface {
	SendMessage(chatID int64, text string)
}

// Previewer summarizes the content a scanned payload links to.
type Previewer interface {
	Describe(ctx context.Context, payload string) (string, error)
}

// Counter observes dispatcher outcomes.
type Counter interface {
	Dispatched(outcome string)
}

type nopCounter struct{}

func (nopCounter) Dispatched(string) {}

type item struct {
	run    string
	result model.ScanResult
}

// Dispatcher consumes scan results asynchronously.
type Dispatcher struct {
	store   storage.Storage
	sender  Sender
	chatID  int64
	preview Previewer
	counter Counter
	log     *slog.Logger
	pause   time.Duration

	queue   chan item
	stopped chan struct{}
	stop    sync.Once
	// sendMu is held for reading by Handle and for writing by the final drain,
	// so no result is queued after the drain.
	sendMu sync.RWMutex

	mu  sync.Mutex
	run string
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithSender forwards results to chatID through s.
func WithSender(s Sender, chatID int64) Option {
	return func(d *Dispatcher) {
		d.sender = s
		d.chatID = chatID
	}
}

// WithPreview attaches feed previews to link payloads.
func WithPreview(p Previewer) Option {
	return func(d *Dispatcher) { d.preview = p }
}

// WithCounter sets the outcome counter.
func WithCounter(c Counter) Option {
	return func(d *Dispatcher) { d.counter = c }
}

// WithPause overrides the delay between sent messages.
func WithPause(p time.Duration) Option {
	return func(d *Dispatcher) { d.pause = p }
}

// New creates a Dispatcher storing results in store.
func New(store storage.Storage, log *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:   store,
		counter: nopCounter{},
		log:     log,
		pause:   50 * time.Millisecond,
		queue:   make(chan item, 64),
		stopped: make(chan struct{}),
	}
	if d.log == nil {
		d.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// BeginRun tags results handled from now on with runID.
func (d *Dispatcher) BeginRun(runID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.run = runID
}

// Handle queues a result. It blocks while the queue is full and drops the
// result once Run has begun shutting down.
func (d *Dispatcher) Handle(result model.ScanResult) {
	d.mu.Lock()
	it := item{run: d.run, result: result}
	d.mu.Unlock()

	d.sendMu.RLock()
	defer d.sendMu.RUnlock()

	select {
	case <-d.stopped:
		d.dropped(it)
		return
	default:
	}

	select {
	case d.queue <- it:
	case <-d.stopped:
		d.dropped(it)
	}
}

func (d *Dispatcher) dropped(it item) {
	d.counter.Dispatched(OutcomeDropped)
	d.log.Warn("dispatcher stopped, result dropped", "run_id", it.run)
}

// Run processes queued results, blocking until ctx is cancelled. Results
// already queued at that point are still stored.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.shutdown()
			return
		case it := <-d.queue:
			d.process(ctx, it)
		}
	}
}

// shutdown rejects new results, waits for Handle calls in flight and stores
// whatever they queued.
func (d *Dispatcher) shutdown() {
	d.stop.Do(func() { close(d.stopped) })

	d.sendMu.Lock()
	defer d.sendMu.Unlock()
	d.drain()
}

func (d *Dispatcher) drain() {
	ctx := context.Background()
	for {
		select {
		case it := <-d.queue:
			d.record(ctx, it)
		default:
			return
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, it item) {
	rec, ok := d.record(ctx, it)
	if !ok {
		return
	}

	if d.sender == nil {
		d.counter.Dispatched(OutcomeStored)
		return
	}

	var msg string
	if rec.Failed() {
		msg = bot.FormatFailure(rec)
	} else {
		filters, err := d.store.ListFilters(ctx, d.chatID)
		if err != nil {
			d.log.Error("list filters", "chat_id", d.chatID, "error", err)
			return
		}
		if !filter.Match(rec.Payload, filters) {
			d.counter.Dispatched(OutcomeFiltered)
			d.log.Debug("result filtered", "run_id", rec.RunID, "payload", rec.Payload)
			return
		}
		msg = bot.FormatResult(rec, d.describe(ctx, rec.Payload))
	}

	d.sender.SendMessage(d.chatID, msg)
	d.counter.Dispatched(OutcomeSent)

	// Rate limit: ~20 messages/sec max for Telegram
	if d.pause > 0 {
		time.Sleep(d.pause)
	}
}

func (d *Dispatcher) record(ctx context.Context, it item) (model.ScanRecord, bool) {
	rec := model.ScanRecord{RunID: it.run, CreatedAt: it.result.At}
	switch {
	case it.result.Success != nil:
		rec.Payload = it.result.Success.Payload
		rec.Kind = it.result.Success.Kind
		d.log.Info("code scanned", "run_id", it.run, "kind", rec.Kind, "payload", rec.Payload)
	case it.result.Failure != nil:
		rec.ErrorKind = it.result.Failure.Kind
		rec.Detail = it.result.Failure.Error()
		d.log.Warn("scan failed", "run_id", it.run, "kind", rec.ErrorKind, "error", rec.Detail)
	default:
		return rec, false
	}

	if err := d.store.RecordResult(ctx, &rec); err != nil {
		d.log.Error("record scan result", "run_id", it.run, "error", err)
	}
	return rec, true
}

func (d *Dispatcher) describe(ctx context.Context, payload string) string {
	if d.preview == nil {
		return ""
	}
	desc, err := d.preview.Describe(ctx, payload)
	if err != nil {
		if !errors.Is(err, preview.ErrNotLink) {
			d.log.Debug("link preview", "payload", payload, "error", err)
		}
		return ""
	}
	return desc
}
