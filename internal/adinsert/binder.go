package adinsert

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hls-adinsert/internal/platform/metrics"
)

// DefaultBindTimeout bounds one background store write.
const DefaultBindTimeout = 5 * time.Second

// Binder selects an ad for a session and records the binding in the store.
type Binder struct {
	store   SessionStore
	decider AdDecider
	log     *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	wg sync.WaitGroup
}

// NewBinder returns a Binder. Metrics may be nil. If timeout <= 0,
// DefaultBindTimeout is used for background binds.
func NewBinder(store SessionStore, decider AdDecider, log *slog.Logger, m *metrics.Metrics, timeout time.Duration) *Binder {
	if timeout <= 0 {
		timeout = DefaultBindTimeout
	}
	return &Binder{store: store, decider: decider, log: log, metrics: m, timeout: timeout}
}

// Bind chooses an ad for id and writes it to the store. Exactly one decision
// is made per call.
func (b *Binder) Bind(ctx context.Context, id SessionID) (Binding, error) {
	adName, err := b.decider.Decide(ctx, id)
	if err != nil {
		return Binding{}, fmt.Errorf("decide ad: %w", err)
	}
	if err := b.store.Put(ctx, string(id), adName); err != nil {
		return Binding{}, fmt.Errorf("store binding: %w", err)
	}
	return Binding{SessionID: id, AdName: adName}, nil
}

// BindAsync runs Bind on its own goroutine, detached from any request
// context. Failures are logged and counted; they cannot reach the caller.
func (b *Binder) BindAsync(id SessionID) {
	b.wg.Add(1)
	if b.metrics != nil {
		b.metrics.IncBindsInFlight()
	}
	go func() {
		defer b.wg.Done()
		if b.metrics != nil {
			defer b.metrics.DecBindsInFlight()
		}

		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		binding, err := b.Bind(ctx, id)
		b.record(binding, id, err)
	}()
}

// BindSync runs Bind on the caller's goroutine and records the outcome.
func (b *Binder) BindSync(ctx context.Context, id SessionID) error {
	binding, err := b.Bind(ctx, id)
	b.record(binding, id, err)
	return err
}

// Wait blocks until every bind started with BindAsync has finished or ctx
// is done.
func (b *Binder) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Binder) record(binding Binding, id SessionID, err error) {
	if err != nil {
		// Any segment request for this session will now miss.
		b.log.Error("session bind failed",
			slog.String("session_id", string(id)),
			slog.String("error", err.Error()))
		if b.metrics != nil {
			b.metrics.IncBindFailures()
		}
		return
	}
	b.log.Debug("session bound",
		slog.String("session_id", string(binding.SessionID)),
		slog.String("ad_name", binding.AdName))
	if b.metrics != nil {
		b.metrics.IncSessionsBound()
	}
}
