package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	domainEvent "github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/event"
	domainOutbox "github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/outbox"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/postgres"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/outbox"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Store is the slice of the outbox repository the processor drives.
type Store interface {
	ReleaseStaleLocks(ctx context.Context, staleBefore time.Time) (int64, error)
	LockNextBatch(ctx context.Context, limit int, now time.Time) ([]*domainOutbox.Event, error)
	MarkProcessing(ctx context.Context, ids []uuid.UUID, workerID string, now time.Time) error
	MarkDone(ctx context.Context, lease domainOutbox.Lease, processedAt time.Time) error
	MarkFailed(ctx context.Context, lease domainOutbox.Lease, errMsg string, attempts int, nextRetryAt *time.Time) error
}

// settleTimeout bounds the final status write, which runs even after the
// runner context is cancelled so a finished handler is not delivered again.
const settleTimeout = 10 * time.Second

type Config struct {
	WorkerID            string
	BatchSize           int
	MaxAttempts         int
	Backoff             Backoff
	StaleLockTimeout    time.Duration
	DispatchConcurrency int
}

// TickResult counts what one tick did.
type TickResult struct {
	Released    int64
	Leased      int
	Done        int
	Retried     int
	Dead        int
	LeaseLost   int
	StoreErrors int
}

func (r TickResult) idle() bool {
	return r.Released == 0 && r.Leased == 0
}

type Option func(*Processor)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// WithRand fixes the jitter source.
func WithRand(rng *rand.Rand) Option {
	return func(p *Processor) { p.rng = rng }
}

type Processor struct {
	store    Store
	tx       postgres.Transactor
	registry *outbox.Registry
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewProcessor(store Store, tx postgres.Transactor, registry *outbox.Registry, cfg Config, logger *zap.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DispatchConcurrency < 1 {
		cfg.DispatchConcurrency = 1
	}

	p := &Processor{
		store:    store,
		tx:       tx,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return p
}

// Tick runs one recovery, lease and dispatch cycle. Only recovery and lease
// errors are returned; per-event failures are recorded on the rows.
func (p *Processor) Tick(ctx context.Context) (TickResult, error) {
	start := time.Now()
	defer func() { tickDuration.Observe(time.Since(start).Seconds()) }()

	var res TickResult
	now := p.now()

	err := p.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		n, err := p.store.ReleaseStaleLocks(ctx, now.Add(-p.cfg.StaleLockTimeout))
		res.Released = n
		return err
	})
	if err != nil {
		return TickResult{}, fmt.Errorf("release stale locks: %w", err)
	}
	if res.Released > 0 {
		staleLocksReleased.Add(float64(res.Released))
	}

	events, err := p.lease(ctx, now)
	if err != nil {
		return res, fmt.Errorf("lease batch: %w", err)
	}

	res.Leased = len(events)
	leasedEvents.Set(float64(len(events)))

	p.dispatch(ctx, events, &res)

	return res, nil
}

// lease selects and marks a batch in one transaction. Handlers never run
// while row locks are held.
func (p *Processor) lease(ctx context.Context, now time.Time) ([]*domainOutbox.Event, error) {
	var leased []*domainOutbox.Event

	// Postgres keeps microseconds; the settle guard compares locked_at exactly.
	lockedAt := now.Truncate(time.Microsecond)

	err := p.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		batch, err := p.store.LockNextBatch(ctx, p.cfg.BatchSize, now)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, len(batch))
		for i, e := range batch {
			ids[i] = e.ID
		}

		if err := p.store.MarkProcessing(ctx, ids, p.cfg.WorkerID, lockedAt); err != nil {
			return err
		}

		for _, e := range batch {
			at := lockedAt
			e.Status = domainOutbox.StatusProcessing
			e.LockedBy, e.LockedAt = p.cfg.WorkerID, &at
		}
		leased = batch
		return nil
	})
	if err != nil {
		return nil, err
	}

	return leased, nil
}

func (p *Processor) dispatch(ctx context.Context, events []*domainOutbox.Event, res *TickResult) {
	if len(events) == 0 {
		return
	}

	var mu sync.Mutex
	record := func(outcome string) {
		mu.Lock()
		defer mu.Unlock()
		switch outcome {
		case outcomeDone:
			res.Done++
		case outcomeRetry:
			res.Retried++
		case outcomeDead:
			res.Dead++
		case outcomeLeaseLost:
			res.LeaseLost++
		default:
			res.StoreErrors++
		}
	}

	if p.cfg.DispatchConcurrency == 1 {
		for _, e := range events {
			record(p.process(ctx, e))
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(p.cfg.DispatchConcurrency)
	for _, e := range events {
		g.Go(func() error {
			record(p.process(ctx, e))
			return nil
		})
	}
	_ = g.Wait()
}

// process delivers one leased event and records its terminal transition.
// It returns the outcome label, or "" when the store update itself failed.
func (p *Processor) process(ctx context.Context, e *domainOutbox.Event) string {
	handleErr := p.invoke(ctx, e)

	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	lease := domainOutbox.Lease{ID: e.ID, WorkerID: e.LockedBy, LockedAt: *e.LockedAt}

	if handleErr == nil {
		err := p.store.MarkDone(settleCtx, lease, p.now())
		return p.settle(e, outcomeDone, err)
	}

	attempts := e.Attempts + 1
	outcome := outcomeDead
	var nextRetryAt *time.Time
	if attempts < p.cfg.MaxAttempts {
		next := p.now().Add(p.delay(attempts))
		nextRetryAt = &next
		outcome = outcomeRetry
	}

	err := p.store.MarkFailed(settleCtx, lease, outbox.SanitizeError(handleErr), attempts, nextRetryAt)
	return p.settle(e, outcome, err)
}

func (p *Processor) settle(e *domainOutbox.Event, outcome string, err error) string {
	switch {
	case err == nil:
	case errors.Is(err, domainOutbox.ErrLeaseLost):
		p.logger.Warn("outbox_lease_lost",
			zap.String("event_id", e.ID.String()),
			zap.String("event_type", e.EventType),
		)
		outcome = outcomeLeaseLost
	default:
		p.logger.Error("outbox_mark_failed",
			zap.String("event_id", e.ID.String()),
			zap.String("event_type", e.EventType),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
		return ""
	}

	eventsProcessed.WithLabelValues(e.EventType, outcome).Inc()
	return outcome
}

func (p *Processor) invoke(ctx context.Context, e *domainOutbox.Event) (err error) {
	h, ok := p.registry.Get(e.EventType)
	if !ok {
		return fmt.Errorf("no handler registered for event type: %s", e.EventType)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return h.Handle(ctx, domainEvent.Message{
		ID:            e.ID,
		Type:          e.EventType,
		Payload:       bytes.Clone(e.Payload),
		OccurredAt:    e.OccurredAt,
		CreatedAt:     e.CreatedAt,
		Attempts:      e.Attempts,
		CorrelationID: e.CorrelationID,
		TraceID:       e.TraceID,
	})
}

func (p *Processor) delay(attempts int) time.Duration {
	p.rngMu.Lock()
	defer p.rngMu.Unlock()
	return p.cfg.Backoff.Delay(attempts, p.rng)
}
