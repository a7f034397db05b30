// Package aggregator owns the in-memory step count, the daily rollover, the
// persistence cadence, and the upload throttle.
package aggregator

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/Redish03/StepCounter/internal/counterstore"
	"github.com/Redish03/StepCounter/internal/domain"
)

// Publisher pushes the day's count to the remote store. Uploads are
// best-effort; the aggregator logs failures and relies on the next tick.
type Publisher interface {
	PublishSteps(ctx context.Context, steps int) error
}

// Option configures optional behaviour for the Aggregator.
type Option func(*Aggregator)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *log.Logger) Option {
	return func(a *Aggregator) { a.logger = logger }
}

// WithClock injects a time source. Tests use this to force day rollovers.
func WithClock(clock func() time.Time) Option {
	return func(a *Aggregator) { a.clock = clock }
}

// WithInterval sets the fixed delay between reconciliation ticks.
func WithInterval(interval time.Duration) Option {
	return func(a *Aggregator) { a.interval = interval }
}

// WithThresholds overrides the upload throttle policy.
func WithThresholds(t Thresholds) Option {
	return func(a *Aggregator) { a.thresholds = t }
}

// WithPublisher wires the remote upload target.
func WithPublisher(p Publisher) Option {
	return func(a *Aggregator) { a.publisher = p }
}

// WithStatusSurface wires the ongoing status indicator.
func WithStatusSurface(s StatusSurface) Option {
	return func(a *Aggregator) { a.surface = s }
}

// Aggregator maintains the daily counter. Step events increment an atomic
// counter; a single reconciliation loop persists, notifies, and uploads.
type Aggregator struct {
	store      counterstore.Store
	publisher  Publisher
	surface    StatusSurface
	broadcast  *Broadcaster
	clock      func() time.Time
	interval   time.Duration
	thresholds Thresholds
	logger     *log.Logger

	steps atomic.Int64

	// Loop-owned state; only the reconciliation goroutine touches these.
	lastSaved int
	lastDate  string
	cursor    domain.UploadCursor
}

// New constructs an Aggregator over the durable store.
func New(store counterstore.Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:      store,
		broadcast:  NewBroadcaster(),
		clock:      time.Now,
		interval:   2 * time.Second,
		thresholds: DefaultThresholds(),
		logger:     log.New(log.Writer(), "[aggregator] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// StepDetected records exactly one step. It is safe under concurrent delivery
// and never blocks the event source.
func (a *Aggregator) StepDetected() {
	a.steps.Add(1)
}

// CurrentSteps returns the in-memory count.
func (a *Aggregator) CurrentSteps() int {
	return int(a.steps.Load())
}

// Updates subscribes a local observer to persisted count changes.
func (a *Aggregator) Updates() (<-chan domain.StepUpdate, func()) {
	return a.broadcast.Subscribe()
}

// Run loads the persisted record, applies the startup rollover check, and
// then reconciles on a fixed delay until ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context) error {
	a.start()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.reconcile(ctx)
		}
	}
}

// start implements the startup protocol: adopt the persisted count when it is
// from today, otherwise reset to zero and persist the reset immediately so a
// crash cannot resurrect yesterday's count.
func (a *Aggregator) start() {
	now := a.clock()
	today := domain.Day(now)
	savedDate := a.store.GetString(counterstore.KeyLastSavedDate, "")

	a.lastDate = today
	// Anchor the throttle so the freshness clause cannot fire on the very
	// first persisted step after startup.
	a.cursor.LastUploadTime = now
	if savedDate == today {
		saved := a.store.GetInt(counterstore.KeyCurrentSteps, 0)
		a.steps.Store(int64(saved))
		a.lastSaved = saved
		a.logger.Printf("resuming today's count: %d", saved)
		return
	}

	a.steps.Store(0)
	if err := a.persist(0, today); err != nil {
		a.logger.Printf("reset persist failed: %v", err)
		a.lastSaved = -1 // retry on the first tick
		return
	}
	a.lastSaved = 0
	a.logger.Printf("day changed (%s -> %s), counter reset", savedDate, today)
}

// reconcile runs one tick: rollover check, durable persist, local notify,
// status update, throttle evaluation. Ticks never run concurrently.
func (a *Aggregator) reconcile(ctx context.Context) {
	now := a.clock()
	today := domain.Day(now)

	if today != a.lastDate {
		// Midnight passed; reset from the wall clock alone.
		a.steps.Store(0)
		a.lastSaved = -1
		a.lastDate = today
		// Yesterday's uploaded total is meaningless for the new day.
		a.cursor = domain.UploadCursor{LastUploadTime: now}
		rolloverCounter.Inc()
		a.logger.Printf("day rollover, counter reset")
	}

	current := int(a.steps.Load())
	if current == a.lastSaved {
		return
	}

	if err := a.persist(current, today); err != nil {
		persistErrorCounter.Inc()
		a.logger.Printf("persist failed: %v", err)
		return
	}
	a.lastSaved = current
	persistCounter.Inc()
	currentStepsGauge.Set(float64(current))

	a.broadcast.Publish(domain.StepUpdate{CurrentStepCount: current})

	if a.surface != nil {
		a.surface.Update("Step Counter", fmt.Sprintf("Current steps: %d", current))
	}

	if a.publisher != nil && shouldUpload(current, a.cursor, now, a.thresholds) {
		a.upload(ctx, current)
		a.cursor = domain.UploadCursor{LastUploadedSteps: current, LastUploadTime: now}
	}
}

// upload issues the remote write without blocking the loop on its outcome.
func (a *Aggregator) upload(ctx context.Context, steps int) {
	uploadCounter.Inc()
	go func() {
		uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := a.publisher.PublishSteps(uploadCtx, steps); err != nil {
			uploadErrorCounter.Inc()
			a.logger.Printf("upload failed: %v", err)
		}
	}()
}

func (a *Aggregator) persist(steps int, date string) error {
	return a.store.PutAll(map[string]string{
		counterstore.KeyCurrentSteps:  counterstore.FormatInt(steps),
		counterstore.KeyLastSavedDate: date,
	})
}
