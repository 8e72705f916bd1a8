// Package scheduler drains the durable work queue on a periodic schedule.
//
// Each wake-up loads the entries whose buffer window has passed, reconciles
// them one at a time with per-item failure isolation, and removes the whole
// batch once every entry was attempted. A wake-up that arrives while a batch
// is still running is dropped.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/roach88/mandaatsync/internal/ir"
	"github.com/roach88/mandaatsync/internal/logging"
	"github.com/roach88/mandaatsync/internal/metrics"
	"github.com/roach88/mandaatsync/internal/notify"
	"github.com/roach88/mandaatsync/internal/reconcile"
	"github.com/roach88/mandaatsync/internal/vocab"
	"github.com/roach88/mandaatsync/internal/workqueue"
)

var (
	// ErrBusy is returned by Tick while another batch is running.
	ErrBusy = errors.New("scheduler: batch already running")

	// ErrInvalidConfig is returned by New for unusable arguments.
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)

// State is the scheduler lifecycle state.
type State int32

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Queue is the work queue capability the scheduler needs.
type Queue interface {
	Due(ctx context.Context, cutoff time.Time, limit int) ([]workqueue.Entry, error)
	Remove(ctx context.Context, entries []workqueue.Entry) error
	Len(ctx context.Context) (int, error)
}

// Reconciler processes one reference.
type Reconciler interface {
	Reconcile(ctx context.Context, ref string) (reconcile.Result, error)
	OwningArea(ctx context.Context, ref string) (string, bool, error)
}

// Options configures a Scheduler.
type Options struct {
	// Schedule decides the wake-ups of Run.
	Schedule cron.Schedule
	// Interval between wake-ups when Schedule is nil.
	Interval time.Duration
	// BufferWindow is the minimum age of an entry before it is processed.
	BufferWindow time.Duration
	// BatchSize caps the entries loaded per wake-up.
	BatchSize int
	Clock     ir.Clock
	Logger    *logrus.Entry
}

func (o *Options) setDefaults() {
	if o.Interval == 0 {
		o.Interval = time.Minute
	}
	if o.Schedule == nil {
		o.Schedule = Every(o.Interval)
	}
	if o.BufferWindow == 0 {
		o.BufferWindow = 5 * time.Minute
	}
	if o.BatchSize == 0 {
		o.BatchSize = 100
	}
	if o.Clock == nil {
		o.Clock = ir.SystemClock{}
	}
	o.Logger = logging.OrNop(o.Logger)
}

// Item is the outcome of one attempted entry.
type Item struct {
	Entry   workqueue.Entry
	Outcome reconcile.Outcome
	Err     error
}

// Report summarizes one wake-up.
type Report struct {
	Items  []Item
	Failed int
}

// Scheduler runs batches against a queue.
type Scheduler struct {
	queue    Queue
	rec      Reconciler
	notifier notify.Notifier
	opts     Options
	state    atomic.Int32
}

// New creates a Scheduler.
func New(queue Queue, rec Reconciler, notifier notify.Notifier, opts Options) (*Scheduler, error) {
	if queue == nil || rec == nil || notifier == nil {
		return nil, fmt.Errorf("%w: queue, reconciler and notifier are required", ErrInvalidConfig)
	}
	if opts.Interval < 0 || opts.BufferWindow < 0 || opts.BatchSize < 0 {
		return nil, fmt.Errorf("%w: negative interval, window or batch size", ErrInvalidConfig)
	}
	opts.setDefaults()
	return &Scheduler{queue: queue, rec: rec, notifier: notifier, opts: opts}, nil
}

// State returns the current state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Tick runs one batch. It returns ErrBusy when a batch is already running.
func (s *Scheduler) Tick(ctx context.Context) (Report, error) {
	if !s.state.CompareAndSwap(int32(Idle), int32(Running)) {
		metrics.Get().Ticks.WithLabelValues("busy").Inc()
		return Report{}, ErrBusy
	}
	defer s.state.Store(int32(Idle))

	report, err := s.runBatch(ctx)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.Get().Ticks.WithLabelValues(result).Inc()
	if n, lenErr := s.queue.Len(ctx); lenErr == nil {
		metrics.Get().QueueDepth.Set(float64(n))
	}
	return report, err
}

func (s *Scheduler) runBatch(ctx context.Context) (Report, error) {
	cutoff := s.opts.Clock.Now().Add(-s.opts.BufferWindow)
	batch, err := s.queue.Due(ctx, cutoff, s.opts.BatchSize)
	if err != nil {
		return Report{}, fmt.Errorf("load batch: %w", err)
	}
	if len(batch) == 0 {
		return Report{}, nil
	}
	s.opts.Logger.WithField("entries", len(batch)).Info("scheduler: processing batch")

	var report Report
	for _, e := range batch {
		item := s.attempt(ctx, e)
		if item.Err != nil {
			report.Failed++
			s.reportFailure(ctx, item)
		}
		report.Items = append(report.Items, item)
	}

	if err := s.queue.Remove(ctx, batch); err != nil {
		return report, fmt.Errorf("remove batch: %w", err)
	}
	s.opts.Logger.WithFields(logrus.Fields{"entries": len(batch), "failed": report.Failed}).Info("scheduler: batch done")
	return report, nil
}

// attempt reconciles one entry, converting a panic into an error.
func (s *Scheduler) attempt(ctx context.Context, e workqueue.Entry) (item Item) {
	item.Entry = e
	defer func() {
		if r := recover(); r != nil {
			item.Err = fmt.Errorf("panic: %v", r)
		}
	}()
	res, err := s.rec.Reconcile(ctx, e.Ref)
	item.Outcome = res.Outcome
	item.Err = err
	return item
}

// reportFailure writes an error notification into the owning graph of the
// failed reference, when it can be resolved.
func (s *Scheduler) reportFailure(ctx context.Context, item Item) {
	log := s.opts.Logger.WithError(item.Err).WithField("mandataris", item.Entry.Ref)
	log.Error("scheduler: reconciliation failed")

	area, ok, err := s.owningArea(ctx, item.Entry.Ref)
	if err != nil || !ok {
		log.WithField("area_error", err).Warn("scheduler: no owning graph for failure notification")
		return
	}
	s.notifier.Notify(ctx, notify.Notification{
		Title:       "Fout bij verwerken besluit",
		Description: fmt.Sprintf("Mandataris %s kon niet verwerkt worden: %s", item.Entry.Ref, strings.TrimSpace(item.Err.Error())),
		Severity:    notify.Error,
		Graph:       area,
		Links:       []notify.Link{{Type: vocab.LinkMandataris, Ref: item.Entry.Ref}},
	})
}

func (s *Scheduler) owningArea(ctx context.Context, ref string) (area string, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			area, ok, err = "", false, fmt.Errorf("panic: %v", r)
		}
	}()
	return s.rec.OwningArea(ctx, ref)
}

// Run wakes on Schedule until ctx is done. Busy and failed ticks are
// logged. Wake-ups follow the wall clock, not Options.Clock.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		now := time.Now()
		next := s.opts.Schedule.Next(now)
		if next.IsZero() {
			return fmt.Errorf("%w: schedule never fires", ErrInvalidConfig)
		}
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := s.Tick(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if errors.Is(err, ErrBusy) {
				s.opts.Logger.Debug("scheduler: previous batch still running, wake-up dropped")
				continue
			}
			s.opts.Logger.WithError(err).Warn("scheduler: tick failed")
		}
	}
}

// every wakes a fixed delay after the previous wake-up. cron.Every rounds
// down to whole seconds; every keeps the duration as given.
type every time.Duration

func (e every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

// Every returns a schedule firing d after each wake-up.
func Every(d time.Duration) cron.Schedule {
	return every(d)
}

// ParseSchedule parses a schedule expression: a standard five-field cron
// expression, a descriptor such as "@hourly" or "@daily", "@every <duration>",
// or a bare Go duration.
func ParseSchedule(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: empty schedule", ErrInvalidConfig)
	}

	raw, isEvery := strings.CutPrefix(expr, "@every")
	if d, err := time.ParseDuration(strings.TrimSpace(raw)); err == nil {
		if d <= 0 {
			return nil, fmt.Errorf("%w: schedule %q must be positive", ErrInvalidConfig, expr)
		}
		return Every(d), nil
	} else if isEvery {
		return nil, fmt.Errorf("%w: schedule %q: %v", ErrInvalidConfig, expr, err)
	}

	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: schedule %q: %v", ErrInvalidConfig, expr, err)
	}
	return sched, nil
}
