package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/roach88/mandaatsync/internal/logging"
)

var (
	// ErrNoConsumer is returned by NewQueue when no consumer is given.
	ErrNoConsumer = errors.New("engine: queue requires a consumer")

	// ErrClosed is returned by Enqueue after Close.
	ErrClosed = errors.New("engine: queue closed")
)

// Consumer processes one item.
type Consumer[T any] func(ctx context.Context, item T) error

// Option configures a Queue.
type Option func(*options)

type options struct {
	log *logrus.Entry
	ctx context.Context
}

// WithLogger sets the logger used for consumer failures.
func WithLogger(l *logrus.Entry) Option {
	return func(o *options) { o.log = l }
}

// WithContext sets the context passed to the consumer.
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// Queue is a single-consumer, memory-resident FIFO with a manual side list.
//
// Thread-safety: all methods may be called from any goroutine.
type Queue[T any] struct {
	consume Consumer[T]
	key     func(T) string
	log     *logrus.Entry
	ctx     context.Context

	mu      sync.Mutex
	items   []T
	waiting map[string]struct{}
	manual  []T
	running bool
	closed  bool
	idle    chan struct{} // closed when the worker exits
}

// NewQueue creates a queue that feeds consume. key identifies items for
// deduplication.
func NewQueue[T any](consume Consumer[T], key func(T) string, opts ...Option) (*Queue[T], error) {
	if consume == nil {
		return nil, ErrNoConsumer
	}
	if key == nil {
		return nil, fmt.Errorf("%w: key function is required", ErrNoConsumer)
	}
	o := options{ctx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}

	idle := make(chan struct{})
	close(idle)
	return &Queue[T]{
		consume: consume,
		key:     key,
		log:     logging.OrNop(o.log),
		ctx:     o.ctx,
		waiting: make(map[string]struct{}),
		idle:    idle,
	}, nil
}

// Enqueue appends items not already waiting and starts the worker if needed.
// Returns the number of items added.
func (q *Queue[T]) Enqueue(items ...T) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, ErrClosed
	}
	added := q.pushLocked(items)
	q.startLocked()
	return added, nil
}

// AddManual stores items on the manual side list without starting work.
func (q *Queue[T]) AddManual(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.manual = append(q.manual, items...)
}

// MergeManual moves the manual side list into the FIFO and starts the worker.
// Returns the number of items added.
func (q *Queue[T]) MergeManual() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, ErrClosed
	}
	manual := q.manual
	q.manual = nil
	added := q.pushLocked(manual)
	q.startLocked()
	return added, nil
}

func (q *Queue[T]) pushLocked(items []T) int {
	added := 0
	for _, it := range items {
		k := q.key(it)
		if _, ok := q.waiting[k]; ok {
			continue
		}
		q.waiting[k] = struct{}{}
		q.items = append(q.items, it)
		added++
	}
	return added
}

func (q *Queue[T]) startLocked() {
	if q.running || len(q.items) == 0 {
		return
	}
	q.running = true
	q.idle = make(chan struct{})
	go q.work(q.idle)
}

// work executes items until the FIFO is empty.
func (q *Queue[T]) work(idle chan struct{}) {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.running = false
			close(idle)
			q.mu.Unlock()
			return
		}
		it := q.items[0]
		var zero T
		q.items[0] = zero
		q.items = q.items[1:]
		delete(q.waiting, q.key(it))
		q.mu.Unlock()

		q.execute(it)
	}
}

func (q *Queue[T]) execute(it T) {
	log := q.log.WithField("item", q.key(it))
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("engine: consumer panicked")
		}
	}()
	if err := q.consume(q.ctx, it); err != nil {
		log.WithError(err).Error("engine: consumer failed")
	}
}

// Len returns the number of items waiting in the FIFO.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// ManualLen returns the number of items on the manual side list.
func (q *Queue[T]) ManualLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.manual)
}

// Running reports whether an item is being executed.
func (q *Queue[T]) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Drain blocks until the FIFO is empty and no item is executing.
func (q *Queue[T]) Drain(ctx context.Context) error {
	for {
		q.mu.Lock()
		idle := q.idle
		done := !q.running && len(q.items) == 0
		q.mu.Unlock()
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle:
		}
	}
}

// Close stops accepting new items. Items already waiting still run.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
