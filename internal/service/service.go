// Package service wires the pipeline from configuration: store, durable
// work queue, reconciliation engine, notification sink, batch scheduler,
// in-process queue and HTTP server.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roach88/mandaatsync/internal/config"
	"github.com/roach88/mandaatsync/internal/delta"
	"github.com/roach88/mandaatsync/internal/engine"
	"github.com/roach88/mandaatsync/internal/ir"
	"github.com/roach88/mandaatsync/internal/logging"
	"github.com/roach88/mandaatsync/internal/notify"
	"github.com/roach88/mandaatsync/internal/reconcile"
	"github.com/roach88/mandaatsync/internal/scheduler"
	"github.com/roach88/mandaatsync/internal/server"
	"github.com/roach88/mandaatsync/internal/store"
	"github.com/roach88/mandaatsync/internal/workqueue"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP server and queue.
const ShutdownTimeout = 10 * time.Second

// Options overrides collaborators, mostly for tests.
type Options struct {
	Clock  ir.Clock
	IDs    ir.IDGenerator
	Logger *logrus.Entry
}

// Service is the wired pipeline.
type Service struct {
	Config    *config.Configuration
	Store     *store.Store
	Sink      *notify.Sink
	Engine    *reconcile.Engine
	WorkQueue *workqueue.Queue
	Scheduler *scheduler.Scheduler
	Queue     *engine.Queue[string]
	Server    *server.Server

	log *logrus.Entry
}

// Open opens the store and wires every component.
func Open(cfg *config.Configuration, opts Options) (*Service, error) {
	log := logging.OrNop(opts.Logger)
	if opts.Clock == nil {
		opts.Clock = ir.SystemClock{}
	}
	if opts.IDs == nil {
		opts.IDs = ir.UUIDv7Generator{}
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	s, err := wire(cfg, st, opts, log)
	if err != nil {
		st.Close()
		return nil, err
	}
	return s, nil
}

func wire(cfg *config.Configuration, st *store.Store, opts Options, log *logrus.Entry) (*Service, error) {
	s := &Service{Config: cfg, Store: st, log: log}
	client := st.Sudo()

	s.Sink = notify.NewSink(client, notify.Options{
		Clock:  opts.Clock,
		IDs:    opts.IDs,
		Logger: log.WithField("component", "notify"),
	})

	var err error
	if s.Engine, err = reconcile.New(client, s.Sink, reconcile.Options{
		StagingGraph: cfg.StagingGraph,
		AreaTemplate: cfg.AreaTemplate,
		Clock:        opts.Clock,
		Logger:       log.WithField("component", "reconcile"),
	}); err != nil {
		return nil, err
	}

	if s.WorkQueue, err = workqueue.New(client, workqueue.Options{
		Graph:  cfg.QueueGraph,
		Clock:  opts.Clock,
		IDs:    opts.IDs,
		Logger: log.WithField("component", "workqueue"),
	}); err != nil {
		return nil, err
	}

	if s.Scheduler, err = scheduler.New(s.WorkQueue, s.Engine, s.Sink, scheduler.Options{
		Schedule:     cfg.WakeSchedule(),
		BufferWindow: cfg.BufferWindow,
		BatchSize:    cfg.BatchSize,
		Clock:        opts.Clock,
		Logger:       log.WithField("component", "scheduler"),
	}); err != nil {
		return nil, err
	}

	queueLog := log.WithField("component", "queue")
	if s.Queue, err = engine.NewQueue(s.reconcileNow, func(ref string) string { return ref },
		engine.WithLogger(queueLog)); err != nil {
		return nil, err
	}

	if s.Server, err = server.New(server.Options{
		Filter: delta.Filter{StagingGraph: cfg.StagingGraph},
		Durable: func(ctx context.Context, refs []string) error {
			_, err := s.WorkQueue.Enqueue(ctx, refs)
			return err
		},
		Queue:   s.Queue,
		Health:  st.Ping,
		Metrics: cfg.MetricsEnabled,
		Logger:  log.WithField("component", "server"),
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// reconcileNow is the in-process queue consumer.
func (s *Service) reconcileNow(ctx context.Context, ref string) error {
	res, err := s.Engine.Reconcile(ctx, ref)
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"mandataris": ref, "outcome": res.Outcome}).Debug("service: immediate reconcile done")
	return nil
}

// Run serves HTTP and runs the scheduler until ctx is done, then shuts down
// gracefully.
func (s *Service) Run(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	srv := &http.Server{
		Addr:              s.Config.Addr(),
		Handler:           s.Server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 2)
	go func() {
		s.log.WithField("addr", srv.Addr).Info("service: listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http server: %w", err)
		}
	}()
	scheduled := make(chan struct{})
	go func() {
		defer close(scheduled)
		if err := s.Scheduler.Run(ctx); err != nil && ctx.Err() == nil {
			errs <- fmt.Errorf("scheduler: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errs:
	}
	stop()
	<-scheduled

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.WithError(err).Warn("service: http shutdown")
	}
	s.Server.Wait()
	s.Queue.Close()
	if err := s.Queue.Drain(shutdownCtx); err != nil {
		s.log.WithError(err).Warn("service: in-process queue not drained")
	}
	s.log.Info("service: stopped")
	return runErr
}

// Close releases the store.
func (s *Service) Close() error {
	return s.Store.Close()
}
