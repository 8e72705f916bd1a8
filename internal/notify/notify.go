// Package notify writes audit notifications into organization graphs.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/roach88/mandaatsync/internal/ir"
	"github.com/roach88/mandaatsync/internal/logging"
	"github.com/roach88/mandaatsync/internal/metrics"
	"github.com/roach88/mandaatsync/internal/store"
	"github.com/roach88/mandaatsync/internal/vocab"
)

// Severity is the notification type code.
type Severity string

const (
	Info    Severity = "info"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Link points a notification at one related entity.
type Link struct {
	Type string // e.g. vocab.LinkMandataris
	Ref  string
}

// Notification is one audit entry.
type Notification struct {
	Title       string
	Description string
	Severity    Severity
	Graph       string
	Links       []Link
}

// Notifier is implemented by Sink.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Updater is the store capability the sink needs.
type Updater interface {
	Update(ctx context.Context, u store.Update) error
}

// Options configures a Sink.
type Options struct {
	Clock  ir.Clock
	IDs    ir.IDGenerator
	Logger *logrus.Entry
}

// Sink writes notifications as facts.
type Sink struct {
	st   Updater
	opts Options
}

// NewSink creates a Sink over st.
func NewSink(st Updater, opts Options) *Sink {
	if opts.Clock == nil {
		opts.Clock = ir.SystemClock{}
	}
	if opts.IDs == nil {
		opts.IDs = ir.UUIDv7Generator{}
	}
	opts.Logger = logging.OrNop(opts.Logger)
	return &Sink{st: st, opts: opts}
}

// Quads returns the facts representing n.
func (s *Sink) Quads(n Notification) ([]ir.Quad, error) {
	if n.Graph == "" {
		return nil, errors.New("notification graph is required")
	}
	switch n.Severity {
	case Info, Warning, Error:
	default:
		return nil, fmt.Errorf("unknown severity %q", n.Severity)
	}

	id := s.opts.IDs.Generate()
	subject := vocab.NotificationBase + id
	g := n.Graph
	quads := []ir.Quad{
		ir.NewQuad(g, subject, vocab.Type, ir.IRI(vocab.SystemNotification)),
		ir.NewQuad(g, subject, vocab.UUID, ir.Literal(id)),
		ir.NewQuad(g, subject, vocab.Subject, ir.Literal(n.Title)),
		ir.NewQuad(g, subject, vocab.Description, ir.Literal(n.Description)),
		ir.NewQuad(g, subject, vocab.Created, ir.DateTime(s.opts.Clock.Now())),
		ir.NewQuad(g, subject, vocab.NotificationType, ir.Literal(string(n.Severity))),
	}
	for _, l := range n.Links {
		linkID := s.opts.IDs.Generate()
		link := vocab.NotificationLinkBase + linkID
		quads = append(quads,
			ir.NewQuad(g, subject, vocab.NotificationLink, ir.IRI(link)),
			ir.NewQuad(g, link, vocab.Type, ir.IRI(vocab.SystemNotificationLink)),
			ir.NewQuad(g, link, vocab.UUID, ir.Literal(linkID)),
			ir.NewQuad(g, link, vocab.LinkedType, ir.Literal(l.Type)),
			ir.NewQuad(g, link, vocab.LinkedTo, ir.IRI(l.Ref)),
		)
	}
	return quads, nil
}

// Write stores n in one update.
func (s *Sink) Write(ctx context.Context, n Notification) error {
	quads, err := s.Quads(n)
	if err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	if err := s.st.Update(ctx, store.Update{Inserts: quads}); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	metrics.Get().Notifications.WithLabelValues(string(n.Severity)).Inc()
	return nil
}

// Notify writes n and logs a failure instead of returning it.
func (s *Sink) Notify(ctx context.Context, n Notification) {
	if err := s.Write(ctx, n); err != nil {
		s.opts.Logger.WithError(err).WithFields(logrus.Fields{
			"graph":    n.Graph,
			"severity": n.Severity,
			"title":    n.Title,
		}).Error("notify: failed to write notification")
	}
}
