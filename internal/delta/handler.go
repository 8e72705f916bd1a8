package delta

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/roach88/mandaatsync/internal/logging"
	"github.com/roach88/mandaatsync/internal/metrics"
)

// Sink receives the references selected from one delivery.
type Sink func(ctx context.Context, refs []string) error

// Intake is the HTTP endpoint for delta deliveries. It answers before the
// sink completes; sink errors are logged.
type Intake struct {
	filter Filter
	sink   Sink
	path   string
	log    *logrus.Entry
	wg     sync.WaitGroup
}

// NewIntake creates an Intake. path labels metrics and log lines
// ("durable" or "immediate").
func NewIntake(filter Filter, sink Sink, path string, log *logrus.Entry) *Intake {
	return &Intake{
		filter: filter,
		sink:   sink,
		path:   path,
		log:    logging.OrNop(log).WithField("path", path),
	}
}

// ServeHTTP decodes the change-sets, responds 204 and hands the references
// to the sink in the background.
func (in *Intake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var changes []ChangeSet
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		http.Error(w, "invalid delta body: "+err.Error(), http.StatusBadRequest)
		return
	}

	refs := in.filter.Refs(changes)
	w.WriteHeader(http.StatusNoContent)
	if len(refs) == 0 {
		return
	}

	metrics.Get().Enqueued.WithLabelValues(in.path).Add(float64(len(refs)))
	ctx := context.WithoutCancel(r.Context())
	in.wg.Add(1)
	go func() {
		defer in.wg.Done()
		if err := in.sink(ctx, refs); err != nil {
			in.log.WithError(err).WithField("refs", len(refs)).Error("delta: handing off references failed")
			return
		}
		in.log.WithField("refs", len(refs)).Debug("delta: references handed off")
	}()
}

// Wait blocks until every background hand-off has finished.
func (in *Intake) Wait() {
	in.wg.Wait()
}
