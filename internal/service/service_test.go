package service

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mandaatsync/internal/config"
	"github.com/roach88/mandaatsync/internal/ir"
	"github.com/roach88/mandaatsync/internal/metrics"
	"github.com/roach88/mandaatsync/internal/reconcile"
	"github.com/roach88/mandaatsync/internal/testutil"
	"github.com/roach88/mandaatsync/internal/vocab"
)

const (
	id    = "http://data.lblod.info/id/"
	area  = "http://mu.semte.ch/graphs/organizations/o1/LoketLB-mandaatGebruiker"
	ref   = id + "mandatarissen/x1"
	post  = id + "mandaten/schepen1"
	graph = "http://mu.semte.ch/graphs/public"
)

func openService(t *testing.T, clock *ir.FixedClock) *Service {
	t.Helper()
	cfg, err := config.FromMap(map[string]string{
		"DB_PATH": filepath.Join(t.TempDir(), "svc.db"),
	})
	require.NoError(t, err)

	s, err := Open(cfg, Options{Clock: clock, IDs: ir.NewSequenceGenerator("id")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	staging := vocab.DefaultStagingGraph
	require.NoError(t, s.Store.Sudo().Insert(context.Background(),
		ir.NewQuad(graph, id+"bot1", vocab.HasPost, ir.IRI(post)),
		ir.NewQuad(graph, id+"bot1", vocab.TimeSpecialisationOf, ir.IRI(id+"bo1")),
		ir.NewQuad(graph, id+"bo1", vocab.Governs, ir.IRI(id+"o1")),
		ir.NewQuad(graph, id+"o1", vocab.UUID, ir.Literal("o1")),
		ir.NewQuad(staging, id+"b1", vocab.RatifiesAppointment, ir.IRI(ref)),
		ir.NewQuad(staging, ref, vocab.Type, ir.IRI(vocab.Mandataris)),
		ir.NewQuad(staging, ref, vocab.Holds, ir.IRI(post)),
		ir.NewQuad(staging, ref, vocab.AliasOf, ir.IRI(id+"p1")),
		ir.NewQuad(staging, ref, vocab.Start, ir.TypedLiteral("2024-06-01T00:00:00Z", ir.XSDDateTime)),
	))
	return s
}

func created(t *testing.T, s *Service) bool {
	t.Helper()
	pairs, err := s.Store.Sudo().Triples(context.Background(), area, ref)
	require.NoError(t, err)
	return len(pairs) > 0
}

const deltaBody = `[{"inserts":[{
  "graph":{"type":"uri","value":"http://mu.semte.ch/graphs/besluiten-consumed"},
  "subject":{"type":"uri","value":"http://data.lblod.info/id/b1"},
  "predicate":{"type":"uri","value":"http://mu.semte.ch/vocabularies/ext/bekrachtigtAanstellingVan"},
  "object":{"type":"uri","value":"http://data.lblod.info/id/mandatarissen/x1"}
}],"deletes":[]}]`

func send(t *testing.T, s *Service, path, body string) int {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec.Code
}

func TestDurablePath(t *testing.T) {
	clock := testutil.Clock(t, "2024-07-01T00:00:00Z")
	s := openService(t, clock)
	ctx := context.Background()

	assert.Equal(t, http.StatusNoContent, send(t, s, "/delta", deltaBody))
	s.Server.Wait()

	n, err := s.WorkQueue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	report, err := s.Scheduler.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Items, "buffer window not elapsed")

	clock.Advance(s.Config.BufferWindow + time.Second)
	report, err = s.Scheduler.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, reconcile.Created, report.Items[0].Outcome)
	assert.True(t, created(t, s))

	n, err = s.WorkQueue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestImmediatePath(t *testing.T) {
	s := openService(t, testutil.Clock(t, "2024-07-01T00:00:00Z"))

	assert.Equal(t, http.StatusNoContent, send(t, s, "/delta/immediate", deltaBody))
	s.Server.Wait()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Queue.Drain(ctx))

	assert.True(t, created(t, s))
}

func TestManualPath(t *testing.T) {
	s := openService(t, testutil.Clock(t, "2024-07-01T00:00:00Z"))

	assert.Equal(t, http.StatusAccepted, send(t, s, "/mandatarissen/reconcile", `{"mandatarissen":["`+ref+`"]}`))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Queue.Drain(ctx))

	assert.True(t, created(t, s))
}

func TestOpen_BadPath(t *testing.T) {
	cfg, err := config.FromMap(map[string]string{
		"DB_PATH": filepath.Join(t.TempDir(), "missing", "dir", "svc.db"),
	})
	require.NoError(t, err)
	_, err = Open(cfg, Options{})
	assert.Error(t, err)
}

func totalTicks(t *testing.T) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 16)
	metrics.Get().Ticks.Collect(ch)
	close(ch)
	var sum float64
	for m := range ch {
		var out dto.Metric
		require.NoError(t, m.Write(&out))
		sum += out.GetCounter().GetValue()
	}
	return sum
}

func TestRun_ListenFailureStopsScheduler(t *testing.T) {
	taken, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer taken.Close()
	port := taken.Addr().(*net.TCPAddr).Port

	cfg, err := config.FromMap(map[string]string{
		"DB_PATH":         filepath.Join(t.TempDir(), "svc.db"),
		"PORT":            strconv.Itoa(port),
		"SCHEDULE":        "@every 10ms",
		"METRICS_ENABLED": "false",
	})
	require.NoError(t, err)
	s, err := Open(cfg, Options{})
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = s.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http server")
	require.NoError(t, ctx.Err(), "Run must return on the listen failure, not the deadline")

	before := totalTicks(t)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, before, totalTicks(t))
}
