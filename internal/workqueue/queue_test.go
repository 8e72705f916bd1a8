package workqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mandaatsync/internal/ir"
	"github.com/roach88/mandaatsync/internal/queryir"
	"github.com/roach88/mandaatsync/internal/store"
	"github.com/roach88/mandaatsync/internal/testutil"
	"github.com/roach88/mandaatsync/internal/vocab"
)

func newQueue(t *testing.T, clock ir.Clock) (*Queue, *store.Store) {
	t.Helper()
	st := testutil.NewStore(t)
	q, err := New(st.Sudo(), Options{Clock: clock, IDs: ir.NewSequenceGenerator("e")})
	require.NoError(t, err)
	return q, st
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(nil, Options{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEnqueue_WritesEntryFacts(t *testing.T) {
	clock := testutil.Clock(t, "2024-06-01T10:00:00Z")
	q, st := newQueue(t, clock)
	ctx := context.Background()

	entries, err := q.Enqueue(ctx, []string{"http://data/m1", "http://data/m1", " ", "http://data/m2"})
	require.NoError(t, err)
	require.Len(t, entries, 2, "duplicates and blanks collapse")

	quads, err := st.Sudo().Graph(ctx, vocab.DefaultQueueGraph)
	require.NoError(t, err)
	assert.Len(t, quads, 4)

	pairs, err := st.Sudo().Triples(ctx, vocab.DefaultQueueGraph, vocab.QueueInstanceBase+"e-1")
	require.NoError(t, err)
	ref, ok := ir.First(pairs, vocab.QueuedMandataris)
	require.True(t, ok)
	assert.Equal(t, ir.IRI("http://data/m1"), ref)
	ts, ok := ir.First(pairs, vocab.QueueTime)
	require.True(t, ok)
	assert.Equal(t, "2024-06-01T10:00:00.000Z", ts.Value)
}

func TestEnqueue_Empty(t *testing.T) {
	q, _ := newQueue(t, nil)
	entries, err := q.Enqueue(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDue_RespectsBufferWindow(t *testing.T) {
	clock := testutil.Clock(t, "2024-06-01T10:00:00Z")
	q, _ := newQueue(t, clock)
	ctx := context.Background()
	window := 5 * time.Minute

	_, err := q.Enqueue(ctx, []string{"http://data/m1"})
	require.NoError(t, err)
	enqueuedAt := clock.Now()

	for _, offset := range []time.Duration{0, time.Minute, window - time.Millisecond, window} {
		due, err := q.Due(ctx, enqueuedAt.Add(offset).Add(-window), 0)
		require.NoError(t, err)
		assert.Empty(t, due, "selected %s after enqueue", offset)
	}

	due, err := q.Due(ctx, enqueuedAt.Add(window+time.Millisecond).Add(-window), 0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "http://data/m1", due[0].Ref)
}

func TestDue_LimitAndOrder(t *testing.T) {
	clock := testutil.Clock(t, "2024-06-01T10:00:00Z")
	q, _ := newQueue(t, clock)
	ctx := context.Background()

	for _, ref := range []string{"http://data/c", "http://data/a", "http://data/b"} {
		_, err := q.Enqueue(ctx, []string{ref})
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	due, err := q.Due(ctx, clock.Now(), 2)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "http://data/c", due[0].Ref)
	assert.Equal(t, "http://data/a", due[1].Ref)
}

func TestDue_UnreadableTimeIsDue(t *testing.T) {
	q, st := newQueue(t, nil)
	ctx := context.Background()

	require.NoError(t, st.Sudo().Insert(ctx,
		ir.NewQuad(q.Graph(), "http://q/x", vocab.QueuedMandataris, ir.IRI("http://data/m1")),
		ir.NewQuad(q.Graph(), "http://q/x", vocab.QueueTime, ir.Literal("not a time")),
	))

	due, err := q.Due(ctx, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), 0)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestRemove(t *testing.T) {
	q, _ := newQueue(t, nil)
	ctx := context.Background()

	entries, err := q.Enqueue(ctx, []string{"http://data/m1", "http://data/m2"})
	require.NoError(t, err)

	require.NoError(t, q.Remove(ctx, entries[:1]))
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, q.Remove(ctx, nil))
}

func TestQueue_SurvivesReopen(t *testing.T) {
	path := t.TempDir() + "/q.db"
	ctx := context.Background()

	st, err := store.Open(path)
	require.NoError(t, err)
	q, err := New(st.Sudo(), Options{})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, []string{"http://data/m1"})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	q, err = New(st.Sudo(), Options{})
	require.NoError(t, err)
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type failingStore struct{ err error }

func (f failingStore) Select(context.Context, queryir.Query) ([]store.Binding, error) {
	return nil, f.err
}
func (f failingStore) Update(context.Context, store.Update) error { return f.err }
func (f failingStore) DeleteSubjects(context.Context, string, []string) error {
	return f.err
}

func TestQueue_PropagatesStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	q, err := New(failingStore{err: boom}, Options{})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = q.Enqueue(ctx, []string{"http://data/m1"})
	assert.ErrorIs(t, err, boom)
	_, err = q.Due(ctx, time.Now(), 1)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, q.Remove(ctx, []Entry{{Instance: "x"}}), boom)
}

func TestDue_SubMillisecondEnqueueTime(t *testing.T) {
	queued := time.Date(2024, 6, 1, 10, 0, 0, 900_000, time.UTC)
	q, _ := newQueue(t, ir.NewFixedClock(queued))
	ctx := context.Background()

	entries, err := q.Enqueue(ctx, []string{"http://data/m1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].QueuedAt.Before(queued))

	for _, cutoff := range []time.Time{queued.Add(-500 * time.Microsecond), queued} {
		due, err := q.Due(ctx, cutoff, 0)
		require.NoError(t, err)
		assert.Empty(t, due, "cutoff %s", cutoff.Format(time.RFC3339Nano))
	}

	due, err := q.Due(ctx, queued.Add(time.Millisecond), 0)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestStampTime(t *testing.T) {
	whole := time.Date(2024, 6, 1, 10, 0, 0, 5_000_000, time.UTC)
	assert.Equal(t, whole, stampTime(whole))
	assert.Equal(t, whole.Add(time.Millisecond), stampTime(whole.Add(time.Nanosecond)))
}
