package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/snowquery/pkg/wire"
)

// multiPartitionServer serves a 3-partition result with one VAL text column.
// Partition rows are labelled "p<index>r<row>". Per-partition delays let
// tests force a completion order different from index order.
type multiPartitionServer struct {
	t      *testing.T
	cols   []wire.ColumnMeta
	delays map[int]time.Duration
	fail   map[int]bool

	mu        sync.Mutex
	hits      map[int]int
	completed []int
}

func newMultiPartitionServer(t *testing.T) *multiPartitionServer {
	return &multiPartitionServer{
		t:      t,
		cols:   []wire.ColumnMeta{textCol("VAL")},
		delays: map[int]time.Duration{},
		fail:   map[int]bool{},
		hits:   map[int]int{},
	}
}

func (s *multiPartitionServer) rows(index int) [][]*string {
	return [][]*string{
		{sp("p" + strconv.Itoa(index) + "r0")},
		{sp("p" + strconv.Itoa(index) + "r1")},
	}
}

func (s *multiPartitionServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		_, _ = w.Write(queryResponseBody(s.t, s.cols, s.rows(0), 6, 3, "h-1"))
		return
	}

	index, err := strconv.Atoi(r.URL.Query().Get("partition"))
	require.NoError(s.t, err)
	time.Sleep(s.delays[index])

	s.mu.Lock()
	s.hits[index]++
	s.completed = append(s.completed, index)
	failNow := s.fail[index]
	s.mu.Unlock()

	if failNow {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"000605","message":"partition gone"}`))
		return
	}
	_, _ = w.Write(partitionResponseBody(s.t, s.cols, s.rows(index)))
}

func (s *multiPartitionServer) hitCount(index int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[index]
}

func flatten(t *testing.T, rs *ResultSet, ctx context.Context) []string {
	t.Helper()
	cells, err := rs.Cells(ctx)
	require.NoError(t, err)
	out := make([]string, len(cells))
	for i, row := range cells {
		v, ok := row[0].Varchar()
		require.True(t, ok)
		out[i] = v
	}
	return out
}

func TestFetchAll_AssemblesByIndexNotCompletionOrder(t *testing.T) {
	fake := newMultiPartitionServer(t)
	// Partition 1 completes last, partition 2 first.
	fake.delays[1] = 80 * time.Millisecond
	fake.delays[2] = 0

	srv := httptest.NewServer(fake)
	defer srv.Close()

	rs, err := newTestClient(t, srv).Prepare("SELECT val FROM t").Query(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, rs.NumPartitions())

	got := flatten(t, rs, context.Background())
	assert.Equal(t, []string{"p0r0", "p0r1", "p1r0", "p1r1", "p2r0", "p2r1"}, got)

	fake.mu.Lock()
	completed := append([]int(nil), fake.completed...)
	fake.mu.Unlock()
	assert.Equal(t, []int{2, 1}, completed, "partition 2 should have completed before 1")
}

func TestPartition_CachedAfterFirstFetch(t *testing.T) {
	fake := newMultiPartitionServer(t)
	srv := httptest.NewServer(fake)
	defer srv.Close()

	rs, err := newTestClient(t, srv).Prepare("SELECT val FROM t").Query(context.Background())
	require.NoError(t, err)

	p, err := rs.Partition(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Index())
	assert.Equal(t, 2, p.NumRows())

	_, err = rs.Partition(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.hitCount(2), "second access must be served from memory")

	// Partition 0 never touches the network.
	_, err = rs.Partition(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, fake.hitCount(0))
}

func TestPartition_IndexOutOfRange(t *testing.T) {
	fake := newMultiPartitionServer(t)
	srv := httptest.NewServer(fake)
	defer srv.Close()

	rs, err := newTestClient(t, srv).Prepare("SELECT val FROM t").Query(context.Background())
	require.NoError(t, err)

	for _, index := range []int{-1, 3} {
		_, err := rs.Partition(context.Background(), index)
		var fetchErr *PartitionFetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, index, fetchErr.Index)
	}
}

func TestFetchAll_FailureIdentifiesIndexAndPreservesOthers(t *testing.T) {
	fake := newMultiPartitionServer(t)
	fake.fail[2] = true
	// Make sure partition 1 lands before the failure cancels the group.
	fake.delays[2] = 40 * time.Millisecond

	srv := httptest.NewServer(fake)
	defer srv.Close()

	rs, err := newTestClient(t, srv).Prepare("SELECT val FROM t").Query(context.Background())
	require.NoError(t, err)

	_, err = rs.Cells(context.Background())
	var fetchErr *PartitionFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 2, fetchErr.Index)

	// The partition fetched before the failure is cached, not corrupted:
	// asking for it again does not hit the service.
	hits := fake.hitCount(1)
	p, err := rs.Partition(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, [][]*string{{sp("p1r0")}, {sp("p1r1")}}, p.RawCells())
	assert.Equal(t, hits, fake.hitCount(1))
}

func TestOnlyPartition(t *testing.T) {
	single := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(queryResponseBody(t,
			[]wire.ColumnMeta{textCol("VAL")},
			[][]*string{{sp("a")}, {sp("b")}},
			2, 1, "h-1"))
	}))
	defer single.Close()

	rs, err := newTestClient(t, single).Prepare("SELECT val FROM t").Query(context.Background())
	require.NoError(t, err)

	p, err := rs.OnlyPartition()
	require.NoError(t, err)
	assert.Equal(t, 0, p.Index())
	assert.Equal(t, [][]*string{{sp("a")}, {sp("b")}}, p.RawCells())
}

func TestOnlyPartition_MultiplePartitionsIsError(t *testing.T) {
	fake := newMultiPartitionServer(t)
	srv := httptest.NewServer(fake)
	defer srv.Close()

	rs, err := newTestClient(t, srv).Prepare("SELECT val FROM t").Query(context.Background())
	require.NoError(t, err)

	_, err = rs.OnlyPartition()
	var countErr *PartitionCountError
	require.ErrorAs(t, err, &countErr)
	assert.Equal(t, 3, countErr.Count)
}

func TestJSONViews_AcrossPartitions(t *testing.T) {
	fake := newMultiPartitionServer(t)
	srv := httptest.NewServer(fake)
	defer srv.Close()

	rs, err := newTestClient(t, srv).Prepare("SELECT val FROM t").Query(context.Background())
	require.NoError(t, err)

	table, err := rs.JSONTable(context.Background())
	require.NoError(t, err)
	require.Len(t, table, 6)
	assert.Equal(t, []any{"p0r0"}, table[0])
	assert.Equal(t, []any{"p2r1"}, table[5])

	objects, err := rs.JSONObjects(context.Background())
	require.NoError(t, err)
	require.Len(t, objects, 6)
	for i, obj := range objects {
		require.Len(t, obj, 1)
		assert.Equal(t, table[i][0], obj["VAL"], "object value must match table at row %d", i)
	}
}

func TestPartitionViews_TypedAndJSON(t *testing.T) {
	scale2 := 2
	cols := []wire.ColumnMeta{
		fixedCol("ID", 0),
		{Name: "PRICE", Type: wire.TypeFixed, Scale: &scale2},
		textCol("NAME"),
		{Name: "OK", Type: wire.TypeBoolean},
	}
	data := [][]*string{
		{sp("1"), sp("9.99"), sp("Henry"), sp("true")},
		{sp("2"), nil, nil, sp("false")},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(queryResponseBody(t, cols, data, 2, 1, "h-1"))
	}))
	defer srv.Close()

	rs, err := newTestClient(t, srv).Prepare("SELECT * FROM t").Query(context.Background())
	require.NoError(t, err)
	p, err := rs.OnlyPartition()
	require.NoError(t, err)

	cells, err := p.Cells()
	require.NoError(t, err)
	id, ok := cells[0][0].Int64()
	require.True(t, ok)
	assert.Equal(t, int64(1), id)
	price, ok := cells[0][1].Float()
	require.True(t, ok)
	assert.Equal(t, 9.99, price)
	assert.True(t, cells[1][1].IsNull())
	assert.True(t, cells[1][2].IsNull())

	objects, err := p.JSONObjects()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ID": int64(1), "PRICE": 9.99, "NAME": "Henry", "OK": true}, objects[0])
	assert.Equal(t, map[string]any{"ID": int64(2), "PRICE": nil, "NAME": nil, "OK": false}, objects[1])
}

func TestPartitionViews_DecodeFailureFailsWholeView(t *testing.T) {
	cols := []wire.ColumnMeta{fixedCol("N", 0)}
	data := [][]*string{{sp("1")}, {sp("bogus")}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(queryResponseBody(t, cols, data, 2, 1, "h-1"))
	}))
	defer srv.Close()

	rs, err := newTestClient(t, srv).Prepare("SELECT n FROM t").Query(context.Background())
	require.NoError(t, err)

	_, err = rs.Cells(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"bogus"`)

	// The raw data is still intact for callers that can tolerate it.
	p, err := rs.OnlyPartition()
	require.NoError(t, err)
	assert.Equal(t, data, p.RawCells())
}
