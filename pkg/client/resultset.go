package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/txn2/snowquery/pkg/cell"
	"github.com/txn2/snowquery/pkg/wire"
)

// ResultSet is the outcome of one executed query: the column schema,
// partition 0, and handles to fetch the remaining partitions. Row order is
// defined by ascending partition index; rows within a partition keep the
// order the service returned them in.
type ResultSet struct {
	client        *Client
	meta          wire.ResultSetMetaData
	statusURL     string
	handle        string
	numPartitions int

	mu         sync.Mutex
	partitions []*Partition
}

// NumRows returns the total row count across all partitions.
func (r *ResultSet) NumRows() int {
	return r.meta.NumRows
}

// NumColumns returns the number of columns.
func (r *ResultSet) NumColumns() int {
	return len(r.meta.RowType)
}

// NumPartitions returns the number of partitions the result is split into.
func (r *ResultSet) NumPartitions() int {
	return r.numPartitions
}

// Handle returns the opaque statement handle correlating this execution to
// partition fetches.
func (r *ResultSet) Handle() string {
	return r.handle
}

// Schema returns the column metadata. Callers must treat it as read-only;
// it is shared by every partition of the execution.
func (r *ResultSet) Schema() []wire.ColumnMeta {
	return r.meta.RowType
}

// OnlyPartition asserts the result fits in a single partition and returns
// it. This never causes IO; a result with any other partition count is a
// PartitionCountError.
func (r *ResultSet) OnlyPartition() (*Partition, error) {
	if r.numPartitions != 1 {
		return nil, &PartitionCountError{Count: r.numPartitions}
	}
	return r.partitions[0], nil
}

// Partition returns the partition at the given index, fetching it from the
// service if it has not been retrieved yet. Partition 0 is always served
// from memory. Fetches for distinct indices are independent and may be
// issued concurrently.
func (r *ResultSet) Partition(ctx context.Context, index int) (*Partition, error) {
	if index < 0 || index >= r.numPartitions {
		return nil, &PartitionFetchError{
			Index: index,
			Err:   fmt.Errorf("index out of range, result set has %d partitions", r.numPartitions),
		}
	}

	r.mu.Lock()
	if p := r.partitions[index]; p != nil {
		r.mu.Unlock()
		return p, nil
	}
	r.mu.Unlock()

	// Fetch outside the lock. Two callers racing on the same index both
	// fetch; the data is identical and one result wins the cache slot.
	p, err := r.fetch(ctx, index)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if cached := r.partitions[index]; cached != nil {
		p = cached
	} else {
		r.partitions[index] = p
	}
	r.mu.Unlock()
	return p, nil
}

func (r *ResultSet) fetch(ctx context.Context, index int) (*Partition, error) {
	url := fmt.Sprintf("%s%s?partition=%d", r.client.host, r.statusURL, index)
	var resp wire.QueryResponse
	if err := r.client.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, &PartitionFetchError{Index: index, Err: err}
	}
	if err := checkRowShape(resp.Data, len(r.meta.RowType)); err != nil {
		return nil, &PartitionFetchError{Index: index, Err: err}
	}
	r.client.log.DebugContext(ctx, "fetched partition", "index", index, "rows", len(resp.Data))
	return &Partition{index: index, schema: r.meta.RowType, data: resp.Data}, nil
}

// FetchAll retrieves every partition, issuing the remaining fetches
// concurrently, and returns them in ascending index order regardless of
// completion order. A single failed fetch fails the call but leaves the
// successfully fetched partitions cached on the result set.
func (r *ResultSet) FetchAll(ctx context.Context) ([]*Partition, error) {
	out := make([]*Partition, r.numPartitions)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < r.numPartitions; i++ {
		i := i
		g.Go(func() error {
			p, err := r.Partition(ctx, i)
			if err != nil {
				return err
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Cells fetches all partitions and decodes every cell, concatenating rows
// in partition order. A single decode failure fails the whole view.
func (r *ResultSet) Cells(ctx context.Context) ([][]cell.Cell, error) {
	parts, err := r.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([][]cell.Cell, 0, r.meta.NumRows)
	for _, p := range parts {
		decoded, err := p.Cells()
		if err != nil {
			return nil, err
		}
		rows = append(rows, decoded...)
	}
	return rows, nil
}

// JSONTable fetches all partitions and returns rows as slices of
// JSON-equivalent values in column order.
func (r *ResultSet) JSONTable(ctx context.Context) ([][]any, error) {
	parts, err := r.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([][]any, 0, r.meta.NumRows)
	for _, p := range parts {
		table, err := p.JSONTable()
		if err != nil {
			return nil, err
		}
		rows = append(rows, table...)
	}
	return rows, nil
}

// JSONObjects fetches all partitions and returns one column-name-keyed
// object per row.
func (r *ResultSet) JSONObjects(ctx context.Context) ([]map[string]any, error) {
	parts, err := r.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0, r.meta.NumRows)
	for _, p := range parts {
		objects, err := p.JSONObjects()
		if err != nil {
			return nil, err
		}
		rows = append(rows, objects...)
	}
	return rows, nil
}
