package client

import (
	"github.com/txn2/snowquery/pkg/cell"
	"github.com/txn2/snowquery/pkg/wire"
)

// Partition is one chunk of a result set: an ordered block of raw rows plus
// the shared schema. The typed and JSON views are computed fresh on each
// call from the retained raw data; they never mutate it.
type Partition struct {
	index  int
	schema []wire.ColumnMeta
	data   [][]*string
}

// Index returns the partition's position within the result set.
func (p *Partition) Index() int {
	return p.index
}

// NumRows returns the number of rows in this partition alone.
func (p *Partition) NumRows() int {
	return len(p.data)
}

// RawCells returns the rows exactly as the service sent them: stringified
// values with nil for NULL. Callers must treat the slices as read-only.
func (p *Partition) RawCells() [][]*string {
	return p.data
}

// Cells decodes every raw value into its typed form. The view is
// all-or-nothing: one undecodable cell fails the call with an error naming
// the column and value.
func (p *Partition) Cells() ([][]cell.Cell, error) {
	rows := make([][]cell.Cell, len(p.data))
	for i, raw := range p.data {
		row := make([]cell.Cell, len(raw))
		for j, value := range raw {
			decoded, err := cell.Decode(value, p.schema[j])
			if err != nil {
				return nil, err
			}
			row[j] = decoded
		}
		rows[i] = row
	}
	return rows, nil
}

// JSONTable returns the rows as slices of JSON-equivalent values: nil,
// numbers, strings and booleans, with temporals as ISO-8601 style strings.
func (p *Partition) JSONTable() ([][]any, error) {
	cells, err := p.Cells()
	if err != nil {
		return nil, err
	}
	rows := make([][]any, len(cells))
	for i, row := range cells {
		values := make([]any, len(row))
		for j, c := range row {
			values[j] = c.JSON()
		}
		rows[i] = values
	}
	return rows, nil
}

// JSONObjects returns one object per row, keyed by column name, values
// matching JSONTable at the same position.
func (p *Partition) JSONObjects() ([]map[string]any, error) {
	table, err := p.JSONTable()
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, len(table))
	for i, values := range table {
		obj := make(map[string]any, len(values))
		for j, v := range values {
			obj[p.schema[j].Name] = v
		}
		rows[i] = obj
	}
	return rows, nil
}
