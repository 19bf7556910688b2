package client

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/txn2/snowquery/pkg/wire"
)

// Statement is a SQL template plus an ordered list of bind values. The
// template is fixed at Prepare time; bindings are appended with Bind. A
// statement does not touch the network until Query or Execute.
type Statement struct {
	client  *Client
	req     wire.StatementRequest
	bindErr error
}

// Prepare creates a statement for the given SQL template. Placeholders are
// positional question marks, bound in order with Bind. This is infallible:
// nothing is sent and the SQL is not validated locally.
func (c *Client) Prepare(sql string) *Statement {
	return &Statement{
		client: c,
		req: wire.StatementRequest{
			Statement: sql,
			Database:  c.database,
			Warehouse: c.warehouse,
			Role:      c.role,
		},
	}
}

// Bind appends one bind value for the next positional placeholder and
// returns the statement for chaining. Accepted types are booleans, signed
// and unsigned integers, *big.Int, floats, strings, byte slices (sent hex
// encoded) and time.Time. An unsupported type is reported when the
// statement is submitted.
//
// Binding count is not checked against the placeholder count locally; a
// mismatch is surfaced by the service as an execution error.
func (s *Statement) Bind(value any) *Statement {
	position := len(s.req.Bindings) + 1
	binding, ok := toBinding(value)
	if !ok {
		if s.bindErr == nil {
			s.bindErr = &BindingError{Position: position, Value: value}
		}
		return s
	}
	if s.req.Bindings == nil {
		s.req.Bindings = make(map[string]wire.Binding)
	}
	// The wire format keys bindings by 1-based position.
	s.req.Bindings[strconv.Itoa(position)] = binding
	return s
}

// WithTimeout asks the service to abort the statement after the given
// number of seconds.
func (s *Statement) WithTimeout(seconds int) *Statement {
	s.req.Timeout = seconds
	return s
}

func toBinding(value any) (wire.Binding, bool) {
	switch v := value.(type) {
	case bool:
		return wire.Binding{Type: wire.BindBoolean, Value: strconv.FormatBool(v)}, true
	case int:
		return wire.Binding{Type: wire.BindFixed, Value: strconv.FormatInt(int64(v), 10)}, true
	case int8:
		return wire.Binding{Type: wire.BindFixed, Value: strconv.FormatInt(int64(v), 10)}, true
	case int16:
		return wire.Binding{Type: wire.BindFixed, Value: strconv.FormatInt(int64(v), 10)}, true
	case int32:
		return wire.Binding{Type: wire.BindFixed, Value: strconv.FormatInt(int64(v), 10)}, true
	case int64:
		return wire.Binding{Type: wire.BindFixed, Value: strconv.FormatInt(v, 10)}, true
	case uint:
		return wire.Binding{Type: wire.BindFixed, Value: strconv.FormatUint(uint64(v), 10)}, true
	case uint8:
		return wire.Binding{Type: wire.BindFixed, Value: strconv.FormatUint(uint64(v), 10)}, true
	case uint16:
		return wire.Binding{Type: wire.BindFixed, Value: strconv.FormatUint(uint64(v), 10)}, true
	case uint32:
		return wire.Binding{Type: wire.BindFixed, Value: strconv.FormatUint(uint64(v), 10)}, true
	case uint64:
		return wire.Binding{Type: wire.BindFixed, Value: strconv.FormatUint(v, 10)}, true
	case *big.Int:
		return wire.Binding{Type: wire.BindFixed, Value: v.String()}, true
	case float32:
		return wire.Binding{Type: wire.BindReal, Value: strconv.FormatFloat(float64(v), 'g', -1, 32)}, true
	case float64:
		return wire.Binding{Type: wire.BindReal, Value: strconv.FormatFloat(v, 'g', -1, 64)}, true
	case string:
		return wire.Binding{Type: wire.BindText, Value: v}, true
	case []byte:
		return wire.Binding{Type: wire.BindText, Value: hex.EncodeToString(v)}, true
	case time.Time:
		return wire.Binding{Type: wire.BindTimestampNtz, Value: v.Format("2006-01-02 15:04:05.000000000")}, true
	default:
		return wire.Binding{}, false
	}
}

// Query submits the statement and returns a ResultSet holding the schema
// and the first partition. Remaining partitions are fetched on demand.
func (s *Statement) Query(ctx context.Context) (*ResultSet, error) {
	var resp wire.QueryResponse
	if err := s.submit(ctx, &resp); err != nil {
		return nil, err
	}

	schema := resp.ResultSetMetaData.RowType
	if err := checkRowShape(resp.Data, len(schema)); err != nil {
		return nil, err
	}

	partitions := len(resp.ResultSetMetaData.PartitionInfo)
	if partitions == 0 {
		partitions = 1
	}

	s.client.log.DebugContext(ctx, "statement executed",
		"rows", resp.ResultSetMetaData.NumRows,
		"columns", len(schema),
		"partitions", partitions)

	rs := &ResultSet{
		client:        s.client,
		meta:          resp.ResultSetMetaData,
		statusURL:     resp.StatementStatusURL,
		handle:        resp.StatementHandle,
		numPartitions: partitions,
		partitions:    make([]*Partition, partitions),
	}
	rs.partitions[0] = &Partition{index: 0, schema: schema, data: resp.Data}
	return rs, nil
}

// Execute submits a data-manipulation statement (INSERT, UPDATE, DELETE)
// and returns the affected-row stats reported by the service.
func (s *Statement) Execute(ctx context.Context) (*wire.DMLStats, error) {
	var resp wire.DMLResponse
	if err := s.submit(ctx, &resp); err != nil {
		return nil, err
	}
	return &resp.Stats, nil
}

func (s *Statement) submit(ctx context.Context, out any) error {
	if s.bindErr != nil {
		return s.bindErr
	}
	body, err := json.Marshal(s.req)
	if err != nil {
		return fmt.Errorf("encoding statement: %w", err)
	}

	requestID := uuid.NewString()
	url := fmt.Sprintf("%s%s?nullable=true&requestId=%s", s.client.host, statementPath, requestID)
	s.client.log.DebugContext(ctx, "submitting statement",
		"request_id", requestID,
		"database", s.req.Database,
		"warehouse", s.req.Warehouse,
		"bindings", len(s.req.Bindings))
	return s.client.do(ctx, http.MethodPost, url, body, out)
}

// checkRowShape verifies every row has one cell per schema column. The
// service should never violate this; a mismatch means the response cannot
// be decoded positionally.
func checkRowShape(data [][]*string, columns int) error {
	for i, row := range data {
		if len(row) != columns {
			return fmt.Errorf("row %d has %d cells, schema has %d columns", i, len(row), columns)
		}
	}
	return nil
}
