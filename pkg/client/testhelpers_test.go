package client

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txn2/snowquery/pkg/wire"
)

var (
	testKeyOnce sync.Once
	testKeyVal  *rsa.PrivateKey
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		var err error
		testKeyVal, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
	})
	return testKeyVal
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(Config{
		Account:    "TEST_ACCOUNT",
		User:       "TEST_USER",
		Database:   "testdb",
		Warehouse:  "testwh",
		Role:       "testrole",
		PrivateKey: testKey(t),
		Host:       srv.URL,
		Transport:  srv.Client(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return c
}

func sp(s string) *string {
	return &s
}

func textCol(name string) wire.ColumnMeta {
	return wire.ColumnMeta{Name: name, Type: wire.TypeText}
}

func fixedCol(name string, scale int) wire.ColumnMeta {
	return wire.ColumnMeta{Name: name, Type: wire.TypeFixed, Scale: &scale}
}

// queryResponseBody builds the JSON the service returns for a submission:
// schema, partition 0 rows and a partition descriptor for numPartitions.
func queryResponseBody(t *testing.T, cols []wire.ColumnMeta, data [][]*string, numRows, numPartitions int, handle string) []byte {
	t.Helper()
	resp := wire.QueryResponse{
		ResultSetMetaData: wire.ResultSetMetaData{
			NumRows:       numRows,
			Format:        "json",
			RowType:       cols,
			PartitionInfo: make([]wire.PartitionMeta, numPartitions),
		},
		Data:               data,
		Code:               "090001",
		StatementHandle:    handle,
		StatementStatusURL: "/api/v2/statements/" + handle,
		SQLState:           "00000",
		Message:            "Statement executed successfully.",
	}
	body, err := json.Marshal(resp)
	require.NoError(t, err)
	return body
}

// partitionResponseBody builds the JSON for one partition fetch. The service
// repeats the metadata; only the data block matters to the client.
func partitionResponseBody(t *testing.T, cols []wire.ColumnMeta, data [][]*string) []byte {
	t.Helper()
	resp := wire.QueryResponse{
		ResultSetMetaData: wire.ResultSetMetaData{
			NumRows: len(data),
			Format:  "json",
			RowType: cols,
		},
		Data: data,
	}
	body, err := json.Marshal(resp)
	require.NoError(t, err)
	return body
}
