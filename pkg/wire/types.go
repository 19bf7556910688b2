// Package wire defines the JSON request and response shapes of the
// Snowflake SQL REST API v2.
//
//nolint:revive // package contains related DTO types
package wire

// Column type tags as they appear in result set metadata.
const (
	TypeFixed        = "fixed"
	TypeReal         = "real"
	TypeText         = "text"
	TypeBinary       = "binary"
	TypeBoolean      = "boolean"
	TypeDate         = "date"
	TypeTime         = "time"
	TypeTimestampLtz = "timestamp_ltz"
	TypeTimestampNtz = "timestamp_ntz"
	TypeTimestampTz  = "timestamp_tz"
)

// Binding type tags. The service accepts these upper-cased, unlike the
// column tags it returns in metadata.
const (
	BindFixed        = "FIXED"
	BindReal         = "REAL"
	BindText         = "TEXT"
	BindBoolean      = "BOOLEAN"
	BindDate         = "DATE"
	BindTime         = "TIME"
	BindTimestampNtz = "TIMESTAMP_NTZ"
)

// Binding is one positional bind value in a statement request. The service
// expects binding types in SCREAMING_SNAKE_CASE and all values stringified.
type Binding struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// StatementRequest is the body posted to /api/v2/statements.
// Bindings are keyed by 1-based positional index rendered as a string.
type StatementRequest struct {
	Statement string             `json:"statement"`
	Timeout   int                `json:"timeout,omitempty"`
	Database  string             `json:"database"`
	Warehouse string             `json:"warehouse"`
	Role      string             `json:"role,omitempty"`
	Bindings  map[string]Binding `json:"bindings,omitempty"`
}

// QueryResponse is the body returned for a successful statement execution
// or a partition fetch. Cell values arrive stringified; a nil pointer is a
// SQL NULL (the client requests nullable=true).
type QueryResponse struct {
	ResultSetMetaData ResultSetMetaData `json:"resultSetMetaData"`
	Data              [][]*string       `json:"data"`
	Code              string            `json:"code"`
	StatementHandle   string            `json:"statementHandle"`
	// StatementStatusURL is the path partition fetches are issued against.
	StatementStatusURL string `json:"statementStatusUrl"`
	RequestID          string `json:"requestId"`
	SQLState           string `json:"sqlState"`
	Message            string `json:"message"`
}

// ResultSetMetaData describes the shape of a result set. It is returned once
// with partition 0 and applies to every partition of the execution.
type ResultSetMetaData struct {
	NumRows       int             `json:"numRows"`
	Format        string          `json:"format"`
	RowType       []ColumnMeta    `json:"rowType"`
	PartitionInfo []PartitionMeta `json:"partitionInfo"`
}

// ColumnMeta describes a single column. Scale and Precision are pointers
// because the service omits them for non-numeric columns.
type ColumnMeta struct {
	Name       string `json:"name"`
	Database   string `json:"database"`
	Schema     string `json:"schema"`
	Table      string `json:"table"`
	Type       string `json:"type"`
	Scale      *int   `json:"scale"`
	Precision  *int   `json:"precision"`
	ByteLength *int   `json:"byteLength"`
	Nullable   bool   `json:"nullable"`
}

// PartitionMeta carries per-partition sizing. Only the number of entries
// matters for fetching; the sizes are informational.
type PartitionMeta struct {
	RowCount         int  `json:"rowCount"`
	UncompressedSize int  `json:"uncompressedSize"`
	CompressedSize   *int `json:"compressedSize,omitempty"`
}

// DMLResponse is the body returned for INSERT/UPDATE/DELETE statements.
type DMLResponse struct {
	Message string   `json:"message"`
	Stats   DMLStats `json:"stats"`
}

// DMLStats reports rows affected by a DML statement.
type DMLStats struct {
	NumRowsInserted  int `json:"numRowsInserted"`
	NumRowsDeleted   int `json:"numRowsDeleted"`
	NumRowsUpdated   int `json:"numRowsUpdated"`
	NumDmlDuplicates int `json:"numDmlDuplicates"`
}

// ErrorResponse is the body returned with non-2xx statuses.
type ErrorResponse struct {
	Code            string `json:"code"`
	Message         string `json:"message"`
	SQLState        string `json:"sqlState,omitempty"`
	StatementHandle string `json:"statementHandle,omitempty"`
}
