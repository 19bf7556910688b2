// Package cell provides the typed value model for query results.
//
// The service returns every cell as a string (or JSON null) tagged only by
// its column's declared type. Cells are the result of parsing those strings:
// a tagged value with exactly one populated variant, chosen per cell rather
// than per column.
package cell

import (
	"encoding/hex"
	"math/big"
	"time"
)

// Kind discriminates the populated variant of a Cell.
type Kind int

// Cell kinds.
const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindVarchar
	KindBytes
	KindBoolean
	KindDate
	KindTime
	KindTimestampNtz
	KindTimestampLtz
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindVarchar:
		return "varchar"
	case KindBytes:
		return "bytes"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindTimestampNtz:
		return "timestamp_ntz"
	case KindTimestampLtz:
		return "timestamp_ltz"
	default:
		return "unknown"
	}
}

// Cell is one decoded result value.
//
// Numeric columns resolve per cell: a value that is integral and within the
// signed 128-bit range decodes as an Int, anything else as a Float. A single
// column can therefore yield a mix of Int and Float cells across rows.
type Cell struct {
	kind     Kind
	intVal   *big.Int
	floatVal float64
	strVal   string
	bytesVal []byte
	boolVal  bool
	timeVal  time.Time
}

// Null returns the null cell.
func Null() Cell {
	return Cell{kind: KindNull}
}

// NewInt returns an integer cell. The value must be within the signed
// 128-bit range; Decode guarantees this for decoded cells.
func NewInt(v *big.Int) Cell {
	return Cell{kind: KindInt, intVal: v}
}

// NewFloat returns a double-precision cell.
func NewFloat(v float64) Cell {
	return Cell{kind: KindFloat, floatVal: v}
}

// NewVarchar returns a string cell.
func NewVarchar(v string) Cell {
	return Cell{kind: KindVarchar, strVal: v}
}

// NewBytes returns a binary cell.
func NewBytes(v []byte) Cell {
	return Cell{kind: KindBytes, bytesVal: v}
}

// NewBoolean returns a boolean cell.
func NewBoolean(v bool) Cell {
	return Cell{kind: KindBoolean, boolVal: v}
}

// NewDate returns a date cell. The time component is ignored.
func NewDate(v time.Time) Cell {
	return Cell{kind: KindDate, timeVal: v}
}

// NewTime returns a time-of-day cell. The date component is ignored.
func NewTime(v time.Time) Cell {
	return Cell{kind: KindTime, timeVal: v}
}

// NewTimestampNtz returns a naive timestamp cell. The location of v is
// treated as insignificant; the wall-clock reading is the value.
func NewTimestampNtz(v time.Time) Cell {
	return Cell{kind: KindTimestampNtz, timeVal: v}
}

// NewTimestampLtz returns a fixed-offset timestamp cell.
func NewTimestampLtz(v time.Time) Cell {
	return Cell{kind: KindTimestampLtz, timeVal: v}
}

// Kind returns the populated variant.
func (c Cell) Kind() Kind {
	return c.kind
}

// IsNull reports whether the cell is null.
func (c Cell) IsNull() bool {
	return c.kind == KindNull
}

// Int returns the integer value. The bool is false if the cell is not an Int.
func (c Cell) Int() (*big.Int, bool) {
	if c.kind != KindInt {
		return nil, false
	}
	return c.intVal, true
}

// Int64 returns the integer value as an int64. The bool is false if the cell
// is not an Int or the value does not fit in 64 bits.
func (c Cell) Int64() (int64, bool) {
	if c.kind != KindInt || !c.intVal.IsInt64() {
		return 0, false
	}
	return c.intVal.Int64(), true
}

// Float returns the floating point value. The bool is false if the cell is
// not a Float.
func (c Cell) Float() (float64, bool) {
	if c.kind != KindFloat {
		return 0, false
	}
	return c.floatVal, true
}

// Varchar returns the string value. The bool is false if the cell is not a
// Varchar.
func (c Cell) Varchar() (string, bool) {
	if c.kind != KindVarchar {
		return "", false
	}
	return c.strVal, true
}

// Bytes returns the binary value. The bool is false if the cell is not a
// Bytes cell.
func (c Cell) Bytes() ([]byte, bool) {
	if c.kind != KindBytes {
		return nil, false
	}
	return c.bytesVal, true
}

// Boolean returns the boolean value. The bool is false if the cell is not a
// Boolean.
func (c Cell) Boolean() (bool, bool) {
	if c.kind != KindBoolean {
		return false, false
	}
	return c.boolVal, true
}

// Timestamp returns the temporal value of a Date, Time, TimestampNtz or
// TimestampLtz cell. The bool is false for any other kind.
func (c Cell) Timestamp() (time.Time, bool) {
	switch c.kind {
	case KindDate, KindTime, KindTimestampNtz, KindTimestampLtz:
		return c.timeVal, true
	default:
		return time.Time{}, false
	}
}

// maxJSONInt is the largest magnitude representable exactly in a float64,
// which is what JavaScript consumers decode JSON numbers into.
var maxJSONInt = new(big.Int).Lsh(big.NewInt(1), 53)

// JSON returns the natural JSON-equivalent representation of the cell:
// nil for Null, int64 or float64 for numerics, string for text and binary
// (hex), bool for booleans, and ISO-8601 style strings for temporals.
// Integers whose magnitude exceeds 2^53 are rendered as decimal strings so
// they survive a round trip through JavaScript.
func (c Cell) JSON() any {
	switch c.kind {
	case KindNull:
		return nil
	case KindInt:
		if c.intVal.CmpAbs(maxJSONInt) < 0 {
			return c.intVal.Int64()
		}
		return c.intVal.String()
	case KindFloat:
		return c.floatVal
	case KindVarchar:
		return c.strVal
	case KindBytes:
		return hex.EncodeToString(c.bytesVal)
	case KindBoolean:
		return c.boolVal
	case KindDate:
		return c.timeVal.Format("2006-01-02")
	case KindTime:
		return c.timeVal.Format("15:04:05.999999999")
	case KindTimestampNtz:
		return c.timeVal.Format("2006-01-02T15:04:05.999999999")
	case KindTimestampLtz:
		return c.timeVal.Format(time.RFC3339Nano)
	default:
		return nil
	}
}
