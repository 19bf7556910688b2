package cell

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/txn2/snowquery/pkg/wire"
)

// DecodeError reports a cell value that could not be parsed as its column's
// declared type.
type DecodeError struct {
	Column string
	Type   string
	Value  string
	Err    error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding column %q (%s) value %q: %v", e.Column, e.Type, e.Value, e.Err)
}

// Unwrap returns the underlying parse error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UnsupportedTypeError reports a column whose declared type has no Cell
// representation. Timestamps with a per-value time zone and exact decimals
// are the known cases.
type UnsupportedTypeError struct {
	Column string
	Type   string
}

// Error implements the error interface.
func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("column %q has unsupported type %q", e.Column, e.Type)
}

// Signed 128-bit integer bounds, matching the service's 38-digit NUMBER range
// as closely as a binary type can.
var (
	maxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

var epochDate = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// Decode converts one raw wire value into a Cell using the column's declared
// type and metadata. A nil raw value decodes to Null for every column type.
//
// Numeric (fixed) columns are resolved per cell: scale 0 values within the
// signed 128-bit range decode losslessly to Int, everything else falls back
// to a double-precision Float. The fallback is deliberate and lossy; exact
// decimal fidelity is out of scope.
func Decode(raw *string, col wire.ColumnMeta) (Cell, error) {
	if raw == nil {
		return Null(), nil
	}
	value := *raw

	fail := func(err error) (Cell, error) {
		return Cell{}, &DecodeError{Column: col.Name, Type: col.Type, Value: value, Err: err}
	}

	switch col.Type {
	case wire.TypeFixed:
		return decodeFixed(value, col)
	case wire.TypeReal:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fail(err)
		}
		return NewFloat(f), nil
	case wire.TypeText:
		return NewVarchar(value), nil
	case wire.TypeBinary:
		b, err := hex.DecodeString(value)
		if err != nil {
			return fail(err)
		}
		return NewBytes(b), nil
	case wire.TypeBoolean:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fail(err)
		}
		return NewBoolean(b), nil
	case wire.TypeDate:
		days, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fail(err)
		}
		return NewDate(epochDate.AddDate(0, 0, int(days))), nil
	case wire.TypeTime:
		secs, nanos, err := splitEpoch(value)
		if err != nil {
			return fail(err)
		}
		return NewTime(epochDate.Add(time.Duration(secs)*time.Second + time.Duration(nanos))), nil
	case wire.TypeTimestampNtz:
		secs, nanos, err := splitEpoch(value)
		if err != nil {
			return fail(err)
		}
		return NewTimestampNtz(time.Unix(secs, nanos).UTC()), nil
	case wire.TypeTimestampLtz:
		ts, err := decodeLtz(value)
		if err != nil {
			return fail(err)
		}
		return NewTimestampLtz(ts), nil
	default:
		// timestamp_tz carries a per-value zone and exact decimals have no
		// lossless representation here; refuse rather than truncate.
		return Cell{}, &UnsupportedTypeError{Column: col.Name, Type: col.Type}
	}
}

// decodeFixed resolves a NUMBER cell. The integer path requires scale 0 and
// the value to fit in a signed 128-bit integer; otherwise the value is
// parsed as a float.
func decodeFixed(value string, col wire.ColumnMeta) (Cell, error) {
	scale := 0
	if col.Scale != nil {
		scale = *col.Scale
	}
	if scale == 0 {
		// Scale-0 columns occasionally arrive as "42.0".
		text := strings.TrimSuffix(value, ".0")
		if i, ok := new(big.Int).SetString(text, 10); ok {
			if i.Cmp(minInt128) >= 0 && i.Cmp(maxInt128) <= 0 {
				return NewInt(i), nil
			}
		}
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return Cell{}, &DecodeError{Column: col.Name, Type: col.Type, Value: value, Err: err}
	}
	return NewFloat(f), nil
}

// splitEpoch parses "seconds[.fraction]" keeping nanosecond precision, which
// a float64 parse of large epochs would lose.
func splitEpoch(value string) (secs int64, nanos int64, err error) {
	whole, frac, _ := strings.Cut(value, ".")
	secs, err = strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	if frac == "" {
		return secs, 0, nil
	}
	if len(frac) > 9 {
		frac = frac[:9]
	}
	nanos, err = strconv.ParseInt(frac+strings.Repeat("0", 9-len(frac)), 10, 64)
	if err != nil {
		return 0, 0, err
	}
	if secs < 0 {
		nanos = -nanos
	}
	return secs, nanos, nil
}

// decodeLtz parses a local-timezone timestamp. The service emits either a
// bare epoch or "epoch offset" where the offset is minutes east of UTC
// biased by 1440. Offset handling is best effort: values without one are
// rendered in UTC.
func decodeLtz(value string) (time.Time, error) {
	epoch, offset, hasOffset := strings.Cut(value, " ")
	secs, nanos, err := splitEpoch(epoch)
	if err != nil {
		return time.Time{}, err
	}
	ts := time.Unix(secs, nanos).UTC()
	if !hasOffset {
		return ts, nil
	}
	minutes, err := strconv.Atoi(offset)
	if err != nil {
		return time.Time{}, err
	}
	minutes -= 1440
	loc := time.FixedZone(fmt.Sprintf("UTC%+03d:%02d", minutes/60, abs(minutes%60)), minutes*60)
	return ts.In(loc), nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
