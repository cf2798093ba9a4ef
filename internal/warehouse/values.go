package warehouse

import (
	"math/big"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// normalizeRow maps driver-specific values onto int64, float64, string,
// time.Time and nil so both backends render identically.
func normalizeRow(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case *big.Int:
		if x == nil {
			return nil
		}
		return x.Int64()
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC()
	default:
		return v
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
