package querybuilder

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Inline substitutes $n placeholders with SQL literals so a built statement can be
// written to a standalone script. Values must be scalars or driver.Valuer.
func Inline(query string, values []any) (string, error) {
	var out strings.Builder
	out.Grow(len(query) + 16*len(values))

	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != '$' || i+1 >= len(query) || query[i+1] < '0' || query[i+1] > '9' {
			out.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
		n, _ := strconv.Atoi(query[i+1 : j])
		if n < 1 || n > len(values) {
			return "", fmt.Errorf("placeholder $%d out of range (%d args)", n, len(values))
		}
		lit, err := Literal(values[n-1])
		if err != nil {
			return "", fmt.Errorf("placeholder $%d: %w", n, err)
		}
		out.WriteString(lit)
		i = j - 1
	}
	return out.String(), nil
}

// Literal renders a single value as a PostgreSQL literal.
func Literal(v any) (string, error) {
	if valuer, ok := v.(driver.Valuer); ok {
		raw, err := valuer.Value()
		if err != nil {
			return "", err
		}
		v = raw
	}

	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return pq.QuoteLiteral(x), nil
	case []byte:
		return pq.QuoteLiteral(string(x)), nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(x), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case time.Time:
		return pq.QuoteLiteral(x.Format(time.RFC3339Nano)), nil
	default:
		return "", fmt.Errorf("unsupported literal type %T", v)
	}
}
