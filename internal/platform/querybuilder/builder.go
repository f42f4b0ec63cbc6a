package querybuilder

import (
	"fmt"
	"strconv"
	"strings"
)

// args accumulates positional arguments while a statement is rendered.
type args struct {
	values []any
}

func (a *args) bind(v any) string {
	if sub, ok := v.(Subquery); ok {
		return "(" + a.expand(sub.sql, sub.args) + ")"
	}
	a.values = append(a.values, v)
	return "$" + strconv.Itoa(len(a.values))
}

// expand replaces each "?" in expr with the next positional placeholder.
func (a *args) expand(expr string, exprArgs []any) string {
	if len(exprArgs) == 0 {
		return expr
	}
	var out strings.Builder
	next := 0
	for i := 0; i < len(expr); i++ {
		if expr[i] != '?' || next >= len(exprArgs) {
			out.WriteByte(expr[i])
			continue
		}
		out.WriteString(a.bind(exprArgs[next]))
		next++
	}
	return out.String()
}

type Condition interface {
	render(a *args) string
}

type conditionFunc func(a *args) string

func (f conditionFunc) render(a *args) string { return f(a) }

func Eq(column string, value any) Condition {
	return conditionFunc(func(a *args) string {
		return column + " = " + a.bind(value)
	})
}

func In(column string, values []any) Condition {
	return conditionFunc(func(a *args) string {
		if len(values) == 0 {
			return "1=0"
		}
		parts := make([]string, 0, len(values))
		for _, v := range values {
			parts = append(parts, a.bind(v))
		}
		return column + " IN (" + strings.Join(parts, ", ") + ")"
	})
}

func IsNull(column string) Condition {
	return conditionFunc(func(*args) string { return column + " IS NULL" })
}

// Expr is a raw predicate using "?" placeholders.
func Expr(expr string, exprArgs ...any) Condition {
	return conditionFunc(func(a *args) string { return a.expand(expr, exprArgs) })
}

// Subquery can be used as an insert value or an Eq operand; it renders in parentheses.
type Subquery struct {
	sql  string
	args []any
}

func Sub(sql string, subArgs ...any) Subquery {
	return Subquery{sql: sql, args: subArgs}
}

func where(buf *strings.Builder, conds []Condition, a *args) {
	for i, c := range conds {
		if i == 0 {
			buf.WriteString(" WHERE ")
		} else {
			buf.WriteString(" AND ")
		}
		buf.WriteString(c.render(a))
	}
}

type SelectBuilder struct {
	columns   []string
	table     string
	joins     []string
	where     []Condition
	groupBy   []string
	orderBy   []string
	limit     int
	forUpdate bool
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Join(clause string) *SelectBuilder {
	b.joins = append(b.joins, clause)
	return b
}

func (b *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *SelectBuilder) GroupBy(parts ...string) *SelectBuilder {
	b.groupBy = append(b.groupBy, parts...)
	return b
}

func (b *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, parts...)
	return b
}

func (b *SelectBuilder) Limit(limit int) *SelectBuilder {
	b.limit = limit
	return b
}

// ForUpdate row-locks the selected rows for the rest of the transaction.
func (b *SelectBuilder) ForUpdate() *SelectBuilder {
	b.forUpdate = true
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("select columns are required")
	}
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("select table is required")
	}

	var (
		buf strings.Builder
		a   args
	)
	buf.WriteString("SELECT " + strings.Join(b.columns, ", ") + " FROM " + b.table)
	for _, j := range b.joins {
		buf.WriteString(" " + j)
	}
	where(&buf, b.where, &a)
	if len(b.groupBy) > 0 {
		buf.WriteString(" GROUP BY " + strings.Join(b.groupBy, ", "))
	}
	if len(b.orderBy) > 0 {
		buf.WriteString(" ORDER BY " + strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		buf.WriteString(" LIMIT " + strconv.Itoa(b.limit))
	}
	if b.forUpdate {
		buf.WriteString(" FOR UPDATE")
	}
	return buf.String(), a.values, nil
}

type InsertBuilder struct {
	table   string
	columns []string
	rows    [][]any
	suffix  string
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	b.columns = append([]string(nil), columns...)
	return b
}

func (b *InsertBuilder) Values(values ...any) *InsertBuilder {
	b.rows = append(b.rows, append([]any(nil), values...))
	return b
}

func (b *InsertBuilder) Suffix(sql string) *InsertBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *InsertBuilder) ToSQL() (string, []any, error) {
	switch {
	case strings.TrimSpace(b.table) == "":
		return "", nil, fmt.Errorf("insert table is required")
	case len(b.columns) == 0:
		return "", nil, fmt.Errorf("insert columns are required")
	case len(b.rows) == 0:
		return "", nil, fmt.Errorf("insert values are required")
	}

	var (
		buf strings.Builder
		a   args
	)
	buf.WriteString("INSERT INTO " + b.table + " (" + strings.Join(b.columns, ", ") + ") VALUES ")
	for i, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, fmt.Errorf("insert row %d has %d values, expected %d", i, len(row), len(b.columns))
		}
		if i > 0 {
			buf.WriteString(", ")
		}
		cells := make([]string, 0, len(row))
		for _, v := range row {
			cells = append(cells, a.bind(v))
		}
		buf.WriteString("(" + strings.Join(cells, ", ") + ")")
	}
	if b.suffix != "" {
		buf.WriteString(" " + b.suffix)
	}
	return buf.String(), a.values, nil
}

type assignment struct {
	column string
	value  any
	expr   string
	args   []any
}

type UpdateBuilder struct {
	table  string
	sets   []assignment
	where  []Condition
	suffix string
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	b.sets = append(b.sets, assignment{column: column, value: value})
	return b
}

func (b *UpdateBuilder) SetExpr(column, expr string, exprArgs ...any) *UpdateBuilder {
	b.sets = append(b.sets, assignment{column: column, expr: expr, args: exprArgs})
	return b
}

func (b *UpdateBuilder) Where(conditions ...Condition) *UpdateBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *UpdateBuilder) Suffix(sql string) *UpdateBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *UpdateBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("update table is required")
	}
	if len(b.sets) == 0 {
		return "", nil, fmt.Errorf("update sets are required")
	}

	var (
		buf strings.Builder
		a   args
	)
	parts := make([]string, 0, len(b.sets))
	for _, s := range b.sets {
		if s.expr != "" {
			parts = append(parts, s.column+" = "+a.expand(s.expr, s.args))
			continue
		}
		parts = append(parts, s.column+" = "+a.bind(s.value))
	}
	buf.WriteString("UPDATE " + b.table + " SET " + strings.Join(parts, ", "))
	where(&buf, b.where, &a)
	if b.suffix != "" {
		buf.WriteString(" " + b.suffix)
	}
	return buf.String(), a.values, nil
}

type DeleteBuilder struct {
	table string
	where []Condition
}

func DeleteFrom(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

func (b *DeleteBuilder) Where(conditions ...Condition) *DeleteBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *DeleteBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("delete table is required")
	}
	if len(b.where) == 0 {
		return "", nil, fmt.Errorf("delete without where is not allowed")
	}
	var (
		buf strings.Builder
		a   args
	)
	buf.WriteString("DELETE FROM " + b.table)
	where(&buf, b.where, &a)
	return buf.String(), a.values, nil
}
