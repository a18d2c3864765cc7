// Package database builds parameterised list queries with sanitised identifiers.
package database

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
)

type ConditionType string

const (
	Equal    ConditionType = "="
	NotEqual ConditionType = "!="
	ILike    ConditionType = "ILIKE"
	In       ConditionType = "IN"

	defaultLimit  = -1
	defaultOffset = -1
)

type Condition struct {
	Field string
	Type  ConditionType
	Value any
}

func WhereCond(field string, condType ConditionType, value any) Condition {
	return Condition{Field: field, Type: condType, Value: value}
}

// OrderTerm is one ORDER BY column. Dir is ASC or DESC; anything else is omitted.
type OrderTerm struct {
	Column string
	Dir    string
}

type ListQueryOptions struct {
	Table      string
	Columns    []string
	Conditions []Condition
	Order      []OrderTerm
	Limit      int
	Offset     int
}

type ListQueryOption func(*ListQueryOptions)

func NewListQueryOptions(table string, opts ...ListQueryOption) *ListQueryOptions {
	options := &ListQueryOptions{
		Table:  table,
		Limit:  defaultLimit,
		Offset: defaultOffset,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithColumns sets the columns to select.
func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Columns = cols
	}
}

// WithCondition adds a condition. Conditions are joined with AND.
func WithCondition(cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Conditions = append(o.Conditions, cond)
	}
}

// WithConditionIf adds cond only when ok is true.
func WithConditionIf(ok bool, cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) {
		if ok {
			o.Conditions = append(o.Conditions, cond)
		}
	}
}

// WithOrderBy appends an ordering column.
func WithOrderBy(column, direction string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Order = append(o.Order, OrderTerm{Column: column, Dir: direction})
	}
}

// WithLimit sets the limit. Accepts 0.
func WithLimit(limit int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if limit >= 0 {
			o.Limit = limit
		}
	}
}

// WithOffset sets the offset. Accepts 0.
func WithOffset(offset int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if offset >= 0 {
			o.Offset = offset
		}
	}
}

// sanitizeIdentifier quotes a possibly qualified identifier like "table.column".
func sanitizeIdentifier(ident string) string {
	return pgx.Identifier(strings.Split(ident, ".")).Sanitize()
}

// BuildListQuery constructs a SQL query string and arguments from options.
//
// Example usage:
//
//	options := NewListQueryOptions("shipments",
//		WithColumns("id", "bol_number"),
//		WithCondition(WhereCond("organization", Equal, "acme")),
//		WithOrderBy("created_at", "DESC"),
//		WithLimit(50),
//	)
//
//	query, args := BuildListQuery(options)
func BuildListQuery(options *ListQueryOptions) (string, []any) {
	if options == nil {
		return "", nil
	}

	var q strings.Builder
	q.WriteString("SELECT ")
	if len(options.Columns) == 0 {
		q.WriteString("*")
	} else {
		cols := make([]string, len(options.Columns))
		for i, c := range options.Columns {
			cols[i] = sanitizeIdentifier(c)
		}
		q.WriteString(strings.Join(cols, ", "))
	}
	q.WriteString(" FROM ")
	q.WriteString(sanitizeIdentifier(options.Table))

	where, args := buildWhereClause(options.Conditions)
	if where != "" {
		q.WriteString(" WHERE ")
		q.WriteString(where)
	}

	if len(options.Order) > 0 {
		terms := make([]string, 0, len(options.Order))
		for _, t := range options.Order {
			term := sanitizeIdentifier(t.Column)
			if dir := strings.ToUpper(t.Dir); dir == "ASC" || dir == "DESC" {
				term += " " + dir
			}
			terms = append(terms, term)
		}
		q.WriteString(" ORDER BY ")
		q.WriteString(strings.Join(terms, ", "))
	}

	// LIMIT and OFFSET only when explicitly set.
	if options.Limit != defaultLimit {
		args = append(args, options.Limit)
		fmt.Fprintf(&q, " LIMIT $%d", len(args))
	}
	if options.Offset != defaultOffset {
		args = append(args, options.Offset)
		fmt.Fprintf(&q, " OFFSET $%d", len(args))
	}
	return q.String(), args
}

func buildWhereClause(conds []Condition) (string, []any) {
	parts := make([]string, 0, len(conds))
	var args []any
	for _, c := range conds {
		if c.Field == "" {
			continue
		}
		field := sanitizeIdentifier(c.Field)
		switch c.Type {
		case Equal, NotEqual, ILike:
			args = append(args, c.Value)
			parts = append(parts, fmt.Sprintf("%s %s $%d", field, c.Type, len(args)))
		case In:
			rv := reflect.ValueOf(c.Value)
			if rv.Kind() != reflect.Slice || rv.Len() == 0 {
				continue
			}
			ph := make([]string, rv.Len())
			for i := range rv.Len() {
				args = append(args, rv.Index(i).Interface())
				ph[i] = fmt.Sprintf("$%d", len(args))
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", field, strings.Join(ph, ", ")))
		}
	}
	return strings.Join(parts, " AND "), args
}
