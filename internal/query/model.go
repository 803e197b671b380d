// Package query implements the immutable Query Model: a composable
// value representing a filter+sort+paging triple, validated at
// construction time rather than at translation time.
package query

import (
	"time"

	"github.com/mesbahtanvir/docuchan/backend/internal/apperr"
)

// Operator is one of the ten tokens the Query Model accepts.
type Operator string

const (
	Eq                Operator = "=="
	NotEq             Operator = "!="
	Lt                Operator = "<"
	Lte               Operator = "<="
	Gt                Operator = ">"
	Gte               Operator = ">="
	In                Operator = "in"
	NotIn             Operator = "not-in"
	ArrayContains     Operator = "array-contains"
	ArrayContainsAny  Operator = "array-contains-any"
)

// rangeOperators require a numeric or timestamp value.
var rangeOperators = map[Operator]bool{
	Lt: true, Lte: true, Gt: true, Gte: true,
}

var validOperators = map[Operator]bool{
	Eq: true, NotEq: true, Lt: true, Lte: true, Gt: true, Gte: true,
	In: true, NotIn: true, ArrayContains: true, ArrayContainsAny: true,
}

// Direction is the sort direction of an OrderBy clause.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Condition is a single (field, operator, value) triple.
type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// OrderByClause is the (field, direction) pair a Query may carry.
type OrderByClause struct {
	Field     string
	Direction Direction
}

// Query is the immutable query-builder value. Every mutator returns a
// new Query; the receiver is always left unchanged. Conditions may only
// be appended while OrderBy is unset — once OrderBy is set, Where
// returns INVALID_QUERY, enforcing the condition-then-order composition
// rule the underlying store's ordering guarantees depend on.
type Query struct {
	conditions []Condition
	orderBy    *OrderByClause
	limit      *int
	offset     *int
}

// New returns the empty Query (an unfiltered scan).
func New() Query {
	return Query{}
}

// Conditions returns a copy of the query's condition list.
func (q Query) Conditions() []Condition {
	out := make([]Condition, len(q.conditions))
	copy(out, q.conditions)
	return out
}

// OrderByClause returns the query's order clause, or nil if unset.
func (q Query) OrderByClause() *OrderByClause {
	if q.orderBy == nil {
		return nil
	}
	clone := *q.orderBy
	return &clone
}

// LimitValue returns the query's limit, or nil if unset.
func (q Query) LimitValue() *int {
	if q.limit == nil {
		return nil
	}
	v := *q.limit
	return &v
}

// OffsetValue returns the query's offset, or nil if unset.
func (q Query) OffsetValue() *int {
	if q.offset == nil {
		return nil
	}
	v := *q.offset
	return &v
}

// Where appends a condition, returning a new Query. The receiver is
// never mutated: the new condition slice is allocated fresh (exact
// length, no spare capacity) so two Querys built from the same prefix
// never alias each other's backing array.
func (q Query) Where(field string, op Operator, value interface{}) (Query, error) {
	if !validOperators[op] {
		return Query{}, apperr.New(apperr.InvalidOperator, "unrecognized operator: "+string(op))
	}
	if q.orderBy != nil {
		return Query{}, apperr.New(apperr.InvalidQuery, "where must come before orderBy")
	}
	if rangeOperators[op] && !isRangeValue(value) {
		return Query{}, apperr.New(apperr.InvalidQuery, "range operators require a numeric or timestamp value")
	}

	conditions := make([]Condition, len(q.conditions)+1)
	copy(conditions, q.conditions)
	conditions[len(q.conditions)] = Condition{Field: field, Operator: op, Value: value}

	return Query{
		conditions: conditions,
		orderBy:    q.orderBy,
		limit:      q.limit,
		offset:     q.offset,
	}, nil
}

// OrderBySet sets the query's sort clause, returning a new Query. It may
// be set at any point, including after conditions have been added.
func (q Query) OrderBySet(field string, dir Direction) (Query, error) {
	if dir != Asc && dir != Desc {
		return Query{}, apperr.New(apperr.InvalidQuery, "orderBy direction must be asc or desc")
	}
	nq := q
	clause := OrderByClause{Field: field, Direction: dir}
	nq.orderBy = &clause
	return nq, nil
}

// WithLimit sets the query's limit (1..1000), returning a new Query.
func (q Query) WithLimit(n int) (Query, error) {
	if n < 1 || n > 1000 {
		return Query{}, apperr.New(apperr.InvalidQueryParams, "limit must be between 1 and 1000")
	}
	nq := q
	l := n
	nq.limit = &l
	return nq, nil
}

// WithOffset sets the query's offset (>=0), returning a new Query.
func (q Query) WithOffset(n int) (Query, error) {
	if n < 0 {
		return Query{}, apperr.New(apperr.InvalidQueryParams, "offset must not be negative")
	}
	nq := q
	o := n
	nq.offset = &o
	return nq, nil
}

func isRangeValue(v interface{}) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	case time.Time:
		return true
	default:
		return false
	}
}
