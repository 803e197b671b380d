package query

// Translation is the native filter/sort/paging triple a Query lowers
// to. Filter is a tree of maps mirroring the underlying store's native
// operator vocabulary (eq, ne, lt, lte, gt, gte, in, nin, elemMatch),
// ANDed together; Sort maps a field to 1 (ascending) or -1 (descending).
type Translation struct {
	Filter map[string]interface{}
	Sort   map[string]int
	Skip   int
	Limit  int
}

// nativeOperators maps eight of the ten Query Model tokens onto the
// store adapter's native operator vocabulary; the two array tokens are
// lowered separately in nativeOp.
var nativeOperators = map[Operator]string{
	Eq:    "eq",
	NotEq: "ne",
	Lt:    "lt",
	Lte:   "lte",
	Gt:    "gt",
	Gte:   "gte",
	In:    "in",
	NotIn: "nin",
}

// Translate lowers q into the native filter/sort/paging triple. An
// empty Query Model translates to an empty filter (scan).
func Translate(q Query) Translation {
	t := Translation{}

	byField := make(map[string][]Condition)
	var order []string
	for _, c := range q.conditions {
		if _, seen := byField[c.Field]; !seen {
			order = append(order, c.Field)
		}
		byField[c.Field] = append(byField[c.Field], c)
	}

	var fragments []map[string]interface{}
	for _, field := range order {
		conds := byField[field]
		if len(conds) == 1 {
			fragments = append(fragments, map[string]interface{}{
				field: nativeOp(conds[0]),
			})
			continue
		}
		ops := make([]map[string]interface{}, len(conds))
		for i, c := range conds {
			ops[i] = nativeOp(c)
		}
		fragments = append(fragments, map[string]interface{}{
			field: map[string]interface{}{"AND": ops},
		})
	}

	switch len(fragments) {
	case 0:
		t.Filter = map[string]interface{}{}
	case 1:
		t.Filter = fragments[0]
	default:
		t.Filter = map[string]interface{}{"AND": fragments}
	}

	if q.orderBy != nil {
		dir := 1
		if q.orderBy.Direction == Desc {
			dir = -1
		}
		t.Sort = map[string]int{q.orderBy.Field: dir}
	}
	if q.offset != nil {
		t.Skip = *q.offset
	}
	if q.limit != nil {
		t.Limit = *q.limit
	}

	return t
}

// nativeOp lowers a single condition into its native-operator fragment.
func nativeOp(c Condition) map[string]interface{} {
	switch c.Operator {
	case ArrayContains:
		return map[string]interface{}{"elemMatch": map[string]interface{}{"eq": c.Value}}
	case ArrayContainsAny:
		return map[string]interface{}{"in": c.Value}
	default:
		return map[string]interface{}{nativeOperators[c.Operator]: c.Value}
	}
}
