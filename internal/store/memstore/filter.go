package memstore

import "time"

// matchFilter evaluates a document against the native filter tree
// query.Translate produces: a top-level {"AND": [...]} of per-field
// fragments, a single {field: {op: value}} fragment, or an empty map
// (unfiltered scan).
func matchFilter(doc map[string]interface{}, filter map[string]interface{}) bool {
	if len(filter) == 0 {
		return true
	}
	if andList, ok := filter["AND"]; ok {
		for _, frag := range toFragmentList(andList) {
			if !matchFilter(doc, frag) {
				return false
			}
		}
		return true
	}
	for field, raw := range filter {
		opMap, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if andList, ok := opMap["AND"]; ok {
			for _, opFrag := range toFragmentList(andList) {
				if !matchOp(doc[field], opFrag) {
					return false
				}
			}
			continue
		}
		if !matchOp(doc[field], opMap) {
			return false
		}
	}
	return true
}

func toFragmentList(raw interface{}) []map[string]interface{} {
	switch v := raw.(type) {
	case []map[string]interface{}:
		return v
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(v))
		for _, el := range v {
			if m, ok := el.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

func matchOp(value interface{}, opMap map[string]interface{}) bool {
	for op, target := range opMap {
		switch op {
		case "eq":
			if !valuesEqual(value, target) {
				return false
			}
		case "ne":
			if valuesEqual(value, target) {
				return false
			}
		case "lt":
			if cmp, ok := comparable(value, target); !ok || cmp >= 0 {
				return false
			}
		case "lte":
			if cmp, ok := comparable(value, target); !ok || cmp > 0 {
				return false
			}
		case "gt":
			if cmp, ok := comparable(value, target); !ok || cmp <= 0 {
				return false
			}
		case "gte":
			if cmp, ok := comparable(value, target); !ok || cmp < 0 {
				return false
			}
		case "in":
			if !memberOf(value, target) {
				return false
			}
		case "nin":
			if memberOf(value, target) {
				return false
			}
		case "elemMatch":
			sub, ok := target.(map[string]interface{})
			if !ok || !elemMatch(value, sub) {
				return false
			}
		}
	}
	return true
}

func elemMatch(value interface{}, sub map[string]interface{}) bool {
	arr, ok := value.([]interface{})
	if !ok {
		return false
	}
	for _, el := range arr {
		if matchOp(el, sub) {
			return true
		}
	}
	return false
}

func memberOf(value interface{}, list interface{}) bool {
	items, ok := list.([]interface{})
	if !ok {
		return false
	}
	for _, item := range items {
		if valuesEqual(value, item) {
			return true
		}
	}
	return false
}

func valuesEqual(a, b interface{}) bool {
	if an, aok := toNanos(a); aok {
		if bn, bok := toNanos(b); bok {
			return an == bn
		}
	}
	if af, aok := toFloat64(a); aok {
		if bf, bok := toFloat64(b); bok {
			return af == bf
		}
	}
	return a == b
}

// comparable returns (compare(a,b), true) when both values are
// comparable (numeric or time.Time); (0, false) otherwise.
func comparable(a, b interface{}) (int, bool) {
	if an, aok := toNanos(a); aok {
		if bn, bok := toNanos(b); bok {
			switch {
			case an < bn:
				return -1, true
			case an > bn:
				return 1, true
			default:
				return 0, true
			}
		}
	}

	af, aok := toFloat64(a)
	bf, bok := toFloat64(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	default:
		return 0, true
	}
}

func compareValues(a, b interface{}) int {
	if cmp, ok := comparable(a, b); ok {
		return cmp
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}
	return 0
}

// toNanos extracts a UnixNano timestamp from time.Time values so
// timestamp fields (e.g. blocklist expiresAt) support range operators
// the same way numeric fields do.
func toNanos(v interface{}) (int64, bool) {
	t, ok := v.(time.Time)
	if !ok {
		return 0, false
	}
	return t.UnixNano(), true
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
