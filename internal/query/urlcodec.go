package query

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/mesbahtanvir/docuchan/backend/internal/apperr"
	"github.com/mesbahtanvir/docuchan/backend/internal/utils"
)

// jsonCondition is the wire shape of one element of the long form's
// `filter` JSON array.
type jsonCondition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// DecodeURL builds a Query from HTTP request query parameters,
// supporting both URL encodings from spec.md §4.2. The long form
// (`filter=[...]`) takes precedence over the short form (`where=...`)
// when both are present; `orderBy`, `limit` and `offset` apply
// regardless of which encoding supplied the conditions.
func DecodeURL(values url.Values) (Query, error) {
	q := New()
	var conditions []jsonCondition
	var err error

	if filterParam := values.Get("filter"); filterParam != "" {
		conditions, err = decodeLongForm(filterParam)
	} else {
		conditions, err = decodeShortForm(values["where"])
	}
	if err != nil {
		return Query{}, err
	}

	for _, c := range conditions {
		q, err = q.Where(c.Field, Operator(c.Operator), c.Value)
		if err != nil {
			return Query{}, err
		}
	}

	if orderByParam := values.Get("orderBy"); orderByParam != "" {
		field, dir := orderByParam, string(Asc)
		if idx := strings.LastIndex(orderByParam, ":"); idx >= 0 {
			field, dir = orderByParam[:idx], orderByParam[idx+1:]
		}
		q, err = q.OrderBySet(field, Direction(dir))
		if err != nil {
			return Query{}, err
		}
	}

	if limitParam := values.Get("limit"); limitParam != "" {
		n, convErr := strconv.Atoi(limitParam)
		if convErr != nil {
			return Query{}, apperr.New(apperr.InvalidQueryParams, "limit must be an integer")
		}
		q, err = q.WithLimit(n)
		if err != nil {
			return Query{}, err
		}
	}

	if offsetParam := values.Get("offset"); offsetParam != "" {
		n, convErr := strconv.Atoi(offsetParam)
		if convErr != nil {
			return Query{}, apperr.New(apperr.InvalidQueryParams, "offset must be an integer")
		}
		q, err = q.WithOffset(n)
		if err != nil {
			return Query{}, err
		}
	}

	return q, nil
}

func decodeLongForm(raw string) ([]jsonCondition, error) {
	var conditions []jsonCondition
	if err := json.Unmarshal([]byte(raw), &conditions); err != nil {
		return nil, apperr.Wrap(apperr.InvalidQueryParams, "malformed filter JSON", err)
	}
	for _, c := range conditions {
		if c.Field == "" || c.Operator == "" || c.Value == nil {
			return nil, apperr.New(apperr.InvalidQueryParams, "filter entries require field, operator and value")
		}
	}
	return conditions, nil
}

// decodeShortForm parses repeated `where=field:operator:value` params.
// Values matching `[v1,v2,...]` parse as arrays (elements trimmed, cast
// to numbers on a best-effort basis); scalar values are cast the same
// way.
func decodeShortForm(whereParams []string) ([]jsonCondition, error) {
	conditions := make([]jsonCondition, 0, len(whereParams))
	for _, raw := range whereParams {
		parts := strings.SplitN(raw, ":", 3)
		if len(parts) != 3 {
			return nil, apperr.New(apperr.InvalidQueryParams, "malformed where parameter: "+raw)
		}
		field, operator, rawValue := parts[0], parts[1], parts[2]
		if field == "" || operator == "" {
			return nil, apperr.New(apperr.InvalidQueryParams, "malformed where parameter: "+raw)
		}
		conditions = append(conditions, jsonCondition{
			Field:    field,
			Operator: operator,
			Value:    parseShortValue(rawValue),
		})
	}
	return conditions, nil
}

func parseShortValue(raw string) interface{} {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		inner := trimmed[1 : len(trimmed)-1]
		parts := utils.SplitAndTrim(inner, ",")
		arr := make([]interface{}, len(parts))
		for i, p := range parts {
			arr[i] = bestEffortScalar(p)
		}
		return arr
	}
	return bestEffortScalar(trimmed)
}

func bestEffortScalar(s string) interface{} {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// EncodeURL serializes q back into URL query parameters using the long
// (`filter=`) form, the inverse of DecodeURL for that encoding. Used by
// clients that build a Query programmatically and need a shareable URL,
// and by the round-trip property in spec.md §8.
func EncodeURL(q Query) (url.Values, error) {
	values := url.Values{}

	conditions := q.Conditions()
	jsonConds := make([]jsonCondition, len(conditions))
	for i, c := range conditions {
		jsonConds[i] = jsonCondition{Field: c.Field, Operator: string(c.Operator), Value: c.Value}
	}
	encoded, err := json.Marshal(jsonConds)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to encode filter", err)
	}
	values.Set("filter", string(encoded))

	if ob := q.OrderByClause(); ob != nil {
		values.Set("orderBy", ob.Field+":"+string(ob.Direction))
	}
	if l := q.LimitValue(); l != nil {
		values.Set("limit", strconv.Itoa(*l))
	}
	if o := q.OffsetValue(); o != nil {
		values.Set("offset", strconv.Itoa(*o))
	}

	return values, nil
}
