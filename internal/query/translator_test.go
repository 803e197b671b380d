package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate_EmptyQueryIsScan(t *testing.T) {
	tr := Translate(New())
	assert.Equal(t, map[string]interface{}{}, tr.Filter)
	assert.Nil(t, tr.Sort)
	assert.Zero(t, tr.Limit)
	assert.Zero(t, tr.Skip)
}

func TestTranslate_SingleConditionPerField(t *testing.T) {
	q, err := New().Where("age", Gte, 25.0)
	require.NoError(t, err)

	tr := Translate(q)
	assert.Equal(t, map[string]interface{}{
		"age": map[string]interface{}{"gte": 25.0},
	}, tr.Filter)
}

func TestTranslate_MultipleConditionsSameFieldGroupUnderAND(t *testing.T) {
	q, err := New().Where("age", Gte, 25.0)
	require.NoError(t, err)
	q, err = q.Where("age", Lt, 40.0)
	require.NoError(t, err)

	tr := Translate(q)
	assert.Equal(t, map[string]interface{}{
		"age": map[string]interface{}{
			"AND": []map[string]interface{}{
				{"gte": 25.0},
				{"lt": 40.0},
			},
		},
	}, tr.Filter)
}

func TestTranslate_MultipleFieldsCombineUnderTopLevelAND(t *testing.T) {
	q, err := New().Where("age", Gte, 25.0)
	require.NoError(t, err)
	q, err = q.Where("tags", ArrayContains, "developer")
	require.NoError(t, err)

	tr := Translate(q)
	expected := map[string]interface{}{
		"AND": []map[string]interface{}{
			{"age": map[string]interface{}{"gte": 25.0}},
			{"tags": map[string]interface{}{"elemMatch": map[string]interface{}{"eq": "developer"}}},
		},
	}
	assert.Equal(t, expected, tr.Filter)
}

func TestTranslate_SortSkipLimitPassThrough(t *testing.T) {
	q, err := New().Where("age", Gte, 25.0)
	require.NoError(t, err)
	q, err = q.OrderBySet("age", Desc)
	require.NoError(t, err)
	q, err = q.WithLimit(2)
	require.NoError(t, err)
	q, err = q.WithOffset(3)
	require.NoError(t, err)

	tr := Translate(q)
	assert.Equal(t, map[string]int{"age": -1}, tr.Sort)
	assert.Equal(t, 2, tr.Limit)
	assert.Equal(t, 3, tr.Skip)
}

func TestTranslate_ArrayContainsAnyMapsToIn(t *testing.T) {
	q, err := New().Where("tags", ArrayContainsAny, []interface{}{"a", "b"})
	require.NoError(t, err)

	tr := Translate(q)
	assert.Equal(t, map[string]interface{}{
		"tags": map[string]interface{}{"in": []interface{}{"a", "b"}},
	}, tr.Filter)
}
