package firestorestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesbahtanvir/docuchan/backend/internal/apperr"
	"github.com/mesbahtanvir/docuchan/backend/internal/query"
)

func TestFlattenFilter_Empty(t *testing.T) {
	clauses, err := flattenFilter(map[string]interface{}{})
	require.NoError(t, err)
	assert.Empty(t, clauses)
}

func TestFlattenFilter_SingleCondition(t *testing.T) {
	q, err := query.New().Where("age", query.Gte, 25.0)
	require.NoError(t, err)
	tr := query.Translate(q)

	clauses, err := flattenFilter(tr.Filter)
	require.NoError(t, err)
	require.Len(t, clauses, 1)
	assert.Equal(t, whereClause{field: "age", op: ">=", value: 25.0}, clauses[0])
}

func TestFlattenFilter_MultiFieldAND(t *testing.T) {
	q, err := query.New().Where("age", query.Gte, 25.0)
	require.NoError(t, err)
	q, err = q.Where("city", query.Eq, "NY")
	require.NoError(t, err)
	tr := query.Translate(q)

	clauses, err := flattenFilter(tr.Filter)
	require.NoError(t, err)
	require.Len(t, clauses, 2)

	byField := map[string]whereClause{}
	for _, c := range clauses {
		byField[c.field] = c
	}
	assert.Equal(t, ">=", byField["age"].op)
	assert.Equal(t, "==", byField["city"].op)
}

func TestFlattenFilter_SameFieldAND(t *testing.T) {
	q, err := query.New().Where("age", query.Gte, 20.0)
	require.NoError(t, err)
	q, err = q.Where("age", query.Lt, 40.0)
	require.NoError(t, err)
	tr := query.Translate(q)

	clauses, err := flattenFilter(tr.Filter)
	require.NoError(t, err)
	require.Len(t, clauses, 2)
	for _, c := range clauses {
		assert.Equal(t, "age", c.field)
	}
}

func TestFlattenFilter_ArrayContains(t *testing.T) {
	q, err := query.New().Where("tags", query.ArrayContains, "developer")
	require.NoError(t, err)
	tr := query.Translate(q)

	clauses, err := flattenFilter(tr.Filter)
	require.NoError(t, err)
	require.Len(t, clauses, 1)
	assert.Equal(t, "array-contains", clauses[0].op)
	assert.Equal(t, "developer", clauses[0].value)
}

func TestFlattenFilter_UnsupportedOperator(t *testing.T) {
	_, err := flattenFilter(map[string]interface{}{
		"age": map[string]interface{}{"bogus": 1},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidQuery, apperr.CodeOf(err))
}

func TestDocsEqual(t *testing.T) {
	a := map[string]interface{}{"name": "John", "age": 25.0}
	b := map[string]interface{}{"name": "John", "age": 25.0}
	c := map[string]interface{}{"name": "John", "age": 26.0}

	assert.True(t, docsEqual(a, b))
	assert.False(t, docsEqual(a, c))
	assert.False(t, docsEqual(a, map[string]interface{}{"name": "John"}))
}
