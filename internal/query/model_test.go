package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesbahtanvir/docuchan/backend/internal/apperr"
)

func TestQuery_WhereIsImmutable(t *testing.T) {
	base := New()
	withCondition, err := base.Where("age", Gte, 25)
	require.NoError(t, err)

	assert.Empty(t, base.Conditions())
	assert.Len(t, withCondition.Conditions(), 1)
}

func TestQuery_DivergentBranchesDoNotAlias(t *testing.T) {
	base, err := New().Where("age", Gte, 25)
	require.NoError(t, err)

	branchA, err := base.Where("city", Eq, "NY")
	require.NoError(t, err)
	branchB, err := base.Where("city", Eq, "London")
	require.NoError(t, err)

	require.Len(t, branchA.Conditions(), 2)
	require.Len(t, branchB.Conditions(), 2)
	assert.Equal(t, "NY", branchA.Conditions()[1].Value)
	assert.Equal(t, "London", branchB.Conditions()[1].Value)
	assert.Len(t, base.Conditions(), 1)
}

func TestQuery_WhereAfterOrderByRejected(t *testing.T) {
	ordered, err := New().OrderBySet("age", Desc)
	require.NoError(t, err)

	_, err = ordered.Where("age", Gt, 25)
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidQuery, apperr.CodeOf(err))
	assert.Contains(t, err.Error(), "where must come before orderBy")
}

func TestQuery_UnrecognizedOperatorRejected(t *testing.T) {
	_, err := New().Where("age", Operator("~="), 1)
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidOperator, apperr.CodeOf(err))
}

func TestQuery_RangeOperatorRequiresNumericOrTimestamp(t *testing.T) {
	_, err := New().Where("age", Gt, "not-a-number")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidQuery, apperr.CodeOf(err))
}

func TestQuery_LimitBounds(t *testing.T) {
	_, err := New().WithLimit(0)
	assert.Error(t, err)

	_, err = New().WithLimit(1001)
	assert.Error(t, err)

	q, err := New().WithLimit(2)
	require.NoError(t, err)
	require.NotNil(t, q.LimitValue())
	assert.Equal(t, 2, *q.LimitValue())
}

func TestQuery_OffsetMustBeNonNegative(t *testing.T) {
	_, err := New().WithOffset(-1)
	assert.Error(t, err)

	q, err := New().WithOffset(0)
	require.NoError(t, err)
	require.NotNil(t, q.OffsetValue())
}

func TestQuery_OrderByAfterConditionsIsAllowed(t *testing.T) {
	q, err := New().Where("age", Gte, 25)
	require.NoError(t, err)
	q, err = q.OrderBySet("age", Desc)
	require.NoError(t, err)
	q, err = q.WithLimit(2)
	require.NoError(t, err)

	assert.NotNil(t, q.OrderByClause())
	assert.Equal(t, Desc, q.OrderByClause().Direction)
}
