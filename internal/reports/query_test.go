package reports

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		pred Predicate
		sql  string
		args []interface{}
	}{
		{
			name: "eq",
			pred: Eq{Column: ColumnPostType, Value: "shop_order"},
			sql:  "p.post_type = ?",
			args: []interface{}{"shop_order"},
		},
		{
			name: "in",
			pred: In{Column: ColumnPostStatus, Values: []interface{}{"wc-completed", "wc-on-hold"}},
			sql:  "p.post_status IN (?, ?)",
			args: []interface{}{"wc-completed", "wc-on-hold"},
		},
		{
			name: "empty in matches nothing",
			pred: In{Column: ColumnPostStatus},
			sql:  "1 = 0",
		},
		{
			name: "range",
			pred: And{
				Gte{Column: ColumnPostDate, Value: "2024-01-01 00:00:00"},
				Lte{Column: ColumnPostDate, Value: "2024-01-31 23:59:59"},
			},
			sql:  "(p.post_date >= ? AND p.post_date <= ?)",
			args: []interface{}{"2024-01-01 00:00:00", "2024-01-31 23:59:59"},
		},
		{
			name: "empty and matches everything",
			pred: And{},
			sql:  "1 = 1",
		},
		{
			name: "empty or matches nothing",
			pred: Or{},
			sql:  "1 = 0",
		},
		{
			name: "single child is not wrapped",
			pred: Or{Eq{Column: ColumnItemMetaKey, Value: "_product_id"}},
			sql:  "oim.meta_key = ?",
			args: []interface{}{"_product_id"},
		},
		{
			name: "nested",
			pred: Or{
				Never{},
				And{
					Eq{Column: ColumnItemMetaKey, Value: "_product_id"},
					In{Column: ColumnItemMetaValue, Values: []interface{}{"42"}},
				},
			},
			sql:  "(1 = 0 OR (oim.meta_key = ? AND oim.meta_value IN (?)))",
			args: []interface{}{"_product_id", "42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := Render(tt.pred)
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestBuildOrderQuery_NoFilters(t *testing.T) {
	q := BuildOrderQuery(FilterSpec{}, nil)

	assert.False(t, q.JoinLineItems)
	sql, args := Render(q.Where)
	assert.Equal(t, "(p.post_type = ? AND p.post_status IN (?, ?, ?))", sql)
	assert.Equal(t, []interface{}{"shop_order", "wc-completed", "wc-processing", "wc-on-hold"}, args)
}

func TestBuildOrderQuery_DateBoundsAreInclusiveDays(t *testing.T) {
	q := BuildOrderQuery(FilterSpec{DateFrom: "2024-01-05", DateTo: "2024-01-06"}, nil)

	sql, args := Render(q.Where)
	assert.Contains(t, sql, "p.post_date >= ?")
	assert.Contains(t, sql, "p.post_date <= ?")
	assert.Contains(t, args, "2024-01-05 00:00:00")
	assert.Contains(t, args, "2024-01-06 23:59:59")
	assert.False(t, q.JoinLineItems)
}

func TestBuildOrderQuery_ProductsAndCategoriesAreUnioned(t *testing.T) {
	q := BuildOrderQuery(FilterSpec{CategoryIDs: []int64{7}, ProductIDs: []int64{42}}, []int64{42, 43})

	assert.True(t, q.JoinLineItems)
	sql, args := Render(q.Where)
	assert.Contains(t, sql, "((oim.meta_key = ? AND oim.meta_value IN (?)) OR (oim.meta_key = ? AND oim.meta_value IN (?, ?)))")
	assert.Equal(t, []interface{}{"42", "_product_id", "42", "43"}, args[len(args)-4:])
}

func TestBuildOrderQuery_EmptyCategoryMatchesNothing(t *testing.T) {
	q := BuildOrderQuery(FilterSpec{CategoryIDs: []int64{99}}, nil)

	assert.True(t, q.JoinLineItems)
	sql, _ := Render(q.Where)
	assert.Contains(t, sql, "1 = 0")
}

func TestBuildOrderQuery_EmptyCategoryStillAllowsProducts(t *testing.T) {
	q := BuildOrderQuery(FilterSpec{CategoryIDs: []int64{99}, ProductIDs: []int64{42}}, nil)

	sql, args := Render(q.Where)
	assert.Contains(t, sql, "((oim.meta_key = ? AND oim.meta_value IN (?)) OR 1 = 0)")
	assert.Equal(t, "42", args[len(args)-1])
}

func TestQueryBuilder_Build(t *testing.T) {
	ctx := context.Background()

	t.Run("expands categories through the store", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ProductIDsInCategories", ctx, []int64{7}).Return([]int64{42}, nil)

		q, err := NewQueryBuilder(repo).Build(ctx, FilterSpec{CategoryIDs: []int64{7}})
		require.NoError(t, err)

		_, args := Render(q.Where)
		assert.Equal(t, "42", args[len(args)-1])
		repo.AssertExpectations(t)
	})

	t.Run("skips the lookup without categories", func(t *testing.T) {
		repo := new(MockRepository)

		q, err := NewQueryBuilder(repo).Build(ctx, FilterSpec{ProductIDs: []int64{42}})
		require.NoError(t, err)

		assert.True(t, q.JoinLineItems)
		repo.AssertNotCalled(t, "ProductIDsInCategories", mock.Anything, mock.Anything)
	})

	t.Run("wraps lookup failures", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ProductIDsInCategories", ctx, []int64{7}).Return(nil, errors.New("db down"))

		_, err := NewQueryBuilder(repo).Build(ctx, FilterSpec{CategoryIDs: []int64{7}})
		assert.ErrorContains(t, err, "failed to expand categories")
	})
}
