package reports

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// =====================================================
// Predicates
// =====================================================

// Column is a qualified column the order query may filter on. Only the
// constants below are ever rendered into SQL; values always travel as args.
type Column string

const (
	ColumnPostType      Column = "p.post_type"
	ColumnPostStatus    Column = "p.post_status"
	ColumnPostDate      Column = "p.post_date"
	ColumnItemMetaKey   Column = "oim.meta_key"
	ColumnItemMetaValue Column = "oim.meta_value"
)

// Predicate is a composable WHERE condition
type Predicate interface {
	render(b *strings.Builder, args []interface{}) []interface{}
}

// Eq matches column = value
type Eq struct {
	Column Column
	Value  interface{}
}

// In matches column IN (values); an empty list matches nothing
type In struct {
	Column Column
	Values []interface{}
}

// Gte matches column >= value
type Gte struct {
	Column Column
	Value  interface{}
}

// Lte matches column <= value
type Lte struct {
	Column Column
	Value  interface{}
}

// And matches when every child matches; empty matches everything
type And []Predicate

// Or matches when any child matches; empty matches nothing
type Or []Predicate

// Never matches nothing
type Never struct{}

func (p Eq) render(b *strings.Builder, args []interface{}) []interface{} {
	b.WriteString(string(p.Column))
	b.WriteString(" = ?")
	return append(args, p.Value)
}

func (p In) render(b *strings.Builder, args []interface{}) []interface{} {
	if len(p.Values) == 0 {
		b.WriteString("1 = 0")
		return args
	}
	b.WriteString(string(p.Column))
	b.WriteString(" IN (")
	for i, v := range p.Values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("?")
		args = append(args, v)
	}
	b.WriteString(")")
	return args
}

func (p Gte) render(b *strings.Builder, args []interface{}) []interface{} {
	b.WriteString(string(p.Column))
	b.WriteString(" >= ?")
	return append(args, p.Value)
}

func (p Lte) render(b *strings.Builder, args []interface{}) []interface{} {
	b.WriteString(string(p.Column))
	b.WriteString(" <= ?")
	return append(args, p.Value)
}

func (p And) render(b *strings.Builder, args []interface{}) []interface{} {
	return renderGroup(b, args, []Predicate(p), " AND ", "1 = 1")
}

func (p Or) render(b *strings.Builder, args []interface{}) []interface{} {
	return renderGroup(b, args, []Predicate(p), " OR ", "1 = 0")
}

func (Never) render(b *strings.Builder, args []interface{}) []interface{} {
	b.WriteString("1 = 0")
	return args
}

func renderGroup(b *strings.Builder, args []interface{}, children []Predicate, sep, empty string) []interface{} {
	switch len(children) {
	case 0:
		b.WriteString(empty)
		return args
	case 1:
		return children[0].render(b, args)
	}
	b.WriteString("(")
	for i, child := range children {
		if i > 0 {
			b.WriteString(sep)
		}
		args = child.render(b, args)
	}
	b.WriteString(")")
	return args
}

// Render turns a predicate into SQL with "?" placeholders and its args
func Render(p Predicate) (string, []interface{}) {
	var b strings.Builder
	args := p.render(&b, nil)
	return b.String(), args
}

// =====================================================
// Order Query
// =====================================================

// OrderQuery selects candidate shop orders
type OrderQuery struct {
	Where Predicate
	// JoinLineItems joins order items and their meta so line-item
	// predicates can be evaluated
	JoinLineItems bool
}

// BuildOrderQuery translates filters into an order query. categoryProductIDs
// is the product set the filter's categories expand to.
func BuildOrderQuery(filters FilterSpec, categoryProductIDs []int64) OrderQuery {
	statuses := make([]interface{}, len(ReportableStatuses))
	for i, s := range ReportableStatuses {
		statuses[i] = s.PostStatus()
	}

	where := And{
		Eq{Column: ColumnPostType, Value: "shop_order"},
		In{Column: ColumnPostStatus, Values: statuses},
	}

	if filters.DateFrom != "" {
		where = append(where, Gte{Column: ColumnPostDate, Value: filters.DateFrom + " 00:00:00"})
	}
	if filters.DateTo != "" {
		where = append(where, Lte{Column: ColumnPostDate, Value: filters.DateTo + " 23:59:59"})
	}

	query := OrderQuery{Where: where}
	if !filters.HasProductFilter() {
		return query
	}

	var products Or
	if len(filters.ProductIDs) > 0 {
		products = append(products, lineItemProductIn(filters.ProductIDs))
	}
	if len(filters.CategoryIDs) > 0 {
		if len(categoryProductIDs) > 0 {
			products = append(products, lineItemProductIn(categoryProductIDs))
		} else {
			products = append(products, Never{})
		}
	}

	query.Where = append(where, products)
	query.JoinLineItems = true
	return query
}

// lineItemProductIn matches line items whose _product_id meta is one of ids.
// Item meta values are strings in every WooCommerce install.
func lineItemProductIn(ids []int64) Predicate {
	values := make([]interface{}, len(ids))
	for i, id := range ids {
		values[i] = strconv.FormatInt(id, 10)
	}
	return And{
		Eq{Column: ColumnItemMetaKey, Value: "_product_id"},
		In{Column: ColumnItemMetaValue, Values: values},
	}
}

// QueryBuilder resolves filters against the store, expanding categories
// into their products before building the order query
type QueryBuilder struct {
	repo Repository
}

// NewQueryBuilder creates a new query builder
func NewQueryBuilder(repo Repository) *QueryBuilder {
	return &QueryBuilder{repo: repo}
}

// Build resolves filters into an order query
func (b *QueryBuilder) Build(ctx context.Context, filters FilterSpec) (OrderQuery, error) {
	var categoryProducts []int64
	if len(filters.CategoryIDs) > 0 {
		ids, err := b.repo.ProductIDsInCategories(ctx, filters.CategoryIDs)
		if err != nil {
			return OrderQuery{}, fmt.Errorf("failed to expand categories: %w", err)
		}
		categoryProducts = ids
	}
	return BuildOrderQuery(filters, categoryProducts), nil
}
