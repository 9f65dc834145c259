package reports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Repository defines read-only access to the WooCommerce store
type Repository interface {
	// Catalog
	ProductIDsInCategories(ctx context.Context, categoryIDs []int64) ([]int64, error)
	ListProducts(ctx context.Context, categoryIDs []int64) ([]Product, error)
	ListCategories(ctx context.Context) ([]Category, error)

	// Orders
	CountOrders(ctx context.Context, query OrderQuery) (int, error)
	ListOrderIDs(ctx context.Context, query OrderQuery, sort SortDirection, limit, offset int) ([]int64, error)
	GetOrder(ctx context.Context, id int64) (*OrderRecord, error)
}

// SQLRepository implements Repository over the WooCommerce post tables
type SQLRepository struct {
	db     *sqlx.DB
	prefix string
}

// NewSQLRepository creates a repository reading tables named with the
// given WordPress table prefix (e.g. "wp_")
func NewSQLRepository(db *sqlx.DB, tablePrefix string) *SQLRepository {
	return &SQLRepository{db: db, prefix: tablePrefix}
}

// Table names, unprefixed
const (
	tablePosts             = "posts"
	tablePostMeta          = "postmeta"
	tableOrderItems        = "woocommerce_order_items"
	tableOrderItemMeta     = "woocommerce_order_itemmeta"
	tableTerms             = "terms"
	tableTermTaxonomy      = "term_taxonomy"
	tableTermRelationships = "term_relationships"
)

// Order meta keys read for every order
var orderMetaKeys = []string{
	"_billing_first_name",
	"_billing_last_name",
	"_billing_email",
	"_created_via",
	"_order_number",
	"_order_total",
	"_order_tax",
	"_order_shipping_tax",
	"_cart_discount",
}

// Line item meta keys read for every order
var lineItemMetaKeys = []string{"_product_id", "_qty", "_line_subtotal"}

func (r *SQLRepository) table(name string) string {
	return r.prefix + name
}

// selectIn expands slice args with sqlx.In and rebinds for the driver
func (r *SQLRepository) selectIn(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	expanded, expandedArgs, err := sqlx.In(query, args...)
	if err != nil {
		return fmt.Errorf("failed to expand query: %w", err)
	}
	return r.db.SelectContext(ctx, dest, r.db.Rebind(expanded), expandedArgs...)
}

// =====================================================
// Catalog
// =====================================================

func (r *SQLRepository) ProductIDsInCategories(ctx context.Context, categoryIDs []int64) ([]int64, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT p.ID AS product_id
		FROM %s p
		INNER JOIN %s tr ON p.ID = tr.object_id
		INNER JOIN %s tt ON tr.term_taxonomy_id = tt.term_taxonomy_id
		WHERE p.post_type = 'product'
		  AND p.post_status = 'publish'
		  AND tt.taxonomy = 'product_cat'
		  AND tt.term_id IN (?)
		ORDER BY product_id
	`, r.table(tablePosts), r.table(tableTermRelationships), r.table(tableTermTaxonomy))

	var ids []int64
	if err := r.selectIn(ctx, &ids, query, categoryIDs); err != nil {
		return nil, fmt.Errorf("failed to list products in categories: %w", err)
	}
	return ids, nil
}

func (r *SQLRepository) ListProducts(ctx context.Context, categoryIDs []int64) ([]Product, error) {
	var products []Product

	if len(categoryIDs) == 0 {
		query := fmt.Sprintf(`
			SELECT p.ID AS id, p.post_title AS name
			FROM %s p
			WHERE p.post_type = 'product' AND p.post_status = 'publish'
			ORDER BY name, id
		`, r.table(tablePosts))

		if err := r.db.SelectContext(ctx, &products, query); err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}
		return products, nil
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT p.ID AS id, p.post_title AS name
		FROM %s p
		INNER JOIN %s tr ON p.ID = tr.object_id
		INNER JOIN %s tt ON tr.term_taxonomy_id = tt.term_taxonomy_id
		WHERE p.post_type = 'product'
		  AND p.post_status = 'publish'
		  AND tt.taxonomy = 'product_cat'
		  AND tt.term_id IN (?)
		ORDER BY name, id
	`, r.table(tablePosts), r.table(tableTermRelationships), r.table(tableTermTaxonomy))

	if err := r.selectIn(ctx, &products, query, categoryIDs); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (r *SQLRepository) ListCategories(ctx context.Context) ([]Category, error) {
	query := fmt.Sprintf(`
		SELECT t.term_id AS term_id, t.name AS name
		FROM %s t
		INNER JOIN %s tt ON t.term_id = tt.term_id
		WHERE tt.taxonomy = 'product_cat'
		ORDER BY name, term_id
	`, r.table(tableTerms), r.table(tableTermTaxonomy))

	var categories []Category
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// =====================================================
// Orders
// =====================================================

// fromClause renders the FROM/JOIN/WHERE part shared by order queries
func (r *SQLRepository) fromClause(q OrderQuery) (string, []interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "FROM %s p", r.table(tablePosts))
	if q.JoinLineItems {
		fmt.Fprintf(&b, " INNER JOIN %s oi ON p.ID = oi.order_id AND oi.order_item_type = 'line_item'", r.table(tableOrderItems))
		fmt.Fprintf(&b, " INNER JOIN %s oim ON oi.order_item_id = oim.order_item_id", r.table(tableOrderItemMeta))
	}

	where := q.Where
	if where == nil {
		where = And{}
	}
	cond, args := Render(where)
	b.WriteString(" WHERE ")
	b.WriteString(cond)
	return b.String(), args
}

func (r *SQLRepository) CountOrders(ctx context.Context, q OrderQuery) (int, error) {
	from, args := r.fromClause(q)
	query := r.db.Rebind("SELECT COUNT(DISTINCT p.ID) " + from)

	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return total, nil
}

type orderIDRow struct {
	OrderID  int64  `db:"order_id"`
	PostDate string `db:"post_date"`
}

func (r *SQLRepository) ListOrderIDs(ctx context.Context, q OrderQuery, sort SortDirection, limit, offset int) ([]int64, error) {
	if sort != SortOldestFirst {
		sort = SortNewestFirst
	}

	from, args := r.fromClause(q)
	query := fmt.Sprintf("SELECT DISTINCT p.ID AS order_id, p.post_date AS post_date %s ORDER BY post_date %s, order_id %s",
		from, sort, sort)
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	var rows []orderIDRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.OrderID
	}
	return ids, nil
}

type orderHeaderRow struct {
	OrderID    int64  `db:"order_id"`
	PostStatus string `db:"post_status"`
	PostDate   string `db:"post_date"`
}

type metaRow struct {
	Key   string         `db:"meta_key"`
	Value sql.NullString `db:"meta_value"`
}

type itemMetaRow struct {
	ItemID int64          `db:"item_id"`
	Key    string         `db:"meta_key"`
	Value  sql.NullString `db:"meta_value"`
}

type productCategoryRow struct {
	ProductID int64  `db:"product_id"`
	TermID    int64  `db:"term_id"`
	Name      string `db:"name"`
}

func (r *SQLRepository) GetOrder(ctx context.Context, id int64) (*OrderRecord, error) {
	headerQuery := r.db.Rebind(fmt.Sprintf(`
		SELECT p.ID AS order_id, p.post_status AS post_status, p.post_date AS post_date
		FROM %s p
		WHERE p.ID = ? AND p.post_type = 'shop_order'
	`, r.table(tablePosts)))

	var header orderHeaderRow
	if err := r.db.GetContext(ctx, &header, headerQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}

	createdAt, err := parseStoreTime(header.PostDate)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", id, err)
	}

	order := &OrderRecord{
		ID:        header.OrderID,
		Number:    strconv.FormatInt(header.OrderID, 10),
		Status:    OrderStatus(strings.TrimPrefix(header.PostStatus, "wc-")),
		CreatedAt: createdAt,
	}

	if err := r.loadOrderMeta(ctx, order); err != nil {
		return nil, err
	}
	if err := r.loadLineItems(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *SQLRepository) loadOrderMeta(ctx context.Context, order *OrderRecord) error {
	query := fmt.Sprintf(`
		SELECT meta_key, meta_value
		FROM %s
		WHERE post_id = ? AND meta_key IN (?)
	`, r.table(tablePostMeta))

	var rows []metaRow
	if err := r.selectIn(ctx, &rows, query, order.ID, orderMetaKeys); err != nil {
		return fmt.Errorf("failed to get order %d meta: %w", order.ID, err)
	}

	var orderTax, shippingTax decimal.Decimal
	for _, row := range rows {
		value := row.Value.String
		switch row.Key {
		case "_billing_first_name":
			order.BillingFirstName = strings.TrimSpace(value)
		case "_billing_last_name":
			order.BillingLastName = strings.TrimSpace(value)
		case "_billing_email":
			order.BillingEmail = value
		case "_created_via":
			order.CreatedVia = value
		case "_order_number":
			if value != "" {
				order.Number = value
			}
		case "_order_total":
			order.Total = parseMoney(value)
		case "_order_tax":
			orderTax = parseMoney(value)
		case "_order_shipping_tax":
			shippingTax = parseMoney(value)
		case "_cart_discount":
			order.DiscountTotal = parseMoney(value)
		}
	}
	order.TaxTotal = orderTax.Add(shippingTax)
	return nil
}

func (r *SQLRepository) loadLineItems(ctx context.Context, order *OrderRecord) error {
	query := fmt.Sprintf(`
		SELECT oi.order_item_id AS item_id, oim.meta_key AS meta_key, oim.meta_value AS meta_value
		FROM %s oi
		INNER JOIN %s oim ON oi.order_item_id = oim.order_item_id
		WHERE oi.order_id = ?
		  AND oi.order_item_type = 'line_item'
		  AND oim.meta_key IN (?)
		ORDER BY item_id
	`, r.table(tableOrderItems), r.table(tableOrderItemMeta))

	var rows []itemMetaRow
	if err := r.selectIn(ctx, &rows, query, order.ID, lineItemMetaKeys); err != nil {
		return fmt.Errorf("failed to get order %d items: %w", order.ID, err)
	}

	var items []*LineItem
	byID := make(map[int64]*LineItem)
	for _, row := range rows {
		item, ok := byID[row.ItemID]
		if !ok {
			item = &LineItem{}
			byID[row.ItemID] = item
			items = append(items, item)
		}
		value := strings.TrimSpace(row.Value.String)
		switch row.Key {
		case "_product_id":
			item.ProductID, _ = strconv.ParseInt(value, 10, 64)
		case "_qty":
			item.Quantity, _ = strconv.Atoi(value)
		case "_line_subtotal":
			item.Subtotal = parseMoney(value)
		}
	}

	productIDs := make([]int64, 0, len(items))
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Subtotal)
		if item.ProductID > 0 {
			productIDs = append(productIDs, item.ProductID)
		}
	}
	order.Subtotal = subtotal

	names, err := r.productNames(ctx, productIDs)
	if err != nil {
		return err
	}
	categories, err := r.productCategories(ctx, productIDs)
	if err != nil {
		return err
	}

	order.LineItems = make([]LineItem, len(items))
	for i, item := range items {
		if name, ok := names[item.ProductID]; ok {
			item.ProductName = name
			item.ProductExists = true
			item.Categories = categories[item.ProductID]
		}
		order.LineItems[i] = *item
	}
	return nil
}

func (r *SQLRepository) productNames(ctx context.Context, productIDs []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(productIDs))
	if len(productIDs) == 0 {
		return names, nil
	}

	query := fmt.Sprintf(`
		SELECT p.ID AS id, p.post_title AS name
		FROM %s p
		WHERE p.post_type = 'product' AND p.ID IN (?)
	`, r.table(tablePosts))

	var products []Product
	if err := r.selectIn(ctx, &products, query, productIDs); err != nil {
		return nil, fmt.Errorf("failed to get product names: %w", err)
	}
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return names, nil
}

func (r *SQLRepository) productCategories(ctx context.Context, productIDs []int64) (map[int64][]Category, error) {
	categories := make(map[int64][]Category, len(productIDs))
	if len(productIDs) == 0 {
		return categories, nil
	}

	query := fmt.Sprintf(`
		SELECT tr.object_id AS product_id, t.term_id AS term_id, t.name AS name
		FROM %s tr
		INNER JOIN %s tt ON tr.term_taxonomy_id = tt.term_taxonomy_id
		INNER JOIN %s t ON tt.term_id = t.term_id
		WHERE tt.taxonomy = 'product_cat' AND tr.object_id IN (?)
		ORDER BY name, term_id
	`, r.table(tableTermRelationships), r.table(tableTermTaxonomy), r.table(tableTerms))

	var rows []productCategoryRow
	if err := r.selectIn(ctx, &rows, query, productIDs); err != nil {
		return nil, fmt.Errorf("failed to get product categories: %w", err)
	}
	for _, row := range rows {
		categories[row.ProductID] = append(categories[row.ProductID], Category{ID: row.TermID, Name: row.Name})
	}
	return categories, nil
}

// =====================================================
// Value Parsing
// =====================================================

var storeTimeLayouts = []string{
	StoreDateTimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// parseStoreTime parses post_date as wall-clock time, whatever form the
// driver returns it in
func parseStoreTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range storeTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized post_date %q", raw)
}

func parseMoney(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return d
}
