package reports

import (
	"context"
	"sort"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeSchema mirrors the WooCommerce legacy post tables used by the report
var storeSchema = []string{
	`CREATE TABLE wp_posts (ID INTEGER PRIMARY KEY, post_type TEXT, post_status TEXT, post_date TEXT, post_title TEXT)`,
	`CREATE TABLE wp_postmeta (meta_id INTEGER PRIMARY KEY AUTOINCREMENT, post_id INTEGER, meta_key TEXT, meta_value TEXT)`,
	`CREATE TABLE wp_woocommerce_order_items (order_item_id INTEGER PRIMARY KEY, order_id INTEGER, order_item_type TEXT, order_item_name TEXT)`,
	`CREATE TABLE wp_woocommerce_order_itemmeta (meta_id INTEGER PRIMARY KEY AUTOINCREMENT, order_item_id INTEGER, meta_key TEXT, meta_value TEXT)`,
	`CREATE TABLE wp_terms (term_id INTEGER PRIMARY KEY, name TEXT)`,
	`CREATE TABLE wp_term_taxonomy (term_taxonomy_id INTEGER PRIMARY KEY, term_id INTEGER, taxonomy TEXT)`,
	`CREATE TABLE wp_term_relationships (object_id INTEGER, term_taxonomy_id INTEGER)`,
}

type fixtureItem struct {
	itemID    int64
	productID string
	qty       string
	subtotal  string
}

type fixtureOrder struct {
	id     int64
	status string
	date   string
	meta   map[string]string
	items  []fixtureItem
}

// Catalog: Kitchen (7) holds Coffee Mug (42) and a draft Teapot (44);
// Apparel (8) holds T-Shirt (43).
var fixtureOrders = []fixtureOrder{
	{
		id: 100, status: "wc-completed", date: "2024-01-05 09:30:00",
		meta: map[string]string{
			"_billing_first_name": " Ada ",
			"_billing_last_name":  "Lovelace",
			"_billing_email":      "ada@example.com",
			"_created_via":        "checkout",
			"_order_number":       "A-100",
			"_order_total":        "54.00",
			"_order_tax":          "3.50",
			"_order_shipping_tax": "0.50",
			"_cart_discount":      "5.00",
		},
		items: []fixtureItem{
			{itemID: 1, productID: "42", qty: "2", subtotal: "40.00"},
			{itemID: 2, productID: "42", qty: "1", subtotal: "15.00"},
		},
	},
	{
		id: 101, status: "wc-processing", date: "2024-01-06 14:00:00",
		meta: map[string]string{
			"_billing_email": "bob@example.com",
			"_created_via":   "checkout",
			"_order_total":   "20.00",
		},
		items: []fixtureItem{{itemID: 3, productID: "43", qty: "1", subtotal: "20.00"}},
	},
	{
		id: 102, status: "wc-cancelled", date: "2024-01-06 15:00:00",
		meta:  map[string]string{"_created_via": "checkout", "_order_total": "15.00"},
		items: []fixtureItem{{itemID: 4, productID: "42", qty: "1", subtotal: "15.00"}},
	},
	{
		id: 103, status: "wc-on-hold", date: "2024-02-01 08:00:00",
		meta: map[string]string{
			"_billing_email": "ada@example.com",
			"_created_via":   "subscription",
			"_order_total":   "35.00",
		},
		items: []fixtureItem{
			{itemID: 5, productID: "42", qty: "1", subtotal: "15.00"},
			{itemID: 6, productID: "43", qty: "1", subtotal: "20.00"},
		},
	},
	{
		id: 104, status: "wc-completed", date: "2024-02-02 08:00:00",
		meta:  map[string]string{"_created_via": "checkout", "_order_total": "9.00"},
		items: []fixtureItem{{itemID: 7, productID: "77", qty: "1", subtotal: "9.00"}},
	},
}

func setupStore(t *testing.T) *SQLRepository {
	t.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range storeSchema {
		db.MustExec(stmt)
	}

	db.MustExec(`INSERT INTO wp_terms (term_id, name) VALUES (7, 'Kitchen'), (8, 'Apparel'), (9, 'Empty')`)
	db.MustExec(`INSERT INTO wp_term_taxonomy (term_taxonomy_id, term_id, taxonomy) VALUES (70, 7, 'product_cat'), (80, 8, 'product_cat'), (90, 9, 'product_cat'), (95, 7, 'product_tag')`)
	db.MustExec(`INSERT INTO wp_posts (ID, post_type, post_status, post_date, post_title) VALUES
		(42, 'product', 'publish', '2023-12-01 00:00:00', 'Coffee Mug'),
		(43, 'product', 'publish', '2023-12-01 00:00:00', 'T-Shirt'),
		(44, 'product', 'draft', '2023-12-01 00:00:00', 'Teapot')`)
	db.MustExec(`INSERT INTO wp_term_relationships (object_id, term_taxonomy_id) VALUES (42, 70), (43, 80), (44, 70), (43, 95)`)

	for _, o := range fixtureOrders {
		db.MustExec(`INSERT INTO wp_posts (ID, post_type, post_status, post_date, post_title) VALUES (?, 'shop_order', ?, ?, '')`,
			o.id, o.status, o.date)
		for k, v := range o.meta {
			db.MustExec(`INSERT INTO wp_postmeta (post_id, meta_key, meta_value) VALUES (?, ?, ?)`, o.id, k, v)
		}
		for _, item := range o.items {
			db.MustExec(`INSERT INTO wp_woocommerce_order_items (order_item_id, order_id, order_item_type, order_item_name) VALUES (?, ?, 'line_item', '')`,
				item.itemID, o.id)
			db.MustExec(`INSERT INTO wp_woocommerce_order_itemmeta (order_item_id, meta_key, meta_value) VALUES (?, '_product_id', ?), (?, '_qty', ?), (?, '_line_subtotal', ?)`,
				item.itemID, item.productID, item.itemID, item.qty, item.itemID, item.subtotal)
		}
	}
	// a shipping line must not be read as a product
	db.MustExec(`INSERT INTO wp_woocommerce_order_items (order_item_id, order_id, order_item_type, order_item_name) VALUES (50, 100, 'shipping', 'Flat rate')`)
	db.MustExec(`INSERT INTO wp_woocommerce_order_itemmeta (order_item_id, meta_key, meta_value) VALUES (50, '_product_id', '43')`)

	return NewSQLRepository(db, "wp_")
}

func TestSQLRepository_Catalog(t *testing.T) {
	repo := setupStore(t)
	ctx := context.Background()

	ids, err := repo.ProductIDsInCategories(ctx, []int64{7})
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, ids)

	ids, err = repo.ProductIDsInCategories(ctx, []int64{9})
	require.NoError(t, err)
	assert.Empty(t, ids)

	products, err := repo.ListProducts(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []Product{{ID: 42, Name: "Coffee Mug"}, {ID: 43, Name: "T-Shirt"}}, products)

	products, err = repo.ListProducts(ctx, []int64{8})
	require.NoError(t, err)
	assert.Equal(t, []Product{{ID: 43, Name: "T-Shirt"}}, products)

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Category{{ID: 8, Name: "Apparel"}, {ID: 9, Name: "Empty"}, {ID: 7, Name: "Kitchen"}}, categories)
}

func TestSQLRepository_GetOrder(t *testing.T) {
	repo := setupStore(t)

	order, err := repo.GetOrder(context.Background(), 100)
	require.NoError(t, err)

	assert.Equal(t, "A-100", order.Number)
	assert.Equal(t, OrderStatusCompleted, order.Status)
	assert.Equal(t, "Ada Lovelace", order.BillingName())
	assert.Equal(t, "ada@example.com", order.BillingEmail)
	assert.True(t, order.FromCheckout())
	assert.Equal(t, day("2024-01-05 09:30:00"), order.CreatedAt)
	assert.Equal(t, "55", order.Subtotal.String())
	assert.Equal(t, "5", order.DiscountTotal.String())
	assert.Equal(t, "4", order.TaxTotal.String())
	assert.Equal(t, "54", order.Total.String())

	require.Len(t, order.LineItems, 2)
	item := order.LineItems[0]
	assert.Equal(t, int64(42), item.ProductID)
	assert.Equal(t, "Coffee Mug", item.ProductName)
	assert.True(t, item.ProductExists)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, []Category{{ID: 7, Name: "Kitchen"}}, item.Categories)
}

func TestSQLRepository_GetOrder_Defaults(t *testing.T) {
	repo := setupStore(t)

	order, err := repo.GetOrder(context.Background(), 104)
	require.NoError(t, err)

	assert.Equal(t, "104", order.Number)
	require.Len(t, order.LineItems, 1)
	assert.False(t, order.LineItems[0].ProductExists)
	assert.Equal(t, "", BuildExportRow(order).Products)
}

func TestSQLRepository_GetOrder_NotFound(t *testing.T) {
	repo := setupStore(t)

	_, err := repo.GetOrder(context.Background(), 999)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	// products are posts too, but not orders
	_, err = repo.GetOrder(context.Background(), 42)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestSQLRepository_ListOrderIDs(t *testing.T) {
	repo := setupStore(t)
	ctx := context.Background()
	all := BuildOrderQuery(FilterSpec{}, nil)

	total, err := repo.CountOrders(ctx, all)
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	ids, err := repo.ListOrderIDs(ctx, all, SortNewestFirst, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{104, 103, 101, 100}, ids)

	ids, err = repo.ListOrderIDs(ctx, all, SortOldestFirst, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 101, 103, 104}, ids)

	ids, err = repo.ListOrderIDs(ctx, all, SortNewestFirst, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{103, 101}, ids)
}

func TestSQLRepository_CategoryFilter(t *testing.T) {
	repo := setupStore(t)
	ctx := context.Background()

	query, err := NewQueryBuilder(repo).Build(ctx, FilterSpec{CategoryIDs: []int64{7}})
	require.NoError(t, err)

	ids, err := repo.ListOrderIDs(ctx, query, SortOldestFirst, 0, 0)
	require.NoError(t, err)
	// order 103 has two Kitchen lines but appears once; 101 only holds apparel
	assert.Equal(t, []int64{100, 103}, ids)

	total, err := repo.CountOrders(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestSQLRepository_EmptyCategoryMatchesNothing(t *testing.T) {
	repo := setupStore(t)
	ctx := context.Background()

	query, err := NewQueryBuilder(repo).Build(ctx, FilterSpec{CategoryIDs: []int64{9}})
	require.NoError(t, err)

	total, err := repo.CountOrders(ctx, query)
	require.NoError(t, err)
	assert.Zero(t, total)
}

// matchesFilter evaluates filters against a loaded order directly
func matchesFilter(order *OrderRecord, f FilterSpec, categoryProducts []int64) bool {
	date := order.CreatedAt.Format(BucketKeyLayout)
	if f.DateFrom != "" && date < f.DateFrom {
		return false
	}
	if f.DateTo != "" && date > f.DateTo {
		return false
	}
	if !f.HasProductFilter() {
		return true
	}
	wanted := make(map[int64]bool)
	for _, id := range append(append([]int64{}, f.ProductIDs...), categoryProducts...) {
		wanted[id] = true
	}
	for _, item := range order.LineItems {
		if wanted[item.ProductID] {
			return true
		}
	}
	return false
}

func TestSQLRepository_FilterSoundAndComplete(t *testing.T) {
	repo := setupStore(t)
	ctx := context.Background()
	reportable := []int64{100, 101, 103, 104}

	filters := []FilterSpec{
		{},
		{DateFrom: "2024-01-06"},
		{DateTo: "2024-01-06"},
		{DateFrom: "2024-01-05", DateTo: "2024-01-05"},
		{ProductIDs: []int64{43}},
		{ProductIDs: []int64{77}},
		{CategoryIDs: []int64{7}},
		{CategoryIDs: []int64{8}, ProductIDs: []int64{42}},
		{CategoryIDs: []int64{9}, ProductIDs: []int64{43}},
		{CategoryIDs: []int64{7}, DateFrom: "2024-02-01"},
	}

	for _, f := range filters {
		categoryProducts, err := repo.ProductIDsInCategories(ctx, f.CategoryIDs)
		require.NoError(t, err)

		var expected []int64
		for _, id := range reportable {
			order, err := repo.GetOrder(ctx, id)
			require.NoError(t, err)
			if matchesFilter(order, f, categoryProducts) {
				expected = append(expected, id)
			}
		}

		query, err := NewQueryBuilder(repo).Build(ctx, f)
		require.NoError(t, err)
		got, err := repo.ListOrderIDs(ctx, query, SortOldestFirst, 0, 0)
		require.NoError(t, err)

		sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
		if len(expected) == 0 {
			assert.Empty(t, got, "filter %+v", f)
			continue
		}
		assert.Equal(t, expected, got, "filter %+v", f)
	}
}

func TestSQLRepository_TablePrefix(t *testing.T) {
	repo := setupStore(t)
	other := NewSQLRepository(repo.db, "shop_")

	_, err := other.ListCategories(context.Background())
	assert.ErrorContains(t, err, "shop_terms")
}

func TestParseStoreTime(t *testing.T) {
	for _, raw := range []string{"2024-01-05 09:30:00", "2024-01-05T09:30:00Z", "2024-01-05T09:30:00"} {
		parsed, err := parseStoreTime(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, "2024-01-05 09:30:00", parsed.Format(StoreDateTimeLayout))
	}

	_, err := parseStoreTime("last tuesday")
	assert.Error(t, err)
}

func TestParseMoney(t *testing.T) {
	assert.Equal(t, "12.5", parseMoney(" 12.50 ").String())
	assert.True(t, parseMoney("").IsZero())
	assert.True(t, parseMoney("n/a").IsZero())
}
