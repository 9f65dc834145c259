package reports

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// =====================================================
// Enums and Constants
// =====================================================

// OrderStatus is a WooCommerce order status without the "wc-" post prefix
type OrderStatus string

const (
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusOnHold     OrderStatus = "on-hold"
)

// ReportableStatuses are the statuses an order must have to appear in a report
var ReportableStatuses = []OrderStatus{
	OrderStatusCompleted,
	OrderStatusProcessing,
	OrderStatusOnHold,
}

// PostStatus returns the status as stored in the posts table
func (s OrderStatus) PostStatus() string {
	return "wc-" + string(s)
}

// IsFulfilled reports whether the status counts toward completed orders
func (s OrderStatus) IsFulfilled() bool {
	return s == OrderStatusCompleted || s == OrderStatusProcessing
}

// CreatedViaCheckout marks orders placed through the storefront checkout
const CreatedViaCheckout = "checkout"

// ExportFormat represents supported export formats
type ExportFormat string

const (
	ExportFormatCSV   ExportFormat = "csv"
	ExportFormatExcel ExportFormat = "xlsx"
	ExportFormatPDF   ExportFormat = "pdf"
)

// SortDirection orders candidate orders by creation date
type SortDirection string

const (
	SortNewestFirst SortDirection = "DESC"
	SortOldestFirst SortDirection = "ASC"
)

// Date layouts shared by the listing, export and chart series
const (
	StoreDateTimeLayout  = "2006-01-02 15:04:05"
	PurchaseDateLayout   = "Jan 2, 2006 at 3:04 PM"
	ChartLabelLayout     = "Jan 2"
	ChartLabelYearLayout = "Jan 2, 2006"
	BucketKeyLayout      = "2006-01-02"
)

var (
	// ErrNothingToExport is returned when a filter matches no exportable order
	ErrNothingToExport = errors.New("no data to export")
	// ErrOrderNotFound is returned when an order id no longer resolves to a shop order
	ErrOrderNotFound = errors.New("order not found")
)

// =====================================================
// Filter Types
// =====================================================

// FilterSpec is the normalized report criteria for one request.
// Dates are inclusive calendar days in YYYY-MM-DD form, kept verbatim;
// empty id sets mean no restriction.
type FilterSpec struct {
	DateFrom    string  `json:"date_from,omitempty"`
	DateTo      string  `json:"date_to,omitempty"`
	CategoryIDs []int64 `json:"category_ids,omitempty"`
	ProductIDs  []int64 `json:"product_ids,omitempty"`
}

// IsEmpty reports whether no criterion is set
func (f FilterSpec) IsEmpty() bool {
	return f.DateFrom == "" && f.DateTo == "" && len(f.CategoryIDs) == 0 && len(f.ProductIDs) == 0
}

// HasProductFilter reports whether line-item filtering applies
func (f FilterSpec) HasProductFilter() bool {
	return len(f.CategoryIDs) > 0 || len(f.ProductIDs) > 0
}

// ReportRequest is everything a report or export request carries
type ReportRequest struct {
	Filters      FilterSpec
	Page         int
	Export       bool
	ExportFormat ExportFormat
}

// =====================================================
// Store Records
// =====================================================

// Category is a product_cat term
type Category struct {
	ID   int64  `json:"id" db:"term_id"`
	Name string `json:"name" db:"name"`
}

// Product is a published product post
type Product struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// LineItem is one product-quantity entry of an order
type LineItem struct {
	ProductID     int64           `json:"product_id"`
	ProductName   string          `json:"product_name"`
	ProductExists bool            `json:"product_exists"`
	Categories    []Category      `json:"categories,omitempty"`
	Quantity      int             `json:"quantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

// OrderRecord is a read-only view of a shop order
type OrderRecord struct {
	ID               int64           `json:"id"`
	Number           string          `json:"number"`
	Status           OrderStatus     `json:"status"`
	CreatedVia       string          `json:"created_via"`
	CreatedAt        time.Time       `json:"created_at"`
	BillingFirstName string          `json:"billing_first_name"`
	BillingLastName  string          `json:"billing_last_name"`
	BillingEmail     string          `json:"billing_email"`
	LineItems        []LineItem      `json:"line_items"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	DiscountTotal    decimal.Decimal `json:"discount_total"`
	TaxTotal         decimal.Decimal `json:"tax_total"`
	Total            decimal.Decimal `json:"total"`
}

// FromCheckout reports whether the order was placed through checkout
// rather than generated by a subscription renewal
func (o *OrderRecord) FromCheckout() bool {
	return o.CreatedVia == CreatedViaCheckout
}

// BillingName is the trimmed "first last" billing name
func (o *OrderRecord) BillingName() string {
	switch {
	case o.BillingFirstName == "":
		return o.BillingLastName
	case o.BillingLastName == "":
		return o.BillingFirstName
	}
	return o.BillingFirstName + " " + o.BillingLastName
}

// =====================================================
// Aggregate Types
// =====================================================

// DateCount is one point of the orders-over-time series
type DateCount struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// RevenueTotals groups the revenue components tracked per order
type RevenueTotals struct {
	Cart     decimal.Decimal `json:"cart"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Checkout decimal.Decimal `json:"checkout"`
	Future   decimal.Decimal `json:"future"`
	Grand    decimal.Decimal `json:"grand"`
}

func (t *RevenueTotals) add(o *OrderRecord) {
	// future revenue (deferred subscription payments) is not modeled
	future := decimal.Zero

	t.Cart = t.Cart.Add(o.Subtotal)
	t.Discount = t.Discount.Add(o.DiscountTotal)
	t.Tax = t.Tax.Add(o.TaxTotal)
	t.Checkout = t.Checkout.Add(o.Total)
	t.Future = t.Future.Add(future)
	t.Grand = t.Grand.Add(o.Total.Add(future))
}

// RevenueBucket is one point of the revenue-over-time series
type RevenueBucket struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	RevenueTotals
}

// CategoryCount is one entry of the top categories chart
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AggregateResult holds the analytics for a filtered order set
type AggregateResult struct {
	TotalOrders        int             `json:"total_orders"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	AvgOrderValue      decimal.Decimal `json:"avg_order_value"`
	UniqueCustomers    int             `json:"unique_customers"`
	NewCustomers       int             `json:"new_customers"`
	ReturningCustomers int             `json:"returning_customers"`
	OrdersByDate       []DateCount     `json:"orders_by_date"`
	RevenueByDate      []RevenueBucket `json:"revenue_by_date"`
	TopCategories      []CategoryCount `json:"top_categories"`
	ProductsSold       int             `json:"products_sold"`
	CompletedOrders    int             `json:"completed_orders"`
	CompletionRate     float64         `json:"completion_rate"`
	Totals             RevenueTotals   `json:"totals"`
}

// =====================================================
// Listing and Export Types
// =====================================================

// ExportRow is the flattened, human-readable form of one order
type ExportRow struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	OrderNumber   string `json:"order_number"`
	PurchaseDate  string `json:"purchase_date"`
	Categories    string `json:"categories"`
	Products      string `json:"products"`
}

// ExportColumns are the column headings of every export format
var ExportColumns = []string{
	"Customer Name",
	"Customer Email",
	"Order Number",
	"Purchase Date",
	"Product Categories",
	"Products",
}

// Record returns the row as export cells
func (r ExportRow) Record() []string {
	return []string{
		r.CustomerName,
		r.CustomerEmail,
		"#" + r.OrderNumber,
		r.PurchaseDate,
		r.Categories,
		r.Products,
	}
}

// ListingRow is an export row that still knows its order id
type ListingRow struct {
	OrderID int64 `json:"order_id"`
	ExportRow
}

// OrderListing is one page of the filtered order listing
type OrderListing struct {
	Orders     []ListingRow `json:"orders"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	PerPage    int          `json:"per_page"`
	TotalPages int          `json:"total_pages"`
}

// ReportResponse is returned by the report endpoint
type ReportResponse struct {
	Filters   FilterSpec       `json:"filters"`
	Analytics *AggregateResult `json:"analytics"`
	Listing   *OrderListing    `json:"listing"`
}

// ExportResult summarizes a finished export
type ExportResult struct {
	Rows      int  `json:"rows"`
	Truncated bool `json:"truncated"`
}
