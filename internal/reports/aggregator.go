package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTopCategories is the number of categories kept in the chart
const DefaultTopCategories = 6

// Aggregator accumulates analytics over orders fed in ascending date
// order. It is not safe for concurrent use.
type Aggregator struct {
	topN int

	totalOrders     int
	completedOrders int
	productsSold    int
	totals          RevenueTotals

	// billing email -> order count
	customerOrders map[string]int

	buckets     map[string]*dateBucket
	bucketOrder []string

	categoryCounts map[string]int
	categoryOrder  []string
}

type dateBucket struct {
	day     time.Time
	count   int
	revenue RevenueTotals
}

// NewAggregator creates an aggregator keeping the topN categories
func NewAggregator(topN int) *Aggregator {
	if topN <= 0 {
		topN = DefaultTopCategories
	}
	return &Aggregator{
		topN:           topN,
		customerOrders: make(map[string]int),
		buckets:        make(map[string]*dateBucket),
		categoryCounts: make(map[string]int),
	}
}

// Add folds one order into the running totals. Orders not placed through
// checkout are ignored.
func (a *Aggregator) Add(order *OrderRecord) {
	if order == nil || !order.FromCheckout() {
		return
	}

	a.totalOrders++
	a.totals.add(order)

	if order.Status.IsFulfilled() {
		a.completedOrders++
	}

	if order.BillingEmail != "" {
		a.customerOrders[order.BillingEmail]++
	}

	key := order.CreatedAt.Format(BucketKeyLayout)
	bucket, ok := a.buckets[key]
	if !ok {
		bucket = &dateBucket{day: order.CreatedAt}
		a.buckets[key] = bucket
		a.bucketOrder = append(a.bucketOrder, key)
	}
	bucket.count++
	bucket.revenue.add(order)

	for _, item := range order.LineItems {
		if !item.ProductExists {
			continue
		}
		a.productsSold += item.Quantity
		for _, category := range item.Categories {
			if _, seen := a.categoryCounts[category.Name]; !seen {
				a.categoryOrder = append(a.categoryOrder, category.Name)
			}
			a.categoryCounts[category.Name]++
		}
	}
}

// Result returns the analytics accumulated so far
func (a *Aggregator) Result() *AggregateResult {
	result := &AggregateResult{
		TotalOrders:     a.totalOrders,
		TotalRevenue:    a.totals.Checkout,
		AvgOrderValue:   decimal.Zero,
		UniqueCustomers: len(a.customerOrders),
		ProductsSold:    a.productsSold,
		CompletedOrders: a.completedOrders,
		Totals:          a.totals,
		OrdersByDate:    make([]DateCount, 0, len(a.bucketOrder)),
		RevenueByDate:   make([]RevenueBucket, 0, len(a.bucketOrder)),
	}

	if a.totalOrders > 0 {
		orders := decimal.NewFromInt(int64(a.totalOrders))
		result.AvgOrderValue = result.TotalRevenue.Div(orders)
		result.CompletionRate = float64(a.completedOrders) / float64(a.totalOrders) * 100
	}

	for _, count := range a.customerOrders {
		if count > 1 {
			result.ReturningCustomers++
		} else {
			result.NewCustomers++
		}
	}

	labelLayout := ChartLabelLayout
	if a.spansYears() {
		labelLayout = ChartLabelYearLayout
	}
	for _, key := range a.bucketOrder {
		bucket := a.buckets[key]
		label := bucket.day.Format(labelLayout)
		result.OrdersByDate = append(result.OrdersByDate, DateCount{Date: key, Label: label, Count: bucket.count})
		result.RevenueByDate = append(result.RevenueByDate, RevenueBucket{Date: key, Label: label, RevenueTotals: bucket.revenue})
	}

	result.TopCategories = a.topCategories()
	return result
}

func (a *Aggregator) spansYears() bool {
	if len(a.bucketOrder) == 0 {
		return false
	}
	first := a.buckets[a.bucketOrder[0]].day.Year()
	for _, key := range a.bucketOrder[1:] {
		if a.buckets[key].day.Year() != first {
			return true
		}
	}
	return false
}

func (a *Aggregator) topCategories() []CategoryCount {
	counts := make([]CategoryCount, len(a.categoryOrder))
	for i, name := range a.categoryOrder {
		counts[i] = CategoryCount{Name: name, Count: a.categoryCounts[name]}
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})

	if len(counts) > a.topN {
		counts = counts[:a.topN]
	}
	return counts
}

// Aggregate runs a single pass over orders
func Aggregate(orders []*OrderRecord, topN int) *AggregateResult {
	agg := NewAggregator(topN)
	for _, order := range orders {
		agg.Add(order)
	}
	return agg.Result()
}
