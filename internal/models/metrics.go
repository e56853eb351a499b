package models

// StatusCount is one slice of the row-level status breakdown.
type StatusCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DailySales is one day's bucket of net revenue and deduplicated orders.
type DailySales struct {
	Date   string  `json:"date"` // ISO calendar date, no time component
	Sales  float64 `json:"sales"`
	Orders int     `json:"orders"`
}

// ProductStat aggregates quantity and revenue for a single product.
type ProductStat struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// OrderMetrics is the status-dashboard analysis of a report: deduplicated
// order counts, cancellation-filtered revenue and time-bucketed trends.
// Recomputed per analysis run, never mutated once produced.
type OrderMetrics struct {
	TotalSales      float64       `json:"total_sales"`
	TotalOrders     int           `json:"total_orders"` // Distinct order ids, not row count
	CancelledRows   int           `json:"cancelled_rows"`
	DeliveredRows   int           `json:"delivered_rows"`
	PickedUpRows    int           `json:"picked_up_rows"`
	StatusBreakdown []StatusCount `json:"status_breakdown"` // Sorted descending by count
	DailySales      []DailySales  `json:"daily_sales"`      // Sorted ascending by date
}

// SalesMetrics is the sales-detail analysis variant with a per-product
// breakdown, used for MINI_SALES_REPORT downloads.
type SalesMetrics struct {
	TotalSales        float64       `json:"total_sales"`
	TotalOrders       int           `json:"total_orders"`
	AverageOrderValue float64       `json:"average_order_value"`
	ProductBreakdown  []ProductStat `json:"product_breakdown"` // Sorted descending by revenue
}
