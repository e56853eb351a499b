package analysis

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/relatus/internal/models"
)

// Column names of the EasyEcom report exports.
const (
	colOrderDate      = "Order Date"
	colSuborderNo     = "Suborder No"
	colSellingPrice   = "Selling Price"
	colItemQuantity   = "Item Quantity"
	colShippingStatus = "Shipping Status"
	colOrderStatus    = "Order Status"
	colProductName    = "Product Name"
)

// orderIDMarker is the marketplace suborder prefix used to sniff which
// column carries the order identifier. The exports are not consistent about
// the column name, but every marketplace suborder id contains this
// substring.
const orderIDMarker = "ppy"

// detectionSampleSize limits how many rows the column detection inspects.
const detectionSampleSize = 10

const statusCancelled = "Cancelled"
const statusUnknown = "Unknown"

// DetectOrderIDColumn inspects the first ten rows and returns the first
// column (in header order) whose value contains the marketplace order
// marker, falling back to "Suborder No" when nothing matches.
//
// When several columns match, the first one in the original header order
// wins; the exports put the suborder id before any referencing columns, so
// preserving header order keeps the detection deterministic.
func DetectOrderIDColumn(table *Table) string {
	if table == nil || len(table.Rows) == 0 {
		return colSuborderNo
	}

	sample := table.Rows
	if len(sample) > detectionSampleSize {
		sample = sample[:detectionSampleSize]
	}

	for _, col := range table.Columns {
		for _, row := range sample {
			if strings.Contains(strings.ToLower(row.Get(col)), orderIDMarker) {
				return col
			}
		}
	}

	return colSuborderNo
}

// classifyStatus derives the display status for a row: a cancellation in
// "Order Status" wins, otherwise the title-cased "Shipping Status", else
// "Unknown".
func classifyStatus(row Row) string {
	orderStatus := strings.ToUpper(row.Get(colOrderStatus))
	if strings.Contains(orderStatus, "CANCEL") {
		return statusCancelled
	}

	shipping := strings.TrimSpace(row.Get(colShippingStatus))
	if shipping == "" {
		return statusUnknown
	}
	return titleCase(shipping)
}

// titleCase uppercases the first character and lowercases the rest.
func titleCase(s string) string {
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// parsePrice parses a price string after stripping thousands-separator
// commas. An absent value counts as zero so rows with missing prices still
// contribute to order counts; only malformed or non-finite values are
// rejected.
func parsePrice(s string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return 0, true
	}
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, false
	}
	return price, true
}

// parseQuantity parses an integer quantity, tolerating decimal noise.
func parseQuantity(s string) (int, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// orderDateLayouts lists the date formats seen in report exports, most
// specific first.
var orderDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
	"Jan 2, 2006",
}

// parseOrderDate turns a raw "Order Date" value into an ISO calendar date
// key. Returns false when the value matches none of the known layouts; such
// rows still contribute to revenue, just not to any daily bucket.
func parseOrderDate(s string) (string, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return "", false
	}
	for _, layout := range orderDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// AnalyzeOrders computes the status-dashboard metrics for a decoded report.
//
// Business rules, in order of application per row:
//   - rows without a (detected) order id are skipped entirely
//   - every remaining row counts toward the row-level status breakdown
//   - revenue and daily buckets only include non-cancelled rows whose price
//     parses to a finite number
//   - order counts are deduplicated by distinct id, overall and per day
//
// The function is pure: identical input always yields an identical summary.
func AnalyzeOrders(table *Table) *models.OrderMetrics {
	metrics := &models.OrderMetrics{
		StatusBreakdown: []models.StatusCount{},
		DailySales:      []models.DailySales{},
	}
	if table == nil {
		return metrics
	}

	idColumn := DetectOrderIDColumn(table)

	uniqueOrders := make(map[string]struct{})
	statusCounts := make(map[string]int)
	statusOrder := []string{}

	type dayBucket struct {
		sales  float64
		orders map[string]struct{}
	}
	days := make(map[string]*dayBucket)

	for _, row := range table.Rows {
		orderID := strings.TrimSpace(row.Get(idColumn))
		if orderID == "" {
			continue
		}

		status := classifyStatus(row)
		price, priceOK := parsePrice(row.Get(colSellingPrice))

		uniqueOrders[orderID] = struct{}{}

		if status != statusCancelled && priceOK {
			metrics.TotalSales += price

			if dateKey, ok := parseOrderDate(row.Get(colOrderDate)); ok {
				bucket := days[dateKey]
				if bucket == nil {
					bucket = &dayBucket{orders: make(map[string]struct{})}
					days[dateKey] = bucket
				}
				bucket.sales += price
				bucket.orders[orderID] = struct{}{}
			}
		}

		if _, seen := statusCounts[status]; !seen {
			statusOrder = append(statusOrder, status)
		}
		statusCounts[status]++

		switch {
		case status == statusCancelled:
			metrics.CancelledRows++
		case strings.Contains(status, "Delivered"):
			metrics.DeliveredRows++
		case strings.Contains(status, "Picked") || strings.Contains(status, "Pickup"):
			metrics.PickedUpRows++
		}
	}

	metrics.TotalOrders = len(uniqueOrders)

	for _, name := range statusOrder {
		metrics.StatusBreakdown = append(metrics.StatusBreakdown, models.StatusCount{
			Name:  name,
			Count: statusCounts[name],
		})
	}
	// Stable sort keeps first-encountered order for equal counts.
	sort.SliceStable(metrics.StatusBreakdown, func(i, j int) bool {
		return metrics.StatusBreakdown[i].Count > metrics.StatusBreakdown[j].Count
	})

	dateKeys := make([]string, 0, len(days))
	for key := range days {
		dateKeys = append(dateKeys, key)
	}
	sort.Strings(dateKeys) // ISO dates sort chronologically
	for _, key := range dateKeys {
		metrics.DailySales = append(metrics.DailySales, models.DailySales{
			Date:   key,
			Sales:  days[key].sales,
			Orders: len(days[key].orders),
		})
	}

	return metrics
}

// AnalyzeSales computes the sales-detail metrics for a MINI_SALES_REPORT
// export: cancelled and returned rows are excluded entirely, and revenue
// plus quantities are broken down per product.
func AnalyzeSales(table *Table) *models.SalesMetrics {
	metrics := &models.SalesMetrics{
		ProductBreakdown: []models.ProductStat{},
	}
	if table == nil {
		return metrics
	}

	uniqueOrders := make(map[string]struct{})

	type productBucket struct {
		quantity int
		revenue  float64
	}
	products := make(map[string]*productBucket)
	productOrder := []string{}

	for _, row := range table.Rows {
		status := strings.ToUpper(row.Get(colOrderStatus))
		if status == "CANCELLED" || status == "CANCELED" || status == "RETURNED" {
			continue
		}

		price, priceOK := parsePrice(row.Get(colSellingPrice))
		quantity, quantityOK := parseQuantity(row.Get(colItemQuantity))

		if priceOK {
			metrics.TotalSales += price
		}

		if orderID := strings.TrimSpace(row.Get(colSuborderNo)); orderID != "" {
			uniqueOrders[orderID] = struct{}{}
		}

		product := row.Get(colProductName)
		if product == "" {
			product = "Unknown Product"
		}
		bucket := products[product]
		if bucket == nil {
			bucket = &productBucket{}
			products[product] = bucket
			productOrder = append(productOrder, product)
		}
		if quantityOK {
			bucket.quantity += quantity
		}
		if priceOK {
			bucket.revenue += price
		}
	}

	metrics.TotalOrders = len(uniqueOrders)
	if metrics.TotalOrders > 0 {
		metrics.AverageOrderValue = metrics.TotalSales / float64(metrics.TotalOrders)
	}

	for _, name := range productOrder {
		metrics.ProductBreakdown = append(metrics.ProductBreakdown, models.ProductStat{
			Name:     name,
			Quantity: products[name].quantity,
			Revenue:  products[name].revenue,
		})
	}
	sort.SliceStable(metrics.ProductBreakdown, func(i, j int) bool {
		return metrics.ProductBreakdown[i].Revenue > metrics.ProductBreakdown[j].Revenue
	})

	return metrics
}

// AnalyzeArchive runs the full pipeline on a downloaded report blob:
// unzip, decode, aggregate.
func AnalyzeArchive(blob []byte) (*models.OrderMetrics, error) {
	text, err := ExtractCSV(blob)
	if err != nil {
		return nil, err
	}
	table, err := DecodeRows(text, true)
	if err != nil {
		return nil, err
	}
	return AnalyzeOrders(table), nil
}

// AnalyzeSalesArchive runs the sales-detail pipeline on a downloaded blob.
func AnalyzeSalesArchive(blob []byte) (*models.SalesMetrics, error) {
	text, err := ExtractCSV(blob)
	if err != nil {
		return nil, err
	}
	table, err := DecodeRows(text, true)
	if err != nil {
		return nil, err
	}
	return AnalyzeSales(table), nil
}
