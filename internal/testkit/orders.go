// Package testkit generates seeded order snapshots for end-to-end quality
// check tests.
package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"dqengine/adapters/frame"
)

// OrderStatuses are the statuses a clean snapshot draws from
var OrderStatuses = []string{"pending", "paid", "shipped", "cancelled"}

// Defects lists how many rows of each kind of bad data to inject. Each kind
// is written to its own block of rows so counts stay exact.
type Defects struct {
	NegativeAmounts int
	DuplicateIDs    int
	UnknownStatuses int
	BadEmails       int
	FutureDates     int
}

func (d Defects) total() int {
	return d.NegativeAmounts + d.DuplicateIDs + d.UnknownStatuses + d.BadEmails + d.FutureDates
}

// OrdersConfig configures the orders generator
type OrdersConfig struct {
	Rows int
	Seed int64
	// Now anchors order dates, which fall between 48h and 24h before it
	Now time.Time
	// Amounts are uniform in [20, 80] times AmountScale
	AmountScale float64
	Defects     Defects
}

// DefaultOrdersConfig returns a clean 200 row snapshot config
func DefaultOrdersConfig(now time.Time) OrdersConfig {
	return OrdersConfig{
		Rows:        200,
		Seed:        42,
		Now:         now,
		AmountScale: 1,
	}
}

// OrdersGenerator builds order snapshots matching suites/orders.yaml
type OrdersGenerator struct {
	config OrdersConfig
	rng    *rand.Rand
}

// NewOrdersGenerator creates a generator
func NewOrdersGenerator(config OrdersConfig) *OrdersGenerator {
	if config.AmountScale <= 0 {
		config.AmountScale = 1
	}
	return &OrdersGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate returns the snapshot. Defects are placed after row 0 in the
// order listed on Defects; it fails when they do not fit.
func (g *OrdersGenerator) Generate() (*frame.Frame, error) {
	n := g.config.Rows
	d := g.config.Defects
	if d.total()+1 > n {
		return nil, fmt.Errorf("%d defects do not fit in %d rows", d.total(), n)
	}

	ids := make([]interface{}, n)
	customers := make([]interface{}, n)
	amounts := make([]interface{}, n)
	quantities := make([]interface{}, n)
	statuses := make([]interface{}, n)
	emails := make([]interface{}, n)
	dates := make([]interface{}, n)

	start := g.config.Now.Add(-48 * time.Hour)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("ORD-%05d", i+1)
		customer := g.rng.Intn(50) + 1
		customers[i] = fmt.Sprintf("CUST-%03d", customer)
		amount := (20 + g.rng.Float64()*60) * g.config.AmountScale
		amounts[i] = math.Round(amount*100) / 100
		quantities[i] = g.rng.Intn(5) + 1
		statuses[i] = OrderStatuses[g.rng.Intn(len(OrderStatuses))]
		emails[i] = fmt.Sprintf("customer%03d@example.com", customer)
		dates[i] = start.Add(time.Duration(g.rng.Int63n(int64(24 * time.Hour))))
	}

	row := 1
	for k := 0; k < d.NegativeAmounts; k++ {
		amounts[row] = -amounts[row].(float64)
		row++
	}
	for k := 0; k < d.DuplicateIDs; k++ {
		ids[row] = ids[0]
		row++
	}
	for k := 0; k < d.UnknownStatuses; k++ {
		statuses[row] = "lost"
		row++
	}
	for k := 0; k < d.BadEmails; k++ {
		emails[row] = "not-an-email"
		row++
	}
	for k := 0; k < d.FutureDates; k++ {
		dates[row] = g.config.Now.AddDate(0, 0, 3)
		row++
	}

	return frame.New(
		frame.Col("order_id", ids...),
		frame.Col("customer_id", customers...),
		frame.Col("amount", amounts...),
		frame.Col("quantity", quantities...),
		frame.Col("status", statuses...),
		frame.Col("email", emails...),
		frame.Col("order_date", dates...),
	)
}
