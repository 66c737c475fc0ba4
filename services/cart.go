package services

import (
	"math"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"qrbar/models"
)

// maxQuantity bounds normalized quantities so float input cannot overflow int.
const maxQuantity = math.MaxInt32

// CartLine is one product in the cart. Name and UnitPrice are captured when
// the product is first added and are not re-priced later.
type CartLine struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Subtotal returns quantity × unit price.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartSnapshot is a detached copy of the cart with its derived totals.
type CartSnapshot struct {
	Lines         []CartLine
	TotalQuantity int
	TotalAmount   decimal.Decimal
}

// Cart holds the lines of one table order in insertion order.
// Totals are always derived from the lines.
type Cart struct {
	mu    sync.Mutex
	lines []CartLine
}

func NewCart() *Cart {
	return &Cart{}
}

// addQuantity normalizes a raw quantity for AddItem: non-finite input
// becomes 1, fractions are floored and anything below 1 becomes 1.
func addQuantity(q float64) int {
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 1
	}
	f := math.Floor(q)
	if f < 1 {
		return 1
	}
	if f > maxQuantity {
		return maxQuantity
	}
	return int(f)
}

// setQuantity normalizes a raw quantity for UpdateQuantity: non-finite input
// becomes 0 and fractions are floored. Results ≤ 0 mean "remove".
func setQuantity(q float64) int {
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0
	}
	f := math.Floor(q)
	if f > maxQuantity {
		return maxQuantity
	}
	if f < -maxQuantity {
		return -maxQuantity
	}
	return int(f)
}

// AddItem adds quantity units of item, merging with an existing line.
// quantity is normalized with the same rules as a typed-in amount.
func (c *Cart) AddItem(item models.MenuItem, quantity float64) {
	n := addQuantity(quantity)
	price := item.Price
	if price.IsNegative() {
		log.Warn().Int64("product_id", item.ID).Str("price", price.String()).Msg("negative price, using 0")
		price = decimal.Zero
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(item.ID); i >= 0 {
		q := int64(c.lines[i].Quantity) + int64(n)
		if q > maxQuantity {
			q = maxQuantity
		}
		c.lines[i].Quantity = int(q)
		return
	}
	c.lines = append(c.lines, CartLine{
		ProductID: item.ID,
		Name:      item.Name,
		UnitPrice: price,
		Quantity:  n,
	})
}

// UpdateQuantity replaces the quantity of productID; a normalized quantity
// ≤ 0 removes the line. Unknown ids are ignored.
func (c *Cart) UpdateQuantity(productID int64, quantity float64) {
	n := setQuantity(quantity)
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(productID); i >= 0 {
		c.setLocked(i, n)
	}
}

func (c *Cart) Increment(productID int64) {
	c.step(productID, 1)
}

// Decrement lowers the quantity by one; a line at 1 is removed.
func (c *Cart) Decrement(productID int64) {
	c.step(productID, -1)
}

func (c *Cart) step(productID int64, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(productID); i >= 0 {
		c.setLocked(i, c.lines[i].Quantity+delta)
	}
}

func (c *Cart) setLocked(i, quantity int) {
	if quantity <= 0 {
		c.removeLocked(i)
		return
	}
	c.lines[i].Quantity = quantity
}

func (c *Cart) RemoveItem(productID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(productID); i >= 0 {
		c.removeLocked(i)
	}
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.lines = nil
	c.mu.Unlock()
}

// Lines returns a copy of the lines in display order.
func (c *Cart) Lines() []CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CartLine(nil), c.lines...)
}

// Quantity returns the quantity of productID, 0 when absent.
func (c *Cart) Quantity(productID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(productID); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return c.Len() == 0
}

func (c *Cart) TotalQuantity() int {
	return c.Snapshot().TotalQuantity
}

func (c *Cart) TotalAmount() decimal.Decimal {
	return c.Snapshot().TotalAmount
}

// Snapshot copies the lines and computes the totals under one lock.
func (c *Cart) Snapshot() CartSnapshot {
	c.mu.Lock()
	lines := append([]CartLine(nil), c.lines...)
	c.mu.Unlock()

	snap := CartSnapshot{Lines: lines, TotalAmount: decimal.Zero}
	for _, l := range lines {
		snap.TotalQuantity += l.Quantity
		snap.TotalAmount = snap.TotalAmount.Add(l.Subtotal())
	}
	return snap
}

func (c *Cart) indexLocked(productID int64) int {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeLocked(i int) {
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}
