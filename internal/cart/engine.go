package cart

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/chemtech-ke/pharmos-backend/pkg/errors"
)

// StockSource answers live availability questions. Implemented by the
// inventory mirror; never consulted for manual lines.
type StockSource interface {
	Available(itemKey string) (int64, bool)
}

// Line is one cart entry. Lines are keyed by ItemKey; re-adding the same key
// increments the quantity instead of creating a second line.
type Line struct {
	ItemKey   string          `json:"item_key"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	Manual    bool            `json:"manual"`
}

// Amount returns the line total.
func (l Line) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// Totals is the derived money state of the cart. All values carry full
// precision; rounding to two decimals happens at render time only.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	TaxPercent  decimal.Decimal `json:"tax_percent"`
	TaxableBase decimal.Decimal `json:"taxable_base"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	LineCount   int             `json:"line_count"`
	UnitCount   int64           `json:"unit_count"`
}

// Change returns the change due for a tendered amount. Negative means the
// tender does not cover the total.
func (t Totals) Change(tendered decimal.Decimal) decimal.Decimal {
	return tendered.Sub(t.GrandTotal)
}

// MutationKind names the engine operation an event reports.
type MutationKind string

const (
	MutationAddLine        MutationKind = "add_line"
	MutationUpdateQuantity MutationKind = "update_quantity"
	MutationRemoveLine     MutationKind = "remove_line"
	MutationSetDiscount    MutationKind = "set_discount"
	MutationSetTaxPercent  MutationKind = "set_tax_percent"
	MutationReset          MutationKind = "reset"
)

// Event is delivered to observers after every attempted mutation. Err is nil
// for applied mutations; rejected attempts carry the typed error and the
// unchanged totals.
type Event struct {
	Kind   MutationKind
	Err    error
	Totals Totals
}

// Engine holds the in-memory cart for one checkout session. All methods are
// safe for concurrent use; validation failures leave the state untouched.
type Engine struct {
	stock StockSource

	mu         sync.Mutex
	lines      []Line
	discount   decimal.Decimal
	taxPercent decimal.Decimal
	observers  []func(Event)
}

// NewEngine builds an empty cart backed by the given stock source.
func NewEngine(stock StockSource) *Engine {
	return &Engine{stock: stock}
}

// OnMutation registers an observer for applied and rejected mutations.
func (e *Engine) OnMutation(fn func(Event)) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	e.observers = append(e.observers, fn)
	e.mu.Unlock()
}

// LineInput describes a line add request.
type LineInput struct {
	ItemKey   string          `json:"item_key"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	Manual    bool            `json:"manual"`
}

// AddLine adds the item or increments the existing line. Non-manual lines
// are checked against live stock at the moment of mutation.
func (e *Engine) AddLine(input LineInput) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finish(MutationAddLine, e.addLineLocked(input))
}

func (e *Engine) addLineLocked(input LineInput) error {
	key := strings.TrimSpace(input.ItemKey)
	if key == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item key is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	}
	if input.Quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if input.UnitPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	idx := e.indexOf(key)
	current := int64(0)
	if idx >= 0 {
		current = e.lines[idx].Quantity
	}
	if !input.Manual {
		if err := e.checkStock(key, input.Name, current+input.Quantity); err != nil {
			return err
		}
	}

	if idx >= 0 {
		e.lines[idx].Quantity += input.Quantity
		return nil
	}
	e.lines = append(e.lines, Line{
		ItemKey:   key,
		Name:      strings.TrimSpace(input.Name),
		UnitPrice: input.UnitPrice,
		Quantity:  input.Quantity,
		Manual:    input.Manual,
	})
	return nil
}

// UpdateQuantity applies a signed delta to a line. A result of zero or less
// removes the line.
func (e *Engine) UpdateQuantity(itemKey string, delta int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finish(MutationUpdateQuantity, e.updateQuantityLocked(itemKey, delta))
}

func (e *Engine) updateQuantityLocked(itemKey string, delta int64) error {
	idx := e.indexOf(itemKey)
	if idx < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no cart line for %s", itemKey))
	}
	line := e.lines[idx]
	next := line.Quantity + delta
	if next <= 0 {
		e.lines = append(e.lines[:idx], e.lines[idx+1:]...)
		return nil
	}
	if !line.Manual {
		if err := e.checkStock(line.ItemKey, line.Name, next); err != nil {
			return err
		}
	}
	e.lines[idx].Quantity = next
	return nil
}

// RemoveLine drops a line regardless of quantity.
func (e *Engine) RemoveLine(itemKey string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := func() error {
		idx := e.indexOf(itemKey)
		if idx < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no cart line for %s", itemKey))
		}
		e.lines = append(e.lines[:idx], e.lines[idx+1:]...)
		return nil
	}()
	return e.finish(MutationRemoveLine, err)
}

// SetDiscount sets the absolute discount amount.
func (e *Engine) SetDiscount(amount decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := func() error {
		if amount.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount cannot be negative")
		}
		e.discount = amount
		return nil
	}()
	return e.finish(MutationSetDiscount, err)
}

// SetTaxPercent sets the tax rate, e.g. 16 for 16%.
func (e *Engine) SetTaxPercent(percent decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := func() error {
		if percent.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "tax percent cannot be negative")
		}
		e.taxPercent = percent
		return nil
	}()
	return e.finish(MutationSetTaxPercent, err)
}

// Totals derives the current money state.
func (e *Engine) Totals() Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalsLocked()
}

var oneHundred = decimal.NewFromInt(100)

func (e *Engine) totalsLocked() Totals {
	subtotal := decimal.Zero
	units := int64(0)
	for _, line := range e.lines {
		subtotal = subtotal.Add(line.Amount())
		units += line.Quantity
	}
	// The taxable base is deliberately left unclamped so a discount larger
	// than the subtotal yields a negative tax credit; only the grand total
	// floors at zero.
	base := subtotal.Sub(e.discount)
	tax := base.Mul(e.taxPercent).Div(oneHundred)
	grand := base.Add(tax)
	if grand.IsNegative() {
		grand = decimal.Zero
	}
	return Totals{
		Subtotal:    subtotal,
		Discount:    e.discount,
		TaxPercent:  e.taxPercent,
		TaxableBase: base,
		TaxAmount:   tax,
		GrandTotal:  grand,
		LineCount:   len(e.lines),
		UnitCount:   units,
	}
}

// Lines returns a copy of the current lines in insertion order.
func (e *Engine) Lines() []Line {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Line, len(e.lines))
	copy(out, e.lines)
	return out
}

// Snapshot captures lines and totals together for holds and drafts.
type Snapshot struct {
	Lines  []Line `json:"lines"`
	Totals Totals `json:"totals"`
}

// Snapshot returns a consistent copy of the full cart state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	lines := make([]Line, len(e.lines))
	copy(lines, e.lines)
	return Snapshot{Lines: lines, Totals: e.totalsLocked()}
}

// Restore replaces the cart state from a held snapshot.
func (e *Engine) Restore(snapshot Snapshot) {
	e.mu.Lock()
	e.lines = make([]Line, len(snapshot.Lines))
	copy(e.lines, snapshot.Lines)
	e.discount = snapshot.Totals.Discount
	e.taxPercent = snapshot.Totals.TaxPercent
	e.mu.Unlock()
}

// IsEmpty reports whether the cart has no lines.
func (e *Engine) IsEmpty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.lines) == 0
}

// Reset clears lines, discount, and tax rate.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lines = nil
	e.discount = decimal.Zero
	e.taxPercent = decimal.Zero
	_ = e.finish(MutationReset, nil)
}

func (e *Engine) indexOf(itemKey string) int {
	for i, line := range e.lines {
		if line.ItemKey == itemKey {
			return i
		}
	}
	return -1
}

func (e *Engine) checkStock(itemKey, name string, wanted int64) error {
	if e.stock == nil {
		return nil
	}
	available, ok := e.stock.Available(itemKey)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s is not in the inventory", name))
	}
	if wanted > available {
		return pkgerrors.New(pkgerrors.CodeStockExceeded, fmt.Sprintf("only %d units of %s in stock", available, name)).
			WithDetails(map[string]any{"item_key": itemKey, "available": available, "requested": wanted})
	}
	return nil
}

// finish publishes the mutation event and passes the error through. Called
// with the mutex held; observers run inline and must not call back into the
// engine.
func (e *Engine) finish(kind MutationKind, err error) error {
	totals := e.totalsLocked()
	for _, fn := range e.observers {
		fn(Event{Kind: kind, Err: err, Totals: totals})
	}
	return err
}
