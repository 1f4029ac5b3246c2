package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/chemtech-ke/pharmos-backend/pkg/errors"
)

type fixedStock map[string]int64

func (f fixedStock) Available(itemKey string) (int64, bool) {
	qty, ok := f[itemKey]
	return qty, ok
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTotalsWorkedScenario(t *testing.T) {
	e := NewEngine(fixedStock{"p500": 100, "amx": 100})

	require.NoError(t, e.AddLine(LineInput{ItemKey: "p500", Name: "Paracetamol", UnitPrice: dec("50"), Quantity: 3}))
	require.NoError(t, e.AddLine(LineInput{ItemKey: "amx", Name: "Amoxicillin", UnitPrice: dec("100"), Quantity: 1}))
	require.NoError(t, e.SetDiscount(dec("20")))
	require.NoError(t, e.SetTaxPercent(dec("16")))

	totals := e.Totals()
	require.True(t, totals.Subtotal.Equal(dec("250")), "subtotal %s", totals.Subtotal)
	require.True(t, totals.TaxableBase.Equal(dec("230")), "base %s", totals.TaxableBase)
	require.True(t, totals.TaxAmount.Equal(dec("36.8")), "tax %s", totals.TaxAmount)
	require.True(t, totals.GrandTotal.Equal(dec("266.8")), "total %s", totals.GrandTotal)

	require.True(t, totals.Change(dec("300")).Equal(dec("33.2")))
	require.True(t, totals.Change(dec("200")).IsNegative())
}

func TestReAddIncrementsExistingLine(t *testing.T) {
	e := NewEngine(fixedStock{"p500": 10})

	require.NoError(t, e.AddLine(LineInput{ItemKey: "p500", Name: "Paracetamol", UnitPrice: dec("50"), Quantity: 2}))
	require.NoError(t, e.AddLine(LineInput{ItemKey: "p500", Name: "Paracetamol", UnitPrice: dec("50"), Quantity: 3}))

	lines := e.Lines()
	require.Len(t, lines, 1)
	require.EqualValues(t, 5, lines[0].Quantity)
}

func TestStockCeilingCountsExistingQuantity(t *testing.T) {
	e := NewEngine(fixedStock{"p500": 5})

	require.NoError(t, e.AddLine(LineInput{ItemKey: "p500", Name: "Paracetamol", UnitPrice: dec("50"), Quantity: 5}))

	err := e.AddLine(LineInput{ItemKey: "p500", Name: "Paracetamol", UnitPrice: dec("50"), Quantity: 1})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStockExceeded))

	lines := e.Lines()
	require.Len(t, lines, 1)
	require.EqualValues(t, 5, lines[0].Quantity, "rejected add leaves the cart unchanged")
}

func TestManualLinesSkipStockChecks(t *testing.T) {
	e := NewEngine(fixedStock{})

	require.NoError(t, e.AddLine(LineInput{ItemKey: "svc-consult", Name: "Consultation", UnitPrice: dec("500"), Quantity: 1, Manual: true}))
	require.NoError(t, e.UpdateQuantity("svc-consult", 99))

	lines := e.Lines()
	require.EqualValues(t, 100, lines[0].Quantity)
}

func TestUnknownItemRejected(t *testing.T) {
	e := NewEngine(fixedStock{})

	err := e.AddLine(LineInput{ItemKey: "ghost", Name: "Ghost", UnitPrice: dec("10"), Quantity: 1})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	require.True(t, e.IsEmpty())
}

func TestUpdateQuantityToZeroRemovesLine(t *testing.T) {
	e := NewEngine(fixedStock{"p500": 10})

	require.NoError(t, e.AddLine(LineInput{ItemKey: "p500", Name: "Paracetamol", UnitPrice: dec("50"), Quantity: 2}))
	require.NoError(t, e.UpdateQuantity("p500", -2))
	require.True(t, e.IsEmpty())

	err := e.UpdateQuantity("p500", 1)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateQuantityRespectsStock(t *testing.T) {
	e := NewEngine(fixedStock{"p500": 4})

	require.NoError(t, e.AddLine(LineInput{ItemKey: "p500", Name: "Paracetamol", UnitPrice: dec("50"), Quantity: 3}))

	err := e.UpdateQuantity("p500", 2)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStockExceeded))
	require.EqualValues(t, 3, e.Lines()[0].Quantity)

	require.NoError(t, e.UpdateQuantity("p500", 1))
	require.EqualValues(t, 4, e.Lines()[0].Quantity)
}

func TestDiscountLargerThanSubtotal(t *testing.T) {
	e := NewEngine(fixedStock{"p500": 10})

	require.NoError(t, e.AddLine(LineInput{ItemKey: "p500", Name: "Paracetamol", UnitPrice: dec("50"), Quantity: 1}))
	require.NoError(t, e.SetDiscount(dec("80")))
	require.NoError(t, e.SetTaxPercent(dec("16")))

	totals := e.Totals()
	require.True(t, totals.TaxableBase.Equal(dec("-30")), "base stays unclamped")
	require.True(t, totals.TaxAmount.Equal(dec("-4.8")))
	require.True(t, totals.GrandTotal.IsZero(), "grand total floors at zero")
}

func TestNegativeDiscountAndTaxRejected(t *testing.T) {
	e := NewEngine(fixedStock{})

	require.True(t, pkgerrors.HasCode(e.SetDiscount(dec("-1")), pkgerrors.CodeValidation))
	require.True(t, pkgerrors.HasCode(e.SetTaxPercent(dec("-1")), pkgerrors.CodeValidation))
}

func TestObserversSeeAppliedAndRejectedMutations(t *testing.T) {
	e := NewEngine(fixedStock{"p500": 1})

	var events []Event
	e.OnMutation(func(ev Event) { events = append(events, ev) })

	require.NoError(t, e.AddLine(LineInput{ItemKey: "p500", Name: "Paracetamol", UnitPrice: dec("50"), Quantity: 1}))
	_ = e.AddLine(LineInput{ItemKey: "p500", Name: "Paracetamol", UnitPrice: dec("50"), Quantity: 1})

	require.Len(t, events, 2)
	require.Equal(t, MutationAddLine, events[0].Kind)
	require.NoError(t, events[0].Err)
	require.Error(t, events[1].Err)
	require.True(t, events[1].Totals.Subtotal.Equal(dec("50")), "rejected mutation reports unchanged totals")
}

func TestResetClearsEverything(t *testing.T) {
	e := NewEngine(fixedStock{"p500": 10})

	require.NoError(t, e.AddLine(LineInput{ItemKey: "p500", Name: "Paracetamol", UnitPrice: dec("50"), Quantity: 2}))
	require.NoError(t, e.SetDiscount(dec("5")))
	require.NoError(t, e.SetTaxPercent(dec("16")))

	e.Reset()

	totals := e.Totals()
	require.True(t, e.IsEmpty())
	require.True(t, totals.Discount.IsZero())
	require.True(t, totals.TaxPercent.IsZero())
}

func TestSnapshotAndRestoreRoundTrip(t *testing.T) {
	e := NewEngine(fixedStock{"p500": 10})
	require.NoError(t, e.AddLine(LineInput{ItemKey: "p500", Name: "Paracetamol", UnitPrice: dec("50"), Quantity: 2}))
	require.NoError(t, e.SetDiscount(dec("10")))
	require.NoError(t, e.SetTaxPercent(dec("16")))

	snapshot := e.Snapshot()
	e.Reset()
	require.True(t, e.IsEmpty())

	e.Restore(snapshot)
	totals := e.Totals()
	require.True(t, totals.Subtotal.Equal(dec("100")))
	require.True(t, totals.Discount.Equal(dec("10")))
	require.True(t, totals.TaxPercent.Equal(dec("16")))
}
