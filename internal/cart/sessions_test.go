package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/chemtech-ke/pharmos-backend/pkg/errors"
)

func TestSessionsCreateOnFirstUse(t *testing.T) {
	sessions := NewSessions(fixedStock{"p500": 10})

	first, err := sessions.Get("till-1")
	require.NoError(t, err)
	again, err := sessions.Get("till-1")
	require.NoError(t, err)
	require.Same(t, first, again)

	other, err := sessions.Get("till-2")
	require.NoError(t, err)
	require.NotSame(t, first, other)
	require.Equal(t, 2, sessions.Count())
}

func TestSessionsAreIsolated(t *testing.T) {
	sessions := NewSessions(fixedStock{"p500": 10})

	a, err := sessions.Get("till-1")
	require.NoError(t, err)
	b, err := sessions.Get("till-2")
	require.NoError(t, err)

	require.NoError(t, a.AddLine(LineInput{ItemKey: "p500", Name: "Paracetamol", UnitPrice: decimal.NewFromInt(50), Quantity: 1}))
	require.True(t, b.IsEmpty())
}

func TestSessionsRejectBlankID(t *testing.T) {
	sessions := NewSessions(nil)
	_, err := sessions.Get("  ")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestSessionsDrop(t *testing.T) {
	sessions := NewSessions(nil)
	_, err := sessions.Get("till-1")
	require.NoError(t, err)

	sessions.Drop("till-1")
	_, ok := sessions.Peek("till-1")
	require.False(t, ok)
	require.Zero(t, sessions.Count())
}
