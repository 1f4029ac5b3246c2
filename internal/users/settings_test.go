package users

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/chemtech-ke/pharmos-backend/pkg/errors"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox"
	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
)

type fakeSettingsStore struct {
	docs    map[string]map[string]any
	written int
	updated int
}

func newFakeSettingsStore() *fakeSettingsStore {
	return &fakeSettingsStore{docs: map[string]map[string]any{}}
}

func (f *fakeSettingsStore) List(_ context.Context, collection string, _ realtime.ListOptions) ([]realtime.RemoteDocument, error) {
	docs := make([]realtime.RemoteDocument, 0, len(f.docs))
	for key, fields := range f.docs {
		docs = append(docs, realtime.NewRemoteDocument(collection, key, fields))
	}
	return docs, nil
}

func (f *fakeSettingsStore) WriteNew(_ context.Context, _ string, fields any, _ *outbox.ActorRef, _ ...outbox.DomainEvent) (string, error) {
	f.written++
	key := fmt.Sprintf("settings-%d", f.written)
	f.docs[key] = toStringMap(fields)
	return key, nil
}

func (f *fakeSettingsStore) WriteUpdate(_ context.Context, _ string, key string, partial map[string]any, _ *outbox.ActorRef) error {
	fields, ok := f.docs[key]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
	}
	for k, v := range partial {
		fields[k] = v
	}
	f.updated++
	return nil
}

func toStringMap(fields any) map[string]any {
	m, _ := fields.(map[string]any)
	out := map[string]any{}
	for k, v := range m {
		if d, ok := v.(decimal.Decimal); ok {
			out[k] = d.String()
			continue
		}
		out[k] = v
	}
	return out
}

func TestSettingsDefaultsWhenUnsaved(t *testing.T) {
	svc := NewSettingsService(newFakeSettingsStore())
	userID := uuid.New()

	got, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, userID, got.UserID)
	require.Equal(t, "KES", got.Currency)
	require.True(t, got.DefaultTaxPct.Equal(decimal.NewFromInt(16)))
}

func TestSettingsSaveCreatesThenUpdates(t *testing.T) {
	store := newFakeSettingsStore()
	svc := NewSettingsService(store)
	ctx := context.Background()
	userID := uuid.New()

	saved, err := svc.Save(ctx, userID, SettingsInput{
		Currency:         "kes",
		DefaultTaxPct:    decimal.NewFromInt(16),
		LowStockOverride: 5,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "KES", saved.Currency)
	require.Equal(t, 1, store.written)

	// Saving again updates the same document instead of creating another.
	_, err = svc.Save(ctx, userID, SettingsInput{
		Currency:      "USD",
		DefaultTaxPct: decimal.Zero,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, store.written)
	require.Equal(t, 1, store.updated)

	got, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "USD", got.Currency)
	require.True(t, got.DefaultTaxPct.IsZero())
	require.Equal(t, saved.Key, got.Key)
}

func TestSettingsAreScopedPerUser(t *testing.T) {
	store := newFakeSettingsStore()
	svc := NewSettingsService(store)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	_, err := svc.Save(ctx, alice, SettingsInput{Currency: "KES", DefaultTaxPct: decimal.NewFromInt(16)}, nil)
	require.NoError(t, err)
	_, err = svc.Save(ctx, bob, SettingsInput{Currency: "TZS", DefaultTaxPct: decimal.NewFromInt(18)}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, store.written)

	got, err := svc.Get(ctx, bob)
	require.NoError(t, err)
	require.Equal(t, "TZS", got.Currency)
}

func TestSettingsSaveValidation(t *testing.T) {
	svc := NewSettingsService(newFakeSettingsStore())
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Save(ctx, userID, SettingsInput{Currency: " "}, nil)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Save(ctx, userID, SettingsInput{Currency: "KES", DefaultTaxPct: decimal.NewFromInt(-1)}, nil)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Save(ctx, userID, SettingsInput{Currency: "KES", LowStockOverride: -2}, nil)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
