package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/chemtech-ke/pharmos-backend/pkg/errors"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox"
	"github.com/chemtech-ke/pharmos-backend/pkg/realtime"
)

// Settings are the per-user till preferences kept in the settings collection
// so every signed-in device sees the same values.
type Settings struct {
	Key              string          `json:"key"`
	UserID           uuid.UUID       `json:"user_id"`
	Currency         string          `json:"currency"`
	DefaultTaxPct    decimal.Decimal `json:"default_tax_percent"`
	LowStockOverride int64           `json:"low_stock_override"`
}

// DefaultSettings is what a user gets before they save anything.
func DefaultSettings(userID uuid.UUID) Settings {
	return Settings{
		UserID:        userID,
		Currency:      "KES",
		DefaultTaxPct: decimal.NewFromInt(16),
	}
}

// DecodeSettings maps a settings document onto the typed struct.
func DecodeSettings(doc realtime.RemoteDocument) Settings {
	userID, _ := uuid.Parse(doc.String("user_id"))
	return Settings{
		Key:              doc.Key,
		UserID:           userID,
		Currency:         doc.String("currency"),
		DefaultTaxPct:    doc.Decimal("default_tax_percent"),
		LowStockOverride: doc.Int64("low_stock_override"),
	}
}

type settingsStore interface {
	List(ctx context.Context, collection string, opts realtime.ListOptions) ([]realtime.RemoteDocument, error)
	WriteNew(ctx context.Context, collection string, fields any, actor *outbox.ActorRef, extra ...outbox.DomainEvent) (string, error)
	WriteUpdate(ctx context.Context, collection, key string, partial map[string]any, actor *outbox.ActorRef) error
}

// SettingsService reads and saves per-user preferences.
type SettingsService struct {
	store settingsStore
}

// NewSettingsService wires the settings service to the document store.
func NewSettingsService(store settingsStore) *SettingsService {
	return &SettingsService{store: store}
}

// Get returns the user's saved settings, or the defaults when none exist.
func (s *SettingsService) Get(ctx context.Context, userID uuid.UUID) (Settings, error) {
	doc, found, err := s.find(ctx, userID)
	if err != nil {
		return Settings{}, err
	}
	if !found {
		return DefaultSettings(userID), nil
	}
	return DecodeSettings(doc), nil
}

// SettingsInput carries the editable preference fields.
type SettingsInput struct {
	Currency         string
	DefaultTaxPct    decimal.Decimal
	LowStockOverride int64
}

// Save upserts the user's settings document.
func (s *SettingsService) Save(ctx context.Context, userID uuid.UUID, input SettingsInput, actor *outbox.ActorRef) (Settings, error) {
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		return Settings{}, pkgerrors.New(pkgerrors.CodeValidation, "currency is required")
	}
	if input.DefaultTaxPct.IsNegative() {
		return Settings{}, pkgerrors.New(pkgerrors.CodeValidation, "default tax percent cannot be negative")
	}
	if input.LowStockOverride < 0 {
		return Settings{}, pkgerrors.New(pkgerrors.CodeValidation, "low stock override cannot be negative")
	}

	fields := map[string]any{
		"user_id":             userID.String(),
		"currency":            currency,
		"default_tax_percent": input.DefaultTaxPct,
		"low_stock_override":  input.LowStockOverride,
	}

	doc, found, err := s.find(ctx, userID)
	if err != nil {
		return Settings{}, err
	}

	key := doc.Key
	if found {
		if err := s.store.WriteUpdate(ctx, realtime.CollectionSettings, key, fields, actor); err != nil {
			return Settings{}, err
		}
	} else {
		key, err = s.store.WriteNew(ctx, realtime.CollectionSettings, fields, actor)
		if err != nil {
			return Settings{}, err
		}
	}

	return Settings{
		Key:              key,
		UserID:           userID,
		Currency:         currency,
		DefaultTaxPct:    input.DefaultTaxPct,
		LowStockOverride: input.LowStockOverride,
	}, nil
}

func (s *SettingsService) find(ctx context.Context, userID uuid.UUID) (realtime.RemoteDocument, bool, error) {
	docs, err := s.store.List(ctx, realtime.CollectionSettings, realtime.ListOptions{})
	if err != nil {
		return realtime.RemoteDocument{}, false, err
	}
	want := userID.String()
	for _, doc := range docs {
		if doc.String("user_id") == want {
			return doc, true, nil
		}
	}
	return realtime.RemoteDocument{}, false, nil
}
