package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chemtech-ke/pharmos-backend/api/middleware"
	"github.com/chemtech-ke/pharmos-backend/api/responses"
	"github.com/chemtech-ke/pharmos-backend/api/validators"
	"github.com/chemtech-ke/pharmos-backend/internal/users"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox"
	pkgerrors "github.com/chemtech-ke/pharmos-backend/pkg/errors"
	"github.com/chemtech-ke/pharmos-backend/pkg/logger"
)

type settingsService interface {
	Get(ctx context.Context, userID uuid.UUID) (users.Settings, error)
	Save(ctx context.Context, userID uuid.UUID, input users.SettingsInput, actor *outbox.ActorRef) (users.Settings, error)
}

func SettingsFetch(svc settingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context"))
			return
		}
		settings, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settings)
	}
}

type settingsRequest struct {
	Currency         string          `json:"currency" validate:"required"`
	DefaultTaxPct    decimal.Decimal `json:"default_tax_percent"`
	LowStockOverride int64           `json:"low_stock_override"`
}

func SettingsSave(svc settingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context"))
			return
		}
		var req settingsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		saved, err := svc.Save(r.Context(), userID, users.SettingsInput{
			Currency:         req.Currency,
			DefaultTaxPct:    req.DefaultTaxPct,
			LowStockOverride: req.LowStockOverride,
		}, actorFrom(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, saved)
	}
}
