package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chemtech-ke/pharmos-backend/api/responses"
	"github.com/chemtech-ke/pharmos-backend/api/validators"
	"github.com/chemtech-ke/pharmos-backend/internal/checkout"
	"github.com/chemtech-ke/pharmos-backend/internal/sales"
	"github.com/chemtech-ke/pharmos-backend/pkg/logger"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox"
)

type checkoutService interface {
	Checkout(ctx context.Context, sessionID string, input checkout.PaymentInput, actor *outbox.ActorRef) (sales.OrderRecord, error)
	CheckoutWholesale(ctx context.Context, sessionID string, input checkout.PaymentInput, actor *outbox.ActorRef) (sales.OrderRecord, error)
	Hold(ctx context.Context, sessionID string) error
	Resume(ctx context.Context, sessionID string) error
	SaveDraft(ctx context.Context, sessionID, label string, actor *outbox.ActorRef) (sales.OrderRecord, error)
}

func CheckoutSale(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return recordCheckout(svc, logg, false)
}

func CheckoutWholesale(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return recordCheckout(svc, logg, true)
}

func recordCheckout(svc checkoutService, logg *logger.Logger, wholesale bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input checkout.PaymentInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sessionID := chi.URLParam(r, "sessionID")
		var (
			record sales.OrderRecord
			err    error
		)
		if wholesale {
			record, err = svc.CheckoutWholesale(r.Context(), sessionID, input, actorFrom(r))
		} else {
			record, err = svc.Checkout(r.Context(), sessionID, input, actorFrom(r))
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

func CheckoutHold(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		if err := svc.Hold(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"session_id": sessionID, "status": "held"})
	}
}

func CheckoutResume(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		if err := svc.Resume(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"session_id": sessionID, "status": "resumed"})
	}
}

type draftRequest struct {
	Label string `json:"label"`
}

func CheckoutDraft(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req draftRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.SaveDraft(r.Context(), chi.URLParam(r, "sessionID"), req.Label, actorFrom(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}
