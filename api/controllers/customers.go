package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/chemtech-ke/pharmos-backend/api/responses"
	"github.com/chemtech-ke/pharmos-backend/api/validators"
	"github.com/chemtech-ke/pharmos-backend/internal/customers"
	pkgerrors "github.com/chemtech-ke/pharmos-backend/pkg/errors"
	"github.com/chemtech-ke/pharmos-backend/pkg/logger"
)

func CustomerList(svc *customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.List(r.URL.Query().Get("q"), params))
	}
}

func CustomerDetail(svc *customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customer, ok := svc.Get(chi.URLParam(r, "customerKey"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found"))
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

func CustomerCreate(svc *customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input customers.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key, err := svc.Create(r.Context(), input, actorFrom(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"key": key})
	}
}

func CustomerUpdate(svc *customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input customers.UpdateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key := chi.URLParam(r, "customerKey")
		if err := svc.Update(r.Context(), key, input, actorFrom(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"key": key})
	}
}

type balanceRequest struct {
	Delta decimal.Decimal `json:"delta"`
}

// CustomerAdjustBalance moves the credit balance by a signed delta.
func CustomerAdjustBalance(svc *customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req balanceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key := chi.URLParam(r, "customerKey")
		if err := svc.AdjustBalance(r.Context(), key, req.Delta, actorFrom(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"key": key})
	}
}

func CustomerDelete(svc *customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "customerKey")
		if err := svc.Delete(r.Context(), key, actorFrom(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"key": key})
	}
}
