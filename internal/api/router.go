package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/commercelab/mollie-sync/internal/api/httpx"
	"github.com/commercelab/mollie-sync/internal/api/validate"
	"github.com/commercelab/mollie-sync/internal/auth"
	"github.com/commercelab/mollie-sync/internal/config"
	"github.com/commercelab/mollie-sync/internal/metrics"
	"github.com/commercelab/mollie-sync/internal/middleware"
	"github.com/commercelab/mollie-sync/internal/mollie"
	repo "github.com/commercelab/mollie-sync/internal/repository"
	"github.com/commercelab/mollie-sync/internal/services"
)

type Deps struct {
	Cfg      config.Config
	Store    repo.Store
	Checkout *services.CheckoutService
	Rec      *services.Reconciler
	Basket   *services.BasketService
	Shipping *services.ShippingService
	Tokens   *auth.TokenManager
	Log      *slog.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { httpx.Text(w, http.StatusOK, "ok") })
	r.Handle("/metrics", metrics.Handler())

	// ---------- public PSP-facing routes ----------

	// The PSP posts here on every remote state change. The response never
	// carries internal detail; a failed run is a retry-later for the PSP.
	r.Post("/webhooks/mollie/{transactionID}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "transactionID")
		metrics.WebhookHits.WithLabelValues("notify").Inc()

		if _, err := d.Rec.ReconcileTransaction(r.Context(), id, services.TriggerWebhook); err != nil {
			d.Log.Warn("webhook reconcile", "transaction", id, "err", err)
		}
		httpx.Text(w, http.StatusOK, "OK")
	})

	// The customer's browser comes back here from the PSP checkout.
	r.Get("/payments/return/{transactionID}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "transactionID")
		metrics.WebhookHits.WithLabelValues("return").Inc()

		decision, err := d.Rec.ReconcileTransaction(r.Context(), id, services.TriggerReturn)
		if err != nil {
			d.Log.Warn("return reconcile", "transaction", id, "err", err)
		}

		target := d.Cfg.CheckoutFinishURL
		switch decision.Status {
		case services.StatusCanceled, services.StatusFailed, services.StatusExpired:
			target = d.Cfg.CheckoutRetryURL
			// put the basket back so the customer can retry right away
			if txn, terr := d.Store.Transactions().GetByID(r.Context(), id); terr == nil &&
				txn.SessionID != "" && txn.OrderID != nil {
				if rerr := d.Basket.RestoreBasket(r.Context(), txn.SessionID, *txn.OrderID); rerr != nil {
					d.Log.Error("return basket restore", "transaction", id, "err", rerr)
				}
			}
		}
		http.Redirect(w, r, target+"?transaction="+id, http.StatusFound)
	})

	// ---------- backend API ----------

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireToken(d.Tokens))

		r.Post("/checkout", func(w http.ResponseWriter, r *http.Request) {
			var req services.CheckoutRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "malformed body", nil)
				return
			}
			var errs validate.Errs
			for _, e := range []*validate.ErrField{
				validate.Required("session_id", req.SessionID),
				validate.Required("customer_id", req.CustomerID),
				validate.Required("method", req.Method),
				validate.Required("currency", req.Currency),
			} {
				if e != nil {
					errs = append(errs, *e)
				}
			}
			if len(errs) > 0 {
				httpx.WriteError(w, http.StatusBadRequest, "validation", errs.Error(), errs)
				return
			}

			res, err := d.Checkout.StartCheckout(r.Context(), req)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusCreated, res)
		})

		r.Post("/orders/{id}/check", func(w http.ResponseWriter, r *http.Request) {
			decision, err := d.Rec.ReconcileOrder(r.Context(), chi.URLParam(r, "id"), services.TriggerAdmin)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, map[string]string{
				"decision": string(decision.Status),
			})
		})

		r.Post("/orders/{id}/ship", func(w http.ResponseWriter, r *http.Request) {
			shipment, err := d.Shipping.ShipOrder(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, shipment)
		})

		// save hook from the shop backend: ships delivered orders
		r.Post("/orders/{id}/saved", func(w http.ResponseWriter, r *http.Request) {
			if err := d.Shipping.HandleOrderSaved(r.Context(), chi.URLParam(r, "id")); err != nil {
				writeDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/orders/{id}/restore-basket", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				SessionID string `json:"session_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "session_id required", nil)
				return
			}
			if err := d.Basket.RestoreBasket(r.Context(), req.SessionID, chi.URLParam(r, "id")); err != nil {
				writeDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "restored"})
		})

		r.Get("/orders/{id}/transactions", func(w http.ResponseWriter, r *http.Request) {
			txns, err := d.Store.Transactions().ListForOrder(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, txns)
		})

		r.Get("/transactions/{id}", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			txn, err := d.Store.Transactions().GetByID(r.Context(), id)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			items, err := d.Store.Transactions().ItemsFor(r.Context(), id)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
				"transaction": txn,
				"items":       items,
			})
		})

		r.Get("/methods", func(w http.ResponseWriter, r *http.Request) {
			methods, err := d.Checkout.ListMethods(r.Context())
			if err != nil {
				writeDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, methods)
		})
	})

	return r
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Shipping and
// restore failures stay user-readable; they need operator action.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidAction):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_action", err.Error(), nil)
	case errors.Is(err, repo.ErrNotFound),
		errors.Is(err, services.ErrNoOrder),
		errors.Is(err, services.ErrNoRemoteResource):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, services.ErrShipOrderNotFound), errors.Is(err, mollie.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "remote_not_found", err.Error(), nil)
	case errors.Is(err, services.ErrShipAlreadyCompleted):
		httpx.WriteError(w, http.StatusConflict, "already_completed", err.Error(), nil)
	case errors.Is(err, services.ErrShipNotPaid):
		httpx.WriteError(w, http.StatusConflict, "not_paid_or_authorized", err.Error(), nil)
	case errors.Is(err, services.ErrShipRejected), errors.Is(err, mollie.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, "remote_state_conflict", err.Error(), nil)
	case errors.Is(err, mollie.ErrTransport):
		httpx.WriteError(w, http.StatusBadGateway, "psp_unavailable", err.Error(), nil)
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}
