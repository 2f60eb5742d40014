package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/commercelab/mollie-sync/internal/config"
	"github.com/commercelab/mollie-sync/internal/metrics"
	"github.com/commercelab/mollie-sync/internal/models"
	"github.com/commercelab/mollie-sync/internal/mollie"
	repo "github.com/commercelab/mollie-sync/internal/repository"
)

// RemoteStatus is the reconciler's view of what the PSP reports, after
// aggregation. The empty value means "no decision": the remote state is
// unknown or mixed and local state must not move.
type RemoteStatus string

const (
	StatusNone       RemoteStatus = ""
	StatusPaid       RemoteStatus = "paid"
	StatusAuthorized RemoteStatus = "authorized"
	StatusDelayed    RemoteStatus = "delayed"
	StatusOpen       RemoteStatus = "open"
	StatusCanceled   RemoteStatus = "canceled"
	StatusFailed     RemoteStatus = "failed"
	StatusExpired    RemoteStatus = "expired"
	StatusCompleted  RemoteStatus = "completed"
)

// DecisionSource records which signal produced the decision; cancellation
// side effects differ between order-level and payment-level signals.
type DecisionSource int

const (
	SourceNone DecisionSource = iota
	SourcePayment
	SourceOrder
	SourceAggregate
)

// Decision is the single result type every status check resolves to;
// callers branch on it, never on swallowed errors.
type Decision struct {
	Status RemoteStatus
	Source DecisionSource
}

func (d Decision) Decided() bool { return d.Status != StatusNone }

// Reconciliation triggers, used for logging and metrics only.
const (
	TriggerWebhook = "webhook"
	TriggerReturn  = "return"
	TriggerAdmin   = "admin"
	TriggerSweep   = "sweep"
)

// Reconciler maps the PSP's remote payment state onto the local order. It is
// the only writer of the order's payment and order status on the sync path,
// and it serializes runs per order.
type Reconciler struct {
	store   repo.Store
	gateway Gateway
	basket  *BasketService
	mailer  StatusMailer
	cfg     config.Config
	log     *slog.Logger
	locks   *orderLocks
}

func NewReconciler(store repo.Store, gateway Gateway, basket *BasketService, mailer StatusMailer, cfg config.Config, log *slog.Logger) *Reconciler {
	return &Reconciler{
		store:   store,
		gateway: gateway,
		basket:  basket,
		mailer:  mailer,
		cfg:     cfg,
		log:     log,
		locks:   newOrderLocks(),
	}
}

// ReconcileTransaction re-derives local state for the transaction's order.
// Safe to call any number of times; an unchanged remote status is a no-op
// beyond rewriting the same values.
func (r *Reconciler) ReconcileTransaction(ctx context.Context, transactionID, trigger string) (Decision, error) {
	txn, err := r.store.Transactions().GetByID(ctx, transactionID)
	if err != nil {
		return Decision{}, fmt.Errorf("load transaction: %w", err)
	}
	return r.reconcile(ctx, txn, trigger)
}

// ReconcileOrder reconciles against the most recent transaction of the
// order, which is the authoritative one for status purposes.
func (r *Reconciler) ReconcileOrder(ctx context.Context, orderID, trigger string) (Decision, error) {
	txn, err := r.store.Transactions().MostRecentForOrder(ctx, orderID)
	if err != nil {
		return Decision{}, fmt.Errorf("load transaction: %w", err)
	}
	return r.reconcile(ctx, txn, trigger)
}

func (r *Reconciler) reconcile(ctx context.Context, txn models.Transaction, trigger string) (Decision, error) {
	if !txn.HasRemote() {
		return Decision{}, ErrNoRemoteResource
	}
	if txn.OrderID == nil {
		return Decision{}, ErrNoOrder
	}
	orderID := *txn.OrderID

	unlock := r.locks.lock(orderID)
	defer unlock()

	decision, err := r.decide(ctx, txn, orderID)
	if err != nil {
		// remote state unknown: leave local state untouched, retry later
		metrics.ReconcileRuns.WithLabelValues(trigger, "unknown").Inc()
		return Decision{}, err
	}
	if !decision.Decided() {
		metrics.ReconcileRuns.WithLabelValues(trigger, "none").Inc()
		return decision, nil
	}

	order, err := r.store.Orders().GetWithDetails(ctx, orderID)
	if err != nil {
		return Decision{}, fmt.Errorf("load order: %w", err)
	}
	if err := r.apply(ctx, order, decision); err != nil {
		return Decision{}, err
	}

	metrics.ReconcileRuns.WithLabelValues(trigger, string(decision.Status)).Inc()
	r.log.Info("reconciled", "order", orderID, "transaction", txn.ID,
		"trigger", trigger, "decision", string(decision.Status))
	return decision, nil
}

// decide fetches remote state and reduces it to a Decision without touching
// local state.
func (r *Reconciler) decide(ctx context.Context, txn models.Transaction, orderID string) (Decision, error) {
	if txn.UsesOrdersAPI() {
		remote, err := r.gateway.GetOrder(ctx, *txn.MollieID)
		if err != nil {
			return Decision{}, fmt.Errorf("fetch psp order: %w", err)
		}
		return decideOrderMode(remote), nil
	}

	payment, err := r.gateway.GetPayment(ctx, *txn.MolliePaymentID)
	if err == nil {
		return decidePaymentMode(payment), nil
	}

	// The payment lookup failed. The shop historically fell back to the
	// order aggregation as a secondary source of truth; keep that, but make
	// it observable.
	r.log.Warn("payment lookup failed, falling back to order aggregation",
		"transaction", txn.ID, "err", err)
	metrics.ReconcileFallbacks.Inc()

	latest, lerr := r.store.Transactions().MostRecentForOrder(ctx, orderID)
	if lerr != nil || latest.MollieID == nil {
		return Decision{}, fmt.Errorf("fetch psp payment: %w", err)
	}
	remote, oerr := r.gateway.GetOrder(ctx, *latest.MollieID)
	if oerr != nil {
		return Decision{}, fmt.Errorf("fetch psp order (fallback): %w", oerr)
	}
	return aggregatePayments(remote.Payments(), fallbackPriorities), nil
}

// decideOrderMode: the order's own status wins outright; otherwise all
// payments must agree on one status before anything moves.
func decideOrderMode(remote *mollie.Order) Decision {
	switch {
	case remote.IsPaid():
		return Decision{Status: StatusPaid, Source: SourceOrder}
	case remote.IsAuthorized():
		return Decision{Status: StatusAuthorized, Source: SourceOrder}
	case remote.IsCanceled():
		return Decision{Status: StatusCanceled, Source: SourceOrder}
	case remote.IsCompleted():
		return Decision{Status: StatusCompleted, Source: SourceOrder}
	}
	return aggregatePayments(remote.Payments(), orderModePriorities)
}

func decidePaymentMode(p *mollie.Payment) Decision {
	var status RemoteStatus
	switch {
	case p.IsPaid():
		status = StatusPaid
	case p.IsPending():
		status = StatusDelayed
	case p.IsAuthorized():
		status = StatusAuthorized
	case p.IsOpen():
		status = StatusOpen
	case p.IsCanceled():
		status = StatusCanceled
	case p.IsExpired():
		status = StatusExpired
	case p.IsFailed():
		status = StatusFailed
	default:
		return Decision{}
	}
	return Decision{Status: status, Source: SourcePayment}
}

var (
	orderModePriorities = []RemoteStatus{StatusPaid, StatusAuthorized, StatusCanceled, StatusOpen}
	fallbackPriorities  = []RemoteStatus{StatusPaid, StatusDelayed, StatusAuthorized, StatusFailed, StatusCanceled, StatusOpen}
)

// aggregatePayments applies the strict fully-X rule: a status is the outcome
// only when every payment carries it. Mixed sets, or an empty set, resolve
// to no decision.
func aggregatePayments(payments []mollie.Payment, priorities []RemoteStatus) Decision {
	total := len(payments)
	if total == 0 {
		return Decision{}
	}

	counts := make(map[RemoteStatus]int, 8)
	for i := range payments {
		p := &payments[i]
		if p.IsPaid() {
			counts[StatusPaid]++
		}
		if p.IsAuthorized() {
			counts[StatusAuthorized]++
		}
		if p.IsPending() {
			counts[StatusDelayed]++
		}
		if p.IsOpen() {
			counts[StatusOpen]++
		}
		if p.IsCanceled() {
			counts[StatusCanceled]++
		}
		if p.IsFailed() {
			counts[StatusFailed]++
		}
		if p.IsExpired() {
			counts[StatusExpired]++
		}
	}

	for _, status := range priorities {
		if counts[status] == total {
			return Decision{Status: status, Source: SourceAggregate}
		}
	}
	return Decision{}
}

// apply performs the local transition and its compensations for a decision,
// grouped into a single commit so compensation never lands without the
// status write.
func (r *Reconciler) apply(ctx context.Context, order models.Order, d Decision) error {
	var paymentChange models.PaymentStatus
	var orderChange models.OrderStatus

	err := r.store.WithTx(ctx, func(st repo.Store) error {
		setPayment := func(status models.PaymentStatus) error {
			if err := st.Orders().SetPaymentStatus(ctx, order.ID, status); err != nil {
				return err
			}
			if order.PaymentStatus != status {
				paymentChange = status
			}
			// keep the copy current: a later Save must not clobber this write
			order.PaymentStatus = status
			return nil
		}
		setOrder := func(status models.OrderStatus) error {
			if err := st.Orders().SetOrderStatus(ctx, order.ID, status); err != nil {
				return err
			}
			if order.OrderStatus != status {
				orderChange = status
			}
			order.OrderStatus = status
			return nil
		}
		cancelOrder := func() error {
			if err := setOrder(models.OrderCancelledRejected); err != nil {
				return err
			}
			if r.cfg.AutoResetStock {
				return r.basket.RestoreStock(ctx, st, &order)
			}
			return nil
		}

		switch d.Status {
		case StatusPaid:
			return setPayment(models.PaymentPaid)
		case StatusAuthorized:
			return setPayment(r.cfg.AuthorizedStatus())
		case StatusDelayed:
			return setPayment(models.PaymentDelayed)
		case StatusOpen:
			return setPayment(models.PaymentOpen)
		case StatusCompleted:
			if r.cfg.UpdateOrderStatus {
				return setOrder(models.OrderCompleted)
			}
			return nil
		case StatusCanceled:
			if d.Source != SourceOrder {
				if err := setPayment(models.PaymentProcessCancelled); err != nil {
					return err
				}
			}
			if r.cfg.CancelFailedOrders || d.Source == SourceOrder {
				return cancelOrder()
			}
			return nil
		case StatusFailed, StatusExpired:
			if d.Source != SourceOrder {
				if err := setPayment(models.PaymentProcessCancelled); err != nil {
					return err
				}
			}
			if r.cfg.CancelFailedOrders {
				return cancelOrder()
			}
			return nil
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply decision: %w", err)
	}

	// mails only fire for actual changes, and only when configured
	if r.cfg.SendStatusMail {
		if paymentChange != "" {
			r.mailer.SendStatusMail(ctx, order, string(paymentChange))
		}
		if orderChange != "" {
			r.mailer.SendStatusMail(ctx, order, string(orderChange))
		}
	}
	return nil
}
