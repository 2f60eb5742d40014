package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/commercelab/mollie-sync/internal/models"
	"github.com/commercelab/mollie-sync/internal/mollie"
	repo "github.com/commercelab/mollie-sync/internal/repository"
)

// ShippingService tells the PSP to ship a remote order once the local order
// is delivered. Every failure mode is a distinct, user-visible error; the
// backend operator has to act on them.
type ShippingService struct {
	store   repo.Store
	gateway Gateway
	log     *slog.Logger
}

func NewShippingService(store repo.Store, gateway Gateway, log *slog.Logger) *ShippingService {
	return &ShippingService{store: store, gateway: gateway, log: log}
}

// HandleOrderSaved is the save hook: called after the backend stores an
// order. Only a delivered order triggers a shipment; anything else is a
// no-op.
func (s *ShippingService) HandleOrderSaved(ctx context.Context, orderID string) error {
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	if order.OrderStatus != models.OrderDelivered {
		return nil
	}
	_, err = s.ShipOrder(ctx, orderID)
	return err
}

// ShipOrder issues a ship-all for the order's remote counterpart. The
// remote order must exist and be paid or authorized.
func (s *ShippingService) ShipOrder(ctx context.Context, orderID string) (*mollie.Shipment, error) {
	txn, err := s.store.Transactions().MostRecentForOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	if txn.MollieID == nil {
		return nil, ErrNoRemoteResource
	}

	remote, err := s.gateway.GetOrder(ctx, *txn.MollieID)
	if err != nil {
		if errors.Is(err, mollie.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrShipOrderNotFound, *txn.MollieID)
		}
		return nil, fmt.Errorf("fetch psp order: %w", err)
	}

	if !remote.IsPaid() && !remote.IsAuthorized() {
		if remote.IsCompleted() {
			return nil, fmt.Errorf("%w: %s", ErrShipAlreadyCompleted, remote.ID)
		}
		return nil, fmt.Errorf("%w: %s is %q", ErrShipNotPaid, remote.ID, remote.Status)
	}

	shipment, err := s.gateway.ShipOrder(ctx, remote.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShipRejected, err)
	}

	s.log.Info("shipped psp order", "order", orderID, "mollie_order", remote.ID,
		"shipment", shipment.ID)
	return shipment, nil
}
