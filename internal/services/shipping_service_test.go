package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercelab/mollie-sync/internal/models"
	"github.com/commercelab/mollie-sync/internal/mollie"
)

func newTestShipping() (*ShippingService, *memStore, *mockGateway) {
	st := newMemStore()
	gw := newMockGateway()
	return NewShippingService(st, gw, testLogger()), st, gw
}

func TestShipOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("paid remote order ships", func(t *testing.T) {
		svc, st, gw := newTestShipping()
		seedOrder(st, "sh1")
		seedOrderTxn(st, "sh1", "ord_s1")
		gw.orders["ord_s1"] = pspOrder("ord_s1", "paid")

		shipment, err := svc.ShipOrder(ctx, "sh1")
		require.NoError(t, err)
		assert.Equal(t, "ord_s1", shipment.OrderID)
		assert.Equal(t, []string{"ord_s1"}, gw.shipCalls)
	})

	t.Run("authorized remote order ships too", func(t *testing.T) {
		svc, st, gw := newTestShipping()
		seedOrder(st, "sh2")
		seedOrderTxn(st, "sh2", "ord_s2")
		gw.orders["ord_s2"] = pspOrder("ord_s2", "authorized")

		_, err := svc.ShipOrder(ctx, "sh2")
		require.NoError(t, err)
	})

	t.Run("transaction without remote order", func(t *testing.T) {
		svc, st, _ := newTestShipping()
		seedOrder(st, "sh3")
		seedPaymentTxn(st, "sh3", "tr_1")

		_, err := svc.ShipOrder(ctx, "sh3")
		assert.ErrorIs(t, err, ErrNoRemoteResource)
	})

	t.Run("remote order vanished", func(t *testing.T) {
		svc, st, _ := newTestShipping()
		seedOrder(st, "sh4")
		seedOrderTxn(st, "sh4", "ord_gone")

		_, err := svc.ShipOrder(ctx, "sh4")
		assert.ErrorIs(t, err, ErrShipOrderNotFound)
	})

	t.Run("already completed", func(t *testing.T) {
		svc, st, gw := newTestShipping()
		seedOrder(st, "sh5")
		seedOrderTxn(st, "sh5", "ord_s5")
		gw.orders["ord_s5"] = pspOrder("ord_s5", "completed")

		_, err := svc.ShipOrder(ctx, "sh5")
		assert.ErrorIs(t, err, ErrShipAlreadyCompleted)
		assert.Empty(t, gw.shipCalls)
	})

	t.Run("open order is not shippable", func(t *testing.T) {
		svc, st, gw := newTestShipping()
		seedOrder(st, "sh6")
		seedOrderTxn(st, "sh6", "ord_s6")
		gw.orders["ord_s6"] = pspOrder("ord_s6", "created")

		_, err := svc.ShipOrder(ctx, "sh6")
		assert.ErrorIs(t, err, ErrShipNotPaid)
	})

	t.Run("psp rejects the shipment", func(t *testing.T) {
		svc, st, gw := newTestShipping()
		seedOrder(st, "sh7")
		seedOrderTxn(st, "sh7", "ord_s7")
		gw.orders["ord_s7"] = pspOrder("ord_s7", "paid")
		gw.shipErr = mollie.ErrConflict

		_, err := svc.ShipOrder(ctx, "sh7")
		assert.ErrorIs(t, err, ErrShipRejected)
	})
}

func TestHandleOrderSaved(t *testing.T) {
	ctx := context.Background()

	t.Run("delivered order triggers a shipment", func(t *testing.T) {
		svc, st, gw := newTestShipping()
		o := seedOrder(st, "hs1")
		o.OrderStatus = models.OrderDelivered
		seedOrderTxn(st, "hs1", "ord_h1")
		gw.orders["ord_h1"] = pspOrder("ord_h1", "paid")

		require.NoError(t, svc.HandleOrderSaved(ctx, "hs1"))
		assert.Equal(t, []string{"ord_h1"}, gw.shipCalls)
	})

	t.Run("anything else is a no-op", func(t *testing.T) {
		svc, st, gw := newTestShipping()
		seedOrder(st, "hs2")
		seedOrderTxn(st, "hs2", "ord_h2")
		gw.orders["ord_h2"] = pspOrder("ord_h2", "paid")

		require.NoError(t, svc.HandleOrderSaved(ctx, "hs2"))
		assert.Empty(t, gw.shipCalls)
	})
}
