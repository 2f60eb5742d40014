package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercelab/mollie-sync/internal/config"
	"github.com/commercelab/mollie-sync/internal/models"
)

func newTestCheckout(cfg config.Config) (*CheckoutService, *memStore, *mockGateway) {
	st := newMemStore()
	gw := newMockGateway()
	svc := NewCheckoutService(st, gw, cfg, testLogger())
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }
	return svc, st, gw
}

func seedBasket(st *memStore, sessionID string) {
	st.basketLines[sessionID] = []models.BasketLine{
		{SessionID: sessionID, ArticleNumber: "SW-100", Name: "Widget",
			Quantity: 2, UnitPrice: decimal.NewFromFloat(11.90),
			NetPrice: decimal.NewFromFloat(10), TaxRate: decimal.NewFromInt(19)},
	}
	st.customers["c1"] = models.Customer{
		ID: "c1", Email: "jane@example.com",
		BillingAddress: models.Address{
			Salutation: "ms", FirstName: "Jane", LastName: "Doe",
			Street: "Main St 1", ZipCode: "1234", City: "Utrecht", CountryISO: "NL",
		},
		ShippingAddress: models.Address{
			FirstName: "Jane", LastName: "Doe",
			Street: "Main St 1", ZipCode: "1234", City: "Utrecht", CountryISO: "NL",
		},
	}
}

func checkoutReq(sessionID, method string) CheckoutRequest {
	return CheckoutRequest{
		SessionID:   sessionID,
		CustomerID:  "c1",
		OrderNumber: "20001",
		Method:      method,
		Currency:    "EUR",
		Locale:      "nl_NL",
	}
}

func TestChooseAPI(t *testing.T) {
	t.Run("klarna is orders-API mandatory", func(t *testing.T) {
		svc, _, _ := newTestCheckout(config.Config{UseOrdersAPIOnlyWhereMandatory: true})
		assert.Equal(t, ordersAPI, svc.chooseAPI(models.MethodKlarnaPayLater))
		assert.Equal(t, ordersAPI, svc.chooseAPI(models.MethodKlarnaSliceIt))
		assert.Equal(t, paymentsAPI, svc.chooseAPI(models.MethodIDeal))
	})

	t.Run("everything routes to orders API when not restricted", func(t *testing.T) {
		svc, _, _ := newTestCheckout(config.Config{UseOrdersAPIOnlyWhereMandatory: false})
		assert.Equal(t, ordersAPI, svc.chooseAPI(models.MethodCreditCard))
	})
}

func TestStartCheckoutPaymentsAPI(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{
		UseOrdersAPIOnlyWhereMandatory: true,
		PublicBaseURL:                  "https://shop.example",
	}

	t.Run("creates remote payment and attaches its id", func(t *testing.T) {
		svc, st, gw := newTestCheckout(cfg)
		seedBasket(st, "s1")

		res, err := svc.StartCheckout(ctx, checkoutReq("s1", "mollie_ideal"))
		require.NoError(t, err)
		assert.NotEmpty(t, res.TransactionID)
		assert.Equal(t, "https://psp.example/pay/tr_1", res.CheckoutURL)

		txn, err := st.Transactions().GetByID(ctx, res.TransactionID)
		require.NoError(t, err)
		require.NotNil(t, txn.MolliePaymentID)
		assert.Nil(t, txn.MollieID)
		assert.Equal(t, "tr_1", *txn.MolliePaymentID)

		require.Len(t, gw.createdPayments, 1)
		req := gw.createdPayments[0]
		// "mollie_" vendor prefix is stripped before the PSP sees the method
		assert.Equal(t, "ideal", req.Method)
		assert.Equal(t, "Order 20001", req.Description)
		assert.Equal(t, "https://shop.example/payments/return/"+res.TransactionID, req.RedirectURL)
		assert.Equal(t, "https://shop.example/webhooks/mollie/"+res.TransactionID, req.WebhookURL)
		assert.Equal(t, "23.80", req.Amount.String())
	})

	t.Run("description falls back when no order number exists", func(t *testing.T) {
		svc, st, gw := newTestCheckout(cfg)
		seedBasket(st, "s2")
		req := checkoutReq("s2", "creditcard")
		req.OrderNumber = ""

		_, err := svc.StartCheckout(ctx, req)
		require.NoError(t, err)
		assert.Contains(t, gw.createdPayments[0].Description, "Transaction 1700000000")
	})

	t.Run("billing email for bank transfer", func(t *testing.T) {
		svc, st, gw := newTestCheckout(cfg)
		seedBasket(st, "s3")

		_, err := svc.StartCheckout(ctx, checkoutReq("s3", "banktransfer"))
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", gw.createdPayments[0].BillingEmail)
	})
}

func TestStartCheckoutOrdersAPI(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{
		UseOrdersAPIOnlyWhereMandatory: true,
		PublicBaseURL:                  "https://shop.example",
	}

	t.Run("klarna goes through the orders API with full lines", func(t *testing.T) {
		svc, st, gw := newTestCheckout(cfg)
		seedBasket(st, "s4")

		res, err := svc.StartCheckout(ctx, checkoutReq("s4", "mollie_klarnapaylater"))
		require.NoError(t, err)
		assert.Equal(t, "https://psp.example/order/ord_1", res.CheckoutURL)

		txn, _ := st.Transactions().GetByID(ctx, res.TransactionID)
		require.NotNil(t, txn.MollieID)
		assert.Nil(t, txn.MolliePaymentID)

		require.Len(t, gw.createdOrders, 1)
		req := gw.createdOrders[0]
		assert.Equal(t, "20001", req.OrderNumber)
		require.Len(t, req.Lines, 1)
		assert.Equal(t, "physical", req.Lines[0].Type)
		assert.Equal(t, "19.00", req.Lines[0].VATRate)
		assert.Equal(t, "ms.", req.BillingAddress.Title)
		assert.Equal(t, req.WebhookURL, req.Payment["webhookUrl"])
		assert.NotNil(t, req.Metadata)

		// one local row per remote order line
		lines, err := st.OrderLines().ListForTransaction(ctx, res.TransactionID)
		require.NoError(t, err)
		assert.Len(t, lines, 1)
	})

	t.Run("issuer only travels for ideal", func(t *testing.T) {
		svc, st, gw := newTestCheckout(config.Config{PublicBaseURL: "https://shop.example"})
		seedBasket(st, "s5")
		req := checkoutReq("s5", "ideal")
		req.Issuer = "ideal_ABNANL2A"

		_, err := svc.StartCheckout(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "ideal_ABNANL2A", gw.createdOrders[0].Payment["issuer"])

		seedBasket(st, "s6")
		req2 := checkoutReq("s6", "creditcard")
		req2.Issuer = "ideal_ABNANL2A"
		_, err = svc.StartCheckout(ctx, req2)
		require.NoError(t, err)
		_, ok := gw.createdOrders[1].Payment["issuer"]
		assert.False(t, ok)
	})
}

func TestPrepareRedirectURL(t *testing.T) {
	svc, _, _ := newTestCheckout(config.Config{PublicBaseURL: "https://shop.example"})

	url, err := svc.PrepareRedirectURL("txn-1", ActionReturn)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/payments/return/txn-1", url)

	url, err = svc.PrepareRedirectURL("txn-1", ActionNotify)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/webhooks/mollie/txn-1", url)

	_, err = svc.PrepareRedirectURL("txn-1", "something-else")
	assert.ErrorIs(t, err, ErrInvalidAction)
}
