package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/commercelab/mollie-sync/internal/config"
	"github.com/commercelab/mollie-sync/internal/models"
	"github.com/commercelab/mollie-sync/internal/mollie"
	"github.com/commercelab/mollie-sync/internal/money"
	repo "github.com/commercelab/mollie-sync/internal/repository"
)

// apiMode is decided once per checkout attempt: which of the PSP's two
// parallel APIs the transaction is created against.
type apiMode int

const (
	paymentsAPI apiMode = iota
	ordersAPI
)

// CheckoutService creates local transactions and their remote counterparts
// at the PSP.
type CheckoutService struct {
	store   repo.Store
	gateway Gateway
	cfg     config.Config
	log     *slog.Logger

	now func() time.Time
}

func NewCheckoutService(store repo.Store, gateway Gateway, cfg config.Config, log *slog.Logger) *CheckoutService {
	return &CheckoutService{store: store, gateway: gateway, cfg: cfg, log: log, now: time.Now}
}

// CheckoutRequest starts one checkout attempt for the basket of a session.
type CheckoutRequest struct {
	SessionID  string  `json:"session_id"`
	CustomerID string  `json:"customer_id"`
	OrderID    *string `json:"order_id,omitempty"`
	// OrderNumber is empty while the shop has not persisted the order yet.
	OrderNumber string `json:"order_number"`
	Method      string `json:"method"`
	Currency    string `json:"currency"`
	Locale      string `json:"locale"`
	// Issuer is the chosen bank for bank-redirect methods (iDEAL).
	Issuer   string `json:"issuer,omitempty"`
	NetOrder bool   `json:"net_order"`
	TaxFree  bool   `json:"tax_free"`
}

// CheckoutResult is what the storefront needs to hand the customer over to
// the PSP.
type CheckoutResult struct {
	TransactionID string `json:"transaction_id"`
	CheckoutURL   string `json:"checkout_url"`
}

// StartCheckout builds a transaction from the current basket, creates the
// remote payment or order, attaches the remote id and returns the checkout
// URL. The transaction row survives forever as the audit trail.
func (s *CheckoutService) StartCheckout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	method := models.ResolveMethod(req.Method)

	lines, err := s.store.Baskets().Lines(ctx, req.SessionID)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("load basket: %w", err)
	}
	items := BuildTransactionItems(lines, req.NetOrder, req.TaxFree)

	txn := models.Transaction{
		OrderID:         req.OrderID,
		SessionID:       req.SessionID,
		Currency:        req.Currency,
		TotalAmount:     TotalOf(items),
		Locale:          req.Locale,
		OrderNumber:     req.OrderNumber,
		BasketSignature: BasketSignature(req.SessionID, lines),
		CustomerID:      req.CustomerID,
	}
	txn, err = s.store.Transactions().Create(ctx, txn)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("create transaction: %w", err)
	}
	for i := range items {
		items[i].TransactionID = txn.ID
	}
	if err := s.store.Transactions().AddItems(ctx, items); err != nil {
		return CheckoutResult{}, fmt.Errorf("store items: %w", err)
	}

	checkoutURL, err := s.startRemote(ctx, &txn, method, items, req.Issuer)
	if err != nil {
		return CheckoutResult{}, err
	}
	return CheckoutResult{TransactionID: txn.ID, CheckoutURL: checkoutURL}, nil
}

// chooseAPI implements the method-routing rule: installment-credit methods
// are orders-API mandatory, everything else follows the configuration.
func (s *CheckoutService) chooseAPI(method models.PaymentMethod) apiMode {
	if method.IsInstallmentCredit() || !s.cfg.UseOrdersAPIOnlyWhereMandatory {
		return ordersAPI
	}
	return paymentsAPI
}

func (s *CheckoutService) startRemote(ctx context.Context, txn *models.Transaction, method models.PaymentMethod, items []models.TransactionItem, issuer string) (string, error) {
	var checkoutURL string

	switch s.chooseAPI(method) {
	case ordersAPI:
		orderReq, err := s.prepareOrderRequest(ctx, txn, method, items, issuer)
		if err != nil {
			return "", err
		}
		remote, err := s.gateway.CreateOrder(ctx, orderReq)
		if err != nil {
			return "", fmt.Errorf("create psp order: %w", err)
		}
		if err := txn.AttachMollieOrder(remote.ID); err != nil {
			return "", err
		}
		for _, line := range remote.Lines {
			_, err := s.store.OrderLines().Create(ctx, models.OrderLine{
				OrderID:           txn.OrderID,
				TransactionID:     txn.ID,
				MollieOrderlineID: line.ID,
			})
			if err != nil {
				return "", fmt.Errorf("store order line: %w", err)
			}
		}
		checkoutURL = remote.CheckoutURL()

	case paymentsAPI:
		payReq, err := s.preparePaymentRequest(ctx, txn, method, issuer)
		if err != nil {
			return "", err
		}
		remote, err := s.gateway.CreatePayment(ctx, payReq)
		if err != nil {
			return "", fmt.Errorf("create psp payment: %w", err)
		}
		if err := txn.AttachMolliePayment(remote.ID); err != nil {
			return "", err
		}
		checkoutURL = remote.CheckoutURL()
	}

	if err := s.store.Transactions().Save(ctx, *txn); err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}
	return checkoutURL, nil
}

// paymentDescription is the generated fallback used when no order number
// exists yet.
func (s *CheckoutService) paymentDescription(txn *models.Transaction) string {
	sig := txn.BasketSignature
	if len(sig) > 4 {
		sig = sig[len(sig)-4:]
	}
	return fmt.Sprintf("%d%s%s", s.now().Unix(), txn.ID, sig)
}

func (s *CheckoutService) preparePaymentRequest(ctx context.Context, txn *models.Transaction, method models.PaymentMethod, issuer string) (*mollie.PaymentRequest, error) {
	redirectURL, err := s.PrepareRedirectURL(txn.ID, ActionReturn)
	if err != nil {
		return nil, err
	}
	webhookURL, err := s.PrepareRedirectURL(txn.ID, ActionNotify)
	if err != nil {
		return nil, err
	}

	description := "Transaction " + s.paymentDescription(txn)
	if len(txn.OrderNumber) > 0 {
		description = "Order " + txn.OrderNumber
	}

	req := &mollie.PaymentRequest{
		Amount:      money.New(txn.Currency, txn.TotalAmount),
		Description: description,
		RedirectURL: redirectURL,
		WebhookURL:  webhookURL,
		Locale:      txn.Locale,
		Method:      method.String(),
	}
	if method == models.MethodIDeal {
		req.Issuer = issuer
	}
	if method.RequiresBillingEmail() {
		customer, err := s.store.Customers().GetByID(ctx, txn.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("load customer: %w", err)
		}
		req.BillingEmail = customer.Email
	}
	return req, nil
}

func (s *CheckoutService) prepareOrderRequest(ctx context.Context, txn *models.Transaction, method models.PaymentMethod, items []models.TransactionItem, issuer string) (*mollie.OrderRequest, error) {
	redirectURL, err := s.PrepareRedirectURL(txn.ID, ActionReturn)
	if err != nil {
		return nil, err
	}
	webhookURL, err := s.PrepareRedirectURL(txn.ID, ActionNotify)
	if err != nil {
		return nil, err
	}

	customer, err := s.store.Customers().GetByID(ctx, txn.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("load customer: %w", err)
	}

	orderNumber := txn.OrderNumber
	if len(orderNumber) == 0 {
		orderNumber = s.paymentDescription(txn)
	}

	paymentParams := map[string]string{"webhookUrl": webhookURL}
	if method == models.MethodIDeal && issuer != "" {
		paymentParams["issuer"] = issuer
	}

	req := &mollie.OrderRequest{
		Amount:          money.New(txn.Currency, txn.TotalAmount),
		OrderNumber:     orderNumber,
		Lines:           orderLineRequests(txn.Currency, items),
		BillingAddress:  addressRequest(customer.BillingAddress, customer.Email),
		ShippingAddress: addressRequest(customer.ShippingAddress, customer.Email),
		RedirectURL:     redirectURL,
		WebhookURL:      webhookURL,
		Locale:          txn.Locale,
		Method:          method.String(),
		Payment:         paymentParams,
		Metadata:        map[string]string{},
	}
	return req, nil
}

func orderLineRequests(currency string, items []models.TransactionItem) []mollie.OrderLineRequest {
	out := make([]mollie.OrderLineRequest, 0, len(items))
	for _, it := range items {
		out = append(out, mollie.OrderLineRequest{
			Type:        string(it.Type),
			Name:        it.Name,
			Quantity:    it.Quantity,
			UnitPrice:   money.New(currency, it.UnitPrice),
			TotalAmount: money.New(currency, it.TotalAmount),
			VATRate:     money.FormatRate(it.VATRate),
			VATAmount:   money.New(currency, it.VATAmount),
		})
	}
	return out
}

func addressRequest(a models.Address, email string) mollie.AddressRequest {
	country := a.CountryISO
	if country == "" {
		country = "NL"
	}
	title := ""
	if a.Salutation != "" {
		title = a.Salutation + "."
	}
	return mollie.AddressRequest{
		Title:            title,
		GivenName:        a.FirstName,
		FamilyName:       a.LastName,
		Email:            email,
		StreetAndNumber:  a.Street,
		StreetAdditional: a.StreetAdditional,
		PostalCode:       a.ZipCode,
		City:             a.City,
		Country:          country,
	}
}

// Redirect actions the PSP flow knows about.
const (
	ActionReturn = "return"
	ActionNotify = "notify"
)

// PrepareRedirectURL assembles the browser-return or webhook URL for a
// transaction. Anything but the two known actions is an invalid request,
// caught before any network call.
func (s *CheckoutService) PrepareRedirectURL(transactionID, action string) (string, error) {
	switch action {
	case ActionReturn:
		return s.cfg.PublicBaseURL + "/payments/return/" + transactionID, nil
	case ActionNotify:
		return s.cfg.PublicBaseURL + "/webhooks/mollie/" + transactionID, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
}

// ListMethods exposes the PSP's active payment methods to the admin API.
func (s *CheckoutService) ListMethods(ctx context.Context) ([]mollie.Method, error) {
	return s.gateway.ListMethods(ctx)
}
