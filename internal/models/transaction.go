package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type LineType string

const (
	LinePhysical  LineType = "physical"
	LineDigital   LineType = "digital"
	LineDiscount  LineType = "discount"
	LineSurcharge LineType = "surcharge"
)

var ErrRemoteIDConflict = errors.New("transaction already has a remote resource")

// Transaction is one checkout attempt. Once a remote resource exists exactly
// one of MollieID (orders API) or MolliePaymentID (payments API) is set.
type Transaction struct {
	ID              string          `json:"id"`
	OrderID         *string         `json:"order_id,omitempty"`
	MollieID        *string         `json:"mollie_id,omitempty"`
	MolliePaymentID *string         `json:"mollie_payment_id,omitempty"`
	SessionID       string          `json:"session_id"`
	Currency        string          `json:"currency"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Locale          string          `json:"locale"`
	OrderNumber     string          `json:"order_number"`
	BasketSignature string          `json:"basket_signature"`
	CustomerID      string          `json:"customer_id"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (t *Transaction) AttachMollieOrder(id string) error {
	if t.HasRemote() {
		return ErrRemoteIDConflict
	}
	t.MollieID = &id
	return nil
}

func (t *Transaction) AttachMolliePayment(id string) error {
	if t.HasRemote() {
		return ErrRemoteIDConflict
	}
	t.MolliePaymentID = &id
	return nil
}

// UsesOrdersAPI reports which PSP resource family the transaction was
// created against.
func (t *Transaction) UsesOrdersAPI() bool { return t.MollieID != nil }

func (t *Transaction) HasRemote() bool {
	return t.MollieID != nil || t.MolliePaymentID != nil
}

// TransactionItem is one line of a transaction, built once at checkout and
// read-only afterwards.
type TransactionItem struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	Position      int             `json:"position"`
	Name          string          `json:"name"`
	Type          LineType        `json:"type"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	NetPrice      decimal.Decimal `json:"net_price"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	VATRate       decimal.Decimal `json:"vat_rate"`
	VATAmount     decimal.Decimal `json:"vat_amount"`
}

// OrderLine maps a local order/transaction to one remote order line. Rows
// exist only for orders-API transactions.
type OrderLine struct {
	ID                string    `json:"id"`
	OrderID           *string   `json:"order_id,omitempty"`
	TransactionID     string    `json:"transaction_id"`
	MollieOrderlineID string    `json:"mollie_orderline_id"`
	CreatedAt         time.Time `json:"created_at"`
}
