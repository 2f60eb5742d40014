package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the local, authoritative payment state of an order. The
// reconciler is the only writer of this field on the PSP-sync path.
type PaymentStatus string

const (
	PaymentOpen             PaymentStatus = "open"
	PaymentPaid             PaymentStatus = "paid"
	PaymentDelayed          PaymentStatus = "delayed"
	PaymentAuthorized       PaymentStatus = "authorized"
	PaymentProcessCancelled PaymentStatus = "process_cancelled"
)

type OrderStatus string

const (
	OrderOpen              OrderStatus = "open"
	OrderCompleted         OrderStatus = "completed"
	OrderCancelledRejected OrderStatus = "cancelled_rejected"
	OrderDelivered         OrderStatus = "delivered"
)

// Order is the commerce order the reconciler drives. The service references
// it, the surrounding shop owns it.
type Order struct {
	ID                 string          `json:"id"`
	Number             string          `json:"number"`
	CustomerID         string          `json:"customer_id"`
	Currency           string          `json:"currency"`
	PaymentStatus      PaymentStatus   `json:"payment_status"`
	OrderStatus        OrderStatus     `json:"order_status"`
	InvoiceAmount      decimal.Decimal `json:"invoice_amount"`
	InvoiceAmountNet   decimal.Decimal `json:"invoice_amount_net"`
	InvoiceShipping    decimal.Decimal `json:"invoice_shipping"`
	InvoiceShippingNet decimal.Decimal `json:"invoice_shipping_net"`
	InternalComment    string          `json:"internal_comment"`
	CreatedAt          time.Time       `json:"created_at"`

	Details []OrderDetail `json:"details,omitempty"`
}

// OrderDetail is one position on the order. Voucher positions carry the
// voucher id and are typed as discount lines.
type OrderDetail struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	ArticleNumber string          `json:"article_number"`
	Name          string          `json:"name"`
	Type          LineType        `json:"type"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	VoucherID     *string         `json:"voucher_id,omitempty"`
}

func (d *OrderDetail) IsVoucher() bool { return d.VoucherID != nil }

// AppendInternalComment adds text to the order's internal note, separated by
// a blank line, skipping the append when the text is already present.
func (o *Order) AppendInternalComment(text string) {
	if strings.Contains(o.InternalComment, text) {
		return
	}
	if len(o.InternalComment) > 0 {
		o.InternalComment += "\n\n"
	}
	o.InternalComment += text
}

// RecalculateInvoiceAmount sums the detail prices plus shipping back into the
// invoice totals.
func (o *Order) RecalculateInvoiceAmount() {
	sum := decimal.Zero
	for _, d := range o.Details {
		sum = sum.Add(d.Price.Mul(decimal.NewFromInt(int64(d.Quantity))))
	}
	o.InvoiceAmount = sum.Add(o.InvoiceShipping)
}
