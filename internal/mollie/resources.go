package mollie

import (
	"github.com/commercelab/mollie-sync/internal/money"
)

// Payment statuses as the PSP reports them.
const (
	statusOpen       = "open"
	statusCanceled   = "canceled"
	statusPending    = "pending"
	statusAuthorized = "authorized"
	statusExpired    = "expired"
	statusFailed     = "failed"
	statusPaid       = "paid"
	statusCompleted  = "completed"
	statusShipping   = "shipping"
)

type Link struct {
	Href string `json:"href"`
}

type paymentLinks struct {
	Checkout *Link `json:"checkout,omitempty"`
}

// Payment is a single payment attempt at the PSP.
type Payment struct {
	Resource    string       `json:"resource"`
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	Amount      money.Amount `json:"amount"`
	Description string       `json:"description,omitempty"`
	Method      string       `json:"method,omitempty"`
	Links       paymentLinks `json:"_links"`
}

func (p *Payment) IsOpen() bool       { return p.Status == statusOpen }
func (p *Payment) IsCanceled() bool   { return p.Status == statusCanceled }
func (p *Payment) IsPending() bool    { return p.Status == statusPending }
func (p *Payment) IsAuthorized() bool { return p.Status == statusAuthorized }
func (p *Payment) IsExpired() bool    { return p.Status == statusExpired }
func (p *Payment) IsFailed() bool     { return p.Status == statusFailed }
func (p *Payment) IsPaid() bool       { return p.Status == statusPaid }

func (p *Payment) CheckoutURL() string {
	if p.Links.Checkout == nil {
		return ""
	}
	return p.Links.Checkout.Href
}

type OrderEmbedded struct {
	Payments []Payment `json:"payments,omitempty"`
}

// Order is the PSP's multi-line order resource, optionally with its payments
// embedded.
type Order struct {
	Resource    string         `json:"resource"`
	ID          string         `json:"id"`
	Status      string         `json:"status"`
	Amount      money.Amount   `json:"amount"`
	OrderNumber string         `json:"orderNumber,omitempty"`
	Method      string         `json:"method,omitempty"`
	Lines       []OrderLine    `json:"lines,omitempty"`
	Links       paymentLinks   `json:"_links"`
	Embedded    *OrderEmbedded `json:"_embedded,omitempty"`
}

func (o *Order) IsCreated() bool    { return o.Status == "created" }
func (o *Order) IsPaid() bool       { return o.Status == statusPaid }
func (o *Order) IsAuthorized() bool { return o.Status == statusAuthorized }
func (o *Order) IsCanceled() bool   { return o.Status == statusCanceled }
func (o *Order) IsCompleted() bool  { return o.Status == statusCompleted }
func (o *Order) IsExpired() bool    { return o.Status == statusExpired }
func (o *Order) IsShipping() bool   { return o.Status == statusShipping }

// Payments returns the embedded payment list, empty when payments were not
// embedded on the fetch.
func (o *Order) Payments() []Payment {
	if o.Embedded == nil {
		return nil
	}
	return o.Embedded.Payments
}

func (o *Order) CheckoutURL() string {
	if o.Links.Checkout == nil {
		return ""
	}
	return o.Links.Checkout.Href
}

// OrderLine is one remote line of an order resource.
type OrderLine struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	Name        string       `json:"name"`
	Quantity    int          `json:"quantity"`
	UnitPrice   money.Amount `json:"unitPrice"`
	TotalAmount money.Amount `json:"totalAmount"`
	VATRate     string       `json:"vatRate"`
	VATAmount   money.Amount `json:"vatAmount"`
}

// Shipment is the result of a ship-all instruction.
type Shipment struct {
	Resource string      `json:"resource"`
	ID       string      `json:"id"`
	OrderID  string      `json:"orderId"`
	Lines    []OrderLine `json:"lines,omitempty"`
}

// Method is one of the PSP's active payment methods.
type Method struct {
	Resource    string `json:"resource"`
	ID          string `json:"id"`
	Description string `json:"description"`
}

// PaymentRequest is the create-payment payload (payments API).
type PaymentRequest struct {
	Amount       money.Amount `json:"amount"`
	Description  string       `json:"description"`
	RedirectURL  string       `json:"redirectUrl"`
	WebhookURL   string       `json:"webhookUrl"`
	Locale       string       `json:"locale,omitempty"`
	Method       string       `json:"method"`
	BillingEmail string       `json:"billingEmail,omitempty"`
	Issuer       string       `json:"issuer,omitempty"`
}

// OrderRequest is the create-order payload (orders API).
type OrderRequest struct {
	Amount          money.Amount       `json:"amount"`
	OrderNumber     string             `json:"orderNumber"`
	Lines           []OrderLineRequest `json:"lines"`
	BillingAddress  AddressRequest     `json:"billingAddress"`
	ShippingAddress AddressRequest     `json:"shippingAddress"`
	RedirectURL     string             `json:"redirectUrl"`
	WebhookURL      string             `json:"webhookUrl"`
	Locale          string             `json:"locale,omitempty"`
	Method          string             `json:"method"`
	Payment         map[string]string  `json:"payment,omitempty"`
	Metadata        map[string]string  `json:"metadata"`
}

type OrderLineRequest struct {
	Type        string       `json:"type"`
	Name        string       `json:"name"`
	Quantity    int          `json:"quantity"`
	UnitPrice   money.Amount `json:"unitPrice"`
	TotalAmount money.Amount `json:"totalAmount"`
	VATRate     string       `json:"vatRate"`
	VATAmount   money.Amount `json:"vatAmount"`
	SKU         *string      `json:"sku"`
	ImageURL    *string      `json:"imageUrl"`
	ProductURL  *string      `json:"productUrl"`
}

type AddressRequest struct {
	Title            string `json:"title,omitempty"`
	GivenName        string `json:"givenName"`
	FamilyName       string `json:"familyName"`
	Email            string `json:"email"`
	StreetAndNumber  string `json:"streetAndNumber"`
	StreetAdditional string `json:"streetAdditional,omitempty"`
	PostalCode       string `json:"postalCode"`
	City             string `json:"city"`
	Country          string `json:"country"`
}
