package models

import "github.com/shopspring/decimal"

// BasketLine is one position in the active shopping basket, priced by the
// shop; the line builder only reshapes it for the PSP.
type BasketLine struct {
	ID            string          `json:"id"`
	SessionID     string          `json:"session_id"`
	ArticleNumber string          `json:"article_number"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	NetPrice      decimal.Decimal `json:"net_price"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	ESD           bool            `json:"esd"`
	VoucherMode   bool            `json:"voucher_mode"`
}

// Voucher is a discount code the shop manages; basket restore re-applies it
// to the fresh basket instead of re-adding the discount line as a product.
type Voucher struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// Article carries the stock counter compensation writes back to.
type Article struct {
	Number  string `json:"number"`
	InStock int    `json:"in_stock"`
}

// Customer with address snapshots as the orders API wants them.
type Customer struct {
	ID              string  `json:"id"`
	Email           string  `json:"email"`
	BillingAddress  Address `json:"billing_address"`
	ShippingAddress Address `json:"shipping_address"`
}

type Address struct {
	Salutation       string `json:"salutation"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Street           string `json:"street"`
	StreetAdditional string `json:"street_additional"`
	ZipCode          string `json:"zip_code"`
	City             string `json:"city"`
	CountryISO       string `json:"country_iso"`
}
