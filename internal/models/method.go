package models

import "strings"

// PaymentMethod is the PSP-side method identifier, without the local
// "mollie_" vendor prefix. Method traits are resolved here once instead of
// by string matching at every decision point.
type PaymentMethod string

const (
	MethodIDeal          PaymentMethod = "ideal"
	MethodCreditCard     PaymentMethod = "creditcard"
	MethodBankTransfer   PaymentMethod = "banktransfer"
	MethodP24            PaymentMethod = "przelewy24"
	MethodKlarnaPayLater PaymentMethod = "klarnapaylater"
	MethodKlarnaSliceIt  PaymentMethod = "klarnasliceit"
)

const methodPrefix = "mollie_"

// ResolveMethod strips the vendor prefix the shop uses for its payment-mean
// names and normalizes the identifier.
func ResolveMethod(name string) PaymentMethod {
	name = strings.TrimPrefix(strings.ToLower(name), methodPrefix)
	return PaymentMethod(name)
}

// IsInstallmentCredit marks the method family that is only available through
// the orders API.
func (m PaymentMethod) IsInstallmentCredit() bool {
	return strings.HasPrefix(string(m), "klarna")
}

// RequiresBillingEmail reports whether the PSP wants a billing e-mail on a
// payments-API create for this method.
func (m PaymentMethod) RequiresBillingEmail() bool {
	return m == MethodBankTransfer || m == MethodP24
}

func (m PaymentMethod) String() string { return string(m) }
