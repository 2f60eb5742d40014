package services

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/commercelab/mollie-sync/internal/models"
)

var hundred = decimal.NewFromInt(100)

// BuildTransactionItems converts priced basket lines into the line items the
// PSP order request is built from. Line types are resolved here once, never
// re-derived later.
//
// netOrder marks baskets priced net of tax (tax is added back onto the unit
// price); taxFree clears VAT entirely.
func BuildTransactionItems(lines []models.BasketLine, netOrder, taxFree bool) []models.TransactionItem {
	items := make([]models.TransactionItem, 0, len(lines))

	for i, line := range lines {
		unitPrice := line.UnitPrice.Round(2)
		netPrice := line.NetPrice

		if netOrder {
			netPrice = unitPrice
			unitPrice = unitPrice.Mul(line.TaxRate.Add(hundred)).Div(hundred)
		}
		if taxFree {
			unitPrice = netPrice
		}

		qty := decimal.NewFromInt(int64(line.Quantity))
		totalAmount := unitPrice.Mul(qty)

		vatRate := line.TaxRate
		vatAmount := decimal.Zero
		if !taxFree && !vatRate.IsZero() {
			vatAmount = totalAmount.Mul(vatRate).Div(vatRate.Add(hundred)).Round(2)
		}
		if vatAmount.IsZero() {
			vatRate = decimal.Zero
		}

		items = append(items, models.TransactionItem{
			Position:    i,
			Name:        line.Name,
			Type:        lineType(line, unitPrice),
			Quantity:    line.Quantity,
			UnitPrice:   unitPrice,
			NetPrice:    netPrice,
			TotalAmount: totalAmount,
			VATRate:     vatRate,
			VATAmount:   vatAmount,
		})
	}
	return items
}

func lineType(line models.BasketLine, unitPrice decimal.Decimal) models.LineType {
	t := models.LinePhysical
	if strings.Contains(line.ArticleNumber, "surcharge") {
		t = models.LineSurcharge
	}
	if strings.Contains(line.ArticleNumber, "discount") {
		t = models.LineDiscount
	}
	if line.ESD {
		t = models.LineDigital
	}
	if line.VoucherMode {
		t = models.LineDiscount
	}
	if unitPrice.IsNegative() {
		t = models.LineDiscount
	}
	return t
}

// BasketSignature fingerprints the basket contents; resubmitting an
// unchanged basket yields the same signature.
func BasketSignature(sessionID string, lines []models.BasketLine) string {
	h := sha1.New()
	fmt.Fprintln(h, sessionID)
	for _, l := range lines {
		fmt.Fprintf(h, "%s|%d|%s\n", l.ArticleNumber, l.Quantity, l.UnitPrice.StringFixed(2))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// TotalOf sums the line totals.
func TotalOf(items []models.TransactionItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.TotalAmount)
	}
	return sum
}
