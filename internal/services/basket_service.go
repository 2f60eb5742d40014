package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/commercelab/mollie-sync/internal/config"
	"github.com/commercelab/mollie-sync/internal/models"
	repo "github.com/commercelab/mollie-sync/internal/repository"
)

const retryNote = "The payment on this order failed, the customer is retrying. "

// BasketService carries the compensation actions: putting stock back after a
// failed payment and rebuilding the basket so the customer can retry
// checkout without re-entering the cart.
type BasketService struct {
	store repo.Store
	cfg   config.Config
	log   *slog.Logger
}

func NewBasketService(store repo.Store, cfg config.Config, log *slog.Logger) *BasketService {
	return &BasketService{store: store, cfg: cfg, log: log}
}

// RestoreStock adds each detail's ordered quantity back to the article
// stock. Quantities are zeroed first, so a repeated restore contributes
// nothing. Runs against the given store handle so the reconciler can group
// it with its status write.
func (s *BasketService) RestoreStock(ctx context.Context, st repo.Store, order *models.Order) error {
	for i := range order.Details {
		if err := s.restoreDetailQuantity(ctx, st, &order.Details[i]); err != nil {
			return err
		}
	}

	if s.cfg.ResetInvoiceAndShipping {
		order.InvoiceShipping = decimal.Zero
		order.InvoiceShippingNet = decimal.Zero
		order.InvoiceAmount = decimal.Zero
		order.InvoiceAmountNet = decimal.Zero
	}
	return st.Orders().Save(ctx, *order)
}

// restoreDetailQuantity zeroes the ordered quantity and credits it back to
// the catalog article. Unknown articles (deleted since the order) only cost
// a log line.
func (s *BasketService) restoreDetailQuantity(ctx context.Context, st repo.Store, detail *models.OrderDetail) error {
	ordered := detail.Quantity
	if ordered == 0 {
		return nil
	}
	if err := st.Orders().SetDetailQuantity(ctx, detail.ID, 0); err != nil {
		return err
	}
	detail.Quantity = 0

	if err := st.Stock().AddStock(ctx, detail.ArticleNumber, ordered); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.log.Error("stock restore: article missing",
				"article", detail.ArticleNumber, "quantity", ordered)
			return nil
		}
		return err
	}
	return nil
}

// RestoreBasket rebuilds the session's basket from a failed order: products
// are re-added, voucher lines are moved off the order and re-applied as a
// code, and the order gets a one-time internal note. Errors here are
// surfaced to the caller; a half-restored basket needs human eyes.
func (s *BasketService) RestoreBasket(ctx context.Context, sessionID, orderID string) error {
	err := s.store.WithTx(ctx, func(st repo.Store) error {
		order, err := st.Orders().GetWithDetails(ctx, orderID)
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}
		if len(order.Details) == 0 {
			return nil
		}

		if err := st.Baskets().Clear(ctx, sessionID); err != nil {
			return fmt.Errorf("clear basket: %w", err)
		}

		note := retryNote
		kept := order.Details[:0]

		for _, detail := range order.Details {
			if detail.IsVoucher() {
				voucher, err := st.Vouchers().GetByID(ctx, *detail.VoucherID)
				if err != nil {
					return fmt.Errorf("load voucher: %w", err)
				}
				// the voucher moves to the new basket instead of staying a
				// line on the dead order
				if err := st.Orders().RemoveDetail(ctx, detail.ID); err != nil {
					return fmt.Errorf("remove voucher line: %w", err)
				}
				note += "Voucher code (" + voucher.Code +
					") is removed from this order and reused in the newly created basket. "
				if err := st.Baskets().AddVoucher(ctx, sessionID, voucher.Code); err != nil {
					return fmt.Errorf("re-apply voucher: %w", err)
				}
				order.InvoiceAmount = order.InvoiceAmount.Sub(detail.Price)
				continue
			}

			if err := st.Baskets().AddArticle(ctx, sessionID, detail.ArticleNumber, detail.Quantity); err != nil {
				return fmt.Errorf("re-add article %s: %w", detail.ArticleNumber, err)
			}
			if s.cfg.AutoResetStock {
				if err := s.restoreDetailQuantity(ctx, st, &detail); err != nil {
					return err
				}
			}
			kept = append(kept, detail)
		}
		order.Details = kept

		order.AppendInternalComment(note)
		order.RecalculateInvoiceAmount()

		if s.cfg.CancelFailedOrders {
			order.PaymentStatus = models.PaymentProcessCancelled
		}
		return st.Orders().Save(ctx, order)
	})
	if err != nil {
		return err
	}
	return s.store.Baskets().Refresh(ctx, sessionID)
}
