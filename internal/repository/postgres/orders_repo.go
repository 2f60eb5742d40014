package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/commercelab/mollie-sync/internal/models"
	repo "github.com/commercelab/mollie-sync/internal/repository"
)

type ordersRepo struct{ db querier }

const orderCols = `id, number, customer_id, currency, payment_status,
 order_status, invoice_amount, invoice_amount_net, invoice_shipping,
 invoice_shipping_net, internal_comment, created_at`

func scanOrder(row pgx.Row) (models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.Number, &o.CustomerID, &o.Currency,
		&o.PaymentStatus, &o.OrderStatus, &o.InvoiceAmount,
		&o.InvoiceAmountNet, &o.InvoiceShipping, &o.InvoiceShippingNet,
		&o.InternalComment, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return o, repo.ErrNotFound
	}
	return o, err
}

func (r *ordersRepo) GetByID(ctx context.Context, id string) (models.Order, error) {
	return scanOrder(r.db.QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
}

func (r *ordersRepo) GetWithDetails(ctx context.Context, id string) (models.Order, error) {
	o, err := r.GetByID(ctx, id)
	if err != nil {
		return o, err
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, order_id, article_number, name, type, quantity, price,
		        voucher_id
		   FROM order_details
		  WHERE order_id=$1
		  ORDER BY id`, id)
	if err != nil {
		return o, err
	}
	defer rows.Close()

	for rows.Next() {
		var d models.OrderDetail
		if err := rows.Scan(&d.ID, &d.OrderID, &d.ArticleNumber, &d.Name,
			&d.Type, &d.Quantity, &d.Price, &d.VoucherID); err != nil {
			return o, err
		}
		o.Details = append(o.Details, d)
	}
	return o, rows.Err()
}

func (r *ordersRepo) Save(ctx context.Context, o models.Order) error {
	_, err := r.db.Exec(ctx,
		`UPDATE orders
		    SET payment_status=$2, order_status=$3, invoice_amount=$4,
		        invoice_amount_net=$5, invoice_shipping=$6,
		        invoice_shipping_net=$7, internal_comment=$8
		  WHERE id=$1`,
		o.ID, o.PaymentStatus, o.OrderStatus, o.InvoiceAmount,
		o.InvoiceAmountNet, o.InvoiceShipping, o.InvoiceShippingNet,
		o.InternalComment)
	return err
}

func (r *ordersRepo) SetPaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) error {
	_, err := r.db.Exec(ctx,
		`UPDATE orders SET payment_status=$2 WHERE id=$1`, orderID, status)
	return err
}

func (r *ordersRepo) SetOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	_, err := r.db.Exec(ctx,
		`UPDATE orders SET order_status=$2 WHERE id=$1`, orderID, status)
	return err
}

func (r *ordersRepo) RemoveDetail(ctx context.Context, detailID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM order_details WHERE id=$1`, detailID)
	return err
}

func (r *ordersRepo) SetDetailQuantity(ctx context.Context, detailID string, quantity int) error {
	_, err := r.db.Exec(ctx,
		`UPDATE order_details SET quantity=$2 WHERE id=$1`, detailID, quantity)
	return err
}
