package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commercelab/mollie-sync/internal/models"
	repo "github.com/commercelab/mollie-sync/internal/repository"
)

type transactionsRepo struct{ db querier }

const txnCols = `id, order_id, mollie_id, mollie_payment_id, session_id,
 currency, total_amount, locale, order_number, basket_signature, customer_id,
 created_at`

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.OrderID, &t.MollieID, &t.MolliePaymentID,
		&t.SessionID, &t.Currency, &t.TotalAmount, &t.Locale, &t.OrderNumber,
		&t.BasketSignature, &t.CustomerID, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, repo.ErrNotFound
	}
	return t, err
}

func (r *transactionsRepo) Create(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	const q = `
INSERT INTO transactions (
  id, order_id, mollie_id, mollie_payment_id, session_id, currency,
  total_amount, locale, order_number, basket_signature, customer_id
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING ` + txnCols
	return scanTransaction(r.db.QueryRow(ctx, q,
		t.ID, t.OrderID, t.MollieID, t.MolliePaymentID, t.SessionID,
		t.Currency, t.TotalAmount, t.Locale, t.OrderNumber,
		t.BasketSignature, t.CustomerID))
}

func (r *transactionsRepo) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	return scanTransaction(r.db.QueryRow(ctx,
		`SELECT `+txnCols+` FROM transactions WHERE id=$1`, id))
}

func (r *transactionsRepo) MostRecentForOrder(ctx context.Context, orderID string) (models.Transaction, error) {
	return scanTransaction(r.db.QueryRow(ctx,
		`SELECT `+txnCols+`
		   FROM transactions
		  WHERE order_id=$1
		  ORDER BY created_at DESC, id DESC
		  LIMIT 1`, orderID))
}

func (r *transactionsRepo) ListForOrder(ctx context.Context, orderID string) ([]models.Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+txnCols+`
		   FROM transactions
		  WHERE order_id=$1
		  ORDER BY created_at DESC, id DESC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *transactionsRepo) Save(ctx context.Context, t models.Transaction) error {
	_, err := r.db.Exec(ctx,
		`UPDATE transactions
		    SET order_id=$2, mollie_id=$3, mollie_payment_id=$4,
		        order_number=$5
		  WHERE id=$1`,
		t.ID, t.OrderID, t.MollieID, t.MolliePaymentID, t.OrderNumber)
	return err
}

func (r *transactionsRepo) AddItems(ctx context.Context, items []models.TransactionItem) error {
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO transaction_items (
			   id, transaction_id, position, name, type, quantity,
			   unit_price, net_price, total_amount, vat_rate, vat_amount
			 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			it.ID, it.TransactionID, it.Position, it.Name, it.Type,
			it.Quantity, it.UnitPrice, it.NetPrice, it.TotalAmount,
			it.VATRate, it.VATAmount)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *transactionsRepo) ItemsFor(ctx context.Context, transactionID string) ([]models.TransactionItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, transaction_id, position, name, type, quantity,
		        unit_price, net_price, total_amount, vat_rate, vat_amount
		   FROM transaction_items
		  WHERE transaction_id=$1
		  ORDER BY position`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TransactionItem
	for rows.Next() {
		var it models.TransactionItem
		if err := rows.Scan(&it.ID, &it.TransactionID, &it.Position, &it.Name,
			&it.Type, &it.Quantity, &it.UnitPrice, &it.NetPrice,
			&it.TotalAmount, &it.VATRate, &it.VATAmount); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *transactionsRepo) ListUndecided(ctx context.Context, limit int) ([]models.Transaction, error) {
	// latest transaction per order, limited to orders that are still open
	// or delayed locally
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT ON (t.order_id) `+prefixed("t", txnCols)+`
		   FROM transactions t
		   JOIN orders o ON o.id = t.order_id
		  WHERE o.payment_status IN ('open','delayed')
		  ORDER BY t.order_id, t.created_at DESC, t.id DESC
		  LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
