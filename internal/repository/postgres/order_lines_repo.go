package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commercelab/mollie-sync/internal/models"
	repo "github.com/commercelab/mollie-sync/internal/repository"
)

type orderLinesRepo struct{ db querier }

func (r *orderLinesRepo) Create(ctx context.Context, l models.OrderLine) (models.OrderLine, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO order_lines (id, order_id, transaction_id, mollie_orderline_id)
		 VALUES ($1,$2,$3,$4)
		 RETURNING id, order_id, transaction_id, mollie_orderline_id, created_at`,
		l.ID, l.OrderID, l.TransactionID, l.MollieOrderlineID,
	).Scan(&l.ID, &l.OrderID, &l.TransactionID, &l.MollieOrderlineID, &l.CreatedAt)
	return l, err
}

func (r *orderLinesRepo) ListForTransaction(ctx context.Context, transactionID string) ([]models.OrderLine, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, order_id, transaction_id, mollie_orderline_id, created_at
		   FROM order_lines
		  WHERE transaction_id=$1
		  ORDER BY created_at`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.OrderLine
	for rows.Next() {
		var l models.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.TransactionID,
			&l.MollieOrderlineID, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type vouchersRepo struct{ db querier }

func (r *vouchersRepo) GetByID(ctx context.Context, id string) (models.Voucher, error) {
	var v models.Voucher
	err := r.db.QueryRow(ctx,
		`SELECT id, code FROM vouchers WHERE id=$1`, id).Scan(&v.ID, &v.Code)
	if errors.Is(err, pgx.ErrNoRows) {
		return v, repo.ErrNotFound
	}
	return v, err
}

type customersRepo struct{ db querier }

func (r *customersRepo) GetByID(ctx context.Context, id string) (models.Customer, error) {
	var c models.Customer
	err := r.db.QueryRow(ctx,
		`SELECT id, email,
		        billing_salutation, billing_first_name, billing_last_name,
		        billing_street, billing_street_additional, billing_zip,
		        billing_city, billing_country,
		        shipping_salutation, shipping_first_name, shipping_last_name,
		        shipping_street, shipping_street_additional, shipping_zip,
		        shipping_city, shipping_country
		   FROM customers WHERE id=$1`, id).Scan(
		&c.ID, &c.Email,
		&c.BillingAddress.Salutation, &c.BillingAddress.FirstName,
		&c.BillingAddress.LastName, &c.BillingAddress.Street,
		&c.BillingAddress.StreetAdditional, &c.BillingAddress.ZipCode,
		&c.BillingAddress.City, &c.BillingAddress.CountryISO,
		&c.ShippingAddress.Salutation, &c.ShippingAddress.FirstName,
		&c.ShippingAddress.LastName, &c.ShippingAddress.Street,
		&c.ShippingAddress.StreetAdditional, &c.ShippingAddress.ZipCode,
		&c.ShippingAddress.City, &c.ShippingAddress.CountryISO)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, repo.ErrNotFound
	}
	return c, err
}
