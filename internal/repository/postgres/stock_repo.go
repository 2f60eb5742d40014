package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commercelab/mollie-sync/internal/models"
	repo "github.com/commercelab/mollie-sync/internal/repository"
)

type stockRepo struct{ db querier }

func (r *stockRepo) GetArticle(ctx context.Context, number string) (models.Article, error) {
	var a models.Article
	err := r.db.QueryRow(ctx,
		`SELECT number, in_stock FROM articles WHERE number=$1`,
		number).Scan(&a.Number, &a.InStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return a, repo.ErrNotFound
	}
	return a, err
}

func (r *stockRepo) AddStock(ctx context.Context, number string, delta int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE articles SET in_stock = in_stock + $2 WHERE number=$1`,
		number, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

type basketsRepo struct{ db querier }

func (r *basketsRepo) Clear(ctx context.Context, sessionID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM basket_lines WHERE session_id=$1`, sessionID)
	return err
}

// AddArticle copies the article's current catalog data into a basket line.
func (r *basketsRepo) AddArticle(ctx context.Context, sessionID, articleNumber string, quantity int) error {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO basket_lines (
		   id, session_id, article_number, name, quantity,
		   unit_price, net_price, tax_rate, esd, voucher_mode
		 )
		 SELECT $1, $2, a.number, a.name, $4, a.price, a.net_price,
		        a.tax_rate, a.esd, false
		   FROM articles a WHERE a.number=$3`,
		uuid.NewString(), sessionID, articleNumber, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *basketsRepo) AddVoucher(ctx context.Context, sessionID, code string) error {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO basket_lines (
		   id, session_id, article_number, name, quantity,
		   unit_price, net_price, tax_rate, esd, voucher_mode
		 )
		 SELECT $1, $2, 'voucher-'||v.code, 'Voucher '||v.code, 1,
		        0, 0, 0, false, true
		   FROM vouchers v WHERE v.code=$3`,
		uuid.NewString(), sessionID, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *basketsRepo) Lines(ctx context.Context, sessionID string) ([]models.BasketLine, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, article_number, name, quantity,
		        unit_price, net_price, tax_rate, esd, voucher_mode
		   FROM basket_lines
		  WHERE session_id=$1
		  ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.BasketLine
	for rows.Next() {
		var l models.BasketLine
		if err := rows.Scan(&l.ID, &l.SessionID, &l.ArticleNumber, &l.Name,
			&l.Quantity, &l.UnitPrice, &l.NetPrice, &l.TaxRate,
			&l.ESD, &l.VoucherMode); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *basketsRepo) Refresh(ctx context.Context, sessionID string) error {
	// drop lines whose article disappeared since the basket was built
	_, err := r.db.Exec(ctx,
		`DELETE FROM basket_lines b
		  WHERE b.session_id=$1
		    AND NOT b.voucher_mode
		    AND NOT EXISTS (SELECT 1 FROM articles a WHERE a.number=b.article_number)`,
		sessionID)
	return err
}
