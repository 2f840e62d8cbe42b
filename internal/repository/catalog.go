package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/edelweiss-storefront/internal/model"
)

const productColumns = `p.id, p.name, p.description, p.price, p.image_url, p.shop_id, COALESCE(s.name, '')`

func scanProduct(row pgx.Row) (model.Product, error) {
	var (
		p      model.Product
		cents  int64
		shopID *uuid.UUID
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &cents, &p.ImageURL, &shopID, &p.ShopName); err != nil {
		return model.Product{}, err
	}
	p.Price = FromCents(cents)
	p.ShopID = shopID
	if p.ShopName == "" {
		p.ShopName = model.UnknownShop
	}
	return p, nil
}

// ListProducts возвращает каталог товаров вместе с названиями магазинов.
func (r *PostgresRepository) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+`
		 FROM products p
		 LEFT JOIN shops s ON s.id = p.shop_id
		 ORDER BY p.created_at DESC, p.id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+`
		 FROM products p
		 LEFT JOIN shops s ON s.id = p.shop_id
		 WHERE p.id = $1`,
		id,
	)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}
