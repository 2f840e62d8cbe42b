package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/edelweiss-storefront/internal/model"
)

// cartID находит корзину покупателя или создаёт её.
func cartID(ctx context.Context, q pgx.Tx, userID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.QueryRow(ctx,
		`INSERT INTO carts (id, customer_id) VALUES ($1, $2)
		 ON CONFLICT (customer_id) DO UPDATE SET customer_id = EXCLUDED.customer_id
		 RETURNING id`,
		uuid.New(), userID,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("find or create cart: %w", err)
	}
	return id, nil
}

// CartLines возвращает позиции корзины пользователя в порядке добавления.
func (r *PostgresRepository) CartLines(ctx context.Context, userID uuid.UUID) ([]model.CartLine, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ci.id, ci.product_id, p.name, p.image_url, ci.quantity, p.price, COALESCE(s.name, '')
		 FROM cart_items ci
		 JOIN carts c ON c.id = ci.cart_id
		 JOIN products p ON p.id = ci.product_id
		 LEFT JOIN shops s ON s.id = p.shop_id
		 WHERE c.customer_id = $1
		 ORDER BY ci.created_at, ci.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	var lines []model.CartLine
	for rows.Next() {
		var (
			l     model.CartLine
			cents int64
		)
		if err := rows.Scan(&l.ID, &l.ProductID, &l.Name, &l.ImageURL, &l.Quantity, &cents, &l.ShopName); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		l.UnitPrice = FromCents(cents)
		if l.ShopName == "" {
			l.ShopName = model.UnknownShop
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return lines, nil
}

// AddCartItem добавляет товар в корзину. Если товар уже в корзине, количество увеличивается.
// Возвращает идентификатор позиции.
func (r *PostgresRepository) AddCartItem(ctx context.Context, userID uuid.UUID, productID int64, quantity int) (uuid.UUID, error) {
	var lineID uuid.UUID
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		cid, err := cartID(ctx, tx, userID)
		if err != nil {
			return err
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO cart_items (id, cart_id, product_id, quantity) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
			 RETURNING id`,
			uuid.New(), cid, productID, quantity,
		).Scan(&lineID)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("product %d: %w", productID, ErrNotFound)
			}
			return fmt.Errorf("upsert cart item: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return lineID, nil
}

// UpdateCartItemQuantity меняет количество в позиции корзины пользователя.
func (r *PostgresRepository) UpdateCartItemQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE cart_items ci SET quantity = $3
		 FROM carts c
		 WHERE ci.cart_id = c.id AND c.customer_id = $1 AND ci.id = $2`,
		userID, lineID, quantity,
	)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cart item %s: %w", lineID, ErrNotFound)
	}
	return nil
}

// RemoveCartItem удаляет позицию из корзины пользователя.
func (r *PostgresRepository) RemoveCartItem(ctx context.Context, userID, lineID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items ci
		 USING carts c
		 WHERE ci.cart_id = c.id AND c.customer_id = $1 AND ci.id = $2`,
		userID, lineID,
	)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cart item %s: %w", lineID, ErrNotFound)
	}
	return nil
}
