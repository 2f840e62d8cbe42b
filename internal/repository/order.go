package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/edelweiss-storefront/internal/model"
)

// CreateOrder сохраняет заказ с позициями и удаляет купленные позиции из корзины в одной транзакции.
// Если хотя бы одной из позиций lineIDs уже нет в корзине, заказ не создаётся.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order, lineIDs []uuid.UUID) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}

	return r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			err := tx.QueryRow(ctx,
				`INSERT INTO orders (id, number, user_id, address_id, payment_method, status, promo_code,
					subtotal, shipping, addon_fee, discount, total)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
				 RETURNING created_at`,
				o.ID, o.Number, o.UserID, o.AddressID, string(o.PaymentMethod), string(o.Status), o.PromoCode,
				ToCents(o.Subtotal), ToCents(o.Shipping), ToCents(o.AddonFee), ToCents(o.Discount), ToCents(o.Total),
			).Scan(&o.CreatedAt)
			if err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("%w: %s", ErrOrderNumberTaken, o.Number)
				}
				return fmt.Errorf("insert order: %w", err)
			}

			batch := &pgx.Batch{}
			for _, it := range o.Items {
				batch.Queue(
					`INSERT INTO order_items (order_id, product_id, name, quantity, unit_price, shop_name)
					 VALUES ($1, $2, $3, $4, $5, $6)`,
					o.ID, it.ProductID, it.Name, it.Quantity, ToCents(it.UnitPrice), it.ShopName,
				)
			}
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("insert order items: %w", err)
			}

			tag, err := tx.Exec(ctx,
				`DELETE FROM cart_items ci
				 USING carts c
				 WHERE ci.cart_id = c.id AND c.customer_id = $1 AND ci.id = ANY($2)`,
				o.UserID, lineIDs,
			)
			if err != nil {
				return fmt.Errorf("clear purchased cart items: %w", err)
			}
			if tag.RowsAffected() != int64(len(lineIDs)) {
				return ErrCartItemsChanged
			}
			return nil
		})
	})
}

// ListOrders возвращает заказы пользователя от новых к старым вместе с позициями.
func (r *PostgresRepository) ListOrders(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, number, user_id, address_id, payment_method, status, promo_code,
		        subtotal, shipping, addon_fee, discount, total, created_at
		 FROM orders
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var (
		orders []model.Order
		index  = make(map[uuid.UUID]int)
	)
	for rows.Next() {
		var (
			o         model.Order
			addressID *uuid.UUID
			payment   string
			status    string
		)
		var subtotal, shipping, addon, discount, total int64
		if err := rows.Scan(&o.ID, &o.Number, &o.UserID, &addressID, &payment, &status, &o.PromoCode,
			&subtotal, &shipping, &addon, &discount, &total, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if addressID != nil {
			o.AddressID = *addressID
		}
		o.PaymentMethod = model.PaymentMethod(payment)
		o.Status = model.OrderStatus(status)
		o.Subtotal = FromCents(subtotal)
		o.Shipping = FromCents(shipping)
		o.AddonFee = FromCents(addon)
		o.Discount = FromCents(discount)
		o.Total = FromCents(total)

		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	if len(orders) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	itemRows, err := r.pool.Query(ctx,
		`SELECT order_id, product_id, name, quantity, unit_price, shop_name
		 FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY id`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			orderID uuid.UUID
			it      model.OrderItem
			cents   int64
		)
		if err := itemRows.Scan(&orderID, &it.ProductID, &it.Name, &it.Quantity, &cents, &it.ShopName); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		it.UnitPrice = FromCents(cents)
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}
