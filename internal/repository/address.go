package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/edelweiss-storefront/internal/model"
)

const addressColumns = `id, user_id, receiver_name, phone, region, province, city, barangay,
	postal_code, detailed_address, label, is_default, created_at`

func scanAddress(row pgx.Row) (model.Address, error) {
	var a model.Address
	err := row.Scan(&a.ID, &a.UserID, &a.ReceiverName, &a.Phone, &a.Region, &a.Province, &a.City,
		&a.Barangay, &a.PostalCode, &a.DetailedAddress, &a.Label, &a.IsDefault, &a.CreatedAt)
	return a, err
}

// ListAddresses возвращает адреса пользователя, адрес по умолчанию первым.
func (r *PostgresRepository) ListAddresses(ctx context.Context, userID uuid.UUID) ([]model.Address, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+addressColumns+`
		 FROM addresses
		 WHERE user_id = $1
		 ORDER BY is_default DESC, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select addresses: %w", err)
	}
	defer rows.Close()

	var res []model.Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		res = append(res, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// DefaultAddress возвращает адрес пользователя по умолчанию.
func (r *PostgresRepository) DefaultAddress(ctx context.Context, userID uuid.UUID) (*model.Address, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+addressColumns+`
		 FROM addresses
		 WHERE user_id = $1 AND is_default
		 LIMIT 1`,
		userID,
	)

	a, err := scanAddress(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("default address: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("get default address: %w", err)
	}
	return &a, nil
}

// AddAddress сохраняет новый адрес. Адрес, добавленный как основной, снимает признак с остальных.
func (r *PostgresRepository) AddAddress(ctx context.Context, a *model.Address) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	return r.inTx(ctx, func(tx pgx.Tx) error {
		if a.IsDefault {
			if _, err := tx.Exec(ctx,
				`UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`,
				a.UserID,
			); err != nil {
				return fmt.Errorf("clear default address: %w", err)
			}
		}

		err := tx.QueryRow(ctx,
			`INSERT INTO addresses (id, user_id, receiver_name, phone, region, province, city, barangay,
				postal_code, detailed_address, label, is_default)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			 RETURNING created_at`,
			a.ID, a.UserID, a.ReceiverName, a.Phone, a.Region, a.Province, a.City, a.Barangay,
			a.PostalCode, a.DetailedAddress, a.Label, a.IsDefault,
		).Scan(&a.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert address: %w", err)
		}
		return nil
	})
}

// UpdateAddress обновляет поля адреса. Признак адреса по умолчанию не меняется.
func (r *PostgresRepository) UpdateAddress(ctx context.Context, a *model.Address) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE addresses
		 SET receiver_name = $3, phone = $4, region = $5, province = $6, city = $7, barangay = $8,
		     postal_code = $9, detailed_address = $10, label = $11
		 WHERE id = $1 AND user_id = $2`,
		a.ID, a.UserID, a.ReceiverName, a.Phone, a.Region, a.Province, a.City, a.Barangay,
		a.PostalCode, a.DetailedAddress, a.Label,
	)
	if err != nil {
		return fmt.Errorf("update address: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("address %s: %w", a.ID, ErrNotFound)
	}
	return nil
}

// DeleteAddress удаляет адрес пользователя.
func (r *PostgresRepository) DeleteAddress(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM addresses WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("address %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetDefaultAddress делает адрес основным одним оператором UPDATE, так что у пользователя
// никогда не бывает двух основных адресов. Чужой или несуществующий id ничего не меняет.
func (r *PostgresRepository) SetDefaultAddress(ctx context.Context, userID, id uuid.UUID) error {
	return r.withRetry(ctx, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE addresses
			 SET is_default = (id = $2)
			 WHERE user_id = $1
			   AND EXISTS (SELECT 1 FROM addresses WHERE id = $2 AND user_id = $1)`,
			userID, id,
		)
		if err != nil {
			return fmt.Errorf("set default address: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("address %s: %w", id, ErrNotFound)
		}
		return nil
	})
}
