package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/edelweiss-storefront/internal/model"
)

const birthdateLayout = "2006-01-02"

// GetProfile возвращает профиль пользователя.
func (r *PostgresRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	var (
		p         model.Profile
		gender    *string
		birthdate *time.Time
		role      string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, username, first_name, last_name, phone, avatar_url, gender, birthdate, role
		 FROM profiles WHERE id = $1`,
		userID,
	).Scan(&p.ID, &p.Email, &p.Username, &p.FirstName, &p.LastName, &p.Phone, &p.AvatarURL, &gender, &birthdate, &role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	if gender != nil {
		p.Gender = model.Gender(*gender)
	}
	if birthdate != nil {
		p.Birthdate = birthdate.Format(birthdateLayout)
	}
	p.Role = model.Role(role)
	return &p, nil
}

// UpsertProfile создаёт или обновляет профиль. Роль существующего профиля не меняется.
func (r *PostgresRepository) UpsertProfile(ctx context.Context, p *model.Profile) error {
	var gender *string
	if p.Gender != "" {
		g := string(p.Gender)
		gender = &g
	}

	var birthdate *time.Time
	if p.Birthdate != "" {
		t, err := time.Parse(birthdateLayout, p.Birthdate)
		if err != nil {
			return fmt.Errorf("parse birthdate: %w", err)
		}
		birthdate = &t
	}

	role := p.Role
	if role == "" {
		role = model.RoleCustomer
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO profiles (id, email, username, first_name, last_name, phone, avatar_url, gender, birthdate, role)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		     email = EXCLUDED.email,
		     username = EXCLUDED.username,
		     first_name = EXCLUDED.first_name,
		     last_name = EXCLUDED.last_name,
		     phone = EXCLUDED.phone,
		     avatar_url = EXCLUDED.avatar_url,
		     gender = EXCLUDED.gender,
		     birthdate = EXCLUDED.birthdate,
		     updated_at = now()`,
		p.ID, p.Email, p.Username, p.FirstName, p.LastName, p.Phone, p.AvatarURL, gender, birthdate, string(role),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// CreateShop регистрирует магазин и переводит профиль владельца в роль продавца в одной транзакции.
func (r *PostgresRepository) CreateShop(ctx context.Context, shop *model.Shop, ownerEmail string) error {
	if shop.ID == uuid.Nil {
		shop.ID = uuid.New()
	}

	return r.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO shops (id, owner_id, name, business_phone, description)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING created_at`,
			shop.ID, shop.OwnerID, shop.Name, shop.BusinessPhone, shop.Description,
		).Scan(&shop.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrShopExists, shop.Name)
			}
			return fmt.Errorf("insert shop: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO profiles (id, email, role) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET role = EXCLUDED.role, updated_at = now()`,
			shop.OwnerID, ownerEmail, string(model.RoleShopOwner),
		)
		if err != nil {
			return fmt.Errorf("promote profile: %w", err)
		}
		return nil
	})
}
