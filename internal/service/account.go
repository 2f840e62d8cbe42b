package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/edelweiss-storefront/internal/model"
	"github.com/mmeshcher/edelweiss-storefront/internal/repository"
	"github.com/mmeshcher/edelweiss-storefront/internal/validation"
)

// AddressInput содержит данные формы адреса.
type AddressInput struct {
	ReceiverName    string
	Phone           string
	Region          string
	Province        string
	City            string
	Barangay        string
	PostalCode      string
	DetailedAddress string
	Label           string
	IsDefault       bool
}

func (in AddressInput) clean() AddressInput {
	clean := func(v string) string { return validation.SanitizeInput(strings.TrimSpace(v)) }
	return AddressInput{
		ReceiverName:    clean(in.ReceiverName),
		Phone:           clean(in.Phone),
		Region:          clean(in.Region),
		Province:        clean(in.Province),
		City:            clean(in.City),
		Barangay:        clean(in.Barangay),
		PostalCode:      clean(in.PostalCode),
		DetailedAddress: clean(in.DetailedAddress),
		Label:           clean(in.Label),
		IsDefault:       in.IsDefault,
	}
}

func (in AddressInput) validate() error {
	if in.ReceiverName == "" || in.Phone == "" {
		return &validation.FieldError{Message: validation.MsgRequired}
	}
	return validation.ValidateField(validation.KindPostalCode, in.PostalCode)
}

func (in AddressInput) apply(a *model.Address) {
	a.ReceiverName = in.ReceiverName
	a.Phone = in.Phone
	a.Region = in.Region
	a.Province = in.Province
	a.City = in.City
	a.Barangay = in.Barangay
	a.PostalCode = in.PostalCode
	a.DetailedAddress = in.DetailedAddress
	a.Label = in.Label
}

// ListAddresses возвращает адреса пользователя, адрес по умолчанию первым.
func (s *Service) ListAddresses(ctx context.Context, userID uuid.UUID) ([]model.Address, error) {
	return s.repo.ListAddresses(ctx, userID)
}

// DefaultAddress возвращает адрес по умолчанию или repository.ErrNotFound.
func (s *Service) DefaultAddress(ctx context.Context, userID uuid.UUID) (*model.Address, error) {
	return s.repo.DefaultAddress(ctx, userID)
}

// AddAddress сохраняет адрес. Первый адрес пользователя становится адресом по умолчанию.
func (s *Service) AddAddress(ctx context.Context, userID uuid.UUID, in AddressInput) (*model.Address, error) {
	in = in.clean()
	if err := in.validate(); err != nil {
		return nil, err
	}

	a := &model.Address{UserID: userID, IsDefault: in.IsDefault}
	in.apply(a)

	if !a.IsDefault {
		_, err := s.repo.DefaultAddress(ctx, userID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			a.IsDefault = true
		case err != nil:
			return nil, err
		}
	}

	if err := s.repo.AddAddress(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateAddress обновляет поля адреса.
func (s *Service) UpdateAddress(ctx context.Context, userID, id uuid.UUID, in AddressInput) (*model.Address, error) {
	in = in.clean()
	if err := in.validate(); err != nil {
		return nil, err
	}

	a := &model.Address{ID: id, UserID: userID}
	in.apply(a)
	if err := s.repo.UpdateAddress(ctx, a); err != nil {
		return nil, err
	}

	if in.IsDefault {
		if err := s.repo.SetDefaultAddress(ctx, userID, id); err != nil {
			return nil, err
		}
		a.IsDefault = true
	}
	return a, nil
}

// DeleteAddress удаляет адрес.
func (s *Service) DeleteAddress(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.DeleteAddress(ctx, userID, id)
}

// SetDefaultAddress делает адрес адресом по умолчанию.
func (s *Service) SetDefaultAddress(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.SetDefaultAddress(ctx, userID, id)
}

// ProfileInput содержит данные формы профиля.
type ProfileInput struct {
	Username  string
	FirstName string
	LastName  string
	Phone     string
	AvatarURL string
	Gender    model.Gender
	Birthdate string
}

// GetProfile возвращает профиль пользователя. Если имя пользователя в профиле не задано,
// оно берётся из данных регистрации в сервисе аутентификации.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID, email, accessToken string) (*model.Profile, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		p = &model.Profile{ID: userID, Email: email, Role: model.RoleCustomer}
	case err != nil:
		return nil, err
	}

	if p.Username == "" && accessToken != "" && s.auth != nil {
		u, err := s.auth.GetUser(ctx, accessToken)
		if err != nil {
			s.logger.Warn("load signup metadata", zap.String("user_id", userID.String()), zap.Error(err))
		} else {
			p.Username = u.Username()
		}
	}
	return p, nil
}

// UpdateProfile очищает и проверяет поля профиля, затем сохраняет его.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, email string, in ProfileInput) (*model.Profile, error) {
	p := &model.Profile{
		ID:        userID,
		Email:     email,
		Username:  validation.SanitizeInput(strings.TrimSpace(in.Username)),
		FirstName: validation.SanitizeInput(strings.TrimSpace(in.FirstName)),
		LastName:  validation.SanitizeInput(strings.TrimSpace(in.LastName)),
		Phone:     validation.SanitizeInput(strings.TrimSpace(in.Phone)),
		AvatarURL: strings.TrimSpace(in.AvatarURL),
		Gender:    in.Gender,
		Birthdate: strings.TrimSpace(in.Birthdate),
	}

	if err := validation.ValidateAll(
		validation.Field{Kind: validation.KindUsername, Value: p.Username},
		validation.Field{Kind: validation.KindFirstName, Value: p.FirstName},
		validation.Field{Kind: validation.KindLastName, Value: p.LastName},
	); err != nil {
		return nil, err
	}

	switch p.Gender {
	case "", model.GenderMale, model.GenderFemale, model.GenderOthers:
	default:
		return nil, &validation.FieldError{Message: fmt.Sprintf("Unknown gender %q.", p.Gender)}
	}

	if p.Birthdate != "" {
		if _, err := time.Parse("2006-01-02", p.Birthdate); err != nil {
			return nil, &validation.FieldError{Message: "Birthdate must be in YYYY-MM-DD format."}
		}
	}

	existing, err := s.repo.GetProfile(ctx, userID)
	switch {
	case err == nil:
		p.Role = existing.Role
	case errors.Is(err, repository.ErrNotFound):
		p.Role = model.RoleCustomer
	default:
		return nil, err
	}

	if err := s.repo.UpsertProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ShopInput содержит данные формы регистрации продавца.
type ShopInput struct {
	Name          string
	BusinessPhone string
	Description   string
}

// CreateShop регистрирует магазин пользователя и переводит его в роль продавца.
func (s *Service) CreateShop(ctx context.Context, userID uuid.UUID, email string, in ShopInput) (*model.Shop, error) {
	shop := &model.Shop{
		OwnerID:       userID,
		Name:          validation.SanitizeInput(strings.TrimSpace(in.Name)),
		BusinessPhone: validation.SanitizeInput(strings.TrimSpace(in.BusinessPhone)),
		Description:   strings.TrimSpace(in.Description),
	}

	if shop.Name == "" || shop.BusinessPhone == "" {
		return nil, &validation.FieldError{Message: validation.MsgRequired}
	}
	if shop.Description != "" {
		if err := validation.ValidateField(validation.KindBio, shop.Description); err != nil {
			return nil, err
		}
	}

	if err := s.repo.CreateShop(ctx, shop, email); err != nil {
		return nil, err
	}
	return shop, nil
}
