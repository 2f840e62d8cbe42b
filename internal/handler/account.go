package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/edelweiss-storefront/internal/middleware"
	"github.com/mmeshcher/edelweiss-storefront/internal/model"
	"github.com/mmeshcher/edelweiss-storefront/internal/repository"
	"github.com/mmeshcher/edelweiss-storefront/internal/service"
)

type addressRequest struct {
	ReceiverName    string `json:"receiver_name"`
	Phone           string `json:"phone"`
	Region          string `json:"region"`
	Province        string `json:"province"`
	City            string `json:"city"`
	Barangay        string `json:"barangay"`
	PostalCode      string `json:"postal_code"`
	DetailedAddress string `json:"detailed_address"`
	Label           string `json:"label"`
	IsDefault       bool   `json:"is_default"`
}

func (req addressRequest) input() service.AddressInput {
	return service.AddressInput{
		ReceiverName:    req.ReceiverName,
		Phone:           req.Phone,
		Region:          req.Region,
		Province:        req.Province,
		City:            req.City,
		Barangay:        req.Barangay,
		PostalCode:      req.PostalCode,
		DetailedAddress: req.DetailedAddress,
		Label:           req.Label,
		IsDefault:       req.IsDefault,
	}
}

type addressResponse struct {
	ID              uuid.UUID `json:"id"`
	ReceiverName    string    `json:"receiver_name"`
	Phone           string    `json:"phone"`
	Region          string    `json:"region"`
	Province        string    `json:"province"`
	City            string    `json:"city"`
	Barangay        string    `json:"barangay"`
	PostalCode      string    `json:"postal_code"`
	DetailedAddress string    `json:"detailed_address"`
	Label           string    `json:"label,omitempty"`
	IsDefault       bool      `json:"is_default"`
	CreatedAt       string    `json:"created_at,omitempty"`
}

func newAddressResponse(a model.Address) addressResponse {
	return addressResponse{
		ID:              a.ID,
		ReceiverName:    a.ReceiverName,
		Phone:           a.Phone,
		Region:          a.Region,
		Province:        a.Province,
		City:            a.City,
		Barangay:        a.Barangay,
		PostalCode:      a.PostalCode,
		DetailedAddress: a.DetailedAddress,
		Label:           a.Label,
		IsDefault:       a.IsDefault,
		CreatedAt:       formatTime(a.CreatedAt),
	}
}

// ListAddresses возвращает адреса пользователя, адрес по умолчанию первым.
func (h *Handler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	addrs, err := h.service.ListAddresses(r.Context(), userID)
	if err != nil {
		h.fail(w, err, "list addresses error", zap.String("userID", userID.String()))
		return
	}

	resp := make([]addressResponse, 0, len(addrs))
	for _, a := range addrs {
		resp = append(resp, newAddressResponse(a))
	}

	writeJSON(w, http.StatusOK, resp)
}

// DefaultAddress возвращает адрес по умолчанию или 204, если он не задан.
func (h *Handler) DefaultAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	addr, err := h.service.DefaultAddress(r.Context(), userID)
	if errors.Is(err, repository.ErrNotFound) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		h.fail(w, err, "default address error", zap.String("userID", userID.String()))
		return
	}

	writeJSON(w, http.StatusOK, newAddressResponse(*addr))
}

// AddAddress добавляет адрес доставки.
func (h *Handler) AddAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req addressRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	addr, err := h.service.AddAddress(r.Context(), userID, req.input())
	if err != nil {
		h.fail(w, err, "add address error", zap.String("userID", userID.String()))
		return
	}

	writeJSON(w, http.StatusCreated, newAddressResponse(*addr))
}

// UpdateAddress изменяет адрес доставки.
func (h *Handler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := parseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req addressRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	addr, err := h.service.UpdateAddress(r.Context(), userID, id, req.input())
	if err != nil {
		h.fail(w, err, "update address error", zap.String("userID", userID.String()))
		return
	}

	writeJSON(w, http.StatusOK, newAddressResponse(*addr))
}

// DeleteAddress удаляет адрес доставки.
func (h *Handler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := parseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteAddress(r.Context(), userID, id); err != nil {
		h.fail(w, err, "delete address error", zap.String("userID", userID.String()))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetDefaultAddress делает адрес адресом по умолчанию.
func (h *Handler) SetDefaultAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := parseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.SetDefaultAddress(r.Context(), userID, id); err != nil {
		h.fail(w, err, "set default address error", zap.String("userID", userID.String()))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type profileRequest struct {
	Username  string       `json:"username"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Phone     string       `json:"phone"`
	AvatarURL string       `json:"avatar_url"`
	Gender    model.Gender `json:"gender"`
	Birthdate string       `json:"birthdate"`
}

type profileResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	AvatarURL string    `json:"avatar_url"`
	Gender    string    `json:"gender,omitempty"`
	Birthdate string    `json:"birthdate,omitempty"`
	Role      string    `json:"role"`
}

func newProfileResponse(p model.Profile) profileResponse {
	return profileResponse{
		ID:        p.ID,
		Email:     p.Email,
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
		AvatarURL: p.AvatarURL,
		Gender:    string(p.Gender),
		Birthdate: p.Birthdate,
		Role:      string(p.Role),
	}
}

// GetProfile возвращает профиль текущего пользователя.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	p, err := h.service.GetProfile(ctx, userID, middleware.GetEmailFromContext(ctx), middleware.GetAccessTokenFromContext(ctx))
	if err != nil {
		h.fail(w, err, "get profile error", zap.String("userID", userID.String()))
		return
	}

	writeJSON(w, http.StatusOK, newProfileResponse(*p))
}

// UpdateProfile сохраняет профиль текущего пользователя.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	p, err := h.service.UpdateProfile(r.Context(), userID, middleware.GetEmailFromContext(r.Context()), service.ProfileInput{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		AvatarURL: req.AvatarURL,
		Gender:    req.Gender,
		Birthdate: req.Birthdate,
	})
	if err != nil {
		h.fail(w, err, "update profile error", zap.String("userID", userID.String()))
		return
	}

	writeJSON(w, http.StatusOK, newProfileResponse(*p))
}

type shopRequest struct {
	Name          string `json:"name"`
	BusinessPhone string `json:"business_phone"`
	Description   string `json:"description"`
}

type shopResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	BusinessPhone string    `json:"business_phone"`
	Description   string    `json:"description"`
	CreatedAt     string    `json:"created_at,omitempty"`
}

// CreateShop регистрирует магазин и переводит пользователя в роль продавца.
func (h *Handler) CreateShop(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req shopRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	shop, err := h.service.CreateShop(r.Context(), userID, middleware.GetEmailFromContext(r.Context()), service.ShopInput{
		Name:          req.Name,
		BusinessPhone: req.BusinessPhone,
		Description:   req.Description,
	})
	if err != nil {
		h.fail(w, err, "create shop error", zap.String("userID", userID.String()))
		return
	}

	writeJSON(w, http.StatusCreated, shopResponse{
		ID:            shop.ID,
		Name:          shop.Name,
		BusinessPhone: shop.BusinessPhone,
		Description:   shop.Description,
		CreatedAt:     formatTime(shop.CreatedAt),
	})
}
