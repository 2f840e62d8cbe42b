// Package handler содержит HTTP-обработчики API витрины Edelweiss.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/edelweiss-storefront/internal/authflow"
	"github.com/mmeshcher/edelweiss-storefront/internal/cooldown"
	"github.com/mmeshcher/edelweiss-storefront/internal/gotrue"
	"github.com/mmeshcher/edelweiss-storefront/internal/middleware"
	"github.com/mmeshcher/edelweiss-storefront/internal/model"
	"github.com/mmeshcher/edelweiss-storefront/internal/repository"
	"github.com/mmeshcher/edelweiss-storefront/internal/service"
	"github.com/mmeshcher/edelweiss-storefront/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Signup(ctx context.Context, flowID uuid.UUID, in authflow.SignupInput) (authflow.State, error)
	Login(ctx context.Context, flowID uuid.UUID, email, password string) (*model.Session, authflow.State, error)
	Resend(ctx context.Context, flowID uuid.UUID) (authflow.State, error)
	CloseVerification(ctx context.Context, flowID uuid.UUID) (authflow.State, error)
	Logout(ctx context.Context, userID uuid.UUID, accessToken string) error

	StartRecovery(ctx context.Context, email string) (authflow.ResetState, error)
	SubmitRecoveryCode(ctx context.Context, flowID uuid.UUID, code string) (authflow.ResetState, error)
	SubmitRecoveryPassword(ctx context.Context, flowID uuid.UUID, password, confirm string) (authflow.ResetState, error)
	RecoveryBack(flowID uuid.UUID) (authflow.ResetState, error)

	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)

	Cart(ctx context.Context, userID uuid.UUID) (*service.CartView, error)
	AddToCart(ctx context.Context, userID uuid.UUID, productID int64, quantity int) (*service.CartView, error)
	UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*service.CartView, error)
	RemoveFromCart(ctx context.Context, userID, lineID uuid.UUID) (*service.CartView, error)
	ToggleItem(ctx context.Context, userID, lineID uuid.UUID) (*service.CartView, error)
	ToggleShop(ctx context.Context, userID uuid.UUID, shopName string) (*service.CartView, error)
	ToggleSelectAll(ctx context.Context, userID uuid.UUID) (*service.CartView, error)
	ApplyPromo(ctx context.Context, userID uuid.UUID, code string) (*service.CartView, error)
	Checkout(ctx context.Context, userID uuid.UUID, method model.PaymentMethod) (*model.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]model.Order, error)

	ListAddresses(ctx context.Context, userID uuid.UUID) ([]model.Address, error)
	DefaultAddress(ctx context.Context, userID uuid.UUID) (*model.Address, error)
	AddAddress(ctx context.Context, userID uuid.UUID, in service.AddressInput) (*model.Address, error)
	UpdateAddress(ctx context.Context, userID, id uuid.UUID, in service.AddressInput) (*model.Address, error)
	DeleteAddress(ctx context.Context, userID, id uuid.UUID) error
	SetDefaultAddress(ctx context.Context, userID, id uuid.UUID) error

	GetProfile(ctx context.Context, userID uuid.UUID, email, accessToken string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, email string, in service.ProfileInput) (*model.Profile, error)
	CreateShop(ctx context.Context, userID uuid.UUID, email string, in service.ShopInput) (*model.Shop, error)
}

// Handler реализует HTTP-обработчики API витрины.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimiter
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// Если limiter равен nil, маршруты аутентификации не ограничиваются.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, limiter *middleware.RateLimiter) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		rateLimiter:    limiter,
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// statusFor сопоставляет ошибку бизнес-логики HTTP-статусу. 0 означает внутреннюю ошибку.
func statusFor(err error) int {
	var fieldErr *validation.FieldError
	var apiErr *gotrue.APIError

	switch {
	case errors.As(err, &fieldErr),
		errors.Is(err, authflow.ErrInvalidCode),
		errors.Is(err, authflow.ErrPasswordMismatch),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidPaymentMethod):
		return http.StatusBadRequest
	case errors.Is(err, gotrue.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, authflow.ErrFlowNotFound):
		return http.StatusNotFound
	case errors.Is(err, gotrue.ErrUserAlreadyExists),
		errors.Is(err, authflow.ErrInProgress),
		errors.Is(err, authflow.ErrWrongStep),
		errors.Is(err, authflow.ErrNotAwaitingVerification),
		errors.Is(err, repository.ErrShopExists),
		errors.Is(err, repository.ErrCartItemsChanged):
		return http.StatusConflict
	case errors.Is(err, service.ErrEmptySelection),
		errors.Is(err, service.ErrNoDefaultAddress):
		return http.StatusUnprocessableEntity
	case errors.Is(err, authflow.ErrCooldownActive):
		return http.StatusTooManyRequests
	case errors.As(err, &apiErr):
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	}
	return 0
}

// fail отвечает ошибкой, соответствующей err. Неизвестные ошибки пишутся в журнал.
func (h *Handler) fail(w http.ResponseWriter, err error, msg string, fields ...zap.Field) {
	status := statusFor(err)
	if status == 0 {
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := errorResponse{Error: err.Error()}
	var fieldErr *validation.FieldError
	if errors.As(err, &fieldErr) {
		resp = errorResponse{Error: fieldErr.Message, Field: string(fieldErr.Kind)}
	}

	var cdErr *authflow.CooldownError
	if errors.As(err, &cdErr) {
		w.Header().Set("Retry-After", strconv.Itoa(cooldown.Seconds(cdErr.Remaining)))
	}

	writeJSON(w, status, resp)
}

// currentUser извлекает идентификатор пользователя, положенный в контекст middleware.
func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	}
	return userID, ok
}

func parseUUID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
