// Package authflow реализует сценарии регистрации, входа, повторной отправки
// письма подтверждения и восстановления пароля.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/edelweiss-storefront/internal/cooldown"
	"github.com/mmeshcher/edelweiss-storefront/internal/gotrue"
	"github.com/mmeshcher/edelweiss-storefront/internal/model"
	"github.com/mmeshcher/edelweiss-storefront/internal/validation"
)

// ResendCooldown задаёт паузу между повторными отправками письма подтверждения.
const ResendCooldown = 60 * time.Second

const (
	MsgAlreadyRegistered = "This email is already registered. Please log in instead."
	MsgCheckEmail        = "Check your email for a confirmation link."
	MsgEmailNotConfirmed = "Please confirm your email before logging in."
	MsgResent            = "Verification email resent. Check your inbox."
	MsgLoginFailed       = "Login failed"
	MsgSignupFailed      = "Signup failed"
	MsgResendFailed      = "Failed to resend verification email"
)

var (
	// ErrCooldownActive возвращается при повторной отправке письма до окончания паузы.
	ErrCooldownActive = errors.New("resend cooldown active")
	// ErrInProgress возвращается, если предыдущая отправка формы ещё не завершилась.
	ErrInProgress = errors.New("request already in progress")
	// ErrNotAwaitingVerification возвращается при повторной отправке вне ожидания подтверждения.
	ErrNotAwaitingVerification = errors.New("no verification pending")
)

// AuthClient описывает контракт сервиса аутентификации, используемый сценариями.
type AuthClient interface {
	SignUp(ctx context.Context, req gotrue.SignUpRequest) (*model.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error)
	Resend(ctx context.Context, email string, typ gotrue.OTPType) error
	ResetPasswordForEmail(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, token string, typ gotrue.OTPType) (*model.Session, error)
	UpdatePassword(ctx context.Context, accessToken, password string) error
	SignOut(ctx context.Context, accessToken string) error
}

// Status описывает состояние сценария входа/регистрации.
type Status string

const (
	StatusIdle                 Status = "idle"
	StatusSubmitting           Status = "submitting"
	StatusAwaitingVerification Status = "awaiting_verification"
	StatusAuthenticated        Status = "authenticated"
	StatusFailed               Status = "failed"
)

// State описывает снимок сценария для отображения клиенту.
type State struct {
	FlowID          uuid.UUID `json:"flow_id"`
	Status          Status    `json:"status"`
	Email           string    `json:"email,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	Message         string    `json:"message,omitempty"`
	CooldownSeconds int       `json:"cooldown_seconds"`
	Generation      uint64    `json:"generation"`
}

// SignupInput содержит данные формы регистрации.
type SignupInput struct {
	Email    string
	Password string
	Username string
}

// Flow ведёт сценарий входа/регистрации одного клиента.
type Flow struct {
	id        uuid.UUID
	client    AuthClient
	cooldowns cooldown.Store

	mu         sync.Mutex
	status     Status
	email      string
	reason     string
	message    string
	generation uint64
}

// NewFlow создаёт сценарий в состоянии Idle с новым идентификатором.
func NewFlow(client AuthClient, cooldowns cooldown.Store) *Flow {
	return &Flow{
		id:        uuid.New(),
		client:    client,
		cooldowns: cooldowns,
		status:    StatusIdle,
	}
}

// ID возвращает идентификатор сценария.
func (f *Flow) ID() uuid.UUID {
	return f.id
}

// State возвращает текущий снимок сценария.
func (f *Flow) State(ctx context.Context) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot(ctx)
}

func (f *Flow) snapshot(ctx context.Context) State {
	st := State{
		FlowID:     f.id,
		Status:     f.status,
		Email:      f.email,
		Reason:     f.reason,
		Message:    f.message,
		Generation: f.generation,
	}
	if f.status == StatusAwaitingVerification && f.email != "" {
		if remaining, err := f.cooldowns.Remaining(ctx, cooldownKey(f.email)); err == nil {
			st.CooldownSeconds = cooldown.Seconds(remaining)
		}
	}
	return st
}

func (f *Flow) begin(email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status == StatusSubmitting {
		return ErrInProgress
	}
	f.status = StatusSubmitting
	f.email = email
	f.reason = ""
	f.message = ""
	return nil
}

// Login выполняет вход. Неподтверждённый email переводит сценарий в ожидание подтверждения,
// остальные ошибки сервиса возвращаются дословно в состоянии Failed.
func (f *Flow) Login(ctx context.Context, email, password string) (*model.Session, State, error) {
	email = normalizeEmail(email)
	if err := f.begin(email); err != nil {
		return nil, f.State(ctx), err
	}

	sess, err := f.client.SignInWithPassword(ctx, email, password)

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case err == nil:
		f.status = StatusAuthenticated
	case errors.Is(err, gotrue.ErrEmailNotConfirmed):
		f.status = StatusAwaitingVerification
		f.message = MsgEmailNotConfirmed
		err = nil
	default:
		f.status = StatusFailed
		f.reason = errorReason(err, MsgLoginFailed)
	}

	return sess, f.snapshot(ctx), err
}

// Signup проверяет поля локально и регистрирует пользователя.
// Ошибка проверки не доходит до сервиса аутентификации.
func (f *Flow) Signup(ctx context.Context, in SignupInput) (State, error) {
	in.Email = normalizeEmail(in.Email)
	in.Username = validation.SanitizeInput(strings.TrimSpace(in.Username))

	if err := validation.ValidateAll(
		validation.Field{Kind: validation.KindUsername, Value: in.Username},
		validation.Field{Kind: validation.KindEmail, Value: in.Email},
		validation.Field{Kind: validation.KindPassword, Value: in.Password},
	); err != nil {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.status == StatusSubmitting {
			return f.snapshot(ctx), err
		}
		f.status = StatusFailed
		f.reason = err.Error()
		return f.snapshot(ctx), err
	}

	if err := f.begin(in.Email); err != nil {
		return f.State(ctx), err
	}

	_, err := f.client.SignUp(ctx, gotrue.SignUpRequest{
		Email:    in.Email,
		Password: in.Password,
		Data:     map[string]any{"username": in.Username},
	})

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case err == nil:
		f.status = StatusAwaitingVerification
		f.message = MsgCheckEmail
		if _, _, cerr := f.cooldowns.Acquire(ctx, cooldownKey(in.Email), ResendCooldown); cerr != nil {
			return f.snapshot(ctx), fmt.Errorf("start resend cooldown: %w", cerr)
		}
	case errors.Is(err, gotrue.ErrUserAlreadyExists):
		f.status = StatusFailed
		f.reason = MsgAlreadyRegistered
	default:
		f.status = StatusFailed
		f.reason = errorReason(err, MsgSignupFailed)
	}

	return f.snapshot(ctx), err
}

// CooldownError сообщает, сколько осталось до следующей повторной отправки.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("resend available in %d seconds", cooldown.Seconds(e.Remaining))
}

// Unwrap позволяет сравнивать ошибку с ErrCooldownActive.
func (e *CooldownError) Unwrap() error {
	return ErrCooldownActive
}

// Resend повторно отправляет письмо подтверждения. Пока действует пауза, запрос
// отклоняется без обращения к сервису. Пауза начинается до сетевого вызова и
// не снимается при его ошибке.
func (f *Flow) Resend(ctx context.Context) (State, error) {
	f.mu.Lock()
	if f.status != StatusAwaitingVerification || f.email == "" {
		st := f.snapshot(ctx)
		f.mu.Unlock()
		return st, ErrNotAwaitingVerification
	}
	email := f.email
	f.mu.Unlock()

	remaining, ok, err := f.cooldowns.Acquire(ctx, cooldownKey(email), ResendCooldown)
	if err != nil {
		return f.State(ctx), fmt.Errorf("acquire resend cooldown: %w", err)
	}
	if !ok {
		return f.State(ctx), &CooldownError{Remaining: remaining}
	}

	err = f.client.Resend(ctx, email, gotrue.OTPSignup)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.message = errorReason(err, MsgResendFailed)
		return f.snapshot(ctx), err
	}
	f.message = MsgResent
	return f.snapshot(ctx), nil
}

// Close сбрасывает сценарий в Idle и увеличивает счётчик поколений формы.
func (f *Flow) Close(ctx context.Context) State {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.status = StatusIdle
	f.email = ""
	f.reason = ""
	f.message = ""
	f.generation++
	return f.snapshot(ctx)
}

func cooldownKey(email string) string {
	return "resend:" + email
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func errorReason(err error, fallback string) string {
	var apiErr *gotrue.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}
