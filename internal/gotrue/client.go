// Package gotrue предоставляет клиент для внешнего сервиса аутентификации (GoTrue API).
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/edelweiss-storefront/internal/model"
)

var (
	// ErrEmailNotConfirmed возвращается при входе с неподтверждённым email.
	ErrEmailNotConfirmed = errors.New("email not confirmed")
	// ErrUserAlreadyExists возвращается при повторной регистрации email.
	ErrUserAlreadyExists = errors.New("user already registered")
	// ErrInvalidCredentials возвращается при неверной паре email/пароль.
	ErrInvalidCredentials = errors.New("invalid login credentials")
)

// OTPType описывает назначение одноразового кода.
type OTPType string

const (
	OTPSignup   OTPType = "signup"
	OTPRecovery OTPType = "recovery"
)

// APIError описывает ошибку, возвращённую сервисом аутентификации.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("auth service status %d", e.Status)
}

// Is сопоставляет ошибку сервиса с классами ошибок аутентификации.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrEmailNotConfirmed:
		return e.Code == "email_not_confirmed" || strings.EqualFold(e.Message, "Email not confirmed")
	case ErrUserAlreadyExists:
		return e.Code == "user_already_exists" || e.Code == "email_exists" ||
			strings.Contains(strings.ToLower(e.Message), "already registered")
	case ErrInvalidCredentials:
		return e.Code == "invalid_credentials" || e.Code == "invalid_grant" ||
			strings.EqualFold(e.Message, "Invalid login credentials")
	}
	return false
}

// Client инкапсулирует HTTP-взаимодействие с сервисом аутентификации.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient создаёт клиент сервиса аутентификации по адресу и публичному ключу API.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// User описывает пользователя сервиса аутентификации.
type User struct {
	ID           uuid.UUID      `json:"id"`
	Email        string         `json:"email"`
	ConfirmedAt  *time.Time     `json:"email_confirmed_at,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// Username возвращает имя пользователя из метаданных регистрации.
func (u *User) Username() string {
	if u == nil || u.UserMetadata == nil {
		return ""
	}
	name, _ := u.UserMetadata["username"].(string)
	return name
}

type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

func (r *sessionResponse) toSession() *model.Session {
	if r == nil || r.AccessToken == "" {
		return nil
	}

	s := &model.Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
	}
	switch {
	case r.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(r.ExpiresAt, 0)
	case r.ExpiresIn > 0:
		s.ExpiresAt = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	if r.User != nil {
		s.UserID = r.User.ID
		s.Email = r.User.Email
	}
	return s
}

// SignUpRequest описывает данные регистрации.
type SignUpRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

// SignUp регистрирует пользователя. Сессия возвращается только при отключённом подтверждении email.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*model.Session, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/signup", "", req, &resp); err != nil {
		return nil, err
	}
	return resp.toSession(), nil
}

// SignInWithPassword выполняет вход по email и паролю.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	body := map[string]string{"email": email, "password": password}

	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", body, &resp); err != nil {
		return nil, err
	}

	s := resp.toSession()
	if s == nil {
		return nil, errors.New("auth service returned no session")
	}
	return s, nil
}

// Resend повторно отправляет письмо с подтверждением.
func (c *Client) Resend(ctx context.Context, email string, typ OTPType) error {
	body := map[string]string{"email": email, "type": string(typ)}
	return c.do(ctx, http.MethodPost, "/resend", "", body, nil)
}

// ResetPasswordForEmail запрашивает код восстановления пароля.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/recover", "", body, nil)
}

// VerifyOTP проверяет одноразовый код и возвращает выданную сессию.
func (c *Client) VerifyOTP(ctx context.Context, email, token string, typ OTPType) (*model.Session, error) {
	body := map[string]string{"email": email, "token": token, "type": string(typ)}

	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/verify", "", body, &resp); err != nil {
		return nil, err
	}
	return resp.toSession(), nil
}

// UpdatePassword меняет пароль пользователя, которому принадлежит accessToken.
func (c *Client) UpdatePassword(ctx context.Context, accessToken, password string) error {
	body := map[string]string{"password": password}
	return c.do(ctx, http.MethodPut, "/user", accessToken, body, nil)
}

// GetUser возвращает пользователя по токену доступа.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SignOut завершает сессию, которой принадлежит accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, in, out any) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("auth client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	endpoint, err := url.JoinPath(base, strings.SplitN(path, "?", 2)[0])
	if err != nil {
		return fmt.Errorf("build url: %w", err)
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		endpoint += path[i:]
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	} else if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		ErrorCode        string `json:"error_code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &payload)

	apiErr := &APIError{Status: resp.StatusCode, Code: payload.ErrorCode}
	if apiErr.Code == "" {
		apiErr.Code = payload.Error
	}

	for _, m := range []string{payload.Msg, payload.Message, payload.ErrorDescription} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	if apiErr.Message == "" && payload.Error != "" {
		apiErr.Message = payload.Error
	}

	return apiErr
}
