package gotrue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSignInWithPassword_OK(t *testing.T) {
	userID := uuid.New()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/auth/v1/token" {
			t.Fatalf("path = %s, want /auth/v1/token", r.URL.Path)
		}
		if r.URL.Query().Get("grant_type") != "password" {
			t.Fatalf("grant_type = %q, want password", r.URL.Query().Get("grant_type"))
		}
		if r.Header.Get("apikey") != "anon-key" {
			t.Fatalf("apikey header = %q", r.Header.Get("apikey"))
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["email"] != "buyer@edelweiss.ph" || body["password"] != "S3cure!pass" {
			t.Fatalf("unexpected body: %v", body)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access",
			"refresh_token": "refresh",
			"expires_at":    time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC).Unix(),
			"user":          map[string]any{"id": userID.String(), "email": "buyer@edelweiss.ph"},
		})
	}))
	defer ts.Close()

	client := NewClient(ts.URL+"/auth/v1/", "anon-key")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sess, err := client.SignInWithPassword(ctx, "buyer@edelweiss.ph", "S3cure!pass")
	if err != nil {
		t.Fatalf("SignInWithPassword error: %v", err)
	}
	if sess.AccessToken != "access" || sess.RefreshToken != "refresh" {
		t.Fatalf("unexpected tokens: %+v", sess)
	}
	if sess.UserID != userID {
		t.Fatalf("user id = %s, want %s", sess.UserID, userID)
	}
	if sess.ExpiresAt.Year() != 2026 {
		t.Fatalf("unexpected expiry: %v", sess.ExpiresAt)
	}
}

func TestSignInWithPassword_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]any
		target error
	}{
		{
			name:   "email not confirmed",
			status: http.StatusBadRequest,
			body:   map[string]any{"code": 400, "error_code": "email_not_confirmed", "msg": "Email not confirmed"},
			target: ErrEmailNotConfirmed,
		},
		{
			name:   "invalid credentials",
			status: http.StatusBadRequest,
			body:   map[string]any{"code": 400, "error_code": "invalid_credentials", "msg": "Invalid login credentials"},
			target: ErrInvalidCredentials,
		},
		{
			name:   "legacy invalid grant",
			status: http.StatusBadRequest,
			body:   map[string]any{"error": "invalid_grant", "error_description": "Invalid login credentials"},
			target: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(tt.body)
			}))
			defer ts.Close()

			client := NewClient(ts.URL, "")
			_, err := client.SignInWithPassword(context.Background(), "a@b.co", "password1")
			if !errors.Is(err, tt.target) {
				t.Fatalf("err = %v, want %v", err, tt.target)
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Status != tt.status {
				t.Fatalf("expected APIError with status %d, got %v", tt.status, err)
			}
		})
	}
}

func TestSignUp_AlreadyRegistered(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body SignUpRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Data["username"] != "ana" {
			t.Fatalf("metadata = %v, want username ana", body.Data)
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":422,"error_code":"user_already_exists","msg":"User already registered"}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "anon")
	_, err := client.SignUp(context.Background(), SignUpRequest{
		Email:    "ana@edelweiss.ph",
		Password: "S3cure!pass",
		Data:     map[string]any{"username": "ana"},
	})
	if !errors.Is(err, ErrUserAlreadyExists) {
		t.Fatalf("err = %v, want ErrUserAlreadyExists", err)
	}
	if err.Error() != "User already registered" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestSignUp_AwaitingConfirmationHasNoSession(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"` + uuid.NewString() + `","email":"ana@edelweiss.ph"}`))
	}))
	defer ts.Close()

	sess, err := NewClient(ts.URL, "anon").SignUp(context.Background(), SignUpRequest{Email: "ana@edelweiss.ph", Password: "x"})
	if err != nil {
		t.Fatalf("SignUp error: %v", err)
	}
	if sess != nil {
		t.Fatalf("expected nil session, got %+v", sess)
	}
}

func TestVerifyOTPAndUpdatePassword(t *testing.T) {
	var gotAuth string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/verify":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["type"] != "recovery" || body["token"] != "AB12cd34" {
				t.Fatalf("unexpected verify body: %v", body)
			}
			_, _ = w.Write([]byte(`{"access_token":"recovery-token","expires_in":3600,"user":{"id":"` + uuid.NewString() + `"}}`))
		case "/user":
			if r.Method != http.MethodPut {
				t.Fatalf("method = %s, want PUT", r.Method)
			}
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{}`))
		case "/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "anon")
	ctx := context.Background()

	sess, err := client.VerifyOTP(ctx, "ana@edelweiss.ph", "AB12cd34", OTPRecovery)
	if err != nil {
		t.Fatalf("VerifyOTP error: %v", err)
	}
	if sess == nil || sess.AccessToken != "recovery-token" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	if err := client.UpdatePassword(ctx, sess.AccessToken, "N3w!password"); err != nil {
		t.Fatalf("UpdatePassword error: %v", err)
	}
	if gotAuth != "Bearer recovery-token" {
		t.Fatalf("Authorization = %q", gotAuth)
	}

	if err := client.SignOut(ctx, sess.AccessToken); err != nil {
		t.Fatalf("SignOut error: %v", err)
	}
}

func TestGetUser_Username(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"` + uuid.NewString() + `","email":"ana@edelweiss.ph","user_metadata":{"username":"ana"}}`))
	}))
	defer ts.Close()

	u, err := NewClient(ts.URL, "anon").GetUser(context.Background(), "tok")
	if err != nil {
		t.Fatalf("GetUser error: %v", err)
	}
	if u.Username() != "ana" {
		t.Fatalf("username = %q, want ana", u.Username())
	}
}

func TestClient_NotConfigured(t *testing.T) {
	var c *Client
	if err := c.Resend(context.Background(), "a@b.co", OTPSignup); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
