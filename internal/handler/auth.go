package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/edelweiss-storefront/internal/authflow"
	"github.com/mmeshcher/edelweiss-storefront/internal/cooldown"
	"github.com/mmeshcher/edelweiss-storefront/internal/middleware"
)

type signupRequest struct {
	FlowID   uuid.UUID `json:"flow_id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
}

type credentialsRequest struct {
	FlowID   uuid.UUID `json:"flow_id"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
}

type flowRequest struct {
	FlowID uuid.UUID `json:"flow_id"`
}

// decodeFlowID читает обязательный идентификатор сценария входа из тела запроса.
func decodeFlowID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req flowRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return uuid.Nil, false
	}
	if req.FlowID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "flow_id is required")
		return uuid.Nil, false
	}
	return req.FlowID, true
}

type emailRequest struct {
	Email string `json:"email"`
}

type loginResponse struct {
	authflow.State
	UserID      string `json:"user_id,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

type flowErrorResponse struct {
	authflow.State
	Error string `json:"error"`
}

// writeFlowError отвечает состоянием сценария вместе с текстом ошибки.
func (h *Handler) writeFlowError(w http.ResponseWriter, st authflow.State, err error, msg string) {
	status := statusFor(err)
	if status == 0 {
		h.logger.Error(msg, zap.Error(err), zap.String("email", st.Email))
		status = http.StatusBadGateway
	}

	var cdErr *authflow.CooldownError
	if errors.As(err, &cdErr) {
		w.Header().Set("Retry-After", strconv.Itoa(cooldown.Seconds(cdErr.Remaining)))
	}

	text := st.Reason
	if text == "" {
		text = err.Error()
	}
	writeJSON(w, status, flowErrorResponse{State: st, Error: text})
}

// Signup регистрирует пользователя и переводит сценарий в ожидание подтверждения email.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	st, err := h.service.Signup(r.Context(), req.FlowID, authflow.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	})
	if err != nil {
		h.writeFlowError(w, st, err, "signup error")
		return
	}

	writeJSON(w, http.StatusAccepted, st)
}

// Login выполняет вход и устанавливает cookie с токеном доступа.
// Неподтверждённый email отвечает 202 с состоянием ожидания подтверждения.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	sess, st, err := h.service.Login(r.Context(), req.FlowID, req.Email, req.Password)
	if err != nil {
		h.writeFlowError(w, st, err, "login error")
		return
	}

	if st.Status == authflow.StatusAwaitingVerification || sess == nil {
		writeJSON(w, http.StatusAccepted, st)
		return
	}

	h.authMiddleware.SetAuthCookie(w, sess.AccessToken, sess.ExpiresAt)
	writeJSON(w, http.StatusOK, loginResponse{
		State:       st,
		UserID:      sess.UserID.String(),
		AccessToken: sess.AccessToken,
		ExpiresAt:   formatTime(sess.ExpiresAt),
	})
}

// Resend повторно отправляет письмо подтверждения с учётом паузы.
func (h *Handler) Resend(w http.ResponseWriter, r *http.Request) {
	flowID, ok := decodeFlowID(w, r)
	if !ok {
		return
	}

	st, err := h.service.Resend(r.Context(), flowID)
	if err != nil {
		h.writeFlowError(w, st, err, "resend error")
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// CloseVerification закрывает окно ожидания подтверждения.
func (h *Handler) CloseVerification(w http.ResponseWriter, r *http.Request) {
	flowID, ok := decodeFlowID(w, r)
	if !ok {
		return
	}

	st, err := h.service.CloseVerification(r.Context(), flowID)
	if err != nil {
		h.writeFlowError(w, st, err, "close verification error")
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// Logout завершает сессию у сервиса аутентификации и удаляет cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	err := h.service.Logout(r.Context(), userID, middleware.GetAccessTokenFromContext(r.Context()))
	h.authMiddleware.ClearAuthCookie(w)
	if err != nil {
		h.logger.Warn("sign out error", zap.Error(err), zap.String("userID", userID.String()))
	}

	w.WriteHeader(http.StatusNoContent)
}

type recoveryCodeRequest struct {
	Code string `json:"code"`
}

type recoveryPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type resetErrorResponse struct {
	authflow.ResetState
	Error string `json:"error"`
}

func (h *Handler) writeResetError(w http.ResponseWriter, st authflow.ResetState, err error, msg string) {
	status := statusFor(err)
	if status == 0 {
		h.logger.Error(msg, zap.Error(err), zap.String("flowID", st.FlowID.String()))
		status = http.StatusBadGateway
	}

	text := st.Error
	if text == "" {
		text = err.Error()
	}
	writeJSON(w, status, resetErrorResponse{ResetState: st, Error: text})
}

// StartRecovery создаёт сценарий восстановления пароля и отправляет код на email.
func (h *Handler) StartRecovery(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	st, err := h.service.StartRecovery(r.Context(), req.Email)
	if err != nil {
		h.writeResetError(w, st, err, "start recovery error")
		return
	}

	writeJSON(w, http.StatusCreated, st)
}

// SubmitRecoveryCode проверяет код из письма.
func (h *Handler) SubmitRecoveryCode(w http.ResponseWriter, r *http.Request) {
	flowID, ok := parseUUID(w, chi.URLParam(r, "flowID"))
	if !ok {
		return
	}

	var req recoveryCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	st, err := h.service.SubmitRecoveryCode(r.Context(), flowID, req.Code)
	if err != nil {
		h.writeResetError(w, st, err, "recovery code error")
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// SubmitRecoveryPassword устанавливает новый пароль и завершает сценарий.
func (h *Handler) SubmitRecoveryPassword(w http.ResponseWriter, r *http.Request) {
	flowID, ok := parseUUID(w, chi.URLParam(r, "flowID"))
	if !ok {
		return
	}

	var req recoveryPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	st, err := h.service.SubmitRecoveryPassword(r.Context(), flowID, req.Password, req.ConfirmPassword)
	if err != nil {
		h.writeResetError(w, st, err, "recovery password error")
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// RecoveryBack возвращает сценарий к вводу email.
func (h *Handler) RecoveryBack(w http.ResponseWriter, r *http.Request) {
	flowID, ok := parseUUID(w, chi.URLParam(r, "flowID"))
	if !ok {
		return
	}

	st, err := h.service.RecoveryBack(flowID)
	if err != nil {
		h.fail(w, err, "recovery back error")
		return
	}

	writeJSON(w, http.StatusOK, st)
}
