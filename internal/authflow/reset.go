package authflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"

	"github.com/mmeshcher/edelweiss-storefront/internal/gotrue"
	"github.com/mmeshcher/edelweiss-storefront/internal/model"
	"github.com/mmeshcher/edelweiss-storefront/internal/validation"
)

// RecoveryCodeLength задаёт длину кода восстановления из письма.
const RecoveryCodeLength = 8

const (
	MsgCodeSent         = "Check your email for the recovery code."
	MsgCodeLength       = "Enter the 8-character code from your email."
	MsgPasswordMismatch = "Passwords do not match."
	MsgResetSuccessful  = "Password reset successful!"
	MsgResetFailed      = "Password reset failed"
)

var (
	// ErrWrongStep возвращается при вызове шага, не соответствующего текущему состоянию.
	ErrWrongStep = errors.New("operation not allowed at current step")
	// ErrInvalidCode возвращается, если код восстановления не содержит 8 символов.
	ErrInvalidCode = errors.New("invalid recovery code")
	// ErrPasswordMismatch возвращается, если пароль и подтверждение различаются.
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// Step описывает шаг восстановления пароля.
type Step string

const (
	StepEmail       Step = "email"
	StepCode        Step = "code"
	StepNewPassword Step = "new_password"
	StepCompleted   Step = "completed"
)

// ResetState описывает снимок сценария восстановления пароля.
type ResetState struct {
	FlowID  uuid.UUID `json:"flow_id"`
	Step    Step      `json:"step"`
	Email   string    `json:"email,omitempty"`
	Error   string    `json:"error,omitempty"`
	Message string    `json:"message,omitempty"`
}

// PasswordReset ведёт сценарий восстановления пароля: email, код, новый пароль.
type PasswordReset struct {
	id     uuid.UUID
	client AuthClient

	mu       sync.Mutex
	busy     bool
	step     Step
	email    string
	errMsg   string
	message  string
	recovery *model.Session
}

// NewPasswordReset создаёт сценарий на шаге ввода email.
func NewPasswordReset(id uuid.UUID, client AuthClient) *PasswordReset {
	return &PasswordReset{
		id:     id,
		client: client,
		step:   StepEmail,
	}
}

// ID возвращает идентификатор сценария.
func (p *PasswordReset) ID() uuid.UUID {
	return p.id
}

// State возвращает текущий снимок сценария.
func (p *PasswordReset) State() ResetState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

func (p *PasswordReset) snapshot() ResetState {
	return ResetState{
		FlowID:  p.id,
		Step:    p.step,
		Email:   p.email,
		Error:   p.errMsg,
		Message: p.message,
	}
}

// enter проверяет шаг и помечает сценарий занятым на время сетевого вызова.
func (p *PasswordReset) enter(step Step) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.busy {
		return ErrInProgress
	}
	if p.step != step {
		return fmt.Errorf("%w: at %s", ErrWrongStep, p.step)
	}
	p.busy = true
	p.errMsg = ""
	p.message = ""
	return nil
}

// leave снимает отметку занятости и фиксирует ошибку шага.
func (p *PasswordReset) leave(err error, fallback string) {
	p.busy = false
	if err != nil {
		p.errMsg = errorReason(err, fallback)
	}
}

// SubmitEmail запрашивает код восстановления и переходит к его вводу.
func (p *PasswordReset) SubmitEmail(ctx context.Context, email string) (ResetState, error) {
	email = normalizeEmail(email)
	if err := validation.ValidateField(validation.KindEmail, email); err != nil {
		return p.fail(err)
	}
	if err := p.enter(StepEmail); err != nil {
		return p.State(), err
	}

	err := p.client.ResetPasswordForEmail(ctx, email)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.leave(err, MsgResetFailed)
	if err != nil {
		return p.snapshot(), err
	}

	p.email = email
	p.step = StepCode
	p.message = MsgCodeSent
	return p.snapshot(), nil
}

// SubmitCode проверяет код восстановления. Из ввода удаляются все символы,
// кроме латинских букв и цифр, и остаются первые RecoveryCodeLength из них.
// Более короткий код отклоняется без обращения к сервису.
func (p *PasswordReset) SubmitCode(ctx context.Context, code string) (ResetState, error) {
	code = FilterCode(code)
	if len(code) > RecoveryCodeLength {
		code = code[:RecoveryCodeLength]
	}
	if len(code) != RecoveryCodeLength {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.step != StepCode {
			return p.snapshot(), fmt.Errorf("%w: at %s", ErrWrongStep, p.step)
		}
		p.errMsg = MsgCodeLength
		return p.snapshot(), ErrInvalidCode
	}
	if err := p.enter(StepCode); err != nil {
		return p.State(), err
	}

	p.mu.Lock()
	email := p.email
	p.mu.Unlock()

	sess, err := p.client.VerifyOTP(ctx, email, code, gotrue.OTPRecovery)
	if err == nil && sess == nil {
		err = errors.New("auth service returned no recovery session")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.leave(err, MsgResetFailed)
	if err != nil {
		return p.snapshot(), err
	}

	p.recovery = sess
	p.step = StepNewPassword
	return p.snapshot(), nil
}

// SubmitNewPassword меняет пароль через сессию восстановления и завершает её.
// Несовпадение пароля и подтверждения отклоняется без обращения к сервису.
func (p *PasswordReset) SubmitNewPassword(ctx context.Context, password, confirm string) (ResetState, *model.Session, error) {
	if password != confirm {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.step != StepNewPassword {
			return p.snapshot(), nil, fmt.Errorf("%w: at %s", ErrWrongStep, p.step)
		}
		p.errMsg = MsgPasswordMismatch
		return p.snapshot(), nil, ErrPasswordMismatch
	}
	if err := validation.ValidateField(validation.KindPassword, password); err != nil {
		st, err := p.fail(err)
		return st, nil, err
	}
	if err := p.enter(StepNewPassword); err != nil {
		return p.State(), nil, err
	}

	p.mu.Lock()
	recovery := p.recovery
	p.mu.Unlock()

	err := p.client.UpdatePassword(ctx, recovery.AccessToken, password)
	if err == nil {
		err = p.client.SignOut(ctx, recovery.AccessToken)
		if err != nil {
			err = fmt.Errorf("sign out recovery session: %w", err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.leave(err, MsgResetFailed)
	if err != nil {
		return p.snapshot(), nil, err
	}

	p.step = StepCompleted
	p.message = MsgResetSuccessful
	p.recovery = nil
	return p.snapshot(), recovery, nil
}

// Back возвращает сценарий к вводу email с любого шага.
func (p *PasswordReset) Back() ResetState {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.step = StepEmail
	p.errMsg = ""
	p.message = ""
	p.recovery = nil
	return p.snapshot()
}

func (p *PasswordReset) fail(err error) (ResetState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errMsg = err.Error()
	return p.snapshot(), err
}

// FilterCode оставляет в коде только латинские буквы и цифры.
func FilterCode(code string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return -1
	}, code)
}
