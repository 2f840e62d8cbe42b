package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/edelweiss-storefront/internal/authflow"
	"github.com/mmeshcher/edelweiss-storefront/internal/model"
	"github.com/mmeshcher/edelweiss-storefront/internal/repository"
	"github.com/mmeshcher/edelweiss-storefront/internal/session"
)

// Signup регистрирует пользователя и переводит сценарий в ожидание подтверждения.
// Нулевой или устаревший flowID начинает новый сценарий; его идентификатор
// возвращается в состоянии.
func (s *Service) Signup(ctx context.Context, flowID uuid.UUID, in authflow.SignupInput) (authflow.State, error) {
	return s.flows.FlowOrStart(flowID).Signup(ctx, in)
}

// Login выполняет вход. При успехе сессия публикуется в реестре сессий,
// а для нового пользователя создаётся профиль покупателя.
func (s *Service) Login(ctx context.Context, flowID uuid.UUID, email, password string) (*model.Session, authflow.State, error) {
	sess, st, err := s.flows.FlowOrStart(flowID).Login(ctx, email, password)
	if err != nil || sess == nil {
		return nil, st, err
	}

	s.ensureProfile(ctx, sess)
	s.sessions.Publish(session.EventSignedIn, sess.UserID, sess)
	return sess, st, nil
}

func (s *Service) ensureProfile(ctx context.Context, sess *model.Session) {
	_, err := s.repo.GetProfile(ctx, sess.UserID)
	if err == nil {
		return
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("load profile on login", zap.String("user_id", sess.UserID.String()), zap.Error(err))
		return
	}

	p := &model.Profile{ID: sess.UserID, Email: sess.Email, Role: model.RoleCustomer}
	if err := s.repo.UpsertProfile(ctx, p); err != nil {
		s.logger.Warn("create profile on login", zap.String("user_id", sess.UserID.String()), zap.Error(err))
	}
}

// Resend повторно отправляет письмо подтверждения в сценарии flowID.
func (s *Service) Resend(ctx context.Context, flowID uuid.UUID) (authflow.State, error) {
	flow, err := s.flows.Flow(flowID)
	if err != nil {
		return authflow.State{FlowID: flowID, Status: authflow.StatusIdle}, err
	}
	return flow.Resend(ctx)
}

// CloseVerification закрывает экран ожидания подтверждения и сбрасывает форму сценария.
func (s *Service) CloseVerification(ctx context.Context, flowID uuid.UUID) (authflow.State, error) {
	flow, err := s.flows.Flow(flowID)
	if err != nil {
		return authflow.State{FlowID: flowID, Status: authflow.StatusIdle}, err
	}
	return flow.Close(ctx), nil
}

// Logout завершает сессию в сервисе аутентификации. Сессия удаляется из реестра
// даже при ошибке сервиса.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID, accessToken string) error {
	err := s.auth.SignOut(ctx, accessToken)
	s.sessions.Publish(session.EventSignedOut, userID, nil)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// StartRecovery создаёт сценарий восстановления пароля и запрашивает код для email.
func (s *Service) StartRecovery(ctx context.Context, email string) (authflow.ResetState, error) {
	return s.flows.StartReset().SubmitEmail(ctx, email)
}

// SubmitRecoveryCode проверяет код восстановления.
func (s *Service) SubmitRecoveryCode(ctx context.Context, flowID uuid.UUID, code string) (authflow.ResetState, error) {
	p, err := s.flows.Reset(flowID)
	if err != nil {
		return authflow.ResetState{FlowID: flowID}, err
	}
	return p.SubmitCode(ctx, code)
}

// SubmitRecoveryPassword устанавливает новый пароль и завершает сценарий восстановления.
func (s *Service) SubmitRecoveryPassword(ctx context.Context, flowID uuid.UUID, password, confirm string) (authflow.ResetState, error) {
	p, err := s.flows.Reset(flowID)
	if err != nil {
		return authflow.ResetState{FlowID: flowID}, err
	}

	st, recovery, err := p.SubmitNewPassword(ctx, password, confirm)
	if err != nil {
		return st, err
	}

	s.flows.FinishReset(flowID)
	if recovery != nil {
		s.sessions.Publish(session.EventSignedOut, recovery.UserID, nil)
	}
	return st, nil
}

// RecoveryBack возвращает сценарий восстановления к вводу email.
func (s *Service) RecoveryBack(flowID uuid.UUID) (authflow.ResetState, error) {
	p, err := s.flows.Reset(flowID)
	if err != nil {
		return authflow.ResetState{FlowID: flowID}, err
	}
	return p.Back(), nil
}
