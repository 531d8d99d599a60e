package auth

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/internal/domain/user"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/auth"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

// SessionOpener starts the editing session for a signed-in identity.
type SessionOpener interface {
	OpenSession(ctx context.Context, identity *user.Identity) (string, error)
}

// SessionCloser ends a session by id.
type SessionCloser interface {
	Close(ctx context.Context, sessionID string) error
}

type LoginUseCase struct {
	userRepo user.Repository
	jwtSvc   *auth.JWTService
	sessions SessionOpener
	logger   logger.Logger
}

func NewLoginUseCase(repo user.Repository, jwtSvc *auth.JWTService, sessions SessionOpener, log logger.Logger) *LoginUseCase {
	return &LoginUseCase{
		userRepo: repo,
		jwtSvc:   jwtSvc,
		sessions: sessions,
		logger:   log,
	}
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginOutput struct {
	AccessToken string
	SessionID   string
}

var tracer = otel.Tracer("auth_usecase")

func (uc *LoginUseCase) Execute(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	ctx, span := tracer.Start(ctx, "Execute")
	defer span.End()

	u, err := uc.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, apperror.NewUnauthorized("unknown email", nil)
		}
		return nil, err
	}

	if !auth.CheckPasswordHash(input.Password, u.PasswordHash) {
		err := apperror.NewUnauthorized("incorrect password", nil)
		span.RecordError(err)
		return nil, err
	}

	sessionID, err := uc.sessions.OpenSession(ctx, user.NewIdentity(u))
	if err != nil {
		uc.logger.Error("Failed to open session", err, zap.String("user_id", u.ID.String()))
		span.RecordError(err)
		return nil, err
	}

	token, err := uc.jwtSvc.GenerateToken(u.ID, u.Email, sessionID)
	if err != nil {
		uc.logger.Error("Failed to generate token", err, zap.String("user_id", u.ID.String()))
		err = apperror.NewInternal("failed to generate token", err)
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("user_id", u.ID.String()), attribute.String("session_id", sessionID))
	uc.logger.Info("User signed in", zap.String("user_id", u.ID.String()), zap.String("session_id", sessionID))
	return &LoginOutput{AccessToken: token, SessionID: sessionID}, nil
}

type LogoutUseCase struct {
	sessions SessionCloser
	logger   logger.Logger
}

func NewLogoutUseCase(sessions SessionCloser, log logger.Logger) *LogoutUseCase {
	return &LogoutUseCase{sessions: sessions, logger: log}
}

// Execute signs the session out. Local profile state is cleared before it returns.
func (uc *LogoutUseCase) Execute(ctx context.Context, sessionID string) error {
	ctx, span := tracer.Start(ctx, "Logout")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID))

	if err := uc.sessions.Close(ctx, sessionID); err != nil {
		uc.logger.Warn("Session closed with errors", zap.String("session_id", sessionID), zap.Error(err))
		span.RecordError(err)
		return err
	}
	return nil
}
