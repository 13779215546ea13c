package account

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	domainAccount "device-fleet-manager/internal/domain/account"
	domainEmail "device-fleet-manager/internal/domain/email"
	"device-fleet-manager/internal/logger"
	"device-fleet-manager/internal/permission"
	appErrors "device-fleet-manager/pkg/errors"
	"device-fleet-manager/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewValidationError(err)
	}

	email := utils.SanitizeEmail(req.Email)
	account, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainAccount.ErrAccountNotFound) {
			logger.Warn("Login attempt with non-existent email",
				zap.String("email", email),
				logger.Event("login_failed_unknown_email"),
			)
			return nil, appErrors.ErrIncorrectLogin
		}
		return nil, err
	}

	if !utils.CheckPassword(account.PasswordHashed, req.Password) {
		logger.Warn("Login attempt with invalid password",
			zap.String("user_id", account.ID.String()),
			logger.Event("login_failed_invalid_password"),
		)
		return nil, appErrors.ErrIncorrectLogin
	}

	if !permission.LoginRoles.Contains(account.RoleName()) {
		logger.Warn("Login attempt with a role that can not sign in",
			zap.String("user_id", account.ID.String()),
			zap.String("role", account.RoleName()),
			logger.Event("login_failed_role"),
		)
		return nil, appErrors.ErrForbidden
	}

	if !account.IsActive {
		logger.Warn("Login attempt for inactive user",
			zap.String("user_id", account.ID.String()),
			logger.Event("login_failed_inactive_user"),
		)
		return nil, appErrors.ErrDisallowedLogin
	}

	token, expiresAt, err := utils.GenerateToken(account.ID, s.config.JWT.Secret, s.config.JWT.Expiry())
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	resp := &LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      ToAccountResponse(account),
		AgentID:   account.AgentID,
	}
	if account.AgentID != nil {
		agent, err := s.agentRepo.GetByID(ctx, *account.AgentID)
		if err == nil {
			resp.AgentName = agent.Name
		}
	}

	logger.Info("User logged in successfully",
		zap.String("user_id", account.ID.String()),
		zap.String("role", account.RoleName()),
		logger.Event("login_success"),
	)

	return resp, nil
}

// Authenticate resolves a bearer token to the account it was issued for.
func (s *Service) Authenticate(ctx context.Context, token string) (*domainAccount.Account, error) {
	claims, err := utils.ValidateToken(token, s.config.JWT.Secret)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeInvalidToken, appErrors.ErrInvalidToken.Message, err)
	}

	account, err := s.accountRepo.GetByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, domainAccount.ErrAccountNotFound) {
			return nil, appErrors.ErrAuthenticationRequired
		}
		return nil, err
	}
	return account, nil
}

// RequestPasswordReset emails a one-time reset link. Unknown emails succeed
// silently.
func (s *Service) RequestPasswordReset(ctx context.Context, req *ForgotPasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return appErrors.NewValidationError(err)
	}

	email := utils.SanitizeEmail(req.Email)
	account, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainAccount.ErrAccountNotFound) {
			logger.Info("Password reset requested for non-existent email",
				zap.String("email", email),
				logger.Event("password_reset_requested_unknown_email"),
			)
			return nil
		}
		return fmt.Errorf("failed to retrieve user: %w", err)
	}

	plain, err := utils.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	ttl := s.config.Email.ResetTokenExpiry()
	resetToken := &domainAccount.PasswordResetToken{
		AccountID: account.ID,
		Token:     plain,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := s.resetTokenRepo.Create(ctx, resetToken); err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	validFor := int(ttl.Hours())
	if validFor < 1 {
		validFor = 1
	}
	s.notifier.SendEmail(domainEmail.TemplateResetPassword, map[string]interface{}{
		"name":       account.FullName(),
		"reset_link": resetLink(s.config.Email.ResetPasswordURL, plain),
		"valid_for":  validFor,
	}, account.Email)

	logger.Info("Password reset token generated",
		zap.String("user_id", account.ID.String()),
		zap.String("token_id", resetToken.ID.String()),
		zap.Time("expires_at", resetToken.ExpiresAt),
		logger.Event("password_reset_token_generated"),
	)

	return nil
}

func resetLink(base, token string) string {
	return base + "?k=" + url.QueryEscape(token)
}

// ConfirmPasswordReset redeems a token. Unknown, expired and used tokens are
// told apart in logs but look the same to the client.
func (s *Service) ConfirmPasswordReset(ctx context.Context, req *ResetPasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return appErrors.NewValidationError(err)
	}
	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		return appErrors.NewValidationError(err)
	}

	now := time.Now()
	resetToken, err := s.resetTokenRepo.GetByToken(ctx, req.Token)
	if err != nil {
		s.logResetFailure(uuid.Nil, err)
		return err
	}
	if resetToken.IsUsed() {
		s.logResetFailure(resetToken.ID, domainAccount.ErrResetTokenUsed)
		return domainAccount.ErrResetTokenUsed
	}
	if resetToken.IsExpired(now) {
		s.logResetFailure(resetToken.ID, domainAccount.ErrResetTokenExpired)
		return domainAccount.ErrResetTokenExpired
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.resetTokenRepo.Redeem(ctx, resetToken.ID, resetToken.AccountID, hash, now); err != nil {
		if errors.Is(err, domainAccount.ErrResetTokenUsed) {
			s.logResetFailure(resetToken.ID, err)
		}
		return err
	}

	logger.Info("Password reset successfully",
		zap.String("user_id", resetToken.AccountID.String()),
		zap.String("token_id", resetToken.ID.String()),
		logger.Event("password_reset_success"),
	)
	return nil
}

func (s *Service) logResetFailure(tokenID uuid.UUID, err error) {
	reason := err
	if inner := errors.Unwrap(err); inner != nil {
		reason = inner
	}
	logger.Warn("Password reset attempt rejected",
		zap.String("token_id", tokenID.String()),
		zap.String("reason", reason.Error()),
		logger.Event("password_reset_failed"),
	)
}
