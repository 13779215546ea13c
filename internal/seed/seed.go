package seed

import (
	"context"
	"errors"
	"fmt"

	"device-fleet-manager/internal/config"
	domainAccount "device-fleet-manager/internal/domain/account"
	domainRole "device-fleet-manager/internal/domain/role"
	"device-fleet-manager/internal/logger"
	"device-fleet-manager/internal/usecase/account"
	"device-fleet-manager/internal/usecase/role"
	appErrors "device-fleet-manager/pkg/errors"
	"device-fleet-manager/pkg/utils"

	"go.uber.org/zap"
)

// Run creates the default roles and, when configured, the first superuser.
// It is safe to run on every start.
func Run(ctx context.Context, roles *role.Service, roleRepo domainRole.Repository, accountRepo domainAccount.Repository, cfg config.SeedConfig) error {
	if err := roles.EnsureDefaults(ctx); err != nil {
		return fmt.Errorf("failed to seed default roles: %w", err)
	}

	if cfg.FirstSuperuserEmail == "" {
		return nil
	}
	return ensureSuperuser(ctx, roleRepo, accountRepo, cfg)
}

func ensureSuperuser(ctx context.Context, roleRepo domainRole.Repository, accountRepo domainAccount.Repository, cfg config.SeedConfig) error {
	email := utils.SanitizeEmail(cfg.FirstSuperuserEmail)
	if _, err := accountRepo.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, domainAccount.ErrAccountNotFound) {
		return err
	}

	superRole, err := roleRepo.GetByName(ctx, domainRole.Superuser)
	if err != nil {
		return fmt.Errorf("failed to load superuser role: %w", err)
	}

	req := &account.CreateAccountRequest{
		FirstName: cfg.FirstSuperuserFirstName,
		LastName:  cfg.FirstSuperuserLastName,
		Email:     email,
		Phone:     cfg.FirstSuperuserPhone,
		LasrraID:  cfg.FirstSuperuserLasrraID,
		Address:   cfg.FirstSuperuserAddress,
		Password:  cfg.FirstSuperuserPassword,
	}
	if err := utils.ValidateStruct(req); err != nil {
		return appErrors.NewValidationError(err)
	}

	superuser, err := account.BuildAccount(req, superRole.ID, nil, nil)
	if err != nil {
		return err
	}
	if err := account.CheckUnique(ctx, accountRepo, superuser.Email, superuser.LasrraID, superuser.Phone); err != nil {
		return err
	}
	superuser.IsActive = true

	if err := accountRepo.Create(ctx, superuser); err != nil {
		return err
	}

	logger.Info("First superuser created",
		zap.String("user_id", superuser.ID.String()),
		logger.Event("superuser_seeded"),
	)
	return nil
}
