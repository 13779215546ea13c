package account

import (
	"context"
	"errors"

	domainAccount "device-fleet-manager/internal/domain/account"
	appErrors "device-fleet-manager/pkg/errors"
	"device-fleet-manager/pkg/utils"

	"github.com/google/uuid"
)

// CheckUnique fails on the first of email, lasrra id and phone that another
// account already holds.
func CheckUnique(ctx context.Context, repo domainAccount.Repository, email, lasrraID, phone string) error {
	checks := []struct {
		field  string
		value  string
		lookup func(context.Context, string) (*domainAccount.Account, error)
	}{
		{"email", email, repo.GetByEmail},
		{"lasrra_id", lasrraID, repo.GetByLasrraID},
		{"phone", phone, repo.GetByPhone},
	}

	for _, c := range checks {
		_, err := c.lookup(ctx, c.value)
		if err == nil {
			return domainAccount.ErrAccountAlreadyExists.WithDetail("user with %s %s already exists", c.field, c.value)
		}
		if !errors.Is(err, domainAccount.ErrAccountNotFound) {
			return err
		}
	}
	return nil
}

// BuildAccount sanitizes req and hashes its password. The account starts
// inactive.
func BuildAccount(req *CreateAccountRequest, roleID uuid.UUID, agentID, creatorID *uuid.UUID) (*domainAccount.Account, error) {
	if err := utils.ValidatePassword(req.Password); err != nil {
		return nil, appErrors.NewValidationError(err)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeServer, "Failed to hash password", err)
	}

	return &domainAccount.Account{
		FirstName:      utils.SanitizeString(req.FirstName),
		LastName:       utils.SanitizeString(req.LastName),
		Email:          utils.SanitizeEmail(req.Email),
		Phone:          utils.SanitizePhone(req.Phone),
		LasrraID:       utils.SanitizeIdentifier(req.LasrraID),
		Address:        utils.SanitizeString(req.Address),
		PasswordHashed: hash,
		IsActive:       false,
		RoleID:         roleID,
		AgentID:        agentID,
		CreatedByID:    creatorID,
	}, nil
}

// checkProfileUnique rejects an email or phone held by someone else.
func checkProfileUnique(ctx context.Context, repo domainAccount.Repository, self uuid.UUID, email, phone *string) error {
	if email != nil {
		existing, err := repo.GetByEmail(ctx, *email)
		if err == nil && existing.ID != self {
			return domainAccount.ErrAccountAlreadyExists.WithDetail("user with email %s already exists", *email)
		}
		if err != nil && !errors.Is(err, domainAccount.ErrAccountNotFound) {
			return err
		}
	}
	if phone != nil {
		existing, err := repo.GetByPhone(ctx, *phone)
		if err == nil && existing.ID != self {
			return domainAccount.ErrAccountAlreadyExists.WithDetail("user with phone %s already exists", *phone)
		}
		if err != nil && !errors.Is(err, domainAccount.ErrAccountNotFound) {
			return err
		}
	}
	return nil
}
