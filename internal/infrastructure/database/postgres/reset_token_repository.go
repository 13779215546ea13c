package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainAccount "device-fleet-manager/internal/domain/account"
	"device-fleet-manager/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ResetTokenRepository struct {
	db *DB
}

func NewResetTokenRepository(db *DB) domainAccount.ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

func (r *ResetTokenRepository) Create(ctx context.Context, t *domainAccount.PasswordResetToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()

	m := &models.PasswordResetTokenModel{
		ID:        t.ID,
		AccountID: t.AccountID,
		Token:     t.Token,
		ExpiresAt: t.ExpiresAt,
		UsedAt:    t.UsedAt,
		CreatedAt: t.CreatedAt,
	}
	if err := r.db.DB.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}
	return nil
}

func (r *ResetTokenRepository) GetByToken(ctx context.Context, token string) (*domainAccount.PasswordResetToken, error) {
	var m models.PasswordResetTokenModel
	err := r.db.DB.WithContext(ctx).Where("token = ?", token).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainAccount.ErrResetTokenUnknown
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}

	return &domainAccount.PasswordResetToken{
		ID:        m.ID,
		AccountID: m.AccountID,
		Token:     m.Token,
		ExpiresAt: m.ExpiresAt,
		UsedAt:    m.UsedAt,
		CreatedAt: m.CreatedAt,
	}, nil
}

func (r *ResetTokenRepository) Redeem(ctx context.Context, tokenID, accountID uuid.UUID, passwordHash string, now time.Time) error {
	return r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.PasswordResetTokenModel{}).
			Where("id = ? AND used_at IS NULL", tokenID).
			Update("used_at", now)
		if result.Error != nil {
			return fmt.Errorf("failed to mark reset token used: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domainAccount.ErrResetTokenUsed
		}

		result = tx.Model(&models.AccountModel{}).
			Where("id = ?", accountID).
			Updates(map[string]interface{}{
				"password_hashed": passwordHash,
				"updated_at":      now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update password: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domainAccount.ErrAccountNotFound
		}
		return nil
	})
}

// DeleteStale removes tokens that expired or were used before the cutoff.
func (r *ResetTokenRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.DB.WithContext(ctx).
		Where("expires_at < ? OR (used_at IS NOT NULL AND used_at < ?)", before, before).
		Delete(&models.PasswordResetTokenModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete stale reset tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}
