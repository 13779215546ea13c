package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainAPIKey "device-fleet-manager/internal/domain/apikey"
	"device-fleet-manager/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type APIKeyRepository struct {
	db *DB
}

func NewAPIKeyRepository(db *DB) domainAPIKey.Repository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) Create(ctx context.Context, k *domainAPIKey.APIKey) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	k.CreatedAt = time.Now()

	m := &models.APIKeyModel{
		ID:         k.ID,
		Name:       k.Name,
		KeyPrefix:  k.KeyPrefix,
		HashedKey:  k.HashedKey,
		IsActive:   k.IsActive,
		AccountID:  k.AccountID,
		LastUsedAt: k.LastUsedAt,
		CreatedAt:  k.CreatedAt,
	}
	if err := r.db.DB.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

func (r *APIKeyRepository) GetByID(ctx context.Context, keyID uuid.UUID) (*domainAPIKey.APIKey, error) {
	return r.getOne(ctx, "id = ?", keyID)
}

func (r *APIKeyRepository) GetByPrefix(ctx context.Context, prefix string) (*domainAPIKey.APIKey, error) {
	return r.getOne(ctx, "key_prefix = ?", prefix)
}

func (r *APIKeyRepository) getOne(ctx context.Context, query string, arg interface{}) (*domainAPIKey.APIKey, error) {
	var m models.APIKeyModel
	err := r.db.DB.WithContext(ctx).Where(query, arg).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainAPIKey.ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return toAPIKeyEntity(&m), nil
}

func (r *APIKeyRepository) List(ctx context.Context) ([]*domainAPIKey.APIKey, error) {
	return r.list(r.db.DB.WithContext(ctx))
}

func (r *APIKeyRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*domainAPIKey.APIKey, error) {
	return r.list(r.db.DB.WithContext(ctx).Where("account_id = ?", accountID))
}

func (r *APIKeyRepository) list(q *gorm.DB) ([]*domainAPIKey.APIKey, error) {
	var rows []models.APIKeyModel
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}

	keys := make([]*domainAPIKey.APIKey, len(rows))
	for i := range rows {
		keys[i] = toAPIKeyEntity(&rows[i])
	}
	return keys, nil
}

func (r *APIKeyRepository) Deactivate(ctx context.Context, keyID uuid.UUID) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.APIKeyModel{}).
		Where("id = ?", keyID).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate api key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainAPIKey.ErrAPIKeyNotFound
	}
	return nil
}

func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, keyID uuid.UUID, at time.Time) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.APIKeyModel{}).
		Where("id = ?", keyID).
		Update("last_used_at", at).Error
}

func toAPIKeyEntity(m *models.APIKeyModel) *domainAPIKey.APIKey {
	return &domainAPIKey.APIKey{
		ID:         m.ID,
		Name:       m.Name,
		KeyPrefix:  m.KeyPrefix,
		HashedKey:  m.HashedKey,
		IsActive:   m.IsActive,
		AccountID:  m.AccountID,
		LastUsedAt: m.LastUsedAt,
		CreatedAt:  m.CreatedAt,
	}
}
