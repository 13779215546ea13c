package apikey

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainAPIKey "device-fleet-manager/internal/domain/apikey"
	"device-fleet-manager/internal/logger"
	"device-fleet-manager/internal/permission"
	appErrors "device-fleet-manager/pkg/errors"
	"device-fleet-manager/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service issues and verifies device-facing API keys.
type Service struct {
	repo  domainAPIKey.Repository
	cache domainAPIKey.VerificationCache
}

// NewService creates a new api key service. cache may be nil.
func NewService(repo domainAPIKey.Repository, cache domainAPIKey.VerificationCache) *Service {
	return &Service{repo: repo, cache: cache}
}

func (s *Service) Create(ctx context.Context, caller *permission.Caller, req *CreateAPIKeyRequest) (*CreateAPIKeyResponse, error) {
	if err := permission.Require(caller, permission.ManagerAndSuperuser); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewValidationError(err)
	}

	plaintext, prefix, secret, err := utils.GenerateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate api key: %w", err)
	}
	hashed, err := utils.HashPassword(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to hash api key: %w", err)
	}

	key := &domainAPIKey.APIKey{
		Name:      utils.SanitizeString(req.Name),
		KeyPrefix: prefix,
		HashedKey: hashed,
		IsActive:  true,
		AccountID: caller.AccountID,
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return nil, err
	}

	logger.Info("API key created",
		zap.String("api_key_id", key.ID.String()),
		zap.String("key_prefix", prefix),
		zap.String("user_id", caller.AccountID.String()),
		logger.Event("api_key_created"),
	)

	return &CreateAPIKeyResponse{
		APIKeyResponse: *ToAPIKeyResponse(key),
		Key:            plaintext,
	}, nil
}

func (s *Service) ListAll(ctx context.Context, caller *permission.Caller) ([]APIKeyResponse, error) {
	if err := permission.Require(caller, permission.SuperuserOnly); err != nil {
		return nil, err
	}

	keys, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return toAPIKeyResponses(keys), nil
}

func (s *Service) ListMine(ctx context.Context, caller *permission.Caller) ([]APIKeyResponse, error) {
	if err := permission.Require(caller, permission.ManagerAndSuperuser); err != nil {
		return nil, err
	}

	keys, err := s.repo.ListByAccount(ctx, caller.AccountID)
	if err != nil {
		return nil, err
	}
	return toAPIKeyResponses(keys), nil
}

// Deactivate revokes a key. Only its owner may do so.
func (s *Service) Deactivate(ctx context.Context, caller *permission.Caller, keyID uuid.UUID) (*APIKeyResponse, error) {
	if err := permission.Require(caller, permission.ManagerAndSuperuser); err != nil {
		return nil, err
	}

	key, err := s.repo.GetByID(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if key.AccountID != caller.AccountID {
		return nil, domainAPIKey.ErrNotKeyOwner
	}

	if key.IsActive {
		if err := s.repo.Deactivate(ctx, key.ID); err != nil {
			return nil, err
		}
		key.IsActive = false
	}
	if s.cache != nil {
		s.cache.Evict(ctx, key.ID)
	}

	logger.Info("API key deactivated",
		zap.String("api_key_id", key.ID.String()),
		zap.String("user_id", caller.AccountID.String()),
		logger.Event("api_key_deactivated"),
	)

	return ToAPIKeyResponse(key), nil
}

// Verify checks a plaintext key of the form <prefix>.<secret>.
func (s *Service) Verify(ctx context.Context, plaintext string) (*domainAPIKey.APIKey, error) {
	if s.cache != nil {
		if key, ok := s.cache.Get(ctx, plaintext); ok && key.IsActive {
			return key, nil
		}
	}

	prefix, secret, err := utils.SplitAPIKey(plaintext)
	if err != nil {
		return nil, domainAPIKey.ErrAPIKeyInvalid
	}

	key, err := s.repo.GetByPrefix(ctx, prefix)
	if err != nil {
		if errors.Is(err, domainAPIKey.ErrAPIKeyNotFound) {
			return nil, domainAPIKey.ErrAPIKeyInvalid
		}
		return nil, err
	}
	if !key.IsActive || !utils.CheckPassword(key.HashedKey, secret) {
		logger.Warn("API key rejected",
			zap.String("key_prefix", prefix),
			zap.Bool("is_active", key.IsActive),
			logger.Event("api_key_rejected"),
		)
		return nil, domainAPIKey.ErrAPIKeyInvalid
	}

	now := time.Now()
	if err := s.repo.TouchLastUsed(ctx, key.ID, now); err != nil {
		logger.Warn("Failed to record api key use",
			zap.String("api_key_id", key.ID.String()),
			zap.Error(err),
		)
	}
	key.LastUsedAt = &now

	if s.cache != nil {
		s.cache.Set(ctx, plaintext, key)
	}
	return key, nil
}
