package apikey

import (
	"time"

	domainAPIKey "device-fleet-manager/internal/domain/apikey"

	"github.com/google/uuid"
)

type CreateAPIKeyRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

type APIKeyResponse struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"`
	IsActive   bool       `json:"is_active"`
	UserID     uuid.UUID  `json:"user_id"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CreateAPIKeyResponse is the only place the plaintext key ever appears.
type CreateAPIKeyResponse struct {
	APIKeyResponse
	Key string `json:"key"`
}

func ToAPIKeyResponse(k *domainAPIKey.APIKey) *APIKeyResponse {
	if k == nil {
		return nil
	}
	return &APIKeyResponse{
		ID:         k.ID,
		Name:       k.Name,
		KeyPrefix:  k.KeyPrefix,
		IsActive:   k.IsActive,
		UserID:     k.AccountID,
		LastUsedAt: k.LastUsedAt,
		CreatedAt:  k.CreatedAt,
	}
}

func toAPIKeyResponses(keys []*domainAPIKey.APIKey) []APIKeyResponse {
	out := make([]APIKeyResponse, len(keys))
	for i, k := range keys {
		out[i] = *ToAPIKeyResponse(k)
	}
	return out
}
