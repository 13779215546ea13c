package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainAgent "device-fleet-manager/internal/domain/agent"
	"device-fleet-manager/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AgentRepository struct {
	db *DB
}

func NewAgentRepository(db *DB) domainAgent.Repository {
	return &AgentRepository{db: db}
}

func (r *AgentRepository) Create(ctx context.Context, a *domainAgent.Agent) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()

	if err := r.db.DB.WithContext(ctx).Create(toAgentModel(a)).Error; err != nil {
		if isDuplicateKey(err) {
			return domainAgent.ErrAgentAlreadyExists
		}
		return fmt.Errorf("failed to create agent: %w", err)
	}
	return nil
}

func (r *AgentRepository) GetByID(ctx context.Context, agentID uuid.UUID) (*domainAgent.Agent, error) {
	return r.getOne(ctx, "id = ?", agentID)
}

func (r *AgentRepository) GetByName(ctx context.Context, name string) (*domainAgent.Agent, error) {
	return r.getOne(ctx, "name = ?", name)
}

func (r *AgentRepository) GetByEmail(ctx context.Context, email string) (*domainAgent.Agent, error) {
	return r.getOne(ctx, "email = ?", email)
}

func (r *AgentRepository) getOne(ctx context.Context, query string, arg interface{}) (*domainAgent.Agent, error) {
	var m models.AgentModel
	err := r.db.DB.WithContext(ctx).Where(query, arg).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainAgent.ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return toAgentEntity(&m), nil
}

func (r *AgentRepository) List(ctx context.Context) ([]*domainAgent.Agent, error) {
	var rows []models.AgentModel
	if err := r.db.DB.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}

	agents := make([]*domainAgent.Agent, len(rows))
	for i := range rows {
		agents[i] = toAgentEntity(&rows[i])
	}
	return agents, nil
}

func toAgentModel(a *domainAgent.Agent) *models.AgentModel {
	return &models.AgentModel{
		ID:          a.ID,
		Name:        a.Name,
		Email:       a.Email,
		Address:     a.Address,
		RoleID:      a.RoleID,
		CreatedByID: a.CreatedByID,
		CreatedAt:   a.CreatedAt,
	}
}

func toAgentEntity(m *models.AgentModel) *domainAgent.Agent {
	return &domainAgent.Agent{
		ID:          m.ID,
		Name:        m.Name,
		Email:       m.Email,
		Address:     m.Address,
		RoleID:      m.RoleID,
		CreatedByID: m.CreatedByID,
		CreatedAt:   m.CreatedAt,
	}
}
