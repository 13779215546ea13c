package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainAccount "device-fleet-manager/internal/domain/account"
	domainRole "device-fleet-manager/internal/domain/role"
	"device-fleet-manager/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountRepository implements account.Repository
type AccountRepository struct {
	db *DB
}

func NewAccountRepository(db *DB) domainAccount.Repository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, a *domainAccount.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt

	if err := r.db.DB.WithContext(ctx).Omit("Role").Create(toAccountModel(a)).Error; err != nil {
		if isDuplicateKey(err) {
			return domainAccount.ErrAccountAlreadyExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, accountID uuid.UUID) (*domainAccount.Account, error) {
	return r.getOne(ctx, "id = ?", accountID)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domainAccount.Account, error) {
	return r.getOne(ctx, "email = ?", email)
}

func (r *AccountRepository) GetByPhone(ctx context.Context, phone string) (*domainAccount.Account, error) {
	return r.getOne(ctx, "phone = ?", phone)
}

func (r *AccountRepository) GetByLasrraID(ctx context.Context, lasrraID string) (*domainAccount.Account, error) {
	return r.getOne(ctx, "lasrra_id = ?", lasrraID)
}

func (r *AccountRepository) getOne(ctx context.Context, query string, arg interface{}) (*domainAccount.Account, error) {
	var m models.AccountModel
	err := r.db.DB.WithContext(ctx).
		Preload("Role").
		Where(query, arg).
		First(&m).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainAccount.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return toAccountEntity(&m), nil
}

func (r *AccountRepository) List(ctx context.Context) ([]*domainAccount.Account, error) {
	return r.list(ctx, r.db.DB.WithContext(ctx))
}

func (r *AccountRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*domainAccount.Account, error) {
	return r.list(ctx, r.db.DB.WithContext(ctx).Where("created_by_id = ?", creatorID))
}

func (r *AccountRepository) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]*domainAccount.Account, error) {
	return r.list(ctx, r.db.DB.WithContext(ctx).Where("agent_id = ?", agentID))
}

func (r *AccountRepository) list(_ context.Context, q *gorm.DB) ([]*domainAccount.Account, error) {
	var rows []models.AccountModel
	if err := q.Preload("Role").Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	accounts := make([]*domainAccount.Account, len(rows))
	for i := range rows {
		accounts[i] = toAccountEntity(&rows[i])
	}
	return accounts, nil
}

// FindAgentOwner returns the account with role AGENT that heads agentID.
func (r *AccountRepository) FindAgentOwner(ctx context.Context, agentID uuid.UUID) (*domainAccount.Account, error) {
	var m models.AccountModel
	err := r.db.DB.WithContext(ctx).
		Preload("Role").
		Joins("JOIN roles ON roles.id = accounts.role_id").
		Where("accounts.agent_id = ? AND roles.name = ?", agentID, domainRole.Agent).
		Order("accounts.created_at ASC").
		First(&m).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainAccount.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent owner: %w", err)
	}
	return toAccountEntity(&m), nil
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, accountID uuid.UUID, update domainAccount.ProfileUpdate) error {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if update.FirstName != nil {
		updates["first_name"] = *update.FirstName
	}
	if update.LastName != nil {
		updates["last_name"] = *update.LastName
	}
	if update.Email != nil {
		updates["email"] = *update.Email
	}
	if update.Phone != nil {
		updates["phone"] = *update.Phone
	}
	if update.Address != nil {
		updates["address"] = *update.Address
	}

	return r.update(ctx, accountID, updates)
}

func (r *AccountRepository) SetActive(ctx context.Context, accountID uuid.UUID, active bool) error {
	return r.update(ctx, accountID, map[string]interface{}{
		"is_active":  active,
		"updated_at": time.Now(),
	})
}

func (r *AccountRepository) SetRole(ctx context.Context, accountID, roleID uuid.UUID) error {
	return r.update(ctx, accountID, map[string]interface{}{
		"role_id":    roleID,
		"updated_at": time.Now(),
	})
}

func (r *AccountRepository) MoveToAgent(ctx context.Context, accountID, agentID uuid.UUID, entry *domainAccount.History) ([]string, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()

	var macIDs []string
	err := r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.AccountModel{}).
			Where("id = ?", accountID).
			Updates(map[string]interface{}{
				"agent_id":   agentID,
				"updated_at": entry.CreatedAt,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update account agent: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domainAccount.ErrAccountNotFound
		}

		if err := tx.Model(&models.DeviceModel{}).
			Where("id IN (?)", tx.Model(&models.DeviceAssignmentModel{}).
				Select("device_id").
				Where("account_id = ?", accountID)).
			Order("mac_id ASC").
			Pluck("mac_id", &macIDs).Error; err != nil {
			return fmt.Errorf("failed to find assigned devices: %w", err)
		}

		if err := tx.Where("account_id = ?", accountID).Delete(&models.DeviceAssignmentModel{}).Error; err != nil {
			return fmt.Errorf("failed to remove device assignments: %w", err)
		}

		if err := tx.Create(toHistoryModel(entry)).Error; err != nil {
			return fmt.Errorf("failed to add account history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return macIDs, nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, accountID uuid.UUID, passwordHash string) error {
	return r.update(ctx, accountID, map[string]interface{}{
		"password_hashed": passwordHash,
		"updated_at":      time.Now(),
	})
}

func (r *AccountRepository) update(ctx context.Context, accountID uuid.UUID, updates map[string]interface{}) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.AccountModel{}).
		Where("id = ?", accountID).
		Updates(updates)

	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return domainAccount.ErrAccountAlreadyExists
		}
		return fmt.Errorf("failed to update account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainAccount.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) AddHistory(ctx context.Context, entry *domainAccount.History) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()

	if err := r.db.DB.WithContext(ctx).Create(toHistoryModel(entry)).Error; err != nil {
		return fmt.Errorf("failed to add account history: %w", err)
	}
	return nil
}

func (r *AccountRepository) ListHistory(ctx context.Context, accountID uuid.UUID) ([]*domainAccount.History, error) {
	var rows []models.AccountHistoryModel
	err := r.db.DB.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list account history: %w", err)
	}

	history := make([]*domainAccount.History, len(rows))
	for i, m := range rows {
		history[i] = &domainAccount.History{
			ID:        m.ID,
			AccountID: m.AccountID,
			AgentID:   m.AgentID,
			RoleID:    m.RoleID,
			CreatedAt: m.CreatedAt,
		}
	}
	return history, nil
}

func toHistoryModel(entry *domainAccount.History) *models.AccountHistoryModel {
	return &models.AccountHistoryModel{
		ID:        entry.ID,
		AccountID: entry.AccountID,
		AgentID:   entry.AgentID,
		RoleID:    entry.RoleID,
		CreatedAt: entry.CreatedAt,
	}
}

func toAccountModel(a *domainAccount.Account) *models.AccountModel {
	return &models.AccountModel{
		ID:             a.ID,
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		Email:          a.Email,
		Phone:          a.Phone,
		LasrraID:       a.LasrraID,
		Address:        a.Address,
		PasswordHashed: a.PasswordHashed,
		IsActive:       a.IsActive,
		RoleID:         a.RoleID,
		AgentID:        a.AgentID,
		CreatedByID:    a.CreatedByID,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func toAccountEntity(m *models.AccountModel) *domainAccount.Account {
	return &domainAccount.Account{
		ID:             m.ID,
		FirstName:      m.FirstName,
		LastName:       m.LastName,
		Email:          m.Email,
		Phone:          m.Phone,
		LasrraID:       m.LasrraID,
		Address:        m.Address,
		PasswordHashed: m.PasswordHashed,
		IsActive:       m.IsActive,
		RoleID:         m.RoleID,
		Role:           toRoleEntity(m.Role),
		AgentID:        m.AgentID,
		CreatedByID:    m.CreatedByID,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
