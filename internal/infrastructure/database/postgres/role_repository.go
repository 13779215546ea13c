package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainRole "device-fleet-manager/internal/domain/role"
	"device-fleet-manager/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoleRepository struct {
	db *DB
}

func NewRoleRepository(db *DB) domainRole.Repository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) Create(ctx context.Context, role *domainRole.Role) error {
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	role.CreatedAt = time.Now()

	if err := r.db.DB.WithContext(ctx).Create(toRoleModel(role)).Error; err != nil {
		if isDuplicateKey(err) {
			return domainRole.ErrRoleAlreadyExists
		}
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

func (r *RoleRepository) GetByID(ctx context.Context, roleID uuid.UUID) (*domainRole.Role, error) {
	return r.getOne(ctx, "id = ?", roleID)
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*domainRole.Role, error) {
	return r.getOne(ctx, "name = ?", name)
}

func (r *RoleRepository) getOne(ctx context.Context, query string, arg interface{}) (*domainRole.Role, error) {
	var m models.RoleModel
	err := r.db.DB.WithContext(ctx).Where(query, arg).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainRole.ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return toRoleEntity(&m), nil
}

func (r *RoleRepository) List(ctx context.Context) ([]*domainRole.Role, error) {
	var rows []models.RoleModel
	if err := r.db.DB.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	roles := make([]*domainRole.Role, len(rows))
	for i := range rows {
		roles[i] = toRoleEntity(&rows[i])
	}
	return roles, nil
}

func (r *RoleRepository) Rename(ctx context.Context, roleID uuid.UUID, name string) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.RoleModel{}).
		Where("id = ?", roleID).
		Update("name", name)

	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return domainRole.ErrRoleAlreadyExists
		}
		return fmt.Errorf("failed to rename role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainRole.ErrRoleNotFound
	}
	return nil
}

func (r *RoleRepository) Delete(ctx context.Context, roleID uuid.UUID) error {
	result := r.db.DB.WithContext(ctx).Where("id = ?", roleID).Delete(&models.RoleModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainRole.ErrRoleNotFound
	}
	return nil
}

func (r *RoleRepository) CountAccounts(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.AccountModel{}).
		Where("role_id = ?", roleID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count role accounts: %w", err)
	}
	return count, nil
}

func toRoleModel(role *domainRole.Role) *models.RoleModel {
	return &models.RoleModel{
		ID:        role.ID,
		Name:      role.Name,
		CreatedAt: role.CreatedAt,
	}
}

func toRoleEntity(m *models.RoleModel) *domainRole.Role {
	if m == nil {
		return nil
	}
	return &domainRole.Role{
		ID:        m.ID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
	}
}
