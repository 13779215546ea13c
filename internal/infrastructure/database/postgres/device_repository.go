package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainAccount "device-fleet-manager/internal/domain/account"
	domainDevice "device-fleet-manager/internal/domain/device"
	"device-fleet-manager/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceRepository implements domain.Device.Repository interface
type DeviceRepository struct {
	db *DB
}

// NewDeviceRepository creates a new device repository
func NewDeviceRepository(db *DB) domainDevice.Repository {
	return &DeviceRepository{db: db}
}

func (r *DeviceRepository) Create(ctx context.Context, d *domainDevice.Device) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt

	if err := r.db.DB.WithContext(ctx).Create(toDeviceModel(d)).Error; err != nil {
		if isDuplicateKey(err) {
			return domainDevice.ErrDeviceAlreadyExists
		}
		return fmt.Errorf("failed to create device: %w", err)
	}
	return nil
}

func (r *DeviceRepository) GetByID(ctx context.Context, deviceID uuid.UUID) (*domainDevice.Device, error) {
	return r.getOne(ctx, "id = ?", deviceID)
}

func (r *DeviceRepository) GetByMacID(ctx context.Context, macID string) (*domainDevice.Device, error) {
	return r.getOne(ctx, "mac_id = ?", macID)
}

func (r *DeviceRepository) GetByName(ctx context.Context, name string) (*domainDevice.Device, error) {
	return r.getOne(ctx, "name = ?", name)
}

func (r *DeviceRepository) getOne(ctx context.Context, query string, arg interface{}) (*domainDevice.Device, error) {
	var m models.DeviceModel
	err := r.db.DB.WithContext(ctx).Where(query, arg).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainDevice.ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	devices, err := r.withAssignees(ctx, []models.DeviceModel{m})
	if err != nil {
		return nil, err
	}
	return devices[0], nil
}

func (r *DeviceRepository) List(ctx context.Context) ([]*domainDevice.Device, error) {
	return r.list(ctx, r.db.DB.WithContext(ctx))
}

func (r *DeviceRepository) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]*domainDevice.Device, error) {
	return r.list(ctx, r.db.DB.WithContext(ctx).Where("agent_id = ?", agentID))
}

// ListOwned returns devices of the agency or created by creatorID.
func (r *DeviceRepository) ListOwned(ctx context.Context, agentID *uuid.UUID, creatorID uuid.UUID) ([]*domainDevice.Device, error) {
	q := r.db.DB.WithContext(ctx)
	if agentID != nil {
		q = q.Where("agent_id = ? OR creator_id = ?", *agentID, creatorID)
	} else {
		q = q.Where("creator_id = ?", creatorID)
	}
	return r.list(ctx, q)
}

func (r *DeviceRepository) ListAssignedTo(ctx context.Context, accountID uuid.UUID) ([]*domainDevice.Device, error) {
	q := r.db.DB.WithContext(ctx).
		Where("id IN (?)", r.db.DB.WithContext(ctx).
			Model(&models.DeviceAssignmentModel{}).
			Select("device_id").
			Where("account_id = ?", accountID))
	return r.list(ctx, q)
}

func (r *DeviceRepository) list(ctx context.Context, q *gorm.DB) ([]*domainDevice.Device, error) {
	var rows []models.DeviceModel
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return r.withAssignees(ctx, rows)
}

// withAssignees converts rows to entities and loads their assignment sets in
// one query.
func (r *DeviceRepository) withAssignees(ctx context.Context, rows []models.DeviceModel) ([]*domainDevice.Device, error) {
	devices := make([]*domainDevice.Device, len(rows))
	if len(rows) == 0 {
		return devices, nil
	}

	ids := make([]uuid.UUID, len(rows))
	byID := make(map[uuid.UUID]*domainDevice.Device, len(rows))
	for i := range rows {
		devices[i] = toDeviceEntity(&rows[i])
		ids[i] = rows[i].ID
		byID[rows[i].ID] = devices[i]
	}

	var links []models.DeviceAssignmentModel
	if err := r.db.DB.WithContext(ctx).
		Where("device_id IN ?", ids).
		Order("created_at ASC").
		Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}
	if len(links) == 0 {
		return devices, nil
	}

	accountIDs := make([]uuid.UUID, 0, len(links))
	for _, l := range links {
		accountIDs = append(accountIDs, l.AccountID)
	}

	var accounts []models.AccountModel
	if err := r.db.DB.WithContext(ctx).
		Preload("Role").
		Where("id IN ?", accountIDs).
		Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to load assigned users: %w", err)
	}

	accountsByID := make(map[uuid.UUID]*domainAccount.Account, len(accounts))
	for i := range accounts {
		accountsByID[accounts[i].ID] = toAccountEntity(&accounts[i])
	}

	for _, l := range links {
		if a, ok := accountsByID[l.AccountID]; ok {
			d := byID[l.DeviceID]
			d.AssignedUsers = append(d.AssignedUsers, a)
		}
	}
	return devices, nil
}

func (r *DeviceRepository) Update(ctx context.Context, deviceID uuid.UUID, update domainDevice.Update) error {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if update.Name != nil {
		updates["name"] = *update.Name
	}
	if update.MacID != nil {
		updates["mac_id"] = *update.MacID
	}
	return r.update(ctx, deviceID, updates)
}

func (r *DeviceRepository) SetActive(ctx context.Context, deviceID uuid.UUID, active bool) error {
	return r.update(ctx, deviceID, map[string]interface{}{
		"is_active":  active,
		"updated_at": time.Now(),
	})
}

func (r *DeviceRepository) SetAgent(ctx context.Context, deviceID, agentID uuid.UUID) error {
	return r.update(ctx, deviceID, map[string]interface{}{
		"agent_id":   agentID,
		"updated_at": time.Now(),
	})
}

func (r *DeviceRepository) update(ctx context.Context, deviceID uuid.UUID, updates map[string]interface{}) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.DeviceModel{}).
		Where("id = ?", deviceID).
		Updates(updates)

	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return domainDevice.ErrDeviceAlreadyExists
		}
		return fmt.Errorf("failed to update device: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainDevice.ErrDeviceNotFound
	}
	return nil
}

func (r *DeviceRepository) Delete(ctx context.Context, deviceID uuid.UUID) error {
	return r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("device_id = ?", deviceID).Delete(&models.DeviceAssignmentModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete assignments: %w", err)
		}

		result := tx.Where("id = ?", deviceID).Delete(&models.DeviceModel{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete device: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domainDevice.ErrDeviceNotFound
		}
		return nil
	})
}

func (r *DeviceRepository) AddAssignment(ctx context.Context, deviceID, accountID uuid.UUID) error {
	err := r.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.DeviceAssignmentModel{
			DeviceID:  deviceID,
			AccountID: accountID,
			CreatedAt: time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to assign device: %w", err)
	}
	return nil
}

func (r *DeviceRepository) RemoveAssignment(ctx context.Context, deviceID, accountID uuid.UUID) error {
	err := r.db.DB.WithContext(ctx).
		Where("device_id = ? AND account_id = ?", deviceID, accountID).
		Delete(&models.DeviceAssignmentModel{}).Error
	if err != nil {
		return fmt.Errorf("failed to unassign device: %w", err)
	}
	return nil
}

// Helper functions to convert between domain entities and database models

func toDeviceModel(d *domainDevice.Device) *models.DeviceModel {
	return &models.DeviceModel{
		ID:        d.ID,
		Name:      d.Name,
		MacID:     d.MacID,
		IsActive:  d.IsActive,
		CreatorID: d.CreatorID,
		AgentID:   d.AgentID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func toDeviceEntity(m *models.DeviceModel) *domainDevice.Device {
	return &domainDevice.Device{
		ID:        m.ID,
		Name:      m.Name,
		MacID:     m.MacID,
		IsActive:  m.IsActive,
		CreatorID: m.CreatorID,
		AgentID:   m.AgentID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
