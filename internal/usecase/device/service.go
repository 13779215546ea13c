package device

import (
	"context"
	"errors"

	"device-fleet-manager/internal/config"
	domainAccount "device-fleet-manager/internal/domain/account"
	domainAgent "device-fleet-manager/internal/domain/agent"
	domainDevice "device-fleet-manager/internal/domain/device"
	domainLog "device-fleet-manager/internal/domain/devicelog"
	domainEmail "device-fleet-manager/internal/domain/email"
	"device-fleet-manager/internal/logger"
	"device-fleet-manager/internal/notification"
	"device-fleet-manager/internal/permission"
	appErrors "device-fleet-manager/pkg/errors"
	"device-fleet-manager/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultLogLimit = 100

// Service implements device use cases
type Service struct {
	deviceRepo  domainDevice.Repository
	accountRepo domainAccount.Repository
	agentRepo   domainAgent.Repository
	logRepo     domainLog.Repository
	notifier    notification.Notifier
	deviceCfg   config.DeviceConfig
}

// NewService creates a new device service
func NewService(
	deviceRepo domainDevice.Repository,
	accountRepo domainAccount.Repository,
	agentRepo domainAgent.Repository,
	logRepo domainLog.Repository,
	notifier notification.Notifier,
	deviceCfg config.DeviceConfig,
) *Service {
	return &Service{
		deviceRepo:  deviceRepo,
		accountRepo: accountRepo,
		agentRepo:   agentRepo,
		logRepo:     logRepo,
		notifier:    notifier,
		deviceCfg:   deviceCfg,
	}
}

func (s *Service) CreateDevice(ctx context.Context, caller *permission.Caller, req *CreateDeviceRequest) (*DeviceResponse, error) {
	if err := permission.Require(caller, permission.ManagerAndSuperuser); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewValidationError(err)
	}

	name := utils.SanitizeString(req.Name)
	macID := utils.SanitizeMAC(req.MacID)

	agentID, err := s.resolveAgent(caller, req.AgentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.agentRepo.GetByID(ctx, agentID); err != nil {
		return nil, err
	}

	if err := ensureUnique(ctx, s.deviceRepo, nil, &name, &macID); err != nil {
		return nil, err
	}

	device := &domainDevice.Device{
		Name:      name,
		MacID:     macID,
		IsActive:  false,
		CreatorID: caller.AccountID,
		AgentID:   agentID,
	}

	// A concurrent create can still lose the race at the unique index.
	if err := s.deviceRepo.Create(ctx, device); err != nil {
		return nil, err
	}

	logger.Info("Device created",
		zap.String("device_id", device.ID.String()),
		zap.String("mac_id", device.MacID),
		zap.String("agent_id", agentID.String()),
		zap.String("creator_id", caller.AccountID.String()),
		logger.Event("device_created"),
	)

	return ToDeviceResponse(device), nil
}

// resolveAgent picks the owning agency: the caller's own, or any agency when
// a superuser names one.
func (s *Service) resolveAgent(caller *permission.Caller, requested *uuid.UUID) (uuid.UUID, error) {
	if caller.IsSuperuser() {
		if requested != nil {
			return *requested, nil
		}
		if caller.AgentID != nil {
			return *caller.AgentID, nil
		}
		return uuid.Nil, domainAccount.ErrAgentRequired
	}

	if caller.AgentID == nil {
		return uuid.Nil, domainAccount.ErrAgentRequired
	}
	if requested != nil && *requested != *caller.AgentID {
		return uuid.Nil, appErrors.ErrForbidden
	}
	return *caller.AgentID, nil
}

func (s *Service) GetDevice(ctx context.Context, caller *permission.Caller, deviceID uuid.UUID) (*DeviceResponse, error) {
	device, err := s.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	allowed := permission.CanAccessDevice(caller, device) || (caller != nil && device.IsAssigned(caller.AccountID))
	if err := permission.Check(caller, allowed); err != nil {
		return nil, err
	}

	return ToDeviceResponse(device), nil
}

// AuthorizeDevice loads a device the caller may manage.
func (s *Service) AuthorizeDevice(ctx context.Context, caller *permission.Caller, deviceID uuid.UUID) (*DeviceResponse, error) {
	device, err := s.load(ctx, caller, deviceID)
	if err != nil {
		return nil, err
	}
	return ToDeviceResponse(device), nil
}

func (s *Service) ListDevices(ctx context.Context, caller *permission.Caller) ([]DeviceResponse, error) {
	if err := permission.Require(caller, permission.SuperuserOnly); err != nil {
		return nil, err
	}

	devices, err := s.deviceRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return ToDeviceResponses(devices), nil
}

// ListOwnedDevices returns devices of the caller's agency plus the ones the
// caller created.
func (s *Service) ListOwnedDevices(ctx context.Context, caller *permission.Caller) ([]DeviceResponse, error) {
	if err := permission.Require(caller, permission.ManagerAndSuperuser); err != nil {
		return nil, err
	}

	devices, err := s.deviceRepo.ListOwned(ctx, caller.AgentID, caller.AccountID)
	if err != nil {
		return nil, err
	}
	return ToDeviceResponses(devices), nil
}

func (s *Service) ListAssignedDevices(ctx context.Context, caller *permission.Caller, userID uuid.UUID) ([]DeviceResponse, error) {
	if caller == nil {
		return nil, appErrors.ErrAuthenticationRequired
	}

	target, err := s.accountRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := permission.Check(caller, permission.CanViewAssignedDevices(caller, target)); err != nil {
		return nil, err
	}

	devices, err := s.deviceRepo.ListAssignedTo(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ToDeviceResponses(devices), nil
}

func (s *Service) ActivateDevice(ctx context.Context, caller *permission.Caller, deviceID uuid.UUID) (*DeviceResponse, error) {
	return s.setActive(ctx, caller, deviceID, true)
}

func (s *Service) DeactivateDevice(ctx context.Context, caller *permission.Caller, deviceID uuid.UUID) (*DeviceResponse, error) {
	return s.setActive(ctx, caller, deviceID, false)
}

// setActive is idempotent. The device is always notified, the caller is
// emailed only when the state actually changed.
func (s *Service) setActive(ctx context.Context, caller *permission.Caller, deviceID uuid.UUID, active bool) (*DeviceResponse, error) {
	if err := permission.Require(caller, permission.StaffAndSuperuser); err != nil {
		return nil, err
	}

	device, err := s.load(ctx, caller, deviceID)
	if err != nil {
		return nil, err
	}

	changed := device.IsActive != active
	if changed {
		if err := s.deviceRepo.SetActive(ctx, device.ID, active); err != nil {
			return nil, err
		}
		device.IsActive = active
	}

	s.notifier.NotifyDevice(device.MacID)

	if changed {
		templateID := domainEmail.TemplateDeactivateDevice
		event := "device_deactivated"
		if active {
			templateID = domainEmail.TemplateActivateDevice
			event = "device_activated"
		}
		s.emailCaller(ctx, caller, templateID, device)

		logger.Info("Device state changed",
			zap.String("device_id", device.ID.String()),
			zap.Bool("is_active", active),
			zap.String("caller_id", caller.AccountID.String()),
			logger.Event(event),
		)
	}

	return ToDeviceResponse(device), nil
}

func (s *Service) emailCaller(ctx context.Context, caller *permission.Caller, templateID string, device *domainDevice.Device) {
	account, err := s.accountRepo.GetByID(ctx, caller.AccountID)
	if err != nil {
		logger.Warn("Could not load caller for device email",
			zap.String("caller_id", caller.AccountID.String()),
			zap.Error(err),
		)
		return
	}

	s.notifier.SendEmail(templateID, map[string]interface{}{
		"name":   account.FullName(),
		"mac_id": device.MacID,
	}, account.Email)
}

func (s *Service) AssignUser(ctx context.Context, caller *permission.Caller, deviceID, userID uuid.UUID) (*DeviceResponse, error) {
	if err := permission.Require(caller, permission.StaffAndSuperuser); err != nil {
		return nil, err
	}

	device, err := s.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	target, err := s.accountRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := ValidateOfficer(target); err != nil {
		return nil, err
	}
	if err := checkDeviceAccess(caller, device); err != nil {
		return nil, err
	}
	if !device.IsActive {
		return nil, domainDevice.ErrInactiveDevice
	}

	if err := s.deviceRepo.AddAssignment(ctx, device.ID, target.ID); err != nil {
		return nil, err
	}

	s.notifier.NotifyDevice(device.MacID)

	logger.Info("User assigned to device",
		zap.String("device_id", device.ID.String()),
		zap.String("user_id", target.ID.String()),
		zap.String("caller_id", caller.AccountID.String()),
		logger.Event("device_user_assigned"),
	)

	return s.reload(ctx, device.ID)
}

func (s *Service) UnassignUser(ctx context.Context, caller *permission.Caller, deviceID, userID uuid.UUID) (*DeviceResponse, error) {
	if err := permission.Require(caller, permission.StaffAndSuperuser); err != nil {
		return nil, err
	}

	device, err := s.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	target, err := s.accountRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := checkDeviceAccess(caller, device); err != nil {
		return nil, err
	}

	if err := s.deviceRepo.RemoveAssignment(ctx, device.ID, target.ID); err != nil {
		return nil, err
	}

	s.notifier.NotifyDevice(device.MacID)

	logger.Info("User unassigned from device",
		zap.String("device_id", device.ID.String()),
		zap.String("user_id", target.ID.String()),
		zap.String("caller_id", caller.AccountID.String()),
		logger.Event("device_user_unassigned"),
	)

	return s.reload(ctx, device.ID)
}

// AllocateToAgent moves the device to the agency headed by agentUserID.
// Existing assignments are kept.
func (s *Service) AllocateToAgent(ctx context.Context, caller *permission.Caller, deviceID, agentUserID uuid.UUID) (*DeviceResponse, error) {
	if err := permission.Require(caller, permission.SuperuserOnly); err != nil {
		return nil, err
	}

	device, err := s.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	agentAccount, err := s.accountRepo.GetByID(ctx, agentUserID)
	if err != nil {
		return nil, err
	}
	if err := ValidateAgentAccount(agentAccount); err != nil {
		return nil, err
	}

	if err := s.deviceRepo.SetAgent(ctx, device.ID, *agentAccount.AgentID); err != nil {
		return nil, err
	}

	s.notifier.NotifyDevice(device.MacID)

	logger.Info("Device allocated to agent",
		zap.String("device_id", device.ID.String()),
		zap.String("from_agent_id", device.AgentID.String()),
		zap.String("to_agent_id", agentAccount.AgentID.String()),
		logger.Event("device_allocated"),
	)

	return s.reload(ctx, device.ID)
}

func (s *Service) UpdateDevice(ctx context.Context, caller *permission.Caller, deviceID uuid.UUID, req *UpdateDeviceRequest) (*DeviceResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewValidationError(err)
	}

	device, err := s.load(ctx, caller, deviceID)
	if err != nil {
		return nil, err
	}

	update := domainDevice.Update{}
	if req.Name != nil {
		name := utils.SanitizeString(*req.Name)
		update.Name = &name
	}
	if req.MacID != nil {
		macID := utils.SanitizeMAC(*req.MacID)
		update.MacID = &macID
	}
	if err := ensureUnique(ctx, s.deviceRepo, device, update.Name, update.MacID); err != nil {
		return nil, err
	}

	if err := s.deviceRepo.Update(ctx, device.ID, update); err != nil {
		return nil, err
	}

	oldMac := device.MacID
	s.notifier.NotifyDevice(oldMac)
	if update.MacID != nil && *update.MacID != oldMac {
		s.notifier.NotifyDevice(*update.MacID)
	}

	logger.Info("Device updated",
		zap.String("device_id", device.ID.String()),
		zap.String("old_mac_id", oldMac),
		logger.Event("device_updated"),
	)

	return s.reload(ctx, device.ID)
}

func (s *Service) DeleteDevice(ctx context.Context, caller *permission.Caller, deviceID uuid.UUID) error {
	device, err := s.load(ctx, caller, deviceID)
	if err != nil {
		return err
	}

	if err := s.deviceRepo.Delete(ctx, device.ID); err != nil {
		return err
	}

	logger.Info("Device deleted",
		zap.String("device_id", device.ID.String()),
		zap.String("mac_id", device.MacID),
		zap.String("caller_id", caller.AccountID.String()),
		logger.Event("device_deleted"),
	)
	return nil
}

// GetConfig builds the payload a device fetches at boot. The agency owner
// comes first in the user list.
func (s *Service) GetConfig(ctx context.Context, macID string) (*DeviceConfigResponse, error) {
	device, err := s.deviceRepo.GetByMacID(ctx, utils.SanitizeMAC(macID))
	if err != nil {
		return nil, err
	}
	if !device.IsActive {
		return nil, domainDevice.ErrInactiveDevice
	}

	users := make([]DeviceUser, 0, len(device.AssignedUsers)+1)
	owner, err := s.accountRepo.FindAgentOwner(ctx, device.AgentID)
	switch {
	case err == nil:
		users = append(users, ToDeviceUser(owner))
	case !errors.Is(err, domainAccount.ErrAccountNotFound):
		return nil, err
	}

	assigned := make([]UserResponse, len(device.AssignedUsers))
	for i, u := range device.AssignedUsers {
		users = append(users, ToDeviceUser(u))
		assigned[i] = ToUserResponse(u)
	}

	var agentResp *AgentResponse
	agent, err := s.agentRepo.GetByID(ctx, device.AgentID)
	switch {
	case err == nil:
		agentResp = ToAgentResponse(agent)
	case !errors.Is(err, domainAgent.ErrAgentNotFound):
		return nil, err
	}

	return &DeviceConfigResponse{
		Config: DeviceConfig{
			DeviceID:    device.ID,
			IsActive:    device.IsActive,
			RabbitMQURI: s.deviceCfg.ExternalRabbitMQURI,
			APIBaseURI:  s.deviceCfg.APIBaseURI,
			SecretKey:   s.deviceCfg.SecretKey,
			Users:       users,
		},
		AssignedUsers: assigned,
		Agent:         agentResp,
	}, nil
}

// UpdateDeviceUser sets the password of a user assigned to the device.
func (s *Service) UpdateDeviceUser(ctx context.Context, macID string, userID uuid.UUID, req *UpdateDeviceUserRequest) (*UserResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewValidationError(err)
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return nil, appErrors.NewValidationError(err)
	}

	device, err := s.deviceRepo.GetByMacID(ctx, utils.SanitizeMAC(macID))
	if err != nil {
		return nil, err
	}
	user, err := s.accountRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !device.IsAssigned(user.ID) {
		return nil, domainDevice.ErrUserNotAssigned
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeServer, "Failed to hash password", err)
	}
	if err := s.accountRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}

	s.notifier.NotifyDevice(device.MacID)

	logger.Info("Device user password updated",
		zap.String("device_id", device.ID.String()),
		zap.String("user_id", user.ID.String()),
		logger.Event("device_user_updated"),
	)

	resp := ToUserResponse(user)
	return &resp, nil
}

func (s *Service) GetLogs(ctx context.Context, caller *permission.Caller, deviceID uuid.UUID, limit int) ([]DeviceLogResponse, error) {
	device, err := s.load(ctx, caller, deviceID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 1000 {
		limit = defaultLogLimit
	}

	logs, err := s.logRepo.ListByDevice(ctx, device.ID, device.MacID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]DeviceLogResponse, len(logs))
	for i, l := range logs {
		out[i] = ToDeviceLogResponse(l)
	}
	return out, nil
}

// load fetches the device and applies the relationship check.
func (s *Service) load(ctx context.Context, caller *permission.Caller, deviceID uuid.UUID) (*domainDevice.Device, error) {
	if caller == nil {
		return nil, appErrors.ErrAuthenticationRequired
	}

	device, err := s.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if err := checkDeviceAccess(caller, device); err != nil {
		return nil, err
	}
	return device, nil
}

func (s *Service) reload(ctx context.Context, deviceID uuid.UUID) (*DeviceResponse, error) {
	device, err := s.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return ToDeviceResponse(device), nil
}
