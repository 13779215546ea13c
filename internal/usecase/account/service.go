package account

import (
	"context"
	"errors"

	"device-fleet-manager/internal/config"
	domainAccount "device-fleet-manager/internal/domain/account"
	domainAgent "device-fleet-manager/internal/domain/agent"
	domainDevice "device-fleet-manager/internal/domain/device"
	domainEmail "device-fleet-manager/internal/domain/email"
	domainRole "device-fleet-manager/internal/domain/role"
	"device-fleet-manager/internal/logger"
	"device-fleet-manager/internal/notification"
	"device-fleet-manager/internal/permission"
	appErrors "device-fleet-manager/pkg/errors"
	"device-fleet-manager/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service implements account use cases
type Service struct {
	accountRepo    domainAccount.Repository
	resetTokenRepo domainAccount.ResetTokenRepository
	roleRepo       domainRole.Repository
	agentRepo      domainAgent.Repository
	deviceRepo     domainDevice.Repository
	notifier       notification.Notifier
	config         *config.Config
}

// NewService creates a new account service
func NewService(
	accountRepo domainAccount.Repository,
	resetTokenRepo domainAccount.ResetTokenRepository,
	roleRepo domainRole.Repository,
	agentRepo domainAgent.Repository,
	deviceRepo domainDevice.Repository,
	notifier notification.Notifier,
	cfg *config.Config,
) *Service {
	return &Service{
		accountRepo:    accountRepo,
		resetTokenRepo: resetTokenRepo,
		roleRepo:       roleRepo,
		agentRepo:      agentRepo,
		deviceRepo:     deviceRepo,
		notifier:       notifier,
		config:         cfg,
	}
}

func (s *Service) CreateManager(ctx context.Context, caller *permission.Caller, req *CreateManagerRequest) (*AccountResponse, error) {
	if err := permission.Require(caller, permission.SuperuserOnly); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewValidationError(err)
	}

	if _, err := s.agentRepo.GetByID(ctx, req.AgentID); err != nil {
		return nil, err
	}
	managerRole, err := s.defaultRole(ctx, domainRole.AgentManager)
	if err != nil {
		return nil, err
	}

	agentID := req.AgentID
	return s.create(ctx, caller, &req.CreateAccountRequest, managerRole, &agentID, "manager_created")
}

func (s *Service) CreateEmployee(ctx context.Context, caller *permission.Caller, req *CreateEmployeeRequest) (*AccountResponse, error) {
	if err := permission.Require(caller, permission.ManagerAndSuperuser); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewValidationError(err)
	}

	employeeRole, err := s.roleRepo.GetByID(ctx, req.RoleID)
	if err != nil {
		return nil, err
	}
	if !domainRole.IsEmployee(employeeRole.Name) {
		return nil, domainAccount.ErrEmployeeRoleNotSelectable
	}

	agentID := caller.AgentID
	if caller.IsSuperuser() && req.AgentID != nil {
		agentID = req.AgentID
	}
	if agentID == nil {
		return nil, domainAccount.ErrAgentRequired
	}
	if _, err := s.agentRepo.GetByID(ctx, *agentID); err != nil {
		return nil, err
	}

	return s.create(ctx, caller, &req.CreateAccountRequest, employeeRole, agentID, "employee_created")
}

func (s *Service) create(
	ctx context.Context,
	caller *permission.Caller,
	req *CreateAccountRequest,
	r *domainRole.Role,
	agentID *uuid.UUID,
	event string,
) (*AccountResponse, error) {
	creatorID := caller.AccountID
	account, err := BuildAccount(req, r.ID, agentID, &creatorID)
	if err != nil {
		return nil, err
	}
	if err := CheckUnique(ctx, s.accountRepo, account.Email, account.LasrraID, account.Phone); err != nil {
		return nil, err
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}
	account.Role = r

	s.notifier.SendEmail(domainEmail.TemplateCreateAccount, map[string]interface{}{
		"name": account.FullName(),
	}, account.Email)

	logger.Info("Account created",
		zap.String("user_id", account.ID.String()),
		zap.String("role", r.Name),
		zap.String("creator_id", creatorID.String()),
		logger.Event(event),
	)

	return ToAccountResponse(account), nil
}

func (s *Service) Activate(ctx context.Context, caller *permission.Caller, accountID uuid.UUID) (*AccountResponse, error) {
	return s.setActive(ctx, caller, accountID, true)
}

func (s *Service) Deactivate(ctx context.Context, caller *permission.Caller, accountID uuid.UUID) (*AccountResponse, error) {
	return s.setActive(ctx, caller, accountID, false)
}

// setActive is idempotent. On a change the account is emailed and every
// device it is assigned to is notified.
func (s *Service) setActive(ctx context.Context, caller *permission.Caller, accountID uuid.UUID, active bool) (*AccountResponse, error) {
	if err := permission.Require(caller, permission.StaffAndSuperuser); err != nil {
		return nil, err
	}

	target, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := permission.Check(caller, permission.CanManageAccount(caller, target)); err != nil {
		return nil, err
	}

	if target.IsActive == active {
		return ToAccountResponse(target), nil
	}

	if err := s.accountRepo.SetActive(ctx, target.ID, active); err != nil {
		return nil, err
	}
	target.IsActive = active

	templateID := domainEmail.TemplateDeactivateAccount
	event := "user_deactivated"
	if active {
		templateID = domainEmail.TemplateActivateAccount
		event = "user_activated"
	}
	s.notifier.SendEmail(templateID, map[string]interface{}{
		"name": target.FullName(),
	}, target.Email)

	if err := s.notifyAssignedDevices(ctx, target.ID); err != nil {
		logger.Warn("Failed to notify devices of account state change",
			zap.String("user_id", target.ID.String()),
			zap.Error(err),
		)
	}

	logger.Info("Account state changed",
		zap.String("user_id", target.ID.String()),
		zap.Bool("is_active", active),
		zap.String("caller_id", caller.AccountID.String()),
		logger.Event(event),
	)

	return ToAccountResponse(target), nil
}

func (s *Service) notifyAssignedDevices(ctx context.Context, accountID uuid.UUID) error {
	devices, err := s.deviceRepo.ListAssignedTo(ctx, accountID)
	if err != nil {
		return err
	}
	for _, d := range devices {
		s.notifier.NotifyDevice(d.MacID)
	}
	return nil
}

func (s *Service) GrantSuperuser(ctx context.Context, caller *permission.Caller, accountID uuid.UUID) (*AccountResponse, error) {
	if err := permission.Require(caller, permission.SuperuserOnly); err != nil {
		return nil, err
	}

	superRole, err := s.defaultRole(ctx, domainRole.Superuser)
	if err != nil {
		return nil, err
	}
	target, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if err := s.changeRole(ctx, target, superRole); err != nil {
		return nil, err
	}

	logger.Info("Superuser granted",
		zap.String("user_id", target.ID.String()),
		zap.String("caller_id", caller.AccountID.String()),
		logger.Event("superuser_granted"),
	)

	return ToAccountResponse(target), nil
}

func (s *Service) RemoveSuperuser(ctx context.Context, caller *permission.Caller, accountID uuid.UUID) (*AccountResponse, error) {
	if err := permission.Require(caller, permission.SuperuserOnly); err != nil {
		return nil, err
	}

	if _, err := s.defaultRole(ctx, domainRole.Superuser); err != nil {
		return nil, err
	}
	regularRole, err := s.defaultRole(ctx, domainRole.Regular)
	if err != nil {
		return nil, err
	}

	target, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !target.IsSuperuser() {
		return nil, domainAccount.ErrNotSuperuser
	}

	if err := s.changeRole(ctx, target, regularRole); err != nil {
		return nil, err
	}

	logger.Info("Superuser removed",
		zap.String("user_id", target.ID.String()),
		zap.String("caller_id", caller.AccountID.String()),
		logger.Event("superuser_removed"),
	)

	return ToAccountResponse(target), nil
}

func (s *Service) changeRole(ctx context.Context, target *domainAccount.Account, r *domainRole.Role) error {
	if err := s.accountRepo.SetRole(ctx, target.ID, r.ID); err != nil {
		return err
	}
	target.RoleID = r.ID
	target.Role = r

	return s.recordHistory(ctx, target)
}

func (s *Service) recordHistory(ctx context.Context, target *domainAccount.Account) error {
	return s.accountRepo.AddHistory(ctx, &domainAccount.History{
		AccountID: target.ID,
		AgentID:   target.AgentID,
		RoleID:    target.RoleID,
	})
}

// ChangeAgent moves an employee to the agency headed by req.AgentUserID. The
// employee loses every device assignment it held.
func (s *Service) ChangeAgent(ctx context.Context, caller *permission.Caller, accountID uuid.UUID, req *ChangeAgentRequest) (*AccountResponse, error) {
	if err := permission.Require(caller, permission.SuperuserOnly); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewValidationError(err)
	}
	if accountID == req.AgentUserID {
		return nil, domainAccount.ErrSelfAssignment
	}

	target, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	agentAccount, err := s.accountRepo.GetByID(ctx, req.AgentUserID)
	if err != nil {
		return nil, err
	}

	if agentAccount.RoleName() != domainRole.Agent {
		return nil, domainAccount.ErrNotAnAgent
	}
	if agentAccount.AgentID == nil {
		return nil, domainAccount.ErrAgentRequired
	}
	if !domainRole.IsEmployee(target.RoleName()) {
		return nil, domainAccount.ErrNotAnEmployee
	}

	newAgentID := *agentAccount.AgentID
	macIDs, err := s.accountRepo.MoveToAgent(ctx, target.ID, newAgentID, &domainAccount.History{
		AccountID: target.ID,
		AgentID:   &newAgentID,
		RoleID:    target.RoleID,
	})
	if err != nil {
		return nil, err
	}
	target.AgentID = &newAgentID

	for _, macID := range macIDs {
		s.notifier.NotifyDevice(macID)
	}

	logger.Info("Account moved to another agent",
		zap.String("user_id", target.ID.String()),
		zap.String("agent_id", newAgentID.String()),
		zap.Int("devices_unassigned", len(macIDs)),
		logger.Event("user_agent_changed"),
	)

	return ToAccountResponse(target), nil
}

func (s *Service) Me(ctx context.Context, caller *permission.Caller) (*AccountResponse, error) {
	if caller == nil {
		return nil, appErrors.ErrAuthenticationRequired
	}

	account, err := s.accountRepo.GetByID(ctx, caller.AccountID)
	if err != nil {
		return nil, err
	}
	return ToAccountResponse(account), nil
}

func (s *Service) UpdateProfile(ctx context.Context, caller *permission.Caller, req *UpdateProfileRequest) (*AccountResponse, error) {
	if caller == nil {
		return nil, appErrors.ErrAuthenticationRequired
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewValidationError(err)
	}

	update := domainAccount.ProfileUpdate{
		FirstName: sanitized(req.FirstName, utils.SanitizeString),
		LastName:  sanitized(req.LastName, utils.SanitizeString),
		Email:     sanitized(req.Email, utils.SanitizeEmail),
		Phone:     sanitized(req.Phone, utils.SanitizePhone),
		Address:   sanitized(req.Address, utils.SanitizeString),
	}
	if err := checkProfileUnique(ctx, s.accountRepo, caller.AccountID, update.Email, update.Phone); err != nil {
		return nil, err
	}

	if err := s.accountRepo.UpdateProfile(ctx, caller.AccountID, update); err != nil {
		return nil, err
	}

	if err := s.notifyAssignedDevices(ctx, caller.AccountID); err != nil {
		logger.Warn("Failed to notify devices of profile update",
			zap.String("user_id", caller.AccountID.String()),
			zap.Error(err),
		)
	}

	logger.Info("Profile updated",
		zap.String("user_id", caller.AccountID.String()),
		logger.Event("profile_updated"),
	)

	return s.Me(ctx, caller)
}

func sanitized(v *string, fn func(string) string) *string {
	if v == nil {
		return nil
	}
	out := fn(*v)
	return &out
}

// ListEmployees returns the accounts the caller created.
func (s *Service) ListEmployees(ctx context.Context, caller *permission.Caller) ([]AccountResponse, error) {
	if err := permission.Require(caller, permission.ManagerAndSuperuser); err != nil {
		return nil, err
	}

	accounts, err := s.accountRepo.ListByCreator(ctx, caller.AccountID)
	if err != nil {
		return nil, err
	}
	return ToAccountResponses(accounts), nil
}

func (s *Service) ListAll(ctx context.Context, caller *permission.Caller) ([]AccountResponse, error) {
	if err := permission.Require(caller, permission.SuperuserOnly); err != nil {
		return nil, err
	}

	accounts, err := s.accountRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return ToAccountResponses(accounts), nil
}

func (s *Service) Profile(ctx context.Context, caller *permission.Caller, accountID uuid.UUID) (*AccountResponse, error) {
	if err := permission.Require(caller, permission.StaffAndSuperuser); err != nil {
		return nil, err
	}

	target, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := permission.Check(caller, permission.CanManageAccount(caller, target)); err != nil {
		return nil, err
	}
	return ToAccountResponse(target), nil
}

func (s *Service) History(ctx context.Context, caller *permission.Caller, accountID uuid.UUID) ([]HistoryResponse, error) {
	if err := permission.Require(caller, permission.SuperuserOnly); err != nil {
		return nil, err
	}
	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	entries, err := s.accountRepo.ListHistory(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryResponse, len(entries))
	for i, h := range entries {
		out[i] = ToHistoryResponse(h)
	}
	return out, nil
}

// defaultRole loads a seeded role. A missing default is a server fault.
func (s *Service) defaultRole(ctx context.Context, name string) (*domainRole.Role, error) {
	r, err := s.roleRepo.GetByName(ctx, name)
	if errors.Is(err, domainRole.ErrRoleNotFound) {
		logger.Error("Default role missing",
			zap.String("role", name),
			logger.Event("default_role_missing"),
		)
		return nil, domainRole.ErrDefaultRoleMissing.WithDetail("default role %s is missing", name)
	}
	return r, err
}
