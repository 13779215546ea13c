package agent

import (
	"context"
	"errors"

	domainAccount "device-fleet-manager/internal/domain/account"
	domainAgent "device-fleet-manager/internal/domain/agent"
	domainDevice "device-fleet-manager/internal/domain/device"
	domainEmail "device-fleet-manager/internal/domain/email"
	domainRole "device-fleet-manager/internal/domain/role"
	"device-fleet-manager/internal/logger"
	"device-fleet-manager/internal/notification"
	"device-fleet-manager/internal/permission"
	"device-fleet-manager/internal/usecase/account"
	"device-fleet-manager/internal/usecase/device"
	appErrors "device-fleet-manager/pkg/errors"
	"device-fleet-manager/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service implements agent use cases
type Service struct {
	agentRepo   domainAgent.Repository
	accountRepo domainAccount.Repository
	roleRepo    domainRole.Repository
	deviceRepo  domainDevice.Repository
	notifier    notification.Notifier
}

func NewService(
	agentRepo domainAgent.Repository,
	accountRepo domainAccount.Repository,
	roleRepo domainRole.Repository,
	deviceRepo domainDevice.Repository,
	notifier notification.Notifier,
) *Service {
	return &Service{
		agentRepo:   agentRepo,
		accountRepo: accountRepo,
		roleRepo:    roleRepo,
		deviceRepo:  deviceRepo,
		notifier:    notifier,
	}
}

// CreateAgent creates the agency and its owner account with role AGENT.
// Every uniqueness check runs before anything is written.
func (s *Service) CreateAgent(ctx context.Context, caller *permission.Caller, req *CreateAgentRequest) (*CreateAgentResponse, error) {
	if err := permission.Require(caller, permission.SuperuserOnly); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewValidationError(err)
	}

	agentRole, err := s.roleRepo.GetByName(ctx, domainRole.Agent)
	if err != nil {
		if errors.Is(err, domainRole.ErrRoleNotFound) {
			return nil, domainRole.ErrDefaultRoleMissing.WithDetail("default role %s is missing", domainRole.Agent)
		}
		return nil, err
	}

	name := utils.SanitizeString(req.Name)
	email := utils.SanitizeEmail(req.Email)
	if err := s.checkUnique(ctx, name, email); err != nil {
		return nil, err
	}

	creatorID := caller.AccountID
	owner, err := account.BuildAccount(&req.Owner, agentRole.ID, nil, &creatorID)
	if err != nil {
		return nil, err
	}
	if err := account.CheckUnique(ctx, s.accountRepo, owner.Email, owner.LasrraID, owner.Phone); err != nil {
		return nil, err
	}

	agent := &domainAgent.Agent{
		Name:        name,
		Email:       email,
		Address:     utils.SanitizeString(req.Address),
		RoleID:      agentRole.ID,
		CreatedByID: &creatorID,
	}
	if err := s.agentRepo.Create(ctx, agent); err != nil {
		return nil, err
	}

	agentID := agent.ID
	owner.AgentID = &agentID
	if err := s.accountRepo.Create(ctx, owner); err != nil {
		return nil, err
	}
	owner.Role = agentRole

	s.notifier.SendEmail(domainEmail.TemplateCreateAccount, map[string]interface{}{
		"name": owner.FullName(),
	}, owner.Email)

	logger.Info("Agent created",
		zap.String("agent_id", agent.ID.String()),
		zap.String("owner_id", owner.ID.String()),
		zap.String("creator_id", creatorID.String()),
		logger.Event("agent_created"),
	)

	return &CreateAgentResponse{
		Agent: ToAgentResponse(agent),
		Owner: account.ToAccountResponse(owner),
	}, nil
}

func (s *Service) checkUnique(ctx context.Context, name, email string) error {
	if _, err := s.agentRepo.GetByName(ctx, name); err == nil {
		return domainAgent.ErrAgentAlreadyExists.WithDetail("agent with name %s already exists", name)
	} else if !errors.Is(err, domainAgent.ErrAgentNotFound) {
		return err
	}

	if _, err := s.agentRepo.GetByEmail(ctx, email); err == nil {
		return domainAgent.ErrAgentAlreadyExists.WithDetail("agent with email %s already exists", email)
	} else if !errors.Is(err, domainAgent.ErrAgentNotFound) {
		return err
	}
	return nil
}

func (s *Service) ListAgents(ctx context.Context, caller *permission.Caller) ([]AgentResponse, error) {
	if err := permission.Require(caller, permission.SuperuserOnly); err != nil {
		return nil, err
	}

	agents, err := s.agentRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AgentResponse, len(agents))
	for i, a := range agents {
		out[i] = *ToAgentResponse(a)
	}
	return out, nil
}

// AgentProfile returns the agency with its owner, staff and devices.
func (s *Service) AgentProfile(ctx context.Context, caller *permission.Caller, agentID uuid.UUID) (*AgentProfileResponse, error) {
	if err := permission.Require(caller, permission.StaffAndSuperuser); err != nil {
		return nil, err
	}

	agent, err := s.agentRepo.GetByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if err := permission.Check(caller, permission.CanViewAgent(caller, agent.ID)); err != nil {
		return nil, err
	}

	members, err := s.accountRepo.ListByAgent(ctx, agent.ID)
	if err != nil {
		return nil, err
	}
	devices, err := s.deviceRepo.ListByAgent(ctx, agent.ID)
	if err != nil {
		return nil, err
	}

	resp := &AgentProfileResponse{
		Agent:     ToAgentResponse(agent),
		Employees: make([]account.AccountResponse, 0, len(members)),
		Devices:   device.ToDeviceResponses(devices),
	}
	for _, m := range members {
		if m.RoleName() == domainRole.Agent && resp.Owner == nil {
			resp.Owner = account.ToAccountResponse(m)
			continue
		}
		resp.Employees = append(resp.Employees, *account.ToAccountResponse(m))
	}
	return resp, nil
}
