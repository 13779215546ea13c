package role

import (
	"context"
	"errors"
	"strings"

	domainRole "device-fleet-manager/internal/domain/role"
	"device-fleet-manager/internal/logger"
	"device-fleet-manager/internal/permission"
	appErrors "device-fleet-manager/pkg/errors"
	"device-fleet-manager/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service manages the role catalogue. Default roles are read-only.
type Service struct {
	roleRepo domainRole.Repository
}

func NewService(roleRepo domainRole.Repository) *Service {
	return &Service{roleRepo: roleRepo}
}

func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func (s *Service) List(ctx context.Context, caller *permission.Caller) ([]RoleResponse, error) {
	if caller == nil {
		return nil, appErrors.ErrAuthenticationRequired
	}

	roles, err := s.roleRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RoleResponse, len(roles))
	for i, r := range roles {
		out[i] = *ToRoleResponse(r)
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, caller *permission.Caller, req *RoleRequest) (*RoleResponse, error) {
	if err := permission.Require(caller, permission.SuperuserOnly); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewValidationError(err)
	}

	r := &domainRole.Role{Name: normalize(req.Name)}
	if err := s.roleRepo.Create(ctx, r); err != nil {
		return nil, err
	}

	logger.Info("Role created",
		zap.String("role_id", r.ID.String()),
		zap.String("name", r.Name),
		logger.Event("role_created"),
	)
	return ToRoleResponse(r), nil
}

func (s *Service) Update(ctx context.Context, caller *permission.Caller, roleID uuid.UUID, req *RoleRequest) (*RoleResponse, error) {
	if err := permission.Require(caller, permission.SuperuserOnly); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewValidationError(err)
	}

	r, err := s.roleRepo.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if domainRole.IsDefault(r.Name) {
		return nil, domainRole.ErrDefaultRoleProtected
	}

	name := normalize(req.Name)
	if err := s.roleRepo.Rename(ctx, r.ID, name); err != nil {
		return nil, err
	}
	r.Name = name

	logger.Info("Role renamed",
		zap.String("role_id", r.ID.String()),
		zap.String("name", name),
		logger.Event("role_updated"),
	)
	return ToRoleResponse(r), nil
}

func (s *Service) Delete(ctx context.Context, caller *permission.Caller, roleID uuid.UUID) error {
	if err := permission.Require(caller, permission.SuperuserOnly); err != nil {
		return err
	}

	r, err := s.roleRepo.GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	if domainRole.IsDefault(r.Name) {
		return domainRole.ErrDefaultRoleProtected
	}

	inUse, err := s.roleRepo.CountAccounts(ctx, r.ID)
	if err != nil {
		return err
	}
	if inUse > 0 {
		return domainRole.ErrRoleInUse
	}

	if err := s.roleRepo.Delete(ctx, r.ID); err != nil {
		return err
	}

	logger.Info("Role deleted",
		zap.String("role_id", r.ID.String()),
		zap.String("name", r.Name),
		logger.Event("role_deleted"),
	)
	return nil
}

// EnsureDefaults creates any missing default role.
func (s *Service) EnsureDefaults(ctx context.Context) error {
	for _, name := range domainRole.DefaultNames {
		_, err := s.roleRepo.GetByName(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, domainRole.ErrRoleNotFound) {
			return err
		}
		if err := s.roleRepo.Create(ctx, &domainRole.Role{Name: name}); err != nil && !errors.Is(err, domainRole.ErrRoleAlreadyExists) {
			return err
		}
		logger.Info("Default role created",
			zap.String("name", name),
			logger.Event("role_seeded"),
		)
	}
	return nil
}
