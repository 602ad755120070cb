package service

import (
	"context"

	"github.com/fitloop/backend-auth/internal/domain"
	"github.com/fitloop/backend-auth/internal/repository"
	"github.com/fitloop/backend-auth/pkg/logger"
	"github.com/fitloop/backend-auth/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// RoleService is the single privileged write path for the user -> role
// mapping. Authorization decisions are made against the persisted roles,
// never against caller-supplied claims.
type RoleService interface {
	// AssignRole validates and writes a role mapping. targetUserID may be
	// empty for self-assignment. Returns the assigned role on success.
	AssignRole(ctx context.Context, callerID string, role domain.Role, targetUserID string) (domain.Role, error)
	// ResolveRole returns the role assigned to a user, RoleNone when unset
	ResolveRole(ctx context.Context, userID string) (domain.Role, error)
}

// roleService implements RoleService
type roleService struct {
	roleRepo   repository.RoleRepository
	rosterRepo repository.RosterRepository
	log        *logger.Logger
}

// NewRoleService creates a new RoleService
func NewRoleService(roleRepo repository.RoleRepository, rosterRepo repository.RosterRepository) RoleService {
	return &roleService{
		roleRepo:   roleRepo,
		rosterRepo: rosterRepo,
		log:        logger.Get(),
	}
}

// AssignRole validates and writes a role mapping.
//
// Rules, checked in order:
//  1. role must be one of admin, coach, client.
//  2. Assigning to another user requires the caller to hold admin.
//  3. Self-assignment is one-time-only: an existing row fails with
//     ErrAlreadyAssigned. Changes after that go through an admin.
func (s *roleService) AssignRole(ctx context.Context, callerID string, role domain.Role, targetUserID string) (domain.Role, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.role.assign")
	defer span.End()

	span.SetAttributes(
		attribute.String("caller_id", callerID),
		attribute.String("role", string(role)),
	)

	if !domain.ValidRole(role) {
		span.SetStatus(codes.Error, "invalid role")
		return domain.RoleNone, domain.ErrInvalidRole
	}

	if targetUserID != "" && targetUserID != callerID {
		callerRole, err := s.roleRepo.GetByUserID(ctx, callerID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return domain.RoleNone, err
		}
		if callerRole == nil || callerRole.Role != domain.RoleAdmin {
			span.SetStatus(codes.Error, "forbidden")
			return domain.RoleNone, domain.ErrForbidden
		}
	}

	target := targetUserID
	if target == "" {
		target = callerID

		// Self-service role selection happens exactly once, at onboarding
		exists, err := s.roleRepo.Exists(ctx, target)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return domain.RoleNone, err
		}
		if exists {
			span.SetStatus(codes.Error, "already assigned")
			return domain.RoleNone, domain.ErrAlreadyAssigned
		}
	}

	span.SetAttributes(attribute.String("target_id", target))

	if err := s.roleRepo.Upsert(ctx, &domain.RoleAssignment{UserID: target, Role: role}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.RoleNone, err
	}

	// The role row is the authoritative success signal. Auxiliary roster
	// provisioning is best effort here; the reconciler re-provisions any
	// record missed in this step.
	s.provisionRoster(ctx, target, role)

	span.SetStatus(codes.Ok, "")
	return role, nil
}

// ResolveRole returns the role assigned to a user, RoleNone when unset
func (s *roleService) ResolveRole(ctx context.Context, userID string) (domain.Role, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.role.resolve")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	assignment, err := s.roleRepo.GetByUserID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.RoleNone, err
	}

	span.SetStatus(codes.Ok, "")
	if assignment == nil {
		return domain.RoleNone, nil
	}
	return assignment.Role, nil
}

func (s *roleService) provisionRoster(ctx context.Context, userID string, role domain.Role) {
	var err error
	switch role {
	case domain.RoleCoach:
		err = s.rosterRepo.UpsertCoach(ctx, userID)
	case domain.RoleClient:
		err = s.rosterRepo.UpsertClient(ctx, userID)
	default:
		return
	}
	if err != nil {
		s.log.Error("roster provisioning failed, reconciler will retry",
			logger.String("user_id", userID),
			logger.String("role", string(role)),
			logger.Err(err),
		)
	}
}
