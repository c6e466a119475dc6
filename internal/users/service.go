package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lavish-fashion/lavish-backend/pkg/config"
	"github.com/lavish-fashion/lavish-backend/pkg/enums"
	pkgerrors "github.com/lavish-fashion/lavish-backend/pkg/errors"
	"github.com/lavish-fashion/lavish-backend/pkg/pagination"
	"github.com/lavish-fashion/lavish-backend/pkg/security"
	"github.com/lavish-fashion/lavish-backend/pkg/types"
)

// Service covers profile self-service and admin account management.
type Service interface {
	Profile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error
	AdminList(ctx context.Context, input AdminListInput) (*types.Page[UserDTO], error)
	SetRole(ctx context.Context, actorRole enums.UserRole, userID uuid.UUID, role enums.UserRole) (*UserDTO, error)
	SetActive(ctx context.Context, actorID, userID uuid.UUID, active bool) (*UserDTO, error)
}

type service struct {
	repo     Repository
	password config.PasswordConfig
}

// NewService builds the users service.
func NewService(repo Repository, password config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo, password: password}, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "load user")
	}
	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if phone == "" {
			user.Phone = nil
		} else {
			user.Phone = &phone
		}
	}
	if input.DefaultAddress != nil {
		addr := input.DefaultAddress.Normalized()
		user.DefaultAddress = &addr
	}
	if user.FirstName == "" || user.LastName == "" {
		return nil, pkgerrors.Fields("invalid profile", pkgerrors.FieldError{Field: "firstName", Message: "name must not be blank"})
	}
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return FromModel(user), nil
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return notFoundOr(err, "load user")
	}
	ok, err := security.VerifyPassword(input.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return pkgerrors.Fields("invalid password", pkgerrors.FieldError{Field: "currentPassword", Message: "is incorrect"})
	}
	if err := security.ValidatePassword(input.NewPassword, s.password); err != nil {
		return pkgerrors.Fields("weak password", pkgerrors.FieldError{Field: "newPassword", Message: err.Error()})
	}
	hash, err := security.HashPassword(input.NewPassword, s.password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	return nil
}

func (s *service) AdminList(ctx context.Context, input AdminListInput) (*types.Page[UserDTO], error) {
	q := ListQuery{
		Search:     input.Search,
		Pagination: pagination.Params{Page: input.Page, Limit: input.Limit}.Normalize(),
	}
	if raw := strings.TrimSpace(input.Role); raw != "" {
		role, err := enums.ParseUserRole(raw)
		if err != nil {
			return nil, pkgerrors.Fields("invalid role", pkgerrors.FieldError{Field: "role", Message: err.Error()})
		}
		q.Role = &role
	}
	rows, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	items := make([]UserDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return &types.Page[UserDTO]{
		Items:      items,
		Page:       q.Pagination.Page,
		Limit:      q.Pagination.Limit,
		Total:      total,
		TotalPages: pagination.TotalPages(total, q.Pagination.Limit),
	}, nil
}

// SetRole is restricted to superadmins.
func (s *service) SetRole(ctx context.Context, actorRole enums.UserRole, userID uuid.UUID, role enums.UserRole) (*UserDTO, error) {
	if actorRole != enums.UserRoleSuperAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only superadmins can change roles")
	}
	if !role.IsValid() {
		return nil, pkgerrors.Fields("invalid role", pkgerrors.FieldError{Field: "role", Message: "unsupported role"})
	}
	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		return nil, notFoundOr(err, "load user")
	}
	if err := s.repo.SetRole(ctx, userID, role); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set role")
	}
	return s.Profile(ctx, userID)
}

func (s *service) SetActive(ctx context.Context, actorID, userID uuid.UUID, active bool) (*UserDTO, error) {
	if actorID == userID && !active {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "cannot deactivate your own account")
	}
	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		return nil, notFoundOr(err, "load user")
	}
	if err := s.repo.SetActive(ctx, userID, active); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set active")
	}
	return s.Profile(ctx, userID)
}

func notFoundOr(err error, step string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, step)
}
