package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/internal/token"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateUserRequest struct {
	Username  string     `json:"username" binding:"required,max=255"`
	Email     string     `json:"email" binding:"required,email"`
	Password  string     `json:"password" binding:"required,min=6"`
	Role      string     `json:"role" binding:"required,oneof=admin manager staff"`
	CompanyID *uuid.UUID `json:"companyId"`
}

// DTO for returning User without exposing the password hash
type UserResponse struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	CompanyID *uuid.UUID `json:"companyId"`
	CreatedAt time.Time  `json:"createdAt"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// AuthService signs users in and manages accounts.
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Me(ctx context.Context, actor Actor) (*UserResponse, error)
	CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResponse, error)
}

type authService struct {
	users     repository.UserRepository
	companies repository.CompanyRepository
	tokens    *token.Manager
}

func NewAuthService(users repository.UserRepository, companies repository.CompanyRepository, tokens *token.Manager) AuthService {
	return &authService{users: users, companies: companies, tokens: tokens}
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	signed, expiresAt, err := s.tokens.Issue(user.ID, user.Role, user.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &LoginResponse{Token: signed, ExpiresAt: expiresAt, User: toUserResponse(user)}, nil
}

func (s *authService) Me(ctx context.Context, actor Actor) (*UserResponse, error) {
	if actor.UserID == nil {
		return nil, ErrNotFound
	}
	user, err := s.users.GetByID(ctx, *actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	res := toUserResponse(user)
	return &res, nil
}

// CreateUser registers an account. Admins create anyone; managers only staff
// and managers of their own company. Company users must name a company and
// admins must not.
func (s *authService) CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResponse, error) {
	if !model.ValidRole(req.Role) {
		return nil, ErrInvalidRole
	}

	companyID := req.CompanyID
	if !actor.IsAdmin() {
		if actor.Role != model.RoleManager || req.Role == model.RoleAdmin {
			return nil, ErrForbidden
		}
		if companyID == nil {
			companyID = actor.CompanyID
		}
		if !actor.CanWrite(companyID) {
			return nil, ErrForbidden
		}
	}

	switch {
	case req.Role == model.RoleAdmin:
		companyID = nil
	case companyID == nil:
		return nil, ErrCompanyRequired
	default:
		if _, err := s.companies.FindByID(ctx, *companyID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("failed to fetch company: %w", err)
		}
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.users.ExistsByEmailOrUsername(ctx, email, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check user uniqueness: %w", err)
	}
	if exists {
		return nil, ErrConflict
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		CompanyID: companyID,
		Username:  strings.TrimSpace(req.Username),
		Email:     email,
		Password:  string(hashed),
		Role:      req.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	res := toUserResponse(user)
	return &res, nil
}

func toUserResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CompanyID: user.CompanyID,
		CreatedAt: user.CreatedAt,
	}
}
