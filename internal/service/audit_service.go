package service

import (
	"context"
	"fmt"
	"time"

	"backoffice/internal/repository"
	"backoffice/pkg/pagination"

	"github.com/google/uuid"
)

type AuditLogResponse struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Username   string     `json:"username"`
	CompanyID  *uuid.UUID `json:"companyId"`
	Action     string     `json:"action"`
	EntityID   string     `json:"entityId"`
	EntityName string     `json:"entityName"`
	Details    string     `json:"details"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type AuditService interface {
	List(ctx context.Context, actor Actor, companyID *uuid.UUID, page pagination.Params) ([]AuditLogResponse, pagination.Meta, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// List returns the newest entries first. Admins see everything unless they
// filter by company; managers see their own company only.
func (s *auditService) List(ctx context.Context, actor Actor, companyID *uuid.UUID, page pagination.Params) ([]AuditLogResponse, pagination.Meta, error) {
	filter := companyID
	if !actor.IsAdmin() {
		owner, err := actor.CompanyScope(companyID)
		if err != nil {
			return nil, pagination.Meta{}, err
		}
		if !actor.CanWrite(&owner) {
			return nil, pagination.Meta{}, ErrForbidden
		}
		filter = &owner
	}

	page = pagination.New(page.Page, page.Limit)
	logs, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("failed to list audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		userID := ""
		if l.User != nil {
			username = l.User.Username
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Username:   username,
			CompanyID:  l.CompanyID,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt,
		})
	}
	return res, page.Meta(total), nil
}
