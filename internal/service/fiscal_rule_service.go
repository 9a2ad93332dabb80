package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"backoffice/internal/fiscal"
	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/pkg/pagination"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type RuleListQuery struct {
	CompanyID *uuid.UUID
	UF        string
	Regime    string
	Mode      string
	Page      pagination.Params
}

type RuleResponse struct {
	fiscal.StoredRule
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ImportRequest struct {
	Rules []fiscal.Draft `json:"rules" binding:"required,min=1"`
}

type ImportResult struct {
	Imported int            `json:"imported"`
	Rules    []RuleResponse `json:"rules"`
}

// --- Interface ---

type FiscalRuleService interface {
	List(ctx context.Context, actor Actor, q RuleListQuery) ([]RuleResponse, pagination.Meta, error)
	Get(ctx context.Context, actor Actor, id string) (*RuleResponse, error)
	Create(ctx context.Context, actor Actor, draft fiscal.Draft) (*RuleResponse, error)
	Update(ctx context.Context, actor Actor, id string, draft fiscal.Draft) (*RuleResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
	Validate(draft fiscal.Draft) fiscal.ValidationResult
	Import(ctx context.Context, actor Actor, drafts []fiscal.Draft) (*ImportResult, error)
}

type fiscalRuleService struct {
	repo        repository.FiscalRuleRepository
	companies   repository.CompanyRepository
	audit       repository.AuditRepository
	txManager   repository.TransactionManager
	validator   *fiscal.Validator
	invalidator RuleInvalidator
	events      EventBroadcaster
	logger      *zap.Logger
}

// NewFiscalRuleService wires the rule write path. invalidator and events may
// be nil when no cache or websocket hub is running, e.g. from the CLI.
func NewFiscalRuleService(
	repo repository.FiscalRuleRepository,
	companies repository.CompanyRepository,
	audit repository.AuditRepository,
	txManager repository.TransactionManager,
	validator *fiscal.Validator,
	invalidator RuleInvalidator,
	events EventBroadcaster,
	logger *zap.Logger,
) FiscalRuleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &fiscalRuleService{
		repo:        repo,
		companies:   companies,
		audit:       audit,
		txManager:   txManager,
		validator:   validator,
		invalidator: invalidator,
		events:      events,
		logger:      logger.Named("fiscal_rules"),
	}
}

// --- Implementation ---

func (s *fiscalRuleService) List(ctx context.Context, actor Actor, q RuleListQuery) ([]RuleResponse, pagination.Meta, error) {
	scope, err := actor.Scope(q.CompanyID)
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	page := pagination.New(q.Page.Page, q.Page.Limit)
	rows, total, err := s.repo.List(ctx, repository.RuleFilter{
		Scope:  scope,
		UF:     strings.ToUpper(strings.TrimSpace(q.UF)),
		Regime: strings.ToUpper(strings.TrimSpace(q.Regime)),
		Mode:   strings.ToUpper(strings.TrimSpace(q.Mode)),
		Page:   page,
	})
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("failed to list fiscal rules: %w", err)
	}

	res := make([]RuleResponse, 0, len(rows))
	for i := range rows {
		res = append(res, toRuleResponse(&rows[i]))
	}
	return res, page.Meta(total), nil
}

func (s *fiscalRuleService) Get(ctx context.Context, actor Actor, id string) (*RuleResponse, error) {
	row, err := s.findVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	res := toRuleResponse(row)
	return &res, nil
}

func (s *fiscalRuleService) Create(ctx context.Context, actor Actor, draft fiscal.Draft) (*RuleResponse, error) {
	owner, err := s.ownerFor(actor, draft.CompanyID)
	if err != nil {
		return nil, err
	}
	draft.CompanyID = owner
	draft.ID = uuid.Nil

	rule, err := s.validator.Build(draft)
	if err != nil {
		return nil, err
	}
	if err := s.requireCompany(ctx, owner, "companyId"); err != nil {
		return nil, err
	}

	row := model.NewFiscalRule(rule)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, row); err != nil {
			return fmt.Errorf("failed to create fiscal rule: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, row.CompanyID, model.ActionCreateFiscalRule, row.ID.String(), ruleLabel(row), row.Stored())
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, newRuleEvent(EventRuleCreated, row))
	res := toRuleResponse(row)
	return &res, nil
}

// Update replaces every field of the rule; id and creation time are kept.
func (s *fiscalRuleService) Update(ctx context.Context, actor Actor, id string, draft fiscal.Draft) (*RuleResponse, error) {
	existing, err := s.findVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanWrite(existing.CompanyID) {
		return nil, ErrForbidden
	}

	requested := draft.CompanyID
	if requested == nil && actor.IsAdmin() {
		// An omitted companyId keeps the current owner; a rule never turns
		// platform-wide by accident.
		requested = existing.CompanyID
	}
	owner, err := s.ownerFor(actor, requested)
	if err != nil {
		return nil, err
	}
	if !sameOwner(owner, existing.CompanyID) && existing.CompanyID != nil {
		return nil, &fiscal.ValidationError{Violations: []fiscal.Violation{{Field: "companyId", Message: "cannot move a company rule to another owner"}}}
	}
	draft.CompanyID = owner
	draft.ID = existing.ID

	rule, err := s.validator.Build(draft)
	if err != nil {
		return nil, err
	}
	if err := s.requireCompany(ctx, owner, "companyId"); err != nil {
		return nil, err
	}

	row := model.NewFiscalRule(rule)
	row.CreatedAt = existing.CreatedAt
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, row); err != nil {
			return fmt.Errorf("failed to update fiscal rule: %w", err)
		}
		details := map[string]interface{}{"before": existing.Stored(), "after": row.Stored()}
		return recordAudit(txCtx, s.audit, actor, row.CompanyID, model.ActionUpdateFiscalRule, row.ID.String(), ruleLabel(row), details)
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, newRuleEvent(EventRuleUpdated, row))
	res := toRuleResponse(row)
	return &res, nil
}

func (s *fiscalRuleService) Delete(ctx context.Context, actor Actor, id string) error {
	existing, err := s.findVisible(ctx, actor, id)
	if err != nil {
		return err
	}
	if !actor.CanWrite(existing.CompanyID) {
		return ErrForbidden
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, existing.ID); err != nil {
			return fmt.Errorf("failed to delete fiscal rule: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, existing.CompanyID, model.ActionDeleteFiscalRule, existing.ID.String(), ruleLabel(existing), existing.Stored())
	})
	if err != nil {
		return err
	}

	s.afterWrite(ctx, newRuleEvent(EventRuleDeleted, existing))
	return nil
}

func (s *fiscalRuleService) Validate(draft fiscal.Draft) fiscal.ValidationResult {
	return s.validator.Validate(draft)
}

// Import validates every draft first and persists nothing unless all of them
// pass. Violations are reported with the draft's position, e.g. rules[2].uf.
func (s *fiscalRuleService) Import(ctx context.Context, actor Actor, drafts []fiscal.Draft) (*ImportResult, error) {
	if len(drafts) == 0 {
		return nil, &fiscal.ValidationError{Violations: []fiscal.Violation{{Field: "rules", Message: "rules must not be empty"}}}
	}

	var violations []fiscal.Violation
	rows := make([]*model.FiscalRule, 0, len(drafts))
	for i, draft := range drafts {
		prefix := fmt.Sprintf("rules[%d].", i)

		owner, err := s.ownerFor(actor, draft.CompanyID)
		if err != nil {
			return nil, err
		}
		draft.CompanyID = owner
		draft.ID = uuid.Nil

		if err := s.requireCompany(ctx, owner, prefix+"companyId"); err != nil {
			if verr, ok := fiscal.AsValidationError(err); ok {
				violations = append(violations, verr.Violations...)
				continue
			}
			return nil, err
		}

		res := s.validator.Validate(draft)
		if !res.Valid() {
			for _, v := range res.Violations {
				violations = append(violations, fiscal.Violation{Field: prefix + v.Field, Message: v.Message})
			}
			continue
		}

		rule, err := s.validator.Build(draft)
		if err != nil {
			return nil, err
		}
		rows = append(rows, model.NewFiscalRule(rule))
	}
	if len(violations) > 0 {
		return nil, &fiscal.ValidationError{Violations: violations}
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ids := make([]string, 0, len(rows))
		for _, row := range rows {
			if err := s.repo.Create(txCtx, row); err != nil {
				return fmt.Errorf("failed to import fiscal rule %s/%s: %w", row.UF, row.Regime, err)
			}
			ids = append(ids, row.ID.String())
		}
		details := map[string]interface{}{"count": len(rows), "ruleIds": ids}
		return recordAudit(txCtx, s.audit, actor, actor.CompanyID, model.ActionImportFiscalRules, "", fmt.Sprintf("%d rules", len(rows)), details)
	})
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Imported: len(rows), Rules: make([]RuleResponse, 0, len(rows))}
	events := make([]RuleEvent, 0, len(rows))
	for _, row := range rows {
		result.Rules = append(result.Rules, toRuleResponse(row))
		events = append(events, newRuleEvent(EventRuleCreated, row))
	}
	s.afterWrite(ctx, events...)
	return result, nil
}

// --- Helpers ---

// findVisible loads a rule the actor is allowed to see. Rules of other
// companies are reported as missing.
func (s *fiscalRuleService) findVisible(ctx context.Context, actor Actor, id string) (*model.FiscalRule, error) {
	ruleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fiscal.ErrInvalidRuleID
	}

	row, err := s.repo.FindByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiscal.ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to fetch fiscal rule: %w", err)
	}
	if !actor.CanSee(row.CompanyID) {
		return nil, fiscal.ErrRuleNotFound
	}
	return row, nil
}

// ownerFor decides which company a written rule belongs to. Managers always
// write for their own company; admins write platform rules unless they name one.
func (s *fiscalRuleService) ownerFor(actor Actor, requested *uuid.UUID) (*uuid.UUID, error) {
	if actor.IsAdmin() {
		return requested, nil
	}
	if actor.Role != model.RoleManager || actor.CompanyID == nil {
		return nil, ErrForbidden
	}
	if requested != nil && *requested != *actor.CompanyID {
		return nil, ErrForbidden
	}
	owner := *actor.CompanyID
	return &owner, nil
}

func sameOwner(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *fiscalRuleService) requireCompany(ctx context.Context, id *uuid.UUID, field string) error {
	if id == nil {
		return nil
	}
	if _, err := s.companies.FindByID(ctx, *id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &fiscal.ValidationError{Violations: []fiscal.Violation{{Field: field, Message: "company does not exist"}}}
		}
		return fmt.Errorf("failed to fetch company: %w", err)
	}
	return nil
}

// afterWrite runs once the transaction committed. Failing to bump the cache
// generation leaves stale candidates for at most the cache TTL, so it is
// logged rather than returned.
func (s *fiscalRuleService) afterWrite(ctx context.Context, events ...RuleEvent) {
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			s.logger.Error("Failed to invalidate fiscal rule cache", zap.Error(err))
		}
	}
	if s.events != nil {
		for _, e := range events {
			s.events.BroadcastJSON(e)
		}
	}
}

func toRuleResponse(row *model.FiscalRule) RuleResponse {
	return RuleResponse{StoredRule: row.Stored(), CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt}
}

func ruleLabel(row *model.FiscalRule) string {
	return fmt.Sprintf("%s/%s/%s p%s", row.UF, row.Regime, row.Mode, row.Priority.String())
}
