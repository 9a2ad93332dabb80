package service

import (
	"context"
	"encoding/json"
	"fmt"

	"backoffice/internal/model"
	"backoffice/internal/repository"

	"github.com/google/uuid"
)

// recordAudit writes an audit entry through ctx, so inside RunInTx it
// commits or rolls back with the change it describes.
func recordAudit(ctx context.Context, repo repository.AuditRepository, actor Actor, companyID *uuid.UUID, action, entityID, entityName string, details interface{}) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	entry := &model.AuditLog{
		UserID:     actor.UserID,
		CompanyID:  companyID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(raw),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
