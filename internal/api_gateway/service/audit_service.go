package service

import (
	"context"

	"github.com/fleet-diesel-ledger/internal/domain/audit"
)

// AuditServiceImpl implements the AuditService interface over the Mongo
// audit trail
type AuditServiceImpl struct {
	auditRepo audit.Repository
}

// NewAuditService creates a new audit service
func NewAuditService(auditRepo audit.Repository) AuditService {
	return &AuditServiceImpl{
		auditRepo: auditRepo,
	}
}

// ListEntries retrieves a page of the audit trail with the total count
func (s *AuditServiceImpl) ListEntries(ctx context.Context, entity, entityID string, page, perPage int) ([]*audit.Entry, int64, error) {
	offset := (page - 1) * perPage

	if entity != "" {
		entries, err := s.auditRepo.ListByEntity(ctx, entity, entityID, perPage, offset)
		if err != nil {
			return nil, 0, err
		}
		return entries, int64(len(entries)), nil
	}

	entries, err := s.auditRepo.List(ctx, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.auditRepo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
