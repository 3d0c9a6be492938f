package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/SscSPs/procureflow/internal/core/pipeline"
	portsrepo "github.com/SscSPs/procureflow/internal/core/ports/repositories"
	"github.com/SscSPs/procureflow/internal/dto"
	"github.com/SscSPs/procureflow/internal/utils/pagination"
)

const OpAuditLogList = "audit_log.list"

const defaultAuditPageSize = 50

// AuditService exposes the audit trail of one entity to tenant admins.
type AuditService struct {
	BaseService
	repo portsrepo.AuditLogReader
}

func NewAuditService(base BaseService, repo portsrepo.AuditLogReader) *AuditService {
	return &AuditService{BaseService: base, repo: repo}
}

func (s *AuditService) Register(reg *pipeline.Registry) {
	pipeline.MustRegister(reg, pipeline.Handler[dto.ListAuditLog, dto.AuditLogPage]{
		Type: OpAuditLogList,
		Kind: pipeline.KindQuery,
		Authorize: func(_ context.Context, actor domain.Actor, _ dto.ListAuditLog) (domain.BoundaryDecision, error) {
			if actor.TenantID == "" || !actor.HasRole(domain.RoleAdmin) {
				return domain.Deny("only an admin can read the audit log"), nil
			}
			return domain.Allow(), nil
		},
		Handle: s.list,
	})
}

// list returns the entity's entries of the actor's tenant, oldest first, resuming after
// PageToken.
func (s *AuditService) list(ctx context.Context, p dto.ListAuditLog) (dto.AuditLogPage, error) {
	actor, err := s.CurrentActor(ctx)
	if err != nil {
		return dto.AuditLogPage{}, err
	}
	limit := p.Limit
	if limit <= 0 {
		limit = defaultAuditPageSize
	}

	var (
		hasCursor bool
		cursorAt  time.Time
		cursorID  string
	)
	if p.PageToken != "" {
		cursorAt, cursorID, err = pagination.DecodeToken(p.PageToken)
		if err != nil {
			return dto.AuditLogPage{}, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		}
		hasCursor = true
	}

	entries, err := s.repo.ListAuditLogEntries(ctx, p.EntityType, p.EntityID)
	if err != nil {
		s.logFailure(ctx, err, "Failed to list audit log",
			slog.String("entity_type", p.EntityType),
			slog.String("entity_id", p.EntityID))
		return dto.AuditLogPage{}, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TimestampUTC.Equal(entries[j].TimestampUTC) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].TimestampUTC.Before(entries[j].TimestampUTC)
	})

	page := dto.AuditLogPage{Entries: []dto.AuditLogEntryView{}}
	for _, e := range entries {
		if e.TenantID == nil || *e.TenantID != actor.TenantID {
			continue
		}
		if hasCursor && !pagination.After(e.TimestampUTC, e.ID, cursorAt, cursorID) {
			continue
		}
		if len(page.Entries) == limit {
			last := page.Entries[limit-1]
			page.NextPageToken = pagination.EncodeToken(last.TimestampUTC, last.ID)
			break
		}
		page.Entries = append(page.Entries, dto.ToAuditLogEntryView(e))
	}
	return page, nil
}
