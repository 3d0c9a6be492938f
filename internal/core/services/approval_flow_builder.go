package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	portsrepo "github.com/SscSPs/procureflow/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/procureflow/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

// approvalFlowBuilder binds each step required by the policy to a concrete approver: the
// first holder of the step role by user id, skipping the requester.
type approvalFlowBuilder struct {
	BaseService
	directory portsrepo.UserDirectoryReader
	policy    domain.ApprovalPolicy
}

// NewApprovalFlowBuilder creates the purchase request flow builder.
func NewApprovalFlowBuilder(base BaseService, directory portsrepo.UserDirectoryReader, policy domain.ApprovalPolicy) portssvc.ApprovalFlowBuilderSvc {
	return &approvalFlowBuilder{BaseService: base, directory: directory, policy: policy}
}

var _ portssvc.ApprovalFlowBuilderSvc = (*approvalFlowBuilder)(nil)

func (b *approvalFlowBuilder) BuildFlow(ctx context.Context, tenantID, requesterID string, total decimal.Decimal) (domain.ApprovalFlow, error) {
	roles := b.policy.RolesFor(total)
	steps := make([]domain.ApprovalStep, 0, len(roles))
	for i, role := range roles {
		holders, err := b.directory.FindUsersByRole(ctx, tenantID, role)
		if err != nil {
			b.LogError(ctx, err, "Failed to resolve approvers", slog.String("role", role))
			return domain.ApprovalFlow{}, err
		}
		var approver *domain.UserRole
		for j := range holders {
			if holders[j].UserID != requesterID {
				approver = &holders[j]
				break
			}
		}
		if approver == nil {
			return domain.ApprovalFlow{}, fmt.Errorf("%w: no approver holds role %s for step %d", apperrors.ErrBusinessRule, role, i+1)
		}
		steps = append(steps, domain.ApprovalStep{
			StepNumber:   i + 1,
			ApproverID:   approver.UserID,
			ApproverName: approver.UserName,
			ApproverRole: role,
		})
	}

	b.LogDebug(ctx, "Approval flow resolved",
		slog.String("total", total.String()),
		slog.Int("steps", len(steps)))
	return domain.NewApprovalFlow(steps)
}
