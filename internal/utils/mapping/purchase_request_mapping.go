package mapping

import (
	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/SscSPs/procureflow/internal/models"
)

// ToModelPurchaseRequest converts a purchase request state to its row and child rows
func ToModelPurchaseRequest(s domain.PurchaseRequestState) (models.PurchaseRequest, []models.PurchaseRequestItem, []models.ApprovalStep) {
	row := models.PurchaseRequest{
		PurchaseRequestID: s.ID,
		TenantID:          s.TenantID,
		RequesterID:       s.RequesterID,
		RequesterName:     s.RequesterName,
		Title:             s.Title,
		Description:       s.Description,
		Status:            string(s.Status),
		CurrentStep:       s.CurrentStep,
		AuditFields:       ToModelAuditFields(s.AuditFields, s.Version),
	}
	items := make([]models.PurchaseRequestItem, len(s.Items))
	for i, li := range s.Items {
		items[i] = models.PurchaseRequestItem{
			PurchaseRequestID: s.ID,
			LineNumber:        li.LineNumber,
			Description:       li.Description,
			Quantity:          li.Quantity,
			UnitPrice:         li.UnitPrice,
		}
	}
	steps := make([]models.ApprovalStep, len(s.ApprovalSteps))
	for i, st := range s.ApprovalSteps {
		steps[i] = models.ApprovalStep{
			PurchaseRequestID: s.ID,
			StepNumber:        st.StepNumber,
			ApproverID:        st.ApproverID,
			ApproverName:      st.ApproverName,
			ApproverRole:      st.ApproverRole,
		}
	}
	return row, items, steps
}

// ToDomainPurchaseRequestState assembles a purchase request state from its rows
func ToDomainPurchaseRequestState(m models.PurchaseRequest, items []models.PurchaseRequestItem, steps []models.ApprovalStep, decisions []models.Decision) domain.PurchaseRequestState {
	s := domain.PurchaseRequestState{
		ID:            m.PurchaseRequestID,
		TenantID:      m.TenantID,
		RequesterID:   m.RequesterID,
		RequesterName: m.RequesterName,
		Title:         m.Title,
		Description:   m.Description,
		Status:        domain.PurchaseRequestStatus(m.Status),
		CurrentStep:   m.CurrentStep,
		Items:         make([]domain.LineItem, len(items)),
		ApprovalSteps: make([]domain.ApprovalStep, len(steps)),
		Decisions:     ToDomainDecisions(decisions),
		Version:       m.Version,
		AuditFields:   ToDomainAuditFields(m.AuditFields),
	}
	for i, it := range items {
		s.Items[i] = domain.LineItem{
			LineNumber:  it.LineNumber,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		}
	}
	for i, st := range steps {
		s.ApprovalSteps[i] = domain.ApprovalStep{
			StepNumber:   st.StepNumber,
			ApproverID:   st.ApproverID,
			ApproverName: st.ApproverName,
			ApproverRole: st.ApproverRole,
		}
	}
	return s
}

// ToModelDecisions converts a decision history to rows numbered from 1
func ToModelDecisions(entityType, entityID string, ds []domain.Decision) []models.Decision {
	out := make([]models.Decision, len(ds))
	for i, d := range ds {
		out[i] = models.Decision{
			EntityType: entityType,
			EntityID:   entityID,
			Seq:        i + 1,
			StepNumber: d.StepNumber,
			Action:     string(d.Action),
			ActorID:    d.ActorID,
			ActorName:  d.ActorName,
			Comment:    d.Comment,
			DecidedAt:  d.DecidedAt,
		}
	}
	return out
}

// ToDomainDecisions converts rows ordered by seq to a decision history
func ToDomainDecisions(rows []models.Decision) []domain.Decision {
	out := make([]domain.Decision, len(rows))
	for i, r := range rows {
		out[i] = domain.Decision{
			StepNumber: r.StepNumber,
			Action:     domain.DecisionAction(r.Action),
			ActorID:    r.ActorID,
			ActorName:  r.ActorName,
			Comment:    r.Comment,
			DecidedAt:  r.DecidedAt.UTC(),
		}
	}
	return out
}
