package dto

import (
	"time"

	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LineItemInput is one requested line.
type LineItemInput struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity" swaggertype:"string" example:"2"`
	UnitPrice   decimal.Decimal `json:"unitPrice" swaggertype:"string" example:"1500.00"`
}

// CreatePurchaseRequest is the payload of purchase_request.create.
type CreatePurchaseRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=4000"`
	Items       []LineItemInput `json:"items" validate:"required,min=1,max=100,dive"`
}

// EditPurchaseRequest is the payload of purchase_request.edit.
type EditPurchaseRequest struct {
	ID              string          `json:"-" validate:"required"`
	ExpectedVersion *int64          `json:"expectedVersion,omitempty" validate:"omitempty,min=1"`
	Title           string          `json:"title" validate:"required,max=200"`
	Description     string          `json:"description" validate:"max=4000"`
	Items           []LineItemInput `json:"items" validate:"required,min=1,max=100,dive"`
}

// ToLineItems converts the input lines to domain line items. Line numbers are assigned by
// the aggregate.
func ToLineItems(in []LineItemInput) []domain.LineItem {
	items := make([]domain.LineItem, len(in))
	for i, it := range in {
		items[i] = domain.LineItem{Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return items
}

// LineItemView is a line of a purchase request with its computed amount.
type LineItemView struct {
	LineNumber  int             `json:"lineNumber"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity" swaggertype:"string"`
	UnitPrice   decimal.Decimal `json:"unitPrice" swaggertype:"string"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"string"`
}

// PurchaseRequestView is the result of every purchase request operation.
type PurchaseRequestView struct {
	ID            string                       `json:"id"`
	TenantID      string                       `json:"tenantId"`
	RequesterID   string                       `json:"requesterId"`
	RequesterName string                       `json:"requesterName"`
	Title         string                       `json:"title"`
	Description   string                       `json:"description"`
	Items         []LineItemView               `json:"items"`
	TotalAmount   decimal.Decimal              `json:"totalAmount" swaggertype:"string"`
	Status        domain.PurchaseRequestStatus `json:"status"`
	CurrentStep   int                          `json:"currentStep"`
	ApprovalSteps []domain.ApprovalStep        `json:"approvalSteps"`
	Decisions     []domain.Decision            `json:"decisions"`
	Version       int64                        `json:"version"`
	CreatedAt     time.Time                    `json:"createdAt"`
	CreatedBy     string                       `json:"createdBy"`
	LastUpdatedAt time.Time                    `json:"lastUpdatedAt"`
	LastUpdatedBy string                       `json:"lastUpdatedBy"`
}

// ToPurchaseRequestView converts the aggregate to its API shape.
func ToPurchaseRequestView(pr *domain.PurchaseRequest) PurchaseRequestView {
	s := pr.State()
	items := make([]LineItemView, len(s.Items))
	for i, it := range s.Items {
		items[i] = LineItemView{
			LineNumber:  it.LineNumber,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      it.Amount(),
		}
	}
	steps := s.ApprovalSteps
	if steps == nil {
		steps = []domain.ApprovalStep{}
	}
	decisions := s.Decisions
	if decisions == nil {
		decisions = []domain.Decision{}
	}
	return PurchaseRequestView{
		ID:            s.ID,
		TenantID:      s.TenantID,
		RequesterID:   s.RequesterID,
		RequesterName: s.RequesterName,
		Title:         s.Title,
		Description:   s.Description,
		Items:         items,
		TotalAmount:   pr.TotalAmount(),
		Status:        s.Status,
		CurrentStep:   s.CurrentStep,
		ApprovalSteps: steps,
		Decisions:     decisions,
		Version:       s.Version,
		CreatedAt:     s.CreatedAt,
		CreatedBy:     s.CreatedBy,
		LastUpdatedAt: s.LastUpdatedAt,
		LastUpdatedBy: s.LastUpdatedBy,
	}
}
