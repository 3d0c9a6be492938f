package dto

import (
	"time"

	"github.com/SscSPs/procureflow/internal/core/domain"
)

// CreateApplication is the payload of application.create.
type CreateApplication struct {
	ApplicationType string `json:"applicationType" validate:"required,max=100"`
	Title           string `json:"title" validate:"required,max=200"`
	Content         string `json:"content" validate:"max=20000"`
}

// EditApplication is the payload of application.edit.
type EditApplication struct {
	ID              string `json:"-" validate:"required"`
	ExpectedVersion *int64 `json:"expectedVersion,omitempty" validate:"omitempty,min=1"`
	Title           string `json:"title" validate:"required,max=200"`
	Content         string `json:"content" validate:"max=20000"`
}

// ApplicationView is the result of every application operation.
type ApplicationView struct {
	ID              string                   `json:"id"`
	TenantID        string                   `json:"tenantId"`
	ApplicantID     string                   `json:"applicantId"`
	ApplicantName   string                   `json:"applicantName"`
	ApplicationType string                   `json:"applicationType"`
	Title           string                   `json:"title"`
	Content         string                   `json:"content"`
	Status          domain.ApplicationStatus `json:"status"`
	CurrentStep     int                      `json:"currentStep"`
	TotalSteps      int                      `json:"totalSteps"`
	Decisions       []domain.Decision        `json:"decisions"`
	Version         int64                    `json:"version"`
	CreatedAt       time.Time                `json:"createdAt"`
	CreatedBy       string                   `json:"createdBy"`
	LastUpdatedAt   time.Time                `json:"lastUpdatedAt"`
	LastUpdatedBy   string                   `json:"lastUpdatedBy"`
}

func ToApplicationView(app *domain.ApprovalApplication) ApplicationView {
	s := app.State()
	decisions := s.Decisions
	if decisions == nil {
		decisions = []domain.Decision{}
	}
	return ApplicationView{
		ID:              s.ID,
		TenantID:        s.TenantID,
		ApplicantID:     s.ApplicantID,
		ApplicantName:   s.ApplicantName,
		ApplicationType: s.ApplicationType,
		Title:           s.Title,
		Content:         s.Content,
		Status:          s.Status,
		CurrentStep:     s.CurrentStep,
		TotalSteps:      s.TotalSteps,
		Decisions:       decisions,
		Version:         s.Version,
		CreatedAt:       s.CreatedAt,
		CreatedBy:       s.CreatedBy,
		LastUpdatedAt:   s.LastUpdatedAt,
		LastUpdatedBy:   s.LastUpdatedBy,
	}
}
