package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/procureflow/internal/apperrors"
)

// ApplicationStatus is the lifecycle state of a generic approval application.
type ApplicationStatus string

const (
	ApplicationDraft           ApplicationStatus = "Draft"
	ApplicationInReview        ApplicationStatus = "InReview"
	ApplicationReturnedStatus  ApplicationStatus = "Returned"
	ApplicationApprovedStatus  ApplicationStatus = "Approved"
	ApplicationRejectedStatus  ApplicationStatus = "Rejected"
	ApplicationCancelledStatus ApplicationStatus = "Cancelled"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationDraft: {ApplicationInReview, ApplicationCancelledStatus},
	ApplicationInReview: {
		ApplicationApprovedStatus,
		ApplicationRejectedStatus,
		ApplicationReturnedStatus,
		ApplicationCancelledStatus,
	},
	ApplicationReturnedStatus:  {ApplicationInReview, ApplicationCancelledStatus},
	ApplicationApprovedStatus:  {},
	ApplicationRejectedStatus:  {},
	ApplicationCancelledStatus: {},
}

// ApplicationStateMachine guards application status changes.
var ApplicationStateMachine = NewStateMachine("application", applicationTransitions)

// ApplicationState is the persisted shape of an application.
type ApplicationState struct {
	ID              string            `json:"id"`
	TenantID        string            `json:"tenantId"`
	ApplicantID     string            `json:"applicantId"`
	ApplicantName   string            `json:"applicantName"`
	ApplicationType string            `json:"applicationType"`
	Title           string            `json:"title"`
	Content         string            `json:"content"`
	Status          ApplicationStatus `json:"status"`
	CurrentStep     int               `json:"currentStep"`
	TotalSteps      int               `json:"totalSteps"`
	Decisions       []Decision        `json:"decisions"`
	Version         int64             `json:"version"`
	AuditFields
}

// ApprovalApplication is routed through the active workflow definition of its type. The
// role required at each step is resolved when the step is decided, not at submission.
type ApprovalApplication struct {
	aggregateRoot
	state ApplicationState
}

// NewApprovalApplication creates a Draft application owned by applicant.
func NewApprovalApplication(id string, applicant Actor, applicationType, title, content string, now time.Time) (*ApprovalApplication, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: application id is required", apperrors.ErrValidation)
	}
	if applicant.UserID == "" || applicant.TenantID == "" {
		return nil, fmt.Errorf("%w: applicant must belong to a tenant", apperrors.ErrValidation)
	}
	applicationType = strings.TrimSpace(applicationType)
	title = strings.TrimSpace(title)
	if applicationType == "" {
		return nil, fmt.Errorf("%w: application type is required", apperrors.ErrValidation)
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}

	app := &ApprovalApplication{
		state: ApplicationState{
			ID:              id,
			TenantID:        applicant.TenantID,
			ApplicantID:     applicant.UserID,
			ApplicantName:   applicant.UserName,
			ApplicationType: applicationType,
			Title:           title,
			Content:         content,
			Status:          ApplicationDraft,
			AuditFields:     newAuditFields(applicant.UserID, now),
		},
	}
	app.raise(ApplicationCreated{
		EventMeta:       newEventMeta(id, now),
		TenantID:        app.state.TenantID,
		ApplicantID:     app.state.ApplicantID,
		ApplicationType: applicationType,
		Title:           title,
	})
	return app, nil
}

// RestoreApprovalApplication rebuilds an application from persisted state.
func RestoreApprovalApplication(s ApplicationState) *ApprovalApplication {
	app := &ApprovalApplication{state: s.clone()}
	app.version = s.Version
	return app
}

func (s ApplicationState) clone() ApplicationState {
	c := s
	c.Decisions = append([]Decision(nil), s.Decisions...)
	return c
}

func (a *ApprovalApplication) AggregateType() string { return EntityApplication }
func (a *ApprovalApplication) AggregateID() string   { return a.state.ID }
func (a *ApprovalApplication) Snapshot() any         { return a.State() }

// State returns a deep copy of the persisted shape.
func (a *ApprovalApplication) State() ApplicationState {
	s := a.state.clone()
	s.Version = a.version
	return s
}

func (a *ApprovalApplication) ID() string                { return a.state.ID }
func (a *ApprovalApplication) TenantID() string          { return a.state.TenantID }
func (a *ApprovalApplication) ApplicantID() string       { return a.state.ApplicantID }
func (a *ApprovalApplication) ApplicationType() string   { return a.state.ApplicationType }
func (a *ApprovalApplication) Status() ApplicationStatus { return a.state.Status }
func (a *ApprovalApplication) CurrentStep() int          { return a.state.CurrentStep }
func (a *ApprovalApplication) TotalSteps() int           { return a.state.TotalSteps }

func (a *ApprovalApplication) sameTenant(actor Actor) bool {
	return actor.TenantID == a.state.TenantID
}

func (a *ApprovalApplication) isApplicant(actor Actor) bool {
	return a.sameTenant(actor) && actor.UserID == a.state.ApplicantID
}

// CanView allows the applicant and admins at any time, and other tenant members once the
// application has left Draft.
func (a *ApprovalApplication) CanView(actor Actor) BoundaryDecision {
	if !a.sameTenant(actor) {
		return Deny("application belongs to another tenant")
	}
	if actor.UserID == a.state.ApplicantID || actor.HasRole(RoleAdmin) || a.state.Status != ApplicationDraft {
		return Allow()
	}
	return Deny("draft applications are visible to their applicant only")
}

// CanEdit allows the applicant to change a Draft or Returned application.
func (a *ApprovalApplication) CanEdit(actor Actor) BoundaryDecision {
	if !a.isApplicant(actor) {
		return Deny("only the applicant can edit this application")
	}
	if a.state.Status != ApplicationDraft && a.state.Status != ApplicationReturnedStatus {
		return Deny(fmt.Sprintf("application in status %s cannot be edited", a.state.Status))
	}
	return Allow()
}

// CanSubmit allows the applicant to send a Draft application for review.
func (a *ApprovalApplication) CanSubmit(actor Actor) BoundaryDecision {
	if !a.isApplicant(actor) {
		return Deny("only the applicant can submit this application")
	}
	if a.state.Status != ApplicationDraft {
		return Deny(fmt.Sprintf("application in status %s cannot be submitted", a.state.Status))
	}
	return Allow()
}

// CanResubmit allows the applicant to send a Returned application back into review.
func (a *ApprovalApplication) CanResubmit(actor Actor) BoundaryDecision {
	if !a.isApplicant(actor) {
		return Deny("only the applicant can resubmit this application")
	}
	if a.state.Status != ApplicationReturnedStatus {
		return Deny(fmt.Sprintf("application in status %s cannot be resubmitted", a.state.Status))
	}
	return Allow()
}

// CanApprove requires the actor to currently hold the role the active definition assigns
// to the current step. Applicants cannot decide their own applications.
func (a *ApprovalApplication) CanApprove(actor Actor, def *WorkflowDefinition, actorRoles []string) BoundaryDecision {
	return a.canDecide(actor, def, actorRoles)
}

// CanReject has the same eligibility as CanApprove.
func (a *ApprovalApplication) CanReject(actor Actor, def *WorkflowDefinition, actorRoles []string) BoundaryDecision {
	return a.canDecide(actor, def, actorRoles)
}

// CanReturn has the same eligibility as CanApprove.
func (a *ApprovalApplication) CanReturn(actor Actor, def *WorkflowDefinition, actorRoles []string) BoundaryDecision {
	return a.canDecide(actor, def, actorRoles)
}

func (a *ApprovalApplication) canDecide(actor Actor, def *WorkflowDefinition, actorRoles []string) BoundaryDecision {
	if !a.sameTenant(actor) {
		return Deny("application belongs to another tenant")
	}
	if a.state.Status != ApplicationInReview {
		return Deny("application is not in review")
	}
	if actor.UserID == a.state.ApplicantID {
		return Deny("applicants cannot decide their own application")
	}
	if def == nil || !def.IsActive() || def.ApplicationType() != a.state.ApplicationType {
		return Deny(fmt.Sprintf("no active workflow definition for %s", a.state.ApplicationType))
	}
	step, ok := def.Step(a.state.CurrentStep)
	if !ok {
		return Deny(fmt.Sprintf("active workflow definition has no step %d", a.state.CurrentStep))
	}
	if !containsRole(actorRoles, step.Role) {
		return Deny(fmt.Sprintf("step %d requires role %s", step.StepNumber, step.Role))
	}
	return Allow()
}

// CanCancel allows the applicant to withdraw an application that is not yet final.
func (a *ApprovalApplication) CanCancel(actor Actor) BoundaryDecision {
	if !a.isApplicant(actor) {
		return Deny("only the applicant can cancel this application")
	}
	if !ApplicationStateMachine.CanTransition(a.state.Status, ApplicationCancelledStatus) {
		return Deny(fmt.Sprintf("application in status %s cannot be cancelled", a.state.Status))
	}
	return Allow()
}

// Edit replaces title and content.
func (a *ApprovalApplication) Edit(actor Actor, title, content string, expectedVersion *int64, now time.Time) error {
	if expectedVersion != nil && *expectedVersion != a.version {
		return fmt.Errorf("%w: application %s is at version %d, expected %d", apperrors.ErrConcurrencyConflict, a.state.ID, a.version, *expectedVersion)
	}
	if err := a.CanEdit(actor).Err(); err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}
	a.state.Title = title
	a.state.Content = content
	a.state.touch(actor.UserID, now)
	a.raise(ApplicationEdited{EventMeta: newEventMeta(a.state.ID, now), EditedBy: actor.UserID, Title: title})
	return nil
}

// Submit routes a Draft application through def starting at step 1.
func (a *ApprovalApplication) Submit(actor Actor, def *WorkflowDefinition, now time.Time) error {
	if err := a.CanSubmit(actor).Err(); err != nil {
		return err
	}
	if err := a.enterReview(actor, def, now); err != nil {
		return err
	}
	a.raise(ApplicationSubmitted{
		EventMeta:            newEventMeta(a.state.ID, now),
		SubmittedBy:          actor.UserID,
		WorkflowDefinitionID: def.ID(),
		TotalSteps:           a.state.TotalSteps,
	})
	return nil
}

// Resubmit restarts review of a Returned application from step 1.
func (a *ApprovalApplication) Resubmit(actor Actor, def *WorkflowDefinition, now time.Time) error {
	if err := a.CanResubmit(actor).Err(); err != nil {
		return err
	}
	if err := a.enterReview(actor, def, now); err != nil {
		return err
	}
	a.raise(ApplicationResubmitted{
		EventMeta:            newEventMeta(a.state.ID, now),
		ResubmittedBy:        actor.UserID,
		WorkflowDefinitionID: def.ID(),
		TotalSteps:           a.state.TotalSteps,
	})
	return nil
}

func (a *ApprovalApplication) enterReview(actor Actor, def *WorkflowDefinition, now time.Time) error {
	if def == nil || !def.IsActive() || def.ApplicationType() != a.state.ApplicationType || def.TenantID() != a.state.TenantID {
		return fmt.Errorf("%w: no active workflow definition for %s", apperrors.ErrBusinessRule, a.state.ApplicationType)
	}
	if err := ApplicationStateMachine.ValidateTransition(a.state.Status, ApplicationInReview); err != nil {
		return err
	}
	a.state.Status = ApplicationInReview
	a.state.CurrentStep = 1
	a.state.TotalSteps = def.StepCount()
	a.state.touch(actor.UserID, now)
	return nil
}

// Approve records the approval of the current step. When the current step is the last
// step of the active definition the application becomes Approved.
func (a *ApprovalApplication) Approve(actor Actor, def *WorkflowDefinition, actorRoles []string, comment string, now time.Time) error {
	if err := a.CanApprove(actor, def, actorRoles).Err(); err != nil {
		return err
	}
	step := a.state.CurrentStep
	a.recordDecision(actor, DecisionApproved, comment, now)
	a.state.TotalSteps = def.StepCount()

	if step < def.StepCount() {
		a.state.CurrentStep = step + 1
		a.state.touch(actor.UserID, now)
		a.raise(ApplicationStepApproved{
			EventMeta:  newEventMeta(a.state.ID, now),
			StepNumber: step,
			ApproverID: actor.UserID,
			NextStep:   step + 1,
		})
		return nil
	}

	if err := ApplicationStateMachine.ValidateTransition(a.state.Status, ApplicationApprovedStatus); err != nil {
		return err
	}
	a.state.Status = ApplicationApprovedStatus
	a.state.CurrentStep = 0
	a.state.touch(actor.UserID, now)
	a.raise(ApplicationApproved{
		EventMeta:       newEventMeta(a.state.ID, now),
		TenantID:        a.state.TenantID,
		ApplicantID:     a.state.ApplicantID,
		ApplicationType: a.state.ApplicationType,
		ApproverID:      actor.UserID,
	})
	return nil
}

// Reject ends the review with a reason.
func (a *ApprovalApplication) Reject(actor Actor, def *WorkflowDefinition, actorRoles []string, reason string, now time.Time) error {
	if err := a.CanReject(actor, def, actorRoles).Err(); err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: a rejection reason is required", apperrors.ErrValidation)
	}
	if err := ApplicationStateMachine.ValidateTransition(a.state.Status, ApplicationRejectedStatus); err != nil {
		return err
	}
	step := a.state.CurrentStep
	a.recordDecision(actor, DecisionRejected, reason, now)
	a.state.Status = ApplicationRejectedStatus
	a.state.CurrentStep = 0
	a.state.touch(actor.UserID, now)
	a.raise(ApplicationRejected{EventMeta: newEventMeta(a.state.ID, now), StepNumber: step, RejectedBy: actor.UserID, Reason: reason})
	return nil
}

// Return hands the application back to the applicant.
func (a *ApprovalApplication) Return(actor Actor, def *WorkflowDefinition, actorRoles []string, reason string, now time.Time) error {
	if err := a.CanReturn(actor, def, actorRoles).Err(); err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: a return reason is required", apperrors.ErrValidation)
	}
	if err := ApplicationStateMachine.ValidateTransition(a.state.Status, ApplicationReturnedStatus); err != nil {
		return err
	}
	step := a.state.CurrentStep
	a.recordDecision(actor, DecisionReturned, reason, now)
	a.state.Status = ApplicationReturnedStatus
	a.state.CurrentStep = 0
	a.state.touch(actor.UserID, now)
	a.raise(ApplicationReturned{EventMeta: newEventMeta(a.state.ID, now), StepNumber: step, ReturnedBy: actor.UserID, Reason: reason})
	return nil
}

// Cancel withdraws the application.
func (a *ApprovalApplication) Cancel(actor Actor, reason string, now time.Time) error {
	if err := a.CanCancel(actor).Err(); err != nil {
		return err
	}
	if err := ApplicationStateMachine.ValidateTransition(a.state.Status, ApplicationCancelledStatus); err != nil {
		return err
	}
	a.recordDecision(actor, DecisionCancelled, reason, now)
	a.state.Status = ApplicationCancelledStatus
	a.state.CurrentStep = 0
	a.state.touch(actor.UserID, now)
	a.raise(ApplicationCancelled{EventMeta: newEventMeta(a.state.ID, now), CancelledBy: actor.UserID, Reason: reason})
	return nil
}

func (a *ApprovalApplication) recordDecision(actor Actor, action DecisionAction, comment string, now time.Time) {
	a.state.Decisions = append(a.state.Decisions, Decision{
		StepNumber: a.state.CurrentStep,
		Action:     action,
		ActorID:    actor.UserID,
		ActorName:  actor.UserName,
		Comment:    comment,
		DecidedAt:  now.UTC(),
	})
}
