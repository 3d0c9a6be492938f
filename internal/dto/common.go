package dto

import "github.com/SscSPs/procureflow/internal/core/domain"

// EntityRef addresses one aggregate. Used by get, submit and resubmit.
type EntityRef struct {
	ID string `json:"-" validate:"required"`
}

// ApproveRequest is the payload of the approve operations.
type ApproveRequest struct {
	ID      string `json:"-" validate:"required"`
	Comment string `json:"comment" validate:"max=1000"`
}

// ReasonRequest is the payload of reject and return. A reason is mandatory.
type ReasonRequest struct {
	ID     string `json:"-" validate:"required"`
	Reason string `json:"reason" validate:"required,max=1000"`
}

// CancelRequest is the payload of the cancel operations.
type CancelRequest struct {
	ID     string `json:"-" validate:"required"`
	Reason string `json:"reason" validate:"max=1000"`
}

// PermissionView answers a pre-flight boundary check.
type PermissionView struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Action     string `json:"action"`
	Allowed    bool   `json:"allowed"`
	Reason     string `json:"reason,omitempty"`
}

// ToPermissionView converts a boundary decision to its API shape.
func ToPermissionView(entityType, entityID string, action domain.BoundaryAction, d domain.BoundaryDecision) PermissionView {
	return PermissionView{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     string(action),
		Allowed:    d.IsAllowed,
		Reason:     d.Reason,
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
