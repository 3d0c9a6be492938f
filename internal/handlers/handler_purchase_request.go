package handlers

import (
	"net/http"

	"github.com/SscSPs/procureflow/internal/core/domain"
	portssvc "github.com/SscSPs/procureflow/internal/core/ports/services"
	"github.com/SscSPs/procureflow/internal/core/services"
	"github.com/SscSPs/procureflow/internal/dto"
	"github.com/gin-gonic/gin"
)

// purchaseRequestHandler handles HTTP requests related to purchase requests.
type purchaseRequestHandler struct {
	exec       CommandExecutor
	boundaries portssvc.BoundaryCheckerSvc
}

// RegisterPurchaseRequestRoutes registers routes related to purchase requests.
func RegisterPurchaseRequestRoutes(rg *gin.RouterGroup, exec CommandExecutor, boundaries portssvc.BoundaryCheckerSvc) {
	h := &purchaseRequestHandler{exec: exec, boundaries: boundaries}

	prs := rg.Group("/purchase-requests")
	{
		prs.POST("", h.create)
		prs.GET("/:id", h.get)
		prs.PUT("/:id", h.edit)
		prs.POST("/:id/submit", h.submit)
		prs.POST("/:id/approve", h.approve)
		prs.POST("/:id/reject", h.reject)
		prs.POST("/:id/return", h.sendBack)
		prs.POST("/:id/resubmit", h.resubmit)
		prs.POST("/:id/cancel", h.cancel)
		prs.GET("/:id/permissions/:action", h.permissions)
	}
}

// create godoc
// @Summary Create a purchase request
// @Description Creates a Draft purchase request owned by the caller
// @Tags purchase-requests
// @Accept  json
// @Produce  json
// @Param   Idempotency-Key header string false "Client retry key"
// @Param   request body dto.CreatePurchaseRequest true "Purchase request details"
// @Success 201 {object} dto.PurchaseRequestView
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Internal error"
// @Security BearerAuth
// @Router /purchase-requests [post]
func (h *purchaseRequestHandler) create(c *gin.Context) {
	var req dto.CreatePurchaseRequest
	if !bindBody(c, &req) {
		return
	}
	execute(c, h.exec, services.OpPurchaseRequestCreate, req, http.StatusCreated)
}

// get godoc
// @Summary Get a purchase request
// @Tags purchase-requests
// @Produce  json
// @Param   id path string true "Purchase request ID"
// @Success 200 {object} dto.PurchaseRequestView
// @Failure 403 {object} dto.ErrorResponse "Not allowed to view"
// @Failure 404 {object} dto.ErrorResponse "Not found"
// @Security BearerAuth
// @Router /purchase-requests/{id} [get]
func (h *purchaseRequestHandler) get(c *gin.Context) {
	execute(c, h.exec, services.OpPurchaseRequestGet, dto.EntityRef{ID: c.Param("id")}, http.StatusOK)
}

// edit godoc
// @Summary Edit a purchase request
// @Description Replaces title, description and items of a Draft or Returned request
// @Tags purchase-requests
// @Accept  json
// @Produce  json
// @Param   id path string true "Purchase request ID"
// @Param   Idempotency-Key header string false "Client retry key"
// @Param   request body dto.EditPurchaseRequest true "New content"
// @Success 200 {object} dto.PurchaseRequestView
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 403 {object} dto.ErrorResponse "Not the requester"
// @Failure 409 {object} dto.ErrorResponse "Concurrent modification"
// @Failure 422 {object} dto.ErrorResponse "Not editable in its status"
// @Security BearerAuth
// @Router /purchase-requests/{id} [put]
func (h *purchaseRequestHandler) edit(c *gin.Context) {
	var req dto.EditPurchaseRequest
	if !bindBody(c, &req) {
		return
	}
	req.ID = c.Param("id")
	execute(c, h.exec, services.OpPurchaseRequestEdit, req, http.StatusOK)
}

// submit godoc
// @Summary Submit a purchase request for approval
// @Tags purchase-requests
// @Produce  json
// @Param   id path string true "Purchase request ID"
// @Param   Idempotency-Key header string false "Client retry key"
// @Success 200 {object} dto.PurchaseRequestView
// @Failure 403 {object} dto.ErrorResponse "Not the requester"
// @Failure 422 {object} dto.ErrorResponse "No approver available or wrong status"
// @Security BearerAuth
// @Router /purchase-requests/{id}/submit [post]
func (h *purchaseRequestHandler) submit(c *gin.Context) {
	execute(c, h.exec, services.OpPurchaseRequestSubmit, dto.EntityRef{ID: c.Param("id")}, http.StatusOK)
}

// approve godoc
// @Summary Approve the current step
// @Tags purchase-requests
// @Accept  json
// @Produce  json
// @Param   id path string true "Purchase request ID"
// @Param   Idempotency-Key header string false "Client retry key"
// @Param   request body dto.ApproveRequest false "Optional comment"
// @Success 200 {object} dto.PurchaseRequestView
// @Failure 403 {object} dto.ErrorResponse "Not the approver of the current step"
// @Failure 409 {object} dto.ErrorResponse "Concurrent modification"
// @Security BearerAuth
// @Router /purchase-requests/{id}/approve [post]
func (h *purchaseRequestHandler) approve(c *gin.Context) {
	var req dto.ApproveRequest
	if !bindBody(c, &req) {
		return
	}
	req.ID = c.Param("id")
	execute(c, h.exec, services.OpPurchaseRequestApprove, req, http.StatusOK)
}

// reject godoc
// @Summary Reject a purchase request
// @Tags purchase-requests
// @Accept  json
// @Produce  json
// @Param   id path string true "Purchase request ID"
// @Param   Idempotency-Key header string false "Client retry key"
// @Param   request body dto.ReasonRequest true "Reason"
// @Success 200 {object} dto.PurchaseRequestView
// @Failure 400 {object} dto.ErrorResponse "Reason missing"
// @Failure 403 {object} dto.ErrorResponse "Not the approver of the current step"
// @Security BearerAuth
// @Router /purchase-requests/{id}/reject [post]
func (h *purchaseRequestHandler) reject(c *gin.Context) {
	var req dto.ReasonRequest
	if !bindBody(c, &req) {
		return
	}
	req.ID = c.Param("id")
	execute(c, h.exec, services.OpPurchaseRequestReject, req, http.StatusOK)
}

// sendBack godoc
// @Summary Return a purchase request to its requester
// @Tags purchase-requests
// @Accept  json
// @Produce  json
// @Param   id path string true "Purchase request ID"
// @Param   Idempotency-Key header string false "Client retry key"
// @Param   request body dto.ReasonRequest true "Reason"
// @Success 200 {object} dto.PurchaseRequestView
// @Failure 403 {object} dto.ErrorResponse "Not the approver of the current step"
// @Security BearerAuth
// @Router /purchase-requests/{id}/return [post]
func (h *purchaseRequestHandler) sendBack(c *gin.Context) {
	var req dto.ReasonRequest
	if !bindBody(c, &req) {
		return
	}
	req.ID = c.Param("id")
	execute(c, h.exec, services.OpPurchaseRequestReturn, req, http.StatusOK)
}

// resubmit godoc
// @Summary Resubmit a returned purchase request
// @Tags purchase-requests
// @Produce  json
// @Param   id path string true "Purchase request ID"
// @Param   Idempotency-Key header string false "Client retry key"
// @Success 200 {object} dto.PurchaseRequestView
// @Failure 422 {object} dto.ErrorResponse "Not in Returned status"
// @Security BearerAuth
// @Router /purchase-requests/{id}/resubmit [post]
func (h *purchaseRequestHandler) resubmit(c *gin.Context) {
	execute(c, h.exec, services.OpPurchaseRequestResubmit, dto.EntityRef{ID: c.Param("id")}, http.StatusOK)
}

// cancel godoc
// @Summary Cancel a purchase request
// @Tags purchase-requests
// @Accept  json
// @Produce  json
// @Param   id path string true "Purchase request ID"
// @Param   Idempotency-Key header string false "Client retry key"
// @Param   request body dto.CancelRequest false "Optional reason"
// @Success 200 {object} dto.PurchaseRequestView
// @Failure 403 {object} dto.ErrorResponse "Not the requester"
// @Failure 422 {object} dto.ErrorResponse "Already final"
// @Security BearerAuth
// @Router /purchase-requests/{id}/cancel [post]
func (h *purchaseRequestHandler) cancel(c *gin.Context) {
	var req dto.CancelRequest
	if !bindBody(c, &req) {
		return
	}
	req.ID = c.Param("id")
	execute(c, h.exec, services.OpPurchaseRequestCancel, req, http.StatusOK)
}

// permissions godoc
// @Summary Check whether the caller may perform an action
// @Tags purchase-requests
// @Produce  json
// @Param   id path string true "Purchase request ID"
// @Param   action path string true "view, edit, submit, resubmit, approve, reject, return or cancel"
// @Success 200 {object} dto.PermissionView
// @Failure 400 {object} dto.ErrorResponse "Unknown action"
// @Failure 404 {object} dto.ErrorResponse "Not found"
// @Security BearerAuth
// @Router /purchase-requests/{id}/permissions/{action} [get]
func (h *purchaseRequestHandler) permissions(c *gin.Context) {
	checkPermission(c, h.boundaries, domain.EntityPurchaseRequest)
}
