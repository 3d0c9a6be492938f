package handlers

import (
	"net/http"

	"github.com/SscSPs/procureflow/internal/core/domain"
	portssvc "github.com/SscSPs/procureflow/internal/core/ports/services"
	"github.com/SscSPs/procureflow/internal/core/services"
	"github.com/SscSPs/procureflow/internal/dto"
	"github.com/gin-gonic/gin"
)

type applicationHandler struct {
	exec       CommandExecutor
	boundaries portssvc.BoundaryCheckerSvc
}

// RegisterApplicationRoutes registers routes for generic approval applications.
func RegisterApplicationRoutes(rg *gin.RouterGroup, exec CommandExecutor, boundaries portssvc.BoundaryCheckerSvc) {
	h := &applicationHandler{exec: exec, boundaries: boundaries}

	apps := rg.Group("/applications")
	{
		apps.POST("", h.create)
		apps.GET("/:id", h.get)
		apps.PUT("/:id", h.edit)
		apps.POST("/:id/submit", h.submit)
		apps.POST("/:id/approve", h.approve)
		apps.POST("/:id/reject", h.reject)
		apps.POST("/:id/return", h.sendBack)
		apps.POST("/:id/resubmit", h.resubmit)
		apps.POST("/:id/cancel", h.cancel)
		apps.GET("/:id/permissions/:action", h.permissions)
	}
}

// create godoc
// @Summary Create an approval application
// @Tags applications
// @Accept  json
// @Produce  json
// @Param   Idempotency-Key header string false "Client retry key"
// @Param   request body dto.CreateApplication true "Application details"
// @Success 201 {object} dto.ApplicationView
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Security BearerAuth
// @Router /applications [post]
func (h *applicationHandler) create(c *gin.Context) {
	var req dto.CreateApplication
	if !bindBody(c, &req) {
		return
	}
	execute(c, h.exec, services.OpApplicationCreate, req, http.StatusCreated)
}

// get godoc
// @Summary Get an approval application
// @Tags applications
// @Produce  json
// @Param   id path string true "Application ID"
// @Success 200 {object} dto.ApplicationView
// @Failure 404 {object} dto.ErrorResponse "Not found"
// @Security BearerAuth
// @Router /applications/{id} [get]
func (h *applicationHandler) get(c *gin.Context) {
	execute(c, h.exec, services.OpApplicationGet, dto.EntityRef{ID: c.Param("id")}, http.StatusOK)
}

// edit godoc
// @Summary Edit an approval application
// @Tags applications
// @Accept  json
// @Produce  json
// @Param   id path string true "Application ID"
// @Param   Idempotency-Key header string false "Client retry key"
// @Param   request body dto.EditApplication true "New content"
// @Success 200 {object} dto.ApplicationView
// @Failure 409 {object} dto.ErrorResponse "Version mismatch"
// @Failure 422 {object} dto.ErrorResponse "Not editable in its status"
// @Security BearerAuth
// @Router /applications/{id} [put]
func (h *applicationHandler) edit(c *gin.Context) {
	var req dto.EditApplication
	if !bindBody(c, &req) {
		return
	}
	req.ID = c.Param("id")
	execute(c, h.exec, services.OpApplicationEdit, req, http.StatusOK)
}

// submit godoc
// @Summary Submit an application to its workflow
// @Tags applications
// @Produce  json
// @Param   id path string true "Application ID"
// @Param   Idempotency-Key header string false "Client retry key"
// @Success 200 {object} dto.ApplicationView
// @Failure 404 {object} dto.ErrorResponse "No active workflow for the type"
// @Security BearerAuth
// @Router /applications/{id}/submit [post]
func (h *applicationHandler) submit(c *gin.Context) {
	execute(c, h.exec, services.OpApplicationSubmit, dto.EntityRef{ID: c.Param("id")}, http.StatusOK)
}

// approve godoc
// @Summary Approve the current step of an application
// @Tags applications
// @Accept  json
// @Produce  json
// @Param   id path string true "Application ID"
// @Param   Idempotency-Key header string false "Client retry key"
// @Param   request body dto.ApproveRequest false "Optional comment"
// @Success 200 {object} dto.ApplicationView
// @Failure 403 {object} dto.ErrorResponse "Caller lacks the step role"
// @Security BearerAuth
// @Router /applications/{id}/approve [post]
func (h *applicationHandler) approve(c *gin.Context) {
	var req dto.ApproveRequest
	if !bindBody(c, &req) {
		return
	}
	req.ID = c.Param("id")
	execute(c, h.exec, services.OpApplicationApprove, req, http.StatusOK)
}

// reject godoc
// @Summary Reject an application
// @Tags applications
// @Accept  json
// @Produce  json
// @Param   id path string true "Application ID"
// @Param   Idempotency-Key header string false "Client retry key"
// @Param   request body dto.ReasonRequest true "Reason"
// @Success 200 {object} dto.ApplicationView
// @Failure 403 {object} dto.ErrorResponse "Caller lacks the step role"
// @Security BearerAuth
// @Router /applications/{id}/reject [post]
func (h *applicationHandler) reject(c *gin.Context) {
	var req dto.ReasonRequest
	if !bindBody(c, &req) {
		return
	}
	req.ID = c.Param("id")
	execute(c, h.exec, services.OpApplicationReject, req, http.StatusOK)
}

// sendBack godoc
// @Summary Return an application to its applicant
// @Tags applications
// @Accept  json
// @Produce  json
// @Param   id path string true "Application ID"
// @Param   Idempotency-Key header string false "Client retry key"
// @Param   request body dto.ReasonRequest true "Reason"
// @Success 200 {object} dto.ApplicationView
// @Security BearerAuth
// @Router /applications/{id}/return [post]
func (h *applicationHandler) sendBack(c *gin.Context) {
	var req dto.ReasonRequest
	if !bindBody(c, &req) {
		return
	}
	req.ID = c.Param("id")
	execute(c, h.exec, services.OpApplicationReturn, req, http.StatusOK)
}

// resubmit godoc
// @Summary Resubmit a returned application
// @Tags applications
// @Produce  json
// @Param   id path string true "Application ID"
// @Param   Idempotency-Key header string false "Client retry key"
// @Success 200 {object} dto.ApplicationView
// @Security BearerAuth
// @Router /applications/{id}/resubmit [post]
func (h *applicationHandler) resubmit(c *gin.Context) {
	execute(c, h.exec, services.OpApplicationResubmit, dto.EntityRef{ID: c.Param("id")}, http.StatusOK)
}

// cancel godoc
// @Summary Cancel an application
// @Tags applications
// @Accept  json
// @Produce  json
// @Param   id path string true "Application ID"
// @Param   Idempotency-Key header string false "Client retry key"
// @Param   request body dto.CancelRequest false "Optional reason"
// @Success 200 {object} dto.ApplicationView
// @Security BearerAuth
// @Router /applications/{id}/cancel [post]
func (h *applicationHandler) cancel(c *gin.Context) {
	var req dto.CancelRequest
	if !bindBody(c, &req) {
		return
	}
	req.ID = c.Param("id")
	execute(c, h.exec, services.OpApplicationCancel, req, http.StatusOK)
}

// permissions godoc
// @Summary Check whether the caller may perform an action on an application
// @Tags applications
// @Produce  json
// @Param   id path string true "Application ID"
// @Param   action path string true "Boundary action"
// @Success 200 {object} dto.PermissionView
// @Security BearerAuth
// @Router /applications/{id}/permissions/{action} [get]
func (h *applicationHandler) permissions(c *gin.Context) {
	checkPermission(c, h.boundaries, domain.EntityApplication)
}
