package handlers

import (
	"net/http"

	"github.com/SscSPs/procureflow/internal/core/services"
	"github.com/SscSPs/procureflow/internal/dto"
	"github.com/gin-gonic/gin"
)

type workflowDefinitionHandler struct {
	exec CommandExecutor
}

// RegisterWorkflowDefinitionRoutes registers routes for workflow definitions, keyed by
// application type.
func RegisterWorkflowDefinitionRoutes(rg *gin.RouterGroup, exec CommandExecutor) {
	h := &workflowDefinitionHandler{exec: exec}

	wfs := rg.Group("/workflow-definitions")
	{
		wfs.PUT("/:applicationType", h.define)
		wfs.GET("/:applicationType", h.get)
	}
}

// define godoc
// @Summary Define the workflow of an application type
// @Description Retires the active definition of the type, if any, and activates the new one
// @Tags workflow-definitions
// @Accept  json
// @Produce  json
// @Param   applicationType path string true "Application type"
// @Param   Idempotency-Key header string false "Client retry key"
// @Param   request body dto.DefineWorkflow true "Workflow definition"
// @Success 200 {object} dto.WorkflowDefinitionView
// @Failure 400 {object} dto.ErrorResponse "Invalid steps"
// @Failure 403 {object} dto.ErrorResponse "Admin only"
// @Security BearerAuth
// @Router /workflow-definitions/{applicationType} [put]
func (h *workflowDefinitionHandler) define(c *gin.Context) {
	var req dto.DefineWorkflow
	if !bindBody(c, &req) {
		return
	}
	req.ApplicationType = c.Param("applicationType")
	execute(c, h.exec, services.OpWorkflowDefinitionDefine, req, http.StatusOK)
}

// get godoc
// @Summary Get the active workflow of an application type
// @Tags workflow-definitions
// @Produce  json
// @Param   applicationType path string true "Application type"
// @Success 200 {object} dto.WorkflowDefinitionView
// @Failure 404 {object} dto.ErrorResponse "No active definition"
// @Security BearerAuth
// @Router /workflow-definitions/{applicationType} [get]
func (h *workflowDefinitionHandler) get(c *gin.Context) {
	execute(c, h.exec, services.OpWorkflowDefinitionGet, dto.GetWorkflow{ApplicationType: c.Param("applicationType")}, http.StatusOK)
}
