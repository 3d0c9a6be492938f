package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/procureflow/internal/core/pipeline"
	"github.com/SscSPs/procureflow/internal/core/services"
	"github.com/SscSPs/procureflow/internal/dto"
	"github.com/SscSPs/procureflow/internal/middleware"
	"github.com/gin-gonic/gin"
)

type auditHandler struct {
	exec CommandExecutor
}

func RegisterAuditRoutes(rg *gin.RouterGroup, exec CommandExecutor) {
	h := &auditHandler{exec: exec}
	rg.GET("/audit-log/:entityType/:entityId", h.list)
}

// list godoc
// @Summary List the audit trail of an entity
// @Tags audit-log
// @Produce  json
// @Param   entityType path string true "PurchaseRequest, ApprovalApplication or WorkflowDefinition"
// @Param   entityId path string true "Entity ID"
// @Param   limit query int false "Page size (1-200)"
// @Param   pageToken query string false "Token from the previous page"
// @Success 200 {object} dto.AuditLogPage
// @Failure 400 {object} dto.ErrorResponse "Invalid query"
// @Failure 403 {object} dto.ErrorResponse "Admin only"
// @Security BearerAuth
// @Router /audit-log/{entityType}/{entityId} [get]
func (h *auditHandler) list(c *gin.Context) {
	var req dto.ListAuditLog
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Failed to bind query", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid query parameters: " + err.Error(),
			Kind:  string(pipeline.ErrorKindValidation),
		})
		return
	}
	req.EntityType = c.Param("entityType")
	req.EntityID = c.Param("entityId")
	execute(c, h.exec, services.OpAuditLogList, req, http.StatusOK)
}
