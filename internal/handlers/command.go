package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/SscSPs/procureflow/internal/core/pipeline"
	portssvc "github.com/SscSPs/procureflow/internal/core/ports/services"
	"github.com/SscSPs/procureflow/internal/dto"
	"github.com/SscSPs/procureflow/internal/middleware"
	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client's retry key for a command.
const HeaderIdempotencyKey = "Idempotency-Key"

// CommandExecutor runs registered operations. *pipeline.Executor implements it.
type CommandExecutor interface {
	Execute(ctx context.Context, cmd pipeline.Command) (pipeline.Result, error)
}

var _ CommandExecutor = (*pipeline.Executor)(nil)

func statusForKind(kind pipeline.ErrorKind) int {
	switch kind {
	case pipeline.ErrorKindValidation:
		return http.StatusBadRequest
	case pipeline.ErrorKindBusinessRule:
		return http.StatusUnprocessableEntity
	case pipeline.ErrorKindForbidden:
		return http.StatusForbidden
	case pipeline.ErrorKindConflict:
		return http.StatusConflict
	case pipeline.ErrorKindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// execute runs the command and writes its result. Successful results are written with
// okStatus, failures with the status of their kind.
func execute(c *gin.Context, exec CommandExecutor, commandType string, payload any, okStatus int) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	cmd := pipeline.Command{
		Type:           commandType,
		Payload:        payload,
		IdempotencyKey: c.GetHeader(HeaderIdempotencyKey),
	}

	res, err := exec.Execute(c.Request.Context(), cmd)
	if err != nil {
		logger.Error("Command failed", slog.String("command_type", commandType), slog.String("error", err.Error()))
	}
	if !res.Success {
		c.JSON(statusForKind(res.Kind), dto.ErrorResponse{Error: res.Error, Kind: string(res.Kind)})
		return
	}
	c.JSON(okStatus, res.Value)
}

// bindBody decodes an optional JSON body into obj. An empty body leaves obj untouched.
func bindBody(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Failed to bind JSON", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid request format: " + err.Error(),
			Kind:  string(pipeline.ErrorKindValidation),
		})
		return false
	}
	return true
}

// checkPermission answers GET .../:id/permissions/:action for entityType.
func checkPermission(c *gin.Context, boundaries portssvc.BoundaryCheckerSvc, entityType string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		logger.Error("Actor not found in context")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}
	id := c.Param("id")
	action, err := domain.ParseBoundaryAction(c.Param("action"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Kind: string(pipeline.ErrorKindValidation)})
		return
	}

	decision, err := boundaries.Check(c.Request.Context(), entityType, action, actor, id)
	if err != nil {
		res := pipeline.FromError(err)
		if res.Kind == pipeline.ErrorKindInfrastructure {
			logger.Error("Boundary check failed", slog.String("entity_id", id), slog.String("error", err.Error()))
		} else if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Boundary check on missing entity", slog.String("entity_id", id))
		}
		c.JSON(statusForKind(res.Kind), dto.ErrorResponse{Error: res.Error, Kind: string(res.Kind)})
		return
	}
	c.JSON(http.StatusOK, dto.ToPermissionView(entityType, id, action, decision))
}
