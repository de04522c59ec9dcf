package report

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/intake-api/internal/handler"
	"github.com/jwalitptl/intake-api/internal/model"
	"github.com/jwalitptl/intake-api/internal/repository"
	"github.com/jwalitptl/intake-api/internal/service/report"
)

type Handler struct {
	svc      *report.Service
	reports  repository.ReportRepository
	contexts repository.PatientContextRepository
}

func NewHandler(svc *report.Service, reports repository.ReportRepository, contexts repository.PatientContextRepository) *Handler {
	return &Handler{svc: svc, reports: reports, contexts: contexts}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	sessions := r.Group("/sessions")
	{
		sessions.POST("/:id/conclude", h.ConcludeSession)
	}
	reports := r.Group("/reports")
	{
		reports.GET("/:id", h.GetReport)
	}
}

type concludeRequest struct {
	PatientID uuid.UUID             `json:"patient_id" binding:"required"`
	History   []model.ChatMessage   `json:"history" binding:"required"`
	State     *model.DiagnosisState `json:"diagnosis_state" binding:"required"`
	SourceIDs []string              `json:"source_ids"`
}

func (h *Handler) ConcludeSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid session id"))
		return
	}

	var req concludeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	// Patient context is best effort here; report generation degrades to the
	// conversation alone when the lookup fails.
	patientContext, err := h.contexts.Load(c.Request.Context(), req.PatientID)
	if err != nil {
		patientContext = nil
	}

	result, err := h.svc.ConcludeSession(c.Request.Context(), sessionID, req.PatientID,
		req.History, req.State, patientContext, req.SourceIDs)
	if err != nil {
		c.JSON(handler.HTTPStatus(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) GetReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid report id"))
		return
	}

	rep, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(handler.HTTPStatus(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(rep))
}
