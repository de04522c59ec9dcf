package interview

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/intake-api/internal/handler"
	"github.com/jwalitptl/intake-api/internal/model"
	"github.com/jwalitptl/intake-api/internal/repository"
	"github.com/jwalitptl/intake-api/internal/service/interview"
)

type Handler struct {
	svc      *interview.Service
	sessions repository.SessionRepository
}

func NewHandler(svc *interview.Service, sessions repository.SessionRepository) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	sessions := r.Group("/sessions")
	{
		sessions.POST("", h.CreateSession)
		sessions.POST("/:id/turns", h.ProcessTurn)
	}
}

type createSessionRequest struct {
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	session := &model.Session{
		ID:        uuid.New(),
		PatientID: req.PatientID,
		Status:    model.SessionActive,
	}
	if err := h.sessions.Create(c.Request.Context(), session); err != nil {
		c.JSON(handler.HTTPStatus(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(session))
}

type turnRequest struct {
	PatientID uuid.UUID             `json:"patient_id" binding:"required"`
	Message   string                `json:"message" binding:"required"`
	History   []model.ChatMessage   `json:"history"`
	State     *model.DiagnosisState `json:"diagnosis_state"`
	TurnCount int                   `json:"turn_count" binding:"min=0"`
}

func (h *Handler) ProcessTurn(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid session id"))
		return
	}

	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if req.State == nil {
		req.State = model.NewDiagnosisState()
	}

	result, err := h.svc.ProcessTurn(c.Request.Context(), &model.TurnRequest{
		PatientID: req.PatientID,
		SessionID: sessionID,
		Message:   req.Message,
		History:   req.History,
		State:     req.State,
		TurnCount: req.TurnCount,
	})
	if err != nil {
		c.JSON(handler.HTTPStatus(err), handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.sessions.IncrementTurn(c.Request.Context(), sessionID); err != nil {
		// Turn processing already succeeded; a miss here only skews the
		// stored counter, the client-held turn count stays authoritative.
		_ = c.Error(err)
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}
