package review

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwalitptl/intake-api/internal/handler"
	"github.com/jwalitptl/intake-api/internal/model"
	"github.com/jwalitptl/intake-api/internal/service/review"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("reviewaction", func(fl validator.FieldLevel) bool {
			switch model.ReviewAction(fl.Field().String()) {
			case model.ActionApprove, model.ActionReject, model.ActionRequestChanges:
				return true
			}
			return false
		})
	}
}

type Handler struct {
	svc *review.Service
}

func NewHandler(svc *review.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	reports := r.Group("/reports")
	{
		reports.POST("/:id/review", h.SubmitReview)
	}
}

type reviewRequest struct {
	Action       string `json:"action" binding:"required,reviewaction"`
	Feedback     string `json:"feedback"`
	Rating       int    `json:"rating" binding:"min=0,max=5"`
	Prescription string `json:"prescription"`
	Notes        string `json:"notes"`
}

func (h *Handler) SubmitReview(c *gin.Context) {
	reportID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid report id"))
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	reviewerID, err := uuid.Parse(c.GetString("reviewerID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid reviewer ID"))
		return
	}

	outcome, err := h.svc.SubmitReview(c.Request.Context(), &model.ReviewRequest{
		ReportID:     reportID,
		ReviewerID:   reviewerID,
		Action:       model.ReviewAction(req.Action),
		Feedback:     req.Feedback,
		Rating:       req.Rating,
		Prescription: req.Prescription,
		Notes:        req.Notes,
	})
	if err != nil {
		c.JSON(handler.HTTPStatus(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(outcome))
}
