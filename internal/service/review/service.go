package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/intake-api/internal/ai/inference"
	"github.com/jwalitptl/intake-api/internal/model"
	"github.com/jwalitptl/intake-api/internal/repository"
	apperrors "github.com/jwalitptl/intake-api/pkg/errors"
	"github.com/jwalitptl/intake-api/pkg/logger"
	"github.com/jwalitptl/intake-api/pkg/metrics"
)

// Service drives the reviewer-facing state machine: approve, reject, or
// request changes, with regeneration where the action calls for it.
type Service struct {
	reports   repository.ReportRepository
	outbox    repository.OutboxRepository
	inference inference.Client
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewService(
	reports repository.ReportRepository,
	outbox repository.OutboxRepository,
	inf inference.Client,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		reports:   reports,
		outbox:    outbox,
		inference: inf,
		logger:    log,
		metrics:   m,
	}
}

// SubmitReview applies one reviewer action. Reject and request_changes always
// trigger regeneration; the rating never gates it. Actions against a report
// already in a terminal status are rejected explicitly rather than silently
// accepted. The whole operation runs under a row lock on the report so
// concurrent reviews or a racing conclude stay single-writer.
func (s *Service) SubmitReview(ctx context.Context, req *model.ReviewRequest) (*model.ReviewOutcome, error) {
	var outcome *model.ReviewOutcome

	err := s.reports.WithReportLock(ctx, req.ReportID, func(tx *sqlx.Tx, report *model.ClinicalReport) error {
		if report.ReviewStatus.Terminal() {
			return apperrors.Conflict(
				fmt.Sprintf("report is already %s and cannot be reviewed again", report.ReviewStatus), nil)
		}

		switch req.Action {
		case model.ActionApprove:
			return s.approve(ctx, tx, report, req, &outcome)
		case model.ActionReject:
			return s.rejectOrRequestChanges(ctx, tx, report, req, model.ReviewRejected, &outcome)
		case model.ActionRequestChanges:
			return s.rejectOrRequestChanges(ctx, tx, report, req, model.ReviewInReview, &outcome)
		default:
			return apperrors.BadRequest(fmt.Sprintf("unknown review action %q", req.Action), nil)
		}
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ReviewActions.WithLabelValues(string(req.Action)).Inc()
	s.publishReviewEvent(ctx, req, outcome)
	return outcome, nil
}

// approve is terminal and never regenerates. The reviewer's prescription and
// notes are persisted only on this path.
func (s *Service) approve(ctx context.Context, tx *sqlx.Tx, report *model.ClinicalReport, req *model.ReviewRequest, outcome **model.ReviewOutcome) error {
	if err := s.reports.UpdateReviewTx(ctx, tx, report.ID, model.ReviewApproved, req.Prescription, req.Notes); err != nil {
		return fmt.Errorf("failed to approve report: %w", err)
	}
	report.ReviewStatus = model.ReviewApproved
	report.Prescription = req.Prescription
	report.ReviewerNotes = req.Notes

	*outcome = &model.ReviewOutcome{
		FinalStatus:   model.ReviewApproved,
		Regenerated:   false,
		UpdatedReport: report,
	}
	return nil
}

// rejectOrRequestChanges triggers regeneration unconditionally. On success the
// report content is overwritten and review status resets to pending, forcing
// re-review. On failure the previous content is retained and the action's
// chosen status is still persisted.
func (s *Service) rejectOrRequestChanges(ctx context.Context, tx *sqlx.Tx, report *model.ClinicalReport, req *model.ReviewRequest, chosenStatus model.ReviewStatus, outcome **model.ReviewOutcome) error {
	log := s.logger.WithSession(report.Metadata.SessionID)

	feedback := strings.TrimSpace(req.Feedback)
	if feedback == "" {
		feedback = fmt.Sprintf("reviewer action: %s", req.Action)
	}

	regenerated, err := s.inference.RegenerateReport(ctx, &inference.RegenerateRequest{
		Report:   report,
		Feedback: feedback,
	})
	if err != nil {
		log.WithStage("review").Warn("regeneration failed, retaining previous report content", "error", err)
		s.metrics.StageFallbacks.WithLabelValues("regeneration").Inc()

		if err := s.reports.UpdateReviewTx(ctx, tx, report.ID, chosenStatus, "", ""); err != nil {
			return fmt.Errorf("failed to persist review status: %w", err)
		}
		report.ReviewStatus = chosenStatus
		*outcome = &model.ReviewOutcome{
			FinalStatus:   chosenStatus,
			Regenerated:   false,
			UpdatedReport: report,
		}
		return nil
	}

	report.Subjective = regenerated.Subjective
	report.Objective = regenerated.Objective
	report.Assessment = regenerated.Assessment
	report.Plan = regenerated.Plan
	report.ReviewStatus = model.ReviewPending
	report.UpdatedAt = time.Now()

	if err := s.reports.UpdateSectionsTx(ctx, tx, report); err != nil {
		return fmt.Errorf("failed to persist regenerated report: %w", err)
	}

	*outcome = &model.ReviewOutcome{
		FinalStatus:   chosenStatus,
		Regenerated:   true,
		UpdatedReport: report,
	}
	return nil
}

func (s *Service) publishReviewEvent(ctx context.Context, req *model.ReviewRequest, outcome *model.ReviewOutcome) {
	if outcome == nil || outcome.UpdatedReport == nil {
		return
	}
	report := outcome.UpdatedReport
	payload, err := json.Marshal(model.ReportEventPayload{
		ReportID:  report.ID,
		SessionID: report.Metadata.SessionID,
		PatientID: report.Metadata.PatientID,
		Triage:    report.Metadata.Triage,
		Status:    string(outcome.FinalStatus),
	})
	if err != nil {
		s.logger.Error(err, "failed to marshal review event")
		return
	}

	eventType := model.EventReportReviewed
	if outcome.Regenerated {
		eventType = model.EventReportRegenerated
	}
	if err := s.outbox.Create(ctx, &model.OutboxEvent{
		EventType: eventType,
		Payload:   payload,
	}); err != nil {
		s.logger.Error(err, "failed to create review outbox event")
	}
}
