package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/intake-api/internal/ai/inference"
	"github.com/jwalitptl/intake-api/internal/model"
	"github.com/jwalitptl/intake-api/internal/repository"
	"github.com/jwalitptl/intake-api/pkg/logger"
	"github.com/jwalitptl/intake-api/pkg/metrics"
)

const reportVersion = "v1"

// Screener re-examines a freshly persisted report and produces the
// authoritative triage label and red-flag list.
type Screener interface {
	Screen(ctx context.Context, report *model.ClinicalReport) (model.TriageLevel, []string)
}

// Service is the documentation generator: it assembles the structured
// clinical report once the interview concludes.
type Service struct {
	inference inference.Client
	reports   repository.ReportRepository
	sessions  repository.SessionRepository
	outbox    repository.OutboxRepository
	screener  Screener
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewService(
	inf inference.Client,
	reports repository.ReportRepository,
	sessions repository.SessionRepository,
	outbox repository.OutboxRepository,
	screener Screener,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		inference: inf,
		reports:   reports,
		sessions:  sessions,
		outbox:    outbox,
		screener:  screener,
		logger:    log,
		metrics:   m,
	}
}

// ConcludeSession generates, screens, and persists the clinical report for a
// concluded interview. The upsert is keyed by session id so repeated calls
// update the same report. The session is marked completed only after
// persistence succeeded.
func (s *Service) ConcludeSession(
	ctx context.Context,
	sessionID, patientID uuid.UUID,
	history []model.ChatMessage,
	state *model.DiagnosisState,
	patientContext *model.PatientContext,
	sourceIDs []string,
) (*model.ConcludeResult, error) {
	log := s.logger.WithSession(sessionID)

	generated := s.generateWithFallback(ctx, history, state, patientContext, sourceIDs, log)

	department := AssignDepartment(state.IdentifiedSymptoms, candidateNames(state))
	triage := ProvisionalTriage(generated.Objective.Severity,
		strings.Join(generated.Subjective.ReportedSymptoms, " ")+" "+generated.Subjective.ChiefComplaint,
		generated.Objective.RedFlags)

	now := time.Now()
	report := &model.ClinicalReport{
		ID:           uuid.New(),
		Subjective:   generated.Subjective,
		Objective:    generated.Objective,
		Assessment:   generated.Assessment,
		Plan:         generated.Plan,
		ReviewStatus: model.ReviewPending,
		Metadata: model.ReportMetadata{
			SessionID:   sessionID,
			PatientID:   patientID,
			Department:  department,
			Triage:      triage,
			GeneratedAt: now,
			Version:     reportVersion,
			SourceIDs:   sourceIDs,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	report.Objective.Severity = NormalizeSeverity(report.Objective.Severity)
	report.Plan.Urgency = NormalizeSeverity(report.Plan.Urgency)

	// Upsert, screening, and the triage write share one transaction: the row
	// lock taken by the upsert is held until the authoritative label lands, so
	// a concurrent regeneration cannot slip its sections in between and end up
	// stamped with flags derived from the old content.
	var finalTriage model.TriageLevel
	err := s.reports.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.reports.UpsertTx(ctx, tx, report); err != nil {
			// The session must not be marked completed when the save failed.
			return fmt.Errorf("failed to persist report: %w", err)
		}

		// The screener's label is authoritative and overwrites the provisional
		// one, both in memory and in place.
		triage, redFlags := s.screener.Screen(ctx, report)
		report.Metadata.Triage = triage
		report.Objective.RedFlags = redFlags
		if err := s.reports.UpdateTriageTx(ctx, tx, report.ID, triage, redFlags); err != nil {
			return fmt.Errorf("failed to persist final triage label: %w", err)
		}
		finalTriage = triage
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ReportsGenerated.WithLabelValues(string(finalTriage)).Inc()

	if err := s.sessions.MarkCompleted(ctx, sessionID); err != nil {
		log.Error(err, "failed to mark session completed")
	}

	s.publishEvent(ctx, model.EventReportGenerated, report, log)

	return &model.ConcludeResult{
		Report:     report,
		Department: department,
		Triage:     finalTriage,
		ReportID:   report.ID,
	}, nil
}

// generateWithFallback runs the structured-generation call and substitutes
// deterministic defaults for every field the call failed to supply. A failed
// or malformed generation never fails the pipeline.
func (s *Service) generateWithFallback(
	ctx context.Context,
	history []model.ChatMessage,
	state *model.DiagnosisState,
	patientContext *model.PatientContext,
	sourceIDs []string,
	log *logger.Logger,
) *inference.GeneratedReport {
	generated, err := s.inference.GenerateReport(ctx, &inference.ReportRequest{
		History:        history,
		State:          state,
		PatientSummary: patientContext.Summary(),
		SourceIDs:      sourceIDs,
	})
	if err != nil {
		log.WithStage("report").Warn("report generation failed, using deterministic fallback", "error", err)
		s.metrics.StageFallbacks.WithLabelValues("report").Inc()
		generated = &inference.GeneratedReport{}
	}

	if generated.Subjective.ChiefComplaint == "" {
		generated.Subjective.ChiefComplaint = model.FirstPatientMessage(history)
	}
	if len(generated.Subjective.ReportedSymptoms) == 0 {
		generated.Subjective.ReportedSymptoms = state.IdentifiedSymptoms
	}
	if generated.Assessment.PrimaryDiagnosis == "" {
		if top := state.TopCandidate(); top != nil {
			generated.Assessment.PrimaryDiagnosis = top.Name
		} else {
			generated.Assessment.PrimaryDiagnosis = "Undetermined"
		}
	}
	if len(generated.Assessment.DifferentialDiagnoses) == 0 {
		generated.Assessment.DifferentialDiagnoses = candidateNames(state)
	}
	if generated.Assessment.Confidence == 0 {
		generated.Assessment.Confidence = state.ConfidenceScore
	}
	generated.Assessment.IdentifiedSymptomCount = len(state.IdentifiedSymptoms)
	if len(generated.Assessment.RuledOutConditions) == 0 {
		for _, record := range state.RuledOut {
			generated.Assessment.RuledOutConditions = append(generated.Assessment.RuledOutConditions, record.Eliminated...)
		}
	}
	if len(generated.Plan.Recommendations) == 0 {
		generated.Plan.Recommendations = []string{"Consult a physician for a full clinical evaluation."}
	}
	if generated.Objective.Severity == "" {
		generated.Objective.Severity = SeverityModerate
	}
	return generated
}

func (s *Service) publishEvent(ctx context.Context, eventType string, report *model.ClinicalReport, log *logger.Logger) {
	payload, err := json.Marshal(model.ReportEventPayload{
		ReportID:  report.ID,
		SessionID: report.Metadata.SessionID,
		PatientID: report.Metadata.PatientID,
		Triage:    report.Metadata.Triage,
	})
	if err != nil {
		log.Error(err, "failed to marshal report event")
		return
	}
	if err := s.outbox.Create(ctx, &model.OutboxEvent{
		EventType: eventType,
		Payload:   payload,
	}); err != nil {
		log.Error(err, "failed to create outbox event")
	}
}

func candidateNames(state *model.DiagnosisState) []string {
	names := make([]string, 0, len(state.Candidates))
	for _, c := range state.Candidates {
		names = append(names, c.Name)
	}
	return names
}
