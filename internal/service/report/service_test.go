package report

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/intake-api/internal/ai/inference"
	"github.com/jwalitptl/intake-api/internal/model"
	"github.com/jwalitptl/intake-api/pkg/logger"
	"github.com/jwalitptl/intake-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("report_test")

type fakeInference struct {
	report    *inference.GeneratedReport
	reportErr error
}

func (f *fakeInference) IdentifyDiseases(ctx context.Context, symptoms []string, patientSummary string) ([]inference.RankedDisease, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeInference) GenerateResponse(ctx context.Context, req *inference.ResponseRequest) (*inference.GeneratedResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeInference) GenerateReport(ctx context.Context, req *inference.ReportRequest) (*inference.GeneratedReport, error) {
	if f.reportErr != nil {
		return nil, f.reportErr
	}
	return f.report, nil
}

func (f *fakeInference) RegenerateReport(ctx context.Context, req *inference.RegenerateRequest) (*inference.GeneratedReport, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeInference) SafetyCheck(ctx context.Context, text string) (*inference.SafetyFinding, error) {
	return nil, errors.New("not implemented")
}

// fakeReportRepo records every call with its transaction scope so tests can
// assert what ran under the row lock.
type fakeReportRepo struct {
	upserted  *model.ClinicalReport
	upsertErr error
	triageErr error

	triageSaved  model.TriageLevel
	triageFlags  []string
	triageCalled bool

	inTx   bool
	events []string
}

func (r *fakeReportRepo) record(event string) {
	if r.inTx {
		event += ":tx"
	}
	r.events = append(r.events, event)
}

func (r *fakeReportRepo) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	r.inTx = true
	defer func() { r.inTx = false }()
	return fn(nil)
}

func (r *fakeReportRepo) UpsertTx(ctx context.Context, tx *sqlx.Tx, report *model.ClinicalReport) error {
	r.record("upsert")
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.upserted = report
	return nil
}

func (r *fakeReportRepo) Get(ctx context.Context, id uuid.UUID) (*model.ClinicalReport, error) {
	return r.upserted, nil
}

func (r *fakeReportRepo) GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.ClinicalReport, error) {
	return r.upserted, nil
}

func (r *fakeReportRepo) UpdateTriageTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, triage model.TriageLevel, redFlags []string) error {
	r.record("triage")
	if r.triageErr != nil {
		return r.triageErr
	}
	r.triageCalled = true
	r.triageSaved = triage
	r.triageFlags = redFlags
	return nil
}

func (r *fakeReportRepo) WithReportLock(ctx context.Context, id uuid.UUID, fn func(tx *sqlx.Tx, report *model.ClinicalReport) error) error {
	return fn(nil, r.upserted)
}

func (r *fakeReportRepo) UpdateSectionsTx(ctx context.Context, tx *sqlx.Tx, report *model.ClinicalReport) error {
	return nil
}

func (r *fakeReportRepo) UpdateReviewTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.ReviewStatus, prescription, notes string) error {
	return nil
}

type fakeSessionRepo struct {
	completed []uuid.UUID
}

func (r *fakeSessionRepo) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *model.Session) error { return nil }

func (r *fakeSessionRepo) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	r.completed = append(r.completed, id)
	return nil
}

func (r *fakeSessionRepo) IncrementTurn(ctx context.Context, id uuid.UUID) error { return nil }

type fakeOutboxRepo struct {
	events []*model.OutboxEvent
}

func (r *fakeOutboxRepo) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *fakeOutboxRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *fakeOutboxRepo) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	return r.events, nil
}

func (r *fakeOutboxRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error {
	return nil
}

type fakeScreener struct {
	triage model.TriageLevel
	flags  []string
	repo   *fakeReportRepo
}

func (s *fakeScreener) Screen(ctx context.Context, report *model.ClinicalReport) (model.TriageLevel, []string) {
	if s.repo != nil {
		s.repo.record("screen")
	}
	return s.triage, s.flags
}

func historyWith(opening string) []model.ChatMessage {
	return []model.ChatMessage{
		{Role: model.RoleAssistant, Text: "Hello, what brings you in today?"},
		{Role: model.RolePatient, Text: opening},
	}
}

func stateWith(symptoms []string, candidates ...string) *model.DiagnosisState {
	state := model.NewDiagnosisState()
	state.IdentifiedSymptoms = symptoms
	for i, name := range candidates {
		state.Candidates = append(state.Candidates, model.DiseaseCandidate{
			Name:        name,
			Probability: float64(80 - i*10),
		})
	}
	return state
}

func newTestService(inf inference.Client, reports *fakeReportRepo, sessions *fakeSessionRepo, outbox *fakeOutboxRepo, screener Screener) *Service {
	return NewService(inf, reports, sessions, outbox, screener, logger.NewLogger(nil), testMetrics)
}

func TestConcludeSessionHappyPath(t *testing.T) {
	inf := &fakeInference{report: &inference.GeneratedReport{
		Subjective: model.SubjectiveSection{
			ChiefComplaint:   "burning chest discomfort",
			ReportedSymptoms: []string{"heartburn"},
		},
		Objective:  model.ObjectiveSection{Severity: "moderate"},
		Assessment: model.AssessmentSection{PrimaryDiagnosis: "GERD", Confidence: 88},
		Plan:       model.PlanSection{Recommendations: []string{"Schedule an endoscopy"}, Urgency: "moderate"},
	}}
	reports := &fakeReportRepo{}
	sessions := &fakeSessionRepo{}
	outbox := &fakeOutboxRepo{}
	screener := &fakeScreener{triage: model.TriageStandard}

	svc := newTestService(inf, reports, sessions, outbox, screener)
	sessionID := uuid.New()

	result, err := svc.ConcludeSession(context.Background(), sessionID, uuid.New(),
		historyWith("my chest burns after meals"), stateWith([]string{"heartburn"}, "GERD"), nil, []string{"kb-1"})

	require.NoError(t, err)
	require.NotNil(t, reports.upserted)
	assert.Equal(t, "GERD", result.Report.Assessment.PrimaryDiagnosis)
	assert.Equal(t, "Gastroenterology", result.Department)
	assert.Equal(t, model.TriageStandard, result.Triage)
	assert.Equal(t, model.ReviewPending, result.Report.ReviewStatus)
	assert.Equal(t, sessionID, result.Report.Metadata.SessionID)
	assert.Equal(t, []string{"kb-1"}, result.Report.Metadata.SourceIDs)

	// Session completed only after persistence, and the event went out.
	assert.Equal(t, []uuid.UUID{sessionID}, sessions.completed)
	require.Len(t, outbox.events, 1)
	assert.Equal(t, model.EventReportGenerated, outbox.events[0].EventType)
}

func TestConcludeSessionFallbackWhenGenerationFails(t *testing.T) {
	inf := &fakeInference{reportErr: errors.New("model unavailable")}
	reports := &fakeReportRepo{}
	sessions := &fakeSessionRepo{}
	screener := &fakeScreener{triage: model.TriageRoutine}

	svc := newTestService(inf, reports, sessions, &fakeOutboxRepo{}, screener)

	result, err := svc.ConcludeSession(context.Background(), uuid.New(), uuid.New(),
		historyWith("my knee hurts when I run"),
		stateWith([]string{"joint"}, "Tendinitis", "Osteoarthritis"), nil, nil)

	require.NoError(t, err)
	// Deterministic defaults fill every required field.
	assert.Equal(t, "my knee hurts when I run", result.Report.Subjective.ChiefComplaint)
	assert.Equal(t, "Tendinitis", result.Report.Assessment.PrimaryDiagnosis)
	assert.Contains(t, result.Report.Assessment.DifferentialDiagnoses, "Osteoarthritis")
	assert.NotEmpty(t, result.Report.Plan.Recommendations)
	assert.Equal(t, SeverityModerate, result.Report.Objective.Severity)
}

func TestConcludeSessionEmptyPoolYieldsUndetermined(t *testing.T) {
	inf := &fakeInference{reportErr: errors.New("model unavailable")}
	svc := newTestService(inf, &fakeReportRepo{}, &fakeSessionRepo{}, &fakeOutboxRepo{},
		&fakeScreener{triage: model.TriageRoutine})

	result, err := svc.ConcludeSession(context.Background(), uuid.New(), uuid.New(),
		historyWith("I just feel off"), model.NewDiagnosisState(), nil, nil)

	require.NoError(t, err)
	assert.Equal(t, "Undetermined", result.Report.Assessment.PrimaryDiagnosis)
}

func TestConcludeSessionScreensUnderReportLock(t *testing.T) {
	inf := &fakeInference{report: &inference.GeneratedReport{}}
	reports := &fakeReportRepo{}
	screener := &fakeScreener{triage: model.TriageStandard, repo: reports}

	svc := newTestService(inf, reports, &fakeSessionRepo{}, &fakeOutboxRepo{}, screener)

	_, err := svc.ConcludeSession(context.Background(), uuid.New(), uuid.New(),
		historyWith("persistent cough"), stateWith([]string{"cough"}, "Bronchitis"), nil, nil)

	require.NoError(t, err)
	// The whole save-screen-label sequence runs inside one transaction, so a
	// concurrent regeneration cannot commit between the upsert and the triage
	// write.
	assert.Equal(t, []string{"upsert:tx", "screen:tx", "triage:tx"}, reports.events)
}

func TestConcludeSessionTriageWriteFailureFailsConclude(t *testing.T) {
	inf := &fakeInference{report: &inference.GeneratedReport{}}
	reports := &fakeReportRepo{triageErr: errors.New("db down")}
	sessions := &fakeSessionRepo{}

	svc := newTestService(inf, reports, sessions, &fakeOutboxRepo{},
		&fakeScreener{triage: model.TriageRoutine})

	_, err := svc.ConcludeSession(context.Background(), uuid.New(), uuid.New(),
		historyWith("headache"), stateWith(nil, "Migraine"), nil, nil)

	require.Error(t, err)
	assert.Empty(t, sessions.completed)
}

func TestConcludeSessionPersistFailureLeavesSessionOpen(t *testing.T) {
	inf := &fakeInference{report: &inference.GeneratedReport{}}
	reports := &fakeReportRepo{upsertErr: errors.New("db down")}
	sessions := &fakeSessionRepo{}

	svc := newTestService(inf, reports, sessions, &fakeOutboxRepo{},
		&fakeScreener{triage: model.TriageRoutine})

	_, err := svc.ConcludeSession(context.Background(), uuid.New(), uuid.New(),
		historyWith("headache"), stateWith(nil, "Migraine"), nil, nil)

	require.Error(t, err)
	assert.Empty(t, sessions.completed)
}

func TestConcludeSessionScreenerOverridesProvisionalTriage(t *testing.T) {
	inf := &fakeInference{report: &inference.GeneratedReport{
		Objective: model.ObjectiveSection{Severity: "mild"},
	}}
	reports := &fakeReportRepo{}
	screener := &fakeScreener{triage: model.TriageEmergency, flags: []string{"possible sepsis"}}

	svc := newTestService(inf, reports, &fakeSessionRepo{}, &fakeOutboxRepo{}, screener)

	result, err := svc.ConcludeSession(context.Background(), uuid.New(), uuid.New(),
		historyWith("feeling feverish"), stateWith([]string{"fever"}, "Influenza"), nil, nil)

	require.NoError(t, err)
	assert.Equal(t, model.TriageEmergency, result.Triage)
	assert.Equal(t, model.TriageEmergency, result.Report.Metadata.Triage)
	assert.Contains(t, result.Report.Objective.RedFlags, "possible sepsis")
	assert.True(t, reports.triageCalled)
	assert.Equal(t, model.TriageEmergency, reports.triageSaved)
}
