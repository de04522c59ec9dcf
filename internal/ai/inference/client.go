package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/intake-api/internal/config"
	"github.com/jwalitptl/intake-api/internal/model"
	"github.com/jwalitptl/intake-api/pkg/circuitbreaker"
	"github.com/jwalitptl/intake-api/pkg/metrics"
)

// RankedDisease is one name/probability pair from the disease-identification
// call shape.
type RankedDisease struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
	Severity    string  `json:"severity,omitempty"`
}

// ResponseRequest is the clinical-response generation input.
type ResponseRequest struct {
	Window           []model.ChatMessage       `json:"window"`
	KnowledgeExcerpt string                    `json:"knowledge_excerpt"`
	PatientSummary   string                    `json:"patient_summary"`
	TopCandidates    []model.DiseaseCandidate  `json:"top_candidates"`
	PendingQuestions []model.NarrowingQuestion `json:"pending_questions"`
	PatientLanguage  string                    `json:"patient_language"`
	Ready            bool                      `json:"ready"`
}

// GeneratedResponse is the clinical-response generation output.
type GeneratedResponse struct {
	Content           string   `json:"content"`
	TranslatedContent string   `json:"translated_content"`
	Severity          string   `json:"severity"`
	Confidence        float64  `json:"confidence"`
	Symptoms          []string `json:"symptoms"`
	IsConfident       bool     `json:"is_confident"`
}

// ReportRequest is the report-generation input.
type ReportRequest struct {
	History        []model.ChatMessage   `json:"history"`
	State          *model.DiagnosisState `json:"diagnosis_state"`
	PatientSummary string                `json:"patient_summary"`
	SourceIDs      []string              `json:"source_ids"`
}

// GeneratedReport is the four-section report skeleton the model returns.
// Severity and urgency arrive as free text and are normalized downstream.
type GeneratedReport struct {
	Subjective model.SubjectiveSection `json:"subjective"`
	Objective  model.ObjectiveSection  `json:"objective"`
	Assessment model.AssessmentSection `json:"assessment"`
	Plan       model.PlanSection       `json:"plan"`
}

// RegenerateRequest re-invokes report generation with reviewer feedback. The
// feedback is authoritative when it conflicts with the prior assessment.
type RegenerateRequest struct {
	Report   *model.ClinicalReport `json:"report"`
	Feedback string                `json:"feedback"`
}

// SafetyFinding is the model-layer safety check output.
type SafetyFinding struct {
	RedFlags     []string `json:"red_flags"`
	UrgencyScore float64  `json:"urgency_score"`
}

// Client covers the three structured-generation call shapes plus the
// secondary safety check.
type Client interface {
	IdentifyDiseases(ctx context.Context, symptoms []string, patientSummary string) ([]RankedDisease, error)
	GenerateResponse(ctx context.Context, req *ResponseRequest) (*GeneratedResponse, error)
	GenerateReport(ctx context.Context, req *ReportRequest) (*GeneratedReport, error)
	RegenerateReport(ctx context.Context, req *RegenerateRequest) (*GeneratedReport, error)
	SafetyCheck(ctx context.Context, text string) (*SafetyFinding, error)
}

type httpClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cb      *circuitbreaker.CircuitBreaker
	metrics *metrics.Metrics
}

func NewClient(cfg config.EndpointConfig, m *metrics.Metrics) Client {
	return &httpClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "inference",
			MaxRequests: 10,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
		}),
		metrics: m,
	}
}

func (c *httpClient) IdentifyDiseases(ctx context.Context, symptoms []string, patientSummary string) ([]RankedDisease, error) {
	var out struct {
		Diseases []RankedDisease `json:"diseases"`
	}
	err := c.call(ctx, "identify", "/v1/identify", map[string]interface{}{
		"symptoms":        symptoms,
		"patient_summary": patientSummary,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Diseases, nil
}

func (c *httpClient) GenerateResponse(ctx context.Context, req *ResponseRequest) (*GeneratedResponse, error) {
	var out GeneratedResponse
	if err := c.call(ctx, "respond", "/v1/respond", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) GenerateReport(ctx context.Context, req *ReportRequest) (*GeneratedReport, error) {
	var out GeneratedReport
	if err := c.call(ctx, "report", "/v1/report", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) RegenerateReport(ctx context.Context, req *RegenerateRequest) (*GeneratedReport, error) {
	var out GeneratedReport
	if err := c.call(ctx, "regenerate", "/v1/report/regenerate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) SafetyCheck(ctx context.Context, text string) (*SafetyFinding, error) {
	var out SafetyFinding
	if err := c.call(ctx, "safety", "/v1/safety", map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) call(ctx context.Context, name, path string, payload, out interface{}) error {
	timer := prometheus.NewTimer(c.metrics.InferenceLatency.WithLabelValues(name))
	defer timer.ObserveDuration()

	err := c.cb.Execute(func() error {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("inference call failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("inference call returned status %d", resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode inference response: %w", err)
		}
		return nil
	})

	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.InferenceCalls.WithLabelValues(name, status).Inc()
	return err
}
