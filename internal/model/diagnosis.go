package model

import (
	"sort"
	"strings"
	"time"
)

// DiseaseCandidate is a condition hypothesis under consideration. Probability
// is a soft belief on a 0-100 scale; candidates are not normalized to sum
// to 100.
type DiseaseCandidate struct {
	Name                    string   `json:"name"`
	Probability             float64  `json:"probability"`
	MatchedSymptoms         []string `json:"matched_symptoms"`
	DifferentiatingSymptoms []string `json:"differentiating_symptoms"`
	Severity                string   `json:"severity"`
}

// MatchesSymptom reports whether the candidate is tied to the given symptom,
// either through its differentiators or its name.
func (c *DiseaseCandidate) MatchesSymptom(symptom string) bool {
	s := strings.ToLower(symptom)
	for _, d := range c.DifferentiatingSymptoms {
		if strings.ToLower(d) == s {
			return true
		}
	}
	for _, m := range c.MatchedSymptoms {
		if strings.ToLower(m) == s {
			return true
		}
	}
	return strings.Contains(strings.ToLower(c.Name), s)
}

// EliminationRecord is an append-only audit entry explaining one narrowing
// step. Never mutated after creation.
type EliminationRecord struct {
	Turn       int       `json:"turn"`
	Eliminated []string  `json:"eliminated"`
	Reason     string    `json:"reason"`
	Remaining  int       `json:"remaining"`
	CreatedAt  time.Time `json:"created_at"`
}

// NarrowingQuestion is a stub targeting one candidate's differentiator; the
// dialogue policy fills in the patient-facing phrasing.
type NarrowingQuestion struct {
	Candidate     string `json:"candidate"`
	TargetSymptom string `json:"target_symptom"`
	Question      string `json:"question,omitempty"`
}

// DiagnosisState is the single piece of state threaded across turns. The
// calling session owns it and passes it in and out on every turn.
type DiagnosisState struct {
	Candidates         []DiseaseCandidate  `json:"candidates"`
	ConfidenceScore    float64             `json:"confidence_score"`
	IdentifiedSymptoms []string            `json:"identified_symptoms"`
	RuledOut           []EliminationRecord `json:"ruled_out"`
	PendingQuestions   []NarrowingQuestion `json:"pending_questions"`
	InitialPoolSize    int                 `json:"initial_pool_size"`
}

// NewDiagnosisState returns the empty state created at interview start.
func NewDiagnosisState() *DiagnosisState {
	return &DiagnosisState{
		Candidates:         []DiseaseCandidate{},
		IdentifiedSymptoms: []string{},
		RuledOut:           []EliminationRecord{},
		PendingQuestions:   []NarrowingQuestion{},
	}
}

// Clone returns a deep copy. Turns mutate a copy and swap it in atomically so
// a canceled turn leaves no partial state visible.
func (s *DiagnosisState) Clone() *DiagnosisState {
	if s == nil {
		return NewDiagnosisState()
	}
	out := &DiagnosisState{
		ConfidenceScore:    s.ConfidenceScore,
		InitialPoolSize:    s.InitialPoolSize,
		Candidates:         make([]DiseaseCandidate, len(s.Candidates)),
		IdentifiedSymptoms: append([]string(nil), s.IdentifiedSymptoms...),
		RuledOut:           append([]EliminationRecord(nil), s.RuledOut...),
		PendingQuestions:   append([]NarrowingQuestion(nil), s.PendingQuestions...),
	}
	for i, c := range s.Candidates {
		cc := c
		cc.MatchedSymptoms = append([]string(nil), c.MatchedSymptoms...)
		cc.DifferentiatingSymptoms = append([]string(nil), c.DifferentiatingSymptoms...)
		out.Candidates[i] = cc
	}
	return out
}

// SortCandidates orders candidates by descending probability.
func (s *DiagnosisState) SortCandidates() {
	sort.SliceStable(s.Candidates, func(i, j int) bool {
		return s.Candidates[i].Probability > s.Candidates[j].Probability
	})
}

// TopCandidate returns the leading hypothesis, or nil when the pool is empty.
func (s *DiagnosisState) TopCandidate() *DiseaseCandidate {
	if len(s.Candidates) == 0 {
		return nil
	}
	return &s.Candidates[0]
}

// AddSymptoms merges new symptoms into the identified set, case-insensitively.
func (s *DiagnosisState) AddSymptoms(symptoms []string) {
	seen := make(map[string]bool, len(s.IdentifiedSymptoms))
	for _, sym := range s.IdentifiedSymptoms {
		seen[strings.ToLower(sym)] = true
	}
	for _, sym := range symptoms {
		key := strings.ToLower(strings.TrimSpace(sym))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		s.IdentifiedSymptoms = append(s.IdentifiedSymptoms, strings.TrimSpace(sym))
	}
}
