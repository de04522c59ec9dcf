package safety

import "regexp"

type tier string

const (
	tierCritical tier = "critical"
	tierUrgent   tier = "urgent"
)

// rule is one entry of the data-driven safety table: a pattern, a
// human-readable flag, and a severity score on the 0-100 urgency scale.
// Keep the table literal so it stays reviewable and extensible without
// touching control flow.
type rule struct {
	pattern *regexp.Regexp
	flag    string
	score   float64
	tier    tier
}

// criticalRules score >= 90.
var criticalRules = []rule{
	{regexp.MustCompile(`(?i)chest\s+pain.*\b(breath|breathing|breathless)`), "chest pain with breathlessness", 95, tierCritical},
	{regexp.MustCompile(`(?i)\b(breath|breathing|breathless).*chest\s+pain`), "chest pain with breathlessness", 95, tierCritical},
	{regexp.MustCompile(`(?i)(face|facial)\s+droop|slurred\s+speech|one.?sided\s+weakness`), "possible stroke signs", 95, tierCritical},
	{regexp.MustCompile(`(?i)anaphyla|throat\s+(swelling|closing)|can'?t\s+swallow`), "possible anaphylaxis", 95, tierCritical},
	{regexp.MustCompile(`(?i)suicid(e|al)|kill\s+(myself|himself|herself)|self.?harm`), "suicidal ideation", 98, tierCritical},
	{regexp.MustCompile(`(?i)unconscious|unresponsive|not\s+breathing`), "loss of consciousness", 95, tierCritical},
	{regexp.MustCompile(`(?i)severe\s+bleeding|coughing\s+(up\s+)?blood|vomiting\s+blood`), "severe hemorrhage", 92, tierCritical},
	{regexp.MustCompile(`(?i)worst\s+headache\s+of\s+(my|their)\s+life|thunderclap\s+headache`), "possible subarachnoid hemorrhage", 90, tierCritical},
}

// urgentRules score 65-85.
var urgentRules = []rule{
	{regexp.MustCompile(`(?i)(high\s+fever|fever\s+(above|over)\s+(39|40|103|104))`), "high fever", 75, tierUrgent},
	{regexp.MustCompile(`(?i)(blood\s+in\s+(stool|urine)|rectal\s+bleeding|melena|black\s+stool)`), "gastrointestinal bleeding", 80, tierUrgent},
	{regexp.MustCompile(`(?i)sudden\s+(vision\s+loss|loss\s+of\s+vision|blindness)`), "sudden vision loss", 85, tierUrgent},
	{regexp.MustCompile(`(?i)severe\s+(abdominal|stomach)\s+pain`), "severe abdominal pain", 75, tierUrgent},
	{regexp.MustCompile(`(?i)(dehydrat(ed|ion).*(can'?t|unable).*(drink|keep)|persistent\s+vomiting)`), "persistent vomiting or dehydration", 70, tierUrgent},
	{regexp.MustCompile(`(?i)(stiff\s+neck.*fever|fever.*stiff\s+neck)`), "possible meningitis", 85, tierUrgent},
	{regexp.MustCompile(`(?i)(numbness|tingling).*(spreading|sudden)`), "progressive neurological symptoms", 70, tierUrgent},
	{regexp.MustCompile(`(?i)severe\s+allergic\s+reaction|widespread\s+hives`), "severe allergic reaction", 78, tierUrgent},
}

// Final label thresholds on the combined urgency score.
const (
	emergencyThreshold = 90.0
	urgentThreshold    = 70.0
	standardThreshold  = 40.0

	// The model layer runs when the rule layer matched anything or the
	// running urgency score reached this bound.
	modelLayerThreshold = 50.0
)
