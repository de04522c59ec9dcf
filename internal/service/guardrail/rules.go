package guardrail

import "regexp"

// Rule tables are literal data so clinical reviewers can audit and extend
// them without touching control flow.

// harmfulPatterns hard-block the input: the turn is refused outright.
var harmfulPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)how\s+(to|do\s+i|can\s+i)\s+(kill|hurt|harm)\s+(myself|someone)`),
	regexp.MustCompile(`(?i)(method|way|ways)\s+(to|of)\s+(suicide|self.?harm|overdos)`),
	regexp.MustCompile(`(?i)(lethal|fatal|deadly)\s+(dose|dosage|amount)`),
	regexp.MustCompile(`(?i)(mix|combine|combining)\s+.*(drugs|medications|pills)\s+.*(high|overdose|die)`),
	regexp.MustCompile(`(?i)how\s+(much|many)\s+\w+\s+(to|would)\s+(overdose|kill)`),
}

// selfHarmPatterns flag suicidal ideation. These are never blocked; they
// force the emergency disclaimer and downstream escalation signaling.
var selfHarmPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(kill|hurt|harm)(ing)?\s+myself\b`),
	regexp.MustCompile(`(?i)\bsuicid(e|al)\b`),
	regexp.MustCompile(`(?i)\bend\s+(my|it\s+all|everything)\b`),
	regexp.MustCompile(`(?i)\b(don'?t|do\s+not)\s+want\s+to\s+(live|be\s+alive)\b`),
	regexp.MustCompile(`(?i)\bno\s+reason\s+to\s+live\b`),
	regexp.MustCompile(`(?i)\bbetter\s+off\s+dead\b`),
}

// directivePatterns catch concrete medical directives the assistant must not
// issue; matches are replaced with a deferral phrase.
var directivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\btake\s+\d+\s*(mg|ml|mcg|g|milligrams?|tablets?|pills?|capsules?)\b[^.!?]*`),
	regexp.MustCompile(`(?i)\b\d+\s*(mg|ml|mcg)\s+(of\s+)?[a-z]+(\s+(daily|twice|once|every))?[^.!?]*`),
	regexp.MustCompile(`(?i)\b(stop|discontinue|quit)\s+(taking\s+)?(your\s+)?\w*\s*(medication|medicine|prescription|pills?)\b[^.!?]*`),
	regexp.MustCompile(`(?i)\b(start|begin)\s+taking\s+[^.!?]*`),
	regexp.MustCompile(`(?i)\b(double|increase|decrease|adjust)\s+(the\s+|your\s+)?dos(e|age)\b[^.!?]*`),
}

// absoluteClaim rewrites pair over-confident phrasing with hedged language.
type absoluteClaim struct {
	pattern     *regexp.Regexp
	replacement string
}

var absoluteClaims = []absoluteClaim{
	{regexp.MustCompile(`(?i)\bdefinitely\b`), "likely"},
	{regexp.MustCompile(`(?i)\bcertainly\b`), "possibly"},
	{regexp.MustCompile(`(?i)\b100%\s*(certain|sure)\b`), "fairly confident"},
	{regexp.MustCompile(`(?i)\bguaranteed?\b`), "expected"},
	{regexp.MustCompile(`(?i)\bwithout\s+a\s+doubt\b`), "in all likelihood"},
	{regexp.MustCompile(`(?i)\babsolutely\s+(certain|sure)\b`), "reasonably confident"},
}

// diagnosisTerms trigger the diagnosis disclaimer on outgoing text.
var diagnosisTerms = regexp.MustCompile(`(?i)\b(diagnos(is|es|ed)|condition|disease|disorder|syndrome)\b`)

// emergencyTerms trigger the emergency disclaimer on outgoing text.
var emergencyTerms = regexp.MustCompile(`(?i)\b(emergency|chest\s+pain|stroke|heart\s+attack|can'?t\s+breathe|difficulty\s+breathing|unconscious|severe\s+bleeding)\b`)

const (
	refusalMessage = "I'm not able to help with that request. If you are in crisis or thinking about harming yourself, please contact your local emergency number or a crisis helpline right away."

	deferralPhrase = "please consult your physician or pharmacist about medication and dosing"

	diagnosisDisclaimer = "Please note: this is not a medical diagnosis. A licensed physician will review your case and confirm any findings."

	emergencyDisclaimer = "If your symptoms are severe or worsening, please seek emergency medical care immediately or call your local emergency number."
)
