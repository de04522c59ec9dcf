package model

import (
	"strings"

	"github.com/google/uuid"
)

// PatientContext holds the structured medical-history facts loaded from the
// patient store. The interview pipeline only reads it.
type PatientContext struct {
	PatientID         uuid.UUID `json:"patient_id" db:"patient_id"`
	Age               int       `json:"age" db:"age"`
	Gender            string    `json:"gender" db:"gender"`
	ChronicConditions []string  `json:"chronic_conditions"`
	Medications       []string  `json:"medications"`
	Allergies         []string  `json:"allergies"`
	FamilyHistory     []string  `json:"family_history"`
	Smoker            bool      `json:"smoker" db:"smoker"`
	AlcoholUse        string    `json:"alcohol_use" db:"alcohol_use"`
}

// Summary renders the context as a compact prompt fragment.
func (p *PatientContext) Summary() string {
	if p == nil {
		return "no prior medical history on file"
	}
	var b strings.Builder
	if len(p.ChronicConditions) > 0 {
		b.WriteString("chronic conditions: " + strings.Join(p.ChronicConditions, ", ") + "; ")
	}
	if len(p.Medications) > 0 {
		b.WriteString("medications: " + strings.Join(p.Medications, ", ") + "; ")
	}
	if len(p.Allergies) > 0 {
		b.WriteString("allergies: " + strings.Join(p.Allergies, ", ") + "; ")
	}
	if len(p.FamilyHistory) > 0 {
		b.WriteString("family history: " + strings.Join(p.FamilyHistory, ", ") + "; ")
	}
	if p.Smoker {
		b.WriteString("smoker; ")
	}
	if s := strings.TrimSuffix(strings.TrimSpace(b.String()), ";"); s != "" {
		return s
	}
	return "no prior medical history on file"
}
