package tracker

import "strings"

// symptomCategory maps detected symptom keywords to a curated condition list.
// The lists are review material for clinical staff; keep them data, not code.
type symptomCategory struct {
	Name       string
	Keywords   []string
	Conditions []string
}

var symptomCategories = []symptomCategory{
	{
		Name:     "pain",
		Keywords: []string{"pain", "ache", "aching", "sore", "hurts", "hurting", "cramp"},
		Conditions: []string{
			"Migraine", "Tension headache", "Appendicitis", "Kidney stones",
			"Peptic ulcer", "Gallstones", "Pancreatitis", "Endometriosis",
		},
	},
	{
		Name:     "fever",
		Keywords: []string{"fever", "feverish", "chills", "temperature", "sweating", "night sweats"},
		Conditions: []string{
			"Influenza", "COVID-19", "Pneumonia", "Urinary tract infection",
			"Malaria", "Mononucleosis", "Sepsis",
		},
	},
	{
		Name:     "respiratory",
		Keywords: []string{"cough", "coughing", "breath", "breathing", "wheezing", "wheeze", "congestion", "sputum", "phlegm"},
		Conditions: []string{
			"Asthma", "Bronchitis", "Pneumonia", "COPD", "Pulmonary embolism",
			"Tuberculosis", "Common cold",
		},
	},
	{
		Name:     "cardiac",
		Keywords: []string{"chest pain", "palpitations", "heart", "racing", "chest tightness", "chest pressure"},
		Conditions: []string{
			"Angina", "Myocardial infarction", "Atrial fibrillation",
			"Pericarditis", "Heart failure", "Hypertension",
		},
	},
	{
		Name:     "gastrointestinal",
		Keywords: []string{"nausea", "vomiting", "diarrhea", "constipation", "stomach", "abdominal", "bloating", "heartburn", "indigestion"},
		Conditions: []string{
			"Gastroenteritis", "Irritable bowel syndrome", "GERD",
			"Crohn's disease", "Ulcerative colitis", "Celiac disease",
			"Food poisoning",
		},
	},
	{
		Name:     "neurological",
		Keywords: []string{"headache", "dizziness", "dizzy", "numbness", "tingling", "seizure", "confusion", "memory", "vision"},
		Conditions: []string{
			"Migraine", "Stroke", "Epilepsy", "Multiple sclerosis",
			"Vertigo", "Peripheral neuropathy", "Concussion",
		},
	},
	{
		Name:     "musculoskeletal",
		Keywords: []string{"joint", "muscle", "back pain", "stiffness", "swelling", "sprain", "weakness"},
		Conditions: []string{
			"Osteoarthritis", "Rheumatoid arthritis", "Fibromyalgia",
			"Gout", "Herniated disc", "Tendinitis",
		},
	},
	{
		Name:     "skin",
		Keywords: []string{"rash", "itching", "itchy", "hives", "blister", "lesion", "redness", "bruising"},
		Conditions: []string{
			"Eczema", "Psoriasis", "Contact dermatitis", "Shingles",
			"Cellulitis", "Allergic reaction",
		},
	},
	{
		Name:     "mental health",
		Keywords: []string{"anxiety", "anxious", "depressed", "depression", "insomnia", "sleep", "stress", "panic", "mood"},
		Conditions: []string{
			"Generalized anxiety disorder", "Major depressive disorder",
			"Panic disorder", "Insomnia", "Adjustment disorder",
		},
	},
}

// genericFillers pads the pool toward the target size when retrieval and the
// catalog come up short. Seeded with the lowest probabilities.
var genericFillers = []string{
	"Common cold", "Influenza", "Viral infection", "Seasonal allergies",
	"Dehydration", "Vitamin deficiency", "Anemia", "Hypothyroidism",
	"Hyperthyroidism", "Diabetes mellitus", "Hypertension", "Sinusitis",
	"Gastritis", "Muscle strain", "Tension headache", "Urinary tract infection",
	"Anxiety disorder", "Acid reflux", "Bronchitis", "Otitis media",
	"Conjunctivitis", "Pharyngitis", "Sleep deprivation", "Chronic fatigue syndrome",
	"Iron deficiency", "Lactose intolerance", "Eczema", "Plantar fasciitis",
	"Carpal tunnel syndrome", "Sciatica", "Hemorrhoids", "Migraine",
	"Vertigo", "Mild food intolerance", "Stress response",
}

// negationTokens classify a patient reply as denying the asked symptom.
var negationTokens = []string{
	"no", "not", "don't", "dont", "never", "haven't", "havent",
	"nope", "none", "neither", "negative", "denies",
}

// DetectSymptoms scans normalized patient text for known symptom keywords.
func DetectSymptoms(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	seen := make(map[string]bool)
	for _, cat := range symptomCategories {
		for _, kw := range cat.Keywords {
			if strings.Contains(lower, kw) && !seen[kw] {
				seen[kw] = true
				found = append(found, kw)
			}
		}
	}
	return found
}

// categoriesFor returns the condition lists for the detected symptoms.
func categoriesFor(symptoms []string) []string {
	var conditions []string
	for _, cat := range symptomCategories {
		for _, kw := range cat.Keywords {
			if containsFold(symptoms, kw) {
				conditions = append(conditions, cat.Conditions...)
				break
			}
		}
	}
	return conditions
}

// IsNegation reports whether the utterance reads as a denial.
func IsNegation(text string) bool {
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:")
		for _, tok := range negationTokens {
			if word == tok {
				return true
			}
		}
	}
	return false
}

func containsFold(list []string, target string) bool {
	for _, s := range list {
		if strings.EqualFold(s, target) {
			return true
		}
	}
	return false
}
