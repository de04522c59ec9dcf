package report

import "strings"

// departmentRules is the symptom/candidate-to-department policy table. Pure
// lookup over identified symptoms and candidate names, first match wins.
var departmentRules = []struct {
	Department string
	Terms      []string
}{
	{"Cardiology", []string{"chest pain", "palpitations", "heart", "angina", "infarction", "atrial"}},
	{"Pulmonology", []string{"cough", "breath", "wheezing", "asthma", "pneumonia", "copd", "bronchitis"}},
	{"Gastroenterology", []string{"abdominal", "stomach", "nausea", "vomiting", "diarrhea", "gerd", "bowel", "colitis"}},
	{"Neurology", []string{"headache", "migraine", "dizziness", "numbness", "seizure", "stroke", "neuropathy"}},
	{"Orthopedics", []string{"joint", "back pain", "fracture", "arthritis", "sprain", "disc"}},
	{"Dermatology", []string{"rash", "itching", "eczema", "psoriasis", "lesion", "hives"}},
	{"Psychiatry", []string{"anxiety", "depression", "panic", "insomnia", "mood", "suicidal"}},
	{"Urology", []string{"urinary", "kidney", "bladder"}},
	{"Endocrinology", []string{"thyroid", "diabetes"}},
}

const defaultDepartment = "General Medicine"

// AssignDepartment picks the department from identified symptoms and
// candidate names.
func AssignDepartment(symptoms []string, candidateNames []string) string {
	haystack := strings.ToLower(strings.Join(symptoms, " ") + " " + strings.Join(candidateNames, " "))
	for _, rule := range departmentRules {
		for _, term := range rule.Terms {
			if strings.Contains(haystack, term) {
				return rule.Department
			}
		}
	}
	return defaultDepartment
}
