package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/intake-api/internal/model"
	"github.com/jwalitptl/intake-api/internal/repository"
)

type patientContextRepository struct {
	BaseRepository
}

func NewPatientContextRepository(base BaseRepository) repository.PatientContextRepository {
	return &patientContextRepository{base}
}

type patientContextRow struct {
	PatientID         uuid.UUID      `db:"patient_id"`
	Age               int            `db:"age"`
	Gender            string         `db:"gender"`
	ChronicConditions pq.StringArray `db:"chronic_conditions"`
	Medications       pq.StringArray `db:"medications"`
	Allergies         pq.StringArray `db:"allergies"`
	FamilyHistory     pq.StringArray `db:"family_history"`
	Smoker            bool           `db:"smoker"`
	AlcoholUse        string         `db:"alcohol_use"`
}

// Load returns the patient's medical-history facts, or nil when the patient
// has no record. Absence is not an error: interviews proceed without history.
func (r *patientContextRepository) Load(ctx context.Context, patientID uuid.UUID) (*model.PatientContext, error) {
	query := `SELECT * FROM patient_contexts WHERE patient_id = $1`
	var row patientContextRow
	if err := r.GetDB().GetContext(ctx, &row, query, patientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load patient context: %w", err)
	}

	return &model.PatientContext{
		PatientID:         row.PatientID,
		Age:               row.Age,
		Gender:            row.Gender,
		ChronicConditions: []string(row.ChronicConditions),
		Medications:       []string(row.Medications),
		Allergies:         []string(row.Allergies),
		FamilyHistory:     []string(row.FamilyHistory),
		Smoker:            row.Smoker,
		AlcoholUse:        row.AlcoholUse,
	}, nil
}
