package model

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionConcluded SessionStatus = "concluded"
	SessionCompleted SessionStatus = "completed"
)

type Session struct {
	ID        uuid.UUID     `db:"id" json:"id"`
	PatientID uuid.UUID     `db:"patient_id" json:"patient_id"`
	Status    SessionStatus `db:"status" json:"status"`
	TurnCount int           `db:"turn_count" json:"turn_count"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}
