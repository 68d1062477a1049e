package program

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

type Program struct {
	ID          string     `json:"id"`
	PlayerID    string     `json:"player_id"`
	DoctorID    string     `json:"doctor_id,omitempty"`
	FocusArea   string     `json:"focus_area"`
	Exercises   []string   `json:"exercises"`
	Status      Status     `json:"status"`
	AIGenerated bool       `json:"ai_generated"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// plan is the stored shape of the exercises column.
type plan struct {
	FocusArea string   `json:"focus_area"`
	Program   []string `json:"program"`
}

func (p Program) plan() ([]byte, error) {
	exercises := p.Exercises
	if exercises == nil {
		exercises = []string{}
	}
	return json.Marshal(plan{FocusArea: p.FocusArea, Program: exercises})
}

type CreateInput struct {
	PlayerID  string   `json:"player_id" validate:"required"`
	FocusArea string   `json:"focus_area" validate:"required,max=255"`
	Exercises []string `json:"exercises" validate:"required,min=1,dive,required"`
}

// EditInput fields left nil keep their stored value.
type EditInput struct {
	FocusArea *string   `json:"focus_area" validate:"omitempty,max=255"`
	Exercises *[]string `json:"exercises" validate:"omitempty,dive,required"`
	Status    *string   `json:"status" validate:"omitempty,oneof=pending approved"`
}

type GenerateInput struct {
	DoctorID string `json:"doctor_id"`
}
