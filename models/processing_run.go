package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the status of a processing run
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// RunStep represents a step in a processing run
type RunStep struct {
	Name        string `json:"name"`
	Status      string `json:"status"` // "pending", "in_progress", "completed", "failed"
	Description string `json:"description,omitempty"`
}

// RunSteps represents the list of steps of a run
type RunSteps []RunStep

// Value implements driver.Valuer for JSONB
func (s RunSteps) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB
func (s *RunSteps) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	}
	if len(bytes) == 0 {
		*s = make(RunSteps, 0)
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// Mark sets the status of the named step, appending it if absent
func (s *RunSteps) Mark(name, status, description string) {
	for i := range *s {
		if (*s)[i].Name == name {
			(*s)[i].Status = status
			if description != "" {
				(*s)[i].Description = description
			}
			return
		}
	}
	*s = append(*s, RunStep{Name: name, Status: status, Description: description})
}

// RunCounts holds the document counters of a run
type RunCounts struct {
	Listed    int `json:"listed"`
	New       int `json:"new"`
	Pending   int `json:"pending"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Added     int `json:"added"`
	Duplicate int `json:"duplicate"`
}

// ProcessingRun records one invocation of the pipeline for a court
type ProcessingRun struct {
	ID           uuid.UUID  `json:"id"`
	Court        Court      `json:"court"`
	Status       RunStatus  `json:"status"`
	Steps        RunSteps   `json:"steps"`
	Counts       RunCounts  `json:"counts"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}
