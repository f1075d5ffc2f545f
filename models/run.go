package models

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

// SyncRun is one invocation of the uploader against one environment
type SyncRun struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Env        string     `json:"env" db:"env"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at" db:"finished_at"`
	Status     RunStatus  `json:"status" db:"status"`
	NextRunAt  *time.Time `json:"next_run_at" db:"next_run_at"`
}

// TypeResult aggregates what happened to one extract type within a run
type TypeResult struct {
	RunID       uuid.UUID   `json:"run_id" db:"run_id"`
	Type        ListingType `json:"type" db:"type"`
	Rows        int         `json:"rows" db:"rows"`
	Upserted    int         `json:"upserted" db:"upserted"`
	Inserted    int         `json:"inserted" db:"inserted"`
	Malformed   int         `json:"malformed" db:"malformed"`
	StoreErrors int         `json:"store_errors" db:"store_errors"`
	Retired     int64       `json:"retired" db:"retired"`
	Swept       bool        `json:"swept" db:"swept"`
	SweepError  string      `json:"sweep_error" db:"sweep_error"`
}

// Failed is the number of rows that never reached the store
func (r *TypeResult) Failed() int {
	return r.Malformed + r.StoreErrors
}
