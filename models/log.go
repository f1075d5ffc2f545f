package models

import (
	"time"

	"github.com/google/uuid"
)

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type SyncLog struct {
	ID          int64       `json:"id" db:"id"`
	RunID       uuid.UUID   `json:"run_id" db:"run_id"`
	Timestamp   time.Time   `json:"timestamp" db:"timestamp"`
	Level       LogLevel    `json:"level" db:"level"`
	Message     string      `json:"message" db:"message"`
	ListingType ListingType `json:"listing_type" db:"listing_type"`
	ListingID   string      `json:"listing_id" db:"listing_id"`
}
