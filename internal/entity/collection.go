package entity

import (
	"database/sql"
	"time"
)

type CollectionStatus string

const (
	CollectionStatusSuccess CollectionStatus = "success"
	CollectionStatusQueued  CollectionStatus = "queued"
	CollectionStatusPartial CollectionStatus = "partial"
	CollectionStatusFailed  CollectionStatus = "failed"
)

type CollectionRun struct {
	ID           string           `db:"id" json:"id"`
	Provider     string           `db:"provider" json:"provider"`
	League       string           `db:"league" json:"league"`
	Events       int              `db:"events" json:"events"`
	Offers       int              `db:"offers" json:"offers"`
	FailedEvents int              `db:"failed_events" json:"failed_events"`
	Status       CollectionStatus `db:"status" json:"status"`
	ErrorMessage sql.NullString   `db:"error_message" json:"error_message"`
	StartedAt    time.Time        `db:"started_at" json:"started_at"`
	FinishedAt   sql.NullTime     `db:"finished_at" json:"finished_at"`
}

func (c CollectionRun) TableName() string {
	return "collection_runs"
}

type CollectionResult struct {
	RunID    string
	Provider ProviderKey
	League   string
	Events   []SportEventData
	Offers   int
	Failed   int
	Stored   bool
}

type CollectionResponse struct {
	Status      CollectionStatus `json:"status"`
	Collected   int              `json:"collected"`
	Offers      int              `json:"offers"`
	Failed      int              `json:"failed,omitempty"`
	Version     string           `json:"version,omitempty"`
	ProviderKey ProviderKey      `json:"provider_key,omitempty"`
	League      string           `json:"league,omitempty"`
	RunID       string           `json:"run_id,omitempty"`
}

type HealthStatus struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Version     string    `json:"version,omitempty"`
	StartupTime time.Time `json:"startup_time"`
}

type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type PaginatedResponse[T any] struct {
	Data   []T `json:"data"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
