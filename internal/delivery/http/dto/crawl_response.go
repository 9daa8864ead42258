package dto

import (
	"time"

	"remote-jobs/internal/domain/job"

	"github.com/google/uuid"
)

type CrawlRunResponse struct {
	ID              uuid.UUID  `json:"id"`
	Source          string     `json:"source"`
	Stage           string     `json:"stage"`
	Status          string     `json:"status"`
	JobsFound       int        `json:"jobs_found"`
	DetailsFetched  int        `json:"details_fetched"`
	JobsNew         int        `json:"jobs_new"`
	JobsUpdated     int        `json:"jobs_updated"`
	Duplicates      int        `json:"duplicates"`
	QualityRejected int        `json:"quality_rejected"`
	Errors          int        `json:"errors"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at"`
}

type CrawlTriggerRequest struct {
	Source     string `json:"source"`
	MaxDetails int    `json:"max_details"`
}

type CrawlTriggerResponse struct {
	Source     string `json:"source"`
	MaxDetails int    `json:"max_details"`
	Accepted   bool   `json:"accepted"`
}

func NewCrawlRunResponse(r job.CrawlRun) CrawlRunResponse {
	return CrawlRunResponse{
		ID:              r.ID,
		Source:          r.Source,
		Stage:           r.Stage,
		Status:          string(r.Status),
		JobsFound:       r.Stats.Found,
		DetailsFetched:  r.Stats.DetailsFetched,
		JobsNew:         r.Stats.New,
		JobsUpdated:     r.Stats.Updated,
		Duplicates:      r.Stats.Duplicates,
		QualityRejected: r.Stats.QualityRejected,
		Errors:          r.Stats.Errors,
		ErrorMessage:    r.ErrorMessage,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
	}
}
