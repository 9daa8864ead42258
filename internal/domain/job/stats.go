package job

import (
	"time"

	"github.com/google/uuid"
)

// CrawlStats tallies one source run. Every processed listing lands in exactly
// one of New, Updated, Duplicates, QualityRejected or Errors.
type CrawlStats struct {
	Found           int `json:"listings_found"`
	DetailsFetched  int `json:"details_fetched"`
	New             int `json:"jobs_new"`
	Updated         int `json:"jobs_updated"`
	Duplicates      int `json:"duplicates"`
	QualityRejected int `json:"quality_rejected"`
	Errors          int `json:"errors"`
}

func (s CrawlStats) Processed() int {
	return s.New + s.Updated + s.Duplicates + s.QualityRejected + s.Errors
}

func (s *CrawlStats) Add(o CrawlStats) {
	s.Found += o.Found
	s.DetailsFetched += o.DetailsFetched
	s.New += o.New
	s.Updated += o.Updated
	s.Duplicates += o.Duplicates
	s.QualityRejected += o.QualityRejected
	s.Errors += o.Errors
}

const (
	CrawlStatusRunning   = "running"
	CrawlStatusCompleted = "completed"
	CrawlStatusError     = "error"
)

// CrawlRun is one row of the crawl log.
type CrawlRun struct {
	ID           uuid.UUID  `json:"id"`
	Source       string     `json:"source"`
	Stage        string     `json:"stage"`
	Stats        CrawlStats `json:"stats"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
