package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"remote-jobs/internal/database"
	"remote-jobs/internal/domain/job"

	"github.com/google/uuid"
)

var ErrCrawlRunNotFound = errors.New("crawl run not found")

type CrawlLogRepository interface {
	Start(ctx context.Context, source, stage string) (uuid.UUID, error)
	Finish(ctx context.Context, id uuid.UUID, stats job.CrawlStats, errMsg string) error
	Recent(ctx context.Context, source string, limit int) ([]job.CrawlRun, error)
}

type PostgresCrawlLogRepository struct {
	db database.DB
}

func NewPostgresCrawlLogRepository(db database.DB) *PostgresCrawlLogRepository {
	return &PostgresCrawlLogRepository{db: db}
}

func (r *PostgresCrawlLogRepository) Start(ctx context.Context, source, stage string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.Exec(ctx,
		`INSERT INTO crawl_log (id, source, stage, status, started_at) VALUES ($1, $2, $3, $4, now())`,
		id, source, stage, job.CrawlStatusRunning,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Finish closes a run. A non-empty errMsg marks it as failed.
func (r *PostgresCrawlLogRepository) Finish(ctx context.Context, id uuid.UUID, stats job.CrawlStats, errMsg string) error {
	n, err := r.db.Exec(ctx,
		`UPDATE crawl_log SET
			jobs_found = $2, details_fetched = $3, jobs_new = $4, jobs_updated = $5,
			duplicates = $6, quality_rejected = $7, errors = $8,
			status = $9, error_message = $10, finished_at = now()
		 WHERE id = $1`,
		id, stats.Found, stats.DetailsFetched, stats.New, stats.Updated,
		stats.Duplicates, stats.QualityRejected, stats.Errors,
		finishStatus(errMsg), errMsg,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrCrawlRunNotFound, id)
	}
	return nil
}

func finishStatus(errMsg string) string {
	if strings.TrimSpace(errMsg) != "" {
		return job.CrawlStatusError
	}
	return job.CrawlStatusCompleted
}

// Recent lists the latest runs, optionally for one source.
func (r *PostgresCrawlLogRepository) Recent(ctx context.Context, source string, limit int) ([]job.CrawlRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	source = strings.ToLower(strings.TrimSpace(source))

	rows, err := r.db.Query(ctx,
		`SELECT id, source, stage, jobs_found, details_fetched, jobs_new, jobs_updated, duplicates,
			quality_rejected, errors, status, error_message, started_at, finished_at
		 FROM crawl_log
		 WHERE ($1 = '' OR source = $1)
		 ORDER BY started_at DESC
		 LIMIT $2`,
		source, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]job.CrawlRun, 0)
	for rows.Next() {
		var c job.CrawlRun
		if err := rows.Scan(
			&c.ID, &c.Source, &c.Stage, &c.Stats.Found, &c.Stats.DetailsFetched, &c.Stats.New, &c.Stats.Updated,
			&c.Stats.Duplicates, &c.Stats.QualityRejected, &c.Stats.Errors, &c.Status, &c.ErrorMessage,
			&c.StartedAt, &c.FinishedAt,
		); err != nil {
			return nil, err
		}
		c.StartedAt = c.StartedAt.UTC()
		if c.FinishedAt != nil {
			t := c.FinishedAt.UTC()
			c.FinishedAt = &t
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
