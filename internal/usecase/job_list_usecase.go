package usecase

import (
	"context"
	"errors"
	"log"
	"strings"

	"remote-jobs/internal/domain/job"
	"remote-jobs/internal/repository"

	"github.com/google/uuid"
)

const (
	defaultJobListLimit = 20
	maxJobListLimit     = 50
)

type JobListParams struct {
	Status   string
	Source   string
	Category string
	Limit    int
	Offset   int
}

type JobPage struct {
	Items  []job.Job `json:"items"`
	Total  int       `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

type JobListUsecase interface {
	ListJobs(ctx context.Context, params JobListParams) (JobPage, error)
	GetJob(ctx context.Context, id uuid.UUID) (job.Job, error)
	CountByStatus(ctx context.Context) (map[job.Status]int, error)
}

type JobList struct {
	jobs  repository.JobRepository
	cache JobCache
	log   *log.Logger
}

func NewJobListUsecase(jobs repository.JobRepository, cache JobCache, logger *log.Logger) *JobList {
	if logger == nil {
		logger = log.Default()
	}
	return &JobList{jobs: jobs, cache: cache, log: logger}
}

func (u *JobList) ListJobs(ctx context.Context, params JobListParams) (JobPage, error) {
	if params.Limit == 0 {
		params.Limit = defaultJobListLimit
	}
	if params.Limit < 0 || params.Limit > maxJobListLimit || params.Offset < 0 {
		return JobPage{}, ErrInvalidInput
	}
	params.Status = strings.ToLower(strings.TrimSpace(params.Status))
	switch job.Status(params.Status) {
	case "", job.StatusActive, job.StatusStale, job.StatusRemoved:
	default:
		return JobPage{}, ErrInvalidInput
	}

	params.Source = strings.ToLower(strings.TrimSpace(params.Source))
	if c := strings.TrimSpace(params.Category); c != "" {
		cat, ok := job.ParseCategory(c)
		if !ok {
			return JobPage{}, ErrInvalidInput
		}
		params.Category = string(cat)
	}

	key := JobListCacheKey(params)
	if u.cache != nil {
		var cached JobPage
		hit, err := u.cache.GetJSON(ctx, key, &cached)
		if err == nil && hit {
			u.log.Printf("usecase=jobs cache=hit key=%s", key)
			return cached, nil
		}
	}

	items, total, err := u.jobs.List(ctx, repository.JobFilter{
		Status:   job.Status(params.Status),
		Source:   params.Source,
		Category: job.Category(params.Category),
		Limit:    params.Limit,
		Offset:   params.Offset,
	})
	if err != nil {
		u.log.Printf("usecase=jobs step=list status=error err=%v", err)
		return JobPage{}, ErrInternal
	}
	if items == nil {
		items = []job.Job{}
	}
	page := JobPage{Items: items, Total: total, Limit: params.Limit, Offset: params.Offset}

	if u.cache != nil {
		if err := u.cache.SetJSON(ctx, key, page, jobListCacheTTL); err != nil {
			u.log.Printf("usecase=jobs cache=set status=error err=%v", err)
		}
	}
	return page, nil
}

func (u *JobList) GetJob(ctx context.Context, id uuid.UUID) (job.Job, error) {
	if id == uuid.Nil {
		return job.Job{}, ErrInvalidInput
	}
	j, err := u.jobs.Get(ctx, id)
	if errors.Is(err, repository.ErrJobNotFound) {
		return job.Job{}, ErrNotFound
	}
	if err != nil {
		u.log.Printf("usecase=jobs step=get id=%s status=error err=%v", id, err)
		return job.Job{}, ErrInternal
	}
	return j, nil
}

func (u *JobList) CountByStatus(ctx context.Context) (map[job.Status]int, error) {
	counts, err := u.jobs.CountByStatus(ctx)
	if err != nil {
		u.log.Printf("usecase=jobs step=count status=error err=%v", err)
		return nil, ErrInternal
	}
	return counts, nil
}
