package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"remote-jobs/internal/domain/job"

	"github.com/google/uuid"
)

// MemoryJobStore keeps jobs in process. It enforces the same uniqueness as
// the Postgres schema: one row per (source, source_job_id) and at most one
// active row per fingerprint.
type MemoryJobStore struct {
	mu    sync.RWMutex
	rows  map[uuid.UUID]*job.Job
	byKey map[string]uuid.UUID
	now   func() time.Time
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		rows:  map[uuid.UUID]*job.Job{},
		byKey: map[string]uuid.UUID{},
		now:   time.Now,
	}
}

func (s *MemoryJobStore) Upsert(_ context.Context, j *job.Job) (job.UpsertResult, error) {
	if j == nil {
		return job.UpsertResult{}, fmt.Errorf("nil job")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := j.NaturalKey()
	existingID, exists := s.byKey[key]

	if j.Status == job.StatusActive && j.FingerprintHash != "" {
		for id, row := range s.rows {
			if id != existingID && row.Status == job.StatusActive && row.FingerprintHash == j.FingerprintHash {
				return job.UpsertResult{}, fmt.Errorf("%w: fingerprint=%s", job.ErrDuplicateFingerprint, j.FingerprintHash)
			}
		}
	}

	now := s.now().UTC()
	cp := *j
	cp.Tags = append([]string(nil), j.Tags...)
	cp.UpdatedAt, cp.LastCheckedAt = now, now

	if exists {
		cp.ID = existingID
		cp.CreatedAt = s.rows[existingID].CreatedAt
		s.rows[existingID] = &cp
		return job.UpsertResult{ID: existingID}, nil
	}

	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	cp.CreatedAt = now
	s.rows[cp.ID] = &cp
	s.byKey[key] = cp.ID
	return job.UpsertResult{ID: cp.ID, Inserted: true}, nil
}

func (s *MemoryJobStore) FindActiveByFingerprint(_ context.Context, hash string, excludeID uuid.UUID) (*job.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, row := range s.rows {
		if id != excludeID && row.Status == job.StatusActive && row.FingerprintHash == hash {
			return &job.Reference{ID: id, Source: row.Source}, nil
		}
	}
	return nil, nil
}

func (s *MemoryJobStore) FindIDByNaturalKey(_ context.Context, source, sourceJobID string) (uuid.UUID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[job.Job{Source: source, SourceJobID: sourceJobID}.NaturalKey()]
	return id, ok, nil
}

func (s *MemoryJobStore) MarkStale(_ context.Context, source string, checkedBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, row := range s.rows {
		if row.Source == source && row.Status == job.StatusActive && row.LastCheckedAt.Before(checkedBefore) {
			row.Status = job.StatusStale
			row.UpdatedAt = s.now().UTC()
			n++
		}
	}
	return n, nil
}

func (s *MemoryJobStore) Get(_ context.Context, id uuid.UUID) (job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id]
	if !ok {
		return job.Job{}, ErrJobNotFound
	}
	return *row, nil
}

func (s *MemoryJobStore) List(_ context.Context, f JobFilter) ([]job.Job, int, error) {
	f = f.normalized()
	s.mu.RLock()
	matched := make([]job.Job, 0, len(s.rows))
	for _, row := range s.rows {
		if f.Status != "" && row.Status != f.Status {
			continue
		}
		if f.Source != "" && row.Source != f.Source {
			continue
		}
		if f.Category != "" && row.Category != f.Category {
			continue
		}
		matched = append(matched, *row)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if c := strings.Compare(matched[i].PostedAt, matched[j].PostedAt); c != 0 {
			return c > 0
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if f.Offset >= total {
		return []job.Job{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return matched[f.Offset:end], total, nil
}

func (s *MemoryJobStore) CountByStatus(context.Context) (map[job.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[job.Status]int{}
	for _, row := range s.rows {
		out[row.Status]++
	}
	return out, nil
}

// MemoryCrawlLog is the in-process crawl log used by dry runs.
type MemoryCrawlLog struct {
	mu   sync.Mutex
	runs []job.CrawlRun
	now  func() time.Time
}

func NewMemoryCrawlLog() *MemoryCrawlLog {
	return &MemoryCrawlLog{now: time.Now}
}

func (l *MemoryCrawlLog) Start(_ context.Context, source, stage string) (uuid.UUID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	run := job.CrawlRun{
		ID:        uuid.New(),
		Source:    source,
		Stage:     stage,
		Status:    job.CrawlStatusRunning,
		StartedAt: l.now().UTC(),
	}
	l.runs = append(l.runs, run)
	return run.ID, nil
}

func (l *MemoryCrawlLog) Finish(_ context.Context, id uuid.UUID, stats job.CrawlStats, errMsg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.runs {
		if l.runs[i].ID != id {
			continue
		}
		finished := l.now().UTC()
		l.runs[i].Stats = stats
		l.runs[i].Status = finishStatus(errMsg)
		l.runs[i].ErrorMessage = errMsg
		l.runs[i].FinishedAt = &finished
		return nil
	}
	return fmt.Errorf("%w: %s", ErrCrawlRunNotFound, id)
}

func (l *MemoryCrawlLog) Recent(_ context.Context, source string, limit int) ([]job.CrawlRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	source = strings.ToLower(strings.TrimSpace(source))

	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]job.CrawlRun, 0, limit)
	for i := len(l.runs) - 1; i >= 0 && len(out) < limit; i-- {
		if source != "" && l.runs[i].Source != source {
			continue
		}
		out = append(out, l.runs[i])
	}
	return out, nil
}
