package ws

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

const (
	EventJobsUpdated = "jobs_updated"

	// JobListCachePattern matches every cached job list page.
	JobListCachePattern = "jobs:list:*"
)

type JobsUpdatedEvent struct {
	Type      string `json:"type"`
	Source    string `json:"source"`
	NewJobs   int    `json:"new_jobs"`
	Timestamp string `json:"timestamp"`
}

// CacheInvalidator drops cached keys matching a glob pattern.
type CacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// Notifier clears the cached job lists after a crawl changed stored jobs and
// tells subscribers when some of them are new.
type Notifier struct {
	hub   *Hub
	cache CacheInvalidator
	log   *log.Logger
	now   func() time.Time
}

func NewNotifier(hub *Hub, cache CacheInvalidator, logger *log.Logger) *Notifier {
	if logger == nil {
		logger = log.Default()
	}
	return &Notifier{hub: hub, cache: cache, log: logger, now: time.Now}
}

func (n *Notifier) NotifyJobsUpdated(source string, newJobs, updatedJobs int) {
	if n == nil || (newJobs <= 0 && updatedJobs <= 0) {
		return
	}

	if n.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := n.cache.DeleteByPattern(ctx, JobListCachePattern); err != nil {
			n.log.Printf("ws=notify step=invalidate_cache status=error err=%v", err)
		}
		cancel()
	}
	if newJobs <= 0 {
		return
	}

	b, err := json.Marshal(JobsUpdatedEvent{
		Type:      EventJobsUpdated,
		Source:    source,
		NewJobs:   newJobs,
		Timestamp: n.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		n.log.Printf("ws=notify status=error err=%v", err)
		return
	}
	n.hub.Broadcast(b)
}
