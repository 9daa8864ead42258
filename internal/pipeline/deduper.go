package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"remote-jobs/internal/domain/job"

	"github.com/google/uuid"
)

var ErrDuplicateLookup = errors.New("duplicate lookup failed")

// FingerprintFinder looks up an active job with the given fingerprint,
// ignoring excludeID when it is not uuid.Nil.
type FingerprintFinder interface {
	FindActiveByFingerprint(ctx context.Context, hash string, excludeID uuid.UUID) (*job.Reference, error)
}

// Deduplicator decides whether a job is already represented by another
// active job. Apply URLs are never compared: many unrelated postings share a
// company's generic careers page.
type Deduplicator struct {
	finder FingerprintFinder
}

func NewDeduplicator(finder FingerprintFinder) *Deduplicator {
	return &Deduplicator{finder: finder}
}

// Check returns the existing job j duplicates, or nil. A lookup failure is an
// error, never "no duplicate".
func (d *Deduplicator) Check(ctx context.Context, j job.Job) (*job.Reference, error) {
	if d == nil || d.finder == nil {
		return nil, fmt.Errorf("%w: nil finder", ErrDuplicateLookup)
	}
	hash := strings.TrimSpace(j.FingerprintHash)
	if hash == "" {
		return nil, nil
	}

	ref, err := d.finder.FindActiveByFingerprint(ctx, hash, j.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: fingerprint=%s: %w", ErrDuplicateLookup, hash, err)
	}
	return ref, nil
}
