package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

const (
	jobListCachePrefix = "jobs:list:"
	jobListCacheTTL    = 60 * time.Second
)

type JobCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

type jobListCacheKeyInput struct {
	Status   string `json:"status"`
	Source   string `json:"source"`
	Category string `json:"category"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
}

func normalizeFilterValue(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// JobListCacheKey hashes the normalized filter so equivalent queries share an
// entry. Every key lives under "jobs:list:".
func JobListCacheKey(p JobListParams) string {
	b, _ := json.Marshal(jobListCacheKeyInput{
		Status:   normalizeFilterValue(p.Status),
		Source:   normalizeFilterValue(p.Source),
		Category: normalizeFilterValue(p.Category),
		Limit:    p.Limit,
		Offset:   p.Offset,
	})
	sum := sha256.Sum256(b)
	return jobListCachePrefix + hex.EncodeToString(sum[:])
}
