package pipeline

import (
	"context"
	"errors"
	"testing"

	"remote-jobs/internal/domain/job"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type finderFunc func(ctx context.Context, hash string, excludeID uuid.UUID) (*job.Reference, error)

func (f finderFunc) FindActiveByFingerprint(ctx context.Context, hash string, excludeID uuid.UUID) (*job.Reference, error) {
	return f(ctx, hash, excludeID)
}

func TestDeduplicator_FindsActiveMatch(t *testing.T) {
	existing := job.Reference{ID: uuid.New(), Source: "himalayas"}
	var gotHash string
	var gotExclude uuid.UUID
	d := NewDeduplicator(finderFunc(func(_ context.Context, hash string, excludeID uuid.UUID) (*job.Reference, error) {
		gotHash, gotExclude = hash, excludeID
		return &existing, nil
	}))

	self := uuid.New()
	ref, err := d.Check(context.Background(), job.Job{ID: self, FingerprintHash: "abc"})
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, existing, *ref)
	assert.Equal(t, "abc", gotHash)
	assert.Equal(t, self, gotExclude)
}

func TestDeduplicator_NoMatch(t *testing.T) {
	d := NewDeduplicator(finderFunc(func(context.Context, string, uuid.UUID) (*job.Reference, error) {
		return nil, nil
	}))
	ref, err := d.Check(context.Background(), job.Job{FingerprintHash: "abc"})
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestDeduplicator_LookupErrorPropagates(t *testing.T) {
	boom := errors.New("connection reset")
	d := NewDeduplicator(finderFunc(func(context.Context, string, uuid.UUID) (*job.Reference, error) {
		return nil, boom
	}))

	ref, err := d.Check(context.Background(), job.Job{FingerprintHash: "abc"})
	assert.Nil(t, ref)
	assert.ErrorIs(t, err, ErrDuplicateLookup)
	assert.ErrorIs(t, err, boom)
}

func TestDeduplicator_IgnoresApplyURL(t *testing.T) {
	store := newFakeStore()
	a := testNormalizer().Normalize(job.RawDetail{
		"source": "jobicy", "source_job_id": "1", "title": "Backend Engineer", "company_name": "Acme",
		"description_text": lorem(100), "apply_url_final": "https://acme.com/careers",
	})
	_, err := store.Upsert(context.Background(), &a)
	require.NoError(t, err)

	b := testNormalizer().Normalize(job.RawDetail{
		"source": "himalayas", "source_job_id": "2", "title": "Frontend Engineer", "company_name": "Acme",
		"description_text": lorem(100), "apply_url_final": "https://acme.com/careers",
	})
	require.NotEqual(t, a.FingerprintHash, b.FingerprintHash)

	ref, err := NewDeduplicator(store).Check(context.Background(), b)
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestDeduplicator_ExcludesOwnRow(t *testing.T) {
	store := newFakeStore()
	a := testNormalizer().Normalize(job.RawDetail{
		"source": "jobicy", "source_job_id": "1", "title": "Backend Engineer", "company_name": "Acme",
		"description_text": lorem(100), "canonical_url": "https://jobicy.com/1",
	})
	res, err := store.Upsert(context.Background(), &a)
	require.NoError(t, err)

	again := a
	again.ID = res.ID
	ref, err := NewDeduplicator(store).Check(context.Background(), again)
	require.NoError(t, err)
	assert.Nil(t, ref)

	other := a
	other.ID = uuid.Nil
	other.Source = "himalayas"
	ref, err = NewDeduplicator(store).Check(context.Background(), other)
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, res.ID, ref.ID)
	assert.Equal(t, "jobicy", ref.Source)
}

func TestDeduplicator_NilFinder(t *testing.T) {
	_, err := NewDeduplicator(nil).Check(context.Background(), job.Job{FingerprintHash: "x"})
	assert.ErrorIs(t, err, ErrDuplicateLookup)
}
