package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"remote-jobs/internal/database"
	"remote-jobs/internal/database/postgres"
	"remote-jobs/internal/domain/job"

	"github.com/google/uuid"
)

var ErrJobNotFound = errors.New("job not found")

const activeFingerprintIndex = "ux_jobs_active_fingerprint"

const (
	defaultListLimit = 20
	maxListLimit     = 50
)

// JobFilter narrows List. Empty fields match everything.
type JobFilter struct {
	Status   job.Status
	Source   string
	Category job.Category
	Limit    int
	Offset   int
}

func (f JobFilter) normalized() JobFilter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Source = strings.ToLower(strings.TrimSpace(f.Source))
	return f
}

type JobRepository interface {
	FindActiveByFingerprint(ctx context.Context, hash string, excludeID uuid.UUID) (*job.Reference, error)
	FindIDByNaturalKey(ctx context.Context, source, sourceJobID string) (uuid.UUID, bool, error)
	Upsert(ctx context.Context, j *job.Job) (job.UpsertResult, error)
	MarkStale(ctx context.Context, source string, checkedBefore time.Time) (int64, error)
	Get(ctx context.Context, id uuid.UUID) (job.Job, error)
	List(ctx context.Context, f JobFilter) ([]job.Job, int, error)
	CountByStatus(ctx context.Context) (map[job.Status]int, error)
}

type PostgresJobRepository struct {
	db database.DB
}

func NewPostgresJobRepository(db database.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

const jobColumns = `id, source, source_job_id, title, company_name, company_logo_url, company_domain,
	description_html, description_text, employment_type, remote_scope, location_text, category,
	experience_level, salary_min, salary_max, salary_currency, salary_period, salary_text, posted_at,
	apply_url_original, apply_url_final, canonical_url, tags, fingerprint_hash, status,
	created_at, updated_at, last_checked_at`

const upsertJobSQL = `INSERT INTO jobs (
	id, source, source_job_id, title, company_name, company_logo_url, company_domain,
	description_html, description_text, employment_type, remote_scope, location_text, category,
	experience_level, salary_min, salary_max, salary_currency, salary_period, salary_text, posted_at,
	apply_url_original, apply_url_final, canonical_url, tags, fingerprint_hash, status,
	created_at, updated_at, last_checked_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
	$21, $22, $23, $24, $25, $26, now(), now(), now()
)
ON CONFLICT (source, source_job_id) DO UPDATE SET
	title = EXCLUDED.title,
	company_name = EXCLUDED.company_name,
	company_logo_url = EXCLUDED.company_logo_url,
	company_domain = EXCLUDED.company_domain,
	description_html = EXCLUDED.description_html,
	description_text = EXCLUDED.description_text,
	employment_type = EXCLUDED.employment_type,
	remote_scope = EXCLUDED.remote_scope,
	location_text = EXCLUDED.location_text,
	category = EXCLUDED.category,
	experience_level = EXCLUDED.experience_level,
	salary_min = EXCLUDED.salary_min,
	salary_max = EXCLUDED.salary_max,
	salary_currency = EXCLUDED.salary_currency,
	salary_period = EXCLUDED.salary_period,
	salary_text = EXCLUDED.salary_text,
	posted_at = EXCLUDED.posted_at,
	apply_url_original = EXCLUDED.apply_url_original,
	apply_url_final = EXCLUDED.apply_url_final,
	canonical_url = EXCLUDED.canonical_url,
	tags = EXCLUDED.tags,
	fingerprint_hash = EXCLUDED.fingerprint_hash,
	status = EXCLUDED.status,
	updated_at = now(),
	last_checked_at = now()
RETURNING id, (xmax = 0) AS inserted`

// Upsert inserts or refreshes the row for the job's (source, source_job_id).
// id and created_at of an existing row are kept.
func (r *PostgresJobRepository) Upsert(ctx context.Context, j *job.Job) (job.UpsertResult, error) {
	if j == nil {
		return job.UpsertResult{}, fmt.Errorf("nil job")
	}
	id := j.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	var res job.UpsertResult
	err := r.db.QueryRow(ctx, upsertJobSQL,
		id, j.Source, j.SourceJobID, j.Title, j.CompanyName, j.CompanyLogoURL, j.CompanyDomain,
		j.DescriptionHTML, j.DescriptionText, string(j.EmploymentType), j.RemoteScope, j.LocationText, string(j.Category),
		string(j.ExperienceLevel), j.SalaryMin, j.SalaryMax, j.SalaryCurrency, string(j.SalaryPeriod), j.SalaryText, j.PostedAt,
		j.ApplyURLOriginal, j.ApplyURLFinal, j.CanonicalURL, job.JoinTags(j.Tags), j.FingerprintHash, string(j.Status),
	).Scan(&res.ID, &res.Inserted)
	if err != nil {
		if name, ok := postgres.UniqueViolation(err); ok && name == activeFingerprintIndex {
			return job.UpsertResult{}, fmt.Errorf("%w: fingerprint=%s", job.ErrDuplicateFingerprint, j.FingerprintHash)
		}
		return job.UpsertResult{}, err
	}
	return res, nil
}

func (r *PostgresJobRepository) FindActiveByFingerprint(ctx context.Context, hash string, excludeID uuid.UUID) (*job.Reference, error) {
	var ref job.Reference
	err := r.db.QueryRow(ctx,
		`SELECT id, source FROM jobs
		 WHERE fingerprint_hash = $1 AND status = 'active' AND id <> $2
		 LIMIT 1`,
		hash, excludeID,
	).Scan(&ref.ID, &ref.Source)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &ref, nil
}

func (r *PostgresJobRepository) FindIDByNaturalKey(ctx context.Context, source, sourceJobID string) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx,
		`SELECT id FROM jobs WHERE source = $1 AND source_job_id = $2`,
		source, sourceJobID,
	).Scan(&id)
	if err != nil {
		if postgres.IsNoRows(err) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	return id, true, nil
}

// MarkStale flips active rows of source that were not re-checked since
// checkedBefore.
func (r *PostgresJobRepository) MarkStale(ctx context.Context, source string, checkedBefore time.Time) (int64, error) {
	return r.db.Exec(ctx,
		`UPDATE jobs SET status = 'stale', updated_at = now()
		 WHERE source = $1 AND status = 'active' AND last_checked_at < $2`,
		source, checkedBefore,
	)
}

func (r *PostgresJobRepository) Get(ctx context.Context, id uuid.UUID) (job.Job, error) {
	j, err := scanJob(r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return job.Job{}, ErrJobNotFound
		}
		return job.Job{}, err
	}
	return j, nil
}

// List returns one page of jobs, newest first, and the total matching count.
func (r *PostgresJobRepository) List(ctx context.Context, f JobFilter) ([]job.Job, int, error) {
	f = f.normalized()
	where, args := f.where()

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM jobs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM jobs%s ORDER BY posted_at DESC, created_at DESC LIMIT $%d OFFSET $%d`,
			jobColumns, where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]job.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (f JobFilter) where() (string, []any) {
	var conds []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if f.Status != "" {
		add("status", string(f.Status))
	}
	if f.Source != "" {
		add("source", f.Source)
	}
	if f.Category != "" {
		add("category", string(f.Category))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PostgresJobRepository) CountByStatus(ctx context.Context) (map[job.Status]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[job.Status]int{}
	for rows.Next() {
		var status string
		var c int
		if err := rows.Scan(&status, &c); err != nil {
			return nil, err
		}
		out[job.Status(status)] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanJob(row database.Row) (job.Job, error) {
	var j job.Job
	var employment, category, experience, period, st, tags string
	err := row.Scan(
		&j.ID, &j.Source, &j.SourceJobID, &j.Title, &j.CompanyName, &j.CompanyLogoURL, &j.CompanyDomain,
		&j.DescriptionHTML, &j.DescriptionText, &employment, &j.RemoteScope, &j.LocationText, &category,
		&experience, &j.SalaryMin, &j.SalaryMax, &j.SalaryCurrency, &period, &j.SalaryText, &j.PostedAt,
		&j.ApplyURLOriginal, &j.ApplyURLFinal, &j.CanonicalURL, &tags, &j.FingerprintHash, &st,
		&j.CreatedAt, &j.UpdatedAt, &j.LastCheckedAt,
	)
	if err != nil {
		return job.Job{}, err
	}
	j.EmploymentType = job.EmploymentType(employment)
	j.Category = job.Category(category)
	j.ExperienceLevel = job.ExperienceLevel(experience)
	j.SalaryPeriod = job.SalaryPeriod(period)
	j.Status = job.Status(st)
	j.Tags = job.SplitTags(tags)
	j.CreatedAt = j.CreatedAt.UTC()
	j.UpdatedAt = j.UpdatedAt.UTC()
	j.LastCheckedAt = j.LastCheckedAt.UTC()
	return j, nil
}
