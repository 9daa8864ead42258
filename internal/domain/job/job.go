package job

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryEngineering Category = "Engineering"
	CategoryDesign      Category = "Design"
	CategoryMarketing   Category = "Marketing"
	CategorySales       Category = "Sales"
	CategorySupport     Category = "Support"
	CategoryDevOps      Category = "DevOps"
	CategoryManagement  Category = "Management"
	CategoryProduct     Category = "Product"
	CategoryData        Category = "Data"
	CategoryWriting     Category = "Writing"
	CategoryFinance     Category = "Finance"
	CategoryHR          Category = "HR"
	CategoryOther       Category = "Other"
)

var categories = []Category{
	CategoryEngineering, CategoryDesign, CategoryMarketing, CategorySales, CategorySupport, CategoryDevOps,
	CategoryManagement, CategoryProduct, CategoryData, CategoryWriting, CategoryFinance, CategoryHR, CategoryOther,
}

// ParseCategory matches s against the known categories ignoring case and
// surrounding space.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range categories {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "Full-time"
	EmploymentPartTime   EmploymentType = "Part-time"
	EmploymentContract   EmploymentType = "Contract"
	EmploymentInternship EmploymentType = "Internship"
)

type ExperienceLevel string

const (
	ExperienceJunior    ExperienceLevel = "Junior"
	ExperienceMid       ExperienceLevel = "Mid"
	ExperienceSenior    ExperienceLevel = "Senior"
	ExperienceManager   ExperienceLevel = "Manager"
	ExperienceExecutive ExperienceLevel = "Executive"
)

type SalaryPeriod string

const (
	PeriodYearly  SalaryPeriod = "yearly"
	PeriodMonthly SalaryPeriod = "monthly"
	PeriodWeekly  SalaryPeriod = "weekly"
	PeriodHourly  SalaryPeriod = "hourly"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusStale   Status = "stale"
	StatusRemoved Status = "removed"
)

const (
	DefaultRemoteScope = "Anywhere"
	DefaultCurrency    = "USD"
)

// ErrDuplicateFingerprint is returned by a store when persisting a job would
// leave two active rows with the same fingerprint.
var ErrDuplicateFingerprint = errors.New("active job with the same fingerprint already exists")

// Job is the canonical record every source is normalized into.
type Job struct {
	ID          uuid.UUID `json:"id"`
	Source      string    `json:"source"`
	SourceJobID string    `json:"source_job_id"`

	Title           string          `json:"title"`
	CompanyName     string          `json:"company_name"`
	CompanyLogoURL  string          `json:"company_logo_url"`
	CompanyDomain   string          `json:"company_domain"`
	DescriptionHTML string          `json:"description_html"`
	DescriptionText string          `json:"description_text"`
	LocationText    string          `json:"location_text"`
	Category        Category        `json:"category"`
	EmploymentType  EmploymentType  `json:"employment_type"`
	ExperienceLevel ExperienceLevel `json:"experience_level"`
	RemoteScope     string          `json:"remote_scope"`
	Tags            []string        `json:"tags"`

	SalaryMin      *int64       `json:"salary_min"`
	SalaryMax      *int64       `json:"salary_max"`
	SalaryCurrency string       `json:"salary_currency"`
	SalaryPeriod   SalaryPeriod `json:"salary_period"`
	SalaryText     string       `json:"salary_text"`

	PostedAt         string `json:"posted_at"`
	ApplyURLOriginal string `json:"apply_url_original"`
	ApplyURLFinal    string `json:"apply_url_final"`
	CanonicalURL     string `json:"canonical_url"`
	Status           Status `json:"status"`
	FingerprintHash  string `json:"fingerprint_hash"`

	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LastCheckedAt time.Time `json:"last_checked_at"`
}

// NaturalKey is the (source, source_job_id) identity of a job's origin.
func (j Job) NaturalKey() string {
	return j.Source + "\x00" + j.SourceJobID
}

// Reference points at an already persisted job.
type Reference struct {
	ID     uuid.UUID `json:"id"`
	Source string    `json:"source"`
}

type UpsertResult struct {
	ID       uuid.UUID
	Inserted bool
}

// Listing is the stub a source discovers before fetching the detail page.
type Listing struct {
	Source         string
	SourceJobID    string
	URL            string
	Title          string
	Company        string
	Location       string
	PostedDate     string
	EmploymentType string
	Category       string

	// Extra carries API fields from the listing phase into the detail phase.
	Extra RawDetail
}

func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func SplitTags(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
