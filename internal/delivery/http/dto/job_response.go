package dto

import (
	"time"

	"remote-jobs/internal/domain/job"

	"github.com/google/uuid"
)

type JobResponse struct {
	ID              uuid.UUID `json:"id"`
	Source          string    `json:"source"`
	SourceJobID     string    `json:"source_job_id"`
	Title           string    `json:"title"`
	CompanyName     string    `json:"company_name"`
	CompanyLogoURL  string    `json:"company_logo_url,omitempty"`
	CompanyDomain   string    `json:"company_domain,omitempty"`
	EmploymentType  string    `json:"employment_type"`
	RemoteScope     string    `json:"remote_scope"`
	LocationText    string    `json:"location_text,omitempty"`
	Category        string    `json:"category"`
	ExperienceLevel string    `json:"experience_level"`
	Tags            []string  `json:"tags"`
	Salary          *Salary   `json:"salary,omitempty"`
	PostedAt        string    `json:"posted_at"`
	ApplyURL        string    `json:"apply_url"`
	CanonicalURL    string    `json:"canonical_url,omitempty"`
	Status          string    `json:"status"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Salary struct {
	Min      *int64 `json:"min,omitempty"`
	Max      *int64 `json:"max,omitempty"`
	Currency string `json:"currency"`
	Period   string `json:"period"`
	Text     string `json:"text,omitempty"`
}

// JobDetailResponse adds the description bodies left out of list pages.
type JobDetailResponse struct {
	JobResponse
	DescriptionHTML string `json:"description_html"`
	DescriptionText string `json:"description_text"`
}

type JobListResponse struct {
	Items  []JobResponse `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

func NewJobResponse(j job.Job) JobResponse {
	tags := j.Tags
	if tags == nil {
		tags = []string{}
	}
	out := JobResponse{
		ID:              j.ID,
		Source:          j.Source,
		SourceJobID:     j.SourceJobID,
		Title:           j.Title,
		CompanyName:     j.CompanyName,
		CompanyLogoURL:  j.CompanyLogoURL,
		CompanyDomain:   j.CompanyDomain,
		EmploymentType:  string(j.EmploymentType),
		RemoteScope:     j.RemoteScope,
		LocationText:    j.LocationText,
		Category:        string(j.Category),
		ExperienceLevel: string(j.ExperienceLevel),
		Tags:            tags,
		PostedAt:        j.PostedAt,
		ApplyURL:        firstNonEmpty(j.ApplyURLFinal, j.ApplyURLOriginal, j.CanonicalURL),
		CanonicalURL:    j.CanonicalURL,
		Status:          string(j.Status),
		UpdatedAt:       j.UpdatedAt,
	}
	if j.SalaryMin != nil || j.SalaryMax != nil || j.SalaryText != "" {
		out.Salary = &Salary{
			Min:      j.SalaryMin,
			Max:      j.SalaryMax,
			Currency: j.SalaryCurrency,
			Period:   string(j.SalaryPeriod),
			Text:     j.SalaryText,
		}
	}
	return out
}

func NewJobDetailResponse(j job.Job) JobDetailResponse {
	return JobDetailResponse{
		JobResponse:     NewJobResponse(j),
		DescriptionHTML: j.DescriptionHTML,
		DescriptionText: j.DescriptionText,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
