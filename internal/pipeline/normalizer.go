package pipeline

import (
	"regexp"
	"strings"
	"time"

	"remote-jobs/internal/domain/job"
)

var (
	leadingTag  = regexp.MustCompile(`^\[[^\]]*\]\s*`)
	trailingTag = regexp.MustCompile(`\s*\[[^\[\]]*\]$`)
)

// Normalizer converts raw source records into canonical jobs. It never fails:
// missing or malformed fields degrade to defaults.
type Normalizer struct {
	Now func() time.Time
}

func NewNormalizer() Normalizer {
	return Normalizer{Now: time.Now}
}

// Normalize uses the wall clock for date fallbacks.
func Normalize(raw job.RawDetail) job.Job {
	return NewNormalizer().Normalize(raw)
}

func (n Normalizer) Normalize(raw job.RawDetail) job.Job {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}

	j := job.Job{
		Source:           raw.String(job.KeySource),
		SourceJobID:      raw.String(job.KeySourceJobID),
		Title:            CleanTitle(raw.String(job.KeyTitle)),
		CompanyName:      raw.String(job.KeyCompanyName),
		CompanyLogoURL:   raw.String(job.KeyCompanyLogoURL),
		CompanyDomain:    raw.String(job.KeyCompanyDomain),
		DescriptionHTML:  raw.String(job.KeyDescriptionHTML),
		DescriptionText:  raw.String(job.KeyDescriptionText),
		LocationText:     raw.String(job.KeyLocationText),
		Category:         MapCategory(raw.Value(job.KeyCategory)),
		EmploymentType:   MapEmploymentType(raw.Value(job.KeyEmploymentType)),
		RemoteScope:      orDefault(raw.String(job.KeyRemoteScope), job.DefaultRemoteScope),
		Tags:             raw.Strings(job.KeyTags),
		SalaryMin:        raw.Int(job.KeySalaryMin),
		SalaryMax:        raw.Int(job.KeySalaryMax),
		SalaryCurrency:   strings.ToUpper(orDefault(raw.String(job.KeySalaryCurrency), job.DefaultCurrency)),
		SalaryPeriod:     normalizePeriod(raw.String(job.KeySalaryPeriod)),
		SalaryText:       raw.String(job.KeySalaryText),
		PostedAt:         NormalizePostedAt(raw.Value(job.KeyPostedAt), now()),
		ApplyURLOriginal: raw.String(job.KeyApplyURLOriginal),
		ApplyURLFinal:    raw.String(job.KeyApplyURLFinal),
		CanonicalURL:     raw.String(job.KeyCanonicalURL),
		Status:           job.StatusActive,
	}

	j.FingerprintHash = Fingerprint(j.Title, j.CompanyName, j.DescriptionText)
	j.ExperienceLevel = ResolveExperience(raw.String(job.KeyExperienceLevel), j.Title)

	return j
}

// CleanTitle collapses whitespace and drops one leading and one trailing
// bracketed badge such as "[Remote]".
func CleanTitle(title string) string {
	t := collapseSpaces(title)
	if t == "" {
		return ""
	}
	t = leadingTag.ReplaceAllString(t, "")
	t = trailingTag.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}

func normalizePeriod(raw string) job.SalaryPeriod {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return job.PeriodYearly
	case strings.HasPrefix(s, "month"), s == "mo":
		return job.PeriodMonthly
	case strings.HasPrefix(s, "week"), s == "wk":
		return job.PeriodWeekly
	case strings.HasPrefix(s, "hour"), s == "hr":
		return job.PeriodHourly
	default:
		return job.PeriodYearly
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
