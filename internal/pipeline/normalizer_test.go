package pipeline

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"remote-jobs/internal/domain/job"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

func testNormalizer() Normalizer {
	return Normalizer{Now: func() time.Time { return fixedNow }}
}

func lorem(n int) string {
	const base = "Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt. "
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(base)
	}
	return b.String()[:n]
}

func TestNormalize_EndToEndScenario(t *testing.T) {
	desc := lorem(600)
	raw := job.RawDetail{
		"title":              "  Sr. Backend Engineer [Remote]  ",
		"company_name":       "Acme",
		"description_text":   desc,
		"apply_url_original": "https://acme.com/apply",
	}

	j := testNormalizer().Normalize(raw)

	assert.Equal(t, "Sr. Backend Engineer", j.Title)
	assert.Equal(t, job.CategoryOther, j.Category)
	assert.Equal(t, job.EmploymentFullTime, j.EmploymentType)
	assert.Equal(t, job.ExperienceSenior, j.ExperienceLevel)
	assert.Equal(t, job.StatusActive, j.Status)
	assert.Equal(t, job.DefaultRemoteScope, j.RemoteScope)
	assert.Equal(t, "USD", j.SalaryCurrency)
	assert.Equal(t, job.PeriodYearly, j.SalaryPeriod)
	assert.Equal(t, fixedNow.Format(time.RFC3339), j.PostedAt)

	ok, reason := Passes(j)
	assert.True(t, ok)
	assert.Equal(t, "OK", reason)

	assert.Equal(t, Fingerprint("Sr. Backend Engineer", "Acme", desc[:500]), j.FingerprintHash)
	assert.Len(t, j.FingerprintHash, 32)
}

func TestNormalize_IsDeterministic(t *testing.T) {
	raw := job.RawDetail{
		"source":           "jobicy",
		"source_job_id":    123,
		"title":            "Go Developer",
		"company_name":     "Initech",
		"description_text": lorem(120),
		"category":         []any{"Software Development", "Design"},
		"employment_type":  "part time",
		"posted_at":        "March 1, 2024",
		"tags":             "go,postgres",
		"salary_min":       90000,
		"salary_max":       json.Number("120000"),
	}

	a := testNormalizer().Normalize(raw)
	b := testNormalizer().Normalize(raw)
	assert.Equal(t, a, b)

	assert.Equal(t, "123", a.SourceJobID)
	assert.Equal(t, job.CategoryEngineering, a.Category)
	assert.Equal(t, job.EmploymentPartTime, a.EmploymentType)
	assert.Equal(t, "2024-03-01T00:00:00Z", a.PostedAt)
	assert.Equal(t, []string{"go", "postgres"}, a.Tags)
	require.NotNil(t, a.SalaryMin)
	require.NotNil(t, a.SalaryMax)
	assert.Equal(t, int64(90000), *a.SalaryMin)
	assert.Equal(t, int64(120000), *a.SalaryMax)
}

func TestNormalize_NeverPanicsOnOddInput(t *testing.T) {
	inputs := []job.RawDetail{
		nil,
		{},
		{"title": nil, "company_name": 42, "posted_at": true, "salary_min": "n/a"},
		{"title": []any{"a", "b"}, "category": []any{}, "employment_type": map[string]any{"x": 1}},
		{"posted_at": -1.5, "tags": []any{nil, 3}},
	}
	for _, raw := range inputs {
		assert.NotPanics(t, func() {
			j := testNormalizer().Normalize(raw)
			assert.Len(t, j.FingerprintHash, 32)
			assert.Equal(t, job.StatusActive, j.Status)
		})
	}
}

func TestNormalize_SalaryPassesThroughUnordered(t *testing.T) {
	j := testNormalizer().Normalize(job.RawDetail{"salary_min": 150000, "salary_max": 100000})

	require.NotNil(t, j.SalaryMin)
	require.NotNil(t, j.SalaryMax)
	assert.Equal(t, int64(150000), *j.SalaryMin)
	assert.Equal(t, int64(100000), *j.SalaryMax)

	empty := testNormalizer().Normalize(job.RawDetail{})
	assert.Nil(t, empty.SalaryMin)
	assert.Nil(t, empty.SalaryMax)
}

func TestNormalize_SuppliedExperienceWins(t *testing.T) {
	j := testNormalizer().Normalize(job.RawDetail{"title": "Senior Engineer", "experience_level": "junior"})
	assert.Equal(t, job.ExperienceJunior, j.ExperienceLevel)

	j = testNormalizer().Normalize(job.RawDetail{"title": "Senior Engineer", "experience_level": "Any"})
	assert.Equal(t, job.ExperienceSenior, j.ExperienceLevel)

	j = testNormalizer().Normalize(job.RawDetail{"title": "Engineer", "experience_level": "Entry-level"})
	assert.Equal(t, job.ExperienceJunior, j.ExperienceLevel)
}

func TestCleanTitle(t *testing.T) {
	cases := map[string]string{
		"  Sr. Backend Engineer [Remote]  ": "Sr. Backend Engineer",
		"[Featured] Designer":               "Designer",
		"[Hot]  Data   Engineer [EU only]":  "Data Engineer",
		"Plain title":                       "Plain title",
		"Go [Golang] Developer":             "Go [Golang] Developer",
		"[New] [Urgent] Tester":             "[Urgent] Tester",
		"":                                  "",
		"   ":                               "",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanTitle(in), "input %q", in)
	}
}

func TestMapCategory(t *testing.T) {
	cases := []struct {
		in   any
		want job.Category
	}{
		{"Full Stack", job.CategoryEngineering},
		{"BACKEND", job.CategoryEngineering},
		{"developer", job.CategoryEngineering},
		{"Design &amp; UX", job.CategoryDesign},
		{"Devops And Sysadmin", job.CategoryDevOps},
		{"Customer Support", job.CategorySupport},
		{[]any{"Data Science", "Engineering"}, job.CategoryData},
		{[]string{}, job.CategoryOther},
		{"Underwater basket weaving", job.CategoryOther},
		{"", job.CategoryOther},
		{nil, job.CategoryOther},
		{"HR", job.CategoryHR},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, MapCategory(c.in), "input %v", c.in)
	}
}

func TestMapEmploymentType(t *testing.T) {
	cases := []struct {
		in   any
		want job.EmploymentType
	}{
		{"Full Time", job.EmploymentFullTime},
		{"full_time", job.EmploymentFullTime},
		{"PART-TIME", job.EmploymentPartTime},
		{"Freelance", job.EmploymentContract},
		{"intern", job.EmploymentInternship},
		{[]any{"contractor"}, job.EmploymentContract},
		{"gig", job.EmploymentFullTime},
		{nil, job.EmploymentFullTime},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, MapEmploymentType(c.in), "input %v", c.in)
	}
}
