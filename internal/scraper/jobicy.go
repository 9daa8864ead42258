package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"remote-jobs/internal/domain/job"

	"github.com/PuerkitoBio/goquery"
)

const (
	jobicyName    = "jobicy"
	jobicyBaseURL = "https://jobicy.com"
	jobicyCount   = 50
)

// Jobicy reads the public remote-jobs API and, as a supplement, the first
// few HTML listing pages.
type Jobicy struct {
	fetcher   *Fetcher
	log       *log.Logger
	baseURL   string
	apiURL    string
	htmlPages int
}

func NewJobicy(f *Fetcher, logger *log.Logger) *Jobicy {
	if logger == nil {
		logger = log.Default()
	}
	return &Jobicy{
		fetcher:   f,
		log:       logger,
		baseURL:   jobicyBaseURL,
		apiURL:    jobicyBaseURL + "/api/v2/remote-jobs",
		htmlPages: 3,
	}
}

func (s *Jobicy) Name() string { return jobicyName }

type jobicyResponse struct {
	Jobs []jobicyJob `json:"jobs"`
}

type jobicyJob struct {
	ID             json.Number `json:"id"`
	URL            string      `json:"url"`
	JobTitle       string      `json:"jobTitle"`
	CompanyName    string      `json:"companyName"`
	CompanyLogo    string      `json:"companyLogo"`
	JobIndustry    any         `json:"jobIndustry"`
	JobType        any         `json:"jobType"`
	JobGeo         any         `json:"jobGeo"`
	JobLevel       string      `json:"jobLevel"`
	JobDescription string      `json:"jobDescription"`
	PubDate        string      `json:"pubDate"`
	SalaryMin      *float64    `json:"salaryMin"`
	SalaryMax      *float64    `json:"salaryMax"`
	AnnualMin      *float64    `json:"annualSalaryMin"`
	AnnualMax      *float64    `json:"annualSalaryMax"`
	SalaryCurrency string      `json:"salaryCurrency"`
	SalaryPeriod   string      `json:"salaryPeriod"`
}

// salary prefers the explicit bounds and falls back to the annual ones.
func (j jobicyJob) salary() (lo, hi any, period string) {
	lo, hi = floatPtrValue(j.SalaryMin), floatPtrValue(j.SalaryMax)
	period = pickNonEmpty(j.SalaryPeriod, string(job.PeriodYearly))
	if lo == nil && hi == nil {
		lo, hi = floatPtrValue(j.AnnualMin), floatPtrValue(j.AnnualMax)
		period = string(job.PeriodYearly)
	}
	return lo, hi, period
}

func (s *Jobicy) CrawlListings(ctx context.Context) ([]job.Listing, error) {
	var resp jobicyResponse
	apiErr := s.fetcher.FetchJSON(ctx, fmt.Sprintf("%s?count=%d", s.apiURL, jobicyCount), &resp)
	if apiErr != nil {
		s.log.Printf("source=%s step=api status=error err=%v", jobicyName, apiErr)
	}

	listings := make([]job.Listing, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		title := strings.TrimSpace(j.JobTitle)
		if title == "" || strings.TrimSpace(j.URL) == "" {
			continue
		}
		location, _ := j.JobGeo.(string)
		lo, hi, period := j.salary()
		listings = append(listings, job.Listing{
			Source:         jobicyName,
			SourceJobID:    pickNonEmpty(j.ID.String(), lastPathSegment(j.URL)),
			URL:            j.URL,
			Title:          title,
			Company:        j.CompanyName,
			Location:       pickNonEmpty(location, job.DefaultRemoteScope),
			PostedDate:     j.PubDate,
			EmploymentType: job.ToString(j.JobType),
			Category:       job.ToString(j.JobIndustry),
			Extra: job.RawDetail{
				job.KeyDescriptionHTML: j.JobDescription,
				job.KeyCompanyLogoURL:  j.CompanyLogo,
				job.KeyExperienceLevel: j.JobLevel,
				job.KeyCategory:        j.JobIndustry,
				job.KeyEmploymentType:  j.JobType,
				job.KeySalaryMin:       lo,
				job.KeySalaryMax:       hi,
				job.KeySalaryCurrency:  pickNonEmpty(j.SalaryCurrency, job.DefaultCurrency),
				job.KeySalaryPeriod:    period,
			},
		})
	}
	s.log.Printf("source=%s step=api status=ok listings=%d", jobicyName, len(listings))

	for page := 1; page <= s.htmlPages; page++ {
		body, err := s.fetcher.Get(ctx, fmt.Sprintf("%s/jobs?page=%d", s.baseURL, page))
		if err != nil {
			break
		}
		doc, err := parseDocument(body)
		if err != nil {
			break
		}
		doc.Find("article a[href*='/jobs/'], div.job-card a[href*='/jobs/']").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			title := firstText(a, "h2, h3, .job-title")
			if title == "" {
				return
			}
			listings = append(listings, job.Listing{
				Source:      jobicyName,
				SourceJobID: lastPathSegment(href),
				URL:         absoluteURL(s.baseURL, href),
				Title:       title,
			})
		})
	}

	listings = uniqueListings(listings)
	if len(listings) == 0 && apiErr != nil {
		return nil, apiErr
	}
	return listings, nil
}

func (s *Jobicy) CrawlDetail(ctx context.Context, l job.Listing) (job.RawDetail, error) {
	if desc := l.Extra.String(job.KeyDescriptionHTML); desc != "" {
		return s.detailFromAPI(l, desc), nil
	}
	return s.detailFromPage(ctx, l)
}

func (s *Jobicy) detailFromAPI(l job.Listing, desc string) job.RawDetail {
	d := job.RawDetail{
		job.KeySource:           jobicyName,
		job.KeySourceJobID:      l.SourceJobID,
		job.KeyTitle:            l.Title,
		job.KeyCompanyName:      l.Company,
		job.KeyDescriptionHTML:  SanitizeHTML(desc),
		job.KeyDescriptionText:  HTMLToText(desc),
		job.KeyRemoteScope:      job.DefaultRemoteScope,
		job.KeyLocationText:     l.Location,
		job.KeyPostedAt:         l.PostedDate,
		job.KeyApplyURLOriginal: l.URL,
		job.KeyApplyURLFinal:    l.URL,
		job.KeyCanonicalURL:     l.URL,
	}
	for _, k := range []string{
		job.KeyCompanyLogoURL, job.KeyExperienceLevel, job.KeyCategory, job.KeyEmploymentType,
		job.KeySalaryMin, job.KeySalaryMax, job.KeySalaryCurrency, job.KeySalaryPeriod,
	} {
		if l.Extra.Has(k) {
			d[k] = l.Extra.Value(k)
		}
	}
	d[job.KeySalaryText] = formatSalaryText(d.Int(job.KeySalaryMin), d.Int(job.KeySalaryMax),
		d.String(job.KeySalaryPeriod), d.String(job.KeySalaryCurrency))
	return d
}

func (s *Jobicy) detailFromPage(ctx context.Context, l job.Listing) (job.RawDetail, error) {
	body, err := s.fetcher.Get(ctx, l.URL)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	desc := doc.Find("div.job-description, div.job-content, article").First()
	applyURL := absoluteURL(s.baseURL, firstAttr(doc.Selection, "a[href*='apply'], a.apply-btn, a[class*='apply']", "href"))
	return job.RawDetail{
		job.KeySource:           jobicyName,
		job.KeySourceJobID:      l.SourceJobID,
		job.KeyTitle:            pickNonEmpty(firstText(doc.Selection, "h1"), l.Title),
		job.KeyCompanyName:      pickNonEmpty(firstText(doc.Selection, "a[href*='/company/'], .company-name"), l.Company),
		job.KeyCompanyLogoURL:   firstAttr(doc.Selection, "img[class*='logo'], img[src*='logo']", "src"),
		job.KeyDescriptionHTML:  SanitizeHTML(outerHTML(desc)),
		job.KeyDescriptionText:  selectionText(desc),
		job.KeyEmploymentType:   l.EmploymentType,
		job.KeyRemoteScope:      job.DefaultRemoteScope,
		job.KeyLocationText:     l.Location,
		job.KeyCategory:         l.Category,
		job.KeyPostedAt:         l.PostedDate,
		job.KeyApplyURLOriginal: applyURL,
		job.KeyApplyURLFinal:    s.fetcher.ResolveApplyURL(ctx, applyURL),
		job.KeyCanonicalURL:     l.URL,
	}, nil
}

func floatPtrValue(v *float64) any {
	if v == nil || *v <= 0 {
		return nil
	}
	return *v
}

// uniqueListings keeps the first listing per source_job_id and per URL.
func uniqueListings(in []job.Listing) []job.Listing {
	seen := make(map[string]struct{}, 2*len(in))
	out := make([]job.Listing, 0, len(in))
	for _, l := range in {
		id, url := strings.TrimSpace(l.SourceJobID), strings.TrimSpace(l.URL)
		if id == "" && url == "" {
			continue
		}
		_, dupID := seen["id:"+id]
		_, dupURL := seen["url:"+url]
		if (id != "" && dupID) || (url != "" && dupURL) {
			continue
		}
		if id != "" {
			seen["id:"+id] = struct{}{}
		}
		if url != "" {
			seen["url:"+url] = struct{}{}
		}
		out = append(out, l)
	}
	return out
}
