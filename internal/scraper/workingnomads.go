package scraper

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"remote-jobs/internal/domain/job"

	"github.com/PuerkitoBio/goquery"
)

const (
	wnName    = "workingnomads"
	wnBaseURL = "https://www.workingnomads.com"
)

// WorkingNomads reads the exposed jobs API and falls back to the /jobs HTML
// page when the API is empty or unreadable. Details always come from the job
// page.
type WorkingNomads struct {
	fetcher *Fetcher
	log     *log.Logger
	baseURL string
	apiURL  string
}

func NewWorkingNomads(f *Fetcher, logger *log.Logger) *WorkingNomads {
	if logger == nil {
		logger = log.Default()
	}
	return &WorkingNomads{
		fetcher: f,
		log:     logger,
		baseURL: wnBaseURL,
		apiURL:  wnBaseURL + "/api/exposed_jobs/",
	}
}

func (s *WorkingNomads) Name() string { return wnName }

type wnJob struct {
	ID           any    `json:"id"`
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	CompanyName  string `json:"company_name"`
	URL          string `json:"url"`
	Location     string `json:"location"`
	CategoryName string `json:"category_name"`
	JobType      string `json:"job_type"`
	PubDate      string `json:"pub_date"`
}

// decodeWNJobs accepts either a bare array or an object wrapping it under
// "results" or "jobs".
func decodeWNJobs(raw json.RawMessage) ([]wnJob, bool) {
	var list []wnJob
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, true
	}
	var wrapped struct {
		Results []wnJob `json:"results"`
		Jobs    []wnJob `json:"jobs"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, false
	}
	if wrapped.Results != nil {
		return wrapped.Results, true
	}
	return wrapped.Jobs, wrapped.Jobs != nil
}

func (s *WorkingNomads) CrawlListings(ctx context.Context) ([]job.Listing, error) {
	var raw json.RawMessage
	apiErr := s.fetcher.FetchJSON(ctx, s.apiURL, &raw)
	var jobs []wnJob
	if apiErr == nil {
		var ok bool
		if jobs, ok = decodeWNJobs(raw); !ok {
			s.log.Printf("source=%s step=api status=unexpected_shape", wnName)
		}
	} else {
		s.log.Printf("source=%s step=api status=error err=%v", wnName, apiErr)
	}

	if len(jobs) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		listings, err := s.crawlListingsHTML(ctx)
		if err != nil {
			if apiErr != nil {
				return nil, apiErr
			}
			return nil, err
		}
		s.log.Printf("source=%s step=html status=ok listings=%d", wnName, len(listings))
		return listings, nil
	}

	listings := make([]job.Listing, 0, len(jobs))
	for _, j := range jobs {
		title, url := strings.TrimSpace(j.Title), strings.TrimSpace(j.URL)
		if title == "" || url == "" {
			continue
		}
		url = absoluteURL(s.baseURL, url)
		listings = append(listings, job.Listing{
			Source:         wnName,
			SourceJobID:    pickNonEmpty(job.ToString(j.ID), j.Slug, lastPathSegment(url)),
			URL:            url,
			Title:          title,
			Company:        j.CompanyName,
			Location:       pickNonEmpty(j.Location, job.DefaultRemoteScope),
			Category:       j.CategoryName,
			EmploymentType: j.JobType,
			PostedDate:     j.PubDate,
		})
	}
	listings = uniqueListings(listings)
	s.log.Printf("source=%s step=api status=ok listings=%d", wnName, len(listings))
	return listings, nil
}

func (s *WorkingNomads) crawlListingsHTML(ctx context.Context) ([]job.Listing, error) {
	body, err := s.fetcher.Get(ctx, s.baseURL+"/jobs")
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}
	var listings []job.Listing
	doc.Find("a[href*='/job/'], a[href*='/jobs/']").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		title := strings.TrimSpace(a.Text())
		if strings.TrimSpace(href) == "" || len(title) < 5 {
			return
		}
		url := absoluteURL(s.baseURL, href)
		listings = append(listings, job.Listing{
			Source:      wnName,
			SourceJobID: lastPathSegment(url),
			URL:         url,
			Title:       title,
		})
	})
	return uniqueListings(listings), nil
}

func (s *WorkingNomads) CrawlDetail(ctx context.Context, l job.Listing) (job.RawDetail, error) {
	body, err := s.fetcher.Get(ctx, l.URL)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	company := l.Company
	if txt := firstText(doc.Selection, ".company-name, a[href*='/company/'], h2"); txt != "" && len(txt) < 100 {
		company = txt
	}
	desc := doc.Find("div.description, div.job-description, article, div.content").First()
	apply := pickNonEmpty(
		absoluteURL(s.baseURL, firstAttr(doc.Selection, "a.apply-btn, a[href*='apply'], a[class*='apply']", "href")),
		l.URL,
	)
	logo := firstAttr(doc.Selection, "img[class*='logo'], img[alt*='logo']", "src")
	if logo != "" {
		logo = absoluteURL(s.baseURL, logo)
	}

	return job.RawDetail{
		job.KeySource:           wnName,
		job.KeySourceJobID:      l.SourceJobID,
		job.KeyTitle:            pickNonEmpty(firstText(doc.Selection, "h1"), l.Title),
		job.KeyCompanyName:      company,
		job.KeyCompanyLogoURL:   logo,
		job.KeyDescriptionHTML:  SanitizeHTML(outerHTML(desc)),
		job.KeyDescriptionText:  selectionText(desc),
		job.KeyEmploymentType:   pickNonEmpty(l.EmploymentType, "Full-time"),
		job.KeyRemoteScope:      job.DefaultRemoteScope,
		job.KeyLocationText:     l.Location,
		job.KeyCategory:         l.Category,
		job.KeyPostedAt:         l.PostedDate,
		job.KeyApplyURLOriginal: apply,
		job.KeyApplyURLFinal:    apply,
		job.KeyCanonicalURL:     l.URL,
	}, nil
}
