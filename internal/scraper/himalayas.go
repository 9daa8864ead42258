package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"remote-jobs/internal/domain/job"
)

const (
	himalayasName      = "himalayas"
	himalayasBaseURL   = "https://himalayas.app"
	himalayasPageSize  = 50
	himalayasMaxOffset = 500
)

// Himalayas pages through the public jobs API.
type Himalayas struct {
	fetcher  *Fetcher
	log      *log.Logger
	baseURL  string
	apiURL   string
	pageSize int
}

func NewHimalayas(f *Fetcher, logger *log.Logger) *Himalayas {
	if logger == nil {
		logger = log.Default()
	}
	return &Himalayas{
		fetcher:  f,
		log:      logger,
		baseURL:  himalayasBaseURL,
		apiURL:   himalayasBaseURL + "/jobs/api",
		pageSize: himalayasPageSize,
	}
}

func (s *Himalayas) Name() string { return himalayasName }

type himalayasResponse struct {
	Jobs []himalayasJob `json:"jobs"`
}

type himalayasJob struct {
	Title                string      `json:"title"`
	CompanyName          string      `json:"companyName"`
	CompanyLogo          string      `json:"companyLogo"`
	GUID                 string      `json:"guid"`
	ApplicationLink      string      `json:"applicationLink"`
	LocationRestrictions []string    `json:"locationRestrictions"`
	ParentCategories     []string    `json:"parentCategories"`
	Categories           []string    `json:"categories"`
	EmploymentType       string      `json:"employmentType"`
	PubDate              json.Number `json:"pubDate"`
	Description          string      `json:"description"`
	Excerpt              string      `json:"excerpt"`
	MinSalary            *float64    `json:"minSalary"`
	MaxSalary            *float64    `json:"maxSalary"`
	Currency             string      `json:"currency"`
	Seniority            []string    `json:"seniority"`
}

func (j himalayasJob) sourceJobID() string {
	if j.GUID != "" {
		return lastPathSegment(j.GUID)
	}
	id := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(j.Title)), " ", "-")
	if r := []rune(id); len(r) > 50 {
		id = string(r[:50])
	}
	return id
}

func (j himalayasJob) category() string {
	if len(j.ParentCategories) > 0 {
		return j.ParentCategories[0]
	}
	if len(j.Categories) > 0 {
		return strings.ReplaceAll(j.Categories[0], "-", " ")
	}
	return string(job.CategoryOther)
}

func (s *Himalayas) CrawlListings(ctx context.Context) ([]job.Listing, error) {
	var listings []job.Listing
	for offset := 0; offset < himalayasMaxOffset; offset += s.pageSize {
		var resp himalayasResponse
		url := fmt.Sprintf("%s?limit=%d&offset=%d", s.apiURL, s.pageSize, offset)
		if err := s.fetcher.FetchJSON(ctx, url, &resp); err != nil {
			if offset == 0 {
				return nil, err
			}
			s.log.Printf("source=%s step=api offset=%d status=error err=%v", himalayasName, offset, err)
			break
		}
		if len(resp.Jobs) == 0 {
			break
		}

		for _, j := range resp.Jobs {
			if strings.TrimSpace(j.Title) == "" {
				continue
			}
			location := job.DefaultRemoteScope
			if len(j.LocationRestrictions) > 0 {
				location = strings.Join(j.LocationRestrictions, ", ")
			}
			seniority := ""
			if len(j.Seniority) > 0 {
				seniority = j.Seniority[0]
			}
			listings = append(listings, job.Listing{
				Source:         himalayasName,
				SourceJobID:    j.sourceJobID(),
				URL:            pickNonEmpty(j.GUID, j.ApplicationLink),
				Title:          j.Title,
				Company:        j.CompanyName,
				Location:       location,
				PostedDate:     j.PubDate.String(),
				EmploymentType: pickNonEmpty(j.EmploymentType, "Full Time"),
				Category:       j.category(),
				Extra: job.RawDetail{
					job.KeyCompanyLogoURL:   j.CompanyLogo,
					job.KeyDescriptionHTML:  pickNonEmpty(j.Description, j.Excerpt),
					job.KeySalaryMin:        floatPtrValue(j.MinSalary),
					job.KeySalaryMax:        floatPtrValue(j.MaxSalary),
					job.KeySalaryCurrency:   pickNonEmpty(j.Currency, job.DefaultCurrency),
					job.KeyApplyURLOriginal: j.ApplicationLink,
					job.KeyExperienceLevel:  seniority,
				},
			})
		}

		if len(resp.Jobs) < s.pageSize {
			break
		}
	}
	s.log.Printf("source=%s step=api status=ok listings=%d", himalayasName, len(listings))
	return uniqueListings(listings), nil
}

func (s *Himalayas) CrawlDetail(ctx context.Context, l job.Listing) (job.RawDetail, error) {
	desc := l.Extra.String(job.KeyDescriptionHTML)
	if desc == "" {
		return s.detailFromPage(ctx, l)
	}

	descHTML := desc
	if !strings.Contains(desc, "<") {
		descHTML = "<p>" + desc + "</p>"
	}
	apply := l.Extra.String(job.KeyApplyURLOriginal)
	d := job.RawDetail{
		job.KeySource:           himalayasName,
		job.KeySourceJobID:      l.SourceJobID,
		job.KeyTitle:            l.Title,
		job.KeyCompanyName:      l.Company,
		job.KeyCompanyLogoURL:   l.Extra.String(job.KeyCompanyLogoURL),
		job.KeyDescriptionHTML:  SanitizeHTML(descHTML),
		job.KeyDescriptionText:  HTMLToText(desc),
		job.KeyEmploymentType:   l.EmploymentType,
		job.KeyRemoteScope:      job.DefaultRemoteScope,
		job.KeyLocationText:     l.Location,
		job.KeyCategory:         l.Category,
		job.KeyExperienceLevel:  l.Extra.String(job.KeyExperienceLevel),
		job.KeySalaryMin:        l.Extra.Value(job.KeySalaryMin),
		job.KeySalaryMax:        l.Extra.Value(job.KeySalaryMax),
		job.KeySalaryCurrency:   l.Extra.String(job.KeySalaryCurrency),
		job.KeySalaryPeriod:     string(job.PeriodYearly),
		job.KeyPostedAt:         l.PostedDate,
		job.KeyApplyURLOriginal: apply,
		job.KeyApplyURLFinal:    apply,
		job.KeyCanonicalURL:     l.URL,
	}
	d[job.KeySalaryText] = formatSalaryText(d.Int(job.KeySalaryMin), d.Int(job.KeySalaryMax), "yr", d.String(job.KeySalaryCurrency))
	return d, nil
}

func (s *Himalayas) detailFromPage(ctx context.Context, l job.Listing) (job.RawDetail, error) {
	body, err := s.fetcher.Get(ctx, l.URL)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}
	desc := doc.Find("div[class*='description'], article, div.prose").First()
	apply := absoluteURL(s.baseURL, firstAttr(doc.Selection, "a[href*='apply'], a[class*='apply']", "href"))
	return job.RawDetail{
		job.KeySource:           himalayasName,
		job.KeySourceJobID:      l.SourceJobID,
		job.KeyTitle:            pickNonEmpty(firstText(doc.Selection, "h1"), l.Title),
		job.KeyCompanyName:      l.Company,
		job.KeyDescriptionHTML:  SanitizeHTML(outerHTML(desc)),
		job.KeyDescriptionText:  selectionText(desc),
		job.KeyEmploymentType:   l.EmploymentType,
		job.KeyRemoteScope:      job.DefaultRemoteScope,
		job.KeyLocationText:     l.Location,
		job.KeyCategory:         l.Category,
		job.KeyPostedAt:         l.PostedDate,
		job.KeyApplyURLOriginal: apply,
		job.KeyApplyURLFinal:    s.fetcher.ResolveApplyURL(ctx, apply),
		job.KeyCanonicalURL:     l.URL,
	}, nil
}
