package scraper

import (
	"context"
	"fmt"
	"log"
	"strings"

	"remote-jobs/internal/domain/job"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const (
	wwrName    = "weworkremotely"
	wwrBaseURL = "https://weworkremotely.com"
)

var wwrCategories = []string{
	"programming",
	"design",
	"devops-and-sysadmin",
	"management-and-finance",
	"product",
	"customer-support",
	"sales-and-marketing",
	"all-other-remote",
}

// WeWorkRemotely walks the category listing pages and reads each job page.
type WeWorkRemotely struct {
	fetcher    *Fetcher
	log        *log.Logger
	baseURL    string
	categories []string
}

func NewWeWorkRemotely(f *Fetcher, logger *log.Logger) *WeWorkRemotely {
	if logger == nil {
		logger = log.Default()
	}
	return &WeWorkRemotely{
		fetcher:    f,
		log:        logger,
		baseURL:    wwrBaseURL,
		categories: wwrCategories,
	}
}

func (s *WeWorkRemotely) Name() string { return wwrName }

// categoryName turns a path such as "devops-and-sysadmin" into
// "Devops And Sysadmin".
func categoryName(path string) string {
	words := strings.Fields(strings.ReplaceAll(path, "-", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func (s *WeWorkRemotely) CrawlListings(ctx context.Context) ([]job.Listing, error) {
	var (
		listings []job.Listing
		lastErr  error
	)
	for _, cat := range s.categories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageURL := fmt.Sprintf("%s/categories/remote-%s-jobs", s.baseURL, cat)
		found, err := s.collectCategory(pageURL, categoryName(cat))
		if err != nil {
			s.log.Printf("source=%s category=%s step=colly status=error err=%v fallback=fetcher", wwrName, cat, err)
			found, err = s.fetchCategory(ctx, pageURL, categoryName(cat))
		}
		if err != nil {
			s.log.Printf("source=%s category=%s status=error err=%v", wwrName, cat, err)
			lastErr = err
			continue
		}
		listings = append(listings, found...)
	}

	listings = uniqueListings(listings)
	s.log.Printf("source=%s step=listings status=ok listings=%d", wwrName, len(listings))
	if len(listings) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return listings, nil
}

func (s *WeWorkRemotely) collectCategory(pageURL, category string) ([]job.Listing, error) {
	c := colly.NewCollector(colly.UserAgent(s.fetcher.userAgent()))
	if s.fetcher.rateLimit > 0 {
		_ = c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1, Delay: s.fetcher.rateLimit})
	}
	c.SetRequestTimeout(s.fetcher.client.Timeout)

	var items []job.Listing
	c.OnHTML("section.jobs article ul li", func(e *colly.HTMLElement) {
		if l, ok := s.listingFromItem(e.DOM, category); ok {
			items = append(items, l)
		}
	})

	var reqErr error
	c.OnError(func(r *colly.Response, err error) {
		reqErr = err
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, err
	}
	c.Wait()
	if reqErr != nil {
		return nil, reqErr
	}
	return items, nil
}

func (s *WeWorkRemotely) fetchCategory(ctx context.Context, pageURL, category string) ([]job.Listing, error) {
	body, err := s.fetcher.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}
	var items []job.Listing
	doc.Find("section.jobs article ul li").Each(func(_ int, li *goquery.Selection) {
		if l, ok := s.listingFromItem(li, category); ok {
			items = append(items, l)
		}
	})
	return items, nil
}

func (s *WeWorkRemotely) listingFromItem(li *goquery.Selection, category string) (job.Listing, bool) {
	a := li.Find("a[href*='/remote-jobs/']").First()
	href, _ := a.Attr("href")
	title := firstText(a, "span.title")
	if strings.TrimSpace(href) == "" || title == "" {
		return job.Listing{}, false
	}
	url := absoluteURL(s.baseURL, href)
	return job.Listing{
		Source:      wwrName,
		SourceJobID: lastPathSegment(url),
		URL:         url,
		Title:       title,
		Company:     firstText(a, "span.company"),
		Location:    pickNonEmpty(firstText(a, "span.region"), job.DefaultRemoteScope),
		Category:    category,
	}, true
}

func (s *WeWorkRemotely) CrawlDetail(ctx context.Context, l job.Listing) (job.RawDetail, error) {
	body, err := s.fetcher.Get(ctx, l.URL)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	desc := doc.Find("div.listing-container, #job-listing-show-container").First()
	desc.Find("div.listing-header-container").Remove()

	var tags []string
	employment := ""
	doc.Find("span.listing-tag").Each(func(_ int, t *goquery.Selection) {
		text := strings.TrimSpace(t.Text())
		if text == "" {
			return
		}
		tags = append(tags, text)
		if employment == "" && isEmploymentTag(text) {
			employment = text
		}
	})

	salary := ParseSalary(firstText(doc.Selection, "span.listing-tag.salary, div.salary"))
	apply := absoluteURL(s.baseURL, firstAttr(doc.Selection, "div.apply-container a, a.apply-button, a[href*='apply']", "href"))

	d := job.RawDetail{
		job.KeySource:           wwrName,
		job.KeySourceJobID:      l.SourceJobID,
		job.KeyTitle:            pickNonEmpty(firstText(doc.Selection, "h1"), l.Title),
		job.KeyCompanyName:      pickNonEmpty(firstText(doc.Selection, "div.company-card h2 a, div.listing-header-container h2"), l.Company),
		job.KeyCompanyLogoURL:   firstAttr(doc.Selection, "div.listing-logo img", "src"),
		job.KeyDescriptionHTML:  SanitizeHTML(outerHTML(desc)),
		job.KeyDescriptionText:  selectionText(desc),
		job.KeyEmploymentType:   pickNonEmpty(employment, l.EmploymentType),
		job.KeyRemoteScope:      job.DefaultRemoteScope,
		job.KeyLocationText:     l.Location,
		job.KeyCategory:         l.Category,
		job.KeySalaryCurrency:   salary.Currency,
		job.KeySalaryPeriod:     string(salary.Period),
		job.KeySalaryText:       salary.Text,
		job.KeyPostedAt:         firstAttr(doc.Selection, "time", "datetime"),
		job.KeyApplyURLOriginal: apply,
		job.KeyApplyURLFinal:    s.fetcher.ResolveApplyURL(ctx, apply),
		job.KeyCanonicalURL:     l.URL,
		job.KeyTags:             tags,
	}
	if salary.Min != nil {
		d[job.KeySalaryMin] = *salary.Min
	}
	if salary.Max != nil {
		d[job.KeySalaryMax] = *salary.Max
	}
	return d, nil
}

func isEmploymentTag(s string) bool {
	lower := strings.ToLower(s)
	for _, k := range []string{"full-time", "full time", "part-time", "part time", "contract", "intern", "freelance"} {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
