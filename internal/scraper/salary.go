package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"remote-jobs/internal/domain/job"
)

// Salary is what ParseSalary could read out of free text.
type Salary struct {
	Min      *int64
	Max      *int64
	Currency string
	Period   job.SalaryPeriod
	Text     string
}

var moneyRe = regexp.MustCompile(`[$€£]\s*([\d,]+(?:\.\d+)?)\s*([kK])?(?:\s*(?:-|–|—|to)\s*[$€£]?\s*([\d,]+(?:\.\d+)?)\s*([kK])?)?`)

// ParseSalary reads ranges such as "$100,000 - $150,000" or "$100k-$150k".
// A k on either bound scales both. Bare yearly figures under 1000 are read
// as thousands.
func ParseSalary(text string) Salary {
	out := Salary{Currency: job.DefaultCurrency, Period: job.PeriodYearly}
	text = strings.TrimSpace(text)
	if text == "" {
		return out
	}
	out.Text = text
	out.Period = detectPeriod(text)
	out.Currency = detectCurrency(text)

	m := moneyRe.FindStringSubmatch(text)
	if m == nil {
		return out
	}
	thousands := m[2] != "" || m[4] != ""
	out.Min = parseAmount(m[1], thousands, out.Period)
	if m[3] != "" {
		out.Max = parseAmount(m[3], thousands, out.Period)
	}
	return out
}

func parseAmount(s string, thousands bool, period job.SalaryPeriod) *int64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return nil
	}
	if thousands || (v < 1000 && period == job.PeriodYearly) {
		v *= 1000
	}
	n := int64(v)
	return &n
}

func detectPeriod(text string) job.SalaryPeriod {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "month"), strings.Contains(lower, "/mo"):
		return job.PeriodMonthly
	case strings.Contains(lower, "hour"), strings.Contains(lower, "/hr"), strings.Contains(lower, "/h "):
		return job.PeriodHourly
	case strings.Contains(lower, "week"), strings.Contains(lower, "/wk"):
		return job.PeriodWeekly
	default:
		return job.PeriodYearly
	}
}

func detectCurrency(text string) string {
	switch {
	case strings.Contains(text, "€"), strings.Contains(text, "EUR"):
		return "EUR"
	case strings.Contains(text, "£"), strings.Contains(text, "GBP"):
		return "GBP"
	case strings.Contains(text, "CAD"), strings.Contains(text, "C$"):
		return "CAD"
	default:
		return job.DefaultCurrency
	}
}

// formatSalaryText renders API salary bounds the way job boards print them,
// e.g. "$100,000 - $150,000/yearly (USD)".
func formatSalaryText(lo, hi *int64, period, currency string) string {
	var parts []string
	for _, v := range []*int64{lo, hi} {
		if v != nil && *v > 0 {
			parts = append(parts, "$"+groupThousands(*v))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " - ") + "/" + period + " (" + currency + ")"
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
