package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"remote-jobs/internal/domain/job"
)

const (
	minTitleChars       = 5
	minDescriptionChars = 50

	ReasonOK = "OK"
)

var spamTitleTokens = []string{
	"test job",
	"test posting",
	"do not apply",
	"placeholder",
	"lorem ipsum",
	"asdf",
}

// Passes reports whether a job is complete enough to store. Rules run in a
// fixed order and the first failure's reason is returned.
func Passes(j job.Job) (bool, string) {
	title := strings.TrimSpace(j.Title)
	if utf8.RuneCountInString(title) < minTitleChars {
		return false, "Missing or too-short title"
	}

	if strings.TrimSpace(j.CompanyName) == "" {
		return false, "Missing company name"
	}

	desc := strings.TrimSpace(j.DescriptionText)
	if n := utf8.RuneCountInString(desc); n < minDescriptionChars {
		return false, fmt.Sprintf("Description too short (%d chars)", n)
	}

	if strings.TrimSpace(j.ApplyURLFinal) == "" &&
		strings.TrimSpace(j.ApplyURLOriginal) == "" &&
		strings.TrimSpace(j.CanonicalURL) == "" {
		return false, "Missing apply URL and canonical URL"
	}

	lower := strings.ToLower(title)
	for _, tok := range spamTitleTokens {
		if strings.Contains(lower, tok) {
			return false, "Spam-like title: " + title
		}
	}

	return true, ReasonOK
}
