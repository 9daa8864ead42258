package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	fingerprintDescriptionChars = 500
	fingerprintHexLen           = 32
)

// Fingerprint is the content identity used for cross-source duplicate
// detection. Only the first 500 characters of the description count.
func Fingerprint(title, company, description string) string {
	key := strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(company))

	desc := strings.TrimSpace(description)
	if desc != "" {
		r := []rune(desc)
		if len(r) > fingerprintDescriptionChars {
			r = r[:fingerprintDescriptionChars]
		}
		key += "|" + strings.ToLower(collapseSpaces(string(r)))
	}

	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:fingerprintHexLen]
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
