package job

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Raw detail keys produced by sources.
const (
	KeySource           = "source"
	KeySourceJobID      = "source_job_id"
	KeyTitle            = "title"
	KeyCompanyName      = "company_name"
	KeyCompanyLogoURL   = "company_logo_url"
	KeyCompanyDomain    = "company_domain"
	KeyDescriptionHTML  = "description_html"
	KeyDescriptionText  = "description_text"
	KeyEmploymentType   = "employment_type"
	KeyRemoteScope      = "remote_scope"
	KeyLocationText     = "location_text"
	KeyCategory         = "category"
	KeyExperienceLevel  = "experience_level"
	KeySalaryMin        = "salary_min"
	KeySalaryMax        = "salary_max"
	KeySalaryCurrency   = "salary_currency"
	KeySalaryPeriod     = "salary_period"
	KeySalaryText       = "salary_text"
	KeyPostedAt         = "posted_at"
	KeyApplyURLOriginal = "apply_url_original"
	KeyApplyURLFinal    = "apply_url_final"
	KeyCanonicalURL     = "canonical_url"
	KeyTags             = "tags"
)

// RawDetail is the loosely typed record a source hands to the normalizer.
// Values may be strings, numbers, lists or nil; absent keys are fine.
type RawDetail map[string]any

func (r RawDetail) Value(key string) any {
	if r == nil {
		return nil
	}
	return r[key]
}

func (r RawDetail) Has(key string) bool {
	if r == nil {
		return false
	}
	_, ok := r[key]
	return ok
}

// String coerces the value to a trimmed string. nil and absent keys give "".
func (r RawDetail) String(key string) string {
	return strings.TrimSpace(ToString(r.Value(key)))
}

// Strings returns list values as trimmed, non-empty strings. A scalar string is
// split on commas.
func (r RawDetail) Strings(key string) []string {
	var out []string
	switch v := r.Value(key).(type) {
	case nil:
		return nil
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, it := range v {
			if s := strings.TrimSpace(ToString(it)); s != "" {
				out = append(out, s)
			}
		}
	default:
		return SplitTags(ToString(v))
	}
	return out
}

// Int returns an integer value or nil when absent or not numeric.
func (r RawDetail) Int(key string) *int64 {
	switch v := r.Value(key).(type) {
	case nil:
		return nil
	case int:
		n := int64(v)
		return &n
	case int32:
		n := int64(v)
		return &n
	case int64:
		return &v
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return &n
		}
		if f, err := v.Float64(); err == nil {
			return floatToInt(f)
		}
		return nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		if s == "" {
			return nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return &n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInt(f)
		}
		return nil
	case *int64:
		return v
	default:
		return nil
	}
}

// ToString renders any raw value the way it would read in a listing.
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case *int64:
		if t == nil {
			return ""
		}
		return strconv.FormatInt(*t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []string:
		return strings.Join(t, ",")
	case []any:
		parts := make([]string, 0, len(t))
		for _, it := range t {
			parts = append(parts, ToString(it))
		}
		return strings.Join(parts, ",")
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func floatToInt(f float64) *int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64/2 {
		return nil
	}
	n := int64(f)
	return &n
}
