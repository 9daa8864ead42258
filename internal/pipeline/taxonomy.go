package pipeline

import (
	"html"
	"strings"

	"remote-jobs/internal/domain/job"
)

// categoryMap folds each source's vocabulary into the canonical categories.
// Keys are lower case.
var categoryMap = map[string]job.Category{
	"programming":                  job.CategoryEngineering,
	"software development":         job.CategoryEngineering,
	"software engineering":         job.CategoryEngineering,
	"development":                  job.CategoryEngineering,
	"developer":                    job.CategoryEngineering,
	"developer / engineer":         job.CategoryEngineering,
	"engineering":                  job.CategoryEngineering,
	"full-stack programming":       job.CategoryEngineering,
	"front-end programming":        job.CategoryEngineering,
	"back-end programming":         job.CategoryEngineering,
	"full stack":                   job.CategoryEngineering,
	"frontend":                     job.CategoryEngineering,
	"backend":                      job.CategoryEngineering,
	"web development":              job.CategoryEngineering,
	"design":                       job.CategoryDesign,
	"creative & design":            job.CategoryDesign,
	"design & ux":                  job.CategoryDesign,
	"ui/ux":                        job.CategoryDesign,
	"marketing":                    job.CategoryMarketing,
	"sales and marketing":          job.CategoryMarketing,
	"marketing & sales":            job.CategoryMarketing,
	"sales":                        job.CategorySales,
	"business development":         job.CategorySales,
	"business development & sales": job.CategorySales,
	"support":                      job.CategorySupport,
	"customer support":             job.CategorySupport,
	"customer success":             job.CategorySupport,
	"customer service":             job.CategorySupport,
	"devops and sysadmin":          job.CategoryDevOps,
	"devops & infrastructure":      job.CategoryDevOps,
	"devops":                       job.CategoryDevOps,
	"sysadmin":                     job.CategoryDevOps,
	"system administration":        job.CategoryDevOps,
	"management and finance":       job.CategoryManagement,
	"management":                   job.CategoryManagement,
	"management / operations":      job.CategoryManagement,
	"product & operations":         job.CategoryManagement,
	"operations":                   job.CategoryManagement,
	"product":                      job.CategoryProduct,
	"data science & analytics":     job.CategoryData,
	"data science":                 job.CategoryData,
	"data":                         job.CategoryData,
	"ai & data":                    job.CategoryData,
	"writing":                      job.CategoryWriting,
	"content & editorial":          job.CategoryWriting,
	"writing & editing":            job.CategoryWriting,
	"content":                      job.CategoryWriting,
	"copywriting":                  job.CategoryWriting,
	"finance":                      job.CategoryFinance,
	"finance & accounting":         job.CategoryFinance,
	"finance and accounting":       job.CategoryFinance,
	"accounting":                   job.CategoryFinance,
	"hr":                           job.CategoryHR,
	"hr & recruiting":              job.CategoryHR,
	"human resources":              job.CategoryHR,
	"recruiting":                   job.CategoryHR,
	"all other remote":             job.CategoryOther,
	"other":                        job.CategoryOther,
	"various":                      job.CategoryOther,
	"consulting":                   job.CategoryOther,
	"legal":                        job.CategoryOther,
	"education":                    job.CategoryOther,
	"healthcare":                   job.CategoryOther,
	"admin":                        job.CategoryOther,
	"admin / virtual assistant":    job.CategoryOther,
	"virtual assistant":            job.CategoryOther,
}

var employmentTypeMap = map[string]job.EmploymentType{
	"full-time":  job.EmploymentFullTime,
	"full time":  job.EmploymentFullTime,
	"full_time":  job.EmploymentFullTime,
	"fulltime":   job.EmploymentFullTime,
	"ft":         job.EmploymentFullTime,
	"part-time":  job.EmploymentPartTime,
	"part time":  job.EmploymentPartTime,
	"part_time":  job.EmploymentPartTime,
	"parttime":   job.EmploymentPartTime,
	"pt":         job.EmploymentPartTime,
	"contract":   job.EmploymentContract,
	"contractor": job.EmploymentContract,
	"freelance":  job.EmploymentContract,
	"internship": job.EmploymentInternship,
	"intern":     job.EmploymentInternship,
}

// MapCategory maps raw source vocabulary to a canonical category. A list
// value uses its first element. Unknown input yields Other.
func MapCategory(raw any) job.Category {
	if c, ok := categoryMap[lookupKey(raw)]; ok {
		return c
	}
	return job.CategoryOther
}

// MapEmploymentType maps raw source vocabulary to a canonical employment
// type. Unknown input yields Full-time.
func MapEmploymentType(raw any) job.EmploymentType {
	if e, ok := employmentTypeMap[lookupKey(raw)]; ok {
		return e
	}
	return job.EmploymentFullTime
}

func lookupKey(raw any) string {
	switch v := raw.(type) {
	case []any:
		if len(v) == 0 {
			return ""
		}
		raw = v[0]
	case []string:
		if len(v) == 0 {
			return ""
		}
		raw = v[0]
	}
	s := html.UnescapeString(job.ToString(raw))
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}
