package pipeline

import (
	"strings"

	"remote-jobs/internal/domain/job"
)

type experienceRule struct {
	level    job.ExperienceLevel
	keywords []string
}

// Checked in order; the first rule with a matching keyword wins, so
// "Senior Manager" is Senior.
var experienceRules = []experienceRule{
	{job.ExperienceSenior, []string{"senior", "sr.", "sr ", "lead", "principal", "staff", "architect"}},
	{job.ExperienceJunior, []string{"junior", "jr.", "jr ", "entry", "associate", "trainee", "intern"}},
	{job.ExperienceMid, []string{"mid-level", "mid level", "intermediate"}},
	{job.ExperienceExecutive, []string{"director", "vp", "vice president", "head of", "chief", "cto", "ceo"}},
	{job.ExperienceManager, []string{"manager", "mgr"}},
}

// InferExperience guesses the level from a job title. No cue means Mid.
func InferExperience(title string) job.ExperienceLevel {
	if lvl, ok := matchExperience(title); ok {
		return lvl
	}
	return job.ExperienceMid
}

// ResolveExperience keeps a level the source supplied when it can be
// understood and otherwise infers one from the title.
func ResolveExperience(supplied, title string) job.ExperienceLevel {
	s := strings.TrimSpace(supplied)
	if s != "" {
		for _, lvl := range []job.ExperienceLevel{
			job.ExperienceJunior, job.ExperienceMid, job.ExperienceSenior,
			job.ExperienceManager, job.ExperienceExecutive,
		} {
			if strings.EqualFold(s, string(lvl)) {
				return lvl
			}
		}
		if lvl, ok := matchExperience(s); ok {
			return lvl
		}
	}
	return InferExperience(title)
}

func matchExperience(s string) (job.ExperienceLevel, bool) {
	lower := strings.ToLower(s)
	for _, rule := range experienceRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.level, true
			}
		}
	}
	return "", false
}
