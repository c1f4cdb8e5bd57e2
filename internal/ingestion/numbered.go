package ingestion

import (
	"net/url"
	"strconv"
)

// Slot counts of the numbered quick form
const (
	numberedSkills       = 5
	numberedEducation    = 3
	numberedLanguages    = 3
	numberedProjects     = 2
	numberedWork         = 2
	numberedAchievements = 3
)

// IsNumberedForm reports whether form uses the numbered quick-form keys
// (skill1, degree1, company1, ...) rather than the `xxx[]` sequences
func IsNumberedForm(form url.Values) bool {
	for _, key := range []string{"skill1", "degree1", "lang1", "project1", "company1", "ach1"} {
		if _, ok := form[key]; ok {
			return true
		}
	}
	return false
}

// FromNumberedForm converts the numbered quick form, which has a fixed number
// of slots per section, into a Submission. Slot n of a section becomes row
// n-1; empty slots are kept and dropped later by Build like any blank row.
// The form shares duration1 and duration2 between projects and jobs.
func FromNumberedForm(form url.Values) *Submission {
	get := func(prefix string, n int) string {
		return form.Get(prefix + strconv.Itoa(n))
	}

	sub := &Submission{
		Title:    form.Get("title"),
		Template: form.Get("template"),
		Name:     form.Get("name"),
		About:    form.Get("about"),
		Age:      form.Get("age"),
		Email:    form.Get("email"),
		Phone:    form.Get("phone"),
	}

	for n := 1; n <= numberedSkills; n++ {
		sub.Skills = append(sub.Skills, SkillRow{Name: get("skill", n)})
	}
	for n := 1; n <= numberedEducation; n++ {
		sub.Education = append(sub.Education, EducationRow{
			Degree:      get("degree", n),
			Institution: get("college", n),
			Year:        get("year", n),
		})
	}
	for n := 1; n <= numberedLanguages; n++ {
		sub.Languages = append(sub.Languages, LanguageRow{Name: get("lang", n)})
	}
	for n := 1; n <= numberedProjects; n++ {
		sub.Projects = append(sub.Projects, ProjectRow{
			Title:       get("project", n),
			Duration:    get("duration", n),
			Description: get("desc", n),
		})
	}
	for n := 1; n <= numberedWork; n++ {
		sub.WorkExperience = append(sub.WorkExperience, WorkRow{
			Company:     get("company", n),
			Position:    get("post", n),
			Duration:    get("duration", n),
			Description: form.Get("lin" + strconv.Itoa(n) + "1"),
		})
	}
	for n := 1; n <= numberedAchievements; n++ {
		sub.Achievements = append(sub.Achievements, AchievementRow{Title: get("ach", n)})
	}
	return sub
}
