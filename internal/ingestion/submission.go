// Package ingestion turns submitted résumé forms into validated records ready
// to be stored in a single transaction.
package ingestion

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonathan/resume-builder/internal/schemas"
)

// Flag is a checkbox-style value. It decodes from a JSON boolean or string
// and is interpreted by Truthy.
type Flag string

// UnmarshalJSON implements json.Unmarshaler
func (f *Flag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			*f = "true"
		} else {
			*f = ""
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("flag must be a boolean or string")
	}
	*f = Flag(s)
	return nil
}

// Truthy reports whether the flag is set: on, true, 1 or yes (any case)
func (f Flag) Truthy() bool {
	switch strings.ToLower(strings.TrimSpace(string(f))) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// SkillRow is one submitted skill
type SkillRow struct {
	Name        string `json:"name"`
	Proficiency string `json:"proficiency"`
}

// EducationRow is one submitted education entry
type EducationRow struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year"`
	GPA         string `json:"gpa"`
	Description string `json:"description"`
}

// LanguageRow is one submitted language
type LanguageRow struct {
	Name        string `json:"name"`
	Proficiency string `json:"proficiency"`
}

// ProjectRow is one submitted project
type ProjectRow struct {
	Title        string `json:"title"`
	Duration     string `json:"duration"`
	Description  string `json:"description"`
	Technologies string `json:"technologies"`
	GitHubLink   string `json:"github_link"`
	LiveLink     string `json:"live_link"`
}

// WorkRow is one submitted work experience entry
type WorkRow struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	Duration    string `json:"duration"`
	Location    string `json:"location"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Current     Flag   `json:"current"`
}

// CertificationRow is one submitted certification
type CertificationRow struct {
	Name          string `json:"name"`
	Issuer        string `json:"issuer"`
	DateObtained  string `json:"date_obtained"`
	ExpiryDate    string `json:"expiry_date"`
	CredentialID  string `json:"credential_id"`
	CredentialURL string `json:"credential_url"`
}

// AchievementRow is one submitted achievement
type AchievementRow struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// ReferenceRow is one submitted reference
type ReferenceRow struct {
	Name         string `json:"name"`
	Position     string `json:"position"`
	Company      string `json:"company"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}

// Submission is the raw, untrimmed content of a résumé creation request
type Submission struct {
	Title     string `json:"title"`
	Template  string `json:"template"`
	IsPublic  Flag   `json:"is_public"`
	Name      string `json:"name"`
	About     string `json:"about"`
	Age       string `json:"age"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	LinkedIn  string `json:"linkedin"`
	GitHub    string `json:"github"`
	Portfolio string `json:"portfolio"`
	Twitter   string `json:"twitter"`

	Skills         []SkillRow         `json:"skills"`
	Education      []EducationRow     `json:"education"`
	Languages      []LanguageRow      `json:"languages"`
	Projects       []ProjectRow       `json:"projects"`
	WorkExperience []WorkRow          `json:"work_experience"`
	Certifications []CertificationRow `json:"certifications"`
	Achievements   []AchievementRow   `json:"achievements"`
	References     []ReferenceRow     `json:"references"`
}

// DecodeJSON checks body against the submission schema and decodes it.
// Schema violations are returned as *schemas.ValidationError.
func DecodeJSON(body []byte) (*Submission, error) {
	if err := schemas.Validate(schemas.ResumeSubmission, body); err != nil {
		return nil, err
	}
	var sub Submission
	if err := json.Unmarshal(body, &sub); err != nil {
		return nil, fmt.Errorf("failed to decode submission: %w", err)
	}
	return &sub, nil
}

// columns reads the parallel sequences of the legacy form. A companion
// sequence shorter than the primary yields "" at the missing index.
type columns url.Values

func (c columns) at(key string, i int) string {
	values := c[key]
	if i < len(values) {
		return values[i]
	}
	return ""
}

// atAny returns the value of the first key that has an entry at index i
func (c columns) atAny(i int, keys ...string) string {
	for _, key := range keys {
		if i < len(c[key]) {
			return c[key][i]
		}
	}
	return ""
}

func (c columns) count(key string) int {
	return len(c[key])
}

// indexes reads a checkbox column whose values are row indexes. Browsers
// omit unchecked boxes, so position in the column says nothing about the
// row. Values that are not indexes are ignored.
func (c columns) indexes(key string) map[int]bool {
	set := make(map[int]bool, len(c[key]))
	for _, v := range c[key] {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && i >= 0 {
			set[i] = true
		}
	}
	return set
}

func currentFlag(checked bool) Flag {
	if checked {
		return "on"
	}
	return ""
}

// FromForm converts the legacy flat form, where each row kind is spread over
// index-aligned `xxx[]` fields, into a structured Submission. Rows are zipped
// over the index range of each kind's primary field. The one checkbox
// column, work_current[], carries the indexes of the checked rows.
func FromForm(form url.Values) *Submission {
	c := columns(form)
	sub := &Submission{
		Title:     form.Get("title"),
		Template:  form.Get("template"),
		IsPublic:  Flag(form.Get("is_public")),
		Name:      form.Get("name"),
		About:     form.Get("about"),
		Age:       form.Get("age"),
		Email:     form.Get("email"),
		Phone:     form.Get("phone"),
		Address:   form.Get("address"),
		LinkedIn:  form.Get("linkedin"),
		GitHub:    form.Get("github"),
		Portfolio: form.Get("portfolio"),
		Twitter:   form.Get("twitter"),
	}

	for i := 0; i < c.count("skills[]"); i++ {
		sub.Skills = append(sub.Skills, SkillRow{
			Name:        c.at("skills[]", i),
			Proficiency: c.at("skill_proficiencies[]", i),
		})
	}

	for i := 0; i < c.count("degrees[]"); i++ {
		sub.Education = append(sub.Education, EducationRow{
			Degree:      c.at("degrees[]", i),
			Institution: c.at("institutions[]", i),
			Year:        c.at("years[]", i),
			GPA:         c.at("gpas[]", i),
			Description: c.at("education_descriptions[]", i),
		})
	}

	for i := 0; i < c.count("languages[]"); i++ {
		sub.Languages = append(sub.Languages, LanguageRow{
			Name:        c.at("languages[]", i),
			Proficiency: c.at("proficiencies[]", i),
		})
	}

	for i := 0; i < c.count("project_titles[]"); i++ {
		sub.Projects = append(sub.Projects, ProjectRow{
			Title:        c.at("project_titles[]", i),
			Duration:     c.at("project_durations[]", i),
			Description:  c.at("project_descriptions[]", i),
			Technologies: c.at("project_technologies[]", i),
			GitHubLink:   c.at("project_github_links[]", i),
			LiveLink:     c.at("project_live_links[]", i),
		})
	}

	current := c.indexes("work_current[]")
	for i := 0; i < c.count("companies[]"); i++ {
		sub.WorkExperience = append(sub.WorkExperience, WorkRow{
			Company:     c.at("companies[]", i),
			Position:    c.at("positions[]", i),
			Duration:    c.at("work_durations[]", i),
			Location:    c.at("work_locations[]", i),
			Description: c.at("work_descriptions[]", i),
			StartDate:   c.at("work_start_dates[]", i),
			EndDate:     c.at("work_end_dates[]", i),
			Current:     currentFlag(current[i]),
		})
	}

	for i := 0; i < c.count("cert_names[]"); i++ {
		sub.Certifications = append(sub.Certifications, CertificationRow{
			Name:          c.at("cert_names[]", i),
			Issuer:        c.at("cert_issuers[]", i),
			DateObtained:  c.at("cert_dates[]", i),
			ExpiryDate:    c.at("cert_expiry_dates[]", i),
			CredentialID:  c.at("cert_ids[]", i),
			CredentialURL: c.at("cert_urls[]", i),
		})
	}

	for i := 0; i < c.count("achievement_titles[]"); i++ {
		sub.Achievements = append(sub.Achievements, AchievementRow{
			Title:       c.at("achievement_titles[]", i),
			Description: c.at("achievement_descriptions[]", i),
			// Older forms only sent a year
			Date: c.atAny(i, "achievement_dates[]", "achievement_years[]"),
		})
	}

	for i := 0; i < c.count("ref_names[]"); i++ {
		sub.References = append(sub.References, ReferenceRow{
			Name:         c.at("ref_names[]", i),
			Position:     c.at("ref_positions[]", i),
			Company:      c.at("ref_companies[]", i),
			Email:        c.at("ref_emails[]", i),
			Phone:        c.at("ref_phones[]", i),
			Relationship: c.at("ref_relationships[]", i),
		})
	}

	return sub
}
