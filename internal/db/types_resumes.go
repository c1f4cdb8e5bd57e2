package db

import (
	"time"

	"github.com/google/uuid"
)

// TemplateName identifies one of the closed set of visual layouts
type TemplateName string

// Known templates
const (
	TemplateModern   TemplateName = "modern"
	TemplateClassic  TemplateName = "classic"
	TemplateCreative TemplateName = "creative"
	TemplateMinimal  TemplateName = "minimal"
)

// DefaultTemplate is used when a submission does not name a template
const DefaultTemplate = TemplateModern

// Templates lists every known template in display order
var Templates = []TemplateName{TemplateModern, TemplateClassic, TemplateCreative, TemplateMinimal}

// Valid reports whether t is one of the known templates
func (t TemplateName) Valid() bool {
	switch t {
	case TemplateModern, TemplateClassic, TemplateCreative, TemplateMinimal:
		return true
	}
	return false
}

// SkillLevel is the proficiency of a skill
type SkillLevel string

// Skill proficiency values
const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
	SkillExpert       SkillLevel = "expert"
)

// Valid reports whether l is a known skill level
func (l SkillLevel) Valid() bool {
	switch l {
	case SkillBeginner, SkillIntermediate, SkillAdvanced, SkillExpert:
		return true
	}
	return false
}

// LanguageLevel is the proficiency of a spoken language
type LanguageLevel string

// Language proficiency values
const (
	LanguageBasic        LanguageLevel = "basic"
	LanguageIntermediate LanguageLevel = "intermediate"
	LanguageAdvanced     LanguageLevel = "advanced"
	LanguageNative       LanguageLevel = "native"
)

// Valid reports whether l is a known language level
func (l LanguageLevel) Valid() bool {
	switch l {
	case LanguageBasic, LanguageIntermediate, LanguageAdvanced, LanguageNative:
		return true
	}
	return false
}

// DefaultResumeTitle is used when a submission leaves the title blank
const DefaultResumeTitle = "My Resume"

// Resume is the root record of a résumé
type Resume struct {
	ID             uuid.UUID    `json:"id"`
	UserID         *uuid.UUID   `json:"user_id,omitempty"` // nil for anonymous résumés
	Title          string       `json:"title" validate:"max=200"`
	Template       TemplateName `json:"template"`
	IsPublic       bool         `json:"is_public"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	ViewsCount     int          `json:"views_count"`
	DownloadsCount int          `json:"downloads_count"`

	// Personal information
	Name           string `json:"name" validate:"max=100"`
	About          string `json:"about,omitempty"`
	Age            string `json:"age,omitempty" validate:"max=10"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty" validate:"max=20"`
	Address        string `json:"address,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"` // storage reference

	// Social links
	LinkedIn  string `json:"linkedin,omitempty"`
	GitHub    string `json:"github,omitempty"`
	Portfolio string `json:"portfolio,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
}

// OwnedBy reports whether the résumé belongs to the given user
func (r *Resume) OwnedBy(userID uuid.UUID) bool {
	return r.UserID != nil && *r.UserID == userID
}

// Skill is a named skill with a proficiency level
type Skill struct {
	ID          uuid.UUID  `json:"id"`
	ResumeID    uuid.UUID  `json:"resume_id"`
	Name        string     `json:"name" validate:"max=100"`
	Proficiency SkillLevel `json:"proficiency"`
	Ordinal     int        `json:"ordinal"`
}

// Education is a degree entry
type Education struct {
	ID          uuid.UUID `json:"id"`
	ResumeID    uuid.UUID `json:"resume_id"`
	Degree      string    `json:"degree" validate:"max=200"`
	Institution string    `json:"institution" validate:"max=200"`
	Year        string    `json:"year" validate:"max=20"`
	GPA         string    `json:"gpa,omitempty" validate:"max=10"`
	Description string    `json:"description,omitempty"`
	Ordinal     int       `json:"ordinal"`
}

// Language is a spoken language with a proficiency level
type Language struct {
	ID          uuid.UUID     `json:"id"`
	ResumeID    uuid.UUID     `json:"resume_id"`
	Name        string        `json:"name" validate:"max=50"`
	Proficiency LanguageLevel `json:"proficiency"`
	Ordinal     int           `json:"ordinal"`
}

// Project is a portfolio project
type Project struct {
	ID           uuid.UUID `json:"id"`
	ResumeID     uuid.UUID `json:"resume_id"`
	Title        string    `json:"title" validate:"max=200"`
	Duration     string    `json:"duration" validate:"max=50"`
	Description  string    `json:"description"`
	Technologies string    `json:"technologies,omitempty" validate:"max=200"`
	GitHubLink   string    `json:"github_link,omitempty"`
	LiveLink     string    `json:"live_link,omitempty"`
	Ordinal      int       `json:"ordinal"`
}

// WorkExperience is an employment history entry
type WorkExperience struct {
	ID          uuid.UUID `json:"id"`
	ResumeID    uuid.UUID `json:"resume_id"`
	Company     string    `json:"company" validate:"max=200"`
	Position    string    `json:"position" validate:"max=200"`
	Duration    string    `json:"duration" validate:"max=50"`
	Location    string    `json:"location,omitempty" validate:"max=200"`
	Description string    `json:"description"`
	StartDate   *Date     `json:"start_date,omitempty"`
	EndDate     *Date     `json:"end_date,omitempty"`
	Current     bool      `json:"current"`
	Ordinal     int       `json:"ordinal"`
}

// Certification is a professional certification
type Certification struct {
	ID            uuid.UUID `json:"id"`
	ResumeID      uuid.UUID `json:"resume_id"`
	Name          string    `json:"name" validate:"max=200"`
	Issuer        string    `json:"issuer" validate:"max=200"`
	DateObtained  Date      `json:"date_obtained"`
	ExpiryDate    *Date     `json:"expiry_date,omitempty"`
	CredentialID  string    `json:"credential_id,omitempty" validate:"max=100"`
	CredentialURL string    `json:"credential_url,omitempty"`
	Ordinal       int       `json:"ordinal"`
}

// Achievement is an award or other notable accomplishment
type Achievement struct {
	ID          uuid.UUID `json:"id"`
	ResumeID    uuid.UUID `json:"resume_id"`
	Title       string    `json:"title" validate:"max=200"`
	Description string    `json:"description,omitempty"`
	Date        *Date     `json:"date,omitempty"`
	Ordinal     int       `json:"ordinal"`
}

// Reference is a professional reference
type Reference struct {
	ID           uuid.UUID `json:"id"`
	ResumeID     uuid.UUID `json:"resume_id"`
	Name         string    `json:"name" validate:"max=100"`
	Position     string    `json:"position" validate:"max=200"`
	Company      string    `json:"company" validate:"max=200"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty" validate:"max=20"`
	Relationship string    `json:"relationship,omitempty" validate:"max=100"`
	Ordinal      int       `json:"ordinal"`
}

// ResumeGraph is a résumé together with all of its owned collections,
// each in storage order. The max tags mirror the VARCHAR widths in
// schema/postgres.sql.
type ResumeGraph struct {
	Resume         Resume           `json:"resume"`
	Skills         []Skill          `json:"skills" validate:"dive"`
	Education      []Education      `json:"education" validate:"dive"`
	Languages      []Language       `json:"languages" validate:"dive"`
	Projects       []Project        `json:"projects" validate:"dive"`
	WorkExperience []WorkExperience `json:"work_experience" validate:"dive"`
	Certifications []Certification  `json:"certifications" validate:"dive"`
	Achievements   []Achievement    `json:"achievements" validate:"dive"`
	References     []Reference      `json:"references" validate:"dive"`
}

// SearchParams holds the query for listing public résumés
type SearchParams struct {
	Query  string
	Limit  int
	Offset int
}

// SiteStats holds totals shown on the landing page
type SiteStats struct {
	TotalResumes int `json:"total_resumes"`
	TotalUsers   int `json:"total_users"`
}
