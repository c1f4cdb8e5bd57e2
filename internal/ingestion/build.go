package ingestion

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/db"
	"github.com/rs/zerolog/log"
)

// yearLayout is accepted for achievement dates sent by older forms
const yearLayout = "2006"

// Build validates a submission and converts it into a résumé graph ready to
// be written. Scalar validation runs first; on failure a *ValidationError is
// returned and no rows are examined. Rows whose primary field is blank are
// dropped; unknown enum values and unparsable dates fall back to defaults.
// Any value wider than its column is a *ValidationError.
// now supplies the default certification date.
func Build(sub Submission, owner *uuid.UUID, now time.Time) (*db.ResumeGraph, *Report, error) {
	if err := ValidateScalars(sub.Name, sub.Email, sub.Template); err != nil {
		return nil, nil, err
	}

	template := db.TemplateName(strings.TrimSpace(sub.Template))
	if template == "" {
		template = db.DefaultTemplate
	}
	title := strings.TrimSpace(sub.Title)
	if title == "" {
		title = db.DefaultResumeTitle
	}

	g := &db.ResumeGraph{
		Resume: db.Resume{
			UserID:    owner,
			Title:     title,
			Template:  template,
			IsPublic:  sub.IsPublic.Truthy(),
			Name:      strings.TrimSpace(sub.Name),
			About:     CleanText(sub.About),
			Age:       strings.TrimSpace(sub.Age),
			Email:     strings.TrimSpace(sub.Email),
			Phone:     strings.TrimSpace(sub.Phone),
			Address:   CleanText(sub.Address),
			LinkedIn:  strings.TrimSpace(sub.LinkedIn),
			GitHub:    strings.TrimSpace(sub.GitHub),
			Portfolio: strings.TrimSpace(sub.Portfolio),
			Twitter:   strings.TrimSpace(sub.Twitter),
		},
	}

	b := &builder{report: newReport(), today: db.NewDate(now)}

	for i, row := range sub.Skills {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			b.report.skip(KindSkill)
			continue
		}
		g.Skills = append(g.Skills, db.Skill{
			Name:        name,
			Proficiency: b.skillLevel(i, row.Proficiency),
		})
	}

	for _, row := range sub.Education {
		degree := strings.TrimSpace(row.Degree)
		if degree == "" {
			b.report.skip(KindEducation)
			continue
		}
		g.Education = append(g.Education, db.Education{
			Degree:      degree,
			Institution: strings.TrimSpace(row.Institution),
			Year:        strings.TrimSpace(row.Year),
			GPA:         strings.TrimSpace(row.GPA),
			Description: CleanText(row.Description),
		})
	}

	for i, row := range sub.Languages {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			b.report.skip(KindLanguage)
			continue
		}
		g.Languages = append(g.Languages, db.Language{
			Name:        name,
			Proficiency: b.languageLevel(i, row.Proficiency),
		})
	}

	for _, row := range sub.Projects {
		title := strings.TrimSpace(row.Title)
		if title == "" {
			b.report.skip(KindProject)
			continue
		}
		g.Projects = append(g.Projects, db.Project{
			Title:        title,
			Duration:     strings.TrimSpace(row.Duration),
			Description:  CleanText(row.Description),
			Technologies: strings.TrimSpace(row.Technologies),
			GitHubLink:   strings.TrimSpace(row.GitHubLink),
			LiveLink:     strings.TrimSpace(row.LiveLink),
		})
	}

	for i, row := range sub.WorkExperience {
		company := strings.TrimSpace(row.Company)
		if company == "" {
			b.report.skip(KindWork)
			continue
		}
		g.WorkExperience = append(g.WorkExperience, db.WorkExperience{
			Company:     company,
			Position:    strings.TrimSpace(row.Position),
			Duration:    strings.TrimSpace(row.Duration),
			Location:    strings.TrimSpace(row.Location),
			Description: CleanText(row.Description),
			StartDate:   b.optionalDate(KindWork, i, "start_date", row.StartDate),
			EndDate:     b.optionalDate(KindWork, i, "end_date", row.EndDate),
			Current:     row.Current.Truthy(),
		})
	}

	for i, row := range sub.Certifications {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			b.report.skip(KindCertification)
			continue
		}
		obtained := b.today
		if d := b.optionalDate(KindCertification, i, "date_obtained", row.DateObtained); d != nil {
			obtained = *d
		}
		g.Certifications = append(g.Certifications, db.Certification{
			Name:          name,
			Issuer:        strings.TrimSpace(row.Issuer),
			DateObtained:  obtained,
			ExpiryDate:    b.optionalDate(KindCertification, i, "expiry_date", row.ExpiryDate),
			CredentialID:  strings.TrimSpace(row.CredentialID),
			CredentialURL: strings.TrimSpace(row.CredentialURL),
		})
	}

	for i, row := range sub.Achievements {
		title := strings.TrimSpace(row.Title)
		if title == "" {
			b.report.skip(KindAchievement)
			continue
		}
		g.Achievements = append(g.Achievements, db.Achievement{
			Title:       title,
			Description: CleanText(row.Description),
			Date:        b.optionalDate(KindAchievement, i, "date", row.Date),
		})
	}

	for _, row := range sub.References {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			b.report.skip(KindReference)
			continue
		}
		g.References = append(g.References, db.Reference{
			Name:         name,
			Position:     strings.TrimSpace(row.Position),
			Company:      strings.TrimSpace(row.Company),
			Email:        strings.TrimSpace(row.Email),
			Phone:        strings.TrimSpace(row.Phone),
			Relationship: strings.TrimSpace(row.Relationship),
		})
	}

	if err := CheckLengths(g); err != nil {
		return nil, nil, err
	}
	return g, b.report, nil
}

type builder struct {
	report *Report
	today  db.Date
}

func (b *builder) skillLevel(row int, raw string) db.SkillLevel {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return db.SkillIntermediate
	}
	if l := db.SkillLevel(v); l.Valid() {
		return l
	}
	b.report.warn(Warning{Kind: KindSkill, Row: row, Field: "proficiency", Value: raw,
		Message: "unknown proficiency, using intermediate"})
	return db.SkillIntermediate
}

func (b *builder) languageLevel(row int, raw string) db.LanguageLevel {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return db.LanguageIntermediate
	}
	if l := db.LanguageLevel(v); l.Valid() {
		return l
	}
	b.report.warn(Warning{Kind: KindLanguage, Row: row, Field: "proficiency", Value: raw,
		Message: "unknown proficiency, using intermediate"})
	return db.LanguageIntermediate
}

// optionalDate parses a YYYY-MM-DD value. Blank yields nil silently; an
// unparsable value yields nil plus a warning.
func (b *builder) optionalDate(kind string, row int, field, raw string) *db.Date {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	if d, err := db.ParseDate(v); err == nil {
		return &d
	}
	if kind == KindAchievement {
		if t, err := time.Parse(yearLayout, v); err == nil {
			d := db.NewDate(t)
			return &d
		}
	}

	w := Warning{Kind: kind, Row: row, Field: field, Value: raw, Message: "unparsable date ignored"}
	if kind == KindCertification && field == "date_obtained" {
		w.Message = "unparsable date, using today"
	}
	b.report.warn(w)
	log.Warn().
		Str("kind", kind).
		Int("row", row).
		Str("field", field).
		Str("value", raw).
		Msg("Date fallback during ingestion")
	return nil
}

// ScalarUpdate carries the fields of an edit request. Nil fields keep their
// current value; sub-collections are never touched by an edit.
type ScalarUpdate struct {
	Title     *string `json:"title"`
	Template  *string `json:"template"`
	IsPublic  *bool   `json:"is_public"`
	Name      *string `json:"name"`
	About     *string `json:"about"`
	Age       *string `json:"age"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	LinkedIn  *string `json:"linkedin"`
	GitHub    *string `json:"github"`
	Portfolio *string `json:"portfolio"`
	Twitter   *string `json:"twitter"`
}

// UpdateFromForm builds a ScalarUpdate from the keys present in form
func UpdateFromForm(form url.Values) ScalarUpdate {
	get := func(key string) *string {
		if _, ok := form[key]; !ok {
			return nil
		}
		v := form.Get(key)
		return &v
	}
	u := ScalarUpdate{
		Title:     get("title"),
		Template:  get("template"),
		Name:      get("name"),
		About:     get("about"),
		Age:       get("age"),
		Email:     get("email"),
		Phone:     get("phone"),
		Address:   get("address"),
		LinkedIn:  get("linkedin"),
		GitHub:    get("github"),
		Portfolio: get("portfolio"),
		Twitter:   get("twitter"),
	}
	if v := get("is_public"); v != nil {
		public := Flag(*v).Truthy()
		u.IsPublic = &public
	}
	return u
}

// Apply merges the update into a copy of r, validates the merged name,
// email and template, and returns the result. r is never modified.
func (u ScalarUpdate) Apply(r db.Resume) (db.Resume, error) {
	set := func(dst *string, src *string, clean func(string) string) {
		if src != nil {
			*dst = clean(*src)
		}
	}
	set(&r.Title, u.Title, strings.TrimSpace)
	set(&r.Name, u.Name, strings.TrimSpace)
	set(&r.About, u.About, CleanText)
	set(&r.Age, u.Age, strings.TrimSpace)
	set(&r.Email, u.Email, strings.TrimSpace)
	set(&r.Phone, u.Phone, strings.TrimSpace)
	set(&r.Address, u.Address, CleanText)
	set(&r.LinkedIn, u.LinkedIn, strings.TrimSpace)
	set(&r.GitHub, u.GitHub, strings.TrimSpace)
	set(&r.Portfolio, u.Portfolio, strings.TrimSpace)
	set(&r.Twitter, u.Twitter, strings.TrimSpace)
	if u.Template != nil {
		r.Template = db.TemplateName(strings.TrimSpace(*u.Template))
	}
	if u.IsPublic != nil {
		r.IsPublic = *u.IsPublic
	}

	if err := ValidateScalars(r.Name, r.Email, string(r.Template)); err != nil {
		return db.Resume{}, err
	}
	if err := CheckLengths(r); err != nil {
		return db.Resume{}, err
	}
	if r.Template == "" {
		r.Template = db.DefaultTemplate
	}
	if r.Title == "" {
		r.Title = db.DefaultResumeTitle
	}
	return r, nil
}
