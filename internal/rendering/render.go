package rendering

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"github.com/jonathan/resume-builder/internal/db"
	"github.com/microcosm-cc/bluemonday"
)

// View is the data passed to a layout
type View struct {
	Resume         db.Resume
	PictureURL     template.URL
	Skills         []db.Skill
	Education      []db.Education
	Languages      []db.Language
	Projects       []db.Project
	WorkExperience []db.WorkExperience
	Certifications []db.Certification
	Achievements   []db.Achievement
	References     []db.Reference
}

// Render executes the résumé's layout against its graph. An unknown template
// returns a RenderError before anything is executed.
func (r *Registry) Render(g *db.ResumeGraph) (string, error) {
	return r.render(g, nil)
}

// RenderStandalone renders a document that needs no server to display, as
// loaded by the PDF converter. picture, when given, is embedded as a data
// URI in place of the media link.
func (r *Registry) RenderStandalone(g *db.ResumeGraph, picture []byte) (string, error) {
	return r.render(g, picture)
}

func (r *Registry) render(g *db.ResumeGraph, picture []byte) (string, error) {
	if g == nil {
		return "", &RenderError{Message: "no resume to render"}
	}
	tmpl, err := r.Lookup(g.Resume.Template)
	if err != nil {
		return "", err
	}

	v := r.view(g)
	if len(picture) > 0 {
		v.PictureURL = dataURI(picture)
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, v); err != nil {
		return "", &TemplateError{
			Message: fmt.Sprintf("failed to execute template %s", g.Resume.Template),
			Cause:   err,
		}
	}
	return out.String(), nil
}

func (r *Registry) view(g *db.ResumeGraph) View {
	v := View{
		Resume:         g.Resume,
		Skills:         g.Skills,
		Education:      g.Education,
		Languages:      g.Languages,
		Projects:       g.Projects,
		WorkExperience: g.WorkExperience,
		Certifications: g.Certifications,
		Achievements:   g.Achievements,
		References:     g.References,
	}
	if ref := g.Resume.ProfilePicture; ref != "" {
		v.PictureURL = r.mediaURL(ref)
	}
	return v
}

// mediaURL links a stored reference below the media base, escaping each
// path segment
func (r *Registry) mediaURL(ref string) template.URL {
	segments := strings.Split(strings.TrimPrefix(ref, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return template.URL(r.mediaBase + strings.Join(segments, "/"))
}

func dataURI(data []byte) template.URL {
	return template.URL("data:" + http.DetectContentType(data) + ";base64," +
		base64.StdEncoding.EncodeToString(data))
}

// policy sanitises user-written rich text; safe for concurrent use
var policy = bluemonday.UGCPolicy()

func funcMap() template.FuncMap {
	return template.FuncMap{
		"rich":         rich,
		"monthYear":    monthYear,
		"dateRange":    dateRange,
		"levelPercent": levelPercent,
		"title":        titleCase,
		"splitList":    splitList,
		"initials":     initials,
	}
}

// rich sanitises free text and keeps its line breaks
func rich(s string) template.HTML {
	clean := policy.Sanitize(s)
	clean = strings.ReplaceAll(clean, "\n", "<br>\n")
	return template.HTML(clean)
}

// monthYear formats a date as "Jan 2006"; accepts db.Date or *db.Date
func monthYear(v any) string {
	switch d := v.(type) {
	case db.Date:
		if d.IsZero() {
			return ""
		}
		return d.Format("Jan 2006")
	case *db.Date:
		if d == nil {
			return ""
		}
		return monthYear(*d)
	}
	return ""
}

// dateRange formats a work period, e.g. "Mar 2019 – Present"
func dateRange(start, end *db.Date, current bool) string {
	from := monthYear(start)
	to := monthYear(end)
	if current {
		to = "Present"
	}
	switch {
	case from == "" && to == "":
		return ""
	case from == "":
		return to
	case to == "":
		return from
	}
	return from + " – " + to
}

// levelPercent maps a proficiency to the width of its skill bar
func levelPercent(level db.SkillLevel) int {
	switch level {
	case db.SkillBeginner:
		return 25
	case db.SkillAdvanced:
		return 75
	case db.SkillExpert:
		return 100
	}
	return 50
}

func titleCase(v any) string {
	s := fmt.Sprint(v)
	if s == "" {
		return ""
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// splitList splits a comma-separated list, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func initials(name string) string {
	var b strings.Builder
	for _, f := range strings.Fields(name) {
		b.WriteRune(unicode.ToUpper([]rune(f)[0]))
		if b.Len() >= 2 {
			break
		}
	}
	return b.String()
}
