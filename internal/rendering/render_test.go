package rendering

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) *db.Date {
	t.Helper()
	d, err := db.ParseDate(s)
	require.NoError(t, err)
	return &d
}

func sampleGraph(t *testing.T, tmpl db.TemplateName) *db.ResumeGraph {
	return &db.ResumeGraph{
		Resume: db.Resume{
			ID:       uuid.New(),
			Title:    "Backend Engineer",
			Template: tmpl,
			Name:     "Ada Lovelace",
			Email:    "ada@example.com",
			Phone:    "555-0100",
			About:    "Wrote the <b>first</b> program.<script>alert(1)</script>\nLoves engines.",
			GitHub:   "https://github.com/ada",
		},
		Skills: []db.Skill{
			{Name: "Go", Proficiency: db.SkillExpert},
			{Name: "SQL", Proficiency: db.SkillBeginner},
		},
		Education: []db.Education{{Degree: "BSc Mathematics", Institution: "London", Year: "1835", GPA: "4.0"}},
		Languages: []db.Language{{Name: "French", Proficiency: db.LanguageAdvanced}},
		Projects: []db.Project{{
			Title: "Analytical Engine", Technologies: "Go, SQL, ", GitHubLink: "javascript:alert(1)",
			LiveLink: "https://engine.example.com",
		}},
		WorkExperience: []db.WorkExperience{
			{Company: "Acme", Position: "Engineer", StartDate: date(t, "2019-03-01"), Current: true},
			{Company: "Initech", Duration: "2 years"},
		},
		Certifications: []db.Certification{{
			Name: "CKA", Issuer: "CNCF", DateObtained: *date(t, "2021-04-05"),
			ExpiryDate: date(t, "2024-04-05"), CredentialURL: "https://cncf.io/cka",
		}},
		Achievements: []db.Achievement{{Title: "Prize", Date: date(t, "2019-09-09")}},
		References:   []db.Reference{{Name: "Charles Babbage", Position: "Professor", Company: "Cambridge"}},
	}
}

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestNewRegistry_ParsesEveryTemplate(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	assert.Equal(t, db.Templates, r.Names())

	for _, name := range db.Templates {
		tmpl, err := r.Lookup(name)
		require.NoError(t, err)
		assert.NotNil(t, tmpl)
	}
}

func TestLookup_UnknownTemplate(t *testing.T) {
	r := MustNewRegistry()

	for _, name := range []db.TemplateName{"", "fancy", "../modern", "Modern", "sections"} {
		t.Run(string(name), func(t *testing.T) {
			_, err := r.Lookup(name)
			require.Error(t, err)
			var re *RenderError
			assert.True(t, errors.As(err, &re))
			assert.True(t, errors.Is(err, ErrTemplateNotFound))
		})
	}
}

func TestRender_AllTemplates(t *testing.T) {
	r := MustNewRegistry()

	for _, name := range db.Templates {
		t.Run(string(name), func(t *testing.T) {
			html, err := r.Render(sampleGraph(t, name))
			require.NoError(t, err)

			doc := parse(t, html)
			assert.Equal(t, 1, doc.Find("body.template-"+string(name)).Length())
			assert.Equal(t, "Ada Lovelace", strings.TrimSpace(doc.Find("h1").First().Text()))

			skills := doc.Find(".skills .skill .name")
			require.Equal(t, 2, skills.Length())
			assert.Equal(t, "Go", skills.Eq(0).Text())
			assert.Equal(t, "SQL", skills.Eq(1).Text())

			jobs := doc.Find(".experience .job")
			require.Equal(t, 2, jobs.Length())
			assert.Contains(t, jobs.Eq(0).Find(".dates").Text(), "Mar 2019 – Present")
			assert.Contains(t, jobs.Eq(1).Find(".dates").Text(), "2 years")

			assert.Equal(t, 1, doc.Find(".certifications .certification").Length())
			assert.Equal(t, 1, doc.Find(".references .reference").Length())
			assert.Equal(t, 1, doc.Find(".languages li").Length())
			assert.Equal(t, 1, doc.Find(".achievements li").Length())
		})
	}
}

func TestRender_SanitisesUserContent(t *testing.T) {
	r := MustNewRegistry()
	g := sampleGraph(t, db.TemplateModern)
	g.Resume.Title = `<script>alert("title")</script>`

	html, err := r.Render(g)
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, "javascript:alert")
	assert.Contains(t, html, "<b>first</b>", "safe markup in rich text is kept")
	assert.Contains(t, html, "&lt;script&gt;alert(&#34;title&#34;)&lt;/script&gt;")

	doc := parse(t, html)
	about := doc.Find(".about p")
	assert.Equal(t, 1, about.Find("br").Length(), "newlines become line breaks")
}

func TestRender_OmitsEmptySections(t *testing.T) {
	r := MustNewRegistry()
	g := &db.ResumeGraph{Resume: db.Resume{Template: db.TemplateMinimal, Name: "Ada Lovelace", Email: "a@b.co"}}

	html, err := r.Render(g)
	require.NoError(t, err)

	doc := parse(t, html)
	for _, section := range []string{".about", ".skills", ".experience", ".education", ".projects",
		".languages", ".certifications", ".achievements", ".references"} {
		assert.Equal(t, 0, doc.Find(section).Length(), section)
	}
}

func TestRender_ProfilePicture(t *testing.T) {
	r := MustNewRegistry(WithMediaBase("https://cdn.example.com/media"))
	g := sampleGraph(t, db.TemplateModern)
	g.Resume.ProfilePicture = "profile_pics/abc.jpg"

	html, err := r.Render(g)
	require.NoError(t, err)

	src, ok := parse(t, html).Find("img.photo").Attr("src")
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/media/profile_pics/abc.jpg", src)
}

func TestRenderStandalone_EmbedsPicture(t *testing.T) {
	r := MustNewRegistry()
	g := sampleGraph(t, db.TemplateCreative)
	g.Resume.ProfilePicture = "profile_pics/abc.jpg"
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

	html, err := r.RenderStandalone(g, jpeg)
	require.NoError(t, err)

	src, ok := parse(t, html).Find("img.photo").Attr("src")
	require.True(t, ok)
	assert.Equal(t, "data:image/jpeg;base64,/9j/4AAQSkZJRg==", src)
	assert.NotContains(t, html, "/media/")

	// Without picture bytes the media link is kept
	html, err = r.RenderStandalone(g, nil)
	require.NoError(t, err)
	src, _ = parse(t, html).Find("img.photo").Attr("src")
	assert.Equal(t, "/media/profile_pics/abc.jpg", src)
}

func TestRender_UnknownTemplateFailsClosed(t *testing.T) {
	r := MustNewRegistry()
	g := sampleGraph(t, "glossy")

	html, err := r.Render(g)
	assert.Empty(t, html)
	assert.True(t, errors.Is(err, ErrTemplateNotFound))

	_, err = r.Render(nil)
	var re *RenderError
	assert.True(t, errors.As(err, &re))
}

func TestDateRange(t *testing.T) {
	tests := []struct {
		name    string
		start   *db.Date
		end     *db.Date
		current bool
		want    string
	}{
		{name: "empty", want: ""},
		{name: "start only", start: date(t, "2020-01-01"), want: "Jan 2020"},
		{name: "end only", end: date(t, "2021-06-01"), want: "Jun 2021"},
		{name: "both", start: date(t, "2020-01-01"), end: date(t, "2021-06-01"), want: "Jan 2020 – Jun 2021"},
		{name: "current overrides end", start: date(t, "2020-01-01"), end: date(t, "2021-06-01"), current: true, want: "Jan 2020 – Present"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dateRange(tt.start, tt.end, tt.current))
		})
	}
}

func TestTemplateFuncs(t *testing.T) {
	assert.Equal(t, 100, levelPercent(db.SkillExpert))
	assert.Equal(t, 50, levelPercent(db.SkillIntermediate))
	assert.Equal(t, "Native", titleCase(db.LanguageNative))
	assert.Equal(t, "", titleCase(""))
	assert.Equal(t, []string{"Go", "SQL"}, splitList(" Go, ,SQL ,"))
	assert.Equal(t, "AL", initials("ada lovelace byron"))
	assert.Equal(t, "", monthYear(db.Date{}))
	assert.Equal(t, "", monthYear((*db.Date)(nil)))
}
