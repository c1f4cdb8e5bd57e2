package ingestion

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 15, 30, 0, 0, time.UTC)

func validSubmission() Submission {
	return Submission{Name: "Ada Lovelace", Email: "ada@example.com"}
}

func TestBuild_Defaults(t *testing.T) {
	owner := uuid.New()
	g, report, err := Build(validSubmission(), &owner, testNow)
	require.NoError(t, err)

	assert.Equal(t, db.DefaultResumeTitle, g.Resume.Title)
	assert.Equal(t, db.TemplateModern, g.Resume.Template)
	assert.False(t, g.Resume.IsPublic)
	require.NotNil(t, g.Resume.UserID)
	assert.Equal(t, owner, *g.Resume.UserID)
	assert.Equal(t, 0, report.TotalSkipped())
	assert.Empty(t, report.Warnings)
}

func TestBuild_AnonymousOwner(t *testing.T) {
	g, _, err := Build(validSubmission(), nil, testNow)
	require.NoError(t, err)
	assert.Nil(t, g.Resume.UserID)
}

func TestBuild_ValidationFailsBeforeRows(t *testing.T) {
	sub := validSubmission()
	sub.Email = "not-an-email"
	sub.Skills = []SkillRow{{Name: "Go"}}

	g, report, err := Build(sub, nil, testNow)
	require.Error(t, err)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "email", ve.Field)
	assert.Nil(t, g)
	assert.Nil(t, report)
}

func TestBuild_UnknownTemplateRejected(t *testing.T) {
	sub := validSubmission()
	sub.Template = "../../etc/passwd"

	_, _, err := Build(sub, nil, testNow)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "template", ve.Field)
}

func TestBuild_SkipsRowsWithBlankPrimaryField(t *testing.T) {
	sub := validSubmission()
	sub.Skills = []SkillRow{{Name: "Go"}, {Name: "   ", Proficiency: "expert"}, {Name: "SQL"}}
	sub.Education = []EducationRow{{Degree: "", Institution: "MIT", Year: "2010"}}
	sub.Languages = []LanguageRow{{Name: ""}}
	sub.Projects = []ProjectRow{{Title: " ", Description: "orphan"}}
	sub.WorkExperience = []WorkRow{{Company: "", Position: "Engineer"}}
	sub.Certifications = []CertificationRow{{Name: "", Issuer: "CNCF"}}
	sub.Achievements = []AchievementRow{{Title: ""}}
	sub.References = []ReferenceRow{{Name: "", Company: "Acme"}, {Name: "Jane"}}

	g, report, err := Build(sub, nil, testNow)
	require.NoError(t, err)

	require.Len(t, g.Skills, 2)
	assert.Equal(t, "Go", g.Skills[0].Name)
	assert.Equal(t, "SQL", g.Skills[1].Name)
	assert.Empty(t, g.Education)
	assert.Empty(t, g.Languages)
	assert.Empty(t, g.Projects)
	assert.Empty(t, g.WorkExperience)
	assert.Empty(t, g.Certifications)
	assert.Empty(t, g.Achievements)
	require.Len(t, g.References, 1)

	assert.Equal(t, map[string]int{
		KindSkill:         1,
		KindEducation:     1,
		KindLanguage:      1,
		KindProject:       1,
		KindWork:          1,
		KindCertification: 1,
		KindAchievement:   1,
		KindReference:     1,
	}, report.Skipped)
	assert.Equal(t, 8, report.TotalSkipped())
}

func TestBuild_TrimsFields(t *testing.T) {
	sub := Submission{
		Title:    "  Backend  ",
		Template: " classic ",
		Name:     "  Ada Lovelace ",
		Email:    " ada@example.com ",
		About:    "Line one   \r\n\r\n\r\nLine two",
		Skills:   []SkillRow{{Name: "  Go  ", Proficiency: " Expert "}},
	}

	g, _, err := Build(sub, nil, testNow)
	require.NoError(t, err)
	assert.Equal(t, "Backend", g.Resume.Title)
	assert.Equal(t, db.TemplateClassic, g.Resume.Template)
	assert.Equal(t, "Ada Lovelace", g.Resume.Name)
	assert.Equal(t, "ada@example.com", g.Resume.Email)
	assert.Equal(t, "Line one\n\nLine two", g.Resume.About)
	assert.Equal(t, "Go", g.Skills[0].Name)
	assert.Equal(t, db.SkillExpert, g.Skills[0].Proficiency)
}

func TestBuild_EnumFallbacks(t *testing.T) {
	sub := validSubmission()
	sub.Skills = []SkillRow{{Name: "Go"}, {Name: "Rust", Proficiency: "80"}}
	sub.Languages = []LanguageRow{{Name: "French", Proficiency: "fluent"}, {Name: "English", Proficiency: "native"}}

	g, report, err := Build(sub, nil, testNow)
	require.NoError(t, err)

	assert.Equal(t, db.SkillIntermediate, g.Skills[0].Proficiency)
	assert.Equal(t, db.SkillIntermediate, g.Skills[1].Proficiency)
	assert.Equal(t, db.LanguageIntermediate, g.Languages[0].Proficiency)
	assert.Equal(t, db.LanguageNative, g.Languages[1].Proficiency)

	require.Len(t, report.Warnings, 2)
	assert.Equal(t, KindSkill, report.Warnings[0].Kind)
	assert.Equal(t, 1, report.Warnings[0].Row)
	assert.Equal(t, KindLanguage, report.Warnings[1].Kind)
	assert.Equal(t, 0, report.Warnings[1].Row)
}

func TestBuild_CertificationDates(t *testing.T) {
	tests := []struct {
		name         string
		obtained     string
		expiry       string
		wantObtained string
		wantExpiry   string
		wantWarnings int
	}{
		{name: "both valid", obtained: "2020-01-15", expiry: "2023-01-15", wantObtained: "2020-01-15", wantExpiry: "2023-01-15"},
		{name: "blank obtained uses today", obtained: "", wantObtained: "2024-05-01"},
		{name: "bad obtained uses today", obtained: "15/01/2020", wantObtained: "2024-05-01", wantWarnings: 1},
		{name: "bad expiry dropped", obtained: "2020-01-15", expiry: "soon", wantObtained: "2020-01-15", wantWarnings: 1},
		{name: "both bad", obtained: "x", expiry: "y", wantObtained: "2024-05-01", wantWarnings: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubmission()
			sub.Certifications = []CertificationRow{{Name: "CKA", DateObtained: tt.obtained, ExpiryDate: tt.expiry}}

			g, report, err := Build(sub, nil, testNow)
			require.NoError(t, err)
			require.Len(t, g.Certifications, 1, "a bad date never drops the row")

			cert := g.Certifications[0]
			assert.Equal(t, tt.wantObtained, cert.DateObtained.String())
			if tt.wantExpiry == "" {
				assert.Nil(t, cert.ExpiryDate)
			} else {
				require.NotNil(t, cert.ExpiryDate)
				assert.Equal(t, tt.wantExpiry, cert.ExpiryDate.String())
			}
			assert.Len(t, report.Warnings, tt.wantWarnings)
		})
	}
}

func TestBuild_WorkAndAchievementDates(t *testing.T) {
	sub := validSubmission()
	sub.WorkExperience = []WorkRow{
		{Company: "Acme", StartDate: "2019-03-01", EndDate: "", Current: "on"},
		{Company: "Initech", StartDate: "March 2017", EndDate: "2018-12-31"},
	}
	sub.Achievements = []AchievementRow{
		{Title: "Prize", Date: "2019"},
		{Title: "Medal", Date: "someday"},
	}

	g, report, err := Build(sub, nil, testNow)
	require.NoError(t, err)

	require.Len(t, g.WorkExperience, 2)
	assert.Equal(t, "2019-03-01", g.WorkExperience[0].StartDate.String())
	assert.Nil(t, g.WorkExperience[0].EndDate)
	assert.True(t, g.WorkExperience[0].Current)
	assert.Nil(t, g.WorkExperience[1].StartDate)
	assert.Equal(t, "2018-12-31", g.WorkExperience[1].EndDate.String())
	assert.False(t, g.WorkExperience[1].Current)

	require.Len(t, g.Achievements, 2)
	require.NotNil(t, g.Achievements[0].Date)
	assert.Equal(t, "2019-01-01", g.Achievements[0].Date.String())
	assert.Nil(t, g.Achievements[1].Date)

	require.Len(t, report.Warnings, 2)
	assert.Equal(t, Warning{Kind: KindWork, Row: 1, Field: "start_date", Value: "March 2017",
		Message: "unparsable date ignored"}, report.Warnings[0])
	assert.Equal(t, KindAchievement, report.Warnings[1].Kind)
}

func TestBuild_PreservesRowOrder(t *testing.T) {
	sub := validSubmission()
	sub.Projects = []ProjectRow{{Title: "A"}, {Title: "B"}, {Title: "C"}}

	g, _, err := Build(sub, nil, testNow)
	require.NoError(t, err)
	require.Len(t, g.Projects, 3)
	assert.Equal(t, "A", g.Projects[0].Title)
	assert.Equal(t, "C", g.Projects[2].Title)
}

func strPtr(s string) *string { return &s }

func TestBuild_RejectsValuesWiderThanColumns(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Submission)
		wantField string
	}{
		{
			name:      "phone",
			mutate:    func(s *Submission) { s.Phone = "+44 20 7946 0958 ext 1234" },
			wantField: "phone",
		},
		{
			name:      "age",
			mutate:    func(s *Submission) { s.Age = "thirty-something" },
			wantField: "age",
		},
		{
			name:      "name",
			mutate:    func(s *Submission) { s.Name = "Ada " + strings.Repeat("Lovelace ", 12) },
			wantField: "name",
		},
		{
			name:      "skill name",
			mutate:    func(s *Submission) { s.Skills = []SkillRow{{Name: "Go"}, {Name: strings.Repeat("x", 200)}} },
			wantField: "skills[1].name",
		},
		{
			name: "education gpa",
			mutate: func(s *Submission) {
				s.Education = []EducationRow{{Degree: "BSc", GPA: "3.9 out of 4.0 scale"}}
			},
			wantField: "education[0].gpa",
		},
		{
			name: "reference phone",
			mutate: func(s *Submission) {
				s.References = []ReferenceRow{{Name: "Jane", Phone: strings.Repeat("5", 21)}}
			},
			wantField: "references[0].phone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubmission()
			tt.mutate(&sub)

			g, report, err := Build(sub, nil, testNow)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.wantField, ve.Field)
			assert.Contains(t, ve.Message, "at most")
			assert.Nil(t, g)
			assert.Nil(t, report)
		})
	}
}

func TestBuild_WidthsCountCharactersAfterTrimming(t *testing.T) {
	sub := validSubmission()
	sub.Phone = "   " + strings.Repeat("5", 20) + "   "
	sub.Age = strings.Repeat("é", 10)
	sub.Education = []EducationRow{{Degree: "BSc", GPA: "3.95 / 4.0"}}

	g, _, err := Build(sub, nil, testNow)
	require.NoError(t, err)
	assert.Len(t, g.Resume.Phone, 20)
	assert.Equal(t, "3.95 / 4.0", g.Education[0].GPA)
}

func TestScalarUpdate_Apply(t *testing.T) {
	current := db.Resume{
		ID:       uuid.New(),
		Title:    "Old",
		Template: db.TemplateClassic,
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Phone:    "555",
	}

	t.Run("nil fields keep current values", func(t *testing.T) {
		public := true
		merged, err := ScalarUpdate{Title: strPtr(" New "), IsPublic: &public}.Apply(current)
		require.NoError(t, err)
		assert.Equal(t, "New", merged.Title)
		assert.True(t, merged.IsPublic)
		assert.Equal(t, "555", merged.Phone)
		assert.Equal(t, db.TemplateClassic, merged.Template)
		assert.Equal(t, "Old", current.Title, "input is not modified")
	})

	t.Run("blank title and template reset to defaults", func(t *testing.T) {
		merged, err := ScalarUpdate{Title: strPtr(""), Template: strPtr("")}.Apply(current)
		require.NoError(t, err)
		assert.Equal(t, db.DefaultResumeTitle, merged.Title)
		assert.Equal(t, db.TemplateModern, merged.Template)
	})

	t.Run("merged record is validated", func(t *testing.T) {
		_, err := ScalarUpdate{Email: strPtr("broken")}.Apply(current)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "email", ve.Field)

		_, err = ScalarUpdate{Template: strPtr("glossy")}.Apply(current)
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "template", ve.Field)

		_, err = ScalarUpdate{Phone: strPtr(strings.Repeat("5", 25))}.Apply(current)
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "phone", ve.Field)
	})
}

func TestUpdateFromForm(t *testing.T) {
	u := UpdateFromForm(url.Values{
		"title":     {"Renamed"},
		"is_public": {"on"},
		"phone":     {""},
	})

	require.NotNil(t, u.Title)
	assert.Equal(t, "Renamed", *u.Title)
	require.NotNil(t, u.IsPublic)
	assert.True(t, *u.IsPublic)
	require.NotNil(t, u.Phone)
	assert.Equal(t, "", *u.Phone)
	assert.Nil(t, u.Name)
	assert.Nil(t, u.Email)
	assert.Nil(t, u.Template)
}
