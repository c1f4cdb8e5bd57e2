package ingestion

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlag(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"on", true},
		{"TRUE", true},
		{"1", true},
		{" yes ", true},
		{"", false},
		{"off", false},
		{"false", false},
		{"0", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, Flag(tt.value).Truthy())
		})
	}
}

func TestFromForm_ZipsParallelSequences(t *testing.T) {
	form := url.Values{
		"name":                  {"Ada Lovelace"},
		"email":                 {"ada@example.com"},
		"is_public":             {"on"},
		"skills[]":              {"Go", "", "SQL"},
		"skill_proficiencies[]": {"expert"},
		"companies[]":           {"Acme", "Initech"},
		"positions[]":           {"Engineer", "Lead"},
		"work_current[]":        {"1"},
		"achievement_titles[]":  {"Prize"},
		"achievement_years[]":   {"2019"},
	}

	sub := FromForm(form)

	assert.Equal(t, "Ada Lovelace", sub.Name)
	assert.True(t, sub.IsPublic.Truthy())
	require.Len(t, sub.Skills, 3)
	assert.Equal(t, SkillRow{Name: "Go", Proficiency: "expert"}, sub.Skills[0])
	assert.Equal(t, SkillRow{Name: "", Proficiency: ""}, sub.Skills[1])
	assert.Equal(t, SkillRow{Name: "SQL", Proficiency: ""}, sub.Skills[2])

	require.Len(t, sub.WorkExperience, 2)
	assert.Equal(t, "Lead", sub.WorkExperience[1].Position)
	assert.True(t, sub.WorkExperience[1].Current.Truthy())
	assert.False(t, sub.WorkExperience[0].Current.Truthy())

	require.Len(t, sub.Achievements, 1)
	assert.Equal(t, "2019", sub.Achievements[0].Date)

	assert.Empty(t, sub.Education)
	assert.Empty(t, sub.References)
}

func TestFromForm_CurrentJobCheckboxes(t *testing.T) {
	// Unchecked boxes are not sent; checked ones carry their row index
	tests := []struct {
		name    string
		current []string
		want    []bool
	}{
		{name: "none checked", current: nil, want: []bool{false, false, false}},
		{name: "last row only", current: []string{"2"}, want: []bool{false, false, true}},
		{name: "middle row only", current: []string{"1"}, want: []bool{false, true, false}},
		{name: "first and last", current: []string{"0", "2"}, want: []bool{true, false, true}},
		{name: "index past the rows", current: []string{"7"}, want: []bool{false, false, false}},
		{name: "non-index values ignored", current: []string{"on", "-1"}, want: []bool{false, false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{
				"name":           {"Ada Lovelace"},
				"email":          {"ada@example.com"},
				"companies[]":    {"OldCo", "MidCo", "NowCo"},
				"work_current[]": tt.current,
			}
			sub := FromForm(form)
			require.Len(t, sub.WorkExperience, 3)
			for i, want := range tt.want {
				assert.Equal(t, want, sub.WorkExperience[i].Current.Truthy(), sub.WorkExperience[i].Company)
			}
		})
	}
}

func TestFromForm_CompanionWithoutPrimaryIsIgnored(t *testing.T) {
	form := url.Values{
		"institutions[]": {"MIT"},
		"years[]":        {"2010"},
	}
	sub := FromForm(form)
	assert.Empty(t, sub.Education)
}

func TestDecodeJSON(t *testing.T) {
	body := []byte(`{
		"name": "Ada Lovelace",
		"email": "ada@example.com",
		"template": "creative",
		"is_public": true,
		"skills": [{"name": "Go", "proficiency": "expert"}],
		"work_experience": [{"company": "Acme", "current": true}],
		"certifications": [{"name": "CKA", "date_obtained": "2021-04-05"}]
	}`)

	sub, err := DecodeJSON(body)
	require.NoError(t, err)
	assert.Equal(t, "creative", sub.Template)
	assert.True(t, sub.IsPublic.Truthy())
	require.Len(t, sub.WorkExperience, 1)
	assert.True(t, sub.WorkExperience[0].Current.Truthy())
	assert.Equal(t, "2021-04-05", sub.Certifications[0].DateObtained)
}

func TestDecodeJSON_SchemaViolation(t *testing.T) {
	_, err := DecodeJSON([]byte(`{"name":"Ada","skills":"Go"}`))
	require.Error(t, err)
	var ve *schemas.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestJSONAndFormProduceSameGraph(t *testing.T) {
	form := url.Values{
		"name":                       {"Ada Lovelace"},
		"email":                      {"ada@example.com"},
		"template":                   {"classic"},
		"skills[]":                   {"Go", "SQL"},
		"skill_proficiencies[]":      {"expert", "advanced"},
		"languages[]":                {"English"},
		"proficiencies[]":            {"native"},
		"cert_names[]":               {"CKA"},
		"cert_issuers[]":             {"CNCF"},
		"cert_dates[]":               {"2021-04-05"},
		"ref_names[]":                {"Charles Babbage"},
		"ref_companies[]":            {"Cambridge"},
		"achievement_titles[]":       {"Prize"},
		"achievement_dates[]":        {"2019-09-09"},
		"achievement_descriptions[]": {"First"},
	}
	body := []byte(`{
		"name": "Ada Lovelace",
		"email": "ada@example.com",
		"template": "classic",
		"skills": [{"name":"Go","proficiency":"expert"},{"name":"SQL","proficiency":"advanced"}],
		"languages": [{"name":"English","proficiency":"native"}],
		"certifications": [{"name":"CKA","issuer":"CNCF","date_obtained":"2021-04-05"}],
		"references": [{"name":"Charles Babbage","company":"Cambridge"}],
		"achievements": [{"title":"Prize","date":"2019-09-09","description":"First"}]
	}`)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	fromJSON, err := DecodeJSON(body)
	require.NoError(t, err)
	g1, r1, err := Build(*fromJSON, nil, now)
	require.NoError(t, err)

	g2, r2, err := Build(*FromForm(form), nil, now)
	require.NoError(t, err)

	assert.Equal(t, g1, g2)
	assert.Equal(t, r1, r2)
}
