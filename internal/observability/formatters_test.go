package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jonathan/resume-builder/internal/db"
	"github.com/jonathan/resume-builder/internal/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintResumeSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	g := &db.ResumeGraph{
		Resume: db.Resume{
			Name:       "Ada Lovelace",
			Title:      "Engineer",
			Template:   db.TemplateModern,
			IsPublic:   true,
			ViewsCount: 7,
		},
		Skills: []db.Skill{
			{Name: "Go", Proficiency: db.SkillExpert},
			{Name: "SQL", Proficiency: db.SkillAdvanced},
		},
		References: []db.Reference{{Name: "Charles Babbage"}},
	}

	p.PrintResumeSummary(g)
	output := buf.String()

	assert.Contains(t, output, "RESUME")
	assert.Contains(t, output, "Ada Lovelace")
	assert.Contains(t, output, "modern")
	assert.Contains(t, output, "public")
	assert.Contains(t, output, "Views:     7")
	assert.Contains(t, output, "Go (expert)")
	assert.Contains(t, output, "References")
	assert.NotContains(t, output, "Education")
}

func TestPrintResumeSummary_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintResumeSummary(nil)
	assert.Empty(t, buf.String())
}

func TestPrintResumeSummary_ManySkills(t *testing.T) {
	var buf bytes.Buffer
	g := &db.ResumeGraph{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		g.Skills = append(g.Skills, db.Skill{Name: name, Proficiency: db.SkillBeginner})
	}

	NewPrinter(&buf).PrintResumeSummary(g)
	assert.Contains(t, buf.String(), "... and 2 more")
}

func TestPrintIngestionReport(t *testing.T) {
	t.Run("clean import", func(t *testing.T) {
		var buf bytes.Buffer
		NewPrinter(&buf).PrintIngestionReport(&ingestion.Report{Skipped: map[string]int{}})
		assert.Contains(t, buf.String(), "ALL ROWS IMPORTED")
	})

	t.Run("skips and warnings", func(t *testing.T) {
		var buf bytes.Buffer
		report := &ingestion.Report{
			Skipped: map[string]int{ingestion.KindSkill: 2, ingestion.KindEducation: 1},
			Warnings: []ingestion.Warning{
				{Kind: ingestion.KindCertification, Row: 0, Field: "date_obtained", Value: "soon", Message: "unparsable date, using today"},
			},
		}
		NewPrinter(&buf).PrintIngestionReport(report)
		output := buf.String()

		assert.Contains(t, output, "IMPORT REPORT")
		assert.Contains(t, output, "Skipped 3 blank rows")
		assert.Contains(t, output, "skill: 2")
		assert.Contains(t, output, "certification #1 date_obtained")
		assert.Less(t, strings.Index(output, "education"), strings.Index(output, "skill:"))
	})
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).printBox("T", strings.Repeat("é", 100))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[3], "...")
	assert.Equal(t, len([]rune(lines[0])), len([]rune(lines[3])))
}
