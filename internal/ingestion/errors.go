package ingestion

import "fmt"

// ValidationError is returned when a submission fails a scalar format check.
// Nothing is written when it occurs.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Row kinds, used as keys in Report.Skipped
const (
	KindSkill         = "skill"
	KindEducation     = "education"
	KindLanguage      = "language"
	KindProject       = "project"
	KindWork          = "work_experience"
	KindCertification = "certification"
	KindAchievement   = "achievement"
	KindReference     = "reference"
)

// Warning describes a value that was replaced by a default during ingestion
type Warning struct {
	Kind    string `json:"kind"`
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s[%d].%s=%q: %s", w.Kind, w.Row, w.Field, w.Value, w.Message)
}

// Report summarises the row-level decisions made while building a résumé.
// Neither skipped rows nor warnings abort ingestion.
type Report struct {
	Skipped  map[string]int `json:"skipped"`
	Warnings []Warning      `json:"warnings,omitempty"`
}

func newReport() *Report {
	return &Report{Skipped: make(map[string]int)}
}

// TotalSkipped returns the number of rows dropped for a blank primary field
func (r *Report) TotalSkipped() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

func (r *Report) skip(kind string) {
	r.Skipped[kind]++
}

func (r *Report) warn(w Warning) {
	r.Warnings = append(r.Warnings, w)
}
