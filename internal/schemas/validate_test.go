package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ResumeSubmission(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
		field   string
	}{
		{
			name: "minimal",
			doc:  `{"name":"Ada Lovelace","email":"ada@example.com"}`,
		},
		{
			name: "full rows",
			doc: `{"name":"Ada","email":"a@b.co","template":"classic","is_public":true,
				"skills":[{"name":"Go","proficiency":"expert"}],
				"work_experience":[{"company":"Acme","current":"on","start_date":"2020-01-01"}],
				"certifications":[{"name":"CKA","date_obtained":"2021-02-03"}]}`,
		},
		{
			name:    "unknown top-level field",
			doc:     `{"name":"Ada","favourite_colour":"blue"}`,
			wantErr: true,
		},
		{
			name:    "rows must be objects",
			doc:     `{"skills":["Go"]}`,
			wantErr: true,
			field:   "skills.0",
		},
		{
			name:    "unknown row field",
			doc:     `{"skills":[{"name":"Go","level":"high"}]}`,
			wantErr: true,
		},
		{
			name:    "wrong scalar type",
			doc:     `{"name":42}`,
			wantErr: true,
			field:   "name",
		},
		{
			name:    "phone wider than its column",
			doc:     `{"name":"Ada","phone":"+44 20 7946 0958 ext 1234"}`,
			wantErr: true,
			field:   "phone",
		},
		{
			name:    "row field wider than its column",
			doc:     `{"education":[{"degree":"BSc","gpa":"3.9 out of 4.0 scale"}]}`,
			wantErr: true,
			field:   "education.0.gpa",
		},
		{
			name:    "not json",
			doc:     `name=Ada`,
			wantErr: true,
			field:   "(root)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(ResumeSubmission, []byte(tt.doc))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "error should be ValidationError type")
			require.NotEmpty(t, ve.Errors)
			if tt.field != "" {
				assert.Equal(t, tt.field, ve.Errors[0].Field)
			}
		})
	}
}

func TestValidate_SkillAdd(t *testing.T) {
	err := Validate(SkillAdd, []byte(`{"resume_id":"3f1b7f4e-6d2c-4a57-9a8e-2b1c0d9e8f7a","name":"Go"}`))
	assert.NoError(t, err)

	err = Validate(SkillAdd, []byte(`{"resume_id":"3f1b7f4e-6d2c-4a57-9a8e-2b1c0d9e8f7a"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")

	err = Validate(SkillAdd, []byte(`{"resume_id":"x","name":""}`))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Errors, 2)
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("does_not_exist", []byte(`{}`))
	require.Error(t, err)
	var le *SchemaLoadError
	require.True(t, errors.As(err, &le))
	assert.Contains(t, err.Error(), "does_not_exist")
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type":"object","properties":{"n":{"type":"integer"}},"required":["n"]}`

	assert.NoError(t, ValidateJSONString(schema, `{"n":1}`))

	err := ValidateJSONString(schema, `{}`)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "(root)", ve.Errors[0].Field)

	err = ValidateJSONString(`{"type":`, `{}`)
	var le *SchemaLoadError
	assert.True(t, errors.As(err, &le))
}

func TestValidationError_Error(t *testing.T) {
	ve := &ValidationError{Errors: []FieldError{{Field: "name", Message: "Invalid type"}}}
	assert.Equal(t, "validation failed:\n  1. name: Invalid type\n", ve.Error())
}
