package ingestion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateScalars(t *testing.T) {
	tests := []struct {
		name      string
		person    string
		email     string
		template  string
		wantField string
	}{
		{name: "valid", person: "Ada Lovelace", email: "ada@example.com", template: "classic"},
		{name: "blank template allowed", person: "Ada", email: "ada@example.com"},
		{name: "surrounding whitespace trimmed", person: "  Ada  ", email: " ada@example.com ", template: " minimal "},
		{name: "name too short", person: "Al", email: "al@example.com", wantField: "name"},
		{name: "name with digits", person: "R2D2 Unit", email: "r2@example.com", wantField: "name"},
		{name: "name with accents", person: "José", email: "jose@example.com", wantField: "name"},
		{name: "blank name", person: "   ", email: "x@example.com", wantField: "name"},
		{name: "email without tld", person: "Ada", email: "ada@example", wantField: "email"},
		{name: "email with space", person: "Ada", email: "ada @example.com", wantField: "email"},
		{name: "blank email", person: "Ada", email: "", wantField: "email"},
		{name: "unknown template", person: "Ada", email: "ada@example.com", template: "fancy", wantField: "template"},
		{name: "name reported before email", person: "A", email: "nope", wantField: "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateScalars(tt.person, tt.email, tt.template)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.wantField, ve.Field)
			assert.NotEmpty(t, ve.Message)
		})
	}
}

func TestValidationError_Messages(t *testing.T) {
	err := ValidateScalars("Al", "al@example.com", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Name must be at least 3 letters long")

	err = ValidateScalars("Alan", "bad", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please enter a valid email address.")
}
