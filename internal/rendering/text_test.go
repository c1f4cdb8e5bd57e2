package rendering

import (
	"strings"
	"testing"

	"github.com/jonathan/resume-builder/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainText(t *testing.T) {
	html := `<html><head><title>x</title><style>body{color:red}</style></head>
<body><h1>Ada   Lovelace</h1><h2>Skills</h2><ul><li>Go</li><li>SQL</li></ul>
<script>var x = 1;</script><p>Line<br>break</p></body></html>`

	text, err := PlainText(html)
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace\n\nSKILLS\nGo\nSQL\n\nLine\nbreak\n", text)
}

func TestRenderText(t *testing.T) {
	r := MustNewRegistry()
	text, err := r.RenderText(sampleGraph(t, db.TemplateClassic))
	require.NoError(t, err)

	assert.Contains(t, text, "Ada Lovelace")
	assert.Contains(t, text, "WORK EXPERIENCE")
	assert.Contains(t, text, "Charles Babbage")
	assert.NotContains(t, text, "<")
	assert.NotContains(t, text, "alert")
	assert.True(t, strings.HasSuffix(text, "\n"))
}
