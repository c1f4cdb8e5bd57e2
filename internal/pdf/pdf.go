// Package pdf converts rendered résumé HTML into PDF documents.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Filename is the attachment name used for every download
const Filename = "resume.pdf"

// DefaultTimeout bounds a single conversion
const DefaultTimeout = 30 * time.Second

// UserMessage is shown to the user when an export fails
const UserMessage = "We had some errors while generating the PDF"

var pdfMagic = []byte("%PDF")

// ErrMalformedOutput is wrapped by an ExportError when the converter returns
// something that is not a PDF document
var ErrMalformedOutput = errors.New("converter output is not a PDF")

// Converter turns an HTML document into PDF bytes
type Converter interface {
	Convert(ctx context.Context, html string) ([]byte, error)
}

// ExportError represents a failed HTML to PDF conversion
type ExportError struct {
	Message string
	Cause   error
}

func (e *ExportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pdf export error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("pdf export error: %s", e.Message)
}

func (e *ExportError) Unwrap() error {
	return e.Cause
}

// Exporter wraps a Converter with a timeout and output validation, so no
// malformed payload ever reaches a client
type Exporter struct {
	converter Converter
	timeout   time.Duration
}

// NewExporter creates an Exporter. A zero timeout uses DefaultTimeout.
func NewExporter(c Converter, timeout time.Duration) *Exporter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Exporter{converter: c, timeout: timeout}
}

// Export converts html to a PDF. Any failure is returned as *ExportError.
func (e *Exporter) Export(ctx context.Context, html string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	out, err := e.converter.Convert(ctx, html)
	if err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("PDF conversion failed")
		return nil, &ExportError{Message: "conversion failed", Cause: err}
	}
	if !bytes.HasPrefix(out, pdfMagic) {
		log.Error().Int("bytes", len(out)).Msg("PDF conversion returned malformed output")
		return nil, &ExportError{Message: "invalid output", Cause: ErrMalformedOutput}
	}

	log.Debug().Int("bytes", len(out)).Dur("elapsed", time.Since(start)).Msg("PDF generated")
	return out, nil
}
