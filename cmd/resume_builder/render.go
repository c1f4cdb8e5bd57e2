package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/db"
	"github.com/jonathan/resume-builder/internal/observability"
	"github.com/jonathan/resume-builder/internal/resume"
	"github.com/jonathan/resume-builder/internal/storage"
	"github.com/spf13/cobra"
)

// Output formats accepted by render
const (
	formatHTML = "html"
	formatPDF  = "pdf"
	formatText = "txt"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Export a stored résumé",
	Long:  "Renders a stored résumé as HTML, plain text or PDF. Offline exports are not counted as views or downloads.",
	RunE:  runRender,
}

var (
	renderID      string
	renderFormat  string
	renderOutput  string
	renderVerbose bool
)

func init() {
	renderCmd.Flags().StringVar(&renderID, "id", "", "Résumé ID (required)")
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", formatHTML, "Output format: html, pdf or txt")
	renderCmd.Flags().StringVarP(&renderOutput, "out", "o", "", "Output file (default stdout)")
	renderCmd.Flags().BoolVarP(&renderVerbose, "verbose", "v", false, "Print a summary of the résumé")

	if err := renderCmd.MarkFlagRequired("id"); err != nil {
		panic(fmt.Sprintf("failed to mark id flag as required: %v", err))
	}

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, _ []string) error {
	id, err := uuid.Parse(renderID)
	if err != nil {
		return fmt.Errorf("invalid résumé ID %q: %w", renderID, err)
	}
	switch renderFormat {
	case formatHTML, formatPDF, formatText:
	default:
		return fmt.Errorf("unsupported format %q: use html, pdf or txt", renderFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	var opts []resume.Option
	if renderFormat == formatPDF && cfg.MediaDir != "" {
		images, err := storage.NewLocalImageStore(cfg.MediaDir)
		if err != nil {
			return err
		}
		opts = append(opts, resume.WithImageStore(images))
	}
	a, err := newApp(cmd.Context(), cfg, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	data, g, err := a.render(cmd.Context(), id, renderFormat)
	if err != nil {
		return err
	}

	if renderVerbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintResumeSummary(g)
	}

	if renderOutput == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if dir := filepath.Dir(renderOutput); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(renderOutput, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", renderOutput, err)
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Output: %s\n", renderOutput)
	return nil
}

// render produces one export of a résumé without touching its counters
func (a *app) render(ctx context.Context, id uuid.UUID, format string) ([]byte, *db.ResumeGraph, error) {
	g, err := a.resumes.Graph(ctx, id, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load résumé %s: %w", id, err)
	}

	var data []byte
	switch format {
	case formatText:
		var text string
		text, err = a.registry.RenderText(g)
		data = []byte(text)
	case formatPDF:
		data, err = a.resumes.Export(ctx, g)
	default:
		var html string
		html, err = a.registry.Render(g)
		data = []byte(html)
	}
	if err != nil {
		return nil, nil, err
	}
	return data, g, nil
}
