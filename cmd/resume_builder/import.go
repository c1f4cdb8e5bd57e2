package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/ingestion"
	"github.com/jonathan/resume-builder/internal/observability"
	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Store a résumé from a JSON submission",
	Long:  "Validates a JSON résumé submission, stores it with all of its rows and prints the rows that were skipped or adjusted.",
	RunE:  runImport,
}

var (
	importFile    string
	importOwner   string
	importVerbose bool
)

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "i", "", "Path to submission JSON file (required)")
	importCmd.Flags().StringVar(&importOwner, "owner", "", "Username to own the résumé (default anonymous)")
	importCmd.Flags().BoolVarP(&importVerbose, "verbose", "v", false, "Print a summary of the stored résumé")

	if err := importCmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Sprintf("failed to mark file flag as required: %v", err))
	}

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	content, err := os.ReadFile(importFile)
	if err != nil {
		return fmt.Errorf("failed to read submission file %s: %w", importFile, err)
	}
	sub, err := ingestion.DecodeJSON(content)
	if err != nil {
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			for _, fe := range validationErr.Errors {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "  - %s: %s\n", fe.Field, fe.Message)
			}
			return fmt.Errorf("submission does not match the expected format: %w", err)
		}
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var owner *uuid.UUID
	if importOwner != "" {
		user, err := a.store.GetUserByUsername(ctx, importOwner)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("user %q not found", importOwner)
		}
		owner = &user.ID
	}

	created, result, err := a.resumes.Create(ctx, owner, *sub, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", result.Message, err)
	}

	_, _ = fmt.Fprintf(out, "Imported résumé %s\n", created.ID)
	printer := observability.NewPrinter(out)
	printer.PrintIngestionReport(created.Report)

	if importVerbose {
		g, err := a.resumes.Graph(ctx, created.ID, owner)
		if err != nil {
			return err
		}
		printer.PrintResumeSummary(g)
	}
	return nil
}
