package resume

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/db"
	"github.com/jonathan/resume-builder/internal/ingestion"
	"github.com/rs/zerolog/log"
)

// Rendered is a résumé graph together with its rendered markup
type Rendered struct {
	Graph *db.ResumeGraph
	HTML  string
}

// counter selects which counter a read increments
type counter int

const (
	countNone counter = iota
	countView
	countDownload
)

// load fetches a résumé for reading. The template is resolved before any
// counter is touched, so a résumé that cannot be rendered is never counted.
func (s *Service) load(ctx context.Context, id uuid.UUID, viewer *uuid.UUID, c counter) (*db.ResumeGraph, error) {
	r, err := s.store.GetResume(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil || !s.readable(r, viewer) {
		return nil, ErrNotFound
	}
	if _, err := s.renderer.Lookup(r.Template); err != nil {
		log.Error().Err(err).Str("resume_id", id.String()).Msg("Resume has unrenderable template")
		return nil, err
	}

	switch c {
	case countView:
		n, err := s.store.IncrementViews(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to count view: %w", err)
		}
		s.metrics.ResumeViewed()
		log.Debug().Str("resume_id", id.String()).Int("views", n).Msg("Counted view")
	case countDownload:
		n, err := s.store.IncrementDownloads(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to count download: %w", err)
		}
		s.metrics.ResumeDownloaded()
		log.Debug().Str("resume_id", id.String()).Int("downloads", n).Msg("Counted download")
	}

	g, err := s.store.LoadGraph(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	return g, nil
}

// View renders a résumé and counts one view
func (s *Service) View(ctx context.Context, id uuid.UUID, viewer *uuid.UUID) (*Rendered, error) {
	g, err := s.load(ctx, id, viewer, countView)
	if err != nil {
		return nil, err
	}
	html, err := s.renderer.Render(g)
	if err != nil {
		return nil, err
	}
	return &Rendered{Graph: g, HTML: html}, nil
}

// Preview validates a submission and renders it without storing anything
func (s *Service) Preview(sub ingestion.Submission) (*Rendered, error) {
	g, _, err := ingestion.Build(sub, nil, s.now())
	if err != nil {
		return nil, err
	}
	html, err := s.renderer.Render(g)
	if err != nil {
		return nil, err
	}
	return &Rendered{Graph: g, HTML: html}, nil
}

// Download renders a résumé to PDF and counts one download. The download is
// counted even when the export itself fails.
func (s *Service) Download(ctx context.Context, id uuid.UUID, viewer *uuid.UUID) ([]byte, error) {
	g, err := s.load(ctx, id, viewer, countDownload)
	if err != nil {
		return nil, err
	}
	return s.Export(ctx, g)
}

// Export renders a loaded graph to PDF without counting anything. The
// converter has no access to the media route, so a stored profile picture
// is embedded in the document.
func (s *Service) Export(ctx context.Context, g *db.ResumeGraph) ([]byte, error) {
	html, err := s.renderer.RenderStandalone(g, s.picture(ctx, g))
	if err != nil {
		return nil, err
	}
	data, err := s.exporter.Export(ctx, html)
	if err != nil {
		s.metrics.ExportFailed()
		return nil, err
	}
	return data, nil
}

// picture loads the stored profile picture of g, or nil when there is none
// or it cannot be read. A missing picture never fails an export.
func (s *Service) picture(ctx context.Context, g *db.ResumeGraph) []byte {
	ref := g.Resume.ProfilePicture
	if ref == "" || s.images == nil {
		return nil
	}
	data, err := s.images.Load(ctx, ref)
	if err != nil {
		log.Warn().Err(err).Str("resume_id", g.Resume.ID.String()).Str("ref", ref).
			Msg("Exporting without profile picture")
		return nil
	}
	return data
}

// Graph returns the résumé graph without counting anything
func (s *Service) Graph(ctx context.Context, id uuid.UUID, viewer *uuid.UUID) (*db.ResumeGraph, error) {
	r, err := s.store.GetResume(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil || !s.readable(r, viewer) {
		return nil, ErrNotFound
	}
	g, err := s.store.LoadGraph(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	return g, nil
}

// Text renders a résumé as plain text without counting anything
func (s *Service) Text(ctx context.Context, id uuid.UUID, viewer *uuid.UUID) (string, error) {
	g, err := s.load(ctx, id, viewer, countNone)
	if err != nil {
		return "", err
	}
	return s.renderer.RenderText(g)
}

// Dashboard lists the caller's résumés, most recently updated first
func (s *Service) Dashboard(ctx context.Context, owner *uuid.UUID) ([]db.Resume, error) {
	if owner == nil {
		return nil, ErrUnauthenticated
	}
	return s.store.ListResumesByOwner(ctx, *owner)
}

// SearchPage is one page of public search results
type SearchPage struct {
	Query      string      `json:"query"`
	Resumes    []db.Resume `json:"resumes"`
	Page       int         `json:"page"`
	TotalPages int         `json:"total_pages"`
	Total      int         `json:"total"`
}

// HasNext reports whether a later page exists
func (p *SearchPage) HasNext() bool { return p.Page < p.TotalPages }

// HasPrevious reports whether an earlier page exists
func (p *SearchPage) HasPrevious() bool { return p.Page > 1 }

// Search lists public résumés matching query. Pages are numbered from 1;
// out of range pages are clamped to the nearest valid page.
func (s *Service) Search(ctx context.Context, query string, page int) (*SearchPage, error) {
	if page < 1 {
		page = 1
	}
	params := db.SearchParams{Query: query, Limit: PageSize, Offset: (page - 1) * PageSize}
	resumes, total, err := s.store.SearchPublicResumes(ctx, params)
	if err != nil {
		return nil, err
	}

	totalPages := (total + PageSize - 1) / PageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
		params.Offset = (page - 1) * PageSize
		if resumes, total, err = s.store.SearchPublicResumes(ctx, params); err != nil {
			return nil, err
		}
	}

	return &SearchPage{
		Query:      query,
		Resumes:    resumes,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	}, nil
}

// HomePage holds the landing page data
type HomePage struct {
	Featured []db.Resume  `json:"featured"`
	Stats    db.SiteStats `json:"stats"`
}

// Home returns the most viewed public résumés and site totals
func (s *Service) Home(ctx context.Context) (*HomePage, error) {
	featured, err := s.store.FeaturedResumes(ctx, FeaturedCount)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &HomePage{Featured: featured, Stats: stats}, nil
}
