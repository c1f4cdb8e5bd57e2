package resume

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/db"
)

// Store is the persistence the service needs. Both the PostgreSQL and the
// embedded SQLite backends satisfy it.
type Store interface {
	CreateResume(ctx context.Context, g *db.ResumeGraph) (uuid.UUID, error)
	GetResume(ctx context.Context, id uuid.UUID) (*db.Resume, error)
	LoadGraph(ctx context.Context, id uuid.UUID) (*db.ResumeGraph, error)
	UpdateResume(ctx context.Context, r *db.Resume) error
	DeleteResume(ctx context.Context, id, ownerID uuid.UUID) error

	IncrementViews(ctx context.Context, id uuid.UUID) (int, error)
	IncrementDownloads(ctx context.Context, id uuid.UUID) (int, error)

	ListResumesByOwner(ctx context.Context, ownerID uuid.UUID) ([]db.Resume, error)
	SearchPublicResumes(ctx context.Context, params db.SearchParams) ([]db.Resume, int, error)
	FeaturedResumes(ctx context.Context, limit int) ([]db.Resume, error)
	Stats(ctx context.Context) (db.SiteStats, error)

	CreateSkill(ctx context.Context, s *db.Skill) error
	DeleteSkillForOwner(ctx context.Context, skillID, ownerID uuid.UUID) error
}

var _ Store = (*db.DB)(nil)
