// Package resume orchestrates résumé creation, rendering, export and the
// view and download counters on top of a Store.
package resume

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/db"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/jonathan/resume-builder/internal/storage"
)

const (
	// PageSize is the number of résumés per search page
	PageSize = 12
	// FeaturedCount is the number of résumés on the home page
	FeaturedCount = 6
)

// User-facing outcome messages
const (
	MsgCreated      = "Resume created successfully!"
	MsgUpdated      = "Resume updated successfully!"
	MsgDeleted      = "Resume deleted successfully!"
	MsgSkillAdded   = "Skill added."
	MsgSkillRemoved = "Skill removed."
	MsgPicture      = "Profile picture updated."
	MsgInvalid      = "Invalid request"
)

var (
	// ErrNotFound is returned when a résumé or skill does not exist or is not
	// visible to the caller
	ErrNotFound = errors.New("resume not found")
	// ErrUnauthenticated is returned when an operation needs a signed-in user
	ErrUnauthenticated = errors.New("authentication required")
	// ErrNoImageStore is returned when uploads are attempted without storage
	ErrNoImageStore = errors.New("image storage is not configured")
)

// Result is the outcome of a mutating call, shown to the user in place of a
// flash message
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func ok(msg string) Result { return Result{Success: true, Message: msg} }

func failed(msg string) Result { return Result{Success: false, Message: msg} }

// Policy holds access switches
type Policy struct {
	// GatePrivate restricts direct access to private résumés to their owner.
	// When false, anyone holding the ID may view or download.
	GatePrivate bool
}

// Exporter converts rendered HTML into a PDF
type Exporter interface {
	Export(ctx context.Context, html string) ([]byte, error)
}

// Metrics receives counter events
type Metrics interface {
	ResumeViewed()
	ResumeDownloaded()
	ExportFailed()
}

type noopMetrics struct{}

func (noopMetrics) ResumeViewed()     {}
func (noopMetrics) ResumeDownloaded() {}
func (noopMetrics) ExportFailed()     {}

// Service implements the résumé operations
type Service struct {
	store    Store
	renderer *rendering.Registry
	exporter Exporter
	images   storage.ImageStore
	metrics  Metrics
	policy   Policy
	now      func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithImageStore enables profile picture uploads
func WithImageStore(images storage.ImageStore) Option {
	return func(s *Service) { s.images = images }
}

// WithMetrics sets the counter sink
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPolicy sets the access policy
func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service
func NewService(store Store, renderer *rendering.Registry, exporter Exporter, opts ...Option) *Service {
	s := &Service{
		store:    store,
		renderer: renderer,
		exporter: exporter,
		metrics:  noopMetrics{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// readable reports whether viewer may open r directly by ID
func (s *Service) readable(r *db.Resume, viewer *uuid.UUID) bool {
	if !s.policy.GatePrivate || r.IsPublic {
		return true
	}
	return viewer != nil && r.OwnedBy(*viewer)
}

// owned loads a résumé and checks it belongs to owner
func (s *Service) owned(ctx context.Context, owner *uuid.UUID, id uuid.UUID) (*db.Resume, error) {
	if owner == nil {
		return nil, ErrUnauthenticated
	}
	r, err := s.store.GetResume(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil || !r.OwnedBy(*owner) {
		return nil, ErrNotFound
	}
	return r, nil
}
