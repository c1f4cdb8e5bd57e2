package resume

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/db"
	"github.com/jonathan/resume-builder/internal/ingestion"
	"github.com/jonathan/resume-builder/internal/storage"
	"github.com/rs/zerolog/log"
)

// Created is the outcome of a successful Create
type Created struct {
	ID     uuid.UUID
	Report *ingestion.Report
}

// Create validates a submission and stores the résumé with all of its rows
// in one transaction. owner is nil for anonymous résumés. picture is optional.
func (s *Service) Create(ctx context.Context, owner *uuid.UUID, sub ingestion.Submission, picture io.Reader) (*Created, Result, error) {
	g, report, err := ingestion.Build(sub, owner, s.now())
	if err != nil {
		return nil, failedFor(err), err
	}

	if picture != nil {
		ref, err := s.saveImage(ctx, picture)
		if err != nil {
			return nil, failedFor(err), err
		}
		g.Resume.ProfilePicture = ref
	}

	id, err := s.store.CreateResume(ctx, g)
	if err != nil {
		s.discardImage(ctx, g.Resume.ProfilePicture)
		return nil, failed(MsgInvalid), err
	}

	if report.TotalSkipped() > 0 || len(report.Warnings) > 0 {
		log.Info().
			Str("resume_id", id.String()).
			Int("skipped", report.TotalSkipped()).
			Int("warnings", len(report.Warnings)).
			Msg("Resume created with row adjustments")
	}
	return &Created{ID: id, Report: report}, ok(MsgCreated), nil
}

// Edit replaces the scalar fields of an owned résumé. Sub-collections are
// left unchanged. picture, when non-nil, replaces the profile picture.
func (s *Service) Edit(ctx context.Context, owner *uuid.UUID, id uuid.UUID, update ingestion.ScalarUpdate, picture io.Reader) (*db.Resume, Result, error) {
	current, err := s.owned(ctx, owner, id)
	if err != nil {
		return nil, failedFor(err), err
	}

	merged, err := update.Apply(*current)
	if err != nil {
		return nil, failedFor(err), err
	}

	if picture != nil {
		ref, err := s.saveImage(ctx, picture)
		if err != nil {
			return nil, failedFor(err), err
		}
		merged.ProfilePicture = ref
	}

	if err := s.store.UpdateResume(ctx, &merged); err != nil {
		s.discardImage(ctx, pictureChange(current, &merged))
		if errors.Is(err, db.ErrNotFound) {
			return nil, failedFor(ErrNotFound), ErrNotFound
		}
		return nil, failed(MsgInvalid), err
	}
	s.discardImage(ctx, pictureChange(&merged, current))
	return &merged, ok(MsgUpdated), nil
}

// pictureChange returns from's picture when it differs from to's
func pictureChange(to, from *db.Resume) string {
	if from.ProfilePicture != to.ProfilePicture {
		return from.ProfilePicture
	}
	return ""
}

// Delete removes an owned résumé and everything it owns
func (s *Service) Delete(ctx context.Context, owner *uuid.UUID, id uuid.UUID) (Result, error) {
	current, err := s.owned(ctx, owner, id)
	if err != nil {
		return failedFor(err), err
	}
	if err := s.store.DeleteResume(ctx, id, *owner); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return failedFor(ErrNotFound), ErrNotFound
		}
		return failed(MsgInvalid), err
	}
	s.discardImage(ctx, current.ProfilePicture)
	return ok(MsgDeleted), nil
}

// AddSkill appends a skill to an owned résumé. A blank or unknown
// proficiency becomes intermediate.
func (s *Service) AddSkill(ctx context.Context, owner *uuid.UUID, resumeID uuid.UUID, name, proficiency string) (*db.Skill, Result, error) {
	if _, err := s.owned(ctx, owner, resumeID); err != nil {
		return nil, failedFor(err), err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		err := &ingestion.ValidationError{Field: "name", Message: "Skill name is required."}
		return nil, failedFor(err), err
	}

	level := db.SkillLevel(strings.ToLower(strings.TrimSpace(proficiency)))
	if !level.Valid() {
		level = db.SkillIntermediate
	}
	skill := &db.Skill{ResumeID: resumeID, Name: name, Proficiency: level}
	if err := ingestion.CheckLengths(skill); err != nil {
		return nil, failedFor(err), err
	}
	if err := s.store.CreateSkill(ctx, skill); err != nil {
		return nil, failed(MsgInvalid), err
	}
	return skill, ok(MsgSkillAdded), nil
}

// RemoveSkill deletes a skill belonging to one of the caller's résumés
func (s *Service) RemoveSkill(ctx context.Context, owner *uuid.UUID, skillID uuid.UUID) (Result, error) {
	if owner == nil {
		return failedFor(ErrUnauthenticated), ErrUnauthenticated
	}
	if err := s.store.DeleteSkillForOwner(ctx, skillID, *owner); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return failedFor(ErrNotFound), ErrNotFound
		}
		return failed(MsgInvalid), err
	}
	return ok(MsgSkillRemoved), nil
}

// SetProfilePicture stores a new picture for an owned résumé and returns its
// reference
func (s *Service) SetProfilePicture(ctx context.Context, owner *uuid.UUID, resumeID uuid.UUID, picture io.Reader) (string, Result, error) {
	updated, _, err := s.Edit(ctx, owner, resumeID, ingestion.ScalarUpdate{}, picture)
	if err != nil {
		return "", failedFor(err), err
	}
	return updated.ProfilePicture, ok(MsgPicture), nil
}

func (s *Service) saveImage(ctx context.Context, r io.Reader) (string, error) {
	if s.images == nil {
		return "", ErrNoImageStore
	}
	ref, err := s.images.SaveImage(ctx, r)
	if err != nil {
		return "", fmt.Errorf("failed to store profile picture: %w", err)
	}
	return ref, nil
}

// discardImage removes a stored picture that is no longer referenced
func (s *Service) discardImage(ctx context.Context, ref string) {
	if ref == "" || s.images == nil {
		return
	}
	if err := s.images.Delete(ctx, ref); err != nil {
		log.Warn().Err(err).Str("ref", ref).Msg("Failed to remove unused image")
	}
}

// failedFor maps an error to the message shown to the user
func failedFor(err error) Result {
	var ve *ingestion.ValidationError
	switch {
	case errors.As(err, &ve):
		return failed(ve.Message)
	case errors.Is(err, ErrUnauthenticated):
		return failed("Please log in to continue.")
	case errors.Is(err, ErrNotFound):
		return failed("Resume not found.")
	case errors.Is(err, storage.ErrUnsupportedImage), errors.Is(err, storage.ErrTooLarge):
		return failed("Please upload a JPEG, PNG or GIF image under 5 MB.")
	}
	return failed(MsgInvalid)
}
