package server

import (
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/db"
	"github.com/jonathan/resume-builder/internal/resume"
	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/jonathan/resume-builder/internal/server/middleware"
	"github.com/jonathan/resume-builder/internal/types"
	"github.com/rs/zerolog/log"
)

// SkillResponse is the skill returned by the AJAX add endpoint
type SkillResponse struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Proficiency db.SkillLevel `json:"proficiency"`
}

// handleAddSkill appends a skill to one of the caller's résumés. JSON bodies
// use name; form posts use skill_name.
func (s *Server) handleAddSkill(w http.ResponseWriter, r *http.Request) {
	var req types.SkillAddRequest
	if isJSON(r) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
		if err != nil || schemas.Validate(schemas.SkillAdd, body) != nil {
			s.ajaxFailure(w, http.StatusBadRequest)
			return
		}
		if err := decodeBytes(body, &req); err != nil {
			s.ajaxFailure(w, http.StatusBadRequest)
			return
		}
	} else {
		form, _, err := s.parseForm(w, r)
		if err != nil {
			s.ajaxFailure(w, http.StatusBadRequest)
			return
		}
		req = types.SkillAddRequest{
			ResumeID:    form.Get("resume_id"),
			Name:        form.Get("skill_name"),
			Proficiency: form.Get("proficiency"),
		}
	}

	resumeID, err := uuid.Parse(req.ResumeID)
	if err != nil {
		s.ajaxFailure(w, http.StatusBadRequest)
		return
	}

	skill, _, err := s.resumes.AddSkill(r.Context(), middleware.Viewer(r), resumeID, req.Name, req.Proficiency)
	if err != nil {
		s.ajaxError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"skill": SkillResponse{
			ID:          skill.ID,
			Name:        skill.Name,
			Proficiency: skill.Proficiency,
		},
	})
}

// handleRemoveSkill deletes a skill from one of the caller's résumés
func (s *Server) handleRemoveSkill(w http.ResponseWriter, r *http.Request) {
	var req types.SkillRemoveRequest
	if isJSON(r) {
		if err := decodeJSONBody(w, r, &req); err != nil {
			s.ajaxFailure(w, http.StatusBadRequest)
			return
		}
	} else {
		form, _, err := s.parseForm(w, r)
		if err != nil {
			s.ajaxFailure(w, http.StatusBadRequest)
			return
		}
		req.SkillID = form.Get("skill_id")
	}

	skillID, err := uuid.Parse(req.SkillID)
	if err != nil {
		s.ajaxFailure(w, http.StatusBadRequest)
		return
	}

	if _, err := s.resumes.RemoveSkill(r.Context(), middleware.Viewer(r), skillID); err != nil {
		s.ajaxError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}

// ajaxError maps a service error to the AJAX failure body. The cause is
// never shown; the status tells the client what went wrong.
func (s *Server) ajaxError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Skill request failed")
	}
	s.ajaxFailure(w, status)
}

func (s *Server) ajaxFailure(w http.ResponseWriter, status int) {
	s.jsonResponse(w, status, map[string]any{"success": false, "error": resume.MsgInvalid})
}
