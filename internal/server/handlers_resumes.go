package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/db"
	"github.com/jonathan/resume-builder/internal/ingestion"
	"github.com/jonathan/resume-builder/internal/pdf"
	"github.com/jonathan/resume-builder/internal/resume"
	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/jonathan/resume-builder/internal/server/middleware"
)

const (
	// maxJSONBody bounds JSON submissions
	maxJSONBody = 1 << 20
	// maxMultipartMemory bounds the in-memory part of a multipart form
	maxMultipartMemory = 8 << 20
	// pictureField is the multipart field carrying a profile picture
	pictureField = "profile_picture"
)

// CreateResumeResponse is returned for JSON résumé submissions
type CreateResumeResponse struct {
	ID      uuid.UUID         `json:"id"`
	Message string            `json:"message"`
	Report  *ingestion.Report `json:"report"`
}

// EditResumeResponse is returned after a successful edit
type EditResumeResponse struct {
	resume.Result
	Resume *db.Resume `json:"resume"`
}

// handleHome returns featured public résumés and site totals
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	home, err := s.resumes.Home(r.Context())
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, home)
}

// handleMe returns the signed-in account
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	user, err := s.userService.Me(r.Context(), userID)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, user)
}

// handleDashboard lists the caller's résumés
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	resumes, err := s.resumes.Dashboard(r.Context(), middleware.Viewer(r))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"resumes": resumes})
}

// handleSearch lists public résumés matching ?q=, 12 per ?page=
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		page = 1
	}

	result, err := s.resumes.Search(r.Context(), query, page)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"query":        result.Query,
		"resumes":      result.Resumes,
		"page":         result.Page,
		"total_pages":  result.TotalPages,
		"total":        result.Total,
		"has_next":     result.HasNext(),
		"has_previous": result.HasPrevious(),
	})
}

// handleCreateResume accepts a JSON submission, the legacy urlencoded form,
// or a multipart form with an optional profile picture
func (s *Server) handleCreateResume(w http.ResponseWriter, r *http.Request) {
	var (
		sub     *ingestion.Submission
		picture io.Reader
	)

	switch {
	case isJSON(r):
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
		if err != nil {
			s.errorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		sub, err = ingestion.DecodeJSON(body)
		if err != nil {
			s.submissionError(w, r, err)
			return
		}
	default:
		form, file, err := s.parseForm(w, r)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if file != nil {
			defer file.Close()
			picture = file
		}
		sub = ingestion.FromForm(form)
	}

	created, result, err := s.resumes.Create(r.Context(), middleware.Viewer(r), *sub, picture)
	if err != nil {
		s.resultFailure(w, r, result, err)
		return
	}

	location := "/resumes/" + created.ID.String()
	if !isJSON(r) {
		http.Redirect(w, r, location, http.StatusSeeOther)
		return
	}
	w.Header().Set("Location", location)
	s.jsonResponse(w, http.StatusCreated, CreateResumeResponse{
		ID:      created.ID,
		Message: result.Message,
		Report:  created.Report,
	})
}

// handlePreview renders a submission as HTML without storing it. Forms may
// use either the `xxx[]` sequences or the numbered quick-form fields.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var sub *ingestion.Submission
	if isJSON(r) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
		if err != nil {
			s.errorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		if sub, err = ingestion.DecodeJSON(body); err != nil {
			s.submissionError(w, r, err)
			return
		}
	} else {
		form, file, err := s.parseForm(w, r)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if file != nil {
			_ = file.Close()
		}
		if ingestion.IsNumberedForm(form) {
			sub = ingestion.FromNumberedForm(form)
		} else {
			sub = ingestion.FromForm(form)
		}
	}

	rendered, err := s.resumes.Preview(*sub)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, rendered.HTML)
}

// handleViewResume renders a résumé as HTML and counts a view
func (s *Server) handleViewResume(w http.ResponseWriter, r *http.Request) {
	id, ok := s.resumeID(w, r)
	if !ok {
		return
	}
	rendered, err := s.resumes.View(r.Context(), id, middleware.Viewer(r))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, rendered.HTML)
}

// handleResumeData returns the résumé graph as JSON without counting
func (s *Server) handleResumeData(w http.ResponseWriter, r *http.Request) {
	id, ok := s.resumeID(w, r)
	if !ok {
		return
	}
	graph, err := s.resumes.Graph(r.Context(), id, middleware.Viewer(r))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, graph)
}

// handleResumeText returns the résumé as plain text without counting
func (s *Server) handleResumeText(w http.ResponseWriter, r *http.Request) {
	id, ok := s.resumeID(w, r)
	if !ok {
		return
	}
	text, err := s.resumes.Text(r.Context(), id, middleware.Viewer(r))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}

// handleDownloadResume exports a résumé as a PDF attachment and counts a
// download
func (s *Server) handleDownloadResume(w http.ResponseWriter, r *http.Request) {
	id, ok := s.resumeID(w, r)
	if !ok {
		return
	}
	data, err := s.resumes.Download(r.Context(), id, middleware.Viewer(r))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdf.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleEditResume replaces scalar fields of an owned résumé
func (s *Server) handleEditResume(w http.ResponseWriter, r *http.Request) {
	id, ok := s.resumeID(w, r)
	if !ok {
		return
	}

	var (
		update  ingestion.ScalarUpdate
		picture io.Reader
	)
	if isJSON(r) {
		if err := decodeJSONBody(w, r, &update); err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	} else {
		form, file, err := s.parseForm(w, r)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if file != nil {
			defer file.Close()
			picture = file
		}
		update = ingestion.UpdateFromForm(form)
	}

	updated, result, err := s.resumes.Edit(r.Context(), middleware.Viewer(r), id, update, picture)
	if err != nil {
		s.resultFailure(w, r, result, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, EditResumeResponse{Result: result, Resume: updated})
}

// handleProfilePicture replaces the profile picture of an owned résumé
func (s *Server) handleProfilePicture(w http.ResponseWriter, r *http.Request) {
	id, ok := s.resumeID(w, r)
	if !ok {
		return
	}
	_, file, err := s.parseForm(w, r)
	if err != nil || file == nil {
		s.errorResponse(w, http.StatusBadRequest, "A profile_picture file is required")
		return
	}
	defer file.Close()

	ref, result, err := s.resumes.SetProfilePicture(r.Context(), middleware.Viewer(r), id, file)
	if err != nil {
		s.resultFailure(w, r, result, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success":         true,
		"message":         result.Message,
		"profile_picture": "/media/" + ref,
	})
}

// handleDeleteResume deletes an owned résumé and everything it owns
func (s *Server) handleDeleteResume(w http.ResponseWriter, r *http.Request) {
	id, ok := s.resumeID(w, r)
	if !ok {
		return
	}
	result, err := s.resumes.Delete(r.Context(), middleware.Viewer(r), id)
	if err != nil {
		s.resultFailure(w, r, result, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// resumeID parses the {id} path value. Malformed IDs are reported as not
// found, like any unknown résumé.
func (s *Server) resumeID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, "resume not found")
		return uuid.Nil, false
	}
	return id, true
}

// parseForm parses an urlencoded or multipart body and returns its values
// and the uploaded profile picture, if any. The caller closes the file.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) (url.Values, io.ReadCloser, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := r.ParseForm(); err != nil {
			return nil, nil, err
		}
		return r.PostForm, nil, nil
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, nil, err
	}
	file, _, err := r.FormFile(pictureField)
	if errors.Is(err, http.ErrMissingFile) {
		return r.PostForm, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return r.PostForm, file, nil
}

// submissionError reports a rejected JSON submission, listing schema
// violations when there are any
func (s *Server) submissionError(w http.ResponseWriter, r *http.Request, err error) {
	var schemaErr *schemas.ValidationError
	if errors.As(err, &schemaErr) {
		s.jsonResponse(w, http.StatusBadRequest, map[string]any{
			"error":   "Submission does not match the expected format",
			"details": schemaErr.Errors,
		})
		return
	}
	s.failure(w, r, err)
}

// resultFailure writes a failed service Result with the status for err
func (s *Server) resultFailure(w http.ResponseWriter, r *http.Request, result resume.Result, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, status, map[string]any{"success": false, "error": result.Message})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}
	return nil
}

// mediaHandler serves stored uploads. Directory listings are not served.
func mediaHandler(root string) http.Handler {
	files := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Join(root, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(name); err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func decodeBytes(body []byte, dst any) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}
	return nil
}
