// Package sqlite provides an embedded SQLite implementation of the résumé store,
// used for local development and for tests that need real SQL semantics.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/db"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store is a SQLite-backed résumé store
type Store struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens (or creates) a SQLite database. Use ":memory:" for a private
// in-memory database. Foreign keys are enforced so cascades behave like Postgres.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&"
	} else {
		dsn += "?"
	}
	dsn += "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection keeps in-memory databases alive and serialises writers
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Store{conn: conn, now: time.Now}, nil
}

// Close closes the database
func (s *Store) Close() {
	_ = s.conn.Close()
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Migrate creates all tables if they do not exist yet
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// timeLayout is fixed-width so TEXT timestamps sort chronologically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

func parseTimestamp(v string) time.Time {
	t, _ := time.Parse(timeLayout, v)
	return t
}

func dateArg(d *db.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}

func scanDate(v sql.NullString) *db.Date {
	if !v.Valid || v.String == "" {
		return nil
	}
	d, err := db.ParseDate(v.String)
	if err != nil {
		return nil
	}
	return &d
}

type scanner interface {
	Scan(dest ...any) error
}

const resumeColumns = `id, user_id, title, template, is_public, created_at, updated_at,
	views_count, downloads_count, name, about, age, email, phone, address,
	profile_picture, linkedin, github, portfolio, twitter`

func scanResume(row scanner) (*db.Resume, error) {
	var r db.Resume
	var userID sql.NullString
	var template, created, updated string
	err := row.Scan(&r.ID, &userID, &r.Title, &template, &r.IsPublic, &created, &updated,
		&r.ViewsCount, &r.DownloadsCount, &r.Name, &r.About, &r.Age, &r.Email, &r.Phone, &r.Address,
		&r.ProfilePicture, &r.LinkedIn, &r.GitHub, &r.Portfolio, &r.Twitter)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		uid, err := uuid.Parse(userID.String)
		if err != nil {
			return nil, fmt.Errorf("invalid user_id %q: %w", userID.String, err)
		}
		r.UserID = &uid
	}
	r.Template = db.TemplateName(template)
	r.CreatedAt, r.UpdatedAt = parseTimestamp(created), parseTimestamp(updated)
	return &r, nil
}

func collectResumes(rows *sql.Rows) ([]db.Resume, error) {
	defer rows.Close()
	var out []db.Resume
	for rows.Next() {
		r, err := scanResume(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resume: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func userArg(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

// CreateResume inserts a résumé and all of its sub-entities in one transaction
func (s *Store) CreateResume(ctx context.Context, g *db.ResumeGraph) (uuid.UUID, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	r := &g.Resume
	r.ID = uuid.New()
	ts := s.timestamp()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO resumes (id, user_id, title, template, is_public, created_at, updated_at, name, about,
		                      age, email, phone, address, profile_picture, linkedin, github, portfolio, twitter)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), userArg(r.UserID), r.Title, string(r.Template), r.IsPublic, ts, ts, r.Name, r.About,
		r.Age, r.Email, r.Phone, r.Address, r.ProfilePicture, r.LinkedIn, r.GitHub, r.Portfolio, r.Twitter)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create resume: %w", err)
	}
	r.CreatedAt, r.UpdatedAt = parseTimestamp(ts), parseTimestamp(ts)

	if err := insertChildren(ctx, tx, g); err != nil {
		return uuid.Nil, err
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return r.ID, nil
}

func insertChildren(ctx context.Context, tx *sql.Tx, g *db.ResumeGraph) error {
	rid := g.Resume.ID
	exec := func(what, query string, args ...any) error {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to create %s: %w", what, err)
		}
		return nil
	}

	for i := range g.Skills {
		v := &g.Skills[i]
		v.ID, v.ResumeID, v.Ordinal = uuid.New(), rid, i
		if err := exec("skill", `INSERT INTO resume_skills (id, resume_id, name, proficiency, ordinal) VALUES (?, ?, ?, ?, ?)`,
			v.ID.String(), rid.String(), v.Name, string(v.Proficiency), i); err != nil {
			return err
		}
	}
	for i := range g.Education {
		v := &g.Education[i]
		v.ID, v.ResumeID, v.Ordinal = uuid.New(), rid, i
		if err := exec("education", `INSERT INTO resume_education (id, resume_id, degree, institution, year, gpa, description, ordinal)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			v.ID.String(), rid.String(), v.Degree, v.Institution, v.Year, v.GPA, v.Description, i); err != nil {
			return err
		}
	}
	for i := range g.Languages {
		v := &g.Languages[i]
		v.ID, v.ResumeID, v.Ordinal = uuid.New(), rid, i
		if err := exec("language", `INSERT INTO resume_languages (id, resume_id, name, proficiency, ordinal) VALUES (?, ?, ?, ?, ?)`,
			v.ID.String(), rid.String(), v.Name, string(v.Proficiency), i); err != nil {
			return err
		}
	}
	for i := range g.Projects {
		v := &g.Projects[i]
		v.ID, v.ResumeID, v.Ordinal = uuid.New(), rid, i
		if err := exec("project", `INSERT INTO resume_projects (id, resume_id, title, duration, description, technologies,
			github_link, live_link, ordinal) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			v.ID.String(), rid.String(), v.Title, v.Duration, v.Description, v.Technologies,
			v.GitHubLink, v.LiveLink, i); err != nil {
			return err
		}
	}
	for i := range g.WorkExperience {
		v := &g.WorkExperience[i]
		v.ID, v.ResumeID, v.Ordinal = uuid.New(), rid, i
		if err := exec("work experience", `INSERT INTO resume_work_experience (id, resume_id, company, position, duration,
			location, description, start_date, end_date, is_current, ordinal) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			v.ID.String(), rid.String(), v.Company, v.Position, v.Duration, v.Location, v.Description,
			dateArg(v.StartDate), dateArg(v.EndDate), v.Current, i); err != nil {
			return err
		}
	}
	for i := range g.Certifications {
		v := &g.Certifications[i]
		v.ID, v.ResumeID, v.Ordinal = uuid.New(), rid, i
		if err := exec("certification", `INSERT INTO resume_certifications (id, resume_id, name, issuer, date_obtained,
			expiry_date, credential_id, credential_url, ordinal) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			v.ID.String(), rid.String(), v.Name, v.Issuer, v.DateObtained.String(), dateArg(v.ExpiryDate),
			v.CredentialID, v.CredentialURL, i); err != nil {
			return err
		}
	}
	for i := range g.Achievements {
		v := &g.Achievements[i]
		v.ID, v.ResumeID, v.Ordinal = uuid.New(), rid, i
		if err := exec("achievement", `INSERT INTO resume_achievements (id, resume_id, title, description, date, ordinal)
			VALUES (?, ?, ?, ?, ?, ?)`,
			v.ID.String(), rid.String(), v.Title, v.Description, dateArg(v.Date), i); err != nil {
			return err
		}
	}
	for i := range g.References {
		v := &g.References[i]
		v.ID, v.ResumeID, v.Ordinal = uuid.New(), rid, i
		if err := exec("reference", `INSERT INTO resume_references (id, resume_id, name, position, company, email, phone,
			relationship, ordinal) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			v.ID.String(), rid.String(), v.Name, v.Position, v.Company, v.Email, v.Phone, v.Relationship, i); err != nil {
			return err
		}
	}
	return nil
}

// GetResume retrieves a résumé by ID. Returns nil, nil when it does not exist.
func (s *Store) GetResume(ctx context.Context, id uuid.UUID) (*db.Resume, error) {
	r, err := scanResume(s.conn.QueryRowContext(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}
	return r, nil
}

// LoadGraph retrieves a résumé and all of its sub-entity collections.
// Returns nil, nil when the résumé does not exist.
func (s *Store) LoadGraph(ctx context.Context, id uuid.UUID) (*db.ResumeGraph, error) {
	r, err := s.GetResume(ctx, id)
	if err != nil || r == nil {
		return nil, err
	}
	g := &db.ResumeGraph{Resume: *r}
	rid := id.String()

	if err := s.each(ctx, `SELECT id, resume_id, name, proficiency, ordinal FROM resume_skills
		WHERE resume_id = ? ORDER BY ordinal, rowid`, rid, func(row scanner) error {
		var v db.Skill
		var level string
		if err := row.Scan(&v.ID, &v.ResumeID, &v.Name, &level, &v.Ordinal); err != nil {
			return err
		}
		v.Proficiency = db.SkillLevel(level)
		g.Skills = append(g.Skills, v)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to list skills: %w", err)
	}

	if err := s.each(ctx, `SELECT id, resume_id, degree, institution, year, gpa, description, ordinal
		FROM resume_education WHERE resume_id = ? ORDER BY ordinal, rowid`, rid, func(row scanner) error {
		var v db.Education
		if err := row.Scan(&v.ID, &v.ResumeID, &v.Degree, &v.Institution, &v.Year, &v.GPA, &v.Description, &v.Ordinal); err != nil {
			return err
		}
		g.Education = append(g.Education, v)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to list education: %w", err)
	}

	if err := s.each(ctx, `SELECT id, resume_id, name, proficiency, ordinal FROM resume_languages
		WHERE resume_id = ? ORDER BY ordinal, rowid`, rid, func(row scanner) error {
		var v db.Language
		var level string
		if err := row.Scan(&v.ID, &v.ResumeID, &v.Name, &level, &v.Ordinal); err != nil {
			return err
		}
		v.Proficiency = db.LanguageLevel(level)
		g.Languages = append(g.Languages, v)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}

	if err := s.each(ctx, `SELECT id, resume_id, title, duration, description, technologies, github_link, live_link, ordinal
		FROM resume_projects WHERE resume_id = ? ORDER BY ordinal, rowid`, rid, func(row scanner) error {
		var v db.Project
		if err := row.Scan(&v.ID, &v.ResumeID, &v.Title, &v.Duration, &v.Description, &v.Technologies,
			&v.GitHubLink, &v.LiveLink, &v.Ordinal); err != nil {
			return err
		}
		g.Projects = append(g.Projects, v)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	if err := s.each(ctx, `SELECT id, resume_id, company, position, duration, location, description,
		start_date, end_date, is_current, ordinal
		FROM resume_work_experience WHERE resume_id = ? ORDER BY ordinal, rowid`, rid, func(row scanner) error {
		var v db.WorkExperience
		var start, end sql.NullString
		if err := row.Scan(&v.ID, &v.ResumeID, &v.Company, &v.Position, &v.Duration, &v.Location, &v.Description,
			&start, &end, &v.Current, &v.Ordinal); err != nil {
			return err
		}
		v.StartDate, v.EndDate = scanDate(start), scanDate(end)
		g.WorkExperience = append(g.WorkExperience, v)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to list work experience: %w", err)
	}

	if err := s.each(ctx, `SELECT id, resume_id, name, issuer, date_obtained, expiry_date, credential_id, credential_url, ordinal
		FROM resume_certifications WHERE resume_id = ? ORDER BY ordinal, rowid`, rid, func(row scanner) error {
		var v db.Certification
		var obtained string
		var expiry sql.NullString
		if err := row.Scan(&v.ID, &v.ResumeID, &v.Name, &v.Issuer, &obtained, &expiry,
			&v.CredentialID, &v.CredentialURL, &v.Ordinal); err != nil {
			return err
		}
		if d := scanDate(sql.NullString{String: obtained, Valid: true}); d != nil {
			v.DateObtained = *d
		}
		v.ExpiryDate = scanDate(expiry)
		g.Certifications = append(g.Certifications, v)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to list certifications: %w", err)
	}

	if err := s.each(ctx, `SELECT id, resume_id, title, description, date, ordinal
		FROM resume_achievements WHERE resume_id = ? ORDER BY ordinal, rowid`, rid, func(row scanner) error {
		var v db.Achievement
		var date sql.NullString
		if err := row.Scan(&v.ID, &v.ResumeID, &v.Title, &v.Description, &date, &v.Ordinal); err != nil {
			return err
		}
		v.Date = scanDate(date)
		g.Achievements = append(g.Achievements, v)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}

	if err := s.each(ctx, `SELECT id, resume_id, name, position, company, email, phone, relationship, ordinal
		FROM resume_references WHERE resume_id = ? ORDER BY ordinal, rowid`, rid, func(row scanner) error {
		var v db.Reference
		if err := row.Scan(&v.ID, &v.ResumeID, &v.Name, &v.Position, &v.Company, &v.Email, &v.Phone,
			&v.Relationship, &v.Ordinal); err != nil {
			return err
		}
		g.References = append(g.References, v)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}

	return g, nil
}

// each runs query with a single argument and calls fn for every row
func (s *Store) each(ctx context.Context, query string, arg any, fn func(scanner) error) error {
	rows, err := s.conn.QueryContext(ctx, query, arg)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// UpdateResume replaces the scalar fields of a résumé
func (s *Store) UpdateResume(ctx context.Context, r *db.Resume) error {
	ts := s.timestamp()
	result, err := s.conn.ExecContext(ctx,
		`UPDATE resumes SET title = ?, template = ?, is_public = ?, name = ?, about = ?, age = ?, email = ?,
		        phone = ?, address = ?, profile_picture = ?, linkedin = ?, github = ?, portfolio = ?,
		        twitter = ?, updated_at = ?
		 WHERE id = ?`,
		r.Title, string(r.Template), r.IsPublic, r.Name, r.About, r.Age, r.Email, r.Phone, r.Address,
		r.ProfilePicture, r.LinkedIn, r.GitHub, r.Portfolio, r.Twitter, ts, r.ID.String())
	if err != nil {
		return fmt.Errorf("failed to update resume: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("resume %s: %w", r.ID, db.ErrNotFound)
	}
	r.UpdatedAt = parseTimestamp(ts)
	return nil
}

// DeleteResume deletes a résumé owned by ownerID together with its sub-entities
func (s *Store) DeleteResume(ctx context.Context, id, ownerID uuid.UUID) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM resumes WHERE id = ? AND user_id = ?`,
		id.String(), ownerID.String())
	if err != nil {
		return fmt.Errorf("failed to delete resume: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("resume %s: %w", id, db.ErrNotFound)
	}
	return nil
}

// IncrementViews atomically adds one to the view counter and returns the new value
func (s *Store) IncrementViews(ctx context.Context, id uuid.UUID) (int, error) {
	return s.increment(ctx, `UPDATE resumes SET views_count = views_count + 1 WHERE id = ? RETURNING views_count`, id)
}

// IncrementDownloads atomically adds one to the download counter and returns the new value
func (s *Store) IncrementDownloads(ctx context.Context, id uuid.UUID) (int, error) {
	return s.increment(ctx, `UPDATE resumes SET downloads_count = downloads_count + 1 WHERE id = ? RETURNING downloads_count`, id)
}

func (s *Store) increment(ctx context.Context, query string, id uuid.UUID) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, query, id.String()).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("resume %s: %w", id, db.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	return n, nil
}

// ListResumesByOwner retrieves a user's résumés, most recently updated first
func (s *Store) ListResumesByOwner(ctx context.Context, ownerID uuid.UUID) ([]db.Resume, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE user_id = ? ORDER BY updated_at DESC`, ownerID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	return collectResumes(rows)
}

// SearchPublicResumes lists public résumés matching the query and the total match count
func (s *Store) SearchPublicResumes(ctx context.Context, params db.SearchParams) ([]db.Resume, int, error) {
	if params.Limit == 0 {
		params.Limit = 12
	}

	where := `WHERE is_public = 1`
	var args []any
	if params.Query != "" {
		pattern := "%" + db.EscapeLike(params.Query) + "%"
		where += ` AND (name LIKE ? ESCAPE '\' OR title LIKE ? ESCAPE '\' OR about LIKE ? ESCAPE '\'
			OR EXISTS (SELECT 1 FROM resume_skills s WHERE s.resume_id = resumes.id AND s.name LIKE ? ESCAPE '\'))`
		args = append(args, pattern, pattern, pattern, pattern)
	}

	var total int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM resumes `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count resumes: %w", err)
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+resumeColumns+` FROM resumes `+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		append(args, params.Limit, params.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search resumes: %w", err)
	}
	resumes, err := collectResumes(rows)
	if err != nil {
		return nil, 0, err
	}
	return resumes, total, nil
}

// FeaturedResumes lists the most viewed public résumés
func (s *Store) FeaturedResumes(ctx context.Context, limit int) ([]db.Resume, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE is_public = 1 ORDER BY views_count DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list featured resumes: %w", err)
	}
	return collectResumes(rows)
}

// Stats returns total résumé and user counts
func (s *Store) Stats(ctx context.Context) (db.SiteStats, error) {
	var st db.SiteStats
	err := s.conn.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM resumes), (SELECT COUNT(*) FROM users)`,
	).Scan(&st.TotalResumes, &st.TotalUsers)
	if err != nil {
		return st, fmt.Errorf("failed to load stats: %w", err)
	}
	return st, nil
}

// CreateSkill appends a single skill to a résumé
func (s *Store) CreateSkill(ctx context.Context, sk *db.Skill) error {
	sk.ID = uuid.New()
	err := s.conn.QueryRowContext(ctx,
		`INSERT INTO resume_skills (id, resume_id, name, proficiency, ordinal)
		 VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(ordinal) + 1, 0) FROM resume_skills WHERE resume_id = ?))
		 RETURNING ordinal`,
		sk.ID.String(), sk.ResumeID.String(), sk.Name, string(sk.Proficiency), sk.ResumeID.String(),
	).Scan(&sk.Ordinal)
	if err != nil {
		return fmt.Errorf("failed to create skill: %w", err)
	}
	return nil
}

// DeleteSkillForOwner removes a skill if its résumé belongs to ownerID
func (s *Store) DeleteSkillForOwner(ctx context.Context, skillID, ownerID uuid.UUID) error {
	result, err := s.conn.ExecContext(ctx,
		`DELETE FROM resume_skills WHERE id = ?
		 AND resume_id IN (SELECT id FROM resumes WHERE user_id = ?)`,
		skillID.String(), ownerID.String())
	if err != nil {
		return fmt.Errorf("failed to delete skill: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("skill %s: %w", skillID, db.ErrNotFound)
	}
	return nil
}

// CountChildren returns the number of sub-entity rows referencing a résumé
// across every collection table
func (s *Store) CountChildren(ctx context.Context, resumeID uuid.UUID) (int, error) {
	total := 0
	for _, table := range []string{
		"resume_skills", "resume_education", "resume_languages", "resume_projects",
		"resume_work_experience", "resume_certifications", "resume_achievements", "resume_references",
	} {
		var n int
		if err := s.conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM `+table+` WHERE resume_id = ?`, resumeID.String()).Scan(&n); err != nil {
			return 0, fmt.Errorf("failed to count %s: %w", table, err)
		}
		total += n
	}
	return total, nil
}
