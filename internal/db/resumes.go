package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"
)

const resumeColumns = `id, user_id, title, template, is_public, created_at, updated_at,
	views_count, downloads_count, name, about, age, email, phone, address,
	profile_picture, linkedin, github, portfolio, twitter`

// scanResume scans a row selected with resumeColumns
func scanResume(row pgx.Row) (*Resume, error) {
	var r Resume
	var template string
	err := row.Scan(&r.ID, &r.UserID, &r.Title, &template, &r.IsPublic, &r.CreatedAt, &r.UpdatedAt,
		&r.ViewsCount, &r.DownloadsCount, &r.Name, &r.About, &r.Age, &r.Email, &r.Phone, &r.Address,
		&r.ProfilePicture, &r.LinkedIn, &r.GitHub, &r.Portfolio, &r.Twitter)
	if err != nil {
		return nil, err
	}
	r.Template = TemplateName(template)
	return &r, nil
}

func collectResumes(rows pgx.Rows) ([]Resume, error) {
	defer rows.Close()
	var resumes []Resume
	for rows.Next() {
		r, err := scanResume(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resume: %w", err)
		}
		resumes = append(resumes, *r)
	}
	return resumes, rows.Err()
}

// -----------------------------------------------------------------------------
// Resume Methods
// -----------------------------------------------------------------------------

// CreateResume inserts a résumé and all of its sub-entities in one transaction.
// Generated IDs and timestamps are written back into g.
func (db *DB) CreateResume(ctx context.Context, g *ResumeGraph) (uuid.UUID, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	r := &g.Resume
	err = tx.QueryRow(ctx,
		`INSERT INTO resumes (user_id, title, template, is_public, name, about, age, email, phone,
		                      address, profile_picture, linkedin, github, portfolio, twitter)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING id, created_at, updated_at`,
		r.UserID, r.Title, string(r.Template), r.IsPublic, r.Name, r.About, r.Age, r.Email, r.Phone,
		r.Address, r.ProfilePicture, r.LinkedIn, r.GitHub, r.Portfolio, r.Twitter,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create resume: %w", err)
	}

	if err := insertChildren(ctx, tx, g); err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return r.ID, nil
}

// insertChildren writes every sub-entity collection of g with its ordinal
func insertChildren(ctx context.Context, tx pgx.Tx, g *ResumeGraph) error {
	rid := g.Resume.ID

	for i := range g.Skills {
		s := &g.Skills[i]
		s.ResumeID, s.Ordinal = rid, i
		if err := tx.QueryRow(ctx,
			`INSERT INTO resume_skills (resume_id, name, proficiency, ordinal)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			rid, s.Name, string(s.Proficiency), s.Ordinal,
		).Scan(&s.ID); err != nil {
			return fmt.Errorf("failed to create skill %q: %w", s.Name, err)
		}
	}

	for i := range g.Education {
		e := &g.Education[i]
		e.ResumeID, e.Ordinal = rid, i
		if err := tx.QueryRow(ctx,
			`INSERT INTO resume_education (resume_id, degree, institution, year, gpa, description, ordinal)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			rid, e.Degree, e.Institution, e.Year, e.GPA, e.Description, e.Ordinal,
		).Scan(&e.ID); err != nil {
			return fmt.Errorf("failed to create education %q: %w", e.Degree, err)
		}
	}

	for i := range g.Languages {
		l := &g.Languages[i]
		l.ResumeID, l.Ordinal = rid, i
		if err := tx.QueryRow(ctx,
			`INSERT INTO resume_languages (resume_id, name, proficiency, ordinal)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			rid, l.Name, string(l.Proficiency), l.Ordinal,
		).Scan(&l.ID); err != nil {
			return fmt.Errorf("failed to create language %q: %w", l.Name, err)
		}
	}

	for i := range g.Projects {
		p := &g.Projects[i]
		p.ResumeID, p.Ordinal = rid, i
		if err := tx.QueryRow(ctx,
			`INSERT INTO resume_projects (resume_id, title, duration, description, technologies,
			                              github_link, live_link, ordinal)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			rid, p.Title, p.Duration, p.Description, p.Technologies, p.GitHubLink, p.LiveLink, p.Ordinal,
		).Scan(&p.ID); err != nil {
			return fmt.Errorf("failed to create project %q: %w", p.Title, err)
		}
	}

	for i := range g.WorkExperience {
		w := &g.WorkExperience[i]
		w.ResumeID, w.Ordinal = rid, i
		if err := tx.QueryRow(ctx,
			`INSERT INTO resume_work_experience (resume_id, company, position, duration, location,
			                                     description, start_date, end_date, is_current, ordinal)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
			rid, w.Company, w.Position, w.Duration, w.Location, w.Description,
			dateArg(w.StartDate), dateArg(w.EndDate), w.Current, w.Ordinal,
		).Scan(&w.ID); err != nil {
			return fmt.Errorf("failed to create work experience %q: %w", w.Company, err)
		}
	}

	for i := range g.Certifications {
		c := &g.Certifications[i]
		c.ResumeID, c.Ordinal = rid, i
		if err := tx.QueryRow(ctx,
			`INSERT INTO resume_certifications (resume_id, name, issuer, date_obtained, expiry_date,
			                                    credential_id, credential_url, ordinal)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			rid, c.Name, c.Issuer, c.DateObtained.Time, dateArg(c.ExpiryDate),
			c.CredentialID, c.CredentialURL, c.Ordinal,
		).Scan(&c.ID); err != nil {
			return fmt.Errorf("failed to create certification %q: %w", c.Name, err)
		}
	}

	for i := range g.Achievements {
		a := &g.Achievements[i]
		a.ResumeID, a.Ordinal = rid, i
		if err := tx.QueryRow(ctx,
			`INSERT INTO resume_achievements (resume_id, title, description, date, ordinal)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			rid, a.Title, a.Description, dateArg(a.Date), a.Ordinal,
		).Scan(&a.ID); err != nil {
			return fmt.Errorf("failed to create achievement %q: %w", a.Title, err)
		}
	}

	for i := range g.References {
		ref := &g.References[i]
		ref.ResumeID, ref.Ordinal = rid, i
		if err := tx.QueryRow(ctx,
			`INSERT INTO resume_references (resume_id, name, position, company, email, phone,
			                                relationship, ordinal)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			rid, ref.Name, ref.Position, ref.Company, ref.Email, ref.Phone, ref.Relationship, ref.Ordinal,
		).Scan(&ref.ID); err != nil {
			return fmt.Errorf("failed to create reference %q: %w", ref.Name, err)
		}
	}

	return nil
}

// GetResume retrieves a résumé by ID. Returns nil, nil when it does not exist.
func (db *DB) GetResume(ctx context.Context, id uuid.UUID) (*Resume, error) {
	r, err := scanResume(db.pool.QueryRow(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}
	return r, nil
}

// LoadGraph retrieves a résumé and all of its sub-entity collections.
// Returns nil, nil when the résumé does not exist.
func (db *DB) LoadGraph(ctx context.Context, id uuid.UUID) (*ResumeGraph, error) {
	r, err := db.GetResume(ctx, id)
	if err != nil || r == nil {
		return nil, err
	}

	g := &ResumeGraph{Resume: *r}
	eg, gCtx := errgroup.WithContext(ctx)

	// Each goroutine owns exactly one field of g
	eg.Go(func() (err error) { g.Skills, err = db.listSkills(gCtx, id); return })
	eg.Go(func() (err error) { g.Education, err = db.listEducation(gCtx, id); return })
	eg.Go(func() (err error) { g.Languages, err = db.listLanguages(gCtx, id); return })
	eg.Go(func() (err error) { g.Projects, err = db.listProjects(gCtx, id); return })
	eg.Go(func() (err error) { g.WorkExperience, err = db.listWorkExperience(gCtx, id); return })
	eg.Go(func() (err error) { g.Certifications, err = db.listCertifications(gCtx, id); return })
	eg.Go(func() (err error) { g.Achievements, err = db.listAchievements(gCtx, id); return })
	eg.Go(func() (err error) { g.References, err = db.listReferences(gCtx, id); return })

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return g, nil
}

// UpdateResume replaces the scalar fields of a résumé. Sub-entities are untouched.
func (db *DB) UpdateResume(ctx context.Context, r *Resume) error {
	err := db.pool.QueryRow(ctx,
		`UPDATE resumes SET title = $2, template = $3, is_public = $4, name = $5, about = $6,
		        age = $7, email = $8, phone = $9, address = $10, profile_picture = $11,
		        linkedin = $12, github = $13, portfolio = $14, twitter = $15, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		r.ID, r.Title, string(r.Template), r.IsPublic, r.Name, r.About, r.Age, r.Email, r.Phone,
		r.Address, r.ProfilePicture, r.LinkedIn, r.GitHub, r.Portfolio, r.Twitter,
	).Scan(&r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("resume %s: %w", r.ID, ErrNotFound)
		}
		return fmt.Errorf("failed to update resume: %w", err)
	}
	return nil
}

// DeleteResume deletes a résumé owned by ownerID; sub-entities go with it via cascade
func (db *DB) DeleteResume(ctx context.Context, id, ownerID uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM resumes WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete resume: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("resume %s: %w", id, ErrNotFound)
	}
	return nil
}

// IncrementViews atomically adds one to the view counter and returns the new value
func (db *DB) IncrementViews(ctx context.Context, id uuid.UUID) (int, error) {
	return db.increment(ctx, `UPDATE resumes SET views_count = views_count + 1 WHERE id = $1 RETURNING views_count`, id)
}

// IncrementDownloads atomically adds one to the download counter and returns the new value
func (db *DB) IncrementDownloads(ctx context.Context, id uuid.UUID) (int, error) {
	return db.increment(ctx, `UPDATE resumes SET downloads_count = downloads_count + 1 WHERE id = $1 RETURNING downloads_count`, id)
}

func (db *DB) increment(ctx context.Context, query string, id uuid.UUID) (int, error) {
	var n int
	if err := db.pool.QueryRow(ctx, query, id).Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("resume %s: %w", id, ErrNotFound)
		}
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	return n, nil
}

// ListResumesByOwner retrieves a user's résumés, most recently updated first
func (db *DB) ListResumesByOwner(ctx context.Context, ownerID uuid.UUID) ([]Resume, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE user_id = $1 ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	return collectResumes(rows)
}

// SearchPublicResumes lists public résumés whose name, title, bio or any skill
// contains the query (case-insensitive). It also returns the total match count.
func (db *DB) SearchPublicResumes(ctx context.Context, params SearchParams) ([]Resume, int, error) {
	if params.Limit == 0 {
		params.Limit = 12
	}

	where := `WHERE r.is_public`
	args := []any{}
	if params.Query != "" {
		where += ` AND (r.name ILIKE $1 OR r.title ILIKE $1 OR r.about ILIKE $1
			OR EXISTS (SELECT 1 FROM resume_skills s WHERE s.resume_id = r.id AND s.name ILIKE $1))`
		args = append(args, "%"+EscapeLike(params.Query)+"%")
	}

	var total int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM resumes r `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count resumes: %w", err)
	}

	query := fmt.Sprintf(`SELECT `+prefixed("r", resumeColumns)+` FROM resumes r %s
		ORDER BY r.created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Offset)

	rows, err := db.pool.Query(ctx, query, args...)
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
func (db *DB) FeaturedResumes(ctx context.Context, limit int) ([]Resume, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE is_public ORDER BY views_count DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list featured resumes: %w", err)
	}
	return collectResumes(rows)
}

// Stats returns total résumé and user counts
func (db *DB) Stats(ctx context.Context) (SiteStats, error) {
	var s SiteStats
	err := db.pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM resumes), (SELECT COUNT(*) FROM users)`,
	).Scan(&s.TotalResumes, &s.TotalUsers)
	if err != nil {
		return s, fmt.Errorf("failed to load stats: %w", err)
	}
	return s, nil
}

// -----------------------------------------------------------------------------
// Skill Methods
// -----------------------------------------------------------------------------

// CreateSkill appends a single skill to a résumé
func (db *DB) CreateSkill(ctx context.Context, s *Skill) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO resume_skills (resume_id, name, proficiency, ordinal)
		 VALUES ($1, $2, $3, (SELECT COALESCE(MAX(ordinal) + 1, 0) FROM resume_skills WHERE resume_id = $1))
		 RETURNING id, ordinal`,
		s.ResumeID, s.Name, string(s.Proficiency),
	).Scan(&s.ID, &s.Ordinal)
	if err != nil {
		return fmt.Errorf("failed to create skill: %w", err)
	}
	return nil
}

// DeleteSkillForOwner removes a skill if its résumé belongs to ownerID
func (db *DB) DeleteSkillForOwner(ctx context.Context, skillID, ownerID uuid.UUID) error {
	result, err := db.pool.Exec(ctx,
		`DELETE FROM resume_skills s USING resumes r
		 WHERE s.id = $1 AND s.resume_id = r.id AND r.user_id = $2`,
		skillID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete skill: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("skill %s: %w", skillID, ErrNotFound)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Collection loaders
// -----------------------------------------------------------------------------

func (db *DB) listSkills(ctx context.Context, resumeID uuid.UUID) ([]Skill, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, resume_id, name, proficiency, ordinal FROM resume_skills
		 WHERE resume_id = $1 ORDER BY ordinal, id`, resumeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list skills: %w", err)
	}
	defer rows.Close()

	var out []Skill
	for rows.Next() {
		var s Skill
		var level string
		if err := rows.Scan(&s.ID, &s.ResumeID, &s.Name, &level, &s.Ordinal); err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		s.Proficiency = SkillLevel(level)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (db *DB) listEducation(ctx context.Context, resumeID uuid.UUID) ([]Education, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, resume_id, degree, institution, year, gpa, description, ordinal
		 FROM resume_education WHERE resume_id = $1 ORDER BY ordinal, id`, resumeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list education: %w", err)
	}
	defer rows.Close()

	var out []Education
	for rows.Next() {
		var e Education
		if err := rows.Scan(&e.ID, &e.ResumeID, &e.Degree, &e.Institution, &e.Year, &e.GPA,
			&e.Description, &e.Ordinal); err != nil {
			return nil, fmt.Errorf("failed to scan education: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (db *DB) listLanguages(ctx context.Context, resumeID uuid.UUID) ([]Language, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, resume_id, name, proficiency, ordinal FROM resume_languages
		 WHERE resume_id = $1 ORDER BY ordinal, id`, resumeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}
	defer rows.Close()

	var out []Language
	for rows.Next() {
		var l Language
		var level string
		if err := rows.Scan(&l.ID, &l.ResumeID, &l.Name, &level, &l.Ordinal); err != nil {
			return nil, fmt.Errorf("failed to scan language: %w", err)
		}
		l.Proficiency = LanguageLevel(level)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (db *DB) listProjects(ctx context.Context, resumeID uuid.UUID) ([]Project, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, resume_id, title, duration, description, technologies, github_link, live_link, ordinal
		 FROM resume_projects WHERE resume_id = $1 ORDER BY ordinal, id`, resumeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.ResumeID, &p.Title, &p.Duration, &p.Description,
			&p.Technologies, &p.GitHubLink, &p.LiveLink, &p.Ordinal); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *DB) listWorkExperience(ctx context.Context, resumeID uuid.UUID) ([]WorkExperience, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, resume_id, company, position, duration, location, description,
		        start_date, end_date, is_current, ordinal
		 FROM resume_work_experience WHERE resume_id = $1 ORDER BY ordinal, id`, resumeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list work experience: %w", err)
	}
	defer rows.Close()

	var out []WorkExperience
	for rows.Next() {
		var w WorkExperience
		var start, end *time.Time
		if err := rows.Scan(&w.ID, &w.ResumeID, &w.Company, &w.Position, &w.Duration, &w.Location,
			&w.Description, &start, &end, &w.Current, &w.Ordinal); err != nil {
			return nil, fmt.Errorf("failed to scan work experience: %w", err)
		}
		w.StartDate, w.EndDate = optionalDate(start), optionalDate(end)
		out = append(out, w)
	}
	return out, rows.Err()
}

func (db *DB) listCertifications(ctx context.Context, resumeID uuid.UUID) ([]Certification, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, resume_id, name, issuer, date_obtained, expiry_date, credential_id, credential_url, ordinal
		 FROM resume_certifications WHERE resume_id = $1 ORDER BY ordinal, id`, resumeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list certifications: %w", err)
	}
	defer rows.Close()

	var out []Certification
	for rows.Next() {
		var c Certification
		var obtained time.Time
		var expiry *time.Time
		if err := rows.Scan(&c.ID, &c.ResumeID, &c.Name, &c.Issuer, &obtained, &expiry,
			&c.CredentialID, &c.CredentialURL, &c.Ordinal); err != nil {
			return nil, fmt.Errorf("failed to scan certification: %w", err)
		}
		c.DateObtained = NewDate(obtained)
		c.ExpiryDate = optionalDate(expiry)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (db *DB) listAchievements(ctx context.Context, resumeID uuid.UUID) ([]Achievement, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, resume_id, title, description, date, ordinal
		 FROM resume_achievements WHERE resume_id = $1 ORDER BY ordinal, id`, resumeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	var out []Achievement
	for rows.Next() {
		var a Achievement
		var date *time.Time
		if err := rows.Scan(&a.ID, &a.ResumeID, &a.Title, &a.Description, &date, &a.Ordinal); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		a.Date = optionalDate(date)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (db *DB) listReferences(ctx context.Context, resumeID uuid.UUID) ([]Reference, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, resume_id, name, position, company, email, phone, relationship, ordinal
		 FROM resume_references WHERE resume_id = $1 ORDER BY ordinal, id`, resumeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}
	defer rows.Close()

	var out []Reference
	for rows.Next() {
		var ref Reference
		if err := rows.Scan(&ref.ID, &ref.ResumeID, &ref.Name, &ref.Position, &ref.Company,
			&ref.Email, &ref.Phone, &ref.Relationship, &ref.Ordinal); err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}
