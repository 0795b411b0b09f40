// Package store implements the Persistence Store (C12): a relational store
// with five tables (sites, career_urls, jobs, job_history, llm_cache),
// additive-only migrations, and the Sync algorithm that reconciles one
// site's freshly-extracted jobs against what was previously known.
//
// Grounded on original_source/src/database/repository.py's JobRepository
// (single-connection-per-instance, sync_jobs, mark_url_failed/success,
// get_previous_job_count) translated from async sqlite (aiosqlite) to
// database/sql over modernc.org/sqlite, in the teacher/pack idiom shown by
// stevenmed26-JobHunt's internal/store (table.go's additive
// pragma_table_info-guarded ALTER TABLE pattern, db.go's busy_timeout DSN
// and single-writer connection pool sizing) and ncecere-raito's
// internal/store/store.go (gofrs/flock cross-process serialization).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"jobradar/internal/normalize"
	"jobradar/pkg/models"
)

// MaxURLFailures is the fail_count threshold at which a CareerUrl is
// demoted to inactive (spec §4.12 Failure policy of cached URLs).
const MaxURLFailures = 3

// SuspicionThreshold is the all-time job count above which a zero-job
// result from a cached URL is treated as a likely-broken-cache signal
// rather than a genuine empty listing (spec §4.12 Suspicion heuristic).
const SuspicionThreshold = 5

// Store is a single-connection repository over the job-tracking schema.
// All exported methods serialize on mu, mirroring the spec's concurrency
// model: "a single connection per repository instance; all methods
// serialize on that connection."
type Store struct {
	db     *sql.DB
	lock   *flock.Flock
	logger *logrus.Entry

	mu sync.Mutex
}

// Open opens (creating if absent) the sqlite database at path, acquires an
// exclusive cross-process file lock alongside it, and runs migrations.
// The parent directory is created if it does not exist, per spec §6's
// JOBS_DB_PATH contract.
func Open(path string, logger *logrus.Entry) (*Store, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create db directory: %w", err)
		}
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("store: acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("store: database %s is locked by another process", path)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// sqlite has one writer; a single pooled connection keeps every
	// statement on the same session so PRAGMA settings and the
	// within-process mutex above agree with the actual serialization.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := &Store{db: db, lock: lock, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close releases the database connection and the file lock.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Close()
	if uerr := s.lock.Unlock(); uerr != nil && err == nil {
		err = uerr
	}
	return err
}

// migrate applies the additive-only schema: CREATE TABLE IF NOT EXISTS for
// new tables, a pragma_table_info precheck before any ALTER TABLE ADD
// COLUMN, and no DROP statements, ever.
func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sites (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			domain TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_scanned_at TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS career_urls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			site_id INTEGER NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
			url TEXT NOT NULL,
			platform TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			fail_count INTEGER NOT NULL DEFAULT 0,
			last_success_at TIMESTAMP,
			last_fail_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(site_id, url)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_career_urls_site_id ON career_urls(site_id);`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			site_id INTEGER NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
			external_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			title_en TEXT NOT NULL DEFAULT '',
			company TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			salary_from INTEGER,
			salary_to INTEGER,
			salary_currency TEXT NOT NULL DEFAULT '',
			experience TEXT NOT NULL DEFAULT '',
			employment_type TEXT NOT NULL DEFAULT '',
			skills TEXT NOT NULL DEFAULT '[]',
			extraction_method TEXT NOT NULL DEFAULT '',
			extraction_details TEXT NOT NULL DEFAULT '{}',
			first_seen_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_seen_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			is_active BOOLEAN NOT NULL DEFAULT 1
		);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_site_id ON jobs(site_id);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_is_active ON jobs(is_active);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_site_title_location
			ON jobs(site_id, title, location) WHERE location != '';`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_site_title_no_location
			ON jobs(site_id, title) WHERE location = '';`,
		`CREATE TABLE IF NOT EXISTS job_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			event TEXT NOT NULL,
			changed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			details TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_job_history_job_id ON job_history(job_id);`,
		`CREATE TABLE IF NOT EXISTS llm_cache (
			key TEXT PRIMARY KEY,
			namespace TEXT NOT NULL,
			value TEXT NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			ttl_seconds INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			hit_count INTEGER NOT NULL DEFAULT 0,
			tokens_saved INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_llm_cache_namespace ON llm_cache(namespace);`,
		`CREATE INDEX IF NOT EXISTS idx_llm_cache_created_ttl ON llm_cache(created_at, ttl_seconds);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return s.addColumnIfMissing(ctx, "sites", "description", "TEXT NOT NULL DEFAULT ''")
}

// addColumnIfMissing is the additive-migration primitive: it checks
// pragma_table_info before issuing ALTER TABLE, so re-running migrate on an
// already-migrated database is always a no-op for that column.
func (s *Store) addColumnIfMissing(ctx context.Context, table, column, decl string) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM pragma_table_info(?) WHERE name = ? LIMIT 1;`, table, column,
	).Scan(&one)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s;`, table, column, decl))
	return err
}

// GetOrCreateSite looks up a site by domain, creating it if absent.
func (s *Store) GetOrCreateSite(ctx context.Context, domain, name string) (models.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	site, ok, err := s.getSiteByDomain(ctx, domain)
	if err != nil {
		return models.Site{}, err
	}
	if ok {
		return site, nil
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sites (domain, name) VALUES (?, ?);`, domain, name)
	if err != nil {
		return models.Site{}, fmt.Errorf("store: create site: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Site{}, err
	}
	return models.Site{ID: id, Domain: domain, Name: name, CreatedAt: time.Now()}, nil
}

func (s *Store) getSiteByDomain(ctx context.Context, domain string) (models.Site, bool, error) {
	var site models.Site
	var lastScanned sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, domain, name, description, created_at, last_scanned_at FROM sites WHERE domain = ?;`,
		domain,
	).Scan(&site.ID, &site.Domain, &site.Name, &site.Description, &site.CreatedAt, &lastScanned)
	if err == sql.ErrNoRows {
		return models.Site{}, false, nil
	}
	if err != nil {
		return models.Site{}, false, fmt.Errorf("store: get site: %w", err)
	}
	if lastScanned.Valid {
		site.LastScannedAt = lastScanned.Time
	}
	return site, true, nil
}

// UpdateSiteScanned stamps a site's last_scanned_at to now.
func (s *Store) UpdateSiteScanned(ctx context.Context, siteID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`UPDATE sites SET last_scanned_at = CURRENT_TIMESTAMP WHERE id = ?;`, siteID)
	return err
}

// SetSiteDescription writes the homepage-derived company-info blurb for a
// site, used by C13's company-info extraction step (spec §4.13 step 5).
func (s *Store) SetSiteDescription(ctx context.Context, siteID int64, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`UPDATE sites SET description = ? WHERE id = ?;`, description, siteID)
	return err
}

// GetCareerURLs returns a site's career URLs, most-recently-successful
// first, optionally restricted to active ones.
func (s *Store) GetCareerURLs(ctx context.Context, siteID int64, activeOnly bool) ([]models.CareerUrl, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, site_id, url, platform, is_active, fail_count, last_success_at, last_fail_at, created_at
		FROM career_urls WHERE site_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY last_success_at DESC;`

	rows, err := s.db.QueryContext(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("store: get career urls: %w", err)
	}
	defer rows.Close()

	var out []models.CareerUrl
	for rows.Next() {
		var u models.CareerUrl
		var platform sql.NullString
		var lastSuccess, lastFail sql.NullTime
		if err := rows.Scan(&u.ID, &u.SiteID, &u.URL, &platform, &u.IsActive, &u.FailCount, &lastSuccess, &lastFail, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Platform = platform.String
		if lastSuccess.Valid {
			u.LastSuccessAt = lastSuccess.Time
		}
		if lastFail.Valid {
			u.LastFailAt = lastFail.Time
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// AddCareerURL inserts a new career URL or, if (site_id, url) already
// exists, reactivates it — mirroring the original's
// "INSERT ... ON CONFLICT DO UPDATE SET is_active=TRUE, fail_count=0".
func (s *Store) AddCareerURL(ctx context.Context, siteID int64, rawURL, platform string) (models.CareerUrl, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO career_urls (site_id, url, platform) VALUES (?, ?, ?)
		ON CONFLICT(site_id, url) DO UPDATE SET
			is_active = 1,
			fail_count = 0,
			platform = COALESCE(excluded.platform, platform);
	`, siteID, rawURL, nullIfEmpty(platform))
	if err != nil {
		return models.CareerUrl{}, fmt.Errorf("store: add career url: %w", err)
	}

	var u models.CareerUrl
	var p sql.NullString
	var lastSuccess, lastFail sql.NullTime
	err = s.db.QueryRowContext(ctx, `
		SELECT id, site_id, url, platform, is_active, fail_count, last_success_at, last_fail_at, created_at
		FROM career_urls WHERE site_id = ? AND url = ?;`, siteID, rawURL,
	).Scan(&u.ID, &u.SiteID, &u.URL, &p, &u.IsActive, &u.FailCount, &lastSuccess, &lastFail, &u.CreatedAt)
	if err != nil {
		return models.CareerUrl{}, fmt.Errorf("store: reread career url: %w", err)
	}
	u.Platform = p.String
	if lastSuccess.Valid {
		u.LastSuccessAt = lastSuccess.Time
	}
	if lastFail.Valid {
		u.LastFailAt = lastFail.Time
	}
	return u, nil
}

// MarkURLSuccess resets a career URL's failure counter and reactivates it
// unconditionally (spec §4.12).
func (s *Store) MarkURLSuccess(ctx context.Context, urlID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		UPDATE career_urls SET last_success_at = CURRENT_TIMESTAMP, fail_count = 0, is_active = 1
		WHERE id = ?;`, urlID)
	return err
}

// MarkURLFailed increments a career URL's failure counter, demoting it to
// inactive once it reaches MaxURLFailures. The returned bool reports
// whether the URL is now inactive.
func (s *Store) MarkURLFailed(ctx context.Context, urlID int64) (inactive bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err = s.db.ExecContext(ctx, `
		UPDATE career_urls SET fail_count = fail_count + 1, last_fail_at = CURRENT_TIMESTAMP
		WHERE id = ?;`, urlID); err != nil {
		return false, err
	}

	var failCount int
	if err = s.db.QueryRowContext(ctx, `SELECT fail_count FROM career_urls WHERE id = ?;`, urlID).Scan(&failCount); err != nil {
		return false, err
	}
	if failCount < MaxURLFailures {
		return false, nil
	}

	if _, err = s.db.ExecContext(ctx, `UPDATE career_urls SET is_active = 0 WHERE id = ?;`, urlID); err != nil {
		return false, err
	}
	s.logger.WithField("career_url_id", urlID).Warn("career url marked inactive after repeated failures")
	return true, nil
}

// PreviousJobCount returns the all-time job count ever recorded for a site
// (active and inactive), used by the suspicion heuristic.
func (s *Store) PreviousJobCount(ctx context.Context, siteID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE site_id = ?;`, siteID).Scan(&count)
	return count, err
}

// GetActiveJobs returns every currently-active job for a site, newest
// first, for reporting/export after a scan (repository.py's get_active_jobs).
func (s *Store) GetActiveJobs(ctx context.Context, siteID int64) ([]models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, site_id, external_id, title, title_en, company, location, url, description,
		       salary_from, salary_to, salary_currency, experience, employment_type, skills,
		       extraction_method, extraction_details, first_seen_at, last_seen_at, is_active
		FROM jobs WHERE site_id = ? AND is_active = 1 ORDER BY last_seen_at DESC;`, siteID)
	if err != nil {
		return nil, fmt.Errorf("store: get active jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// IsCacheSuspicious implements the suspicion heuristic of spec §4.12: a
// zero-job extraction from a site that has historically had more than
// SuspicionThreshold jobs is more likely a broken cached URL than a
// genuine empty listing.
func (s *Store) IsCacheSuspicious(ctx context.Context, siteID int64, extractedJobCount int) (bool, error) {
	if extractedJobCount > 0 {
		return false, nil
	}
	previous, err := s.PreviousJobCount(ctx, siteID)
	if err != nil {
		return false, err
	}
	return previous > SuspicionThreshold, nil
}

// existingJob is the subset of a jobs row the Sync algorithm compares
// against a JobCandidate.
type existingJob struct {
	models.Job
}

// Sync reconciles currentJobs (freshly extracted) against everything
// previously known for siteID, in a single transaction, per spec §4.12's
// five-step algorithm.
func (s *Store) Sync(ctx context.Context, siteID int64, currentJobs []models.JobCandidate) (models.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("store: begin sync tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, site_id, external_id, title, title_en, company, location, url, description,
		       salary_from, salary_to, salary_currency, experience, employment_type, skills,
		       extraction_method, extraction_details, first_seen_at, last_seen_at, is_active
		FROM jobs WHERE site_id = ?;`, siteID)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("store: fetch existing jobs: %w", err)
	}
	existingByKey := make(map[string]existingJob)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			rows.Close()
			return models.SyncResult{}, err
		}
		existingByKey[normalize.PersistenceKey(j.Title, j.Location)] = existingJob{j}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return models.SyncResult{}, err
	}
	rows.Close()

	result := models.SyncResult{FirstScan: len(existingByKey) == 0}
	now := time.Now()
	seen := make(map[string]bool, len(currentJobs))

	for _, candidate := range currentJobs {
		key := normalize.PersistenceKey(candidate.Title, candidate.Location)
		seen[key] = true

		if existing, ok := existingByKey[key]; ok {
			if _, err := tx.ExecContext(ctx, `UPDATE jobs SET last_seen_at = ? WHERE id = ?;`, now, existing.ID); err != nil {
				return models.SyncResult{}, err
			}
			if !existing.IsActive {
				if _, err := tx.ExecContext(ctx, `UPDATE jobs SET is_active = 1 WHERE id = ?;`, existing.ID); err != nil {
					return models.SyncResult{}, err
				}
				if err := addHistoryEvent(ctx, tx, existing.ID, models.HistoryReactivated, "job reappeared after being removed"); err != nil {
					return models.SyncResult{}, err
				}
				existing.IsActive = true
				existing.LastSeenAt = now
				result.Reactivated = append(result.Reactivated, existing.Job)
			}
			continue
		}

		job := candidateToJob(siteID, candidate, now)
		id, err := insertJob(ctx, tx, job)
		if err != nil {
			return models.SyncResult{}, err
		}
		job.ID = id
		if err := addHistoryEvent(ctx, tx, id, models.HistoryAdded, ""); err != nil {
			return models.SyncResult{}, err
		}
		result.New = append(result.New, job)
	}

	for key, existing := range existingByKey {
		if seen[key] || !existing.IsActive {
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE jobs SET is_active = 0 WHERE id = ?;`, existing.ID); err != nil {
			return models.SyncResult{}, err
		}
		if err := addHistoryEvent(ctx, tx, existing.ID, models.HistoryRemoved, "job no longer found on site"); err != nil {
			return models.SyncResult{}, err
		}
		existing.IsActive = false
		result.Removed = append(result.Removed, existing.Job)
	}

	if err := tx.Commit(); err != nil {
		return models.SyncResult{}, fmt.Errorf("store: commit sync: %w", err)
	}
	return result, nil
}

func candidateToJob(siteID int64, c models.JobCandidate, now time.Time) models.Job {
	details := map[string]any{}
	if c.Department != "" {
		details["department"] = c.Department
	}
	if c.Confidence != 0 {
		details["confidence"] = c.Confidence
	}
	if len(c.Signals) > 0 {
		details["signals"] = c.Signals
	}
	method := string(c.Source)
	if c.Source == models.ExtractionJobBoard && c.Platform != "" {
		method = method + ":" + c.Platform
	}
	return models.Job{
		SiteID:            siteID,
		ExternalID:        c.URL,
		Title:             c.Title,
		Company:           c.Company,
		Location:          c.Location,
		URL:               c.URL,
		ExtractionMethod:  method,
		ExtractionDetails: details,
		FirstSeenAt:       now,
		LastSeenAt:        now,
		IsActive:          true,
	}
}

func insertJob(ctx context.Context, tx *sql.Tx, j models.Job) (int64, error) {
	skillsJSON, err := json.Marshal(j.Skills)
	if err != nil {
		return 0, fmt.Errorf("store: marshal skills: %w", err)
	}
	detailsJSON, err := json.Marshal(j.ExtractionDetails)
	if err != nil {
		return 0, fmt.Errorf("store: marshal extraction details: %w", err)
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO jobs (
			site_id, external_id, title, title_en, company, location, url, description,
			salary_from, salary_to, salary_currency, experience, employment_type, skills,
			extraction_method, extraction_details, first_seen_at, last_seen_at, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1);`,
		j.SiteID, j.ExternalID, j.Title, j.TitleEN, j.Company, j.Location, j.URL, j.Description,
		j.SalaryFrom, j.SalaryTo, j.SalaryCurrency, j.Experience, j.EmploymentType, string(skillsJSON),
		j.ExtractionMethod, string(detailsJSON), j.FirstSeenAt, j.LastSeenAt,
	)
	if err != nil {
		return 0, fmt.Errorf("store: insert job: %w", err)
	}
	return res.LastInsertId()
}

func addHistoryEvent(ctx context.Context, tx *sql.Tx, jobID int64, event models.JobHistoryEventKind, details string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO job_history (job_id, event, details) VALUES (?, ?, ?);`, jobID, string(event), details)
	return err
}

// scanJob scans one jobs row (as selected by Sync's query) into a Job.
func scanJob(rows *sql.Rows) (models.Job, error) {
	var j models.Job
	var skillsJSON, detailsJSON string
	var salaryFrom, salaryTo sql.NullInt64
	if err := rows.Scan(
		&j.ID, &j.SiteID, &j.ExternalID, &j.Title, &j.TitleEN, &j.Company, &j.Location, &j.URL, &j.Description,
		&salaryFrom, &salaryTo, &j.SalaryCurrency, &j.Experience, &j.EmploymentType, &skillsJSON,
		&j.ExtractionMethod, &detailsJSON, &j.FirstSeenAt, &j.LastSeenAt, &j.IsActive,
	); err != nil {
		return models.Job{}, fmt.Errorf("store: scan job: %w", err)
	}
	if salaryFrom.Valid {
		v := int(salaryFrom.Int64)
		j.SalaryFrom = &v
	}
	if salaryTo.Valid {
		v := int(salaryTo.Int64)
		j.SalaryTo = &v
	}
	if skillsJSON != "" {
		_ = json.Unmarshal([]byte(skillsJSON), &j.Skills)
	}
	if detailsJSON != "" {
		_ = json.Unmarshal([]byte(detailsJSON), &j.ExtractionDetails)
	}
	return j, nil
}

// GetJobHistory returns the most recent job-history events for a site (or
// every site if siteID is 0), newest first.
func (s *Store) GetJobHistory(ctx context.Context, siteID int64, limit int) ([]models.JobHistoryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT jh.id, jh.job_id, jh.event, jh.changed_at, jh.details
		FROM job_history jh JOIN jobs j ON jh.job_id = j.id`
	args := []any{}
	if siteID != 0 {
		query += ` WHERE j.site_id = ?`
		args = append(args, siteID)
	}
	query += ` ORDER BY jh.changed_at DESC LIMIT ?;`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: get job history: %w", err)
	}
	defer rows.Close()

	var out []models.JobHistoryEvent
	for rows.Next() {
		var e models.JobHistoryEvent
		var event string
		if err := rows.Scan(&e.ID, &e.JobID, &event, &e.ChangedAt, &e.Details); err != nil {
			return nil, err
		}
		e.Event = models.JobHistoryEventKind(event)
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetLLMCacheEntry reads a cached LLM response by key, satisfying the
// bit-stable llm_cache schema of spec §6 even though the live LLM Cache
// (internal/llmcache) is backed by redis with an in-process fallback; this
// table exists for the cases callers choose sqlite-backed persistence of
// cache entries (e.g. offline batch runs without a redis instance).
func (s *Store) GetLLMCacheEntry(ctx context.Context, key string) (models.LLMCacheEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var e models.LLMCacheEntry
	err := s.db.QueryRowContext(ctx, `
		SELECT key, namespace, value, model, ttl_seconds, created_at, hit_count, tokens_saved
		FROM llm_cache WHERE key = ?;`, key,
	).Scan(&e.Key, &e.Namespace, &e.Payload, &e.Model, &e.TTLSeconds, &e.CreatedAt, &e.HitCount, &e.TokensSaved)
	if err == sql.ErrNoRows {
		return models.LLMCacheEntry{}, false, nil
	}
	if err != nil {
		return models.LLMCacheEntry{}, false, fmt.Errorf("store: get llm cache entry: %w", err)
	}
	if time.Since(e.CreatedAt) > time.Duration(e.TTLSeconds)*time.Second {
		return models.LLMCacheEntry{}, false, nil
	}
	return e, true, nil
}

// SetLLMCacheEntry upserts a cached LLM response.
func (s *Store) SetLLMCacheEntry(ctx context.Context, e models.LLMCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO llm_cache (key, namespace, value, model, ttl_seconds, hit_count, tokens_saved)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			model = excluded.model,
			ttl_seconds = excluded.ttl_seconds,
			hit_count = excluded.hit_count,
			tokens_saved = excluded.tokens_saved;
	`, e.Key, e.Namespace, e.Payload, e.Model, e.TTLSeconds, e.HitCount, e.TokensSaved)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
