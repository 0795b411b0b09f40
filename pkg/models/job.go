package models

import (
	"time"

	"jobradar/internal/normalize"
)

// ExtractionMethod tags how a Job or JobCandidate was produced.
type ExtractionMethod string

const (
	ExtractionSchemaOrg ExtractionMethod = "schema_org"
	ExtractionPdfLink   ExtractionMethod = "pdf_link"
	ExtractionJobBoard  ExtractionMethod = "job_board" // combined with ":<platform>" at call sites
	ExtractionLLM       ExtractionMethod = "llm"
	ExtractionGender    ExtractionMethod = "gender_notation"
	ExtractionList      ExtractionMethod = "list_structure"
	ExtractionKeyword   ExtractionMethod = "keyword_match"
)

// Site is one company domain under scan.
type Site struct {
	ID            int64
	Domain        string // canonical: lowercase, no "www."
	Name          string
	Description   string
	CreatedAt     time.Time
	LastScannedAt time.Time
}

// CareerUrl is a discovered entry-point URL into a company's job listings.
type CareerUrl struct {
	ID            int64
	SiteID        int64
	URL           string // canonicalized: scheme+host+path, query/fragment stripped
	Platform      string // nullable; e.g. "personio", "greenhouse", "odoo"
	IsActive      bool
	FailCount     int
	LastSuccessAt time.Time
	LastFailAt    time.Time
	CreatedAt     time.Time
}

// Job is one externally-observed vacancy.
type Job struct {
	ID                int64
	SiteID            int64
	ExternalID        string
	Title             string
	TitleEN           string
	Company           string
	Location          string
	URL               string
	Description       string
	SalaryFrom        *int
	SalaryTo          *int
	SalaryCurrency    string
	Experience        string
	EmploymentType    string
	Skills            []string
	ExtractionMethod  string
	ExtractionDetails map[string]any
	FirstSeenAt       time.Time
	LastSeenAt        time.Time
	IsActive          bool
}

// JobHistoryEventKind enumerates JobHistoryEvent.Event values.
type JobHistoryEventKind string

const (
	HistoryAdded       JobHistoryEventKind = "added"
	HistoryRemoved     JobHistoryEventKind = "removed"
	HistoryReactivated JobHistoryEventKind = "reactivated"
	HistoryUpdated     JobHistoryEventKind = "updated"
)

// JobHistoryEvent is an append-only audit record for a Job's lifecycle.
type JobHistoryEvent struct {
	ID        int64
	JobID     int64
	Event     JobHistoryEventKind
	ChangedAt time.Time
	Details   string
}

// LLMCacheEntry is a memoized LLM call result.
type LLMCacheEntry struct {
	Key         string // 32-hex SHA-256(namespace:model:content)
	Namespace   string
	Payload     string // JSON
	Model       string
	TTLSeconds  int
	CreatedAt   time.Time
	HitCount    int
	TokensSaved int
}

// JobCandidate is a transient, in-memory extracted job before it crosses
// into the persistence boundary and becomes a Job.
type JobCandidate struct {
	Title      string
	URL        string
	Location   string
	Department string
	Company    string
	Source     ExtractionMethod
	Platform   string // set when Source == ExtractionJobBoard
	Confidence float64
	Signals    map[string]bool
}

// NormalizedTitle returns the extraction-time dedup key for this candidate.
// This is distinct from the persistence-layer normalization in internal/normalize.
func (c JobCandidate) NormalizedTitle() string {
	return normalize.CandidateTitle(c.Title)
}

// SyncResult describes the delta produced by one Persistence.Sync call.
type SyncResult struct {
	New         []Job
	Removed     []Job
	Reactivated []Job
	FirstScan   bool
}
