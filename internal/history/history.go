// Package history persists enrichment run reports in a small sqlite
// database so weaver-enrich --status can show what past runs did. The
// database is an operational cache, never a source of truth for the graph.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/scrypster/weaver/internal/enrich"
)

const schema = `
CREATE TABLE IF NOT EXISTS enrichment_runs (
	run_id        TEXT PRIMARY KEY,
	mode          TEXT NOT NULL,
	dry_run       INTEGER NOT NULL DEFAULT 0,
	started_at    TEXT NOT NULL,
	finished_at   TEXT NOT NULL,
	warning       TEXT,
	entities      INTEGER NOT NULL,
	created_total INTEGER NOT NULL,
	orphans_before  INTEGER NOT NULL,
	orphans_after   INTEGER NOT NULL,
	density_before  REAL NOT NULL,
	density_after   REAL NOT NULL,
	stages_json     TEXT NOT NULL,
	provenance_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON enrichment_runs(started_at);
`

// Store is the sqlite-backed run history.
type Store struct {
	db *sql.DB
}

// RunSummary is one row of the history, as shown by --status.
type RunSummary struct {
	RunID         string         `json:"run_id"`
	Mode          string         `json:"mode"`
	DryRun        bool           `json:"dry_run"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	Warning       string         `json:"warning,omitempty"`
	Entities      int            `json:"entities"`
	CreatedTotal  int            `json:"created_total"`
	OrphansBefore int            `json:"orphans_before"`
	OrphansAfter  int            `json:"orphans_after"`
	DensityBefore float64        `json:"density_before"`
	DensityAfter  float64        `json:"density_after"`
	Provenance    map[string]int `json:"created_by_provenance"`
}

// Open opens (creating if needed) the history database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// RecordRun implements enrich.RunRecorder.
func (s *Store) RecordRun(ctx context.Context, report *enrich.RunReport) error {
	stagesJSON, err := json.Marshal(report.Stages)
	if err != nil {
		return fmt.Errorf("failed to encode stages: %w", err)
	}
	provenanceJSON, err := json.Marshal(report.CreatedByProvenance)
	if err != nil {
		return fmt.Errorf("failed to encode provenance counts: %w", err)
	}

	createdTotal := 0
	for _, n := range report.CreatedByProvenance {
		createdTotal += n
	}

	var entities int
	var orphansBefore, orphansAfter int
	var densityBefore, densityAfter float64
	if report.Before != nil {
		entities = report.Before.TotalEntities
		orphansBefore = report.Before.OrphanCount
		densityBefore = report.Before.DensityScore
	}
	if report.After != nil {
		orphansAfter = report.After.OrphanCount
		densityAfter = report.After.DensityScore
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO enrichment_runs (
			run_id, mode, dry_run, started_at, finished_at, warning,
			entities, created_total,
			orphans_before, orphans_after, density_before, density_after,
			stages_json, provenance_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.RunID, string(report.Mode), boolToInt(report.DryRun),
		report.StartedAt.UTC().Format(time.RFC3339),
		report.FinishedAt.UTC().Format(time.RFC3339),
		report.Warning, entities, createdTotal,
		orphansBefore, orphansAfter, densityBefore, densityAfter,
		string(stagesJSON), string(provenanceJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// LatestRuns returns the most recent runs, newest first.
func (s *Store) LatestRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, mode, dry_run, started_at, finished_at, warning,
		       entities, created_total,
		       orphans_before, orphans_after, density_before, density_after,
		       provenance_json
		FROM enrichment_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var r RunSummary
		var dryRun int
		var started, finished string
		var warning sql.NullString
		var provenanceJSON string
		if err := rows.Scan(&r.RunID, &r.Mode, &dryRun, &started, &finished, &warning,
			&r.Entities, &r.CreatedTotal,
			&r.OrphansBefore, &r.OrphansAfter, &r.DensityBefore, &r.DensityAfter,
			&provenanceJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		r.DryRun = dryRun != 0
		r.Warning = warning.String
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		if err := json.Unmarshal([]byte(provenanceJSON), &r.Provenance); err != nil {
			r.Provenance = nil
		}
		summaries = append(summaries, r)
	}
	return summaries, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
