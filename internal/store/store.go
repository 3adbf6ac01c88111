// Package store implements the file-backed entity collection: one markdown
// record per entity with a YAML frontmatter header. The entity files are the
// source of truth for the graph; every index built over them is derived and
// disposable.
//
// There is no locking protocol. Writes are plain read-modify-write, so
// callers must serialize enrichment runs against the same collection.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scrypster/weaver/pkg/types"
)

// ErrNotFound is returned when an entity ID has no backing record.
var ErrNotFound = errors.New("entity not found")

// ErrParse is returned (wrapped) for records with a malformed or missing
// structured header. Scans skip and count these rather than aborting.
var ErrParse = errors.New("record parse error")

// reservedNames are base filenames (without extension, lowercased) excluded
// from collection scans.
var reservedNames = map[string]bool{
	"readme":   true,
	"index":    true,
	"_index":   true,
	"registry": true,
}

// excludedDirs are directory names whose subtrees are excluded from scans.
var excludedDirs = map[string]bool{
	"snapshots": true,
	"schema":    true,
}

// Store reads and writes entity records under a collection root.
type Store struct {
	root string

	// paths maps entity ID to the file it was loaded from. Populated by
	// Scan; ids never scanned fall back to the canonical layout
	// root/<type>/<slug>.md.
	paths map[string]string
}

// New creates a store over the given collection root. The root must exist;
// a missing root is a configuration error and fatal to the caller.
func New(root string) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("collection root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("collection root %s is not a directory", root)
	}
	return &Store{root: root, paths: make(map[string]string)}, nil
}

// Root returns the collection root path.
func (s *Store) Root() string {
	return s.root
}

// ScanReport summarizes a collection scan.
type ScanReport struct {
	FilesSeen   int
	Parsed      int
	ParseErrors int
	Skipped     int // reserved names and excluded directories
	Errors      []string
}

// Scan walks the collection and parses every entity record, skipping
// reserved filenames and excluded directories. Unparseable records are
// counted and logged, never fatal: a single bad file must not abort a batch.
func (s *Store) Scan(ctx context.Context) ([]*types.Entity, *ScanReport, error) {
	report := &ScanReport{}
	var entities []*types.Entity
	seen := make(map[string]string) // id -> first path, for duplicate detection

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			name := d.Name()
			if path != s.root && (excludedDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		report.FilesSeen++

		base := strings.TrimSuffix(strings.ToLower(d.Name()), ".md")
		if reservedNames[base] {
			report.Skipped++
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			report.ParseErrors++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", path, err))
			return nil
		}

		entity, err := ParseRecord(data)
		if err != nil {
			report.ParseErrors++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", path, err))
			log.Printf("store: skipping unparseable record %s: %v", path, err)
			return nil
		}

		if first, dup := seen[entity.ID]; dup {
			// Two records sharing an ID violates the uniqueness invariant.
			// First record wins; the duplicate is reported and skipped.
			report.Errors = append(report.Errors,
				fmt.Sprintf("%s: duplicate id %s (first seen in %s)", path, entity.ID, first))
			log.Printf("store: duplicate entity id %s in %s (keeping %s)", entity.ID, path, first)
			report.Skipped++
			return nil
		}
		seen[entity.ID] = path
		s.paths[entity.ID] = path
		entities = append(entities, entity)
		report.Parsed++
		return nil
	})
	if err != nil {
		return nil, report, fmt.Errorf("failed to scan collection: %w", err)
	}
	return entities, report, nil
}

// Load reads one entity by ID. Returns ErrNotFound if no backing record
// exists at the known or canonical path.
func (s *Store) Load(id string) (*types.Entity, error) {
	path, ok := s.paths[id]
	if !ok {
		path = s.CanonicalPath(id)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	entity, err := ParseRecord(data)
	if err != nil {
		return nil, err
	}
	s.paths[entity.ID] = path
	return entity, nil
}

// Path returns the backing file location for an entity ID, preferring the
// path recorded by the last scan.
func (s *Store) Path(id string) string {
	if path, ok := s.paths[id]; ok {
		return path
	}
	return s.CanonicalPath(id)
}

// CanonicalPath maps an entity ID onto the default collection layout:
// entity/<type>/<slug> lives at <root>/<type>/<slug>.md.
func (s *Store) CanonicalPath(id string) string {
	rel := strings.TrimPrefix(id, "entity/")
	return filepath.Join(s.root, filepath.FromSlash(rel)+".md")
}

// Save serializes the entity and writes it to its backing file, creating
// parent directories as needed. Save performs no bookkeeping; use Commit for
// enrichment writes.
func (s *Store) Save(e *types.Entity) error {
	data, err := EncodeRecord(e)
	if err != nil {
		return err
	}
	path := s.Path(e.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	s.paths[e.ID] = path
	return nil
}

// Commit applies the once-per-write bookkeeping and persists the entity:
// appends exactly one audit event, bumps the version and updated timestamp,
// and recomputes the freshness/completeness confidence score. Multiple
// relationship changes in one Commit still cost one event and one bump.
func (s *Store) Commit(e *types.Entity, event types.Event) error {
	e.Events = append(e.Events, event)
	e.Version++
	e.UpdatedAt = time.Now().UTC()
	e.Confidence = RecomputeConfidence(e)
	return s.Save(e)
}
