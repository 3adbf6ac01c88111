package enrich

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/weaver/internal/health"
	"github.com/scrypster/weaver/internal/resolve"
	"github.com/scrypster/weaver/internal/store"
	"github.com/scrypster/weaver/pkg/types"
)

// Mode selects which pipeline stages run.
type Mode string

const (
	// ModeQuick runs body-mention extraction only.
	ModeQuick Mode = "quick"
	// ModeFull runs mentions, external sources, and embedding inference.
	ModeFull Mode = "full"
	// ModeExternal runs external-source extraction only.
	ModeExternal Mode = "external"
	// ModeSkip runs no enrichment stage, reporting health only.
	ModeSkip Mode = "skip"
)

// FreshGraphThreshold is the minimum entity count for enrichment to run.
// Below it the orchestrator short-circuits with a warning: enriching a
// near-empty graph mostly manufactures noise edges between the few records
// that exist.
const FreshGraphThreshold = 5

// Stage names, in their fixed execution order.
const (
	StageMentions  = "mentions"
	StageExternal  = "external"
	StageEmbedding = "embedding"
)

// Options configures one enrichment run.
type Options struct {
	Mode        Mode
	EntityTypes []string // restrict source entities to these types; empty = all
	DryRun      bool
	Threshold   float64 // similarity threshold for the embedding stage
	EdgeLimit   int     // max inferred edges per run
}

// StageReport records one stage's outcome. A failed stage never prevents
// later stages from running; its errors are recorded here instead.
type StageReport struct {
	Name     string   `json:"name"`
	Ran      bool     `json:"ran"`
	Proposed int      `json:"proposed"`
	Created  int      `json:"created"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// RunReport is the result of one enrichment run, including health metrics
// measured before and after the whole pass.
type RunReport struct {
	RunID               string         `json:"run_id"`
	Mode                Mode           `json:"mode"`
	DryRun              bool           `json:"dry_run"`
	StartedAt           time.Time      `json:"started_at"`
	FinishedAt          time.Time      `json:"finished_at"`
	Warning             string         `json:"warning,omitempty"`
	Stages              []StageReport  `json:"stages"`
	CreatedByProvenance map[string]int `json:"created_by_provenance"`
	AliasCollisions     int            `json:"alias_collisions"`

	Before *health.Report `json:"before"`
	After  *health.Report `json:"after"`
}

// OrphansReduced returns how many orphans the run eliminated.
func (r *RunReport) OrphansReduced() int {
	if r.Before == nil || r.After == nil {
		return 0
	}
	return r.Before.OrphanCount - r.After.OrphanCount
}

// RunRecorder persists run reports (see internal/history). Optional.
type RunRecorder interface {
	RecordRun(ctx context.Context, report *RunReport) error
}

// Orchestrator runs the enrichment stages in fixed order: body-mention
// extraction, then external-source extraction, then embedding inference.
// Each stage is independently skippable by mode, and a failure in one stage
// is recorded and does not stop the next.
type Orchestrator struct {
	store     *store.Store
	resolver  *resolve.Resolver
	builder   *RelationshipBuilder
	inferrer  *EdgeInferrer
	externals []MentionSource
	recorder  RunRecorder
}

// NewOrchestrator wires an orchestrator. externals and recorder may be nil.
func NewOrchestrator(s *store.Store, r *resolve.Resolver, builder *RelationshipBuilder, inferrer *EdgeInferrer, externals []MentionSource, recorder RunRecorder) *Orchestrator {
	return &Orchestrator{
		store:     s,
		resolver:  r,
		builder:   builder,
		inferrer:  inferrer,
		externals: externals,
		recorder:  recorder,
	}
}

// Run executes one enrichment pass and returns its report. Entity-level
// errors are counted in stage reports; only a failure to read the
// collection itself returns an error.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*RunReport, error) {
	if opts.Mode == "" {
		opts.Mode = ModeQuick
	}

	report := &RunReport{
		RunID:               "run:" + uuid.NewString(),
		Mode:                opts.Mode,
		DryRun:              opts.DryRun,
		StartedAt:           time.Now().UTC(),
		CreatedByProvenance: make(map[string]int),
	}

	o.resolver.Invalidate()
	index, err := o.resolver.BuildIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build alias index: %w", err)
	}
	entities := o.resolver.Entities()
	report.AliasCollisions = len(index.Collisions())
	report.Before = health.Compute(entities)

	if len(entities) < FreshGraphThreshold {
		report.Warning = fmt.Sprintf(
			"graph has only %d entities (minimum %d); skipping enrichment on a fresh graph",
			len(entities), FreshGraphThreshold)
		log.Printf("enrich: %s", report.Warning)
		report.After = report.Before
		report.FinishedAt = time.Now().UTC()
		o.record(ctx, report)
		return report, nil
	}

	candidates := filterByType(entities, opts.EntityTypes)

	if opts.Mode == ModeQuick || opts.Mode == ModeFull {
		stage := o.runSourceStage(ctx, StageMentions, []MentionSource{NewBodySource(index)}, candidates, opts, report)
		report.Stages = append(report.Stages, stage)
	}
	if opts.Mode == ModeExternal || opts.Mode == ModeFull {
		stage := o.runSourceStage(ctx, StageExternal, o.externals, candidates, opts, report)
		report.Stages = append(report.Stages, stage)
	}
	if opts.Mode == ModeFull {
		stage := o.runEmbeddingStage(ctx, candidates, opts, report)
		report.Stages = append(report.Stages, stage)
	}

	o.resolver.Invalidate()
	after, _, err := o.store.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to rescan collection: %w", err)
	}
	report.After = health.Compute(after)
	report.FinishedAt = time.Now().UTC()

	log.Printf("enrich: run %s finished (mode=%s, created=%v, orphans %d -> %d)",
		report.RunID, report.Mode, report.CreatedByProvenance,
		report.Before.OrphanCount, report.After.OrphanCount)

	o.record(ctx, report)
	return report, nil
}

// runSourceStage drives one or more MentionSources over the candidate
// entities, creating bidirectional relationships for every candidate they
// propose.
func (o *Orchestrator) runSourceStage(ctx context.Context, name string, sources []MentionSource, entities []*types.Entity, opts Options, report *RunReport) StageReport {
	stage := StageReport{Name: name, Ran: true}
	index, err := o.resolver.BuildIndex(ctx)
	if err != nil {
		stage.Errors = append(stage.Errors, err.Error())
		return stage
	}

	for _, source := range sources {
		for _, entity := range entities {
			if ctx.Err() != nil {
				stage.Errors = append(stage.Errors, ctx.Err().Error())
				return stage
			}
			found, err := source.ExtractCandidates(ctx, entity)
			if err != nil {
				stage.Errors = append(stage.Errors,
					fmt.Sprintf("%s: %s: %v", source.Name(), entity.ID, err))
				continue
			}

			for _, candidate := range found {
				stage.Proposed++
				if opts.DryRun {
					continue
				}

				pair := types.InferRelationTypes(
					index.EntityType(entity.ID), index.EntityType(candidate.TargetID))
				result := o.builder.CreateBidirectional(
					entity.ID, candidate.TargetID, pair.Forward,
					candidate.Confidence, candidate.Provenance,
					map[string]interface{}{"context": candidate.Context})

				if result.ForwardCreated {
					stage.Created++
					report.CreatedByProvenance[candidate.Provenance]++
				}
				if result.InverseCreated {
					report.CreatedByProvenance[candidate.Provenance]++
				}
				if result.ForwardError != "" {
					stage.Errors = append(stage.Errors, result.ForwardError)
				}
				if result.InverseError != "" {
					stage.Errors = append(stage.Errors, result.InverseError)
				}
			}
		}
	}
	return stage
}

// runEmbeddingStage scans for similar_to edges and applies them.
func (o *Orchestrator) runEmbeddingStage(ctx context.Context, entities []*types.Entity, opts Options, report *RunReport) StageReport {
	stage := StageReport{Name: StageEmbedding, Ran: true}

	edges, warnings, err := o.inferrer.ScanForEdges(ctx, entities, opts.Threshold, opts.EdgeLimit)
	stage.Warnings = append(stage.Warnings, warnings...)
	if err != nil {
		stage.Errors = append(stage.Errors, err.Error())
		return stage
	}
	stage.Proposed = len(edges)

	applied, errs := o.inferrer.ApplyEdges(edges, opts.DryRun)
	stage.Errors = append(stage.Errors, errs...)
	if !opts.DryRun {
		stage.Created = applied
		report.CreatedByProvenance[types.SourceAutoEmbedding] += applied
	}
	return stage
}

func (o *Orchestrator) record(ctx context.Context, report *RunReport) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordRun(ctx, report); err != nil {
		log.Printf("enrich: failed to record run %s: %v", report.RunID, err)
	}
}

func filterByType(entities []*types.Entity, entityTypes []string) []*types.Entity {
	if len(entityTypes) == 0 {
		return entities
	}
	allowed := make(map[string]bool, len(entityTypes))
	for _, t := range entityTypes {
		allowed[t] = true
	}
	filtered := make([]*types.Entity, 0, len(entities))
	for _, e := range entities {
		if allowed[e.KnownType()] {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
