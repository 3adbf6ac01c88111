// Command weaver-enrich runs the enrichment pipeline over the entity
// collection: body-mention extraction, external feeds, and embedding-based
// similar_to inference, depending on --mode. With --watch it keeps running
// and re-enriches after the collection changes; --status prints recent runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/scrypster/weaver/internal/config"
	"github.com/scrypster/weaver/internal/enrich"
	"github.com/scrypster/weaver/internal/history"
	"github.com/scrypster/weaver/internal/match"
	"github.com/scrypster/weaver/internal/notify"
	"github.com/scrypster/weaver/internal/resolve"
	"github.com/scrypster/weaver/internal/similarity"
	"github.com/scrypster/weaver/internal/sources"
	"github.com/scrypster/weaver/internal/store"
	"github.com/scrypster/weaver/pkg/types"
)

var (
	rootFlag    = flag.String("root", "", "Collection root (overrides WEAVER_COLLECTION_ROOT)")
	modeFlag    = flag.String("mode", "quick", "Enrichment mode: quick, full, external, or skip")
	statusFlag  = flag.Bool("status", false, "Print recent enrichment runs and exit")
	entityTypes = flag.String("entity-types", "", "Comma-separated entity types to enrich (default: all)")
	dryRun      = flag.Bool("dry-run", false, "Report proposals without writing")
	watchFlag   = flag.Bool("watch", false, "Keep running and re-enrich after collection changes")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *rootFlag != "" {
		cfg.Collection.Root = *rootFlag
		cfg.History.Path = filepath.Join(cfg.Collection.Root, ".weaver", "history.db")
	}

	if *statusFlag {
		printStatus(cfg)
		return
	}

	mode, err := parseMode(*modeFlag)
	if err != nil {
		log.Fatalf("%v", err)
	}

	s, err := store.New(cfg.Collection.Root)
	if err != nil {
		log.Fatalf("Failed to open collection: %v", err)
	}

	recorder := openHistory(cfg)
	orchestrator, cleanup := buildOrchestrator(cfg, s, recorder)
	defer cleanup()

	opts := enrich.Options{
		Mode:      mode,
		DryRun:    *dryRun,
		Threshold: cfg.Embedding.Threshold,
		EdgeLimit: cfg.Embedding.EdgeLimit,
	}
	for _, t := range strings.Split(*entityTypes, ",") {
		if t = strings.TrimSpace(t); t != "" {
			opts.EntityTypes = append(opts.EntityTypes, t)
		}
	}

	ctx := context.Background()
	if !*watchFlag {
		report, err := orchestrator.Run(ctx, opts)
		if err != nil {
			log.Fatalf("Enrichment failed: %v", err)
		}
		printReport(report)
		return
	}

	runWatch(ctx, cfg, orchestrator, opts)
}

func parseMode(value string) (enrich.Mode, error) {
	switch enrich.Mode(value) {
	case enrich.ModeQuick, enrich.ModeFull, enrich.ModeExternal, enrich.ModeSkip:
		return enrich.Mode(value), nil
	}
	return "", fmt.Errorf("invalid mode %q (want quick, full, external, or skip)", value)
}

// openHistory opens the run-history store, or returns nil when it cannot be
// created. History is bookkeeping; enrichment runs without it.
func openHistory(cfg *config.Config) *history.Store {
	if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o755); err != nil {
		log.Printf("enrich: cannot create history directory: %v", err)
		return nil
	}
	h, err := history.Open(cfg.History.Path)
	if err != nil {
		log.Printf("enrich: run history disabled: %v", err)
		return nil
	}
	return h
}

func buildOrchestrator(cfg *config.Config, s *store.Store, recorder *history.Store) (*enrich.Orchestrator, func()) {
	matcher := match.NewMatcher(match.Options{
		AutoThreshold: cfg.Matching.AutoThreshold,
		AskThreshold:  cfg.Matching.AskThreshold,
	})
	resolver := resolve.NewResolver(s, matcher)
	builder := enrich.NewRelationshipBuilder(s, cfg.Collection.Actor)

	var cache similarity.VectorCache
	if cfg.Embedding.PostgresDSN != "" {
		c, err := similarity.NewPgVectorCache(cfg.Embedding.PostgresDSN)
		if err != nil {
			log.Printf("enrich: vector cache unavailable, continuing without: %v", err)
		} else {
			cache = c
		}
	}
	provider := similarity.NewEmbeddingProvider(similarity.EmbeddingConfig{
		URL:               cfg.Embedding.OllamaURL,
		Model:             cfg.Embedding.Model,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		Cache:             cache,
	})
	inferrer := enrich.NewEdgeInferrer(s, provider, cfg.Collection.Actor)

	var externals []enrich.MentionSource
	for provenance, url := range map[string]string{
		types.SourceJira:   cfg.Feeds.JiraURL,
		types.SourceGitHub: cfg.Feeds.GitHubURL,
		types.SourceSlack:  cfg.Feeds.SlackURL,
		types.SourceGDocs:  cfg.Feeds.GDocsURL,
	} {
		if url == "" {
			continue
		}
		externals = append(externals, sources.NewFeed(sources.FeedConfig{
			Provenance: provenance,
			URL:        url,
		}, resolver))
	}

	var runRecorder enrich.RunRecorder
	if recorder != nil {
		runRecorder = recorder
	}

	cleanup := func() {
		if cache != nil {
			cache.Close()
		}
		if recorder != nil {
			recorder.Close()
		}
	}
	return enrich.NewOrchestrator(s, resolver, builder, inferrer, externals, runRecorder), cleanup
}

// runWatch re-enriches whenever the collection changes, until interrupted.
func runWatch(ctx context.Context, cfg *config.Config, orchestrator *enrich.Orchestrator, opts enrich.Options) {
	trigger := make(chan struct{}, 1)
	watcher := notify.NewCollectionWatcher(
		cfg.Collection.Root,
		time.Duration(cfg.Watch.DebounceSeconds)*time.Second,
		func() {
			select {
			case trigger <- struct{}{}:
			default:
			}
		})
	if err := watcher.Start(); err != nil {
		log.Fatalf("Failed to start watcher: %v", err)
	}
	defer watcher.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Initial pass, then one pass per quiet period.
	trigger <- struct{}{}
	for {
		select {
		case <-trigger:
			report, err := orchestrator.Run(ctx, opts)
			if err != nil {
				log.Printf("enrich: run failed: %v", err)
				continue
			}
			printReport(report)
		case sig := <-stop:
			log.Printf("enrich: received %v, shutting down", sig)
			return
		}
	}
}

func printStatus(cfg *config.Config) {
	h, err := history.Open(cfg.History.Path)
	if err != nil {
		log.Fatalf("Failed to open run history: %v", err)
	}
	defer h.Close()

	runs, err := h.LatestRuns(context.Background(), 10)
	if err != nil {
		log.Fatalf("Failed to read run history: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("No enrichment runs recorded yet.")
		return
	}

	for _, r := range runs {
		label := string(r.Mode)
		if r.DryRun {
			label += " (dry-run)"
		}
		fmt.Printf("%s  %-18s created=%-4d orphans %d -> %d  density %.2f -> %.2f\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), label,
			r.CreatedTotal, r.OrphansBefore, r.OrphansAfter,
			r.DensityBefore, r.DensityAfter)
		if r.Warning != "" {
			fmt.Printf("    warning: %s\n", r.Warning)
		}
	}
}

func printReport(report *enrich.RunReport) {
	if report.Warning != "" {
		fmt.Printf("Run %s: %s\n", report.RunID, report.Warning)
		return
	}

	fmt.Printf("Run %s (mode=%s", report.RunID, report.Mode)
	if report.DryRun {
		fmt.Print(", dry-run")
	}
	fmt.Printf(") finished in %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))

	for _, stage := range report.Stages {
		fmt.Printf("  %-10s proposed=%-4d created=%-4d errors=%d\n",
			stage.Name, stage.Proposed, stage.Created, len(stage.Errors))
		for _, w := range stage.Warnings {
			fmt.Printf("    warning: %s\n", w)
		}
	}
	if report.AliasCollisions > 0 {
		fmt.Printf("  alias collisions: %d (first writer kept)\n", report.AliasCollisions)
	}
	fmt.Printf("  orphans: %d -> %d  density: %.2f -> %.2f\n",
		report.Before.OrphanCount, report.After.OrphanCount,
		report.Before.DensityScore, report.After.DensityScore)
}
