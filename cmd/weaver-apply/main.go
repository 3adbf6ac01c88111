// Command weaver-apply scans for similar_to edges and writes them to the
// collection. With --dry-run it reports what would be written instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/scrypster/weaver/internal/config"
	"github.com/scrypster/weaver/internal/enrich"
	"github.com/scrypster/weaver/internal/similarity"
	"github.com/scrypster/weaver/internal/store"
)

var (
	rootFlag  = flag.String("root", "", "Collection root (overrides WEAVER_COLLECTION_ROOT)")
	dryRun    = flag.Bool("dry-run", false, "Report what would be written without writing")
	limitFlag = flag.Int("limit", 0, "Maximum edges to apply (0 = config default)")
	threshold = flag.Float64("threshold", 0, "Similarity threshold (0 = config default)")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *rootFlag != "" {
		cfg.Collection.Root = *rootFlag
	}
	if *threshold == 0 {
		*threshold = cfg.Embedding.Threshold
	}
	if *limitFlag == 0 {
		*limitFlag = cfg.Embedding.EdgeLimit
	}

	s, err := store.New(cfg.Collection.Root)
	if err != nil {
		log.Fatalf("Failed to open collection: %v", err)
	}

	ctx := context.Background()
	entities, scan, err := s.Scan(ctx)
	if err != nil {
		log.Fatalf("Failed to scan collection: %v", err)
	}
	if scan.ParseErrors > 0 {
		log.Printf("apply: skipped %d unparseable record(s)", scan.ParseErrors)
	}

	var cache similarity.VectorCache
	if cfg.Embedding.PostgresDSN != "" {
		c, err := similarity.NewPgVectorCache(cfg.Embedding.PostgresDSN)
		if err != nil {
			log.Printf("apply: vector cache unavailable, continuing without: %v", err)
		} else {
			cache = c
			defer cache.Close()
		}
	}
	provider := similarity.NewEmbeddingProvider(similarity.EmbeddingConfig{
		URL:               cfg.Embedding.OllamaURL,
		Model:             cfg.Embedding.Model,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		Cache:             cache,
	})
	inferrer := enrich.NewEdgeInferrer(s, provider, cfg.Collection.Actor)

	edges, warnings, err := inferrer.ScanForEdges(ctx, entities, *threshold, *limitFlag)
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}
	for _, w := range warnings {
		log.Printf("apply: %s", w)
	}

	applied, errs := inferrer.ApplyEdges(edges, *dryRun)
	for _, e := range errs {
		log.Printf("apply: %s", e)
	}

	if *dryRun {
		fmt.Printf("Dry run: %d edge(s) would be written (%d proposed, %d errors).\n",
			applied, len(edges), len(errs))
		return
	}
	fmt.Printf("Applied %d similar_to edge(s) (%d proposed, %d errors).\n",
		applied, len(edges), len(errs))
}
