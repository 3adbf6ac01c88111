// Command weaver-scan previews inferred similar_to edges without writing
// anything, or lists the orphan entities of the collection.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/scrypster/weaver/internal/config"
	"github.com/scrypster/weaver/internal/enrich"
	"github.com/scrypster/weaver/internal/health"
	"github.com/scrypster/weaver/internal/similarity"
	"github.com/scrypster/weaver/internal/store"
	"github.com/scrypster/weaver/pkg/types"
)

var (
	rootFlag    = flag.String("root", "", "Collection root (overrides WEAVER_COLLECTION_ROOT)")
	typeFlag    = flag.String("type", "", "Comma-separated entity types to scan (default: all)")
	orphansOnly = flag.Bool("orphans-only", false, "Restrict the scan to orphan entities")
	limitFlag   = flag.Int("limit", 0, "Maximum edges to propose (0 = config default)")
	threshold   = flag.Float64("threshold", 0, "Similarity threshold (0 = config default)")
	output      = flag.String("output", "text", "Output format: text or json")
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
		log.Printf("scan: skipped %d unparseable record(s)", scan.ParseErrors)
	}

	entities = filterEntities(entities, *typeFlag, *orphansOnly)

	provider := buildProvider(cfg)
	inferrer := enrich.NewEdgeInferrer(s, provider, cfg.Collection.Actor)

	edges, warnings, err := inferrer.ScanForEdges(ctx, entities, *threshold, *limitFlag)
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}
	for _, w := range warnings {
		log.Printf("scan: %s", w)
	}

	printEdges(edges, *output)
}

func filterEntities(entities []*types.Entity, typeList string, orphansOnly bool) []*types.Entity {
	allowed := map[string]bool{}
	for _, t := range strings.Split(typeList, ",") {
		if t = strings.TrimSpace(t); t != "" {
			allowed[t] = true
		}
	}

	orphans := map[string]bool{}
	if orphansOnly {
		for _, id := range health.Compute(entities).Orphans {
			orphans[id] = true
		}
	}

	filtered := make([]*types.Entity, 0, len(entities))
	for _, e := range entities {
		if len(allowed) > 0 && !allowed[e.KnownType()] {
			continue
		}
		if orphansOnly && !orphans[e.ID] {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func buildProvider(cfg *config.Config) similarity.Provider {
	var cache similarity.VectorCache
	if cfg.Embedding.PostgresDSN != "" {
		c, err := similarity.NewPgVectorCache(cfg.Embedding.PostgresDSN)
		if err != nil {
			log.Printf("scan: vector cache unavailable, continuing without: %v", err)
		} else {
			cache = c
		}
	}
	return similarity.NewEmbeddingProvider(similarity.EmbeddingConfig{
		URL:               cfg.Embedding.OllamaURL,
		Model:             cfg.Embedding.Model,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		Cache:             cache,
	})
}

func printEdges(edges []enrich.InferredEdge, format string) {
	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(edges); err != nil {
			log.Fatalf("Failed to encode output: %v", err)
		}
		return
	}

	if len(edges) == 0 {
		fmt.Println("No similar_to edges at this threshold.")
		return
	}
	fmt.Printf("%d proposed similar_to edge(s):\n", len(edges))
	for _, e := range edges {
		fmt.Printf("  %-40s -> %-40s %.3f (%s)\n", e.SourceID, e.TargetID, e.Score, e.Provider)
	}
}
