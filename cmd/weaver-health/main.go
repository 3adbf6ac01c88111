// Command weaver-health reports graph health: the full report, the orphan
// list, the density score, or the connectivity ranking.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/scrypster/weaver/internal/config"
	"github.com/scrypster/weaver/internal/health"
	"github.com/scrypster/weaver/internal/store"
)

var (
	rootFlag = flag.String("root", "", "Collection root (overrides WEAVER_COLLECTION_ROOT)")
	output   = flag.String("output", "text", "Output format: text or json")
	topFlag  = flag.Int("top", 10, "Entries to show for the connected command")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] [report|orphans|density|connected]\n\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	command := "report"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *rootFlag != "" {
		cfg.Collection.Root = *rootFlag
	}

	s, err := store.New(cfg.Collection.Root)
	if err != nil {
		log.Fatalf("Failed to open collection: %v", err)
	}

	report, err := health.NewMonitor(s).Analyze(context.Background())
	if err != nil {
		log.Fatalf("Health analysis failed: %v", err)
	}

	switch command {
	case "report":
		printJSONOr(report, func() { printReport(report) })
	case "orphans":
		printJSONOr(report.Orphans, func() {
			if len(report.Orphans) == 0 {
				fmt.Println("No orphan entities.")
				return
			}
			for _, id := range report.Orphans {
				fmt.Println(id)
			}
		})
	case "density":
		printJSONOr(map[string]float64{
			"density_score":         report.DensityScore,
			"relationship_coverage": report.Coverage,
			"avg_relationships":     report.AvgRelationships,
		}, func() {
			fmt.Printf("Density: %.3f (coverage %.2f, avg relationships %.2f)\n",
				report.DensityScore, report.Coverage, report.AvgRelationships)
		})
	case "connected":
		top := report.Connectivity
		if *topFlag > 0 && len(top) > *topFlag {
			top = top[:*topFlag]
		}
		printJSONOr(top, func() {
			for _, entry := range top {
				fmt.Printf("%4d  %s\n", entry.Degree, entry.ID)
			}
		})
	default:
		usage()
		os.Exit(2)
	}
}

func printJSONOr(v interface{}, text func()) {
	if *output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			log.Fatalf("Failed to encode output: %v", err)
		}
		return
	}
	text()
}

func printReport(report *health.Report) {
	fmt.Printf("Entities: %d\n", report.TotalEntities)

	entityTypes := make([]string, 0, len(report.ByType))
	for t := range report.ByType {
		entityTypes = append(entityTypes, t)
	}
	sort.Strings(entityTypes)
	for _, t := range entityTypes {
		fmt.Printf("  %-12s %d\n", t, report.ByType[t])
	}

	fmt.Printf("Orphans: %d\n", report.OrphanCount)
	fmt.Printf("Coverage: %.2f  Avg relationships: %.2f  Density: %.3f\n",
		report.Coverage, report.AvgRelationships, report.DensityScore)
	fmt.Printf("Inferred edges: %d\n", report.InferredEdges)
	if report.ParseErrors > 0 {
		fmt.Printf("Parse errors: %d\n", report.ParseErrors)
	}

	if len(report.Connectivity) > 0 {
		fmt.Println("Most connected:")
		top := report.Connectivity
		if len(top) > 5 {
			top = top[:5]
		}
		for _, entry := range top {
			fmt.Printf("  %4d  %s\n", entry.Degree, entry.ID)
		}
	}
}
