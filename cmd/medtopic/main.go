package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cognicore/medtopic/internal/corpusio"
	"github.com/cognicore/medtopic/pkg/medtopic"
	"github.com/cognicore/medtopic/pkg/medtopic/config"
	"github.com/cognicore/medtopic/pkg/medtopic/ingest"
	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
	"github.com/cognicore/medtopic/pkg/medtopic/lda"
	"github.com/cognicore/medtopic/pkg/medtopic/store"
	"github.com/cognicore/medtopic/pkg/medtopic/store/sqlite"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (optional)")
		dataPath   = flag.String("data", "", "Input corpus, .jsonl or .csv (required)")
		dbPath     = flag.String("db", "", "SQLite database path (overrides config store)")
		outPath    = flag.String("out", "", "Write the fitted model as JSON to this file")
		idCol      = flag.String("id-col", "id", "CSV column holding the document id")
		textCol    = flag.String("text-col", "text", "CSV column holding the document text")
		groupCol   = flag.String("group-col", "group", "CSV column holding the group label")
		topics     = flag.Int("topics", 0, "Number of topics (overrides config)")
		iterations = flag.Int("iterations", 0, "Gibbs sweeps (overrides config)")
		seed       = flag.Uint64("seed", 0, "Random seed (overrides config)")
		queryStr   = flag.String("query", "", "Rank documents against this text after fitting")
		applyStops = flag.Bool("apply-stopwords", false, "Persist suggested stopwords to the stoplist")
	)
	flag.Parse()

	if *dataPath == "" {
		log.Fatal("--data required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatal("Failed to load configuration:", err)
		}
	}
	applyOverrides(cfg, flag.CommandLine, overrides{
		topics:     *topics,
		iterations: *iterations,
		seed:       *seed,
		db:         *dbPath,
	})

	loader := config.Loader{Config: cfg}
	components, err := loader.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	var st store.Store
	if cfg.Store != "" {
		if st, err = sqlite.OpenSQLite(ctx, cfg.Store); err != nil {
			log.Fatal("Failed to open database:", err)
		}
	}

	engine, err := medtopic.New(medtopic.Options{
		Store:     st,
		Pipeline:  components.Pipeline,
		Trainer:   components.Trainer,
		Stoplist:  components.Stoplist,
		Workers:   cfg.Pipeline.Workers,
		TopTerms:  cfg.Report.TopTerms,
		Exemplars: cfg.Report.Exemplars,
	})
	if err != nil {
		log.Fatal("Failed to create engine:", err)
	}
	defer engine.Close()

	docs, err := corpusio.Load(*dataPath, corpusio.Columns{ID: *idCol, Text: *textCol, Group: *groupCol})
	if err != nil {
		log.Fatal("Failed to load documents:", err)
	}
	log.Printf("Loaded %d documents from %s", len(docs), *dataPath)

	corpus, err := engine.BuildCorpus(ctx, docs)
	if err != nil {
		log.Fatal("Failed to build corpus:", err)
	}

	model, err := engine.Fit(ctx, corpus)
	if err != nil {
		var nerr *lda.NumericError
		if errors.As(err, &nerr) && nerr.Checkpoint != nil {
			log.Printf("Last good state saved as model %s", nerr.Checkpoint.ID)
		}
		log.Fatal("Training failed:", err)
	}

	report, err := engine.Report(ctx, corpus, model)
	if err != nil {
		log.Fatal("Failed to build report:", err)
	}

	p := message.NewPrinter(language.English)
	p.Printf("Model %s\n", model.ID)
	p.Printf("  %d documents, %d terms, %d tokens, %d topics, %d sweeps\n",
		model.N, model.V, corpus.Matrix.Total(), model.K, model.Iterations)
	if n := len(model.Diagnostics.LogLikelihood); n > 0 {
		p.Printf("  log-likelihood %.2f at sweep %d\n",
			model.Diagnostics.LogLikelihood[n-1].Value, model.Diagnostics.LogLikelihood[n-1].Sweep)
	}
	for _, w := range model.Diagnostics.Warnings {
		if errors.Is(w, internalerr.ErrNotConverged) {
			p.Printf("  warning: %v\n", w)
		}
	}

	p.Printf("\nTopics\n")
	for _, card := range report.Topics {
		p.Printf("  %s (%d docs)\n", card.Title, int(card.ScoreBreakdown["docs"]))
		for _, b := range card.Bullets {
			p.Printf("    - %s\n", b)
		}
	}

	if len(report.GroupTerms) > 0 {
		p.Printf("\nDistinctive terms per group\n")
		for _, g := range sortedGroups(report) {
			terms := make([]string, 0, len(report.GroupTerms[g]))
			for _, s := range report.GroupTerms[g] {
				terms = append(terms, s.Term)
			}
			p.Printf("  %s: %s\n", g, strings.Join(terms, ", "))
		}
	}

	if len(report.StopwordCandidates) > 0 {
		p.Printf("\nStopword candidates\n")
		for _, c := range report.StopwordCandidates {
			p.Printf("  %-20s df %.1f%%  entropy %.2f\n", c.Token, c.Reason.DFPercent, c.Reason.GroupEntropy)
		}
		if *applyStops {
			if err := engine.ApplyStopwords(ctx, report.StopwordCandidates); err != nil {
				log.Fatal("Failed to apply stopwords:", err)
			}
			log.Printf("Added %d stopwords; rerun to refit without them", len(report.StopwordCandidates))
			if st != nil {
				res, err := engine.Reprocess(ctx)
				if err != nil {
					log.Fatal("Failed to reprocess documents:", err)
				}
				log.Printf("Reprocessed %d stored documents, %d updated", res.Processed, res.Updated)
			}
		}
	}

	if *queryStr != "" {
		matches, err := engine.Retriever(model).Retrieve(ctx, *queryStr, cfg.Report.Exemplars)
		if err != nil {
			log.Fatal("Query failed:", err)
		}
		p.Printf("\nQuery %q\n", *queryStr)
		for _, m := range matches {
			p.Printf("  %s  similarity %.3f  topic %d\n", m.DocID, m.Similarity, m.Dominant)
		}
	}

	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatal("Failed to create output:", err)
		}
		if err := store.WriteJSON(f, model.Artifact()); err != nil {
			f.Close()
			log.Fatal("Failed to write model:", err)
		}
		if err := f.Close(); err != nil {
			log.Fatal("Failed to write model:", err)
		}
		log.Printf("Model written to %s", *outPath)
	}
}

func sortedGroups(r *medtopic.Report) []ingest.GroupLabel {
	groups := make([]ingest.GroupLabel, 0, len(r.GroupTerms))
	for g := range r.GroupTerms {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups
}

// overrides holds the command line values that replace config settings.
type overrides struct {
	topics     int
	iterations int
	seed       uint64
	db         string
}

// applyOverrides copies the flags that were set on fs onto cfg. Zero values
// given explicitly, such as -seed 0, are applied too; invalid ones are
// rejected by the config validation in the loader.
func applyOverrides(cfg *config.Config, fs *flag.FlagSet, o overrides) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "topics":
			cfg.LDA.Topics = o.topics
		case "iterations":
			cfg.LDA.Iterations = o.iterations
		case "seed":
			cfg.LDA.Seed = o.seed
		case "db":
			cfg.Store = o.db
		}
	})
}
