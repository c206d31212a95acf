package config

import (
	"fmt"

	"github.com/cognicore/medtopic/pkg/medtopic/ingest"
	"github.com/cognicore/medtopic/pkg/medtopic/lda"
	"github.com/cognicore/medtopic/pkg/medtopic/lexicon"
	"github.com/cognicore/medtopic/pkg/medtopic/stoplist"
)

// Loader loads all configuration files and constructs components
type Loader struct {
	Config *Config // nil means Default()
}

// Components holds all loaded configuration components
type Components struct {
	Stoplist *stoplist.Set
	Phrases  *ingest.PhraseMerger
	Lexicon  *lexicon.Lexicon // nil when no lexicon file is configured
	Pipeline *ingest.Pipeline
	Trainer  *lda.Trainer
}

// Load reads all configuration files and returns initialized components.
// Training settings are validated first, before any file is read.
func (l *Loader) Load() (*Components, error) {
	cfg := l.Config
	if cfg == nil {
		cfg = Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	comp := &Components{}

	trainer, err := lda.NewTrainer(cfg.LDA)
	if err != nil {
		return nil, err
	}
	comp.Trainer = trainer

	// Load stoplist
	if cfg.Files.Stoplist != "" {
		sl, err := LoadStoplist(cfg.Files.Stoplist)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		comp.Stoplist = stoplist.NewSet(sl.Terms)
	} else {
		comp.Stoplist = stoplist.NewSet(nil)
	}

	// Load phrase dictionary
	if cfg.Files.Phrases != "" {
		entries, err := LoadPhrases(cfg.Files.Phrases)
		if err != nil {
			return nil, fmt.Errorf("load phrases: %w", err)
		}
		comp.Phrases = ingest.NewPhraseMerger(entries)
	} else {
		comp.Phrases = ingest.NewPhraseMerger(nil)
	}

	// Load lexicon
	var lem ingest.Lemmatizer = ingest.Identity
	if cfg.Files.Lexicon != "" {
		lex, err := lexicon.LoadFromYAML(cfg.Files.Lexicon)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		comp.Lexicon = lex
		lem = lex
	}

	seg := ingest.NewSegmenter()
	seg.SetFoldAccents(cfg.Pipeline.FoldAccents)

	p, err := ingest.NewPipeline(seg, comp.Stoplist, lem)
	if err != nil {
		return nil, err
	}
	p.SetPhrases(comp.Phrases)
	p.SetStripMarkup(cfg.Pipeline.StripMarkup)
	if mode, _ := ingest.ParseMode(cfg.Pipeline.Mode); mode == ingest.ModeNGram {
		if err := p.SetNGram(cfg.Pipeline.NGram); err != nil {
			return nil, err
		}
	}
	comp.Pipeline = p

	return comp, nil
}
