package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/medtopic/pkg/medtopic/ingest"
	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
	"github.com/cognicore/medtopic/pkg/medtopic/lda"
)

// Config is the top-level YAML configuration
type Config struct {
	Pipeline Pipeline   `yaml:"pipeline"`
	LDA      lda.Config `yaml:"lda"`
	Report   Report     `yaml:"report"`
	Files    Files      `yaml:"files"`
	Store    string     `yaml:"store"` // sqlite path; empty keeps everything in memory
}

// Pipeline configures text normalization
type Pipeline struct {
	Mode        string `yaml:"mode"`  // word or ngram
	NGram       int    `yaml:"ngram"` // window size in ngram mode
	FoldAccents bool   `yaml:"fold_accents"`
	StripMarkup bool   `yaml:"strip_markup"`
	Workers     int    `yaml:"workers"`
}

// Report configures how results are summarized
type Report struct {
	TopTerms  int `yaml:"top_terms"`
	Exemplars int `yaml:"exemplars"`
}

// Files lists the auxiliary configuration files. Relative paths are
// resolved against the directory of the config file.
type Files struct {
	Stoplist string `yaml:"stoplist"`
	Phrases  string `yaml:"phrases"`
	Lexicon  string `yaml:"lexicon"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Pipeline: Pipeline{Mode: "word", NGram: 2, Workers: 4},
		LDA:      lda.DefaultConfig(),
		Report:   Report{TopTerms: 10, Exemplars: 3},
	}
}

// Load reads a YAML config file on top of the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	cfg.Files.Stoplist = resolve(dir, cfg.Files.Stoplist)
	cfg.Files.Phrases = resolve(dir, cfg.Files.Phrases)
	cfg.Files.Lexicon = resolve(dir, cfg.Files.Lexicon)
	cfg.Store = resolve(dir, cfg.Store)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Validate checks pipeline and training settings
func (c *Config) Validate() error {
	mode, err := ingest.ParseMode(c.Pipeline.Mode)
	if err != nil {
		return fmt.Errorf("pipeline mode: %w", err)
	}
	if mode == ingest.ModeSentence {
		return fmt.Errorf("%w: sentence mode cannot feed a term count matrix", internalerr.ErrInvalidConfig)
	}
	if mode == ingest.ModeNGram && c.Pipeline.NGram < 1 {
		return fmt.Errorf("%w: ngram must be at least 1, got %d", internalerr.ErrInvalidConfig, c.Pipeline.NGram)
	}
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("%w: pipeline workers must not be negative", internalerr.ErrInvalidConfig)
	}
	return c.LDA.Validate()
}

// Stoplist represents the stopword list configuration
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}

	return &sl, nil
}

// LoadPhrases loads the multi-word phrase dictionary from a file
// Format: canonical|variant1|variant2
func LoadPhrases(path string) ([]ingest.PhraseEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []ingest.PhraseEntry
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if parts[0] == "" {
			continue
		}

		entry := ingest.PhraseEntry{Canonical: parts[0]}
		for _, v := range parts[1:] {
			if v != "" {
				entry.Variants = append(entry.Variants, v)
			}
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
