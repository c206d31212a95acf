package lda

// Config controls LDA training.
type Config struct {
	Topics     int     `yaml:"topics"`     // K
	Alpha      float64 `yaml:"alpha"`      // document-topic prior
	Eta        float64 `yaml:"eta"`        // topic-term prior
	Iterations int     `yaml:"iterations"` // Gibbs sweeps
	Seed       uint64  `yaml:"seed"`

	// Workers > 1 selects the approximate parallel sampler. Results then
	// differ from the sequential chain for the same seed.
	Workers int `yaml:"workers"`

	// LogLikelihoodEvery records the joint log-likelihood every n sweeps;
	// 0 disables the diagnostic.
	LogLikelihoodEvery int     `yaml:"log_likelihood_every"`
	Tolerance          float64 `yaml:"tolerance"` // relative change accepted as stable
}

// DefaultConfig returns the defaults used when no configuration is given.
func DefaultConfig() Config {
	return Config{
		Topics:     5,
		Alpha:      0.1,
		Eta:        0.01,
		Iterations: 500,
		Seed:       1,
		Workers:    1,
		Tolerance:  1e-3,
	}
}

// Validate reports the first invalid field as a *ConfigError.
func (c Config) Validate() error {
	switch {
	case c.Topics <= 0:
		return &ConfigError{Field: "topics", Value: c.Topics, Reason: "must be positive"}
	case !(c.Alpha > 0):
		return &ConfigError{Field: "alpha", Value: c.Alpha, Reason: "must be positive"}
	case !(c.Eta > 0):
		return &ConfigError{Field: "eta", Value: c.Eta, Reason: "must be positive"}
	case c.Iterations <= 0:
		return &ConfigError{Field: "iterations", Value: c.Iterations, Reason: "must be positive"}
	case c.Workers < 0:
		return &ConfigError{Field: "workers", Value: c.Workers, Reason: "must not be negative"}
	case c.LogLikelihoodEvery < 0:
		return &ConfigError{Field: "log_likelihood_every", Value: c.LogLikelihoodEvery, Reason: "must not be negative"}
	case c.Tolerance < 0:
		return &ConfigError{Field: "tolerance", Value: c.Tolerance, Reason: "must not be negative"}
	}
	return nil
}
