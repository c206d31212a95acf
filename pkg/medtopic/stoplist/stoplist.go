package stoplist

import (
	"sort"
	"strings"
)

// Set is a case-normalized stopword set.
// Reads are safe for concurrent use; Add and Remove are not.
type Set struct {
	stops map[string]Reason
}

// Reason explains why a token is a stopword
type Reason struct {
	Curated      bool    // supplied by the caller's list
	HighDF       bool    // high document frequency
	HighEntropy  bool    // uniform distribution across groups
	DFPercent    float64 // share of documents containing the token
	GroupEntropy float64 // normalized entropy across group labels
}

// NewSet creates a stopword set from the caller's terms.
func NewSet(terms []string) *Set {
	stops := make(map[string]Reason, len(terms))
	for _, s := range terms {
		if key := normalize(s); key != "" {
			stops[key] = Reason{Curated: true}
		}
	}
	return &Set{stops: stops}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Contains checks if a token is a stopword
func (s *Set) Contains(token string) bool {
	if s == nil {
		return false
	}
	_, ok := s.stops[normalize(token)]
	return ok
}

// Add adds a token to the set with a reason
func (s *Set) Add(token string, reason Reason) {
	if key := normalize(token); key != "" {
		s.stops[key] = reason
	}
}

// Remove removes a token from the set
func (s *Set) Remove(token string) {
	delete(s.stops, normalize(token))
}

// Len returns the number of stopwords.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.stops)
}

// All returns all stopwords in lexical order
func (s *Set) All() []string {
	if s == nil {
		return nil
	}
	result := make([]string, 0, len(s.stops))
	for w := range s.stops {
		result = append(result, w)
	}
	sort.Strings(result)
	return result
}

// Filter returns tokens minus any stopword, preserving order.
// Filtering an already filtered slice returns the same tokens.
func (s *Set) Filter(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if s.Contains(tok) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Stats holds statistics for candidate evaluation
type Stats struct {
	Token        string
	DF           int64
	DFPercent    float64
	IDF          float64
	GroupEntropy float64 // normalized to [0,1]
}

// Candidate represents a candidate stopword
type Candidate struct {
	Token  string
	Reason Reason
	Score  float64 // confidence score
}

// Thresholds defines criteria for stopword identification
type Thresholds struct {
	DFPercent    float64 // e.g., 60% - appears in 60% of documents
	GroupEntropy float64 // e.g., 0.8 - spread evenly across groups
}

// DefaultThresholds returns sensible default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DFPercent:    60.0,
		GroupEntropy: 0.8,
	}
}

// SuggestCandidates suggests tokens that should be stopwords: terms found in
// most documents and spread evenly across groups carry little topical signal.
// Results are ordered by score, then token.
func (s *Set) SuggestCandidates(stats []Stats, thresholds Thresholds) []Candidate {
	var candidates []Candidate

	for _, st := range stats {
		if s.Contains(st.Token) {
			continue // already a stopword
		}

		reason := Reason{
			HighDF:       st.DFPercent > thresholds.DFPercent,
			HighEntropy:  st.GroupEntropy >= thresholds.GroupEntropy,
			DFPercent:    st.DFPercent,
			GroupEntropy: st.GroupEntropy,
		}
		if !reason.HighDF || !reason.HighEntropy {
			continue
		}

		candidates = append(candidates, Candidate{
			Token:  st.Token,
			Reason: reason,
			Score:  (st.DFPercent/100.0 + st.GroupEntropy) / 2.0,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Token < candidates[j].Token
	})

	return candidates
}
