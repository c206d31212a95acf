package cards

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/medtopic/pkg/medtopic/ingest"
	"github.com/cognicore/medtopic/pkg/medtopic/lda"
	"github.com/cognicore/medtopic/pkg/medtopic/query"
	"github.com/cognicore/medtopic/pkg/medtopic/store"
)

// Builder constructs explainable topic cards
type Builder struct {
	entropy *ulid.MonotonicEntropy
	terms   int
	docs    int
	groupOf func(docID string) ingest.GroupLabel
}

// New creates a new card builder showing 8 terms and 3 exemplar documents
func New() *Builder {
	return &Builder{
		entropy: ulid.Monotonic(rand.Reader, 0),
		terms:   8,
		docs:    3,
	}
}

// SetLimits changes how many terms and exemplar documents a card lists.
func (b *Builder) SetLimits(terms, docs int) {
	if terms > 0 {
		b.terms = terms
	}
	if docs >= 0 {
		b.docs = docs
	}
}

// SetGroups enables the per-group breakdown in Explain.
func (b *Builder) SetGroups(groupOf func(docID string) ingest.GroupLabel) {
	b.groupOf = groupOf
}

// Card is a structured, explainable summary of one topic
type Card struct {
	ID             string
	ModelID        string
	Topic          int
	Title          string
	Bullets        []string
	Terms          []query.TermWeight
	Exemplars      []query.DocWeight
	ScoreBreakdown map[string]float64
	Explain        Explain
}

// Explain shows where the topic's weight comes from
type Explain struct {
	DominantDocs int
	Groups       []GroupShare // mean share of this topic per group, descending
}

// GroupShare is the mean weight of a topic within one group
type GroupShare struct {
	Group ingest.GroupLabel
	Share float64
}

// Build creates the card of one topic.
func (b *Builder) Build(m *lda.Model, topic int) (Card, error) {
	terms, err := query.TopTerms(m, topic, b.terms)
	if err != nil {
		return Card{}, err
	}
	return b.build(m, topic, terms, query.DocsPerTopic(m), query.TopicWeights(m)), nil
}

// BuildAll creates one card per topic, in topic order.
func (b *Builder) BuildAll(m *lda.Model) ([]Card, error) {
	perTopic := query.DocsPerTopic(m)
	weights := query.TopicWeights(m)

	cards := make([]Card, 0, m.K)
	for k := 0; k < m.K; k++ {
		terms, err := query.TopTerms(m, k, b.terms)
		if err != nil {
			return nil, err
		}
		cards = append(cards, b.build(m, k, terms, perTopic, weights))
	}
	return cards, nil
}

func (b *Builder) build(m *lda.Model, topic int, terms []query.TermWeight, perTopic [][]query.DocWeight, weights []float64) Card {
	card := Card{
		ID:             ulid.MustNew(ulid.Now(), b.entropy).String(),
		ModelID:        m.ID,
		Topic:          topic,
		Terms:          terms,
		Bullets:        make([]string, 0, len(terms)),
		ScoreBreakdown: make(map[string]float64),
	}

	names := make([]string, 0, 3)
	for i, tw := range terms {
		if i < 3 {
			names = append(names, tw.Term)
		}
		card.Bullets = append(card.Bullets, fmt.Sprintf("%s (%.4f)", tw.Term, tw.Weight))
	}
	card.Title = fmt.Sprintf("Topic %d: %s", topic, strings.Join(names, ", "))

	docs := perTopic[topic]
	card.Explain.DominantDocs = len(docs)
	if len(docs) > b.docs {
		docs = docs[:b.docs]
	}
	card.Exemplars = append([]query.DocWeight(nil), docs...)

	card.ScoreBreakdown["docs"] = float64(card.Explain.DominantDocs)
	card.ScoreBreakdown["weight"] = weights[topic]
	if m.N > 0 {
		card.ScoreBreakdown["doc_share"] = float64(card.Explain.DominantDocs) / float64(m.N)
	}

	if b.groupOf != nil {
		for g, share := range query.GroupTopicShares(m, b.groupOf) {
			card.Explain.Groups = append(card.Explain.Groups, GroupShare{Group: g, Share: share[topic]})
		}
		sort.Slice(card.Explain.Groups, func(i, j int) bool {
			gi, gj := card.Explain.Groups[i], card.Explain.Groups[j]
			if gi.Share != gj.Share {
				return gi.Share > gj.Share
			}
			return gi.Group < gj.Group
		})
	}

	return card
}

// ToStore converts a card to its stored form. Scores and explanation are
// kept as JSON.
func ToStore(c Card) (store.Card, error) {
	payload, err := json.Marshal(struct {
		Scores    map[string]float64 `json:"scores"`
		Exemplars []query.DocWeight  `json:"exemplars"`
		Explain   Explain            `json:"explain"`
	}{c.ScoreBreakdown, c.Exemplars, c.Explain})
	if err != nil {
		return store.Card{}, err
	}
	return store.Card{
		ID:        c.ID,
		ModelID:   c.ModelID,
		Topic:     c.Topic,
		Title:     c.Title,
		Bullets:   c.Bullets,
		ScoreJSON: string(payload),
	}, nil
}
