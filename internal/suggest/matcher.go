// Package suggest implements the suggestion query path: fuzzy matching
// over vault entries, per-source ranking, and the slot merge that folds
// three ranked lists into one deduplicated suggestion list.
package suggest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Candidate is one fuzzy-matchable entry. The three text fields carry
// different weights when scoring.
type Candidate struct {
	Text        string
	Title       string
	Description string
	UsageCount  int
}

// Match is a candidate that cleared the similarity threshold, with its
// normalized relevance score.
type Match struct {
	Candidate
	Score float64

	poolIdx int
}

// fieldWeights are the per-field boosts applied when scoring a query
// against a candidate. Command text dominates, then title, then
// description.
var fieldWeights = []struct {
	field  string
	weight float64
}{
	{"text", 0.5},
	{"title", 0.3},
	{"description", 0.2},
}

// Matcher scores candidate pools against free-text queries using a
// transient in-memory bleve index, one per call. Pools are small (the
// store caps them), so building the index per query is cheap and keeps
// the matcher stateless.
type Matcher struct{}

// Match scores the pool against the query and returns the candidates
// that matched, best first. Ordering is score descending, then usage
// count descending, then original pool order. Candidates where no field
// matches closely enough are excluded.
func (Matcher) Match(q string, pool []Candidate) ([]Match, error) {
	if strings.TrimSpace(q) == "" || len(pool) == 0 {
		return nil, nil
	}

	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create match index: %w", err)
	}
	defer idx.Close()

	batch := idx.NewBatch()
	for i, c := range pool {
		doc := map[string]interface{}{
			"text":        c.Text,
			"title":       c.Title,
			"description": c.Description,
		}
		if err := batch.Index(strconv.Itoa(i), doc); err != nil {
			return nil, fmt.Errorf("failed to index candidate %d: %w", i, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("failed to batch index candidates: %w", err)
	}

	req := bleve.NewSearchRequestOptions(buildMatchQuery(q), len(pool), 0, false)
	res, err := idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("match search failed: %w", err)
	}

	matches := make([]Match, 0, len(res.Hits))
	for _, hit := range res.Hits {
		i, err := strconv.Atoi(hit.ID)
		if err != nil || i < 0 || i >= len(pool) {
			continue
		}
		matches = append(matches, Match{Candidate: pool[i], Score: hit.Score, poolIdx: i})
	}

	normalizeScores(matches)

	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].Score != matches[b].Score {
			return matches[a].Score > matches[b].Score
		}
		if matches[a].UsageCount != matches[b].UsageCount {
			return matches[a].UsageCount > matches[b].UsageCount
		}
		return matches[a].poolIdx < matches[b].poolIdx
	})

	return matches, nil
}

// buildIndexMapping creates the bleve mapping for candidate documents.
func buildIndexMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()
	for _, fw := range fieldWeights {
		doc.AddFieldMappingsAt(fw.field, bleve.NewTextFieldMapping())
	}

	im := bleve.NewIndexMapping()
	im.AddDocumentMapping("_default", doc)
	return im
}

// buildMatchQuery builds the weighted fuzzy query: per field, a fuzzy
// match query OR an all-terms substring query, boosted by the field
// weight. Location within the field does not matter.
func buildMatchQuery(q string) query.Query {
	terms := strings.Fields(strings.ToLower(q))

	outer := bleve.NewDisjunctionQuery()
	for _, fw := range fieldWeights {
		mq := bleve.NewMatchQuery(q)
		mq.SetField(fw.field)
		mq.SetBoost(fw.weight)
		mq.SetFuzziness(1)
		outer.AddQuery(mq)

		conj := bleve.NewConjunctionQuery()
		for _, t := range terms {
			wq := bleve.NewWildcardQuery("*" + escapeWildcard(t) + "*")
			wq.SetField(fw.field)
			conj.AddQuery(wq)
		}
		conj.SetBoost(fw.weight)
		outer.AddQuery(conj)
	}
	return outer
}

// escapeWildcard strips the wildcard metacharacters from a user term so
// they match literally-adjacent text instead of exploding the query.
func escapeWildcard(t string) string {
	t = strings.ReplaceAll(t, "*", "")
	return strings.ReplaceAll(t, "?", "")
}

// normalizeScores rescales raw index scores to (0, 1] so callers get a
// bounded ordering signal rather than an absolute probability.
func normalizeScores(matches []Match) {
	if len(matches) == 0 {
		return
	}

	minScore := matches[0].Score
	maxScore := matches[0].Score
	for _, m := range matches {
		if m.Score < minScore {
			minScore = m.Score
		}
		if m.Score > maxScore {
			maxScore = m.Score
		}
	}

	if maxScore == minScore {
		for i := range matches {
			matches[i].Score = 1.0
		}
		return
	}

	span := maxScore - minScore
	for i := range matches {
		// Keep the weakest match above zero so it still orders ahead
		// of a non-match.
		matches[i].Score = (matches[i].Score-minScore)/span*0.9 + 0.1
	}
}
