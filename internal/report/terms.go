// Package report derives descriptive summaries from clustering results.
// Free-text answers never influence distance; this is where they surface.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"

	"github.com/omarkamali/cohort/internal/cluster"
	"github.com/omarkamali/cohort/internal/survey"
	"github.com/omarkamali/cohort/internal/util"
)

// DefaultTopTerms is how many terms each cluster summary keeps.
const DefaultTopTerms = 8

// termCount pairs an analyzed term with its in-cluster frequency.
type termCount struct {
	term  string
	count uint64
}

// TopTerms tokenizes the free-text cells of every cluster through bleve's
// standard analyzer (an in-memory index per cluster; lowercasing and English
// stop words come with it) and returns the topN most frequent terms per
// cluster id. Clusters without free-text content are omitted. Surveys
// without free-text questions return an empty map.
func TopTerms(s *cluster.Schema, vectors []cluster.Vector, labels []int, k, topN int) (map[int][]string, error) {
	if topN <= 0 {
		topN = DefaultTopTerms
	}

	textCols := make([]int, 0)
	for c := range s.Columns {
		if s.Columns[c].Kind == survey.KindFreeText {
			textCols = append(textCols, c)
		}
	}
	if len(textCols) == 0 {
		return map[int][]string{}, nil
	}

	out := make(map[int][]string)
	for j := 0; j < k; j++ {
		var parts []string
		for i, label := range labels {
			if label != j {
				continue
			}
			for _, c := range textCols {
				if t := vectors[i][c].Text; t != "" {
					parts = append(parts, t)
				}
			}
		}
		if len(parts) == 0 {
			continue
		}

		terms, err := analyzeTerms(strings.Join(parts, "\n"), topN)
		if err != nil {
			return nil, util.WrapError(err, fmt.Sprintf("term summary for cluster %d", j))
		}
		if len(terms) > 0 {
			out[j] = terms
		}
	}
	return out, nil
}

// analyzeTerms runs the text through a throwaway in-memory bleve index and
// reads the field dictionary back, most frequent first. Term frequencies
// within one document collapse to presence, which is fine for a summary.
func analyzeTerms(text string, topN int) ([]string, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	// One document per line keeps per-respondent repetition from dominating.
	for i, line := range strings.Split(text, "\n") {
		if err := idx.Index(fmt.Sprintf("%d", i), map[string]interface{}{"text": line}); err != nil {
			return nil, err
		}
	}

	dict, err := idx.FieldDict("text")
	if err != nil {
		return nil, err
	}
	defer dict.Close()

	var counts []termCount
	for {
		entry, err := dict.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil {
			break
		}
		counts = append(counts, termCount{term: entry.Term, count: entry.Count})
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].term < counts[j].term
	})

	if len(counts) > topN {
		counts = counts[:topN]
	}
	terms := make([]string, len(counts))
	for i, tc := range counts {
		terms[i] = tc.term
	}
	return terms, nil
}
