package cluster

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/omarkamali/cohort/internal/survey"
	"github.com/omarkamali/cohort/internal/util"
)

// setPrefix and setSeparator are the legacy multi-category string encoding
// produced by older exports ("SET:a|||b"). The builder accepts it alongside
// native sets and comma-separated strings.
const (
	setPrefix    = "SET:"
	setSeparator = "|||"
)

// BuildVectors converts each respondent's answer map into a fixed-length
// vector of tagged cells and imputes missing cells from column-wise
// aggregates. The returned vectors are finalized: no missing cells remain.
//
// Values that fail to parse for their declared kind degrade to missing and
// are never surfaced; numeric parse failures are also logged. An empty
// respondent list fails with ErrEmptyPopulation.
func BuildVectors(s *Schema, respondents []survey.Respondent, resolver survey.Resolver) ([]Vector, error) {
	if len(respondents) == 0 {
		return nil, util.WrapError(ErrEmptyPopulation, "vector build over zero respondents")
	}

	vectors := make([]Vector, len(respondents))
	for i, r := range respondents {
		vec := make(Vector, s.F())
		for c := range vec {
			vec[c] = Cell{Kind: s.Columns[c].Kind, Missing: true}
		}
		for _, a := range r.Answers {
			c := resolver.Resolve(s.SurveyID, a.QuestionID)
			if c < 0 || c >= s.F() {
				continue
			}
			vec[c] = convertCell(&s.Columns[c], a.Value, r.UserID, a.QuestionID)
		}
		vectors[i] = vec
	}

	imputeMissing(s, vectors)
	return vectors, nil
}

// convertCell translates one raw answer value into a cell of the column's
// kind. Absent, empty or unparseable values come back missing.
func convertCell(col *Column, value interface{}, userID, questionID string) Cell {
	cell := Cell{Kind: col.Kind, Missing: true}
	if value == nil {
		return cell
	}

	switch col.Kind {
	case survey.KindNumeric:
		num, err := parseNumeric(value)
		if err != nil {
			slog.Warn("Numeric answer not convertible, treating as missing",
				"user", userID, "question", questionID, "error", err)
			return cell
		}
		cell.Num = num
		cell.Missing = false

	case survey.KindOrdinal:
		label := strings.TrimSpace(fmt.Sprintf("%v", value))
		if label == "" {
			return cell
		}
		rank, ok := col.RankOf(label)
		if !ok {
			return cell
		}
		cell.Rank = rank
		cell.Missing = false

	case survey.KindCategoricalSingle:
		label := strings.TrimSpace(fmt.Sprintf("%v", value))
		if label == "" || !col.HasOption(label) {
			return cell
		}
		cell.Label = label
		cell.Missing = false

	case survey.KindCategoricalMulti:
		set := parseLabelSet(value)
		// Keep only declared options; an empty intersection is missing.
		kept := make(map[string]bool, len(set))
		for l := range set {
			if col.HasOption(l) {
				kept[l] = true
			}
		}
		if len(kept) == 0 {
			return cell
		}
		cell.Set = kept
		cell.Missing = false

	case survey.KindFreeText:
		text := strings.TrimSpace(fmt.Sprintf("%v", value))
		if text == "" {
			return cell
		}
		cell.Text = text
		cell.Missing = false
	}
	return cell
}

// parseNumeric accepts the numeric shapes answers arrive in: Go numbers from
// in-process callers, strings from tabular files and JSON bodies.
func parseNumeric(value interface{}) (float64, error) {
	var num float64
	switch v := value.(type) {
	case float64:
		num = v
	case float32:
		num = float64(v)
	case int:
		num = float64(v)
	case int64:
		num = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, err
		}
		num = parsed
	default:
		return 0, fmt.Errorf("unsupported numeric value of type %T", value)
	}
	if math.IsNaN(num) || math.IsInf(num, 0) {
		return 0, fmt.Errorf("non-finite numeric value %v", num)
	}
	return num, nil
}

// parseLabelSet normalizes the accepted multi-category encodings: native
// string slices and sets, the legacy "SET:a|||b" string, and plain
// comma-separated strings.
func parseLabelSet(value interface{}) map[string]bool {
	set := make(map[string]bool)
	add := func(l string) {
		l = strings.TrimSpace(l)
		if l != "" {
			set[l] = true
		}
	}

	switch v := value.(type) {
	case []string:
		for _, l := range v {
			add(l)
		}
	case []interface{}:
		for _, l := range v {
			add(fmt.Sprintf("%v", l))
		}
	case map[string]bool:
		for l, ok := range v {
			if ok {
				add(l)
			}
		}
	case string:
		s := v
		if strings.HasPrefix(s, setPrefix) {
			for _, l := range strings.Split(strings.TrimPrefix(s, setPrefix), setSeparator) {
				add(l)
			}
		} else {
			for _, l := range strings.Split(s, ",") {
				add(l)
			}
		}
	}
	return set
}

// imputeMissing finalizes the vectors in place, filling each missing cell
// from its column's aggregate over the non-missing rows.
func imputeMissing(s *Schema, vectors []Vector) {
	for c := range s.Columns {
		col := &s.Columns[c]
		switch col.Kind {
		case survey.KindNumeric:
			sum, count := 0.0, 0
			for _, vec := range vectors {
				if !vec[c].Missing {
					sum += vec[c].Num
					count++
				}
			}
			// Midpoint of the declared range when the column is fully missing.
			fill := (col.Min + col.Max) / 2
			if count > 0 {
				fill = sum / float64(count)
			}
			for _, vec := range vectors {
				if vec[c].Missing {
					vec[c].Num = fill
					vec[c].Missing = false
				}
			}

		case survey.KindOrdinal:
			sum, count := 0, 0
			for _, vec := range vectors {
				if !vec[c].Missing {
					sum += vec[c].Rank
					count++
				}
			}
			fill := (len(col.Levels) - 1) / 2
			if count > 0 {
				fill = int(math.Round(float64(sum) / float64(count)))
			}
			for _, vec := range vectors {
				if vec[c].Missing {
					vec[c].Rank = fill
					vec[c].Missing = false
				}
			}

		case survey.KindCategoricalSingle:
			counts := make(map[string]int)
			for _, vec := range vectors {
				if !vec[c].Missing {
					counts[vec[c].Label]++
				}
			}
			// Mode; ties break toward the first declared label.
			fill := col.Options[0]
			best := -1
			for _, o := range col.Options {
				if counts[o] > best {
					best = counts[o]
					fill = o
				}
			}
			for _, vec := range vectors {
				if vec[c].Missing {
					vec[c].Label = fill
					vec[c].Missing = false
				}
			}

		case survey.KindCategoricalMulti:
			for _, vec := range vectors {
				if vec[c].Missing {
					vec[c].Set = map[string]bool{}
					vec[c].Missing = false
				}
			}

		case survey.KindFreeText:
			for _, vec := range vectors {
				if vec[c].Missing {
					vec[c].Text = ""
					vec[c].Missing = false
				}
			}
		}
	}
}
