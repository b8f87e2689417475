package cluster

import (
	"fmt"
	"log/slog"

	"github.com/omarkamali/cohort/internal/survey"
	"github.com/omarkamali/cohort/internal/util"
)

// Column carries the per-feature metadata distance and aggregation need:
// the kind, the numeric range, the ordinal rank table and the categorical
// option universe. Columns are immutable after BuildSchema.
type Column struct {
	Kind survey.QuestionKind

	// Numeric range, expanded by ±0.5 when the question declares min == max
	// so normalization never divides by zero.
	Min, Max float64

	// Ordinal levels in declared order; rank maps label -> position.
	Levels []string
	rank   map[string]int

	// Categorical option universe in declared order.
	Options []string
	optset  map[string]bool
}

// RankOf returns the ordinal rank of a label and whether it is declared.
func (c *Column) RankOf(label string) (int, bool) {
	r, ok := c.rank[label]
	return r, ok
}

// HasOption reports whether a label belongs to the categorical universe.
func (c *Column) HasOption(label string) bool {
	return c.optset[label]
}

// Width returns the numeric range width.
func (c *Column) Width() float64 { return c.Max - c.Min }

// Schema is the per-column metadata for one survey, derived from its ordered
// question list. It is deterministic and independent of the respondent set,
// and read-only after construction, so one schema may back any number of
// concurrent runs.
type Schema struct {
	SurveyID string
	Columns  []Column
}

// F returns the number of features.
func (s *Schema) F() int { return len(s.Columns) }

// BuildSchema derives column metadata from the survey's question list.
// It fails with ErrInvalidSchema when a question carries contradictory
// metadata: a numeric range with min > max, duplicate ordinal levels, or an
// empty option universe on a categorical question.
func BuildSchema(sv *survey.Survey) (*Schema, error) {
	if sv == nil {
		return nil, util.WrapError(ErrInvalidParameters, "BuildSchema requires a survey")
	}

	cols := make([]Column, 0, len(sv.Questions))
	for _, q := range sv.Questions {
		col := Column{Kind: q.Kind}
		switch q.Kind {
		case survey.KindNumeric:
			if q.Min > q.Max {
				return nil, util.WrapError(ErrInvalidSchema,
					fmt.Sprintf("question %s: numeric range min %g > max %g", q.ID, q.Min, q.Max))
			}
			col.Min, col.Max = q.Min, q.Max
			if col.Min == col.Max {
				// Zero-width ranges would break normalization.
				col.Min -= 0.5
				col.Max += 0.5
			}
		case survey.KindOrdinal:
			if len(q.Options) == 0 {
				return nil, util.WrapError(ErrInvalidSchema,
					fmt.Sprintf("question %s: ordinal question without levels", q.ID))
			}
			col.Levels = append([]string(nil), q.Options...)
			col.rank = make(map[string]int, len(col.Levels))
			for i, l := range col.Levels {
				if _, dup := col.rank[l]; dup {
					return nil, util.WrapError(ErrInvalidSchema,
						fmt.Sprintf("question %s: duplicate ordinal level %q", q.ID, l))
				}
				col.rank[l] = i
			}
		case survey.KindCategoricalSingle, survey.KindCategoricalMulti:
			if len(q.Options) == 0 {
				return nil, util.WrapError(ErrInvalidSchema,
					fmt.Sprintf("question %s: categorical question with empty universe", q.ID))
			}
			col.Options = append([]string(nil), q.Options...)
			col.optset = make(map[string]bool, len(col.Options))
			for _, o := range col.Options {
				col.optset[o] = true
			}
		case survey.KindFreeText:
			// No extra metadata.
		default:
			return nil, util.WrapError(ErrInvalidSchema,
				fmt.Sprintf("question %s: unknown kind", q.ID))
		}
		cols = append(cols, col)
	}

	slog.Debug("Built feature schema", "survey", sv.ID, "features", len(cols))
	return &Schema{SurveyID: sv.ID, Columns: cols}, nil
}
