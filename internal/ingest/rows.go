package ingest

import (
	"context"
	"fmt"

	"github.com/omarkamali/cohort/internal/survey"
	"github.com/omarkamali/cohort/internal/util"
)

// userIDColumns are the header names accepted for the respondent id column,
// checked in order.
var userIDColumns = []string{"user_id", "userId", "user", "respondent_id"}

// respondentsFromRows converts generic row maps into respondents for one
// survey. Answers keep the survey's question order so downstream runs are
// deterministic regardless of source column order. Rows without a user id
// are skipped with a warning; unknown columns are ignored.
func respondentsFromRows(ctx context.Context, sv *survey.Survey, rows []map[string]interface{}, source string) []survey.Respondent {
	logger := util.FromContext(ctx)
	respondents := make([]survey.Respondent, 0, len(rows))
	for i, row := range rows {
		userID := ""
		for _, col := range userIDColumns {
			if v, ok := row[col]; ok {
				userID = fmt.Sprintf("%v", v)
				break
			}
		}
		if userID == "" {
			logger.Warn("Skipping row without user id", "source", source, "row", i)
			continue
		}

		answers := make([]survey.Answer, 0, len(sv.Questions))
		for _, q := range sv.Questions {
			if v, ok := row[q.ID]; ok {
				answers = append(answers, survey.Answer{QuestionID: q.ID, Value: v})
			}
		}
		respondents = append(respondents, survey.Respondent{
			UserID:   userID,
			SurveyID: sv.ID,
			Answers:  answers,
		})
	}
	return respondents
}

// stringRows lifts string-valued rows (CSV, XLSX, SQLite) into the generic
// shape respondentsFromRows expects.
func stringRows(rows []map[string]string) []map[string]interface{} {
	out := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		m := make(map[string]interface{}, len(row))
		for k, v := range row {
			m[k] = v
		}
		out[i] = m
	}
	return out
}
