package report

import (
	"testing"

	"github.com/omarkamali/cohort/internal/cluster"
	"github.com/omarkamali/cohort/internal/survey"
)

func textSurvey() *survey.Survey {
	return &survey.Survey{ID: "sv1", Questions: []survey.Question{
		{ID: "score", Kind: survey.KindNumeric, Min: 0, Max: 10},
		{ID: "comment", Kind: survey.KindFreeText},
	}}
}

func buildTextVectors(t *testing.T, comments []string) (*cluster.Schema, []cluster.Vector) {
	t.Helper()
	sv := textSurvey()
	respondents := make([]survey.Respondent, len(comments))
	for i, c := range comments {
		respondents[i] = survey.Respondent{
			UserID:   string(rune('a' + i)),
			SurveyID: "sv1",
			Answers: []survey.Answer{
				{QuestionID: "score", Value: float64(i)},
				{QuestionID: "comment", Value: c},
			},
		}
	}
	schema, err := cluster.BuildSchema(sv)
	if err != nil {
		t.Fatalf("BuildSchema failed: %v", err)
	}
	vectors, err := cluster.BuildVectors(schema, respondents, sv.IndexResolver())
	if err != nil {
		t.Fatalf("BuildVectors failed: %v", err)
	}
	return schema, vectors
}

func TestTopTermsPerCluster(t *testing.T) {
	schema, vectors := buildTextVectors(t, []string{
		"shipping was slow and shipping cost too much",
		"slow shipping again",
		"great quality product",
		"quality product, great price",
	})
	labels := []int{0, 0, 1, 1}

	terms, err := TopTerms(schema, vectors, labels, 2, 3)
	if err != nil {
		t.Fatalf("TopTerms failed: %v", err)
	}
	if len(terms) != 2 {
		t.Fatalf("got summaries for %d clusters, want 2", len(terms))
	}
	if !contains(terms[0], "shipping") {
		t.Errorf("cluster 0 terms %v should mention shipping", terms[0])
	}
	if !contains(terms[1], "quality") {
		t.Errorf("cluster 1 terms %v should mention quality", terms[1])
	}
}

func TestTopTermsNoFreeTextColumns(t *testing.T) {
	sv := &survey.Survey{ID: "sv1", Questions: []survey.Question{
		{ID: "score", Kind: survey.KindNumeric, Min: 0, Max: 10},
	}}
	schema, err := cluster.BuildSchema(sv)
	if err != nil {
		t.Fatal(err)
	}
	vectors, err := cluster.BuildVectors(schema, []survey.Respondent{
		{UserID: "u1", SurveyID: "sv1", Answers: []survey.Answer{{QuestionID: "score", Value: 5.0}}},
	}, sv.IndexResolver())
	if err != nil {
		t.Fatal(err)
	}

	terms, err := TopTerms(schema, vectors, []int{0}, 1, 5)
	if err != nil {
		t.Fatalf("TopTerms failed: %v", err)
	}
	if len(terms) != 0 {
		t.Errorf("expected no summaries without free-text columns, got %v", terms)
	}
}

func TestTopTermsSkipsEmptyClusters(t *testing.T) {
	schema, vectors := buildTextVectors(t, []string{"alpha beta", ""})
	labels := []int{0, 0}

	terms, err := TopTerms(schema, vectors, labels, 2, 5)
	if err != nil {
		t.Fatalf("TopTerms failed: %v", err)
	}
	if _, ok := terms[1]; ok {
		t.Errorf("cluster 1 has no members, should have no summary: %v", terms)
	}
	if !contains(terms[0], "alpha") {
		t.Errorf("cluster 0 terms %v should include alpha", terms[0])
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
