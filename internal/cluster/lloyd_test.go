package cluster

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/omarkamali/cohort/internal/survey"
)

func numericRespondents(values ...float64) []survey.Respondent {
	out := make([]survey.Respondent, len(values))
	for i, v := range values {
		out[i] = respondent(userID(i), survey.Answer{QuestionID: "q", Value: v})
	}
	return out
}

func userID(i int) string {
	return string(rune('a' + i))
}

func TestLloydSeparatesTwoCleanClusters(t *testing.T) {
	sv := numericSurvey(0, 40)
	s, vectors := buildFor(t, sv, numericRespondents(10, 11, 30, 31))

	labels, centers, err := Run(context.Background(), AlgoLloyd, s, vectors, 2, 100, rand.New(rand.NewSource(0)))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if labels[0] != labels[1] || labels[2] != labels[3] || labels[0] == labels[2] {
		t.Fatalf("expected {10,11} vs {30,31}, got labels %v", labels)
	}
	if sil := Silhouette(s, vectors, labels, 2); sil <= 0.8 {
		t.Errorf("silhouette = %g, want > 0.8", sil)
	}

	low, high := centers[labels[0]][0].Num, centers[labels[2]][0].Num
	if math.Abs(low-10.5) > 1e-9 || math.Abs(high-30.5) > 1e-9 {
		t.Errorf("centers = %g, %g, want 10.5 and 30.5", low, high)
	}
}

func TestLloydIdenticalPointsSingleCluster(t *testing.T) {
	sv := numericSurvey(0, 10)
	s, vectors := buildFor(t, sv, numericRespondents(5, 5, 5, 5))

	labels, centers, err := Run(context.Background(), AlgoLloyd, s, vectors, 1, 100, rand.New(rand.NewSource(0)))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for _, l := range labels {
		if l != 0 {
			t.Fatalf("expected a single cluster, got labels %v", labels)
		}
	}
	if math.Abs(centers[0][0].Num-5.0) > 1e-6 {
		t.Errorf("center = %g, want 5.0", centers[0][0].Num)
	}
	if sil := Silhouette(s, vectors, labels, 1); sil != 0 {
		t.Errorf("silhouette = %g, want exactly 0", sil)
	}
}

func TestLloydCategoricalCenterIsMajorityLabel(t *testing.T) {
	sv := &survey.Survey{ID: "sv1", Questions: []survey.Question{
		{ID: "q", Kind: survey.KindCategoricalSingle, Options: []string{"A", "B"}},
	}}
	respondents := []survey.Respondent{
		respondent("u1", survey.Answer{QuestionID: "q", Value: "A"}),
		respondent("u2", survey.Answer{QuestionID: "q", Value: "A"}),
		respondent("u3", survey.Answer{QuestionID: "q", Value: "B"}),
	}
	s, vectors := buildFor(t, sv, respondents)

	_, centers, err := Run(context.Background(), AlgoLloyd, s, vectors, 1, 100, rand.New(rand.NewSource(0)))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := centers[0][0].Label; got != "A" {
		t.Errorf("center label = %q, want majority label A", got)
	}
}

func TestLloydMultiCenterUsesPerOptionMajority(t *testing.T) {
	sv := &survey.Survey{ID: "sv1", Questions: []survey.Question{
		{ID: "q", Kind: survey.KindCategoricalMulti, Options: []string{"x", "y"}},
	}}
	respondents := []survey.Respondent{
		respondent("u1", survey.Answer{QuestionID: "q", Value: []string{"x", "y"}}),
		respondent("u2", survey.Answer{QuestionID: "q", Value: []string{"x"}}),
		respondent("u3", survey.Answer{QuestionID: "q", Value: []string{"x"}}),
	}
	s, vectors := buildFor(t, sv, respondents)

	_, centers, err := Run(context.Background(), AlgoLloyd, s, vectors, 1, 100, rand.New(rand.NewSource(0)))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	set := centers[0][0].Set
	if !set["x"] || set["y"] {
		t.Errorf("center set = %v, want {x} (y present in only 1/3)", centers[0][0].SetLabels())
	}
}

func TestSeededLloydConverges(t *testing.T) {
	sv := numericSurvey(0, 40)
	s, vectors := buildFor(t, sv, numericRespondents(10, 11, 12, 30, 31, 32))

	labels, _, err := Run(context.Background(), AlgoSeededLloyd, s, vectors, 2, 100, rand.New(rand.NewSource(0)))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if labels[0] != labels[1] || labels[1] != labels[2] ||
		labels[3] != labels[4] || labels[4] != labels[5] ||
		labels[0] == labels[3] {
		t.Fatalf("expected the two bands separated, got labels %v", labels)
	}
}

func TestRunPartitionsEveryRow(t *testing.T) {
	sv := numericSurvey(0, 40)
	s, vectors := buildFor(t, sv, numericRespondents(1, 2, 3, 20, 21, 39))

	for k := 1; k <= len(vectors); k++ {
		labels, _, err := Run(context.Background(), AlgoLloyd, s, vectors, k, 50, rand.New(rand.NewSource(7)))
		if err != nil {
			t.Fatalf("k=%d: Run failed: %v", k, err)
		}
		if len(labels) != len(vectors) {
			t.Fatalf("k=%d: %d labels for %d rows", k, len(labels), len(vectors))
		}
		for i, l := range labels {
			if l < 0 || l >= k {
				t.Errorf("k=%d: row %d has label %d outside [0,%d)", k, i, l, k)
			}
		}
	}
}
