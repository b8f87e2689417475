package cluster

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/omarkamali/cohort/internal/survey"
)

func TestSilhouetteSingletonRespondent(t *testing.T) {
	sv := &survey.Survey{ID: "sv1", Questions: []survey.Question{
		{ID: "q", Kind: survey.KindCategoricalSingle, Options: []string{"RED", "BLUE"}},
	}}
	respondents := []survey.Respondent{
		respondent("u1", survey.Answer{QuestionID: "q", Value: "RED"}),
	}
	s, vectors := buildFor(t, sv, respondents)

	labels, _, err := Run(context.Background(), AlgoLloyd, s, vectors, 1, 100, rand.New(rand.NewSource(0)))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(labels) != 1 || labels[0] != 0 {
		t.Fatalf("expected one cluster of size 1, got %v", labels)
	}
	if sil := Silhouette(s, vectors, labels, 1); sil != 0 {
		t.Errorf("silhouette = %g, want exactly 0", sil)
	}
}

func TestSilhouetteSingleClusterIsZero(t *testing.T) {
	sv := numericSurvey(0, 40)
	s, vectors := buildFor(t, sv, numericRespondents(1, 5, 9, 30))
	labels := []int{0, 0, 0, 0}
	if sil := Silhouette(s, vectors, labels, 1); sil != 0 {
		t.Errorf("one non-empty cluster should score 0, got %g", sil)
	}
	// k=3 declared with only one used behaves the same.
	if sil := Silhouette(s, vectors, labels, 3); sil != 0 {
		t.Errorf("one used cluster of three should score 0, got %g", sil)
	}
}

func TestSilhouetteRangeAndFiniteness(t *testing.T) {
	sv := numericSurvey(0, 40)
	s, vectors := buildFor(t, sv, numericRespondents(3, 4, 5, 20, 22, 38))

	for k := 2; k <= len(vectors); k++ {
		labels, _, err := Run(context.Background(), AlgoMedoid, s, vectors, k, 50, rand.New(rand.NewSource(int64(k))))
		if err != nil {
			t.Fatalf("k=%d: Run failed: %v", k, err)
		}
		sil := Silhouette(s, vectors, labels, k)
		if math.IsNaN(sil) || math.IsInf(sil, 0) {
			t.Fatalf("k=%d: silhouette not finite: %v", k, sil)
		}
		if sil < -1 || sil > 1 {
			t.Errorf("k=%d: silhouette %g outside [-1, 1]", k, sil)
		}
	}
}

func TestSilhouetteRewardsTheNaturalSplit(t *testing.T) {
	sv := numericSurvey(0, 40)
	s, vectors := buildFor(t, sv, numericRespondents(10, 11, 30, 31))

	natural := Silhouette(s, vectors, []int{0, 0, 1, 1}, 2)
	crossed := Silhouette(s, vectors, []int{0, 1, 0, 1}, 2)
	if natural <= crossed {
		t.Errorf("natural split %g should beat crossed split %g", natural, crossed)
	}
	if natural <= 0.8 {
		t.Errorf("natural split silhouette = %g, want > 0.8", natural)
	}
	if crossed >= 0 {
		t.Errorf("crossed split should score negative, got %g", crossed)
	}
}
