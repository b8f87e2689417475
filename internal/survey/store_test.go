package survey

import "testing"

func TestInMemoryStoreKeepsInsertionOrder(t *testing.T) {
	store := NewInMemoryStore()
	sv := Survey{ID: "sv1", Questions: []Question{{ID: "q", Kind: KindFreeText}}}
	if err := store.PutSurvey(sv); err != nil {
		t.Fatal(err)
	}

	for _, u := range []string{"u1", "u2", "u3"} {
		if err := store.AddRespondent(Respondent{UserID: u, SurveyID: "sv1"}); err != nil {
			t.Fatal(err)
		}
	}

	respondents := store.Respondents("sv1")
	if len(respondents) != 3 || store.Count("sv1") != 3 {
		t.Fatalf("got %d respondents, want 3", len(respondents))
	}
	for i, want := range []string{"u1", "u2", "u3"} {
		if respondents[i].UserID != want {
			t.Errorf("respondent %d = %q, want %q (insertion order)", i, respondents[i].UserID, want)
		}
	}
}

func TestIndexResolver(t *testing.T) {
	sv := Survey{ID: "sv1", Questions: []Question{
		{ID: "a", Kind: KindNumeric},
		{ID: "b", Kind: KindFreeText},
	}}
	r := sv.IndexResolver()
	if got := r.Resolve("sv1", "b"); got != 1 {
		t.Errorf("Resolve(sv1, b) = %d, want 1", got)
	}
	if got := r.Resolve("sv1", "missing"); got != -1 {
		t.Errorf("Resolve of unknown question = %d, want -1", got)
	}
	if got := r.Resolve("other", "a"); got != -1 {
		t.Errorf("Resolve of wrong survey = %d, want -1", got)
	}
}

func TestParseQuestionKind(t *testing.T) {
	cases := map[string]QuestionKind{
		"numeric":            KindNumeric,
		"ordinal":            KindOrdinal,
		"categorical_single": KindCategoricalSingle,
		"categorical":        KindCategoricalSingle,
		"categorical_multi":  KindCategoricalMulti,
		"multi":              KindCategoricalMulti,
		"free_text":          KindFreeText,
		"text":               KindFreeText,
		"telepathic":         KindUnknown,
	}
	for in, want := range cases {
		if got := ParseQuestionKind(in); got != want {
			t.Errorf("ParseQuestionKind(%q) = %v, want %v", in, got, want)
		}
	}
}
