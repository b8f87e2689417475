package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/omarkamali/cohort/internal/config"
	"github.com/omarkamali/cohort/internal/survey"
)

func dataCfg() config.DataConfig {
	return config.DataConfig{Delimiter: ","}
}

func writeSurveyDef(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "customer.yml")
	def := `id: customer
title: Customer survey
questions:
  - id: age
    text: Your age
    kind: numeric
    min: 0
    max: 120
  - id: satisfaction
    text: How satisfied are you?
    kind: ordinal
    options: [LOW, MID, HIGH]
  - id: channels
    text: Channels you use
    kind: categorical_multi
    options: [email, phone, chat]
  - id: comment
    text: Anything else?
    kind: free_text
`
	if err := os.WriteFile(path, []byte(def), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSurvey(t *testing.T) {
	sv, err := LoadSurvey(writeSurveyDef(t))
	if err != nil {
		t.Fatalf("LoadSurvey failed: %v", err)
	}
	if sv.ID != "customer" || len(sv.Questions) != 4 {
		t.Fatalf("unexpected survey: id=%q questions=%d", sv.ID, len(sv.Questions))
	}
	if sv.Questions[1].Kind != survey.KindOrdinal {
		t.Errorf("satisfaction kind = %v, want ordinal", sv.Questions[1].Kind)
	}
	if sv.Questions[0].Max != 120 {
		t.Errorf("age max = %g, want 120", sv.Questions[0].Max)
	}
}

func TestLoadSurveyRejectsUnknownKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yml")
	def := "id: bad\nquestions:\n  - id: q\n    kind: telepathic\n"
	if err := os.WriteFile(path, []byte(def), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSurvey(path); err == nil {
		t.Fatal("expected error for unknown question kind")
	}
}

func TestCSVLoader(t *testing.T) {
	sv, err := LoadSurvey(writeSurveyDef(t))
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	file := filepath.Join(dir, "answers.csv")
	content := "user_id,age,satisfaction,channels,comment\n" +
		"u1,34,HIGH,\"email, chat\",all good\n" +
		"u2,51,LOW,SET:phone|||email,\n" +
		"u3,,MID,phone,meh\n"
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	l := NewCSVLoader(dataCfg())
	respondents, err := l.Load(context.Background(), sv, file)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(respondents) != 3 {
		t.Fatalf("got %d respondents, want 3", len(respondents))
	}
	if respondents[0].UserID != "u1" || respondents[0].SurveyID != "customer" {
		t.Errorf("unexpected first respondent: %+v", respondents[0])
	}
	if a, ok := respondents[1].AnswerTo("channels"); !ok || a.Value != "SET:phone|||email" {
		t.Errorf("legacy set encoding should pass through raw, got %v", a.Value)
	}
	// Answers follow the survey's question order regardless of column order.
	if respondents[0].Answers[0].QuestionID != "age" {
		t.Errorf("first answer is %q, want age", respondents[0].Answers[0].QuestionID)
	}
}

func TestCSVLoaderSkipsRowsWithoutUserID(t *testing.T) {
	sv, err := LoadSurvey(writeSurveyDef(t))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	file := filepath.Join(dir, "answers.csv")
	content := "user_id,age\nu1,30\n,40\n"
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	respondents, err := NewCSVLoader(dataCfg()).Load(context.Background(), sv, file)
	if err != nil {
		t.Fatal(err)
	}
	if len(respondents) != 1 {
		t.Fatalf("got %d respondents, want 1 (anonymous row skipped)", len(respondents))
	}
}

func TestJSONLoaderKeepsNativeShapes(t *testing.T) {
	sv, err := LoadSurvey(writeSurveyDef(t))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	file := filepath.Join(dir, "answers.json")
	rows := []map[string]interface{}{
		{"user_id": "u1", "age": 28, "satisfaction": "HIGH", "channels": []string{"chat"}},
		{"user_id": "u2", "age": 61, "satisfaction": "LOW", "channels": []string{"email", "phone"}},
	}
	data, _ := json.Marshal(rows)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatal(err)
	}

	respondents, err := NewJSONLoader(dataCfg()).Load(context.Background(), sv, file)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(respondents) != 2 {
		t.Fatalf("got %d respondents, want 2", len(respondents))
	}
	a, ok := respondents[1].AnswerTo("channels")
	if !ok {
		t.Fatal("channels answer missing")
	}
	arr, ok := a.Value.([]interface{})
	if !ok || len(arr) != 2 {
		t.Errorf("channels answer should stay a native array, got %T %v", a.Value, a.Value)
	}
}

func TestLoaderFor(t *testing.T) {
	cfg := dataCfg()
	cases := map[string]bool{
		"answers.csv":     true,
		"answers.tsv":     true,
		"answers.json":    true,
		"answers.jsonl":   true,
		"answers.xlsx":    true,
		"answers.parquet": true,
		"answers.sqlite":  true,
		"answers.pdf":     false,
	}
	for path, want := range cases {
		if got := LoaderFor(path, cfg) != nil; got != want {
			t.Errorf("LoaderFor(%q) supported=%v, want %v", path, got, want)
		}
	}
}

func TestDiscoverAnswerFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "answers"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "node_modules", "x"), 0755); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"answers/z.csv", "answers/a.csv", "answers/b.txt", "node_modules/x/c.csv"} {
		if err := os.WriteFile(filepath.Join(root, p), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.DataConfig{
		Include: []string{"answers/*.csv"},
		Exclude: []string{"node_modules/**"},
	}
	got, err := DiscoverAnswerFiles(context.Background(), root, cfg)
	if err != nil {
		t.Fatalf("DiscoverAnswerFiles failed: %v", err)
	}
	want := []string{"answers/a.csv", "answers/z.csv"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("discovered %v, want %v (sorted)", got, want)
	}
}

func TestDiscoverAnswerFilesFallsBackToLoaderSupport(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"a.csv", "b.pdf"} {
		if err := os.WriteFile(filepath.Join(root, p), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	// No include patterns: anything a loader can read qualifies.
	got, err := DiscoverAnswerFiles(context.Background(), root, config.DataConfig{})
	if err != nil {
		t.Fatalf("DiscoverAnswerFiles failed: %v", err)
	}
	if len(got) != 1 || got[0] != "a.csv" {
		t.Errorf("discovered %v, want [a.csv]", got)
	}
}
