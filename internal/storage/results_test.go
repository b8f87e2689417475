package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/omarkamali/cohort/internal/cluster"
)

func sampleResult(surveyID string, k int) cluster.Result {
	return cluster.Result{
		SurveyID:   surveyID,
		Algorithm:  "LLOYD",
		K:          k,
		Silhouette: 0.73,
		Seed:       2000,
		Groups: map[int][]string{
			0: {"u1", "u2"},
			1: {"u3"},
		},
	}
}

func TestMemoryResultStore(t *testing.T) {
	store := NewMemoryResultStore()
	ctx := context.Background()

	rec, err := store.Save(ctx, sampleResult("sv1", 2))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if rec.ID != 1 || rec.CreatedAt.IsZero() {
		t.Errorf("record not stamped: %+v", rec)
	}
	if _, err := store.Save(ctx, sampleResult("sv1", 3)); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(ctx, sampleResult("other", 2)); err != nil {
		t.Fatal(err)
	}

	records, err := store.BySurvey(ctx, "sv1")
	if err != nil {
		t.Fatalf("BySurvey failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Result.K != 3 {
		t.Errorf("records not newest-first: first k=%d", records[0].Result.K)
	}

	count, err := store.Count(ctx)
	if err != nil || count != 3 {
		t.Errorf("Count = %d,%v; want 3", count, err)
	}
}

func TestSQLiteResultStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	store, err := NewSQLiteResultStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteResultStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	saved, err := store.Save(ctx, sampleResult("sv1", 2))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.ID == 0 {
		t.Error("saved record has no id")
	}

	records, err := store.BySurvey(ctx, "sv1")
	if err != nil {
		t.Fatalf("BySurvey failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	got := records[0].Result
	if got.Algorithm != "LLOYD" || got.K != 2 || got.Silhouette != 0.73 || got.Seed != 2000 {
		t.Errorf("round-tripped result mismatch: %+v", got)
	}
	if len(got.Groups[0]) != 2 || got.Groups[1][0] != "u3" {
		t.Errorf("groups did not survive the round trip: %v", got.Groups)
	}

	if records, err := store.BySurvey(ctx, "absent"); err != nil || len(records) != 0 {
		t.Errorf("absent survey should return no records, got %d,%v", len(records), err)
	}
}
