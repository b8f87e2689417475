// Package ingest loads survey definitions and respondent answer files.
// Answer files are tabular: one row per respondent, a user_id column, and
// one column per question id. Loaders hand raw values to the clustering
// vector builder untouched; all kind-aware parsing happens there.
package ingest

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/omarkamali/cohort/internal/config"
	"github.com/omarkamali/cohort/internal/survey"
)

// Loader defines the interface for loading respondent answers from one file
// format.
type Loader interface {
	Extensions() []string // file extensions this loader handles (e.g. [".csv"])
	Load(ctx context.Context, sv *survey.Survey, absPath string) ([]survey.Respondent, error)
}

// Loaders returns the full loader set for the given data configuration.
func Loaders(cfg config.DataConfig) []Loader {
	return []Loader{
		NewCSVLoader(cfg),
		NewJSONLoader(cfg),
		NewExcelLoader(cfg),
		NewParquetLoader(cfg),
		NewSQLiteLoader(cfg),
	}
}

// LoaderFor picks the loader responsible for a path, or nil when the
// extension is not supported.
func LoaderFor(path string, cfg config.DataConfig) Loader {
	ext := strings.ToLower(filepath.Ext(path))
	for _, l := range Loaders(cfg) {
		for _, e := range l.Extensions() {
			if e == ext {
				return l
			}
		}
	}
	return nil
}
