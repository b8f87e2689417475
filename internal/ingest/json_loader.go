package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/omarkamali/cohort/internal/config"
	"github.com/omarkamali/cohort/internal/survey"
	"github.com/omarkamali/cohort/internal/util"
)

// JSONLoader handles .json (array of objects) and .jsonl files. JSON keeps
// native value shapes, so multi-category answers may arrive as real arrays
// rather than encoded strings.
type JSONLoader struct {
	cfg config.DataConfig
}

func NewJSONLoader(cfg config.DataConfig) *JSONLoader { return &JSONLoader{cfg: cfg} }

func (l *JSONLoader) Extensions() []string { return []string{".json", ".jsonl"} }

func (l *JSONLoader) Load(ctx context.Context, sv *survey.Survey, absPath string) ([]survey.Respondent, error) {
	logger := util.FromContext(ctx)
	logger.Info("Loading JSON answers", "survey", sv.ID, "path", absPath)

	f, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []map[string]interface{}

	if filepath.Ext(absPath) == ".jsonl" {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var obj map[string]interface{}
			if err := json.Unmarshal(scanner.Bytes(), &obj); err != nil {
				logger.Warn("Skipping invalid JSONL line", "path", absPath, "err", err)
				continue
			}
			rows = append(rows, obj)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	} else {
		dec := json.NewDecoder(f)
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if delim, ok := tok.(json.Delim); ok && delim == '[' {
			for dec.More() {
				var obj map[string]interface{}
				if err := dec.Decode(&obj); err != nil {
					return nil, err
				}
				rows = append(rows, obj)
			}
			_, _ = dec.Token() // consume closing ]
		}
	}

	return respondentsFromRows(ctx, sv, rows, absPath), nil
}
