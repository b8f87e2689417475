package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/omarkamali/cohort/internal/config"
	"github.com/omarkamali/cohort/internal/survey"
	"github.com/omarkamali/cohort/internal/util"
)

// CSVLoader reads respondent answers from .csv/.tsv files. Rows stream
// through encoding/csv; the first record is the header.

type CSVLoader struct {
	cfg       config.DataConfig
	delimiter rune
}

func NewCSVLoader(cfg config.DataConfig) *CSVLoader {
	d := ','
	if cfg.Delimiter != "" {
		if cfg.Delimiter == "\t" {
			d = '\t'
		} else {
			d = rune(cfg.Delimiter[0])
		}
	}
	return &CSVLoader{cfg: cfg, delimiter: d}
}

func (l *CSVLoader) Extensions() []string { return []string{".csv", ".tsv"} }

func (l *CSVLoader) Load(ctx context.Context, sv *survey.Survey, absPath string) ([]survey.Respondent, error) {
	logger := util.FromContext(ctx)
	logger.Info("Loading CSV answers", "survey", sv.ID, "path", absPath)
	f, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = l.delimiter
	if strings.EqualFold(filepath.Ext(absPath), ".tsv") {
		r.Comma = '\t'
	}
	r.FieldsPerRecord = -1
	headers, err := r.Read()
	if err != nil {
		return nil, err
	}

	var rows []map[string]string
	for {
		record, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			logger.Warn("CSV read error", "path", absPath, "err", err)
			break
		}
		row := make(map[string]string, len(headers))
		for idx, h := range headers {
			if idx < len(record) {
				row[h] = record[idx]
			}
		}
		rows = append(rows, row)
	}

	return respondentsFromRows(ctx, sv, stringRows(rows), absPath), nil
}
