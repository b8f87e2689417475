package ingest

import (
	"context"
	"encoding/json"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/omarkamali/cohort/internal/config"
	"github.com/omarkamali/cohort/internal/survey"
	"github.com/omarkamali/cohort/internal/util"
)

// ParquetLoader reads respondent answers from .parquet files.

type ParquetLoader struct {
	cfg config.DataConfig
}

func NewParquetLoader(cfg config.DataConfig) *ParquetLoader { return &ParquetLoader{cfg: cfg} }

func (l *ParquetLoader) Extensions() []string { return []string{".parquet"} }

func (l *ParquetLoader) Load(ctx context.Context, sv *survey.Survey, absPath string) ([]survey.Respondent, error) {
	util.FromContext(ctx).Info("Loading Parquet answers", "survey", sv.ID, "path", absPath)

	fr, err := local.NewLocalFileReader(absPath)
	if err != nil {
		return nil, err
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, nil, 1)
	if err != nil {
		return nil, err
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	var rows []map[string]interface{}
	batchSize := 1000
	for read := 0; read < num; {
		n := batchSize
		if num-read < n {
			n = num - read
		}
		data, err := pr.ReadByNumber(n)
		if err != nil {
			return nil, err
		}
		for _, rowData := range data {
			if rowData == nil {
				continue
			}
			// Rows come back as generated structs; round-trip through JSON
			// to get the generic map shape the row converter expects.
			b, err := json.Marshal(rowData)
			if err != nil {
				continue
			}
			var m map[string]interface{}
			if err := json.Unmarshal(b, &m); err != nil {
				continue
			}
			rows = append(rows, m)
		}
		read += n
	}

	return respondentsFromRows(ctx, sv, rows, absPath), nil
}
