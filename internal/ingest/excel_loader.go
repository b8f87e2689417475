package ingest

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/omarkamali/cohort/internal/config"
	"github.com/omarkamali/cohort/internal/survey"
	"github.com/omarkamali/cohort/internal/util"
)

// ExcelLoader reads respondent answers from .xlsx/.xlsm workbooks. Only the
// first sheet is read; its first row is the header.

type ExcelLoader struct {
	cfg config.DataConfig
}

func NewExcelLoader(cfg config.DataConfig) *ExcelLoader { return &ExcelLoader{cfg: cfg} }

func (l *ExcelLoader) Extensions() []string { return []string{".xlsx", ".xlsm"} }

func (l *ExcelLoader) Load(ctx context.Context, sv *survey.Survey, absPath string) ([]survey.Respondent, error) {
	logger := util.FromContext(ctx)
	logger.Info("Loading Excel answers", "survey", sv.ID, "path", absPath)

	f, err := excelize.OpenFile(absPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", absPath)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var all []map[string]string
	headers := rows[0]
	for _, row := range rows[1:] {
		m := map[string]string{}
		for i, cell := range row {
			var key string
			if i < len(headers) && headers[i] != "" {
				key = headers[i]
			} else {
				col, _ := excelize.ColumnNumberToName(i + 1)
				key = col
			}
			m[key] = cell
		}
		all = append(all, m)
	}

	return respondentsFromRows(ctx, sv, stringRows(all), absPath), nil
}
