package ingest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/omarkamali/cohort/internal/survey"
)

// LoadSurvey reads a survey definition from a YAML file: id, title and the
// ordered question list with kinds, numeric ranges and option labels.
func LoadSurvey(path string) (*survey.Survey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read survey definition %s: %w", path, err)
	}
	var sv survey.Survey
	if err := yaml.Unmarshal(data, &sv); err != nil {
		return nil, fmt.Errorf("failed to parse survey definition %s: %w", path, err)
	}
	if sv.ID == "" {
		return nil, fmt.Errorf("survey definition %s has no id", path)
	}
	if len(sv.Questions) == 0 {
		return nil, fmt.Errorf("survey definition %s has no questions", path)
	}
	sv.Normalize()
	for _, q := range sv.Questions {
		if q.Kind == survey.KindUnknown {
			return nil, fmt.Errorf("survey %s: question %s has unknown kind %q", sv.ID, q.ID, q.KindStr)
		}
	}
	return &sv, nil
}
