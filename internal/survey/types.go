package survey

// QuestionKind identifies how a question's answers are interpreted by the
// clustering engine.
type QuestionKind int

const (
	KindUnknown QuestionKind = iota
	KindNumeric
	KindOrdinal
	KindCategoricalSingle
	KindCategoricalMulti
	KindFreeText
)

func (k QuestionKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindOrdinal:
		return "ordinal"
	case KindCategoricalSingle:
		return "categorical_single"
	case KindCategoricalMulti:
		return "categorical_multi"
	case KindFreeText:
		return "free_text"
	default:
		return "unknown"
	}
}

// ParseQuestionKind maps the textual kind used in survey definition files.
func ParseQuestionKind(s string) QuestionKind {
	switch s {
	case "numeric":
		return KindNumeric
	case "ordinal":
		return KindOrdinal
	case "categorical_single", "categorical":
		return KindCategoricalSingle
	case "categorical_multi", "multi":
		return KindCategoricalMulti
	case "free_text", "text":
		return KindFreeText
	default:
		return KindUnknown
	}
}

// Question is one column of a survey. For numeric questions Min/Max declare
// the answer range; for ordinal and categorical questions Options carries the
// declared labels, in order for ordinals.
type Question struct {
	ID      string       `yaml:"id" json:"id"`
	Text    string       `yaml:"text" json:"text"`
	Kind    QuestionKind `yaml:"-" json:"-"`
	KindStr string       `yaml:"kind" json:"kind"`
	Min     float64      `yaml:"min" json:"min"`
	Max     float64      `yaml:"max" json:"max"`
	Options []string     `yaml:"options,omitempty" json:"options,omitempty"`
}

// Survey holds the ordered question list. Question order defines the column
// order of the feature vectors built for its respondents.
type Survey struct {
	ID        string     `yaml:"id" json:"id"`
	Title     string     `yaml:"title" json:"title"`
	Questions []Question `yaml:"questions" json:"questions"`
}

// Answer is a single (question, value) pair. Value's runtime shape follows
// the question kind: float64 or numeric string for numeric, label string for
// ordinal/single-category, []string / comma list / "SET:a|||b" string for
// multi-category, plain string for free text. nil and "" mean missing.
type Answer struct {
	QuestionID string      `json:"question_id"`
	Value      interface{} `json:"value"`
}

// Respondent is one submitted answer sheet for a survey.
type Respondent struct {
	UserID   string   `json:"user_id"`
	SurveyID string   `json:"survey_id"`
	Answers  []Answer `json:"answers"`
}

// AnswerTo returns the respondent's answer for a question, if any.
func (r *Respondent) AnswerTo(questionID string) (Answer, bool) {
	for _, a := range r.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return Answer{}, false
}

// Resolver maps a (surveyID, questionID) pair to its column index, or -1 if
// the pair is unknown.
type Resolver interface {
	Resolve(surveyID, questionID string) int
}

// indexResolver resolves question ids against one survey's declared order.
type indexResolver struct {
	surveyID string
	index    map[string]int
}

func (r *indexResolver) Resolve(surveyID, questionID string) int {
	if surveyID != r.surveyID {
		return -1
	}
	if i, ok := r.index[questionID]; ok {
		return i
	}
	return -1
}

// IndexResolver returns a Resolver over the survey's question order.
func (s *Survey) IndexResolver() Resolver {
	idx := make(map[string]int, len(s.Questions))
	for i, q := range s.Questions {
		idx[q.ID] = i
	}
	return &indexResolver{surveyID: s.ID, index: idx}
}

// Normalize fills the parsed Kind from KindStr after YAML/JSON decoding.
func (s *Survey) Normalize() {
	for i := range s.Questions {
		if s.Questions[i].Kind == KindUnknown {
			s.Questions[i].Kind = ParseQuestionKind(s.Questions[i].KindStr)
		}
		if s.Questions[i].KindStr == "" {
			s.Questions[i].KindStr = s.Questions[i].Kind.String()
		}
	}
}
