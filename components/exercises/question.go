package exercises

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yanizio/campus/internal/form"
)

// Question kinds.
const (
	KindMultipleChoice = "multiple_choice"
	KindLong           = "long"
)

// Option bounds for multiple-choice questions.
const (
	MinOptions = 2
	MaxOptions = 6
)

// Question is an authored exercise question.
type Question struct {
	Kind         string   `json:"kind"          validate:"required,oneof=multiple_choice long"`
	Prompt       string   `json:"prompt"        validate:"required,max=2000"`
	Options      []string `json:"options,omitempty"       validate:"dive,required"`
	CorrectIndex *int     `json:"correct_index,omitempty"`
	Body         string   `json:"body,omitempty"`
	Points       int      `json:"points,omitempty"        validate:"gte=0"`
}

func init() { form.Validator().RegisterStructValidation(questionRules, Question{}) }

// questionRules applies the kind-specific constraints.
func questionRules(sl validator.StructLevel) {
	q := sl.Current().Interface().(Question)
	switch q.Kind {
	case KindMultipleChoice:
		n := len(q.Options)
		switch {
		case n < MinOptions:
			sl.ReportError(q.Options, "options", "Options", "min", "2")
		case n > MaxOptions:
			sl.ReportError(q.Options, "options", "Options", "max", "6")
		}
		switch {
		case q.CorrectIndex == nil:
			sl.ReportError(q.CorrectIndex, "correct_index", "CorrectIndex", "required", "")
		case *q.CorrectIndex < 0 || *q.CorrectIndex >= n:
			sl.ReportError(q.CorrectIndex, "correct_index", "CorrectIndex", "in_range", "")
		}
	case KindLong:
		if strings.TrimSpace(q.Body) == "" {
			sl.ReportError(q.Body, "body", "Body", "required", "")
		}
	}
}
