package questionbank

import (
	"fmt"
	"strings"

	"github.com/cbtprep/cbtprep-backend/internal/model"
	"github.com/google/uuid"
)

// FallbackGenerator produces syntactically well-formed practice questions
// when the external source under-delivers. Pure computation, no I/O, always
// succeeds — it is what guarantees a session reaches its full question count
// regardless of third-party uptime.
type FallbackGenerator struct{}

// NewFallbackGenerator creates a FallbackGenerator.
func NewFallbackGenerator() *FallbackGenerator {
	return &FallbackGenerator{}
}

// Templates keyed to broad subject areas; defaultTemplates covers the rest.
var subjectTemplates = map[string][]string{
	"mathematics": {
		"Evaluate the expression in practice item %d and select the correct result.",
		"Solve the equation given in practice item %d.",
		"Which option completes the sequence in practice item %d?",
	},
	"english": {
		"Choose the option nearest in meaning to the highlighted word in passage %d.",
		"Select the option that best completes sentence %d.",
		"Identify the grammatically correct option for item %d.",
	},
}

var defaultTemplates = []string{
	"Which option correctly answers practice item %d on this topic?",
	"Select the most accurate statement for practice item %d.",
	"Which of the following is correct for practice item %d?",
}

// Generate returns exactly count well-formed question snapshots tagged to the
// subject, each with four distinct options and one correct label. Safe to call
// repeatedly within one assembly: every question gets a fresh unique id.
func (g *FallbackGenerator) Generate(subject string, count int, examType string) []model.Question {
	if count <= 0 {
		return nil
	}
	subject = model.NormalizeSubject(subject)

	templates, ok := subjectTemplates[subject]
	if !ok {
		templates = defaultTemplates
	}
	display := displayName(subject)

	questions := make([]model.Question, 0, count)
	for i := 0; i < count; i++ {
		template := templates[i%len(templates)]
		// Rotate the correct label so generated papers don't key to one letter.
		correct := model.OptionLabels[i%len(model.OptionLabels)]

		options := make(map[string]string, len(model.OptionLabels))
		for j, label := range model.OptionLabels {
			options[label] = fmt.Sprintf("%s statement %d for item %d", display, j+1, i+1)
		}

		questions = append(questions, model.Question{
			ID:       uuid.New().String(),
			Subject:  subject,
			Text:     fmt.Sprintf("[%s practice] ", display) + fmt.Sprintf(template, i+1),
			Options:  options,
			Answer:   correct,
			Solution: fmt.Sprintf("Generated practice item; the keyed option is %s.", correct),
			ExamType: examType,
			Source:   model.QuestionSourceGenerated,
		})
	}

	return questions
}

func displayName(subject string) string {
	if subject == "" {
		return "General"
	}
	return strings.ToUpper(subject[:1]) + subject[1:]
}
