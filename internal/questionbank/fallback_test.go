package questionbank

import (
	"testing"

	"github.com/cbtprep/cbtprep-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_ExactCountEveryTime(t *testing.T) {
	gen := NewFallbackGenerator()

	for _, count := range []int{1, 3, 20, 100} {
		questions := gen.Generate("physics", count, model.ExamTypeUTME)
		assert.Len(t, questions, count)
	}
}

func TestGenerate_QuestionsAreWellFormed(t *testing.T) {
	gen := NewFallbackGenerator()

	questions := gen.Generate("mathematics", 20, model.ExamTypeUTME)
	require.Len(t, questions, 20)

	for _, q := range questions {
		assert.NotEmpty(t, q.ID)
		assert.Equal(t, "mathematics", q.Subject)
		assert.NotEmpty(t, q.Text)
		assert.Equal(t, model.QuestionSourceGenerated, q.Source)

		require.Len(t, q.Options, 4)
		seen := map[string]bool{}
		for _, label := range model.OptionLabels {
			text, ok := q.Options[label]
			require.True(t, ok, "missing option %s", label)
			assert.NotEmpty(t, text)
			assert.False(t, seen[text], "duplicate option text %q", text)
			seen[text] = true
		}

		assert.Contains(t, model.OptionLabels, q.Answer)
	}
}

func TestGenerate_CorrectLabelRotates(t *testing.T) {
	gen := NewFallbackGenerator()

	questions := gen.Generate("biology", 8, model.ExamTypeUTME)
	labels := map[string]int{}
	for _, q := range questions {
		labels[q.Answer]++
	}
	assert.Len(t, labels, 4, "all four labels should appear as the keyed answer")
}

func TestGenerate_FreshIDsAcrossCalls(t *testing.T) {
	gen := NewFallbackGenerator()

	first := gen.Generate("english", 10, model.ExamTypeUTME)
	second := gen.Generate("english", 10, model.ExamTypeUTME)

	ids := map[string]bool{}
	for _, q := range append(first, second...) {
		assert.False(t, ids[q.ID], "duplicate id %s", q.ID)
		ids[q.ID] = true
	}
}

func TestGenerate_UnknownSubjectUsesDefaultTemplates(t *testing.T) {
	gen := NewFallbackGenerator()

	questions := gen.Generate("currentaffairs", 3, model.ExamTypeNECO)
	require.Len(t, questions, 3)
	for _, q := range questions {
		assert.Equal(t, "currentaffairs", q.Subject)
	}
}

func TestGenerate_NonPositiveCount(t *testing.T) {
	gen := NewFallbackGenerator()

	assert.Nil(t, gen.Generate("physics", 0, model.ExamTypeUTME))
	assert.Nil(t, gen.Generate("physics", -5, model.ExamTypeUTME))
}
