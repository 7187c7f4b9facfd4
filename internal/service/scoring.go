package service

import (
	"math"

	"github.com/cbtprep/cbtprep-backend/internal/model"
)

// SubjectScore is the per-subject correct/total pair shown on review.
type SubjectScore struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// ExamResult is the outcome of grading one session.
type ExamResult struct {
	Score            int                     `json:"score"`
	CorrectAnswers   int                     `json:"correct_answers"`
	TotalQuestions   int                     `json:"total_questions"`
	SubjectBreakdown map[string]SubjectScore `json:"subject_breakdown"`
}

// ScoreExam grades a question set against an answer map. Pure function:
// unanswered questions count as incorrect, never as an error — an empty
// answer map is a fully scoreable all-incorrect paper. TotalQuestions is
// always the snapshot count, never derived from the answer map. The subject
// breakdown aggregates by the tag each snapshot carried at assembly time.
func ScoreExam(questions []model.Question, answers map[string]string) ExamResult {
	result := ExamResult{
		TotalQuestions:   len(questions),
		SubjectBreakdown: make(map[string]SubjectScore),
	}

	for i := range questions {
		q := &questions[i]
		entry := result.SubjectBreakdown[q.Subject]
		entry.Total++

		if answers[q.ID] == q.Answer {
			entry.Correct++
			result.CorrectAnswers++
		}

		result.SubjectBreakdown[q.Subject] = entry
	}

	if result.TotalQuestions > 0 {
		result.Score = int(math.Round(float64(result.CorrectAnswers) / float64(result.TotalQuestions) * 100))
	}

	return result
}
