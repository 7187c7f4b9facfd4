package model

// OptionLabels are the four answer labels every question carries.
var OptionLabels = []string{"A", "B", "C", "D"}

// QuestionSource identifies where a question snapshot came from.
type QuestionSource string

const (
	QuestionSourceAPI       QuestionSource = "aloc"
	QuestionSourceGenerated QuestionSource = "generated"
)

// Question is an immutable snapshot of a question captured at assembly time
// and embedded in a session. Snapshots (rather than references) keep grading
// stable even if the external question bank changes or goes away.
type Question struct {
	ID       string            `json:"id"`
	Subject  string            `json:"subject"`
	Text     string            `json:"text"`
	Options  map[string]string `json:"options"`
	Answer   string            `json:"answer"`
	Solution string            `json:"solution,omitempty"`
	ExamType string            `json:"exam_type,omitempty"`
	ExamYear string            `json:"exam_year,omitempty"`
	Source   QuestionSource    `json:"source"`
}

// QuestionForStudent is the client-facing view of a question while a session
// is active: the correct answer and solution are stripped.
type QuestionForStudent struct {
	ID      string            `json:"id"`
	Subject string            `json:"subject"`
	Text    string            `json:"text"`
	Options map[string]string `json:"options"`
}

// ForStudent strips grading fields from a question snapshot.
func (q Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:      q.ID,
		Subject: q.Subject,
		Text:    q.Text,
		Options: q.Options,
	}
}
