package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cbtprep/cbtprep-backend/internal/config"
	"github.com/cbtprep/cbtprep-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// Explanation is the tutoring payload for one reviewed question.
type Explanation struct {
	QuestionID  string `json:"question_id"`
	Explanation string `json:"explanation"`
	Generated   bool   `json:"generated"`
}

// ExplainService produces a tutor-style explanation for a reviewed question
// via an OpenAI-compatible chat API. Degrades to the snapshot's stored
// solution text (or a static line) whenever the API is unconfigured or fails;
// review never breaks because the LLM is down.
type ExplainService struct {
	api      *openai.Client
	model    string
	sessions *SessionService
	log      zerolog.Logger
}

// NewExplainService creates an ExplainService. A nil client (no API key
// configured) is valid and means fallback-only operation.
func NewExplainService(cfg *config.Config, sessions *SessionService, log zerolog.Logger) *ExplainService {
	var api *openai.Client
	if cfg.OpenAIKey != "" {
		apiCfg := openai.DefaultConfig(cfg.OpenAIKey)
		if cfg.OpenAIBaseURL != "" {
			apiCfg.BaseURL = cfg.OpenAIBaseURL
		}
		api = openai.NewClientWithConfig(apiCfg)
	}
	return &ExplainService{
		api:      api,
		model:    cfg.OpenAIModel,
		sessions: sessions,
		log:      log.With().Str("component", "explain_service").Logger(),
	}
}

// Explain builds an explanation for one question of the user's completed
// session. Ownership and completion checks ride on SessionService.Question.
func (s *ExplainService) Explain(ctx context.Context, sessionID uuid.UUID, userID int, questionID string) (*Explanation, error) {
	question, userAnswer, err := s.sessions.Question(ctx, sessionID, userID, questionID)
	if err != nil {
		return nil, err
	}

	if s.api == nil {
		return &Explanation{QuestionID: questionID, Explanation: fallbackExplanation(question, userAnswer)}, nil
	}

	resp, err := s.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: tutorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildExplainPrompt(question, userAnswer)},
		},
		Temperature: 0.3,
		MaxTokens:   400,
	})
	if err != nil || len(resp.Choices) == 0 {
		s.log.Warn().Err(err).Str("question_id", questionID).Msg("Explanation API call failed, using stored solution")
		return &Explanation{QuestionID: questionID, Explanation: fallbackExplanation(question, userAnswer)}, nil
	}

	return &Explanation{
		QuestionID:  questionID,
		Explanation: strings.TrimSpace(resp.Choices[0].Message.Content),
		Generated:   true,
	}, nil
}

const tutorSystemPrompt = "You are a patient exam tutor for Nigerian UTME/WASSCE candidates. " +
	"Explain in 2-4 short sentences why the correct option is right. " +
	"If the student's answer was wrong, briefly say why that option is tempting but incorrect. " +
	"Plain prose only, no JSON, no markdown."

func buildExplainPrompt(q *model.Question, userAnswer string) string {
	var sb strings.Builder
	sb.WriteString("QUESTION: " + q.Text + "\n\n")
	for _, label := range model.OptionLabels {
		sb.WriteString(fmt.Sprintf("%s. %s\n", label, q.Options[label]))
	}
	sb.WriteString("\nCORRECT OPTION: " + q.Answer + "\n")
	if userAnswer == "" {
		sb.WriteString("STUDENT'S ANSWER: (left blank)\n")
	} else {
		sb.WriteString("STUDENT'S ANSWER: " + userAnswer + "\n")
	}
	if q.Solution != "" {
		sb.WriteString("\nREFERENCE SOLUTION:\n" + q.Solution + "\n")
	}
	return sb.String()
}

func fallbackExplanation(q *model.Question, userAnswer string) string {
	if q.Solution != "" {
		return q.Solution
	}
	if userAnswer == q.Answer {
		return fmt.Sprintf("Option %s is correct.", q.Answer)
	}
	return fmt.Sprintf("The correct option is %s.", q.Answer)
}
