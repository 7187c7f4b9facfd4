// Package questionbank sources exam questions: an HTTP adapter over an
// ALOC-compatible question bank API, plus a pure fallback generator that tops
// up whatever the API under-delivers.
package questionbank

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cbtprep/cbtprep-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Client fetches questions from the external question bank. Failures never
// propagate to callers: any transport error, non-2xx response, or malformed
// payload degrades to a short (possibly empty) result, and the orchestrator
// tops up from the fallback generator. No retries here — throttling the
// external API matters more than completeness.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a question bank client.
func NewClient(baseURL, token string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("component", "questionbank").Logger(),
	}
}

// apiQuestion mirrors the ALOC wire format.
type apiQuestion struct {
	ID       int               `json:"id"`
	Question string            `json:"question"`
	Option   map[string]string `json:"option"`
	Answer   string            `json:"answer"`
	Solution string            `json:"solution"`
	ExamType string            `json:"examtype"`
	ExamYear string            `json:"examyear"`
}

type apiResponse struct {
	Subject string        `json:"subject"`
	Status  int           `json:"status"`
	Data    []apiQuestion `json:"data"`
}

// FetchQuestions requests up to count questions for a subject and exam type.
// The returned slice may be shorter than count — including empty — but the
// call never returns an error. Each result is a fresh snapshot with its own
// id, independent of the upstream catalog.
func (c *Client) FetchQuestions(ctx context.Context, subject string, count int, examType string) []model.Question {
	if count <= 0 {
		return nil
	}
	subject = model.NormalizeSubject(subject)

	endpoint := fmt.Sprintf("%s/q/%d?subject=%s&type=%s",
		c.baseURL, count, url.QueryEscape(subject), url.QueryEscape(examType))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.log.Error().Err(err).Str("subject", subject).Msg("Build question request failed")
		return nil
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("AccessToken", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("subject", subject).Msg("Question bank unreachable")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("subject", subject).
			Msg("Question bank returned non-OK status")
		return nil
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.log.Warn().Err(err).Str("subject", subject).Msg("Question bank payload malformed")
		return nil
	}

	questions := make([]model.Question, 0, len(body.Data))
	for _, q := range body.Data {
		snapshot, ok := snapshotFromAPI(q, subject)
		if !ok {
			continue
		}
		questions = append(questions, snapshot)
		if len(questions) == count {
			break
		}
	}

	c.log.Debug().
		Str("subject", subject).
		Int("requested", count).
		Int("returned", len(questions)).
		Msg("Questions fetched")

	return questions
}

// snapshotFromAPI converts a wire question into a session snapshot, rejecting
// records without a full A–D option set or a valid answer label.
func snapshotFromAPI(q apiQuestion, subject string) (model.Question, bool) {
	if strings.TrimSpace(q.Question) == "" {
		return model.Question{}, false
	}

	options := make(map[string]string, len(model.OptionLabels))
	for _, label := range model.OptionLabels {
		text, ok := q.Option[strings.ToLower(label)]
		if !ok || strings.TrimSpace(text) == "" {
			return model.Question{}, false
		}
		options[label] = text
	}

	answer := strings.ToUpper(strings.TrimSpace(q.Answer))
	if _, ok := options[answer]; !ok {
		return model.Question{}, false
	}

	return model.Question{
		ID:       uuid.New().String(),
		Subject:  subject,
		Text:     q.Question,
		Options:  options,
		Answer:   answer,
		Solution: q.Solution,
		ExamType: q.ExamType,
		ExamYear: q.ExamYear,
		Source:   model.QuestionSourceAPI,
	}, true
}
