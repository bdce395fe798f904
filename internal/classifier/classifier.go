// Package classifier pre-grades learner answers against expectations
// using an OpenAI-compatible model. It is the automated writer of
// classifierGrade labels; human overrides go through the grading engine
// and are never touched here.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tutorstack/gradebook/internal/model"
)

// gradeResult is the model's assessment of one answer/expectation pair.
type gradeResult struct {
	Grade string `json:"grade"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new classifier client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the API endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.ListModels(ctx)
	return err
}

// GradeAnswer classifies a single answer against a single expectation,
// returning an opaque grade label ("Good" or "Bad").
func (c *Client) GradeAnswer(ctx context.Context, question model.Question, expectation model.Expectation, answer string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildGradePrompt(question, expectation)},
			{Role: openai.ChatMessageRoleUser, Content: answer},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("classifier API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("classifier returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("classifier response", "raw", raw)

	var result gradeResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return "", fmt.Errorf("parse classifier response: %w (raw: %s)", err, raw)
	}
	if result.Grade == "" {
		return "", fmt.Errorf("classifier returned empty grade (raw: %s)", raw)
	}
	return result.Grade, nil
}

// WriteGrade stores one classifier grade.
type WriteGrade func(ctx context.Context, sessionID string, answerIndex, expectationIndex int, grade string) (*model.Session, error)

// GradeSession classifies every answer of every response in sess against
// every expectation it was evaluated against, writing results through
// write. Individual failures are logged and skipped so one bad call
// never blocks the rest of the session.
func (c *Client) GradeSession(ctx context.Context, sess *model.Session, write WriteGrade) {
	gradeSessionWith(sess, func(ai, ei int) (string, error) {
		return c.GradeAnswer(ctx, sess.Question, sess.Question.Expectations[ei], sess.UserResponses[ai].Text)
	}, func(sessionID string, ai, ei int, grade string) (*model.Session, error) {
		return write(ctx, sessionID, ai, ei, grade)
	})
}

func gradeSessionWith(sess *model.Session,
	grade func(answerIndex, expectationIndex int) (string, error),
	write func(sessionID string, answerIndex, expectationIndex int, grade string) (*model.Session, error)) {

	for ai, resp := range sess.UserResponses {
		for ei := range resp.ExpectationScores {
			if ei >= len(sess.Question.Expectations) {
				break
			}
			label, err := grade(ai, ei)
			if err != nil {
				slog.Error("classifier grading failed",
					"session_id", sess.SessionID, "answer", ai, "expectation", ei, "error", err)
				continue
			}
			if _, err := write(sess.SessionID, ai, ei, label); err != nil {
				slog.Error("storing classifier grade failed",
					"session_id", sess.SessionID, "answer", ai, "expectation", ei, "error", err)
			}
		}
	}
}

func buildGradePrompt(q model.Question, e model.Expectation) string {
	var sb strings.Builder
	sb.WriteString("You are grading a learner's answer in a tutoring dialogue.\n\n")
	sb.WriteString("QUESTION: " + q.Text + "\n\n")
	sb.WriteString("EXPECTATION: " + e.Text + "\n\n")
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Decide whether the learner's answer satisfies the expectation above.\n")
	sb.WriteString("- Judge only this expectation; other expectations are graded separately.\n")
	sb.WriteString("\nRespond ONLY with a JSON object:\n")
	sb.WriteString(`{"grade": "Good"}` + " or " + `{"grade": "Bad"}`)
	sb.WriteString("\n")
	return sb.String()
}
