package questapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// QuizQuestion is the payload of /quiz/question.
type QuizQuestion struct {
	Question          string   `json:"question"`
	Options           []string `json:"options,omitempty"`
	Difficulty        int      `json:"difficulty,omitempty"`
	AttemptsRemaining int      `json:"attempts_remaining,omitempty"`
}

// AnswerResult is the payload of /quiz/answer.
type AnswerResult struct {
	Correct bool   `json:"correct"`
	Message string `json:"message"`
}

// Riddle is the payload of /riddle.
type Riddle struct {
	Riddle            string `json:"riddle"`
	Complexity        int    `json:"complexity"`
	Hint              string `json:"hint,omitempty"`
	AttemptsRemaining *int   `json:"attempts_remaining,omitempty"`
}

// RiddleVerdict is the payload of /riddle/check-answer.
type RiddleVerdict struct {
	Correct           bool   `json:"correct"`
	Message           string `json:"message"`
	Hint              string `json:"hint,omitempty"`
	AttemptsRemaining *int   `json:"attempts_remaining,omitempty"`
}

type breakOptions struct {
	BreakOptions []string `json:"break_options"`
}

type funFacts struct {
	Facts []string `json:"facts"`
}

func (c *Client) QuizQuestion(ctx context.Context) (QuizQuestion, error) {
	var q QuizQuestion
	err := c.postJSON(ctx, "/quiz/question", nil, &q)
	return q, err
}

func (c *Client) QuizAnswer(ctx context.Context, answer string) (AnswerResult, error) {
	var r AnswerResult
	err := c.postJSON(ctx, "/quiz/answer", map[string]string{"answer": answer}, &r)
	return r, err
}

func (c *Client) QuizBreak(ctx context.Context) ([]string, error) {
	var b breakOptions
	err := c.postJSON(ctx, "/quiz/break", nil, &b)
	return b.BreakOptions, err
}

func (c *Client) QuizReset(ctx context.Context) error {
	return c.postJSON(ctx, "/quiz/reset", nil, nil)
}

func (c *Client) Riddle(ctx context.Context) (Riddle, error) {
	var r Riddle
	err := c.getJSON(ctx, "/riddle", &r)
	return r, err
}

func (c *Client) CheckRiddle(ctx context.Context, userAnswer string) (RiddleVerdict, error) {
	var v RiddleVerdict
	err := c.postJSON(ctx, "/riddle/check-answer", map[string]string{"user_answer": userAnswer}, &v)
	return v, err
}

func (c *Client) RiddleBreakOptions(ctx context.Context) ([]string, error) {
	var b breakOptions
	err := c.getJSON(ctx, "/riddle/break-options", &b)
	return b.BreakOptions, err
}

func (c *Client) ResetRiddle(ctx context.Context) error {
	return c.postJSON(ctx, "/riddle/reset", nil, nil)
}

// Prompt requests a generated study prompt for the given duration.
func (c *Client) Prompt(ctx context.Context, duration int, timeUnit string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.postJSON(ctx, "/prompt", map[string]any{"duration": duration, "time_unit": timeUnit}, &raw)
	return raw, err
}

// Evaluate uploads a PDF for evaluation against challenge id.
func (c *Client) Evaluate(ctx context.Context, id, filename string, pdf io.Reader) (json.RawMessage, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, pdf); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	var raw json.RawMessage
	err = c.do(ctx, http.MethodPost, "/evaluate/"+url.PathEscape(id), &buf, w.FormDataContentType(), &raw)
	return raw, err
}

func (c *Client) Scores(ctx context.Context, id string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.getJSON(ctx, "/scores/"+url.PathEscape(id), &raw)
	return raw, err
}

func (c *Client) Challenge(ctx context.Context, id string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.getJSON(ctx, "/challenge/"+url.PathEscape(id), &raw)
	return raw, err
}

func (c *Client) FunFacts(ctx context.Context) ([]string, error) {
	var f funFacts
	err := c.getJSON(ctx, "/fun-fact", &f)
	return f.Facts, err
}
