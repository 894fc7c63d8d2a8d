// Package summary turns the extracted notes into a structured summary with a
// chat-completion model in JSON mode.
package summary

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/personalweb03/services/internal/model"
)

// Placeholder is replaced by the activities markdown in the prompt template.
const Placeholder = "<< last-7-days-activities.md >>"

// DefaultModel is used when Options.Model is empty.
const DefaultModel = "gpt-4o-mini"

//go:embed templates/left-off-summarizer.md
var defaultTemplate string

// DefaultTemplate returns the built-in prompt template.
func DefaultTemplate() string { return defaultTemplate }

// Kind classifies a summary failure.
type Kind int

const (
	// KindInputMissing means the activities file or the template could not be read.
	KindInputMissing Kind = iota + 1
	// KindTransport means the model endpoint could not be reached or answered
	// with an error.
	KindTransport
	// KindMalformedReply means the reply was not a JSON object.
	KindMalformedReply
)

func (k Kind) String() string {
	switch k {
	case KindInputMissing:
		return "input missing"
	case KindTransport:
		return "transport"
	case KindMalformedReply:
		return "malformed reply"
	default:
		return "unknown"
	}
}

// Error is returned by Summarize.
type Error struct {
	Kind Kind
	// Reply is the raw model output for KindMalformedReply.
	Reply string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("summary failed (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a summary Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// Options configures a Generator.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Generator calls the chat-completion endpoint.
type Generator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
	// Now stamps datetime_summary; defaults to time.Now.
	Now func() time.Time
}

// New creates a Generator.
func New(opts Options, logger *zap.Logger) *Generator {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	logger.Info("Summarizer initialized", zap.String("model", opts.Model))
	return &Generator{
		client: openai.NewClientWithConfig(cfg),
		model:  opts.Model,
		logger: logger,
		Now:    time.Now,
	}
}

// Summarize reads the activities markdown, fills it into the template (the
// built-in one when templatePath is empty) and asks the model for a JSON
// object. datetime_summary is added when the reply lacks it.
func (g *Generator) Summarize(ctx context.Context, activitiesPath, templatePath string) (model.Summary, error) {
	g.logger.Info("Generating AI summary")

	activities, err := os.ReadFile(activitiesPath)
	if err != nil {
		g.logger.Error("Activities file not found", zap.String("path", activitiesPath), zap.Error(err))
		return nil, &Error{Kind: KindInputMissing, Err: err}
	}
	g.logger.Info("Read activities", zap.String("path", activitiesPath), zap.Int("characters", len(activities)))

	tmpl := defaultTemplate
	if templatePath != "" {
		b, err := os.ReadFile(templatePath)
		if err != nil {
			g.logger.Error("Prompt template not found", zap.String("path", templatePath), zap.Error(err))
			return nil, &Error{Kind: KindInputMissing, Err: err}
		}
		tmpl = string(b)
	}
	prompt := strings.ReplaceAll(tmpl, Placeholder, string(activities))

	g.logger.Info("Sending request to chat completion API", zap.String("model", g.model))
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		g.logger.Error("Chat completion request failed", zap.Error(err))
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Kind: KindMalformedReply, Err: errors.New("reply has no choices")}
	}

	reply := resp.Choices[0].Message.Content
	var s model.Summary
	if err := json.Unmarshal([]byte(reply), &s); err != nil || s == nil {
		if err == nil {
			err = errors.New("reply is not a JSON object")
		}
		g.logger.Error("Failed to parse JSON reply", zap.Error(err), zap.String("reply", reply))
		return nil, &Error{Kind: KindMalformedReply, Reply: reply, Err: err}
	}

	if _, ok := s[model.SummaryTimeKey]; !ok {
		s[model.SummaryTimeKey] = g.Now().Format(model.SummaryTimeLayout)
	}

	g.logger.Info("Summary generated successfully", zap.String("summary", preview(s.Text(), 100)))
	return s, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
