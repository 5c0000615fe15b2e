// Package openai provides an LLM judge backed directly by the OpenAI API,
// using JSON response mode so the analysis reply is always a single JSON
// object.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/callistoworks/parley/pkg/judge"
)

const analysisTemperature = 0.3

const analysisMaxTokens = 1000

// Judge implements judge.Provider using the OpenAI API.
type Judge struct {
	client oai.Client
	model  string
}

var _ judge.Provider = (*Judge)(nil)

// config holds optional configuration for the judge.
type config struct {
	baseURL      string
	organization string
	timeout      time.Duration
}

// Option is a functional option for Judge.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithOrganization sets the OpenAI organization ID on all requests.
func WithOrganization(org string) Option {
	return func(c *config) {
		c.organization = org
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI judge.
func New(apiKey, model string, opts ...Option) (*Judge, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(cfg.organization))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Judge{client: oai.NewClient(reqOpts...), model: model}, nil
}

// Name implements judge.Provider.
func (j *Judge) Name() string { return "openai/" + j.model }

// Score implements judge.Provider.
func (j *Judge) Score(ctx context.Context, req judge.Request) (judge.Result, error) {
	payload, err := judge.UserPayload(req)
	if err != nil {
		return judge.Result{}, fmt.Errorf("openai: build payload: %w", err)
	}

	resp, err := j.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(j.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(judge.SystemPrompt(req.Kind)),
			oai.UserMessage(payload),
		},
		Temperature:         param.NewOpt(analysisTemperature),
		MaxCompletionTokens: param.NewOpt(int64(analysisMaxTokens)),
		ResponseFormat: oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return judge.Result{}, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return judge.Result{}, fmt.Errorf("openai: empty choices in response")
	}

	res, err := judge.ParseReply(resp.Choices[0].Message.Content)
	if err != nil {
		return judge.Result{}, fmt.Errorf("openai: %w", err)
	}
	return res, nil
}
