// Package anyllm provides an LLM judge backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and
// more.
//
// Usage:
//
//	j, err := anyllm.New("anthropic", "claude-sonnet-4-5", anyllmlib.WithAPIKey("sk-ant-..."))
//	j, err := anyllm.NewOllama("llama3.1")
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/callistoworks/parley/pkg/judge"
)

// analysisTemperature keeps scoring replies stable across retries. The judge
// is a grader, not a storyteller.
const analysisTemperature = 0.3

const analysisMaxTokens = 1000

// Judge implements judge.Provider by wrapping github.com/mozilla-ai/any-llm-go.
type Judge struct {
	backend anyllmlib.Provider
	name    string
	model   string
}

var _ judge.Provider = (*Judge)(nil)

// New creates a Judge backed by the given LLM provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp", "llamafile".
//
// model is the specific model to use (e.g., "gpt-4o", "claude-sonnet-4-5").
//
// opts are any-llm-go configuration options (e.g., anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL). If no API key option is provided, the backend falls
// back to the relevant environment variable (OPENAI_API_KEY,
// ANTHROPIC_API_KEY, ...).
func New(providerName, model string, opts ...anyllmlib.Option) (*Judge, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}
	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}
	return &Judge{
		backend: backend,
		name:    "anyllm/" + strings.ToLower(providerName),
		model:   model,
	}, nil
}

// NewAnthropic creates a Judge backed by Anthropic.
// Without options, it reads the ANTHROPIC_API_KEY environment variable.
func NewAnthropic(model string, opts ...anyllmlib.Option) (*Judge, error) {
	return New("anthropic", model, opts...)
}

// NewOpenAI creates a Judge backed by OpenAI.
// Without options, it reads the OPENAI_API_KEY environment variable.
func NewOpenAI(model string, opts ...anyllmlib.Option) (*Judge, error) {
	return New("openai", model, opts...)
}

// NewOllama creates a Judge backed by Ollama (local inference).
// Without options, it connects to http://localhost:11434.
func NewOllama(model string, opts ...anyllmlib.Option) (*Judge, error) {
	return New("ollama", model, opts...)
}

func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

// Name implements judge.Provider.
func (j *Judge) Name() string { return j.name }

// Score implements judge.Provider. One completion call, strict JSON reply.
func (j *Judge) Score(ctx context.Context, req judge.Request) (judge.Result, error) {
	payload, err := judge.UserPayload(req)
	if err != nil {
		return judge.Result{}, fmt.Errorf("anyllm: build payload: %w", err)
	}

	temp := analysisTemperature
	maxTokens := analysisMaxTokens
	resp, err := j.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model: j.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: judge.SystemPrompt(req.Kind)},
			{Role: anyllmlib.RoleUser, Content: payload},
		},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return judge.Result{}, fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return judge.Result{}, fmt.Errorf("anyllm: empty choices in response")
	}

	res, err := judge.ParseReply(resp.Choices[0].Message.ContentString())
	if err != nil {
		return judge.Result{}, fmt.Errorf("anyllm: %w", err)
	}
	return res, nil
}
