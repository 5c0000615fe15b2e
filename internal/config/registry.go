package config

import (
	"errors"
	"fmt"
	"sync"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/callistoworks/parley/pkg/judge"
	"github.com/callistoworks/parley/pkg/judge/anyllm"
	"github.com/callistoworks/parley/pkg/judge/openai"
)

// ErrJudgeNotRegistered is returned by [Registry.CreateJudge] when no factory
// has been registered under the requested name.
var ErrJudgeNotRegistered = errors.New("config: judge not registered")

// JudgeFactory builds a judge provider from its config entry.
type JudgeFactory func(JudgeEntry) (judge.Provider, error)

// Registry maps judge names to their constructor functions. It is safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]JudgeFactory
}

// NewRegistry returns a [Registry] pre-populated with the built-in judges.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]JudgeFactory)}
	r.RegisterJudge("anyllm", newAnyLLMJudge)
	r.RegisterJudge("openai", newOpenAIJudge)
	return r
}

// RegisterJudge adds or replaces the factory for name.
func (r *Registry) RegisterJudge(name string, factory JudgeFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// CreateJudge instantiates the judge named by entry.Name.
func (r *Registry) CreateJudge(entry JudgeEntry) (judge.Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrJudgeNotRegistered, entry.Name)
	}
	return factory(entry)
}

// BuildJudges instantiates the whole configured chain, in order.
func (r *Registry) BuildJudges(cfg JudgesConfig) ([]judge.Provider, error) {
	providers := make([]judge.Provider, 0, len(cfg.Providers))
	for i, entry := range cfg.Providers {
		p, err := r.CreateJudge(entry)
		if err != nil {
			return nil, fmt.Errorf("config: judges.providers[%d]: %w", i, err)
		}
		providers = append(providers, p)
	}
	return providers, nil
}

func newAnyLLMJudge(entry JudgeEntry) (judge.Provider, error) {
	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return anyllm.New(entry.Provider, entry.Model, opts...)
}

func newOpenAIJudge(entry JudgeEntry) (judge.Provider, error) {
	var opts []openai.Option
	if entry.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(entry.BaseURL))
	}
	return openai.New(entry.APIKey, entry.Model, opts...)
}
