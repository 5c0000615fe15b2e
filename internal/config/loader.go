package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidJudgeNames lists the judge implementations the registry knows how to
// build. Used by [Validate] to catch typos early.
var ValidJudgeNames = []string{"anyllm", "openai"}

// ValidAnyLLMProviders lists the LLM backends the anyllm judge can drive.
var ValidAnyLLMProviders = []string{
	"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.ReadTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must not be negative"))
	}
	if cfg.Server.WriteTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must not be negative"))
	}

	// Judges
	if cfg.Judges.Timeout < 0 {
		errs = append(errs, fmt.Errorf("judges.timeout must not be negative"))
	}
	for i, j := range cfg.Judges.Providers {
		prefix := fmt.Sprintf("judges.providers[%d]", i)
		if j.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		if !slices.Contains(ValidJudgeNames, j.Name) {
			errs = append(errs, fmt.Errorf("%s.name %q is unknown; valid values: %v", prefix, j.Name, ValidJudgeNames))
		}
		if j.Name == "anyllm" {
			if j.Provider == "" {
				errs = append(errs, fmt.Errorf("%s.provider is required for the anyllm judge", prefix))
			} else if !slices.Contains(ValidAnyLLMProviders, j.Provider) {
				slog.Warn("unknown anyllm provider — may be a typo or a newly added backend",
					"provider", j.Provider,
					"known", ValidAnyLLMProviders,
				)
			}
		}
		if j.Model == "" {
			errs = append(errs, fmt.Errorf("%s.model is required", prefix))
		}
	}
	if len(cfg.Judges.Providers) == 0 {
		slog.Warn("no judge providers configured; responses will be scored by the heuristic judge only")
	}

	// Store
	if cfg.Store.Backend != "" && !cfg.Store.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("store.backend %q is invalid; valid values: inmem, postgres, redis", cfg.Store.Backend))
	}
	if cfg.Store.Backend == StorePostgres && cfg.Store.PostgresDSN == "" {
		errs = append(errs, fmt.Errorf("store.postgres_dsn is required when store.backend is postgres"))
	}
	if cfg.Store.Backend == StoreRedis && cfg.Store.RedisAddr == "" {
		errs = append(errs, fmt.Errorf("store.redis_addr is required when store.backend is redis"))
	}
	if cfg.Store.Backend == StoreInmem || cfg.Store.Backend == "" {
		if cfg.Store.PostgresDSN != "" || cfg.Store.RedisAddr != "" {
			slog.Warn("store.backend is inmem; configured postgres_dsn/redis_addr will be ignored")
		}
	}

	// Negotiation tuning
	validateKindTuning(&errs, "negotiation.interrogation", cfg.Negotiation.Interrogation)
	validateKindTuning(&errs, "negotiation.haggling", cfg.Negotiation.Haggling)
	if eps := cfg.Negotiation.Tolerance.NumericEpsilon; eps < 0 || eps >= 1 {
		if eps != 0 {
			errs = append(errs, fmt.Errorf("negotiation.tolerance.numeric_epsilon %.3f is out of range (0, 1)", eps))
		}
	}
	if ft := cfg.Negotiation.Tolerance.FuzzyThreshold; ft != 0 && (ft <= 0 || ft > 1) {
		errs = append(errs, fmt.Errorf("negotiation.tolerance.fuzzy_threshold %.3f is out of range (0, 1]", ft))
	}

	return errors.Join(errs...)
}

func validateKindTuning(errs *[]error, prefix string, kt KindTuning) {
	if kt.TurnBudget < 0 {
		*errs = append(*errs, fmt.Errorf("%s.turn_budget must not be negative", prefix))
	}
	if r := kt.Resolve; r != nil {
		if r.SuccessThreshold < 0 || r.SuccessThreshold > 1 {
			*errs = append(*errs, fmt.Errorf("%s.resolve.success_threshold %.2f is out of range [0, 1]", prefix, r.SuccessThreshold))
		}
		if r.FailureThreshold < 0 || r.FailureThreshold > 1 {
			*errs = append(*errs, fmt.Errorf("%s.resolve.failure_threshold %.2f is out of range [0, 1]", prefix, r.FailureThreshold))
		}
		if r.SuccessThreshold >= r.FailureThreshold {
			*errs = append(*errs, fmt.Errorf("%s.resolve: success_threshold %.2f must be below failure_threshold %.2f", prefix, r.SuccessThreshold, r.FailureThreshold))
		}
		if r.ContradictionCap < 0 {
			*errs = append(*errs, fmt.Errorf("%s.resolve.contradiction_cap must not be negative", prefix))
		}
	}
	if w := kt.Weights; w != nil {
		if w.Attenuation < 0 || w.Attenuation > 1 {
			*errs = append(*errs, fmt.Errorf("%s.weights.attenuation %.2f is out of range [0, 1]", prefix, w.Attenuation))
		}
	}
}
