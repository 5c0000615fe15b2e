package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/callistoworks/parley/internal/config"
	"github.com/callistoworks/parley/pkg/types"
)

const validYAML = `
server:
  listen_addr: ":8080"
  log_level: info
judges:
  timeout: 3s
  providers:
    - name: anyllm
      provider: anthropic
      model: claude-sonnet-4-5
store:
  backend: inmem
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Judges.Timeout != 3*time.Second {
		t.Errorf("judges.timeout = %v, want 3s", cfg.Judges.Timeout)
	}
	if len(cfg.Judges.Providers) != 1 || cfg.Judges.Providers[0].Provider != "anthropic" {
		t.Errorf("judges.providers = %+v", cfg.Judges.Providers)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
  no_such_field: true
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_JudgeRequiresModel(t *testing.T) {
	t.Parallel()
	yaml := `
judges:
  providers:
    - name: openai
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for judge without model, got nil")
	}
	if !strings.Contains(err.Error(), "model") {
		t.Errorf("error should mention model, got: %v", err)
	}
}

func TestValidate_AnyLLMRequiresProvider(t *testing.T) {
	t.Parallel()
	yaml := `
judges:
  providers:
    - name: anyllm
      model: llama3.1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for anyllm judge without provider, got nil")
	}
	if !strings.Contains(err.Error(), "provider") {
		t.Errorf("error should mention provider, got: %v", err)
	}
}

func TestValidate_StoreBackendNeedsAddress(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		backend string
		want    string
	}{
		{"postgres", "postgres_dsn"},
		{"redis", "redis_addr"},
	} {
		yaml := "store:\n  backend: " + tc.backend + "\n"
		_, err := config.LoadFromReader(strings.NewReader(yaml))
		if err == nil {
			t.Fatalf("backend %s: expected error, got nil", tc.backend)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("backend %s: error should mention %s, got: %v", tc.backend, tc.want, err)
		}
	}
}

func TestValidate_ThresholdOrdering(t *testing.T) {
	t.Parallel()
	yaml := `
negotiation:
  haggling:
    resolve:
      success_threshold: 0.9
      failure_threshold: 0.3
      contradiction_cap: 2
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for inverted thresholds, got nil")
	}
	if !strings.Contains(err.Error(), "below failure_threshold") {
		t.Errorf("error should mention threshold ordering, got: %v", err)
	}
}

func TestTuning_OverridesApplyPerKind(t *testing.T) {
	t.Parallel()
	yaml := `
negotiation:
  haggling:
    turn_budget: 7
  tolerance:
    fuzzy_threshold: 0.88
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	hag := cfg.Tuning(types.KindHaggling)
	if hag.TurnBudget != 7 {
		t.Errorf("haggling turn budget = %d, want 7", hag.TurnBudget)
	}
	if hag.Tolerance.FuzzyThreshold != 0.88 {
		t.Errorf("fuzzy threshold = %v, want 0.88", hag.Tolerance.FuzzyThreshold)
	}

	// The interrogation budget keeps its default.
	intr := cfg.Tuning(types.KindInterrogation)
	if intr.TurnBudget != 3 {
		t.Errorf("interrogation turn budget = %d, want default 3", intr.TurnBudget)
	}
	if intr.Tolerance.FuzzyThreshold != 0.88 {
		t.Errorf("tolerance should apply to both kinds, got %v", intr.Tolerance.FuzzyThreshold)
	}
}
