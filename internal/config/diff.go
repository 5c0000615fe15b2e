package config

import "github.com/callistoworks/parley/pkg/types"

// ConfigDiff describes what changed between two configs. Only fields that can
// be safely hot-reloaded are tracked; server address and store backend changes
// require a restart and are deliberately ignored here.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// TuningChanged lists the negotiation kinds whose effective tuning
	// (turn budget, trust weights, resolve thresholds, tolerance) differs.
	// Already-open sessions keep the tuning they started with; only new
	// sessions pick up the change.
	TuningChanged []types.Kind
}

// Empty reports whether the diff carries no reloadable change.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && len(d.TuningChanged) == 0
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	for _, kind := range []types.Kind{types.KindInterrogation, types.KindHaggling} {
		if old.Tuning(kind) != new.Tuning(kind) {
			d.TuningChanged = append(d.TuningChanged, kind)
		}
	}
	return d
}
