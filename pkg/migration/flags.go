package migration

import (
	"fmt"

	"mercator-hq/ganymede/pkg/config"
)

// Phase is the migration phase enum. Phases order the rollout; Rollback
// steps one phase back.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	Phase1          Phase = "phase1"
	Phase2          Phase = "phase2"
	Phase3          Phase = "phase3"
	PhaseCompleted  Phase = "completed"
)

// phaseOrder lists phases in rollout order.
var phaseOrder = []Phase{PhaseNotStarted, Phase1, Phase2, Phase3, PhaseCompleted}

// Valid reports whether p is a member of the phase enum.
func (p Phase) Valid() bool {
	for _, known := range phaseOrder {
		if p == known {
			return true
		}
	}
	return false
}

// Previous returns the preceding phase. NotStarted is its own floor.
func (p Phase) Previous() Phase {
	for i, known := range phaseOrder {
		if p == known && i > 0 {
			return phaseOrder[i-1]
		}
	}
	return PhaseNotStarted
}

// Operation distinguishes streaming from non-streaming enrichment calls
// for per-operation enable flags.
type Operation string

const (
	OpStreaming    Operation = "streaming"
	OpNonStreaming Operation = "non_streaming"
)

// FeatureFlags is the process-wide migration configuration value. It is
// only ever read or replaced as a whole under the Store's lock; callers
// receive copies.
type FeatureFlags struct {
	// ReqllmEnabled is the master switch for the new client.
	ReqllmEnabled bool `json:"reqllm_enabled"`

	// StreamingEnabled and NonStreamingEnabled gate the new client per
	// operation type.
	StreamingEnabled    bool `json:"streaming_enabled"`
	NonStreamingEnabled bool `json:"non_streaming_enabled"`

	// ProviderEnabled gates the new client per provider identifier.
	// A provider absent from the map is disabled.
	ProviderEnabled map[string]bool `json:"provider_enabled"`

	// MigrationPhase tracks rollout progress.
	MigrationPhase Phase `json:"migration_phase"`

	// RolloutPercentage is the share of sessions (0-100) routed to the
	// new client.
	RolloutPercentage int `json:"rollout_percentage"`

	// FallbackEnabled retries a failed new-path call on the legacy path.
	FallbackEnabled bool `json:"fallback_enabled"`

	// ForceLegacy and ForceReqllm short-circuit routing unconditionally.
	// They are mutually exclusive.
	ForceLegacy bool `json:"force_legacy"`
	ForceReqllm bool `json:"force_reqllm"`
}

// DefaultFlags returns the flags used when no persisted state exists:
// migration not started, everything on the legacy path.
func DefaultFlags() FeatureFlags {
	return FeatureFlags{
		ProviderEnabled:   make(map[string]bool),
		MigrationPhase:    PhaseNotStarted,
		RolloutPercentage: 0,
		FallbackEnabled:   true,
	}
}

// clone deep-copies the flags value.
func (f FeatureFlags) clone() FeatureFlags {
	out := f
	out.ProviderEnabled = make(map[string]bool, len(f.ProviderEnabled))
	for k, v := range f.ProviderEnabled {
		out.ProviderEnabled[k] = v
	}
	return out
}

// operationEnabled returns the per-operation gate.
func (f FeatureFlags) operationEnabled(op Operation) bool {
	switch op {
	case OpStreaming:
		return f.StreamingEnabled
	case OpNonStreaming:
		return f.NonStreamingEnabled
	default:
		return false
	}
}

// Update is a partial mutation of the flags value. Nil fields are left
// unchanged; ProviderEnabled entries are merged into the existing map.
type Update struct {
	ReqllmEnabled       *bool
	StreamingEnabled    *bool
	NonStreamingEnabled *bool
	ProviderEnabled     map[string]bool
	MigrationPhase      *Phase
	RolloutPercentage   *int
	FallbackEnabled     *bool
	ForceLegacy         *bool
	ForceReqllm         *bool
}

// apply merges the update into a copy of current and returns it.
func (u Update) apply(current FeatureFlags) FeatureFlags {
	next := current.clone()

	if u.ReqllmEnabled != nil {
		next.ReqllmEnabled = *u.ReqllmEnabled
	}
	if u.StreamingEnabled != nil {
		next.StreamingEnabled = *u.StreamingEnabled
	}
	if u.NonStreamingEnabled != nil {
		next.NonStreamingEnabled = *u.NonStreamingEnabled
	}
	for provider, enabled := range u.ProviderEnabled {
		next.ProviderEnabled[provider] = enabled
	}
	if u.MigrationPhase != nil {
		next.MigrationPhase = *u.MigrationPhase
	}
	if u.RolloutPercentage != nil {
		next.RolloutPercentage = *u.RolloutPercentage
	}
	if u.FallbackEnabled != nil {
		next.FallbackEnabled = *u.FallbackEnabled
	}
	if u.ForceLegacy != nil {
		next.ForceLegacy = *u.ForceLegacy
	}
	if u.ForceReqllm != nil {
		next.ForceReqllm = *u.ForceReqllm
	}

	return next
}

// validate checks the candidate flags value, collecting every violated
// constraint rather than stopping at the first.
func validate(f FeatureFlags) error {
	var errs []config.FieldError

	if f.RolloutPercentage < 0 || f.RolloutPercentage > 100 {
		errs = append(errs, config.FieldError{
			Field:   "rollout_percentage",
			Message: fmt.Sprintf("must be between 0 and 100, got %d", f.RolloutPercentage),
		})
	}
	if !f.MigrationPhase.Valid() {
		errs = append(errs, config.FieldError{
			Field:   "migration_phase",
			Message: fmt.Sprintf("unknown phase %q", f.MigrationPhase),
		})
	}
	if f.ForceLegacy && f.ForceReqllm {
		errs = append(errs, config.FieldError{
			Field:   "force_legacy",
			Message: "force_legacy and force_reqllm are mutually exclusive",
		})
	}

	if len(errs) > 0 {
		return &config.ValidationError{Errors: errs}
	}
	return nil
}
