// Package audithook bridges Treasury lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/treasury/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin               = (*Extension)(nil)
	_ plugin.OnConfigured         = (*Extension)(nil)
	_ plugin.OnReleased           = (*Extension)(nil)
	_ plugin.OnPaused             = (*Extension)(nil)
	_ plugin.OnUnpaused           = (*Extension)(nil)
	_ plugin.OnRevoked            = (*Extension)(nil)
	_ plugin.OnUnrevoked          = (*Extension)(nil)
	_ plugin.OnConservationBreach = (*Extension)(nil)
	_ plugin.OnStaked             = (*Extension)(nil)
	_ plugin.OnUnstaked           = (*Extension)(nil)
	_ plugin.OnRewardsClaimed     = (*Extension)(nil)
	_ plugin.OnRateUpdated        = (*Extension)(nil)
	_ plugin.OnRewardPoolFunded   = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Treasury lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit_hook" }

// ──────────────────────────────────────────────────
// Vesting lifecycle hooks
// ──────────────────────────────────────────────────

// OnConfigured implements plugin.OnConfigured.
func (e *Extension) OnConfigured(ctx context.Context, _ interface{}, _ interface{}) error {
	return e.record(ctx, ActionVestingConfigured, SeverityInfo, OutcomeSuccess,
		ResourceVesting, "", CategoryVesting, nil,
		"event", "vesting_configured",
	)
}

// OnReleased implements plugin.OnReleased.
func (e *Extension) OnReleased(ctx context.Context, beneficiary string, amount interface{}) error {
	return e.record(ctx, ActionAllocationReleased, SeverityInfo, OutcomeSuccess,
		ResourceAllocation, beneficiary, CategoryVesting, nil,
		"beneficiary", beneficiary,
		"amount", fmt.Sprintf("%v", amount),
	)
}

// OnPaused implements plugin.OnPaused.
func (e *Extension) OnPaused(ctx context.Context) error {
	return e.record(ctx, ActionVestingPaused, SeverityWarning, OutcomeSuccess,
		ResourceVesting, "", CategoryGovernance, nil,
		"event", "vesting_paused",
	)
}

// OnUnpaused implements plugin.OnUnpaused.
func (e *Extension) OnUnpaused(ctx context.Context) error {
	return e.record(ctx, ActionVestingUnpaused, SeverityInfo, OutcomeSuccess,
		ResourceVesting, "", CategoryGovernance, nil,
		"event", "vesting_unpaused",
	)
}

// OnRevoked implements plugin.OnRevoked.
func (e *Extension) OnRevoked(ctx context.Context, beneficiary string) error {
	return e.record(ctx, ActionAllocationRevoked, SeverityWarning, OutcomeSuccess,
		ResourceAllocation, beneficiary, CategoryGovernance, nil,
		"beneficiary", beneficiary,
	)
}

// OnUnrevoked implements plugin.OnUnrevoked.
func (e *Extension) OnUnrevoked(ctx context.Context, beneficiary string) error {
	return e.record(ctx, ActionAllocationRestored, SeverityInfo, OutcomeSuccess,
		ResourceAllocation, beneficiary, CategoryGovernance, nil,
		"beneficiary", beneficiary,
	)
}

// OnConservationBreach implements plugin.OnConservationBreach.
func (e *Extension) OnConservationBreach(ctx context.Context, held, outstanding interface{}) error {
	return e.record(ctx, ActionConservationBreach, SeverityCritical, OutcomeFailure,
		ResourceVesting, "", CategorySafety, nil,
		"held", fmt.Sprintf("%v", held),
		"outstanding", fmt.Sprintf("%v", outstanding),
	)
}

// ──────────────────────────────────────────────────
// Staking lifecycle hooks
// ──────────────────────────────────────────────────

// OnStaked implements plugin.OnStaked.
func (e *Extension) OnStaked(ctx context.Context, account string, amount interface{}) error {
	return e.record(ctx, ActionStaked, SeverityInfo, OutcomeSuccess,
		ResourceStake, account, CategoryStaking, nil,
		"account", account,
		"amount", fmt.Sprintf("%v", amount),
	)
}

// OnUnstaked implements plugin.OnUnstaked.
func (e *Extension) OnUnstaked(ctx context.Context, account string, amount interface{}) error {
	return e.record(ctx, ActionUnstaked, SeverityInfo, OutcomeSuccess,
		ResourceStake, account, CategoryStaking, nil,
		"account", account,
		"amount", fmt.Sprintf("%v", amount),
	)
}

// OnRewardsClaimed implements plugin.OnRewardsClaimed.
func (e *Extension) OnRewardsClaimed(ctx context.Context, account string, amount interface{}) error {
	return e.record(ctx, ActionRewardsClaimed, SeverityInfo, OutcomeSuccess,
		ResourceRewards, account, CategoryStaking, nil,
		"account", account,
		"amount", fmt.Sprintf("%v", amount),
	)
}

// OnRateUpdated implements plugin.OnRateUpdated.
func (e *Extension) OnRateUpdated(ctx context.Context, oldBps, newBps uint32) error {
	return e.record(ctx, ActionRateUpdated, SeverityWarning, OutcomeSuccess,
		ResourcePool, "", CategoryGovernance, nil,
		"old_bps", oldBps,
		"new_bps", newBps,
	)
}

// OnRewardPoolFunded implements plugin.OnRewardPoolFunded.
func (e *Extension) OnRewardPoolFunded(ctx context.Context, amount interface{}) error {
	return e.record(ctx, ActionPoolFunded, SeverityInfo, OutcomeSuccess,
		ResourcePool, "", CategoryStaking, nil,
		"amount", fmt.Sprintf("%v", amount),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
