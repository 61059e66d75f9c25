package audithook_test

import (
	"context"
	"errors"
	"testing"

	audithook "github.com/xraph/treasury/audit_hook"
	"github.com/xraph/treasury/types"
)

func TestRecordsVestingAndStakingEvents(t *testing.T) {
	ctx := context.Background()

	var events []*audithook.AuditEvent
	ext := audithook.New(audithook.RecorderFunc(
		func(_ context.Context, evt *audithook.AuditEvent) error {
			events = append(events, evt)
			return nil
		},
	))

	if err := ext.OnReleased(ctx, "alice", types.NewAmount(1000)); err != nil {
		t.Fatalf("OnReleased failed: %v", err)
	}
	if err := ext.OnStaked(ctx, "bob", types.NewAmount(500)); err != nil {
		t.Fatalf("OnStaked failed: %v", err)
	}
	if err := ext.OnConservationBreach(ctx, types.NewAmount(1), types.NewAmount(2)); err != nil {
		t.Fatalf("OnConservationBreach failed: %v", err)
	}

	if len(events) != 3 {
		t.Fatalf("recorded %d events, want 3", len(events))
	}
	if events[0].Action != audithook.ActionAllocationReleased || events[0].ResourceID != "alice" {
		t.Errorf("first event = %+v, want released/alice", events[0])
	}
	if events[2].Severity != audithook.SeverityCritical {
		t.Errorf("breach severity = %q, want critical", events[2].Severity)
	}
}

func TestEnabledActionsFilter(t *testing.T) {
	ctx := context.Background()

	var events []*audithook.AuditEvent
	ext := audithook.New(
		audithook.RecorderFunc(func(_ context.Context, evt *audithook.AuditEvent) error {
			events = append(events, evt)
			return nil
		}),
		audithook.WithEnabledActions(audithook.ActionConservationBreach),
	)

	_ = ext.OnStaked(ctx, "alice", types.NewAmount(1))
	_ = ext.OnConservationBreach(ctx, types.NewAmount(1), types.NewAmount(2))

	if len(events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(events))
	}
	if events[0].Action != audithook.ActionConservationBreach {
		t.Errorf("recorded %q, want conservation breach only", events[0].Action)
	}
}

func TestDisabledActionsFilter(t *testing.T) {
	ctx := context.Background()

	var events []*audithook.AuditEvent
	ext := audithook.New(
		audithook.RecorderFunc(func(_ context.Context, evt *audithook.AuditEvent) error {
			events = append(events, evt)
			return nil
		}),
		audithook.WithDisabledActions(audithook.ActionStaked),
	)

	_ = ext.OnStaked(ctx, "alice", types.NewAmount(1))
	_ = ext.OnUnstaked(ctx, "alice", types.NewAmount(1))

	if len(events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(events))
	}
	if events[0].Action != audithook.ActionUnstaked {
		t.Errorf("recorded %q, want unstaked only", events[0].Action)
	}
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(
		func(_ context.Context, _ *audithook.AuditEvent) error {
			return errors.New("audit backend down")
		},
	))

	if err := ext.OnReleased(context.Background(), "alice", types.NewAmount(1)); err != nil {
		t.Errorf("OnReleased returned %v, want nil despite recorder failure", err)
	}
}
