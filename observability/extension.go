// Package observability provides a metrics extension for Treasury that records
// lifecycle event counts and payout sizes via a pluggable MetricFactory.
package observability

import (
	"context"
	"strconv"

	"github.com/xraph/treasury/plugin"
	"github.com/xraph/treasury/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnInit               = (*MetricsExtension)(nil)
	_ plugin.OnConfigured         = (*MetricsExtension)(nil)
	_ plugin.OnReleased           = (*MetricsExtension)(nil)
	_ plugin.OnPaused             = (*MetricsExtension)(nil)
	_ plugin.OnUnpaused           = (*MetricsExtension)(nil)
	_ plugin.OnRevoked            = (*MetricsExtension)(nil)
	_ plugin.OnUnrevoked          = (*MetricsExtension)(nil)
	_ plugin.OnConservationBreach = (*MetricsExtension)(nil)
	_ plugin.OnStaked             = (*MetricsExtension)(nil)
	_ plugin.OnUnstaked           = (*MetricsExtension)(nil)
	_ plugin.OnRewardsClaimed     = (*MetricsExtension)(nil)
	_ plugin.OnRateUpdated        = (*MetricsExtension)(nil)
	_ plugin.OnRewardPoolFunded   = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// Gauge interface for metric gauges.
type Gauge interface {
	Set(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
	Gauge(name string) Gauge
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Treasury plugin to automatically track vesting and
// staking activity.
type MetricsExtension struct {
	factory MetricFactory

	// Vesting metrics
	VestingConfigured   Counter
	Releases            Counter
	ReleaseAmount       Histogram
	Pauses              Counter
	Unpauses            Counter
	Revocations         Counter
	Restorations        Counter
	ConservationBreach  Counter
	ConservationDeficit Gauge

	// Staking metrics
	Stakes           Counter
	StakeAmount      Histogram
	Unstakes         Counter
	UnstakeAmount    Histogram
	RewardClaims     Counter
	RewardAmount     Histogram
	RateUpdates      Counter
	RewardRateBps    Gauge
	RewardPoolFunded Counter
	RewardPoolTopUp  Histogram

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Vesting metrics
		VestingConfigured:   factory.Counter("treasury.vesting.configured"),
		Releases:            factory.Counter("treasury.vesting.released"),
		ReleaseAmount:       factory.Histogram("treasury.vesting.release_amount"),
		Pauses:              factory.Counter("treasury.vesting.paused"),
		Unpauses:            factory.Counter("treasury.vesting.unpaused"),
		Revocations:         factory.Counter("treasury.vesting.revoked"),
		Restorations:        factory.Counter("treasury.vesting.unrevoked"),
		ConservationBreach:  factory.Counter("treasury.vesting.conservation.breach"),
		ConservationDeficit: factory.Gauge("treasury.vesting.conservation.deficit"),

		// Staking metrics
		Stakes:           factory.Counter("treasury.staking.staked"),
		StakeAmount:      factory.Histogram("treasury.staking.stake_amount"),
		Unstakes:         factory.Counter("treasury.staking.unstaked"),
		UnstakeAmount:    factory.Histogram("treasury.staking.unstake_amount"),
		RewardClaims:     factory.Counter("treasury.staking.rewards.claimed"),
		RewardAmount:     factory.Histogram("treasury.staking.rewards.amount"),
		RateUpdates:      factory.Counter("treasury.staking.rate.updated"),
		RewardRateBps:    factory.Gauge("treasury.staking.rate.bps"),
		RewardPoolFunded: factory.Counter("treasury.staking.pool.funded"),
		RewardPoolTopUp:  factory.Histogram("treasury.staking.pool.topup_amount"),

		// Error metrics
		StoreErrors:  factory.Counter("treasury.store.errors"),
		PluginErrors: factory.Counter("treasury.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Vesting lifecycle hooks
// ──────────────────────────────────────────────────

// OnConfigured implements plugin.OnConfigured.
func (m *MetricsExtension) OnConfigured(_ context.Context, _ interface{}, _ interface{}) error {
	m.VestingConfigured.Inc()
	return nil
}

// OnReleased implements plugin.OnReleased.
func (m *MetricsExtension) OnReleased(_ context.Context, _ string, amount interface{}) error {
	m.Releases.Inc()
	observeAmount(m.ReleaseAmount, amount)
	return nil
}

// OnPaused implements plugin.OnPaused.
func (m *MetricsExtension) OnPaused(_ context.Context) error {
	m.Pauses.Inc()
	return nil
}

// OnUnpaused implements plugin.OnUnpaused.
func (m *MetricsExtension) OnUnpaused(_ context.Context) error {
	m.Unpauses.Inc()
	return nil
}

// OnRevoked implements plugin.OnRevoked.
func (m *MetricsExtension) OnRevoked(_ context.Context, _ string) error {
	m.Revocations.Inc()
	return nil
}

// OnUnrevoked implements plugin.OnUnrevoked.
func (m *MetricsExtension) OnUnrevoked(_ context.Context, _ string) error {
	m.Restorations.Inc()
	return nil
}

// OnConservationBreach implements plugin.OnConservationBreach.
func (m *MetricsExtension) OnConservationBreach(_ context.Context, held, outstanding interface{}) error {
	m.ConservationBreach.Inc()
	h, hok := amountValue(held)
	o, ook := amountValue(outstanding)
	if hok && ook && o > h {
		m.ConservationDeficit.Set(o - h)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Staking lifecycle hooks
// ──────────────────────────────────────────────────

// OnStaked implements plugin.OnStaked.
func (m *MetricsExtension) OnStaked(_ context.Context, _ string, amount interface{}) error {
	m.Stakes.Inc()
	observeAmount(m.StakeAmount, amount)
	return nil
}

// OnUnstaked implements plugin.OnUnstaked.
func (m *MetricsExtension) OnUnstaked(_ context.Context, _ string, amount interface{}) error {
	m.Unstakes.Inc()
	observeAmount(m.UnstakeAmount, amount)
	return nil
}

// OnRewardsClaimed implements plugin.OnRewardsClaimed.
func (m *MetricsExtension) OnRewardsClaimed(_ context.Context, _ string, amount interface{}) error {
	m.RewardClaims.Inc()
	observeAmount(m.RewardAmount, amount)
	return nil
}

// OnRateUpdated implements plugin.OnRateUpdated.
func (m *MetricsExtension) OnRateUpdated(_ context.Context, _, newBps uint32) error {
	m.RateUpdates.Inc()
	m.RewardRateBps.Set(float64(newBps))
	return nil
}

// OnRewardPoolFunded implements plugin.OnRewardPoolFunded.
func (m *MetricsExtension) OnRewardPoolFunded(_ context.Context, amount interface{}) error {
	m.RewardPoolFunded.Inc()
	observeAmount(m.RewardPoolTopUp, amount)
	return nil
}

// amountValue converts an event payload to a float64 for observation.
// Precision above 2^53 is lossy, which is acceptable for metrics.
func amountValue(v interface{}) (float64, bool) {
	a, ok := v.(types.Amount)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(a.Dec(), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func observeAmount(h Histogram, v interface{}) {
	if f, ok := amountValue(v); ok {
		h.Observe(f)
	}
}
