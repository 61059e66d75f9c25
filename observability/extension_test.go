package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xraph/treasury/types"
)

type fakeCounter struct{ n float64 }

func (c *fakeCounter) Inc()          { c.n++ }
func (c *fakeCounter) Add(v float64) { c.n += v }

type fakeHistogram struct{ obs []float64 }

func (h *fakeHistogram) Observe(v float64) { h.obs = append(h.obs, v) }

type fakeGauge struct{ v float64 }

func (g *fakeGauge) Set(v float64) { g.v = v }

type fakeFactory struct {
	counters   map[string]*fakeCounter
	histograms map[string]*fakeHistogram
	gauges     map[string]*fakeGauge
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		counters:   make(map[string]*fakeCounter),
		histograms: make(map[string]*fakeHistogram),
		gauges:     make(map[string]*fakeGauge),
	}
}

func (f *fakeFactory) Counter(name string) Counter {
	c := &fakeCounter{}
	f.counters[name] = c
	return c
}

func (f *fakeFactory) Histogram(name string) Histogram {
	h := &fakeHistogram{}
	f.histograms[name] = h
	return h
}

func (f *fakeFactory) Gauge(name string) Gauge {
	g := &fakeGauge{}
	f.gauges[name] = g
	return g
}

func TestMetricsExtensionVestingEvents(t *testing.T) {
	f := newFakeFactory()
	m := NewMetricsExtension(f)
	ctx := context.Background()

	if err := m.OnConfigured(ctx, nil, nil); err != nil {
		t.Fatalf("OnConfigured: %v", err)
	}
	if err := m.OnReleased(ctx, "alice", types.NewAmount(1500)); err != nil {
		t.Fatalf("OnReleased: %v", err)
	}
	if err := m.OnPaused(ctx); err != nil {
		t.Fatalf("OnPaused: %v", err)
	}
	if err := m.OnUnpaused(ctx); err != nil {
		t.Fatalf("OnUnpaused: %v", err)
	}
	if err := m.OnRevoked(ctx, "bob"); err != nil {
		t.Fatalf("OnRevoked: %v", err)
	}
	if err := m.OnUnrevoked(ctx, "bob"); err != nil {
		t.Fatalf("OnUnrevoked: %v", err)
	}

	for name, want := range map[string]float64{
		"treasury.vesting.configured": 1,
		"treasury.vesting.released":   1,
		"treasury.vesting.paused":     1,
		"treasury.vesting.unpaused":   1,
		"treasury.vesting.revoked":    1,
		"treasury.vesting.unrevoked":  1,
	} {
		if got := f.counters[name].n; got != want {
			t.Errorf("counter %s = %v, want %v", name, got, want)
		}
	}
	h := f.histograms["treasury.vesting.release_amount"]
	if len(h.obs) != 1 || h.obs[0] != 1500 {
		t.Errorf("release_amount observations = %v, want [1500]", h.obs)
	}
}

func TestMetricsExtensionConservationDeficit(t *testing.T) {
	f := newFakeFactory()
	m := NewMetricsExtension(f)

	err := m.OnConservationBreach(context.Background(), types.NewAmount(400), types.NewAmount(1500))
	if err != nil {
		t.Fatalf("OnConservationBreach: %v", err)
	}
	if got := f.counters["treasury.vesting.conservation.breach"].n; got != 1 {
		t.Errorf("breach counter = %v, want 1", got)
	}
	if got := f.gauges["treasury.vesting.conservation.deficit"].v; got != 1100 {
		t.Errorf("deficit gauge = %v, want 1100", got)
	}
}

func TestMetricsExtensionStakingEvents(t *testing.T) {
	f := newFakeFactory()
	m := NewMetricsExtension(f)
	ctx := context.Background()

	if err := m.OnStaked(ctx, "alice", types.NewAmount(100_000)); err != nil {
		t.Fatalf("OnStaked: %v", err)
	}
	if err := m.OnUnstaked(ctx, "alice", types.NewAmount(40_000)); err != nil {
		t.Fatalf("OnUnstaked: %v", err)
	}
	if err := m.OnRewardsClaimed(ctx, "alice", types.NewAmount(5_000)); err != nil {
		t.Fatalf("OnRewardsClaimed: %v", err)
	}
	if err := m.OnRateUpdated(ctx, 1000, 2000); err != nil {
		t.Fatalf("OnRateUpdated: %v", err)
	}
	if err := m.OnRewardPoolFunded(ctx, types.NewAmount(250_000)); err != nil {
		t.Fatalf("OnRewardPoolFunded: %v", err)
	}

	for name, want := range map[string]float64{
		"treasury.staking.staked":          1,
		"treasury.staking.unstaked":        1,
		"treasury.staking.rewards.claimed": 1,
		"treasury.staking.rate.updated":    1,
		"treasury.staking.pool.funded":     1,
	} {
		if got := f.counters[name].n; got != want {
			t.Errorf("counter %s = %v, want %v", name, got, want)
		}
	}
	if got := f.gauges["treasury.staking.rate.bps"].v; got != 2000 {
		t.Errorf("rate gauge = %v, want 2000", got)
	}
	if h := f.histograms["treasury.staking.stake_amount"]; len(h.obs) != 1 || h.obs[0] != 100_000 {
		t.Errorf("stake_amount observations = %v, want [100000]", h.obs)
	}
}

func TestMetricsExtensionNonAmountPayload(t *testing.T) {
	f := newFakeFactory()
	m := NewMetricsExtension(f)

	if err := m.OnReleased(context.Background(), "alice", "not-an-amount"); err != nil {
		t.Fatalf("OnReleased: %v", err)
	}
	if got := f.counters["treasury.vesting.released"].n; got != 1 {
		t.Errorf("released counter = %v, want 1", got)
	}
	if h := f.histograms["treasury.vesting.release_amount"]; len(h.obs) != 0 {
		t.Errorf("release_amount observations = %v, want none", h.obs)
	}
}

func TestPrometheusFactory(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := NewPrometheusFactory(reg)

	c := f.Counter("treasury.vesting.released")
	c.Inc()
	c.Add(2)

	if f.Counter("treasury.vesting.released") != c {
		t.Error("expected same counter instance for repeated name")
	}

	pc, ok := c.(prometheus.Counter)
	if !ok {
		t.Fatalf("counter is %T, want prometheus.Counter", c)
	}
	if got := testutil.ToFloat64(pc); got != 3 {
		t.Errorf("counter value = %v, want 3", got)
	}

	g := f.Gauge("treasury.staking.rate.bps")
	g.Set(1200)
	pg, ok := g.(prometheus.Gauge)
	if !ok {
		t.Fatalf("gauge is %T, want prometheus.Gauge", g)
	}
	if got := testutil.ToFloat64(pg); got != 1200 {
		t.Errorf("gauge value = %v, want 1200", got)
	}

	f.Histogram("treasury.vesting.release_amount").Observe(1500)
	n, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 3 {
		t.Errorf("gathered %d metrics, want 3", n)
	}
}
