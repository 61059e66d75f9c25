package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit               []OnInit
	onShutdown           []OnShutdown
	onConfigured         []OnConfigured
	onReleased           []OnReleased
	onPaused             []OnPaused
	onUnpaused           []OnUnpaused
	onRevoked            []OnRevoked
	onUnrevoked          []OnUnrevoked
	onConservationBreach []OnConservationBreach
	onStaked             []OnStaked
	onUnstaked           []OnUnstaked
	onRewardsClaimed     []OnRewardsClaimed
	onRateUpdated        []OnRateUpdated
	onRewardPoolFunded   []OnRewardPoolFunded
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnConfigured); ok {
		r.onConfigured = append(r.onConfigured, v)
	}
	if v, ok := p.(OnReleased); ok {
		r.onReleased = append(r.onReleased, v)
	}
	if v, ok := p.(OnPaused); ok {
		r.onPaused = append(r.onPaused, v)
	}
	if v, ok := p.(OnUnpaused); ok {
		r.onUnpaused = append(r.onUnpaused, v)
	}
	if v, ok := p.(OnRevoked); ok {
		r.onRevoked = append(r.onRevoked, v)
	}
	if v, ok := p.(OnUnrevoked); ok {
		r.onUnrevoked = append(r.onUnrevoked, v)
	}
	if v, ok := p.(OnConservationBreach); ok {
		r.onConservationBreach = append(r.onConservationBreach, v)
	}
	if v, ok := p.(OnStaked); ok {
		r.onStaked = append(r.onStaked, v)
	}
	if v, ok := p.(OnUnstaked); ok {
		r.onUnstaked = append(r.onUnstaked, v)
	}
	if v, ok := p.(OnRewardsClaimed); ok {
		r.onRewardsClaimed = append(r.onRewardsClaimed, v)
	}
	if v, ok := p.(OnRateUpdated); ok {
		r.onRateUpdated = append(r.onRateUpdated, v)
	}
	if v, ok := p.(OnRewardPoolFunded); ok {
		r.onRewardPoolFunded = append(r.onRewardPoolFunded, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnConfigured)(nil)).Elem(), "OnConfigured")
	checkInterface(reflect.TypeOf((*OnReleased)(nil)).Elem(), "OnReleased")
	checkInterface(reflect.TypeOf((*OnPaused)(nil)).Elem(), "OnPaused")
	checkInterface(reflect.TypeOf((*OnUnpaused)(nil)).Elem(), "OnUnpaused")
	checkInterface(reflect.TypeOf((*OnRevoked)(nil)).Elem(), "OnRevoked")
	checkInterface(reflect.TypeOf((*OnUnrevoked)(nil)).Elem(), "OnUnrevoked")
	checkInterface(reflect.TypeOf((*OnConservationBreach)(nil)).Elem(), "OnConservationBreach")
	checkInterface(reflect.TypeOf((*OnStaked)(nil)).Elem(), "OnStaked")
	checkInterface(reflect.TypeOf((*OnUnstaked)(nil)).Elem(), "OnUnstaked")
	checkInterface(reflect.TypeOf((*OnRewardsClaimed)(nil)).Elem(), "OnRewardsClaimed")
	checkInterface(reflect.TypeOf((*OnRateUpdated)(nil)).Elem(), "OnRateUpdated")
	checkInterface(reflect.TypeOf((*OnRewardPoolFunded)(nil)).Elem(), "OnRewardPoolFunded")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, t interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, t)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitConfigured emits a vesting configured event.
func (r *Registry) EmitConfigured(ctx context.Context, pool, allocs interface{}) {
	r.mu.RLock()
	plugins := r.onConfigured
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnConfigured(ctx, pool, allocs)
		}); err != nil {
			r.logger.Warn("plugin OnConfigured failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitReleased emits an allocation released event.
func (r *Registry) EmitReleased(ctx context.Context, beneficiary string, amount interface{}) {
	r.mu.RLock()
	plugins := r.onReleased
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnReleased(ctx, beneficiary, amount)
		}); err != nil {
			r.logger.Warn("plugin OnReleased failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaused emits a vesting paused event.
func (r *Registry) EmitPaused(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onPaused
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaused(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnPaused failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitUnpaused emits a vesting unpaused event.
func (r *Registry) EmitUnpaused(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onUnpaused
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnUnpaused(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnUnpaused failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRevoked emits an allocation revoked event.
func (r *Registry) EmitRevoked(ctx context.Context, beneficiary string) {
	r.mu.RLock()
	plugins := r.onRevoked
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRevoked(ctx, beneficiary)
		}); err != nil {
			r.logger.Warn("plugin OnRevoked failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitUnrevoked emits a revocation lifted event.
func (r *Registry) EmitUnrevoked(ctx context.Context, beneficiary string) {
	r.mu.RLock()
	plugins := r.onUnrevoked
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnUnrevoked(ctx, beneficiary)
		}); err != nil {
			r.logger.Warn("plugin OnUnrevoked failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitConservationBreach emits a conservation breach event.
func (r *Registry) EmitConservationBreach(ctx context.Context, held, outstanding interface{}) {
	r.mu.RLock()
	plugins := r.onConservationBreach
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnConservationBreach(ctx, held, outstanding)
		}); err != nil {
			r.logger.Warn("plugin OnConservationBreach failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStaked emits a staked event.
func (r *Registry) EmitStaked(ctx context.Context, account string, amount interface{}) {
	r.mu.RLock()
	plugins := r.onStaked
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStaked(ctx, account, amount)
		}); err != nil {
			r.logger.Warn("plugin OnStaked failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitUnstaked emits an unstaked event.
func (r *Registry) EmitUnstaked(ctx context.Context, account string, amount interface{}) {
	r.mu.RLock()
	plugins := r.onUnstaked
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnUnstaked(ctx, account, amount)
		}); err != nil {
			r.logger.Warn("plugin OnUnstaked failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRewardsClaimed emits a rewards claimed event.
func (r *Registry) EmitRewardsClaimed(ctx context.Context, account string, amount interface{}) {
	r.mu.RLock()
	plugins := r.onRewardsClaimed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRewardsClaimed(ctx, account, amount)
		}); err != nil {
			r.logger.Warn("plugin OnRewardsClaimed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRateUpdated emits a reward rate updated event.
func (r *Registry) EmitRateUpdated(ctx context.Context, oldBps, newBps uint32) {
	r.mu.RLock()
	plugins := r.onRateUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRateUpdated(ctx, oldBps, newBps)
		}); err != nil {
			r.logger.Warn("plugin OnRateUpdated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRewardPoolFunded emits a reward pool funded event.
func (r *Registry) EmitRewardPoolFunded(ctx context.Context, amount interface{}) {
	r.mu.RLock()
	plugins := r.onRewardPoolFunded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRewardPoolFunded(ctx, amount)
		}); err != nil {
			r.logger.Warn("plugin OnRewardPoolFunded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block a ledger operation.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
