// Package extension provides the Forge extension adapter for Treasury.
//
// It implements the forge.Extension interface to integrate Treasury
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.treasury" or
// "treasury" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	treasury "github.com/xraph/treasury"
	"github.com/xraph/treasury/custodian"
	"github.com/xraph/treasury/store"
	"github.com/xraph/treasury/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "treasury"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Vesting and staking ledger engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Treasury as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *treasury.Treasury
	store      store.Store
	custodian  custodian.Custodian
	engineOpts []treasury.Option
}

// New creates a new Treasury Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Treasury instance.
// This is nil until Register is called.
func (e *Extension) Engine() *treasury.Treasury { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the treasury engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use in-process backends if none were provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}
	if e.custodian == nil {
		e.custodian = custodian.NewMemory(e.config.Account)
	}

	eng := treasury.New(e.store, e.custodian, e.buildEngineOpts()...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*treasury.Treasury, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("treasury: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("treasury: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs treasury.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []treasury.Option {
	opts := make([]treasury.Option, 0, len(e.engineOpts)+5)

	if e.config.Account != "" {
		opts = append(opts, treasury.WithAccount(e.config.Account))
	}
	if e.config.CliffDuration > 0 {
		opts = append(opts, treasury.WithCliffDuration(e.config.CliffDuration))
	}
	if e.config.LockupDuration > 0 {
		opts = append(opts, treasury.WithLockupDuration(e.config.LockupDuration))
	}
	if e.config.RewardRateBps > 0 {
		opts = append(opts, treasury.WithRewardRate(e.config.RewardRateBps))
	}
	if e.config.MaxRateBps > 0 {
		opts = append(opts, treasury.WithRateBand(e.config.MinRateBps, e.config.MaxRateBps))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("treasury: configuration is required but not found in config files; " +
				"ensure 'extensions.treasury' or 'treasury' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("treasury: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("account", e.config.Account),
		forge.F("cliff_duration", e.config.CliffDuration),
		forge.F("lockup_duration", e.config.LockupDuration),
		forge.F("reward_rate_bps", e.config.RewardRateBps),
		forge.F("min_rate_bps", e.config.MinRateBps),
		forge.F("max_rate_bps", e.config.MaxRateBps),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.treasury" first (namespaced pattern).
	if cm.IsSet("extensions.treasury") {
		if err := cm.Bind("extensions.treasury", &cfg); err == nil {
			e.Logger().Debug("treasury: loaded config from file",
				forge.F("key", "extensions.treasury"),
			)
			return cfg, true
		}
		e.Logger().Warn("treasury: failed to bind extensions.treasury config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "treasury" key.
	if cm.IsSet("treasury") {
		if err := cm.Bind("treasury", &cfg); err == nil {
			e.Logger().Debug("treasury: loaded config from file",
				forge.F("key", "treasury"),
			)
			return cfg, true
		}
		e.Logger().Warn("treasury: failed to bind treasury config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Account == "" {
		cfg.Account = defaults.Account
	}
	if cfg.CliffDuration == 0 {
		cfg.CliffDuration = defaults.CliffDuration
	}
	if cfg.LockupDuration == 0 {
		cfg.LockupDuration = defaults.LockupDuration
	}
	if cfg.RewardRateBps == 0 {
		cfg.RewardRateBps = defaults.RewardRateBps
	}
	if cfg.MinRateBps == 0 {
		cfg.MinRateBps = defaults.MinRateBps
	}
	if cfg.MaxRateBps == 0 {
		cfg.MaxRateBps = defaults.MaxRateBps
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Account == "" && programmaticConfig.Account != "" {
		yamlConfig.Account = programmaticConfig.Account
	}

	// Duration/rate fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.CliffDuration == 0 && programmaticConfig.CliffDuration != 0 {
		yamlConfig.CliffDuration = programmaticConfig.CliffDuration
	}
	if yamlConfig.LockupDuration == 0 && programmaticConfig.LockupDuration != 0 {
		yamlConfig.LockupDuration = programmaticConfig.LockupDuration
	}
	if yamlConfig.RewardRateBps == 0 && programmaticConfig.RewardRateBps != 0 {
		yamlConfig.RewardRateBps = programmaticConfig.RewardRateBps
	}
	if yamlConfig.MinRateBps == 0 && programmaticConfig.MinRateBps != 0 {
		yamlConfig.MinRateBps = programmaticConfig.MinRateBps
	}
	if yamlConfig.MaxRateBps == 0 && programmaticConfig.MaxRateBps != 0 {
		yamlConfig.MaxRateBps = programmaticConfig.MaxRateBps
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
