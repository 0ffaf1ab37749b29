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
	onInit                     []OnInit
	onShutdown                 []OnShutdown
	onConfigChanged            []OnConfigChanged
	onAdjustmentCreated        []OnAdjustmentCreated
	onChargeCreated            []OnChargeCreated
	onPaymentRecorded          []OnPaymentRecorded
	onChargeDeleted            []OnChargeDeleted
	onPeriodLocked             []OnPeriodLocked
	onPeriodUnlocked           []OnPeriodUnlocked
	onReconciliationSubmitted  []OnReconciliationSubmitted
	onAccountAdjustmentCreated []OnAccountAdjustmentCreated
	rateProviders              []RateProviderPlugin
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
	if v, ok := p.(OnConfigChanged); ok {
		r.onConfigChanged = append(r.onConfigChanged, v)
	}
	if v, ok := p.(OnAdjustmentCreated); ok {
		r.onAdjustmentCreated = append(r.onAdjustmentCreated, v)
	}
	if v, ok := p.(OnChargeCreated); ok {
		r.onChargeCreated = append(r.onChargeCreated, v)
	}
	if v, ok := p.(OnPaymentRecorded); ok {
		r.onPaymentRecorded = append(r.onPaymentRecorded, v)
	}
	if v, ok := p.(OnChargeDeleted); ok {
		r.onChargeDeleted = append(r.onChargeDeleted, v)
	}
	if v, ok := p.(OnPeriodLocked); ok {
		r.onPeriodLocked = append(r.onPeriodLocked, v)
	}
	if v, ok := p.(OnPeriodUnlocked); ok {
		r.onPeriodUnlocked = append(r.onPeriodUnlocked, v)
	}
	if v, ok := p.(OnReconciliationSubmitted); ok {
		r.onReconciliationSubmitted = append(r.onReconciliationSubmitted, v)
	}
	if v, ok := p.(OnAccountAdjustmentCreated); ok {
		r.onAccountAdjustmentCreated = append(r.onAccountAdjustmentCreated, v)
	}
	if v, ok := p.(RateProviderPlugin); ok {
		r.rateProviders = append(r.rateProviders, v)
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

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnConfigChanged)(nil)).Elem(), "OnConfigChanged")
	checkInterface(reflect.TypeOf((*OnChargeCreated)(nil)).Elem(), "OnChargeCreated")
	checkInterface(reflect.TypeOf((*OnPaymentRecorded)(nil)).Elem(), "OnPaymentRecorded")
	checkInterface(reflect.TypeOf((*OnPeriodLocked)(nil)).Elem(), "OnPeriodLocked")
	checkInterface(reflect.TypeOf((*OnReconciliationSubmitted)(nil)).Elem(), "OnReconciliationSubmitted")
	checkInterface(reflect.TypeOf((*RateProviderPlugin)(nil)).Elem(), "RateProvider")

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
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
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

// EmitConfigChanged emits a billing-config change event.
func (r *Registry) EmitConfigChanged(ctx context.Context, oldCfg, newCfg interface{}) {
	r.mu.RLock()
	plugins := r.onConfigChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnConfigChanged(ctx, oldCfg, newCfg)
		}); err != nil {
			r.logger.Warn("plugin OnConfigChanged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAdjustmentCreated emits an adjustment created event.
func (r *Registry) EmitAdjustmentCreated(ctx context.Context, adj interface{}) {
	r.mu.RLock()
	plugins := r.onAdjustmentCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAdjustmentCreated(ctx, adj)
		}); err != nil {
			r.logger.Warn("plugin OnAdjustmentCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitChargeCreated emits a charge created event.
func (r *Registry) EmitChargeCreated(ctx context.Context, c interface{}) {
	r.mu.RLock()
	plugins := r.onChargeCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnChargeCreated(ctx, c)
		}); err != nil {
			r.logger.Warn("plugin OnChargeCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaymentRecorded emits a payment recorded event.
func (r *Registry) EmitPaymentRecorded(ctx context.Context, c interface{}) {
	r.mu.RLock()
	plugins := r.onPaymentRecorded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentRecorded(ctx, c)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentRecorded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitChargeDeleted emits a charge deleted event.
func (r *Registry) EmitChargeDeleted(ctx context.Context, chargeID string) {
	r.mu.RLock()
	plugins := r.onChargeDeleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnChargeDeleted(ctx, chargeID)
		}); err != nil {
			r.logger.Warn("plugin OnChargeDeleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPeriodLocked emits a period locked event.
func (r *Registry) EmitPeriodLocked(ctx context.Context, lock interface{}) {
	r.mu.RLock()
	plugins := r.onPeriodLocked
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPeriodLocked(ctx, lock)
		}); err != nil {
			r.logger.Warn("plugin OnPeriodLocked failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPeriodUnlocked emits a period unlocked event.
func (r *Registry) EmitPeriodUnlocked(ctx context.Context, agencyID string, year int, month time.Month) {
	r.mu.RLock()
	plugins := r.onPeriodUnlocked
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPeriodUnlocked(ctx, agencyID, year, month)
		}); err != nil {
			r.logger.Warn("plugin OnPeriodUnlocked failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitReconciliationSubmitted emits a reconciliation submitted event.
func (r *Registry) EmitReconciliationSubmitted(ctx context.Context, audit, adj interface{}) {
	r.mu.RLock()
	plugins := r.onReconciliationSubmitted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnReconciliationSubmitted(ctx, audit, adj)
		}); err != nil {
			r.logger.Warn("plugin OnReconciliationSubmitted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAccountAdjustmentCreated emits a manual account adjustment event.
func (r *Registry) EmitAccountAdjustmentCreated(ctx context.Context, adj interface{}) {
	r.mu.RLock()
	plugins := r.onAccountAdjustmentCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAccountAdjustmentCreated(ctx, adj)
		}); err != nil {
			r.logger.Warn("plugin OnAccountAdjustmentCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// GetRateProviders returns all registered rate provider plugins.
func (r *Registry) GetRateProviders() []RateProviderPlugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]RateProviderPlugin, len(r.rateProviders))
	copy(result, r.rateProviders)
	return result
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the billing pipeline.
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
