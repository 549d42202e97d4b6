// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/chiselworks/ucw/internal/discovery"
	"github.com/chiselworks/ucw/internal/ruleset"
	"github.com/chiselworks/ucw/internal/variation"
	"github.com/chiselworks/ucw/pkg/ucwdef"
)

// ErrMissingDependency is returned by New when a required collaborator is nil.
var ErrMissingDependency = errors.New("missing engine dependency")

type (
	// BlockRegistry accepts generated block definitions.
	BlockRegistry interface {
		RegisterBlock(def *ucwdef.BlockDef) error
	}

	// ItemRegistry accepts generated item definitions.
	ItemRegistry interface {
		RegisterItem(def *ucwdef.ItemDef) error
	}

	// TagIndex is the host classification ("ore") index.
	TagIndex interface {
		// TagsFor returns the tags of a block; WildcardMeta matches every sub-variant.
		TagsFor(id ucwdef.Identifier, meta int) []string
		RegisterTag(name string, def *ucwdef.BlockDef) error
	}

	// Config holds the collaborators and settings of an Engine.
	Config struct {
		Resolver   ucwdef.Resolver
		Blocks     BlockRegistry
		Items      ItemRegistry
		Tags       TagIndex
		ItemSource variation.ItemSource
		// Registrar receives variation families during Initialize (optional).
		Registrar variation.Registrar
		// Sources are scanned in order by Collect.
		Sources         []discovery.ContentSource
		Namespace       string
		MaxDocumentSize int64
		// Logger defaults to a stderr logger with an "engine" prefix.
		Logger *log.Logger
	}

	// Engine drives one load cycle: collection, block and item declaration,
	// then variation expansion and tag mirroring. Phases must be invoked in
	// order; the host calls each one from its own lifecycle event, or Run
	// drives them all.
	//
	// An Engine is single-threaded by contract. Concurrent phase calls fail
	// with ErrPhaseOrder rather than corrupting state.
	Engine struct {
		// State management (atomic for lock-free reads)
		phase atomic.Int32
		busy  atomic.Bool

		cfg       Config
		rules     *ruleset.RuleSet
		collector *discovery.Collector
		logger    *log.Logger

		report   *discovery.Report
		families []variation.Family
		lastErr  error
	}
)

// New creates an Engine in PhaseEmpty.
func New(cfg Config) (*Engine, error) {
	var missing []string
	if cfg.Resolver == nil {
		missing = append(missing, "resolver")
	}
	if cfg.Blocks == nil {
		missing = append(missing, "block registry")
	}
	if cfg.Items == nil {
		missing = append(missing, "item registry")
	}
	if cfg.Tags == nil {
		missing = append(missing, "tag index")
	}
	if cfg.ItemSource == nil {
		missing = append(missing, "item source")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrMissingDependency, missing)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "engine",
		})
	}

	rules := ruleset.New()
	e := &Engine{
		cfg:    cfg,
		rules:  rules,
		logger: logger,
		collector: discovery.New(cfg.Resolver, rules,
			discovery.WithLogger(logger),
			discovery.WithNamespace(cfg.Namespace),
			discovery.WithMaxDocumentSize(cfg.MaxDocumentSize),
		),
	}
	e.phase.Store(int32(PhaseEmpty))
	return e, nil
}

// Phase returns the current phase.
func (e *Engine) Phase() Phase { return Phase(e.phase.Load()) }

// Rules returns the collected rules in RuleSet order.
func (e *Engine) Rules() []*ucwdef.Rule { return e.rules.Rules() }

// RuleSet returns the engine's RuleSet. Callers must not mutate it.
func (e *Engine) RuleSet() *ruleset.RuleSet { return e.rules }

// Families returns the variation families computed by Initialize.
func (e *Engine) Families() []variation.Family { return slices.Clone(e.families) }

// Report returns the report of the last collection, or nil.
func (e *Engine) Report() *discovery.Report { return e.report }

// Err returns the error that moved the engine to PhaseFailed.
func (e *Engine) Err() error { return e.lastErr }

// Collect reads every content source into the RuleSet: Empty → Collected.
// A canceled collection returns the engine to PhaseEmpty.
func (e *Engine) Collect(ctx context.Context) error {
	if err := e.begin("collect", PhaseEmpty); err != nil {
		return err
	}
	return e.collect(ctx)
}

// Reload resets the engine to PhaseEmpty and collects again. It is refused
// while declarations are in progress (BlocksDeclared, ItemsDeclared).
func (e *Engine) Reload(ctx context.Context) error {
	if err := e.begin("reload", PhaseEmpty, PhaseCollected, PhaseTagsMirrored); err != nil {
		return err
	}
	e.logger.Info("reloading rules")
	e.rules.Reset()
	e.families = nil
	e.report = nil
	e.phase.Store(int32(PhaseEmpty))
	return e.collect(ctx)
}

// collect runs with the busy flag held.
func (e *Engine) collect(ctx context.Context) error {
	e.phase.Store(int32(PhaseCollecting))
	report, err := e.collector.Collect(ctx, e.cfg.Sources)
	if err != nil {
		e.rules.Reset()
		e.end(PhaseEmpty)
		return err
	}
	e.report = report
	e.end(PhaseCollected)
	return nil
}

// DeclareBlocks registers every generated block: Collected → BlocksDeclared.
func (e *Engine) DeclareBlocks(ctx context.Context) error {
	if err := e.begin("declare blocks", PhaseCollected); err != nil {
		return err
	}
	count, err := e.eachFactory(ctx, func(rule *ucwdef.Rule, f *ucwdef.ObjectFactory) error {
		if err := e.cfg.Blocks.RegisterBlock(f.Block); err != nil {
			return fmt.Errorf("failed to register block %s for %s: %w", f.Block.ID, rule, err)
		}
		return nil
	})
	if err != nil {
		return e.fail(err)
	}
	e.logger.Info(fmt.Sprintf("declared %d blocks", count))
	e.end(PhaseBlocksDeclared)
	return nil
}

// DeclareItems registers every generated item: BlocksDeclared → ItemsDeclared.
func (e *Engine) DeclareItems(ctx context.Context) error {
	if err := e.begin("declare items", PhaseBlocksDeclared); err != nil {
		return err
	}
	count, err := e.eachFactory(ctx, func(rule *ucwdef.Rule, f *ucwdef.ObjectFactory) error {
		if err := e.cfg.Items.RegisterItem(f.Item); err != nil {
			return fmt.Errorf("failed to register item %s for %s: %w", f.Item.ID, rule, err)
		}
		return nil
	})
	if err != nil {
		return e.fail(err)
	}
	e.logger.Info(fmt.Sprintf("declared %d items", count))
	e.end(PhaseItemsDeclared)
	return nil
}

// Initialize expands variation families, publishes them to the registrar and
// mirrors the source blocks' classification tags onto the generated blocks:
// ItemsDeclared → TagsMirrored.
func (e *Engine) Initialize(ctx context.Context) error {
	if err := e.begin("initialize", PhaseItemsDeclared); err != nil {
		return err
	}

	e.families = variation.Expand(e.rules.Rules(), e.cfg.ItemSource)
	if e.cfg.Registrar != nil {
		if err := variation.Publish(e.families, e.cfg.Registrar); err != nil {
			return e.fail(err)
		}
	}

	var mirrored int
	for _, rule := range e.rules.Rules() {
		if err := ctx.Err(); err != nil {
			return e.fail(err)
		}
		n, err := e.mirrorTags(rule)
		if err != nil {
			return e.fail(err)
		}
		mirrored += n
	}

	e.logger.Info(fmt.Sprintf("published %d variation families, mirrored %d tag entries", len(e.families), mirrored))
	e.end(PhaseTagsMirrored)
	return nil
}

// mirrorTags registers every distinct generated block of rule under each tag
// of its source block. A source without tags causes no registration.
func (e *Engine) mirrorTags(rule *ucwdef.Rule) (int, error) {
	tags := e.cfg.Tags.TagsFor(rule.Source, ucwdef.WildcardMeta)
	if len(tags) == 0 {
		return 0, nil
	}
	var (
		count int
		seen  = make(map[ucwdef.Identifier]bool)
	)
	for _, f := range rule.OrderedFactories() {
		if seen[f.Block.ID] {
			continue
		}
		seen[f.Block.ID] = true
		for _, tag := range tags {
			if err := e.cfg.Tags.RegisterTag(tag, f.Block); err != nil {
				return count, fmt.Errorf("failed to register tag %s for block %s: %w", tag, f.Block.ID, err)
			}
			count++
		}
	}
	return count, nil
}

// Run drives every remaining phase in order, starting from PhaseEmpty or
// PhaseCollected.
func (e *Engine) Run(ctx context.Context) error {
	if e.Phase() == PhaseEmpty {
		if err := e.Collect(ctx); err != nil {
			return err
		}
	}
	steps := []func(context.Context) error{e.DeclareBlocks, e.DeclareItems, e.Initialize}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) eachFactory(ctx context.Context, fn func(*ucwdef.Rule, *ucwdef.ObjectFactory) error) (int, error) {
	var count int
	for _, rule := range e.rules.Rules() {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		for _, f := range rule.OrderedFactories() {
			if err := fn(rule, f); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

// begin claims the engine for op if the current phase is one of allowed.
func (e *Engine) begin(op string, allowed ...Phase) error {
	if !e.busy.CompareAndSwap(false, true) {
		return &PhaseError{Op: op, Current: e.Phase(), Allowed: allowed, Busy: true}
	}
	current := e.Phase()
	if !slices.Contains(allowed, current) {
		e.busy.Store(false)
		return &PhaseError{Op: op, Current: current, Allowed: allowed}
	}
	e.logger.Debug("phase operation started", "op", op, "phase", current)
	return nil
}

// end stores the resulting phase and releases the engine.
func (e *Engine) end(to Phase) {
	e.phase.Store(int32(to))
	e.busy.Store(false)
}

// fail records err, moves to PhaseFailed and returns err.
func (e *Engine) fail(err error) error {
	e.lastErr = err
	e.logger.Error("load cycle failed", "error", err)
	e.end(PhaseFailed)
	return err
}
