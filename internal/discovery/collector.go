// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"

	"github.com/chiselworks/ucw/internal/ruleset"
	"github.com/chiselworks/ucw/pkg/cueutil"
	"github.com/chiselworks/ucw/pkg/ucwdef"
)

type (
	// Option configures a Collector.
	Option func(*Collector)

	// Collector reads rule documents from content sources, parses them
	// against a host namespace and adds the valid rules to a RuleSet.
	// A Collector is not safe for concurrent use.
	Collector struct {
		resolver        ucwdef.Resolver
		rules           *ruleset.RuleSet
		namespace       string
		maxDocumentSize int64
		logger          *log.Logger
		schema          *cueutil.Schema
	}

	// Report summarizes one collection pass.
	Report struct {
		// Accepted is the number of rules in the RuleSet after collection.
		Accepted int `json:"accepted" yaml:"accepted"`
		// Documents is the number of rule documents read.
		Documents int `json:"documents" yaml:"documents"`
		// Sources is the number of content sources that were opened.
		Sources int `json:"sources" yaml:"sources"`
		// Diagnostics lists every non-fatal problem in encounter order.
		Diagnostics []Diagnostic `json:"diagnostics" yaml:"diagnostics"`
	}
)

// WithLogger sets the logger. The default logs to stderr with a "discovery" prefix.
func WithLogger(logger *log.Logger) Option {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithNamespace sets the namespace of generated identifiers.
func WithNamespace(namespace string) Option {
	return func(c *Collector) { c.namespace = namespace }
}

// WithMaxDocumentSize limits the size of a single rule document.
func WithMaxDocumentSize(size int64) Option {
	return func(c *Collector) { c.maxDocumentSize = size }
}

// New creates a Collector that resolves references with resolver and stores
// accepted rules in rules.
func New(resolver ucwdef.Resolver, rules *ruleset.RuleSet, opts ...Option) *Collector {
	c := &Collector{
		resolver: resolver,
		rules:    rules,
		logger: log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "discovery",
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rules returns the RuleSet the Collector fills.
func (c *Collector) Rules() *ruleset.RuleSet { return c.rules }

// Collect clears the RuleSet and fills it from sources, in order. Within a
// source, documents are visited in the order the storage lists them, never
// re-sorted, so the first of two equal rules is the one stored first.
// Collecting the same sources twice yields the same RuleSet.
//
// The rule schema is compiled once per call and shared by every document.
// Errors returned are a context cancellation or a broken embedded schema;
// every other problem is a Diagnostic in the Report.
func (c *Collector) Collect(ctx context.Context, sources []ContentSource) (*Report, error) {
	c.rules.Reset()
	report := &Report{}

	schema, err := ucwdef.RuleSchema()
	if err != nil {
		return c.finish(report), err
	}
	c.schema = schema

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return c.finish(report), fmt.Errorf("rule collection interrupted: %w", err)
		}
		if err := c.collectSource(ctx, src, report); err != nil {
			return c.finish(report), fmt.Errorf("rule collection interrupted: %w", err)
		}
	}

	report = c.finish(report)
	c.logger.Info(fmt.Sprintf("found %d rules", report.Accepted), "documents", report.Documents, "sources", report.Sources)
	return report, nil
}

// ParseFile parses one rule document from the local file system without
// touching the RuleSet. It is used to validate documents in isolation.
func (c *Collector) ParseFile(filePath string) (*ucwdef.DocumentResult, []Diagnostic) {
	var diags []Diagnostic
	data, err := os.ReadFile(filePath)
	if err != nil {
		diags = append(diags, NewDiagnosticWithCause(SeverityError, CodeDocumentReadFailed,
			fmt.Sprintf("failed to read rule document: %v", err), filePath, err))
		return nil, diags
	}
	if c.schema == nil {
		schema, err := ucwdef.RuleSchema()
		if err != nil {
			diags = append(diags, NewDiagnosticWithCause(SeverityError, CodeDocumentParseFailed, err.Error(), filePath, err))
			return nil, diags
		}
		c.schema = schema
	}
	result, err := ucwdef.ParseDocument(data, filePath, c.resolver, c.parseOptions(""))
	if err != nil {
		diags = append(diags, NewDiagnosticWithCause(SeverityError, CodeDocumentParseFailed, err.Error(), filePath, err))
		return nil, diags
	}
	for _, problem := range result.Problems {
		diags = append(diags, problemDiagnostic(filePath, problem))
	}
	return result, diags
}

func (c *Collector) finish(report *Report) *Report {
	report.Accepted = c.rules.Len()
	return report
}

// collectSource walks one content source. The source is closed before it
// returns, so at most one archive is open at a time.
func (c *Collector) collectSource(ctx context.Context, src ContentSource, report *Report) error {
	if isValid, errs := src.IsValid(); !isValid {
		c.record(report, NewDiagnosticWithCause(SeverityError, CodeSourceOpenFailed,
			errs[0].Error(), src.Path, errors.Join(errs...)))
		return nil
	}

	opened, err := src.open()
	if errors.Is(err, errSourceMissing) {
		c.logger.Debug("content source does not exist", "source", src.ID, "path", src.Path)
		return nil
	}
	if err != nil {
		c.record(report, NewDiagnosticWithCause(SeverityError, CodeSourceOpenFailed,
			fmt.Sprintf("failed to open content source %q: %v", src.ID, err), src.Path, err))
		return nil
	}
	defer func() {
		if closeErr := opened.Close(); closeErr != nil {
			c.logger.Warn("failed to close content source", "source", src.ID, "error", closeErr)
		}
	}()
	report.Sources++

	return opened.walkDocuments(src.RulesRoot(),
		func(name string) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.collectDocument(opened, name, report)
			return nil
		},
		func(name string, err error) {
			c.record(report, NewDiagnosticWithCause(SeverityError, CodeSourceWalkFailed,
				fmt.Sprintf("failed to list %s: %v", name, err), opened.displayPath(name), err))
		},
	)
}

func (c *Collector) collectDocument(src *openedSource, name string, report *Report) {
	display := src.displayPath(name)

	data, err := fs.ReadFile(src.fsys, name)
	if err != nil {
		c.record(report, NewDiagnosticWithCause(SeverityError, CodeDocumentReadFailed,
			fmt.Sprintf("failed to read rule document: %v", err), display, err))
		return
	}
	report.Documents++

	result, err := ucwdef.ParseDocument(data, display, c.resolver, c.parseOptions(src.ID))
	if err != nil {
		c.record(report, NewDiagnosticWithCause(SeverityError, CodeDocumentParseFailed, err.Error(), display, err))
		return
	}
	for _, problem := range result.Problems {
		c.record(report, problemDiagnostic(display, problem))
	}

	for _, rule := range result.Rules {
		res, err := c.rules.Add(rule)
		switch res {
		case ruleset.Added:
			c.logger.Debug("rule accepted", "rule", rule.String(), "path", display)
		case ruleset.Duplicate:
			c.record(report, NewDiagnosticWithCause(SeverityWarning, CodeRuleDuplicate, err.Error(), display, err))
		case ruleset.Collision:
			c.record(report, NewDiagnosticWithCause(SeverityWarning, CodeRuleGeneratedIDCollision, err.Error(), display, err))
		}
	}
}

func (c *Collector) parseOptions(sourceID string) ucwdef.ParseOptions {
	return ucwdef.ParseOptions{
		Namespace:       c.namespace,
		MaxDocumentSize: c.maxDocumentSize,
		SourceID:        sourceID,
		Logger:          c.logger,
		Schema:          c.schema,
	}
}

// record appends the diagnostic and logs it at the matching level.
func (c *Collector) record(report *Report, d Diagnostic) {
	report.Diagnostics = append(report.Diagnostics, d)
	if d.Severity == SeverityError {
		c.logger.Error(d.Message, "code", d.Code, "path", d.Path)
		return
	}
	c.logger.Warn(d.Message, "code", d.Code, "path", d.Path)
}

func problemDiagnostic(path string, problem error) Diagnostic {
	if errors.Is(problem, ucwdef.ErrUnresolvedReference) {
		return NewDiagnosticWithCause(SeverityWarning, CodeRuleUnresolvedReference, problem.Error(), path, problem)
	}
	return NewDiagnosticWithCause(SeverityWarning, CodeRuleParseFailed, problem.Error(), path, problem)
}
