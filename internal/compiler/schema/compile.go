package schema

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/needs-tools/needschema/internal/compiler/errors"
	"github.com/needs-tools/needschema/internal/metamodel"
)

// Result is the outcome of one compilation
type Result struct {
	Document    *Document
	Diagnostics errors.ErrorList
}

// Option configures a compilation
type Option func(*options)

type options struct {
	policy errors.Policy
	logger *zap.Logger
}

// WithPolicy selects how dangling references and malformed associations are
// reported
func WithPolicy(p errors.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithLogger sets the logger for phase summaries. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Compile turns a node table into a schema document.
//
// The table is only read. Under the strict policy the document is still
// returned, together with an errors.ErrorList as error when any finding was
// reported.
func Compile(table *metamodel.Table, opts ...Option) (*Result, error) {
	o := options{policy: errors.PolicyLenient, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if table == nil {
		table = metamodel.New(nil)
	}

	c := &compiler{
		table:    table,
		logger:   o.logger.With(zap.String("run", uuid.NewString())),
		reported: make(map[string]bool),
	}

	doc := NewDocument()
	c.assembleDefinitions(doc)
	c.buildEntries(doc)

	diags := o.policy.Apply(c.diags)
	errCount, warnCount, infoCount := diags.ErrorCount()
	c.logger.Debug("compiled metamodel",
		zap.Int("nodes", table.Len()),
		zap.Int("defs", len(doc.Defs)),
		zap.Int("schemas", len(doc.Schemas)),
		zap.Int("errors", errCount),
		zap.Int("warnings", warnCount),
		zap.Int("info", infoCount),
		zap.String("policy", string(o.policy)),
	)

	res := &Result{Document: doc, Diagnostics: diags}
	if diags.HasErrors() {
		return res, diags
	}
	return res, nil
}

// compiler carries the state of a single compilation run
type compiler struct {
	table    *metamodel.Table
	logger   *zap.Logger
	diags    errors.ErrorList
	reported map[string]bool
}

// report records a diagnostic once. Resolution of the same edge happens in
// more than one phase.
func (c *compiler) report(d *errors.CompilerError) {
	key := fmt.Sprintf("%s|%s|%s|%s", d.Code, d.Origin.Node, d.Origin.Field, d.Origin.Reference)
	if c.reported[key] {
		return
	}
	c.reported[key] = true
	c.diags = append(c.diags, d)
}

// resolve looks up ref on behalf of owner.field and reports a dangling
// reference when it is missing.
func (c *compiler) resolve(owner, field, ref string) (metamodel.Node, bool) {
	n, ok := c.table.Get(ref)
	if !ok {
		c.report(errors.NewDanglingReference(owner, field, ref))
		return nil, false
	}
	return n, true
}

func (c *compiler) wrongKind(owner, field string, n metamodel.Node, expected string) {
	c.report(errors.NewWrongKindReference(owner, field, n.ID(), expected, string(n.Kind())))
}
