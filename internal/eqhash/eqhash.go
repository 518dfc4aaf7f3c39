// Package eqhash reports fields that a class's equals or hashCode method
// never looks at.
//
// The analyzer works on the model package's program representation. The host
// calls VisitMethod once per method declaration; only equals and hashCode
// methods are analyzed, everything else is a no-op. For those, every field of
// the owning class that is expected to take part in equality (not transient,
// not static, not a final field with a literal initializer) must be
// referenced somewhere in the method body, either directly or through its
// getter. A reference anywhere counts, including dead code.
package eqhash

import (
	"fmt"
	"sync/atomic"

	"github.com/go-logr/logr"

	"github.com/phobologic/eqfields/internal/cache"
	"github.com/phobologic/eqfields/internal/model"
)

// RuleID is the identifier matched by suppression annotations.
const RuleID = "FieldNotUsedInEqualsHashCode"

// FieldSet is an immutable, ordered set of fields.
type FieldSet struct {
	order []*model.Field
	index map[*model.Field]struct{}
}

func newFieldSet(fields []*model.Field) FieldSet {
	s := FieldSet{
		order: fields,
		index: make(map[*model.Field]struct{}, len(fields)),
	}
	for _, f := range fields {
		s.index[f] = struct{}{}
	}
	return s
}

// Len returns the number of fields in the set.
func (s FieldSet) Len() int { return len(s.order) }

// Contains reports whether f is in the set.
func (s FieldSet) Contains(f *model.Field) bool {
	_, ok := s.index[f]
	return ok
}

// Fields returns the fields in declaration order. The slice must not be
// modified.
func (s FieldSet) Fields() []*model.Field { return s.order }

// GetterIndex maps a simple accessor to the field it returns.
type GetterIndex map[*model.Method]*model.Field

// Analyzer is the field usage analyzer. It is safe for concurrent use.
type Analyzer struct {
	prog     model.Program
	ruleID   string
	severity model.Severity
	log      logr.Logger

	required cache.Versioned[*model.Class, FieldSet]
	getters  cache.Versioned[*model.Class, GetterIndex]
	seen     atomic.Uint64 // last modification count the caches were used at
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(log logr.Logger) Option {
	return func(a *Analyzer) { a.log = log }
}

// WithRuleID overrides the identifier recorded on findings and checked by
// suppression.
func WithRuleID(id string) Option {
	return func(a *Analyzer) {
		if id != "" {
			a.ruleID = id
		}
	}
}

// WithSeverity sets the severity recorded on findings.
func WithSeverity(s model.Severity) Option {
	return func(a *Analyzer) {
		if s != "" {
			a.severity = s
		}
	}
}

// New returns an analyzer over prog.
func New(prog model.Program, opts ...Option) *Analyzer {
	a := &Analyzer{
		prog:     prog,
		ruleID:   RuleID,
		severity: model.Warning,
		log:      logr.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RuleID returns the identifier the analyzer reports under.
func (a *Analyzer) RuleID() string { return a.ruleID }

// VisitMethod analyzes m and reports to sink one finding per required
// field m does not reference.
func (a *Analyzer) VisitMethod(m *model.Method, sink model.Sink) {
	if !IsEquals(m) && !IsHashCode(m) {
		return
	}
	c := m.Class
	if c == nil {
		return
	}

	required := a.RequiredFields(c)
	if required.Len() == 0 {
		return
	}
	getters := a.Getters(c)
	observed := a.scan(m.Body, required, getters)

	for _, f := range required.Fields() {
		if _, ok := observed[f]; ok {
			continue
		}
		if f.Name == "" {
			continue
		}
		if a.prog.IsSuppressed(f, a.ruleID) {
			continue
		}
		sink.Report(model.Finding{
			Rule:     a.ruleID,
			Severity: a.severity,
			Pos:      f.NamePos,
			Class:    c.QualifiedName(),
			Field:    f.Name,
			Method:   m.Name,
			Message:  Message(f.Name, m.Name),
		})
	}
}

// Message formats the finding text for a field ignored by a method.
func Message(field, method string) string {
	return fmt.Sprintf("Field '%s' is not used in '%s()' method", field, method)
}

// RequiredFields returns the fields of c that equals and hashCode are
// expected to use. The result is cached until the program changes.
func (a *Analyzer) RequiredFields(c *model.Class) FieldSet {
	return a.required.Get(c, a.token(), func() FieldSet {
		s := collectRequired(a.prog.FieldsOf(c))
		a.log.V(1).Info("computed required fields", "class", c.QualifiedName(), "count", s.Len())
		return s
	})
}

// Getters returns the getter index for c's required fields. The result is
// cached until the program changes.
func (a *Analyzer) Getters(c *model.Class) GetterIndex {
	return a.getters.Get(c, a.token(), func() GetterIndex {
		idx := buildGetterIndex(a.prog, c, a.RequiredFields(c))
		a.log.V(1).Info("computed getter index", "class", c.QualifiedName(), "count", len(idx))
		return idx
	})
}

// token returns the program's modification count. The first call after a
// change drops the cache entries computed before it, so classes removed from
// the program are not kept alive.
func (a *Analyzer) token() uint64 {
	tok := a.prog.ModificationCount()
	if a.seen.Swap(tok) != tok {
		a.required.Purge(tok)
		a.getters.Purge(tok)
		a.log.V(1).Info("purged stale cache entries", "modificationCount", tok,
			"required", a.required.Len(), "getters", a.getters.Len())
	}
	return tok
}
