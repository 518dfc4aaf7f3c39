package model

import (
	"sort"
	"sync"
)

// Program is the host's view of the parsed source. Implementations must be
// safe for concurrent reads.
type Program interface {
	// FieldsOf returns the fields declared directly on c.
	FieldsOf(c *Class) []*Field
	// MethodsOf returns the methods declared directly on c.
	MethodsOf(c *Class) []*Method
	// Resolve returns the declaration a reference names.
	Resolve(ref *Reference) Symbol
	// ModificationCount changes whenever the program's structure changes.
	ModificationCount() uint64
	// IsSuppressed reports whether d, or a declaration enclosing it, is
	// marked to suppress the rule with the given identifier.
	IsSuppressed(d Declaration, ruleID string) bool
}

// Severity of a finding.
type Severity string

const (
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Finding is one reported problem.
type Finding struct {
	Rule     string   `json:"rule" yaml:"rule"`
	Severity Severity `json:"severity" yaml:"severity"`
	Pos      Pos      `json:"pos" yaml:"pos"`
	Class    string   `json:"class" yaml:"class"`
	Field    string   `json:"field" yaml:"field"`
	Method   string   `json:"method" yaml:"method"`
	Message  string   `json:"message" yaml:"message"`
}

// Sink receives findings.
type Sink interface {
	Report(f Finding)
}

// Collector is a Sink that keeps findings in memory. It is safe for
// concurrent use.
type Collector struct {
	mu       sync.Mutex
	findings []Finding
}

// Report implements Sink.
func (c *Collector) Report(f Finding) {
	c.mu.Lock()
	c.findings = append(c.findings, f)
	c.mu.Unlock()
}

// Findings returns the collected findings sorted by position, then method.
func (c *Collector) Findings() []Finding {
	c.mu.Lock()
	out := make([]Finding, len(c.findings))
	copy(out, c.findings)
	c.mu.Unlock()
	SortFindings(out)
	return out
}

// SortFindings orders findings by file, line, column and method name.
func SortFindings(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.Pos.File != b.Pos.File {
			return a.Pos.File < b.Pos.File
		}
		if a.Pos.Line != b.Pos.Line {
			return a.Pos.Line < b.Pos.Line
		}
		if a.Pos.Column != b.Pos.Column {
			return a.Pos.Column < b.Pos.Column
		}
		return a.Method < b.Method
	})
}
