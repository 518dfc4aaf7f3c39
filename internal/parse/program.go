package parse

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/phobologic/eqfields/internal/model"
)

// Program is a set of parsed files. It implements model.Program and is safe
// for concurrent use; Add and Remove bump the modification count.
type Program struct {
	mu        sync.RWMutex
	files     map[string]*model.File
	byName    map[string][]*model.Class
	classFile map[*model.Class]string
	mods      atomic.Uint64
}

var _ model.Program = (*Program)(nil)

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{
		files:     make(map[string]*model.File),
		byName:    make(map[string][]*model.Class),
		classFile: make(map[*model.Class]string),
	}
}

// Add inserts files, replacing any file with the same path.
func (p *Program) Add(files ...*model.File) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, f := range files {
		p.files[f.Path] = f
	}
	p.reindex()
	p.mods.Add(1)
}

// Remove drops the file at path. It reports whether the file was present.
func (p *Program) Remove(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.files[path]; !ok {
		return false
	}
	delete(p.files, path)
	p.reindex()
	p.mods.Add(1)
	return true
}

// reindex rebuilds the class name index. Callers hold p.mu.
func (p *Program) reindex() {
	p.byName = make(map[string][]*model.Class)
	p.classFile = make(map[*model.Class]string)
	for _, f := range p.sortedFiles() {
		for _, c := range f.AllClasses() {
			p.byName[c.Name] = append(p.byName[c.Name], c)
			p.classFile[c] = f.Path
		}
	}
}

func (p *Program) sortedFiles() []*model.File {
	files := make([]*model.File, 0, len(p.files))
	for _, f := range p.files {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}

// Files returns the program's files sorted by path.
func (p *Program) Files() []*model.File {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sortedFiles()
}

// Classes returns every class in the program, file by file.
func (p *Program) Classes() []*model.Class {
	var out []*model.Class
	for _, f := range p.Files() {
		out = append(out, f.AllClasses()...)
	}
	return out
}

// Methods returns every method declaration in the program.
func (p *Program) Methods() []*model.Method {
	var out []*model.Method
	for _, c := range p.Classes() {
		out = append(out, c.Methods...)
	}
	return out
}

// FieldsOf implements model.Program.
func (p *Program) FieldsOf(c *model.Class) []*model.Field {
	return c.Fields
}

// MethodsOf implements model.Program.
func (p *Program) MethodsOf(c *model.Class) []*model.Method {
	return c.Methods
}

// ModificationCount implements model.Program.
func (p *Program) ModificationCount() uint64 {
	return p.mods.Load()
}

// Resolve implements model.Program. Unqualified names are looked up in the
// lexically enclosing class and then its outer classes; qualified names in
// the class named by the qualifier's static type.
func (p *Program) Resolve(ref *model.Reference) model.Symbol {
	if ref == nil || ref.Local || ref.From == nil {
		return model.Symbol{}
	}
	switch ref.Qualifier {
	case model.QualNone:
		for c := ref.From; c != nil; c = c.Outer {
			if sym, ok := member(c, ref); ok {
				return sym
			}
		}
	case model.QualThis:
		sym, _ := member(ref.From, ref)
		return sym
	case model.QualType:
		if c := p.lookupClass(ref.From, ref.TypeName); c != nil {
			sym, _ := member(c, ref)
			return sym
		}
	}
	return model.Symbol{}
}

func member(c *model.Class, ref *model.Reference) (model.Symbol, bool) {
	switch ref.Kind {
	case model.RefName, model.RefField:
		for _, f := range c.Fields {
			if f.Name == ref.Name {
				return model.Symbol{Field: f}, true
			}
		}
	case model.RefCall:
		for _, m := range c.Methods {
			if m.Name == ref.Name && arityMatches(m, ref.Args) {
				return model.Symbol{Method: m}, true
			}
		}
	case model.RefMethodRef:
		var found *model.Method
		for _, m := range c.Methods {
			if m.Name != ref.Name {
				continue
			}
			if len(m.Params) == 0 {
				return model.Symbol{Method: m}, true
			}
			if found == nil {
				found = m
			}
		}
		if found != nil {
			return model.Symbol{Method: found}, true
		}
	}
	return model.Symbol{}, false
}

func arityMatches(m *model.Method, args int) bool {
	n := len(m.Params)
	if n > 0 && strings.HasSuffix(m.Params[n-1].Type, "...") {
		return args >= n-1
	}
	return n == args
}

// lookupClass finds a class by simple name as seen from the class from:
// the enclosing classes and their nested classes first, then classes in
// the same file, then the first match program-wide.
func (p *Program) lookupClass(from *model.Class, name string) *model.Class {
	if name == "" {
		return nil
	}
	for c := from; c != nil; c = c.Outer {
		if c.Name == name {
			return c
		}
		for _, n := range c.Nested {
			if n.Name == name {
				return n
			}
		}
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	candidates := p.byName[name]
	if len(candidates) == 0 {
		return nil
	}
	// anonymous classes are not indexed; use the file of the nearest
	// declared class around them
	var file string
	for c := from; c != nil; c = c.Outer {
		if f, ok := p.classFile[c]; ok {
			file = f
			break
		}
	}
	for _, c := range candidates {
		if p.classFile[c] == file {
			return c
		}
	}
	return candidates[0]
}

// IsSuppressed implements model.Program. A declaration is suppressed by a
// @SuppressWarnings annotation naming ruleID (or "all") on itself or on any
// enclosing class.
func (p *Program) IsSuppressed(d model.Declaration, ruleID string) bool {
	var c *model.Class
	switch d := d.(type) {
	case *model.Field:
		if suppresses(d.Annotations, ruleID) {
			return true
		}
		c = d.Class
	case *model.Method:
		if suppresses(d.Annotations, ruleID) {
			return true
		}
		c = d.Class
	case *model.Class:
		c = d
	}
	for ; c != nil; c = c.Outer {
		if suppresses(c.Annotations, ruleID) {
			return true
		}
	}
	return false
}

func suppresses(anns []model.Annotation, ruleID string) bool {
	for _, a := range anns {
		if a.Name != "SuppressWarnings" && a.Name != "java.lang.SuppressWarnings" {
			continue
		}
		for _, v := range a.Values {
			if v == ruleID || strings.EqualFold(v, "all") {
				return true
			}
		}
	}
	return false
}
