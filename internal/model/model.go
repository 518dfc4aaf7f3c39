// Package model defines the program representation the field usage
// analyzer works on, and the host capabilities it consumes.
package model

import "strings"

// Pos is a source location. Line and Column are 1-based; Column counts bytes.
type Pos struct {
	File   string
	Line   int
	Column int
	Offset int
}

// Modifier is a single declaration modifier.
type Modifier uint16

const (
	Public Modifier = 1 << iota
	Protected
	Private
	Static
	Final
	Transient
	Volatile
	Abstract
	Synchronized
	Native
)

var modifierOrder = []string{
	"public", "protected", "private", "abstract", "static", "final",
	"transient", "volatile", "synchronized", "native",
}

var modifierNames = map[string]Modifier{
	"public":       Public,
	"protected":    Protected,
	"private":      Private,
	"static":       Static,
	"final":        Final,
	"transient":    Transient,
	"volatile":     Volatile,
	"abstract":     Abstract,
	"synchronized": Synchronized,
	"native":       Native,
}

// ParseModifier returns the modifier for a keyword, or 0 if the keyword is
// not a modifier the model tracks.
func ParseModifier(keyword string) Modifier {
	return modifierNames[keyword]
}

// Modifiers is the set of modifiers declared on a field or method.
type Modifiers struct {
	bits Modifier
}

// NewModifiers returns a set holding the given modifiers.
func NewModifiers(mods ...Modifier) *Modifiers {
	m := &Modifiers{}
	for _, mod := range mods {
		m.bits |= mod
	}
	return m
}

// Add includes mod in the set.
func (m *Modifiers) Add(mod Modifier) {
	m.bits |= mod
}

// Has reports whether mod is in the set. A nil set has no modifiers.
func (m *Modifiers) Has(mod Modifier) bool {
	return m != nil && m.bits&mod != 0
}

// String renders the set as Java keywords in canonical order. A nil set
// renders as "<unknown>".
func (m *Modifiers) String() string {
	if m == nil {
		return "<unknown>"
	}
	var out []string
	for _, name := range modifierOrder {
		if m.bits&modifierNames[name] != 0 {
			out = append(out, name)
		}
	}
	return strings.Join(out, " ")
}

// Annotation is a declaration annotation with its string values.
// @SuppressWarnings({"a", "b"}) has Name "SuppressWarnings" and Values [a b].
type Annotation struct {
	Name   string
	Values []string
}

// ClassKind distinguishes ordinary classes from records.
type ClassKind uint8

const (
	ClassKindClass ClassKind = iota
	ClassKindRecord
)

// Class is a named type with its declared members. For records, the
// components are modelled as private final fields.
type Class struct {
	Name        string
	Kind        ClassKind
	Outer       *Class
	Fields      []*Field
	Methods     []*Method
	Nested      []*Class
	Annotations []Annotation
	Pos         Pos
}

// QualifiedName returns the dotted name through the outer classes.
func (c *Class) QualifiedName() string {
	if c.Outer == nil {
		return c.Name
	}
	return c.Outer.QualifiedName() + "." + c.Name
}

// Field is a field declaration. Modifiers is nil when the host could not
// determine them.
type Field struct {
	Name        string
	Type        string
	Modifiers   *Modifiers
	Initializer *Node
	Annotations []Annotation
	NamePos     Pos
	Class       *Class
}

// Param is a method parameter.
type Param struct {
	Name string
	Type string
}

// Method is a method declaration. Class is nil for a method with no
// enclosing class.
type Method struct {
	Name        string
	ReturnType  string
	Params      []Param
	Modifiers   *Modifiers
	Body        *Node
	Annotations []Annotation
	NamePos     Pos
	Class       *Class
}

// Declaration is a *Class, *Field or *Method.
type Declaration interface {
	declaration()
}

func (*Class) declaration()  {}
func (*Field) declaration()  {}
func (*Method) declaration() {}

// File is a parsed source file.
type File struct {
	Path    string
	Classes []*Class // top-level classes, in source order
	Errors  int      // syntax error nodes seen while parsing
}

// AllClasses returns every class in the file, outer classes before their
// nested classes.
func (f *File) AllClasses() []*Class {
	var out []*Class
	var walk func(cs []*Class)
	walk = func(cs []*Class) {
		for _, c := range cs {
			out = append(out, c)
			walk(c.Nested)
		}
	}
	walk(f.Classes)
	return out
}
