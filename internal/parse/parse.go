// Package parse builds the analyzer's program model from Java source using
// tree-sitter.
package parse

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/eqfields/internal/lang"
	"github.com/phobologic/eqfields/internal/model"
)

var classCaptures = map[string]model.ClassKind{
	"definition.class":  model.ClassKindClass,
	"definition.record": model.ClassKindRecord,
}

// ParseFile parses a Java source file into classes, fields and methods. The
// parser must be created for Java and must not be shared between goroutines.
// path is recorded on every position and should be repo-relative. Trees
// with syntax errors are still modelled; File.Errors counts the error nodes.
func ParseFile(ctx context.Context, parser *sitter.Parser, query *sitter.Query, source []byte, path string) (*model.File, error) {
	file := &model.File{Path: path}
	if len(source) == 0 {
		return file, nil
	}

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		file.Errors = countErrors(root)
	}

	b := &fileBuilder{
		src:     source,
		path:    path,
		classes: make(map[nodeKey]*model.Class),
	}
	decls := b.findClasses(query, root)

	// Headers first so bodies can look up fields of any class in the file.
	for _, d := range decls {
		b.declareClass(file, d)
	}
	for _, d := range decls {
		b.buildMembers(d)
	}
	return file, nil
}

type nodeKey struct {
	start, end uint32
}

func keyOf(n *sitter.Node) nodeKey {
	return nodeKey{n.StartByte(), n.EndByte()}
}

type classDecl struct {
	node *sitter.Node
	kind model.ClassKind
}

type fileBuilder struct {
	src     []byte
	path    string
	classes map[nodeKey]*model.Class
}

func (b *fileBuilder) findClasses(query *sitter.Query, root *sitter.Node) []classDecl {
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, root)

	var decls []classDecl
	seen := make(map[nodeKey]bool)
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, b.src)
		for _, c := range match.Captures {
			kind, ok := classCaptures[query.CaptureNameForId(c.Index)]
			if !ok || seen[keyOf(c.Node)] {
				continue
			}
			seen[keyOf(c.Node)] = true
			decls = append(decls, classDecl{node: c.Node, kind: kind})
		}
	}

	// Outer classes must be declared before the classes nested in them.
	sort.Slice(decls, func(i, j int) bool {
		return decls[i].node.StartByte() < decls[j].node.StartByte()
	})
	return decls
}

func (b *fileBuilder) pos(n *sitter.Node) model.Pos {
	p := n.StartPoint()
	return model.Pos{
		File:   b.path,
		Line:   int(p.Row) + 1,
		Column: int(p.Column) + 1,
		Offset: int(n.StartByte()),
	}
}

func (b *fileBuilder) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return lang.NodeText(n, b.src)
}

// declareClass creates the class with its fields and method headers and
// links it to its outer class.
func (b *fileBuilder) declareClass(file *model.File, d classDecl) {
	n := d.node
	c := &model.Class{Kind: d.kind, Pos: b.pos(n)}
	if name := n.ChildByFieldName("name"); name != nil {
		c.Name = b.text(name)
		c.Pos = b.pos(name)
	}
	c.Annotations = b.annotations(childOfType(n, "modifiers"))

	if outer := b.enclosingClass(n); outer != nil {
		c.Outer = outer
		outer.Nested = append(outer.Nested, c)
	} else {
		file.Classes = append(file.Classes, c)
	}
	b.classes[keyOf(n)] = c

	if d.kind == model.ClassKindRecord {
		b.declareComponents(c, n.ChildByFieldName("parameters"))
	}

	for _, member := range lang.NamedChildren(n.ChildByFieldName("body")) {
		switch member.Type() {
		case "field_declaration":
			b.declareFields(c, member)
		case "method_declaration":
			c.Methods = append(c.Methods, b.declareMethod(c, member))
		}
	}
}

func (b *fileBuilder) enclosingClass(n *sitter.Node) *model.Class {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "class_declaration", "record_declaration":
			return b.classes[keyOf(p)]
		}
	}
	return nil
}

func (b *fileBuilder) declareFields(c *model.Class, decl *sitter.Node) {
	mods := b.modifiers(childOfType(decl, "modifiers"))
	anns := b.annotations(childOfType(decl, "modifiers"))
	typ := typeText(b.text(decl.ChildByFieldName("type")))

	for _, d := range lang.NamedChildren(decl) {
		if d.Type() != "variable_declarator" {
			continue
		}
		f := &model.Field{
			Type:        typ,
			Modifiers:   mods,
			Annotations: anns,
			Class:       c,
		}
		if name := d.ChildByFieldName("name"); name != nil {
			f.Name = b.text(name)
			f.NamePos = b.pos(name)
		}
		if value := d.ChildByFieldName("value"); value != nil {
			kind := model.KindOther
			if isLiteral(value.Type()) {
				kind = model.KindLiteral
			}
			f.Initializer = &model.Node{Kind: kind, Pos: b.pos(value)}
		}
		c.Fields = append(c.Fields, f)
	}
}

func (b *fileBuilder) declareComponents(c *model.Class, params *sitter.Node) {
	for _, p := range lang.NamedChildren(params) {
		if p.Type() != "formal_parameter" {
			continue
		}
		f := &model.Field{
			Type:        typeText(b.text(p.ChildByFieldName("type"))),
			Modifiers:   model.NewModifiers(model.Private, model.Final),
			Annotations: b.annotations(childOfType(p, "modifiers")),
			Class:       c,
		}
		if name := p.ChildByFieldName("name"); name != nil {
			f.Name = b.text(name)
			f.NamePos = b.pos(name)
		}
		c.Fields = append(c.Fields, f)
	}
}

func (b *fileBuilder) declareMethod(c *model.Class, decl *sitter.Node) *model.Method {
	m := &model.Method{
		Modifiers:   b.modifiers(childOfType(decl, "modifiers")),
		Annotations: b.annotations(childOfType(decl, "modifiers")),
		Class:       c,
	}
	if name := decl.ChildByFieldName("name"); name != nil {
		m.Name = b.text(name)
		m.NamePos = b.pos(name)
	}
	if typ := decl.ChildByFieldName("type"); typ != nil {
		m.ReturnType = typeText(b.text(typ))
	}
	for _, p := range lang.NamedChildren(decl.ChildByFieldName("parameters")) {
		switch p.Type() {
		case "formal_parameter":
			param := model.Param{Type: typeText(b.text(p.ChildByFieldName("type")))}
			if name := p.ChildByFieldName("name"); name != nil {
				param.Name = b.text(name)
			}
			m.Params = append(m.Params, param)
		case "spread_parameter":
			name, typ := b.spreadParamNode(p)
			m.Params = append(m.Params, model.Param{Name: b.text(name), Type: typeText(b.text(typ)) + "..."})
		}
	}
	return m
}

// buildMembers fills in method bodies once every class in the file has been
// declared.
func (b *fileBuilder) buildMembers(d classDecl) {
	c := b.classes[keyOf(d.node)]
	i := 0
	for _, member := range lang.NamedChildren(d.node.ChildByFieldName("body")) {
		if member.Type() != "method_declaration" {
			continue
		}
		m := c.Methods[i]
		i++
		body := member.ChildByFieldName("body")
		if body == nil {
			continue
		}
		bb := &bodyBuilder{fileBuilder: b, class: c}
		bb.push()
		bb.bindParams(member.ChildByFieldName("parameters"))
		m.Body = bb.build(body)
	}
}

func (b *fileBuilder) modifiers(n *sitter.Node) *model.Modifiers {
	mods := model.NewModifiers()
	if n == nil {
		return mods
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.IsNamed() {
			continue
		}
		mods.Add(model.ParseModifier(child.Type()))
	}
	return mods
}

func (b *fileBuilder) annotations(n *sitter.Node) []model.Annotation {
	var anns []model.Annotation
	for _, child := range lang.NamedChildren(n) {
		switch child.Type() {
		case "annotation", "marker_annotation":
		default:
			continue
		}
		a := model.Annotation{}
		if name := child.ChildByFieldName("name"); name != nil {
			a.Name = b.text(name)
		}
		if args := child.ChildByFieldName("arguments"); args != nil {
			a.Values = b.stringValues(args)
		}
		anns = append(anns, a)
	}
	return anns
}

func (b *fileBuilder) stringValues(n *sitter.Node) []string {
	var out []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "string_literal" {
			out = append(out, unquote(b.text(n)))
			return
		}
		for _, child := range lang.NamedChildren(n) {
			walk(child)
		}
	}
	walk(n)
	return out
}

func unquote(s string) string {
	if v, err := strconv.Unquote(s); err == nil {
		return v
	}
	return strings.Trim(s, `"`)
}

func childOfType(n *sitter.Node, typ string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child.Type() == typ {
			return child
		}
	}
	return nil
}

func countErrors(n *sitter.Node) int {
	count := 0
	if n.Type() == "ERROR" || n.IsMissing() {
		count++
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		count += countErrors(n.Child(i))
	}
	return count
}

var literalTypes = map[string]struct{}{
	"decimal_integer_literal":        {},
	"hex_integer_literal":            {},
	"octal_integer_literal":          {},
	"binary_integer_literal":         {},
	"decimal_floating_point_literal": {},
	"hex_floating_point_literal":     {},
	"character_literal":              {},
	"string_literal":                 {},
	"text_block":                     {},
	"null_literal":                   {},
	"true":                           {},
	"false":                          {},
}

func isLiteral(nodeType string) bool {
	_, ok := literalTypes[nodeType]
	return ok
}

// typeText normalizes a type's source text: "Map< String, Integer >"
// becomes "Map<String,Integer>".
func typeText(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// simpleTypeName strips type arguments, array brackets and package
// qualifiers: "java.util.List<String>[]" becomes "List".
func simpleTypeName(s string) string {
	s = typeText(s)
	if i := strings.IndexAny(s, "<["); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	return s
}
