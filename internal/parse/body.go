package parse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/eqfields/internal/lang"
	"github.com/phobologic/eqfields/internal/model"
)

// typeNodes never contain references in expression position.
var typeNodes = map[string]struct{}{
	"type_identifier":        {},
	"scoped_type_identifier": {},
	"generic_type":           {},
	"array_type":             {},
	"integral_type":          {},
	"floating_point_type":    {},
	"boolean_type":           {},
	"void_type":              {},
	"type_arguments":         {},
	"type_parameters":        {},
	"dimensions":             {},
	"annotated_type":         {},
	"scoped_identifier":      {},
	"modifiers":              {},
	"annotation":             {},
	"marker_annotation":      {},
	"formal_parameters":      {},
	"formal_parameter":       {},
	"spread_parameter":       {},
	"inferred_parameters":    {},
	"catch_formal_parameter": {},
	"type_pattern":           {},
	"record_pattern":         {},
	"break_statement":        {},
	"continue_statement":     {},
}

// scope is one lexical level of a body. A class scope marks the body of
// an anonymous or local class: its members hide the enclosing locals.
type scope struct {
	vars  map[string]string // name -> declared type ("" when unknown)
	class *model.Class
}

// bodyBuilder converts a method body into model nodes. Identifiers become
// references only in expression position. Local bindings are tracked in
// lexical scopes as the body is walked, so a name is local only where its
// declaration is visible.
type bodyBuilder struct {
	*fileBuilder
	class  *model.Class
	scopes []scope
}

func (b *bodyBuilder) push() {
	b.scopes = append(b.scopes, scope{})
}

func (b *bodyBuilder) pop() {
	b.scopes = b.scopes[:len(b.scopes)-1]
}

// bind declares name in the innermost scope.
func (b *bodyBuilder) bind(name *sitter.Node, typ string) {
	if name == nil || name.Type() != "identifier" || len(b.scopes) == 0 {
		return
	}
	s := &b.scopes[len(b.scopes)-1]
	if s.vars == nil {
		s.vars = make(map[string]string)
	}
	s.vars[b.text(name)] = typ
}

// local reports whether name refers to a local binding at this point, and
// the binding's declared type.
func (b *bodyBuilder) local(name string) (string, bool) {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		s := b.scopes[i]
		if t, ok := s.vars[name]; ok {
			return t, true
		}
		if s.class != nil && declaresField(s.class, name) {
			return "", false
		}
	}
	return "", false
}

func declaresField(c *model.Class, name string) bool {
	for _, f := range c.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// bindParams declares method or lambda parameters in the innermost scope.
func (b *bodyBuilder) bindParams(params *sitter.Node) {
	if params == nil {
		return
	}
	if params.Type() == "identifier" {
		b.bind(params, "")
		return
	}
	for _, p := range lang.NamedChildren(params) {
		switch p.Type() {
		case "identifier":
			b.bind(p, "")
		case "formal_parameter":
			b.bind(p.ChildByFieldName("name"), simpleTypeName(b.text(p.ChildByFieldName("type"))))
		case "spread_parameter":
			name, _ := b.spreadParamNode(p)
			b.bind(name, "")
		}
	}
}

// bindPattern declares the variables a type or record pattern introduces.
// Pattern variables are placed in the innermost scope, which keeps them
// visible after "if (!(o instanceof T t)) return".
func (b *bodyBuilder) bindPattern(n *sitter.Node) {
	switch n.Type() {
	case "type_pattern", "record_pattern_component":
		kids := lang.NamedChildren(n)
		if len(kids) >= 2 {
			b.bind(kids[len(kids)-1], simpleTypeName(b.text(kids[0])))
		}
	case "record_pattern", "record_pattern_body", "pattern":
		for _, c := range lang.NamedChildren(n) {
			b.bindPattern(c)
		}
	}
}

func (b *bodyBuilder) node(kind model.NodeKind, n *sitter.Node, children ...*model.Node) *model.Node {
	out := &model.Node{Kind: kind, Pos: b.pos(n)}
	for _, c := range children {
		if c != nil {
			out.Children = append(out.Children, c)
		}
	}
	return out
}

func (b *bodyBuilder) ref(kind model.RefKind, name *sitter.Node) *model.Reference {
	return &model.Reference{
		Kind: kind,
		Name: b.text(name),
		From: b.class,
		Pos:  b.pos(name),
	}
}

func (b *bodyBuilder) buildAll(nodes []*sitter.Node) []*model.Node {
	var out []*model.Node
	for _, n := range nodes {
		if c := b.build(n); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (b *bodyBuilder) build(n *sitter.Node) *model.Node {
	if n == nil || lang.IsComment(n) {
		return nil
	}
	typ := n.Type()
	if typ == "type_pattern" || typ == "record_pattern" {
		b.bindPattern(n)
		return nil
	}
	if _, skip := typeNodes[typ]; skip {
		return nil
	}
	if isLiteral(typ) {
		return b.node(model.KindLiteral, n)
	}

	switch typ {
	case "block":
		b.push()
		defer b.pop()
		return b.node(model.KindBlock, n, b.buildAll(lang.NamedChildren(n))...)

	case "for_statement", "switch_block_statement_group", "switch_rule":
		b.push()
		defer b.pop()
		return b.node(model.KindOther, n, b.buildAll(lang.NamedChildren(n))...)

	case "return_statement":
		return b.node(model.KindReturn, n, b.buildAll(lang.NamedChildren(n))...)

	case "this":
		return b.node(model.KindThis, n)

	case "identifier":
		out := b.node(model.KindName, n)
		out.Ref = b.ref(model.RefName, n)
		_, out.Ref.Local = b.local(out.Ref.Name)
		return out

	case "field_access":
		field := n.ChildByFieldName("field")
		obj := n.ChildByFieldName("object")
		if field == nil || field.Type() == "this" {
			// Outer.this
			return b.node(model.KindThis, n)
		}
		out := b.node(model.KindFieldAccess, n, b.build(obj))
		out.Ref = b.ref(model.RefField, field)
		out.Ref.Qualifier, out.Ref.TypeName = b.qualifier(obj)
		return out

	case "method_invocation":
		name := n.ChildByFieldName("name")
		obj := n.ChildByFieldName("object")
		args := lang.NamedChildren(n.ChildByFieldName("arguments"))
		out := b.node(model.KindCall, n, b.build(obj))
		out.Children = append(out.Children, b.buildAll(args)...)
		if name != nil {
			out.Ref = b.ref(model.RefCall, name)
			out.Ref.Args = len(args)
			out.Ref.Qualifier, out.Ref.TypeName = b.qualifier(obj)
		}
		return out

	case "method_reference":
		return b.methodReference(n)

	case "lambda_expression":
		b.push()
		defer b.pop()
		b.bindParams(n.ChildByFieldName("parameters"))
		return b.node(model.KindOther, n, b.build(n.ChildByFieldName("body")))

	case "local_variable_declaration":
		typ := simpleTypeName(b.text(n.ChildByFieldName("type")))
		var values []*model.Node
		for _, d := range lang.NamedChildren(n) {
			if d.Type() != "variable_declarator" {
				continue
			}
			t := typ
			if t == "var" {
				t = b.inferType(d.ChildByFieldName("value"))
			}
			// the scope of a local starts at its own initializer
			b.bind(d.ChildByFieldName("name"), t)
			values = append(values, b.build(d))
		}
		return b.node(model.KindOther, n, values...)

	case "field_declaration":
		var values []*model.Node
		for _, d := range lang.NamedChildren(n) {
			if d.Type() == "variable_declarator" {
				values = append(values, b.build(d))
			}
		}
		return b.node(model.KindOther, n, values...)

	case "variable_declarator":
		return b.node(model.KindOther, n, b.build(n.ChildByFieldName("value")))

	case "resource":
		if v := n.ChildByFieldName("value"); v != nil {
			t := simpleTypeName(b.text(n.ChildByFieldName("type")))
			if t == "var" {
				t = b.inferType(v)
			}
			b.bind(n.ChildByFieldName("name"), t)
			return b.node(model.KindOther, n, b.build(v))
		}

	case "try_with_resources_statement":
		b.push()
		kids := []*model.Node{
			b.build(n.ChildByFieldName("resources")),
			b.build(n.ChildByFieldName("body")),
		}
		b.pop()
		for _, c := range lang.NamedChildren(n) {
			switch c.Type() {
			case "catch_clause", "finally_clause":
				kids = append(kids, b.build(c))
			}
		}
		return b.node(model.KindOther, n, kids...)

	case "cast_expression":
		return b.node(model.KindOther, n, b.build(n.ChildByFieldName("value")))

	case "instanceof_expression":
		left := b.build(n.ChildByFieldName("left"))
		b.bind(n.ChildByFieldName("name"), simpleTypeName(b.text(n.ChildByFieldName("right"))))
		for _, c := range lang.NamedChildren(n) {
			b.bindPattern(c)
		}
		return b.node(model.KindOther, n, left)

	case "enhanced_for_statement":
		value := b.build(n.ChildByFieldName("value"))
		b.push()
		defer b.pop()
		b.bind(n.ChildByFieldName("name"), simpleTypeName(b.text(n.ChildByFieldName("type"))))
		return b.node(model.KindOther, n, value, b.build(n.ChildByFieldName("body")))

	case "catch_clause":
		b.push()
		defer b.pop()
		if p := childOfType(n, "catch_formal_parameter"); p != nil {
			b.bind(p.ChildByFieldName("name"), "")
		}
		return b.node(model.KindOther, n, b.build(n.ChildByFieldName("body")))

	case "labeled_statement":
		kids := lang.NamedChildren(n)
		if len(kids) > 0 && kids[0].Type() == "identifier" {
			kids = kids[1:]
		}
		return b.node(model.KindOther, n, b.buildAll(kids)...)

	case "object_creation_expression":
		var kids []*model.Node
		for _, c := range lang.NamedChildren(n) {
			switch c.Type() {
			case "argument_list":
				kids = append(kids, b.build(c))
			case "class_body":
				kids = append(kids, b.classBody(b.innerClass(c), c))
			}
		}
		return b.node(model.KindOther, n, kids...)

	case "class_body":
		// enum constant bodies
		return b.classBody(b.innerClass(n), n)

	case "class_declaration", "record_declaration", "enum_declaration", "interface_declaration":
		// local types: their members still count as part of the enclosing
		// method body
		body := n.ChildByFieldName("body")
		if body == nil {
			return nil
		}
		c := b.classes[keyOf(n)]
		if c == nil {
			c = b.innerClass(body)
		}
		return b.classBody(c, body)

	case "explicit_constructor_invocation":
		return b.node(model.KindOther, n, b.build(n.ChildByFieldName("arguments")))
	}

	return b.node(model.KindOther, n, b.buildAll(lang.NamedChildren(n))...)
}

// innerClass declares the members of an anonymous or undeclared local
// class body. The class is not part of the program.
func (b *bodyBuilder) innerClass(body *sitter.Node) *model.Class {
	c := &model.Class{Outer: b.class, Pos: b.pos(body)}
	for _, member := range classMembers(body) {
		switch member.Type() {
		case "field_declaration":
			b.declareFields(c, member)
		case "method_declaration":
			c.Methods = append(c.Methods, b.declareMethod(c, member))
		}
	}
	return c
}

// classBody builds the members of a class body nested in a method, with
// references resolved from c.
func (b *bodyBuilder) classBody(c *model.Class, body *sitter.Node) *model.Node {
	saved := b.class
	b.class = c
	b.scopes = append(b.scopes, scope{class: c})
	defer func() {
		b.class = saved
		b.pop()
	}()
	return b.node(model.KindOther, body, b.buildMembers(body)...)
}

func (b *bodyBuilder) buildMembers(body *sitter.Node) []*model.Node {
	var out []*model.Node
	for _, member := range classMembers(body) {
		switch member.Type() {
		case "method_declaration", "constructor_declaration", "compact_constructor_declaration":
			b.push()
			b.bindParams(member.ChildByFieldName("parameters"))
			out = append(out, b.build(member.ChildByFieldName("body")))
			b.pop()
		case "field_declaration", "block", "static_initializer",
			"class_declaration", "record_declaration", "enum_declaration", "interface_declaration":
			out = append(out, b.build(member))
		}
	}
	return out
}

// classMembers lists the member declarations of a class, enum or record
// body.
func classMembers(body *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, member := range lang.NamedChildren(body) {
		if member.Type() == "enum_body_declarations" {
			out = append(out, lang.NamedChildren(member)...)
			continue
		}
		out = append(out, member)
	}
	return out
}

func (b *bodyBuilder) methodReference(n *sitter.Node) *model.Node {
	kids := lang.NamedChildren(n)
	if len(kids) < 2 {
		return b.node(model.KindOther, n, b.buildAll(kids)...)
	}
	qual, name := kids[0], kids[len(kids)-1]
	if name.Type() != "identifier" {
		// Type::new
		return b.node(model.KindOther, n, b.build(qual))
	}

	out := b.node(model.KindMethodRef, n, b.build(qual))
	out.Ref = b.ref(model.RefMethodRef, name)
	out.Ref.Args = -1
	if _, isType := typeNodes[qual.Type()]; isType {
		out.Ref.Qualifier, out.Ref.TypeName = model.QualType, simpleTypeName(b.text(qual))
	} else {
		out.Ref.Qualifier, out.Ref.TypeName = b.qualifier(qual)
	}
	return out
}

// qualifier returns how a member access through obj is qualified. A nil
// obj is an unqualified access.
func (b *bodyBuilder) qualifier(obj *sitter.Node) (model.QualifierKind, string) {
	if obj == nil {
		return model.QualNone, ""
	}
	if obj.Type() == "this" {
		return model.QualThis, ""
	}
	if t := b.staticType(obj); t != "" {
		return model.QualType, t
	}
	return model.QualUnknown, ""
}

// staticType returns the simple type name of an expression when it can be
// determined without whole-program analysis.
func (b *bodyBuilder) staticType(n *sitter.Node) string {
	switch n.Type() {
	case "identifier":
		name := b.text(n)
		if t, ok := b.local(name); ok {
			return t
		}
		if f := b.fieldInScope(name); f != nil {
			return simpleTypeName(f.Type)
		}
		// a type name, as in Test.CONSTANT
		return name
	case "this":
		return b.class.Name
	case "parenthesized_expression":
		if kids := lang.NamedChildren(n); len(kids) == 1 {
			return b.staticType(kids[0])
		}
	case "cast_expression":
		return simpleTypeName(b.text(n.ChildByFieldName("type")))
	case "object_creation_expression":
		return simpleTypeName(b.text(n.ChildByFieldName("type")))
	case "field_access":
		obj := n.ChildByFieldName("object")
		field := n.ChildByFieldName("field")
		if field == nil || obj == nil {
			return ""
		}
		if field.Type() == "this" {
			return simpleTypeName(b.text(obj))
		}
		if obj.Type() == "this" {
			if f := b.fieldInScope(b.text(field)); f != nil {
				return simpleTypeName(f.Type)
			}
		}
	}
	return ""
}

func (b *bodyBuilder) fieldInScope(name string) *model.Field {
	for c := b.class; c != nil; c = c.Outer {
		for _, f := range c.Fields {
			if f.Name == name {
				return f
			}
		}
	}
	return nil
}

func (b *fileBuilder) spreadParamNode(p *sitter.Node) (*sitter.Node, *sitter.Node) {
	var name, typ *sitter.Node
	for _, child := range lang.NamedChildren(p) {
		switch child.Type() {
		case "modifiers":
		case "variable_declarator":
			name = child.ChildByFieldName("name")
		case "identifier":
			name = child
		default:
			if typ == nil {
				typ = child
			}
		}
	}
	return name, typ
}

// inferType handles "var x = (T) y" and "var x = new T()".
func (b *fileBuilder) inferType(value *sitter.Node) string {
	if value == nil {
		return ""
	}
	switch value.Type() {
	case "cast_expression", "object_creation_expression":
		return simpleTypeName(b.text(value.ChildByFieldName("type")))
	case "parenthesized_expression":
		if kids := lang.NamedChildren(value); len(kids) == 1 {
			return b.inferType(kids[0])
		}
	}
	return ""
}
