package model

// NodeKind classifies a body node.
type NodeKind uint8

const (
	KindOther NodeKind = iota
	KindBlock
	KindReturn
	KindName        // unqualified identifier in expression position
	KindFieldAccess // obj.name
	KindCall        // [obj.]name(args)
	KindMethodRef   // obj::name
	KindLiteral
	KindThis
)

var kindNames = [...]string{
	KindOther:       "other",
	KindBlock:       "block",
	KindReturn:      "return",
	KindName:        "name",
	KindFieldAccess: "field_access",
	KindCall:        "call",
	KindMethodRef:   "method_ref",
	KindLiteral:     "literal",
	KindThis:        "this",
}

func (k NodeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Node is a statement or expression in a method body or initializer.
// Ref is set for KindName, KindFieldAccess, KindCall and KindMethodRef.
type Node struct {
	Kind     NodeKind
	Ref      *Reference
	Children []*Node
	Pos      Pos
}

// Walk calls fn for n and every node below it, depth first. Walk stops
// descending into a subtree when fn returns false for its root.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// RefKind is the syntactic shape of a reference.
type RefKind uint8

const (
	RefName RefKind = iota
	RefField
	RefCall
	RefMethodRef
)

// QualifierKind describes what a reference is qualified by.
type QualifierKind uint8

const (
	// QualNone is an unqualified name, looked up through the enclosing classes.
	QualNone QualifierKind = iota
	// QualThis is this.name.
	QualThis
	// QualType is qualified by an expression or type whose static type
	// name is known (Reference.TypeName).
	QualType
	// QualUnknown is qualified by something whose type cannot be determined.
	QualUnknown
)

// Reference is a name in expression position, before resolution.
type Reference struct {
	Kind      RefKind
	Name      string
	Args      int // argument count for RefCall; -1 for RefMethodRef
	Local     bool
	Qualifier QualifierKind
	TypeName  string
	From      *Class // lexically enclosing class
	Pos       Pos
}

// Symbol is what a reference resolves to. Exactly one of Field and Method
// is set, or neither when the reference names something else.
type Symbol struct {
	Field  *Field
	Method *Method
}
