package eqhash

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/eqfields/internal/model"
)

// fakeProgram is a host with hand-built classes. References resolve by
// direct pointer, set on the Reference via the symbols map.
type fakeProgram struct {
	mods       uint64
	symbols    map[*model.Reference]model.Symbol
	suppressed map[model.Declaration]bool
	fieldCalls int
	mu         sync.Mutex
}

func newFake() *fakeProgram {
	return &fakeProgram{
		symbols:    make(map[*model.Reference]model.Symbol),
		suppressed: make(map[model.Declaration]bool),
	}
}

func (p *fakeProgram) FieldsOf(c *model.Class) []*model.Field {
	p.mu.Lock()
	p.fieldCalls++
	p.mu.Unlock()
	return c.Fields
}

func (p *fakeProgram) MethodsOf(c *model.Class) []*model.Method { return c.Methods }

func (p *fakeProgram) Resolve(ref *model.Reference) model.Symbol { return p.symbols[ref] }

func (p *fakeProgram) ModificationCount() uint64 { return p.mods }

func (p *fakeProgram) IsSuppressed(d model.Declaration, _ string) bool { return p.suppressed[d] }

func (p *fakeProgram) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fieldCalls
}

// refTo returns a name node resolving to sym.
func (p *fakeProgram) refTo(sym model.Symbol) *model.Node {
	ref := &model.Reference{Kind: model.RefName}
	p.symbols[ref] = sym
	return &model.Node{Kind: model.KindName, Ref: ref}
}

func block(children ...*model.Node) *model.Node {
	return &model.Node{Kind: model.KindBlock, Children: children}
}

func ret(expr *model.Node) *model.Node {
	return &model.Node{Kind: model.KindReturn, Children: []*model.Node{expr}}
}

func addField(c *model.Class, name string, mods *model.Modifiers) *model.Field {
	f := &model.Field{Name: name, Type: "int", Modifiers: mods, Class: c}
	c.Fields = append(c.Fields, f)
	return f
}

func addEquals(c *model.Class, body *model.Node) *model.Method {
	m := &model.Method{
		Name:       "equals",
		ReturnType: "boolean",
		Params:     []model.Param{{Name: "o", Type: "Object"}},
		Modifiers:  model.NewModifiers(model.Public),
		Body:       body,
		Class:      c,
	}
	c.Methods = append(c.Methods, m)
	return m
}

func addHashCode(c *model.Class, body *model.Node) *model.Method {
	m := &model.Method{
		Name:       "hashCode",
		ReturnType: "int",
		Modifiers:  model.NewModifiers(model.Public),
		Body:       body,
		Class:      c,
	}
	c.Methods = append(c.Methods, m)
	return m
}

func visit(a *Analyzer, methods ...*model.Method) []model.Finding {
	var sink model.Collector
	for _, m := range methods {
		a.VisitMethod(m, &sink)
	}
	return sink.Findings()
}

func TestIsEqualsIsHashCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		method   model.Method
		equals   bool
		hashCode bool
	}{
		{"equals", model.Method{Name: "equals", ReturnType: "boolean", Params: []model.Param{{Type: "Object"}}}, true, false},
		{"qualified object", model.Method{Name: "equals", ReturnType: "boolean", Params: []model.Param{{Type: "java.lang.Object"}}}, true, false},
		{"overload", model.Method{Name: "equals", ReturnType: "boolean", Params: []model.Param{{Type: "Test"}}}, false, false},
		{"two params", model.Method{Name: "equals", ReturnType: "boolean", Params: []model.Param{{Type: "Object"}, {Type: "Object"}}}, false, false},
		{"wrong return", model.Method{Name: "equals", ReturnType: "Boolean", Params: []model.Param{{Type: "Object"}}}, false, false},
		{"static equals", model.Method{Name: "equals", ReturnType: "boolean", Params: []model.Param{{Type: "Object"}}, Modifiers: model.NewModifiers(model.Static)}, false, false},
		{"hashCode", model.Method{Name: "hashCode", ReturnType: "int"}, false, true},
		{"hashCode long", model.Method{Name: "hashCode", ReturnType: "long"}, false, false},
		{"hashCode param", model.Method{Name: "hashCode", ReturnType: "int", Params: []model.Param{{Type: "int"}}}, false, false},
		{"other", model.Method{Name: "someMethod", ReturnType: "boolean", Params: []model.Param{{Type: "Object"}}}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.equals, IsEquals(&tt.method))
			assert.Equal(t, tt.hashCode, IsHashCode(&tt.method))
		})
	}

	assert.False(t, IsEquals(nil))
	assert.False(t, IsHashCode(nil))
}

func TestRequiredFields(t *testing.T) {
	t.Parallel()
	prog := newFake()
	c := &model.Class{Name: "Test"}

	plain := addField(c, "plain", model.NewModifiers(model.Private))
	addField(c, "trans", model.NewModifiers(model.Transient))
	addField(c, "stat", model.NewModifiers(model.Static))
	constant := addField(c, "constant", model.NewModifiers(model.Final))
	constant.Initializer = &model.Node{Kind: model.KindLiteral}
	computed := addField(c, "computed", model.NewModifiers(model.Final))
	computed.Initializer = &model.Node{Kind: model.KindOther}
	ctorSet := addField(c, "ctorSet", model.NewModifiers(model.Final))
	nonFinalLiteral := addField(c, "nonFinalLiteral", model.NewModifiers())
	nonFinalLiteral.Initializer = &model.Node{Kind: model.KindLiteral}
	unknown := addField(c, "unknown", nil)

	a := New(prog)
	got := a.RequiredFields(c)
	assert.Equal(t, []*model.Field{plain, computed, ctorSet, nonFinalLiteral, unknown}, got.Fields())
	assert.True(t, got.Contains(unknown), "missing modifiers must fail open")
}

func TestRequiredFieldsCached(t *testing.T) {
	t.Parallel()
	prog := newFake()
	c := &model.Class{Name: "Test"}
	addField(c, "a", model.NewModifiers())

	a := New(prog)
	first := a.RequiredFields(c)
	second := a.RequiredFields(c)
	assert.Equal(t, first.Fields(), second.Fields())
	assert.Equal(t, 1, prog.calls())

	// a structural change invalidates the cache
	addField(c, "b", model.NewModifiers())
	prog.mods++
	third := a.RequiredFields(c)
	assert.Equal(t, 2, prog.calls())
	assert.Equal(t, 2, third.Len())
}

func TestModificationPurgesStaleEntries(t *testing.T) {
	t.Parallel()
	prog := newFake()
	a := New(prog)

	var classes []*model.Class
	for _, name := range []string{"A", "B", "C"} {
		c := &model.Class{Name: name}
		addField(c, "x", model.NewModifiers())
		classes = append(classes, c)
		a.Getters(c)
	}
	assert.Equal(t, 3, a.required.Len())
	assert.Equal(t, 3, a.getters.Len())

	// B and C are gone; only A is analyzed again
	prog.mods++
	a.RequiredFields(classes[0])
	assert.Equal(t, 1, a.required.Len())
	assert.Equal(t, 0, a.getters.Len())

	a.Getters(classes[0])
	assert.Equal(t, 1, a.getters.Len())
}

func TestGetterIndex(t *testing.T) {
	t.Parallel()
	prog := newFake()
	c := &model.Class{Name: "Test"}
	count := addField(c, "count", model.NewModifiers(model.Private))
	flag := addField(c, "applied", model.NewModifiers(model.Private))
	flag.Type = "boolean"
	xPos := addField(c, "xPos", model.NewModifiers(model.Private))
	noGetter := addField(c, "other", model.NewModifiers(model.Private))

	getCount := &model.Method{Name: "getCount", Body: block(ret(prog.refTo(model.Symbol{Field: count}))), Class: c}
	isApplied := &model.Method{Name: "isApplied", Body: block(ret(prog.refTo(model.Symbol{Field: flag}))), Class: c}
	getxPos := &model.Method{Name: "getxPos", Body: block(ret(prog.refTo(model.Symbol{Field: xPos}))), Class: c}
	// wrong field returned
	getOther := &model.Method{Name: "getOther", Body: block(ret(prog.refTo(model.Symbol{Field: count}))), Class: c}
	// not a simple return
	sideEffect := &model.Method{Name: "getCount", Params: []model.Param{{Name: "x", Type: "int"}}, Class: c}
	c.Methods = []*model.Method{getCount, isApplied, getxPos, getOther, sideEffect}

	idx := New(prog).Getters(c)
	assert.Equal(t, GetterIndex{getCount: count, isApplied: flag, getxPos: xPos}, idx)
	_, ok := idx[getOther]
	assert.False(t, ok)
	for _, f := range idx {
		assert.NotSame(t, noGetter, f)
	}
}

func TestBeanCapitalize(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"name", "Name"},
		{"i", "I"},
		{"xPos", "xPos"},
		{"URL", "URL"},
		{"émile", "Émile"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, beanCapitalize(tt.in), tt.in)
	}
}

func TestVisitReportsIgnoredFields(t *testing.T) {
	t.Parallel()
	prog := newFake()
	c := &model.Class{Name: "Test"}
	used := addField(c, "used", model.NewModifiers())
	ignored := addField(c, "ignored", model.NewModifiers())
	ignored.NamePos = model.Pos{File: "Test.java", Line: 3, Column: 9}

	eq := addEquals(c, block(ret(prog.refTo(model.Symbol{Field: used}))))
	hc := addHashCode(c, block(ret(&model.Node{Kind: model.KindLiteral})))

	got := visit(New(prog), eq, hc)
	require.Len(t, got, 3)

	assert.Equal(t, model.Finding{
		Rule:     RuleID,
		Severity: model.Warning,
		Pos:      ignored.NamePos,
		Class:    "Test",
		Field:    "ignored",
		Method:   "equals",
		Message:  "Field 'ignored' is not used in 'equals()' method",
	}, got[1])
	assert.Equal(t, "hashCode", got[2].Method)
	assert.Equal(t, "ignored", got[2].Field)
	assert.Equal(t, "used", got[0].Field)
	assert.Equal(t, "hashCode", got[0].Method)
}

func TestVisitGetterCountsAsUsage(t *testing.T) {
	t.Parallel()
	prog := newFake()
	c := &model.Class{Name: "Test"}
	f := addField(c, "value", model.NewModifiers(model.Private))
	getter := &model.Method{Name: "getValue", Body: block(ret(prog.refTo(model.Symbol{Field: f}))), Class: c}
	c.Methods = append(c.Methods, getter)

	call := &model.Node{Kind: model.KindCall}
	call.Ref = &model.Reference{Kind: model.RefCall, Name: "getValue"}
	prog.symbols[call.Ref] = model.Symbol{Method: getter}

	// nested deep inside other expressions
	body := block(ret(&model.Node{Children: []*model.Node{{Children: []*model.Node{call}}}}))
	hc := addHashCode(c, body)

	assert.Empty(t, visit(New(prog), hc))
}

func TestVisitNoOps(t *testing.T) {
	t.Parallel()
	prog := newFake()

	noFields := &model.Class{Name: "Empty"}
	eq := addEquals(noFields, block())

	c := &model.Class{Name: "Test"}
	addField(c, "a", model.NewModifiers())
	other := &model.Method{Name: "someMethod", ReturnType: "boolean", Params: []model.Param{{Type: "Object"}}, Class: c}
	c.Methods = append(c.Methods, other)

	floating := &model.Method{Name: "hashCode", ReturnType: "int"}

	assert.Empty(t, visit(New(prog), eq, other, floating))
}

func TestVisitSkipsUnnamedAndSuppressed(t *testing.T) {
	t.Parallel()
	prog := newFake()
	c := &model.Class{Name: "Test"}
	addField(c, "", model.NewModifiers())
	quiet := addField(c, "quiet", model.NewModifiers())
	prog.suppressed[quiet] = true
	addField(c, "loud", model.NewModifiers())
	hc := addHashCode(c, block())

	got := visit(New(prog), hc)
	require.Len(t, got, 1)
	assert.Equal(t, "loud", got[0].Field)
}

func TestOptions(t *testing.T) {
	t.Parallel()
	prog := newFake()
	c := &model.Class{Name: "Test"}
	addField(c, "a", model.NewModifiers())
	hc := addHashCode(c, block())

	a := New(prog, WithRuleID("CustomRule"), WithSeverity(model.Error), WithRuleID(""))
	assert.Equal(t, "CustomRule", a.RuleID())
	got := visit(a, hc)
	require.Len(t, got, 1)
	assert.Equal(t, "CustomRule", got[0].Rule)
	assert.Equal(t, model.Error, got[0].Severity)
}

func TestVisitIdempotentAndConcurrent(t *testing.T) {
	t.Parallel()
	prog := newFake()
	c := &model.Class{Name: "Test"}
	a1 := addField(c, "a", model.NewModifiers())
	addField(c, "b", model.NewModifiers())
	eq := addEquals(c, block(ret(prog.refTo(model.Symbol{Field: a1}))))
	hc := addHashCode(c, block())

	an := New(prog)
	want := visit(an, eq, hc)
	require.Len(t, want, 3)

	var wg sync.WaitGroup
	results := make([][]model.Finding, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = visit(an, eq, hc)
		}()
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}
