package model

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModifiers(t *testing.T) {
	t.Parallel()

	var unknown *Modifiers
	assert.False(t, unknown.Has(Static))
	assert.Equal(t, "<unknown>", unknown.String())

	m := NewModifiers(Private, Final)
	assert.True(t, m.Has(Private))
	assert.True(t, m.Has(Final))
	assert.False(t, m.Has(Static))
	m.Add(ParseModifier("static"))
	assert.True(t, m.Has(Static))
	assert.Equal(t, "private static final", m.String())

	assert.Zero(t, ParseModifier("default"))
	assert.Equal(t, "", NewModifiers().String())
}

func TestQualifiedName(t *testing.T) {
	t.Parallel()
	outer := &Class{Name: "Outer"}
	inner := &Class{Name: "Inner", Outer: outer}
	deepest := &Class{Name: "Deepest", Outer: inner}
	assert.Equal(t, "Outer", outer.QualifiedName())
	assert.Equal(t, "Outer.Inner.Deepest", deepest.QualifiedName())
}

func TestAllClasses(t *testing.T) {
	t.Parallel()
	b := &Class{Name: "B"}
	a := &Class{Name: "A", Nested: []*Class{b}}
	c := &Class{Name: "C"}
	f := &File{Classes: []*Class{a, c}}

	var names []string
	for _, cl := range f.AllClasses() {
		names = append(names, cl.Name)
	}
	assert.Equal(t, []string{"A", "B", "C"}, names)
}

func TestWalk(t *testing.T) {
	t.Parallel()
	tree := &Node{Kind: KindBlock, Children: []*Node{
		{Kind: KindReturn, Children: []*Node{{Kind: KindName}}},
		{Kind: KindOther, Children: []*Node{{Kind: KindLiteral}}},
	}}

	var seen []string
	Walk(tree, func(n *Node) bool {
		seen = append(seen, n.Kind.String())
		return n.Kind != KindOther
	})
	assert.Equal(t, []string{"block", "return", "name", "other"}, seen)

	Walk(nil, func(*Node) bool {
		t.Fatal("visited nil node")
		return true
	})
}

func TestNodeKindString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "field_access", KindFieldAccess.String())
	assert.Equal(t, "unknown", NodeKind(200).String())
}

func TestCollectorSorted(t *testing.T) {
	t.Parallel()
	var c Collector
	var wg sync.WaitGroup
	in := []Finding{
		{Pos: Pos{File: "b.java", Line: 1, Column: 1}, Method: "equals"},
		{Pos: Pos{File: "a.java", Line: 4, Column: 9}, Method: "hashCode"},
		{Pos: Pos{File: "a.java", Line: 4, Column: 9}, Method: "equals"},
		{Pos: Pos{File: "a.java", Line: 2, Column: 3}, Method: "equals"},
	}
	for _, f := range in {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Report(f)
		}()
	}
	wg.Wait()

	got := c.Findings()
	require.Len(t, got, 4)
	assert.Equal(t, Pos{File: "a.java", Line: 2, Column: 3}, got[0].Pos)
	assert.Equal(t, "equals", got[1].Method)
	assert.Equal(t, "hashCode", got[2].Method)
	assert.Equal(t, "b.java", got[3].Pos.File)
}
