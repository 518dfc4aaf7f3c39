package toon

import (
	"strings"
	"testing"

	"github.com/phobologic/eqfields/internal/model"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"carriage return", "a\rb", `"a\rb"`},
		{"true keyword", "true", `"true"`},
		{"True keyword", "True", `"True"`},
		{"false keyword", "false", `"false"`},
		{"null keyword", "null", `"null"`},
		{"integer", "42", "42"},
		{"negative integer", "-1", "-1"},
		{"float", "3.14", "3.14"},
		{"zero", "0", "0"},
		{"leading zero invalid", "01", "01"},
		{"comma", "a,b", `"a,b"`},
		{"colon", "a:b", `"a:b"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"bracket", "a[b", `"a[b"`},
		{"brace", "a{b", `"a{b"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"path", "src/main/java/Foo.java", "src/main/java/Foo.java"},
		{"qualified name", "Outer.Inner", "Outer.Inner"},
		{"message with quotes", "Field 'a' is not used in 'equals()' method", "Field 'a' is not used in 'equals()' method"},
		{"message with parens only", "hashCode()", "hashCode()"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := encodeValue(tt.in)
			if got != tt.want {
				t.Errorf("encodeValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	r := &Report{
		Root: "shop",
		Findings: []model.Finding{
			{
				Pos:     model.Pos{File: "src/Order.java", Line: 3, Column: 17},
				Field:   "total",
				Method:  "equals",
				Message: "Field 'total' is not used in 'equals()' method",
			},
			{
				Pos:     model.Pos{File: "src/Order.java", Line: 3, Column: 17},
				Field:   "total",
				Method:  "hashCode",
				Message: "Field 'total' is not used in 'hashCode()' method",
			},
		},
	}

	got := Encode(r)

	lines := strings.Split(got, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), got)
	}
	if lines[0] != "root: shop" {
		t.Errorf("line 0: got %q", lines[0])
	}
	if lines[1] != "findings[2]{file,line,column,field,method,message}:" {
		t.Errorf("line 1: got %q", lines[1])
	}
	if lines[2] != "  src/Order.java,3,17,total,equals,Field 'total' is not used in 'equals()' method" {
		t.Errorf("line 2: got %q", lines[2])
	}
	if lines[3] != "  src/Order.java,3,17,total,hashCode,Field 'total' is not used in 'hashCode()' method" {
		t.Errorf("line 3: got %q", lines[3])
	}
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	got := Encode(&Report{Root: "empty"})
	if got != "root: empty\nfindings[0]{file,line,column,field,method,message}:" {
		t.Errorf("unexpected empty report:\n%s", got)
	}
}
