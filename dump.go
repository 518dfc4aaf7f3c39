package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/phobologic/eqfields/internal/eqhash"
	"github.com/phobologic/eqfields/internal/lang"
	"github.com/phobologic/eqfields/internal/model"
	"github.com/phobologic/eqfields/internal/parse"
)

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func newDumpCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <file.java>",
		Short: "Print the class model parsed from a Java file",
		Long: `Parse one Java file and print its classes, fields and methods along with
the fields the analyzer requires equals() and hashCode() to use and the
getters it accepts for them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd.Context(), args[0], stdout)
		},
	}
}

type classView struct {
	Name        string
	Kind        string
	Line        int
	Annotations []string
	Fields      []fieldView
	Methods     []methodView
	Required    []string
	Getters     map[string]string // method -> field
}

type fieldView struct {
	Name        string
	Type        string
	Modifiers   string
	Line        int
	Annotations []string
}

type methodView struct {
	Signature string
	Modifiers string
	Line      int
	Role      string
}

func runDump(ctx context.Context, path string, w io.Writer) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	query, err := lang.Java.GetClassQuery()
	if err != nil {
		return fmt.Errorf("java query: %w", err)
	}
	f, err := parse.ParseFile(ctx, lang.Java.NewParser(), query, source, path)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	prog := parse.NewProgram()
	prog.Add(f)
	a := eqhash.New(prog)

	views := make([]classView, 0, len(f.AllClasses()))
	for _, c := range f.AllClasses() {
		views = append(views, viewClass(a, c))
	}
	if f.Errors > 0 {
		_, _ = fmt.Fprintf(w, "// %s: %d syntax errors\n", path, f.Errors)
	}
	dumpConfig.Fdump(w, views)
	return nil
}

func viewClass(a *eqhash.Analyzer, c *model.Class) classView {
	v := classView{
		Name:        c.QualifiedName(),
		Kind:        "class",
		Line:        c.Pos.Line,
		Annotations: annotationNames(c.Annotations),
		Getters:     map[string]string{},
	}
	if c.Kind == model.ClassKindRecord {
		v.Kind = "record"
	}
	for _, fd := range c.Fields {
		v.Fields = append(v.Fields, fieldView{
			Name:        fd.Name,
			Type:        fd.Type,
			Modifiers:   fd.Modifiers.String(),
			Line:        fd.NamePos.Line,
			Annotations: annotationNames(fd.Annotations),
		})
	}
	for _, m := range c.Methods {
		mv := methodView{
			Signature: signature(m),
			Modifiers: m.Modifiers.String(),
			Line:      m.NamePos.Line,
		}
		switch {
		case eqhash.IsEquals(m):
			mv.Role = "equals"
		case eqhash.IsHashCode(m):
			mv.Role = "hashCode"
		}
		v.Methods = append(v.Methods, mv)
	}
	for _, fd := range a.RequiredFields(c).Fields() {
		v.Required = append(v.Required, fd.Name)
	}
	for m, fd := range a.Getters(c) {
		v.Getters[m.Name] = fd.Name
	}
	return v
}

func signature(m *model.Method) string {
	s := m.ReturnType + " " + m.Name + "("
	for i, p := range m.Params {
		if i > 0 {
			s += ", "
		}
		s += p.Type + " " + p.Name
	}
	return s + ")"
}

func annotationNames(anns []model.Annotation) []string {
	var out []string
	for _, a := range anns {
		out = append(out, "@"+a.Name)
	}
	return out
}
