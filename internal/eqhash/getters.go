package eqhash

import (
	"unicode"
	"unicode/utf8"

	"github.com/phobologic/eqfields/internal/model"
)

func buildGetterIndex(prog model.Program, c *model.Class, required FieldSet) GetterIndex {
	idx := make(GetterIndex)
	if required.Len() == 0 {
		return idx
	}

	byName := make(map[string][]*model.Method)
	for _, m := range prog.MethodsOf(c) {
		if len(m.Params) == 0 && !m.Modifiers.Has(model.Static) {
			byName[m.Name] = append(byName[m.Name], m)
		}
	}

	for _, f := range required.Fields() {
		for _, name := range getterNames(f) {
			for _, m := range byName[name] {
				if returnsOnly(prog, m, f) {
					idx[m] = f
				}
			}
		}
	}
	return idx
}

// getterNames returns the accessor names a field may be exposed under.
func getterNames(f *model.Field) []string {
	if f.Name == "" {
		return nil
	}
	prop := beanCapitalize(f.Name)
	names := []string{"get" + prop}
	if f.Type == "boolean" {
		names = append(names, "is"+prop)
	}
	if f.Class != nil && f.Class.Kind == model.ClassKindRecord {
		names = append(names, f.Name)
	}
	return names
}

// beanCapitalize follows the JavaBeans rule: names whose second letter is
// upper case keep their first letter as is ("xPos" -> "xPos").
func beanCapitalize(name string) string {
	first, size := utf8.DecodeRuneInString(name)
	if size < len(name) {
		second, _ := utf8.DecodeRuneInString(name[size:])
		if unicode.IsUpper(second) {
			return name
		}
	}
	return string(unicode.ToUpper(first)) + name[size:]
}

// returnsOnly reports whether m's body is exactly "return f;".
func returnsOnly(prog model.Program, m *model.Method, f *model.Field) bool {
	body := m.Body
	if body == nil || body.Kind != model.KindBlock || len(body.Children) != 1 {
		return false
	}
	ret := body.Children[0]
	if ret.Kind != model.KindReturn || len(ret.Children) != 1 {
		return false
	}
	expr := ret.Children[0]
	if expr.Kind != model.KindName && expr.Kind != model.KindFieldAccess {
		return false
	}
	if expr.Kind == model.KindFieldAccess && expr.Ref.Qualifier != model.QualThis {
		return false
	}
	return prog.Resolve(expr.Ref).Field == f
}
