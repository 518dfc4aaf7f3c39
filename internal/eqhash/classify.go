package eqhash

import (
	"strings"

	"github.com/phobologic/eqfields/internal/model"
)

// IsEquals reports whether m overrides Object.equals.
func IsEquals(m *model.Method) bool {
	if m == nil || m.Name != "equals" || m.Modifiers.Has(model.Static) {
		return false
	}
	if len(m.Params) != 1 || !isObjectType(m.Params[0].Type) {
		return false
	}
	return m.ReturnType == "boolean"
}

// IsHashCode reports whether m overrides Object.hashCode.
func IsHashCode(m *model.Method) bool {
	if m == nil || m.Name != "hashCode" || m.Modifiers.Has(model.Static) {
		return false
	}
	return len(m.Params) == 0 && m.ReturnType == "int"
}

func isObjectType(t string) bool {
	t = strings.TrimSpace(t)
	return t == "Object" || t == "java.lang.Object"
}
