package eqhash

import "github.com/phobologic/eqfields/internal/model"

func collectRequired(fields []*model.Field) FieldSet {
	var required []*model.Field
	for _, f := range fields {
		if isRequired(f) {
			required = append(required, f)
		}
	}
	return newFieldSet(required)
}

// isRequired reports whether f can make two instances differ. Fields
// without modifier information are required.
func isRequired(f *model.Field) bool {
	mods := f.Modifiers
	if mods == nil {
		return true
	}
	if mods.Has(model.Transient) || mods.Has(model.Static) {
		return false
	}
	// final with a literal initializer is the same in every instance
	if mods.Has(model.Final) && f.Initializer != nil && f.Initializer.Kind == model.KindLiteral {
		return false
	}
	return true
}
