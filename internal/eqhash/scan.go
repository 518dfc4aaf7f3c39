package eqhash

import "github.com/phobologic/eqfields/internal/model"

// scan returns the required fields referenced anywhere in body.
func (a *Analyzer) scan(body *model.Node, required FieldSet, getters GetterIndex) map[*model.Field]struct{} {
	observed := make(map[*model.Field]struct{})
	if required.Len() == 0 {
		return observed
	}

	model.Walk(body, func(n *model.Node) bool {
		if n.Ref == nil {
			return true
		}
		sym := a.prog.Resolve(n.Ref)
		switch {
		case sym.Field != nil:
			if required.Contains(sym.Field) {
				observed[sym.Field] = struct{}{}
			}
		case sym.Method != nil:
			if f, ok := getters[sym.Method]; ok {
				observed[f] = struct{}{}
			}
		}
		return true
	})
	return observed
}
