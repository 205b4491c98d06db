package querydb

// Apply commits an Index Update (spec §4.6) to the database. Def events
// are last-writer-wins per the Owner that asserted them: a remove only
// takes effect if the entry's current owner matches the file asserting
// the remove, so a stale update from a file that has since been
// superseded by a fresher reindex of the same symbol can't clobber it.
func (d *Database) Apply(u *Update) {
	for id, ev := range u.TypeDefs {
		applyDef(&d.types[id].def, ev)
	}
	for id, ev := range u.FuncDefs {
		applyDef(&d.funcs[id].def, ev)
	}
	for id, ev := range u.VarDefs {
		applyDef(&d.vars[id].def, ev)
	}

	applySet(d.typeUses, u.TypeUses)
	applySet(d.funcUses, u.FuncUses)
	applySet(d.varUses, u.VarUses)
	applySet(d.typeParents, u.TypeParents)
	applySet(d.typeDerived, u.TypeDerived)
	applySet(d.typeInstances, u.TypeInstances)
	applySet(d.typeDeclares, u.TypeDeclares)
	applySet(d.funcBase, u.FuncBase)
	applySet(d.funcCallers, u.FuncCallers)
	applySet(d.funcCallees, u.FuncCallees)
}

func applyDef(slot **def, ev DefEvent) {
	if ev.Present {
		*slot = &def{spelling: ev.Def, owner: ev.Owner}
		return
	}
	if *slot != nil && (*slot).owner == ev.Owner {
		*slot = nil
	}
}

func applySet[K comparable](live map[K]struct{}, events map[K]bool) {
	for k, add := range events {
		if add {
			live[k] = struct{}{}
		} else {
			delete(live, k)
		}
	}
}
