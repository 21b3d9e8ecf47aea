package types

// Accepts reports whether a value of type candidate can be used where
// expected is expected. It is not symmetric: callers must always pass the
// expected type first.
//
// Acceptance may bind Variables found on either side. A failed acceptance can
// leave partial bindings behind; callers that need to try alternatives
// should Mark the arena first.
//
// Variables follow the lenient protocol: a bound Variable that is asked to
// accept a type its target does not accept grows its target into a Union
// of everything it accepted. Only the occurs check makes a Variable reject.
func (a *Arena) Accepts(expected, candidate Handle) bool {
	if expected == candidate {
		return true
	}
	if a.node(expected).kind == KindVariable {
		return a.acceptsWithVariable(expected, candidate)
	}
	candidate = a.Resolve(candidate)
	if expected == candidate {
		return true
	}
	exp, cand := a.node(expected), a.node(candidate)
	if exp.kind == KindSimple && exp.name == ErrorName || cand.kind == KindSimple && cand.name == ErrorName {
		return true
	}
	if cand.kind == KindVariable {
		return a.bindVariable(candidate, expected)
	}
	if cand.kind == KindUnion && exp.kind != KindUnion {
		for _, member := range a.Decompose(candidate) {
			if !a.Accepts(expected, member) {
				return false
			}
		}
		return true
	}

	switch exp.kind {
	case KindSimple:
		return cand.kind == KindSimple && cand.name == exp.name
	case KindFunction:
		if cand.kind != KindFunction {
			return false
		}
		expArg, expRes, candArg, candRes := exp.left, exp.right, cand.left, cand.right
		return a.Accepts(expArg, candArg) && a.Accepts(expRes, candRes)
	case KindParameterized:
		return a.acceptsParameterized(expected, candidate)
	case KindRecord:
		return a.acceptsRecord(expected, candidate)
	case KindAlgebraic:
		return a.acceptsAlgebraic(expected, candidate)
	case KindRecursive:
		return a.isNamed(candidate, exp.name)
	case KindUnion:
		return a.acceptsUnion(expected, candidate)
	default:
		panic(unknownVariant(a, exp.kind, "accepts"))
	}
}

func (a *Arena) acceptsWithVariable(v, candidate Handle) bool {
	n := a.node(v)
	if !n.bound {
		return a.bindVariable(v, candidate)
	}
	target := n.right
	m := a.Mark()
	if a.Accepts(target, candidate) {
		a.Commit(m)
		return true
	}
	a.Rollback(m)

	candidate = a.Resolve(candidate)
	if a.Occurs(v, candidate) {
		a.logger.Debug("occurs check failed", "variable", a.node(v).name, "in", a.Show(candidate))
		return false
	}
	promoted := a.Bind(target, candidate)
	a.logger.Debug("promoted variable target", "variable", a.node(v).name, "to", a.Show(promoted))
	a.setBound(v, promoted)
	return true
}

// bindVariable binds unbound variable v to candidate, unless doing so would
// create an infinite type
func (a *Arena) bindVariable(v, candidate Handle) bool {
	candidate = a.Resolve(candidate)
	if candidate == v {
		return true
	}
	if a.Occurs(v, candidate) {
		a.logger.Debug("occurs check failed", "variable", a.node(v).name, "in", a.Show(candidate))
		return false
	}
	a.setBound(v, candidate)
	return true
}

// acceptsParameterized compares bases in the reverse direction: a more
// specific base satisfies a more general expectation
func (a *Arena) acceptsParameterized(expected, candidate Handle) bool {
	exp, cand := a.node(expected), a.node(candidate)
	if cand.kind != KindParameterized || len(exp.args) != len(cand.args) {
		return false
	}
	expBase, candBase := exp.left, cand.left
	expParams, candParams := exp.args, cand.args
	if !a.Accepts(candBase, expBase) {
		return false
	}
	return a.acceptsPairwise(expParams, candParams)
}

func (a *Arena) acceptsRecord(expected, candidate Handle) bool {
	exp, cand := a.node(expected), a.node(candidate)
	switch cand.kind {
	case KindRecursive:
		return cand.name == exp.name
	case KindAlgebraic:
		// a sum type is accepted if one of its members is
		return a.acceptsAnyOf(expected, a.node(candidate).members)
	case KindRecord:
		if cand.name != exp.name || len(cand.args) != len(exp.args) || len(cand.props) != len(exp.props) {
			return false
		}
		expArgs, candArgs := exp.args, cand.args
		expProps, candProps := exp.props, cand.props
		if !a.acceptsPairwise(expArgs, candArgs) {
			return false
		}
		for _, p := range expProps {
			found := false
			for _, cp := range candProps {
				if cp.Name != p.Name {
					continue
				}
				found = true
				if !a.Accepts(p.Type, cp.Type) {
					return false
				}
			}
			if !found {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (a *Arena) acceptsAlgebraic(expected, candidate Handle) bool {
	exp, cand := a.node(expected), a.node(candidate)
	switch cand.kind {
	case KindRecursive:
		return cand.name == exp.name
	case KindAlgebraic:
		if cand.name != exp.name || len(cand.args) != len(exp.args) || len(cand.members) != len(exp.members) {
			return false
		}
		expArgs, candArgs := exp.args, cand.args
		expMembers, candMembers := exp.members, cand.members
		return a.acceptsPairwise(expArgs, candArgs) && a.acceptsPairwise(expMembers, candMembers)
	case KindRecord, KindSimple:
		// a member satisfies an expectation of its sum type
		return a.acceptedByAny(candidate, exp.members)
	default:
		return false
	}
}

func (a *Arena) acceptsUnion(expected, candidate Handle) bool {
	if a.Equal(expected, candidate) {
		return true
	}
	members := a.node(expected).members
	if a.node(candidate).kind != KindUnion {
		return a.acceptedByAny(candidate, members)
	}
	for _, alternative := range a.Decompose(candidate) {
		if !a.acceptedByAny(alternative, members) {
			return false
		}
	}
	return true
}

func (a *Arena) acceptsPairwise(expected, candidates []Handle) bool {
	if len(expected) != len(candidates) {
		return false
	}
	for i := range expected {
		if !a.Accepts(expected[i], candidates[i]) {
			return false
		}
	}
	return true
}

// acceptedByAny reports whether one of expectations accepts candidate. The
// first one that does wins, and failed attempts leave no bindings behind.
func (a *Arena) acceptedByAny(candidate Handle, expectations []Handle) bool {
	for _, expected := range expectations {
		m := a.Mark()
		if a.Accepts(expected, candidate) {
			a.Commit(m)
			return true
		}
		a.Rollback(m)
	}
	return false
}

// acceptsAnyOf reports whether expected accepts one of candidates
func (a *Arena) acceptsAnyOf(expected Handle, candidates []Handle) bool {
	for _, candidate := range candidates {
		m := a.Mark()
		if a.Accepts(expected, candidate) {
			a.Commit(m)
			return true
		}
		a.Rollback(m)
	}
	return false
}

// isNamed reports whether h is a nominal type called name
func (a *Arena) isNamed(h Handle, name string) bool {
	n := a.node(a.Resolve(h))
	switch n.kind {
	case KindRecursive, KindAlgebraic, KindRecord:
		return n.name == name
	default:
		return false
	}
}
