package types

// Walk visits t and its components depth-first; visit returns false to skip
// the children of a node.
func Walk(t Type, visit func(Type) bool) {
	if !visit(t) {
		return
	}
	for _, a := range t.Args {
		Walk(a, visit)
	}
	if t.Result != nil {
		Walk(*t.Result, visit)
	}
}

// Rewrite rebuilds t bottom-up through f. When f reports true its result
// replaces the node and is not descended into. Untouched subtrees are shared.
func Rewrite(t Type, f func(Type) (Type, bool)) Type {
	out, _ := rewrite(t, f)
	return out
}

func rewrite(t Type, f func(Type) (Type, bool)) (Type, bool) {
	if r, ok := f(t); ok {
		return r, true
	}
	if len(t.Args) == 0 && t.Result == nil {
		return t, false
	}
	var args []Type
	for i, a := range t.Args {
		na, changed := rewrite(a, f)
		if changed && args == nil {
			args = make([]Type, len(t.Args))
			copy(args, t.Args[:i])
		}
		if args != nil {
			args[i] = na
		}
	}
	var result *Type
	if t.Result != nil {
		if nr, changed := rewrite(*t.Result, f); changed {
			result = &nr
		}
	}
	if args == nil && result == nil {
		return t, false
	}
	if args != nil {
		t.Args = args
	}
	if result != nil {
		t.Result = result
	}
	return t, true
}

// Equal is structural equality.
func Equal(a, b Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindPrim:
		return a.Prim == b.Prim
	case KindVar:
		return a.Var == b.Var
	case KindNamed, KindParam:
		return a.Name == b.Name
	case KindError, KindInvalid:
		return true
	case KindProjection:
		if a.Name != b.Name || a.Trait != b.Trait {
			return false
		}
	case KindApplied:
		if a.Name != b.Name {
			return false
		}
	}
	if len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if !Equal(a.Args[i], b.Args[i]) {
			return false
		}
	}
	if (a.Result == nil) != (b.Result == nil) {
		return false
	}
	return a.Result == nil || Equal(*a.Result, *b.Result)
}

// Occurs reports whether variable v appears in t.
func Occurs(v VarID, t Type) bool {
	found := false
	Walk(t, func(n Type) bool {
		if found {
			return false
		}
		if n.Kind == KindVar && n.Var == v {
			found = true
		}
		return true
	})
	return found
}

// Contains reports whether any node of t has kind k.
func Contains(t Type, k Kind) bool {
	found := false
	Walk(t, func(n Type) bool {
		if n.Kind == k {
			found = true
		}
		return !found
	})
	return found
}

// IsClosed reports that t holds no variable and no projection awaiting
// resolution. Projections on rigid parameters are closed.
func IsClosed(t Type) bool {
	closed := true
	Walk(t, func(n Type) bool {
		switch n.Kind {
		case KindVar:
			closed = false
		case KindProjection:
			if n.Receiver().Kind != KindParam {
				closed = false
			}
		}
		return closed
	})
	return closed
}

// Head is the registry index key: the nominal name, the primitive name, or
// "fn"/"tuple". Variables, parameters and errors have no head.
func Head(t Type) string {
	switch t.Kind {
	case KindPrim:
		return t.Prim.String()
	case KindNamed, KindApplied:
		return t.Name
	case KindFn:
		return "fn"
	case KindTuple:
		return "tuple"
	}
	return ""
}
