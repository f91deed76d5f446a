package scheme

import (
	"github.com/hashicorp/go-set/v3"

	"keel/internal/types"
)

// Generalize quantifies every free variable of t that does not occur in
// envFree. Quantified variables are listed in ascending order; bounds are kept
// only for quantified variables.
func Generalize(t types.Type, envFree *set.Set[types.VarID], bounds ...Bound) Scheme {
	free := set.New[types.VarID](0)
	for v := range types.FreeVars(t).Items() {
		if envFree == nil || !envFree.Contains(v) {
			free.Insert(v)
		}
	}
	if free.Empty() {
		return Mono(t)
	}
	vars := types.SortedVars(free)
	var kept []Bound
	for _, b := range bounds {
		if free.Contains(b.Var) {
			kept = append(kept, b)
		}
	}
	return Scheme{Vars: vars, Bounds: kept, Type: t}
}

// Obligation is a bound carried over to a fresh instantiation: Type must
// implement Trait.
type Obligation struct {
	Type  types.Type
	Trait string
}

// Instantiate replaces each quantified variable with a fresh one.
func Instantiate(s Scheme, fresh *Fresh) types.Type {
	t, _ := InstantiateBounds(s, fresh)
	return t
}

// InstantiateBounds also returns the scheme's bounds restated on the fresh
// variables.
func InstantiateBounds(s Scheme, fresh *Fresh) (types.Type, []Obligation) {
	if s.IsMono() {
		return s.Type, nil
	}
	mapping := make(map[types.VarID]types.Type, len(s.Vars))
	for _, v := range s.Vars {
		mapping[v] = fresh.Var()
	}
	out := Substitute(s.Type, mapping)
	var obligations []Obligation
	for _, b := range s.Bounds {
		if nv, ok := mapping[b.Var]; ok {
			obligations = append(obligations, Obligation{Type: nv, Trait: b.Trait})
		}
	}
	return out, obligations
}

// Substitute replaces variables by mapping without following chains.
func Substitute(t types.Type, mapping map[types.VarID]types.Type) types.Type {
	if len(mapping) == 0 {
		return t
	}
	return types.Rewrite(t, func(n types.Type) (types.Type, bool) {
		if n.Kind != types.KindVar {
			return n, false
		}
		r, ok := mapping[n.Var]
		return r, ok
	})
}
