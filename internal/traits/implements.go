package traits

import (
	"slices"

	"keel/internal/scheme"
	"keel/internal/types"
	"keel/internal/unify"
)

// ParamEnv maps rigid generic parameters in scope to their declared bounds.
type ParamEnv map[string][]string

// Match is an impl (or extension) target matched against a receiver.
type Match struct {
	// Mapping sends the entry's generic variables to types built from the
	// receiver. Variables the receiver leaves undetermined map to themselves.
	Mapping map[types.VarID]types.Type
}

// scratch returns a counter that cannot collide with registry variables or
// with any variable already present in ts.
func (r *Registry) scratch(ts ...types.Type) *scheme.Fresh {
	start := r.varCeiling
	for _, t := range ts {
		for v := range types.FreeVars(t).Items() {
			if v >= start {
				start = v + 1
			}
		}
	}
	return scheme.NewFresh(start)
}

// MatchTarget unifies a fresh copy of target (over vars) with recv in a
// scratch substitution and checks the bounds of generics. The receiver is
// never modified.
func (r *Registry) MatchTarget(target types.Type, generics []Generic, recv types.Type, env ParamEnv) (Match, bool) {
	return r.matchTarget(target, generics, recv, env, 0)
}

func (r *Registry) matchTarget(target types.Type, generics []Generic, recv types.Type, env ParamEnv, depth int) (Match, bool) {
	if depth > r.maxDepth {
		return Match{}, false
	}
	fresh := r.scratch(recv)
	first := fresh.Peek()
	inst := make(map[types.VarID]types.Type, len(generics))
	for _, g := range generics {
		inst[g.Var] = fresh.Var()
	}
	sub := types.NewSubst()
	u := unify.New(sub, nil, r.maxDepth)
	if err := u.Unify(scheme.Substitute(target, inst), recv); err != nil {
		return Match{}, false
	}
	m := Match{Mapping: make(map[types.VarID]types.Type, len(generics))}
	for _, g := range generics {
		arg := sub.Apply(inst[g.Var])
		if arg.Kind == types.KindVar {
			// bounds on a variable become obligations of the caller
			if arg.Var >= first {
				arg = types.MakeVar(g.Var)
			}
			m.Mapping[g.Var] = arg
			continue
		}
		m.Mapping[g.Var] = arg
		for _, bound := range g.Bounds {
			if !r.implements(arg, bound, env, depth+1) {
				return Match{}, false
			}
		}
	}
	return m, true
}

// Implements reports whether t satisfies trait. Rigid parameters satisfy the
// bounds in env and their supertraits. The error type satisfies everything,
// as does any trait on a supertrait cycle; a bare variable satisfies nothing
// yet.
func (r *Registry) Implements(t types.Type, trait string, env ParamEnv) bool {
	return r.implements(t, trait, env, 0)
}

func (r *Registry) implements(t types.Type, trait string, env ParamEnv, depth int) bool {
	if depth > r.maxDepth {
		return false
	}
	def, ok := r.Trait(trait)
	if !ok {
		return false
	}
	if def.Cyclic {
		return true
	}
	switch t.Kind {
	case types.KindError:
		return true
	case types.KindVar, types.KindProjection:
		return false
	case types.KindParam:
		return r.paramSatisfies(env[t.Name], def.ID)
	}
	for _, id := range r.ImplsOf(def.ID, types.Head(t)) {
		impl := &r.impls[id]
		if _, ok := r.matchTarget(impl.Target, impl.Generics, t, env, depth+1); ok {
			return true
		}
	}
	return false
}

func (r *Registry) paramSatisfies(bounds []string, want TraitID) bool {
	for _, b := range bounds {
		if def, ok := r.Trait(b); ok && r.IsSubtrait(def.ID, want) {
			return true
		}
	}
	return false
}

// ApplicableImpls returns the impls of trait that accept recv, highest rank
// first, ties in declaration order.
func (r *Registry) ApplicableImpls(trait TraitID, recv types.Type, env ParamEnv) []ImplID {
	var out []ImplID
	for _, id := range r.ImplsOf(trait, types.Head(recv)) {
		impl := &r.impls[id]
		if _, ok := r.MatchTarget(impl.Target, impl.Generics, recv, env); ok {
			out = append(out, id)
		}
	}
	slices.SortStableFunc(out, func(a, b ImplID) int {
		return int(r.impls[b].Rank) - int(r.impls[a].Rank)
	})
	return out
}

// AssocType finds the binding of assoc for a concrete receiver. An empty
// trait searches every trait declaring assoc. The lookup fails unless exactly
// one impl of the highest applicable rank provides it, or when the binding
// mentions generics the receiver does not determine.
func (r *Registry) AssocType(recv types.Type, assoc, trait string, env ParamEnv) (types.Type, bool) {
	var candidates []TraitID
	if trait != "" {
		def, ok := r.Trait(trait)
		if !ok {
			return types.Error, false
		}
		if def.Cyclic {
			return types.Error, true
		}
		candidates = append(candidates, def.ID)
	} else {
		for i := 1; i < len(r.traits); i++ {
			if r.traits[i].HasAssoc(assoc) {
				candidates = append(candidates, TraitID(i)) // #nosec G115 -- bounded by arena size
			}
		}
	}
	var (
		found types.Type
		hits  int
	)
	for _, tid := range candidates {
		ids := r.ApplicableImpls(tid, recv, env)
		if len(ids) == 0 {
			continue
		}
		best := r.impls[ids[0]].Rank
		for _, id := range ids {
			impl := &r.impls[id]
			if impl.Rank != best {
				break
			}
			binding, ok := impl.AssocType(assoc)
			if !ok {
				continue
			}
			m, _ := r.MatchTarget(impl.Target, impl.Generics, recv, env)
			out := scheme.Substitute(binding, m.Mapping)
			if mentionsAny(out, impl.Vars()) {
				return types.Error, false
			}
			found = out
			hits++
		}
	}
	if hits != 1 {
		return types.Error, false
	}
	return found, true
}

func mentionsAny(t types.Type, vars []types.VarID) bool {
	for _, v := range vars {
		if types.Occurs(v, t) {
			return true
		}
	}
	return false
}
