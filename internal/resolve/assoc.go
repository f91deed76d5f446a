package resolve

import (
	"fmt"

	"keel/internal/traits"
	"keel/internal/types"
)

// LookupAssoc implements unify.AssocResolver over the registry.
func (r *Resolver) LookupAssoc(recv types.Type, assoc, trait string) (types.Type, bool) {
	return r.Reg.AssocType(recv, assoc, trait, r.Env)
}

// UnknownTraitError is returned for a qualified call naming no trait.
type UnknownTraitError struct{ Trait string }

func (e *UnknownTraitError) Error() string {
	return fmt.Sprintf("cannot find trait `%s` in this scope", e.Trait)
}

// ImplFor resolves the qualified call trait.method(recv, ...). The candidate
// always carries the trait's own signature, so a call on a receiver of
// unknown type can still be typed; Impl is set once recv selects a unique
// impl.
func (r *Resolver) ImplFor(trait, method string, recv types.Type) (Candidate, error) {
	def, ok := r.Reg.Trait(trait)
	if !ok {
		return Candidate{}, &UnknownTraitError{Trait: trait}
	}
	if def.Cyclic {
		return Candidate{}, ErrCyclic
	}
	m, ok := def.Method(method)
	if !ok {
		return Candidate{}, &UnknownMethodError{Receiver: types.MakeNamed(trait), Method: method}
	}
	c := Candidate{Kind: KindTraitDirect, Rank: traits.RankConcrete, Trait: def.ID, Method: m}
	switch recv.Kind {
	case types.KindVar, types.KindError:
		return c, nil
	case types.KindParam:
		if !r.Reg.Implements(recv, trait, r.Env) {
			return Candidate{}, &MissingBoundError{Receiver: recv, Method: method, Traits: []string{trait}, Param: recv.Name}
		}
		c.Kind = KindBound
		return c, nil
	}
	ids := r.Reg.ApplicableImpls(def.ID, recv, r.Env)
	if len(ids) == 0 {
		return Candidate{}, &MissingBoundError{Receiver: recv, Method: method, Traits: []string{trait}}
	}
	best := r.Reg.Impl(ids[0])
	if len(ids) > 1 && r.Reg.Impl(ids[1]).Rank == best.Rank {
		amb := &AmbiguousError{Receiver: recv, Method: method}
		for _, id := range ids {
			if impl := r.Reg.Impl(id); impl.Rank == best.Rank {
				amb.Candidates = append(amb.Candidates, Candidate{Kind: KindTraitDirect, Rank: impl.Rank, Impl: id, Trait: def.ID})
				amb.Traits = append(amb.Traits, def.Name)
			}
		}
		return Candidate{}, amb
	}
	c.Rank = best.Rank
	c.Impl = best.ID
	if _, ok := best.Method(method); !ok {
		c.Kind = KindTraitDefault
	}
	return c, nil
}
