package resolve

import (
	"errors"
	"slices"

	"keel/internal/traits"
	"keel/internal/types"
)

// ErrCyclic marks a lookup that touched a trait on a supertrait cycle. The
// cycle itself has been reported already; callers type the call as an error
// without a new diagnostic.
var ErrCyclic = errors.New("resolution touches a cyclic trait")

// Resolver answers method and associated-type queries against a frozen
// registry. Env holds the bounds of the rigid parameters in scope. A
// Resolver is read-only and may be shared.
type Resolver struct {
	Reg *traits.Registry
	Env traits.ParamEnv
}

func New(reg *traits.Registry, env traits.ParamEnv) *Resolver {
	return &Resolver{Reg: reg, Env: env}
}

// Resolve is the one-shot form of Lookup. It returns the governing impl; a
// method provided by an extension or a bound yields a *NoImplError carrying
// the candidate.
func Resolve(recv types.Type, method string, reg *traits.Registry) (*traits.ImplEntry, error) {
	c, err := New(reg, nil).Lookup(recv, method)
	if err != nil {
		return nil, err
	}
	impl := reg.Impl(c.Impl)
	if impl == nil {
		return nil, &NoImplError{Receiver: recv, Candidate: c}
	}
	return impl, nil
}

// Lookup selects the candidate for recv.method: inherent impls first, then
// trait impls defining the method, then trait defaults, then extensions.
// Within a tier the highest rank wins; a tie is ambiguous. ErrCyclic is
// returned only when the outcome hinges on a trait of a supertrait cycle.
func (r *Resolver) Lookup(recv types.Type, method string) (Candidate, error) {
	switch recv.Kind {
	case types.KindVar:
		return Candidate{}, &UnresolvedReceiverError{Receiver: recv, Method: method}
	case types.KindParam:
		return r.lookupParam(recv, method)
	}
	head := types.Head(recv)
	if head == "" {
		return Candidate{}, r.notFound(recv, method, "")
	}
	for _, tier := range [][]Candidate{
		r.inherent(recv, head, method),
		r.traitCandidates(recv, method),
		r.extensions(recv, head, method),
	} {
		if len(tier) == 0 {
			continue
		}
		return r.pick(recv, method, tier)
	}
	return Candidate{}, r.notFound(recv, method, "")
}

// pick sorts one tier group and fails on a tie at the top.
func (r *Resolver) pick(recv types.Type, method string, cands []Candidate) (Candidate, error) {
	slices.SortFunc(cands, compare)
	best := cands[0]
	var tiedSet []Candidate
	for _, c := range cands {
		if tied(best, c) {
			tiedSet = append(tiedSet, c)
		}
	}
	if slices.ContainsFunc(tiedSet, r.cyclic) {
		return Candidate{}, ErrCyclic
	}
	if len(tiedSet) == 1 {
		return best, nil
	}
	amb := &AmbiguousError{Receiver: recv, Method: method, Candidates: tiedSet}
	for _, c := range tiedSet {
		name := ""
		if def := r.Reg.TraitByID(c.Trait); def != nil {
			name = def.Name
		}
		amb.Traits = append(amb.Traits, name)
	}
	return Candidate{}, amb
}

func (r *Resolver) inherent(recv types.Type, head, method string) []Candidate {
	var out []Candidate
	for _, id := range r.Reg.Inherent(head) {
		impl := r.Reg.Impl(id)
		m, ok := impl.Method(method)
		if !ok {
			continue
		}
		if _, ok := r.Reg.MatchTarget(impl.Target, impl.Generics, recv, r.Env); ok {
			out = append(out, Candidate{Kind: KindInherent, Rank: impl.Rank, Impl: id, Method: m})
		}
	}
	return out
}

// traitCandidates collects impls defining the method (tier 2) and, only when
// there are none, impls relying on a default (tier 3).
func (r *Resolver) traitCandidates(recv types.Type, method string) []Candidate {
	var direct, defaults []Candidate
	for i := range r.Reg.Traits() {
		def := &r.Reg.Traits()[i]
		for _, id := range r.Reg.ApplicableImpls(def.ID, recv, r.Env) {
			impl := r.Reg.Impl(id)
			if m, ok := impl.Method(method); ok {
				if _, declared := def.Method(method); declared {
					direct = append(direct, Candidate{Kind: KindTraitDirect, Rank: impl.Rank, Impl: id, Trait: def.ID, Method: m})
				}
				continue
			}
			if owner, m, ok := r.defaultFor(def, method); ok {
				defaults = append(defaults, Candidate{Kind: KindTraitDefault, Rank: impl.Rank, Impl: id, Trait: owner, Method: m})
			}
		}
	}
	if len(direct) > 0 {
		return direct
	}
	return dedupDefaults(defaults)
}

// defaultFor finds the default body of method visible from def: its own,
// else the nearest supertrait's.
func (r *Resolver) defaultFor(def *traits.TraitDef, method string) (traits.TraitID, *traits.MethodSig, bool) {
	if m, ok := def.Method(method); ok {
		return def.ID, m, m.HasDefault
	}
	for _, sid := range r.Reg.Supertraits(def.ID) {
		if m, ok := r.Reg.TraitByID(sid).Method(method); ok && m.HasDefault {
			return sid, m, true
		}
	}
	return traits.NoTraitID, nil, false
}

// dedupDefaults keeps one candidate per providing trait: a default reached
// through several subtrait impls is still a single body.
func dedupDefaults(cands []Candidate) []Candidate {
	var out []Candidate
	for _, c := range cands {
		dup := slices.ContainsFunc(out, func(o Candidate) bool {
			return o.Trait == c.Trait && o.Method == c.Method
		})
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

func (r *Resolver) extensions(recv types.Type, head, method string) []Candidate {
	var out []Candidate
	for _, id := range r.Reg.ExtensionsOn(head) {
		ext := r.Reg.Extension(id)
		m, ok := ext.Method(method)
		if !ok {
			continue
		}
		if _, ok := r.Reg.MatchTarget(ext.Target, ext.Generics, recv, r.Env); ok {
			out = append(out, Candidate{Kind: KindExtension, Rank: extRank(ext), Ext: id, Method: m})
		}
	}
	return out
}

func extRank(ext *traits.ExtensionEntry) traits.Rank {
	if len(ext.Generics) == 0 {
		return traits.RankConcrete
	}
	for _, g := range ext.Generics {
		if len(g.Bounds) == 0 {
			return traits.RankBlanket
		}
	}
	return traits.RankBounded
}

// lookupParam resolves a method on a rigid generic parameter through the
// bounds in scope, then through blanket extensions.
func (r *Resolver) lookupParam(recv types.Type, method string) (Candidate, error) {
	var cands []Candidate
	seen := make(map[traits.TraitID]bool)
	for _, name := range r.Env[recv.Name] {
		def, ok := r.Reg.Trait(name)
		if !ok {
			continue
		}
		for _, id := range append([]traits.TraitID{def.ID}, r.Reg.Supertraits(def.ID)...) {
			t := r.Reg.TraitByID(id)
			if seen[id] {
				continue
			}
			seen[id] = true
			if m, ok := t.Method(method); ok {
				cands = append(cands, Candidate{Kind: KindBound, Rank: traits.RankConcrete, Trait: id, Method: m})
			}
		}
	}
	if len(cands) > 0 {
		return r.pick(recv, method, cands)
	}
	if exts := r.extensions(recv, "", method); len(exts) > 0 {
		return r.pick(recv, method, exts)
	}
	return Candidate{}, r.notFound(recv, method, recv.Name)
}

// notFound distinguishes a missing bound from a method nobody declares. A
// method declared only by cyclic traits stays silent.
func (r *Resolver) notFound(recv types.Type, method, param string) error {
	var declaring []string
	cyclic := false
	for i := range r.Reg.Traits() {
		def := &r.Reg.Traits()[i]
		if _, ok := def.Method(method); !ok {
			continue
		}
		if def.Cyclic {
			cyclic = true
			continue
		}
		declaring = append(declaring, def.Name)
	}
	switch {
	case len(declaring) > 0:
		return &MissingBoundError{Receiver: recv, Method: method, Traits: declaring, Param: param}
	case cyclic:
		return ErrCyclic
	}
	return &UnknownMethodError{Receiver: recv, Method: method}
}

func (r *Resolver) cyclic(c Candidate) bool {
	def := r.Reg.TraitByID(c.Trait)
	return def != nil && def.Cyclic
}
