package types

import (
	"maps"
	"slices"
	"strings"
)

// Subst maps variables to types. It belongs to a single inference context.
// Bindings are kept occurs-check clean by the unifier, which makes Apply
// terminate and idempotent.
type Subst struct {
	bindings map[VarID]Type
}

func NewSubst() *Subst {
	return &Subst{bindings: make(map[VarID]Type)}
}

// Lookup returns the direct binding of v.
func (s *Subst) Lookup(v VarID) (Type, bool) {
	t, ok := s.bindings[v]
	return t, ok
}

// Bind records v := t. The caller has already run the occurs check.
func (s *Subst) Bind(v VarID, t Type) {
	s.bindings[v] = t
}

// Resolve follows variable chains at the top level only.
func (s *Subst) Resolve(t Type) Type {
	for t.Kind == KindVar {
		next, ok := s.bindings[t.Var]
		if !ok {
			break
		}
		t = next
	}
	return t
}

// Apply replaces every bound variable in t, following chains to the end.
func (s *Subst) Apply(t Type) Type {
	if s == nil || len(s.bindings) == 0 {
		return t
	}
	return Rewrite(t, func(n Type) (Type, bool) {
		if n.Kind != KindVar {
			return n, false
		}
		bound, ok := s.bindings[n.Var]
		if !ok {
			return n, false
		}
		return s.Apply(bound), true
	})
}

func (s *Subst) ApplyAll(ts []Type) []Type {
	out := make([]Type, len(ts))
	for i, t := range ts {
		out[i] = s.Apply(t)
	}
	return out
}

// Clone snapshots s for transactional callers.
func (s *Subst) Clone() *Subst {
	return &Subst{bindings: maps.Clone(s.bindings)}
}

// Restore replaces the bindings with those of a snapshot.
func (s *Subst) Restore(snapshot *Subst) {
	s.bindings = maps.Clone(snapshot.bindings)
}

func (s *Subst) Len() int {
	return len(s.bindings)
}

// Vars lists bound variables in ascending order.
func (s *Subst) Vars() []VarID {
	return slices.Sorted(maps.Keys(s.bindings))
}

func (s *Subst) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range s.Vars() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(MakeVar(v).String())
		b.WriteString(" -> ")
		b.WriteString(s.bindings[v].String())
	}
	b.WriteByte('}')
	return b.String()
}
