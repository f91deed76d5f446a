// Package scheme implements let-polymorphism: quantifying the free variables
// of a type into a Scheme and instantiating schemes with fresh variables.
package scheme

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-set/v3"

	"keel/internal/types"
)

// Bound requires the type substituted for Var to implement Trait.
type Bound struct {
	Var   types.VarID `msgpack:"v" json:"var"`
	Trait string      `msgpack:"t" json:"trait"`
}

// Scheme is a type quantified over Vars. It is never mutated after creation.
type Scheme struct {
	Vars   []types.VarID `msgpack:"vars,omitempty" json:"vars,omitempty"`
	Bounds []Bound       `msgpack:"bounds,omitempty" json:"bounds,omitempty"`
	Type   types.Type    `msgpack:"type" json:"type"`
}

// Mono wraps a type without quantifying anything.
func Mono(t types.Type) Scheme {
	return Scheme{Type: t}
}

// Poly quantifies exactly vars, which the caller lists in order.
func Poly(vars []types.VarID, bounds []Bound, t types.Type) Scheme {
	return Scheme{Vars: slices.Clone(vars), Bounds: slices.Clone(bounds), Type: t}
}

func (s Scheme) IsMono() bool {
	return len(s.Vars) == 0
}

// FreeVars returns the variables of the type that are not quantified.
func (s Scheme) FreeVars() *set.Set[types.VarID] {
	free := types.FreeVars(s.Type)
	for _, v := range s.Vars {
		free.Remove(v)
	}
	return free
}

// Apply pushes a substitution into the free part of the scheme.
func (s Scheme) Apply(sub *types.Subst) Scheme {
	if s.IsMono() {
		return Scheme{Type: sub.Apply(s.Type)}
	}
	quantified := set.From(s.Vars)
	out := types.Rewrite(s.Type, func(n types.Type) (types.Type, bool) {
		if n.Kind != types.KindVar || quantified.Contains(n.Var) {
			return n, false
		}
		if _, ok := sub.Lookup(n.Var); !ok {
			return n, false
		}
		return sub.Apply(n), true
	})
	return Scheme{Vars: s.Vars, Bounds: s.Bounds, Type: out}
}

func (s Scheme) String() string {
	if s.IsMono() {
		return s.Type.String()
	}
	var b strings.Builder
	b.WriteString("forall")
	for _, v := range s.Vars {
		b.WriteByte(' ')
		b.WriteString(types.MakeVar(v).String())
	}
	for _, bd := range s.Bounds {
		fmt.Fprintf(&b, ", %s: %s", types.MakeVar(bd.Var), bd.Trait)
	}
	b.WriteString(". ")
	b.WriteString(s.Type.String())
	return b.String()
}
