package types

import (
	"slices"

	"github.com/hashicorp/go-set/v3"
)

// FreeVars collects every variable occurring in t.
func FreeVars(t Type) *set.Set[VarID] {
	out := set.New[VarID](0)
	AddFreeVars(out, t)
	return out
}

// AddFreeVars inserts the variables of t into dst.
func AddFreeVars(dst *set.Set[VarID], t Type) {
	Walk(t, func(n Type) bool {
		if n.Kind == KindVar {
			dst.Insert(n.Var)
		}
		return true
	})
}

// SortedVars returns the members of s in ascending order.
func SortedVars(s *set.Set[VarID]) []VarID {
	out := s.Slice()
	slices.Sort(out)
	return out
}
