// Package resolve selects the implementation governing a method call.
package resolve

import (
	"cmp"
	"fmt"

	"keel/internal/traits"
)

// Kind is the resolution tier of a candidate, most preferred first.
type Kind uint8

const (
	KindInherent Kind = iota
	KindTraitDirect
	KindTraitDefault
	// KindBound is a method reached through a bound on a rigid parameter.
	KindBound
	KindExtension
)

func (k Kind) String() string {
	switch k {
	case KindInherent:
		return "inherent"
	case KindTraitDirect:
		return "trait"
	case KindTraitDefault:
		return "default"
	case KindBound:
		return "bound"
	case KindExtension:
		return "extension"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// tier groups kinds that compete with each other. Bound candidates stand in
// for trait impls on rigid receivers, so they share the trait tier.
func (k Kind) tier() int {
	switch k {
	case KindInherent:
		return 1
	case KindTraitDirect, KindBound:
		return 2
	case KindTraitDefault:
		return 3
	}
	return 4
}

// Candidate is one way a method call can be satisfied.
type Candidate struct {
	Kind Kind
	Rank traits.Rank
	// Impl is set for inherent and trait candidates; for defaults it is the
	// impl of the subtrait that inherits the method.
	Impl traits.ImplID
	// Trait declares Method; NoTraitID for inherent and extension methods.
	Trait  traits.TraitID
	Ext    traits.ExtID
	Method *traits.MethodSig
}

func (c Candidate) id() uint32 {
	switch {
	case c.Impl.IsValid():
		return uint32(c.Impl)
	case c.Ext.IsValid():
		return uint32(c.Ext)
	}
	return uint32(c.Trait)
}

// compare orders candidates by (tier, rank descending, id).
func compare(a, b Candidate) int {
	if c := cmp.Compare(a.Kind.tier(), b.Kind.tier()); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Rank, a.Rank); c != 0 {
		return c
	}
	return cmp.Compare(a.id(), b.id())
}

// tied reports candidates that resolution cannot tell apart.
func tied(a, b Candidate) bool {
	return a.Kind.tier() == b.Kind.tier() && a.Rank == b.Rank
}
