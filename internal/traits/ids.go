package traits

// TraitID identifies a trait in the registry arena.
type TraitID uint32

// ImplID identifies an impl block, trait or inherent.
type ImplID uint32

// ExtID identifies an extension block.
type ExtID uint32

const (
	NoTraitID TraitID = 0
	NoImplID  ImplID  = 0
	NoExtID   ExtID   = 0
)

func (id TraitID) IsValid() bool { return id != NoTraitID }
func (id ImplID) IsValid() bool  { return id != NoImplID }
func (id ExtID) IsValid() bool   { return id != NoExtID }

// Rank is the specificity of an impl; higher ranks win resolution ties.
type Rank uint8

const (
	// RankBlanket has at least one unconstrained generic parameter.
	RankBlanket Rank = iota
	// RankBounded has generic parameters, all of them constrained.
	RankBounded
	// RankConcrete has no generic parameters.
	RankConcrete
)

func (r Rank) String() string {
	switch r {
	case RankConcrete:
		return "concrete"
	case RankBounded:
		return "bounded"
	case RankBlanket:
		return "blanket"
	}
	return "rank?"
}

// rankOf computes the rank of a generic parameter list.
func rankOf(generics []Generic) Rank {
	if len(generics) == 0 {
		return RankConcrete
	}
	for _, g := range generics {
		if len(g.Bounds) == 0 {
			return RankBlanket
		}
	}
	return RankBounded
}
