package unify

import (
	"fmt"

	"keel/internal/types"
)

// ErrorKind classifies unification failures.
type ErrorKind uint8

const (
	// Mismatch: the two types have different constructors or names.
	Mismatch ErrorKind = iota
	// ShapeMismatch: same constructor, different arity.
	ShapeMismatch
	// OccursCheck: binding would create an infinite type.
	OccursCheck
	// NoAssocBinding: the receiver is concrete but nothing binds the associated type.
	NoAssocBinding
	// DepthExceeded: the recursion ceiling was hit.
	DepthExceeded
)

func (k ErrorKind) String() string {
	switch k {
	case Mismatch:
		return "mismatch"
	case ShapeMismatch:
		return "shape mismatch"
	case OccursCheck:
		return "occurs check"
	case NoAssocBinding:
		return "no associated binding"
	case DepthExceeded:
		return "depth exceeded"
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

// Error describes a failed unification. Expected and Found hold the types at
// the failing step with the substitution applied.
type Error struct {
	Kind     ErrorKind
	Expected types.Type
	Found    types.Type
	Var      types.VarID
	Assoc    string
}

func (e *Error) Error() string {
	switch e.Kind {
	case OccursCheck:
		other := e.Found
		if other.Kind == types.KindVar && other.Var == e.Var {
			other = e.Expected
		}
		return fmt.Sprintf("infinite type: %s occurs in %s", types.MakeVar(e.Var), other)
	case ShapeMismatch:
		return fmt.Sprintf("shape mismatch: expected %s, found %s", e.Expected, e.Found)
	case NoAssocBinding:
		return fmt.Sprintf("no associated type %s for %s", e.Assoc, e.Found)
	case DepthExceeded:
		return fmt.Sprintf("recursion limit reached while unifying %s with %s", e.Expected, e.Found)
	}
	return fmt.Sprintf("mismatched types: expected %s, found %s", e.Expected, e.Found)
}

func mismatch(kind ErrorKind, expected, found types.Type) *Error {
	return &Error{Kind: kind, Expected: expected, Found: found}
}
