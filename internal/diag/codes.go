package diag

import (
	"fmt"
	"slices"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Type inference
	TypeAnnotationsNeeded   Code = 282
	TypeMismatch            Code = 308
	ShapeMismatch           Code = 309
	OccursCheck             Code = 310
	AmbiguousAssociatedType Code = 311
	RecursionLimit          Code = 312
	ArgCountMismatch        Code = 313
	NotCallable             Code = 314
	BadNamedArgument        Code = 315
	InvalidOperands         Code = 316
	InvalidLiteral          Code = 317
	NoAssociatedBinding     Code = 318
	UnknownField            Code = 319
	MissingField            Code = 320
	NotAStruct              Code = 321
	BadPattern              Code = 322
	NonExhaustiveMatch      Code = 323

	// Names and declarations
	WrongTypeArity      Code = 107
	UnknownType         Code = 412
	UnboundIdentifier   Code = 425
	DuplicateDefinition Code = 428

	// Traits, impls and resolution
	ConflictingImplementation Code = 600
	OrphanImplementation      Code = 601
	AmbiguousMethod           Code = 602
	ConflictingExtension      Code = 603
	MissingTraitBound         Code = 604
	MissingAssociatedType     Code = 605
	ConflictingDefault        Code = 606
	DuplicateTrait            Code = 607
	CyclicSupertraits         Code = 608
	MissingMethod             Code = 609
	UnknownImplMethod         Code = 610
	UnknownAssociatedType     Code = 611
	UnknownMethod             Code = 612
	UnknownSupertrait         Code = 613
	UnknownTrait              Code = 614

	// Unit loading
	UnitMalformed Code = 9001
	UnitIO        Code = 9002
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown error",

	TypeAnnotationsNeeded:   "Type annotations needed",
	TypeMismatch:            "Mismatched types",
	ShapeMismatch:           "Mismatched type shapes",
	OccursCheck:             "Infinite type",
	AmbiguousAssociatedType: "Ambiguous associated type",
	RecursionLimit:          "Recursion limit reached",
	ArgCountMismatch:        "Wrong number of arguments",
	NotCallable:             "Expression is not callable",
	BadNamedArgument:        "Invalid named argument",
	InvalidOperands:         "Invalid operand types",
	InvalidLiteral:          "Invalid literal",
	NoAssociatedBinding:     "Associated type has no binding",
	UnknownField:            "No such field",
	MissingField:            "Missing struct field",
	NotAStruct:              "Type has no fields",
	BadPattern:              "Pattern does not fit the scrutinee",
	NonExhaustiveMatch:      "Non-exhaustive match",

	WrongTypeArity:      "Wrong number of type arguments",
	UnknownType:         "Unknown type",
	UnboundIdentifier:   "Unbound identifier",
	DuplicateDefinition: "Duplicate definition",

	ConflictingImplementation: "Conflicting implementation",
	OrphanImplementation:      "Orphan implementation",
	AmbiguousMethod:           "Ambiguous method call",
	ConflictingExtension:      "Conflicting extension methods",
	MissingTraitBound:         "Missing trait bound",
	MissingAssociatedType:     "Missing associated type",
	ConflictingDefault:        "Conflicting default methods",
	DuplicateTrait:            "Duplicate trait",
	CyclicSupertraits:         "Cyclic trait hierarchy",
	MissingMethod:             "Missing trait method",
	UnknownImplMethod:         "Method is not a member of the trait",
	UnknownAssociatedType:     "Associated type is not a member of the trait",
	UnknownMethod:             "Unknown method",
	UnknownSupertrait:         "Unknown supertrait",
	UnknownTrait:              "Unknown trait",

	UnitMalformed: "Malformed compilation unit",
	UnitIO:        "Cannot read compilation unit",
}

var codeExplanation = map[Code]string{
	ConflictingImplementation: "Two implementations govern the same (trait, type) pair, or two inherent impls of one type " +
		"define the same method. Remove one of them or make the target types disjoint.",
	OrphanImplementation: "An impl may only be written in the unit that declares the trait or the target type. " +
		"Wrap the foreign type in a local type, or declare the method in an extend block.",
	AmbiguousMethod: "Several implementations provide the method with equal priority and specificity. " +
		"Call it through the trait explicitly, e.g. Trait.method(receiver).",
	ConflictingExtension: "Two extend blocks add a method with the same name to overlapping types.",
	MissingTraitBound: "The receiver does not satisfy any trait that provides the method. " +
		"Add the named bound to the generic parameter or implement the trait for the type.",
	MissingAssociatedType: "An impl must bind every associated type its trait declares.",
	NonExhaustiveMatch: "A match must cover every constructor of an Option, Result or bool scrutinee. " +
		"Other scrutinees need a wildcard or binding arm.",
	ConflictingDefault: "A trait inherits two default bodies for the same method from different supertraits. " +
		"Override the method in the trait itself.",
	CyclicSupertraits: "The supertrait graph contains a cycle; every trait on the cycle is treated as unresolved.",
	OccursCheck:       "A type variable would have to contain itself, which would make the type infinite.",
	RecursionLimit:    "Type expansion exceeded the configured depth ceiling (check.max_depth).",
}

// ID renders the stable identifier, e.g. E0600.
func (c Code) ID() string {
	return fmt.Sprintf("E%04d", int(c))
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

// Explain returns the long description of c, or its title when none is written.
func (c Code) Explain() string {
	if text, ok := codeExplanation[c]; ok {
		return text
	}
	return c.Title()
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// Family groups codes for summaries.
func (c Code) Family() string {
	switch {
	case c == UnknownCode:
		return "unknown"
	case c >= 600 && c < 700:
		return "traits"
	case c == WrongTypeArity, c >= 400 && c < 500:
		return "names"
	case c >= 9000:
		return "unit"
	}
	return "types"
}

// ParseCode accepts "E0600", "e600" or "600".
func ParseCode(s string) (Code, bool) {
	if len(s) > 0 && (s[0] == 'E' || s[0] == 'e') {
		s = s[1:]
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n < 0 || n > 0xFFFF {
		return UnknownCode, false
	}
	c := Code(n)
	if _, ok := codeDescription[c]; !ok {
		return UnknownCode, false
	}
	return c, true
}

// Codes lists every known code in ascending order.
func Codes() []Code {
	out := make([]Code, 0, len(codeDescription))
	for c := range codeDescription {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}
