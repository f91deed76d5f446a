package types

import "fmt"

// VarID names a unification variable. Ids are unique within one inference
// context; the registry allocates its own range below every worker's.
type VarID uint32

// Kind enumerates the type variants.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindPrim
	KindVar
	KindNamed
	KindApplied
	KindFn
	KindTuple
	KindProjection
	// KindParam is a rigid generic parameter while its declaring body is checked.
	KindParam
	// KindError is the recovery sentinel; it unifies with everything.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindPrim:
		return "primitive"
	case KindVar:
		return "variable"
	case KindNamed:
		return "named"
	case KindApplied:
		return "applied"
	case KindFn:
		return "function"
	case KindTuple:
		return "tuple"
	case KindProjection:
		return "projection"
	case KindParam:
		return "param"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Prim is the fixed set of primitive kinds.
type Prim uint8

const (
	PrimInvalid Prim = iota
	PrimInt
	PrimFloat
	PrimBool
	PrimStr
	PrimChar
	PrimByte
	PrimUnit
	PrimNever
	PrimDuration
	PrimSize
)

var primNames = [...]string{
	PrimInvalid:  "?",
	PrimInt:      "int",
	PrimFloat:    "float",
	PrimBool:     "bool",
	PrimStr:      "str",
	PrimChar:     "char",
	PrimByte:     "byte",
	PrimUnit:     "void",
	PrimNever:    "Never",
	PrimDuration: "Duration",
	PrimSize:     "Size",
}

func (p Prim) String() string {
	if int(p) < len(primNames) {
		return primNames[p]
	}
	return fmt.Sprintf("Prim(%d)", p)
}

// PrimByName maps a surface name to a primitive; "unit" and "()" alias void.
func PrimByName(name string) (Prim, bool) {
	switch name {
	case "unit", "()":
		return PrimUnit, true
	}
	for i := PrimInt; i <= PrimSize; i++ {
		if primNames[i] == name {
			return i, true
		}
	}
	return PrimInvalid, false
}

// Numeric reports whether arithmetic operators apply to p.
func (p Prim) Numeric() bool {
	switch p {
	case PrimInt, PrimFloat, PrimByte, PrimDuration, PrimSize:
		return true
	}
	return false
}

// Type is a structurally compared value. Payload fields are used per kind:
//
//	Prim        Prim
//	Var         Var
//	Named       Name
//	Applied     Name, Args
//	Fn          Args (parameters), Result
//	Tuple       Args
//	Projection  Args[0] (receiver), Name (associated type), Trait (optional)
//	Param       Name
type Type struct {
	Kind   Kind   `msgpack:"k" json:"kind"`
	Prim   Prim   `msgpack:"p,omitempty" json:"prim,omitempty"`
	Var    VarID  `msgpack:"v,omitempty" json:"var,omitempty"`
	Name   string `msgpack:"n,omitempty" json:"name,omitempty"`
	Trait  string `msgpack:"t,omitempty" json:"trait,omitempty"`
	Args   []Type `msgpack:"a,omitempty" json:"args,omitempty"`
	Result *Type  `msgpack:"r,omitempty" json:"result,omitempty"`
}

var (
	Int      = MakePrim(PrimInt)
	Float    = MakePrim(PrimFloat)
	Bool     = MakePrim(PrimBool)
	Str      = MakePrim(PrimStr)
	Char     = MakePrim(PrimChar)
	Byte     = MakePrim(PrimByte)
	Unit     = MakePrim(PrimUnit)
	Never    = MakePrim(PrimNever)
	Duration = MakePrim(PrimDuration)
	Size     = MakePrim(PrimSize)
	Error    = Type{Kind: KindError}
)

func MakePrim(p Prim) Type { return Type{Kind: KindPrim, Prim: p} }

func MakeVar(id VarID) Type { return Type{Kind: KindVar, Var: id} }

func MakeNamed(name string) Type { return Type{Kind: KindNamed, Name: name} }

func MakeParam(name string) Type { return Type{Kind: KindParam, Name: name} }

// MakeApplied returns Named(name) when args is empty.
func MakeApplied(name string, args ...Type) Type {
	if len(args) == 0 {
		return MakeNamed(name)
	}
	return Type{Kind: KindApplied, Name: name, Args: args}
}

func MakeFn(params []Type, result Type) Type {
	r := result
	return Type{Kind: KindFn, Args: params, Result: &r}
}

func MakeTuple(elems ...Type) Type {
	if len(elems) == 0 {
		return Unit
	}
	return Type{Kind: KindTuple, Args: elems}
}

// MakeProjection builds receiver.assoc; trait may be empty.
func MakeProjection(receiver Type, assoc, trait string) Type {
	return Type{Kind: KindProjection, Name: assoc, Trait: trait, Args: []Type{receiver}}
}

func List(elem Type) Type { return MakeApplied(ListName, elem) }
func Option(elem Type) Type { return MakeApplied(OptionName, elem) }

const (
	ListName   = "List"
	OptionName = "Option"
	ResultName = "Result"
	MapName    = "Map"
	SetName    = "Set"
)

// Receiver returns the receiver of a projection.
func (t Type) Receiver() Type {
	if t.Kind != KindProjection || len(t.Args) == 0 {
		return Error
	}
	return t.Args[0]
}

// Ret returns the result of a function type, or Error for other kinds.
func (t Type) Ret() Type {
	if t.Kind != KindFn || t.Result == nil {
		return Error
	}
	return *t.Result
}

func (t Type) IsVar() bool   { return t.Kind == KindVar }
func (t Type) IsError() bool { return t.Kind == KindError }
func (t Type) IsNever() bool { return t.Kind == KindPrim && t.Prim == PrimNever }
