package ast

import (
	"keel/internal/source"
)

// ExprKind enumerates the different kinds of expressions.
type ExprKind uint8

const (
	ExprLit ExprKind = iota
	ExprIdent
	// ExprCall is callee(args), arguments positional or named.
	ExprCall
	// ExprMethod is receiver.method(args).
	ExprMethod
	// ExprQualified is Trait.method(receiver, args).
	ExprQualified
	// ExprLet binds Name in Body, or in the rest of the enclosing block when Body is absent.
	ExprLet
	ExprBlock
	ExprList
	ExprTuple
	ExprLambda
	ExprIf
	ExprBinary
	ExprUnary
	// ExprStruct is Name { field: value, ... }.
	ExprStruct
	// ExprField is receiver.name.
	ExprField
	ExprMatch
)

func (k ExprKind) String() string {
	switch k {
	case ExprLit:
		return "literal"
	case ExprIdent:
		return "identifier"
	case ExprCall:
		return "call"
	case ExprMethod:
		return "method call"
	case ExprQualified:
		return "qualified call"
	case ExprLet:
		return "let"
	case ExprBlock:
		return "block"
	case ExprList:
		return "list"
	case ExprTuple:
		return "tuple"
	case ExprLambda:
		return "lambda"
	case ExprIf:
		return "if"
	case ExprBinary:
		return "binary"
	case ExprUnary:
		return "unary"
	case ExprStruct:
		return "struct literal"
	case ExprField:
		return "field access"
	case ExprMatch:
		return "match"
	}
	return "expr"
}

// Expr represents an expression node; Payload indexes the per-kind arena.
type Expr struct {
	Kind    ExprKind
	Span    source.Span
	Payload PayloadID
}

// LitKind enumerates literal forms.
type LitKind uint8

const (
	LitInt LitKind = iota
	LitFloat
	LitBool
	LitStr
	LitChar
	LitByte
	LitUnit
	LitDuration
	LitSize
)

func (k LitKind) String() string {
	switch k {
	case LitInt:
		return "int"
	case LitFloat:
		return "float"
	case LitBool:
		return "bool"
	case LitStr:
		return "str"
	case LitChar:
		return "char"
	case LitByte:
		return "byte"
	case LitUnit:
		return "unit"
	case LitDuration:
		return "duration"
	case LitSize:
		return "size"
	}
	return "literal"
}

// BinaryOp enumerates binary operators.
type BinaryOp uint8

const (
	BinaryAdd BinaryOp = iota
	BinarySub
	BinaryMul
	BinaryDiv
	BinaryMod
	BinaryEq
	BinaryNotEq
	BinaryLess
	BinaryLessEq
	BinaryGreater
	BinaryGreaterEq
	BinaryAnd
	BinaryOr
)

var binaryOpText = [...]string{
	BinaryAdd:       "+",
	BinarySub:       "-",
	BinaryMul:       "*",
	BinaryDiv:       "/",
	BinaryMod:       "%",
	BinaryEq:        "==",
	BinaryNotEq:     "!=",
	BinaryLess:      "<",
	BinaryLessEq:    "<=",
	BinaryGreater:   ">",
	BinaryGreaterEq: ">=",
	BinaryAnd:       "&&",
	BinaryOr:        "||",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpText) {
		return binaryOpText[op]
	}
	return "?"
}

// ParseBinaryOp maps operator text back to its BinaryOp.
func ParseBinaryOp(s string) (BinaryOp, bool) {
	for i, text := range binaryOpText {
		if text == s {
			return BinaryOp(i), true // #nosec G115 -- table is tiny
		}
	}
	return 0, false
}

func (op BinaryOp) IsArithmetic() bool { return op <= BinaryMod }
func (op BinaryOp) IsComparison() bool { return op >= BinaryEq && op <= BinaryGreaterEq }
func (op BinaryOp) IsLogical() bool    { return op == BinaryAnd || op == BinaryOr }

// UnaryOp enumerates prefix operators.
type UnaryOp uint8

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
)

func (op UnaryOp) String() string {
	if op == UnaryNot {
		return "!"
	}
	return "-"
}

type ExprLitData struct {
	Kind  LitKind
	Value source.StringID
}

type ExprIdentData struct {
	Name source.StringID
}

// CallArg is one argument; Name is NoStringID for positional arguments.
type CallArg struct {
	Name  source.StringID
	Span  source.Span
	Value ExprID
}

type ExprCallData struct {
	Callee ExprID
	Args   []CallArg
}

type ExprMethodData struct {
	Receiver   ExprID
	Method     source.StringID
	MethodSpan source.Span
	Args       []CallArg
}

// ExprQualifiedData is Trait.method(args); Args[0] is the receiver.
type ExprQualifiedData struct {
	Trait      source.StringID
	Method     source.StringID
	MethodSpan source.Span
	Args       []CallArg
}

type ExprLetData struct {
	Name     source.StringID
	NameSpan source.Span
	Type     TypeExprID
	Value    ExprID
	Body     ExprID
}

type ExprBlockData struct {
	Items []ExprID
}

type ExprListData struct {
	Elems []ExprID
}

type ExprTupleData struct {
	Elems []ExprID
}

type LambdaParam struct {
	Name source.StringID
	Span source.Span
	Type TypeExprID
}

type ExprLambdaData struct {
	Params []LambdaParam
	Result TypeExprID
	Body   ExprID
}

type ExprIfData struct {
	Cond ExprID
	Then ExprID
	Else ExprID
}

type ExprBinaryData struct {
	Op    BinaryOp
	Left  ExprID
	Right ExprID
}

type ExprUnaryData struct {
	Op      UnaryOp
	Operand ExprID
}

type FieldInit struct {
	Name     source.StringID
	NameSpan source.Span
	Value    ExprID
}

type ExprStructData struct {
	Type     source.StringID
	TypeSpan source.Span
	Fields   []FieldInit
}

type ExprFieldData struct {
	Receiver ExprID
	Name     source.StringID
	NameSpan source.Span
}

// MatchArm is `case Pattern then Body`.
type MatchArm struct {
	Span    source.Span
	Pattern Pattern
	Body    ExprID
}

type ExprMatchData struct {
	Scrutinee ExprID
	Arms      []MatchArm
}
