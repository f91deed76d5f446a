package ast

import (
	"keel/internal/source"
)

// Exprs manages allocation of expressions.
type Exprs struct {
	Arena      *Arena[Expr]
	Literals   *Arena[ExprLitData]
	Idents     *Arena[ExprIdentData]
	Calls      *Arena[ExprCallData]
	Methods    *Arena[ExprMethodData]
	Qualifieds *Arena[ExprQualifiedData]
	Lets       *Arena[ExprLetData]
	Blocks     *Arena[ExprBlockData]
	Lists      *Arena[ExprListData]
	Tuples     *Arena[ExprTupleData]
	Lambdas    *Arena[ExprLambdaData]
	Ifs        *Arena[ExprIfData]
	Binaries   *Arena[ExprBinaryData]
	Unaries    *Arena[ExprUnaryData]
	Structs    *Arena[ExprStructData]
	Fields     *Arena[ExprFieldData]
	Matches    *Arena[ExprMatchData]
}

// NewExprs preallocates every per-kind arena with capHint (default 256).
func NewExprs(capHint uint) *Exprs {
	if capHint == 0 {
		capHint = 1 << 8
	}
	return &Exprs{
		Arena:      NewArena[Expr](capHint),
		Literals:   NewArena[ExprLitData](capHint),
		Idents:     NewArena[ExprIdentData](capHint),
		Calls:      NewArena[ExprCallData](capHint / 4),
		Methods:    NewArena[ExprMethodData](capHint / 4),
		Qualifieds: NewArena[ExprQualifiedData](capHint / 8),
		Lets:       NewArena[ExprLetData](capHint / 4),
		Blocks:     NewArena[ExprBlockData](capHint / 4),
		Lists:      NewArena[ExprListData](capHint / 8),
		Tuples:     NewArena[ExprTupleData](capHint / 8),
		Lambdas:    NewArena[ExprLambdaData](capHint / 8),
		Ifs:        NewArena[ExprIfData](capHint / 8),
		Binaries:   NewArena[ExprBinaryData](capHint / 4),
		Unaries:    NewArena[ExprUnaryData](capHint / 8),
		Structs:    NewArena[ExprStructData](capHint / 8),
		Fields:     NewArena[ExprFieldData](capHint / 8),
		Matches:    NewArena[ExprMatchData](capHint / 16),
	}
}

func (e *Exprs) new(kind ExprKind, span source.Span, payload uint32) ExprID {
	return ExprID(e.Arena.Allocate(Expr{
		Kind:    kind,
		Span:    span,
		Payload: PayloadID(payload),
	}))
}

// Get returns the expression with the given ID.
func (e *Exprs) Get(id ExprID) *Expr {
	return e.Arena.Get(uint32(id))
}

// Len is the number of allocated expressions; ids run from 1 to Len.
func (e *Exprs) Len() uint32 {
	return e.Arena.Len()
}

func payloadOf[T any](e *Exprs, id ExprID, kind ExprKind, arena *Arena[T]) (*T, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != kind {
		return nil, false
	}
	return arena.Get(uint32(expr.Payload)), true
}

func (e *Exprs) NewLiteral(span source.Span, kind LitKind, value source.StringID) ExprID {
	return e.new(ExprLit, span, e.Literals.Allocate(ExprLitData{Kind: kind, Value: value}))
}

func (e *Exprs) Literal(id ExprID) (*ExprLitData, bool) {
	return payloadOf(e, id, ExprLit, e.Literals)
}

func (e *Exprs) NewIdent(span source.Span, name source.StringID) ExprID {
	return e.new(ExprIdent, span, e.Idents.Allocate(ExprIdentData{Name: name}))
}

func (e *Exprs) Ident(id ExprID) (*ExprIdentData, bool) {
	return payloadOf(e, id, ExprIdent, e.Idents)
}

func (e *Exprs) NewCall(span source.Span, callee ExprID, args []CallArg) ExprID {
	return e.new(ExprCall, span, e.Calls.Allocate(ExprCallData{Callee: callee, Args: args}))
}

func (e *Exprs) Call(id ExprID) (*ExprCallData, bool) {
	return payloadOf(e, id, ExprCall, e.Calls)
}

func (e *Exprs) NewMethod(span source.Span, recv ExprID, method source.StringID, methodSpan source.Span, args []CallArg) ExprID {
	return e.new(ExprMethod, span, e.Methods.Allocate(ExprMethodData{
		Receiver:   recv,
		Method:     method,
		MethodSpan: methodSpan,
		Args:       args,
	}))
}

func (e *Exprs) Method(id ExprID) (*ExprMethodData, bool) {
	return payloadOf(e, id, ExprMethod, e.Methods)
}

func (e *Exprs) NewQualified(span source.Span, trait, method source.StringID, methodSpan source.Span, args []CallArg) ExprID {
	return e.new(ExprQualified, span, e.Qualifieds.Allocate(ExprQualifiedData{
		Trait:      trait,
		Method:     method,
		MethodSpan: methodSpan,
		Args:       args,
	}))
}

func (e *Exprs) Qualified(id ExprID) (*ExprQualifiedData, bool) {
	return payloadOf(e, id, ExprQualified, e.Qualifieds)
}

func (e *Exprs) NewLet(span source.Span, data ExprLetData) ExprID {
	return e.new(ExprLet, span, e.Lets.Allocate(data))
}

func (e *Exprs) Let(id ExprID) (*ExprLetData, bool) {
	return payloadOf(e, id, ExprLet, e.Lets)
}

func (e *Exprs) NewBlock(span source.Span, items []ExprID) ExprID {
	return e.new(ExprBlock, span, e.Blocks.Allocate(ExprBlockData{Items: items}))
}

func (e *Exprs) Block(id ExprID) (*ExprBlockData, bool) {
	return payloadOf(e, id, ExprBlock, e.Blocks)
}

func (e *Exprs) NewList(span source.Span, elems []ExprID) ExprID {
	return e.new(ExprList, span, e.Lists.Allocate(ExprListData{Elems: elems}))
}

func (e *Exprs) List(id ExprID) (*ExprListData, bool) {
	return payloadOf(e, id, ExprList, e.Lists)
}

func (e *Exprs) NewTuple(span source.Span, elems []ExprID) ExprID {
	return e.new(ExprTuple, span, e.Tuples.Allocate(ExprTupleData{Elems: elems}))
}

func (e *Exprs) Tuple(id ExprID) (*ExprTupleData, bool) {
	return payloadOf(e, id, ExprTuple, e.Tuples)
}

func (e *Exprs) NewLambda(span source.Span, params []LambdaParam, result TypeExprID, body ExprID) ExprID {
	return e.new(ExprLambda, span, e.Lambdas.Allocate(ExprLambdaData{Params: params, Result: result, Body: body}))
}

func (e *Exprs) Lambda(id ExprID) (*ExprLambdaData, bool) {
	return payloadOf(e, id, ExprLambda, e.Lambdas)
}

func (e *Exprs) NewIf(span source.Span, cond, then, els ExprID) ExprID {
	return e.new(ExprIf, span, e.Ifs.Allocate(ExprIfData{Cond: cond, Then: then, Else: els}))
}

func (e *Exprs) If(id ExprID) (*ExprIfData, bool) {
	return payloadOf(e, id, ExprIf, e.Ifs)
}

func (e *Exprs) NewBinary(span source.Span, op BinaryOp, left, right ExprID) ExprID {
	return e.new(ExprBinary, span, e.Binaries.Allocate(ExprBinaryData{Op: op, Left: left, Right: right}))
}

func (e *Exprs) Binary(id ExprID) (*ExprBinaryData, bool) {
	return payloadOf(e, id, ExprBinary, e.Binaries)
}

func (e *Exprs) NewUnary(span source.Span, op UnaryOp, operand ExprID) ExprID {
	return e.new(ExprUnary, span, e.Unaries.Allocate(ExprUnaryData{Op: op, Operand: operand}))
}

func (e *Exprs) Unary(id ExprID) (*ExprUnaryData, bool) {
	return payloadOf(e, id, ExprUnary, e.Unaries)
}

func (e *Exprs) NewStruct(span source.Span, data ExprStructData) ExprID {
	return e.new(ExprStruct, span, e.Structs.Allocate(data))
}

func (e *Exprs) Struct(id ExprID) (*ExprStructData, bool) {
	return payloadOf(e, id, ExprStruct, e.Structs)
}

func (e *Exprs) NewField(span source.Span, recv ExprID, name source.StringID, nameSpan source.Span) ExprID {
	return e.new(ExprField, span, e.Fields.Allocate(ExprFieldData{Receiver: recv, Name: name, NameSpan: nameSpan}))
}

func (e *Exprs) Field(id ExprID) (*ExprFieldData, bool) {
	return payloadOf(e, id, ExprField, e.Fields)
}

func (e *Exprs) NewMatch(span source.Span, scrutinee ExprID, arms []MatchArm) ExprID {
	return e.new(ExprMatch, span, e.Matches.Allocate(ExprMatchData{Scrutinee: scrutinee, Arms: arms}))
}

func (e *Exprs) Match(id ExprID) (*ExprMatchData, bool) {
	return payloadOf(e, id, ExprMatch, e.Matches)
}

// Children lists the direct sub-expressions of id in evaluation order.
func (e *Exprs) Children(id ExprID) []ExprID {
	expr := e.Get(id)
	if expr == nil {
		return nil
	}
	argValues := func(args []CallArg) []ExprID {
		out := make([]ExprID, 0, len(args))
		for _, a := range args {
			out = append(out, a.Value)
		}
		return out
	}
	var out []ExprID
	switch expr.Kind {
	case ExprCall:
		c, _ := e.Call(id)
		out = append([]ExprID{c.Callee}, argValues(c.Args)...)
	case ExprMethod:
		m, _ := e.Method(id)
		out = append([]ExprID{m.Receiver}, argValues(m.Args)...)
	case ExprQualified:
		q, _ := e.Qualified(id)
		out = argValues(q.Args)
	case ExprLet:
		l, _ := e.Let(id)
		out = []ExprID{l.Value, l.Body}
	case ExprBlock:
		b, _ := e.Block(id)
		out = b.Items
	case ExprList:
		l, _ := e.List(id)
		out = l.Elems
	case ExprTuple:
		tu, _ := e.Tuple(id)
		out = tu.Elems
	case ExprLambda:
		l, _ := e.Lambda(id)
		out = []ExprID{l.Body}
	case ExprIf:
		i, _ := e.If(id)
		out = []ExprID{i.Cond, i.Then, i.Else}
	case ExprBinary:
		b, _ := e.Binary(id)
		out = []ExprID{b.Left, b.Right}
	case ExprUnary:
		u, _ := e.Unary(id)
		out = []ExprID{u.Operand}
	case ExprStruct:
		st, _ := e.Struct(id)
		for _, f := range st.Fields {
			out = append(out, f.Value)
		}
	case ExprField:
		f, _ := e.Field(id)
		out = []ExprID{f.Receiver}
	case ExprMatch:
		m, _ := e.Match(id)
		out = append(out, m.Scrutinee)
		for _, arm := range m.Arms {
			out = append(out, arm.Body)
		}
	}
	valid := out[:0:0]
	for _, c := range out {
		if c.IsValid() {
			valid = append(valid, c)
		}
	}
	return valid
}
