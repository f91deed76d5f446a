package unitfile

import (
	"strings"

	"gopkg.in/yaml.v3"

	"keel/internal/ast"
	"keel/internal/source"
)

var literalKeys = map[string]ast.LitKind{
	"str":      ast.LitStr,
	"char":     ast.LitChar,
	"byte":     ast.LitByte,
	"duration": ast.LitDuration,
	"size":     ast.LitSize,
}

// parseExpr decodes one expression node. Plain scalars are identifiers or
// literals by their YAML tag; quoted scalars are string literals; mappings
// are discriminated by their first key.
func (l *loader) parseExpr(n *yaml.Node) ast.ExprID {
	switch n.Kind {
	case yaml.ScalarNode:
		return l.parseScalarExpr(n)
	case yaml.SequenceNode:
		return l.unit.Exprs.NewBlock(l.span(n), l.parseExprs(n))
	case yaml.MappingNode:
		return l.parseCompound(n)
	case yaml.AliasNode:
		l.errorf(n, "aliases are not supported in expressions")
		return ast.NoExprID
	}
	l.errorf(n, "unexpected expression node")
	return ast.NoExprID
}

func (l *loader) parseExprs(n *yaml.Node) []ast.ExprID {
	if n == nil {
		return nil
	}
	var out []ast.ExprID
	for _, c := range l.sequence(n) {
		if id := l.parseExpr(c); id.IsValid() {
			out = append(out, id)
		}
	}
	return out
}

func (l *loader) parseScalarExpr(n *yaml.Node) ast.ExprID {
	sp := l.span(n)
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		return l.unit.Exprs.NewLiteral(sp, ast.LitStr, l.intern(n.Value))
	}
	switch n.ShortTag() {
	case "!!int":
		return l.unit.Exprs.NewLiteral(sp, ast.LitInt, l.intern(n.Value))
	case "!!float":
		return l.unit.Exprs.NewLiteral(sp, ast.LitFloat, l.intern(n.Value))
	case "!!bool":
		return l.unit.Exprs.NewLiteral(sp, ast.LitBool, l.intern(strings.ToLower(n.Value)))
	case "!!null":
		return l.unit.Exprs.NewLiteral(sp, ast.LitUnit, l.intern("()"))
	}
	if !isIdent(n.Value) {
		l.errorf(n, "%q is not an identifier; quote it for a string literal", n.Value)
		return ast.NoExprID
	}
	return l.unit.Exprs.NewIdent(sp, l.intern(n.Value))
}

func (l *loader) parseCompound(n *yaml.Node) ast.ExprID {
	f, _ := asFields(n)
	sp := l.span(n)
	key := f.first()
	if kind, ok := literalKeys[key]; ok {
		v := f.get(key)
		return l.unit.Exprs.NewLiteral(sp, kind, l.intern(v.Value))
	}
	switch key {
	case "lit":
		return l.parseScalarExpr(f.get(key))
	case "call":
		callee := l.parseExpr(f.get("call"))
		if !callee.IsValid() {
			return ast.NoExprID
		}
		return l.unit.Exprs.NewCall(sp, callee, l.parseArgs(f))
	case "method":
		name := f.get("method")
		recvNode := f.get("recv")
		if recvNode == nil {
			l.errorf(n, "method call needs a recv")
			return ast.NoExprID
		}
		recv := l.parseExpr(recvNode)
		if !recv.IsValid() {
			return ast.NoExprID
		}
		return l.unit.Exprs.NewMethod(sp, recv, l.intern(name.Value), l.span(name), l.parseArgs(f))
	case "qualified":
		path := f.get("qualified")
		trait, method, ok := strings.Cut(path.Value, ".")
		if !ok || !isIdent(trait) || !isIdent(method) {
			l.errorf(path, "qualified call must name Trait.method")
			return ast.NoExprID
		}
		args := l.parseArgs(f)
		if len(args) == 0 {
			l.errorf(n, "qualified call needs the receiver as its first argument")
			return ast.NoExprID
		}
		methodSpan := l.subSpan(l.textStart(path), path.Value, method, len(trait)+1)
		return l.unit.Exprs.NewQualified(sp, l.intern(trait), l.intern(method), methodSpan, args)
	case "let":
		return l.parseLet(f, sp)
	case "block":
		return l.unit.Exprs.NewBlock(sp, l.parseExprs(f.get("block")))
	case "list":
		return l.unit.Exprs.NewList(sp, l.parseExprs(f.get("list")))
	case "tuple":
		return l.unit.Exprs.NewTuple(sp, l.parseExprs(f.get("tuple")))
	case "lambda":
		return l.parseLambda(f, sp)
	case "if":
		cond := l.parseExpr(f.get("if"))
		thenNode := f.get("then")
		if thenNode == nil {
			l.errorf(n, "if needs a then branch")
			return ast.NoExprID
		}
		then := l.parseExpr(thenNode)
		els := ast.NoExprID
		if e := f.get("else"); e != nil {
			els = l.parseExpr(e)
		}
		if !cond.IsValid() || !then.IsValid() {
			return ast.NoExprID
		}
		return l.unit.Exprs.NewIf(sp, cond, then, els)
	case "op":
		return l.parseOperator(f, sp)
	case "new":
		return l.parseStruct(f, sp)
	case "field":
		name := f.get("field")
		recvNode := f.get("recv")
		if recvNode == nil || !isIdent(name.Value) {
			l.errorf(n, "field access needs a field name and a recv")
			return ast.NoExprID
		}
		recv := l.parseExpr(recvNode)
		if !recv.IsValid() {
			return ast.NoExprID
		}
		return l.unit.Exprs.NewField(sp, recv, l.intern(name.Value), l.span(name))
	case "match":
		return l.parseMatch(f, sp)
	}
	l.errorf(n, "unknown expression form %q", key)
	return ast.NoExprID
}

func (l *loader) parseArgs(f *fields) []ast.CallArg {
	var args []ast.CallArg
	if pos := f.get("args"); pos != nil {
		for _, a := range l.sequence(pos) {
			if v := l.parseExpr(a); v.IsValid() {
				args = append(args, ast.CallArg{Span: l.span(a), Value: v})
			}
		}
	}
	if named := f.get("named"); named != nil {
		nf, ok := asFields(named)
		if !ok {
			l.errorf(named, "named arguments must be a mapping")
			return args
		}
		for i, k := range nf.keys {
			if v := l.parseExpr(nf.vals[i]); v.IsValid() {
				args = append(args, ast.CallArg{
					Name:  l.intern(k.Value),
					Span:  l.span(k).Cover(l.span(nf.vals[i])),
					Value: v,
				})
			}
		}
	}
	return args
}

// parseLet handles `let: x` with `value`, an optional `type` and an
// optional `in` body. Without `in` the binding scopes over the rest of the
// enclosing block.
func (l *loader) parseLet(f *fields, sp source.Span) ast.ExprID {
	name := f.get("let")
	valueNode := f.get("value")
	if valueNode == nil {
		l.errorf(f.node, "let needs a value")
		return ast.NoExprID
	}
	data := ast.ExprLetData{
		Name:     l.intern(name.Value),
		NameSpan: l.span(name),
		Type:     l.parseTypeNode(f.get("type")),
		Value:    l.parseExpr(valueNode),
	}
	if !data.Value.IsValid() {
		return ast.NoExprID
	}
	if body := f.get("in"); body != nil {
		data.Body = l.parseExpr(body)
	}
	return l.unit.Exprs.NewLet(sp, data)
}

func (l *loader) parseLambda(f *fields, sp source.Span) ast.ExprID {
	var params []ast.LambdaParam
	for _, p := range l.sequence(f.get("lambda")) {
		if p.Kind != yaml.ScalarNode {
			l.errorf(p, "lambda parameter must be written as \"name\" or \"name: type\"")
			continue
		}
		text := p.Value
		name, typ, hasType := strings.Cut(text, ":")
		name = strings.TrimSpace(name)
		lp := ast.LambdaParam{Name: l.intern(name), Span: l.subSpan(l.textStart(p), text, name, 0)}
		if hasType {
			base := l.textStart(p) + uint32(len(text)-len(typ)) // #nosec G115
			id, err := parseTypeText(l.unit, l.fileID, base, typ)
			if err != nil {
				l.reportTypeError(p, err)
				continue
			}
			lp.Type = id
		}
		params = append(params, lp)
	}
	bodyNode := f.get("body")
	if bodyNode == nil {
		l.errorf(f.node, "lambda needs a body")
		return ast.NoExprID
	}
	body := l.parseExpr(bodyNode)
	if !body.IsValid() {
		return ast.NoExprID
	}
	return l.unit.Exprs.NewLambda(sp, params, l.parseTypeNode(f.get("returns")), body)
}

// parseStruct reads `new: Type` with `fields: {name: value}`.
func (l *loader) parseStruct(f *fields, sp source.Span) ast.ExprID {
	typ := f.get("new")
	if !isIdent(typ.Value) {
		l.errorf(typ, "struct literal must name a type")
		return ast.NoExprID
	}
	data := ast.ExprStructData{Type: l.intern(typ.Value), TypeSpan: l.span(typ)}
	if init := f.get("fields"); init != nil {
		ff, ok := asFields(init)
		if !ok {
			l.errorf(init, "fields must map names to values")
			return ast.NoExprID
		}
		for i, k := range ff.keys {
			v := l.parseExpr(ff.vals[i])
			if !v.IsValid() {
				return ast.NoExprID
			}
			data.Fields = append(data.Fields, ast.FieldInit{Name: l.intern(k.Value), NameSpan: l.span(k), Value: v})
		}
	}
	return l.unit.Exprs.NewStruct(sp, data)
}

// parseMatch reads `match: scrutinee` with `arms: [{case: pattern, then: body}]`.
func (l *loader) parseMatch(f *fields, sp source.Span) ast.ExprID {
	scrutinee := l.parseExpr(f.get("match"))
	armsNode := f.get("arms")
	if armsNode == nil || armsNode.Kind != yaml.SequenceNode || len(armsNode.Content) == 0 {
		l.errorf(f.node, "match needs at least one arm")
		return ast.NoExprID
	}
	arms := make([]ast.MatchArm, 0, len(armsNode.Content))
	for _, a := range armsNode.Content {
		af, ok := asFields(a)
		if !ok || !af.has("case") || !af.has("then") {
			l.errorf(a, "match arm needs case and then")
			return ast.NoExprID
		}
		pat, ok := l.parseCase(af.get("case"))
		body := l.parseExpr(af.get("then"))
		if !ok || !body.IsValid() {
			return ast.NoExprID
		}
		arms = append(arms, ast.MatchArm{Span: l.span(a), Pattern: pat, Body: body})
	}
	if !scrutinee.IsValid() {
		return ast.NoExprID
	}
	return l.unit.Exprs.NewMatch(sp, scrutinee, arms)
}

// parseOperator reads `op` with `args: [l, r]` for binary operators or `arg`
// for prefix ones.
func (l *loader) parseOperator(f *fields, sp source.Span) ast.ExprID {
	opNode := f.get("op")
	if arg := f.get("arg"); arg != nil {
		var op ast.UnaryOp
		switch opNode.Value {
		case "-":
			op = ast.UnaryNeg
		case "!":
			op = ast.UnaryNot
		default:
			l.errorf(opNode, "unknown prefix operator %q", opNode.Value)
			return ast.NoExprID
		}
		operand := l.parseExpr(arg)
		if !operand.IsValid() {
			return ast.NoExprID
		}
		return l.unit.Exprs.NewUnary(sp, op, operand)
	}
	op, ok := ast.ParseBinaryOp(opNode.Value)
	if !ok {
		l.errorf(opNode, "unknown operator %q", opNode.Value)
		return ast.NoExprID
	}
	argsNode := f.get("args")
	if argsNode == nil || argsNode.Kind != yaml.SequenceNode || len(argsNode.Content) != 2 {
		l.errorf(f.node, "operator %s needs exactly two args", op)
		return ast.NoExprID
	}
	left := l.parseExpr(argsNode.Content[0])
	right := l.parseExpr(argsNode.Content[1])
	if !left.IsValid() || !right.IsValid() {
		return ast.NoExprID
	}
	return l.unit.Exprs.NewBinary(sp, op, left, right)
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		case r > 0x7f:
		default:
			return false
		}
	}
	return true
}
