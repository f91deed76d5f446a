// Package unitfile reads a compilation unit written as a YAML (or JSON)
// declaration tree. Spans point back into the unit file itself.
package unitfile

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/source"
)

type loader struct {
	fs     *source.FileSet
	file   *source.File
	fileID source.FileID
	unit   *ast.Unit
	r      diag.Reporter
	module source.StringID
}

// Load reads path into fs and parses it. Only IO failures are returned as
// errors; malformed content is reported through r.
func Load(fs *source.FileSet, path string, r diag.Reporter) (*ast.Unit, source.FileID, error) {
	id, err := fs.Load(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read unit %s: %w", path, err)
	}
	return Parse(fs, id, r), id, nil
}

// ParseBytes registers content as a virtual file and parses it.
func ParseBytes(fs *source.FileSet, name string, content []byte, r diag.Reporter) *ast.Unit {
	return Parse(fs, fs.AddVirtual(name, content), r)
}

// Parse builds a unit from an already loaded file. The returned unit is
// never nil; declarations that fail to parse are skipped.
func Parse(fs *source.FileSet, id source.FileID, r diag.Reporter) *ast.Unit {
	l := &loader{
		fs:     fs,
		file:   fs.Get(id),
		fileID: id,
		unit:   ast.NewUnit(ast.Hints{}),
		r:      r,
	}
	l.unit.Files = fs
	var doc yaml.Node
	if err := yaml.Unmarshal(l.file.Content, &doc); err != nil {
		l.reportYAML(err)
		return l.unit
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return l.unit
	}
	l.parseRoot(doc.Content[0])
	return l.unit
}

func (l *loader) reportYAML(err error) {
	sp := source.Span{File: l.fileID}
	var terr *yaml.TypeError
	if !errors.As(err, &terr) {
		// yaml.v3 formats syntax errors as "yaml: line N: ..."
		var line int
		if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil && line > 0 {
			off := l.file.Offset(source.LineCol{Line: uint32(line), Col: 1}) // #nosec G115
			sp = source.Span{File: l.fileID, Start: off, End: off}
		}
	}
	diag.ReportError(l.r, diag.UnitMalformed, sp, err.Error()).Emit()
}

func (l *loader) errorf(n *yaml.Node, format string, args ...any) {
	diag.ReportError(l.r, diag.UnitMalformed, l.span(n), fmt.Sprintf(format, args...)).Emit()
}

func (l *loader) intern(s string) source.StringID {
	return l.unit.Strings.Intern(s)
}

func (l *loader) parseRoot(root *yaml.Node) {
	f, ok := asFields(root)
	if !ok {
		l.errorf(root, "unit must be a mapping with a modules list")
		return
	}
	modules := f.get("modules")
	if modules == nil || modules.Kind != yaml.SequenceNode {
		l.errorf(root, "unit has no modules list")
		return
	}
	explicitLocal := false
	if local := f.get("local"); local != nil {
		explicitLocal = true
		for _, n := range l.sequence(local) {
			l.unit.Local = append(l.unit.Local, l.intern(n.Value))
		}
	}
	for _, m := range modules.Content {
		mf, ok := asFields(m)
		if !ok || mf.get("name") == nil {
			l.errorf(m, "module entry needs a name")
			continue
		}
		l.module = l.intern(mf.get("name").Value)
		if !explicitLocal && !l.unit.OwnsModule(l.module) {
			l.unit.Local = append(l.unit.Local, l.module)
		}
		decls := mf.get("decls")
		if decls == nil {
			continue
		}
		for _, d := range l.sequence(decls) {
			if id := l.parseDecl(d); id.IsValid() {
				l.unit.Push(id)
			}
		}
	}
}

// sequence returns the items of a sequence; a lone scalar counts as one item.
func (l *loader) sequence(n *yaml.Node) []*yaml.Node {
	switch n.Kind {
	case yaml.SequenceNode:
		return n.Content
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return nil
		}
		return []*yaml.Node{n}
	}
	l.errorf(n, "expected a list")
	return nil
}

func (l *loader) parseDecl(n *yaml.Node) ast.DeclID {
	f, ok := asFields(n)
	if !ok {
		l.errorf(n, "declaration must be a mapping")
		return ast.NoDeclID
	}
	switch f.first() {
	case "fn":
		return l.parseFn(f)
	case "type":
		return l.parseTypeDecl(f)
	case "trait":
		return l.parseTrait(f)
	case "impl":
		return l.parseImpl(f)
	case "extend":
		return l.parseExtend(f)
	}
	l.errorf(n, "unknown declaration kind %q", f.first())
	return ast.NoDeclID
}

func (l *loader) head(f *fields, key string) ast.Decl {
	nameNode := f.get(key)
	return ast.Decl{
		Span:     l.span(f.node),
		Module:   l.module,
		Name:     l.intern(nameNode.Value),
		NameSpan: l.span(nameNode),
	}
}

func (l *loader) parseFn(f *fields) ast.DeclID {
	head := l.head(f, "fn")
	fn := ast.FnDecl{
		Generics: l.parseGenerics(f.get("generics")),
		Result:   l.parseTypeNode(f.get("returns")),
	}
	if params := f.get("params"); params != nil {
		for _, p := range l.sequence(params) {
			if param, ok := l.parseParam(p); ok {
				fn.Params = append(fn.Params, param)
			}
		}
	}
	if body := f.get("body"); body != nil {
		fn.Body = l.parseExpr(body)
	}
	return l.unit.Decls.NewFn(head, fn)
}

func (l *loader) parseTypeDecl(f *fields) ast.DeclID {
	td := ast.TypeDecl{
		Generics: l.parseGenerics(f.get("generics")),
		Struct:   f.has("fields"),
	}
	if fl := f.get("fields"); fl != nil {
		td.Fields = l.parseFields(fl)
	}
	return l.unit.Decls.NewType(l.head(f, "type"), td)
}

func (l *loader) parseFields(n *yaml.Node) []ast.Field {
	var out []ast.Field
	for _, item := range l.sequence(n) {
		p, ok := l.parseParam(item)
		if !ok {
			continue
		}
		if !p.Type.IsValid() {
			l.errorf(item, "field %q needs a type", item.Value)
			continue
		}
		out = append(out, ast.Field{Name: p.Name, Span: p.Span, Type: p.Type})
	}
	return out
}

func (l *loader) parseTrait(f *fields) ast.DeclID {
	td := ast.TraitDecl{}
	if supers := f.get("supers"); supers != nil {
		for _, s := range l.sequence(supers) {
			td.Supers = append(td.Supers, ast.TraitRef{Name: l.intern(s.Value), Span: l.span(s)})
		}
	}
	if assoc := f.get("assoc"); assoc != nil {
		for _, a := range l.sequence(assoc) {
			td.Assoc = append(td.Assoc, ast.AssocDecl{Name: l.intern(a.Value), Span: l.span(a)})
		}
	}
	td.Methods = l.parseMethods(f.get("methods"))
	return l.unit.Decls.NewTrait(l.head(f, "trait"), td)
}

// parseImpl accepts `impl: Trait` with `for: Type`, or `impl: Type` alone for
// an inherent impl.
func (l *loader) parseImpl(f *fields) ast.DeclID {
	head := l.head(f, "impl")
	impl := ast.ImplDecl{
		Generics: l.parseGenerics(f.get("generics")),
		Methods:  l.parseMethods(f.get("methods")),
	}
	if target := f.get("for"); target != nil {
		impl.Target = l.parseTypeNode(target)
	} else {
		impl.Target = l.parseTypeNode(f.get("impl"))
		head.Name = source.NoStringID
	}
	if assoc := f.get("assoc"); assoc != nil {
		af, ok := asFields(assoc)
		if !ok {
			l.errorf(assoc, "assoc must map names to types")
		} else {
			for i, k := range af.keys {
				impl.Assoc = append(impl.Assoc, ast.AssocBinding{
					Name: l.intern(k.Value),
					Span: l.span(k).Cover(l.span(af.vals[i])),
					Type: l.parseTypeNode(af.vals[i]),
				})
			}
		}
	}
	return l.unit.Decls.NewImpl(head, impl)
}

func (l *loader) parseExtend(f *fields) ast.DeclID {
	head := l.head(f, "extend")
	head.Name = source.NoStringID
	return l.unit.Decls.NewExtend(head, ast.ExtendDecl{
		Generics: l.parseGenerics(f.get("generics")),
		Target:   l.parseTypeNode(f.get("extend")),
		Methods:  l.parseMethods(f.get("methods")),
	})
}

func (l *loader) parseMethods(n *yaml.Node) []ast.DeclID {
	if n == nil {
		return nil
	}
	var out []ast.DeclID
	for _, m := range l.sequence(n) {
		f, ok := asFields(m)
		if !ok || f.first() != "fn" {
			l.errorf(m, "methods must be fn declarations")
			continue
		}
		out = append(out, l.parseFn(f))
	}
	return out
}

// parseGenerics reads entries such as "T" or "T: Shape + Show".
func (l *loader) parseGenerics(n *yaml.Node) []ast.GenericParam {
	if n == nil {
		return nil
	}
	var out []ast.GenericParam
	for _, g := range l.sequence(n) {
		text := g.Value
		base := l.textStart(g)
		name, rest, hasBounds := strings.Cut(text, ":")
		gp := ast.GenericParam{
			Name: l.intern(strings.TrimSpace(name)),
			Span: l.subSpan(base, text, strings.TrimSpace(name), 0),
		}
		if hasBounds {
			offset := len(name) + 1
			for _, bound := range strings.Split(rest, "+") {
				trimmed := strings.TrimSpace(bound)
				if trimmed != "" {
					gp.Bounds = append(gp.Bounds, ast.TraitRef{
						Name: l.intern(trimmed),
						Span: l.subSpan(base, text, trimmed, offset),
					})
				}
				offset += len(bound) + 1
			}
		}
		out = append(out, gp)
	}
	return out
}

// subSpan locates part inside text (searching from offset) relative to base.
func (l *loader) subSpan(base uint32, text, part string, offset int) source.Span {
	idx := strings.Index(text[offset:], part)
	if idx < 0 {
		idx = 0
	}
	start := base + uint32(offset+idx) // #nosec G115
	return source.Span{File: l.fileID, Start: start, End: start + uint32(len(part))} // #nosec G115
}

// parseParam reads "self", "self: Self" or "name: Type".
func (l *loader) parseParam(n *yaml.Node) (ast.Param, bool) {
	if n.Kind != yaml.ScalarNode {
		l.errorf(n, "parameter must be written as \"name: type\"")
		return ast.Param{}, false
	}
	text := n.Value
	base := l.textStart(n)
	name, typ, hasType := strings.Cut(text, ":")
	name = strings.TrimSpace(name)
	p := ast.Param{Name: l.intern(name), Span: l.subSpan(base, text, name, 0)}
	if !hasType {
		if name != "self" {
			l.errorf(n, "parameter %q needs a type", name)
			return ast.Param{}, false
		}
		return p, true
	}
	id, err := parseTypeText(l.unit, l.fileID, base+uint32(len(text)-len(typ)), typ) // #nosec G115
	if err != nil {
		l.reportTypeError(n, err)
		return ast.Param{}, false
	}
	p.Type = id
	return p, true
}

func (l *loader) parseTypeNode(n *yaml.Node) ast.TypeExprID {
	if n == nil || n.ShortTag() == "!!null" {
		return ast.NoTypeExprID
	}
	if n.Kind != yaml.ScalarNode {
		l.errorf(n, "type must be written as text")
		return ast.NoTypeExprID
	}
	id, err := parseTypeText(l.unit, l.fileID, l.textStart(n), n.Value)
	if err != nil {
		l.reportTypeError(n, err)
		return ast.NoTypeExprID
	}
	return id
}

func (l *loader) reportTypeError(n *yaml.Node, err error) {
	l.reportSyntax(n, "type", err)
}

func (l *loader) reportSyntax(n *yaml.Node, what string, err error) {
	var syn *typeSyntaxError
	if errors.As(err, &syn) {
		sp := source.Span{File: l.fileID, Start: syn.off, End: syn.off + 1}
		diag.ReportError(l.r, diag.UnitMalformed, sp, "invalid "+what+": "+syn.msg).Emit()
		return
	}
	l.errorf(n, "invalid %s: %v", what, err)
}
