package sema

import (
	"strings"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/scheme"
	"keel/internal/source"
	"keel/internal/traits"
	"keel/internal/types"
)

// typeStruct checks a struct literal. Type arguments come from want when it
// names the same type, otherwise from fresh variables solved by the fields.
func (tc *typeChecker) typeStruct(sp source.Span, data *ast.ExprStructData, want types.Type) types.Type {
	name := tc.unit.Name(data.Type)
	info, ok := tc.reg.Type(name)
	switch {
	case !ok:
		tc.report(diag.UnknownType, data.TypeSpan, "cannot find type `%s` in this scope", name)
		tc.typeFieldsLoose(data.Fields)
		return types.Error
	case !info.Struct:
		b := diag.ReportError(tc.reporter, diag.NotAStruct, data.TypeSpan, "`"+name+"` is not a struct and has no fields to initialize")
		if info.Span != (source.Span{}) {
			b.WithNote(info.Span, "`"+name+"` declared here")
		}
		b.Emit()
		tc.typeFieldsLoose(data.Fields)
		return types.Error
	}

	args := make([]types.Type, len(info.Vars))
	w := tc.unifier.Normalize(want)
	hint := w.Kind == types.KindApplied && w.Name == name && len(w.Args) == len(args)
	mapping := make(map[types.VarID]types.Type, len(args))
	for i, v := range info.Vars {
		if hint {
			args[i] = w.Args[i]
		} else {
			args[i] = tc.fresh.Var()
		}
		mapping[v] = args[i]
	}

	seen := make(map[string]bool, len(data.Fields))
	for _, init := range data.Fields {
		field := tc.unit.Name(init.Name)
		def, ok := info.Field(field)
		switch {
		case seen[field]:
			tc.report(diag.DuplicateDefinition, init.NameSpan, "field `%s` is specified more than once", field)
			tc.typeExpr(init.Value, noType)
		case !ok:
			b := diag.ReportError(tc.reporter, diag.UnknownField, init.NameSpan,
				"struct `"+name+"` has no field named `"+field+"`")
			if names := fieldNames(info); names != "" {
				b.WithNote(info.Span, "available fields are: "+names)
			}
			b.Emit()
			tc.typeExpr(init.Value, noType)
		default:
			tc.typeExpr(init.Value, scheme.Substitute(def.Type, mapping))
		}
		seen[field] = true
	}

	var missing []string
	for _, f := range info.Fields {
		if !seen[f.Name] {
			missing = append(missing, "`"+f.Name+"`")
		}
	}
	if len(missing) > 0 {
		noun := "field"
		if len(missing) > 1 {
			noun = "fields"
		}
		tc.report(diag.MissingField, sp, "missing %s %s in initializer of `%s`", noun, strings.Join(missing, ", "), name)
	}
	return types.MakeApplied(name, args...)
}

func (tc *typeChecker) typeFieldsLoose(fields []ast.FieldInit) {
	for _, f := range fields {
		tc.typeExpr(f.Value, noType)
	}
}

// typeField reads a field of a struct value. The receiver's type must be
// known at this point; fields do not drive inference backwards.
func (tc *typeChecker) typeField(data *ast.ExprFieldData) types.Type {
	recv := tc.unifier.Normalize(tc.typeExpr(data.Receiver, noType))
	name := tc.unit.Name(data.Name)
	switch {
	case recv.IsError():
		return types.Error
	case recv.Kind == types.KindVar:
		tc.report(diag.TypeAnnotationsNeeded, tc.exprSpan(data.Receiver),
			"type annotations needed: the type of this value must be known to access `.%s`", name)
		tc.poison(recv)
		return types.Error
	}
	info, ok := tc.reg.Type(types.Head(recv))
	if !ok || !info.Struct {
		tc.report(diag.NotAStruct, data.NameSpan, "no field `%s` on type `%s`", name, tc.label(recv))
		return types.Error
	}
	def, ok := info.Field(name)
	if !ok {
		b := diag.ReportError(tc.reporter, diag.UnknownField, data.NameSpan,
			"no field `"+name+"` on type `"+tc.label(recv)+"`")
		if names := fieldNames(info); names != "" {
			b.WithNote(info.Span, "available fields are: "+names)
		}
		b.Emit()
		return types.Error
	}
	mapping := make(map[types.VarID]types.Type, len(info.Vars))
	for i, v := range info.Vars {
		if i < len(recv.Args) {
			mapping[v] = recv.Args[i]
		}
	}
	return scheme.Substitute(def.Type, mapping)
}

func fieldNames(info traits.TypeInfo) string {
	names := make([]string, len(info.Fields))
	for i, f := range info.Fields {
		names[i] = "`" + f.Name + "`"
	}
	return strings.Join(names, ", ")
}
