package coherence

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"keel/internal/diag"
	"keel/internal/source"
	"keel/internal/traits"
)

// checkDiamond reports a method default supplied by two supertraits of def
// when def does not declare the method itself. A default in a trait
// overrides the defaults of that trait's own supertraits.
func (c *checker) checkDiamond(def *traits.TraitDef) {
	providers := make(map[string][]traits.TraitID)
	var order []string
	for _, sid := range c.reg.Supertraits(def.ID) {
		sup := c.reg.TraitByID(sid)
		for i := range sup.Methods {
			m := &sup.Methods[i]
			if !m.HasDefault {
				continue
			}
			if _, own := def.Method(m.Name); own {
				continue
			}
			if _, ok := providers[m.Name]; !ok {
				order = append(order, m.Name)
			}
			providers[m.Name] = append(providers[m.Name], sid)
		}
	}
	for _, name := range order {
		ids := c.mostSpecific(providers[name])
		if len(ids) < 2 {
			continue
		}
		first, second := c.reg.TraitByID(ids[0]), c.reg.TraitByID(ids[1])
		m1, _ := first.Method(name)
		m2, _ := second.Method(name)
		var edits []diag.FixEdit
		if edit, ok := c.overrideEdit(def, m1); ok {
			edits = append(edits, edit)
		}
		c.errorf(diag.ConflictingDefault, def.NameSpan,
			"trait `%s` inherits conflicting default implementations of `%s` from `%s` and `%s`", def.Name, name, first.Name, second.Name).
			WithNote(m1.NameSpan, fmt.Sprintf("default provided by `%s`", first.Name)).
			WithNote(m2.NameSpan, fmt.Sprintf("default provided by `%s`", second.Name)).
			WithFix(fmt.Sprintf("override `%s` in `%s`", name, def.Name), edits...).
			Emit()
	}
}

// overrideEdit copies the provider's declaration of a method into def,
// after def's last method or under a new methods key. Only block-style
// declarations are edited.
func (c *checker) overrideEdit(def *traits.TraitDef, provider *traits.MethodSig) (diag.FixEdit, bool) {
	unit := c.reg.Unit()
	if unit == nil || unit.Files == nil {
		return diag.FixEdit{}, false
	}
	text, ok := unit.Text(provider.Span)
	if !ok {
		return diag.FixEdit{}, false
	}
	file := unit.Files.Get(def.Span.File)
	if file == nil || provider.Span.File != def.Span.File {
		return diag.FixEdit{}, false
	}
	from, _ := column(file.Content, provider.Span.Start)

	var b strings.Builder
	at := def.Span.End
	var indent int
	if n := len(def.Methods); n > 0 {
		last := def.Methods[n-1].Span
		col, block := column(file.Content, last.Start)
		if !block {
			return diag.FixEdit{}, false
		}
		at, indent = last.End, col
	} else {
		col, block := column(file.Content, def.Span.Start)
		if !block {
			return diag.FixEdit{}, false
		}
		indent = col + 4
		b.WriteString("\n" + strings.Repeat(" ", col) + "methods:")
	}
	for i, line := range strings.Split(text, "\n") {
		if i == 0 {
			b.WriteString("\n" + strings.Repeat(" ", indent-2) + "- " + line)
			continue
		}
		trimmed := strings.TrimLeft(line, " ")
		if pad := len(line) - len(trimmed); pad > from {
			trimmed = line[from:]
		}
		b.WriteString("\n" + strings.Repeat(" ", indent) + trimmed)
	}
	return diag.FixEdit{
		Span:    source.Span{File: def.Span.File, Start: at, End: at},
		NewText: b.String(),
	}, true
}

// column returns the offset of pos within its line and whether pos starts
// the value of a block sequence item.
func column(content []byte, pos uint32) (int, bool) {
	if int(pos) >= len(content) {
		return 0, false
	}
	lineStart := bytes.LastIndexByte(content[:pos], '\n') + 1
	prefix := strings.TrimSpace(string(content[lineStart:pos]))
	return int(pos) - lineStart, prefix == "-" && content[pos] != '{'
}

// mostSpecific drops providers overridden by another provider below them.
func (c *checker) mostSpecific(ids []traits.TraitID) []traits.TraitID {
	var out []traits.TraitID
	for _, id := range ids {
		overridden := slices.ContainsFunc(ids, func(other traits.TraitID) bool {
			return other != id && c.reg.IsSubtrait(other, id)
		})
		if !overridden {
			out = append(out, id)
		}
	}
	return out
}
