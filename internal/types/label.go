package types

import (
	"fmt"
	"strings"
)

const maxLabelDepth = 16

// String renders t in surface syntax: [int], Option<T>, fn(int) -> bool.
func (t Type) String() string {
	var b strings.Builder
	writeType(&b, t, 0)
	return b.String()
}

func writeType(b *strings.Builder, t Type, depth int) {
	if depth > maxLabelDepth {
		b.WriteString("...")
		return
	}
	switch t.Kind {
	case KindPrim:
		b.WriteString(t.Prim.String())
	case KindVar:
		fmt.Fprintf(b, "?%d", t.Var)
	case KindNamed, KindParam:
		b.WriteString(t.Name)
	case KindApplied:
		if t.Name == ListName && len(t.Args) == 1 {
			b.WriteByte('[')
			writeType(b, t.Args[0], depth+1)
			b.WriteByte(']')
			return
		}
		b.WriteString(t.Name)
		b.WriteByte('<')
		writeList(b, t.Args, depth)
		b.WriteByte('>')
	case KindFn:
		b.WriteString("fn(")
		writeList(b, t.Args, depth)
		b.WriteString(") -> ")
		writeType(b, t.Ret(), depth+1)
	case KindTuple:
		b.WriteByte('(')
		writeList(b, t.Args, depth)
		if len(t.Args) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
	case KindProjection:
		recv := t.Receiver()
		if t.Trait != "" {
			b.WriteByte('<')
			writeType(b, recv, depth+1)
			b.WriteString(" as ")
			b.WriteString(t.Trait)
			b.WriteByte('>')
		} else {
			writeType(b, recv, depth+1)
		}
		b.WriteByte('.')
		b.WriteString(t.Name)
	case KindError:
		b.WriteString("{error}")
	default:
		b.WriteString("<invalid>")
	}
}

func writeList(b *strings.Builder, ts []Type, depth int) {
	for i, t := range ts {
		if i > 0 {
			b.WriteString(", ")
		}
		writeType(b, t, depth+1)
	}
}

// Labels renders a list for messages.
func Labels(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
