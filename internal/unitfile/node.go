package unitfile

import (
	"gopkg.in/yaml.v3"

	"keel/internal/source"
)

// fields is a YAML mapping with its keys in document order.
type fields struct {
	node *yaml.Node
	keys []*yaml.Node
	vals []*yaml.Node
}

func asFields(n *yaml.Node) (*fields, bool) {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, false
	}
	f := &fields{node: n}
	for i := 0; i+1 < len(n.Content); i += 2 {
		f.keys = append(f.keys, n.Content[i])
		f.vals = append(f.vals, n.Content[i+1])
	}
	return f, true
}

func (f *fields) get(key string) *yaml.Node {
	for i, k := range f.keys {
		if k.Value == key {
			return f.vals[i]
		}
	}
	return nil
}

func (f *fields) key(key string) *yaml.Node {
	for _, k := range f.keys {
		if k.Value == key {
			return k
		}
	}
	return nil
}

// first returns the discriminating key of the mapping.
func (f *fields) first() string {
	if len(f.keys) == 0 {
		return ""
	}
	return f.keys[0].Value
}

func (f *fields) has(key string) bool {
	return f.key(key) != nil
}

// start returns the offset of the first byte of n's value text.
func (l *loader) start(n *yaml.Node) uint32 {
	off := l.file.Offset(source.LineCol{Line: uint32(n.Line), Col: uint32(n.Column)}) // #nosec G115 -- yaml positions are small
	return off
}

// textStart is where the scalar's characters begin, past an opening quote.
func (l *loader) textStart(n *yaml.Node) uint32 {
	off := l.start(n)
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		off++
	}
	return off
}

// span covers n and everything nested in it.
func (l *loader) span(n *yaml.Node) source.Span {
	sp := source.Span{File: l.fileID, Start: l.start(n)}
	sp.End = sp.Start
	if n.Kind == yaml.ScalarNode {
		sp.End = l.textStart(n) + uint32(len(n.Value)) // #nosec G115 -- scalar lengths are small
		if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
			sp.End++
		}
	}
	for _, c := range n.Content {
		cs := l.span(c)
		if cs.End > sp.End {
			sp.End = cs.End
		}
	}
	if n.Style&yaml.FlowStyle != 0 {
		sp.End = l.closeFlow(n, sp.End)
	}
	return sp
}

// closeFlow extends end past the bracket closing a flow collection.
func (l *loader) closeFlow(n *yaml.Node, end uint32) uint32 {
	closing := byte('}')
	if n.Kind == yaml.SequenceNode {
		closing = ']'
	} else if n.Kind != yaml.MappingNode {
		return end
	}
	if len(n.Content) == 0 {
		end++
	}
	text := l.file.Content
	for i := int(end); i < len(text); i++ {
		switch c := text[i]; {
		case c == closing:
			return uint32(i + 1) // #nosec G115 -- offsets fit the file
		case c != ' ' && c != '\t' && c != '\r' && c != '\n' && c != ',':
			return end
		}
	}
	return end
}
