package traits

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"keel/internal/ast"
	"keel/internal/types"
)

type traitHead struct {
	trait TraitID
	head  string
}

// Registry is the frozen index over all declarations of a unit. It is never
// mutated after Freeze, so inference workers share it without locking.
type Registry struct {
	unit       *ast.Unit
	local      map[string]bool
	typeOrder  []string
	typeTable  map[string]TypeInfo
	traits     []TraitDef
	traitIndex map[string]TraitID
	impls      []ImplEntry
	exts       []ExtensionEntry

	byTraitHead map[traitHead][]ImplID
	blanket     map[TraitID][]ImplID
	inherent    map[string][]ImplID
	extByHead   map[string][]ExtID
	extBlanket  []ExtID
	supers      [][]TraitID

	varCeiling types.VarID
	maxDepth   int
	hash       [32]byte
}

// Freeze resolves supertrait names, marks supertrait cycles and builds the
// lookup indexes. The builder must not be used afterwards.
func (b *Builder) Freeze() *Registry {
	if b.frozen {
		panic("traits: builder frozen twice")
	}
	b.frozen = true
	r := &Registry{
		unit:        b.unit,
		local:       make(map[string]bool, len(b.unit.Local)),
		typeOrder:   b.typeOrder,
		typeTable:   b.typeTable,
		traits:      b.traits,
		traitIndex:  b.traitIndex,
		impls:       b.impls,
		exts:        b.exts,
		byTraitHead: make(map[traitHead][]ImplID),
		blanket:     make(map[TraitID][]ImplID),
		inherent:    make(map[string][]ImplID),
		extByHead:   make(map[string][]ExtID),
		varCeiling:  b.fresh.Peek(),
		maxDepth:    b.maxDepth,
	}
	if r.maxDepth <= 0 {
		r.maxDepth = 1000
	}
	for _, m := range b.unit.Local {
		r.local[b.unit.Name(m)] = true
	}
	for i := 1; i < len(r.traits); i++ {
		def := &r.traits[i]
		for j := range def.Supers {
			def.Supers[j].ID = r.traitIndex[def.Supers[j].Name]
		}
	}
	markCycles(r.traits)
	r.supers = make([][]TraitID, len(r.traits))
	for i := 1; i < len(r.traits); i++ {
		r.supers[i] = r.closure(TraitID(i)) // #nosec G115 -- bounded by arena size
	}
	for i := 1; i < len(r.impls); i++ {
		impl := &r.impls[i]
		if impl.Target.IsError() {
			continue
		}
		switch {
		case impl.Inherent():
			r.inherent[impl.Head] = append(r.inherent[impl.Head], impl.ID)
		case !impl.Trait.IsValid():
		case impl.Head == "":
			r.blanket[impl.Trait] = append(r.blanket[impl.Trait], impl.ID)
		default:
			key := traitHead{impl.Trait, impl.Head}
			r.byTraitHead[key] = append(r.byTraitHead[key], impl.ID)
		}
	}
	for i := 1; i < len(r.exts); i++ {
		ext := &r.exts[i]
		switch {
		case ext.Target.IsError():
		case ext.Head == "":
			r.extBlanket = append(r.extBlanket, ext.ID)
		default:
			r.extByHead[ext.Head] = append(r.extByHead[ext.Head], ext.ID)
		}
	}
	r.hash = r.computeHash()
	return r
}

// closure lists the transitive supertraits of id breadth-first, without id
// itself and without duplicates.
func (r *Registry) closure(id TraitID) []TraitID {
	var out []TraitID
	seen := map[TraitID]bool{id: true}
	queue := []TraitID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, s := range r.traits[cur].Supers {
			if !s.ID.IsValid() || seen[s.ID] {
				continue
			}
			seen[s.ID] = true
			out = append(out, s.ID)
			queue = append(queue, s.ID)
		}
	}
	return out
}

func (r *Registry) Unit() *ast.Unit { return r.unit }

// VarCeiling is the first variable id not used by registry signatures.
// Inference contexts seed their counters here.
func (r *Registry) VarCeiling() types.VarID { return r.varCeiling }

func (r *Registry) MaxDepth() int { return r.maxDepth }

// Owns reports whether module belongs to the unit being compiled.
func (r *Registry) Owns(module string) bool { return r.local[module] }

func (r *Registry) TypeArity(name string) (int, bool) {
	info, ok := r.typeTable[name]
	return info.Arity, ok
}

func (r *Registry) Type(name string) (TypeInfo, bool) {
	info, ok := r.typeTable[name]
	return info, ok
}

// TypeNames returns nominal type names in registration order.
func (r *Registry) TypeNames() []string { return slices.Clone(r.typeOrder) }

func (r *Registry) Trait(name string) (*TraitDef, bool) {
	id, ok := r.traitIndex[name]
	if !ok {
		return nil, false
	}
	return &r.traits[id], true
}

// TraitByID returns nil for ids the registry never issued.
func (r *Registry) TraitByID(id TraitID) *TraitDef {
	if !id.IsValid() || int(id) >= len(r.traits) {
		return nil
	}
	return &r.traits[id]
}

func (r *Registry) Traits() []TraitDef { return r.traits[1:] }

func (r *Registry) Impl(id ImplID) *ImplEntry {
	if !id.IsValid() || int(id) >= len(r.impls) {
		return nil
	}
	return &r.impls[id]
}

func (r *Registry) Impls() []ImplEntry { return r.impls[1:] }

func (r *Registry) Extension(id ExtID) *ExtensionEntry {
	if !id.IsValid() || int(id) >= len(r.exts) {
		return nil
	}
	return &r.exts[id]
}

func (r *Registry) Extensions() []ExtensionEntry { return r.exts[1:] }

// ImplsOf lists impls of trait indexed under head plus the trait's blanket
// impls, in declaration order. An empty head returns every impl of trait.
func (r *Registry) ImplsOf(trait TraitID, head string) []ImplID {
	var out []ImplID
	if head == "" {
		for key, ids := range r.byTraitHead {
			if key.trait == trait {
				out = append(out, ids...)
			}
		}
	} else {
		out = append(out, r.byTraitHead[traitHead{trait, head}]...)
	}
	out = append(out, r.blanket[trait]...)
	slices.Sort(out)
	return out
}

// Inherent lists inherent impls on head in declaration order.
func (r *Registry) Inherent(head string) []ImplID {
	return r.inherent[head]
}

// ExtensionsOn lists extensions on head together with blanket extensions.
func (r *Registry) ExtensionsOn(head string) []ExtID {
	out := append(slices.Clone(r.extByHead[head]), r.extBlanket...)
	slices.Sort(out)
	return out
}

// Supertraits returns the transitive supertraits of id, nearest first.
func (r *Registry) Supertraits(id TraitID) []TraitID {
	if int(id) >= len(r.supers) {
		return nil
	}
	return r.supers[id]
}

// IsSubtrait reports whether sub names super directly or transitively, or
// is super itself.
func (r *Registry) IsSubtrait(sub, super TraitID) bool {
	return sub == super || slices.Contains(r.Supertraits(sub), super)
}

// Hash identifies the registry contents for cache keys. It depends only on
// the declarations in canonical order, never on map iteration.
func (r *Registry) Hash() [32]byte { return r.hash }

func (r *Registry) HashString() string { return hex.EncodeToString(r.hash[:]) }

func (r *Registry) computeHash() [32]byte {
	var sb strings.Builder
	for _, name := range r.typeOrder {
		info := r.typeTable[name]
		fmt.Fprintf(&sb, "type %s/%d @%s struct=%t vars=%v\n", info.Name, info.Arity, info.Module, info.Struct, info.Vars)
		for _, f := range info.Fields {
			fmt.Fprintf(&sb, "  field %s %s\n", f.Name, f.Type)
		}
	}
	for _, t := range r.Traits() {
		fmt.Fprintf(&sb, "trait %s @%s self=%d supers=%v\n", t.Name, t.Module, t.Self, superNames(t.Supers))
		for _, a := range t.Assoc {
			fmt.Fprintf(&sb, "  assoc %s\n", a.Name)
		}
		writeMethods(&sb, t.Methods)
	}
	for _, i := range r.Impls() {
		fmt.Fprintf(&sb, "impl %s for %s @%s rank=%s generics=%s\n", i.TraitName, i.Target, i.Module, i.Rank, genericsText(i.Generics))
		for _, a := range i.Assoc {
			fmt.Fprintf(&sb, "  assoc %s = %s\n", a.Name, a.Type)
		}
		writeMethods(&sb, i.Methods)
	}
	for _, e := range r.Extensions() {
		fmt.Fprintf(&sb, "extend %s @%s generics=%s\n", e.Target, e.Module, genericsText(e.Generics))
		writeMethods(&sb, e.Methods)
	}
	locals := make([]string, 0, len(r.local))
	for m := range r.local {
		locals = append(locals, m)
	}
	slices.Sort(locals)
	fmt.Fprintf(&sb, "local %s\n", strings.Join(locals, ","))
	return sha256.Sum256([]byte(sb.String()))
}

func writeMethods(sb *strings.Builder, methods []MethodSig) {
	for _, m := range methods {
		fmt.Fprintf(sb, "  fn %s %s default=%t\n", m.Name, m.Scheme, m.HasDefault)
	}
}

func superNames(supers []SuperRef) []string {
	out := make([]string, len(supers))
	for i, s := range supers {
		out[i] = s.Name
	}
	return out
}

func genericsText(gs []Generic) string {
	parts := make([]string, len(gs))
	for i, g := range gs {
		parts[i] = fmt.Sprintf("%s=?%d:%s", g.Name, g.Var, strings.Join(g.Bounds, "+"))
	}
	return "[" + strings.Join(parts, " ") + "]"
}
