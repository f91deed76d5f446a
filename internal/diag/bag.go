package diag

import (
	"cmp"
	"slices"
)

// Bag collects diagnostics up to a limit. A worker owns its Bag; bags are
// merged after the join.
type Bag struct {
	items []Diagnostic
	max   int
}

// NewBag returns a bag holding at most limit items; limit <= 0 means unlimited.
func NewBag(limit int) *Bag {
	return &Bag{
		items: make([]Diagnostic, 0, min(max(limit, 0), 64)),
		max:   limit,
	}
}

// Add reports false when the limit was already reached.
func (b *Bag) Add(d Diagnostic) bool {
	if b.max > 0 && len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() int {
	return b.max
}

func (b *Bag) HasErrors() bool {
	return b.ErrorCount() > 0
}

func (b *Bag) ErrorCount() int {
	n := 0
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			n++
		}
	}
	return n
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns the backing slice; callers must not modify it.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Merge appends other's items, raising the limit when needed.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	b.MergeItems(other.items)
}

func (b *Bag) MergeItems(items []Diagnostic) {
	if total := len(b.items) + len(items); b.max > 0 && total > b.max {
		b.max = total
	}
	b.items = append(b.items, items...)
}

// Sort orders by file, start, end, severity (desc) and code, so output does
// not depend on the order workers finished in.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, Compare)
}

// Compare is the canonical diagnostic order.
func Compare(a, b Diagnostic) int {
	if c := a.Primary.Compare(b.Primary); c != 0 {
		return c
	}
	if a.Severity != b.Severity {
		return cmp.Compare(b.Severity, a.Severity)
	}
	if a.Code != b.Code {
		return cmp.Compare(a.Code, b.Code)
	}
	return cmp.Compare(a.Message, b.Message)
}

// Dedup drops repeats with the same code, primary span and message.
func (b *Bag) Dedup() {
	type key struct {
		code Code
		span string
		msg  string
	}
	seen := make(map[key]struct{}, len(b.items))
	out := b.items[:0]
	for _, d := range b.items {
		k := key{d.Code, d.Primary.String(), d.Message}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, d)
	}
	b.items = out
}

// Truncate keeps the first n items.
func (b *Bag) Truncate(n int) {
	if n >= 0 && n < len(b.items) {
		b.items = b.items[:n]
	}
}
