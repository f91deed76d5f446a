package scheme

import (
	"fmt"

	"keel/internal/types"
)

// Fresh hands out variable ids. Each inference context owns its own counter,
// seeded above the range used by the frozen registry.
type Fresh struct {
	next types.VarID
}

func NewFresh(start types.VarID) *Fresh {
	return &Fresh{next: start}
}

// Var returns a new, never-used variable.
func (f *Fresh) Var() types.Type {
	return types.MakeVar(f.ID())
}

func (f *Fresh) ID() types.VarID {
	id := f.next
	if id == ^types.VarID(0) {
		panic(fmt.Errorf("type variable counter overflow"))
	}
	f.next++
	return id
}

// Peek returns the next id without consuming it.
func (f *Fresh) Peek() types.VarID {
	return f.next
}
