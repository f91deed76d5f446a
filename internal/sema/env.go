package sema

import (
	"github.com/benbjohnson/immutable"
	"github.com/hashicorp/go-set/v3"

	"keel/internal/scheme"
	"keel/internal/types"
)

var emptyEnv = immutable.NewSortedMap(nil)

// Env maps local names to schemes. Extending an Env never changes the
// receiver, so a scope is restored by keeping the old value.
type Env struct {
	m *immutable.SortedMap
}

func NewEnv() Env { return Env{emptyEnv} }

func (e Env) Len() int {
	if e.m == nil {
		return 0
	}
	return e.m.Len()
}

func (e Env) Lookup(name string) (scheme.Scheme, bool) {
	if e.m == nil {
		return scheme.Scheme{}, false
	}
	v, ok := e.m.Get(name)
	if !ok {
		return scheme.Scheme{}, false
	}
	return v.(scheme.Scheme), true
}

// Extend returns a new Env in which name is bound to s.
func (e Env) Extend(name string, s scheme.Scheme) Env {
	m := e.m
	if m == nil {
		m = emptyEnv
	}
	return Env{m.Set(name, s)}
}

// Range visits entries in name order until f returns false.
func (e Env) Range(f func(string, scheme.Scheme) bool) {
	if e.m == nil {
		return
	}
	iter := e.m.Iterator()
	for !iter.Done() {
		k, v := iter.Next()
		if !f(k.(string), v.(scheme.Scheme)) {
			return
		}
	}
}

// FreeVars collects the variables free in the environment after applying
// sub; these must not be generalized by a let.
func (e Env) FreeVars(sub *types.Subst) *set.Set[types.VarID] {
	out := set.New[types.VarID](0)
	e.Range(func(_ string, s scheme.Scheme) bool {
		free := s.Apply(sub).FreeVars()
		for v := range free.Items() {
			out.Insert(v)
		}
		return true
	})
	return out
}
