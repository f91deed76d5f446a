package unify

import (
	"keel/internal/types"
)

type reduction uint8

const (
	reduced reduction = iota
	waiting
	rigid
	missing
)

// reduce tries to replace a projection by its binding. It reports waiting
// while the receiver is still a variable and rigid for parameter receivers.
func (u *Unifier) reduce(p types.Type) (types.Type, reduction, *Error) {
	u.depth++
	defer func() { u.depth-- }()
	if u.depth > u.MaxDepth {
		return p, missing, mismatch(DepthExceeded, p, p)
	}

	recv := u.Subst.Apply(p.Receiver())
	if recv.Kind == types.KindProjection {
		inner, state, err := u.reduce(recv)
		if err != nil || state != reduced {
			return types.MakeProjection(inner, p.Name, p.Trait), state, err
		}
		recv = inner
	}
	proj := types.MakeProjection(recv, p.Name, p.Trait)
	switch recv.Kind {
	case types.KindVar:
		return proj, waiting, nil
	case types.KindParam:
		return proj, rigid, nil
	case types.KindError:
		return types.Error, reduced, nil
	}
	if u.Assoc == nil {
		return proj, missing, nil
	}
	bound, ok := u.Assoc.LookupAssoc(recv, p.Name, p.Trait)
	if !ok {
		return proj, missing, nil
	}
	return u.Subst.Apply(bound), reduced, nil
}

// unifyProjection handles p = other; flipped means p was on the found side.
func (u *Unifier) unifyProjection(p, other types.Type, flipped bool) *Error {
	orient := func(kind ErrorKind, a, b types.Type) *Error {
		if flipped {
			a, b = b, a
		}
		return mismatch(kind, a, b)
	}

	left, state, err := u.reduce(p)
	if err != nil {
		return err
	}
	switch state {
	case reduced:
		if flipped {
			return u.unify(other, left)
		}
		return u.unify(left, other)
	case missing:
		e := orient(NoAssocBinding, left, u.Subst.Apply(other))
		e.Assoc = p.Name
		e.Found = left.Receiver()
		return e
	}

	// waiting or rigid: another projection may still be the same one
	if other.Kind == types.KindProjection {
		right, rstate, rerr := u.reduce(other)
		if rerr != nil {
			return rerr
		}
		if rstate == reduced {
			if flipped {
				return u.unify(right, left)
			}
			return u.unify(left, right)
		}
		if types.Equal(left, right) {
			return nil
		}
		other = right
	}

	if state == waiting {
		d := Deferred{Projection: left, Other: other, Origin: u.Origin}
		u.deferred = append(u.deferred, d)
		return nil
	}
	if target := u.Subst.Resolve(other); target.Kind == types.KindVar {
		return u.bind(target.Var, left, !flipped)
	}
	return orient(Mismatch, left, u.Subst.Apply(other))
}

// Solve retries deferred constraints until no more of them make progress.
// Constraints still waiting afterwards stay in Pending.
func (u *Unifier) Solve() []Failure {
	var failures []Failure
	for progress := true; progress && len(u.deferred) > 0; {
		progress = false
		queue := u.deferred
		u.deferred = nil
		for _, d := range queue {
			u.depth = 0
			_, state, err := u.reduce(d.Projection)
			if err == nil && state == waiting {
				u.deferred = append(u.deferred, d)
				continue
			}
			progress = true
			saved := u.Origin
			u.Origin = d.Origin
			if err == nil {
				err = u.unify(d.Projection, d.Other)
			}
			u.Origin = saved
			if err != nil {
				failures = append(failures, Failure{Origin: d.Origin, Err: err})
			}
		}
	}
	return failures
}

// Pending returns the constraints whose receivers never resolved.
func (u *Unifier) Pending() []Deferred {
	return u.deferred
}

// Snapshot captures the substitution and the deferred queue so a tentative
// unification can be undone with Rollback.
type Snapshot struct {
	subst    *types.Subst
	deferred int
}

func (u *Unifier) Snapshot() Snapshot {
	return Snapshot{subst: u.Subst.Clone(), deferred: len(u.deferred)}
}

func (u *Unifier) Rollback(s Snapshot) {
	u.Subst.Restore(s.subst)
	if s.deferred <= len(u.deferred) {
		u.deferred = u.deferred[:s.deferred]
	}
}

// Normalize applies the substitution and reduces every projection whose
// receiver is known.
func (u *Unifier) Normalize(t types.Type) types.Type {
	return u.normalize(t, 0)
}

func (u *Unifier) normalize(t types.Type, depth int) types.Type {
	t = u.Subst.Apply(t)
	if depth > u.MaxDepth || !types.Contains(t, types.KindProjection) {
		return t
	}
	return types.Rewrite(t, func(n types.Type) (types.Type, bool) {
		if n.Kind != types.KindProjection {
			return n, false
		}
		u.depth = 0
		r, state, err := u.reduce(n)
		if err != nil {
			return n, true
		}
		if state == reduced {
			return u.normalize(r, depth+1), true
		}
		return r, true
	})
}
