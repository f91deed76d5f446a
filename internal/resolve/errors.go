package resolve

import (
	"fmt"
	"strings"

	"keel/internal/types"
)

// AmbiguousError lists candidates tied after tiering and specificity.
type AmbiguousError struct {
	Receiver   types.Type
	Method     string
	Candidates []Candidate
	// Traits names the trait of each candidate, "" for inherent ones.
	Traits []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("multiple applicable items in scope for `%s` on `%s`", e.Method, e.Receiver)
}

// Suggestions are fully-qualified calls, one per trait candidate, in the
// order of QualifiedTraits.
func (e *AmbiguousError) Suggestions(receiver string) []string {
	var out []string
	for _, t := range e.QualifiedTraits() {
		out = append(out, fmt.Sprintf("%s.%s(%s)", t, e.Method, receiver))
	}
	return out
}

// QualifiedTraits lists the traits a qualified call could name.
func (e *AmbiguousError) QualifiedTraits() []string {
	var out []string
	for _, t := range e.Traits {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// MissingBoundError means one or more traits declare the method but the
// receiver is not known to implement any of them.
type MissingBoundError struct {
	Receiver types.Type
	Method   string
	// Traits lists every declaring trait in registration order.
	Traits []string
	// Param is the rigid parameter the bound should be added to, if any.
	Param string
}

func (e *MissingBoundError) Error() string {
	if len(e.Traits) == 1 {
		return fmt.Sprintf("the method `%s` exists but the trait bound `%s: %s` is not satisfied", e.Method, e.Receiver, e.Traits[0])
	}
	bounds := make([]string, len(e.Traits))
	for i, t := range e.Traits {
		bounds[i] = fmt.Sprintf("`%s: %s`", e.Receiver, t)
	}
	return fmt.Sprintf("the method `%s` exists but none of the trait bounds %s is satisfied", e.Method, strings.Join(bounds, ", "))
}

// NoImplError is returned by Resolve when the selected method does not come
// from an impl block.
type NoImplError struct {
	Receiver  types.Type
	Candidate Candidate
}

func (e *NoImplError) Error() string {
	name := ""
	if e.Candidate.Method != nil {
		name = e.Candidate.Method.Name
	}
	return fmt.Sprintf("`%s` on `%s` is not provided by an impl (resolved as %s)", name, e.Receiver, e.Candidate.Kind)
}

// UnknownMethodError means nothing anywhere declares the method.
type UnknownMethodError struct {
	Receiver types.Type
	Method   string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("no method named `%s` found for `%s`", e.Method, e.Receiver)
}

// UnresolvedReceiverError means the receiver is still an inference variable.
type UnresolvedReceiverError struct {
	Receiver types.Type
	Method   string
}

func (e *UnresolvedReceiverError) Error() string {
	return fmt.Sprintf("type annotations needed: cannot call `%s` on a value of unknown type", e.Method)
}
