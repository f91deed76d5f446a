package source

import (
	"fmt"
)

// Span is a half-open byte range [Start, End) inside one file.
type Span struct {
	File  FileID `msgpack:"f" json:"file"`
	Start uint32 `msgpack:"s" json:"start"`
	End   uint32 `msgpack:"e" json:"end"`
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Cover widens s to include other. Spans from different files are not merged.
func (s Span) Cover(other Span) Span {
	if s.File != other.File {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

// Compare orders spans by file, start and end.
func (s Span) Compare(other Span) int {
	switch {
	case s.File != other.File:
		if s.File < other.File {
			return -1
		}
		return 1
	case s.Start != other.Start:
		if s.Start < other.Start {
			return -1
		}
		return 1
	case s.End != other.End:
		if s.End < other.End {
			return -1
		}
		return 1
	}
	return 0
}

// At returns an empty span positioned at the end of s.
func (s Span) At() Span {
	return Span{File: s.File, Start: s.End, End: s.End}
}
