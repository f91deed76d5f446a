package sema

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/source"
	"keel/internal/types"
)

var (
	durationSuffixes = []string{"ns", "us", "ms", "s", "m", "h"}
	sizeSuffixes     = []string{"kb", "mb", "gb", "tb", "b"}
)

// typeLiteral validates the literal text and returns its primitive type.
func (tc *typeChecker) typeLiteral(sp source.Span, lit *ast.ExprLitData) types.Type {
	text := tc.unit.Name(lit.Value)
	switch lit.Kind {
	case ast.LitInt:
		if _, err := strconv.ParseInt(text, 0, 64); err != nil {
			return tc.badLiteral(sp, "integer literal `%s` is out of range or malformed", text)
		}
		return types.Int
	case ast.LitFloat:
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			return tc.badLiteral(sp, "malformed float literal `%s`", text)
		}
		return types.Float
	case ast.LitBool:
		if text != "true" && text != "false" {
			return tc.badLiteral(sp, "`%s` is not a boolean", text)
		}
		return types.Bool
	case ast.LitStr:
		return types.Str
	case ast.LitChar:
		if utf8.RuneCountInString(text) != 1 {
			return tc.badLiteral(sp, "character literal `%s` must hold exactly one character", text)
		}
		return types.Char
	case ast.LitByte:
		if _, err := strconv.ParseUint(text, 0, 8); err != nil {
			if len(text) != 1 || text[0] >= utf8.RuneSelf {
				return tc.badLiteral(sp, "byte literal `%s` must be in 0..=255 or a single ASCII character", text)
			}
		}
		return types.Byte
	case ast.LitUnit:
		return types.Unit
	case ast.LitDuration:
		if !validUnitLiteral(text, durationSuffixes) {
			return tc.badLiteral(sp, "malformed duration literal `%s` (expected a number followed by ns, us, ms, s, m or h)", text)
		}
		return types.Duration
	case ast.LitSize:
		if !validUnitLiteral(strings.ToLower(text), sizeSuffixes) {
			return tc.badLiteral(sp, "malformed size literal `%s` (expected a number followed by b, kb, mb, gb or tb)", text)
		}
		return types.Size
	}
	return tc.badLiteral(sp, "unsupported literal `%s`", text)
}

func (tc *typeChecker) badLiteral(sp source.Span, format string, args ...any) types.Type {
	tc.report(diag.InvalidLiteral, sp, format, args...)
	return types.Error
}

// validUnitLiteral accepts a non-negative number followed by one of the
// suffixes, tried in order.
func validUnitLiteral(text string, suffixes []string) bool {
	for _, suffix := range suffixes {
		number, ok := strings.CutSuffix(text, suffix)
		if !ok || number == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(number, "_", ""), 64)
		return err == nil && v >= 0
	}
	return false
}
