package source

import (
	"path/filepath"
	"slices"
)

// normalizeCRLF folds every \r\n into \n; lone \r is kept.
func normalizeCRLF(content []byte) ([]byte, bool) {
	if !slices.Contains(content, '\r') {
		return content, false
	}
	out := make([]byte, 0, len(content))
	changed := false
	for i := 0; i < len(content); i++ {
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			changed = true
			continue
		}
		out = append(out, content[i])
	}
	return out, changed
}

func removeBOM(content []byte) ([]byte, bool) {
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		return content[3:], true
	}
	return content, false
}

// buildLineIndex records the offset of every '\n'.
func buildLineIndex(content []byte) []uint32 {
	out := make([]uint32, 0, len(content)/32+1)
	for i, b := range content {
		if b == '\n' {
			out = append(out, uint32(i)) // #nosec G115 -- file sizes are checked by FileSet.Add callers
		}
	}
	return out
}

func toLineCol(lineIdx []uint32, off uint32) LineCol {
	// largest i with lineIdx[i] < off
	lo, hi := 0, len(lineIdx)-1
	for lo <= hi {
		mid := (lo + hi) >> 1
		if lineIdx[mid] < off {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if hi < 0 {
		return LineCol{Line: 1, Col: off + 1}
	}
	start := lineIdx[hi] + 1
	return LineCol{Line: uint32(hi + 2), Col: off - start + 1} // #nosec G115 -- bounded by len(lineIdx)
}

func offsetOf(lineIdx []uint32, pos LineCol) uint32 {
	if pos.Line <= 1 {
		if pos.Col == 0 {
			return 0
		}
		return pos.Col - 1
	}
	if int(pos.Line-2) >= len(lineIdx) {
		if len(lineIdx) == 0 {
			return 0
		}
		return lineIdx[len(lineIdx)-1] + 1
	}
	start := lineIdx[pos.Line-2] + 1
	if pos.Col == 0 {
		return start
	}
	return start + pos.Col - 1
}

func normalizePath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
