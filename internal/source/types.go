package source

type (
	// FileID identifies a file within a FileSet.
	FileID uint32
	// FileFlags records how a file entered the set.
	FileFlags uint8
)

const (
	// FileVirtual marks files added from memory (tests, stdin, generated units).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
)

// File holds one loaded unit file.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol is a 1-based human position.
type LineCol struct {
	Line uint32
	Col  uint32
}
