// Package diagfmt renders diagnostics for people (Pretty), tools (JSON)
// and code scanning (Sarif).
package diagfmt

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto keeps the path as loaded.
	PathModeAuto PathMode = iota
	PathModeAbsolute
	// PathModeRelative shows paths relative to the base directory, or to
	// the working directory when none is given.
	PathModeRelative
	PathModeBasename
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color bool
	// Context is the number of source lines shown around the primary line.
	Context     int8
	PathMode    PathMode
	BaseDir     string
	ShowNotes   bool
	ShowFixes   bool
	ShowPreview bool
	ShowExplain bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool
	PathMode         PathMode
	BaseDir          string
	// Max trims the output only; the bag is left as is.
	Max             int
	IncludeNotes    bool
	IncludeFixes    bool
	IncludePreviews bool
}

// SarifRunMeta provides metadata for SARIF output.
type SarifRunMeta struct {
	ToolName       string
	ToolVersion    string
	InvocationArgs []string
	PathMode       PathMode
	BaseDir        string
}
