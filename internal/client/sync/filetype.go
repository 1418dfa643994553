package sync

import (
	"path/filepath"
	"strings"
)

// FileClass is the closed set of transfer categories. Text files go through
// the document endpoint as UTF-8; everything else is uploaded as raw bytes.
type FileClass int

const (
	BinaryFile FileClass = iota
	TextFile
)

func (c FileClass) String() string {
	if c == TextFile {
		return "text"
	}
	return "binary"
}

// classByExt is the closed extension table. Unknown extensions classify as
// binary so their bytes round-trip untouched.
var classByExt = map[string]FileClass{
	".md":       TextFile,
	".markdown": TextFile,
	".txt":      TextFile,
	".rst":      TextFile,
	".adoc":     TextFile,
	".html":     TextFile,
	".htm":      TextFile,
	".csv":      TextFile,
	".json":     TextFile,
	".yaml":     TextFile,
	".yml":      TextFile,
	".toml":     TextFile,
}

// ClassifyFile resolves the transfer category of a path from its extension.
func ClassifyFile(path string) FileClass {
	ext := strings.ToLower(filepath.Ext(path))
	if class, ok := classByExt[ext]; ok {
		return class
	}
	return BinaryFile
}
