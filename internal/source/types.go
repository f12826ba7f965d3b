package source

// FileID uniquely identifies a file within a FileSet.
type FileID uint32

// File captures metadata and content for a single loaded file.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32
	Hash    [32]byte
}

// LineCol represents a human-readable position in a file.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}
