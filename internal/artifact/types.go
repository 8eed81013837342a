package artifact

import (
	"errors"
	"time"
)

// ErrNoActiveBuild is returned when the store holds no active build.
var ErrNoActiveBuild = errors.New("no active build")

// ErrNotFound is returned by OpenExisting when the artifact file is missing.
var ErrNotFound = errors.New("artifact not found")

// #region build
// Build is one versioned index artifact: chunk texts plus optional vectors.
type Build struct {
	BuildID   string
	ParentID  string // build that was active when this one was saved
	Source    string // path of the knowledge-base source
	Encoder   string // encoder name that produced Vectors, empty for lexical-only
	Dimension int
	Chunks    []string
	Vectors   [][]float32 // nil or one row per chunk
	CreatedAt time.Time
}

// HasVectors reports whether the build can back a dense index.
func (b Build) HasVectors() bool {
	return len(b.Vectors) > 0 && b.Dimension > 0
}

// #endregion build

// #region build-info
// BuildInfo summarizes a build without loading chunk rows.
type BuildInfo struct {
	BuildID    string
	ParentID   string
	Source     string
	Encoder    string
	Dimension  int
	ChunkCount int
	Active     bool
	CreatedAt  time.Time
}

// #endregion build-info
