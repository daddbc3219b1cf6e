package headway

import "github.com/HalfVoxel/headway/internal/tree"

// Usage errors reported synchronously by Split. They indicate a
// programming mistake at the call site and work with errors.Is.
var (
	// ErrAlreadySplit is returned when splitting a bar that already has
	// children.
	ErrAlreadySplit = tree.ErrAlreadySplit
	// ErrFinished is returned when splitting a finished (or abandoned,
	// or already shut down) bar.
	ErrFinished = tree.ErrFinished
	// ErrNoParts is returned when Split is called without parts.
	ErrNoParts = tree.ErrNoParts
	// ErrZeroWeight is returned when a split part has weight zero.
	ErrZeroWeight = tree.ErrZeroWeight
)
