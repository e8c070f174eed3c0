// Package j2k ties the bit-buffer, MQ coder, wavelet, tier-1, tier-2, and
// codestream packages together into a tile-based encoder/decoder, the
// top-level orchestration layer the teacher's jpeg2000/encoder.go and
// jpeg2000/decoder.go play in the source repo. It implements a deliberately
// scoped subset of ISO/IEC 15444-1: one quality layer, one precinct (and so
// one packet) per subband, one tile-part per tile, no multi-component
// transform.
package j2k

import "github.com/cocosip/go-hdrimage/j2k/codestream"

// ComponentImage is one component's samples over the whole image, row-major
// in raster order. Signed components carry signed values directly; unsigned
// components carry raw unsigned magnitudes (e.g. 0..255 for an 8-bit
// component) and are DC level shifted internally around the wavelet
// transform.
type ComponentImage struct {
	Depth  int
	Signed bool
	Data   []int32
}

// Image is the in-memory pixel source Encode reads from and the sink
// Decode fills in, mirroring spec's in-memory Image collaborator but
// flattened to plain slices since this module owns no tile/level tree of
// its own outside the codestream being built or parsed.
type Image struct {
	Width, Height int
	Components    []ComponentImage
}

// EncodeParams selects the coding parameters Encode applies uniformly to
// every component and tile. Matching SPEC_FULL's scoped feature set, it
// exposes progression order, decomposition levels, reversibility,
// quality-layer count, tile size, code-block log-dimensions, and guard bits.
type EncodeParams struct {
	Progression         codestream.ProgressionOrder
	DecompositionLevels int
	CodeBlockWidthExp   uint8 // actual nominal width = 1<<(exp+2), clipped per subband
	CodeBlockHeightExp  uint8
	Reversible          bool // must be true (5/3 kernel); false (9/7) is ErrUnsupportedFeature
	GuardBits           uint8
	Layers              int // must be 0 (defaults to 1) or 1; >1 is ErrUnsupportedFeature
	TileWidth           int // 0 means one tile spanning the whole image
	TileHeight          int
}

// DecodeOptions controls Decode's partial-failure policy (spec.md §7's
// resilient mode), passed to Decode as an optional trailing argument.
type DecodeOptions struct {
	// Resilient, when true, makes Decode return the image decoded so far
	// instead of an error. A tile-part that cannot be read in full, or whose
	// tile header is malformed, stops decoding: that tile and every later
	// tile stay zero-filled. A tile whose packets fail tier-1/tier-2
	// decoding is skipped and decoding continues with the next tile.
	Resilient bool
}
