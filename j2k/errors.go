package j2k

import "errors"

// Sentinel errors surfaced by Encode/Decode, matching the teacher's
// per-package error-variable convention (jpeg2000/htj2k/errors.go) rather
// than a typed taxonomy: j2k packages return plain errors wrapped with
// fmt.Errorf, unlike exr's Error{Kind, Reason, Cause}.
var (
	// ErrUnsupportedFeature marks a request for a capability this module
	// does not implement: Encode and Decode return it for more than one
	// quality layer or for the irreversible (9/7) transform. Decode does
	// not check precinct sizes or codeblock style flags, and it skips POC,
	// PPM and RGN marker segments instead of rejecting them.
	ErrUnsupportedFeature = errors.New("j2k: unsupported feature")

	// ErrTilePartOverflow marks a tile whose index does not fit SOT's 16-bit
	// Isot field; Encode writes every tile as exactly one tile-part.
	ErrTilePartOverflow = errors.New("j2k: tile-part overflow")

	// ErrFormat marks a malformed codestream structure encountered outside
	// a resilient decode (bad marker sequence, truncated segment).
	ErrFormat = errors.New("j2k: format error")

	// ErrDataCorrupt marks an inconsistent packet header or codeblock
	// length encountered outside a resilient decode.
	ErrDataCorrupt = errors.New("j2k: data corrupt")
)
