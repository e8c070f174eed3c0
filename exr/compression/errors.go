package compression

import "fmt"

// CorruptError indicates a compressor observed malformed compressed data
// (§4.4's "decompressor that observes malformed data raises DataCorruptError").
// The exr package wraps this into its own *exr.Error{Kind: KindDataCorrupt}
// at the pixel-engine boundary.
type CorruptError struct{ Reason string }

func (e *CorruptError) Error() string { return "compression: " + e.Reason }

func errDataCorrupt(format string, args ...interface{}) error {
	return &CorruptError{Reason: fmt.Sprintf(format, args...)}
}
