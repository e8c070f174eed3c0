// Package compression implements the pluggable per-chunk compressors used by
// the EXR pixel engine (§4.4). The package is deliberately independent of
// the exr package's attribute types, so it takes plain channel descriptors
// instead of exr.Header — that keeps the import graph acyclic (exr/pixelio
// imports compression, not the other way around).
package compression

import "fmt"

// PixelType mirrors exr.PixelType's three storage kinds, duplicated here so
// this package has no dependency on the parent exr package.
type PixelType int

const (
	Uint PixelType = iota
	Half
	Float
)

// Size returns the on-disk byte width of one sample.
func (t PixelType) Size() int {
	switch t {
	case Half:
		return 2
	case Uint, Float:
		return 4
	default:
		return 0
	}
}

// Channel describes one channel's storage for a block of scanlines or a
// single tile: name (used only for DWA's lossy-channel classification),
// sample type, and subsampling rate.
type Channel struct {
	Name      string
	Type      PixelType
	XSampling int
	YSampling int
}

// Kind identifies a compressor by its on-disk enum value (§6.2), duplicated
// from exr.Compression for the same acyclic-import reason as PixelType.
type Kind uint8

const (
	None Kind = iota
	RLE
	ZIPS
	ZIP
	PIZ
	PXR24
	B44
	B44A
	DWAA
	DWAB
)

// Compressor packs/unpacks one chunk's worth of interleaved channel rows.
// The uncompressed representation handed to Compress and returned by
// Uncompress is the same "channels in sorted-name order, each channel's
// sampled rows concatenated row-major" layout as a chunk with
// compression=NONE; callers are responsible for interleaving/deinterleaving
// against their frame buffer.
type Compressor interface {
	Kind() Kind
	// LinesPerBlock is how many scanlines this compressor groups into one
	// chunk (§4.4); tile-based parts ignore this and compress one tile at a
	// time regardless.
	LinesPerBlock() int
	// Compress returns the compressed payload, or (nil, ErrWouldGrow) if the
	// caller should store the block uncompressed instead.
	Compress(channels []Channel, width, height int, raw []byte) ([]byte, error)
	// Uncompress expands compressed back to raw's original layout. expectedLen
	// is the exact uncompressed size the caller expects, computed from
	// channels/width/height; implementations must return exactly that many
	// bytes or a DataCorrupt-flavored error.
	Uncompress(channels []Channel, width, height int, compressed []byte, expectedLen int) ([]byte, error)
}

// ErrWouldGrow is a sentinel a Compress implementation can return instead of
// a real error to signal "the block did not shrink, store it uncompressed"
// (§4.4's failure rule). It is not a processing failure.
var ErrWouldGrow = fmt.Errorf("compression: block would not shrink")

// RawSize returns the uncompressed byte size of one block of height scanlines
// over channels at the given block's width, honoring per-channel sampling.
func RawSize(channels []Channel, width, height int) int {
	total := 0
	for _, ch := range channels {
		rows := sampledCount(height, ch.YSampling)
		cols := sampledCount(width, ch.XSampling)
		total += rows * cols * ch.Type.Size()
	}
	return total
}

func sampledCount(extent, sampling int) int {
	if sampling <= 1 {
		return extent
	}
	return (extent + sampling - 1) / sampling
}

// Factory produces a fresh Compressor instance (compressors may hold
// per-block scratch state, so each use gets its own).
type Factory func() Compressor

// Registry maps a Kind to its Factory. Built-in kinds are registered by
// NewRegistry; a caller may override one (e.g. to swap in a SIMD-accelerated
// variant) via RegisterType.
type Registry struct {
	factories map[Kind]Factory
}

// NewRegistry returns a registry pre-populated with every built-in
// compressor kind.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[Kind]Factory)}
	r.RegisterType(None, func() Compressor { return &noneCompressor{} })
	r.RegisterType(RLE, func() Compressor { return &rleCompressor{} })
	r.RegisterType(ZIP, func() Compressor { return &zipCompressor{lines: 16} })
	r.RegisterType(ZIPS, func() Compressor { return &zipCompressor{lines: 1} })
	r.RegisterType(PXR24, func() Compressor { return &pxr24Compressor{} })
	r.RegisterType(B44, func() Compressor { return &b44Compressor{} })
	r.RegisterType(B44A, func() Compressor { return &b44Compressor{flat: true} })
	r.RegisterType(PIZ, func() Compressor { return &pizCompressor{} })
	r.RegisterType(DWAA, func() Compressor { return &dwaCompressor{lines: 32} })
	r.RegisterType(DWAB, func() Compressor { return &dwaCompressor{lines: 256} })
	return r
}

func (r *Registry) RegisterType(k Kind, f Factory) { r.factories[k] = f }

// New returns a fresh compressor for k, or nil if k is unregistered.
func (r *Registry) New(k Kind) Compressor {
	if f, ok := r.factories[k]; ok {
		return f()
	}
	return nil
}
