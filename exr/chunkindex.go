package exr

import (
	"encoding/binary"
	"io"

	"github.com/cocosip/go-hdrimage/exr/stream"
)

// LevelCount returns the number of levels along x and y for a data window of
// size (w,h) under mode/rounding (§4.3). ONE_LEVEL always yields (1,1);
// MIPMAP yields the same count on both axes (driven by max(w,h)); RIPMAP
// computes each axis independently.
func LevelCount(mode LevelMode, rounding LevelRounding, w, h int) (numX, numY int) {
	switch mode {
	case LevelOne:
		return 1, 1
	case LevelMipmap:
		n := levelCount1D(rounding, maxInt(w, h))
		return n, n
	case LevelRipmap:
		return levelCount1D(rounding, w), levelCount1D(rounding, h)
	default:
		return 1, 1
	}
}

func levelCount1D(rounding LevelRounding, size int) int {
	if size <= 1 {
		return 1
	}
	levels := 0
	for v := size; v > 1; v >>= 1 {
		levels++
	}
	// levels == floor(log2(size)) for size a power of two or not.
	if rounding == RoundUp && (1<<uint(levels)) < size {
		levels++
	}
	return levels + 1
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// LevelSize returns the pixel extent of a single axis at the given level,
// per rounding: ROUND_DOWN floors (but never below 1), ROUND_UP ceils.
func LevelSize(rounding LevelRounding, fullSize int, level int) int {
	size := fullSize >> uint(level)
	if rounding == RoundUp {
		rem := fullSize - (size << uint(level))
		if rem != 0 {
			size++
		}
	}
	if size < 1 {
		size = 1
	}
	return size
}

func numTilesAlong(levelSize, tileSize int) int {
	if tileSize <= 0 {
		return 0
	}
	return (levelSize + tileSize - 1) / tileSize
}

// ChunkIndexSize computes the number of chunk-index entries for a single
// part, per §4.3's size table.
func ChunkIndexSize(h *Header) (int, error) {
	dw, ok := h.DataWindow()
	if !ok {
		return 0, newErr(KindBadHeader, "missing dataWindow")
	}
	w, height := dw.Width(), dw.Height()

	partType, hasType := h.Type()
	tiled := hasType && isTiledPartType(partType)

	if !tiled {
		comp, _ := h.Compression()
		lpb := comp.ScanlinesPerChunk()
		return (height + lpb - 1) / lpb, nil
	}

	td, ok := h.Tiles()
	if !ok {
		return 0, newErr(KindBadHeader, "tiled part missing tiles attribute")
	}
	tw, th := int(td.XSize), int(td.YSize)

	switch td.Mode {
	case LevelOne:
		return numTilesAlong(w, tw) * numTilesAlong(height, th), nil
	case LevelMipmap:
		numLevels, _ := LevelCount(LevelMipmap, td.Rounding, w, height)
		total := 0
		for l := 0; l < numLevels; l++ {
			lw := LevelSize(td.Rounding, w, l)
			lh := LevelSize(td.Rounding, height, l)
			total += numTilesAlong(lw, tw) * numTilesAlong(lh, th)
		}
		return total, nil
	case LevelRipmap:
		numX, numY := LevelCount(LevelRipmap, td.Rounding, w, height)
		total := 0
		for lx := 0; lx < numX; lx++ {
			lw := LevelSize(td.Rounding, w, lx)
			nx := numTilesAlong(lw, tw)
			for ly := 0; ly < numY; ly++ {
				lh := LevelSize(td.Rounding, height, ly)
				ny := numTilesAlong(lh, th)
				total += nx * ny
			}
		}
		return total, nil
	default:
		return 0, newErr(KindBadHeader, "unknown tile level mode %d", td.Mode)
	}
}

// ChunkIndexWriter reserves a zeroed offset table up front and back-patches
// individual entries as their chunks are written (§4.3's writer contract).
type ChunkIndexWriter struct {
	w        stream.Writer
	tableOff int64
	offsets  []uint64
}

// ReserveChunkIndex writes n zeroed u64 entries at the writer's current
// position and remembers that position for later patching.
func ReserveChunkIndex(w stream.Writer, n int) (*ChunkIndexWriter, error) {
	pos, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, wrapErr(KindIO, err, "locate chunk index position")
	}
	zero := make([]byte, n*8)
	if _, err := w.Write(zero); err != nil {
		return nil, wrapErr(KindIO, err, "reserve chunk index")
	}
	return &ChunkIndexWriter{w: w, tableOff: pos, offsets: make([]uint64, n)}, nil
}

// Patch records that chunk i begins at byteOffset and back-patches it into
// the reserved table immediately (so a writer that is interrupted mid-file
// still leaves a best-effort index behind).
func (c *ChunkIndexWriter) Patch(i int, byteOffset uint64) error {
	if i < 0 || i >= len(c.offsets) {
		return newErr(KindDataCorrupt, "chunk index %d out of range [0,%d)", i, len(c.offsets))
	}
	c.offsets[i] = byteOffset
	cur, err := c.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return wrapErr(KindIO, err, "locate current position")
	}
	if _, err := c.w.Seek(c.tableOff+int64(i)*8, io.SeekStart); err != nil {
		return wrapErr(KindIO, err, "seek to chunk index entry %d", i)
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], byteOffset)
	if _, err := c.w.Write(b[:]); err != nil {
		return wrapErr(KindIO, err, "patch chunk index entry %d", i)
	}
	if _, err := c.w.Seek(cur, io.SeekStart); err != nil {
		return wrapErr(KindIO, err, "restore write position")
	}
	return nil
}

// Offsets returns the offsets recorded so far (for tests and for chaining
// into a multi-part file's concatenated tables).
func (c *ChunkIndexWriter) Offsets() []uint64 { return append([]uint64(nil), c.offsets...) }

// ReadChunkIndex reads n u64 little-endian offsets starting at the reader's
// current position.
func ReadChunkIndex(r io.Reader, n int) ([]uint64, error) {
	buf := make([]byte, n*8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, wrapErr(KindIO, err, "read chunk index")
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(buf[i*8:])
	}
	return out, nil
}

// ValidateOffsets checks that every offset lies within [0, fileSize) and is
// strictly increasing order is NOT required (tile files may be written in
// any tile order), but every offset must at least point inside the file.
func ValidateOffsets(offsets []uint64, fileSize int64) error {
	for i, off := range offsets {
		if off == 0 {
			continue // not yet written (writer crashed) — caller decides tolerance
		}
		if int64(off) >= fileSize {
			return newErr(KindDataCorrupt, "chunk index entry %d offset %d exceeds file size %d", i, off, fileSize)
		}
	}
	return nil
}
