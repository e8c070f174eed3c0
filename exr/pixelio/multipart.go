package pixelio

import (
	"github.com/cocosip/go-hdrimage/exr"
	"github.com/cocosip/go-hdrimage/exr/stream"
)

// MultiPartWriter coordinates the part headers, the N concatenated chunk
// indices, and the per-part pixel-engine writers of a multi-part file
// (§4.6). Each part's chunk writer is created on demand with PartNumber
// fixed to its index, matching the "each chunk carries its partNumber as the
// first payload word" rule.
type MultiPartWriter struct {
	w       stream.Writer
	headers []*exr.Header
	indices []*exr.ChunkIndexWriter
	built   []bool
}

// NewMultiPartWriter validates every header, writes the magic/version
// prefix and the part-header list, and reserves the N chunk-index tables
// back-to-back immediately following it.
func NewMultiPartWriter(w stream.Writer, headers []*exr.Header) (*MultiPartWriter, error) {
	for i, h := range headers {
		if err := h.Validate(); err != nil {
			return nil, exr.Wrap(exr.KindBadHeader, err, "part %d", i)
		}
	}
	if err := exr.WriteMultiPartPrologue(w, headers); err != nil {
		return nil, err
	}
	indices := make([]*exr.ChunkIndexWriter, len(headers))
	for i, h := range headers {
		n, err := exr.ChunkIndexSize(h)
		if err != nil {
			return nil, err
		}
		idx, err := exr.ReserveChunkIndex(w, n)
		if err != nil {
			return nil, err
		}
		indices[i] = idx
	}
	return &MultiPartWriter{w: w, headers: headers, indices: indices, built: make([]bool, len(headers))}, nil
}

func (mw *MultiPartWriter) claim(i int) error {
	if i < 0 || i >= len(mw.headers) {
		return exr.New(exr.KindBadHeader, "part %d out of range [0,%d)", i, len(mw.headers))
	}
	if mw.built[i] {
		return exr.New(exr.KindBadHeader, "part %d writer already created", i)
	}
	mw.built[i] = true
	return nil
}

// ScanlinePart returns a chunk writer for part i, which must be a flat
// scanline part.
func (mw *MultiPartWriter) ScanlinePart(i int) (*ScanlineWriter, error) {
	if err := mw.claim(i); err != nil {
		return nil, err
	}
	return newScanlinePart(mw.w, mw.headers[i], i, mw.indices[i])
}

// TilePart returns a chunk writer for part i, which must be a flat tiled
// part.
func (mw *MultiPartWriter) TilePart(i int) (*TileWriter, error) {
	if err := mw.claim(i); err != nil {
		return nil, err
	}
	return newTilePart(mw.w, mw.headers[i], i, mw.indices[i])
}

// DeepScanlinePart returns a chunk writer for part i, which must be a deep
// scanline part.
func (mw *MultiPartWriter) DeepScanlinePart(i int) (*DeepScanlineWriter, error) {
	if err := mw.claim(i); err != nil {
		return nil, err
	}
	return newDeepScanlinePart(mw.w, mw.headers[i], i, mw.indices[i])
}

// NumParts reports how many parts this file has.
func (mw *MultiPartWriter) NumParts() int { return len(mw.headers) }

// MultiPartReader is the read-side counterpart: it parses every part header
// and the N concatenated offset tables, then hands out a pixel-engine
// reader per part on demand.
type MultiPartReader struct {
	r       stream.Reader
	headers []*exr.Header
	offsets [][]uint64
}

// NewMultiPartReader parses the prologue and every part's offset table.
func NewMultiPartReader(r stream.Reader, reg *exr.Registry) (*MultiPartReader, error) {
	_, headers, err := exr.ReadMultiPartPrologue(r, reg)
	if err != nil {
		return nil, err
	}
	offsets := make([][]uint64, len(headers))
	for i, h := range headers {
		n, err := exr.ChunkIndexSize(h)
		if err != nil {
			return nil, err
		}
		tbl, err := exr.ReadChunkIndex(r, n)
		if err != nil {
			return nil, err
		}
		offsets[i] = tbl
	}
	return &MultiPartReader{r: r, headers: headers, offsets: offsets}, nil
}

// NumParts reports how many parts this file has.
func (mr *MultiPartReader) NumParts() int { return len(mr.headers) }

// Header returns part i's header.
func (mr *MultiPartReader) Header(i int) *exr.Header { return mr.headers[i] }

// ScanlineReader returns a reader for part i, which must be a flat scanline
// part.
func (mr *MultiPartReader) ScanlineReader(i int) (*ScanlineReader, error) {
	return NewScanlineReader(mr.r, mr.headers[i], mr.offsets[i], true)
}

// TileReader returns a reader for part i, which must be a flat tiled part.
func (mr *MultiPartReader) TileReader(i int) (*TileReader, error) {
	return NewTileReader(mr.r, mr.headers[i], mr.offsets[i], true)
}

// DeepScanlineReader returns a reader for part i, which must be a deep
// scanline part.
func (mr *MultiPartReader) DeepScanlineReader(i int) (*DeepScanlineReader, error) {
	return NewDeepScanlineReader(mr.r, mr.headers[i], mr.offsets[i], true)
}
