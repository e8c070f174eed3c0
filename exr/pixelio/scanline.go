package pixelio

import (
	"encoding/binary"
	"io"

	"github.com/cocosip/go-hdrimage/exr"
	"github.com/cocosip/go-hdrimage/exr/compression"
	"github.com/cocosip/go-hdrimage/exr/stream"
)

// scanlineState is the writer's state machine (§4.5): Fresh before a frame
// buffer is attached, Streaming while chunks are being appended, Closed once
// the index has been back-patched.
type scanlineState int

const (
	stateFresh scanlineState = iota
	stateStreaming
	stateClosed
)

// ScanlineWriter packs a flat (non-deep) scanline part's chunks, in the
// order lineOrder dictates, and patches each chunk's chunk-index entry as
// that chunk is written (§4.5).
type ScanlineWriter struct {
	w           stream.Writer
	header      *exr.Header
	channels    []compression.Channel
	compKind    compression.Kind
	compReg     *compression.Registry
	dataWindow  exr.Box2i
	linesPerBlk int
	lineOrder   exr.LineOrder
	partNumber  int // -1 for a single-part file
	idx         *exr.ChunkIndexWriter
	nextChunk   int
	nextY       int32 // next scanline index expected, absolute image coordinate
	state       scanlineState
	fb          FrameBuffer
}

// NewScanlineWriter writes the magic/version prefix and the header, reserves
// the chunk index, and returns a writer ready for SetFrameBuffer (single-part
// convenience entry point; multi-part files use newScanlinePart via the
// MultiPartWriter instead).
func NewScanlineWriter(w stream.Writer, header *exr.Header) (*ScanlineWriter, error) {
	if err := header.Validate(); err != nil {
		return nil, err
	}
	if err := exr.WriteSinglePartPrologue(w, header); err != nil {
		return nil, err
	}
	n, err := exr.ChunkIndexSize(header)
	if err != nil {
		return nil, err
	}
	idx, err := exr.ReserveChunkIndex(w, n)
	if err != nil {
		return nil, err
	}
	return newScanlinePart(w, header, -1, idx)
}

func newScanlinePart(w stream.Writer, header *exr.Header, partNumber int, idx *exr.ChunkIndexWriter) (*ScanlineWriter, error) {
	channels, err := channelsFor(header)
	if err != nil {
		return nil, err
	}
	dw, _ := header.DataWindow()
	comp, _ := header.Compression()
	lineOrder, _ := header.LineOrder()
	sw := &ScanlineWriter{
		w:           w,
		header:      header,
		channels:    channels,
		compKind:    compression.Kind(comp),
		compReg:     compression.NewRegistry(),
		dataWindow:  dw,
		linesPerBlk: comp.ScanlinesPerChunk(),
		lineOrder:   lineOrder,
		partNumber:  partNumber,
		idx:         idx,
		state:       stateFresh,
	}
	if lineOrder == exr.DecreasingY {
		sw.nextY = dw.MaxY
	} else {
		sw.nextY = dw.MinY
	}
	return sw, nil
}

// SetFrameBuffer attaches the pixel storage the writer will read rows from
// and transitions Fresh -> Streaming.
func (sw *ScanlineWriter) SetFrameBuffer(fb FrameBuffer) {
	sw.fb = fb
	sw.state = stateStreaming
}

// WritePixels appends the next numScanlines rows (in lineOrder direction)
// from the attached frame buffer, chunked by linesPerBlock.
func (sw *ScanlineWriter) WritePixels(numScanlines int) error {
	if sw.state != stateStreaming {
		return exr.New(exr.KindBadHeader, "WritePixels called before SetFrameBuffer")
	}
	remaining := numScanlines
	for remaining > 0 {
		blockY, blockH := sw.currentBlock()
		if blockH > remaining {
			blockH = remaining
		}
		if err := sw.writeBlock(blockY, blockH); err != nil {
			return err
		}
		sw.advance(blockH)
		remaining -= blockH
	}
	return nil
}

// currentBlock returns the (minY, height) of the chunk group sw.nextY
// belongs to, clipped to the data window.
func (sw *ScanlineWriter) currentBlock() (int32, int) {
	dw := sw.dataWindow
	lpb := int32(sw.linesPerBlk)
	// Groups are always formed increasing-Y on disk; DecreasingY only
	// changes the order whole groups are emitted in, not the grouping.
	rel := (sw.nextY - dw.MinY) / lpb * lpb
	blockY := dw.MinY + rel
	h := int(lpb)
	if int32(h) > dw.MaxY-blockY+1 {
		h = int(dw.MaxY - blockY + 1)
	}
	return blockY, h
}

func (sw *ScanlineWriter) advance(n int) {
	if sw.lineOrder == exr.DecreasingY {
		sw.nextY -= int32(n)
	} else {
		sw.nextY += int32(n)
	}
}

func (sw *ScanlineWriter) writeBlock(blockY int32, height int) error {
	dw := sw.dataWindow
	width := dw.Width()
	raw := packRect(sw.channels, sw.fb, int(dw.MinX), int(blockY), width, height)

	comp := sw.compReg.New(sw.compKind)
	var payload []byte
	stored := raw
	if comp != nil {
		out, err := comp.Compress(sw.channels, width, height, raw)
		if err == nil && len(out) < len(raw) {
			stored = out
		} else if err != nil && err != compression.ErrWouldGrow {
			return exr.Wrap(exr.KindDataCorrupt, err, "compress scanline block at y=%d", blockY)
		}
	}
	payload = stored

	off, err := sw.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return exr.Wrap(exr.KindIO, err, "locate chunk start")
	}
	if sw.partNumber >= 0 {
		if err := writeI32(sw.w, int32(sw.partNumber)); err != nil {
			return err
		}
	}
	if err := writeI32(sw.w, blockY); err != nil {
		return err
	}
	if err := writeI32(sw.w, int32(len(payload))); err != nil {
		return err
	}
	if _, err := sw.w.Write(payload); err != nil {
		return exr.Wrap(exr.KindIO, err, "write scanline payload")
	}
	// The chunk index is addressed by ascending group number regardless of
	// emission order, so DecreasingY/RandomY writers still land each block
	// in its correct table slot.
	groupIdx := int((blockY - sw.dataWindow.MinY) / int32(sw.linesPerBlk))
	if err := sw.idx.Patch(groupIdx, uint64(off)); err != nil {
		return err
	}
	sw.nextChunk++
	return nil
}

// Close finalizes the writer. The chunk index was back-patched incrementally
// as each block was written, so Close is a formality that validates every
// expected chunk was in fact emitted.
func (sw *ScanlineWriter) Close() error {
	n, err := exr.ChunkIndexSize(sw.header)
	if err != nil {
		return err
	}
	if sw.nextChunk != n {
		return exr.New(exr.KindBadHeader, "wrote %d scanline chunks, expected %d", sw.nextChunk, n)
	}
	sw.state = stateClosed
	return nil
}

// ScanlineReader reads chunks back via the chunk index, decompressing into a
// caller-supplied FrameBuffer.
type ScanlineReader struct {
	r          stream.Reader
	header     *exr.Header
	channels   []compression.Channel
	compKind   compression.Kind
	compReg    *compression.Registry
	dataWindow exr.Box2i
	linesPerBlk int
	offsets    []uint64
	multiPart  bool
}

// NewScanlineReader wraps a single-part scanline file's offsets table
// (already read by the caller, e.g. via the top-level File reader) for
// random-access and sequential reads.
func NewScanlineReader(r stream.Reader, header *exr.Header, offsets []uint64, multiPart bool) (*ScanlineReader, error) {
	channels, err := channelsFor(header)
	if err != nil {
		return nil, err
	}
	dw, _ := header.DataWindow()
	comp, _ := header.Compression()
	return &ScanlineReader{
		r: r, header: header, channels: channels,
		compKind: compression.Kind(comp), compReg: compression.NewRegistry(),
		dataWindow: dw, linesPerBlk: comp.ScanlinesPerChunk(),
		offsets: offsets, multiPart: multiPart,
	}, nil
}

// ReadChunk reads chunk index i by seeking to its offset, decompresses it,
// and scatters the result into fb.
func (sr *ScanlineReader) ReadChunk(i int, fb FrameBuffer) error {
	if i < 0 || i >= len(sr.offsets) {
		return exr.New(exr.KindDataCorrupt, "scanline chunk %d out of range", i)
	}
	if _, err := sr.r.Seek(int64(sr.offsets[i]), io.SeekStart); err != nil {
		return exr.Wrap(exr.KindIO, err, "seek to scanline chunk %d", i)
	}
	if sr.multiPart {
		if _, err := readI32(sr.r); err != nil {
			return err
		}
	}
	y, err := readI32(sr.r)
	if err != nil {
		return err
	}
	size, err := readI32(sr.r)
	if err != nil {
		return err
	}
	if size < 0 {
		return exr.New(exr.KindDataCorrupt, "scanline chunk %d has negative size %d", i, size)
	}
	compressed := make([]byte, size)
	if _, err := io.ReadFull(sr.r, compressed); err != nil {
		return exr.Wrap(exr.KindIO, err, "read scanline chunk %d payload", i)
	}

	dw := sr.dataWindow
	width := dw.Width()
	height := sr.linesPerBlk
	if int32(height) > dw.MaxY-y+1 {
		height = int(dw.MaxY - y + 1)
	}
	expected := compression.RawSize(sr.channels, width, height)

	var raw []byte
	if int(size) == expected {
		raw = compressed
	} else {
		comp := sr.compReg.New(sr.compKind)
		if comp == nil {
			return exr.New(exr.KindDataCorrupt, "no compressor registered for kind %d", sr.compKind)
		}
		raw, err = comp.Uncompress(sr.channels, width, height, compressed, expected)
		if err != nil {
			return exr.Wrap(exr.KindDataCorrupt, err, "uncompress scanline chunk %d", i)
		}
	}
	unpackRect(sr.channels, fb, raw, int(dw.MinX), int(y), width, height)
	return nil
}

// NumChunks returns the number of chunks in this part's index.
func (sr *ScanlineReader) NumChunks() int { return len(sr.offsets) }

// ReadAll reads every chunk in index order (ascending group number, which is
// always increasing-Y on disk regardless of the part's lineOrder) into fb.
func (sr *ScanlineReader) ReadAll(fb FrameBuffer) error {
	for i := range sr.offsets {
		if err := sr.ReadChunk(i, fb); err != nil {
			return err
		}
	}
	return nil
}

func writeI32(w io.Writer, v int32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	if _, err := w.Write(b[:]); err != nil {
		return exr.Wrap(exr.KindIO, err, "write int32")
	}
	return nil
}

func readI32(r io.Reader) (int32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, exr.Wrap(exr.KindIO, err, "read int32")
	}
	return int32(binary.LittleEndian.Uint32(b[:])), nil
}
