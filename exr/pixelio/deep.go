package pixelio

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"

	"github.com/cocosip/go-hdrimage/exr"
	"github.com/cocosip/go-hdrimage/exr/compression"
	"github.com/cocosip/go-hdrimage/exr/stream"
)

// DeepChannel holds one channel's variable-length per-pixel sample data for
// a rectangle of rows: Samples[row][col] is that pixel's raw sample bytes,
// length SampleCounts[row][col]*Type.Size().
type DeepChannel struct {
	Type    exr.PixelType
	Samples [][][]byte
}

// DeepFrameBuffer is the deep analogue of FrameBuffer (§6.5, §4.5): every
// pixel carries its own sample count plus, per channel, that many samples.
type DeepFrameBuffer struct {
	SampleCounts [][]int32
	Channels     map[string]DeepChannel
}

// DeepScanlineWriter packs a deep scanline part's chunks (§4.5's deep
// variant): the sample-count table and the sample data are compressed as
// two independent streams so a reader can skip straight to one or the
// other.
type DeepScanlineWriter struct {
	w           stream.Writer
	header      *exr.Header
	channels    []compression.Channel
	dataWindow  exr.Box2i
	linesPerBlk int
	partNumber  int
	idx         *exr.ChunkIndexWriter
	written     int
}

// NewDeepScanlineWriter is the single-part convenience constructor.
func NewDeepScanlineWriter(w stream.Writer, header *exr.Header) (*DeepScanlineWriter, error) {
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
	return newDeepScanlinePart(w, header, -1, idx)
}

func newDeepScanlinePart(w stream.Writer, header *exr.Header, partNumber int, idx *exr.ChunkIndexWriter) (*DeepScanlineWriter, error) {
	channels, err := channelsFor(header)
	if err != nil {
		return nil, err
	}
	dw, _ := header.DataWindow()
	comp, _ := header.Compression()
	return &DeepScanlineWriter{
		w: w, header: header, channels: channels, dataWindow: dw,
		linesPerBlk: comp.ScanlinesPerChunk(), partNumber: partNumber, idx: idx,
	}, nil
}

// WriteBlock writes one chunk's worth of rows (blockY..blockY+len(fb.SampleCounts)-1)
// from fb.
func (dw *DeepScanlineWriter) WriteBlock(blockY int32, fb DeepFrameBuffer) error {
	width := dw.dataWindow.Width()
	height := len(fb.SampleCounts)

	packedCounts := packSampleCounts(fb.SampleCounts, width, height)
	unpackedCountsSize := len(packedCounts)
	compressedCounts := deflateBytes(packedCounts)

	packedData, unpackedDataSize := packDeepSamples(dw.channels, fb, width, height)
	compressedData := deflateBytes(packedData)

	off, err := dw.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return exr.Wrap(exr.KindIO, err, "locate deep chunk start")
	}
	if dw.partNumber >= 0 {
		if err := writeI32(dw.w, int32(dw.partNumber)); err != nil {
			return err
		}
	}
	if err := writeI32(dw.w, blockY); err != nil {
		return err
	}
	// sample-count table sizes: its deflated size as written, then its
	// unpacked size.
	if err := writeI64(dw.w, int64(len(compressedCounts))); err != nil {
		return err
	}
	if err := writeI64(dw.w, int64(unpackedCountsSize)); err != nil {
		return err
	}
	if err := writeI64(dw.w, int64(len(compressedData))); err != nil {
		return err
	}
	if err := writeI64(dw.w, int64(unpackedDataSize)); err != nil {
		return err
	}
	if _, err := dw.w.Write(compressedCounts); err != nil {
		return exr.Wrap(exr.KindIO, err, "write deep sample counts")
	}
	if _, err := dw.w.Write(compressedData); err != nil {
		return exr.Wrap(exr.KindIO, err, "write deep sample data")
	}

	lpb := int32(dw.linesPerBlk)
	groupIdx := int((blockY - dw.dataWindow.MinY) / lpb)
	if err := dw.idx.Patch(groupIdx, uint64(off)); err != nil {
		return err
	}
	dw.written++
	return nil
}

// Close validates every expected chunk was written.
func (dw *DeepScanlineWriter) Close() error {
	n, err := exr.ChunkIndexSize(dw.header)
	if err != nil {
		return err
	}
	if dw.written != n {
		return exr.New(exr.KindBadHeader, "wrote %d deep chunks, expected %d", dw.written, n)
	}
	return nil
}

// DeepScanlineReader reads deep scanline chunks back.
type DeepScanlineReader struct {
	r           stream.Reader
	channels    []compression.Channel
	dataWindow  exr.Box2i
	linesPerBlk int
	offsets     []uint64
	multiPart   bool
}

// NewDeepScanlineReader wraps an already-read offsets table.
func NewDeepScanlineReader(r stream.Reader, header *exr.Header, offsets []uint64, multiPart bool) (*DeepScanlineReader, error) {
	channels, err := channelsFor(header)
	if err != nil {
		return nil, err
	}
	dw, _ := header.DataWindow()
	comp, _ := header.Compression()
	return &DeepScanlineReader{
		r: r, channels: channels, dataWindow: dw,
		linesPerBlk: comp.ScanlinesPerChunk(), offsets: offsets, multiPart: multiPart,
	}, nil
}

// ReadChunk reads chunk i into a freshly built DeepFrameBuffer.
func (dr *DeepScanlineReader) ReadChunk(i int) (int32, DeepFrameBuffer, error) {
	if i < 0 || i >= len(dr.offsets) {
		return 0, DeepFrameBuffer{}, exr.New(exr.KindDataCorrupt, "deep chunk %d out of range", i)
	}
	if _, err := dr.r.Seek(int64(dr.offsets[i]), io.SeekStart); err != nil {
		return 0, DeepFrameBuffer{}, exr.Wrap(exr.KindIO, err, "seek to deep chunk %d", i)
	}
	if dr.multiPart {
		if _, err := readI32(dr.r); err != nil {
			return 0, DeepFrameBuffer{}, err
		}
	}
	y, err := readI32(dr.r)
	if err != nil {
		return 0, DeepFrameBuffer{}, err
	}
	packedCountsSize, err := readI64(dr.r)
	if err != nil {
		return 0, DeepFrameBuffer{}, err
	}
	unpackedCountsSize, err := readI64(dr.r)
	if err != nil {
		return 0, DeepFrameBuffer{}, err
	}
	packedDataSize, err := readI64(dr.r)
	if err != nil {
		return 0, DeepFrameBuffer{}, err
	}
	unpackedDataSize, err := readI64(dr.r)
	if err != nil {
		return 0, DeepFrameBuffer{}, err
	}

	compressedCounts := make([]byte, packedCountsSize)
	if _, err := io.ReadFull(dr.r, compressedCounts); err != nil {
		return 0, DeepFrameBuffer{}, exr.Wrap(exr.KindIO, err, "read deep sample counts")
	}
	compressedData := make([]byte, packedDataSize)
	if _, err := io.ReadFull(dr.r, compressedData); err != nil {
		return 0, DeepFrameBuffer{}, exr.Wrap(exr.KindIO, err, "read deep sample data")
	}

	packedCounts, err := inflateBytes(compressedCounts, int(unpackedCountsSize))
	if err != nil {
		return 0, DeepFrameBuffer{}, exr.Wrap(exr.KindDataCorrupt, err, "inflate deep sample counts")
	}
	packedData, err := inflateBytes(compressedData, int(unpackedDataSize))
	if err != nil {
		return 0, DeepFrameBuffer{}, exr.Wrap(exr.KindDataCorrupt, err, "inflate deep sample data")
	}

	width := dr.dataWindow.Width()
	height := len(packedCounts) / (4 * width)
	counts := unpackSampleCounts(packedCounts, width, height)
	fb := DeepFrameBuffer{SampleCounts: counts, Channels: make(map[string]DeepChannel, len(dr.channels))}
	unpackDeepSamples(dr.channels, packedData, counts, width, height, &fb)
	return y, fb, nil
}

// NumChunks reports how many chunks this part's index holds.
func (dr *DeepScanlineReader) NumChunks() int { return len(dr.offsets) }

func packSampleCounts(counts [][]int32, width, height int) []byte {
	buf := make([]byte, 0, width*height*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], uint32(counts[y][x]))
			buf = append(buf, b[:]...)
		}
	}
	return buf
}

func unpackSampleCounts(packed []byte, width, height int) [][]int32 {
	counts := make([][]int32, height)
	for y := 0; y < height; y++ {
		counts[y] = make([]int32, width)
		for x := 0; x < width; x++ {
			off := (y*width + x) * 4
			counts[y][x] = int32(binary.LittleEndian.Uint32(packed[off:]))
		}
	}
	return counts
}

// packDeepSamples concatenates every channel's samples, channel-major then
// row-major then column-major (mirroring the flat chunk's "channels in
// sorted order, rows concatenated" layout).
func packDeepSamples(channels []compression.Channel, fb DeepFrameBuffer, width, height int) ([]byte, int) {
	var buf bytes.Buffer
	for _, ch := range channels {
		dc, ok := fb.Channels[ch.Name]
		if !ok {
			continue
		}
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				buf.Write(dc.Samples[y][x])
			}
		}
	}
	return buf.Bytes(), buf.Len()
}

func unpackDeepSamples(channels []compression.Channel, packed []byte, counts [][]int32, width, height int, fb *DeepFrameBuffer) {
	pos := 0
	for _, ch := range channels {
		samples := make([][][]byte, height)
		for y := 0; y < height; y++ {
			samples[y] = make([][]byte, width)
			for x := 0; x < width; x++ {
				n := int(counts[y][x]) * ch.Type.Size()
				samples[y][x] = append([]byte(nil), packed[pos:pos+n]...)
				pos += n
			}
		}
		fb.Channels[ch.Name] = DeepChannel{Type: exr.PixelType(ch.Type), Samples: samples}
	}
}

func deflateBytes(raw []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(raw)
	zw.Close()
	return buf.Bytes()
}

func inflateBytes(compressed []byte, expectedLen int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out := make([]byte, expectedLen)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, err
	}
	return out, nil
}

func writeI64(w io.Writer, v int64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	if _, err := w.Write(b[:]); err != nil {
		return exr.Wrap(exr.KindIO, err, "write int64")
	}
	return nil
}

func readI64(r io.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, exr.Wrap(exr.KindIO, err, "read int64")
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
