package pixelio

import (
	"io"

	"github.com/cocosip/go-hdrimage/exr"
	"github.com/cocosip/go-hdrimage/exr/compression"
	"github.com/cocosip/go-hdrimage/exr/stream"
)

// TileLevel precomputes one level's geometry and its offset into the
// part's flattened chunk-index.
type TileLevel struct {
	lx, ly     int // level indices (both equal under MIPMAP)
	w, h       int // level pixel dimensions
	numX, numY int // tile grid dimensions at this level
	base       int // first chunk-index slot for this level
}

// TileWriter packs a flat tiled part's chunks. Unlike scanlines, tiles may be
// written in any order (§4.5): the chunk index, not emission order, is the
// source of truth.
type TileWriter struct {
	w          stream.Writer
	header     *exr.Header
	channels   []compression.Channel
	compKind   compression.Kind
	compReg    *compression.Registry
	dataWindow exr.Box2i
	tiles      exr.TileDescription
	levels     []TileLevel
	partNumber int
	idx        *exr.ChunkIndexWriter
	written    int
	fb         FrameBuffer
}

// NewTileWriter is the single-part convenience constructor, mirroring
// NewScanlineWriter.
func NewTileWriter(w stream.Writer, header *exr.Header) (*TileWriter, error) {
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
	return newTilePart(w, header, -1, idx)
}

func newTilePart(w stream.Writer, header *exr.Header, partNumber int, idx *exr.ChunkIndexWriter) (*TileWriter, error) {
	channels, err := channelsFor(header)
	if err != nil {
		return nil, err
	}
	dw, _ := header.DataWindow()
	comp, _ := header.Compression()
	td, ok := header.Tiles()
	if !ok {
		return nil, exr.New(exr.KindBadHeader, "tiled part missing tiles attribute")
	}
	levels := buildLevels(td, dw)
	return &TileWriter{
		w: w, header: header, channels: channels,
		compKind: compression.Kind(comp), compReg: compression.NewRegistry(),
		dataWindow: dw, tiles: td, levels: levels,
		partNumber: partNumber, idx: idx,
	}, nil
}

func buildLevels(td exr.TileDescription, dw exr.Box2i) []TileLevel {
	w, h := dw.Width(), dw.Height()
	tw, th := int(td.XSize), int(td.YSize)
	var levels []TileLevel
	add := func(lx, ly int) {
		lw := exr.LevelSize(td.Rounding, w, lx)
		lh := exr.LevelSize(td.Rounding, h, ly)
		numX := (lw + tw - 1) / tw
		numY := (lh + th - 1) / th
		levels = append(levels, TileLevel{lx: lx, ly: ly, w: lw, h: lh, numX: numX, numY: numY})
	}
	switch td.Mode {
	case exr.LevelOne:
		add(0, 0)
	case exr.LevelMipmap:
		n, _ := exr.LevelCount(exr.LevelMipmap, td.Rounding, w, h)
		for l := 0; l < n; l++ {
			add(l, l)
		}
	case exr.LevelRipmap:
		nx, ny := exr.LevelCount(exr.LevelRipmap, td.Rounding, w, h)
		for lx := 0; lx < nx; lx++ {
			for ly := 0; ly < ny; ly++ {
				add(lx, ly)
			}
		}
	}
	base := 0
	for i := range levels {
		levels[i].base = base
		base += levels[i].numX * levels[i].numY
	}
	return levels
}

func findLevel(levels []TileLevel, lx, ly int) (*TileLevel, bool) {
	for i := range levels {
		if levels[i].lx == lx && levels[i].ly == ly {
			return &levels[i], true
		}
	}
	return nil, false
}

// SetFrameBuffer attaches pixel storage for subsequent WriteTile calls.
func (tw *TileWriter) SetFrameBuffer(fb FrameBuffer) { tw.fb = fb }

// WriteTile packs and writes the tile at (tileX, tileY) of level (levelX,
// levelY), reading pixels from the frame buffer at that level's own origin.
func (tw *TileWriter) WriteTile(tileX, tileY, levelX, levelY int) error {
	lvl, ok := findLevel(tw.levels, levelX, levelY)
	if !ok {
		return exr.New(exr.KindBadHeader, "level (%d,%d) not present for this tile description", levelX, levelY)
	}
	if tileX < 0 || tileX >= lvl.numX || tileY < 0 || tileY >= lvl.numY {
		return exr.New(exr.KindBadHeader, "tile (%d,%d) out of range for level (%d,%d) grid %dx%d", tileX, tileY, levelX, levelY, lvl.numX, lvl.numY)
	}
	tw_, th_ := int(tw.tiles.XSize), int(tw.tiles.YSize)
	rectX := tileX * tw_
	rectY := tileY * th_
	width := tw_
	if rectX+width > lvl.w {
		width = lvl.w - rectX
	}
	height := th_
	if rectY+height > lvl.h {
		height = lvl.h - rectY
	}

	raw := packRect(tw.channels, tw.fb, rectX, rectY, width, height)
	comp := tw.compReg.New(tw.compKind)
	payload := raw
	if comp != nil {
		out, err := comp.Compress(tw.channels, width, height, raw)
		if err == nil && len(out) < len(raw) {
			payload = out
		} else if err != nil && err != compression.ErrWouldGrow {
			return exr.Wrap(exr.KindDataCorrupt, err, "compress tile (%d,%d,%d,%d)", tileX, tileY, levelX, levelY)
		}
	}

	off, err := tw.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return exr.Wrap(exr.KindIO, err, "locate chunk start")
	}
	if tw.partNumber >= 0 {
		if err := writeI32(tw.w, int32(tw.partNumber)); err != nil {
			return err
		}
	}
	for _, v := range []int32{int32(tileX), int32(tileY), int32(levelX), int32(levelY)} {
		if err := writeI32(tw.w, v); err != nil {
			return err
		}
	}
	if err := writeI32(tw.w, int32(len(payload))); err != nil {
		return err
	}
	if _, err := tw.w.Write(payload); err != nil {
		return exr.Wrap(exr.KindIO, err, "write tile payload")
	}

	slot := lvl.base + tileY*lvl.numX + tileX
	if err := tw.idx.Patch(slot, uint64(off)); err != nil {
		return err
	}
	tw.written++
	return nil
}

// Close validates every tile in every level was written.
func (tw *TileWriter) Close() error {
	total := 0
	for _, l := range tw.levels {
		total += l.numX * l.numY
	}
	if tw.written != total {
		return exr.New(exr.KindBadHeader, "wrote %d tiles, expected %d", tw.written, total)
	}
	return nil
}

// TileReader reads a flat tiled part back via its chunk index.
type TileReader struct {
	r          stream.Reader
	header     *exr.Header
	channels   []compression.Channel
	compKind   compression.Kind
	compReg    *compression.Registry
	dataWindow exr.Box2i
	tiles      exr.TileDescription
	levels     []TileLevel
	offsets    []uint64
	multiPart  bool
}

// NewTileReader wraps an already-read offsets table for random tile access.
func NewTileReader(r stream.Reader, header *exr.Header, offsets []uint64, multiPart bool) (*TileReader, error) {
	channels, err := channelsFor(header)
	if err != nil {
		return nil, err
	}
	dw, _ := header.DataWindow()
	comp, _ := header.Compression()
	td, ok := header.Tiles()
	if !ok {
		return nil, exr.New(exr.KindBadHeader, "tiled part missing tiles attribute")
	}
	return &TileReader{
		r: r, header: header, channels: channels,
		compKind: compression.Kind(comp), compReg: compression.NewRegistry(),
		dataWindow: dw, tiles: td, levels: buildLevels(td, dw),
		offsets: offsets, multiPart: multiPart,
	}, nil
}

// ReadTile reads the tile at (tileX, tileY, levelX, levelY) into fb.
func (tr *TileReader) ReadTile(tileX, tileY, levelX, levelY int, fb FrameBuffer) error {
	lvl, ok := findLevel(tr.levels, levelX, levelY)
	if !ok {
		return exr.New(exr.KindBadHeader, "level (%d,%d) not present", levelX, levelY)
	}
	slot := lvl.base + tileY*lvl.numX + tileX
	if slot < 0 || slot >= len(tr.offsets) {
		return exr.New(exr.KindDataCorrupt, "tile (%d,%d,%d,%d) out of range", tileX, tileY, levelX, levelY)
	}
	if _, err := tr.r.Seek(int64(tr.offsets[slot]), io.SeekStart); err != nil {
		return exr.Wrap(exr.KindIO, err, "seek to tile chunk")
	}
	if tr.multiPart {
		if _, err := readI32(tr.r); err != nil {
			return err
		}
	}
	var coords [4]int32
	for i := range coords {
		v, err := readI32(tr.r)
		if err != nil {
			return err
		}
		coords[i] = v
	}
	size, err := readI32(tr.r)
	if err != nil {
		return err
	}
	if size < 0 {
		return exr.New(exr.KindDataCorrupt, "tile chunk has negative size %d", size)
	}
	compressed := make([]byte, size)
	if _, err := io.ReadFull(tr.r, compressed); err != nil {
		return exr.Wrap(exr.KindIO, err, "read tile payload")
	}

	tw_, th_ := int(tr.tiles.XSize), int(tr.tiles.YSize)
	rectX, rectY := tileX*tw_, tileY*th_
	width := tw_
	if rectX+width > lvl.w {
		width = lvl.w - rectX
	}
	height := th_
	if rectY+height > lvl.h {
		height = lvl.h - rectY
	}
	expected := compression.RawSize(tr.channels, width, height)

	var raw []byte
	if int(size) == expected {
		raw = compressed
	} else {
		comp := tr.compReg.New(tr.compKind)
		if comp == nil {
			return exr.New(exr.KindDataCorrupt, "no compressor for kind %d", tr.compKind)
		}
		raw, err = comp.Uncompress(tr.channels, width, height, compressed, expected)
		if err != nil {
			return exr.Wrap(exr.KindDataCorrupt, err, "uncompress tile")
		}
	}
	unpackRect(tr.channels, fb, raw, rectX, rectY, width, height)
	return nil
}

// Levels exposes the level grid geometry for callers that want to iterate
// every tile of a level (e.g. a full-image decode).
func (tr *TileReader) Levels() []TileLevel { return tr.levels }

// LevelGrid returns a level's tile-grid dimensions.
func (l TileLevel) LevelGrid() (numX, numY int) { return l.numX, l.numY }

// LevelSize returns a level's pixel dimensions.
func (l TileLevel) LevelSize() (w, h int) { return l.w, l.h }
