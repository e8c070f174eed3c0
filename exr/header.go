package exr

// Header is an insertion-ordered name→Attribute mapping, mirroring the
// on-disk attribute stream (§3, §4.1). It owns a Registry so construction
// never touches process-global state (§9 "Global mutable state").
type Header struct {
	reg     *Registry
	order   []string
	byName  map[string]Attribute
	version uint32
}

// NewHeader returns an empty header backed by a fresh built-in registry.
func NewHeader() *Header {
	return &Header{
		reg:    NewRegistry(),
		byName: make(map[string]Attribute),
	}
}

// Registry returns the header's attribute-type registry, so a caller can
// register a private extension type before parsing or before setting a
// custom attribute.
func (h *Header) Registry() *Registry { return h.reg }

// Set installs or replaces the attribute named name. Exactly one attribute
// per name may exist (§3); Set enforces that by overwriting in place.
func (h *Header) Set(name string, attr Attribute) {
	if _, exists := h.byName[name]; !exists {
		h.order = append(h.order, name)
	}
	h.byName[name] = attr
}

// Get returns the attribute named name, or nil if absent.
func (h *Header) Get(name string) Attribute { return h.byName[name] }

// Names returns attribute names in insertion order.
func (h *Header) Names() []string { return append([]string(nil), h.order...) }

// Has reports whether name is present.
func (h *Header) Has(name string) bool {
	_, ok := h.byName[name]
	return ok
}

// --- required-attribute accessor shortcuts (§3) ---

func (h *Header) Channels() (*ChannelListAttr, bool) {
	a, ok := h.byName["channels"].(*ChannelListAttr)
	return a, ok
}

func (h *Header) DataWindow() (Box2i, bool) {
	a, ok := h.byName["dataWindow"].(*Box2iAttr)
	if !ok {
		return Box2i{}, false
	}
	return a.Value, true
}

func (h *Header) DisplayWindow() (Box2i, bool) {
	a, ok := h.byName["displayWindow"].(*Box2iAttr)
	if !ok {
		return Box2i{}, false
	}
	return a.Value, true
}

func (h *Header) PixelAspectRatio() (float32, bool) {
	a, ok := h.byName["pixelAspectRatio"].(*FloatAttr)
	if !ok {
		return 0, false
	}
	return a.Value, true
}

func (h *Header) ScreenWindowCenter() (*VecAttr, bool) {
	a, ok := h.byName["screenWindowCenter"].(*VecAttr)
	return a, ok
}

func (h *Header) ScreenWindowWidth() (float32, bool) {
	a, ok := h.byName["screenWindowWidth"].(*FloatAttr)
	if !ok {
		return 0, false
	}
	return a.Value, true
}

func (h *Header) LineOrder() (LineOrder, bool) {
	a, ok := h.byName["lineOrder"].(*LineOrderAttr)
	if !ok {
		return 0, false
	}
	return a.Value, true
}

func (h *Header) Compression() (Compression, bool) {
	a, ok := h.byName["compression"].(*CompressionAttr)
	if !ok {
		return 0, false
	}
	return a.Value, true
}

func (h *Header) Tiles() (TileDescription, bool) {
	a, ok := h.byName["tiles"].(*TileDescAttr)
	if !ok {
		return TileDescription{}, false
	}
	return a.Value, true
}

func (h *Header) Type() (string, bool) {
	a, ok := h.byName["type"].(*StringAttr)
	if !ok {
		return "", false
	}
	return a.Value, true
}

func (h *Header) ChunkCount() (int32, bool) {
	a, ok := h.byName["chunkCount"].(*IntAttr)
	if !ok {
		return 0, false
	}
	return a.Value, true
}

// partType string values recognized by the "type" attribute (§3).
const (
	PartScanlineImage = "scanlineimage"
	PartTiledImage    = "tiledimage"
	PartDeepScanline  = "deepscanline"
	PartDeepTile      = "deeptile"
)

func isDeepPartType(t string) bool {
	return t == PartDeepScanline || t == PartDeepTile
}

func isTiledPartType(t string) bool {
	return t == PartTiledImage || t == PartDeepTile
}

// Validate enforces §4.2's mandatory-attribute and range checks. It is run
// both at encoder-finalize time and immediately after a decoder parses a
// header.
func (h *Header) Validate() error {
	dw, ok := h.DataWindow()
	if !ok {
		return newErr(KindBadHeader, "missing dataWindow")
	}
	if dw.Empty() {
		return newErr(KindBadHeader, "dataWindow is empty")
	}
	dispW, ok := h.DisplayWindow()
	if !ok {
		return newErr(KindBadHeader, "missing displayWindow")
	}
	if dispW.Empty() {
		return newErr(KindBadHeader, "displayWindow is empty")
	}
	par, ok := h.PixelAspectRatio()
	if !ok || par <= 0 {
		return newErr(KindBadHeader, "pixelAspectRatio must be present and > 0")
	}
	sww, ok := h.ScreenWindowWidth()
	if !ok || sww <= 0 {
		return newErr(KindBadHeader, "screenWindowWidth must be present and > 0")
	}
	lo, ok := h.LineOrder()
	if !ok {
		return newErr(KindBadHeader, "missing lineOrder")
	}
	if lo != IncreasingY && lo != DecreasingY && lo != RandomY {
		return newErr(KindBadHeader, "lineOrder %d out of range", lo)
	}
	comp, ok := h.Compression()
	if !ok {
		return newErr(KindBadHeader, "missing compression")
	}
	if comp > CompressionDWAB {
		return newErr(KindBadHeader, "compression %d out of range", comp)
	}

	partType, hasType := h.Type()
	tiled := hasType && isTiledPartType(partType)

	if tiled {
		td, ok := h.Tiles()
		if !ok {
			return newErr(KindBadHeader, "tiled part missing tiles attribute")
		}
		if td.XSize < 1 || td.YSize < 1 {
			return newErr(KindBadHeader, "tile dimensions must be >= 1, got %dx%d", td.XSize, td.YSize)
		}
	}

	chans, ok := h.Channels()
	if !ok {
		return newErr(KindBadHeader, "missing channels")
	}
	seen := make(map[string]bool, len(chans.Channels))
	for _, ch := range chans.Channels {
		if seen[ch.Name] {
			return newErr(KindBadHeader, "duplicate channel name %q", ch.Name)
		}
		seen[ch.Name] = true
		if ch.Sampling.X < 1 || ch.Sampling.Y < 1 {
			return newErr(KindBadHeader, "channel %q has non-positive sampling rate", ch.Name)
		}
		if int32(dw.MinX)%ch.Sampling.X != 0 || int32(dw.MinY)%ch.Sampling.Y != 0 {
			return newErr(KindBadHeader, "channel %q sampling rate does not divide dataWindow origin", ch.Name)
		}
		if int32(dw.Width())%ch.Sampling.X != 0 || int32(dw.Height())%ch.Sampling.Y != 0 {
			return newErr(KindBadHeader, "channel %q sampling rate does not divide dataWindow size", ch.Name)
		}
	}

	if hasType && isDeepPartType(partType) {
		if _, ok := h.byName["version"]; !ok {
			return newErr(KindBadHeader, "deep part missing version attribute")
		}
	}
	if hasType {
		if _, ok := h.byName["chunkCount"]; !ok {
			// Only required for multi-part/deep files; single-part flat
			// files may omit it and let the reader compute it.
		}
	}

	return nil
}
