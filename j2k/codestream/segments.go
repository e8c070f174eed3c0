package codestream

// ProgressionOrder enumerates the five packet progression orders
// (ISO/IEC 15444-1 Table A.16).
type ProgressionOrder uint8

const (
	LRCP ProgressionOrder = iota
	RLCP
	RPCL
	PCRL
	CPRL
)

func (p ProgressionOrder) String() string {
	switch p {
	case LRCP:
		return "LRCP"
	case RLCP:
		return "RLCP"
	case RPCL:
		return "RPCL"
	case PCRL:
		return "PCRL"
	case CPRL:
		return "CPRL"
	default:
		return "UNKNOWN"
	}
}

// Component holds one component's SIZ sizing fields.
type Component struct {
	Depth     int  // bit depth, 1..38
	Signed    bool
	XSampling uint8
	YSampling uint8
}

// SIZSegment is the image-and-tile-size segment (ISO/IEC 15444-1 A.5.1);
// every codestream's main header starts with one right after SOC. Named
// with the Segment suffix to avoid colliding with the SIZ marker constant.
type SIZSegment struct {
	Capabilities uint16
	Width        uint32
	Height       uint32
	XOffset      uint32
	YOffset      uint32
	TileWidth    uint32
	TileHeight   uint32
	TileXOffset  uint32
	TileYOffset  uint32
	Components   []Component
}

// PrecinctSize holds one resolution level's precinct exponents.
type PrecinctSize struct {
	PPx, PPy uint8
}

// CodingStyle is the coding-style parameter block shared by COD's SPcod
// and COC's SPcoc (ISO/IEC 15444-1 A.6.1/A.6.2): decomposition levels,
// codeblock log-dimensions, codeblock style flags, and transform kernel.
type CodingStyle struct {
	DecompositionLevels int
	CodeBlockWidthExp   uint8 // actual width = 1<<(exp+2)
	CodeBlockHeightExp  uint8
	CodeBlockStyle      uint8
	Reversible          bool // true = 5/3, false = 9/7
	PrecinctSizes       []PrecinctSize // nil unless explicit precincts signaled
}

func (cs CodingStyle) CodeBlockSize() (width, height int) {
	return 1 << (cs.CodeBlockWidthExp + 2), 1 << (cs.CodeBlockHeightExp + 2)
}

// explicitPrecincts reports whether SPcod/SPcoc carries a per-resolution
// precinct size list (Scod/Scoc bit 0).
func (cs CodingStyle) explicitPrecincts() bool { return len(cs.PrecinctSizes) > 0 }

// CODSegment is the coding-style-default segment: applies to every
// component not overridden by a COCSegment.
type CODSegment struct {
	UseSOP, UseEPH      bool
	Progression         ProgressionOrder
	Layers              int
	MultiComponentXform bool
	Style               CodingStyle
}

// COCSegment overrides CODSegment's style for one component.
type COCSegment struct {
	Component int
	Style     CodingStyle
}

// QuantStyle is the quantization parameter block shared by QCD's Sqcd/SPqcd
// and QCC's Sqcc/SPqcc (ISO/IEC 15444-1 A.6.4/A.6.5).
type QuantStyle struct {
	// Style: 0 = none, 1 = scalar derived, 2 = scalar expounded.
	Style     uint8
	GuardBits uint8
	// StepSizes packs, per subband, (exponent<<11 | mantissa) for derived/
	// expounded, or just exponent<<3 for style 0 — kept as raw 16-bit words
	// so callers needing full dequantization precision can unpack them
	// without this package committing to a float representation.
	StepSizes []uint16
}

// QCDSegment is the quantization-default segment.
type QCDSegment struct{ Style QuantStyle }

// QCCSegment overrides QCDSegment's style for one component.
type QCCSegment struct {
	Component int
	Style     QuantStyle
}

// SOTSegment is the start-of-tile-part segment.
type SOTSegment struct {
	TileIndex     uint16
	PartLength    uint32 // total tile-part length including this SOT's header
	TilePartIndex uint8
	NumTileParts  uint8 // 0 means "unknown, determine from EOC/next SOT"
}

// MainHeader collects every segment parsed (or to be written) before the
// first SOT, i.e. the segments spec §6.6 allows between SIZ and SOT.
type MainHeader struct {
	SIZ SIZSegment
	COD CODSegment
	QCD QCDSegment
	COC map[int]COCSegment
	QCC map[int]QCCSegment
}

// ComponentStyle resolves a component's effective coding style, honoring a
// COC override if present.
func (h *MainHeader) ComponentStyle(component int) CodingStyle {
	if h.COC != nil {
		if coc, ok := h.COC[component]; ok {
			return coc.Style
		}
	}
	return h.COD.Style
}

// ComponentQuant resolves a component's effective quantization style,
// honoring a QCC override if present.
func (h *MainHeader) ComponentQuant(component int) QuantStyle {
	if h.QCC != nil {
		if qcc, ok := h.QCC[component]; ok {
			return qcc.Style
		}
	}
	return h.QCD.Style
}

// TileHeader collects a tile-part's own marker segments (those appearing
// between its SOT and its SOD), which may override the main header's COD/
// QCD/COC/QCC for that tile only.
type TileHeader struct {
	SOT SOTSegment
	COD *CODSegment
	QCD *QCDSegment
	COC map[int]COCSegment
	QCC map[int]QCCSegment
}
