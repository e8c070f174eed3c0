package codestream

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Reader parses a JPEG 2000 codestream's marker segments. It is a thin
// cursor over an io.Reader, grounded on the teacher's jpeg2000/codestream
// Parser but restructured to read incrementally (main header, then one
// tile header at a time) rather than buffering the whole codestream, since
// this module's tile-part data can be large HDR imagery rather than a
// DICOM frame.
type Reader struct {
	r       io.Reader
	buf     [4]byte
	numComp int    // populated by ReadMainHeader, used to size COC/QCC component fields
	pending uint16 // a marker already read off the wire but not yet consumed by a caller
	hasPend bool
}

// NewReader wraps r, which must be positioned at the start of the
// codestream (the SOC marker).
func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

func (p *Reader) readUint8() (uint8, error) {
	if _, err := io.ReadFull(p.r, p.buf[:1]); err != nil {
		return 0, err
	}
	return p.buf[0], nil
}

func (p *Reader) readUint16() (uint16, error) {
	if _, err := io.ReadFull(p.r, p.buf[:2]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(p.buf[:2]), nil
}

func (p *Reader) readUint32() (uint32, error) {
	if _, err := io.ReadFull(p.r, p.buf[:4]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(p.buf[:4]), nil
}

// ReadMarker reads the next two-byte marker code, returning a marker
// buffered by a previous peek (see peekMarker) before reading new bytes.
func (p *Reader) ReadMarker() (uint16, error) {
	if p.hasPend {
		p.hasPend = false
		return p.pending, nil
	}
	return p.readUint16()
}

// peekMarker reads the next marker and buffers it so the following
// ReadMarker call returns the same value.
func (p *Reader) peekMarker() (uint16, error) {
	if p.hasPend {
		return p.pending, nil
	}
	m, err := p.readUint16()
	if err != nil {
		return 0, err
	}
	p.pending, p.hasPend = m, true
	return m, nil
}

// PeekMarker reports the next marker code without consuming it, letting a
// caller stepping through tiles decide whether another SOT follows or the
// codestream ends in EOC before committing to ReadTileHeader or ReadEOC.
func (p *Reader) PeekMarker() (uint16, error) { return p.peekMarker() }

// ReadEOC consumes and validates the end-of-codestream delimiter.
func (p *Reader) ReadEOC() error {
	m, err := p.ReadMarker()
	if err != nil {
		return fmt.Errorf("read EOC: %w", err)
	}
	if m != EOC {
		return fmt.Errorf("expected EOC (0x%04X), got 0x%04X", EOC, m)
	}
	return nil
}

// ReadRaw reads exactly n raw bytes from the underlying stream. Tile-part
// bodies are addressed by SOT's PartLength rather than by marker structure,
// so callers read them directly once ReadTileHeader has consumed the
// tile-part's SOT and SOD.
func (p *Reader) ReadRaw(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(p.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadSOC consumes and validates the codestream delimiter.
func (p *Reader) ReadSOC() error {
	m, err := p.ReadMarker()
	if err != nil {
		return fmt.Errorf("read SOC: %w", err)
	}
	if m != SOC {
		return fmt.Errorf("expected SOC (0x%04X), got 0x%04X", SOC, m)
	}
	return nil
}

// ReadMainHeader reads every segment from right after SOC through (but not
// including) the SOT that starts the first tile, enforcing spec §6.6's
// "SIZ first, SOT forbidden" ordering rule.
func (p *Reader) ReadMainHeader() (*MainHeader, error) {
	h := &MainHeader{COC: make(map[int]COCSegment), QCC: make(map[int]QCCSegment)}
	sawSIZ := false
	for {
		marker, err := p.peekMarker()
		if err != nil {
			return nil, fmt.Errorf("read main header marker: %w", err)
		}
		if marker == SOT || marker == EOC {
			if !sawSIZ {
				return nil, fmt.Errorf("main header missing required SIZ segment")
			}
			return h, nil
		}
		if !sawSIZ && marker != SIZ {
			return nil, fmt.Errorf("first main-header segment must be SIZ, got %s", MarkerName(marker))
		}
		if !mainHeaderAllowed(marker) {
			return nil, fmt.Errorf("marker %s not allowed in main header", MarkerName(marker))
		}
		p.ReadMarker() // consume the peeked marker

		switch marker {
		case SIZ:
			siz, err := p.readSIZBody()
			if err != nil {
				return nil, fmt.Errorf("parse SIZ: %w", err)
			}
			h.SIZ = *siz
			p.numComp = len(siz.Components)
			sawSIZ = true
		case COD:
			cod, err := p.readCODBody()
			if err != nil {
				return nil, fmt.Errorf("parse COD: %w", err)
			}
			h.COD = *cod
		case COC:
			coc, err := p.readCOCBody(p.numComp)
			if err != nil {
				return nil, fmt.Errorf("parse COC: %w", err)
			}
			h.COC[coc.Component] = *coc
		case QCD:
			qcd, err := p.readQCDBody()
			if err != nil {
				return nil, fmt.Errorf("parse QCD: %w", err)
			}
			h.QCD = *qcd
		case QCC:
			qcc, err := p.readQCCBody(p.numComp)
			if err != nil {
				return nil, fmt.Errorf("parse QCC: %w", err)
			}
			h.QCC[qcc.Component] = *qcc
		default:
			if err := p.skipSegment(); err != nil {
				return nil, fmt.Errorf("skip %s: %w", MarkerName(marker), err)
			}
		}
	}
}

func (p *Reader) readSIZBody() (*SIZSegment, error) {
	length, err := p.readUint16()
	if err != nil {
		return nil, err
	}
	siz := &SIZSegment{}
	var e error
	read32 := func(dst *uint32) { if e == nil { *dst, e = p.readUint32() } }
	if siz.Capabilities, e = p.readUint16(); e != nil {
		return nil, e
	}
	read32(&siz.Width)
	read32(&siz.Height)
	read32(&siz.XOffset)
	read32(&siz.YOffset)
	read32(&siz.TileWidth)
	read32(&siz.TileHeight)
	read32(&siz.TileXOffset)
	read32(&siz.TileYOffset)
	if e != nil {
		return nil, e
	}
	csiz, err := p.readUint16()
	if err != nil {
		return nil, err
	}
	siz.Components = make([]Component, csiz)
	for i := range siz.Components {
		ssiz, err := p.readUint8()
		if err != nil {
			return nil, err
		}
		xr, err := p.readUint8()
		if err != nil {
			return nil, err
		}
		yr, err := p.readUint8()
		if err != nil {
			return nil, err
		}
		siz.Components[i] = Component{
			Depth:     int(ssiz&0x7F) + 1,
			Signed:    ssiz&0x80 != 0,
			XSampling: xr,
			YSampling: yr,
		}
	}
	want := 38 + 3*int(csiz)
	if int(length) != want {
		return nil, fmt.Errorf("SIZ length mismatch: segment says %d, fields need %d", length, want)
	}
	return siz, nil
}

func (p *Reader) readCodingStyle(r *Reader, explicitPrecincts bool) (CodingStyle, error) {
	var cs CodingStyle
	levels, err := r.readUint8()
	if err != nil {
		return cs, err
	}
	cbw, err := r.readUint8()
	if err != nil {
		return cs, err
	}
	cbh, err := r.readUint8()
	if err != nil {
		return cs, err
	}
	style, err := r.readUint8()
	if err != nil {
		return cs, err
	}
	xform, err := r.readUint8()
	if err != nil {
		return cs, err
	}
	cs = CodingStyle{
		DecompositionLevels: int(levels),
		CodeBlockWidthExp:   cbw,
		CodeBlockHeightExp:  cbh,
		CodeBlockStyle:      style,
		Reversible:          xform == 1,
	}
	if explicitPrecincts {
		cs.PrecinctSizes = make([]PrecinctSize, int(levels)+1)
		for i := range cs.PrecinctSizes {
			b, err := r.readUint8()
			if err != nil {
				return cs, err
			}
			cs.PrecinctSizes[i] = PrecinctSize{PPx: b & 0x0F, PPy: b >> 4}
		}
	}
	return cs, nil
}

func (p *Reader) readCODBody() (*CODSegment, error) {
	if _, err := p.readUint16(); err != nil { // length, unused: body is self-describing
		return nil, err
	}
	scod, err := p.readUint8()
	if err != nil {
		return nil, err
	}
	prog, err := p.readUint8()
	if err != nil {
		return nil, err
	}
	layers, err := p.readUint16()
	if err != nil {
		return nil, err
	}
	mct, err := p.readUint8()
	if err != nil {
		return nil, err
	}
	style, err := p.readCodingStyle(p, scod&0x01 != 0)
	if err != nil {
		return nil, err
	}
	return &CODSegment{
		UseSOP:              scod&0x02 != 0,
		UseEPH:               scod&0x04 != 0,
		Progression:          ProgressionOrder(prog),
		Layers:               int(layers),
		MultiComponentXform:  mct != 0,
		Style:                style,
	}, nil
}

func (p *Reader) readCOCBody(numComponents int) (*COCSegment, error) {
	if _, err := p.readUint16(); err != nil {
		return nil, err
	}
	var component int
	if numComponents < 257 {
		v, err := p.readUint8()
		if err != nil {
			return nil, err
		}
		component = int(v)
	} else {
		v, err := p.readUint16()
		if err != nil {
			return nil, err
		}
		component = int(v)
	}
	scoc, err := p.readUint8()
	if err != nil {
		return nil, err
	}
	style, err := p.readCodingStyle(p, scoc&0x01 != 0)
	if err != nil {
		return nil, err
	}
	return &COCSegment{Component: component, Style: style}, nil
}

func (p *Reader) readQuantStyle(length int) (QuantStyle, error) {
	sqcd, err := p.readUint8()
	if err != nil {
		return QuantStyle{}, err
	}
	q := QuantStyle{Style: sqcd & 0x1F, GuardBits: sqcd >> 5}
	n := length - 1
	if q.Style == 0 {
		q.StepSizes = make([]uint16, n)
		for i := range q.StepSizes {
			b, err := p.readUint8()
			if err != nil {
				return q, err
			}
			q.StepSizes[i] = uint16(b)
		}
	} else {
		q.StepSizes = make([]uint16, n/2)
		for i := range q.StepSizes {
			v, err := p.readUint16()
			if err != nil {
				return q, err
			}
			q.StepSizes[i] = v
		}
	}
	return q, nil
}

func (p *Reader) readQCDBody() (*QCDSegment, error) {
	length, err := p.readUint16()
	if err != nil {
		return nil, err
	}
	style, err := p.readQuantStyle(int(length) - 2)
	if err != nil {
		return nil, err
	}
	return &QCDSegment{Style: style}, nil
}

func (p *Reader) readQCCBody(numComponents int) (*QCCSegment, error) {
	length, err := p.readUint16()
	if err != nil {
		return nil, err
	}
	rest := int(length) - 2
	var component int
	if numComponents < 257 {
		v, err := p.readUint8()
		if err != nil {
			return nil, err
		}
		component, rest = int(v), rest-1
	} else {
		v, err := p.readUint16()
		if err != nil {
			return nil, err
		}
		component, rest = int(v), rest-2
	}
	style, err := p.readQuantStyle(rest)
	if err != nil {
		return nil, err
	}
	return &QCCSegment{Component: component, Style: style}, nil
}

// skipSegment discards a marker segment this package doesn't model yet
// (TLM/PLM/PLT/PPM/PPT/CRG/COM/RGN/POC), using its length field.
func (p *Reader) skipSegment() error {
	length, err := p.readUint16()
	if err != nil {
		return err
	}
	if length < 2 {
		return fmt.Errorf("segment length %d too small", length)
	}
	_, err = io.CopyN(io.Discard, p.r, int64(length)-2)
	return err
}

// ReadTileHeader reads one tile-part's SOT and its marker segments up to and
// including the SOD marker, enforcing spec §6.6's tile-header ordering.
func (p *Reader) ReadTileHeader() (*TileHeader, error) {
	m, err := p.ReadMarker()
	if err != nil {
		return nil, fmt.Errorf("read tile-header marker: %w", err)
	}
	if m != SOT {
		return nil, fmt.Errorf("expected SOT, got %s", MarkerName(m))
	}
	sot, err := p.readSOTBody()
	if err != nil {
		return nil, fmt.Errorf("parse SOT: %w", err)
	}
	th := &TileHeader{SOT: *sot, COC: make(map[int]COCSegment), QCC: make(map[int]QCCSegment)}
	for {
		marker, err := p.ReadMarker()
		if err != nil {
			return nil, fmt.Errorf("read tile-header marker: %w", err)
		}
		if marker == SOD {
			return th, nil
		}
		if !tileHeaderAllowed(marker) {
			return nil, fmt.Errorf("marker %s not allowed in tile header", MarkerName(marker))
		}
		switch marker {
		case COD:
			cod, err := p.readCODBody()
			if err != nil {
				return nil, err
			}
			th.COD = cod
		case COC:
			coc, err := p.readCOCBody(p.numComp)
			if err != nil {
				return nil, err
			}
			th.COC[coc.Component] = *coc
		case QCD:
			qcd, err := p.readQCDBody()
			if err != nil {
				return nil, err
			}
			th.QCD = qcd
		case QCC:
			qcc, err := p.readQCCBody(p.numComp)
			if err != nil {
				return nil, err
			}
			th.QCC[qcc.Component] = *qcc
		default:
			if err := p.skipSegment(); err != nil {
				return nil, err
			}
		}
	}
}

func (p *Reader) readSOTBody() (*SOTSegment, error) {
	if _, err := p.readUint16(); err != nil { // length, always 10
		return nil, err
	}
	isot, err := p.readUint16()
	if err != nil {
		return nil, err
	}
	psot, err := p.readUint32()
	if err != nil {
		return nil, err
	}
	tpsot, err := p.readUint8()
	if err != nil {
		return nil, err
	}
	tnsot, err := p.readUint8()
	if err != nil {
		return nil, err
	}
	return &SOTSegment{TileIndex: isot, PartLength: psot, TilePartIndex: tpsot, NumTileParts: tnsot}, nil
}
