package codestream

import (
	"encoding/binary"
	"io"
)

// Writer emits JPEG 2000 codestream marker segments, the write-side
// counterpart of Reader.
type Writer struct {
	w   io.Writer
	buf [4]byte
}

// NewWriter wraps w for marker-at-a-time writing.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (w *Writer) writeUint8(v uint8) error {
	w.buf[0] = v
	_, err := w.w.Write(w.buf[:1])
	return err
}

func (w *Writer) writeUint16(v uint16) error {
	binary.BigEndian.PutUint16(w.buf[:2], v)
	_, err := w.w.Write(w.buf[:2])
	return err
}

func (w *Writer) writeUint32(v uint32) error {
	binary.BigEndian.PutUint32(w.buf[:4], v)
	_, err := w.w.Write(w.buf[:4])
	return err
}

// WriteMarker emits a bare two-byte marker code (SOC, SOD, EOC).
func (w *Writer) WriteMarker(marker uint16) error { return w.writeUint16(marker) }

// WriteSOC emits the codestream delimiter.
func (w *Writer) WriteSOC() error { return w.WriteMarker(SOC) }

// WriteSOD emits the start-of-data delimiter.
func (w *Writer) WriteSOD() error { return w.WriteMarker(SOD) }

// WriteEOC emits the end-of-codestream delimiter.
func (w *Writer) WriteEOC() error { return w.WriteMarker(EOC) }

// WriteSIZ emits the image-and-tile-size segment.
func (w *Writer) WriteSIZ(siz *SIZSegment) error {
	if err := w.writeUint16(SIZ); err != nil {
		return err
	}
	length := uint16(38 + 3*len(siz.Components))
	if err := w.writeUint16(length); err != nil {
		return err
	}
	if err := w.writeUint16(siz.Capabilities); err != nil {
		return err
	}
	for _, v := range []uint32{siz.Width, siz.Height, siz.XOffset, siz.YOffset, siz.TileWidth, siz.TileHeight, siz.TileXOffset, siz.TileYOffset} {
		if err := w.writeUint32(v); err != nil {
			return err
		}
	}
	if err := w.writeUint16(uint16(len(siz.Components))); err != nil {
		return err
	}
	for _, c := range siz.Components {
		ssiz := uint8(c.Depth-1) & 0x7F
		if c.Signed {
			ssiz |= 0x80
		}
		if err := w.writeUint8(ssiz); err != nil {
			return err
		}
		if err := w.writeUint8(c.XSampling); err != nil {
			return err
		}
		if err := w.writeUint8(c.YSampling); err != nil {
			return err
		}
	}
	return nil
}

func codingStyleLength(cs CodingStyle) int {
	n := 5
	if cs.explicitPrecincts() {
		n += len(cs.PrecinctSizes)
	}
	return n
}

func (w *Writer) writeCodingStyle(cs CodingStyle) error {
	if err := w.writeUint8(uint8(cs.DecompositionLevels)); err != nil {
		return err
	}
	if err := w.writeUint8(cs.CodeBlockWidthExp); err != nil {
		return err
	}
	if err := w.writeUint8(cs.CodeBlockHeightExp); err != nil {
		return err
	}
	if err := w.writeUint8(cs.CodeBlockStyle); err != nil {
		return err
	}
	xform := uint8(0)
	if cs.Reversible {
		xform = 1
	}
	if err := w.writeUint8(xform); err != nil {
		return err
	}
	if cs.explicitPrecincts() {
		for _, ps := range cs.PrecinctSizes {
			if err := w.writeUint8((ps.PPy << 4) | (ps.PPx & 0x0F)); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteCOD emits the coding-style-default segment.
func (w *Writer) WriteCOD(cod *CODSegment) error {
	if err := w.writeUint16(COD); err != nil {
		return err
	}
	length := uint16(2 + 1 + 1 + 2 + 1 + codingStyleLength(cod.Style))
	if err := w.writeUint16(length); err != nil {
		return err
	}
	scod := uint8(0)
	if cod.Style.explicitPrecincts() {
		scod |= 0x01
	}
	if cod.UseSOP {
		scod |= 0x02
	}
	if cod.UseEPH {
		scod |= 0x04
	}
	if err := w.writeUint8(scod); err != nil {
		return err
	}
	if err := w.writeUint8(uint8(cod.Progression)); err != nil {
		return err
	}
	if err := w.writeUint16(uint16(cod.Layers)); err != nil {
		return err
	}
	mct := uint8(0)
	if cod.MultiComponentXform {
		mct = 1
	}
	if err := w.writeUint8(mct); err != nil {
		return err
	}
	return w.writeCodingStyle(cod.Style)
}

// WriteCOC emits a per-component coding-style override, sizing the
// component field as one or two bytes per numComponents, matching
// readCOCBody's symmetric rule.
func (w *Writer) WriteCOC(coc *COCSegment, numComponents int) error {
	if err := w.writeUint16(COC); err != nil {
		return err
	}
	compBytes := 1
	if numComponents >= 257 {
		compBytes = 2
	}
	length := uint16(2 + compBytes + 1 + codingStyleLength(coc.Style))
	if err := w.writeUint16(length); err != nil {
		return err
	}
	if compBytes == 1 {
		if err := w.writeUint8(uint8(coc.Component)); err != nil {
			return err
		}
	} else {
		if err := w.writeUint16(uint16(coc.Component)); err != nil {
			return err
		}
	}
	scoc := uint8(0)
	if coc.Style.explicitPrecincts() {
		scoc |= 0x01
	}
	if err := w.writeUint8(scoc); err != nil {
		return err
	}
	return w.writeCodingStyle(coc.Style)
}

func (w *Writer) writeQuantStyle(q QuantStyle) error {
	sqcd := (q.GuardBits << 5) | (q.Style & 0x1F)
	if err := w.writeUint8(sqcd); err != nil {
		return err
	}
	if q.Style == 0 {
		for _, s := range q.StepSizes {
			if err := w.writeUint8(uint8(s)); err != nil {
				return err
			}
		}
	} else {
		for _, s := range q.StepSizes {
			if err := w.writeUint16(s); err != nil {
				return err
			}
		}
	}
	return nil
}

func quantStyleLength(q QuantStyle) int {
	if q.Style == 0 {
		return 1 + len(q.StepSizes)
	}
	return 1 + 2*len(q.StepSizes)
}

// WriteQCD emits the quantization-default segment.
func (w *Writer) WriteQCD(qcd *QCDSegment) error {
	if err := w.writeUint16(QCD); err != nil {
		return err
	}
	if err := w.writeUint16(uint16(2 + quantStyleLength(qcd.Style))); err != nil {
		return err
	}
	return w.writeQuantStyle(qcd.Style)
}

// WriteQCC emits a per-component quantization override.
func (w *Writer) WriteQCC(qcc *QCCSegment, numComponents int) error {
	if err := w.writeUint16(QCC); err != nil {
		return err
	}
	compBytes := 1
	if numComponents >= 257 {
		compBytes = 2
	}
	if err := w.writeUint16(uint16(2 + compBytes + quantStyleLength(qcc.Style))); err != nil {
		return err
	}
	if compBytes == 1 {
		if err := w.writeUint8(uint8(qcc.Component)); err != nil {
			return err
		}
	} else {
		if err := w.writeUint16(uint16(qcc.Component)); err != nil {
			return err
		}
	}
	return w.writeQuantStyle(qcc.Style)
}

// WriteSOT emits a start-of-tile-part segment. PartLength must already
// reflect the tile-part's total byte length including this SOT; callers
// encode the tile-part body into a buffer first (see j2k.Encode) so the
// length is known before WriteSOT runs, needing no seek-and-patch step.
func (w *Writer) WriteSOT(sot *SOTSegment) error {
	if err := w.writeUint16(SOT); err != nil {
		return err
	}
	if err := w.writeUint16(10); err != nil {
		return err
	}
	if err := w.writeUint16(sot.TileIndex); err != nil {
		return err
	}
	if err := w.writeUint32(sot.PartLength); err != nil {
		return err
	}
	if err := w.writeUint8(sot.TilePartIndex); err != nil {
		return err
	}
	return w.writeUint8(sot.NumTileParts)
}
