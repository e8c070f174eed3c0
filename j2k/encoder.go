package j2k

import (
	"bytes"
	"fmt"

	"github.com/cocosip/go-hdrimage/j2k/codestream"
	"github.com/cocosip/go-hdrimage/j2k/t1"
	"github.com/cocosip/go-hdrimage/j2k/t2"
	"github.com/cocosip/go-hdrimage/j2k/wavelet"
)

// sotHeaderBytes is SOT's wire length (marker + Lsot + Isot + Psot + TPsot +
// TNsot = 2+2+2+4+1+1) plus SOD's 2-byte marker, the fixed overhead Psot
// must include alongside the tile-part body.
const sotHeaderBytes = 12 + 2

func toT2Progression(p codestream.ProgressionOrder) t2.Progression {
	switch p {
	case codestream.RLCP:
		return t2.RLCP
	case codestream.RPCL:
		return t2.RPCL
	case codestream.PCRL:
		return t2.PCRL
	case codestream.CPRL:
		return t2.CPRL
	default:
		return t2.LRCP
	}
}

// Encode builds a complete J2K codestream for img under p. It implements
// the scoped subset described alongside EncodeParams: a single quality
// layer, default whole-subband precincts, one tile-part per tile, no
// multi-component transform.
func Encode(img *Image, p EncodeParams) ([]byte, error) {
	layers := p.Layers
	if layers == 0 {
		layers = 1
	}
	if layers != 1 {
		return nil, fmt.Errorf("j2k: %w: %d quality layers", ErrUnsupportedFeature, layers)
	}
	if !p.Reversible {
		return nil, fmt.Errorf("j2k: %w: irreversible (9/7) encode", ErrUnsupportedFeature)
	}
	if len(img.Components) == 0 {
		return nil, fmt.Errorf("j2k: image has no components")
	}
	if img.Width <= 0 || img.Height <= 0 {
		return nil, fmt.Errorf("j2k: image has non-positive dimensions")
	}

	tw, th := tileDimensions(img.Width, img.Height, p)
	tiles := tileGrid(img.Width, img.Height, tw, th)

	siz := codestream.SIZSegment{
		Width: uint32(img.Width), Height: uint32(img.Height),
		TileWidth: uint32(tw), TileHeight: uint32(th),
	}
	for _, c := range img.Components {
		siz.Components = append(siz.Components, codestream.Component{
			Depth: c.Depth, Signed: c.Signed, XSampling: 1, YSampling: 1,
		})
	}
	cod := codestream.CODSegment{
		Progression: p.Progression,
		Layers:      1,
		Style: codestream.CodingStyle{
			DecompositionLevels: p.DecompositionLevels,
			CodeBlockWidthExp:   p.CodeBlockWidthExp,
			CodeBlockHeightExp:  p.CodeBlockHeightExp,
			Reversible:          true,
		},
	}
	qcd := codestream.QCDSegment{Style: quantStyleFor(p, img.Components)}

	var buf bytes.Buffer
	w := codestream.NewWriter(&buf)
	if err := w.WriteSOC(); err != nil {
		return nil, fmt.Errorf("j2k: write SOC: %w", err)
	}
	if err := w.WriteSIZ(&siz); err != nil {
		return nil, fmt.Errorf("j2k: write SIZ: %w", err)
	}
	if err := w.WriteCOD(&cod); err != nil {
		return nil, fmt.Errorf("j2k: write COD: %w", err)
	}
	if err := w.WriteQCD(&qcd); err != nil {
		return nil, fmt.Errorf("j2k: write QCD: %w", err)
	}

	for tileIdx, t := range tiles {
		body, err := encodeTile(img, t, p)
		if err != nil {
			return nil, fmt.Errorf("j2k: encode tile %d: %w", tileIdx, err)
		}
		if tileIdx > 0xFFFF {
			return nil, fmt.Errorf("j2k: %w: tile index %d", ErrTilePartOverflow, tileIdx)
		}
		sot := codestream.SOTSegment{
			TileIndex:     uint16(tileIdx),
			PartLength:    uint32(sotHeaderBytes + len(body)),
			TilePartIndex: 0,
			NumTileParts:  1,
		}
		if err := w.WriteSOT(&sot); err != nil {
			return nil, fmt.Errorf("j2k: write SOT: %w", err)
		}
		if err := w.WriteSOD(); err != nil {
			return nil, fmt.Errorf("j2k: write SOD: %w", err)
		}
		if _, err := buf.Write(body); err != nil {
			return nil, fmt.Errorf("j2k: write tile body: %w", err)
		}
	}
	if err := w.WriteEOC(); err != nil {
		return nil, fmt.Errorf("j2k: write EOC: %w", err)
	}
	return buf.Bytes(), nil
}

// quantStyleFor builds a plausible reversible QCD quantization style: one
// exponent-only step entry per subband slot (1 + 3*levels, the count Annex
// A fixes regardless of any particular tile's boundary-clipped geometry).
// Decode never parses these numeric fields back; nominalMaxBitplane
// recomputes the same value from GuardBits and each component's bit depth,
// so the StepSizes values themselves only need to be wire-plausible.
func quantStyleFor(p EncodeParams, comps []ComponentImage) codestream.QuantStyle {
	n := 1 + 3*p.DecompositionLevels
	depth := 8
	if len(comps) > 0 {
		depth = comps[0].Depth
	}
	steps := make([]uint16, n)
	for i := range steps {
		exponent := uint16(p.GuardBits) + uint16(depth)
		steps[i] = exponent << 3
	}
	return codestream.QuantStyle{Style: 0, GuardBits: p.GuardBits, StepSizes: steps}
}

// encodeTile encodes one tile's packets in progression order and returns
// the concatenated tile-part body (no SOT/SOD framing, which the caller
// writes around it).
func encodeTile(img *Image, t tileRect, p EncodeParams) ([]byte, error) {
	tw, th := t.width(), t.height()
	levels := p.DecompositionLevels

	packetsByComp := make([]map[int]map[int][]byte, len(img.Components))
	for c, comp := range img.Components {
		data := extractTile(comp, img.Width, t)
		pk, err := encodeComponent(data, tw, th, t.x0, t.y0, comp.Depth, comp.Signed, levels, p.CodeBlockWidthExp, p.CodeBlockHeightExp, p.GuardBits)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", c, err)
		}
		packetsByComp[c] = pk
	}

	numComponents := len(img.Components)
	numResolutions := func(component int) int { return levels + 1 }
	numPrecincts := func(component, resolution int) int {
		return len(subbandsAtResolution(tw, th, levels, t.x0, t.y0, resolution))
	}
	order := t2.Schedule(toT2Progression(p.Progression), 1, numComponents, numResolutions, numPrecincts)

	var body bytes.Buffer
	for _, pk := range order {
		body.Write(packetsByComp[pk.Component][pk.Resolution][pk.Precinct])
	}
	return body.Bytes(), nil
}

// encodeComponent DC level shifts (for unsigned samples), wavelet
// transforms, and tier-1/tier-2 codes one tile-component, returning its
// packet bytes indexed by [resolution][band].
func encodeComponent(data []int32, width, height, tx0, ty0, depth int, signed bool, levels int, cbWExp, cbHExp uint8, guardBits uint8) (map[int]map[int][]byte, error) {
	shifted := make([]int32, len(data))
	copy(shifted, data)
	if !signed {
		shift := int32(1) << uint(depth-1)
		for i := range shifted {
			shifted[i] -= shift
		}
	}
	wavelet.ForwardMultilevel53(shifted, width, height, levels, tx0, ty0)

	cbWidth := 1 << (cbWExp + 2)
	cbHeight := 1 << (cbHExp + 2)

	packets := make(map[int]map[int][]byte, levels+1)
	for r := 0; r <= levels; r++ {
		bands := subbandsAtResolution(width, height, levels, tx0, ty0, r)
		packets[r] = make(map[int][]byte, len(bands))
		for b, band := range bands {
			packetBytes, err := encodeBandPacket(shifted, width, band, cbWidth, cbHeight, guardBits, depth)
			if err != nil {
				return nil, fmt.Errorf("resolution %d band %d: %w", r, b, err)
			}
			packets[r][b] = packetBytes
		}
	}
	return packets, nil
}

// encodeBandPacket tier-1 codes every codeblock of one subband and
// assembles its single-layer packet (header followed by included
// codeblocks' coded bytes, per this module's packet-per-subband scoping;
// see DESIGN.md).
func encodeBandPacket(shifted []int32, stride int, band subbandRect, cbWidth, cbHeight int, guardBits uint8, depth int) ([]byte, error) {
	grid, numCbX, numCbY := partitionCodeblocks(band, cbWidth, cbHeight)
	precinct := t2.NewPrecinct(numCbX, numCbY)
	blocks := make([]*t2.CodeBlockInfo, len(grid))
	nominal := nominalMaxBitplane(guardBits, depth, band.orientation)

	for i, cb := range grid {
		coeffs := make([]int32, cb.width*cb.height)
		for y := 0; y < cb.height; y++ {
			srcOff := (cb.y0+y)*stride + cb.x0
			copy(coeffs[y*cb.width:(y+1)*cb.width], shifted[srcOff:srcOff+cb.width])
		}
		enc := t1.NewEncoder(cb.width, cb.height, band.orientation)
		codedData, numPasses, maxBitplane, err := enc.Encode(coeffs)
		if err != nil {
			return nil, fmt.Errorf("codeblock (%d,%d): %w", cb.cbx, cb.cby, err)
		}
		if maxBitplane < 0 {
			continue
		}
		blocks[i] = &t2.CodeBlockInfo{
			Data:          codedData,
			NumPasses:     numPasses,
			ZeroBitPlanes: nominal - maxBitplane,
		}
	}

	header, err := t2.EncodePacketHeader(precinct, 0, blocks)
	if err != nil {
		return nil, fmt.Errorf("encode packet header: %w", err)
	}
	var out bytes.Buffer
	out.Write(header)
	for _, blk := range blocks {
		if blk != nil {
			out.Write(blk.Data)
		}
	}
	return out.Bytes(), nil
}
