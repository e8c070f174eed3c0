package j2k

import (
	"bytes"
	"fmt"

	"github.com/cocosip/go-hdrimage/j2k/bio"
	"github.com/cocosip/go-hdrimage/j2k/codestream"
	"github.com/cocosip/go-hdrimage/j2k/t1"
	"github.com/cocosip/go-hdrimage/j2k/t2"
	"github.com/cocosip/go-hdrimage/j2k/wavelet"
)

// Decode parses a complete J2K codestream into an Image. With a resilient
// DecodeOptions, a tile-part that cannot be read in full (truncated stream)
// stops decoding of remaining tiles and returns the image decoded so far
// instead of an error, leaving undecoded tiles zero-filled; a tile-part
// that reads in full but fails tier-1/tier-2 decoding is skipped and
// decoding continues with the next tile.
func Decode(data []byte, opts ...DecodeOptions) (*Image, error) {
	var opt DecodeOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	r := codestream.NewReader(bytes.NewReader(data))
	if err := r.ReadSOC(); err != nil {
		return nil, fmt.Errorf("j2k: %w: %v", ErrFormat, err)
	}
	header, err := r.ReadMainHeader()
	if err != nil {
		return nil, fmt.Errorf("j2k: %w: %v", ErrFormat, err)
	}
	if header.COD.Layers > 1 {
		return nil, fmt.Errorf("j2k: %w: %d quality layers", ErrUnsupportedFeature, header.COD.Layers)
	}
	if !header.COD.Style.Reversible {
		return nil, fmt.Errorf("j2k: %w: irreversible (9/7) decode", ErrUnsupportedFeature)
	}

	img := &Image{Width: int(header.SIZ.Width), Height: int(header.SIZ.Height)}
	for _, c := range header.SIZ.Components {
		img.Components = append(img.Components, ComponentImage{
			Depth: c.Depth, Signed: c.Signed, Data: make([]int32, img.Width*img.Height),
		})
	}

	tileWidth := int(header.SIZ.TileWidth)
	tileHeight := int(header.SIZ.TileHeight)
	if tileWidth <= 0 {
		tileWidth = img.Width
	}
	if tileHeight <= 0 {
		tileHeight = img.Height
	}
	tiles := tileGrid(img.Width, img.Height, tileWidth, tileHeight)

	levels := header.COD.Style.DecompositionLevels
	cbWidth, cbHeight := header.COD.Style.CodeBlockSize()

	truncated := false
	for _, t := range tiles {
		marker, err := r.PeekMarker()
		if err != nil {
			if opt.Resilient {
				truncated = true
				break
			}
			return nil, fmt.Errorf("j2k: %w: %v", ErrFormat, err)
		}
		if marker == codestream.EOC {
			break
		}
		th, err := r.ReadTileHeader()
		if err != nil {
			if opt.Resilient {
				truncated = true
				break
			}
			return nil, fmt.Errorf("j2k: %w: %v", ErrFormat, err)
		}
		bodyLen := int(th.SOT.PartLength) - sotHeaderBytes
		if bodyLen < 0 {
			if opt.Resilient {
				truncated = true
				break
			}
			return nil, fmt.Errorf("j2k: %w: negative tile-part body length", ErrFormat)
		}
		body, err := r.ReadRaw(bodyLen)
		if err != nil {
			if opt.Resilient {
				truncated = true
				break
			}
			return nil, fmt.Errorf("j2k: %w: %v", ErrFormat, err)
		}
		if err := decodeTile(img, t, body, header, levels, cbWidth, cbHeight); err != nil {
			if opt.Resilient {
				continue
			}
			return nil, fmt.Errorf("j2k: %w: %v", ErrDataCorrupt, err)
		}
	}
	if !truncated {
		if err := r.ReadEOC(); err != nil && !opt.Resilient {
			return nil, fmt.Errorf("j2k: %w: %v", ErrFormat, err)
		}
	}
	return img, nil
}

// decodeTile parses one tile-part's packets in progression order and
// inverse-transforms every component, writing the results back into img.
func decodeTile(img *Image, t tileRect, body []byte, header *codestream.MainHeader, levels, cbWidth, cbHeight int) error {
	tw, th := t.width(), t.height()
	numComponents := len(img.Components)

	coeffs := make([][]int32, numComponents)
	precincts := make([]map[int]map[int]*t2.Precinct, numComponents)
	for c := range coeffs {
		coeffs[c] = make([]int32, tw*th)
		precincts[c] = make(map[int]map[int]*t2.Precinct)
	}

	numResolutions := func(component int) int { return levels + 1 }
	numPrecincts := func(component, resolution int) int {
		return len(subbandsAtResolution(tw, th, levels, t.x0, t.y0, resolution))
	}
	order := t2.Schedule(toT2Progression(header.COD.Progression), 1, numComponents, numResolutions, numPrecincts)

	br := bio.NewReader(body)
	for _, pk := range order {
		bands := subbandsAtResolution(tw, th, levels, t.x0, t.y0, pk.Resolution)
		if pk.Precinct >= len(bands) {
			continue
		}
		band := bands[pk.Precinct]
		grid, numCbX, numCbY := partitionCodeblocks(band, cbWidth, cbHeight)

		resMap, ok := precincts[pk.Component][pk.Resolution]
		if !ok {
			resMap = make(map[int]*t2.Precinct)
			precincts[pk.Component][pk.Resolution] = resMap
		}
		precinct, ok := resMap[pk.Precinct]
		if !ok {
			precinct = t2.NewPrecinct(numCbX, numCbY)
			resMap[pk.Precinct] = precinct
		}

		infos, err := t2.DecodePacketHeader(precinct, pk.Layer, br)
		if err != nil {
			return fmt.Errorf("decode packet header (component %d, resolution %d, band %d): %w", pk.Component, pk.Resolution, pk.Precinct, err)
		}
		br.Align()
		for i := range infos {
			if len(infos[i].Data) == 0 {
				continue
			}
			raw, err := br.ReadBytes(len(infos[i].Data))
			if err != nil {
				return fmt.Errorf("read codeblock data (component %d, resolution %d, band %d, block %d): %w", pk.Component, pk.Resolution, pk.Precinct, i, err)
			}
			copy(infos[i].Data, raw)
		}

		depth := img.Components[pk.Component].Depth
		quant := header.ComponentQuant(pk.Component)
		nominal := nominalMaxBitplane(quant.GuardBits, depth, band.orientation)

		for i, cb := range grid {
			info := infos[i]
			if info.NumPasses == 0 {
				continue
			}
			dec := t1.NewDecoder(cb.width, cb.height, band.orientation)
			maxBitplane := nominal - info.ZeroBitPlanes
			values, err := dec.Decode(info.Data, maxBitplane, info.NumPasses)
			if err != nil {
				return fmt.Errorf("decode codeblock (component %d, resolution %d, band %d, block %d): %w", pk.Component, pk.Resolution, pk.Precinct, i, err)
			}
			for y := 0; y < cb.height; y++ {
				dstOff := (cb.y0+y)*tw + cb.x0
				copy(coeffs[pk.Component][dstOff:dstOff+cb.width], values[y*cb.width:(y+1)*cb.width])
			}
		}
	}

	for c := range coeffs {
		wavelet.InverseMultilevel53(coeffs[c], tw, th, levels, t.x0, t.y0)
		if !img.Components[c].Signed {
			shift := int32(1) << uint(img.Components[c].Depth-1)
			for i := range coeffs[c] {
				coeffs[c][i] += shift
			}
		}
		storeTile(&img.Components[c], img.Width, t, coeffs[c])
	}
	return nil
}
