package j2k

import (
	"github.com/cocosip/go-hdrimage/j2k/t1"
	"github.com/cocosip/go-hdrimage/j2k/wavelet"
)

// dwtWindow is one decomposition level's lowpass region, tracked the same
// way wavelet.ForwardMultilevel53/InverseMultilevel53 track it internally.
type dwtWindow struct{ width, height, x0, y0 int }

// dwtWindows returns the lowpass window at each decomposition level, index 0
// being the whole tile-component and index levels being the final LL.
func dwtWindows(width, height, levels, x0, y0 int) []dwtWindow {
	ws := make([]dwtWindow, levels+1)
	ws[0] = dwtWindow{width, height, x0, y0}
	for i := 1; i <= levels; i++ {
		w := ws[i-1]
		nw, nh, nx, ny := wavelet.NextLowpassWindow(w.width, w.height, w.x0, w.y0)
		ws[i] = dwtWindow{nw, nh, nx, ny}
	}
	return ws
}

// subbandRect is one subband's coefficient rectangle within a
// tile-component's own origin-local buffer (top-left at (0,0), stride
// equal to the tile-component's width).
type subbandRect struct {
	x0, y0, width, height int
	orientation           int
}

// subbandsAtResolution returns the subband rectangles present at resolution
// r (0 = coarsest LL, levels = finest detail) of a levels-level
// decomposition over a tileWidth x tileHeight tile-component whose absolute
// origin is (tx0, ty0) (the origin's parity drives the split, as it does
// for wavelet.ForwardMultilevel53). A subband collapsing to zero width or
// height at a tile's trailing edge is omitted.
func subbandsAtResolution(tileWidth, tileHeight, levels, tx0, ty0, r int) []subbandRect {
	ws := dwtWindows(tileWidth, tileHeight, levels, tx0, ty0)
	if r == 0 {
		w := ws[levels]
		if w.width <= 0 || w.height <= 0 {
			return nil
		}
		return []subbandRect{{0, 0, w.width, w.height, t1.OrientLL}}
	}
	it := levels - r
	w := ws[it]
	vSn := wavelet.SplitLengths(w.height, wavelet.IsEven(w.y0))
	hSn := wavelet.SplitLengths(w.width, wavelet.IsEven(w.x0))

	var out []subbandRect
	if w.width-hSn > 0 && vSn > 0 {
		out = append(out, subbandRect{hSn, 0, w.width - hSn, vSn, t1.OrientHL})
	}
	if hSn > 0 && w.height-vSn > 0 {
		out = append(out, subbandRect{0, vSn, hSn, w.height - vSn, t1.OrientLH})
	}
	if w.width-hSn > 0 && w.height-vSn > 0 {
		out = append(out, subbandRect{hSn, vSn, w.width - hSn, w.height - vSn, t1.OrientHH})
	}
	return out
}

// codeblockRect is one codeblock's coefficient rectangle in subband-local
// coordinates, plus its (cbx, cby) position within the subband's codeblock
// grid.
type codeblockRect struct {
	cbx, cby              int
	x0, y0, width, height int
}

// partitionCodeblocks splits a subband into its codeblock grid, clipping
// the trailing row/column to the subband's actual extent. The returned
// slice is in the same row-major order a t2.Precinct expects.
func partitionCodeblocks(band subbandRect, cbWidth, cbHeight int) (grid []codeblockRect, numCbX, numCbY int) {
	numCbX = (band.width + cbWidth - 1) / cbWidth
	numCbY = (band.height + cbHeight - 1) / cbHeight
	grid = make([]codeblockRect, 0, numCbX*numCbY)
	for cby := 0; cby < numCbY; cby++ {
		for cbx := 0; cbx < numCbX; cbx++ {
			x0 := cbx * cbWidth
			y0 := cby * cbHeight
			w := cbWidth
			if x0+w > band.width {
				w = band.width - x0
			}
			h := cbHeight
			if y0+h > band.height {
				h = band.height - y0
			}
			grid = append(grid, codeblockRect{cbx, cby, band.x0 + x0, band.y0 + y0, w, h})
		}
	}
	return grid, numCbX, numCbY
}

// nominalMaxBitplane returns the most significant bitplane a subband's
// codeblocks can carry, derived identically on encode and decode from the
// component's bit depth, the applicable QCD/QCC guard-bit count, and the
// subband's orientation (ISO/IEC 15444-1 Annex E's expected dynamic-range
// growth through one extra bit for HL/LH and two for HH, folded into a
// fixed offset rather than computed from the exact irreversible gain
// formula since this module only implements the reversible 5/3 path).
func nominalMaxBitplane(guardBits uint8, depth, orientation int) int {
	base := int(guardBits) + depth - 1
	switch orientation {
	case t1.OrientHL, t1.OrientLH:
		return base + 1
	case t1.OrientHH:
		return base + 2
	default:
		return base
	}
}
