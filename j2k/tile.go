package j2k

// tileRect is a tile's extent in image coordinates: [x0,x1) x [y0,y1).
type tileRect struct{ x0, y0, x1, y1 int }

func (t tileRect) width() int  { return t.x1 - t.x0 }
func (t tileRect) height() int { return t.y1 - t.y0 }

// tileDimensions resolves the tile size Encode applies, clamping an
// unset or oversized request down to the whole image (a single tile).
func tileDimensions(imgWidth, imgHeight int, p EncodeParams) (int, int) {
	tw := p.TileWidth
	if tw <= 0 || tw > imgWidth {
		tw = imgWidth
	}
	th := p.TileHeight
	if th <= 0 || th > imgHeight {
		th = imgHeight
	}
	return tw, th
}

// tileGrid lays out tiles in raster order (row-major), matching the tile
// index ISO/IEC 15444-1 assigns via Isot = ty*numTilesX + tx.
func tileGrid(imgWidth, imgHeight, tileWidth, tileHeight int) []tileRect {
	var tiles []tileRect
	for y0 := 0; y0 < imgHeight; y0 += tileHeight {
		y1 := y0 + tileHeight
		if y1 > imgHeight {
			y1 = imgHeight
		}
		for x0 := 0; x0 < imgWidth; x0 += tileWidth {
			x1 := x0 + tileWidth
			if x1 > imgWidth {
				x1 = imgWidth
			}
			tiles = append(tiles, tileRect{x0, y0, x1, y1})
		}
	}
	return tiles
}

// extractTile copies one tile's samples out of a component's full-image
// buffer into a tile-local, row-major buffer.
func extractTile(comp ComponentImage, imgWidth int, t tileRect) []int32 {
	w, h := t.width(), t.height()
	out := make([]int32, w*h)
	for y := 0; y < h; y++ {
		srcOff := (t.y0+y)*imgWidth + t.x0
		copy(out[y*w:(y+1)*w], comp.Data[srcOff:srcOff+w])
	}
	return out
}

// storeTile writes a tile-local buffer back into a component's full-image
// buffer, the inverse of extractTile.
func storeTile(comp *ComponentImage, imgWidth int, t tileRect, data []int32) {
	w := t.width()
	for y := 0; y < t.height(); y++ {
		dstOff := (t.y0+y)*imgWidth + t.x0
		copy(comp.Data[dstOff:dstOff+w], data[y*w:(y+1)*w])
	}
}
