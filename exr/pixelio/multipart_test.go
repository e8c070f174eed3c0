package pixelio

import (
	"testing"

	"github.com/cocosip/go-hdrimage/exr"
	"github.com/cocosip/go-hdrimage/exr/stream"
	"github.com/stretchr/testify/require"
)

func TestMultiPartRoundTrip(t *testing.T) {
	const w, h = 6, 4
	h1 := newTestHeader(t, w, h, exr.CompressionNone)
	h1.Set("name", &exr.StringAttr{Value: "rgb"})
	h1.Set("type", &exr.StringAttr{Value: exr.PartScanlineImage})

	const tw, th = 4, 4
	h2 := newTiledHeader(t, w, h, tw, th)
	h2.Set("name", &exr.StringAttr{Value: "tiled"})

	mem := stream.NewMemory(nil)
	mw, err := NewMultiPartWriter(mem, []*exr.Header{h1, h2})
	require.NoError(t, err)

	sw, err := mw.ScanlinePart(0)
	require.NoError(t, err)
	_, _, _, fb1 := fillFrameBuffer(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			putFloat(fb1["R"], x, y, float32(x+10*y))
		}
	}
	sw.SetFrameBuffer(fb1)
	require.NoError(t, sw.WritePixels(h))
	require.NoError(t, sw.Close())

	tw2, err := mw.TilePart(1)
	require.NoError(t, err)
	_, _, _, fb2 := fillFrameBuffer(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			putFloat(fb2["R"], x, y, float32(100+x+10*y))
		}
	}
	tw2.SetFrameBuffer(fb2)
	numX, numY := (w+tw-1)/tw, (h+th-1)/th
	for ty := 0; ty < numY; ty++ {
		for tx := 0; tx < numX; tx++ {
			require.NoError(t, tw2.WriteTile(tx, ty, 0, 0))
		}
	}
	require.NoError(t, tw2.Close())

	mr, err := NewMultiPartReader(mem, exr.NewRegistry())
	require.NoError(t, err)
	require.Equal(t, 2, mr.NumParts())

	sr, err := mr.ScanlineReader(0)
	require.NoError(t, err)
	_, _, _, readFB1 := fillFrameBuffer(w, h)
	require.NoError(t, sr.ReadAll(readFB1))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			require.Equal(t, float32(x+10*y), getFloat(readFB1["R"], x, y))
		}
	}

	tr, err := mr.TileReader(1)
	require.NoError(t, err)
	_, _, _, readFB2 := fillFrameBuffer(w, h)
	for ty := 0; ty < numY; ty++ {
		for tx := 0; tx < numX; tx++ {
			require.NoError(t, tr.ReadTile(tx, ty, 0, 0, readFB2))
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			require.Equal(t, float32(100+x+10*y), getFloat(readFB2["R"], x, y))
		}
	}
}
