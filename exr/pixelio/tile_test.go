package pixelio

import (
	"testing"

	"github.com/cocosip/go-hdrimage/exr"
	"github.com/cocosip/go-hdrimage/exr/stream"
	"github.com/stretchr/testify/require"
)

func newTiledHeader(t *testing.T, width, height int32, tw, th uint32) *exr.Header {
	t.Helper()
	h := newTestHeader(t, width, height, exr.CompressionNone)
	h.Set("type", &exr.StringAttr{Value: exr.PartTiledImage})
	h.Set("tiles", &exr.TileDescAttr{Value: exr.TileDescription{
		XSize: tw, YSize: th, Mode: exr.LevelOne, Rounding: exr.RoundDown,
	}})
	return h
}

func TestTileRoundTrip(t *testing.T) {
	const w, h = 20, 14
	const tw, th = 8, 8
	header := newTiledHeader(t, w, h, tw, th)

	_, _, _, writeFB := fillFrameBuffer(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			putFloat(writeFB["R"], x, y, float32(x*1000+y))
		}
	}

	mem := stream.NewMemory(nil)
	tweil, err := NewTileWriter(mem, header)
	require.NoError(t, err)
	tweil.SetFrameBuffer(writeFB)

	numX, numY := (w+tw-1)/tw, (h+th-1)/th
	for ty := 0; ty < numY; ty++ {
		for tx := 0; tx < numX; tx++ {
			require.NoError(t, tweil.WriteTile(tx, ty, 0, 0))
		}
	}
	require.NoError(t, tweil.Close())

	f, err := exr.Open(mem, exr.NewRegistry())
	require.NoError(t, err)
	_, _, _, readFB := fillFrameBuffer(w, h)
	tr, err := NewTileReader(mem, f.Header, f.Offsets, false)
	require.NoError(t, err)

	for ty := 0; ty < numY; ty++ {
		for tx := 0; tx < numX; tx++ {
			require.NoError(t, tr.ReadTile(tx, ty, 0, 0, readFB))
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			require.Equal(t, float32(x*1000+y), getFloat(readFB["R"], x, y))
		}
	}
}

func TestTileSingleOneLevelTile(t *testing.T) {
	header := newTiledHeader(t, 1, 1, 32, 32)
	mem := stream.NewMemory(nil)
	tw, err := NewTileWriter(mem, header)
	require.NoError(t, err)
	_, _, _, fb := fillFrameBuffer(1, 1)
	putFloat(fb["R"], 0, 0, 42)
	tw.SetFrameBuffer(fb)
	require.NoError(t, tw.WriteTile(0, 0, 0, 0))
	require.NoError(t, tw.Close())

	f, err := exr.Open(mem, exr.NewRegistry())
	require.NoError(t, err)
	tr, err := NewTileReader(mem, f.Header, f.Offsets, false)
	require.NoError(t, err)
	_, _, _, readFB := fillFrameBuffer(1, 1)
	require.NoError(t, tr.ReadTile(0, 0, 0, 0, readFB))
	require.Equal(t, float32(42), getFloat(readFB["R"], 0, 0))
}
