package j2k

import (
	"bytes"
	"testing"

	"github.com/cocosip/go-hdrimage/j2k/codestream"
	"github.com/stretchr/testify/require"
)

func ramp8x8() *Image {
	data := make([]int32, 64)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			data[y*8+x] = int32(x + 8*y)
		}
	}
	return &Image{
		Width: 8, Height: 8,
		Components: []ComponentImage{{Depth: 8, Signed: false, Data: data}},
	}
}

// countTileParts walks a codestream structurally, returning how many SOT
// tile-parts it contains and whether it ends in EOC.
func countTileParts(t *testing.T, data []byte) (tileParts int, sawEOC bool) {
	t.Helper()
	r := codestream.NewReader(bytes.NewReader(data))
	require.NoError(t, r.ReadSOC())
	_, err := r.ReadMainHeader()
	require.NoError(t, err)
	for {
		marker, err := r.PeekMarker()
		require.NoError(t, err)
		if marker == codestream.EOC {
			require.NoError(t, r.ReadEOC())
			sawEOC = true
			return
		}
		th, err := r.ReadTileHeader()
		require.NoError(t, err)
		tileParts++
		bodyLen := int(th.SOT.PartLength) - sotHeaderBytes
		_, err = r.ReadRaw(bodyLen)
		require.NoError(t, err)
	}
}

// TestEncodeDecodeSingleTileRoundTrip matches spec scenario S4: an 8x8,
// 8-bit unsigned ramp, one DWT level, a 32x32 nominal (edge-clipped) code
// block, a single quality layer, LRCP progression.
func TestEncodeDecodeSingleTileRoundTrip(t *testing.T) {
	img := ramp8x8()
	params := EncodeParams{
		Progression:         codestream.LRCP,
		DecompositionLevels: 1,
		CodeBlockWidthExp:   3, // 1<<(3+2) = 32
		CodeBlockHeightExp:  3,
		Reversible:          true,
		GuardBits:           2,
		Layers:              1,
	}

	data, err := Encode(img, params)
	require.NoError(t, err)

	tileParts, sawEOC := countTileParts(t, data)
	require.Equal(t, 1, tileParts)
	require.True(t, sawEOC)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, img.Width, decoded.Width)
	require.Equal(t, img.Height, decoded.Height)
	require.Len(t, decoded.Components, 1)
	require.Equal(t, img.Components[0].Data, decoded.Components[0].Data)

	r := codestream.NewReader(bytes.NewReader(data))
	require.NoError(t, r.ReadSOC())
	header, err := r.ReadMainHeader()
	require.NoError(t, err)
	require.Equal(t, 1, header.COD.Style.DecompositionLevels)
	bands := subbandsAtResolution(8, 8, 1, 0, 0, 1)
	require.Len(t, bands, 3)
	ll := subbandsAtResolution(8, 8, 1, 0, 0, 0)
	require.Len(t, ll, 1)
}

func TestEncodeDecodeMultiComponentMultiTile(t *testing.T) {
	width, height := 16, 12
	mkComp := func(depth int, signed bool, f func(x, y int) int32) ComponentImage {
		data := make([]int32, width*height)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				data[y*width+x] = f(x, y)
			}
		}
		return ComponentImage{Depth: depth, Signed: signed, Data: data}
	}
	img := &Image{
		Width: width, Height: height,
		Components: []ComponentImage{
			mkComp(8, false, func(x, y int) int32 { return int32((x*7 + y*3) % 256) }),
			mkComp(8, false, func(x, y int) int32 { return int32((x + y) % 256) }),
		},
	}

	params := EncodeParams{
		Progression:         codestream.RLCP,
		DecompositionLevels: 2,
		CodeBlockWidthExp:   2, // 16
		CodeBlockHeightExp:  2,
		Reversible:          true,
		GuardBits:           2,
		Layers:              1,
		TileWidth:           8,
		TileHeight:          6,
	}

	data, err := Encode(img, params)
	require.NoError(t, err)

	tileParts, sawEOC := countTileParts(t, data)
	require.Equal(t, 4, tileParts) // 2x2 grid of 8x6 tiles over 16x12
	require.True(t, sawEOC)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, img.Components[0].Data, decoded.Components[0].Data)
	require.Equal(t, img.Components[1].Data, decoded.Components[1].Data)
}

// TestDecodeResilientTruncatedTile matches spec scenario S5: a valid
// multi-tile LRCP codestream truncated mid-way through the last tile's SOD
// data decodes the earlier tiles exactly and zero-fills the truncated one
// instead of returning an error.
func TestDecodeResilientTruncatedTile(t *testing.T) {
	width, height := 12, 4
	data := make([]int32, width*height)
	for i := range data {
		data[i] = int32(i % 256)
	}
	img := &Image{
		Width: width, Height: height,
		Components: []ComponentImage{{Depth: 8, Signed: false, Data: data}},
	}
	params := EncodeParams{
		Progression:         codestream.LRCP,
		DecompositionLevels: 1,
		CodeBlockWidthExp:   2,
		CodeBlockHeightExp:  2,
		Reversible:          true,
		GuardBits:           2,
		Layers:              1,
		TileWidth:           4,
		TileHeight:          4,
	}
	encoded, err := Encode(img, params)
	require.NoError(t, err)

	tileParts, _ := countTileParts(t, encoded)
	require.Equal(t, 3, tileParts)

	// Cut the stream partway through the last tile-part's SOD data, well
	// before EOC.
	truncated := encoded[:len(encoded)-4]

	decoded, err := Decode(truncated, DecodeOptions{Resilient: true})
	require.NoError(t, err)
	require.Equal(t, width, decoded.Width)
	require.Equal(t, height, decoded.Height)

	firstTwoTilesWidth := 8 // tiles 0 and 1 together span x in [0,8)
	for y := 0; y < height; y++ {
		for x := 0; x < firstTwoTilesWidth; x++ {
			idx := y*width + x
			require.Equal(t, img.Components[0].Data[idx], decoded.Components[0].Data[idx], "pixel (%d,%d)", x, y)
		}
	}
	for y := 0; y < height; y++ {
		for x := firstTwoTilesWidth; x < width; x++ {
			idx := y*width + x
			require.Equal(t, int32(0), decoded.Components[0].Data[idx], "truncated tile pixel (%d,%d)", x, y)
		}
	}
}

func TestEncodeRejectsMultipleLayers(t *testing.T) {
	img := ramp8x8()
	_, err := Encode(img, EncodeParams{
		Progression: codestream.LRCP, DecompositionLevels: 1,
		CodeBlockWidthExp: 3, CodeBlockHeightExp: 3, Reversible: true, Layers: 2,
	})
	require.ErrorIs(t, err, ErrUnsupportedFeature)
}

func TestEncodeRejectsIrreversible(t *testing.T) {
	img := ramp8x8()
	_, err := Encode(img, EncodeParams{
		Progression: codestream.LRCP, DecompositionLevels: 1,
		CodeBlockWidthExp: 3, CodeBlockHeightExp: 3, Reversible: false,
	})
	require.ErrorIs(t, err, ErrUnsupportedFeature)
}
