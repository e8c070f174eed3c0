package exr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validScanlineHeader() *Header {
	h := NewHeader()
	h.Set("dataWindow", &Box2iAttr{Value: Box2i{MaxX: 12, MaxY: 6}})
	h.Set("displayWindow", &Box2iAttr{Value: Box2i{MaxX: 12, MaxY: 6}})
	h.Set("pixelAspectRatio", &FloatAttr{Value: 1})
	h.Set("screenWindowCenter", &VecAttr{kind: vecV2f, F: []float32{0, 0}})
	h.Set("screenWindowWidth", &FloatAttr{Value: 1})
	h.Set("lineOrder", &LineOrderAttr{Value: IncreasingY})
	h.Set("compression", &CompressionAttr{Value: CompressionZIP})
	h.Set("channels", &ChannelListAttr{Channels: []ChannelEntry{
		{Name: "R", Type: PixelFloat, Sampling: SamplingRate{X: 1, Y: 1}},
	}})
	return h
}

func TestHeaderValidateAcceptsWellFormed(t *testing.T) {
	require.NoError(t, validScanlineHeader().Validate())
}

func TestHeaderValidateRejectsEmptyDataWindow(t *testing.T) {
	h := validScanlineHeader()
	h.Set("dataWindow", &Box2iAttr{Value: Box2i{MinX: 5, MaxX: 4, MinY: 0, MaxY: 0}})
	assert.Error(t, h.Validate())
}

func TestHeaderValidateRejectsNonPositivePixelAspectRatio(t *testing.T) {
	h := validScanlineHeader()
	h.Set("pixelAspectRatio", &FloatAttr{Value: 0})
	assert.Error(t, h.Validate())
}

func TestHeaderValidateRejectsBadSamplingDivisibility(t *testing.T) {
	h := validScanlineHeader()
	h.Set("channels", &ChannelListAttr{Channels: []ChannelEntry{
		{Name: "R", Type: PixelFloat, Sampling: SamplingRate{X: 5, Y: 1}},
	}})
	assert.Error(t, h.Validate())
}

func TestHeaderValidateRequiresTilesForTiledPart(t *testing.T) {
	h := validScanlineHeader()
	h.Set("type", &StringAttr{Value: PartTiledImage})
	assert.Error(t, h.Validate())

	h.Set("tiles", &TileDescAttr{Value: TileDescription{XSize: 32, YSize: 32, Mode: LevelOne}})
	assert.NoError(t, h.Validate())
}

func TestHeaderValidateRejectsDuplicateChannelNames(t *testing.T) {
	h := validScanlineHeader()
	h.Set("channels", &ChannelListAttr{Channels: []ChannelEntry{
		{Name: "R", Type: PixelFloat, Sampling: SamplingRate{X: 1, Y: 1}},
		{Name: "R", Type: PixelHalf, Sampling: SamplingRate{X: 1, Y: 1}},
	}})
	assert.Error(t, h.Validate())
}
