package compression

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zlib"
)

// pxr24Compressor truncates FLOAT samples to their high 24 bits (dropping
// the low 8 mantissa bits), leaves HALF/UINT samples untouched, splits each
// channel's samples into byte planes (so same-significance bytes sit next
// to each other), then deflates the result (§4.4).
type pxr24Compressor struct{}

func (c *pxr24Compressor) Kind() Kind         { return PXR24 }
func (c *pxr24Compressor) LinesPerBlock() int { return 16 }

// planeBytes returns the byte width pxr24 stores per sample of t (3 for
// FLOAT instead of the usual 4).
func planeBytes(t PixelType) int {
	if t == Float {
		return 3
	}
	return t.Size()
}

func (c *pxr24Compressor) Compress(channels []Channel, width, height int, raw []byte) ([]byte, error) {
	planar := c.toPlanar(channels, width, height, raw)
	predicted := make([]byte, len(planar))
	var prev byte
	for i, b := range planar {
		d := b - prev
		predicted[i] = d
		prev = b
	}
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(predicted); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	if buf.Len() >= len(raw) {
		return nil, ErrWouldGrow
	}
	return buf.Bytes(), nil
}

func (c *pxr24Compressor) Uncompress(channels []Channel, width, height int, compressed []byte, expectedLen int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errDataCorrupt("pxr24: %v", err)
	}
	defer zr.Close()
	predicted, err := io.ReadAll(zr)
	if err != nil {
		return nil, errDataCorrupt("pxr24: %v", err)
	}
	planar := make([]byte, len(predicted))
	var prev byte
	for i, d := range predicted {
		b := d + prev
		planar[i] = b
		prev = b
	}
	raw := c.fromPlanar(channels, width, height, planar)
	if len(raw) != expectedLen {
		return nil, errDataCorrupt("pxr24: expected %d bytes, got %d", expectedLen, len(raw))
	}
	return raw, nil
}

// toPlanar converts the channel-interleaved row-major raw buffer into
// per-channel, per-byte-plane order: for each channel, plane 0 (all
// samples' least significant stored byte), plane 1, ... This groups
// same-significance bytes together prior to deflate.
func (c *pxr24Compressor) toPlanar(channels []Channel, width, height int, raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	off := 0
	for _, ch := range channels {
		rows := sampledCount(height, ch.YSampling)
		cols := sampledCount(width, ch.XSampling)
		count := rows * cols
		pb := planeBytes(ch.Type)
		sampleSize := ch.Type.Size()

		planes := make([][]byte, pb)
		for p := range planes {
			planes[p] = make([]byte, count)
		}
		for i := 0; i < count; i++ {
			sample := raw[off+i*sampleSize : off+(i+1)*sampleSize]
			storeBytes := quantizeSample(ch.Type, sample, pb)
			for p := 0; p < pb; p++ {
				planes[p][i] = storeBytes[p]
			}
		}
		for p := 0; p < pb; p++ {
			out = append(out, planes[p]...)
		}
		off += count * sampleSize
	}
	return out
}

func (c *pxr24Compressor) fromPlanar(channels []Channel, width, height int, planar []byte) []byte {
	out := make([]byte, 0, len(planar))
	off := 0
	for _, ch := range channels {
		rows := sampledCount(height, ch.YSampling)
		cols := sampledCount(width, ch.XSampling)
		count := rows * cols
		pb := planeBytes(ch.Type)

		planes := make([][]byte, pb)
		for p := range planes {
			planes[p] = planar[off+p*count : off+(p+1)*count]
		}
		for i := 0; i < count; i++ {
			storeBytes := make([]byte, pb)
			for p := 0; p < pb; p++ {
				storeBytes[p] = planes[p][i]
			}
			out = append(out, dequantizeSample(ch.Type, storeBytes)...)
		}
		off += pb * count
	}
	return out
}

// quantizeSample returns the pb most-significant bytes (little-endian order,
// lowest byte first) a channel sample should be stored as: for FLOAT this
// drops the bottom 8 mantissa bits; HALF/UINT pass through unchanged.
func quantizeSample(t PixelType, sample []byte, pb int) []byte {
	switch t {
	case Float:
		bits := binary.LittleEndian.Uint32(sample)
		bits >>= 8 // drop low 8 bits, keep sign+exponent+15-bit mantissa
		out := make([]byte, 3)
		out[0] = byte(bits)
		out[1] = byte(bits >> 8)
		out[2] = byte(bits >> 16)
		return out
	default:
		out := make([]byte, pb)
		copy(out, sample)
		return out
	}
}

func dequantizeSample(t PixelType, storeBytes []byte) []byte {
	switch t {
	case Float:
		bits := uint32(storeBytes[0]) | uint32(storeBytes[1])<<8 | uint32(storeBytes[2])<<16
		bits <<= 8
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, bits)
		return out
	default:
		out := make([]byte, len(storeBytes))
		copy(out, storeBytes)
		return out
	}
}
