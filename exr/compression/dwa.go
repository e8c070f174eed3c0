package compression

import (
	"bytes"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
)

// dwaCompressor implements the DWA lossy path for HALF luminance/chroma
// channels (R, G, B, Y, RY, BY) via an 8×8 block DCT quantized against the
// standard JPEG luminance table, with alpha channels passed through RLE
// and all other channels through deflate (§4.4). The quality field scales
// the quantization table; no header attribute (such as
// "dwaCompressionLevel") sets it, so compressors built by NewRegistry
// quantize with the unscaled table.
type dwaCompressor struct {
	lines   int
	quality float32 // 0 < quality <= 1; 1 == jpegQuantTable unscaled
}

func (c *dwaCompressor) Kind() Kind {
	if c.lines == 256 {
		return DWAB
	}
	return DWAA
}
func (c *dwaCompressor) LinesPerBlock() int { return c.lines }

func (c *dwaCompressor) quantScale() float32 {
	if c.quality <= 0 {
		return 1
	}
	return c.quality
}

// jpegQuantTable is the standard JPEG luminance quantization matrix, used
// as the base DCT coefficient quantizer.
var jpegQuantTable = [64]float32{
	16, 11, 10, 16, 24, 40, 51, 61,
	12, 12, 14, 19, 26, 58, 60, 55,
	14, 13, 16, 24, 40, 57, 69, 56,
	14, 17, 22, 29, 51, 87, 80, 62,
	18, 22, 37, 56, 68, 109, 103, 77,
	24, 35, 55, 64, 81, 104, 113, 92,
	49, 64, 78, 87, 103, 121, 120, 101,
	72, 92, 95, 98, 112, 100, 103, 99,
}

func isLossyDCTChannel(name string) bool {
	switch name {
	case "R", "G", "B", "Y", "RY", "BY":
		return true
	default:
		return false
	}
}

func (c *dwaCompressor) Compress(channels []Channel, width, height int, raw []byte) ([]byte, error) {
	var out bytes.Buffer
	off := 0
	for _, ch := range channels {
		rows := sampledCount(height, ch.YSampling)
		cols := sampledCount(width, ch.XSampling)
		size := rows * cols * ch.Type.Size()
		chanRaw := raw[off : off+size]
		off += size

		var seg []byte
		var err error
		switch {
		case ch.Type == Half && isLossyDCTChannel(ch.Name):
			seg = c.encodeDCT(chanRaw, cols, rows, c.quantScale())
		case ch.Name == "A":
			rleC := &rleCompressor{}
			seg, err = rleC.Compress(nil, cols, rows, chanRaw)
			if err == ErrWouldGrow {
				seg = append([]byte{0}, chanRaw...)
			} else if err != nil {
				return nil, err
			} else {
				seg = append([]byte{1}, seg...)
			}
		default:
			seg, err = deflateBytes(chanRaw)
			if err != nil {
				return nil, err
			}
		}
		writeUint32(&out, uint32(len(seg)))
		out.Write(seg)
	}
	if out.Len() >= len(raw) {
		return nil, ErrWouldGrow
	}
	return out.Bytes(), nil
}

func (c *dwaCompressor) Uncompress(channels []Channel, width, height int, compressed []byte, expectedLen int) ([]byte, error) {
	out := make([]byte, 0, expectedLen)
	r := bytes.NewReader(compressed)
	for _, ch := range channels {
		rows := sampledCount(height, ch.YSampling)
		cols := sampledCount(width, ch.XSampling)

		segLen, err := readUint32(r)
		if err != nil {
			return nil, errDataCorrupt("dwa: %v", err)
		}
		seg := make([]byte, segLen)
		if _, err := io.ReadFull(r, seg); err != nil {
			return nil, errDataCorrupt("dwa: truncated channel segment: %v", err)
		}

		switch {
		case ch.Type == Half && isLossyDCTChannel(ch.Name):
			plane, err := c.decodeDCT(seg, cols, rows, c.quantScale())
			if err != nil {
				return nil, err
			}
			out = append(out, plane...)
		case ch.Name == "A":
			if len(seg) == 0 {
				return nil, errDataCorrupt("dwa: empty alpha segment")
			}
			if seg[0] == 0 {
				out = append(out, seg[1:]...)
			} else {
				rleC := &rleCompressor{}
				plane, err := rleC.Uncompress(nil, cols, rows, seg[1:], rows*cols*ch.Type.Size())
				if err != nil {
					return nil, err
				}
				out = append(out, plane...)
			}
		default:
			plane, err := inflateBytes(seg, rows*cols*ch.Type.Size())
			if err != nil {
				return nil, err
			}
			out = append(out, plane...)
		}
	}
	if len(out) != expectedLen {
		return nil, errDataCorrupt("dwa: expected %d bytes, got %d", expectedLen, len(out))
	}
	return out, nil
}

// encodeDCT runs an 8×8 block DCT-II over the HALF plane (edge blocks
// zero-padded), quantizes against jpegQuantTable*scale, and deflates the
// resulting coefficient stream.
func (c *dwaCompressor) encodeDCT(raw []byte, width, height int, scale float32) []byte {
	plane := make([]float32, width*height)
	for i := range plane {
		lo := uint16(raw[i*2]) | uint16(raw[i*2+1])<<8
		plane[i] = halfBitsToFloat32(lo)
	}

	var coeffsBuf bytes.Buffer
	var block [64]float32
	for by := 0; by < height; by += 8 {
		for bx := 0; bx < width; bx += 8 {
			for i := range block {
				block[i] = 0
			}
			for dy := 0; dy < 8; dy++ {
				y := by + dy
				if y >= height {
					continue
				}
				for dx := 0; dx < 8; dx++ {
					x := bx + dx
					if x >= width {
						continue
					}
					block[dy*8+dx] = plane[y*width+x]
				}
			}
			dct8x8Forward(&block)
			for i, v := range block {
				q := int32(math.Round(float64(v / (jpegQuantTable[i] * scale))))
				writeZigzag32(&coeffsBuf, q)
			}
		}
	}
	compressed, _ := deflateBytes(coeffsBuf.Bytes())
	return compressed
}

func (c *dwaCompressor) decodeDCT(seg []byte, width, height int, scale float32) ([]byte, error) {
	coeffBytes, err := inflateVarLen(seg)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(coeffBytes)

	plane := make([]float32, width*height)
	var block [64]float32
	for by := 0; by < height; by += 8 {
		for bx := 0; bx < width; bx += 8 {
			for i := 0; i < 64; i++ {
				q, err := readZigzag32(r)
				if err != nil {
					return nil, errDataCorrupt("dwa: truncated DCT coefficients: %v", err)
				}
				block[i] = float32(q) * jpegQuantTable[i] * scale
			}
			dct8x8Inverse(&block)
			for dy := 0; dy < 8; dy++ {
				y := by + dy
				if y >= height {
					continue
				}
				for dx := 0; dx < 8; dx++ {
					x := bx + dx
					if x >= width {
						continue
					}
					plane[y*width+x] = block[dy*8+dx]
				}
			}
		}
	}

	out := make([]byte, width*height*2)
	for i, v := range plane {
		bits := float32ToHalfBits(v)
		out[i*2] = byte(bits)
		out[i*2+1] = byte(bits >> 8)
	}
	return out, nil
}

func inflateVarLen(compressed []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errDataCorrupt("dwa: %v", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, errDataCorrupt("dwa: %v", err)
	}
	return raw, nil
}

func writeZigzag32(buf *bytes.Buffer, v int32) {
	u := uint32((v << 1) ^ (v >> 31))
	for u >= 0x80 {
		buf.WriteByte(byte(u) | 0x80)
		u >>= 7
	}
	buf.WriteByte(byte(u))
}

func readZigzag32(r *bytes.Reader) (int32, error) {
	var u uint32
	shift := uint(0)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		u |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	return int32(u>>1) ^ -int32(u&1), nil
}

// dct8x8Forward/Inverse apply a separable naive DCT-II/DCT-III over an 8×8
// block in place. Naive O(n^2) per row/column is plenty for an 8-wide
// transform and keeps the implementation straightforward to audit.
func dct8x8Forward(block *[64]float32) {
	dctRows(block, true)
	dctCols(block, true)
}

func dct8x8Inverse(block *[64]float32) {
	dctCols(block, false)
	dctRows(block, false)
}

func dctRows(block *[64]float32, forward bool) {
	var row, out [8]float32
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			row[x] = block[y*8+x]
		}
		if forward {
			dct1D8(&row, &out)
		} else {
			idct1D8(&row, &out)
		}
		for x := 0; x < 8; x++ {
			block[y*8+x] = out[x]
		}
	}
}

func dctCols(block *[64]float32, forward bool) {
	var col, out [8]float32
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			col[y] = block[y*8+x]
		}
		if forward {
			dct1D8(&col, &out)
		} else {
			idct1D8(&col, &out)
		}
		for y := 0; y < 8; y++ {
			block[y*8+x] = out[y]
		}
	}
}

func dct1D8(in, out *[8]float32) {
	for u := 0; u < 8; u++ {
		var sum float32
		for x := 0; x < 8; x++ {
			sum += in[x] * float32(math.Cos(math.Pi/8*(float64(x)+0.5)*float64(u)))
		}
		cu := float32(1)
		if u == 0 {
			cu = float32(1 / math.Sqrt2)
		}
		out[u] = 0.5 * cu * sum
	}
}

func idct1D8(in, out *[8]float32) {
	for x := 0; x < 8; x++ {
		var sum float32
		for u := 0; u < 8; u++ {
			cu := float32(1)
			if u == 0 {
				cu = float32(1 / math.Sqrt2)
			}
			sum += cu * in[u] * float32(math.Cos(math.Pi/8*(float64(x)+0.5)*float64(u)))
		}
		out[x] = 0.5 * sum
	}
}

// halfBitsToFloat32 / float32ToHalfBits convert IEEE-754 binary16 bit
// patterns to/from float32 without pulling in the parent exr package (this
// package stays dependency-free of exr to keep the import graph acyclic).
func halfBitsToFloat32(h uint16) float32 {
	sign := uint32(h>>15) & 1
	exp := uint32(h>>10) & 0x1F
	frac := uint32(h) & 0x3FF
	var bits uint32
	switch exp {
	case 0:
		if frac == 0 {
			bits = sign << 31
		} else {
			for frac&0x400 == 0 {
				frac <<= 1
				exp--
			}
			exp++
			frac &= 0x3FF
			bits = (sign << 31) | ((exp + 112) << 23) | (frac << 13)
		}
	case 0x1F:
		bits = (sign << 31) | (0xFF << 23) | (frac << 13)
	default:
		bits = (sign << 31) | ((exp + 112) << 23) | (frac << 13)
	}
	return math.Float32frombits(bits)
}

func float32ToHalfBits(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xFF) - 127 + 15
	frac := bits & 0x7FFFFF
	switch {
	case exp <= 0:
		return sign
	case exp >= 0x1F:
		return sign | 0x7C00
	default:
		return sign | uint16(exp<<10) | uint16(frac>>13)
	}
}
