package compression

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
)

// b44Compressor encodes HALF channels as 4×4 pixel blocks: each block's 16
// values are quantized to a shared 14-bit range anchored at the block
// minimum (§4.4's "14-bit differencing"). B44A additionally detects a block
// whose 16 values are identical and stores it in 3 bytes instead of 33.
// Non-HALF channels are not eligible for the block scheme and are deflated
// as-is, matching the source's fallback to plain ZIP for those channels.
type b44Compressor struct{ flat bool }

func (c *b44Compressor) Kind() Kind {
	if c.flat {
		return B44A
	}
	return B44
}
func (c *b44Compressor) LinesPerBlock() int { return 32 }

const b44BlockDim = 4

func (c *b44Compressor) Compress(channels []Channel, width, height int, raw []byte) ([]byte, error) {
	var out bytes.Buffer
	off := 0
	for _, ch := range channels {
		rows := sampledCount(height, ch.YSampling)
		cols := sampledCount(width, ch.XSampling)
		size := rows * cols * ch.Type.Size()
		chanRaw := raw[off : off+size]
		off += size

		if ch.Type != Half {
			compressed, err := deflateBytes(chanRaw)
			if err != nil {
				return nil, err
			}
			writeUint32(&out, uint32(len(compressed)))
			out.Write(compressed)
			continue
		}

		encoded := c.encodeHalfPlane(chanRaw, cols, rows)
		writeUint32(&out, uint32(len(encoded)))
		out.Write(encoded)
	}
	if out.Len() >= len(raw) {
		return nil, ErrWouldGrow
	}
	return out.Bytes(), nil
}

func (c *b44Compressor) Uncompress(channels []Channel, width, height int, compressed []byte, expectedLen int) ([]byte, error) {
	out := make([]byte, 0, expectedLen)
	r := bytes.NewReader(compressed)
	for _, ch := range channels {
		rows := sampledCount(height, ch.YSampling)
		cols := sampledCount(width, ch.XSampling)

		segLen, err := readUint32(r)
		if err != nil {
			return nil, errDataCorrupt("b44: %v", err)
		}
		seg := make([]byte, segLen)
		if _, err := io.ReadFull(r, seg); err != nil {
			return nil, errDataCorrupt("b44: truncated channel segment: %v", err)
		}

		if ch.Type != Half {
			raw, err := inflateBytes(seg, rows*cols*ch.Type.Size())
			if err != nil {
				return nil, err
			}
			out = append(out, raw...)
			continue
		}

		plane, err := c.decodeHalfPlane(seg, cols, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, plane...)
	}
	if len(out) != expectedLen {
		return nil, errDataCorrupt("b44: expected %d bytes, got %d", expectedLen, len(out))
	}
	return out, nil
}

func (c *b44Compressor) encodeHalfPlane(raw []byte, width, height int) []byte {
	var out bytes.Buffer
	for by := 0; by < height; by += b44BlockDim {
		for bx := 0; bx < width; bx += b44BlockDim {
			block := readHalfBlock(raw, width, height, bx, by)
			c.encodeBlock(&out, block)
		}
	}
	return out.Bytes()
}

func (c *b44Compressor) decodeHalfPlane(data []byte, width, height int) ([]byte, error) {
	plane := make([]uint16, width*height)
	r := bytes.NewReader(data)
	for by := 0; by < height; by += b44BlockDim {
		for bx := 0; bx < width; bx += b44BlockDim {
			block, err := c.decodeBlock(r)
			if err != nil {
				return nil, err
			}
			writeHalfBlock(plane, width, height, bx, by, block)
		}
	}
	out := make([]byte, len(plane)*2)
	for i, v := range plane {
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out, nil
}

func readHalfBlock(raw []byte, width, height, bx, by int) [16]uint16 {
	var block [16]uint16
	for dy := 0; dy < b44BlockDim; dy++ {
		y := by + dy
		for dx := 0; dx < b44BlockDim; dx++ {
			x := bx + dx
			idx := dy*b44BlockDim + dx
			if x >= width || y >= height {
				block[idx] = block[0]
				continue
			}
			off := (y*width + x) * 2
			block[idx] = uint16(raw[off]) | uint16(raw[off+1])<<8
		}
	}
	return block
}

func writeHalfBlock(plane []uint16, width, height, bx, by int, block [16]uint16) {
	for dy := 0; dy < b44BlockDim; dy++ {
		y := by + dy
		if y >= height {
			continue
		}
		for dx := 0; dx < b44BlockDim; dx++ {
			x := bx + dx
			if x >= width {
				continue
			}
			plane[y*width+x] = block[dy*b44BlockDim+dx]
		}
	}
}

func (c *b44Compressor) encodeBlock(out *bytes.Buffer, block [16]uint16) {
	min, max := block[0], block[0]
	flat := true
	for _, v := range block {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		if v != block[0] {
			flat = false
		}
	}
	if c.flat && flat {
		out.WriteByte(1)
		out.WriteByte(byte(min))
		out.WriteByte(byte(min >> 8))
		return
	}

	rng := uint32(max - min)
	out.WriteByte(0)
	out.WriteByte(byte(min))
	out.WriteByte(byte(min >> 8))
	out.WriteByte(byte(rng))
	out.WriteByte(byte(rng >> 8))

	// Pack 16 samples at 14 bits each (28 bytes) quantized within [min,max].
	var bitbuf uint64
	var nbits uint
	packed := make([]byte, 0, 28)
	for _, v := range block {
		q := quantize14(v, min, max)
		bitbuf |= uint64(q) << nbits
		nbits += 14
		for nbits >= 8 {
			packed = append(packed, byte(bitbuf))
			bitbuf >>= 8
			nbits -= 8
		}
	}
	if nbits > 0 {
		packed = append(packed, byte(bitbuf))
	}
	out.Write(packed)
}

func (c *b44Compressor) decodeBlock(r *bytes.Reader) ([16]uint16, error) {
	var block [16]uint16
	flag, err := r.ReadByte()
	if err != nil {
		return block, errDataCorrupt("b44: truncated block flag: %v", err)
	}
	lo, err := r.ReadByte()
	if err != nil {
		return block, errDataCorrupt("b44: truncated block min: %v", err)
	}
	hi, err := r.ReadByte()
	if err != nil {
		return block, errDataCorrupt("b44: truncated block min: %v", err)
	}
	min := uint16(lo) | uint16(hi)<<8

	if flag == 1 {
		for i := range block {
			block[i] = min
		}
		return block, nil
	}

	rlo, err := r.ReadByte()
	if err != nil {
		return block, errDataCorrupt("b44: truncated block range: %v", err)
	}
	rhi, err := r.ReadByte()
	if err != nil {
		return block, errDataCorrupt("b44: truncated block range: %v", err)
	}
	rng := uint32(rlo) | uint32(rhi)<<8
	max := min + uint16(rng)

	packed := make([]byte, 28)
	if _, err := io.ReadFull(r, packed); err != nil {
		return block, errDataCorrupt("b44: truncated block payload: %v", err)
	}
	var bitbuf uint64
	var nbits uint
	pi := 0
	for i := range block {
		for nbits < 14 {
			bitbuf |= uint64(packed[pi]) << nbits
			pi++
			nbits += 8
		}
		q := uint16(bitbuf & 0x3FFF)
		bitbuf >>= 14
		nbits -= 14
		block[i] = dequantize14(q, min, max)
	}
	return block, nil
}

func quantize14(v, min, max uint16) uint16 {
	if max == min {
		return 0
	}
	scale := uint32(max-min) + 1
	return uint16((uint32(v-min) * 0x3FFF) / scale)
}

func dequantize14(q, min, max uint16) uint16 {
	if max == min {
		return min
	}
	scale := uint32(max-min) + 1
	return min + uint16((uint32(q)*scale)/0x3FFF)
}

func deflateBytes(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflateBytes(compressed []byte, expectedLen int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errDataCorrupt("inflate: %v", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, errDataCorrupt("inflate: %v", err)
	}
	if len(raw) != expectedLen {
		return nil, errDataCorrupt("inflate: expected %d bytes, got %d", expectedLen, len(raw))
	}
	return raw, nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	buf.WriteByte(byte(v))
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v >> 16))
	buf.WriteByte(byte(v >> 24))
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}
