package compression

// pizCompressor implements a lossless wavelet-plus-Huffman pipeline
// (§4.4): a reversible Haar-style lifting transform decorrelates each
// channel's 2-D block of samples, the coefficients are zigzag/varint coded
// to bytes, and the byte stream is entropy-coded with the canonical
// Huffman coder in huffman.go (the source's "Huffman back-end").
type pizCompressor struct{}

func (c *pizCompressor) Kind() Kind         { return PIZ }
func (c *pizCompressor) LinesPerBlock() int { return 32 }

func (c *pizCompressor) Compress(channels []Channel, width, height int, raw []byte) ([]byte, error) {
	var coeffs []int32
	off := 0
	for _, ch := range channels {
		rows := sampledCount(height, ch.YSampling)
		cols := sampledCount(width, ch.XSampling)
		words := samplesToWords(ch.Type, raw[off:off+rows*cols*ch.Type.Size()])
		off += rows * cols * ch.Type.Size()
		transformed := haarForward2D(words, cols, rows)
		coeffs = append(coeffs, transformed...)
	}

	payload := varintZigzagEncode(coeffs)
	encoded := huffmanEncode(payload)
	if len(encoded) >= len(raw) {
		return nil, ErrWouldGrow
	}
	return encoded, nil
}

func (c *pizCompressor) Uncompress(channels []Channel, width, height int, compressed []byte, expectedLen int) ([]byte, error) {
	payload, err := huffmanDecode(compressed)
	if err != nil {
		return nil, err
	}
	coeffs, err := varintZigzagDecode(payload)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, expectedLen)
	ci := 0
	for _, ch := range channels {
		rows := sampledCount(height, ch.YSampling)
		cols := sampledCount(width, ch.XSampling)
		n := rows * cols
		if ci+n > len(coeffs) {
			return nil, errDataCorrupt("piz: coefficient stream too short for channel %q", ch.Name)
		}
		block := append([]int32(nil), coeffs[ci:ci+n]...)
		ci += n
		words := haarInverse2D(block, cols, rows)
		out = append(out, wordsToSamples(ch.Type, words)...)
	}
	if len(out) != expectedLen {
		return nil, errDataCorrupt("piz: expected %d bytes, got %d", expectedLen, len(out))
	}
	return out, nil
}

// samplesToWords widens a channel's raw bytes into one int32 per stored
// "word": HALF channels are one word per sample; UINT and FLOAT channels
// are split into their low and high 16-bit halves (so the wavelet operates
// on bounded-range integers the way the source's PIZ path does).
func samplesToWords(t PixelType, raw []byte) []int32 {
	switch t {
	case Half:
		n := len(raw) / 2
		out := make([]int32, n)
		for i := 0; i < n; i++ {
			out[i] = int32(uint16(raw[i*2]) | uint16(raw[i*2+1])<<8)
		}
		return out
	default: // Uint, Float: 4 bytes -> two 16-bit words
		n := len(raw) / 4
		out := make([]int32, n*2)
		for i := 0; i < n; i++ {
			lo := uint16(raw[i*4]) | uint16(raw[i*4+1])<<8
			hi := uint16(raw[i*4+2]) | uint16(raw[i*4+3])<<8
			out[i*2] = int32(lo)
			out[i*2+1] = int32(hi)
		}
		return out
	}
}

func wordsToSamples(t PixelType, words []int32) []byte {
	switch t {
	case Half:
		out := make([]byte, len(words)*2)
		for i, w := range words {
			v := uint16(w)
			out[i*2] = byte(v)
			out[i*2+1] = byte(v >> 8)
		}
		return out
	default:
		n := len(words) / 2
		out := make([]byte, n*4)
		for i := 0; i < n; i++ {
			lo := uint16(words[i*2])
			hi := uint16(words[i*2+1])
			out[i*4] = byte(lo)
			out[i*4+1] = byte(lo >> 8)
			out[i*4+2] = byte(hi)
			out[i*4+3] = byte(hi >> 8)
		}
		return out
	}
}

// haarForward1D applies the reversible S-transform lifting step in place
// over stride-separated samples: each (even, odd) pair yields an average,
// stored in the first half of the output, and a difference, stored in the
// second half; an odd trailing sample is kept as-is in the last slot.
func haarForward1D(a []int32, stride, n int) {
	half := n / 2
	tmp := make([]int32, n)
	for i := 0; i < n; i++ {
		tmp[i] = a[i*stride]
	}
	out := make([]int32, n)
	for i := 0; i < half; i++ {
		x0, x1 := tmp[2*i], tmp[2*i+1]
		diff := x1 - x0
		avg := x0 + (diff >> 1)
		out[i] = avg
		out[half+i] = diff
	}
	if n%2 == 1 {
		out[n-1] = tmp[n-1]
	}
	for i := 0; i < n; i++ {
		a[i*stride] = out[i]
	}
}

func haarInverse1D(a []int32, stride, n int) {
	half := n / 2
	tmp := make([]int32, n)
	for i := 0; i < n; i++ {
		tmp[i] = a[i*stride]
	}
	out := make([]int32, n)
	for i := 0; i < half; i++ {
		avg, diff := tmp[i], tmp[half+i]
		x0 := avg - (diff >> 1)
		x1 := x0 + diff
		out[2*i] = x0
		out[2*i+1] = x1
	}
	if n%2 == 1 {
		out[n-1] = tmp[n-1]
	}
	for i := 0; i < n; i++ {
		a[i*stride] = out[i]
	}
}

// haarForward2D runs one level of horizontal-then-vertical lifting over a
// width×height grid stored row-major. Dimensions below 2 on an axis are
// left untransformed on that axis.
func haarForward2D(words []int32, width, height int) []int32 {
	out := append([]int32(nil), words...)
	if width >= 2 {
		for y := 0; y < height; y++ {
			haarForward1D(out[y*width:(y+1)*width], 1, width)
		}
	}
	if height >= 2 {
		for x := 0; x < width; x++ {
			haarForward1D(out[x:], width, height)
		}
	}
	return out
}

func haarInverse2D(words []int32, width, height int) []int32 {
	out := append([]int32(nil), words...)
	if height >= 2 {
		for x := 0; x < width; x++ {
			haarInverse1D(out[x:], width, height)
		}
	}
	if width >= 2 {
		for y := 0; y < height; y++ {
			haarInverse1D(out[y*width:(y+1)*width], 1, width)
		}
	}
	return out
}

func zigzagEncode32(v int32) uint32 { return uint32((v << 1) ^ (v >> 31)) }
func zigzagDecode32(v uint32) int32 { return int32(v>>1) ^ -int32(v&1) }

func varintZigzagEncode(coeffs []int32) []byte {
	out := make([]byte, 0, len(coeffs)*2)
	for _, c := range coeffs {
		v := zigzagEncode32(c)
		for v >= 0x80 {
			out = append(out, byte(v)|0x80)
			v >>= 7
		}
		out = append(out, byte(v))
	}
	return out
}

func varintZigzagDecode(data []byte) ([]int32, error) {
	var out []int32
	i := 0
	for i < len(data) {
		var v uint32
		shift := uint(0)
		for {
			if i >= len(data) {
				return nil, errDataCorrupt("piz: truncated varint")
			}
			b := data[i]
			i++
			v |= uint32(b&0x7F) << shift
			if b&0x80 == 0 {
				break
			}
			shift += 7
			if shift > 35 {
				return nil, errDataCorrupt("piz: varint too long")
			}
		}
		out = append(out, zigzagDecode32(v))
	}
	return out, nil
}
