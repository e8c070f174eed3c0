package t1

import "github.com/cocosip/go-hdrimage/j2k/mqc"

// Orientation selects the zero-coding context table a codeblock's subband
// uses (ISO/IEC 15444-1 Table D.1).
const (
	OrientLL = 0
	OrientHL = 1
	OrientLH = 2
	OrientHH = 3
)

// MaxBitPlanes bounds the magnitude a codeblock coefficient may carry;
// 31 leaves headroom for the sign bit in a signed 32-bit word.
const MaxBitPlanes = 31

// Encoder bit-plane codes one codeblock's quantized wavelet coefficients
// into a single continuous MQ-coded segment. It supports only the default
// codeblock style (no LAZY/TERMALL/RESET/SEGSYM): each codeblock is one
// arithmetic codeword, matching spec's single-quality-layer scope.
type Encoder struct {
	width, height int
	stride        int // width + 2, padded grid stride
	flags         []uint32
	data          []int32 // padded magnitude-sign grid, same layout as flags
	orientation   int
}

// NewEncoder allocates a coder for a width x height codeblock.
func NewEncoder(width, height, orientation int) *Encoder {
	stride := width + 2
	return &Encoder{
		width:       width,
		height:      height,
		stride:      stride,
		flags:       make([]uint32, stride*(height+2)),
		data:        make([]int32, stride*(height+2)),
		orientation: orientation,
	}
}

func (e *Encoder) idx(x, y int) int { return (y+1)*e.stride + (x + 1) }

// Encode runs the bit-plane coding passes over coeffs (row-major,
// width*height signed magnitudes) and returns the MQ-coded bytes, the
// number of coding passes emitted, and the highest nonzero bit-plane
// found (-1 for an all-zero codeblock). Callers use maxBitplane to derive
// the zero-bit-plane count the packet header signals on first inclusion:
// nominalMaxBitplane - maxBitplane.
func (e *Encoder) Encode(coeffs []int32) (data []byte, numPasses int, maxBitplane int, err error) {
	for i := range e.flags {
		e.flags[i] = 0
	}
	maxMag := int32(0)
	for y := 0; y < e.height; y++ {
		for x := 0; x < e.width; x++ {
			v := coeffs[y*e.width+x]
			mag := v
			sign := uint32(0)
			if mag < 0 {
				mag = -mag
				sign = signFlag
			}
			idx := e.idx(x, y)
			e.data[idx] = mag
			if sign != 0 {
				e.flags[idx] |= sign
			}
			if mag > maxMag {
				maxMag = mag
			}
		}
	}
	if maxMag == 0 {
		// An all-zero codeblock contributes no passes; callers should skip
		// encoding it as included with zero length.
		return nil, 0, -1, nil
	}
	maxBitplane = 0
	for (int32(1) << uint(maxBitplane+1)) <= maxMag {
		maxBitplane++
	}

	enc := mqc.NewEncoder(NumContexts)

	for bp := maxBitplane; bp >= 0; bp-- {
		for y := 0; y < e.height; y++ {
			for x := 0; x < e.width; x++ {
				e.flags[e.idx(x, y)] &^= visitFlag
			}
		}
		if bp == maxBitplane {
			e.encodeCleanupPass(enc, bp)
			numPasses++
			continue
		}
		e.encodeSigPropPass(enc, bp)
		numPasses++
		e.encodeMagRefPass(enc, bp)
		numPasses++
		e.encodeCleanupPass(enc, bp)
		numPasses++
	}
	return enc.Flush(), numPasses, maxBitplane, nil
}

func (e *Encoder) neighborSig(idx int) uint32 {
	s := e.stride
	flags := e.flags
	var n uint32
	if flags[idx-s]&sigFlag != 0 {
		n |= sigN
	}
	if flags[idx+s]&sigFlag != 0 {
		n |= sigS
	}
	if flags[idx-1]&sigFlag != 0 {
		n |= sigW
	}
	if flags[idx+1]&sigFlag != 0 {
		n |= sigE
	}
	if flags[idx-s-1]&sigFlag != 0 {
		n |= sigNW
	}
	if flags[idx-s+1]&sigFlag != 0 {
		n |= sigNE
	}
	if flags[idx+s-1]&sigFlag != 0 {
		n |= sigSW
	}
	if flags[idx+s+1]&sigFlag != 0 {
		n |= sigSE
	}
	return n
}

func (e *Encoder) neighborSign(idx int) uint32 {
	s := e.stride
	flags := e.flags
	var n uint32
	if flags[idx-s]&sigFlag != 0 {
		n |= sigN
		if flags[idx-s]&signFlag != 0 {
			n |= signN
		}
	}
	if flags[idx+s]&sigFlag != 0 {
		n |= sigS
		if flags[idx+s]&signFlag != 0 {
			n |= signS
		}
	}
	if flags[idx-1]&sigFlag != 0 {
		n |= sigW
		if flags[idx-1]&signFlag != 0 {
			n |= signW
		}
	}
	if flags[idx+1]&sigFlag != 0 {
		n |= sigE
		if flags[idx+1]&signFlag != 0 {
			n |= signE
		}
	}
	return n
}

func (e *Encoder) markSignificant(x, y, idx int) {
	e.flags[idx] |= sigFlag | visitFlag
	s := e.stride
	flags := e.flags
	sign := e.flags[idx] & signFlag
	set := func(off int, sigBit, signBit uint32) {
		flags[idx+off] |= sigBit
		if sign != 0 {
			flags[idx+off] |= signBit
		}
	}
	_ = x
	_ = y
	set(-s, sigS, signS)
	set(s, sigN, signN)
	set(-1, sigE, signE)
	set(1, sigW, signW)
	flags[idx-s-1] |= sigSE
	flags[idx-s+1] |= sigSW
	flags[idx+s-1] |= sigNE
	flags[idx+s+1] |= sigNW
}

func (e *Encoder) encodeSigPropPass(enc *mqc.Encoder, bp int) {
	bit := int32(1) << uint(bp)
	for y := 0; y < e.height; y++ {
		for x := 0; x < e.width; x++ {
			idx := e.idx(x, y)
			flags := e.flags[idx]
			if flags&sigFlag != 0 || flags&visitFlag != 0 {
				continue
			}
			neigh := e.neighborSig(idx)
			if neigh == 0 {
				continue
			}
			ctx := zeroCodingContext(neigh, e.orientation)
			sigBit := 0
			if e.data[idx]&bit != 0 {
				sigBit = 1
			}
			enc.Encode(sigBit, int(ctx))
			if sigBit == 1 {
				signNeigh := e.neighborSign(idx)
				pred := signPrediction(signNeigh)
				sign := 0
				if e.flags[idx]&signFlag != 0 {
					sign = 1
				}
				enc.Encode(sign^pred, int(signCodingContext(signNeigh)))
				e.markSignificant(x, y, idx)
			} else {
				e.flags[idx] |= visitFlag
			}
		}
	}
}

func (e *Encoder) encodeMagRefPass(enc *mqc.Encoder, bp int) {
	bit := int32(1) << uint(bp)
	for y := 0; y < e.height; y++ {
		for x := 0; x < e.width; x++ {
			idx := e.idx(x, y)
			flags := e.flags[idx]
			if flags&sigFlag == 0 || flags&visitFlag != 0 {
				continue
			}
			ctx := magRefinementContext(flags)
			refBit := 0
			if e.data[idx]&bit != 0 {
				refBit = 1
			}
			enc.Encode(refBit, int(ctx))
			e.flags[idx] |= refineFlag | visitFlag
		}
	}
}

func (e *Encoder) encodeCleanupPass(enc *mqc.Encoder, bp int) {
	bit := int32(1) << uint(bp)
	for y := 0; y < e.height; y++ {
		for x := 0; x < e.width; x++ {
			idx := e.idx(x, y)
			flags := e.flags[idx]
			if flags&sigFlag != 0 || flags&visitFlag != 0 {
				continue
			}
			neigh := e.neighborSig(idx)
			ctx := zeroCodingContext(neigh, e.orientation)
			sigBit := 0
			if e.data[idx]&bit != 0 {
				sigBit = 1
			}
			enc.Encode(sigBit, int(ctx))
			if sigBit == 1 {
				signNeigh := e.neighborSign(idx)
				pred := signPrediction(signNeigh)
				sign := 0
				if e.flags[idx]&signFlag != 0 {
					sign = 1
				}
				enc.Encode(sign^pred, int(signCodingContext(signNeigh)))
				e.markSignificant(x, y, idx)
			}
		}
	}
}

// Decoder is the symmetric counterpart of Encoder.
type Decoder struct {
	width, height int
	stride        int
	flags         []uint32
	data          []int32
	orientation   int
}

// NewDecoder allocates a decoder for a width x height codeblock.
func NewDecoder(width, height, orientation int) *Decoder {
	stride := width + 2
	return &Decoder{
		width:       width,
		height:      height,
		stride:      stride,
		flags:       make([]uint32, stride*(height+2)),
		data:        make([]int32, stride*(height+2)),
		orientation: orientation,
	}
}

func (d *Decoder) idx(x, y int) int { return (y+1)*d.stride + (x + 1) }

// Decode reconstructs width*height signed magnitudes from data, given the
// bit-plane the encoder actually started coding passes from (the caller
// derives this from the packet header's zero-bit-plane count) and the
// total coding-pass count to run.
func (d *Decoder) Decode(data []byte, maxBitplane, numPasses int) ([]int32, error) {
	out := make([]int32, d.width*d.height)
	if numPasses == 0 {
		return out, nil
	}
	for i := range d.flags {
		d.flags[i] = 0
		d.data[i] = 0
	}
	dec := mqc.NewDecoder(data, NumContexts)

	bp := maxBitplane
	pass := 0
	for pass < numPasses {
		for y := 0; y < d.height; y++ {
			for x := 0; x < d.width; x++ {
				d.flags[d.idx(x, y)] &^= visitFlag
			}
		}
		if pass == 0 {
			d.decodeCleanupPass(dec, bp)
			pass++
		} else {
			d.decodeSigPropPass(dec, bp)
			pass++
			if pass >= numPasses {
				break
			}
			d.decodeMagRefPass(dec, bp)
			pass++
			if pass >= numPasses {
				break
			}
			d.decodeCleanupPass(dec, bp)
			pass++
		}
		bp--
	}

	for y := 0; y < d.height; y++ {
		for x := 0; x < d.width; x++ {
			idx := d.idx(x, y)
			v := d.data[idx]
			if d.flags[idx]&signFlag != 0 {
				v = -v
			}
			out[y*d.width+x] = v
		}
	}
	return out, nil
}

func (d *Decoder) neighborSig(idx int) uint32 {
	s := d.stride
	flags := d.flags
	var n uint32
	if flags[idx-s]&sigFlag != 0 {
		n |= sigN
	}
	if flags[idx+s]&sigFlag != 0 {
		n |= sigS
	}
	if flags[idx-1]&sigFlag != 0 {
		n |= sigW
	}
	if flags[idx+1]&sigFlag != 0 {
		n |= sigE
	}
	if flags[idx-s-1]&sigFlag != 0 {
		n |= sigNW
	}
	if flags[idx-s+1]&sigFlag != 0 {
		n |= sigNE
	}
	if flags[idx+s-1]&sigFlag != 0 {
		n |= sigSW
	}
	if flags[idx+s+1]&sigFlag != 0 {
		n |= sigSE
	}
	return n
}

func (d *Decoder) neighborSign(idx int) uint32 {
	s := d.stride
	flags := d.flags
	var n uint32
	if flags[idx-s]&sigFlag != 0 {
		n |= sigN
		if flags[idx-s]&signFlag != 0 {
			n |= signN
		}
	}
	if flags[idx+s]&sigFlag != 0 {
		n |= sigS
		if flags[idx+s]&signFlag != 0 {
			n |= signS
		}
	}
	if flags[idx-1]&sigFlag != 0 {
		n |= sigW
		if flags[idx-1]&signFlag != 0 {
			n |= signW
		}
	}
	if flags[idx+1]&sigFlag != 0 {
		n |= sigE
		if flags[idx+1]&signFlag != 0 {
			n |= signE
		}
	}
	return n
}

func (d *Decoder) markSignificant(idx int, sign uint32) {
	d.flags[idx] |= sigFlag | visitFlag
	if sign != 0 {
		d.flags[idx] |= signFlag
	}
	s := d.stride
	flags := d.flags
	set := func(off int, sigBit, signBit uint32) {
		flags[idx+off] |= sigBit
		if sign != 0 {
			flags[idx+off] |= signBit
		}
	}
	set(-s, sigS, signS)
	set(s, sigN, signN)
	set(-1, sigE, signE)
	set(1, sigW, signW)
	flags[idx-s-1] |= sigSE
	flags[idx-s+1] |= sigSW
	flags[idx+s-1] |= sigNE
	flags[idx+s+1] |= sigNW
}

func (d *Decoder) decodeSigPropPass(dec *mqc.Decoder, bp int) {
	bit := int32(1) << uint(bp)
	for y := 0; y < d.height; y++ {
		for x := 0; x < d.width; x++ {
			idx := d.idx(x, y)
			flags := d.flags[idx]
			if flags&sigFlag != 0 || flags&visitFlag != 0 {
				continue
			}
			neigh := d.neighborSig(idx)
			if neigh == 0 {
				continue
			}
			ctx := zeroCodingContext(neigh, d.orientation)
			sigBit := dec.Decode(int(ctx))
			if sigBit == 1 {
				d.data[idx] |= bit
				signNeigh := d.neighborSign(idx)
				pred := signPrediction(signNeigh)
				signBit := dec.Decode(int(signCodingContext(signNeigh)))
				d.markSignificant(idx, uint32(signBit^pred))
			} else {
				d.flags[idx] |= visitFlag
			}
		}
	}
}

func (d *Decoder) decodeMagRefPass(dec *mqc.Decoder, bp int) {
	bit := int32(1) << uint(bp)
	for y := 0; y < d.height; y++ {
		for x := 0; x < d.width; x++ {
			idx := d.idx(x, y)
			flags := d.flags[idx]
			if flags&sigFlag == 0 || flags&visitFlag != 0 {
				continue
			}
			ctx := magRefinementContext(flags)
			refBit := dec.Decode(int(ctx))
			if refBit == 1 {
				d.data[idx] |= bit
			}
			d.flags[idx] |= refineFlag | visitFlag
		}
	}
}

func (d *Decoder) decodeCleanupPass(dec *mqc.Decoder, bp int) {
	bit := int32(1) << uint(bp)
	for y := 0; y < d.height; y++ {
		for x := 0; x < d.width; x++ {
			idx := d.idx(x, y)
			flags := d.flags[idx]
			if flags&sigFlag != 0 || flags&visitFlag != 0 {
				continue
			}
			neigh := d.neighborSig(idx)
			ctx := zeroCodingContext(neigh, d.orientation)
			sigBit := dec.Decode(int(ctx))
			if sigBit == 1 {
				d.data[idx] |= bit
				signNeigh := d.neighborSign(idx)
				pred := signPrediction(signNeigh)
				signBit := dec.Decode(int(signCodingContext(signNeigh)))
				d.markSignificant(idx, uint32(signBit^pred))
			}
		}
	}
}
