package t2

import (
	"bytes"
	"fmt"

	"github.com/cocosip/go-hdrimage/j2k/bio"
)

// CodeBlockInfo is one codeblock's contribution to a packet: its coded
// bitstream from t1, the number of coding passes it represents, and (for
// the first time it is included) the count of all-zero MSB bitplanes.
type CodeBlockInfo struct {
	Data          []byte
	NumPasses     int
	ZeroBitPlanes int // only meaningful the first time a codeblock is included
}

// CodeBlockState tracks one codeblock's inclusion history across layers,
// shared by packet encoder and decoder so tag-tree state and the running
// Lblock value persist correctly between packets.
type CodeBlockState struct {
	Included      bool
	FirstLayer    int
	ZeroBitPlanes int
	Lblock        int // running comma-coded length-field width, starts at 3
}

// Precinct is one resolution/component/precinct's set of codeblocks,
// addressed in raster order within the precinct.
type Precinct struct {
	Width, Height int // codeblock grid dimensions
	inclusion     *TagTree
	zeroBP        *TagTree
	states        []CodeBlockState
}

// NewPrecinct allocates a precinct spanning a width x height grid of
// codeblocks.
func NewPrecinct(width, height int) *Precinct {
	p := &Precinct{
		Width:     width,
		Height:    height,
		inclusion: NewTagTree(width, height),
		zeroBP:    NewTagTree(width, height),
		states:    make([]CodeBlockState, width*height),
	}
	for i := range p.states {
		p.states[i].Lblock = 3
	}
	return p
}

func (p *Precinct) state(x, y int) *CodeBlockState { return &p.states[y*p.Width+x] }

// EncodePacketHeader writes one packet's header (empty-packet flag,
// per-codeblock inclusion/zero-bitplane/pass-count/length fields) for the
// given layer. blocks is indexed the same way as the precinct's codeblock
// grid (row-major); a nil entry or one with NumPasses==0 means "not
// included in this layer".
func EncodePacketHeader(p *Precinct, layer int, blocks []*CodeBlockInfo) ([]byte, error) {
	if len(blocks) != p.Width*p.Height {
		return nil, fmt.Errorf("t2: packet has %d codeblocks, precinct expects %d", len(blocks), p.Width*p.Height)
	}
	var buf bytes.Buffer
	w := bio.NewWriter(&buf)

	anyIncluded := false
	for _, b := range blocks {
		if b != nil && b.NumPasses > 0 {
			anyIncluded = true
			break
		}
	}
	if !anyIncluded {
		w.WriteBit(0)
		w.Flush()
		return buf.Bytes(), nil
	}
	w.WriteBit(1)

	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			st := p.state(x, y)
			info := blocks[y*p.Width+x]
			included := info != nil && info.NumPasses > 0

			if !st.Included {
				if included {
					p.inclusion.SetValue(x, y, layer)
				} else {
					p.inclusion.SetValue(x, y, layer+1)
				}
				if err := p.inclusion.Encode(w, x, y, layer+1); err != nil {
					return nil, err
				}
				if !included {
					continue
				}
				st.Included = true
				st.FirstLayer = layer
				st.ZeroBitPlanes = info.ZeroBitPlanes
				p.zeroBP.SetValue(x, y, info.ZeroBitPlanes)
				if err := p.zeroBP.Encode(w, x, y, maxZeroBitPlanes+1); err != nil {
					return nil, err
				}
			} else {
				if included {
					w.WriteBit(1)
				} else {
					w.WriteBit(0)
					continue
				}
			}

			encodeNumPasses(w, info.NumPasses)
			lblockIncrement(w, st, info.NumPasses, len(info.Data))
			bits := st.Lblock + floorLog2(info.NumPasses)
			w.WriteBits(uint32(len(info.Data)), bits)
		}
	}
	w.Flush()
	return buf.Bytes(), nil
}

// DecodePacketHeader is the symmetric read side of EncodePacketHeader. It
// returns, per codeblock position, whether the codeblock is included in
// this layer, its total accumulated data length for this packet, its pass
// count, and (on first inclusion) its zero-bitplane count.
func DecodePacketHeader(p *Precinct, layer int, r *bio.Reader) ([]CodeBlockInfo, error) {
	out := make([]CodeBlockInfo, p.Width*p.Height)
	emptyBit, err := r.ReadBit()
	if err != nil {
		return nil, fmt.Errorf("t2: reading empty-packet bit: %w", err)
	}
	if emptyBit == 0 {
		return out, nil
	}

	bitReader := func() (int, error) { return r.ReadBit() }
	tagDecI := NewDecoder(p.inclusion)
	tagDecZ := NewDecoder(p.zeroBP)

	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			st := p.state(x, y)
			included := false

			if !st.Included {
				value, err := tagDecI.Decode(x, y, layer+1, bitReader)
				if err != nil {
					return nil, err
				}
				included = value <= layer
				if !included {
					continue
				}
				st.Included = true
				st.FirstLayer = value
				zbp, err := tagDecZ.Decode(x, y, maxZeroBitPlanes+1, bitReader)
				if err != nil {
					return nil, err
				}
				st.ZeroBitPlanes = zbp
				out[y*p.Width+x].ZeroBitPlanes = zbp
			} else {
				bit, err := r.ReadBit()
				if err != nil {
					return nil, err
				}
				included = bit == 1
				if !included {
					continue
				}
			}

			numPasses, err := decodeNumPasses(r)
			if err != nil {
				return nil, err
			}
			if err := decodeLblockIncrement(r, st); err != nil {
				return nil, err
			}
			bits := st.Lblock + floorLog2(numPasses)
			length, err := r.ReadBits(bits)
			if err != nil {
				return nil, err
			}
			out[y*p.Width+x].NumPasses = numPasses
			out[y*p.Width+x].ZeroBitPlanes = st.ZeroBitPlanes
			// length itself is returned via the caller-visible struct field
			// below, named Data to keep the public shape symmetric with
			// encode's input; callers read exactly this many bytes next.
			out[y*p.Width+x].Data = make([]byte, length)
		}
	}
	return out, nil
}

// floorLog2 returns floor(log2(n)) for n >= 1.
func floorLog2(n int) int {
	b := 0
	for n > 1 {
		n >>= 1
		b++
	}
	return b
}

// encodeNumPasses writes the coding-pass-count prefix code (ISO/IEC
// 15444-1 Table B.4): 1 pass in 1 bit ("0"), 2 in 2 bits ("10"), 3..5 in a
// 2-bit tag ("11") plus 2 value bits, 6..36 in a 4-bit tag ("1111") plus 5
// value bits, otherwise a 9-bit tag ("111111111") plus 7 value bits. Each
// tag extends the previous one by its own escape value (2-bit value 3,
// then 5-bit value 31), matching decodeNumPasses's nested reads exactly.
func encodeNumPasses(w *bio.Writer, n int) {
	switch {
	case n == 1:
		w.WriteBit(0)
	case n == 2:
		w.WriteBit(1)
		w.WriteBit(0)
	case n <= 5:
		w.WriteBit(1)
		w.WriteBit(1)
		w.WriteBits(uint32(n-3), 2)
	case n <= 36:
		w.WriteBit(1)
		w.WriteBit(1)
		w.WriteBits(3, 2)
		w.WriteBits(uint32(n-6), 5)
	default:
		w.WriteBit(1)
		w.WriteBit(1)
		w.WriteBits(3, 2)
		w.WriteBits(31, 5)
		w.WriteBits(uint32(n-37), 7)
	}
}

func decodeNumPasses(r *bio.Reader) (int, error) {
	bit, err := r.ReadBit()
	if err != nil {
		return 0, err
	}
	if bit == 0 {
		return 1, nil
	}
	bit, err = r.ReadBit()
	if err != nil {
		return 0, err
	}
	if bit == 0 {
		return 2, nil
	}
	v2, err := r.ReadBits(2)
	if err != nil {
		return 0, err
	}
	if v2 != 3 {
		return 3 + int(v2), nil
	}
	v5, err := r.ReadBits(5)
	if err != nil {
		return 0, err
	}
	if v5 != 31 {
		return 6 + int(v5), nil
	}
	v7, err := r.ReadBits(7)
	if err != nil {
		return 0, err
	}
	return 37 + int(v7), nil
}

// lblockIncrement writes the comma-code increment to st.Lblock needed so
// that st.Lblock + floorLog2(numPasses) bits can hold dataLen, then applies
// the increment.
func lblockIncrement(w *bio.Writer, st *CodeBlockState, numPasses, dataLen int) {
	needed := bitsFor(dataLen)
	avail := st.Lblock + floorLog2(numPasses)
	inc := 0
	for avail < needed {
		avail++
		inc++
	}
	for i := 0; i < inc; i++ {
		w.WriteBit(1)
	}
	w.WriteBit(0)
	st.Lblock += inc
}

func decodeLblockIncrement(r *bio.Reader, st *CodeBlockState) error {
	inc := 0
	for {
		bit, err := r.ReadBit()
		if err != nil {
			return err
		}
		if bit == 0 {
			break
		}
		inc++
	}
	st.Lblock += inc
	return nil
}

// bitsFor returns the number of bits needed to represent n (n==0 needs 0
// bits, since a zero-length segment only happens for an all-zero
// codeblock which never reaches this path with numPasses>0).
func bitsFor(n int) int {
	b := 0
	for (1 << uint(b)) <= n {
		b++
	}
	return b
}
