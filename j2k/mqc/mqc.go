// Package mqc implements the MQ arithmetic coder used by the EBCOT
// bit-plane coding passes (ISO/IEC 15444-1 Annex C). Both the encoder and
// decoder are table-driven over the same 47-state probability estimation
// machine and are multiplication-free, matching the reference algorithm.
package mqc

// State tables for the probability estimation state machine (Table C.2).
var qeTable = [47]uint32{
	0x5601, 0x3401, 0x1801, 0x0AC1, 0x0521, 0x0221, 0x5601, 0x5401,
	0x4801, 0x3801, 0x3001, 0x2401, 0x1C01, 0x1601, 0x5601, 0x5401,
	0x5101, 0x4801, 0x3801, 0x3401, 0x3001, 0x2801, 0x2401, 0x2201,
	0x1C01, 0x1801, 0x1601, 0x1401, 0x1201, 0x1101, 0x0AC1, 0x09C1,
	0x08A1, 0x0521, 0x0441, 0x02A1, 0x0221, 0x0141, 0x0111, 0x0085,
	0x0049, 0x0025, 0x0015, 0x0009, 0x0005, 0x0001, 0x5601,
}

var nmpsTable = [47]uint8{
	1, 2, 3, 4, 5, 38, 7, 8,
	9, 10, 11, 12, 13, 29, 15, 16,
	17, 18, 19, 20, 21, 22, 23, 24,
	25, 26, 27, 28, 29, 30, 31, 32,
	33, 34, 35, 36, 37, 38, 39, 40,
	41, 42, 43, 44, 45, 45, 46,
}

var nlpsTable = [47]uint8{
	1, 6, 9, 12, 29, 33, 6, 14,
	14, 14, 17, 18, 20, 21, 14, 14,
	15, 16, 17, 18, 19, 19, 20, 21,
	22, 23, 24, 25, 26, 27, 28, 29,
	30, 31, 32, 33, 34, 35, 36, 37,
	38, 39, 40, 41, 42, 43, 46,
}

var switchTable = [47]uint8{
	1, 0, 0, 0, 0, 0, 1, 0,
	0, 0, 0, 0, 0, 0, 1, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0,
}

// NumContexts is the fixed context count used by the codeblock coders
// (§4.8): 17 neighbourhood contexts (9 zero-coding, 5 sign, 3 refinement)
// plus the uniform and run-length contexts.
const NumContexts = 19

// Decoder implements the MQ arithmetic decoder over a fixed byte buffer.
// Contexts are addressed by small integer IDs shared with the caller's
// context-label scheme (§4.8).
type Decoder struct {
	data    []byte
	bp      int
	dataLen int

	a, c uint32
	ct   int
	eos  int

	contexts []uint8
}

func withSentinel(data []byte) []byte {
	out := make([]byte, len(data)+2)
	copy(out, data)
	out[len(data)] = 0xFF
	out[len(data)+1] = 0xFF
	return out
}

// NewDecoder creates an MQ decoder over data with numContexts independent
// context states, all initialized to state 0 / MPS=0.
func NewDecoder(data []byte, numContexts int) *Decoder {
	d := &Decoder{
		data:     withSentinel(data),
		dataLen:  len(data),
		a:        0x8000,
		contexts: make([]uint8, numContexts),
	}
	d.init()
	return d
}

// Contexts returns a copy of the current context states.
func (d *Decoder) Contexts() []uint8 {
	return append([]uint8(nil), d.contexts...)
}

// init implements INITDEC (C.3.5).
func (d *Decoder) init() {
	if d.dataLen == 0 {
		d.c = 0xFF << 16
	} else {
		d.c = uint32(d.data[0]) << 16
	}
	d.bytein()
	d.c <<= 7
	d.ct -= 7
	d.a = 0x8000
}

// Decode returns the next decoded bit for contextID, per C.3.2.
func (d *Decoder) Decode(contextID int) int {
	cx := &d.contexts[contextID]
	state := *cx & 0x7F
	mps := int(*cx >> 7)
	qe := qeTable[state]

	d.a -= qe

	var bit int
	if (d.c >> 16) < qe {
		if d.a < qe {
			d.a = qe
			bit = mps
			*cx = nmpsTable[state] | uint8(mps)<<7
		} else {
			d.a = qe
			bit = 1 - mps
			newMPS := mps
			if switchTable[state] == 1 {
				newMPS = 1 - mps
			}
			*cx = nlpsTable[state] | uint8(newMPS)<<7
		}
		d.renorm()
		return bit
	}

	d.c -= qe << 16
	if d.a&0x8000 != 0 {
		return mps
	}
	if d.a < qe {
		bit = 1 - mps
		newMPS := mps
		if switchTable[state] == 1 {
			newMPS = 1 - mps
		}
		*cx = nlpsTable[state] | uint8(newMPS)<<7
	} else {
		bit = mps
		*cx = nmpsTable[state] | uint8(mps)<<7
	}
	d.renorm()
	return bit
}

func (d *Decoder) renorm() {
	for d.a < 0x8000 {
		if d.ct == 0 {
			d.bytein()
		}
		d.a <<= 1
		d.c <<= 1
		d.ct--
	}
}

// bytein reads the next byte, honoring the 0xFF stuffing rule that keeps
// the marker space free of false codestream markers.
func (d *Decoder) bytein() {
	next := d.data[d.bp+1]
	if d.data[d.bp] == 0xFF {
		if next > 0x8F {
			d.c += 0xFF00
			d.ct = 8
			d.eos++
		} else {
			d.bp++
			d.c += uint32(next) << 9
			d.ct = 7
		}
	} else {
		d.bp++
		d.c += uint32(next) << 8
		d.ct = 8
	}
}

// Encoder implements the MQ arithmetic encoder, the mirror of Decoder.
type Encoder struct {
	buffer []byte
	start  int
	bp     int

	a, c uint32
	ct   int

	contexts []uint8
}

// NewEncoder creates an MQ encoder with numContexts independent contexts.
func NewEncoder(numContexts int) *Encoder {
	return &Encoder{
		buffer:   make([]byte, 1, 1024),
		start:    1,
		a:        0x8000,
		ct:       12,
		contexts: make([]uint8, numContexts),
	}
}

// Encode codes bit under contextID, per C.3.2 (encoder direction).
func (e *Encoder) Encode(bit int, contextID int) {
	cx := &e.contexts[contextID]
	state := *cx & 0x7F
	mps := int(*cx >> 7)
	qe := qeTable[state]

	if bit == mps {
		e.a -= qe
		if e.a&0x8000 == 0 {
			if e.a < qe {
				e.a = qe
			} else {
				e.c += qe
			}
			*cx = nmpsTable[state] | uint8(mps)<<7
			e.renorm()
		} else {
			e.c += qe
		}
		return
	}

	e.a -= qe
	if e.a < qe {
		e.c += qe
	} else {
		e.a = qe
	}
	newMPS := mps
	if switchTable[state] == 1 {
		newMPS = 1 - mps
	}
	*cx = nlpsTable[state] | uint8(newMPS)<<7
	e.renorm()
}

func (e *Encoder) renorm() {
	for e.a < 0x8000 {
		e.a <<= 1
		e.c <<= 1
		e.ct--
		if e.ct == 0 {
			e.byteout()
		}
	}
}

func (e *Encoder) ensure(idx int) {
	if idx < len(e.buffer) {
		return
	}
	needed := idx + 1
	if needed <= cap(e.buffer) {
		e.buffer = e.buffer[:needed]
		return
	}
	newCap := cap(e.buffer) * 2
	if newCap < needed {
		newCap = needed
	}
	newBuf := make([]byte, needed, newCap)
	copy(newBuf, e.buffer)
	e.buffer = newBuf
}

func (e *Encoder) byteout() {
	if e.bp >= len(e.buffer) {
		e.ensure(e.bp)
	}
	if e.buffer[e.bp] == 0xFF {
		e.bp++
		e.ensure(e.bp)
		e.buffer[e.bp] = byte(e.c >> 20)
		e.c &= 0xFFFFF
		e.ct = 7
		return
	}
	if e.c&0x8000000 == 0 {
		e.bp++
		e.ensure(e.bp)
		e.buffer[e.bp] = byte(e.c >> 19)
		e.c &= 0x7FFFF
		e.ct = 8
		return
	}
	e.buffer[e.bp]++
	if e.buffer[e.bp] == 0xFF {
		e.c &= 0x7FFFFFF
		e.bp++
		e.ensure(e.bp)
		e.buffer[e.bp] = byte(e.c >> 20)
		e.c &= 0xFFFFF
		e.ct = 7
		return
	}
	e.bp++
	e.ensure(e.bp)
	e.buffer[e.bp] = byte(e.c >> 19)
	e.c &= 0x7FFFF
	e.ct = 8
}

// Flush terminates the coding pass and returns the encoded bytes.
func (e *Encoder) Flush() []byte {
	tempC := e.c + e.a
	e.c |= 0xFFFF
	if e.c >= tempC {
		e.c -= 0x8000
	}
	e.c <<= uint(e.ct)
	e.byteout()
	e.c <<= uint(e.ct)
	e.byteout()
	if e.buffer[e.bp] != 0xFF {
		e.bp++
	}
	if e.bp < e.start {
		return []byte{}
	}
	return e.buffer[e.start:e.bp]
}

// Bytes returns the current output without finalizing the pass, for
// incremental rate-distortion tracking across layers.
func (e *Encoder) Bytes() []byte {
	if e.bp < e.start {
		return []byte{}
	}
	return e.buffer[e.start:e.bp]
}

