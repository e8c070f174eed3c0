package compression

const (
	rleMinRunLength = 3
	rleMaxRunLength = 127
)

// rleCompressor is byte-level run-length coding directly over the raw
// interleaved bytes (§4.4). Each run is framed as a signed count byte: a
// positive count n means "the following byte repeats n+1 times"; a negative
// count -n means "the following n bytes are a literal run".
type rleCompressor struct{}

func (c *rleCompressor) Kind() Kind         { return RLE }
func (c *rleCompressor) LinesPerBlock() int { return 1 }

func (c *rleCompressor) Compress(_ []Channel, _, _ int, raw []byte) ([]byte, error) {
	var out []byte
	n := len(raw)
	i := 0
	for i < n {
		runLen := 1
		for i+runLen < n && runLen < rleMaxRunLength+1 && raw[i+runLen] == raw[i] {
			runLen++
		}
		if runLen >= rleMinRunLength {
			out = append(out, byte(int8(runLen-1)), raw[i])
			i += runLen
			continue
		}
		// Gather a literal run: bytes up to the next run of >= minRunLength.
		litStart := i
		i++
		for i < n {
			// Stop the literal run if a qualifying repeat run starts here.
			repeat := 1
			for i+repeat < n && repeat < rleMinRunLength && raw[i+repeat] == raw[i] {
				repeat++
			}
			if repeat >= rleMinRunLength {
				break
			}
			i++
			if i-litStart >= rleMaxRunLength {
				break
			}
		}
		litLen := i - litStart
		out = append(out, byte(int8(-litLen)))
		out = append(out, raw[litStart:i]...)
	}
	if len(out) >= len(raw) {
		return nil, ErrWouldGrow
	}
	return out, nil
}

func (c *rleCompressor) Uncompress(_ []Channel, _, _ int, compressed []byte, expectedLen int) ([]byte, error) {
	out := make([]byte, 0, expectedLen)
	i := 0
	for i < len(compressed) {
		count := int(int8(compressed[i]))
		i++
		if count >= 0 {
			if i >= len(compressed) {
				return nil, errDataCorrupt("rle: truncated run")
			}
			b := compressed[i]
			i++
			for k := 0; k <= count; k++ {
				out = append(out, b)
			}
		} else {
			litLen := -count
			if i+litLen > len(compressed) {
				return nil, errDataCorrupt("rle: truncated literal run")
			}
			out = append(out, compressed[i:i+litLen]...)
			i += litLen
		}
	}
	if len(out) != expectedLen {
		return nil, errDataCorrupt("rle: expected %d bytes, got %d", expectedLen, len(out))
	}
	return out, nil
}
