package compression

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
)

// zipCompressor implements ZIP (lines=16) and ZIPS (lines=1): a byte-level
// delta predictor followed by an even/odd byte-plane reorder, then deflate
// (§4.4). The predictor and reorder both make the subsequent deflate pass
// more effective on typically-smooth image data.
type zipCompressor struct{ lines int }

func (c *zipCompressor) Kind() Kind {
	if c.lines == 1 {
		return ZIPS
	}
	return ZIP
}
func (c *zipCompressor) LinesPerBlock() int { return c.lines }

func zipPredictAndReorder(raw []byte) []byte {
	n := len(raw)
	diff := make([]byte, n)
	if n > 0 {
		diff[0] = raw[0]
		prev := raw[0]
		for i := 1; i < n; i++ {
			d := int(raw[i]) - int(prev) + 128
			diff[i] = byte(d)
			prev = raw[i]
		}
	}
	out := make([]byte, n)
	half := (n + 1) / 2
	for i := 0; i < half; i++ {
		out[i] = diff[i*2]
	}
	for i := 0; half+i < n; i++ {
		out[half+i] = diff[i*2+1]
	}
	return out
}

func zipUnreorderAndUnpredict(reordered []byte) []byte {
	n := len(reordered)
	diff := make([]byte, n)
	half := (n + 1) / 2
	for i := 0; i < half; i++ {
		diff[i*2] = reordered[i]
	}
	for i := 0; half+i < n; i++ {
		diff[i*2+1] = reordered[half+i]
	}
	raw := make([]byte, n)
	if n > 0 {
		raw[0] = diff[0]
		prev := diff[0]
		for i := 1; i < n; i++ {
			v := int(diff[i]) - 128 + int(prev)
			raw[i] = byte(v)
			prev = raw[i]
		}
	}
	return raw
}

func (c *zipCompressor) Compress(_ []Channel, _, _ int, raw []byte) ([]byte, error) {
	reordered := zipPredictAndReorder(raw)
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(reordered); err != nil {
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

func (c *zipCompressor) Uncompress(_ []Channel, _, _ int, compressed []byte, expectedLen int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errDataCorrupt("zip: %v", err)
	}
	defer zr.Close()
	reordered, err := io.ReadAll(zr)
	if err != nil {
		return nil, errDataCorrupt("zip: %v", err)
	}
	if len(reordered) != expectedLen {
		return nil, errDataCorrupt("zip: expected %d bytes, got %d", expectedLen, len(reordered))
	}
	return zipUnreorderAndUnpredict(reordered), nil
}
