package compression

// noneCompressor stores chunks uncompressed; used directly when the header
// declares compression=NONE, and as the fallback every other compressor
// reaches for when it cannot shrink a block.
type noneCompressor struct{}

func (c *noneCompressor) Kind() Kind          { return None }
func (c *noneCompressor) LinesPerBlock() int  { return 1 }

func (c *noneCompressor) Compress(_ []Channel, _, _ int, raw []byte) ([]byte, error) {
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func (c *noneCompressor) Uncompress(_ []Channel, _, _ int, compressed []byte, expectedLen int) ([]byte, error) {
	if len(compressed) != expectedLen {
		return nil, errDataCorrupt("none: expected %d bytes, got %d", expectedLen, len(compressed))
	}
	out := make([]byte, len(compressed))
	copy(out, compressed)
	return out, nil
}
