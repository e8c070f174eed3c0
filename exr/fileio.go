package exr

import "github.com/cocosip/go-hdrimage/exr/stream"

// WriteSinglePartPrologue writes the 8-byte magic/version prefix followed by
// header, for a single-part (non-multi-part) file. The tiled/non-image-part
// flag bits are derived from the header's type/tiles attributes.
func WriteSinglePartPrologue(w stream.Writer, header *Header) error {
	partType, hasType := header.Type()
	flags := FileFlags{Version: 2}
	if hasType && isTiledPartType(partType) {
		flags.SingleTile = true
	}
	if hasType && isDeepPartType(partType) {
		flags.NonImagePart = true
	}
	if err := writeMagicAndVersion(w, flags); err != nil {
		return err
	}
	return header.WriteTo(w, uint32(flags.Version))
}

// ReadSinglePartPrologue reads the magic/version prefix and the single
// header that follows it (non-multi-part files only; multi-part files use
// ReadMultiPartPrologue instead).
func ReadSinglePartPrologue(r stream.Reader, reg *Registry) (FileFlags, *Header, error) {
	flags, err := readMagicAndVersion(r)
	if err != nil {
		return FileFlags{}, nil, err
	}
	if flags.MultiPart {
		return FileFlags{}, nil, newErr(KindFormat, "file has multipart flag set; use ReadMultiPartPrologue")
	}
	h, err := ReadHeaderFrom(r, reg, uint32(flags.Version))
	if err != nil {
		return FileFlags{}, nil, err
	}
	if err := h.Validate(); err != nil {
		return FileFlags{}, nil, err
	}
	return flags, h, nil
}

// WriteMagicAndVersion exposes the raw 8-byte prefix writer for callers
// composing a multi-part prologue themselves (see MultiPartWriter).
func WriteMagicAndVersion(w stream.Writer, flags FileFlags) error {
	return writeMagicAndVersion(w, flags)
}

// ReadMagicAndVersion exposes the raw 8-byte prefix reader.
func ReadMagicAndVersion(r stream.Reader) (FileFlags, error) {
	return readMagicAndVersion(r)
}

const shortNameLimit = 31

// needsLongNames reports whether any attribute or channel name in header
// exceeds the short-name limit, requiring the long-names flag bit (§6.1).
func needsLongNames(header *Header) bool {
	for _, name := range header.Names() {
		if len(name) > shortNameLimit {
			return true
		}
	}
	if chans, ok := header.Channels(); ok {
		for _, ch := range chans.Channels {
			if len(ch.Name) > shortNameLimit {
				return true
			}
		}
	}
	return false
}

// WriteMultiPartPrologue writes the magic/version prefix (multipart +
// long-names flags set as needed) followed by every part's header in order,
// then the single zero byte that terminates the part list (§4.6). It does
// not write the chunk indices; callers reserve those per-part afterward so
// the tables land back-to-back immediately following the header list.
func WriteMultiPartPrologue(w stream.Writer, headers []*Header) error {
	flags := FileFlags{Version: 2, MultiPart: true}
	for _, h := range headers {
		if needsLongNames(h) {
			flags.LongNames = true
		}
	}
	if err := writeMagicAndVersion(w, flags); err != nil {
		return err
	}
	for _, h := range headers {
		if _, ok := h.byName["chunkCount"]; !ok {
			n, err := ChunkIndexSize(h)
			if err != nil {
				return err
			}
			h.Set("chunkCount", &IntAttr{Value: int32(n)})
		}
		if err := h.WriteTo(w, uint32(flags.Version)); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte{0})
	if err != nil {
		return wrapErr(KindIO, err, "write part-list terminator")
	}
	return nil
}

// ReadMultiPartPrologue reads the magic/version prefix and every part header
// up to the part-list terminator.
func ReadMultiPartPrologue(r stream.Reader, reg *Registry) (FileFlags, []*Header, error) {
	flags, err := readMagicAndVersion(r)
	if err != nil {
		return FileFlags{}, nil, err
	}
	if !flags.MultiPart {
		return FileFlags{}, nil, newErr(KindFormat, "file does not have multipart flag set; use ReadSinglePartPrologue")
	}
	var headers []*Header
	for {
		name, attr, ok, err := readAttributeEntry(r, reg, uint32(flags.Version))
		if err != nil {
			return FileFlags{}, nil, err
		}
		if !ok {
			if len(headers) == 0 {
				return FileFlags{}, nil, newErr(KindFormat, "multipart file has zero parts")
			}
			return flags, headers, nil
		}
		h := &Header{reg: reg, byName: make(map[string]Attribute)}
		h.Set(name, attr)
		for {
			name2, attr2, ok2, err2 := readAttributeEntry(r, reg, uint32(flags.Version))
			if err2 != nil {
				return FileFlags{}, nil, err2
			}
			if !ok2 {
				break
			}
			h.Set(name2, attr2)
		}
		if err := h.Validate(); err != nil {
			return FileFlags{}, nil, err
		}
		headers = append(headers, h)
	}
}
