package exr

import "io"

// WriteTo serializes the header's attributes in insertion order, terminated
// by the single zero byte described in §4.1. It does not write the file's
// magic/version prefix; callers compose that separately (see the top-level
// file writer).
func (h *Header) WriteTo(w io.Writer, version uint32) error {
	for _, name := range h.order {
		if err := writeAttributeEntry(w, name, h.byName[name], version); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte{0})
	if err != nil {
		return wrapErr(KindIO, err, "write header terminator")
	}
	return nil
}

// ReadHeaderFrom parses one header's attribute stream (through its
// terminating zero byte) using reg to resolve attribute types. The returned
// Header owns reg, so a caller that wants to extend the type table before
// parsing should build the Registry first and pass it as reg.
func ReadHeaderFrom(r io.Reader, reg *Registry, version uint32) (*Header, error) {
	h := &Header{reg: reg, byName: make(map[string]Attribute)}
	for {
		name, attr, ok, err := readAttributeEntry(r, reg, version)
		if err != nil {
			return nil, err
		}
		if !ok {
			return h, nil
		}
		h.Set(name, attr)
	}
}
