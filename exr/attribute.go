package exr

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Attribute is a typed, named metadata entry in a Header. Every concrete
// value type the registry knows about (box2i, chlist, compression, ...)
// implements this interface; unknown types round-trip through unknownValue.
type Attribute interface {
	// TypeName returns the on-disk type tag, e.g. "box2i" or "chlist".
	TypeName() string
	// WriteValue writes the on-disk payload (not including the name/type/size
	// header) for the given file version.
	WriteValue(w io.Writer, version uint32) error
	// ReadValue consumes exactly size bytes from r and populates the value.
	ReadValue(r io.Reader, size int32, version uint32) error
	// CopyValueFrom assigns this attribute's value from another of the same
	// concrete type. It must return a *Error{Kind: KindTypeMismatch} if the
	// types differ.
	CopyValueFrom(other Attribute) error
	// Equal compares (typeName, payload) byte-exact value equality.
	Equal(other Attribute) bool
}

// Factory produces a zero-valued Attribute of a registered type.
type Factory func() Attribute

// Registry is an owned, per-Header/Codestream table of attribute-type
// factories. Library initialization must never mutate process-global state,
// so each Header carries its own registry seeded with the built-in types at
// construction (see NewRegistry) and may have user types added later.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry pre-populated with the built-in attribute
// types described in §4.1/§6.2.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	registerBuiltinTypes(r)
	return r
}

// RegisterType installs a factory for typeName, overwriting any previous
// registration (the same pattern a caller would use to add a private
// extension attribute type).
func (r *Registry) RegisterType(typeName string, f Factory) {
	r.factories[typeName] = f
}

// NewAttribute returns a fresh value for typeName. Unregistered types are
// not an error here: the caller (header parsing) falls back to an
// unknownValue that preserves the opaque payload so unrecognized attributes
// still round-trip exactly.
func (r *Registry) NewAttribute(typeName string) Attribute {
	if f, ok := r.factories[typeName]; ok {
		return f()
	}
	return &unknownValue{typeName: typeName}
}

// Known reports whether typeName has a registered factory.
func (r *Registry) Known(typeName string) bool {
	_, ok := r.factories[typeName]
	return ok
}

// --- wire-level name/type/size framing (§4.1) ---

const maxAttrNameLen = 255

func writeNulString(w io.Writer, s string) error {
	if len(s)+1 > maxAttrNameLen {
		return newErr(KindBadHeader, "name %q exceeds %d bytes including NUL", s, maxAttrNameLen)
	}
	if _, err := io.WriteString(w, s); err != nil {
		return wrapErr(KindIO, err, "write string")
	}
	_, err := w.Write([]byte{0})
	if err != nil {
		return wrapErr(KindIO, err, "write NUL terminator")
	}
	return nil
}

func readNulString(r io.Reader, maxLen int) (string, error) {
	buf := make([]byte, 0, 32)
	one := make([]byte, 1)
	for {
		if _, err := io.ReadFull(r, one); err != nil {
			return "", wrapErr(KindIO, err, "read NUL-terminated string")
		}
		if one[0] == 0 {
			return string(buf), nil
		}
		buf = append(buf, one[0])
		if len(buf) >= maxLen {
			return "", newErr(KindFormat, "NUL-terminated string exceeds %d bytes", maxLen)
		}
	}
}

// writeAttributeEntry writes one header attribute entry: name, type, size,
// payload.
func writeAttributeEntry(w io.Writer, name string, attr Attribute, version uint32) error {
	if err := writeNulString(w, name); err != nil {
		return err
	}
	if err := writeNulString(w, attr.TypeName()); err != nil {
		return err
	}

	// The payload must be measured before the size field is written, so
	// buffer it. Header attributes are small (a handful of bytes to a few
	// KB for previews), so this is not a hot path worth avoiding an
	// allocation for.
	var buf countingBuffer
	if err := attr.WriteValue(&buf, version); err != nil {
		return err
	}
	var sizeBytes [4]byte
	binary.LittleEndian.PutUint32(sizeBytes[:], uint32(int32(len(buf.data))))
	if _, err := w.Write(sizeBytes[:]); err != nil {
		return wrapErr(KindIO, err, "write attribute size")
	}
	if _, err := w.Write(buf.data); err != nil {
		return wrapErr(KindIO, err, "write attribute payload")
	}
	return nil
}

// readAttributeEntry reads one (name, attribute) pair, or returns
// (ok=false) if the terminating zero byte was encountered instead of a name.
func readAttributeEntry(r io.Reader, reg *Registry, version uint32) (name string, attr Attribute, ok bool, err error) {
	one := make([]byte, 1)
	if _, err = io.ReadFull(r, one); err != nil {
		return "", nil, false, wrapErr(KindIO, err, "read header entry")
	}
	if one[0] == 0 {
		return "", nil, false, nil
	}
	// Reconstruct the name: we already consumed its first byte.
	rest, err := readNulString(r, maxAttrNameLen)
	if err != nil {
		return "", nil, false, err
	}
	name = string(one) + rest
	if len(name)+1 > maxAttrNameLen {
		return "", nil, false, newErr(KindBadHeader, "attribute name %q too long", name)
	}

	typeName, err := readNulString(r, maxAttrNameLen)
	if err != nil {
		return "", nil, false, err
	}

	var sizeBytes [4]byte
	if _, err = io.ReadFull(r, sizeBytes[:]); err != nil {
		return "", nil, false, wrapErr(KindIO, err, "read attribute size")
	}
	size := int32(binary.LittleEndian.Uint32(sizeBytes[:]))
	if size < 0 {
		return "", nil, false, newErr(KindFormat, "attribute %q has negative size %d", name, size)
	}

	attr = reg.NewAttribute(typeName)
	if u, isUnknown := attr.(*unknownValue); isUnknown {
		u.typeName = typeName
	}
	limited := io.LimitReader(r, int64(size))
	if err = attr.ReadValue(limited, size, version); err != nil {
		return "", nil, false, err
	}
	// Drain any bytes the concrete type chose not to consume, so framing
	// stays correct even for attributes whose ReadValue undercounts.
	if _, derr := io.Copy(io.Discard, limited); derr != nil {
		return "", nil, false, wrapErr(KindIO, derr, "drain attribute %q payload", name)
	}
	return name, attr, true, nil
}

// countingBuffer is a tiny io.Writer that just appends, used to measure an
// attribute's encoded size before writing the size field.
type countingBuffer struct{ data []byte }

func (b *countingBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

// unknownValue preserves an attribute of unregistered type as an opaque
// byte blob tagged with its original type name, per §4.1's round-trip
// requirement.
type unknownValue struct {
	typeName string
	payload  []byte
}

func (u *unknownValue) TypeName() string { return u.typeName }

func (u *unknownValue) WriteValue(w io.Writer, _ uint32) error {
	_, err := w.Write(u.payload)
	if err != nil {
		return wrapErr(KindIO, err, "write unknown attribute %q", u.typeName)
	}
	return nil
}

func (u *unknownValue) ReadValue(r io.Reader, size int32, _ uint32) error {
	u.payload = make([]byte, size)
	if _, err := io.ReadFull(r, u.payload); err != nil {
		return wrapErr(KindIO, err, "read unknown attribute %q", u.typeName)
	}
	return nil
}

func (u *unknownValue) CopyValueFrom(other Attribute) error {
	o, ok := other.(*unknownValue)
	if !ok || o.typeName != u.typeName {
		return &Error{Kind: KindTypeMismatch, Reason: fmt.Sprintf("cannot copy %T into unknown value %q", other, u.typeName)}
	}
	u.payload = append([]byte(nil), o.payload...)
	return nil
}

func (u *unknownValue) Equal(other Attribute) bool {
	o, ok := other.(*unknownValue)
	if !ok {
		return false
	}
	if u.typeName != o.typeName || len(u.payload) != len(o.payload) {
		return false
	}
	for i := range u.payload {
		if u.payload[i] != o.payload[i] {
			return false
		}
	}
	return true
}
