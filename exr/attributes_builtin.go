package exr

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

func registerBuiltinTypes(r *Registry) {
	r.RegisterType("box2i", func() Attribute { return new(Box2iAttr) })
	r.RegisterType("box2f", func() Attribute { return new(Box2fAttr) })
	r.RegisterType("chlist", func() Attribute { return new(ChannelListAttr) })
	r.RegisterType("compression", func() Attribute { return new(CompressionAttr) })
	r.RegisterType("lineOrder", func() Attribute { return new(LineOrderAttr) })
	r.RegisterType("tiledesc", func() Attribute { return new(TileDescAttr) })
	r.RegisterType("chromaticities", func() Attribute { return new(ChromaticitiesAttr) })
	r.RegisterType("timecode", func() Attribute { return new(TimeCodeAttr) })
	r.RegisterType("keycode", func() Attribute { return new(KeyCodeAttr) })
	r.RegisterType("v2i", func() Attribute { return &VecAttr{kind: vecV2i} })
	r.RegisterType("v2f", func() Attribute { return &VecAttr{kind: vecV2f} })
	r.RegisterType("v2d", func() Attribute { return &VecAttr{kind: vecV2d} })
	r.RegisterType("v3i", func() Attribute { return &VecAttr{kind: vecV3i} })
	r.RegisterType("v3f", func() Attribute { return &VecAttr{kind: vecV3f} })
	r.RegisterType("v3d", func() Attribute { return &VecAttr{kind: vecV3d} })
	r.RegisterType("m33f", func() Attribute { return &MatrixAttr{n: 3, double: false} })
	r.RegisterType("m44f", func() Attribute { return &MatrixAttr{n: 4, double: false} })
	r.RegisterType("m33d", func() Attribute { return &MatrixAttr{n: 3, double: true} })
	r.RegisterType("m44d", func() Attribute { return &MatrixAttr{n: 4, double: true} })
	r.RegisterType("string", func() Attribute { return new(StringAttr) })
	r.RegisterType("stringvector", func() Attribute { return new(StringVectorAttr) })
	r.RegisterType("rational", func() Attribute { return new(RationalAttr) })
	r.RegisterType("floatvector", func() Attribute { return new(FloatVectorAttr) })
	r.RegisterType("bytes", func() Attribute { return new(BytesAttr) })
	r.RegisterType("preview", func() Attribute { return new(PreviewAttr) })
	r.RegisterType("deepImageState", func() Attribute { return new(DeepImageStateAttr) })
	r.RegisterType("envmap", func() Attribute { return new(EnvmapAttr) })
	r.RegisterType("int", func() Attribute { return new(IntAttr) })
	r.RegisterType("float", func() Attribute { return new(FloatAttr) })
	r.RegisterType("double", func() Attribute { return new(DoubleAttr) })
}

func readFull(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, wrapErr(KindIO, err, "read %d bytes", n)
	}
	return b, nil
}

func checkSize(got int32, want int, typeName string) error {
	if int(got) != want {
		return newErr(KindFormat, "%s attribute: expected %d bytes, got %d", typeName, want, got)
	}
	return nil
}

func writeI32(w io.Writer, v int32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	_, err := w.Write(b[:])
	return err
}

func writeU32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeF32(w io.Writer, v float32) error { return writeU32(w, math.Float32bits(v)) }

func writeF64(w io.Writer, v float64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	_, err := w.Write(b[:])
	return err
}

// --- box2i / box2f ---

type Box2iAttr struct{ Value Box2i }

func (a *Box2iAttr) TypeName() string { return "box2i" }
func (a *Box2iAttr) WriteValue(w io.Writer, _ uint32) error {
	for _, v := range []int32{a.Value.MinX, a.Value.MinY, a.Value.MaxX, a.Value.MaxY} {
		if err := writeI32(w, v); err != nil {
			return wrapErr(KindIO, err, "write box2i")
		}
	}
	return nil
}
func (a *Box2iAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	if err := checkSize(size, 16, "box2i"); err != nil {
		return err
	}
	b, err := readFull(r, 16)
	if err != nil {
		return err
	}
	a.Value.MinX = int32(binary.LittleEndian.Uint32(b[0:]))
	a.Value.MinY = int32(binary.LittleEndian.Uint32(b[4:]))
	a.Value.MaxX = int32(binary.LittleEndian.Uint32(b[8:]))
	a.Value.MaxY = int32(binary.LittleEndian.Uint32(b[12:]))
	return nil
}
func (a *Box2iAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*Box2iAttr)
	if !ok {
		return typeMismatch(a, other)
	}
	a.Value = o.Value
	return nil
}
func (a *Box2iAttr) Equal(other Attribute) bool {
	o, ok := other.(*Box2iAttr)
	return ok && a.Value == o.Value
}

type Box2fAttr struct{ Value Box2f }

func (a *Box2fAttr) TypeName() string { return "box2f" }
func (a *Box2fAttr) WriteValue(w io.Writer, _ uint32) error {
	for _, v := range []float32{a.Value.MinX, a.Value.MinY, a.Value.MaxX, a.Value.MaxY} {
		if err := writeF32(w, v); err != nil {
			return wrapErr(KindIO, err, "write box2f")
		}
	}
	return nil
}
func (a *Box2fAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	if err := checkSize(size, 16, "box2f"); err != nil {
		return err
	}
	b, err := readFull(r, 16)
	if err != nil {
		return err
	}
	a.Value.MinX = math.Float32frombits(binary.LittleEndian.Uint32(b[0:]))
	a.Value.MinY = math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	a.Value.MaxX = math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))
	a.Value.MaxY = math.Float32frombits(binary.LittleEndian.Uint32(b[12:]))
	return nil
}
func (a *Box2fAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*Box2fAttr)
	if !ok {
		return typeMismatch(a, other)
	}
	a.Value = o.Value
	return nil
}
func (a *Box2fAttr) Equal(other Attribute) bool {
	o, ok := other.(*Box2fAttr)
	return ok && a.Value == o.Value
}

// --- chlist ---

// ChannelEntry is one entry of a ChannelList.
type ChannelEntry struct {
	Name     string
	Type     PixelType
	PLinear  bool
	Sampling SamplingRate
}

type ChannelListAttr struct{ Channels []ChannelEntry }

func (a *ChannelListAttr) TypeName() string { return "chlist" }

func (a *ChannelListAttr) WriteValue(w io.Writer, _ uint32) error {
	for _, ch := range sortedChannels(a.Channels) {
		if err := writeNulString(w, ch.Name); err != nil {
			return err
		}
		if err := writeI32(w, int32(ch.Type)); err != nil {
			return wrapErr(KindIO, err, "write channel pixel type")
		}
		pl := byte(0)
		if ch.PLinear {
			pl = 1
		}
		if _, err := w.Write([]byte{pl, 0, 0, 0}); err != nil {
			return wrapErr(KindIO, err, "write channel flags")
		}
		if err := writeI32(w, ch.Sampling.X); err != nil {
			return wrapErr(KindIO, err, "write xSampling")
		}
		if err := writeI32(w, ch.Sampling.Y); err != nil {
			return wrapErr(KindIO, err, "write ySampling")
		}
	}
	_, err := w.Write([]byte{0})
	if err != nil {
		return wrapErr(KindIO, err, "write chlist terminator")
	}
	return nil
}

func (a *ChannelListAttr) ReadValue(r io.Reader, _ int32, _ uint32) error {
	a.Channels = nil
	for {
		one := make([]byte, 1)
		if _, err := io.ReadFull(r, one); err != nil {
			return wrapErr(KindIO, err, "read chlist entry")
		}
		if one[0] == 0 {
			return nil
		}
		rest, err := readNulString(r, maxAttrNameLen)
		if err != nil {
			return err
		}
		name := string(one) + rest
		fields, err := readFull(r, 16)
		if err != nil {
			return err
		}
		entry := ChannelEntry{
			Name:    name,
			Type:    PixelType(int32(binary.LittleEndian.Uint32(fields[0:]))),
			PLinear: fields[4] != 0,
			Sampling: SamplingRate{
				X: int32(binary.LittleEndian.Uint32(fields[8:])),
				Y: int32(binary.LittleEndian.Uint32(fields[12:])),
			},
		}
		a.Channels = append(a.Channels, entry)
	}
}

func (a *ChannelListAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*ChannelListAttr)
	if !ok {
		return typeMismatch(a, other)
	}
	a.Channels = append([]ChannelEntry(nil), o.Channels...)
	return nil
}

func (a *ChannelListAttr) Equal(other Attribute) bool {
	o, ok := other.(*ChannelListAttr)
	if !ok || len(a.Channels) != len(o.Channels) {
		return false
	}
	for i := range a.Channels {
		if a.Channels[i] != o.Channels[i] {
			return false
		}
	}
	return true
}

func sortedChannels(chs []ChannelEntry) []ChannelEntry {
	out := append([]ChannelEntry(nil), chs...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Name < out[j-1].Name; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// --- compression / lineOrder (single byte enums) ---

type CompressionAttr struct {
	Value   Compression
	Unknown bool
	Raw     byte
}

func (a *CompressionAttr) TypeName() string { return "compression" }
func (a *CompressionAttr) WriteValue(w io.Writer, _ uint32) error {
	_, err := w.Write([]byte{byte(a.Value)})
	return err
}
func (a *CompressionAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	if err := checkSize(size, 1, "compression"); err != nil {
		return err
	}
	b, err := readFull(r, 1)
	if err != nil {
		return err
	}
	a.Raw = b[0]
	if b[0] > byte(CompressionDWAB) {
		a.Unknown = true
		return nil
	}
	a.Value = Compression(b[0])
	return nil
}
func (a *CompressionAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*CompressionAttr)
	if !ok {
		return typeMismatch(a, other)
	}
	*a = *o
	return nil
}
func (a *CompressionAttr) Equal(other Attribute) bool {
	o, ok := other.(*CompressionAttr)
	return ok && *a == *o
}

type LineOrderAttr struct {
	Value   LineOrder
	Unknown bool
	Raw     byte
}

func (a *LineOrderAttr) TypeName() string { return "lineOrder" }
func (a *LineOrderAttr) WriteValue(w io.Writer, _ uint32) error {
	_, err := w.Write([]byte{byte(a.Value)})
	return err
}
func (a *LineOrderAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	if err := checkSize(size, 1, "lineOrder"); err != nil {
		return err
	}
	b, err := readFull(r, 1)
	if err != nil {
		return err
	}
	a.Raw = b[0]
	if b[0] > byte(RandomY) {
		a.Unknown = true
		return nil
	}
	a.Value = LineOrder(b[0])
	return nil
}
func (a *LineOrderAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*LineOrderAttr)
	if !ok {
		return typeMismatch(a, other)
	}
	*a = *o
	return nil
}
func (a *LineOrderAttr) Equal(other Attribute) bool {
	o, ok := other.(*LineOrderAttr)
	return ok && *a == *o
}

// --- tiledesc ---

type TileDescAttr struct{ Value TileDescription }

func (a *TileDescAttr) TypeName() string { return "tiledesc" }
func (a *TileDescAttr) WriteValue(w io.Writer, _ uint32) error {
	if err := writeU32(w, a.Value.XSize); err != nil {
		return wrapErr(KindIO, err, "write tile xSize")
	}
	if err := writeU32(w, a.Value.YSize); err != nil {
		return wrapErr(KindIO, err, "write tile ySize")
	}
	mode := byte(a.Value.Mode) | byte(a.Value.Rounding)<<4
	_, err := w.Write([]byte{mode})
	return err
}
func (a *TileDescAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	if err := checkSize(size, 9, "tiledesc"); err != nil {
		return err
	}
	b, err := readFull(r, 9)
	if err != nil {
		return err
	}
	a.Value.XSize = binary.LittleEndian.Uint32(b[0:])
	a.Value.YSize = binary.LittleEndian.Uint32(b[4:])
	a.Value.Mode = LevelMode(b[8] & 0x0F)
	a.Value.Rounding = LevelRounding((b[8] >> 4) & 0x0F)
	return nil
}
func (a *TileDescAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*TileDescAttr)
	if !ok {
		return typeMismatch(a, other)
	}
	a.Value = o.Value
	return nil
}
func (a *TileDescAttr) Equal(other Attribute) bool {
	o, ok := other.(*TileDescAttr)
	return ok && a.Value == o.Value
}

// --- chromaticities ---

type ChromaticitiesAttr struct {
	RedX, RedY, GreenX, GreenY, BlueX, BlueY, WhiteX, WhiteY float32
}

func (a *ChromaticitiesAttr) TypeName() string { return "chromaticities" }
func (a *ChromaticitiesAttr) WriteValue(w io.Writer, _ uint32) error {
	for _, v := range []float32{a.RedX, a.RedY, a.GreenX, a.GreenY, a.BlueX, a.BlueY, a.WhiteX, a.WhiteY} {
		if err := writeF32(w, v); err != nil {
			return wrapErr(KindIO, err, "write chromaticities")
		}
	}
	return nil
}
func (a *ChromaticitiesAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	if err := checkSize(size, 32, "chromaticities"); err != nil {
		return err
	}
	b, err := readFull(r, 32)
	if err != nil {
		return err
	}
	vals := [8]*float32{&a.RedX, &a.RedY, &a.GreenX, &a.GreenY, &a.BlueX, &a.BlueY, &a.WhiteX, &a.WhiteY}
	for i, v := range vals {
		*v = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return nil
}
func (a *ChromaticitiesAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*ChromaticitiesAttr)
	if !ok {
		return typeMismatch(a, other)
	}
	*a = *o
	return nil
}
func (a *ChromaticitiesAttr) Equal(other Attribute) bool {
	o, ok := other.(*ChromaticitiesAttr)
	return ok && *a == *o
}

// --- timecode / keycode ---

type TimeCodeAttr struct{ TimeAndFlags, UserData uint32 }

func (a *TimeCodeAttr) TypeName() string { return "timecode" }
func (a *TimeCodeAttr) WriteValue(w io.Writer, _ uint32) error {
	if err := writeU32(w, a.TimeAndFlags); err != nil {
		return wrapErr(KindIO, err, "write timecode")
	}
	return writeU32(w, a.UserData)
}
func (a *TimeCodeAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	if err := checkSize(size, 8, "timecode"); err != nil {
		return err
	}
	b, err := readFull(r, 8)
	if err != nil {
		return err
	}
	a.TimeAndFlags = binary.LittleEndian.Uint32(b[0:])
	a.UserData = binary.LittleEndian.Uint32(b[4:])
	return nil
}
func (a *TimeCodeAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*TimeCodeAttr)
	if !ok {
		return typeMismatch(a, other)
	}
	*a = *o
	return nil
}
func (a *TimeCodeAttr) Equal(other Attribute) bool {
	o, ok := other.(*TimeCodeAttr)
	return ok && *a == *o
}

type KeyCodeAttr struct{ Fields [7]int32 }

func (a *KeyCodeAttr) TypeName() string { return "keycode" }
func (a *KeyCodeAttr) WriteValue(w io.Writer, _ uint32) error {
	for _, v := range a.Fields {
		if err := writeI32(w, v); err != nil {
			return wrapErr(KindIO, err, "write keycode")
		}
	}
	return nil
}
func (a *KeyCodeAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	if err := checkSize(size, 28, "keycode"); err != nil {
		return err
	}
	b, err := readFull(r, 28)
	if err != nil {
		return err
	}
	for i := range a.Fields {
		a.Fields[i] = int32(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return nil
}
func (a *KeyCodeAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*KeyCodeAttr)
	if !ok {
		return typeMismatch(a, other)
	}
	*a = *o
	return nil
}
func (a *KeyCodeAttr) Equal(other Attribute) bool {
	o, ok := other.(*KeyCodeAttr)
	return ok && *a == *o
}

// --- v2i/v2f/v2d/v3i/v3f/v3d ---

type vecKind int

const (
	vecV2i vecKind = iota
	vecV2f
	vecV2d
	vecV3i
	vecV3f
	vecV3d
)

// VecAttr holds a 2- or 3-component integer/float/double vector value.
// Exactly one of I, F, D is populated depending on kind.
type VecAttr struct {
	kind vecKind
	I    []int32
	F    []float32
	D    []float64
}

func (a *VecAttr) dims() int {
	switch a.kind {
	case vecV2i, vecV2f, vecV2d:
		return 2
	default:
		return 3
	}
}

func (a *VecAttr) TypeName() string {
	switch a.kind {
	case vecV2i:
		return "v2i"
	case vecV2f:
		return "v2f"
	case vecV2d:
		return "v2d"
	case vecV3i:
		return "v3i"
	case vecV3f:
		return "v3f"
	default:
		return "v3d"
	}
}

func (a *VecAttr) WriteValue(w io.Writer, _ uint32) error {
	n := a.dims()
	switch a.kind {
	case vecV2i, vecV3i:
		for i := 0; i < n; i++ {
			if err := writeI32(w, a.I[i]); err != nil {
				return wrapErr(KindIO, err, "write %s", a.TypeName())
			}
		}
	case vecV2f, vecV3f:
		for i := 0; i < n; i++ {
			if err := writeF32(w, a.F[i]); err != nil {
				return wrapErr(KindIO, err, "write %s", a.TypeName())
			}
		}
	case vecV2d, vecV3d:
		for i := 0; i < n; i++ {
			if err := writeF64(w, a.D[i]); err != nil {
				return wrapErr(KindIO, err, "write %s", a.TypeName())
			}
		}
	}
	return nil
}

func (a *VecAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	n := a.dims()
	switch a.kind {
	case vecV2i, vecV3i:
		if err := checkSize(size, n*4, a.TypeName()); err != nil {
			return err
		}
		b, err := readFull(r, n*4)
		if err != nil {
			return err
		}
		a.I = make([]int32, n)
		for i := 0; i < n; i++ {
			a.I[i] = int32(binary.LittleEndian.Uint32(b[i*4:]))
		}
	case vecV2f, vecV3f:
		if err := checkSize(size, n*4, a.TypeName()); err != nil {
			return err
		}
		b, err := readFull(r, n*4)
		if err != nil {
			return err
		}
		a.F = make([]float32, n)
		for i := 0; i < n; i++ {
			a.F[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		}
	case vecV2d, vecV3d:
		if err := checkSize(size, n*8, a.TypeName()); err != nil {
			return err
		}
		b, err := readFull(r, n*8)
		if err != nil {
			return err
		}
		a.D = make([]float64, n)
		for i := 0; i < n; i++ {
			a.D[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
		}
	}
	return nil
}

func (a *VecAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*VecAttr)
	if !ok || o.kind != a.kind {
		return typeMismatch(a, other)
	}
	a.I = append([]int32(nil), o.I...)
	a.F = append([]float32(nil), o.F...)
	a.D = append([]float64(nil), o.D...)
	return nil
}

func (a *VecAttr) Equal(other Attribute) bool {
	o, ok := other.(*VecAttr)
	if !ok || o.kind != a.kind {
		return false
	}
	return slicesEqualI32(a.I, o.I) && slicesEqualF32(a.F, o.F) && slicesEqualF64(a.D, o.D)
}

func slicesEqualI32(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
func slicesEqualF32(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
func slicesEqualF64(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --- m33f/m44f/m33d/m44d ---

// MatrixAttr holds a row-major n×n matrix of float32 or float64 elements.
type MatrixAttr struct {
	n      int
	double bool
	F      []float32
	D      []float64
}

func (a *MatrixAttr) TypeName() string {
	suffix := "f"
	if a.double {
		suffix = "d"
	}
	return fmt.Sprintf("m%d%d%s", a.n, a.n, suffix)
}

func (a *MatrixAttr) WriteValue(w io.Writer, _ uint32) error {
	count := a.n * a.n
	if a.double {
		for i := 0; i < count; i++ {
			if err := writeF64(w, a.D[i]); err != nil {
				return wrapErr(KindIO, err, "write %s", a.TypeName())
			}
		}
		return nil
	}
	for i := 0; i < count; i++ {
		if err := writeF32(w, a.F[i]); err != nil {
			return wrapErr(KindIO, err, "write %s", a.TypeName())
		}
	}
	return nil
}

func (a *MatrixAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	count := a.n * a.n
	if a.double {
		if err := checkSize(size, count*8, a.TypeName()); err != nil {
			return err
		}
		b, err := readFull(r, count*8)
		if err != nil {
			return err
		}
		a.D = make([]float64, count)
		for i := 0; i < count; i++ {
			a.D[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
		}
		return nil
	}
	if err := checkSize(size, count*4, a.TypeName()); err != nil {
		return err
	}
	b, err := readFull(r, count*4)
	if err != nil {
		return err
	}
	a.F = make([]float32, count)
	for i := 0; i < count; i++ {
		a.F[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return nil
}

func (a *MatrixAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*MatrixAttr)
	if !ok || o.n != a.n || o.double != a.double {
		return typeMismatch(a, other)
	}
	a.F = append([]float32(nil), o.F...)
	a.D = append([]float64(nil), o.D...)
	return nil
}

func (a *MatrixAttr) Equal(other Attribute) bool {
	o, ok := other.(*MatrixAttr)
	if !ok || o.n != a.n || o.double != a.double {
		return false
	}
	return slicesEqualF32(a.F, o.F) && slicesEqualF64(a.D, o.D)
}

// --- string / stringvector ---

type StringAttr struct{ Value string }

func (a *StringAttr) TypeName() string { return "string" }
func (a *StringAttr) WriteValue(w io.Writer, _ uint32) error {
	_, err := io.WriteString(w, a.Value)
	if err != nil {
		return wrapErr(KindIO, err, "write string")
	}
	return nil
}
func (a *StringAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	b, err := readFull(r, int(size))
	if err != nil {
		return err
	}
	a.Value = string(b)
	return nil
}
func (a *StringAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*StringAttr)
	if !ok {
		return typeMismatch(a, other)
	}
	a.Value = o.Value
	return nil
}
func (a *StringAttr) Equal(other Attribute) bool {
	o, ok := other.(*StringAttr)
	return ok && a.Value == o.Value
}

type StringVectorAttr struct{ Values []string }

func (a *StringVectorAttr) TypeName() string { return "stringvector" }
func (a *StringVectorAttr) WriteValue(w io.Writer, _ uint32) error {
	for _, s := range a.Values {
		if err := writeI32(w, int32(len(s))); err != nil {
			return wrapErr(KindIO, err, "write stringvector length")
		}
		if _, err := io.WriteString(w, s); err != nil {
			return wrapErr(KindIO, err, "write stringvector entry")
		}
	}
	return nil
}
func (a *StringVectorAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	limited := io.LimitReader(r, int64(size))
	a.Values = nil
	for {
		lenBytes := make([]byte, 4)
		n, err := io.ReadFull(limited, lenBytes)
		if n == 0 && err == io.EOF {
			return nil
		}
		if err != nil {
			return wrapErr(KindIO, err, "read stringvector entry length")
		}
		l := int32(binary.LittleEndian.Uint32(lenBytes))
		if l < 0 {
			return newErr(KindFormat, "stringvector: negative entry length %d", l)
		}
		s, err := readFull(limited, int(l))
		if err != nil {
			return err
		}
		a.Values = append(a.Values, string(s))
	}
}
func (a *StringVectorAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*StringVectorAttr)
	if !ok {
		return typeMismatch(a, other)
	}
	a.Values = append([]string(nil), o.Values...)
	return nil
}
func (a *StringVectorAttr) Equal(other Attribute) bool {
	o, ok := other.(*StringVectorAttr)
	if !ok || len(a.Values) != len(o.Values) {
		return false
	}
	for i := range a.Values {
		if a.Values[i] != o.Values[i] {
			return false
		}
	}
	return true
}

// --- rational / floatvector ---

type RationalAttr struct {
	Numerator   int32
	Denominator uint32
}

func (a *RationalAttr) TypeName() string { return "rational" }
func (a *RationalAttr) WriteValue(w io.Writer, _ uint32) error {
	if err := writeI32(w, a.Numerator); err != nil {
		return wrapErr(KindIO, err, "write rational numerator")
	}
	return writeU32(w, a.Denominator)
}
func (a *RationalAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	if err := checkSize(size, 8, "rational"); err != nil {
		return err
	}
	b, err := readFull(r, 8)
	if err != nil {
		return err
	}
	a.Numerator = int32(binary.LittleEndian.Uint32(b[0:]))
	a.Denominator = binary.LittleEndian.Uint32(b[4:])
	return nil
}
func (a *RationalAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*RationalAttr)
	if !ok {
		return typeMismatch(a, other)
	}
	*a = *o
	return nil
}
func (a *RationalAttr) Equal(other Attribute) bool {
	o, ok := other.(*RationalAttr)
	return ok && *a == *o
}

type FloatVectorAttr struct{ Values []float32 }

func (a *FloatVectorAttr) TypeName() string { return "floatvector" }
func (a *FloatVectorAttr) WriteValue(w io.Writer, _ uint32) error {
	for _, v := range a.Values {
		if err := writeF32(w, v); err != nil {
			return wrapErr(KindIO, err, "write floatvector entry")
		}
	}
	return nil
}
func (a *FloatVectorAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	if size%4 != 0 {
		return newErr(KindFormat, "floatvector size %d not a multiple of 4", size)
	}
	n := int(size) / 4
	b, err := readFull(r, int(size))
	if err != nil {
		return err
	}
	a.Values = make([]float32, n)
	for i := 0; i < n; i++ {
		a.Values[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return nil
}
func (a *FloatVectorAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*FloatVectorAttr)
	if !ok {
		return typeMismatch(a, other)
	}
	a.Values = append([]float32(nil), o.Values...)
	return nil
}
func (a *FloatVectorAttr) Equal(other Attribute) bool {
	o, ok := other.(*FloatVectorAttr)
	return ok && slicesEqualF32(a.Values, o.Values)
}

// --- bytes (raw blob with optional type hint) ---

type BytesAttr struct {
	TypeHint string
	Payload  []byte
}

func (a *BytesAttr) TypeName() string { return "bytes" }
func (a *BytesAttr) WriteValue(w io.Writer, _ uint32) error {
	_, err := w.Write(a.Payload)
	if err != nil {
		return wrapErr(KindIO, err, "write bytes attribute")
	}
	return nil
}
func (a *BytesAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	b, err := readFull(r, int(size))
	if err != nil {
		return err
	}
	a.Payload = b
	return nil
}
func (a *BytesAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*BytesAttr)
	if !ok {
		return typeMismatch(a, other)
	}
	a.TypeHint = o.TypeHint
	a.Payload = append([]byte(nil), o.Payload...)
	return nil
}
func (a *BytesAttr) Equal(other Attribute) bool {
	o, ok := other.(*BytesAttr)
	if !ok || len(a.Payload) != len(o.Payload) {
		return false
	}
	for i := range a.Payload {
		if a.Payload[i] != o.Payload[i] {
			return false
		}
	}
	return true
}

// --- preview ---

type PreviewAttr struct {
	Width, Height uint32
	Pixels        []byte // Width*Height*4 (RGBA)
}

func (a *PreviewAttr) TypeName() string { return "preview" }
func (a *PreviewAttr) WriteValue(w io.Writer, _ uint32) error {
	if err := writeU32(w, a.Width); err != nil {
		return wrapErr(KindIO, err, "write preview width")
	}
	if err := writeU32(w, a.Height); err != nil {
		return wrapErr(KindIO, err, "write preview height")
	}
	_, err := w.Write(a.Pixels)
	if err != nil {
		return wrapErr(KindIO, err, "write preview pixels")
	}
	return nil
}
func (a *PreviewAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	if size < 8 {
		return newErr(KindFormat, "preview attribute too small (%d bytes)", size)
	}
	b, err := readFull(r, 8)
	if err != nil {
		return err
	}
	a.Width = binary.LittleEndian.Uint32(b[0:])
	a.Height = binary.LittleEndian.Uint32(b[4:])
	want := int(a.Width) * int(a.Height) * 4
	if int(size)-8 != want {
		return newErr(KindFormat, "preview %dx%d expects %d pixel bytes, attribute has %d", a.Width, a.Height, want, int(size)-8)
	}
	a.Pixels, err = readFull(r, want)
	return err
}
func (a *PreviewAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*PreviewAttr)
	if !ok {
		return typeMismatch(a, other)
	}
	a.Width, a.Height = o.Width, o.Height
	a.Pixels = append([]byte(nil), o.Pixels...)
	return nil
}
func (a *PreviewAttr) Equal(other Attribute) bool {
	o, ok := other.(*PreviewAttr)
	if !ok || a.Width != o.Width || a.Height != o.Height || len(a.Pixels) != len(o.Pixels) {
		return false
	}
	for i := range a.Pixels {
		if a.Pixels[i] != o.Pixels[i] {
			return false
		}
	}
	return true
}

// --- deepImageState / envmap (single-byte enums) ---

type DeepImageStateAttr struct {
	Value   uint8
	Unknown bool
}

func (a *DeepImageStateAttr) TypeName() string { return "deepImageState" }
func (a *DeepImageStateAttr) WriteValue(w io.Writer, _ uint32) error {
	_, err := w.Write([]byte{a.Value})
	return err
}
func (a *DeepImageStateAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	if err := checkSize(size, 1, "deepImageState"); err != nil {
		return err
	}
	b, err := readFull(r, 1)
	if err != nil {
		return err
	}
	a.Value = b[0]
	a.Unknown = b[0] > 2
	return nil
}
func (a *DeepImageStateAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*DeepImageStateAttr)
	if !ok {
		return typeMismatch(a, other)
	}
	*a = *o
	return nil
}
func (a *DeepImageStateAttr) Equal(other Attribute) bool {
	o, ok := other.(*DeepImageStateAttr)
	return ok && *a == *o
}

type EnvmapAttr struct {
	Value   uint8
	Unknown bool
}

func (a *EnvmapAttr) TypeName() string { return "envmap" }
func (a *EnvmapAttr) WriteValue(w io.Writer, _ uint32) error {
	_, err := w.Write([]byte{a.Value})
	return err
}
func (a *EnvmapAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	if err := checkSize(size, 1, "envmap"); err != nil {
		return err
	}
	b, err := readFull(r, 1)
	if err != nil {
		return err
	}
	a.Value = b[0]
	a.Unknown = b[0] > 1
	return nil
}
func (a *EnvmapAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*EnvmapAttr)
	if !ok {
		return typeMismatch(a, other)
	}
	*a = *o
	return nil
}
func (a *EnvmapAttr) Equal(other Attribute) bool {
	o, ok := other.(*EnvmapAttr)
	return ok && *a == *o
}

// --- int / float / double scalars ---

type IntAttr struct{ Value int32 }

func (a *IntAttr) TypeName() string { return "int" }
func (a *IntAttr) WriteValue(w io.Writer, _ uint32) error { return writeI32(w, a.Value) }
func (a *IntAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	if err := checkSize(size, 4, "int"); err != nil {
		return err
	}
	b, err := readFull(r, 4)
	if err != nil {
		return err
	}
	a.Value = int32(binary.LittleEndian.Uint32(b))
	return nil
}
func (a *IntAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*IntAttr)
	if !ok {
		return typeMismatch(a, other)
	}
	a.Value = o.Value
	return nil
}
func (a *IntAttr) Equal(other Attribute) bool {
	o, ok := other.(*IntAttr)
	return ok && a.Value == o.Value
}

type FloatAttr struct{ Value float32 }

func (a *FloatAttr) TypeName() string { return "float" }
func (a *FloatAttr) WriteValue(w io.Writer, _ uint32) error { return writeF32(w, a.Value) }
func (a *FloatAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	if err := checkSize(size, 4, "float"); err != nil {
		return err
	}
	b, err := readFull(r, 4)
	if err != nil {
		return err
	}
	a.Value = math.Float32frombits(binary.LittleEndian.Uint32(b))
	return nil
}
func (a *FloatAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*FloatAttr)
	if !ok {
		return typeMismatch(a, other)
	}
	a.Value = o.Value
	return nil
}
func (a *FloatAttr) Equal(other Attribute) bool {
	o, ok := other.(*FloatAttr)
	return ok && a.Value == o.Value
}

type DoubleAttr struct{ Value float64 }

func (a *DoubleAttr) TypeName() string { return "double" }
func (a *DoubleAttr) WriteValue(w io.Writer, _ uint32) error { return writeF64(w, a.Value) }
func (a *DoubleAttr) ReadValue(r io.Reader, size int32, _ uint32) error {
	if err := checkSize(size, 8, "double"); err != nil {
		return err
	}
	b, err := readFull(r, 8)
	if err != nil {
		return err
	}
	a.Value = math.Float64frombits(binary.LittleEndian.Uint64(b))
	return nil
}
func (a *DoubleAttr) CopyValueFrom(other Attribute) error {
	o, ok := other.(*DoubleAttr)
	if !ok {
		return typeMismatch(a, other)
	}
	a.Value = o.Value
	return nil
}
func (a *DoubleAttr) Equal(other Attribute) bool {
	o, ok := other.(*DoubleAttr)
	return ok && a.Value == o.Value
}

func typeMismatch(dst, src Attribute) error {
	return &Error{Kind: KindTypeMismatch, Reason: fmt.Sprintf("cannot copy %s into %s", src.TypeName(), dst.TypeName())}
}
