package exr

import (
	"io"

	"github.com/cocosip/go-hdrimage/exr/stream"
)

// File is a thin façade over the magic/header/chunk-index layers for the
// common single-part case, so a caller doesn't have to sequence
// WriteSinglePartPrologue, ChunkIndexSize and ReserveChunkIndex by hand
// (mirrors the teacher's codec.Registry one-call open/create pattern).
type File struct {
	Header  *Header
	Offsets []uint64 // populated by Open; Create leaves it nil (see Index.Offsets)
	Index   *ChunkIndexWriter
	Flags   FileFlags
}

// Create writes the magic/version prefix, the header, and reserves the
// chunk-index table, returning a File ready to hand to a pixelio writer
// (pixelio constructors accept the stream + header directly; File exists
// for callers that want the offsets/index handles without re-deriving
// them).
func Create(w stream.Writer, header *Header) (*File, error) {
	if err := header.Validate(); err != nil {
		return nil, err
	}
	if err := WriteSinglePartPrologue(w, header); err != nil {
		return nil, err
	}
	n, err := ChunkIndexSize(header)
	if err != nil {
		return nil, err
	}
	idx, err := ReserveChunkIndex(w, n)
	if err != nil {
		return nil, err
	}
	partType, hasType := header.Type()
	flags := FileFlags{Version: 2}
	if hasType && isTiledPartType(partType) {
		flags.SingleTile = true
	}
	if hasType && isDeepPartType(partType) {
		flags.NonImagePart = true
	}
	return &File{Header: header, Index: idx, Flags: flags}, nil
}

// Open reads the magic/version prefix, the header, and the chunk-index
// table for a single-part file (multi-part files use pixelio.MultiPartReader
// instead, which parses all N tables itself).
func Open(r stream.Reader, reg *Registry) (*File, error) {
	flags, header, err := ReadSinglePartPrologue(r, reg)
	if err != nil {
		return nil, err
	}
	n, err := ChunkIndexSize(header)
	if err != nil {
		return nil, err
	}
	offsets, err := ReadChunkIndex(r, n)
	if err != nil {
		return nil, err
	}
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, wrapErr(KindIO, err, "locate current position")
	}
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, wrapErr(KindIO, err, "locate file size")
	}
	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return nil, wrapErr(KindIO, err, "restore position after size probe")
	}
	if err := ValidateOffsets(offsets, size); err != nil {
		return nil, err
	}
	return &File{Header: header, Offsets: offsets, Flags: flags}, nil
}
