package mfs3

import "fmt"

// ErrMultipleBlankPages means more than one page in the volume lacked the
// page-header magic; exactly one (fully erased) page is permitted.
type ErrMultipleBlankPages struct{}

func (ErrMultipleBlankPages) Error() string {
	return "multiple blank pages found in MFS volume"
}

// ErrDataPageOrderingViolation means a data page's first_chunk did not
// match its expected position in first-chunk order.
type ErrDataPageOrderingViolation struct {
	Position  int
	Got, Want uint32
}

func (err *ErrDataPageOrderingViolation) Error() string {
	return fmt.Sprintf("data page %d: first_chunk = 0x%x, want 0x%x", err.Position, err.Got, err.Want)
}

// ErrSystemChunkOutOfRange means a system page chunk's derived index was
// not less than N_sys.
type ErrSystemChunkOutOfRange struct {
	Index, NSys uint32
}

func (err *ErrSystemChunkOutOfRange) Error() string {
	return fmt.Sprintf("system chunk index 0x%x >= N_sys 0x%x", err.Index, err.NSys)
}

// ErrDuplicateDataChunk means a data chunk's derived index was already
// present in the chunk map.
type ErrDuplicateDataChunk struct {
	Index uint32
}

func (err *ErrDuplicateDataChunk) Error() string {
	return fmt.Sprintf("duplicate data chunk index 0x%x", err.Index)
}

// ErrChunkChecksumFailed means a system chunk's stored CRC did not match
// the recomputed CRC over payload||LE16(derived index).
type ErrChunkChecksumFailed struct {
	Index        uint32
	Stored, Calc uint16
}

func (err *ErrChunkChecksumFailed) Error() string {
	return fmt.Sprintf("chunk 0x%x: checksum 0x%04x != computed 0x%04x", err.Index, err.Stored, err.Calc)
}

// ErrBadVolumeMagic means chunk 0 of the assembled system area did not
// carry the volume-header magic.
type ErrBadVolumeMagic struct {
	Got uint32
}

func (err *ErrBadVolumeMagic) Error() string {
	return fmt.Sprintf("bad volume header magic 0x%08x", err.Got)
}

// ErrNoFile means a FAT inode head was the sentinel 0x0000 ("no file").
type ErrNoFile struct {
	Index uint16
}

func (err *ErrNoFile) Error() string {
	return fmt.Sprintf("no file at inode %d", err.Index)
}

// ErrEmptyFile means a FAT inode head was the sentinel 0xFFFF
// ("empty file").
type ErrEmptyFile struct {
	Index uint16
}

func (err *ErrEmptyFile) Error() string {
	return fmt.Sprintf("empty file at inode %d", err.Index)
}

// ErrInodeOutOfRange means an inode head value was below the file count F,
// or the requested inode index lies beyond the end of the FAT.
type ErrInodeOutOfRange struct {
	Head, FileCount uint16
}

func (err *ErrInodeOutOfRange) Error() string {
	return fmt.Sprintf("inode 0x%x out of range (file count 0x%x)", err.Head, err.FileCount)
}

// ErrMalformedDirectory means a directory file's size was not of the form
// 52 + 24*k.
type ErrMalformedDirectory struct {
	Size int
}

func (err *ErrMalformedDirectory) Error() string {
	return fmt.Sprintf("malformed directory: size %d is not 52 + 24*k", err.Size)
}

// ErrBadDirectoryFlags means a directory security section's flags did not
// satisfy bits[20,32) == encryption<<1.
type ErrBadDirectoryFlags struct {
	Flags uint32
}

func (err *ErrBadDirectoryFlags) Error() string {
	return fmt.Sprintf("bad directory security flags 0x%08x", err.Flags)
}

// ErrBadNonce means a directory security section's nonce violated the
// anti-replay/encryption contract (non-zero when both are unset).
type ErrBadNonce struct {
	Nonce [16]byte
}

func (err *ErrBadNonce) Error() string {
	return fmt.Sprintf("bad nonce %x: expected all-zero", err.Nonce)
}
