package mfs3

import (
	"encoding/binary"
	"fmt"

	"github.com/fiedka/go-me-fs/pkg/byteview"
)

const (
	volumeHeaderSize = 14
	systemAreaUnit    = 64 // bytes per system chunk slot in the assembled area

	fatEntrySize = 2

	inodeNoFile    = 0x0000
	inodeEmptyFile = 0xFFFF
	inodeTailMax   = 66
)

// assembleSystemArea concatenates chunks 0..N_sys-1, in index order, into
// one contiguous byte slice: the "system area" that the volume header and
// FAT are read from.
func (vol *Volume) assembleSystemArea() error {
	area := make([]byte, vol.NSys*systemAreaUnit)
	for i := uint32(0); i < vol.NSys; i++ {
		payload, ok := vol.Chunks[i]
		if !ok {
			continue // a missing system chunk leaves its slot zero-filled
		}
		copy(area[i*systemAreaUnit:], payload[:])
	}
	vol.SystemArea = area
	return nil
}

// parseVolumeHeaderAndFAT decodes the 14-byte volume header from the
// start of the system area and the inode FAT that immediately follows it
// (Phase D).
func (vol *Volume) parseVolumeHeaderAndFAT() error {
	v := byteview.New(vol.SystemArea)

	var hdr VolumeHeader
	if err := v.Struct(0, &hdr); err != nil {
		return fmt.Errorf("mfs3: volume header: %w", err)
	}
	if hdr.Magic != volumeHeaderMagic {
		return &ErrBadVolumeMagic{Got: hdr.Magic}
	}
	vol.Header = hdr

	nDataChunks := uint32(0)
	if vol.NSys > 0 {
		// total chunks in the volume minus the system chunks already
		// consumed; derived from the highest observed chunk index.
		var maxIdx uint32
		for idx := range vol.Chunks {
			if idx >= vol.NSys && idx+1 > maxIdx {
				maxIdx = idx + 1
			}
		}
		nDataChunks = maxIdx - vol.NSys
	}

	fatLen := int(hdr.FileCount) + int(nDataChunks)
	fat := make([]uint16, fatLen)
	for i := 0; i < fatLen; i++ {
		off := volumeHeaderSize + i*fatEntrySize
		if off+fatEntrySize > len(vol.SystemArea) {
			break
		}
		fat[i] = binary.LittleEndian.Uint16(vol.SystemArea[off : off+fatEntrySize])
	}
	vol.FAT = fat

	return nil
}

// ReadFile reconstructs the byte contents of the file whose inode index
// is fi by walking the FAT chain starting at FAT[fi] (Phase E).
//
// FAT[fi] gives the head data-chunk slot (0 means no file, 0xFFFF means
// an explicitly empty file). Each slot h maps to chunk map index
// h + N_sys - F. FAT[h] gives the next link in the chain: a value in
// (0, inodeTailMax] is a partial tail — that many bytes of the current
// chunk are appended and the chain ends; any other nonzero value is the
// next slot to follow, consuming the chunk's full payload.
func (vol *Volume) ReadFile(fi uint16) ([]byte, error) {
	if int(fi) >= len(vol.FAT) {
		return nil, &ErrInodeOutOfRange{Head: fi, FileCount: vol.Header.FileCount}
	}

	head := vol.FAT[fi]
	switch head {
	case inodeNoFile:
		return nil, &ErrNoFile{Index: fi}
	case inodeEmptyFile:
		return nil, &ErrEmptyFile{Index: fi}
	}
	if head < vol.Header.FileCount {
		return nil, &ErrInodeOutOfRange{Head: head, FileCount: vol.Header.FileCount}
	}

	var out []byte
	slot := head
	maxSteps := len(vol.FAT) + 1

	for steps := 0; steps < maxSteps; steps++ {
		chunkIdx := vol.NSys + uint32(slot) - uint32(vol.Header.FileCount)
		payload, ok := vol.Chunks[chunkIdx]
		if !ok {
			break
		}

		if int(slot) >= len(vol.FAT) {
			out = append(out, payload[:]...)
			break
		}
		next := vol.FAT[slot]

		if next > 0 && next <= inodeTailMax {
			n := int(next)
			if n > payloadSize {
				n = payloadSize
			}
			out = append(out, payload[:n]...)
			break
		}

		out = append(out, payload[:]...)

		if next == 0 || next == slot {
			break
		}
		slot = next
	}

	return out, nil
}
