// Package mfs3 parses the Gen 3 (chunk-indexed, FAT-style) variant of
// the ME Flash File System: an 8 KiB-page, log-structured volume with
// CRC-protected chunks, CRC-derived system-chunk indexing, a FAT-like
// inode chain, and a hierarchical directory blob.
package mfs3

import (
	"fmt"
	"sort"

	"github.com/fiedka/go-me-fs/pkg/byteview"
	"github.com/fiedka/go-me-fs/pkg/crc"
)

const (
	pageSize       = 8192
	pageHeaderSize = 18
	pageMagic      = 0xAA557887

	chunkSize   = 66
	payloadSize = 64

	dataSlots  = 122 // 122*(1+chunkSize) + pageHeaderSize == pageSize exactly
	dataChunks = 122

	systemSlots = 121 // up to 121 two-byte slots at offset 18, chunk area at 18+242

	slotFree      = 0xFFFF
	slotEndOfList = 0x7FFF
	dataSlotFree  = 0xFF

	volumeHeaderMagic = 0x724F6201
)

// Gen2Heuristic reports whether the first 32-bit little-endian word of
// an MFS partition's bytes matches the Gen 2 dispatch heuristic
// (word & 0xFFF07800 == 0xFFF07800). The top-level orchestrator uses
// this to choose between the Gen 2 and Gen 3 parsers.
func Gen2Heuristic(data []byte) bool {
	v := byteview.New(data)
	word, err := v.U32(0)
	if err != nil {
		return false
	}
	return word&0xFFF07800 == 0xFFF07800
}

// PageHeader is the fixed 18-byte prefix of every MFS Gen 3 page. The
// exact field widths below (USN/EraseCount/NextErase/FirstChunk) are an
// engineering choice documented in DESIGN.md; only their combined 12-byte
// span and the page-size arithmetic are load-bearing.
type PageHeader struct {
	Magic      uint32
	USN        uint32
	EraseCount uint16
	NextErase  uint16
	FirstChunk uint32
	Checksum   uint8
	Reserved   uint8
}

// IsDataPage reports whether this header belongs to a data page
// (FirstChunk > 0) as opposed to a system page.
func (h PageHeader) IsDataPage() bool {
	return h.FirstChunk > 0
}

// page is an internal, classified page used during Phase A/B.
type page struct {
	Header PageHeader
	Offset int
	IsData bool
}

// chunkEntry pairs a derived index with its payload, produced during
// Phase B for both system and data pages.
type chunkEntry struct {
	Index   uint32
	Payload [payloadSize]byte
}

// parseState carries inputs and intermediate results through Phases A-F.
type parseState struct {
	v          byteview.View
	imageLen   int
	blankSeen  bool
	sysPages   []page
	dataPages  []page
}

// phaseAClassify walks the partition in 8 KiB strides, classifying each
// page as blank, system, or data (Phase A).
func phaseAClassify(data []byte) (*parseState, error) {
	v := byteview.New(data)
	st := &parseState{v: v, imageLen: len(data)}

	for offset := 0; offset+pageSize <= len(data); offset += pageSize {
		word, err := v.U32(offset)
		if err != nil {
			break
		}
		if word != pageMagic {
			if st.blankSeen {
				return nil, &ErrMultipleBlankPages{}
			}
			st.blankSeen = true
			continue
		}

		var hdr PageHeader
		if err := v.Struct(offset, &hdr); err != nil {
			return nil, fmt.Errorf("mfs3: page header @ 0x%x: %w", offset, err)
		}

		p := page{Header: hdr, Offset: offset, IsData: hdr.IsDataPage()}
		if p.IsData {
			st.dataPages = append(st.dataPages, p)
		} else {
			st.sysPages = append(st.sysPages, p)
		}
	}

	return st, nil
}

// phaseBSystemChunks extracts the chunks of a single system page,
// verifying each chunk's CRC against its CRC-derived logical index
// (Phase B, system-page branch).
func phaseBSystemChunks(v byteview.View, p page) ([]chunkEntry, error) {
	var entries []chunkEntry
	idx := uint16(0)

	slotBase := p.Offset + pageHeaderSize
	chunkBase := p.Offset + pageHeaderSize + systemSlots*2

	for pos := 0; pos < systemSlots; pos++ {
		slot, err := v.U16(slotBase + pos*2)
		if err != nil {
			return nil, fmt.Errorf("mfs3: system page @ 0x%x slot %d: %w", p.Offset, pos, err)
		}
		if slot == slotFree {
			continue
		}
		if slot == slotEndOfList {
			break
		}

		idx = crc.Idx(idx) ^ slot

		chunkOffset := chunkBase + pos*chunkSize
		payload, err := v.Bytes(chunkOffset, payloadSize)
		if err != nil {
			return nil, fmt.Errorf("mfs3: system chunk @ 0x%x: %w", chunkOffset, err)
		}
		storedCRC, err := v.U16(chunkOffset + payloadSize)
		if err != nil {
			return nil, fmt.Errorf("mfs3: system chunk crc @ 0x%x: %w", chunkOffset, err)
		}

		calc := crc.CRC16(append(append([]byte(nil), payload...), byte(idx), byte(idx>>8)))
		if calc != storedCRC {
			return nil, &ErrChunkChecksumFailed{Index: uint32(idx), Stored: storedCRC, Calc: calc}
		}

		var e chunkEntry
		e.Index = uint32(idx)
		copy(e.Payload[:], payload)
		entries = append(entries, e)
	}

	return entries, nil
}

// phaseBDataChunks extracts the chunks of a single data page (Phase B,
// data-page branch). Data chunks are not individually CRC-verified by
// this phase: their CRC covers payload||LE16(index) exactly like system
// chunks, but only system chunks are required to be checked here.
func phaseBDataChunks(v byteview.View, p page) ([]chunkEntry, error) {
	var entries []chunkEntry

	slotBase := p.Offset + pageHeaderSize
	chunkBase := p.Offset + pageHeaderSize + dataSlots

	for pos := 0; pos < dataSlots; pos++ {
		slot, err := v.U8(slotBase + pos)
		if err != nil {
			return nil, fmt.Errorf("mfs3: data page @ 0x%x slot %d: %w", p.Offset, pos, err)
		}
		if slot == dataSlotFree {
			continue
		}

		chunkOffset := chunkBase + pos*chunkSize
		payload, err := v.Bytes(chunkOffset, payloadSize)
		if err != nil {
			return nil, fmt.Errorf("mfs3: data chunk @ 0x%x: %w", chunkOffset, err)
		}

		var e chunkEntry
		e.Index = p.Header.FirstChunk + uint32(pos)
		copy(e.Payload[:], payload)
		entries = append(entries, e)
	}

	return entries, nil
}

// Volume is a fully parsed MFS Gen 3 volume.
type Volume struct {
	NSys        uint32
	Chunks      map[uint32][payloadSize]byte
	SystemArea  []byte
	Header      VolumeHeader
	FAT         []uint16
	Root        *DirEntryNode
}

// VolumeHeader is the 14-byte volume header occupying the start of the
// assembled system area (chunk index 0).
type VolumeHeader struct {
	Magic      uint32
	Version    uint32
	TotalBytes uint32
	FileCount  uint16
}

// Parse decodes an MFS Gen 3 volume from data (a partition's clipped
// bytes). It performs Phases A-D (page classification through volume
// header/FAT) and Phase F (directory walk rooted at FAT index 8);
// individual files are reconstructed on demand via Volume.ReadFile.
func Parse(data []byte) (*Volume, error) {
	st, err := phaseAClassify(data)
	if err != nil {
		return nil, err
	}

	sort.Slice(st.sysPages, func(i, j int) bool {
		return st.sysPages[i].Header.USN < st.sysPages[j].Header.USN
	})
	sort.Slice(st.dataPages, func(i, j int) bool {
		return st.dataPages[i].Header.FirstChunk < st.dataPages[j].Header.FirstChunk
	})

	var nSys uint32
	if len(st.dataPages) > 0 {
		nSys = st.dataPages[0].Header.FirstChunk
	}

	chunks := make(map[uint32][payloadSize]byte)

	for _, p := range st.sysPages {
		entries, err := phaseBSystemChunks(st.v, p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Index >= nSys {
				return nil, &ErrSystemChunkOutOfRange{Index: e.Index, NSys: nSys}
			}
			chunks[e.Index] = e.Payload
		}
	}

	for k, p := range st.dataPages {
		want := nSys + uint32(k)*dataChunks
		if p.Header.FirstChunk != want {
			return nil, &ErrDataPageOrderingViolation{Position: k, Got: p.Header.FirstChunk, Want: want}
		}
		entries, err := phaseBDataChunks(st.v, p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if _, exists := chunks[e.Index]; exists {
				return nil, &ErrDuplicateDataChunk{Index: e.Index}
			}
			chunks[e.Index] = e.Payload
		}
	}

	vol := &Volume{NSys: nSys, Chunks: chunks}

	if err := vol.assembleSystemArea(); err != nil {
		return nil, err
	}
	if err := vol.parseVolumeHeaderAndFAT(); err != nil {
		return nil, err
	}
	if err := vol.walkDirectories(); err != nil {
		return nil, err
	}

	return vol, nil
}
