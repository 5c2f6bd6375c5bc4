// Package mfs2 parses the Gen 2 (page-log) variant of the ME Flash File
// System: a sequence of 16 KiB pages, each holding a linear run of
// variable-length chunks, with page 0 additionally carrying a journal of
// fixed-size log records.
package mfs2

import (
	"fmt"

	"github.com/fiedka/go-me-fs/pkg/byteview"
)

const (
	pageSize       = 0x4000
	pageHeaderSize = 20
	chunkAreaStart = 0xD0
	indexTableSize = 0x40 // the [0x90, 0xD0) index table, not yet interpreted
	magic          = "MFS\x00"
	logEntrySize   = 11
)

// PageHeader is the fixed 20-byte page header.
type PageHeader struct {
	Num    uint8
	_      uint8 // observed 0x78
	Flags  uint8 // low nibble is the state; see PageState
	_      uint8 // observed 0xff
	_      uint32
	Magic  [4]byte // populated on page 0 only, 0xFFFFFFFF otherwise
	_      uint32  // populated on page 0 only
	_      uint32
}

// PageState is the low nibble of a page header's flags byte. Only a
// handful of values have been observed in the wild; their meaning beyond
// the label below is not established (spec.md §9 Open Questions), so the
// raw nibble is always preserved verbatim alongside the label.
type PageState uint8

const (
	StateClean  PageState = 0x4
	StateDirty  PageState = 0x7
	StateLive   PageState = 0xC
	StateActive PageState = 0xE
)

func (s PageState) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	case StateLive:
		return "live"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("0x%x", uint8(s))
	}
}

// IsUnused reports whether a page is the unused sentinel (num == 0xff,
// flags == 0xff).
func (h PageHeader) IsUnused() bool {
	return h.Num == 0xFF && h.Flags == 0xFF
}

// State returns the page's low-nibble state.
func (h PageHeader) State() PageState {
	return PageState(h.Flags & 0x0F)
}

// ChunkRecord is a decoded variable-length MFS Gen 2 chunk.
type ChunkRecord struct {
	Flags  uint8
	Size   uint8 // raw stored size byte
	Offset int   // offset within the page
	Length int   // effective byte length, including the 2-byte header
}

// IsActive reports whether the chunk's low four flag bits are zero.
func (c ChunkRecord) IsActive() bool {
	return c.Flags&0x0F == 0
}

// IsMetadata reports whether this chunk carries the distinguished 8-byte
// metadata record (flags == 0xB0).
func (c ChunkRecord) IsMetadata() bool {
	return c.Flags == 0xB0
}

func effectiveLength(flags, size uint8) int {
	if size > 2 && flags != 0xB0 {
		s := int(size)
		if rem := s % 16; rem != 0 {
			s += 16 - rem
		}
		return s
	}
	return int(size) * 0x100
}

// Page is a decoded 16 KiB MFS Gen 2 page.
type Page struct {
	Header PageHeader
	Offset int
	Chunks []ChunkRecord
}

// IsActive reports whether the page participates in the active set
// (num is neither 0x00 nor 0xff).
func (p Page) IsActive() bool {
	return p.Header.Num != 0x00 && p.Header.Num != 0xFF
}

// LogEntry is an 11-byte page-0 journal record. Field semantics beyond
// Kind/ID are empirical (spec.md §9 Open Questions) and preserved
// verbatim.
type LogEntry struct {
	Kind       uint16
	ID         uint8
	F3, F5, F7, F9 uint16
}

// Volume is the decoded Gen 2 MFS partition.
type Volume struct {
	Pages []Page
	Log   []LogEntry
}

// UniqueLogIDs returns the number of distinct log-entry IDs on page 0,
// mirroring the original tool's diagnostic dedup count.
func (vol *Volume) UniqueLogIDs() int {
	seen := make(map[uint8]struct{})
	for _, e := range vol.Log {
		seen[e.ID] = struct{}{}
	}
	return len(seen)
}

// Parse walks data as a sequence of 16 KiB MFS Gen 2 pages.
func Parse(data []byte) (*Volume, error) {
	v := byteview.New(data)
	vol := &Volume{}

	for offset := 0; offset+pageSize <= len(data); offset += pageSize {
		var hdr PageHeader
		if err := v.Struct(offset, &hdr); err != nil {
			return nil, fmt.Errorf("mfs2: page header @ 0x%x: %w", offset, err)
		}

		page := Page{Header: hdr, Offset: offset}

		if hdr.Num != 0 && hdr.Num != 0xFF {
			pos := chunkAreaStart
			for pos < pageSize {
				flags, err := v.U8(offset + pos)
				if err != nil {
					break
				}
				size, err := v.U8(offset + pos + 1)
				if err != nil {
					break
				}
				if flags == 0xFF || size == 0 {
					pos += 16
					continue
				}
				length := effectiveLength(flags, size)
				page.Chunks = append(page.Chunks, ChunkRecord{
					Flags: flags, Size: size, Offset: pos, Length: length,
				})
				pos += length
			}
		}

		vol.Pages = append(vol.Pages, page)
	}

	if len(vol.Pages) > 0 && string(vol.Pages[0].Header.Magic[:]) == magic {
		p0 := vol.Pages[0]
		i := 0
		for {
			pos := p0.Offset + pageHeaderSize + i*logEntrySize
			kind, err := v.U16(pos)
			if err != nil || kind == 0xFFFF {
				break
			}
			id, err := v.U8(pos + 2)
			if err != nil {
				break
			}
			f3, _ := v.U16(pos + 3)
			f5, _ := v.U16(pos + 5)
			f7, _ := v.U16(pos + 7)
			f9, _ := v.U16(pos + 9)
			vol.Log = append(vol.Log, LogEntry{Kind: kind, ID: id, F3: f3, F5: f5, F7: f7, F9: f9})
			i++
		}
	}

	return vol, nil
}
