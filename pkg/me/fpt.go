package me

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/fiedka/go-me-fs/pkg/byteview"
)

const (
	fptMagic       = "$FPT"
	fptScanStride  = 16
	fptHeaderSize  = 32
	fptEntrySize   = 32
	fptOffsetMask  = 0x003FFFFF
)

// FPTHeader decodes the leading 24 bytes of the fixed 32-byte header
// that starts with the "$FPT" marker; the trailing 8 bytes are not
// decoded.
type FPTHeader struct {
	Marker             [4]byte
	NumEntries         uint32
	HeaderVersion      uint8
	EntryVersion       uint8
	HeaderLength       uint8
	HeaderChecksum     uint8
	TicksToAdd         uint16
	TokensToAdd        uint16
	UMASizeOrReserved  uint32
	FlashLayoutOrFlags uint32
}

func (h FPTHeader) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "$FPT: %d entries, header version 0x%x, entry version 0x%x\n", h.NumEntries, h.HeaderVersion, h.EntryVersion)
	return b.String()
}

// FPTEntry is a decoded 32-byte flash partition table entry.
type FPTEntry struct {
	Name           [4]byte
	Owner          [4]byte
	Offset         uint32
	Size           uint32
	StartTokens    uint32
	MaxTokens      uint32
	ScratchSectors uint32
	Flags          uint32
}

// NameString returns the partition name. Per spec.md §9, the name bytes
// are never byte-swapped; equality compares the natural left-to-right
// byte order (equivalent to a big-endian 32-bit read).
func (e FPTEntry) NameString() string {
	return string(bytes.TrimRight(e.Name[:], "\x00"))
}

func (e FPTEntry) String() string {
	valid := "yes"
	if e.Flags>>24 == 0xff {
		valid = "no"
	}
	return fmt.Sprintf("%-4s offset %#x size %s valid %s", e.NameString(), e.Offset, humanize.Bytes(uint64(e.Size)), valid)
}

// FPTResult is the raw, undispatched scan result: the partition base,
// header, and entry table.
type FPTResult struct {
	// CandidateOffset is the scan position b at which the marker was
	// confirmed (marker itself sits at CandidateOffset+16).
	CandidateOffset int
	// Base is the effective partition base entry offsets are relative
	// to, per the re-align rule.
	Base    int
	Header  FPTHeader
	Entries []FPTEntry
}

// ScanFPT scans image from offset 0 in 16-byte strides for the first
// "$FPT" marker and decodes its header and entry table. It fails only
// with ErrNoFpt if the scan exhausts the image.
func ScanFPT(image []byte) (*FPTResult, error) {
	v := byteview.New(image)

	for b := 0; b+fptScanStride+4 <= len(image); b += fptScanStride {
		marker, err := v.Bytes(b+fptScanStride, 4)
		if err != nil {
			break
		}
		if string(marker) != fptMagic {
			continue
		}

		headerOffset := b + fptScanStride
		var hdr FPTHeader
		if err := v.Struct(headerOffset, &hdr); err != nil {
			continue
		}

		base := b
		if b%0x1000 != 0 {
			base = headerOffset
		}

		result := &FPTResult{CandidateOffset: b, Base: base, Header: hdr}

		entriesOffset := headerOffset + fptHeaderSize
		for i := 0; i < int(hdr.NumEntries); i++ {
			var e FPTEntry
			if err := v.Struct(entriesOffset+i*fptEntrySize, &e); err != nil {
				break
			}
			result.Entries = append(result.Entries, e)
		}

		return result, nil
	}

	return nil, &ErrNoFpt{}
}

// resolvePartitionRange computes the clipped partition data range for entry
// relative to base, within an image of length imageLen.
func resolvePartitionRange(base int, entry FPTEntry, imageLen int) (start, end int) {
	start = base + int(entry.Offset&fptOffsetMask)
	end = start + int(entry.Size)
	if start < 0 {
		start = 0
	}
	if start > imageLen {
		start = imageLen
	}
	if end > imageLen {
		end = imageLen
	}
	if end < start {
		end = start
	}
	return start, end
}
