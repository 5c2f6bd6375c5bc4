package me

import (
	"bytes"
	"fmt"

	"github.com/fiedka/go-me-fs/pkg/byteview"
)

// CompressionKind is the derived module compression kind, decoded from
// bits [4:7) of a Gen 2 module entry's flags.
type CompressionKind int

const (
	CompressionUncompressed CompressionKind = iota
	CompressionHuffman
	CompressionLZMA
	CompressionUnknown
)

func (c CompressionKind) String() string {
	switch c {
	case CompressionUncompressed:
		return "Uncompressed"
	case CompressionHuffman:
		return "Huffman"
	case CompressionLZMA:
		return "LZMA"
	default:
		return "Unknown"
	}
}

// BinaryMap is the module memory map derived from a Gen 2 entry's
// mod_base, flags and sizes.
type BinaryMap struct {
	RAPI, KAPI                 uint32
	CodeStart, CodeEnd, DataEnd uint32
}

func (m BinaryMap) String() string {
	return fmt.Sprintf("RAPI %03b KAPI %02b code %08x:%08x, data end %08x",
		m.RAPI, m.KAPI, m.CodeStart, m.CodeEnd, m.DataEnd)
}

// Gen2Entry is a decoded 96-byte $MME module entry.
type Gen2Entry struct {
	Magic       [4]byte
	Name        [16]byte
	Hash        [32]byte
	ModBase     uint32
	Offset      uint32
	CodeSize    uint32
	Size        uint32
	MemorySize  uint32
	PreUMASize  uint32
	EntryPoint  uint32
	Flags       uint32
	Reserved54  uint32
	Reserved58  uint32
	Reserved5C  uint32
}

// NameString returns the NUL-trimmed module name.
func (e Gen2Entry) NameString() string {
	return string(bytes.TrimRight(e.Name[:], "\x00"))
}

// CompressionType returns the module's compression kind.
func (e Gen2Entry) CompressionType() CompressionKind {
	switch (e.Flags >> 4) & 0b111 {
	case 0:
		return CompressionUncompressed
	case 1:
		return CompressionHuffman
	case 2:
		return CompressionLZMA
	default:
		return CompressionUnknown
	}
}

// RAPI returns the Ring-Assigned Page Index field of the entry's flags.
func (e Gen2Entry) RAPI() uint32 { return (e.Flags >> 17) & 0b111 }

// KAPI returns the Kernel API page-count field of the entry's flags.
func (e Gen2Entry) KAPI() uint32 { return (e.Flags >> 20) & 0b11 }

// BinMap returns the derived memory map for this entry.
func (e Gen2Entry) BinMap() BinaryMap {
	rapi, kapi := e.RAPI(), e.KAPI()
	return BinaryMap{
		RAPI:      rapi,
		KAPI:      kapi,
		CodeStart: e.ModBase + (rapi+kapi)*0x1000,
		CodeEnd:   e.ModBase + e.CodeSize,
		DataEnd:   e.ModBase + e.MemorySize,
	}
}

func (e Gen2Entry) String() string {
	return fmt.Sprintf("%-16s %08x @ %08x, entry point %08x", e.NameString(), e.Size, e.Offset, e.EntryPoint)
}

// Gen2Directory is a decoded Gen 2 ($MN2 + $MME) module directory.
type Gen2Directory struct {
	Manifest *Manifest
	Name     string
	Entries  []Gen2Entry
	Offset   int
}

func (d *Gen2Directory) String() string {
	return fmt.Sprintf("%s @ %08x, %s", d.Name, d.Offset, d.Manifest)
}

// ParseGen2Directory decodes a Gen 2 directory at offset within v.
func ParseGen2Directory(v byteview.View, offset int) (*Gen2Directory, error) {
	manifest, err := ParseManifest(v, offset)
	if err != nil {
		return nil, err
	}
	if manifest.Header.Entries == 0 {
		return nil, fmt.Errorf("gen2 directory: manifest has zero entries")
	}

	headerOffset := offset + manifestSize
	nameBytes, err := v.Bytes(headerOffset, 4)
	if err != nil {
		return nil, err
	}
	name := string(bytes.TrimRight(nameBytes, "\x00"))

	entriesOffset := headerOffset + 12
	dir := &Gen2Directory{Manifest: manifest, Name: name, Offset: offset}

	for i := 0; i < int(manifest.Header.Entries); i++ {
		var e Gen2Entry
		if err := v.Struct(entriesOffset+i*96, &e); err != nil {
			return nil, fmt.Errorf("gen2 directory entry %d: %w", i, err)
		}
		dir.Entries = append(dir.Entries, e)
	}

	return dir, nil
}
