package me

import (
	"bytes"
	"fmt"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/fiedka/go-me-fs/pkg/byteview"
)

const (
	cpdMagic              = "$CPD"
	cpdHeaderExtensionTag = 0x00140102
)

// CPDHeader is the 16-byte $CPD header.
type CPDHeader struct {
	Magic              [4]byte
	Entries            uint32
	VersionOrChecksum  uint32
	PartName           [4]byte
}

// CPDEntry is a decoded 24-byte $CPD entry.
type CPDEntry struct {
	Name            [12]byte
	Offset          uint32 // already masked to 24 bits
	Size            uint32
	CompressionFlag uint32
}

// NameString returns the NUL-trimmed entry name.
func (e CPDEntry) NameString() string {
	return string(bytes.TrimRight(e.Name[:], "\x00"))
}

func (e CPDEntry) String() string {
	return fmt.Sprintf("%-12s %08x:%08x flags %08x", e.NameString(), e.Offset, e.Offset+e.Size, e.CompressionFlag)
}

// CPDDirectory is a decoded $CPD (Gen 3) code partition directory.
type CPDDirectory struct {
	Header   CPDHeader
	Name     string
	Entries  []CPDEntry
	Manifest *Manifest // nil if no "<name>.man" entry was found
	Offset   int
}

func (d *CPDDirectory) String() string {
	return fmt.Sprintf("%s @ %08x, %d entries", d.Name, d.Offset, len(d.Entries))
}

// ParseCPD decodes a $CPD directory at offset within v.
func ParseCPD(v byteview.View, offset int) (*CPDDirectory, error) {
	var hdr CPDHeader
	if err := v.Struct(offset, &hdr); err != nil {
		return nil, err
	}
	if string(hdr.Magic[:]) != cpdMagic {
		return nil, &ErrBadMagic{Expected: []byte(cpdMagic), Actual: hdr.Magic[:]}
	}

	entryBase := 16
	if hdr.VersionOrChecksum == cpdHeaderExtensionTag {
		entryBase = 20
	}

	name := string(bytes.TrimRight(hdr.PartName[:], "\x00"))
	dir := &CPDDirectory{Header: hdr, Name: name, Offset: offset}

	var merr *multierror.Error
	for i := 0; i < int(hdr.Entries); i++ {
		entryOffset := offset + entryBase + i*24
		nameBytes, err := v.Bytes(entryOffset, 12)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("cpd entry %d: %w", i, err))
			break
		}
		rawOffset, err := v.U32(entryOffset + 12)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("cpd entry %d: %w", i, err))
			break
		}
		size, err := v.U32(entryOffset + 16)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("cpd entry %d: %w", i, err))
			break
		}
		flags, err := v.U32(entryOffset + 20)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("cpd entry %d: %w", i, err))
			break
		}

		var e CPDEntry
		copy(e.Name[:], nameBytes)
		e.Offset = rawOffset & 0x00FFFFFF
		e.Size = size
		e.CompressionFlag = flags
		dir.Entries = append(dir.Entries, e)
	}

	manName := name + ".man"
	found := false
	for _, e := range dir.Entries {
		if e.NameString() != manName {
			continue
		}
		found = true
		manOffset := offset + int(e.Offset)
		manifest, err := ParseManifest(v, manOffset)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("manifest %q: %w", manName, err))
			break
		}
		dir.Manifest = manifest
	}
	if !found {
		merr = multierror.Append(merr, fmt.Errorf("no manifest entry %q found in %q", manName, name))
	}

	return dir, merr.ErrorOrNil()
}
