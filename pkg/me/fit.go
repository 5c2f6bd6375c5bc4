package me

import (
	"fmt"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/fiedka/go-me-fs/pkg/byteview"
)

// fitHeadersMagic is the magic string expected at the start of the FIT
// header entry's Address field.
const fitHeadersMagic = "_FIT_   "

// fitPointerOffset is the fixed offset from the end of the image at
// which the FIT pointer is stored.
const fitPointerOffset = 0x40

// EntryType is the 7-bit FIT entry type code. Only the values below are
// recognized; there are no reserved-range constants.
type EntryType uint8

const (
	EntryTypeHeader               EntryType = 0x00
	EntryTypeMicrocode            EntryType = 0x01
	EntryTypeStartupACM           EntryType = 0x02
	EntryTypeDiagnosticACM        EntryType = 0x03
	EntryTypeBIOSStartupModule    EntryType = 0x07
	EntryTypeTPMPolicy            EntryType = 0x08
	EntryTypeBIOSPolicy           EntryType = 0x09
	EntryTypeTXTPolicy            EntryType = 0x0A
	EntryTypeKeyManifest          EntryType = 0x0B
	EntryTypeBootPolicyManifest   EntryType = 0x0C
	EntryTypeCSESecureBoot        EntryType = 0x10
	EntryTypeFeaturePolicy        EntryType = 0x2D
	EntryTypeJMPDebugPolicy       EntryType = 0x2F
	EntryTypeSkip                 EntryType = 0x7F
)

func (t EntryType) String() string {
	switch t {
	case EntryTypeHeader:
		return "Header"
	case EntryTypeMicrocode:
		return "Microcode"
	case EntryTypeStartupACM:
		return "StartupACM"
	case EntryTypeDiagnosticACM:
		return "DiagnosticACM"
	case EntryTypeBIOSStartupModule:
		return "BIOSStartupModule"
	case EntryTypeTPMPolicy:
		return "TPMPolicy"
	case EntryTypeBIOSPolicy:
		return "BIOSPolicy"
	case EntryTypeTXTPolicy:
		return "TXTPolicy"
	case EntryTypeKeyManifest:
		return "KeyManifest"
	case EntryTypeBootPolicyManifest:
		return "BootPolicyManifest"
	case EntryTypeCSESecureBoot:
		return "CSESecureBoot"
	case EntryTypeFeaturePolicy:
		return "FeaturePolicy"
	case EntryTypeJMPDebugPolicy:
		return "JMPDebugPolicy"
	case EntryTypeSkip:
		return "Skip"
	default:
		return fmt.Sprintf("unknown_0x%02x", uint8(t))
	}
}

// FITEntry is a single decoded 16-byte FIT entry.
type FITEntry struct {
	Address       uint64
	Size          uint32 // 24-bit field, upper byte zero
	Version       uint16
	Type          EntryType
	ChecksumValid bool
	Checksum      byte
}

// FITHeader is the FIT header, which occupies the same 16-byte layout as
// a regular entry (its Address field holds the magic string instead of
// an address).
type FITHeader struct {
	Entries uint32 // entry count, header counts as entry 0
	Version uint16
	Type    EntryType
}

// FITResult is the decoded FIT: its header and the entries that follow it
// (the header itself is excluded from Entries).
type FITResult struct {
	Offset  int
	Header  FITHeader
	Entries []FITEntry
}

func (r *FITResult) String() string {
	return fmt.Sprintf("FIT at 0x%x: %d entries", r.Offset, len(r.Entries))
}

// ParseFIT locates and decodes the FIT. image is the full firmware image
// bytes.
func ParseFIT(image []byte) (*FITResult, error) {
	v := byteview.New(image)

	pointerOffset := len(image) - fitPointerOffset
	word, err := v.U32(pointerOffset)
	if err != nil {
		return nil, &ErrNoFit{Reason: "pointer read truncated"}
	}
	if word == 0xFFFFFFFF {
		return nil, &ErrNoFit{Reason: "pointer unset (0xFFFFFFFF)"}
	}

	mask := flashMask(len(image))
	offset := int(mask & word)
	if offset%16 != 0 {
		return nil, &ErrNoFit{Reason: fmt.Sprintf("resolved offset 0x%x is not 16-byte aligned", offset)}
	}

	magic, err := v.Bytes(offset, 8)
	if err != nil || string(magic) != fitHeadersMagic {
		return nil, &ErrNoFit{Reason: "missing _FIT_ header magic"}
	}

	entries, err := v.U32(offset + 8)
	if err != nil {
		return nil, &ErrNoFit{Reason: "header truncated"}
	}
	version, err := v.U16(offset + 12)
	if err != nil {
		return nil, &ErrNoFit{Reason: "header truncated"}
	}
	typeByte, err := v.U8(offset + 14)
	if err != nil {
		return nil, &ErrNoFit{Reason: "header truncated"}
	}

	result := &FITResult{
		Offset: offset,
		Header: FITHeader{
			Entries: entries,
			Version: version,
			Type:    EntryType(typeByte & 0x7F),
		},
	}

	var merr *multierror.Error
	for i := 0; i < int(entries)-1; i++ {
		entryOffset := offset + (i+1)*16
		entry, err := decodeFITEntry(v, entryOffset)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("FIT entry %d: %w", i, err))
			continue
		}
		if !isKnownFITType(entry.Type) {
			merr = multierror.Append(merr, &ErrUnknownFitType{Type: byte(entry.Type)})
		}
		result.Entries = append(result.Entries, *entry)
	}

	return result, merr.ErrorOrNil()
}

func decodeFITEntry(v byteview.View, offset int) (*FITEntry, error) {
	addr, err := v.U64(offset)
	if err != nil {
		return nil, err
	}
	sizeAndVersion, err := v.U32(offset + 8)
	if err != nil {
		return nil, err
	}
	version, err := v.U16(offset + 12)
	if err != nil {
		return nil, err
	}
	typeByte, err := v.U8(offset + 14)
	if err != nil {
		return nil, err
	}
	checksum, err := v.U8(offset + 15)
	if err != nil {
		return nil, err
	}

	return &FITEntry{
		Address:       addr,
		Size:          sizeAndVersion & 0x00FFFFFF,
		Version:       version,
		Type:          EntryType(typeByte & 0x7F),
		ChecksumValid: typeByte&0x80 != 0,
		Checksum:      checksum,
	}, nil
}

func isKnownFITType(t EntryType) bool {
	switch t {
	case EntryTypeHeader, EntryTypeMicrocode, EntryTypeStartupACM, EntryTypeDiagnosticACM,
		EntryTypeBIOSStartupModule, EntryTypeTPMPolicy, EntryTypeBIOSPolicy, EntryTypeTXTPolicy,
		EntryTypeKeyManifest, EntryTypeBootPolicyManifest, EntryTypeCSESecureBoot,
		EntryTypeFeaturePolicy, EntryTypeJMPDebugPolicy, EntryTypeSkip:
		return true
	default:
		return false
	}
}
