package me

import (
	"fmt"

	"github.com/fiedka/go-me-fs/pkg/byteview"
)

const (
	manifestMagic     = "$MN2"
	manifestHeaderLen = 164 // fixed per spec; see DESIGN.md Open Question 5
	rsaKeySize        = 0x100
	manifestSize      = manifestHeaderLen + rsaKeySize + 4 + rsaKeySize
)

// ManifestVersion is the four-part version quadruple carried in a $MN2
// manifest header.
type ManifestVersion struct {
	Major, Minor, Hotfix, Build uint16
}

func (v ManifestVersion) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Hotfix, v.Build)
}

// ManifestHeader is the fixed $MN2 header. Its trailing reserved span is
// widened relative to the original tool's header struct so the header
// totals exactly the 164 bytes spec.md requires; see DESIGN.md.
type ManifestHeader struct {
	ModType      uint16
	ModSubtype   uint16
	HeaderLenDW  uint32 // in dwords
	HeaderVer    uint32
	Flags        uint32
	VendorID     uint32
	DateBCD      uint32 // day(u8) month(u8) year(u16), all BCD
	SizeDW       uint32 // in dwords
	Magic        [4]byte
	Entries      uint32 // only meaningful for Gen 2 ($MME) directories
	Version      ManifestVersion
	Reserved1    uint32
	Reserved2    uint32
	Reserved3    uint32
	Reserved     [100]byte
	KeySizeDW    uint32
	ScratchSizeDW uint32
}

// Manifest is a decoded $MN2 manifest: header plus the RSA key material,
// recognized as opaque bytes (no cryptographic verification is
// performed).
type Manifest struct {
	Header    ManifestHeader
	PubKey    []byte // 256 bytes
	PubExp    uint32
	Signature []byte // 256 bytes
}

// VendorName returns a human-readable vendor name for the manifest's
// vendor id.
func (m *Manifest) VendorName() string {
	if m.Header.VendorID == 0x8086 {
		return "Intel"
	}
	return fmt.Sprintf("unknown (0x%04x)", m.Header.VendorID)
}

// Date returns the BCD-encoded date field printed as YYYY-MM-DD.
func (m *Manifest) Date() string {
	day := m.Header.DateBCD & 0xFF
	month := (m.Header.DateBCD >> 8) & 0xFF
	year := (m.Header.DateBCD >> 16) & 0xFFFF
	return fmt.Sprintf("%04x-%02x-%02x", year, month, day)
}

func (m *Manifest) String() string {
	return fmt.Sprintf("manifest: vendor %s, version %s, date %s, %d entries",
		m.VendorName(), m.Header.Version, m.Date(), m.Header.Entries)
}

// ParseManifest decodes a $MN2 manifest at offset within v.
func ParseManifest(v byteview.View, offset int) (*Manifest, error) {
	var hdr ManifestHeader
	if err := v.Struct(offset, &hdr); err != nil {
		return nil, err
	}
	if string(hdr.Magic[:]) != manifestMagic {
		return nil, &ErrBadMagic{Expected: []byte(manifestMagic), Actual: hdr.Magic[:]}
	}

	o := offset + manifestHeaderLen
	pubKey, err := v.Bytes(o, rsaKeySize)
	if err != nil {
		return nil, err
	}
	o += rsaKeySize
	pubExp, err := v.U32(o)
	if err != nil {
		return nil, err
	}
	o += 4
	sig, err := v.Bytes(o, rsaKeySize)
	if err != nil {
		return nil, err
	}

	return &Manifest{
		Header:    hdr,
		PubKey:    append([]byte(nil), pubKey...),
		PubExp:    pubExp,
		Signature: append([]byte(nil), sig...),
	}, nil
}
