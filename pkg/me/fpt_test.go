package me

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Scenario A: minimal FPT, no partitions parseable.
func TestScanFPTMinimal(t *testing.T) {
	image := make([]byte, 0x400)
	copy(image[0x10:], []byte(fptMagic))
	// header at 0x10: NumEntries=0, rest zero.

	result, err := ScanFPT(image)
	require.NoError(t, err)
	require.Equal(t, 0, result.Base)
	require.Empty(t, result.Entries)
}

// Scenario F: $FPT found at b=0x20 (misaligned), base becomes 0x30, and
// an entry with offset 0x40 resolves to image offset 0x70.
func TestScanFPTRealign(t *testing.T) {
	image := make([]byte, 0x200)
	b := 0x20
	copy(image[b+16:], []byte(fptMagic))
	// NumEntries = 1 at headerOffset+4
	headerOffset := b + 16
	image[headerOffset+4] = 1

	entriesOffset := headerOffset + fptHeaderSize
	copy(image[entriesOffset:], []byte("TEST"))
	// offset field (bytes 8..12 of the entry) = 0x40
	image[entriesOffset+8] = 0x40

	result, err := ScanFPT(image)
	require.NoError(t, err)
	require.Equal(t, 0x30, result.Base)
	require.Len(t, result.Entries, 1)

	start, end := resolvePartitionRange(result.Base, result.Entries[0], len(image))
	require.Equal(t, 0x70, start)
	require.Equal(t, 0x70, end) // size field left zero in this fixture
}

func TestNoFpt(t *testing.T) {
	image := make([]byte, 0x100)
	_, err := ScanFPT(image)
	require.Error(t, err)
	var e *ErrNoFpt
	require.ErrorAs(t, err, &e)
}
