package me

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func putU32At(b []byte, off int, v uint32) { binary.LittleEndian.PutUint32(b[off:], v) }

// buildImageWithOneOpaquePartition constructs a minimal image: an FPT at
// 4 KiB alignment (so Base == the scan position, 16 bytes before the
// marker) with a single entry
// named "TEST" pointing at a region of plain, non-$CPD bytes.
func buildImageWithOneOpaquePartition(t *testing.T) []byte {
	t.Helper()
	image := make([]byte, 0x2000)

	b := 0x1000
	copy(image[b+16:], []byte(fptMagic))
	headerOffset := b + 16
	putU32At(image, headerOffset+4, 1) // NumEntries = 1

	entriesOffset := headerOffset + fptHeaderSize
	copy(image[entriesOffset:], []byte("TEST"))
	putU32At(image, entriesOffset+8, 0x400) // offset
	putU32At(image, entriesOffset+12, 0x10) // size

	// partition bytes: plain, unrecognized data
	for i := 0; i < 0x10; i++ {
		image[b+0x400+i] = byte(i + 1)
	}

	return image
}

func TestParseImageOpaquePartition(t *testing.T) {
	image := buildImageWithOneOpaquePartition(t)

	img, err := Parse(image)
	require.NoError(t, err)
	require.Len(t, img.Partitions, 1)
	require.Equal(t, PartitionOpaque, img.Partitions[0].Kind)
	require.Equal(t, "TEST", img.Partitions[0].Entry.NameString())
	require.Nil(t, img.FIT)
}

func TestParseImageNoFpt(t *testing.T) {
	image := make([]byte, 0x100)
	_, err := Parse(image)
	require.Error(t, err)
	var e *ErrNoFpt
	require.ErrorAs(t, err, &e)
}

func TestImageOverlappingPartitions(t *testing.T) {
	image := make([]byte, 0x2000)
	b := 0x1000
	copy(image[b+16:], []byte(fptMagic))
	headerOffset := b + 16
	putU32At(image, headerOffset+4, 2)

	entriesOffset := headerOffset + fptHeaderSize
	copy(image[entriesOffset:], []byte("ONE "))
	putU32At(image, entriesOffset+8, 0x400)
	putU32At(image, entriesOffset+12, 0x100)

	copy(image[entriesOffset+32:], []byte("TWO "))
	putU32At(image, entriesOffset+32+8, 0x480) // overlaps ONE's [0x400, 0x500)
	putU32At(image, entriesOffset+32+12, 0x100)

	img, err := Parse(image)
	_ = err // the returned error is not under test here
	overlaps := img.OverlappingPartitions()
	require.Len(t, overlaps, 1)
	require.Equal(t, [2]int{0, 1}, overlaps[0])
}

func TestParseImageUnrecognizedCPDPartition(t *testing.T) {
	image := make([]byte, 0x2000)
	b := 0x1000
	copy(image[b+16:], []byte(fptMagic))
	headerOffset := b + 16
	putU32At(image, headerOffset+4, 1)

	entriesOffset := headerOffset + fptHeaderSize
	copy(image[entriesOffset:], []byte("XTRA"))
	putU32At(image, entriesOffset+8, 0x400)
	putU32At(image, entriesOffset+12, 0x20)

	// Partition bytes carry a $CPD magic, an empty partition name and
	// Entries = 5. The entries decode as zeroed records, none of them
	// named ".man", so the missing manifest yields a soft note.
	copy(image[b+0x400:], []byte(cpdMagic))
	putU32At(image, b+0x400+4, 5) // Entries = 5, far more than available bytes

	img, err := Parse(image)
	require.Error(t, err) // soft notes aggregate into the returned error
	require.Len(t, img.Partitions, 1)
	require.Equal(t, PartitionCPD, img.Partitions[0].Kind)
	require.NotNil(t, img.Partitions[0].Note)
}
