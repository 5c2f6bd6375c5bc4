package mfs2

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSinglePageNoChunks(t *testing.T) {
	data := make([]byte, pageSize)
	data[0] = 0xFF // num
	data[2] = 0xFF // flags
	for i := 4; i < 8; i++ {
		data[i] = 0xFF
	}
	for i := 8; i < 12; i++ {
		data[i] = 0xFF
	}

	vol, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, vol.Pages, 1)
	require.True(t, vol.Pages[0].Header.IsUnused())
	require.Empty(t, vol.Log)
}

func TestParseActivePageWithChunks(t *testing.T) {
	data := make([]byte, pageSize)
	data[0] = 1 // page num
	data[2] = StateActiveFlags()

	pos := chunkAreaStart
	// one active chunk: flags=0x00 (active), size=0x10 (16 bytes, already aligned)
	data[pos] = 0x00
	data[pos+1] = 0x10
	// next slot free (flags 0xFF); it and the zeroed slots after it are
	// skipped 16 bytes at a time to the end of the page
	data[pos+16] = 0xFF
	data[pos+17] = 0xFF

	vol, err := Parse(data)
	require.NoError(t, err)
	require.True(t, vol.Pages[0].IsActive())
	require.NotEmpty(t, vol.Pages[0].Chunks)
	require.True(t, vol.Pages[0].Chunks[0].IsActive())
	require.Equal(t, 16, vol.Pages[0].Chunks[0].Length)
}

func StateActiveFlags() byte { return byte(StateActive) }
