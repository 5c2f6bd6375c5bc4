package byteview

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScalarReads(t *testing.T) {
	v := New([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})

	u8, err := v.U8(0)
	require.NoError(t, err)
	require.Equal(t, uint8(0x01), u8)

	u16, err := v.U16(0)
	require.NoError(t, err)
	require.Equal(t, uint16(0x0201), u16)

	u32, err := v.U32(0)
	require.NoError(t, err)
	require.Equal(t, uint32(0x04030201), u32)

	u64, err := v.U64(0)
	require.NoError(t, err)
	require.Equal(t, uint64(0x0807060504030201), u64)
}

func TestTruncated(t *testing.T) {
	v := New([]byte{0x01, 0x02})

	_, err := v.U32(0)
	require.Error(t, err)
	var te *TruncatedError
	require.ErrorAs(t, err, &te)

	_, err = v.U16(1)
	require.Error(t, err)

	_, err = v.Bytes(0, 3)
	require.Error(t, err)

	_, err = v.Bytes(-1, 1)
	require.Error(t, err)
}

type fixedRecord struct {
	A uint32
	B uint16
	C uint8
	D uint8
}

func TestStruct(t *testing.T) {
	v := New([]byte{
		0x01, 0x00, 0x00, 0x00, // A
		0x02, 0x00, // B
		0x03, // C
		0x04, // D
		0xFF, // trailing byte, not part of the record
	})

	var rec fixedRecord
	require.NoError(t, v.Struct(0, &rec))
	require.Equal(t, fixedRecord{A: 1, B: 2, C: 3, D: 4}, rec)

	var short fixedRecord
	require.Error(t, v.Struct(2, &short))
}

func TestSub(t *testing.T) {
	v := New([]byte{0, 1, 2, 3, 4, 5})
	sub, err := v.Sub(2, 3)
	require.NoError(t, err)
	require.Equal(t, []byte{2, 3, 4}, sub.Raw())

	_, err = v.Sub(4, 4)
	require.Error(t, err)
}
