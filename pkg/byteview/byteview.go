// Package byteview provides a bounds-checked, read-only, little-endian
// view over a byte slice. Every accessor fails with a *TruncatedError
// instead of panicking when a read would cross the end of the
// underlying slice; there is no alignment assumption on the source.
package byteview

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// TruncatedError is returned whenever a read would extend past the end
// of the underlying slice.
type TruncatedError struct {
	Offset, Width, Len int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("truncated: offset 0x%x, width 0x%x exceeds length 0x%x", e.Offset, e.Width, e.Len)
}

// View is an immutable, bounds-checked window over a byte slice. The zero
// value is not usable; construct with New.
type View struct {
	b []byte
}

// New wraps b in a View. The view borrows b; it never copies or mutates it.
func New(b []byte) View {
	return View{b: b}
}

// Len returns the length of the underlying slice.
func (v View) Len() int {
	return len(v.b)
}

// Raw returns the full underlying slice. Callers must not mutate it.
func (v View) Raw() []byte {
	return v.b
}

func (v View) checkRange(offset, width int) error {
	if offset < 0 || width < 0 || offset+width > len(v.b) {
		return &TruncatedError{Offset: offset, Width: width, Len: len(v.b)}
	}
	return nil
}

// Bytes returns n bytes starting at offset. The returned slice aliases
// the underlying data; callers must not mutate it.
func (v View) Bytes(offset, n int) ([]byte, error) {
	if err := v.checkRange(offset, n); err != nil {
		return nil, err
	}
	return v.b[offset : offset+n], nil
}

// Sub returns a View over the sub-range [offset, offset+n).
func (v View) Sub(offset, n int) (View, error) {
	b, err := v.Bytes(offset, n)
	if err != nil {
		return View{}, err
	}
	return View{b: b}, nil
}

// U8 reads a single byte at offset.
func (v View) U8(offset int) (uint8, error) {
	if err := v.checkRange(offset, 1); err != nil {
		return 0, err
	}
	return v.b[offset], nil
}

// U16 reads a little-endian uint16 at offset.
func (v View) U16(offset int) (uint16, error) {
	if err := v.checkRange(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(v.b[offset:]), nil
}

// U32 reads a little-endian uint32 at offset.
func (v View) U32(offset int) (uint32, error) {
	if err := v.checkRange(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(v.b[offset:]), nil
}

// U64 reads a little-endian uint64 at offset.
func (v View) U64(offset int) (uint64, error) {
	if err := v.checkRange(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(v.b[offset:]), nil
}

// Struct reads a fixed-size, packed, little-endian record into out
// (which must be a pointer to a fixed-size struct of fixed-width fields)
// at offset.
func (v View) Struct(offset int, out interface{}) error {
	size := binary.Size(out)
	if size < 0 {
		return fmt.Errorf("byteview: %T is not a fixed-size type", out)
	}
	b, err := v.Bytes(offset, size)
	if err != nil {
		return err
	}
	return binary.Read(bytes.NewReader(b), binary.LittleEndian, out)
}
