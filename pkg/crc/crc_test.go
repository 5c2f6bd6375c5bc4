package crc

import "testing"

// Scenario B: the standard CRC-16/CCITT table's first eight values.
func TestTableRegression(t *testing.T) {
	want := [8]uint16{0x0000, 0x1021, 0x2042, 0x3063, 0x4084, 0x50A5, 0x60C6, 0x70E7}
	tbl := Table()
	for i, w := range want {
		if tbl[i] != w {
			t.Errorf("table[%d] = 0x%04x, want 0x%04x", i, tbl[i], w)
		}
	}
}

// Scenario C: crcIdx(0) must equal 0x3FFF.
func TestIdxZero(t *testing.T) {
	if got := Idx(0); got != 0x3FFF {
		t.Errorf("Idx(0) = 0x%04x, want 0x3fff", got)
	}
}

func TestIdxPure(t *testing.T) {
	// Scenario/invariant 5: crcIdx is a pure function of its argument.
	for _, v := range []uint16{0, 1, 0x7FFF, 0xFFFF, 0x1234} {
		a := Idx(v)
		b := Idx(v)
		if a != b {
			t.Errorf("Idx(%#x) not pure: %#x != %#x", v, a, b)
		}
	}
}

func TestCRC16KnownValue(t *testing.T) {
	// A single zero byte with the standard init must shift through
	// table[0xFF] once; 0xFFFF<<8 truncated to 16 bits is 0xFF00.
	got := CRC16([]byte{0x00})
	want := table[0xFF] ^ uint16(0xFF00)
	if got != want {
		t.Errorf("CRC16([0x00]) = %#x, want %#x", got, want)
	}
}
