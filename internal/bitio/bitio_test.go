package bitio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnsignedExpGolombRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 2, 3, 4, 31, 32, 255, 1 << 10, 1 << 20, 1 << 29, 1<<30 + 17}
	for _, v := range values {
		buf := make([]byte, 32)
		w := NewWriter(buf, false)
		require.NoError(t, w.WriteUE(v))
		require.NoError(t, w.ByteAlign())

		r := NewReader(w.Bytes(), false)
		got, err := r.ReadUE()
		require.NoError(t, err)
		require.Equal(t, v, got, "ue(%d) round trip", v)
	}
}

func TestSignedExpGolombRoundTrip(t *testing.T) {
	values := []int32{0, 1, -1, 2, -2, 3, -3, 1 << 20, -(1 << 20), 1<<29 - 1, -(1<<29 - 1)}
	for _, v := range values {
		buf := make([]byte, 32)
		w := NewWriter(buf, false)
		require.NoError(t, w.WriteSE(v))
		require.NoError(t, w.ByteAlign())

		r := NewReader(w.Bytes(), false)
		got, err := r.ReadSE()
		require.NoError(t, err)
		require.Equal(t, v, got, "se(%d) round trip", v)
	}
}

func TestExpGolombCanonicalEncoding(t *testing.T) {
	// Table from the H.264 spec: ue(0)="1", ue(1)="010", ue(2)="011",
	// ue(3)="00100", ue(4)="00101".
	cases := []struct {
		value uint32
		bits  string
	}{
		{0, "1"},
		{1, "010"},
		{2, "011"},
		{3, "00100"},
		{4, "00101"},
		{5, "00110"},
		{6, "00111"},
	}
	for _, c := range cases {
		buf := make([]byte, 4)
		w := NewWriter(buf, false)
		require.NoError(t, w.WriteUE(c.value))
		require.NoError(t, w.ByteAlign())
		r := NewReader(w.Bytes(), false)
		for _, ch := range c.bits {
			bit, err := r.ReadBits(1)
			require.NoError(t, err)
			want := uint32(0)
			if ch == '1' {
				want = 1
			}
			require.Equal(t, want, bit)
		}
	}
}

func TestEmulationPreventionRoundTrip(t *testing.T) {
	sequences := [][]byte{
		{0x00, 0x00, 0x00},
		{0x00, 0x00, 0x01},
		{0x00, 0x00, 0x02},
		{0x00, 0x00, 0x03},
		{0x00, 0x00, 0x00, 0x00, 0x01},
		{0x01, 0x02, 0x03, 0x04, 0x05},
		{0x00, 0x00, 0x01, 0x00, 0x00, 0x02, 0x00, 0x00, 0x03},
	}
	for _, seq := range sequences {
		buf := make([]byte, 64)
		w := NewWriter(buf, true)
		for _, b := range seq {
			require.NoError(t, w.WriteBits(8, uint32(b)))
		}
		encoded := append([]byte(nil), w.Bytes()...)

		require.False(t, containsStartCodeLookalike(encoded), "encoded %x contains a start-code lookalike", encoded)

		r := NewReader(encoded, true)
		decoded := make([]byte, len(seq))
		for i := range decoded {
			v, err := r.ReadBits(8)
			require.NoError(t, err)
			decoded[i] = byte(v)
		}
		require.Equal(t, seq, decoded)
	}
}

// containsStartCodeLookalike reports whether buf contains 00 00 0{0,1,2}, or
// a 00 00 03 whose 03 is not an emulation-prevention byte (one followed by a
// byte in 0x00..0x03).
func containsStartCodeLookalike(buf []byte) bool {
	for i := 0; i+2 < len(buf); i++ {
		if buf[i] != 0 || buf[i+1] != 0 {
			continue
		}
		if buf[i+2] <= 0x02 {
			return true
		}
		if buf[i+2] == 0x03 && (i+3 >= len(buf) || buf[i+3] > 0x03) {
			return true
		}
	}
	return false
}

func TestByteAlignPadsToBoundary(t *testing.T) {
	buf := make([]byte, 4)
	w := NewWriter(buf, false)
	require.NoError(t, w.WriteBits(3, 0x5))
	require.NoError(t, w.ByteAlign())
	require.Equal(t, 1, w.Len())
}
