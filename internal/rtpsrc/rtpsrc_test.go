package rtpsrc

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildRTPPacket(seq uint16, ts uint32, marker bool, payload []byte) []byte {
	pkt := make([]byte, rtpHeaderSize+len(payload))
	pkt[0] = 0x80
	pkt[1] = byte(96)
	if marker {
		pkt[1] |= 0x80
	}
	binary.BigEndian.PutUint16(pkt[2:4], seq)
	binary.BigEndian.PutUint32(pkt[4:8], ts)
	binary.BigEndian.PutUint32(pkt[8:12], 0x1234) // SSRC
	copy(pkt[rtpHeaderSize:], payload)
	return pkt
}

func TestDepacketizerSingleNALU(t *testing.T) {
	d := NewDepacketizer()
	payload := []byte{0x65, 0xAA, 0xBB, 0xCC}
	nalus, ok := d.HandlePacket(buildRTPPacket(1, 3000, true, payload))
	require.True(t, ok)
	require.Len(t, nalus, 1)
	require.True(t, nalus[0].IsLast)
	require.Equal(t, 0, nalus[0].MissingBefore)
	require.Equal(t, append([]byte{0, 0, 0, 1}, payload...), nalus[0].Bytes)
}

func TestDepacketizerMissingPacketGap(t *testing.T) {
	d := NewDepacketizer()
	_, ok := d.HandlePacket(buildRTPPacket(10, 3000, true, []byte{0x67, 0x01}))
	require.True(t, ok)

	nalus, ok := d.HandlePacket(buildRTPPacket(14, 6000, true, []byte{0x65, 0x02}))
	require.True(t, ok)
	require.Equal(t, 3, nalus[0].MissingBefore)
}

func TestDepacketizerSTAPA(t *testing.T) {
	d := NewDepacketizer()
	sps := []byte{0x67, 0x01, 0x02}
	pps := []byte{0x68, 0x03}

	payload := []byte{24} // STAP-A indicator
	payload = append(payload, byte(len(sps)>>8), byte(len(sps)))
	payload = append(payload, sps...)
	payload = append(payload, byte(len(pps)>>8), byte(len(pps)))
	payload = append(payload, pps...)

	nalus, ok := d.HandlePacket(buildRTPPacket(1, 1000, false, payload))
	require.True(t, ok)
	require.Len(t, nalus, 2)
	require.True(t, nalus[0].IsFirst)
	require.False(t, nalus[1].IsFirst)
	require.Equal(t, append([]byte{0, 0, 0, 1}, sps...), nalus[0].Bytes)
	require.Equal(t, append([]byte{0, 0, 0, 1}, pps...), nalus[1].Bytes)
}

func TestDepacketizerFUA(t *testing.T) {
	d := NewDepacketizer()

	full := []byte{0x65, 0x11, 0x22, 0x33, 0x44, 0x55}
	indicator := byte(0x60) | 28

	start := []byte{indicator, 0x80 | 0x05, 0x11, 0x22}
	nalus, ok := d.HandlePacket(buildRTPPacket(1, 5000, false, start))
	require.False(t, ok)
	require.Nil(t, nalus)

	mid := []byte{indicator, 0x05, 0x33}
	nalus, ok = d.HandlePacket(buildRTPPacket(2, 5000, false, mid))
	require.False(t, ok)
	require.Nil(t, nalus)

	end := []byte{indicator, 0x40 | 0x05, 0x44, 0x55}
	nalus, ok = d.HandlePacket(buildRTPPacket(3, 5000, true, end))
	require.True(t, ok)
	require.Len(t, nalus, 1)
	require.Equal(t, append([]byte{0, 0, 0, 1}, full...), nalus[0].Bytes)
	require.Equal(t, uint64(5000), nalus[0].Timestamp)
}

func TestDepacketizerFUAGapAborts(t *testing.T) {
	d := NewDepacketizer()
	indicator := byte(0x60) | 28

	start := []byte{indicator, 0x80 | 0x05, 0x11}
	_, ok := d.HandlePacket(buildRTPPacket(1, 5000, false, start))
	require.False(t, ok)

	// Skip sequence 2: a gap inside the fragmented NALU.
	end := []byte{indicator, 0x40 | 0x05, 0x22}
	nalus, ok := d.HandlePacket(buildRTPPacket(3, 5000, true, end))
	require.False(t, ok)
	require.Nil(t, nalus)
}

func TestAnnexBSourceEach(t *testing.T) {
	var data []byte
	data = append(data, 0, 0, 0, 1, 0x67, 0x01)
	data = append(data, 0, 0, 0, 1, 0x68, 0x02)
	data = append(data, 0, 0, 0, 1, 0x65, 0x03)
	data = append(data, 0, 0, 0, 1, 0x41, 0x04)

	src := NewAnnexBSource(data)
	var got []NALU
	require.NoError(t, src.Each(func(n NALU) error {
		got = append(got, n)
		return nil
	}))

	require.Len(t, got, 4)
	require.True(t, got[0].IsFirst)
	require.False(t, got[2].IsLast == false) // slice NALU closes the AU
	require.True(t, got[2].IsLast)
	require.Equal(t, uint64(0), got[2].Timestamp)
	require.True(t, got[3].IsFirst)
	require.Equal(t, uint64(DefaultFrameDurationTicks), got[3].Timestamp)
}
